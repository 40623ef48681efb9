package public

import "github.com/anime-alley/storefront/internal/provider"

// Handler serves the local storefront API used by the presentational layer.
type Handler struct {
	*provider.Container
}

// New creates the handler.
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
