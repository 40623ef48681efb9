package app

import (
	"errors"

	"github.com/anime-alley/storefront/internal/config"
	"github.com/anime-alley/storefront/internal/provider"
	"github.com/anime-alley/storefront/internal/router"
	"github.com/anime-alley/storefront/internal/worker"
)

// BuildRunner wires the local API and the order placement worker.
func BuildRunner(cfg *config.Config) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	container, err := provider.NewContainer(cfg)
	if err != nil {
		return nil, err
	}
	return buildRunner(cfg, container)
}

func buildRunner(cfg *config.Config, container *provider.Container) (*Runner, error) {
	engine := router.SetupRouter(cfg, container)
	addr := cfg.Server.Host + ":" + cfg.Server.Port
	httpService := NewHTTPService(addr, engine)

	orderWorker, err := worker.NewService(container.CheckoutService.Events(), container.OrderService)
	if err != nil {
		return nil, err
	}

	return NewRunner(orderWorker, httpService), nil
}

// Run is the application entry point.
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config)
	if err != nil {
		return err
	}

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "gateway", opts.Config.Gateway.BaseURL)
	return RunWithOptions(runner, opts)
}
