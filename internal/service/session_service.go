package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/anime-alley/storefront/internal/logger"
	"github.com/anime-alley/storefront/internal/repository"

	"github.com/golang-jwt/jwt/v5"
)

// Persisted session keys owned by the core.
const (
	KeyIdentity        = "auth.identity"
	KeyDeliveryAddress = "checkout.delivery_address"
)

// TokenHolder receives the bearer token used for gateway calls.
type TokenHolder interface {
	SetToken(token string)
}

// Identity is what the client knows about the signed-in shopper.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Marker string `json:"marker"`
}

// SessionOptions configures the session store.
type SessionOptions struct {
	PreserveKeys []string
}

// SessionService owns the persisted key-value preferences and the shopper identity.
// Signing in as a different shopper purges every key outside the preserve list.
type SessionService struct {
	repo     repository.SessionRepository
	tokens   TokenHolder
	preserve []string

	mu        sync.RWMutex
	identity  Identity
	signedIn  bool
	resetters []func()
}

// NewSessionService creates the session store.
func NewSessionService(repo repository.SessionRepository, tokens TokenHolder, opts SessionOptions) *SessionService {
	preserve := make([]string, 0, len(opts.PreserveKeys)+1)
	seen := map[string]struct{}{}
	keys := append(append([]string{}, opts.PreserveKeys...), KeyIdentity)
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		preserve = append(preserve, key)
	}
	return &SessionService{repo: repo, tokens: tokens, preserve: preserve}
}

// OnReset registers fn to run on logout and identity switch.
func (s *SessionService) OnReset(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.resetters = append(s.resetters, fn)
	s.mu.Unlock()
}

// SetIdentity signs the shopper in with a bearer token. The token is decoded, not verified;
// the gateway verifies it on every call. It reports whether a different shopper was signed in before.
func (s *SessionService) SetIdentity(ctx context.Context, token string) (Identity, bool, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	identity, err := parseIdentity(token)
	if err != nil {
		return Identity{}, false, err
	}

	previous, err := s.repo.Get(ctx, KeyIdentity)
	if err != nil {
		logger.Errorw("session_identity_read_failed", "error", err)
		return Identity{}, false, generalError("session storage is unavailable", err)
	}
	switched := previous != nil && previous.Value != "" && previous.Value != identity.Marker
	if switched {
		purged, err := s.repo.DeleteExcept(ctx, s.preserve)
		if err != nil {
			logger.Errorw("session_purge_failed", "error", err)
			return Identity{}, false, generalError("session storage is unavailable", err)
		}
		logger.Infow("session_identity_switched", "purged_keys", purged)
	}
	if err := s.repo.Upsert(ctx, KeyIdentity, identity.Marker); err != nil {
		logger.Errorw("session_identity_write_failed", "error", err)
		return Identity{}, false, generalError("session storage is unavailable", err)
	}

	s.mu.Lock()
	s.identity = identity
	s.signedIn = true
	resetters := append([]func(){}, s.resetters...)
	s.mu.Unlock()

	s.tokens.SetToken(token)
	if switched {
		notify(resetters)
	}
	return identity, switched, nil
}

// Logout drops the token and in-memory state. The identity marker stays persisted
// so the next sign-in can tell whether the shopper changed.
func (s *SessionService) Logout(ctx context.Context) {
	s.mu.Lock()
	s.identity = Identity{}
	s.signedIn = false
	resetters := append([]func(){}, s.resetters...)
	s.mu.Unlock()

	s.tokens.SetToken("")
	notify(resetters)
	logger.Infow("session_logout")
}

// Current returns the signed-in shopper.
func (s *SessionService) Current() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity, s.signedIn
}

// DeliveryAddress returns the cached address or "".
func (s *SessionService) DeliveryAddress(ctx context.Context) (string, error) {
	value, _, err := s.Preference(ctx, KeyDeliveryAddress)
	return value, err
}

// SetDeliveryAddress caches the address; a blank address removes it.
func (s *SessionService) SetDeliveryAddress(ctx context.Context, address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return s.repo.Delete(ctx, KeyDeliveryAddress)
	}
	return s.repo.Upsert(ctx, KeyDeliveryAddress, address)
}

// Preference reads one key.
func (s *SessionService) Preference(ctx context.Context, key string) (string, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false, validationError("preference key is required")
	}
	entry, err := s.repo.Get(ctx, key)
	if err != nil {
		return "", false, generalError("session storage is unavailable", err)
	}
	if entry == nil {
		return "", false, nil
	}
	return entry.Value, true, nil
}

// SetPreference writes one key. The identity marker cannot be written directly.
func (s *SessionService) SetPreference(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if err := checkWritableKey(key); err != nil {
		return err
	}
	if err := s.repo.Upsert(ctx, key, value); err != nil {
		return generalError("session storage is unavailable", err)
	}
	return nil
}

// DeletePreference removes one key.
func (s *SessionService) DeletePreference(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if err := checkWritableKey(key); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, key); err != nil {
		return generalError("session storage is unavailable", err)
	}
	return nil
}

// Preferences lists every stored key except the identity marker.
func (s *SessionService) Preferences(ctx context.Context) (map[string]string, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return nil, generalError("session storage is unavailable", err)
	}
	out := make(map[string]string, len(entries))
	for _, entry := range entries {
		if entry.Key == KeyIdentity {
			continue
		}
		out[entry.Key] = entry.Value
	}
	return out, nil
}

func checkWritableKey(key string) error {
	if key == "" {
		return validationError("preference key is required")
	}
	if key == KeyIdentity {
		return validationError(fmt.Sprintf("%s is managed by sign-in", KeyIdentity))
	}
	return nil
}

// parseIdentity reads the claims without verifying the signature.
func parseIdentity(token string) (Identity, error) {
	if token == "" {
		return Identity{}, validationError("token is required")
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Identity{}, validationError("token is malformed")
	}

	identity := Identity{
		UserID: firstClaim(claims, "userId", "user_id", "id", "sub"),
		Email:  strings.ToLower(firstClaim(claims, "email")),
		Name:   firstClaim(claims, "name", "username"),
	}
	identity.Marker = identity.Email
	if identity.Marker == "" {
		identity.Marker = identity.UserID
	}
	if identity.Marker == "" {
		return Identity{}, validationError("token carries no user identity")
	}
	return identity, nil
}

func firstClaim(claims jwt.MapClaims, names ...string) string {
	for _, name := range names {
		raw, ok := claims[name]
		if !ok || raw == nil {
			continue
		}
		var value string
		switch v := raw.(type) {
		case string:
			value = v
		case float64:
			value = fmt.Sprintf("%.0f", v)
		default:
			value = fmt.Sprint(v)
		}
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return ""
}
