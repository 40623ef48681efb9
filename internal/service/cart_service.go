package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/anime-alley/storefront/internal/gateway"
	"github.com/anime-alley/storefront/internal/logger"
	"github.com/anime-alley/storefront/internal/models"

	"golang.org/x/sync/singleflight"
)

// AddLineInput describes a product being put into the cart.
type AddLineInput struct {
	ProductID string
	Variant   *string
	Quantity  int
	UnitPrice models.Money
	Product   models.ProductSnapshot
}

// CartSnapshot is a copy of the cart for rendering.
type CartSnapshot struct {
	Lines          []models.CartLine `json:"lines"`
	Loaded         bool              `json:"loaded"`
	Loading        bool              `json:"loading"`
	LoadingVisible bool              `json:"loading_visible"`
	BusyLines      []string          `json:"busy_lines"`
	ItemCount      int               `json:"item_count"`
	Subtotal       models.Money      `json:"subtotal"`
}

// CartService is the in-memory cart of the current session. Every mutation waits for the
// gateway to confirm before touching local lines, so a failed call leaves the cart as it was.
type CartService struct {
	gateway      CartGateway
	reservations *StockReservationClient
	loadingDelay time.Duration
	loadGroup    singleflight.Group

	mu             sync.Mutex
	lines          []models.CartLine
	loaded         bool
	loading        bool
	loadingVisible bool
	loadingTimer   *time.Timer
	epoch          uint64
	emptyListeners []func()
}

// NewCartService creates an empty, not yet loaded cart.
func NewCartService(gw CartGateway, reservations *StockReservationClient, loadingDelay time.Duration) *CartService {
	if reservations == nil {
		reservations = NewStockReservationClient(gw, nil)
	}
	return &CartService{
		gateway:      gw,
		reservations: reservations,
		loadingDelay: loadingDelay,
	}
}

// OnEmpty registers fn to run after a mutation leaves the cart empty.
func (s *CartService) OnEmpty(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.emptyListeners = append(s.emptyListeners, fn)
	s.mu.Unlock()
}

// LoadFromServer hydrates the cart once per session. Concurrent callers share one gateway call.
func (s *CartService) LoadFromServer(ctx context.Context) error {
	s.mu.Lock()
	loaded := s.loaded
	s.mu.Unlock()
	if loaded {
		return nil
	}
	_, err, _ := s.loadGroup.Do("cart", func() (interface{}, error) {
		return nil, s.load(ctx)
	})
	return err
}

// Refresh discards the loaded flag and hydrates again.
func (s *CartService) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.loaded = false
	s.mu.Unlock()
	return s.LoadFromServer(ctx)
}

func (s *CartService) load(ctx context.Context) error {
	s.mu.Lock()
	if s.loaded {
		s.mu.Unlock()
		return nil
	}
	epoch := s.epoch
	s.startLoadingLocked(epoch)
	s.mu.Unlock()

	result, err := s.gateway.GetCart(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLoadingLocked()
	if err != nil {
		logger.Warnw("cart_load_failed", "error", err)
		return gatewayError(err)
	}
	if !result.Success {
		logger.Warnw("cart_load_rejected", "message", result.Message)
		return generalError(result.Message, nil)
	}
	if epoch != s.epoch {
		logger.Infow("cart_load_discarded", "reason", "session_reset")
		return nil
	}
	s.lines = normalizeServerLines(result.CartItems)
	s.loaded = true
	logger.Debugw("cart_loaded", "lines", len(s.lines))
	return nil
}

func (s *CartService) startLoadingLocked(epoch uint64) {
	s.loading = true
	s.loadingVisible = false
	if s.loadingTimer != nil {
		s.loadingTimer.Stop()
	}
	s.loadingTimer = time.AfterFunc(s.loadingDelay, func() {
		s.mu.Lock()
		if s.loading && s.epoch == epoch {
			s.loadingVisible = true
		}
		s.mu.Unlock()
	})
}

func (s *CartService) stopLoadingLocked() {
	if s.loadingTimer != nil {
		s.loadingTimer.Stop()
		s.loadingTimer = nil
	}
	s.loading = false
	s.loadingVisible = false
}

// normalizeServerLines drops empty lines and merges duplicate keys, keeping first-seen order.
func normalizeServerLines(items []gateway.CartItem) []models.CartLine {
	lines := make([]models.CartLine, 0, len(items))
	index := make(map[string]int, len(items))
	for _, item := range items {
		if item.Quantity <= 0 || strings.TrimSpace(item.ProductID) == "" {
			continue
		}
		key := models.NewLineKey(item.ProductID, item.SelectedVariant)
		if i, ok := index[key.String()]; ok {
			lines[i].Quantity += item.Quantity
			continue
		}
		index[key.String()] = len(lines)
		lines = append(lines, models.CartLine{
			ProductID:       key.ProductID,
			SelectedVariant: key.Variant,
			UnitPrice:       item.Price,
			Quantity:        item.Quantity,
			Product:         item.Product,
		})
	}
	return lines
}

// AddLine reserves stock and stores the server-confirmed quantity, merging into an existing line.
func (s *CartService) AddLine(ctx context.Context, input AddLineInput) (models.CartLine, error) {
	key := models.NewLineKey(input.ProductID, input.Variant)
	reserved, err := s.reservations.Reserve(ctx, key, input.Quantity)
	if err != nil {
		return models.CartLine{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(key); i >= 0 {
		s.lines[i].Quantity += reserved
		return s.lines[i].Clone(), nil
	}
	line := models.CartLine{
		ProductID:       key.ProductID,
		SelectedVariant: key.Variant,
		UnitPrice:       input.UnitPrice,
		Quantity:        reserved,
		Product:         input.Product,
	}
	s.lines = append(s.lines, line)
	return line.Clone(), nil
}

// Increment reserves one more unit of an existing line.
func (s *CartService) Increment(ctx context.Context, productID string, variant *string) (models.CartLine, error) {
	key := models.NewLineKey(productID, variant)
	current, ok := s.line(key)
	if !ok {
		return models.CartLine{}, validationError("item is not in the cart")
	}
	return s.AddLine(ctx, AddLineInput{
		ProductID: key.ProductID,
		Variant:   key.Variant,
		Quantity:  1,
		UnitPrice: current.UnitPrice,
		Product:   current.Product,
	})
}

// Decrement lowers a line by one, derived from the local quantity. At one it removes the line.
func (s *CartService) Decrement(ctx context.Context, productID string, variant *string) (models.CartLine, error) {
	key := models.NewLineKey(productID, variant)
	current, ok := s.line(key)
	if !ok {
		return models.CartLine{}, validationError("item is not in the cart")
	}
	return s.UpdateLineQuantity(ctx, key.ProductID, key.Variant, current.Quantity-1)
}

// UpdateLineQuantity sets a line's quantity; zero removes it. The returned line is zero when removed.
// Zero on an unknown line releases it like RemoveLine; any other quantity needs a cached line.
func (s *CartService) UpdateLineQuantity(ctx context.Context, productID string, variant *string, quantity int) (models.CartLine, error) {
	key := models.NewLineKey(productID, variant)
	if quantity < 0 {
		return models.CartLine{}, validationError("quantity must not be negative")
	}
	if _, ok := s.line(key); !ok && quantity > 0 {
		return models.CartLine{}, validationError("item is not in the cart")
	}
	if err := s.reservations.Adjust(ctx, key, quantity); err != nil {
		return models.CartLine{}, err
	}

	s.mu.Lock()
	var updated models.CartLine
	i := s.indexLocked(key)
	switch {
	case i < 0:
	case quantity == 0:
		s.removeAtLocked(i)
	default:
		s.lines[i].Quantity = quantity
		updated = s.lines[i].Clone()
	}
	listeners := s.emptyListenersLocked()
	s.mu.Unlock()

	notify(listeners)
	return updated, nil
}

// RemoveLine drops a line on the gateway, then locally.
func (s *CartService) RemoveLine(ctx context.Context, productID string, variant *string) error {
	key := models.NewLineKey(productID, variant)
	if err := s.reservations.Remove(ctx, key); err != nil {
		return err
	}

	s.mu.Lock()
	if i := s.indexLocked(key); i >= 0 {
		s.removeAtLocked(i)
	}
	listeners := s.emptyListenersLocked()
	s.mu.Unlock()

	notify(listeners)
	return nil
}

// Clear empties the cart. Clearing an empty cart succeeds.
func (s *CartService) Clear(ctx context.Context) error {
	result, err := s.gateway.ClearCart(ctx)
	if err != nil {
		logger.Warnw("cart_clear_failed", "error", err)
		return gatewayError(err)
	}
	if !result.Success {
		return generalError(result.Message, nil)
	}

	s.mu.Lock()
	s.lines = nil
	listeners := append([]func(){}, s.emptyListeners...)
	s.mu.Unlock()

	notify(listeners)
	return nil
}

// Reset wipes local state without calling the gateway. The next LoadFromServer hydrates again.
func (s *CartService) Reset() {
	s.mu.Lock()
	s.lines = nil
	s.loaded = false
	s.stopLoadingLocked()
	s.epoch++
	s.mu.Unlock()
}

// Lines returns a copy of the current lines in insertion order.
func (s *CartService) Lines() []models.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLinesLocked()
}

// IsEmpty reports whether the cart has no lines.
func (s *CartService) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines) == 0
}

// Subtotal sums the current lines.
func (s *CartService) Subtotal() models.Money {
	return Subtotal(s.Lines())
}

// Snapshot copies the cart for rendering.
func (s *CartService) Snapshot() CartSnapshot {
	busy := s.reservations.Pending()

	s.mu.Lock()
	lines := s.copyLinesLocked()
	snapshot := CartSnapshot{
		Lines:          lines,
		Loaded:         s.loaded,
		Loading:        s.loading,
		LoadingVisible: s.loadingVisible,
	}
	s.mu.Unlock()

	snapshot.BusyLines = make([]string, 0, len(busy))
	for _, key := range busy {
		snapshot.BusyLines = append(snapshot.BusyLines, key.String())
	}
	for _, line := range lines {
		snapshot.ItemCount += line.Quantity
	}
	snapshot.Subtotal = Subtotal(lines)
	return snapshot
}

func (s *CartService) line(key models.LineKey) (models.CartLine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(key)
	if i < 0 {
		return models.CartLine{}, false
	}
	return s.lines[i].Clone(), true
}

func (s *CartService) indexLocked(key models.LineKey) int {
	for i := range s.lines {
		if s.lines[i].Key().Equal(key) {
			return i
		}
	}
	return -1
}

func (s *CartService) removeAtLocked(i int) {
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
}

func (s *CartService) copyLinesLocked() []models.CartLine {
	out := make([]models.CartLine, 0, len(s.lines))
	for _, line := range s.lines {
		out = append(out, line.Clone())
	}
	return out
}

// emptyListenersLocked returns the listeners to fire when the cart is empty, nil otherwise.
func (s *CartService) emptyListenersLocked() []func() {
	if len(s.lines) > 0 {
		return nil
	}
	return append([]func(){}, s.emptyListeners...)
}

func notify(listeners []func()) {
	for _, fn := range listeners {
		fn()
	}
}
