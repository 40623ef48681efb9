package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/anime-alley/storefront/internal/logger"
	"github.com/anime-alley/storefront/internal/service"
)

// Placer places the order a checkout handed over.
type Placer interface {
	Place(ctx context.Context, event service.ProceedEvent) service.OrderResult
}

// Service consumes proceed events one at a time, off the request path.
type Service struct {
	name   string
	events <-chan service.ProceedEvent
	placer Placer

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewService creates the order placement worker.
func NewService(events <-chan service.ProceedEvent, placer Placer) (*Service, error) {
	if events == nil {
		return nil, errors.New("event channel is nil")
	}
	if placer == nil {
		return nil, errors.New("placer is nil")
	}
	return &Service{
		name:   "order-worker",
		events: events,
		placer: placer,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}, nil
}

// Name is the runner label.
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "order-worker"
	}
	return s.name
}

// Start blocks until ctx ends or Stop is called. An order already being placed
// is allowed to finish.
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.events == nil || s.placer == nil {
		return errors.New("worker not initialized")
	}
	s.started.Store(true)
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stop:
			return nil
		case event, ok := <-s.events:
			if !ok {
				return nil
			}
			s.handle(context.WithoutCancel(ctx), event)
		}
	}
}

func (s *Service) handle(ctx context.Context, event service.ProceedEvent) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorw("worker_order_place_panic", "event_id", event.ID, "panic", r)
		}
	}()
	result := s.placer.Place(ctx, event)
	logger.Infow("worker_order_place_done",
		"event_id", event.ID,
		"status", result.Status,
		"order_id", result.OrderID,
		"error_kind", result.ErrorKind,
	)
}

// Stop ends the loop and waits for the current order, if any.
func (s *Service) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.stopOnce.Do(func() { close(s.stop) })
	if !s.started.Load() {
		return nil
	}
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
