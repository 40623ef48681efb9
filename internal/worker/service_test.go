package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/anime-alley/storefront/internal/service"
)

type recordingPlacer struct {
	mu     sync.Mutex
	events []string
	ctxErr []error
}

func (p *recordingPlacer) Place(ctx context.Context, event service.ProceedEvent) service.OrderResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event.ID)
	p.ctxErr = append(p.ctxErr, ctx.Err())
	return service.OrderResult{EventID: event.ID, Status: service.OrderStatusPlaced}
}

func (p *recordingPlacer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func TestNewServiceValidatesInput(t *testing.T) {
	if _, err := NewService(nil, &recordingPlacer{}); err == nil {
		t.Fatalf("nil channel should fail")
	}
	if _, err := NewService(make(chan service.ProceedEvent), nil); err == nil {
		t.Fatalf("nil placer should fail")
	}
}

func TestServicePlacesEachEventOnce(t *testing.T) {
	events := make(chan service.ProceedEvent, 2)
	placer := &recordingPlacer{}
	svc, err := NewService(events, placer)
	if err != nil {
		t.Fatalf("new service failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	exited := make(chan error, 1)
	go func() { exited <- svc.Start(ctx) }()

	events <- service.ProceedEvent{ID: "evt-1"}
	events <- service.ProceedEvent{ID: "evt-2"}

	deadline := time.Now().Add(2 * time.Second)
	for placer.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if placer.count() != 2 {
		t.Fatalf("expected two placements, got %d", placer.count())
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := svc.Stop(stopCtx); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if err := <-exited; err != nil {
		t.Fatalf("start returned error: %v", err)
	}
	for _, ctxErr := range placer.ctxErr {
		if ctxErr != nil {
			t.Fatalf("placement context should not be cancelled: %v", ctxErr)
		}
	}
}

func TestStopBeforeStart(t *testing.T) {
	svc, err := NewService(make(chan service.ProceedEvent), &recordingPlacer{})
	if err != nil {
		t.Fatalf("new service failed: %v", err)
	}
	if err := svc.Stop(context.Background()); err != nil {
		t.Fatalf("stop before start should not block: %v", err)
	}
}
