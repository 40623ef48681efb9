package service

import (
	"context"
	"errors"
	"testing"

	"github.com/anime-alley/storefront/internal/gateway"
	"github.com/anime-alley/storefront/internal/models"
)

func TestPendingRequestSetTryAcquire(t *testing.T) {
	set := NewPendingRequestSet()
	key := models.NewLineKey("P1", strPtr("M"))
	if !set.TryAcquire(key) {
		t.Fatalf("first acquire should succeed")
	}
	if set.TryAcquire(models.NewLineKey("P1", strPtr("M"))) {
		t.Fatalf("same key by value should be busy")
	}
	if !set.TryAcquire(models.NewLineKey("P1", nil)) {
		t.Fatalf("different variant should be independent")
	}
	set.Release(key)
	if set.Contains(key) {
		t.Fatalf("released key should be gone")
	}
	if len(set.Keys()) != 1 {
		t.Fatalf("unexpected busy keys: %v", set.Keys())
	}
	set.Release(key)
}

func TestReserveDropsSecondCallForBusyLine(t *testing.T) {
	gw := newFakeGateway()
	started := make(chan struct{})
	unblock := make(chan struct{})
	gw.reserve = func(req gateway.ReserveStockRequest) (*gateway.ReserveStockResult, error) {
		close(started)
		<-unblock
		return &gateway.ReserveStockResult{Success: true, ReservedQuantity: req.Quantity, Stock: intPtr(9)}, nil
	}
	client := NewStockReservationClient(gw, nil)
	key := models.NewLineKey("P1", strPtr("M"))

	done := make(chan error, 1)
	go func() {
		_, err := client.Reserve(context.Background(), key, 1)
		done <- err
	}()
	<-started

	if !client.Busy(key) {
		t.Fatalf("line should be busy while the first request is outstanding")
	}
	if _, err := client.Reserve(context.Background(), key, 1); !errors.Is(err, ErrRequestInFlight) {
		t.Fatalf("expected ErrRequestInFlight, got %v", err)
	}
	if KindOf(ErrRequestInFlight) != "" {
		t.Fatalf("in-flight drop must not be an error kind")
	}
	close(unblock)
	if err := <-done; err != nil {
		t.Fatalf("first reserve failed: %v", err)
	}
	if got := gw.count("reserveStock"); got != 1 {
		t.Fatalf("expected exactly one gateway call, got %d", got)
	}
	if client.Busy(key) {
		t.Fatalf("key should be released after completion")
	}
}

func TestReserveReleasesKeyOnFailure(t *testing.T) {
	gw := newFakeGateway()
	gw.reserve = func(req gateway.ReserveStockRequest) (*gateway.ReserveStockResult, error) {
		return nil, gateway.ErrRequestFailed
	}
	client := NewStockReservationClient(gw, nil)
	key := models.NewLineKey("P1", nil)

	_, err := client.Reserve(context.Background(), key, 1)
	if KindOf(err) != KindGeneral {
		t.Fatalf("expected GENERAL_ERROR, got %v", err)
	}
	if client.Busy(key) {
		t.Fatalf("key must be released after a failed request")
	}
}

func TestReserveClassification(t *testing.T) {
	cases := []struct {
		name    string
		result  gateway.ReserveStockResult
		kind    ErrorKind
		message string
	}{
		{"out of stock", gateway.ReserveStockResult{Success: false, Stock: intPtr(0)}, KindOutOfStock, ErrOutOfStock.Error()},
		{"conflict", gateway.ReserveStockResult{Success: false, Stock: intPtr(-1)}, KindConcurrentModification, ErrConcurrentModification.Error()},
		{"other", gateway.ReserveStockResult{Success: false, Stock: intPtr(4), Message: "limit 3 per order"}, KindGeneral, "limit 3 per order"},
		{"no stock field", gateway.ReserveStockResult{Success: false, Message: "database down"}, KindGeneral, "database down"},
		{"nothing reserved", gateway.ReserveStockResult{Success: true, ReservedQuantity: 0, Stock: intPtr(2)}, KindOutOfStock, ErrOutOfStock.Error()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := newFakeGateway()
			result := tc.result
			gw.reserve = func(req gateway.ReserveStockRequest) (*gateway.ReserveStockResult, error) {
				return &result, nil
			}
			client := NewStockReservationClient(gw, nil)
			_, err := client.Reserve(context.Background(), models.NewLineKey("P2", strPtr("L")), 3)
			if KindOf(err) != tc.kind {
				t.Fatalf("expected %s, got %v", tc.kind, err)
			}
			if MessageOf(err) != tc.message {
				t.Fatalf("unexpected message: %q", MessageOf(err))
			}
		})
	}
}

func TestReserveValidatesInput(t *testing.T) {
	gw := newFakeGateway()
	client := NewStockReservationClient(gw, nil)
	if _, err := client.Reserve(context.Background(), models.NewLineKey("P1", nil), 0); KindOf(err) != KindValidation {
		t.Fatalf("zero quantity should be a validation error, got %v", err)
	}
	if err := client.Adjust(context.Background(), models.NewLineKey("", nil), 1); KindOf(err) != KindValidation {
		t.Fatalf("missing product should be a validation error, got %v", err)
	}
	if gw.count("reserveStock")+gw.count("updateCartItem") != 0 {
		t.Fatalf("invalid input must not reach the gateway")
	}
}

func TestUnauthorizedIsGeneralError(t *testing.T) {
	gw := newFakeGateway()
	gw.remove = func(req gateway.RemoveCartItemRequest) (*gateway.Result, error) {
		return nil, gateway.ErrUnauthorized
	}
	client := NewStockReservationClient(gw, nil)
	err := client.Remove(context.Background(), models.NewLineKey("P1", nil))
	if KindOf(err) != KindGeneral || !errors.Is(err, gateway.ErrUnauthorized) {
		t.Fatalf("expected general error wrapping ErrUnauthorized, got %v", err)
	}
	if MessageOf(err) != "please sign in again" {
		t.Fatalf("unexpected message: %q", MessageOf(err))
	}
}
