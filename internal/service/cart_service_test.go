package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/anime-alley/storefront/internal/gateway"
	"github.com/anime-alley/storefront/internal/models"
)

func assertCartInvariant(t *testing.T, lines []models.CartLine) {
	t.Helper()
	seen := map[string]struct{}{}
	for _, line := range lines {
		if line.Quantity <= 0 {
			t.Fatalf("line %s has quantity %d", line.Key(), line.Quantity)
		}
		if _, dup := seen[line.Key().String()]; dup {
			t.Fatalf("duplicate line %s", line.Key())
		}
		seen[line.Key().String()] = struct{}{}
	}
}

func TestAddLineStoresReservedQuantity(t *testing.T) {
	gw := newFakeGateway()
	gw.reserve = func(req gateway.ReserveStockRequest) (*gateway.ReserveStockResult, error) {
		return &gateway.ReserveStockResult{Success: true, ReservedQuantity: 2, Stock: intPtr(2)}, nil
	}
	cart := newTestCart(gw)

	line, err := cart.AddLine(context.Background(), AddLineInput{ProductID: "P1", Variant: strPtr("M"), Quantity: 5, UnitPrice: money(20)})
	if err != nil {
		t.Fatalf("add line failed: %v", err)
	}
	if line.Quantity != 2 {
		t.Fatalf("expected reserved quantity 2, got %d", line.Quantity)
	}
	if got := cart.Lines(); len(got) != 1 || got[0].Quantity != 2 {
		t.Fatalf("unexpected lines: %+v", got)
	}
}

func TestAddLineMergesSameKey(t *testing.T) {
	gw := newFakeGateway()
	cart := newTestCart(gw)
	ctx := context.Background()

	if _, err := cart.AddLine(ctx, AddLineInput{ProductID: "P1", Variant: strPtr("M"), Quantity: 1, UnitPrice: money(20)}); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	if _, err := cart.AddLine(ctx, AddLineInput{ProductID: "P1", Variant: strPtr("L"), Quantity: 1, UnitPrice: money(20)}); err != nil {
		t.Fatalf("second add failed: %v", err)
	}
	if _, err := cart.AddLine(ctx, AddLineInput{ProductID: "P1", Variant: strPtr(" M "), Quantity: 2, UnitPrice: money(20)}); err != nil {
		t.Fatalf("third add failed: %v", err)
	}

	lines := cart.Lines()
	assertCartInvariant(t, lines)
	if len(lines) != 2 {
		t.Fatalf("expected two lines, got %d", len(lines))
	}
	if lines[0].Key().VariantValue() != "M" || lines[0].Quantity != 3 {
		t.Fatalf("merged line should keep insertion order and sum: %+v", lines[0])
	}
}

func TestAddLineOutOfStockLeavesCartUnchanged(t *testing.T) {
	gw := newFakeGateway()
	cart := newTestCart(gw)
	ctx := context.Background()
	if _, err := cart.AddLine(ctx, AddLineInput{ProductID: "P1", Variant: strPtr("M"), Quantity: 1, UnitPrice: money(20)}); err != nil {
		t.Fatalf("seed add failed: %v", err)
	}
	before := cart.Lines()

	gw.reserve = func(req gateway.ReserveStockRequest) (*gateway.ReserveStockResult, error) {
		return &gateway.ReserveStockResult{Success: false, Stock: intPtr(0)}, nil
	}
	_, err := cart.AddLine(ctx, AddLineInput{ProductID: "P2", Variant: strPtr("L"), Quantity: 3, UnitPrice: money(15)})
	if !errors.Is(err, ErrOutOfStock) || KindOf(err) != KindOutOfStock {
		t.Fatalf("expected OUT_OF_STOCK, got %v", err)
	}
	after := cart.Lines()
	if len(after) != len(before) || after[0].Quantity != before[0].Quantity {
		t.Fatalf("cart changed on failure: before=%+v after=%+v", before, after)
	}
}

func TestIncrementConcurrentCallsDispatchOnce(t *testing.T) {
	gw := newFakeGateway()
	cart := newTestCart(gw)
	ctx := context.Background()
	if _, err := cart.AddLine(ctx, AddLineInput{ProductID: "P1", Variant: strPtr("M"), Quantity: 1, UnitPrice: money(20)}); err != nil {
		t.Fatalf("seed add failed: %v", err)
	}

	started := make(chan struct{})
	unblock := make(chan struct{})
	var once sync.Once
	gw.reserve = func(req gateway.ReserveStockRequest) (*gateway.ReserveStockResult, error) {
		once.Do(func() { close(started) })
		<-unblock
		return &gateway.ReserveStockResult{Success: true, ReservedQuantity: req.Quantity, Stock: intPtr(10)}, nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := cart.Increment(ctx, "P1", strPtr("M"))
		done <- err
	}()
	<-started

	if snap := cart.Snapshot(); len(snap.BusyLines) != 1 || snap.BusyLines[0] != "P1|M" {
		t.Fatalf("line should render busy: %+v", snap.BusyLines)
	}
	if _, err := cart.Increment(ctx, "P1", strPtr("M")); !errors.Is(err, ErrRequestInFlight) {
		t.Fatalf("second increment should be dropped, got %v", err)
	}
	close(unblock)
	if err := <-done; err != nil {
		t.Fatalf("first increment failed: %v", err)
	}

	if got := gw.count("reserveStock"); got != 2 {
		t.Fatalf("expected seed + one increment call, got %d", got)
	}
	if lines := cart.Lines(); lines[0].Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", lines[0].Quantity)
	}
}

func TestDecrementDerivesFromLocalQuantity(t *testing.T) {
	gw := newFakeGateway()
	var sent []int
	gw.update = func(req gateway.UpdateCartItemRequest) (*gateway.Result, error) {
		sent = append(sent, req.Quantity)
		return &gateway.Result{Success: true}, nil
	}
	cart := newTestCart(gw)
	ctx := context.Background()
	if _, err := cart.AddLine(ctx, AddLineInput{ProductID: "P1", Quantity: 2, UnitPrice: money(20)}); err != nil {
		t.Fatalf("seed add failed: %v", err)
	}

	line, err := cart.Decrement(ctx, "P1", nil)
	if err != nil || line.Quantity != 1 {
		t.Fatalf("decrement to 1 failed: %+v %v", line, err)
	}
	if _, err := cart.Decrement(ctx, "P1", nil); err != nil {
		t.Fatalf("decrement to 0 failed: %v", err)
	}
	if !cart.IsEmpty() {
		t.Fatalf("line at zero must be removed")
	}
	if len(sent) != 2 || sent[0] != 1 || sent[1] != 0 {
		t.Fatalf("unexpected quantities sent: %v", sent)
	}
	if _, err := cart.Decrement(ctx, "P1", nil); KindOf(err) != KindValidation {
		t.Fatalf("decrement of a missing line should be a validation error, got %v", err)
	}
}

func TestUpdateFailureLeavesLineUntouched(t *testing.T) {
	gw := newFakeGateway()
	cart := newTestCart(gw)
	ctx := context.Background()
	if _, err := cart.AddLine(ctx, AddLineInput{ProductID: "P1", Quantity: 3, UnitPrice: money(20)}); err != nil {
		t.Fatalf("seed add failed: %v", err)
	}
	gw.update = func(req gateway.UpdateCartItemRequest) (*gateway.Result, error) {
		return &gateway.Result{Success: false, Message: "reservation expired"}, nil
	}

	_, err := cart.UpdateLineQuantity(ctx, "P1", nil, 1)
	if KindOf(err) != KindGeneral || MessageOf(err) != "reservation expired" {
		t.Fatalf("expected general error with gateway message, got %v", err)
	}
	if lines := cart.Lines(); lines[0].Quantity != 3 {
		t.Fatalf("quantity changed on failure: %d", lines[0].Quantity)
	}
	if _, err := cart.UpdateLineQuantity(ctx, "P1", nil, -1); KindOf(err) != KindValidation {
		t.Fatalf("negative quantity should be a validation error, got %v", err)
	}
}

func TestUpdateUnknownLineIsRefusedLocally(t *testing.T) {
	gw := newFakeGateway()
	cart := newTestCart(gw)
	ctx := context.Background()
	if _, err := cart.AddLine(ctx, AddLineInput{ProductID: "P1", Quantity: 1, UnitPrice: money(20)}); err != nil {
		t.Fatalf("seed add failed: %v", err)
	}

	line, err := cart.UpdateLineQuantity(ctx, "P7", strPtr("S"), 2)
	if KindOf(err) != KindValidation {
		t.Fatalf("unknown line should be a validation error, got %v", err)
	}
	if line.ProductID != "" {
		t.Fatalf("expected zero line, got %+v", line)
	}
	if got := gw.count("updateCartItem"); got != 0 {
		t.Fatalf("unknown line must not reach the gateway, got %d calls", got)
	}
	if lines := cart.Lines(); len(lines) != 1 || lines[0].ProductID != "P1" {
		t.Fatalf("cart changed: %+v", lines)
	}
}

func TestClearTwiceIsIdempotent(t *testing.T) {
	gw := newFakeGateway()
	cart := newTestCart(gw)
	ctx := context.Background()
	if _, err := cart.AddLine(ctx, AddLineInput{ProductID: "P1", Quantity: 1, UnitPrice: money(20)}); err != nil {
		t.Fatalf("seed add failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := cart.Clear(ctx); err != nil {
			t.Fatalf("clear %d failed: %v", i, err)
		}
		if !cart.IsEmpty() {
			t.Fatalf("cart should be empty after clear %d", i)
		}
	}
}

func TestRemoveLastLineFiresOnEmpty(t *testing.T) {
	gw := newFakeGateway()
	cart := newTestCart(gw)
	ctx := context.Background()
	fired := 0
	cart.OnEmpty(func() { fired++ })

	if _, err := cart.AddLine(ctx, AddLineInput{ProductID: "P1", Quantity: 1, UnitPrice: money(20)}); err != nil {
		t.Fatalf("add P1 failed: %v", err)
	}
	if _, err := cart.AddLine(ctx, AddLineInput{ProductID: "P2", Quantity: 1, UnitPrice: money(10)}); err != nil {
		t.Fatalf("add P2 failed: %v", err)
	}
	if err := cart.RemoveLine(ctx, "P1", nil); err != nil {
		t.Fatalf("remove P1 failed: %v", err)
	}
	if fired != 0 {
		t.Fatalf("listener must not fire while lines remain")
	}
	if err := cart.RemoveLine(ctx, "P2", nil); err != nil {
		t.Fatalf("remove P2 failed: %v", err)
	}
	if fired != 1 {
		t.Fatalf("expected one empty notification, got %d", fired)
	}
	if gw.count("clearCart") != 0 {
		t.Fatalf("emptying through removal must not issue an extra clear")
	}
}

func TestLoadFromServerOnceAndNormalizes(t *testing.T) {
	gw := newFakeGateway()
	gw.getCart = func() (*gateway.CartResult, error) {
		return &gateway.CartResult{Success: true, CartItems: []gateway.CartItem{
			{ProductID: "P1", SelectedVariant: strPtr("M"), Price: money(20), Quantity: 1},
			{ProductID: "P2", Price: money(5), Quantity: 0},
			{ProductID: "P1", SelectedVariant: strPtr("M"), Price: money(20), Quantity: 2},
			{ProductID: "P3", SelectedVariant: strPtr(""), Price: money(7), Quantity: 1},
		}}, nil
	}
	cart := newTestCart(gw)
	ctx := context.Background()

	if err := cart.LoadFromServer(ctx); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if err := cart.LoadFromServer(ctx); err != nil {
		t.Fatalf("second load failed: %v", err)
	}
	if gw.count("getCart") != 1 {
		t.Fatalf("cart should load once per session, got %d calls", gw.count("getCart"))
	}
	lines := cart.Lines()
	assertCartInvariant(t, lines)
	if len(lines) != 2 || lines[0].Quantity != 3 || lines[1].SelectedVariant != nil {
		t.Fatalf("unexpected normalized lines: %+v", lines)
	}

	cart.Reset()
	if snap := cart.Snapshot(); snap.Loaded || len(snap.Lines) != 0 {
		t.Fatalf("reset should clear lines and loaded flag: %+v", snap)
	}
	if err := cart.LoadFromServer(ctx); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if gw.count("getCart") != 2 {
		t.Fatalf("reset should allow a fresh hydrate")
	}
}

func TestLoadFromServerFailureKeepsState(t *testing.T) {
	gw := newFakeGateway()
	cart := newTestCart(gw)
	ctx := context.Background()
	if _, err := cart.AddLine(ctx, AddLineInput{ProductID: "P1", Quantity: 1, UnitPrice: money(20)}); err != nil {
		t.Fatalf("seed add failed: %v", err)
	}
	gw.getCart = func() (*gateway.CartResult, error) {
		return nil, gateway.ErrRequestFailed
	}

	if err := cart.LoadFromServer(ctx); KindOf(err) != KindGeneral {
		t.Fatalf("expected general error, got %v", err)
	}
	snap := cart.Snapshot()
	if snap.Loaded || snap.Loading || len(snap.Lines) != 1 {
		t.Fatalf("failed load must leave state untouched: %+v", snap)
	}
}

func TestLoadingIndicatorWaitsForDelay(t *testing.T) {
	gw := newFakeGateway()
	started := make(chan struct{})
	unblock := make(chan struct{})
	gw.getCart = func() (*gateway.CartResult, error) {
		close(started)
		<-unblock
		return &gateway.CartResult{Success: true}, nil
	}
	cart := NewCartService(gw, nil, 20*time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- cart.LoadFromServer(context.Background()) }()
	<-started

	if snap := cart.Snapshot(); !snap.Loading || snap.LoadingVisible {
		t.Fatalf("indicator should stay hidden before the delay: %+v", snap)
	}
	waitFor(t, func() bool { return cart.Snapshot().LoadingVisible })
	close(unblock)
	if err := <-done; err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if snap := cart.Snapshot(); snap.Loading || snap.LoadingVisible || !snap.Loaded {
		t.Fatalf("flags should clear after load: %+v", snap)
	}
}

func TestConcurrentLoadsShareOneCall(t *testing.T) {
	gw := newFakeGateway()
	unblock := make(chan struct{})
	gw.getCart = func() (*gateway.CartResult, error) {
		<-unblock
		return &gateway.CartResult{Success: true}, nil
	}
	cart := newTestCart(gw)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = cart.LoadFromServer(context.Background())
		}()
	}
	waitFor(t, func() bool { return gw.count("getCart") == 1 })
	close(unblock)
	wg.Wait()
	if gw.count("getCart") != 1 {
		t.Fatalf("expected one shared call, got %d", gw.count("getCart"))
	}
}

func TestRefreshReplacesLoadedLines(t *testing.T) {
	gw := newFakeGateway()
	quantity := 1
	gw.getCart = func() (*gateway.CartResult, error) {
		return &gateway.CartResult{Success: true, CartItems: []gateway.CartItem{
			{ProductID: "P1", Price: money(20), Quantity: quantity},
		}}, nil
	}
	cart := newTestCart(gw)
	ctx := context.Background()

	if err := cart.LoadFromServer(ctx); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	quantity = 4
	if err := cart.Refresh(ctx); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	lines := cart.Lines()
	if gw.count("getCart") != 2 || len(lines) != 1 || lines[0].Quantity != 4 {
		t.Fatalf("refresh should re-read the server cart: calls=%d lines=%+v", gw.count("getCart"), lines)
	}
}
