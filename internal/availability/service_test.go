package availability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-resource-approvals.git/internal/reservations"
	"github.com/google/uuid"
)

// In-memory catalog + store dengan semantik admisi yang sama dengan repo pgx:
// check+create satu critical section per resource.

type memCatalog struct {
	mu        sync.Mutex
	resources map[string]*reservations.Resource
}

func (c *memCatalog) GetResource(_ context.Context, id string) (*reservations.Resource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.resources[id]
	if !ok {
		return nil, reservations.ErrNotFound
	}
	cp := *res
	return &cp, nil
}

func (c *memCatalog) AdjustStock(_ context.Context, id string, delta int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.resources[id]
	if !ok || res.Category != reservations.CategoryConsumable {
		return reservations.ErrNotFound
	}
	if res.StockLevel+delta < 0 {
		return reservations.ErrStockNegative
	}
	res.StockLevel += delta
	return nil
}

type memStore struct {
	catalog  *memCatalog
	mu       sync.Mutex
	requests []reservations.Request
}

func statusActive(s reservations.Status) bool {
	for _, a := range reservations.ActiveStatuses {
		if s == a {
			return true
		}
	}
	return false
}

func (s *memStore) CreateTimeBound(_ context.Context, req *reservations.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.requests {
		if existing.ResourceID != req.ResourceID || !statusActive(existing.Status) || existing.Window == nil {
			continue
		}
		if existing.Window.Overlaps(*req.Window) {
			return &reservations.NotAvailableError{ResourceID: req.ResourceID, Reason: reservations.ReasonTimeConflict}
		}
	}
	s.requests = append(s.requests, *req)
	return nil
}

func (s *memStore) CreateConsumable(_ context.Context, req *reservations.Request) error {
	s.catalog.mu.Lock()
	res, ok := s.catalog.resources[req.ResourceID]
	if !ok || res.Category != reservations.CategoryConsumable {
		s.catalog.mu.Unlock()
		return reservations.ErrNotFound
	}
	if res.StockLevel < req.Quantity {
		s.catalog.mu.Unlock()
		return &reservations.NotAvailableError{ResourceID: req.ResourceID, Reason: reservations.ReasonInsufficientStock}
	}
	res.StockLevel -= req.Quantity
	s.catalog.mu.Unlock()

	s.mu.Lock()
	s.requests = append(s.requests, *req)
	s.mu.Unlock()
	return nil
}

func (s *memStore) FindActiveOverlapping(_ context.Context, resourceID string, w reservations.Window, statuses []reservations.Status) ([]reservations.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in := func(st reservations.Status) bool {
		for _, x := range statuses {
			if x == st {
				return true
			}
		}
		return false
	}
	var out []reservations.Request
	for _, r := range s.requests {
		if r.ResourceID == resourceID && in(r.Status) && r.Window != nil && r.Window.Overlaps(w) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func newEngine(resources ...*reservations.Resource) (*Engine, *memCatalog, *memStore) {
	cat := &memCatalog{resources: map[string]*reservations.Resource{}}
	for _, r := range resources {
		cat.resources[r.ID] = r
	}
	store := &memStore{catalog: cat}
	return &Engine{Catalog: cat, Store: store}, cat, store
}

func win(t *testing.T, start, end string) *reservations.Window {
	t.Helper()
	s, err := time.Parse(time.RFC3339, "2025-03-10T"+start+":00Z")
	if err != nil {
		t.Fatalf("parse start: %v", err)
	}
	e, err := time.Parse(time.RFC3339, "2025-03-10T"+end+":00Z")
	if err != nil {
		t.Fatalf("parse end: %v", err)
	}
	return &reservations.Window{Start: s, End: e}
}

func pendingRequest(resourceID string, w *reservations.Window, qty int) *reservations.Request {
	return &reservations.Request{
		ID:           uuid.NewString(),
		ResourceID:   resourceID,
		RequesterID:  "user-1",
		Window:       w,
		Quantity:     qty,
		Status:       reservations.StatusPending,
		CurrentStage: reservations.StageManager,
		Approvals:    reservations.NewApprovals(),
		CreatedAt:    time.Now().UTC(),
	}
}

func TestTimeBoundAdmission(t *testing.T) {
	engine, _, store := newEngine(&reservations.Resource{ID: "room-a", Category: reservations.CategoryTimeBound})
	ctx := context.Background()

	// approved [10:00,11:00) sudah ada
	existing := pendingRequest("room-a", win(t, "10:00", "11:00"), 1)
	existing.Status = reservations.StatusApproved
	if err := store.CreateTimeBound(ctx, existing); err != nil {
		t.Fatalf("seed: %v", err)
	}

	err := engine.CheckAndReserve(ctx, pendingRequest("room-a", win(t, "10:30", "11:30"), 1))
	var na *reservations.NotAvailableError
	if !errors.As(err, &na) || na.Reason != reservations.ReasonTimeConflict {
		t.Fatalf("Expected TIME_CONFLICT, got %v", err)
	}
	if store.count() != 1 {
		t.Errorf("Expected no request created on conflict, have %d", store.count())
	}

	// back-to-back boleh
	if err := engine.CheckAndReserve(ctx, pendingRequest("room-a", win(t, "11:00", "12:00"), 1)); err != nil {
		t.Fatalf("Expected [11:00,12:00) admitted, got %v", err)
	}
	if store.count() != 2 {
		t.Errorf("Expected 2 requests, have %d", store.count())
	}
}

func TestTimeBoundRequiresWindow(t *testing.T) {
	engine, _, _ := newEngine(&reservations.Resource{ID: "room-a", Category: reservations.CategoryTimeBound})

	err := engine.CheckAndReserve(context.Background(), pendingRequest("room-a", nil, 1))
	var v *reservations.ValidationError
	if !errors.As(err, &v) {
		t.Fatalf("Expected validation error, got %v", err)
	}
}

func TestUnknownResource(t *testing.T) {
	engine, _, _ := newEngine()

	err := engine.CheckAndReserve(context.Background(), pendingRequest("ghost", win(t, "10:00", "11:00"), 1))
	if !errors.Is(err, reservations.ErrNotFound) {
		t.Fatalf("Expected not found, got %v", err)
	}
}

func TestConsumableAdmission(t *testing.T) {
	engine, cat, store := newEngine(&reservations.Resource{
		ID: "paper", Category: reservations.CategoryConsumable, StockLevel: 5,
	})
	ctx := context.Background()

	if err := engine.CheckAndReserve(ctx, pendingRequest("paper", nil, 3)); err != nil {
		t.Fatalf("Expected admission, got %v", err)
	}
	if got := cat.resources["paper"].StockLevel; got != 2 {
		t.Errorf("Expected stock 2, got %d", got)
	}

	err := engine.CheckAndReserve(ctx, pendingRequest("paper", nil, 3))
	var na *reservations.NotAvailableError
	if !errors.As(err, &na) || na.Reason != reservations.ReasonInsufficientStock {
		t.Fatalf("Expected INSUFFICIENT_STOCK, got %v", err)
	}
	if got := cat.resources["paper"].StockLevel; got != 2 {
		t.Errorf("Expected stock untouched on failure, got %d", got)
	}
	if store.count() != 1 {
		t.Errorf("Expected 1 request, have %d", store.count())
	}
}

func TestConsumableQuantityValidation(t *testing.T) {
	engine, cat, _ := newEngine(&reservations.Resource{
		ID: "paper", Category: reservations.CategoryConsumable, StockLevel: 5,
	})

	err := engine.CheckAndReserve(context.Background(), pendingRequest("paper", nil, 0))
	var v *reservations.ValidationError
	if !errors.As(err, &v) {
		t.Fatalf("Expected validation error, got %v", err)
	}
	if got := cat.resources["paper"].StockLevel; got != 5 {
		t.Errorf("Expected stock untouched, got %d", got)
	}
}

// Scenario: stock 5, dua submit paralel qty 3 -> tepat satu lolos, stok akhir 2.
func TestConcurrentConsumableAdmission(t *testing.T) {
	engine, cat, _ := newEngine(&reservations.Resource{
		ID: "paper", Category: reservations.CategoryConsumable, StockLevel: 5,
	})
	ctx := context.Background()

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- engine.CheckAndReserve(ctx, pendingRequest("paper", nil, 3))
		}()
	}
	wg.Wait()
	close(results)

	var ok, insufficient int
	for err := range results {
		if err == nil {
			ok++
			continue
		}
		var na *reservations.NotAvailableError
		if errors.As(err, &na) && na.Reason == reservations.ReasonInsufficientStock {
			insufficient++
		} else {
			t.Errorf("Unexpected error: %v", err)
		}
	}
	if ok != 1 || insufficient != 1 {
		t.Errorf("Expected exactly one admission, got ok=%d insufficient=%d", ok, insufficient)
	}
	if got := cat.resources["paper"].StockLevel; got != 2 {
		t.Errorf("Expected final stock 2, got %d", got)
	}
}

func TestStockNeverNegative(t *testing.T) {
	engine, cat, _ := newEngine(&reservations.Resource{
		ID: "paper", Category: reservations.CategoryConsumable, StockLevel: 10,
	})
	ctx := context.Background()

	const attempts = 25
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- engine.CheckAndReserve(ctx, pendingRequest("paper", nil, 1))
		}()
	}
	wg.Wait()
	close(results)

	var ok int
	for err := range results {
		if err == nil {
			ok++
		}
	}
	if ok != 10 {
		t.Errorf("Expected exactly 10 admissions, got %d", ok)
	}
	if got := cat.resources["paper"].StockLevel; got != 0 {
		t.Errorf("Expected final stock 0, got %d", got)
	}
}

func TestConcurrentTimeBoundAdmission(t *testing.T) {
	engine, _, store := newEngine(&reservations.Resource{ID: "room-a", Category: reservations.CategoryTimeBound})
	ctx := context.Background()

	const attempts = 10
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- engine.CheckAndReserve(ctx, pendingRequest("room-a", win(t, "10:00", "11:00"), 1))
		}()
	}
	wg.Wait()
	close(results)

	var ok int
	for err := range results {
		if err == nil {
			ok++
		}
	}
	if ok != 1 {
		t.Errorf("Expected exactly one admission for the same window, got %d", ok)
	}
	if store.count() != 1 {
		t.Errorf("Expected 1 stored request, have %d", store.count())
	}
}

func TestCheckIsPure(t *testing.T) {
	engine, cat, store := newEngine(
		&reservations.Resource{ID: "room-a", Category: reservations.CategoryTimeBound},
		&reservations.Resource{ID: "paper", Category: reservations.CategoryConsumable, StockLevel: 5},
	)
	ctx := context.Background()

	seed := pendingRequest("room-a", win(t, "10:00", "11:00"), 1)
	if err := store.CreateTimeBound(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	ok, reason, err := engine.Check(ctx, "room-a", win(t, "10:30", "11:30"), 1)
	if err != nil || ok || reason != reservations.ReasonTimeConflict {
		t.Errorf("Expected TIME_CONFLICT, got ok=%v reason=%s err=%v", ok, reason, err)
	}
	ok, _, err = engine.Check(ctx, "room-a", win(t, "11:00", "12:00"), 1)
	if err != nil || !ok {
		t.Errorf("Expected available, got ok=%v err=%v", ok, err)
	}

	ok, reason, err = engine.Check(ctx, "paper", nil, 9)
	if err != nil || ok || reason != reservations.ReasonInsufficientStock {
		t.Errorf("Expected INSUFFICIENT_STOCK, got ok=%v reason=%s err=%v", ok, reason, err)
	}
	ok, _, err = engine.Check(ctx, "paper", nil, 5)
	if err != nil || !ok {
		t.Errorf("Expected available, got ok=%v err=%v", ok, err)
	}

	// read-only: tidak ada mutasi
	if got := cat.resources["paper"].StockLevel; got != 5 {
		t.Errorf("Expected stock untouched by Check, got %d", got)
	}
	if store.count() != 1 {
		t.Errorf("Expected no request created by Check, have %d", store.count())
	}
}

func TestRelease(t *testing.T) {
	engine, cat, _ := newEngine(&reservations.Resource{
		ID: "paper", Category: reservations.CategoryConsumable, StockLevel: 5,
	})
	ctx := context.Background()

	if err := engine.CheckAndReserve(ctx, pendingRequest("paper", nil, 3)); err != nil {
		t.Fatalf("admit: %v", err)
	}
	if err := engine.Release(ctx, "paper", 3); err != nil {
		t.Fatalf("release: %v", err)
	}
	if got := cat.resources["paper"].StockLevel; got != 5 {
		t.Errorf("Expected stock restored to 5, got %d", got)
	}

	if err := engine.Release(ctx, "ghost", 1); !errors.Is(err, reservations.ErrNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
	var v *reservations.ValidationError
	if err := engine.Release(ctx, "paper", 0); !errors.As(err, &v) {
		t.Errorf("Expected validation error for qty 0, got %v", err)
	}
}
