package availability

import (
	"context"

	"github.com/ariefcatur/go-resource-approvals.git/internal/reservations"
)

// Catalog is the resource-catalog slice the engine needs: read-by-id plus the
// atomic stock adjust.
type Catalog interface {
	GetResource(ctx context.Context, id string) (*reservations.Resource, error)
	AdjustStock(ctx context.Context, id string, delta int) error
}

// Store is the reservation store's admission surface. Implementations must
// make check+create atomic per resource (see reservations.RequestRepo).
type Store interface {
	CreateTimeBound(ctx context.Context, req *reservations.Request) error
	CreateConsumable(ctx context.Context, req *reservations.Request) error
	FindActiveOverlapping(ctx context.Context, resourceID string, w reservations.Window, statuses []reservations.Status) ([]reservations.Request, error)
}

type Engine struct {
	Catalog Catalog
	Store   Store
}

// CheckAndReserve memutuskan admisi lalu commit:
// - time-bound: overlap check + insert, serialized per resource di store;
// - consumable: debit stok kondisional + insert, satu transaksi.
// Gagal = tidak ada mutasi sama sekali.
func (e *Engine) CheckAndReserve(ctx context.Context, req *reservations.Request) error {
	res, err := e.Catalog.GetResource(ctx, req.ResourceID)
	if err != nil {
		return err
	}

	switch res.Category {
	case reservations.CategoryConsumable:
		if req.Quantity < 1 {
			return &reservations.ValidationError{Field: "quantity", Msg: "must be a positive integer"}
		}
		req.Window = nil // quantity-only, window tidak relevan
		return e.Store.CreateConsumable(ctx, req)
	default:
		if req.Window == nil || !req.Window.Valid() {
			return &reservations.ValidationError{Field: "window", Msg: "start must be before end"}
		}
		return e.Store.CreateTimeBound(ctx, req)
	}
}

// Check: jawaban availability read-only, tanpa commit apa pun. Jawaban bisa
// basi begitu dikembalikan; admisi beneran tetap lewat CheckAndReserve.
func (e *Engine) Check(ctx context.Context, resourceID string, w *reservations.Window, quantity int) (bool, reservations.NotAvailableReason, error) {
	res, err := e.Catalog.GetResource(ctx, resourceID)
	if err != nil {
		return false, "", err
	}

	if res.Category == reservations.CategoryConsumable {
		if quantity < 1 {
			quantity = 1
		}
		if res.StockLevel < quantity {
			return false, reservations.ReasonInsufficientStock, nil
		}
		return true, "", nil
	}

	if w == nil || !w.Valid() {
		return false, "", &reservations.ValidationError{Field: "window", Msg: "start must be before end"}
	}
	existing, err := e.Store.FindActiveOverlapping(ctx, resourceID, *w, reservations.ActiveStatuses)
	if err != nil {
		return false, "", err
	}
	if len(existing) > 0 {
		return false, reservations.ReasonTimeConflict, nil
	}
	return true, "", nil
}

// Release: kredit balik stok yang sudah didebit saat admisi. Reject TIDAK
// memanggil ini otomatis (debit bersifat final); hook disediakan utk
// kompensasi eksplisit dari catalog.
func (e *Engine) Release(ctx context.Context, resourceID string, quantity int) error {
	if quantity < 1 {
		return &reservations.ValidationError{Field: "quantity", Msg: "must be a positive integer"}
	}
	return e.Catalog.AdjustStock(ctx, resourceID, quantity)
}
