package reservations

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ResourceRepo struct{ DB *pgxpool.Pool }

func (r *ResourceRepo) GetResource(ctx context.Context, id string) (*Resource, error) {
	var (
		res Resource
		cat string
	)
	err := r.DB.QueryRow(ctx, `
		SELECT id, name, category, stock_level, created_at, updated_at
		FROM resources WHERE id = $1`, id,
	).Scan(&res.ID, &res.Name, &cat, &res.StockLevel, &res.CreatedAt, &res.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "load resource", Err: err}
	}
	res.Category = Category(cat)
	return &res, nil
}

// AdjustStock: kredit/debit stok dalam satu UPDATE kondisional; gagal tanpa
// mutasi kalau hasilnya bakal negatif. Dipakai engine untuk hook release.
func (r *ResourceRepo) AdjustStock(ctx context.Context, id string, delta int) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE resources
		SET stock_level = stock_level + $2, updated_at = now()
		WHERE id = $1 AND category = 'consumable' AND stock_level + $2 >= 0`,
		id, delta,
	)
	if err != nil {
		return &StorageError{Op: "adjust stock", Err: err}
	}
	if ct.RowsAffected() == 0 {
		var exists bool
		err := r.DB.QueryRow(ctx, `
			SELECT EXISTS(SELECT 1 FROM resources WHERE id = $1 AND category = 'consumable')`, id,
		).Scan(&exists)
		if err != nil {
			return &StorageError{Op: "resource lookup", Err: err}
		}
		if !exists {
			return ErrNotFound
		}
		return ErrStockNegative
	}
	return nil
}
