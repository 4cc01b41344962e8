package reservations

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DirectoryRepo: lookup principal per role utk fan-out notifikasi.
type DirectoryRepo struct{ DB *pgxpool.Pool }

func (r *DirectoryRepo) FindByRole(ctx context.Context, role Stage) ([]string, error) {
	rows, err := r.DB.Query(ctx, `SELECT id FROM principals WHERE role = $1 ORDER BY id`, string(role))
	if err != nil {
		return nil, &StorageError{Op: "find by role", Err: err}
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, &StorageError{Op: "scan principal", Err: err}
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
