package reservations

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Append-only sinks. Baris tidak pernah di-update/di-hapus dari sini;
// read side (inbox, laporan audit) di luar scope service ini.

type NotificationRepo struct{ DB *pgxpool.Pool }

func (r *NotificationRepo) Append(ctx context.Context, n Notification) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO notifications(id, principal_id, message, link, read, created_at)
		VALUES ($1,$2,$3,$4,false,$5)`,
		n.ID, n.PrincipalID, n.Message, n.Link, n.CreatedAt,
	)
	if err != nil {
		return &StorageError{Op: "append notification", Err: err}
	}
	return nil
}

type AuditRepo struct{ DB *pgxpool.Pool }

func (r *AuditRepo) Append(ctx context.Context, e AuditEntry) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO audit_log(id, action, principal_id, request_id, stage, reason, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		e.ID, e.Action, e.PrincipalID, e.RequestID, string(e.Stage), e.Reason, e.CreatedAt,
	)
	if err != nil {
		return &StorageError{Op: "append audit", Err: err}
	}
	return nil
}
