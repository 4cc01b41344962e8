package reservations

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RequestRepo struct{ DB *pgxpool.Pool }

// CreateTimeBound: admisi untuk resource time-bound.
// Check overlap + insert harus satu critical section per resource, makanya
// di-serialize pakai pg_advisory_xact_lock(hashtext(resource_id)) — dua submit
// paralel untuk resource yang sama antri di sini, tidak bisa dua-duanya lolos.
func (r *RequestRepo) CreateTimeBound(ctx context.Context, req *Request) error {
	if req.Window == nil {
		return &ValidationError{Field: "window", Msg: "required for time-bound resources"}
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return &StorageError{Op: "begin", Err: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, req.ResourceID); err != nil {
		return &StorageError{Op: "lock resource", Err: err}
	}

	// half-open overlap: existing.start < new.end AND existing.end > new.start
	var n int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM requests
		WHERE resource_id = $1
		  AND status = ANY($2)
		  AND start_time < $3
		  AND end_time > $4`,
		req.ResourceID, statusStrings(ActiveStatuses), req.Window.End, req.Window.Start,
	).Scan(&n)
	if err != nil {
		return &StorageError{Op: "overlap check", Err: err}
	}
	if n > 0 {
		return &NotAvailableError{ResourceID: req.ResourceID, Reason: ReasonTimeConflict}
	}

	if err := insertRequest(ctx, tx, req); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return &StorageError{Op: "commit", Err: err}
	}
	return nil
}

// CreateConsumable: admisi untuk consumable. Debit stok = satu UPDATE
// kondisional (bukan read-compare-write), jadi tidak mungkin oversubscribe
// walau banyak submit paralel; insert request ikut di transaksi yang sama.
func (r *RequestRepo) CreateConsumable(ctx context.Context, req *Request) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return &StorageError{Op: "begin", Err: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `
		UPDATE resources
		SET stock_level = stock_level - $2, updated_at = now()
		WHERE id = $1 AND category = 'consumable' AND stock_level >= $2`,
		req.ResourceID, req.Quantity,
	)
	if err != nil {
		return &StorageError{Op: "debit stock", Err: err}
	}
	if ct.RowsAffected() == 0 {
		// bedakan: resource hilang vs stok kurang
		var exists bool
		err := r.DB.QueryRow(ctx, `
			SELECT EXISTS(SELECT 1 FROM resources WHERE id = $1 AND category = 'consumable')`,
			req.ResourceID,
		).Scan(&exists)
		if err != nil {
			return &StorageError{Op: "resource lookup", Err: err}
		}
		if !exists {
			return ErrNotFound
		}
		return &NotAvailableError{ResourceID: req.ResourceID, Reason: ReasonInsufficientStock}
	}

	if err := insertRequest(ctx, tx, req); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return &StorageError{Op: "commit", Err: err}
	}
	return nil
}

func insertRequest(ctx context.Context, tx pgx.Tx, req *Request) error {
	var start, end *time.Time
	if req.Window != nil {
		start, end = &req.Window.Start, &req.Window.End
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO requests(id, resource_id, requester_id, start_time, end_time,
		                     quantity, reason, status, current_stage, rejection_reason, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,'',$10,$10)`,
		req.ID, req.ResourceID, req.RequesterID, start, end,
		req.Quantity, req.Reason, string(req.Status), string(req.CurrentStage), req.CreatedAt,
	)
	if err != nil {
		return &StorageError{Op: "insert request", Err: err}
	}
	for i, a := range req.Approvals {
		_, err := tx.Exec(ctx, `
			INSERT INTO request_approvals(request_id, ord, stage, approver_id, approved, approved_at)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			req.ID, i, string(a.Stage), a.ApproverID, a.Approved, a.ApprovedAt,
		)
		if err != nil {
			return &StorageError{Op: "insert approval", Err: err}
		}
	}
	return nil
}

func (r *RequestRepo) LoadByID(ctx context.Context, id string) (*Request, error) {
	var (
		req        Request
		start, end *time.Time
		status     string
		stage      string
	)
	err := r.DB.QueryRow(ctx, `
		SELECT id, resource_id, requester_id, start_time, end_time, quantity,
		       reason, status, current_stage, rejection_reason, created_at, updated_at
		FROM requests WHERE id = $1`, id,
	).Scan(&req.ID, &req.ResourceID, &req.RequesterID, &start, &end, &req.Quantity,
		&req.Reason, &status, &stage, &req.RejectionReason, &req.CreatedAt, &req.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "load request", Err: err}
	}
	req.Status, req.CurrentStage = Status(status), Stage(stage)
	if start != nil && end != nil {
		req.Window = &Window{Start: *start, End: *end}
	}

	rows, err := r.DB.Query(ctx, `
		SELECT stage, approver_id, approved, approved_at
		FROM request_approvals WHERE request_id = $1 ORDER BY ord`, id)
	if err != nil {
		return nil, &StorageError{Op: "load approvals", Err: err}
	}
	defer rows.Close()
	for rows.Next() {
		var (
			a  Approval
			st string
		)
		if err := rows.Scan(&st, &a.ApproverID, &a.Approved, &a.ApprovedAt); err != nil {
			return nil, &StorageError{Op: "scan approval", Err: err}
		}
		a.Stage = Stage(st)
		req.Approvals = append(req.Approvals, a)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "load approvals", Err: err}
	}
	return &req, nil
}

// FindActiveOverlapping: pure read untuk checkAvailability; admisi sendiri
// tidak pakai ini (lihat CreateTimeBound).
func (r *RequestRepo) FindActiveOverlapping(ctx context.Context, resourceID string, w Window, statuses []Status) ([]Request, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, resource_id, requester_id, start_time, end_time, status
		FROM requests
		WHERE resource_id = $1 AND status = ANY($2)
		  AND start_time < $3 AND end_time > $4`,
		resourceID, statusStrings(statuses), w.End, w.Start)
	if err != nil {
		return nil, &StorageError{Op: "find overlapping", Err: err}
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		var (
			req        Request
			start, end *time.Time
			status     string
		)
		if err := rows.Scan(&req.ID, &req.ResourceID, &req.RequesterID, &start, &end, &status); err != nil {
			return nil, &StorageError{Op: "scan request", Err: err}
		}
		req.Status = Status(status)
		if start != nil && end != nil {
			req.Window = &Window{Start: *start, End: *end}
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// CompareAndSetStage: transisi stage atomik. UPDATE hanya kena kalau
// current_stage masih sama dengan expected; kalau 0 row berarti ada approve
// lain yang menang duluan -> ErrStageConflict, state tidak berubah.
func (r *RequestRepo) CompareAndSetStage(ctx context.Context, id string, expected Stage, upd StageUpdate) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return &StorageError{Op: "begin", Err: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `
		UPDATE requests
		SET status = $3, current_stage = $4, rejection_reason = $5, updated_at = now()
		WHERE id = $1 AND current_stage = $2`,
		id, string(expected), string(upd.Status), string(upd.CurrentStage), upd.RejectionReason,
	)
	if err != nil {
		return &StorageError{Op: "cas stage", Err: err}
	}
	if ct.RowsAffected() == 0 {
		return ErrStageConflict
	}

	if a := upd.Approval; a != nil {
		ct, err := tx.Exec(ctx, `
			UPDATE request_approvals
			SET approver_id = $3, approved = $4, approved_at = $5
			WHERE request_id = $1 AND stage = $2`,
			id, string(a.Stage), a.ApproverID, a.Approved, a.ApprovedAt,
		)
		if err != nil {
			return &StorageError{Op: "mark approval", Err: err}
		}
		if ct.RowsAffected() != 1 {
			return &StorageError{Op: "mark approval", Err: errors.New("stage record missing")}
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return &StorageError{Op: "commit", Err: err}
	}
	return nil
}

// ListByRequester / ListByStage: listing minimal utk HTTP GET.
func (r *RequestRepo) ListByRequester(ctx context.Context, requesterID string) ([]Request, error) {
	return r.list(ctx, `requester_id = $1`, requesterID)
}

func (r *RequestRepo) ListByStage(ctx context.Context, stage Stage) ([]Request, error) {
	return r.list(ctx, `current_stage = $1`, string(stage))
}

func (r *RequestRepo) list(ctx context.Context, where string, arg any) ([]Request, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, resource_id, requester_id, start_time, end_time, quantity,
		       reason, status, current_stage, rejection_reason, created_at, updated_at
		FROM requests WHERE `+where+` ORDER BY created_at DESC`, arg)
	if err != nil {
		return nil, &StorageError{Op: "list requests", Err: err}
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		var (
			req           Request
			start, end    *time.Time
			status, stage string
		)
		if err := rows.Scan(&req.ID, &req.ResourceID, &req.RequesterID, &start, &end,
			&req.Quantity, &req.Reason, &status, &stage, &req.RejectionReason,
			&req.CreatedAt, &req.UpdatedAt); err != nil {
			return nil, &StorageError{Op: "scan request", Err: err}
		}
		req.Status, req.CurrentStage = Status(status), Stage(stage)
		if start != nil && end != nil {
			req.Window = &Window{Start: *start, End: *end}
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func statusStrings(in []Status) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, string(s))
	}
	return out
}
