package reservations

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrStageConflict: compare-and-set kalah balapan (expected stage sudah
	// berubah). Caller harus re-read untuk bedakan WrongStage vs hilang.
	ErrStageConflict = errors.New("stage changed concurrently")

	// ErrStockNegative: adjust akan bikin stock_level < 0.
	ErrStockNegative = errors.New("stock would go negative")
)

type NotAvailableReason string

const (
	ReasonTimeConflict      NotAvailableReason = "TIME_CONFLICT"
	ReasonInsufficientStock NotAvailableReason = "INSUFFICIENT_STOCK"
)

// NotAvailableError: hasil bisnis yang diharapkan, bukan defect.
type NotAvailableError struct {
	ResourceID string
	Reason     NotAvailableReason
}

func (e *NotAvailableError) Error() string {
	return fmt.Sprintf("resource %s not available: %s", e.ResourceID, e.Reason)
}

// WrongStageError: acting role tidak sama dengan current stage.
// Expected kosong berarti request sudah terminal.
type WrongStageError struct {
	RequestID string
	Expected  Stage
	Acting    Stage
}

func (e *WrongStageError) Error() string {
	if e.Expected == "" {
		return fmt.Sprintf("request %s is terminal, %s cannot act", e.RequestID, e.Acting)
	}
	return fmt.Sprintf("request %s awaits %s approval, not %s", e.RequestID, e.Expected, e.Acting)
}

type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// StorageError wraps unexpected persistence failures so they cross the
// boundary as one distinct kind.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }
