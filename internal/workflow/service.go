package workflow

import (
	"context"
	"errors"
	"log"
	"time"

	kafkax "github.com/ariefcatur/go-resource-approvals.git/internal/kafka"
	"github.com/ariefcatur/go-resource-approvals.git/internal/reservations"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

// Admitter is the availability engine surface Submit depends on.
type Admitter interface {
	CheckAndReserve(ctx context.Context, req *reservations.Request) error
}

type RequestStore interface {
	LoadByID(ctx context.Context, id string) (*reservations.Request, error)
	CompareAndSetStage(ctx context.Context, id string, expected reservations.Stage, upd reservations.StageUpdate) error
}

type AuditSink interface {
	Append(ctx context.Context, e reservations.AuditEntry) error
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Service adalah satu-satunya writer status/stage sebuah request.
type Service struct {
	Engine      Admitter
	Store       RequestStore
	Audit       AuditSink
	Producer    Publisher
	ServiceName string
}

type SubmitInput struct {
	ResourceID  string
	RequesterID string
	Window      *reservations.Window
	Quantity    int
	Reason      string
	TraceID     string
}

// Submit: validasi -> admisi (availability engine) -> request pending di
// stage manager -> event notifikasi utk role manager. Admisi gagal = tidak
// ada request yang dibuat.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*reservations.Request, error) {
	if in.ResourceID == "" {
		return nil, &reservations.ValidationError{Field: "resource_id", Msg: "required"}
	}
	if in.RequesterID == "" {
		return nil, &reservations.ValidationError{Field: "requester_id", Msg: "required"}
	}
	if in.Quantity < 0 {
		return nil, &reservations.ValidationError{Field: "quantity", Msg: "must be a positive integer"}
	}
	if in.Window != nil && !in.Window.Valid() {
		return nil, &reservations.ValidationError{Field: "window", Msg: "start must be before end"}
	}

	qty := in.Quantity
	if qty == 0 {
		qty = 1
	}
	req := &reservations.Request{
		ID:           uuid.NewString(),
		ResourceID:   in.ResourceID,
		RequesterID:  in.RequesterID,
		Window:       in.Window,
		Quantity:     qty,
		Reason:       in.Reason,
		Status:       reservations.StatusPending,
		CurrentStage: reservations.StageOrder[0],
		Approvals:    reservations.NewApprovals(),
		CreatedAt:    time.Now().UTC(),
	}
	req.UpdatedAt = req.CreatedAt

	if err := s.Engine.CheckAndReserve(ctx, req); err != nil {
		return nil, err
	}

	s.publish(reservations.EventRequestSubmitted, req.ID, in.TraceID, reservations.RequestSubmittedPayload{
		RequestID:   req.ID,
		ResourceID:  req.ResourceID,
		RequesterID: req.RequesterID,
		NotifyRole:  req.CurrentStage,
	})
	return req, nil
}

// Approve: guard NotFound/WrongStage, lalu transisi via compare-and-set.
// Dua approve balapan di stage yang sama: yang kalah CAS dapat WrongStage
// setelah re-read, tidak pernah double-advance.
func (s *Service) Approve(ctx context.Context, requestID, principalID string, role reservations.Stage) (*reservations.Request, error) {
	if !reservations.ValidStage(role) {
		return nil, &reservations.ValidationError{Field: "role", Msg: "unknown approval role"}
	}

	req, err := s.Store.LoadByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.CurrentStage != role {
		return nil, &reservations.WrongStageError{RequestID: requestID, Expected: req.CurrentStage, Acting: role}
	}

	now := time.Now().UTC()
	approval := &reservations.Approval{Stage: role, ApproverID: principalID, Approved: true, ApprovedAt: &now}
	upd := reservations.StageUpdate{
		Status:   reservations.StatusAfterApproval(role),
		Approval: approval,
	}
	next, hasNext := reservations.NextStage(role)
	if hasNext {
		upd.CurrentStage = next
	}

	if err := s.Store.CompareAndSetStage(ctx, requestID, role, upd); err != nil {
		return nil, s.casLost(ctx, requestID, role, err)
	}

	req.Status = upd.Status
	req.CurrentStage = upd.CurrentStage
	for i := range req.Approvals {
		if req.Approvals[i].Stage == role {
			req.Approvals[i] = *approval
		}
	}
	req.UpdatedAt = now

	// urutan side effect: persist -> notifikasi -> audit
	if hasNext {
		s.publish(reservations.EventStageApproved, requestID, "", reservations.StageApprovedPayload{
			RequestID:  requestID,
			Stage:      role,
			ApproverID: principalID,
			NextStage:  next,
			NotifyRole: next,
		})
	} else {
		s.publish(reservations.EventRequestApproved, requestID, "", reservations.RequestApprovedPayload{
			RequestID:       requestID,
			RequesterID:     req.RequesterID,
			FinalApproverID: principalID,
		})
	}
	s.audit(ctx, reservations.AuditEntry{
		ID:          uuid.NewString(),
		Action:      reservations.AuditActionApprove,
		PrincipalID: principalID,
		RequestID:   requestID,
		Stage:       role,
		CreatedAt:   now,
	})
	return req, nil
}

// Reject: terminal dari stage mana pun yang masih aktif. Tidak ada stage
// record yang ditandai approved, stok TIDAK dikredit balik (lihat
// availability.Engine.Release).
func (s *Service) Reject(ctx context.Context, requestID, principalID string, role reservations.Stage, reason string) (*reservations.Request, error) {
	if !reservations.ValidStage(role) {
		return nil, &reservations.ValidationError{Field: "role", Msg: "unknown approval role"}
	}

	req, err := s.Store.LoadByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.CurrentStage != role {
		return nil, &reservations.WrongStageError{RequestID: requestID, Expected: req.CurrentStage, Acting: role}
	}

	upd := reservations.StageUpdate{
		Status:          reservations.StatusRejected,
		RejectionReason: reason,
	}
	if err := s.Store.CompareAndSetStage(ctx, requestID, role, upd); err != nil {
		return nil, s.casLost(ctx, requestID, role, err)
	}

	now := time.Now().UTC()
	req.Status = reservations.StatusRejected
	req.CurrentStage = ""
	req.RejectionReason = reason
	req.UpdatedAt = now

	// urutan side effect: persist -> notifikasi -> audit
	s.publish(reservations.EventRequestRejected, requestID, "", reservations.RequestRejectedPayload{
		RequestID:   requestID,
		RequesterID: req.RequesterID,
		Stage:       role,
		RejectedBy:  principalID,
		Reason:      reason,
	})
	s.audit(ctx, reservations.AuditEntry{
		ID:          uuid.NewString(),
		Action:      reservations.AuditActionReject,
		PrincipalID: principalID,
		RequestID:   requestID,
		Stage:       role,
		Reason:      reason,
		CreatedAt:   now,
	})
	return req, nil
}

// casLost menerjemahkan kekalahan compare-and-set lewat re-read:
// - stage sudah maju/terminal -> WrongStage (pihak lain menang, final);
// - stage masih sama -> StorageError, aman di-retry caller (precondition sama).
func (s *Service) casLost(ctx context.Context, requestID string, role reservations.Stage, err error) error {
	if !errors.Is(err, reservations.ErrStageConflict) {
		return err
	}
	req, loadErr := s.Store.LoadByID(ctx, requestID)
	if loadErr != nil {
		return &reservations.StorageError{Op: "reload after cas", Err: loadErr}
	}
	if req.CurrentStage == role {
		return &reservations.StorageError{Op: "cas stage", Err: err}
	}
	return &reservations.WrongStageError{RequestID: requestID, Expected: req.CurrentStage, Acting: role}
}

// Emisi audit/notifikasi tidak boleh membatalkan transisi yang sudah commit;
// gagal emit cuma di-log utk rekonsiliasi out-of-band.
func (s *Service) audit(ctx context.Context, e reservations.AuditEntry) {
	if err := s.Audit.Append(ctx, e); err != nil {
		log.Printf("audit append failed: request=%s action=%s: %v", e.RequestID, e.Action, err)
	}
}

func (s *Service) publish(eventType, requestID, traceID string, payload any) {
	ev := reservations.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		TraceID:       traceID,
		CorrelationID: requestID,
		Payload:       kafkax.MustMarshal(payload),
	}
	s.Producer.Publish(reservations.PartitionKey(requestID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
