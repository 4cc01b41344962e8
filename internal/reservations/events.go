package reservations

import (
	"encoding/json"
	"time"
)

const (
	EventRequestSubmitted = "RequestSubmitted"
	EventStageApproved    = "StageApproved"
	EventRequestApproved  = "RequestApproved"
	EventRequestRejected  = "RequestRejected"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "reservation-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // request_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payload tipe per event ----
//
// Payload bawa target notifikasi (role atau principal); resolusi role ->
// principal jadi urusan dispatcher (cmd/notifier), bukan state machine.

type RequestSubmittedPayload struct {
	RequestID   string `json:"request_id"`
	ResourceID  string `json:"resource_id"`
	RequesterID string `json:"requester_id"`
	NotifyRole  Stage  `json:"notify_role"` // stage pertama (manager)
}

type StageApprovedPayload struct {
	RequestID  string `json:"request_id"`
	Stage      Stage  `json:"stage"` // stage yang baru approve
	ApproverID string `json:"approver_id"`
	NextStage  Stage  `json:"next_stage"`
	NotifyRole Stage  `json:"notify_role"` // == next_stage
}

type RequestApprovedPayload struct {
	RequestID       string `json:"request_id"`
	RequesterID     string `json:"requester_id"` // penerima notifikasi
	FinalApproverID string `json:"final_approver_id"`
}

type RequestRejectedPayload struct {
	RequestID   string `json:"request_id"`
	RequesterID string `json:"requester_id"`
	Stage       Stage  `json:"stage"` // stage tempat ditolak
	RejectedBy  string `json:"rejected_by"`
	Reason      string `json:"reason,omitempty"`
}
