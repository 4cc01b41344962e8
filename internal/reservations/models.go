package reservations

import "time"

type Category string

const (
	CategoryTimeBound  Category = "time-bound"
	CategoryConsumable Category = "consumable"
)

type Resource struct {
	ID         string
	Name       string
	Category   Category
	StockLevel int // hanya berlaku utk consumable
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Window is a half-open interval [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (w Window) Valid() bool {
	return !w.Start.IsZero() && !w.End.IsZero() && w.Start.Before(w.End)
}

// Overlaps: dua interval half-open bentrok iff s1 < e2 && s2 < e1.
// Back-to-back ([10,11) vs [11,12)) tidak bentrok.
func (w Window) Overlaps(o Window) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}

// Approval is one stage record; a request owns exactly three, in StageOrder.
type Approval struct {
	Stage      Stage      `json:"stage"`
	ApproverID string     `json:"approver_id,omitempty"`
	Approved   bool       `json:"approved"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
}

// NewApprovals seeds the fixed chain, all unapproved.
func NewApprovals() []Approval {
	out := make([]Approval, 0, len(StageOrder))
	for _, s := range StageOrder {
		out = append(out, Approval{Stage: s})
	}
	return out
}

type Request struct {
	ID              string     `json:"id"`
	ResourceID      string     `json:"resource_id"`
	RequesterID     string     `json:"requester_id"`
	Window          *Window    `json:"window,omitempty"` // nil utk consumable
	Quantity        int        `json:"quantity"`
	Reason          string     `json:"reason,omitempty"`
	Status          Status     `json:"status"`
	CurrentStage    Stage      `json:"current_stage,omitempty"` // kosong saat terminal
	Approvals       []Approval `json:"approvals"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// StageUpdate is the new-fields half of a compare-and-set on a request:
// applied only when current_stage still equals the expected stage.
type StageUpdate struct {
	Status          Status
	CurrentStage    Stage // kosong = terminal
	Approval        *Approval
	RejectionReason string
}

type Notification struct {
	ID          string
	PrincipalID string
	Message     string
	Link        string
	Read        bool
	CreatedAt   time.Time
}

type AuditEntry struct {
	ID          string
	Action      string // "approve" | "reject"
	PrincipalID string
	RequestID   string
	Stage       Stage
	Reason      string
	CreatedAt   time.Time
}

const (
	AuditActionApprove = "approve"
	AuditActionReject  = "reject"
)
