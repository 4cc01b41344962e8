package reservations

// Stage adalah satu peran dalam rantai approval.
type Stage string

const (
	StageManager    Stage = "manager"
	StageAdmin      Stage = "admin"
	StageTechnician Stage = "technician"
)

// StageOrder: urutan approval tetap. Submit mulai dari elemen pertama,
// Approve jalan maju lewat NextStage (jangan hitung index manual di tempat lain).
var StageOrder = []Stage{StageManager, StageAdmin, StageTechnician}

// NextStage returns the stage after s, or ok=false when s is the last one.
func NextStage(s Stage) (Stage, bool) {
	for i, st := range StageOrder {
		if st == s && i+1 < len(StageOrder) {
			return StageOrder[i+1], true
		}
	}
	return "", false
}

func ValidStage(s Stage) bool {
	for _, st := range StageOrder {
		if st == s {
			return true
		}
	}
	return false
}

type Status string

const (
	StatusPending            Status = "pending"
	StatusManagerApproved    Status = "manager-approved"
	StatusAdminApproved      Status = "admin-approved"
	StatusTechnicianApproved Status = "technician-approved"
	StatusApproved           Status = "approved"
	StatusRejected           Status = "rejected"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:            {StatusManagerApproved: true, StatusRejected: true},
	StatusManagerApproved:    {StatusAdminApproved: true, StatusRejected: true},
	StatusAdminApproved:      {StatusTechnicianApproved: true, StatusApproved: true, StatusRejected: true},
	StatusTechnicianApproved: {StatusApproved: true, StatusRejected: true},
	StatusApproved:           {},
	StatusRejected:           {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Terminal: tidak ada transisi lagi setelah ini.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// ActiveStatuses: semua status yang masih menempati slot waktu / stok
// (semua kecuali rejected).
var ActiveStatuses = []Status{
	StatusPending,
	StatusManagerApproved,
	StatusAdminApproved,
	StatusTechnicianApproved,
	StatusApproved,
}

// StatusAfterApproval maps the stage that just approved to the request
// status recorded for it. The final stage yields StatusApproved.
func StatusAfterApproval(s Stage) Status {
	switch s {
	case StageManager:
		return StatusManagerApproved
	case StageAdmin:
		return StatusAdminApproved
	case StageTechnician:
		return StatusApproved
	}
	return ""
}
