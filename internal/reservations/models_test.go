package reservations

import (
	"testing"
	"time"
)

func window(t *testing.T, start, end string) Window {
	t.Helper()
	day := "2025-03-10T"
	s, err := time.Parse(time.RFC3339, day+start+":00Z")
	if err != nil {
		t.Fatalf("parse start: %v", err)
	}
	e, err := time.Parse(time.RFC3339, day+end+":00Z")
	if err != nil {
		t.Fatalf("parse end: %v", err)
	}
	return Window{Start: s, End: e}
}

func TestWindowOverlapsHalfOpen(t *testing.T) {
	base := window(t, "10:00", "11:00")

	if !base.Overlaps(window(t, "10:30", "11:30")) {
		t.Error("Expected [10:00,11:00) to overlap [10:30,11:30)")
	}
	if !base.Overlaps(window(t, "09:00", "12:00")) {
		t.Error("Expected containment to overlap")
	}
	if !base.Overlaps(window(t, "10:15", "10:45")) {
		t.Error("Expected contained interval to overlap")
	}
	// back-to-back tidak bentrok: end exclusive
	if base.Overlaps(window(t, "11:00", "12:00")) {
		t.Error("Expected [11:00,12:00) not to overlap [10:00,11:00)")
	}
	if base.Overlaps(window(t, "09:00", "10:00")) {
		t.Error("Expected [09:00,10:00) not to overlap [10:00,11:00)")
	}
	if base.Overlaps(window(t, "12:00", "13:00")) {
		t.Error("Expected disjoint intervals not to overlap")
	}
}

func TestWindowValid(t *testing.T) {
	if !window(t, "10:00", "11:00").Valid() {
		t.Error("Expected forward window to be valid")
	}
	if window(t, "11:00", "10:00").Valid() {
		t.Error("Expected start >= end to be invalid")
	}
	if window(t, "10:00", "10:00").Valid() {
		t.Error("Expected zero-length window to be invalid")
	}
	if (Window{}).Valid() {
		t.Error("Expected zero window to be invalid")
	}
}

func TestNewApprovalsSeedsFixedChain(t *testing.T) {
	got := NewApprovals()
	if len(got) != 3 {
		t.Fatalf("Expected 3 stage records, got %d", len(got))
	}
	want := []Stage{StageManager, StageAdmin, StageTechnician}
	for i, a := range got {
		if a.Stage != want[i] {
			t.Errorf("Expected stage %s at %d, got %s", want[i], i, a.Stage)
		}
		if a.Approved || a.ApproverID != "" || a.ApprovedAt != nil {
			t.Errorf("Expected stage %s to start unapproved", a.Stage)
		}
	}
}
