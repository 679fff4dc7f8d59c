package symptom

import (
	"testing"
)

func TestNext(t *testing.T) {
	tests := []struct {
		from    Status
		event   Event
		want    Status
		wantErr bool
	}{
		{StatusPending, EventAssignLab, StatusAssigned, false},
		{StatusReferred, EventAssignLab, StatusAssigned, false},
		{StatusDiagnosed, EventAssignLab, "", true},
		{StatusTested, EventAssignLab, "", true},
		{StatusAssigned, EventAssignLab, "", true},
		{StatusWaiting, EventAssignLab, "", true},
		{StatusTested, EventDiagnose, StatusDiagnosed, false},
		{StatusDiagnosed, EventDiagnose, StatusDiagnosed, false},
		{StatusDiagnosed, EventRefer, StatusReferred, false},
		{StatusAssigned, EventAppointmentBooked, StatusWaiting, false},
		{StatusWaiting, EventAppointmentCancelled, StatusPending, false},
		{StatusWaiting, EventResultsUploaded, StatusTested, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.event), func(t *testing.T) {
			got, err := Next(tt.from, tt.event)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Next() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Next() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNext_UnknownEvent(t *testing.T) {
	if _, err := Next(StatusPending, Event("teleport")); err == nil {
		t.Error("expected error for unknown event")
	}
}

func TestParseStatus(t *testing.T) {
	if st, ok := ParseStatus("assigned to lab"); !ok || st != StatusAssigned {
		t.Errorf("ParseStatus(assigned to lab) = %q, %v", st, ok)
	}
	if st, ok := ParseStatus(" PENDING "); !ok || st != StatusPending {
		t.Errorf("ParseStatus(PENDING) = %q, %v", st, ok)
	}
	if _, ok := ParseStatus("closed"); ok {
		t.Error("expected unknown status to fail")
	}
}
