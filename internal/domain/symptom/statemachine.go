package symptom

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusPending   Status = "Pending"
	StatusAssigned  Status = "Assigned to Lab"
	StatusWaiting   Status = "Waiting for Test"
	StatusTested    Status = "Tested"
	StatusDiagnosed Status = "Diagnosed"
	StatusReferred  Status = "Referred"
)

var allStatuses = []Status{
	StatusPending, StatusAssigned, StatusWaiting, StatusTested, StatusDiagnosed, StatusReferred,
}

// ParseStatus matches a wire status case-insensitively.
func ParseStatus(s string) (Status, bool) {
	for _, st := range allStatuses {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, true
		}
	}
	return "", false
}

// Event drives the symptom lifecycle.
type Event string

const (
	EventDiagnose             Event = "diagnose"
	EventRefer                Event = "refer"
	EventAssignLab            Event = "assign_lab"
	EventAppointmentBooked    Event = "appointment_booked"
	EventAppointmentCancelled Event = "appointment_cancelled"
	EventResultsUploaded      Event = "results_uploaded"
)

type transition struct {
	from []Status // nil means any state
	to   Status
}

var transitions = map[Event]transition{
	EventDiagnose:             {to: StatusDiagnosed},
	EventRefer:                {to: StatusReferred},
	EventAssignLab:            {from: []Status{StatusPending, StatusReferred}, to: StatusAssigned},
	EventAppointmentBooked:    {to: StatusWaiting},
	EventAppointmentCancelled: {to: StatusPending},
	EventResultsUploaded:      {to: StatusTested},
}

// Guarded reports whether ev is only allowed from specific statuses.
func (ev Event) Guarded() bool {
	return transitions[ev].from != nil
}

// ErrTransition reports an event that is not allowed from the current status.
type ErrTransition struct {
	From  Status
	Event Event
}

func (e *ErrTransition) Error() string {
	if e.Event == EventAssignLab {
		return "Only pending or referred symptoms can be assigned to labs"
	}
	return fmt.Sprintf("cannot apply %s to a symptom in status %q", e.Event, e.From)
}

// Next returns the status reached by applying ev in from. Transitions are
// re-entrant; only assign_lab is restricted.
func Next(from Status, ev Event) (Status, error) {
	t, ok := transitions[ev]
	if !ok {
		return "", fmt.Errorf("unknown symptom event %q", ev)
	}
	if t.from == nil {
		return t.to, nil
	}
	for _, allowed := range t.from {
		if allowed == from {
			return t.to, nil
		}
	}
	return "", &ErrTransition{From: from, Event: ev}
}
