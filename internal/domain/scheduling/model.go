package scheduling

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicflow/clinicflow/internal/platform/auth"
)

type Slot struct {
	ID            uuid.UUID  `json:"id"`
	LabStaffID    uuid.UUID  `json:"lab_staff_id"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       time.Time  `json:"end_time"`
	Available     bool       `json:"available"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
}

type Status string

const (
	StatusPendingPatient Status = "pending_patient"
	StatusPendingLab     Status = "pending_lab"
	StatusConfirmed      Status = "confirmed"
	StatusRejected       Status = "rejected"
	StatusCancelled      Status = "cancelled"
)

// Active statuses hold a slot and count against the one-per-request rule.
func (s Status) Active() bool {
	return s == StatusPendingPatient || s == StatusPendingLab || s == StatusConfirmed
}

type Appointment struct {
	ID            uuid.UUID  `json:"id"`
	TestRequestID uuid.UUID  `json:"test_request_id"`
	LabStaffID    uuid.UUID  `json:"lab_staff_id"`
	PatientID     uuid.UUID  `json:"patient_id"`
	SlotID        uuid.UUID  `json:"slot_id"`
	ScheduledAt   time.Time  `json:"scheduled_at"`
	Status        Status     `json:"status"`
	ProposedBy    auth.Role  `json:"proposed_by"`
	CreatedAt     time.Time  `json:"created_at"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	RejectedAt    *time.Time `json:"rejected_at,omitempty"`
}
