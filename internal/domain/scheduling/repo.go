package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type SlotRepository interface {
	// EnsureSlots inserts slots that do not exist yet for (lab staff, start
	// time) and leaves existing ones untouched.
	EnsureSlots(ctx context.Context, slots []*Slot) error
	GetByID(ctx context.Context, id uuid.UUID) (*Slot, error)
	// ListAvailable returns free slots with from <= start_time < to.
	ListAvailable(ctx context.Context, labStaffID uuid.UUID, from, to time.Time) ([]*Slot, error)
	// Reserve marks the slot taken and reports false if it already was.
	Reserve(ctx context.Context, id uuid.UUID) (bool, error)
	Attach(ctx context.Context, id, appointmentID uuid.UUID) error
	Release(ctx context.Context, id uuid.UUID) error
}

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// Update writes a's status, slot and timestamps if the stored status is
	// still from.
	Update(ctx context.Context, a *Appointment, from Status) (bool, error)
	// ActiveForTestRequest returns the active appointment or pgx.ErrNoRows.
	ActiveForTestRequest(ctx context.Context, testRequestID uuid.UUID) (*Appointment, error)
	// LatestForTestRequest returns the newest appointment in any status or pgx.ErrNoRows.
	LatestForTestRequest(ctx context.Context, testRequestID uuid.UUID) (*Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error)
	ListByLabStaff(ctx context.Context, labStaffID uuid.UUID) ([]*Appointment, error)
}
