package scheduling

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clinicflow/clinicflow/internal/domain/identity"
	"github.com/clinicflow/clinicflow/internal/domain/labtest"
	"github.com/clinicflow/clinicflow/internal/domain/symptom"
	"github.com/clinicflow/clinicflow/internal/platform/apperr"
	"github.com/clinicflow/clinicflow/internal/platform/auth"
	"github.com/clinicflow/clinicflow/internal/platform/db"
	"github.com/clinicflow/clinicflow/internal/platform/events"
	"github.com/clinicflow/clinicflow/internal/platform/metrics"
)

const busyMessage = "Lab staff is already scheduled for another appointment at this time"

type Service struct {
	tx           db.Transactor
	slots        SlotRepository
	appointments AppointmentRepository
	labtests     *labtest.Service
	symptoms     *symptom.Service
	directory    *identity.Service
	pub          events.Publisher
	metrics      *metrics.Metrics
	loc          *time.Location
	now          func() time.Time
}

func NewService(tx db.Transactor, slots SlotRepository, appointments AppointmentRepository,
	labtests *labtest.Service, symptoms *symptom.Service, directory *identity.Service,
	pub events.Publisher, m *metrics.Metrics, loc *time.Location) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		tx:           tx,
		slots:        slots,
		appointments: appointments,
		labtests:     labtests,
		symptoms:     symptoms,
		directory:    directory,
		pub:          pub,
		metrics:      m,
		loc:          loc,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// -- Slots --

// ListAvailableSlots returns the free future slots of a lab staff member on
// date (YYYY-MM-DD in the slot time zone). Lab staff may omit labStaffID to
// list their own.
func (s *Service) ListAvailableSlots(ctx context.Context, actor auth.Actor, labStaffID uuid.UUID, date string) ([]*Slot, error) {
	if labStaffID == uuid.Nil {
		if !actor.IsLabStaff() {
			return nil, apperr.Validation("lab_staff_id is required")
		}
		labStaffID = actor.ID
	}
	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(date), s.loc)
	if err != nil {
		return nil, apperr.Validation("Invalid date, expected format YYYY-MM-DD")
	}
	if _, err := s.directory.GetLabStaff(ctx, labStaffID); err != nil {
		return nil, err
	}

	if err := s.slots.EnsureSlots(ctx, Grid(labStaffID, day, s.loc)); err != nil {
		return nil, err
	}
	items, err := s.slots.ListAvailable(ctx, labStaffID, day.UTC(), day.AddDate(0, 0, 1).UTC())
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]*Slot, 0, len(items))
	for _, sl := range items {
		if sl.StartTime.After(now) {
			out = append(out, sl)
		}
	}
	return out, nil
}

func (s *Service) futureSlot(ctx context.Context, slotID uuid.UUID) (*Slot, error) {
	sl, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return nil, apperr.FromDB(err, "Slot not found")
	}
	if !sl.StartTime.After(s.now()) {
		return nil, apperr.Validation("Slot must be in the future")
	}
	return sl, nil
}

func (s *Service) reserve(ctx context.Context, slotID uuid.UUID) error {
	ok, err := s.slots.Reserve(ctx, slotID)
	if err != nil {
		return err
	}
	if !ok {
		s.metrics.SlotConflict()
		return apperr.Conflict(busyMessage)
	}
	return nil
}

func storageConflict(err error) error {
	if apperr.IsUniqueViolation(err) {
		return apperr.Wrap(apperr.KindConflict, err, busyMessage)
	}
	return err
}

// -- Appointments --

// Propose offers slotID to the patient for a test request of the lab staff
// member's own lab.
func (s *Service) Propose(ctx context.Context, actor auth.Actor, testRequestID, slotID uuid.UUID) (*Appointment, error) {
	if !actor.IsLabStaff() {
		return nil, apperr.Forbidden("Only lab staff can propose appointments")
	}
	staff, err := s.directory.GetLabStaff(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	tr, err := s.labtests.GetByID(ctx, testRequestID)
	if err != nil {
		return nil, err
	}
	if tr.LabID != *staff.LabID {
		return nil, apperr.Forbidden("Test request belongs to another lab")
	}
	if tr.Status == labtest.RequestUploaded {
		return nil, apperr.InvalidState("Results have already been uploaded for this test request")
	}
	if _, err := s.appointments.ActiveForTestRequest(ctx, tr.ID); err == nil {
		return nil, apperr.InvalidState("Test request already has an active appointment")
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	sl, err := s.futureSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if sl.LabStaffID != actor.ID {
		return nil, apperr.Forbidden("Slot belongs to another lab staff member")
	}
	sym, err := s.symptoms.Get(ctx, tr.SymptomID)
	if err != nil {
		return nil, err
	}

	a := &Appointment{
		ID:            uuid.New(),
		TestRequestID: tr.ID,
		LabStaffID:    actor.ID,
		PatientID:     sym.PatientID,
		SlotID:        sl.ID,
		ScheduledAt:   sl.StartTime,
		Status:        StatusPendingPatient,
		ProposedBy:    auth.RoleLabStaff,
	}
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.reserve(ctx, sl.ID); err != nil {
			return err
		}
		if err := s.appointments.Create(ctx, a); err != nil {
			return storageConflict(err)
		}
		if err := s.slots.Attach(ctx, sl.ID, a.ID); err != nil {
			return err
		}
		s.record(ctx, ActionPropose, "", a, actor)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) load(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.FromDB(err, "Appointment not found")
	}
	switch {
	case actor.IsPatient() && a.PatientID == actor.ID:
	case actor.IsLabStaff() && a.LabStaffID == actor.ID:
	default:
		return nil, apperr.Forbidden("You are not a party to this appointment")
	}
	return a, nil
}

// update writes a with compare-and-set against from.
func (s *Service) update(ctx context.Context, a *Appointment, from Status) error {
	ok, err := s.appointments.Update(ctx, a, from)
	if err != nil {
		return storageConflict(err)
	}
	if !ok {
		return apperr.InvalidState("Appointment changed concurrently, please retry")
	}
	return nil
}

func (s *Service) symptomOf(ctx context.Context, a *Appointment) (uuid.UUID, error) {
	tr, err := s.labtests.GetByID(ctx, a.TestRequestID)
	if err != nil {
		return uuid.Nil, err
	}
	return tr.SymptomID, nil
}

// Confirm accepts the pending proposal. The symptom moves to Waiting for Test.
func (s *Service) Confirm(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Appointment, error) {
	a, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	from := a.Status
	next, err := nextStatus(ActionConfirm, actor.Role, from)
	if err != nil {
		return nil, err
	}
	symptomID, err := s.symptomOf(ctx, a)
	if err != nil {
		return nil, err
	}

	now := s.now()
	a.Status = next
	a.ConfirmedAt = &now
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.update(ctx, a, from); err != nil {
			return err
		}
		if _, err := s.symptoms.Advance(ctx, symptomID, symptom.EventAppointmentBooked, actor.ID); err != nil {
			return err
		}
		s.record(ctx, ActionConfirm, from, a, actor)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// CounterPropose moves the appointment to another slot of the same lab staff
// member and hands the decision to the other party.
func (s *Service) CounterPropose(ctx context.Context, actor auth.Actor, id, slotID uuid.UUID) (*Appointment, error) {
	a, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	from := a.Status
	next, err := nextStatus(ActionCounter, actor.Role, from)
	if err != nil {
		return nil, err
	}
	sl, err := s.futureSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if sl.LabStaffID != a.LabStaffID {
		return nil, apperr.Validation("Slot belongs to a different lab staff member")
	}
	if sl.ID == a.SlotID {
		return nil, apperr.Validation("Counter-proposal must use a different slot")
	}

	oldSlot := a.SlotID
	a.SlotID = sl.ID
	a.ScheduledAt = sl.StartTime
	a.Status = next
	a.ProposedBy = actor.Role
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.reserve(ctx, sl.ID); err != nil {
			return err
		}
		if err := s.slots.Release(ctx, oldSlot); err != nil {
			return err
		}
		if err := s.update(ctx, a, from); err != nil {
			return err
		}
		if err := s.slots.Attach(ctx, sl.ID, a.ID); err != nil {
			return err
		}
		s.record(ctx, ActionCounter, from, a, actor)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Reject declines the pending proposal and frees its slot.
func (s *Service) Reject(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Appointment, error) {
	a, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	from := a.Status
	next, err := nextStatus(ActionReject, actor.Role, from)
	if err != nil {
		return nil, err
	}

	now := s.now()
	a.Status = next
	a.RejectedAt = &now
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.update(ctx, a, from); err != nil {
			return err
		}
		if err := s.slots.Release(ctx, a.SlotID); err != nil {
			return err
		}
		s.record(ctx, ActionReject, from, a, actor)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Cancel is the lab side withdrawing a pending or confirmed appointment. The
// slot is freed and the symptom returns to Pending.
func (s *Service) Cancel(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Appointment, error) {
	a, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	from := a.Status
	next, err := nextStatus(ActionCancel, actor.Role, from)
	if err != nil {
		return nil, err
	}
	symptomID, err := s.symptomOf(ctx, a)
	if err != nil {
		return nil, err
	}

	now := s.now()
	a.Status = next
	a.CancelledAt = &now
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.update(ctx, a, from); err != nil {
			return err
		}
		if err := s.slots.Release(ctx, a.SlotID); err != nil {
			return err
		}
		if _, err := s.symptoms.Advance(ctx, symptomID, symptom.EventAppointmentCancelled, actor.ID); err != nil {
			return err
		}
		s.record(ctx, ActionCancel, from, a, actor)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) ListForActor(ctx context.Context, actor auth.Actor) ([]*Appointment, error) {
	switch actor.Role {
	case auth.RolePatient:
		return s.appointments.ListByPatient(ctx, actor.ID)
	case auth.RoleLabStaff:
		return s.appointments.ListByLabStaff(ctx, actor.ID)
	}
	return nil, apperr.Forbidden("Only patients and lab staff have appointments")
}

// LatestForTestRequest returns nil, nil when the request was never scheduled.
func (s *Service) LatestForTestRequest(ctx context.Context, testRequestID uuid.UUID) (*Appointment, error) {
	a, err := s.appointments.LatestForTestRequest(ctx, testRequestID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (s *Service) record(ctx context.Context, action Action, from Status, a *Appointment, actor auth.Actor) {
	status := string(a.Status)
	db.AfterCommit(ctx, func(context.Context) { s.metrics.AppointmentAction(string(action), status) })
	events.PublishAfterCommit(ctx, s.pub, events.TypeAppointmentStatusChanged, a.ID.String(), map[string]interface{}{
		"action":          action,
		"from":            from,
		"to":              a.Status,
		"test_request_id": a.TestRequestID,
		"scheduled_at":    a.ScheduledAt,
		"actor_id":        actor.ID,
	})
}
