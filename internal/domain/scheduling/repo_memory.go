package scheduling

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// MemorySlotRepo is an in-memory SlotRepository for tests. Reserve is
// atomic under the repository lock.
type MemorySlotRepo struct {
	mu    sync.Mutex
	slots map[uuid.UUID]*Slot
}

func NewMemorySlotRepo() *MemorySlotRepo {
	return &MemorySlotRepo{slots: make(map[uuid.UUID]*Slot)}
}

func (r *MemorySlotRepo) EnsureSlots(_ context.Context, slots []*Slot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range slots {
		exists := false
		for _, cur := range r.slots {
			if cur.LabStaffID == s.LabStaffID && cur.StartTime.Equal(s.StartTime) {
				exists = true
				break
			}
		}
		if !exists {
			cp := *s
			r.slots[s.ID] = &cp
		}
	}
	return nil
}

func (r *MemorySlotRepo) GetByID(_ context.Context, id uuid.UUID) (*Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (r *MemorySlotRepo) ListAvailable(_ context.Context, labStaffID uuid.UUID, from, to time.Time) ([]*Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Slot
	for _, s := range r.slots {
		if s.LabStaffID == labStaffID && s.Available && !s.StartTime.Before(from) && s.StartTime.Before(to) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r *MemorySlotRepo) Reserve(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[id]
	if !ok || !s.Available {
		return false, nil
	}
	s.Available = false
	return true, nil
}

func (r *MemorySlotRepo) Attach(_ context.Context, id, appointmentID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.slots[id]; ok {
		s.AppointmentID = &appointmentID
	}
	return nil
}

func (r *MemorySlotRepo) Release(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.slots[id]; ok {
		s.Available = true
		s.AppointmentID = nil
	}
	return nil
}

// MemoryAppointmentRepo is an in-memory AppointmentRepository for tests. It
// enforces the same uniqueness over active appointments as the schema.
type MemoryAppointmentRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*Appointment
	order []uuid.UUID
}

func NewMemoryAppointmentRepo() *MemoryAppointmentRepo {
	return &MemoryAppointmentRepo{items: make(map[uuid.UUID]*Appointment)}
}

var errUniqueViolation = &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}

func (r *MemoryAppointmentRepo) conflicts(a *Appointment) bool {
	if !a.Status.Active() {
		return false
	}
	for _, cur := range r.items {
		if cur.ID == a.ID || !cur.Status.Active() {
			continue
		}
		if cur.TestRequestID == a.TestRequestID {
			return true
		}
		if cur.LabStaffID == a.LabStaffID && cur.ScheduledAt.Equal(a.ScheduledAt) {
			return true
		}
	}
	return false
}

func (r *MemoryAppointmentRepo) Create(_ context.Context, a *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if r.conflicts(a) {
		return errUniqueViolation
	}
	a.CreatedAt = time.Now().UTC()
	cp := *a
	r.items[a.ID] = &cp
	r.order = append(r.order, a.ID)
	return nil
}

func (r *MemoryAppointmentRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (r *MemoryAppointmentRepo) Update(_ context.Context, a *Appointment, from Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.items[a.ID]
	if !ok || cur.Status != from {
		return false, nil
	}
	if r.conflicts(a) {
		return false, errUniqueViolation
	}
	cp := *a
	cp.CreatedAt = cur.CreatedAt
	r.items[a.ID] = &cp
	return true, nil
}

func (r *MemoryAppointmentRepo) ActiveForTestRequest(_ context.Context, testRequestID uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.items {
		if a.TestRequestID == testRequestID && a.Status.Active() {
			cp := *a
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *MemoryAppointmentRepo) LatestForTestRequest(_ context.Context, testRequestID uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.order) - 1; i >= 0; i-- {
		if a := r.items[r.order[i]]; a.TestRequestID == testRequestID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *MemoryAppointmentRepo) list(match func(*Appointment) bool) []*Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Appointment
	for _, a := range r.items {
		if match(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.After(out[j].ScheduledAt) })
	return out
}

func (r *MemoryAppointmentRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*Appointment, error) {
	return r.list(func(a *Appointment) bool { return a.PatientID == patientID }), nil
}

func (r *MemoryAppointmentRepo) ListByLabStaff(_ context.Context, labStaffID uuid.UUID) ([]*Appointment, error) {
	return r.list(func(a *Appointment) bool { return a.LabStaffID == labStaffID }), nil
}
