package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicflow/clinicflow/internal/platform/db"
)

// -- Slot --

type slotRepoPG struct{ pool *pgxpool.Pool }

func NewSlotRepoPG(pool *pgxpool.Pool) SlotRepository { return &slotRepoPG{pool: pool} }

func (r *slotRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const slotCols = `id, lab_staff_id, start_time, end_time, available, appointment_id`

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot
	err := row.Scan(&s.ID, &s.LabStaffID, &s.StartTime, &s.EndTime, &s.Available, &s.AppointmentID)
	return &s, err
}

func (r *slotRepoPG) EnsureSlots(ctx context.Context, slots []*Slot) error {
	batch := &pgx.Batch{}
	for _, s := range slots {
		batch.Queue(`
			INSERT INTO slots (id, lab_staff_id, start_time, end_time, available)
			VALUES ($1,$2,$3,$4,true)
			ON CONFLICT (lab_staff_id, start_time) DO NOTHING`,
			s.ID, s.LabStaffID, s.StartTime, s.EndTime)
	}
	return r.conn(ctx).SendBatch(ctx, batch).Close()
}

func (r *slotRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	return scanSlot(r.conn(ctx).QueryRow(ctx, `SELECT `+slotCols+` FROM slots WHERE id = $1`, id))
}

func (r *slotRepoPG) ListAvailable(ctx context.Context, labStaffID uuid.UUID, from, to time.Time) ([]*Slot, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+slotCols+` FROM slots
		WHERE lab_staff_id = $1 AND available AND start_time >= $2 AND start_time < $3
		ORDER BY start_time`, labStaffID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *slotRepoPG) Reserve(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE slots SET available = false WHERE id = $1 AND available`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *slotRepoPG) Attach(ctx context.Context, id, appointmentID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE slots SET appointment_id = $2 WHERE id = $1`, id, appointmentID)
	return err
}

func (r *slotRepoPG) Release(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE slots SET available = true, appointment_id = NULL WHERE id = $1`, id)
	return err
}

// -- Appointment --

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const apptCols = `id, test_request_id, lab_staff_id, patient_id, slot_id, scheduled_at, status,
	proposed_by, created_at, confirmed_at, cancelled_at, rejected_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.TestRequestID, &a.LabStaffID, &a.PatientID, &a.SlotID, &a.ScheduledAt,
		&a.Status, &a.ProposedBy, &a.CreatedAt, &a.ConfirmedAt, &a.CancelledAt, &a.RejectedAt)
	return &a, err
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (id, test_request_id, lab_staff_id, patient_id, slot_id,
			scheduled_at, status, proposed_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at`,
		a.ID, a.TestRequestID, a.LabStaffID, a.PatientID, a.SlotID,
		a.ScheduledAt, a.Status, a.ProposedBy).Scan(&a.CreatedAt)
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointments WHERE id = $1`, id))
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment, from Status) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments SET
			status = $3, slot_id = $4, scheduled_at = $5, proposed_by = $6,
			confirmed_at = $7, cancelled_at = $8, rejected_at = $9
		WHERE id = $1 AND status = $2`,
		a.ID, from, a.Status, a.SlotID, a.ScheduledAt, a.ProposedBy,
		a.ConfirmedAt, a.CancelledAt, a.RejectedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *appointmentRepoPG) ActiveForTestRequest(ctx context.Context, testRequestID uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx, `
		SELECT `+apptCols+` FROM appointments
		WHERE test_request_id = $1 AND status IN ('pending_patient','pending_lab','confirmed')
		LIMIT 1`, testRequestID))
}

func (r *appointmentRepoPG) LatestForTestRequest(ctx context.Context, testRequestID uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx, `
		SELECT `+apptCols+` FROM appointments
		WHERE test_request_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`, testRequestID))
}

func (r *appointmentRepoPG) list(ctx context.Context, where string, arg interface{}) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+apptCols+` FROM appointments WHERE `+where+` ORDER BY scheduled_at DESC`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *appointmentRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error) {
	return r.list(ctx, `patient_id = $1`, patientID)
}

func (r *appointmentRepoPG) ListByLabStaff(ctx context.Context, labStaffID uuid.UUID) ([]*Appointment, error) {
	return r.list(ctx, `lab_staff_id = $1`, labStaffID)
}
