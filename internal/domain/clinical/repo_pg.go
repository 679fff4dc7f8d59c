package clinical

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicflow/clinicflow/internal/platform/db"
)

// -- Diagnosis --

type diagnosisRepoPG struct{ pool *pgxpool.Pool }

func NewDiagnosisRepoPG(pool *pgxpool.Pool) DiagnosisRepository {
	return &diagnosisRepoPG{pool: pool}
}

func (r *diagnosisRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

func (r *diagnosisRepoPG) Create(ctx context.Context, d *Diagnosis) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO diagnoses (id, symptom_id, doctor_id, patient_id, content)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at`,
		d.ID, d.SymptomID, d.DoctorID, d.PatientID, d.Content).Scan(&d.CreatedAt)
}

func (r *diagnosisRepoPG) ListBySymptom(ctx context.Context, symptomID uuid.UUID) ([]*Diagnosis, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT d.id, d.symptom_id, d.doctor_id, d.patient_id, d.content, d.created_at, u.name
		FROM diagnoses d
		JOIN users u ON u.id = d.doctor_id
		WHERE d.symptom_id = $1
		ORDER BY d.created_at, d.id`, symptomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Diagnosis
	for rows.Next() {
		var d Diagnosis
		if err := rows.Scan(&d.ID, &d.SymptomID, &d.DoctorID, &d.PatientID, &d.Content, &d.CreatedAt, &d.DoctorName); err != nil {
			return nil, err
		}
		items = append(items, &d)
	}
	return items, rows.Err()
}

// -- Referral --

type referralRepoPG struct{ pool *pgxpool.Pool }

func NewReferralRepoPG(pool *pgxpool.Pool) ReferralRepository {
	return &referralRepoPG{pool: pool}
}

func (r *referralRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

func (r *referralRepoPG) Create(ctx context.Context, ref *Referral) error {
	if ref.ID == uuid.Nil {
		ref.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO referrals (id, symptom_id, doctor_id, referred_by)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at`,
		ref.ID, ref.SymptomID, ref.DoctorID, ref.ReferredBy).Scan(&ref.CreatedAt)
}

func (r *referralRepoPG) ListBySymptom(ctx context.Context, symptomID uuid.UUID) ([]*Referral, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, symptom_id, doctor_id, referred_by, created_at
		FROM referrals WHERE symptom_id = $1 ORDER BY created_at, id`, symptomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Referral
	for rows.Next() {
		var ref Referral
		if err := rows.Scan(&ref.ID, &ref.SymptomID, &ref.DoctorID, &ref.ReferredBy, &ref.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &ref)
	}
	return items, rows.Err()
}

func (r *referralRepoPG) HasReferral(ctx context.Context, symptomID, doctorID uuid.UUID) (bool, error) {
	var ok bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM referrals WHERE symptom_id = $1 AND doctor_id = $2)`,
		symptomID, doctorID).Scan(&ok)
	return ok, err
}
