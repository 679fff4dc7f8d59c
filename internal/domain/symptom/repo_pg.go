package symptom

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicflow/clinicflow/internal/platform/db"
)

type symptomRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &symptomRepoPG{pool: pool} }

func (r *symptomRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const symptomCols = `id, patient_id, description, images, status,
	consent_treatment, consent_referral, consent_research, created_at, updated_at`

func scanSymptom(row pgx.Row) (*Symptom, error) {
	var s Symptom
	var images []string
	err := row.Scan(&s.ID, &s.PatientID, &s.Description, &images, &s.Status,
		&s.ConsentTreatment, &s.ConsentReferral, &s.ConsentResearch, &s.CreatedAt, &s.UpdatedAt)
	s.Images = NormalizeImages(images)
	return &s, err
}

func (r *symptomRepoPG) Create(ctx context.Context, s *Symptom) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Images == nil {
		s.Images = ImageList{}
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO symptoms (id, patient_id, description, images, status,
			consent_treatment, consent_referral, consent_research)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		s.ID, s.PatientID, s.Description, []string(s.Images), s.Status,
		s.ConsentTreatment, s.ConsentReferral, s.ConsentResearch).Scan(&s.CreatedAt, &s.UpdatedAt)
}

func (r *symptomRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Symptom, error) {
	return scanSymptom(r.conn(ctx).QueryRow(ctx, `SELECT `+symptomCols+` FROM symptoms WHERE id = $1`, id))
}

func (r *symptomRepoPG) CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE symptoms SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *symptomRepoPG) SetStatus(ctx context.Context, id uuid.UUID, to Status) (Status, error) {
	var from Status
	err := r.conn(ctx).QueryRow(ctx, `
		WITH prev AS (SELECT id, status FROM symptoms WHERE id = $1 FOR UPDATE)
		UPDATE symptoms s SET status = $2, updated_at = NOW()
		FROM prev WHERE s.id = prev.id
		RETURNING prev.status`, id, to).Scan(&from)
	return from, err
}

func (r *symptomRepoPG) SetConsentResearch(ctx context.Context, id uuid.UUID, granted bool) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE symptoms SET consent_research = $2, updated_at = NOW() WHERE id = $1`, id, granted)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *symptomRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, f HistoryFilter) ([]*Symptom, error) {
	query := `SELECT ` + symptomCols + ` FROM symptoms WHERE patient_id = $1`
	args := []interface{}{patientID}
	idx := 2

	if f.Status != nil {
		query += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, *f.Status)
		idx++
	}
	if f.From != nil {
		query += fmt.Sprintf(` AND created_at >= $%d`, idx)
		args = append(args, *f.From)
		idx++
	}
	if f.To != nil {
		query += fmt.Sprintf(` AND created_at < $%d`, idx)
		args = append(args, *f.To)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Symptom
	for rows.Next() {
		s, err := scanSymptom(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}
