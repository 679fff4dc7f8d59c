package consent

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicflow/clinicflow/internal/platform/db"
)

type consentRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &consentRepoPG{pool: pool} }

func (r *consentRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const consentCols = `id, symptom_id, patient_id, doctor_id, purpose, granted, granted_at, revoked_at`

func scanConsent(row pgx.Row) (*Consent, error) {
	var c Consent
	err := row.Scan(&c.ID, &c.SymptomID, &c.PatientID, &c.DoctorID, &c.Purpose,
		&c.Granted, &c.GrantedAt, &c.RevokedAt)
	return &c, err
}

func (r *consentRepoPG) Create(ctx context.Context, c *Consent) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO consents (id, symptom_id, patient_id, doctor_id, purpose, granted)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING granted_at`,
		c.ID, c.SymptomID, c.PatientID, c.DoctorID, c.Purpose, c.Granted).Scan(&c.GrantedAt)
}

func (r *consentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Consent, error) {
	return scanConsent(r.conn(ctx).QueryRow(ctx, `SELECT `+consentCols+` FROM consents WHERE id = $1`, id))
}

func (r *consentRepoPG) ListBySymptom(ctx context.Context, symptomID uuid.UUID) ([]*Consent, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+consentCols+` FROM consents WHERE symptom_id = $1 ORDER BY granted_at, id`, symptomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Consent
	for rows.Next() {
		c, err := scanConsent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (r *consentRepoPG) Revoke(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE consents SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`, id, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *consentRepoPG) ReferralStanding(ctx context.Context, symptomID, doctorID uuid.UUID) (bool, bool, error) {
	var granted, revoked bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT
			COALESCE(bool_or(granted AND revoked_at IS NULL), false),
			COALESCE(bool_or(revoked_at IS NOT NULL), false)
		FROM consents
		WHERE symptom_id = $1 AND doctor_id = $2 AND purpose = 'referral'`,
		symptomID, doctorID).Scan(&granted, &revoked)
	return granted, revoked, err
}

func (r *consentRepoPG) ActivePurposes(ctx context.Context, symptomIDs []uuid.UUID) (map[uuid.UUID][]Purpose, error) {
	out := make(map[uuid.UUID][]Purpose, len(symptomIDs))
	if len(symptomIDs) == 0 {
		return out, nil
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT DISTINCT symptom_id, purpose FROM consents
		WHERE symptom_id = ANY($1) AND granted AND revoked_at IS NULL
		ORDER BY symptom_id, purpose`, symptomIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		var p Purpose
		if err := rows.Scan(&id, &p); err != nil {
			return nil, err
		}
		out[id] = append(out[id], p)
	}
	return out, rows.Err()
}
