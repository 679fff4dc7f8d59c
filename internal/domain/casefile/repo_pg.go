package casefile

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicflow/clinicflow/internal/platform/db"
)

type casefileRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &casefileRepoPG{pool: pool} }

func (r *casefileRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

func (r *casefileRepoPG) DashboardCandidates(ctx context.Context, doctorID uuid.UUID) ([]DashboardRow, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		WITH referred AS (
			SELECT symptom_id FROM referrals WHERE doctor_id = $1
		), standing AS (
			SELECT symptom_id,
				bool_or(granted AND revoked_at IS NULL) AS granted,
				bool_or(revoked_at IS NOT NULL) AS revoked
			FROM consents
			WHERE doctor_id = $1 AND purpose = 'referral'
			GROUP BY symptom_id
		)
		SELECT s.id, s.description, s.images, s.status, s.created_at,
			s.patient_id, p.name, p.gp_id, s.consent_research,
			EXISTS (SELECT 1 FROM referred rf WHERE rf.symptom_id = s.id),
			COALESCE(st.granted, false),
			COALESCE(st.revoked, false)
		FROM symptoms s
		JOIN users p ON p.id = s.patient_id
		LEFT JOIN standing st ON st.symptom_id = s.id
		WHERE p.gp_id = $1
			OR s.consent_research
			OR s.id IN (SELECT symptom_id FROM referred)
			OR COALESCE(st.granted, false)
		ORDER BY s.created_at DESC, s.id`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DashboardRow
	for rows.Next() {
		var row DashboardRow
		var gp *uuid.UUID
		if err := rows.Scan(&row.SymptomID, &row.Description, &row.Images, &row.Status, &row.CreatedAt,
			&row.PatientID, &row.PatientName, &gp, &row.ConsentResearch,
			&row.HasReferral, &row.ReferralGranted, &row.ReferralRevoked); err != nil {
			return nil, err
		}
		if gp != nil {
			row.GPID = *gp
		}
		items = append(items, row)
	}
	return items, rows.Err()
}

func (r *casefileRepoPG) LabWorklist(ctx context.Context, labID uuid.UUID, f WorklistFilter) ([]WorklistEntry, error) {
	query := `
		SELECT tr.id, tr.symptom_id, d.name, p.name, p.age, tt.name, tr.status,
			tr.upload_token, tr.requested_at, a.id, a.status, a.scheduled_at
		FROM test_requests tr
		JOIN symptoms s ON s.id = tr.symptom_id
		JOIN users p ON p.id = s.patient_id
		JOIN users d ON d.id = tr.doctor_id
		JOIN test_types tt ON tt.id = tr.test_type_id
		LEFT JOIN LATERAL (
			SELECT id, status, scheduled_at FROM appointments
			WHERE test_request_id = tr.id
			ORDER BY created_at DESC LIMIT 1
		) a ON true
		WHERE tr.lab_id = $1`
	args := []interface{}{labID}
	idx := 2

	if f.Status != "" {
		query += fmt.Sprintf(` AND (lower(tr.status) = lower($%d) OR lower(a.status) = lower($%d))`, idx, idx)
		args = append(args, f.Status)
		idx++
	}
	if f.From != nil {
		query += fmt.Sprintf(` AND tr.requested_at >= $%d`, idx)
		args = append(args, *f.From)
		idx++
	}
	if f.To != nil {
		query += fmt.Sprintf(` AND tr.requested_at < $%d`, idx)
		args = append(args, *f.To)
	}
	query += ` ORDER BY tr.requested_at DESC`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []WorklistEntry
	for rows.Next() {
		var e WorklistEntry
		var age *int
		if err := rows.Scan(&e.TestRequestID, &e.SymptomID, &e.DoctorName, &e.PatientName, &age,
			&e.TestType, &e.Status, &e.UploadToken, &e.RequestedAt,
			&e.AppointmentID, &e.AppointmentStatus, &e.ScheduledAt); err != nil {
			return nil, err
		}
		if age != nil {
			e.PatientAge = *age
		}
		items = append(items, e)
	}
	return items, rows.Err()
}
