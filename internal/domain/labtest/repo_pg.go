package labtest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicflow/clinicflow/internal/platform/db"
)

type labtestRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &labtestRepoPG{pool: pool} }

func (r *labtestRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const requestCols = `id, symptom_id, doctor_id, lab_id, test_type_id, upload_token, status, requested_at, uploaded_at`

func scanRequest(row pgx.Row) (*TestRequest, error) {
	var tr TestRequest
	err := row.Scan(&tr.ID, &tr.SymptomID, &tr.DoctorID, &tr.LabID, &tr.TestTypeID,
		&tr.UploadToken, &tr.Status, &tr.RequestedAt, &tr.UploadedAt)
	return &tr, err
}

func (r *labtestRepoPG) CreateRequest(ctx context.Context, tr *TestRequest) error {
	if tr.ID == uuid.Nil {
		tr.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO test_requests (id, symptom_id, doctor_id, lab_id, test_type_id, upload_token, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING requested_at`,
		tr.ID, tr.SymptomID, tr.DoctorID, tr.LabID, tr.TestTypeID, tr.UploadToken, tr.Status).Scan(&tr.RequestedAt)
}

func (r *labtestRepoPG) GetRequest(ctx context.Context, id uuid.UUID) (*TestRequest, error) {
	return scanRequest(r.conn(ctx).QueryRow(ctx, `SELECT `+requestCols+` FROM test_requests WHERE id = $1`, id))
}

func (r *labtestRepoPG) GetRequestByToken(ctx context.Context, token string) (*TestRequest, error) {
	return scanRequest(r.conn(ctx).QueryRow(ctx, `SELECT `+requestCols+` FROM test_requests WHERE upload_token = $1`, token))
}

func (r *labtestRepoPG) LatestForSymptom(ctx context.Context, symptomID uuid.UUID) (*TestRequest, error) {
	return scanRequest(r.conn(ctx).QueryRow(ctx, `
		SELECT `+requestCols+` FROM test_requests
		WHERE symptom_id = $1 ORDER BY requested_at DESC, id DESC LIMIT 1`, symptomID))
}

func (r *labtestRepoPG) MarkUploaded(ctx context.Context, id uuid.UUID, at time.Time, onlyPending bool) (bool, error) {
	query := `UPDATE test_requests SET status = 'uploaded', uploaded_at = $2 WHERE id = $1`
	if onlyPending {
		query += ` AND status = 'pending'`
	}
	tag, err := r.conn(ctx).Exec(ctx, query, id, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *labtestRepoPG) AddResult(ctx context.Context, res *TestResult) error {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	files, err := json.Marshal(res.Files)
	if err != nil {
		return err
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO test_results (id, test_request_id, files, summary)
		VALUES ($1,$2,$3,$4)
		RETURNING uploaded_at`,
		res.ID, res.TestRequestID, files, res.Summary).Scan(&res.UploadedAt)
}

func (r *labtestRepoPG) ListResults(ctx context.Context, requestID uuid.UUID) ([]*TestResult, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, test_request_id, files, summary, uploaded_at
		FROM test_results WHERE test_request_id = $1 ORDER BY uploaded_at, id`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*TestResult
	for rows.Next() {
		var res TestResult
		var files []byte
		if err := rows.Scan(&res.ID, &res.TestRequestID, &files, &res.Summary, &res.UploadedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(files, &res.Files); err != nil {
			return nil, err
		}
		items = append(items, &res)
	}
	return items, rows.Err()
}
