package labtest

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	CreateRequest(ctx context.Context, tr *TestRequest) error
	GetRequest(ctx context.Context, id uuid.UUID) (*TestRequest, error)
	GetRequestByToken(ctx context.Context, token string) (*TestRequest, error)
	// LatestForSymptom returns the most recent request, or pgx.ErrNoRows.
	LatestForSymptom(ctx context.Context, symptomID uuid.UUID) (*TestRequest, error)
	// MarkUploaded sets the request uploaded. With onlyPending it reports
	// false when the request was already uploaded.
	MarkUploaded(ctx context.Context, id uuid.UUID, at time.Time, onlyPending bool) (bool, error)
	AddResult(ctx context.Context, r *TestResult) error
	ListResults(ctx context.Context, requestID uuid.UUID) ([]*TestResult, error)
}
