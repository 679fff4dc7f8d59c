package casefile

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// DashboardCandidates returns, newest first and once each, the symptoms
	// a doctor might see: their GP patients, referrals to them and the
	// research pool.
	DashboardCandidates(ctx context.Context, doctorID uuid.UUID) ([]DashboardRow, error)
	LabWorklist(ctx context.Context, labID uuid.UUID, f WorklistFilter) ([]WorklistEntry, error)
}
