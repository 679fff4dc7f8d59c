package visibility

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicflow/clinicflow/internal/domain/identity"
	"github.com/clinicflow/clinicflow/internal/domain/symptom"
	"github.com/clinicflow/clinicflow/internal/platform/apperr"
	"github.com/clinicflow/clinicflow/internal/platform/auth"
	"github.com/clinicflow/clinicflow/internal/platform/db"
	"github.com/clinicflow/clinicflow/internal/platform/metrics"
)

type standing struct{ granted, revoked map[uuid.UUID]bool }

func (s standing) ReferralStanding(_ context.Context, _, doctorID uuid.UUID) (bool, bool, error) {
	return s.granted[doctorID], s.revoked[doctorID], nil
}

type referrals map[uuid.UUID]bool

func (r referrals) HasReferral(_ context.Context, _, doctorID uuid.UUID) (bool, error) {
	return r[doctorID], nil
}

func TestService_Check(t *testing.T) {
	ctx := context.Background()
	users := identity.NewMemoryUserRepo()
	gp := &identity.User{Role: auth.RoleDoctor, Name: "doctor1"}
	require.NoError(t, users.Create(ctx, gp))
	patient := &identity.User{Role: auth.RolePatient, Name: "patient1", GPID: &gp.ID}
	require.NoError(t, users.Create(ctx, patient))
	directory := identity.NewService(users, identity.NewMemoryLabRepo(), identity.NewMemoryTestTypeRepo())

	symRepo := symptom.NewMemoryRepo()
	sym := &symptom.Symptom{PatientID: patient.ID, Description: "cough", Status: symptom.StatusPending, ConsentResearch: true}
	require.NoError(t, symRepo.Create(ctx, sym))
	symptoms := symptom.NewService(db.NoTx{}, symRepo, nil, directory, nil, nil)

	referred := uuid.New()
	revoked := uuid.New()
	stranger := uuid.New()
	svc := NewService(symptoms, directory,
		standing{granted: map[uuid.UUID]bool{}, revoked: map[uuid.UUID]bool{revoked: true}},
		referrals{referred: true, revoked: true},
		metrics.New())

	cases := []struct {
		actor auth.Actor
		level Level
	}{
		{auth.Actor{ID: patient.ID, Role: auth.RolePatient}, FullView},
		{auth.Actor{ID: gp.ID, Role: auth.RoleDoctor}, FullView},
		{auth.Actor{ID: referred, Role: auth.RoleDoctor}, FullView},
		{auth.Actor{ID: revoked, Role: auth.RoleDoctor}, ResearchView},
		{auth.Actor{ID: stranger, Role: auth.RoleDoctor}, ResearchView},
		{auth.Actor{ID: uuid.New(), Role: auth.RoleLabStaff}, NoAccess},
	}
	for _, c := range cases {
		access, got, err := svc.Check(ctx, c.actor, sym.ID)
		require.NoError(t, err)
		assert.Equal(t, c.level, access.Level, "actor %s", c.actor.Role)
		assert.Equal(t, sym.ID, got.ID)
	}

	_, _, err := svc.Require(ctx, auth.Actor{ID: stranger, Role: auth.RoleDoctor}, sym.ID, FullView)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, _, err = svc.Check(ctx, auth.Actor{ID: gp.ID, Role: auth.RoleDoctor}, uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
