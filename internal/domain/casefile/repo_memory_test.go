package casefile

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicflow/clinicflow/internal/domain/clinical"
	"github.com/clinicflow/clinicflow/internal/domain/consent"
	"github.com/clinicflow/clinicflow/internal/domain/identity"
	"github.com/clinicflow/clinicflow/internal/domain/symptom"
	"github.com/clinicflow/clinicflow/internal/domain/visibility"
	"github.com/clinicflow/clinicflow/internal/platform/auth"
	"github.com/clinicflow/clinicflow/pkg/pagination"
)

// seedDashboard stores one symptom per visibility path for w.gp and returns
// their ids keyed by description.
func seedDashboard(t *testing.T, w *world) map[string]uuid.UUID {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	other := &identity.User{Role: auth.RolePatient, Name: "Bob", GPID: &w.stranger.ID}
	require.NoError(t, w.users.Create(ctx, other))

	ids := map[string]uuid.UUID{}
	add := func(desc string, patientID uuid.UUID, research bool, hours int) *symptom.Symptom {
		s := &symptom.Symptom{
			PatientID: patientID, Description: desc, Status: symptom.StatusPending,
			ConsentTreatment: true, ConsentReferral: true, ConsentResearch: research,
			CreatedAt: base.Add(time.Duration(hours) * time.Hour),
		}
		require.NoError(t, w.symRepo.Create(ctx, s))
		ids[desc] = s.ID
		return s
	}
	refer := func(s *symptom.Symptom, revoked bool) {
		require.NoError(t, w.referrals.Create(ctx, &clinical.Referral{
			SymptomID: s.ID, DoctorID: w.gp.ID, ReferredBy: w.stranger.ID,
		}))
		c := &consent.Consent{
			SymptomID: s.ID, PatientID: s.PatientID, DoctorID: &w.gp.ID,
			Purpose: consent.PurposeReferral, Granted: true, GrantedAt: s.CreatedAt,
		}
		if revoked {
			at := s.CreatedAt.Add(time.Minute)
			c.RevokedAt = &at
		}
		require.NoError(t, w.consents.Create(ctx, c))
	}

	add("headache", w.patient.ID, false, 5)
	add("skin rash", other.ID, true, 4)
	refer(add("cough", other.ID, false, 3), false)
	refer(add("back pain", other.ID, false, 2), true)
	add("sore knee", other.ID, false, 1)
	return ids
}

func TestMemoryRepo_DashboardCandidates(t *testing.T) {
	w := newWorld(t)
	ids := seedDashboard(t, w)

	rows, err := w.mem.DashboardCandidates(context.Background(), w.gp.ID)
	require.NoError(t, err)

	var got []string
	for _, r := range rows {
		got = append(got, r.Description)
	}
	assert.Equal(t, []string{"headache", "skin rash", "cough", "back pain"}, got)

	assert.Equal(t, w.gp.ID, rows[0].GPID)
	assert.True(t, rows[1].ConsentResearch)
	assert.True(t, rows[2].HasReferral)
	assert.True(t, rows[2].ReferralGranted)
	assert.Equal(t, ids["back pain"], rows[3].SymptomID)
	assert.True(t, rows[3].ReferralRevoked)
	assert.False(t, rows[3].ReferralGranted)

	rows, err = w.mem.DashboardCandidates(context.Background(), w.stranger.ID)
	require.NoError(t, err)
	got = nil
	for _, r := range rows {
		got = append(got, r.Description)
	}
	assert.Equal(t, []string{"skin rash", "cough", "back pain", "sore knee"}, got)
}

func TestListDoctorDashboard_MemoryRepo(t *testing.T) {
	w := newWorld(t)
	seedDashboard(t, w)

	resp, err := w.memSvc.ListDoctorDashboard(context.Background(), w.gp, DashboardQuery{}, pagination.Params{Limit: 20})
	require.NoError(t, err)
	entries, ok := resp.Data.([]DashboardEntry)
	require.True(t, ok)

	require.Len(t, entries, 3, "revoked referrals are dropped")
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, "headache", entries[0].Description)
	assert.Equal(t, visibility.LabelTreatment, entries[0].Access)
	assert.Equal(t, "patient1", entries[0].PatientName)
	assert.Equal(t, "skin rash", entries[1].Description)
	assert.Equal(t, visibility.LabelResearch, entries[1].Access)
	assert.Empty(t, entries[1].PatientName)
	assert.Equal(t, "cough", entries[2].Description)
	assert.Equal(t, visibility.LabelReferral, entries[2].Access)
}

func TestMemoryRepo_LabWorklist(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	sym := w.submit(t, false)

	tr, err := w.labtests.AssignLab(ctx, w.gp, sym.ID, w.lab.ID, w.testType.ID)
	require.NoError(t, err)

	items, err := w.mem.LabWorklist(ctx, w.lab.ID, WorklistFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, tr.ID, items[0].TestRequestID)
	assert.Equal(t, "doctor1", items[0].DoctorName)
	assert.Equal(t, "patient1", items[0].PatientName)
	assert.Equal(t, 41, items[0].PatientAge)
	assert.Equal(t, "Blood Test", items[0].TestType)
	assert.Nil(t, items[0].AppointmentID)

	slots, err := w.appointments.ListAvailableSlots(ctx, w.staff, uuid.Nil, "2099-01-15")
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	appt, err := w.appointments.Propose(ctx, w.staff, tr.ID, slots[0].ID)
	require.NoError(t, err)

	items, err = w.memSvc.ListLabWorklist(ctx, w.staff, WorklistQuery{Status: string(appt.Status)})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].AppointmentID)
	assert.Equal(t, appt.ID, *items[0].AppointmentID)
	assert.Equal(t, string(appt.Status), *items[0].AppointmentStatus)

	items, err = w.memSvc.ListLabWorklist(ctx, w.staff, WorklistQuery{Status: "PENDING"})
	require.NoError(t, err)
	assert.Len(t, items, 1, "request status matches case-insensitively")

	items, err = w.memSvc.ListLabWorklist(ctx, w.staff, WorklistQuery{Status: "uploaded"})
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = w.mem.LabWorklist(ctx, uuid.New(), WorklistFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)

	future := tr.RequestedAt.Add(time.Hour)
	items, err = w.mem.LabWorklist(ctx, w.lab.ID, WorklistFilter{From: &future})
	require.NoError(t, err)
	assert.Empty(t, items)
}
