package labtest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicflow/clinicflow/internal/domain/consent"
	"github.com/clinicflow/clinicflow/internal/domain/identity"
	"github.com/clinicflow/clinicflow/internal/domain/symptom"
	"github.com/clinicflow/clinicflow/internal/domain/visibility"
	"github.com/clinicflow/clinicflow/internal/platform/apperr"
	"github.com/clinicflow/clinicflow/internal/platform/auth"
	"github.com/clinicflow/clinicflow/internal/platform/blobstore"
	"github.com/clinicflow/clinicflow/internal/platform/db"
	"github.com/clinicflow/clinicflow/internal/platform/events"
	"github.com/clinicflow/clinicflow/internal/platform/metrics"
)

// noReferrals satisfies both visibility lookups with "nothing on record".
type noReferrals struct{}

func (noReferrals) ReferralStanding(context.Context, uuid.UUID, uuid.UUID) (bool, bool, error) {
	return false, false, nil
}

func (noReferrals) HasReferral(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return false, nil
}

type world struct {
	directory *identity.Service
	symptoms  *symptom.Service
	repo      *MemoryRepo
	blobs     *blobstore.MemoryStore
	pub       *events.Memory
	lab       *identity.Lab
	testType  *identity.TestType

	patient, gp, stranger, staff auth.Actor
}

func newWorld(t *testing.T) *world {
	t.Helper()
	ctx := context.Background()
	users := identity.NewMemoryUserRepo()
	labs := identity.NewMemoryLabRepo()
	testTypes := identity.NewMemoryTestTypeRepo()
	mk := func(u *identity.User) auth.Actor {
		require.NoError(t, users.Create(ctx, u))
		return auth.Actor{ID: u.ID, Role: u.Role}
	}

	w := &world{
		repo:     NewMemoryRepo(),
		blobs:    blobstore.NewMemoryStore(),
		pub:      events.NewMemory(),
		lab:      &identity.Lab{Name: "Lab 1 Diagnostics"},
		testType: &identity.TestType{Name: "Blood Test"},
	}
	require.NoError(t, labs.Create(ctx, w.lab))
	require.NoError(t, testTypes.Create(ctx, w.testType))
	w.gp = mk(&identity.User{Role: auth.RoleDoctor, Name: "doctor1"})
	w.stranger = mk(&identity.User{Role: auth.RoleDoctor, Name: "doctor2"})
	w.patient = mk(&identity.User{Role: auth.RolePatient, Name: "patient1", GPID: &w.gp.ID})
	w.staff = mk(&identity.User{Role: auth.RoleLabStaff, Name: "labstaff1", LabID: &w.lab.ID})

	w.directory = identity.NewService(users, labs, testTypes)
	symRepo := symptom.NewMemoryRepo()
	consents := consent.NewService(db.NoTx{}, consent.NewMemoryRepo(), symptom.ConsentFlags{Repo: symRepo}, w.pub)
	w.symptoms = symptom.NewService(db.NoTx{}, symRepo, consents, w.directory, w.pub, nil)
	return w
}

func (w *world) service(reuse bool) *Service {
	access := visibility.NewService(w.symptoms, w.directory, noReferrals{}, noReferrals{}, nil)
	return NewService(db.NoTx{}, w.repo, w.symptoms, w.directory, access,
		blobstore.NewWriter(w.blobs, time.Second), w.pub, metrics.New(), reuse)
}

func (w *world) submit(t *testing.T) *symptom.Symptom {
	t.Helper()
	sym, err := w.symptoms.Submit(context.Background(), w.patient, symptom.SubmitRequest{
		Description: "fatigue", ConsentTreatment: true, ConsentReferral: true,
	})
	require.NoError(t, err)
	return sym
}

func file(name, body string) UploadFile {
	return UploadFile{Name: name, ContentType: "application/pdf", Content: strings.NewReader(body)}
}

func TestAssignLab(t *testing.T) {
	w := newWorld(t)
	svc := w.service(false)
	ctx := context.Background()
	sym := w.submit(t)

	tr, err := svc.AssignLab(ctx, w.gp, sym.ID, w.lab.ID, w.testType.ID)
	require.NoError(t, err)
	assert.Len(t, tr.UploadToken, 64)
	assert.Equal(t, RequestPending, tr.Status)

	got, _ := w.symptoms.Get(ctx, sym.ID)
	assert.Equal(t, symptom.StatusAssigned, got.Status)

	latest, err := svc.GetLatestForSymptom(ctx, sym.ID)
	require.NoError(t, err)
	assert.Equal(t, tr.ID, latest.ID)

	none, err := svc.GetLatestForSymptom(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestAssignLab_Errors(t *testing.T) {
	w := newWorld(t)
	svc := w.service(false)
	ctx := context.Background()
	sym := w.submit(t)

	_, err := svc.AssignLab(ctx, w.gp, uuid.New(), w.lab.ID, w.testType.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = svc.AssignLab(ctx, w.gp, sym.ID, uuid.New(), w.testType.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = svc.AssignLab(ctx, w.gp, sym.ID, w.lab.ID, uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = svc.AssignLab(ctx, w.stranger, sym.ID, w.lab.ID, w.testType.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestAssignLab_InvalidStateFromDiagnosedAndTested(t *testing.T) {
	w := newWorld(t)
	svc := w.service(false)
	ctx := context.Background()

	for _, ev := range []symptom.Event{symptom.EventDiagnose, symptom.EventResultsUploaded} {
		sym := w.submit(t)
		_, err := w.symptoms.Advance(ctx, sym.ID, ev, w.gp.ID)
		require.NoError(t, err)

		_, err = svc.AssignLab(ctx, w.gp, sym.ID, w.lab.ID, w.testType.ID)
		require.True(t, apperr.Is(err, apperr.KindInvalidState), "after %s: %v", ev, err)
		assert.Equal(t, "Only pending or referred symptoms can be assigned to labs", apperr.ToHTTP(err).Message)
	}
}

func TestUploadResult_SingleUse(t *testing.T) {
	w := newWorld(t)
	svc := w.service(false)
	ctx := context.Background()
	sym := w.submit(t)
	tr, err := svc.AssignLab(ctx, w.gp, sym.ID, w.lab.ID, w.testType.ID)
	require.NoError(t, err)

	summary := " all clear "
	res, err := svc.UploadResult(ctx, w.staff, tr.UploadToken, []UploadFile{file("cbc.pdf", "pdf")}, &summary)
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	assert.Equal(t, "cbc.pdf", res.Files[0].Name)
	assert.Equal(t, "all clear", *res.Summary)
	assert.Equal(t, 1, w.blobs.Len())

	got, _ := w.symptoms.Get(ctx, sym.ID)
	assert.Equal(t, symptom.StatusTested, got.Status)
	stored, _ := svc.GetByID(ctx, tr.ID)
	assert.Equal(t, RequestUploaded, stored.Status)
	assert.Contains(t, w.pub.Types(), events.TypeLabResultUploaded)

	_, err = svc.UploadResult(ctx, w.staff, tr.UploadToken, []UploadFile{file("again.pdf", "pdf")}, nil)
	assert.True(t, apperr.Is(err, apperr.KindInvalidState), "got %v", err)
	assert.Equal(t, 1, w.blobs.Len(), "rejected upload must not store blobs")
}

func TestUploadResult_ReusableToken(t *testing.T) {
	w := newWorld(t)
	svc := w.service(true)
	ctx := context.Background()
	sym := w.submit(t)
	tr, err := svc.AssignLab(ctx, w.gp, sym.ID, w.lab.ID, w.testType.ID)
	require.NoError(t, err)

	_, err = svc.UploadResult(ctx, w.staff, tr.UploadToken, []UploadFile{file("a.pdf", "1")}, nil)
	require.NoError(t, err)
	_, err = svc.UploadResult(ctx, w.staff, tr.UploadToken, []UploadFile{file("b.pdf", "2")}, nil)
	require.NoError(t, err)

	results, err := svc.ListResults(ctx, tr.ID)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestUploadResult_Errors(t *testing.T) {
	w := newWorld(t)
	svc := w.service(false)
	ctx := context.Background()
	sym := w.submit(t)
	tr, err := svc.AssignLab(ctx, w.gp, sym.ID, w.lab.ID, w.testType.ID)
	require.NoError(t, err)

	_, err = svc.UploadResult(ctx, w.staff, "deadbeef", []UploadFile{file("a.pdf", "1")}, nil)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = svc.UploadResult(ctx, w.staff, tr.UploadToken, nil, nil)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.UploadResult(ctx, w.gp, tr.UploadToken, []UploadFile{file("a.pdf", "1")}, nil)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = svc.UploadResult(ctx, w.staff, tr.UploadToken, []UploadFile{file("ok.pdf", "1"), file("", "2")}, nil)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, 0, w.blobs.Len(), "partial uploads are discarded")
}
