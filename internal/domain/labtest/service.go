package labtest

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

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

const tokenBytes = 32

type Service struct {
	tx        db.Transactor
	repo      Repository
	symptoms  *symptom.Service
	directory *identity.Service
	access    *visibility.Service
	blobs     *blobstore.Writer
	pub       events.Publisher
	metrics   *metrics.Metrics

	// reuseTokens lets one upload token carry several uploads.
	reuseTokens bool
	now         func() time.Time
}

func NewService(tx db.Transactor, repo Repository, symptoms *symptom.Service, directory *identity.Service,
	access *visibility.Service, blobs *blobstore.Writer, pub events.Publisher, m *metrics.Metrics, reuseTokens bool) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{
		tx:          tx,
		repo:        repo,
		symptoms:    symptoms,
		directory:   directory,
		access:      access,
		blobs:       blobs,
		pub:         pub,
		metrics:     m,
		reuseTokens: reuseTokens,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func newUploadToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate upload token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// AssignLab creates a test request for the symptom and moves it to
// Assigned to Lab.
func (s *Service) AssignLab(ctx context.Context, actor auth.Actor, symptomID, labID, testTypeID uuid.UUID) (*TestRequest, error) {
	if !actor.IsDoctor() {
		return nil, apperr.Forbidden("Only doctors can assign labs")
	}
	sym, err := s.symptoms.Get(ctx, symptomID)
	if err != nil {
		return nil, err
	}
	if _, err := s.directory.GetLab(ctx, labID); err != nil {
		return nil, err
	}
	if _, err := s.directory.GetTestType(ctx, testTypeID); err != nil {
		return nil, err
	}
	access, err := s.access.Evaluate(ctx, actor, sym)
	if err != nil {
		return nil, err
	}
	if !access.AtLeast(visibility.FullView) {
		return nil, apperr.Forbidden("You do not have access to this symptom")
	}
	if _, err := symptom.Next(sym.Status, symptom.EventAssignLab); err != nil {
		return nil, apperr.InvalidState("%s", err.Error())
	}

	token, err := newUploadToken()
	if err != nil {
		return nil, err
	}
	tr := &TestRequest{
		SymptomID:   sym.ID,
		DoctorID:    actor.ID,
		LabID:       labID,
		TestTypeID:  testTypeID,
		UploadToken: token,
		Status:      RequestPending,
	}
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateRequest(ctx, tr); err != nil {
			return err
		}
		_, err := s.symptoms.Advance(ctx, sym.ID, symptom.EventAssignLab, actor.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tr, nil
}

// UploadFile is one file of a result upload.
type UploadFile struct {
	Name        string
	ContentType string
	Content     io.Reader
}

// UploadResult stores files against the request named by token, then
// records the result and moves the symptom to Tested in one transaction.
// Blobs written before a failed transaction are discarded.
func (s *Service) UploadResult(ctx context.Context, actor auth.Actor, token string, files []UploadFile, summary *string) (*TestResult, error) {
	if !actor.IsLabStaff() {
		return nil, apperr.Forbidden("Only lab staff can upload results")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperr.NotFound("Invalid upload token")
	}
	tr, err := s.repo.GetRequestByToken(ctx, token)
	if err != nil {
		return nil, apperr.FromDB(err, "Invalid upload token")
	}
	if tr.Status == RequestUploaded && !s.reuseTokens {
		return nil, apperr.InvalidState("Results have already been uploaded for this test request")
	}
	if len(files) == 0 {
		return nil, apperr.Validation("At least one file is required.")
	}
	if summary != nil {
		if trimmed := strings.TrimSpace(*summary); trimmed == "" {
			summary = nil
		} else {
			summary = &trimmed
		}
	}

	stored := make([]ResultFile, 0, len(files))
	locations := make([]string, 0, len(files))
	for _, f := range files {
		loc, err := s.blobs.Save(ctx, "results", f.Name, f.ContentType, f.Content)
		if err != nil {
			s.blobs.Discard(ctx, locations)
			if errors.Is(err, blobstore.ErrMissingFileName) {
				return nil, apperr.Validation("Every file needs a name.")
			}
			zerolog.Ctx(ctx).Error().Err(err).Str("test_request_id", tr.ID.String()).Msg("store lab result file")
			return nil, fmt.Errorf("store result file: %w", err)
		}
		locations = append(locations, loc)
		stored = append(stored, ResultFile{Name: f.Name, Location: loc})
	}

	res := &TestResult{TestRequestID: tr.ID, Files: stored, Summary: summary}
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		ok, err := s.repo.MarkUploaded(ctx, tr.ID, s.now(), !s.reuseTokens)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.InvalidState("Results have already been uploaded for this test request")
		}
		if err := s.repo.AddResult(ctx, res); err != nil {
			return err
		}
		if _, err := s.symptoms.Advance(ctx, tr.SymptomID, symptom.EventResultsUploaded, actor.ID); err != nil {
			return err
		}
		db.AfterCommit(ctx, func(context.Context) { s.metrics.ResultUploaded() })
		events.PublishAfterCommit(ctx, s.pub, events.TypeLabResultUploaded, tr.SymptomID.String(), map[string]interface{}{
			"test_request_id": tr.ID,
			"test_result_id":  res.ID,
			"files":           len(stored),
		})
		return nil
	})
	if err != nil {
		s.blobs.Discard(ctx, locations)
		return nil, err
	}
	return res, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*TestRequest, error) {
	tr, err := s.repo.GetRequest(ctx, id)
	if err != nil {
		return nil, apperr.FromDB(err, "Test request not found")
	}
	return tr, nil
}

// GetLatestForSymptom returns nil, nil when the symptom has no request yet.
func (s *Service) GetLatestForSymptom(ctx context.Context, symptomID uuid.UUID) (*TestRequest, error) {
	tr, err := s.repo.LatestForSymptom(ctx, symptomID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return tr, nil
}

func (s *Service) ListResults(ctx context.Context, requestID uuid.UUID) ([]*TestResult, error) {
	return s.repo.ListResults(ctx, requestID)
}
