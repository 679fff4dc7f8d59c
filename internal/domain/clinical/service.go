package clinical

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/clinicflow/clinicflow/internal/domain/consent"
	"github.com/clinicflow/clinicflow/internal/domain/identity"
	"github.com/clinicflow/clinicflow/internal/domain/symptom"
	"github.com/clinicflow/clinicflow/internal/domain/visibility"
	"github.com/clinicflow/clinicflow/internal/platform/apperr"
	"github.com/clinicflow/clinicflow/internal/platform/auth"
	"github.com/clinicflow/clinicflow/internal/platform/db"
)

type Service struct {
	tx        db.Transactor
	diagnoses DiagnosisRepository
	referrals ReferralRepository
	symptoms  *symptom.Service
	consents  *consent.Service
	directory *identity.Service
	access    *visibility.Service

	// requireAccess makes CreateDiagnosis demand at least ResearchView.
	requireAccess bool
}

func NewService(tx db.Transactor, diagnoses DiagnosisRepository, referrals ReferralRepository,
	symptoms *symptom.Service, consents *consent.Service, directory *identity.Service,
	access *visibility.Service, requireAccess bool) *Service {
	return &Service{
		tx:            tx,
		diagnoses:     diagnoses,
		referrals:     referrals,
		symptoms:      symptoms,
		consents:      consents,
		directory:     directory,
		access:        access,
		requireAccess: requireAccess,
	}
}

// CreateDiagnosis appends a diagnosis and moves the symptom to Diagnosed.
func (s *Service) CreateDiagnosis(ctx context.Context, actor auth.Actor, symptomID uuid.UUID, content string) (*Diagnosis, error) {
	if !actor.IsDoctor() {
		return nil, apperr.Forbidden("Only doctors can diagnose symptoms")
	}
	sym, err := s.symptoms.Get(ctx, symptomID)
	if err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Validation("Diagnosis content is required.")
	}
	if s.requireAccess {
		access, err := s.access.Evaluate(ctx, actor, sym)
		if err != nil {
			return nil, err
		}
		if !access.AtLeast(visibility.ResearchView) {
			return nil, apperr.Forbidden("You do not have access to this symptom")
		}
	}

	d := &Diagnosis{SymptomID: sym.ID, DoctorID: actor.ID, PatientID: sym.PatientID, Content: content}
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.diagnoses.Create(ctx, d); err != nil {
			return err
		}
		_, err := s.symptoms.Advance(ctx, sym.ID, symptom.EventDiagnose, actor.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Refer hands the symptom to targetID: a Referral record, a REFERRAL consent
// naming the target, and status Referred, all in one transaction.
func (s *Service) Refer(ctx context.Context, actor auth.Actor, symptomID, targetID uuid.UUID) (*Referral, error) {
	if !actor.IsDoctor() {
		return nil, apperr.Forbidden("Only doctors can refer symptoms")
	}
	sym, err := s.symptoms.Get(ctx, symptomID)
	if err != nil {
		return nil, err
	}
	if _, err := s.directory.GetDoctor(ctx, targetID); err != nil {
		return nil, err
	}
	if !sym.ConsentReferral {
		return nil, apperr.Forbidden("Referral consent not granted by patient.")
	}
	access, err := s.access.Evaluate(ctx, actor, sym)
	if err != nil {
		return nil, err
	}
	if !access.AtLeast(visibility.FullView) {
		return nil, apperr.Forbidden("You do not have access to this symptom")
	}
	if targetID == actor.ID {
		return nil, apperr.Validation("Cannot refer a symptom to yourself")
	}

	ref := &Referral{SymptomID: sym.ID, DoctorID: targetID, ReferredBy: actor.ID}
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.referrals.Create(ctx, ref); err != nil {
			return err
		}
		if _, err := s.consents.GrantReferral(ctx, sym.ID, sym.PatientID, targetID); err != nil {
			return err
		}
		_, err := s.symptoms.Advance(ctx, sym.ID, symptom.EventRefer, actor.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ref, nil
}

func (s *Service) ListDiagnoses(ctx context.Context, symptomID uuid.UUID) ([]*Diagnosis, error) {
	return s.diagnoses.ListBySymptom(ctx, symptomID)
}

func (s *Service) ListReferrals(ctx context.Context, symptomID uuid.UUID) ([]*Referral, error) {
	return s.referrals.ListBySymptom(ctx, symptomID)
}

func (s *Service) HasReferral(ctx context.Context, symptomID, doctorID uuid.UUID) (bool, error) {
	return s.referrals.HasReferral(ctx, symptomID, doctorID)
}
