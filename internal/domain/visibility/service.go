package visibility

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinicflow/clinicflow/internal/domain/identity"
	"github.com/clinicflow/clinicflow/internal/domain/symptom"
	"github.com/clinicflow/clinicflow/internal/platform/apperr"
	"github.com/clinicflow/clinicflow/internal/platform/auth"
	"github.com/clinicflow/clinicflow/internal/platform/metrics"
)

// ConsentStanding reports a doctor's REFERRAL consent standing on a symptom.
type ConsentStanding interface {
	ReferralStanding(ctx context.Context, symptomID, doctorID uuid.UUID) (granted, revoked bool, err error)
}

// ReferralLookup reports whether a Referral record targets a doctor.
type ReferralLookup interface {
	HasReferral(ctx context.Context, symptomID, doctorID uuid.UUID) (bool, error)
}

type Service struct {
	symptoms  *symptom.Service
	directory *identity.Service
	consents  ConsentStanding
	referrals ReferralLookup
	metrics   *metrics.Metrics
}

func NewService(symptoms *symptom.Service, directory *identity.Service, consents ConsentStanding, referrals ReferralLookup, m *metrics.Metrics) *Service {
	return &Service{symptoms: symptoms, directory: directory, consents: consents, referrals: referrals, metrics: m}
}

// Check loads the symptom and resolves the actor's access to it.
func (s *Service) Check(ctx context.Context, actor auth.Actor, symptomID uuid.UUID) (Access, *symptom.Symptom, error) {
	sym, err := s.symptoms.Get(ctx, symptomID)
	if err != nil {
		return Access{}, nil, err
	}
	access, err := s.Evaluate(ctx, actor, sym)
	if err != nil {
		return Access{}, nil, err
	}
	return access, sym, nil
}

// Evaluate resolves access to an already loaded symptom.
func (s *Service) Evaluate(ctx context.Context, actor auth.Actor, sym *symptom.Symptom) (Access, error) {
	f, err := s.facts(ctx, actor, sym)
	if err != nil {
		return Access{}, err
	}
	access := Resolve(actor, f)
	s.metrics.AccessDecision(access.Level.String(), access.Label)
	return access, nil
}

// Require is Check that turns anything below min into Forbidden.
func (s *Service) Require(ctx context.Context, actor auth.Actor, symptomID uuid.UUID, min Level) (Access, *symptom.Symptom, error) {
	access, sym, err := s.Check(ctx, actor, symptomID)
	if err != nil {
		return Access{}, nil, err
	}
	if !access.AtLeast(min) {
		return access, sym, apperr.Forbidden("You do not have access to this symptom")
	}
	return access, sym, nil
}

// facts only queries what the precedence rules can still use for this actor.
func (s *Service) facts(ctx context.Context, actor auth.Actor, sym *symptom.Symptom) (Facts, error) {
	f := Facts{PatientID: sym.PatientID, ConsentResearch: sym.ConsentResearch}
	if !actor.IsDoctor() {
		return f, nil
	}

	patient, err := s.directory.GetUser(ctx, sym.PatientID)
	if err != nil {
		return f, err
	}
	if patient.GPID != nil {
		f.GPID = *patient.GPID
	}
	if f.GPID == actor.ID {
		return f, nil
	}

	f.ReferralGranted, f.ReferralRevoked, err = s.consents.ReferralStanding(ctx, sym.ID, actor.ID)
	if err != nil {
		return f, err
	}
	if !f.ReferralGranted {
		f.HasReferral, err = s.referrals.HasReferral(ctx, sym.ID, actor.ID)
		if err != nil {
			return f, err
		}
	}
	return f, nil
}
