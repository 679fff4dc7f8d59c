package consent

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicflow/clinicflow/internal/platform/apperr"
	"github.com/clinicflow/clinicflow/internal/platform/auth"
	"github.com/clinicflow/clinicflow/internal/platform/db"
	"github.com/clinicflow/clinicflow/internal/platform/events"
)

type Service struct {
	tx    db.Transactor
	repo  Repository
	flags SymptomFlags
	pub   events.Publisher
	now   func() time.Time
}

func NewService(tx db.Transactor, repo Repository, flags SymptomFlags, pub events.Publisher) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{tx: tx, repo: repo, flags: flags, pub: pub, now: func() time.Time { return time.Now().UTC() }}
}

// GrantAtSubmission writes the consents a patient gives when submitting a
// symptom: TREATMENT and REFERRAL to their GP, and a research pool grant when
// research is true. It is called inside the submission transaction.
func (s *Service) GrantAtSubmission(ctx context.Context, symptomID, patientID, gpID uuid.UUID, research bool) error {
	gp := gpID
	rows := []*Consent{
		{SymptomID: symptomID, PatientID: patientID, DoctorID: &gp, Purpose: PurposeTreatment, Granted: true},
		{SymptomID: symptomID, PatientID: patientID, DoctorID: &gp, Purpose: PurposeReferral, Granted: true},
	}
	if research {
		rows = append(rows, &Consent{SymptomID: symptomID, PatientID: patientID, Purpose: PurposeResearch, Granted: true})
	}
	for _, c := range rows {
		if err := s.repo.Create(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// GrantReferral records REFERRAL consent for the doctor a symptom was referred to.
func (s *Service) GrantReferral(ctx context.Context, symptomID, patientID, doctorID uuid.UUID) (*Consent, error) {
	c := &Consent{SymptomID: symptomID, PatientID: patientID, DoctorID: &doctorID, Purpose: PurposeReferral, Granted: true}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) ListBySymptom(ctx context.Context, symptomID uuid.UUID) ([]*Consent, error) {
	return s.repo.ListBySymptom(ctx, symptomID)
}

// ListForPatient lists the consents on one of the actor's own symptoms.
func (s *Service) ListForPatient(ctx context.Context, actor auth.Actor, symptomID uuid.UUID) ([]*Consent, error) {
	if _, err := s.ownedSubject(ctx, actor, symptomID); err != nil {
		return nil, err
	}
	return s.repo.ListBySymptom(ctx, symptomID)
}

func (s *Service) ownedSubject(ctx context.Context, actor auth.Actor, symptomID uuid.UUID) (Subject, error) {
	if !actor.IsPatient() {
		return Subject{}, apperr.Forbidden("Only patients can manage consent")
	}
	subj, err := s.flags.ConsentSubject(ctx, symptomID)
	if err != nil {
		return Subject{}, apperr.FromDB(err, "Symptom not found")
	}
	if subj.PatientID != actor.ID {
		return Subject{}, apperr.Forbidden("You can only manage consent on your own symptoms")
	}
	return subj, nil
}

// Revoke withdraws a consent. TREATMENT consent cannot be revoked. Revoking
// RESEARCH also clears the symptom's research flag.
func (s *Service) Revoke(ctx context.Context, actor auth.Actor, consentID uuid.UUID) (*Consent, error) {
	if !actor.IsPatient() {
		return nil, apperr.Forbidden("Only patients can manage consent")
	}
	c, err := s.repo.GetByID(ctx, consentID)
	if err != nil {
		return nil, apperr.FromDB(err, "Consent not found")
	}
	if c.PatientID != actor.ID {
		return nil, apperr.Forbidden("You can only manage consent on your own symptoms")
	}
	if c.Purpose == PurposeTreatment {
		return nil, apperr.Validation("Treatment consent cannot be revoked")
	}
	if c.RevokedAt != nil {
		return nil, apperr.InvalidState("Consent is already revoked")
	}

	at := s.now()
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		ok, err := s.repo.Revoke(ctx, c.ID, at)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.InvalidState("Consent is already revoked")
		}
		if c.Purpose == PurposeResearch {
			if err := s.flags.SetConsentResearch(ctx, c.SymptomID, false); err != nil {
				return apperr.FromDB(err, "Symptom not found")
			}
		}
		events.PublishAfterCommit(ctx, s.pub, events.TypeConsentRevoked, c.SymptomID.String(), map[string]interface{}{
			"consent_id": c.ID,
			"purpose":    c.Purpose,
			"doctor_id":  c.DoctorID,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.RevokedAt = &at
	return c, nil
}

// GrantResearch opts an already submitted symptom into the research pool.
func (s *Service) GrantResearch(ctx context.Context, actor auth.Actor, symptomID uuid.UUID) (*Consent, error) {
	subj, err := s.ownedSubject(ctx, actor, symptomID)
	if err != nil {
		return nil, err
	}
	if subj.ConsentResearch {
		return nil, apperr.InvalidState("Research consent is already granted")
	}

	c := &Consent{SymptomID: symptomID, PatientID: actor.ID, Purpose: PurposeResearch, Granted: true}
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, c); err != nil {
			return err
		}
		return s.flags.SetConsentResearch(ctx, symptomID, true)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) ReferralStanding(ctx context.Context, symptomID, doctorID uuid.UUID) (bool, bool, error) {
	return s.repo.ReferralStanding(ctx, symptomID, doctorID)
}

// ActivePurposes returns, per symptom, the purposes with an active consent.
func (s *Service) ActivePurposes(ctx context.Context, symptomIDs []uuid.UUID) (map[uuid.UUID][]Purpose, error) {
	return s.repo.ActivePurposes(ctx, symptomIDs)
}
