package symptom

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinicflow/clinicflow/internal/domain/consent"
	"github.com/clinicflow/clinicflow/internal/domain/identity"
	"github.com/clinicflow/clinicflow/internal/platform/apperr"
	"github.com/clinicflow/clinicflow/internal/platform/auth"
	"github.com/clinicflow/clinicflow/internal/platform/db"
	"github.com/clinicflow/clinicflow/internal/platform/events"
	"github.com/clinicflow/clinicflow/internal/platform/metrics"
)

const dateLayout = "2006-01-02"

type Service struct {
	tx        db.Transactor
	repo      Repository
	consents  *consent.Service
	directory *identity.Service
	pub       events.Publisher
	metrics   *metrics.Metrics
}

func NewService(tx db.Transactor, repo Repository, consents *consent.Service, directory *identity.Service, pub events.Publisher, m *metrics.Metrics) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{tx: tx, repo: repo, consents: consents, directory: directory, pub: pub, metrics: m}
}

// SubmitRequest is the body of a symptom submission.
type SubmitRequest struct {
	Description      string    `json:"description"`
	Images           ImageList `json:"images"`
	ConsentTreatment bool      `json:"consent_treatment"`
	ConsentReferral  bool      `json:"consent_referral"`
	ConsentResearch  bool      `json:"consent_research"`
}

// Submit records a new symptom for the patient together with the consents
// given at submission, in one transaction.
func (s *Service) Submit(ctx context.Context, actor auth.Actor, req SubmitRequest) (*Symptom, error) {
	if !actor.IsPatient() {
		return nil, apperr.Forbidden("Only patients can submit symptoms")
	}
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		return nil, apperr.Validation("Description is required.")
	}
	if !req.ConsentTreatment {
		return nil, apperr.Validation("Treatment consent is required.")
	}
	if !req.ConsentReferral {
		return nil, apperr.Validation("Referral consent is required.")
	}

	patient, err := s.directory.GetPatient(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if patient.GPID == nil {
		return nil, apperr.InvalidState("Patient has no assigned GP")
	}

	sym := &Symptom{
		ID:               uuid.New(),
		PatientID:        actor.ID,
		Description:      desc,
		Images:           NormalizeImages(req.Images),
		Status:           StatusPending,
		ConsentTreatment: true,
		ConsentReferral:  true,
		ConsentResearch:  req.ConsentResearch,
	}
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, sym); err != nil {
			return err
		}
		if err := s.consents.GrantAtSubmission(ctx, sym.ID, actor.ID, *patient.GPID, req.ConsentResearch); err != nil {
			return err
		}
		s.publishStatus(ctx, sym.ID, "", StatusPending, "submit", actor.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sym, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Symptom, error) {
	sym, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.FromDB(err, "Symptom not found")
	}
	return sym, nil
}

// Advance applies ev to the symptom. Guarded events are written
// compare-and-set against the status that was read, so a concurrent
// transition is reported as InvalidState. Every other event lands
// regardless of the current status.
func (s *Service) Advance(ctx context.Context, id uuid.UUID, ev Event, actorID uuid.UUID) (Status, error) {
	if !ev.Guarded() {
		to, err := Next("", ev)
		if err != nil {
			return "", err
		}
		from, err := s.repo.SetStatus(ctx, id, to)
		if err != nil {
			return "", apperr.FromDB(err, "Symptom not found")
		}
		s.publishStatus(ctx, id, from, to, string(ev), actorID)
		return to, nil
	}
	sym, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	to, err := Next(sym.Status, ev)
	if err != nil {
		var te *ErrTransition
		if errors.As(err, &te) {
			return "", apperr.InvalidState("%s", te.Error())
		}
		return "", err
	}
	ok, err := s.repo.CompareAndSetStatus(ctx, id, sym.Status, to)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperr.InvalidState("Symptom status changed concurrently, please retry")
	}
	s.publishStatus(ctx, id, sym.Status, to, string(ev), actorID)
	return to, nil
}

func (s *Service) publishStatus(ctx context.Context, id uuid.UUID, from, to Status, ev string, actorID uuid.UUID) {
	db.AfterCommit(ctx, func(context.Context) { s.metrics.SymptomTransition(ev, string(to)) })
	events.PublishAfterCommit(ctx, s.pub, events.TypeSymptomStatusChanged, id.String(), map[string]interface{}{
		"from":     from,
		"to":       to,
		"event":    ev,
		"actor_id": actorID,
	})
}

// HistoryQuery carries the raw history filters from the query string.
type HistoryQuery struct {
	Status    string
	StartDate string
	EndDate   string
}

func parseDate(field, value string) (*time.Time, error) {
	if value = strings.TrimSpace(value); value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, apperr.Validation("Invalid %s, expected format YYYY-MM-DD", field)
	}
	return &t, nil
}

// ParseDateRange parses optional start_date and end_date values into a
// half-open UTC range covering whole days: to is the day after end.
func ParseDateRange(start, end string) (from, to *time.Time, err error) {
	from, err = parseDate("start_date", start)
	if err != nil {
		return nil, nil, err
	}
	last, err := parseDate("end_date", end)
	if err != nil {
		return nil, nil, err
	}
	if from != nil && last != nil && from.After(*last) {
		return nil, nil, apperr.Validation("start_date must not be after end_date")
	}
	if last != nil {
		next := last.AddDate(0, 0, 1)
		to = &next
	}
	return from, to, nil
}

// ParseHistoryFilter validates q into a storage filter.
func ParseHistoryFilter(q HistoryQuery) (HistoryFilter, error) {
	var f HistoryFilter
	if st := strings.TrimSpace(q.Status); st != "" && !strings.EqualFold(st, "all") {
		parsed, ok := ParseStatus(st)
		if !ok {
			return f, apperr.Validation("Invalid status filter %q", st)
		}
		f.Status = &parsed
	}
	from, to, err := ParseDateRange(q.StartDate, q.EndDate)
	if err != nil {
		return f, err
	}
	f.From, f.To = from, to
	return f, nil
}

// ListHistory returns the patient's own symptoms, newest first, each with
// the consent purposes currently in force.
func (s *Service) ListHistory(ctx context.Context, actor auth.Actor, q HistoryQuery) ([]HistoryEntry, error) {
	if !actor.IsPatient() {
		return nil, apperr.Forbidden("Only patients can view symptom history")
	}
	f, err := ParseHistoryFilter(q)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListByPatient(ctx, actor.ID, f)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(items))
	for i, sym := range items {
		ids[i] = sym.ID
	}
	purposes, err := s.consents.ActivePurposes(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryEntry, 0, len(items))
	for _, sym := range items {
		names := make([]string, 0, len(purposes[sym.ID]))
		for _, p := range purposes[sym.ID] {
			names = append(names, string(p))
		}
		out = append(out, HistoryEntry{Symptom: sym, Consents: names})
	}
	return out, nil
}

// ConsentFlags adapts a Repository to the consent ledger's view of symptoms.
type ConsentFlags struct {
	Repo Repository
}

func (a ConsentFlags) ConsentSubject(ctx context.Context, id uuid.UUID) (consent.Subject, error) {
	sym, err := a.Repo.GetByID(ctx, id)
	if err != nil {
		return consent.Subject{}, err
	}
	return consent.Subject{PatientID: sym.PatientID, ConsentResearch: sym.ConsentResearch}, nil
}

func (a ConsentFlags) SetConsentResearch(ctx context.Context, id uuid.UUID, granted bool) error {
	return a.Repo.SetConsentResearch(ctx, id, granted)
}
