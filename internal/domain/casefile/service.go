// Package casefile assembles the role-shaped read models served to patients,
// doctors and lab staff from the workflow packages.
package casefile

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/clinicflow/clinicflow/internal/domain/clinical"
	"github.com/clinicflow/clinicflow/internal/domain/identity"
	"github.com/clinicflow/clinicflow/internal/domain/labtest"
	"github.com/clinicflow/clinicflow/internal/domain/scheduling"
	"github.com/clinicflow/clinicflow/internal/domain/symptom"
	"github.com/clinicflow/clinicflow/internal/domain/visibility"
	"github.com/clinicflow/clinicflow/internal/platform/apperr"
	"github.com/clinicflow/clinicflow/internal/platform/auth"
	"github.com/clinicflow/clinicflow/pkg/pagination"
)

type Service struct {
	repo         Repository
	access       *visibility.Service
	directory    *identity.Service
	clinical     *clinical.Service
	labtests     *labtest.Service
	appointments *scheduling.Service
}

func NewService(repo Repository, access *visibility.Service, directory *identity.Service,
	clin *clinical.Service, labtests *labtest.Service, appointments *scheduling.Service) *Service {
	return &Service{
		repo:         repo,
		access:       access,
		directory:    directory,
		clinical:     clin,
		labtests:     labtests,
		appointments: appointments,
	}
}

// GetSymptomDetail returns the symptom as the actor may see it. The patient
// block is only filled for FullView.
func (s *Service) GetSymptomDetail(ctx context.Context, actor auth.Actor, id uuid.UUID) (*SymptomDetail, error) {
	access, sym, err := s.access.Check(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !access.AtLeast(visibility.ResearchView) {
		return nil, apperr.Forbidden("You do not have access to this symptom")
	}

	d := &SymptomDetail{
		ID:               sym.ID,
		Description:      sym.Description,
		Images:           sym.Images,
		Status:           sym.Status,
		CreatedAt:        sym.CreatedAt,
		ConsentTreatment: sym.ConsentTreatment,
		ConsentReferral:  sym.ConsentReferral,
		ConsentResearch:  sym.ConsentResearch,
		Access:           access.Label,
		Diagnoses:        []DiagnosisEntry{},
	}

	if access.AtLeast(visibility.FullView) {
		p, err := s.directory.GetUser(ctx, sym.PatientID)
		if err != nil {
			return nil, err
		}
		d.Patient = &PatientInfo{
			ID: p.ID, Name: p.Name, Age: p.Age, Gender: p.Gender,
			Phone: p.Phone, Email: p.Email, Address: p.Location,
		}
	}

	diagnoses, err := s.clinical.ListDiagnoses(ctx, sym.ID)
	if err != nil {
		return nil, err
	}
	for _, dg := range diagnoses {
		d.Diagnoses = append(d.Diagnoses, DiagnosisEntry{DoctorName: dg.DoctorName, Content: dg.Content, CreatedAt: dg.CreatedAt})
	}

	d.Test, err = s.testEntry(ctx, sym.ID, access.AtLeast(visibility.FullView))
	if err != nil {
		return nil, err
	}
	return d, nil
}

// testEntry describes the latest test request. The upload token is never
// part of it.
func (s *Service) testEntry(ctx context.Context, symptomID uuid.UUID, full bool) (*TestEntry, error) {
	tr, err := s.labtests.GetLatestForSymptom(ctx, symptomID)
	if err != nil || tr == nil {
		return nil, err
	}
	tt, err := s.directory.GetTestType(ctx, tr.TestTypeID)
	if err != nil {
		return nil, err
	}
	lab, err := s.directory.GetLab(ctx, tr.LabID)
	if err != nil {
		return nil, err
	}
	entry := &TestEntry{
		RequestID:   tr.ID,
		TestType:    tt.Name,
		Status:      string(tr.Status),
		LabName:     lab.Name,
		LabLocation: lab.Location,
		RequestedAt: tr.RequestedAt,
		Results:     []ResultEntry{},
	}

	results, err := s.labtests.ListResults(ctx, tr.ID)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		files := make([]FileEntry, 0, len(r.Files))
		for _, f := range r.Files {
			fe := FileEntry{Location: f.Location}
			if full {
				fe.Name = f.Name
			}
			files = append(files, fe)
		}
		entry.Results = append(entry.Results, ResultEntry{Files: files, Summary: r.Summary, UploadedAt: r.UploadedAt})
	}

	a, err := s.appointments.LatestForTestRequest(ctx, tr.ID)
	if err != nil {
		return nil, err
	}
	if a != nil {
		entry.Appointment = &AppointmentEntry{ID: a.ID, Status: string(a.Status), ScheduledAt: a.ScheduledAt}
	}
	return entry, nil
}

// DashboardQuery carries the raw dashboard filters.
type DashboardQuery struct {
	Status string
	Search string
}

// ListDoctorDashboard lists every symptom the doctor can see, newest first.
// Patient names are only searched and shown on FullView rows.
func (s *Service) ListDoctorDashboard(ctx context.Context, actor auth.Actor, q DashboardQuery, page pagination.Params) (*pagination.Response, error) {
	if !actor.IsDoctor() {
		return nil, apperr.Forbidden("Only doctors can view the dashboard")
	}
	var status *symptom.Status
	if raw := strings.TrimSpace(q.Status); raw != "" && !strings.EqualFold(raw, "all") {
		parsed, ok := symptom.ParseStatus(raw)
		if !ok {
			return nil, apperr.Validation("Invalid status filter %q", raw)
		}
		status = &parsed
	}
	search := strings.ToLower(strings.TrimSpace(q.Search))

	rows, err := s.repo.DashboardCandidates(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool, len(rows))
	entries := make([]DashboardEntry, 0, len(rows))
	for _, row := range rows {
		if seen[row.SymptomID] {
			continue
		}
		seen[row.SymptomID] = true

		access := visibility.Resolve(actor, visibility.Facts{
			PatientID:       row.PatientID,
			GPID:            row.GPID,
			ConsentResearch: row.ConsentResearch,
			ReferralGranted: row.ReferralGranted,
			ReferralRevoked: row.ReferralRevoked,
			HasReferral:     row.HasReferral,
		})
		if !access.AtLeast(visibility.ResearchView) {
			continue
		}
		if status != nil && row.Status != *status {
			continue
		}
		full := access.AtLeast(visibility.FullView)
		if search != "" && !matches(row, search, full) {
			continue
		}

		e := DashboardEntry{
			ID:          row.SymptomID,
			Description: row.Description,
			Images:      symptom.NormalizeImages(row.Images),
			Status:      row.Status,
			CreatedAt:   row.CreatedAt,
			Access:      access.Label,
		}
		if full {
			e.PatientName = row.PatientName
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	start, end := page.Window(len(entries))
	return pagination.NewResponse(entries[start:end], len(entries), page), nil
}

func matches(row DashboardRow, needle string, full bool) bool {
	if strings.Contains(strings.ToLower(row.Description), needle) {
		return true
	}
	return full && strings.Contains(strings.ToLower(row.PatientName), needle)
}

// WorklistQuery carries the raw lab worklist filters.
type WorklistQuery struct {
	Status    string
	StartDate string
	EndDate   string
}

// ListLabWorklist lists the test requests of the caller's lab, newest first.
func (s *Service) ListLabWorklist(ctx context.Context, actor auth.Actor, q WorklistQuery) ([]WorklistEntry, error) {
	if !actor.IsLabStaff() {
		return nil, apperr.Forbidden("Only lab staff can view the lab worklist")
	}
	staff, err := s.directory.GetLabStaff(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if staff.LabID == nil {
		return nil, apperr.InvalidState("Lab staff is not assigned to a lab")
	}

	from, to, err := symptom.ParseDateRange(q.StartDate, q.EndDate)
	if err != nil {
		return nil, err
	}
	f := WorklistFilter{From: from, To: to}
	if st := strings.TrimSpace(q.Status); st != "" && !strings.EqualFold(st, "all") {
		f.Status = st
	}

	items, err := s.repo.LabWorklist(ctx, *staff.LabID, f)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []WorklistEntry{}
	}
	return items, nil
}
