package casefile

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clinicflow/clinicflow/internal/domain/clinical"
	"github.com/clinicflow/clinicflow/internal/domain/consent"
	"github.com/clinicflow/clinicflow/internal/domain/identity"
	"github.com/clinicflow/clinicflow/internal/domain/labtest"
	"github.com/clinicflow/clinicflow/internal/domain/scheduling"
	"github.com/clinicflow/clinicflow/internal/domain/symptom"
)

// MemoryRepo answers dashboard and worklist reads from the other in-memory
// repositories, joining them the way the SQL repository does.
type MemoryRepo struct {
	Users        *identity.MemoryUserRepo
	TestTypes    *identity.MemoryTestTypeRepo
	Symptoms     *symptom.MemoryRepo
	Consents     *consent.MemoryRepo
	Referrals    *clinical.MemoryReferralRepo
	TestRequests *labtest.MemoryRepo
	Appointments *scheduling.MemoryAppointmentRepo
}

func (r *MemoryRepo) DashboardCandidates(ctx context.Context, doctorID uuid.UUID) ([]DashboardRow, error) {
	var items []DashboardRow
	for _, s := range r.Symptoms.All() {
		p, err := r.Users.GetByID(ctx, s.PatientID)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		referred, err := r.Referrals.HasReferral(ctx, s.ID, doctorID)
		if err != nil {
			return nil, err
		}
		granted, revoked, err := r.Consents.ReferralStanding(ctx, s.ID, doctorID)
		if err != nil {
			return nil, err
		}
		row := DashboardRow{
			SymptomID:       s.ID,
			Description:     s.Description,
			Images:          append([]string{}, s.Images...),
			Status:          s.Status,
			CreatedAt:       s.CreatedAt,
			PatientID:       s.PatientID,
			PatientName:     p.Name,
			ConsentResearch: s.ConsentResearch,
			HasReferral:     referred,
			ReferralGranted: granted,
			ReferralRevoked: revoked,
		}
		if p.GPID != nil {
			row.GPID = *p.GPID
		}
		if row.GPID != doctorID && !s.ConsentResearch && !referred && !granted {
			continue
		}
		items = append(items, row)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].SymptomID.String() < items[j].SymptomID.String()
	})
	return items, nil
}

func (r *MemoryRepo) LabWorklist(ctx context.Context, labID uuid.UUID, f WorklistFilter) ([]WorklistEntry, error) {
	var items []WorklistEntry
	for _, tr := range r.TestRequests.Requests() {
		if tr.LabID != labID {
			continue
		}
		if f.From != nil && tr.RequestedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && !tr.RequestedAt.Before(*f.To) {
			continue
		}
		a, err := r.Appointments.LatestForTestRequest(ctx, tr.ID)
		if errors.Is(err, pgx.ErrNoRows) {
			a, err = nil, nil
		}
		if err != nil {
			return nil, err
		}
		if f.Status != "" && !strings.EqualFold(string(tr.Status), f.Status) &&
			(a == nil || !strings.EqualFold(string(a.Status), f.Status)) {
			continue
		}

		s, err := r.Symptoms.GetByID(ctx, tr.SymptomID)
		if err != nil {
			return nil, err
		}
		patient, err := r.Users.GetByID(ctx, s.PatientID)
		if err != nil {
			return nil, err
		}
		doctor, err := r.Users.GetByID(ctx, tr.DoctorID)
		if err != nil {
			return nil, err
		}
		tt, err := r.TestTypes.GetByID(ctx, tr.TestTypeID)
		if err != nil {
			return nil, err
		}
		e := WorklistEntry{
			TestRequestID: tr.ID,
			SymptomID:     tr.SymptomID,
			DoctorName:    doctor.Name,
			PatientName:   patient.Name,
			PatientAge:    patient.Age,
			TestType:      tt.Name,
			Status:        string(tr.Status),
			UploadToken:   tr.UploadToken,
			RequestedAt:   tr.RequestedAt,
		}
		if a != nil {
			status := string(a.Status)
			at := a.ScheduledAt
			e.AppointmentID, e.AppointmentStatus, e.ScheduledAt = &a.ID, &status, &at
		}
		items = append(items, e)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].RequestedAt.After(items[j].RequestedAt) })
	return items, nil
}
