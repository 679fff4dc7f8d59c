package identity

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinicflow/clinicflow/internal/platform/apperr"
	"github.com/clinicflow/clinicflow/internal/platform/auth"
)

type Service struct {
	users     UserRepository
	labs      LabRepository
	testTypes TestTypeRepository
}

func NewService(users UserRepository, labs LabRepository, testTypes TestTypeRepository) *Service {
	return &Service{users: users, labs: labs, testTypes: testTypes}
}

func (s *Service) Me(ctx context.Context, actor auth.Actor) (*User, error) {
	u, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, apperr.FromDB(err, "User not found")
	}
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.FromDB(err, "User not found")
	}
	return u, nil
}

// GetDoctor returns NotFound when id names no user or a user who is not a doctor.
func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.FromDB(err, "Doctor not found")
	}
	if u.Role != auth.RoleDoctor {
		return nil, apperr.NotFound("Doctor not found")
	}
	return u, nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.FromDB(err, "Patient not found")
	}
	if u.Role != auth.RolePatient {
		return nil, apperr.NotFound("Patient not found")
	}
	return u, nil
}

func (s *Service) GetLabStaff(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.FromDB(err, "Lab staff not found")
	}
	if u.Role != auth.RoleLabStaff || u.LabID == nil {
		return nil, apperr.NotFound("Lab staff not found")
	}
	return u, nil
}

func (s *Service) GetLab(ctx context.Context, id uuid.UUID) (*Lab, error) {
	l, err := s.labs.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.FromDB(err, "Lab not found")
	}
	return l, nil
}

func (s *Service) GetTestType(ctx context.Context, id uuid.UUID) (*TestType, error) {
	tt, err := s.testTypes.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.FromDB(err, "Test type not found")
	}
	return tt, nil
}

// ListDoctors returns every doctor except the caller, for referral pickers.
func (s *Service) ListDoctors(ctx context.Context, actor auth.Actor) ([]DoctorSummary, error) {
	docs, err := s.users.ListDoctors(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	out := make([]DoctorSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, DoctorSummary{ID: d.ID, Name: d.Name, Specialty: d.Specialty})
	}
	return out, nil
}

func (s *Service) ListLabs(ctx context.Context) ([]*Lab, error) {
	return s.labs.List(ctx)
}

func (s *Service) ListTestTypes(ctx context.Context) ([]*TestType, error) {
	return s.testTypes.List(ctx)
}
