package identity

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clinicflow/clinicflow/internal/platform/auth"
)

// seedNamespace makes demo ids stable across runs so seeding is idempotent.
var seedNamespace = uuid.MustParse("5b4a3f7e-2c1d-4f0e-9a8b-7c6d5e4f3a2b")

var (
	seedSpecialties    = []string{"Cardiology", "Dermatology", "Neurology", "Orthopedics", "Pediatrics"}
	seedLabSpecialties = []string{"Pathology", "Hematology", "Microbiology", "Genetics", "Radiology"}
	seedCities         = []string{"Leeds", "Bristol", "Glasgow", "Cardiff", "Belfast", "York"}
	seedGenders        = []string{"male", "female", "other"}
	seedTestTypes      = []string{
		"Complete Blood Count (CBC)", "Basic Metabolic Panel", "Lipid Panel",
		"Thyroid Function Panel", "Liver Function Tests", "Urinalysis",
	}
)

type SeedConfig struct {
	Count int
	Seed  int64
}

func DefaultSeedConfig() SeedConfig { return SeedConfig{Count: 3, Seed: 42} }

// SeedResult lists the demo actors so tokens can be minted for them.
type SeedResult struct {
	Doctors  []*User
	Patients []*User
	LabStaff []*User
	Labs     []*Lab
}

func seedID(kind string, i int) uuid.UUID {
	return uuid.NewSHA1(seedNamespace, []byte(fmt.Sprintf("%s%d", kind, i+1)))
}

// Seed creates Count doctors, labs, lab staff and patients plus the standard
// test types. Patient i gets doctor i as GP; lab staff i works at lab i.
// Records that already exist are left untouched.
func (s *Service) Seed(ctx context.Context, cfg SeedConfig) (*SeedResult, error) {
	rnd := rand.New(rand.NewSource(cfg.Seed))
	res := &SeedResult{}

	for _, name := range seedTestTypes {
		if err := s.testTypes.Create(ctx, &TestType{Name: name}); err != nil {
			return nil, fmt.Errorf("seed test type %s: %w", name, err)
		}
	}

	for i := 0; i < cfg.Count; i++ {
		lab := &Lab{
			ID:          seedID("lab", i),
			Name:        fmt.Sprintf("Lab %d Diagnostics", i+1),
			Location:    seedCities[rnd.Intn(len(seedCities))],
			Specialties: pick(rnd, seedLabSpecialties, 1+rnd.Intn(2)),
		}
		existing, err := s.labs.GetByID(ctx, lab.ID)
		switch {
		case err == nil:
			lab = existing
		case errors.Is(err, pgx.ErrNoRows):
			if err := s.labs.Create(ctx, lab); err != nil {
				return nil, fmt.Errorf("seed lab: %w", err)
			}
		default:
			return nil, err
		}
		res.Labs = append(res.Labs, lab)
	}

	for i := 0; i < cfg.Count; i++ {
		doc, err := s.seedUser(ctx, rnd, auth.RoleDoctor, i, func(u *User) {
			u.Specialty = seedSpecialties[rnd.Intn(len(seedSpecialties))]
		})
		if err != nil {
			return nil, err
		}
		res.Doctors = append(res.Doctors, doc)
	}

	for i := 0; i < cfg.Count; i++ {
		lab := res.Labs[i]
		staff, err := s.seedUser(ctx, rnd, auth.RoleLabStaff, i, func(u *User) {
			u.LabID = &lab.ID
			u.Location = lab.Location
			u.Specialties = lab.Specialties
		})
		if err != nil {
			return nil, err
		}
		res.LabStaff = append(res.LabStaff, staff)
	}

	for i := 0; i < cfg.Count; i++ {
		gp := res.Doctors[i]
		patient, err := s.seedUser(ctx, rnd, auth.RolePatient, i, func(u *User) {
			email := fmt.Sprintf("patient%d@example.com", i+1)
			u.GPID = &gp.ID
			u.Email = &email
			u.Phone = fmt.Sprintf("+44 7700 9%05d", rnd.Intn(100000))
			u.Location = seedCities[rnd.Intn(len(seedCities))]
		})
		if err != nil {
			return nil, err
		}
		res.Patients = append(res.Patients, patient)
	}

	return res, nil
}

func (s *Service) seedUser(ctx context.Context, rnd *rand.Rand, role auth.Role, i int, fill func(*User)) (*User, error) {
	prefix := map[auth.Role]string{
		auth.RoleDoctor:   "doctor",
		auth.RolePatient:  "patient",
		auth.RoleLabStaff: "labstaff",
	}[role]

	u := &User{
		ID:     seedID(prefix, i),
		Role:   role,
		Name:   fmt.Sprintf("%s%d", prefix, i+1),
		Gender: seedGenders[rnd.Intn(len(seedGenders))],
		Age:    18 + rnd.Intn(63),
	}
	fill(u)

	existing, err := s.users.GetByID(ctx, u.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("seed %s: %w", u.Name, err)
	}
	return u, nil
}

func pick(rnd *rand.Rand, from []string, n int) []string {
	idx := rnd.Perm(len(from))[:n]
	out := make([]string, n)
	for i, j := range idx {
		out[i] = from[j]
	}
	return out
}
