package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicflow/clinicflow/internal/platform/auth"
)

// User is any actor of the system. Role-specific fields are zero for other roles:
// Specialty for doctors, GPID for patients, LabID and Specialties for lab staff.
type User struct {
	ID          uuid.UUID  `json:"id"`
	Role        auth.Role  `json:"role"`
	Name        string     `json:"name"`
	Gender      string     `json:"gender,omitempty"`
	Age         int        `json:"age,omitempty"`
	Email       *string    `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Location    string     `json:"location,omitempty"`
	Specialty   string     `json:"specialty,omitempty"`
	GPID        *uuid.UUID `json:"gp_id,omitempty"`
	LabID       *uuid.UUID `json:"lab_id,omitempty"`
	Specialties []string   `json:"specialties,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type Lab struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Location    string    `json:"location"`
	Specialties []string  `json:"specialties"`
	CreatedAt   time.Time `json:"created_at"`
}

type TestType struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// DoctorSummary is the directory entry shown when picking a referral target.
type DoctorSummary struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Specialty string    `json:"specialty"`
}
