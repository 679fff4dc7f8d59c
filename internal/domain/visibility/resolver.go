// Package visibility decides how much of a symptom an actor may see.
package visibility

import (
	"github.com/google/uuid"

	"github.com/clinicflow/clinicflow/internal/platform/auth"
)

type Level int

const (
	NoAccess Level = iota
	ResearchView
	FullView
)

func (l Level) String() string {
	switch l {
	case FullView:
		return "full"
	case ResearchView:
		return "research"
	default:
		return "none"
	}
}

const (
	LabelOwner     = "owner"
	LabelTreatment = "treatment"
	LabelReferral  = "referral"
	LabelResearch  = "research"
)

// Access is the outcome of a visibility decision. Label names the grant
// that produced it and is empty for NoAccess.
type Access struct {
	Level Level  `json:"-"`
	Label string `json:"label,omitempty"`
}

func (a Access) AtLeast(l Level) bool { return a.Level >= l }

// Facts are everything Resolve looks at. Referral fields are relative to the
// actor being resolved.
type Facts struct {
	PatientID       uuid.UUID
	GPID            uuid.UUID
	ConsentResearch bool
	// ReferralGranted: an active REFERRAL consent names the actor.
	ReferralGranted bool
	// ReferralRevoked: a REFERRAL consent naming the actor was revoked.
	ReferralRevoked bool
	// HasReferral: a Referral record targets the actor.
	HasReferral bool
}

// Resolve applies the access rules in precedence order. It has no side
// effects.
func Resolve(actor auth.Actor, f Facts) Access {
	switch actor.Role {
	case auth.RolePatient:
		if actor.ID == f.PatientID {
			return Access{Level: FullView, Label: LabelOwner}
		}
		return Access{Level: NoAccess}
	case auth.RoleDoctor:
		if f.GPID != uuid.Nil && actor.ID == f.GPID {
			return Access{Level: FullView, Label: LabelTreatment}
		}
		if f.ReferralGranted || (f.HasReferral && !f.ReferralRevoked) {
			return Access{Level: FullView, Label: LabelReferral}
		}
		if f.ConsentResearch {
			return Access{Level: ResearchView, Label: LabelResearch}
		}
		return Access{Level: NoAccess}
	case auth.RoleLabStaff:
		return Access{Level: NoAccess}
	default:
		return Access{Level: NoAccess}
	}
}
