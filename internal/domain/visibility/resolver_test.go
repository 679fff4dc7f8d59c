package visibility

import (
	"testing"

	"github.com/google/uuid"

	"github.com/clinicflow/clinicflow/internal/platform/auth"
)

func TestResolve(t *testing.T) {
	patient := uuid.New()
	gp := uuid.New()
	specialist := uuid.New()
	base := Facts{PatientID: patient, GPID: gp}

	tests := []struct {
		name  string
		actor auth.Actor
		facts func(f Facts) Facts
		level Level
		label string
	}{
		{"owner", auth.Actor{ID: patient, Role: auth.RolePatient}, nil, FullView, LabelOwner},
		{"other patient", auth.Actor{ID: uuid.New(), Role: auth.RolePatient}, nil, NoAccess, ""},
		{"gp", auth.Actor{ID: gp, Role: auth.RoleDoctor}, nil, FullView, LabelTreatment},
		{"gp beats research", auth.Actor{ID: gp, Role: auth.RoleDoctor},
			func(f Facts) Facts { f.ConsentResearch = true; return f }, FullView, LabelTreatment},
		{"referral consent", auth.Actor{ID: specialist, Role: auth.RoleDoctor},
			func(f Facts) Facts { f.ReferralGranted = true; return f }, FullView, LabelReferral},
		{"referral record", auth.Actor{ID: specialist, Role: auth.RoleDoctor},
			func(f Facts) Facts { f.HasReferral = true; return f }, FullView, LabelReferral},
		{"referral revoked", auth.Actor{ID: specialist, Role: auth.RoleDoctor},
			func(f Facts) Facts { f.HasReferral = true; f.ReferralRevoked = true; return f }, NoAccess, ""},
		{"referral revoked falls back to research", auth.Actor{ID: specialist, Role: auth.RoleDoctor},
			func(f Facts) Facts {
				f.HasReferral = true
				f.ReferralRevoked = true
				f.ConsentResearch = true
				return f
			}, ResearchView, LabelResearch},
		{"research pool", auth.Actor{ID: specialist, Role: auth.RoleDoctor},
			func(f Facts) Facts { f.ConsentResearch = true; return f }, ResearchView, LabelResearch},
		{"unrelated doctor", auth.Actor{ID: specialist, Role: auth.RoleDoctor}, nil, NoAccess, ""},
		{"lab staff", auth.Actor{ID: uuid.New(), Role: auth.RoleLabStaff},
			func(f Facts) Facts { f.ConsentResearch = true; return f }, NoAccess, ""},
		{"unknown role", auth.Actor{ID: patient, Role: auth.Role("admin")}, nil, NoAccess, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := base
			if tt.facts != nil {
				f = tt.facts(f)
			}
			got := Resolve(tt.actor, f)
			if got.Level != tt.level || got.Label != tt.label {
				t.Errorf("Resolve() = %v/%q, want %v/%q", got.Level, got.Label, tt.level, tt.label)
			}
			if again := Resolve(tt.actor, f); again != got {
				t.Errorf("Resolve() is not stable: %v then %v", got, again)
			}
		})
	}
}

func TestLevel_String(t *testing.T) {
	if FullView.String() != "full" || ResearchView.String() != "research" || NoAccess.String() != "none" {
		t.Error("unexpected level names")
	}
	if !(Access{Level: FullView}).AtLeast(ResearchView) {
		t.Error("full view should satisfy research view")
	}
}
