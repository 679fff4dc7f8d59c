package symptom

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Symptom struct {
	ID               uuid.UUID `json:"id"`
	PatientID        uuid.UUID `json:"patient_id"`
	Description      string    `json:"description"`
	Images           ImageList `json:"images"`
	Status           Status    `json:"status"`
	ConsentTreatment bool      `json:"consent_treatment"`
	ConsentReferral  bool      `json:"consent_referral"`
	ConsentResearch  bool      `json:"consent_research"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ImageList is an ordered list of blob locations. It decodes from a JSON
// array, a string holding a JSON array, or a comma-separated string, the
// shapes older clients sent.
type ImageList []string

func (l *ImageList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = NormalizeImages(list)
		return nil
	}
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*l = ImageList{}
		return nil
	}
	*l = ParseImages(*raw)
	return nil
}

func (l ImageList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

// ParseImages accepts a JSON array string or a comma-separated string.
func ParseImages(raw string) ImageList {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "[") {
		var list []string
		if err := json.Unmarshal([]byte(raw), &list); err == nil {
			return NormalizeImages(list)
		}
	}
	return NormalizeImages(strings.Split(raw, ","))
}

// NormalizeImages trims entries and drops empty ones, keeping order.
func NormalizeImages(in []string) ImageList {
	out := make(ImageList, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// HistoryFilter bounds a patient's history listing. To is exclusive.
type HistoryFilter struct {
	Status *Status
	From   *time.Time
	To     *time.Time
}

// HistoryEntry is a symptom with the consent purposes currently in force.
type HistoryEntry struct {
	*Symptom
	Consents []string `json:"consents"`
}
