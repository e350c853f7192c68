package filters

import "slices"

// Vocabulary is the deployment-specific list of values each filter accepts.
type Vocabulary struct {
	Buildings     []string `json:"buildings"`
	Floors        []string `json:"floors"`
	FacilityTypes []string `json:"facility_types"`
	Equipment     []string `json:"equipment"`
}

// Empty reports whether any of the four enumerations has no values.
func (v Vocabulary) Empty() bool {
	return len(v.Buildings) == 0 || len(v.Floors) == 0 ||
		len(v.FacilityTypes) == 0 || len(v.Equipment) == 0
}

func (v Vocabulary) Clone() Vocabulary {
	return Vocabulary{
		Buildings:     slices.Clone(v.Buildings),
		Floors:        slices.Clone(v.Floors),
		FacilityTypes: slices.Clone(v.FacilityTypes),
		Equipment:     slices.Clone(v.Equipment),
	}
}
