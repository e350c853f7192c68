package filters

import (
	"strings"

	"github.com/kelsos/roomfinder/internal/models"
)

const (
	FieldBuildings     = "buildings"
	FieldFloors        = "floors"
	FieldFacilityTypes = "facilityTypes"
	FieldEquipment     = "equipment"
)

// RawQuery is a submission as received from a caller.
type RawQuery struct {
	Buildings     []string
	Floors        []string
	FacilityTypes []string
	Equipment     []string
}

type Validator struct {
	vocabulary Vocabulary
	allowed    map[string]map[string]struct{}
}

func NewValidator(vocabulary Vocabulary) *Validator {
	vocabulary = vocabulary.Clone()
	return &Validator{
		vocabulary: vocabulary,
		allowed: map[string]map[string]struct{}{
			FieldBuildings:     toLookup(vocabulary.Buildings),
			FieldFloors:        toLookup(vocabulary.Floors),
			FieldFacilityTypes: toLookup(vocabulary.FacilityTypes),
			FieldEquipment:     toLookup(vocabulary.Equipment),
		},
	}
}

func toLookup(values []string) map[string]struct{} {
	lookup := make(map[string]struct{}, len(values))
	for _, v := range values {
		lookup[v] = struct{}{}
	}
	return lookup
}

// Vocabulary returns a copy of the configured enumerations.
func (v *Validator) Vocabulary() Vocabulary {
	return v.vocabulary.Clone()
}

// Validate checks every field in a fixed order and reports the first one that
// is empty or holds values outside the vocabulary. Surrounding whitespace is
// ignored; matching is otherwise exact.
func (v *Validator) Validate(raw RawQuery) (models.Query, error) {
	fields := []struct {
		name   string
		values []string
	}{
		{FieldBuildings, raw.Buildings},
		{FieldFloors, raw.Floors},
		{FieldFacilityTypes, raw.FacilityTypes},
		{FieldEquipment, raw.Equipment},
	}

	cleaned := make([][]string, len(fields))
	for i, field := range fields {
		values, err := v.check(field.name, field.values)
		if err != nil {
			return models.Query{}, err
		}
		cleaned[i] = values
	}

	return models.NewQuery(cleaned[0], cleaned[1], cleaned[2], cleaned[3]), nil
}

func (v *Validator) check(field string, values []string) ([]string, error) {
	if len(values) == 0 {
		return nil, &models.ValidationError{Field: field}
	}

	allowed := v.allowed[field]
	cleaned := make([]string, 0, len(values))
	var invalid []string
	for _, value := range values {
		value = strings.TrimSpace(value)
		if _, ok := allowed[value]; !ok {
			invalid = append(invalid, value)
			continue
		}
		cleaned = append(cleaned, value)
	}
	if len(invalid) > 0 {
		return nil, &models.ValidationError{Field: field, InvalidValues: invalid}
	}

	return cleaned, nil
}
