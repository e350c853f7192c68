package filters

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kelsos/roomfinder/internal/models"
)

func testVocabulary() Vocabulary {
	return Vocabulary{
		Buildings:     []string{"Li Ka Shing Library", "School of Accountancy"},
		Floors:        []string{"Level 1", "Level 2"},
		FacilityTypes: []string{"Classroom", "Group Study Room"},
		Equipment:     []string{"Projector", "TV Panel"},
	}
}

func validRaw() RawQuery {
	return RawQuery{
		Buildings:     []string{"Li Ka Shing Library"},
		Floors:        []string{"Level 1"},
		FacilityTypes: []string{"Classroom"},
		Equipment:     []string{"Projector"},
	}
}

func TestValidate_Success(t *testing.T) {
	v := NewValidator(testVocabulary())

	raw := validRaw()
	raw.Floors = []string{"Level 2", " Level 1", "Level 2"}

	q, err := v.Validate(raw)
	require.NoError(t, err)
	require.Equal(t, []string{"Li Ka Shing Library"}, q.Buildings())
	require.Equal(t, []string{"Level 1", "Level 2"}, q.Floors())
	require.Equal(t, []string{"Classroom"}, q.FacilityTypes())
	require.Equal(t, []string{"Projector"}, q.Equipment())
}

func TestValidate_EmptyField(t *testing.T) {
	v := NewValidator(testVocabulary())

	for _, field := range []string{FieldBuildings, FieldFloors, FieldFacilityTypes, FieldEquipment} {
		raw := validRaw()
		switch field {
		case FieldBuildings:
			raw.Buildings = []string{}
		case FieldFloors:
			raw.Floors = nil
		case FieldFacilityTypes:
			raw.FacilityTypes = nil
		case FieldEquipment:
			raw.Equipment = []string{}
		}

		_, err := v.Validate(raw)
		var validationErr *models.ValidationError
		require.True(t, errors.As(err, &validationErr), field)
		require.Equal(t, field, validationErr.Field)
		require.Empty(t, validationErr.InvalidValues)
	}
}

func TestValidate_UnknownValues(t *testing.T) {
	v := NewValidator(testVocabulary())

	raw := validRaw()
	raw.Equipment = []string{"Projector", "Hologram", "Jukebox"}

	_, err := v.Validate(raw)
	var validationErr *models.ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Equal(t, FieldEquipment, validationErr.Field)
	require.Equal(t, []string{"Hologram", "Jukebox"}, validationErr.InvalidValues)
}

func TestValidate_ReportsFirstFailingField(t *testing.T) {
	v := NewValidator(testVocabulary())

	raw := validRaw()
	raw.Floors = []string{"Level 99"}
	raw.Equipment = nil

	_, err := v.Validate(raw)
	var validationErr *models.ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Equal(t, FieldFloors, validationErr.Field)
}

func TestValidate_CaseSensitive(t *testing.T) {
	v := NewValidator(testVocabulary())

	raw := validRaw()
	raw.FacilityTypes = []string{"classroom"}

	_, err := v.Validate(raw)
	require.Error(t, err)
}

func TestVocabularyIsCopied(t *testing.T) {
	vocab := testVocabulary()
	v := NewValidator(vocab)
	vocab.Buildings[0] = "Somewhere Else"

	_, err := v.Validate(validRaw())
	require.NoError(t, err)

	got := v.Vocabulary()
	got.Floors[0] = "Basement 9"
	require.Equal(t, "Level 1", v.Vocabulary().Floors[0])
}
