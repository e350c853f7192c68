package availability

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/kelsos/roomfinder/internal/models"
)

func requireParseFailure(t *testing.T, err error) {
	t.Helper()
	var adapterErr *models.AdapterError
	require.True(t, errors.As(err, &adapterErr), "expected adapter error, got %v", err)
	require.Equal(t, models.KindParseFailure, adapterErr.Kind)
}

func TestNormalize(t *testing.T) {
	raw := models.RawResult{
		"LKS-101": {
			{Time: "10:00", Available: false},
			{Time: "09:00", Available: true},
		},
		" LKS-102 ": {
			{Time: "11:00-11:30", Available: false, Qualifier: models.QualifierMaintenance},
			{Time: "08:30-11:00", Available: false, Qualifier: models.QualifierNotAvailable},
		},
	}

	result, err := Normalize(raw, models.DefaultStatusLabels())
	require.NoError(t, err)

	expected := models.Result{
		"LKS-101": {
			Room: "LKS-101",
			Timeslots: []models.Timeslot{
				{Time: "09:00", Available: true, Status: "Available"},
				{Time: "10:00", Available: false, Status: "Booked"},
			},
		},
		"LKS-102": {
			Room: "LKS-102",
			Timeslots: []models.Timeslot{
				{Time: "08:30-11:00", Available: false, Status: "Not Available"},
				{Time: "11:00-11:30", Available: false, Status: "Under Maintenance"},
			},
		},
	}
	if diff := cmp.Diff(expected, result); diff != "" {
		t.Fatalf("unexpected result (-want +got):\n%s", diff)
	}
}

func TestNormalize_EmptyResult(t *testing.T) {
	result, err := Normalize(models.RawResult{}, models.DefaultStatusLabels())
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Empty(t, result)
}

func TestNormalize_Rejects(t *testing.T) {
	testCases := map[string]models.RawResult{
		"nil result":         nil,
		"empty room name":    {"  ": {{Time: "09:00", Available: true}}},
		"duplicate rooms":    {"A": {}, "A ": {}},
		"bad time label":     {"A": {{Time: "morning", Available: true}}},
		"empty time label":   {"A": {{Time: "", Available: true}}},
		"duplicate start":    {"A": {{Time: "09:00", Available: true}, {Time: "09:00-09:30", Available: false}}},
		"unknown qualifier":  {"A": {{Time: "09:00", Available: false, Qualifier: "flooded"}}},
		"qualified and free": {"A": {{Time: "09:00", Available: true, Qualifier: "reserved"}}},
	}

	for name, raw := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := Normalize(raw, models.DefaultStatusLabels())
			requireParseFailure(t, err)
		})
	}
}

func TestNormalize_ISOLabels(t *testing.T) {
	raw := models.RawResult{
		"A": {
			{Time: "2025-06-07T10:00:00+08:00", Available: true},
			{Time: "2025-06-07T09:00:00+08:00", Available: false},
		},
	}

	result, err := Normalize(raw, models.DefaultStatusLabels())
	require.NoError(t, err)
	require.Equal(t, "2025-06-07T09:00:00+08:00", result["A"].Timeslots[0].Time)
}

func TestNormalize_CustomLabels(t *testing.T) {
	labels := models.DefaultStatusLabels()
	labels.Booked = "Taken"

	result, err := Normalize(models.RawResult{"A": {{Time: "09:00"}}}, labels)
	require.NoError(t, err)
	require.Equal(t, "Taken", result["A"].Timeslots[0].Status)
}
