package models

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Query is a validated set of portal filters. The zero value is an empty query;
// values are only built through NewQuery and never change afterwards.
type Query struct {
	buildings     []string
	floors        []string
	facilityTypes []string
	equipment     []string
}

// NewQuery copies, deduplicates and sorts each filter set.
func NewQuery(buildings, floors, facilityTypes, equipment []string) Query {
	return Query{
		buildings:     toSet(buildings),
		floors:        toSet(floors),
		facilityTypes: toSet(facilityTypes),
		equipment:     toSet(equipment),
	}
}

func toSet(values []string) []string {
	set := slices.Clone(values)
	slices.Sort(set)
	return slices.Compact(set)
}

func (q Query) Buildings() []string     { return slices.Clone(q.buildings) }
func (q Query) Floors() []string        { return slices.Clone(q.floors) }
func (q Query) FacilityTypes() []string { return slices.Clone(q.facilityTypes) }
func (q Query) Equipment() []string     { return slices.Clone(q.equipment) }

func (q Query) String() string {
	return fmt.Sprintf(
		"buildings=[%s] floors=[%s] facility_types=[%s] equipment=[%s]",
		strings.Join(q.buildings, ", "),
		strings.Join(q.floors, ", "),
		strings.Join(q.facilityTypes, ", "),
		strings.Join(q.equipment, ", "),
	)
}

func (q Query) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Buildings     []string `json:"buildings"`
		Floors        []string `json:"floors"`
		FacilityTypes []string `json:"facilityTypes"`
		Equipment     []string `json:"equipment"`
	}{q.buildings, q.floors, q.facilityTypes, q.equipment})
}
