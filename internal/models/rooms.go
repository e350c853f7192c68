package models

import (
	"fmt"
	"strings"
)

type Timeslot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
	Status    string `json:"status"`
}

type RoomAvailability struct {
	Room      string     `json:"-"`
	Timeslots []Timeslot `json:"timeslots"`
}

// Result maps a room name to its timeline. A Result is never modified once
// it has been stored on a task, so pollers share it without copying.
type Result map[string]RoomAvailability

// RawSlot is a single interval as reported by the booking adapter, before
// the status label has been derived.
type RawSlot struct {
	Time      string
	Available bool
	Qualifier string
}

// RawResult is the adapter's answer for one query, keyed by room.
type RawResult map[string][]RawSlot

const (
	QualifierNotAvailable = "not-available"
	QualifierReserved     = "reserved"
	QualifierMaintenance  = "maintenance"
)

// StatusLabels derives the human readable status of a slot from its
// availability and the adapter-supplied qualifier.
type StatusLabels struct {
	Available  string            `json:"available"`
	Booked     string            `json:"booked"`
	Qualifiers map[string]string `json:"qualifiers"`
}

func DefaultStatusLabels() StatusLabels {
	return StatusLabels{
		Available: "Available",
		Booked:    "Booked",
		Qualifiers: map[string]string{
			QualifierNotAvailable: "Not Available",
			QualifierReserved:     "Reserved",
			QualifierMaintenance:  "Under Maintenance",
		},
	}
}

// Label returns the status for a slot. Available slots carry no qualifier;
// an unknown qualifier is an error rather than a guess.
func (l StatusLabels) Label(available bool, qualifier string) (string, error) {
	qualifier = strings.ToLower(strings.TrimSpace(qualifier))
	if available {
		if qualifier != "" {
			return "", fmt.Errorf("available slot carries qualifier %q", qualifier)
		}
		return l.Available, nil
	}
	if qualifier == "" {
		return l.Booked, nil
	}
	label, ok := l.Qualifiers[qualifier]
	if !ok {
		return "", fmt.Errorf("unknown slot qualifier %q", qualifier)
	}
	return label, nil
}
