package dto

import "time"

type SubmitRequest struct {
	Buildings     []string `json:"buildings"`
	Floors        []string `json:"floors"`
	FacilityTypes []string `json:"facilityTypes"`
	// FacilityTypesAlias accepts the snake case key sent by older clients.
	FacilityTypesAlias []string `json:"facility_types,omitempty"`
	Equipment          []string `json:"equipment"`
}

// FacilityTypeValues prefers facilityTypes and falls back to facility_types.
func (r SubmitRequest) FacilityTypeValues() []string {
	if r.FacilityTypes != nil {
		return r.FacilityTypes
	}
	return r.FacilityTypesAlias
}

type SubmitResponse struct {
	TaskID string `json:"task_id"`
}

type TimeslotResponse struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
	Status    string `json:"status"`
}

type RoomResponse struct {
	Timeslots []TimeslotResponse `json:"timeslots"`
}

type ResultResponse map[string]RoomResponse

type TaskErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type TaskResponse struct {
	TaskID      string             `json:"task_id"`
	State       string             `json:"state"`
	Result      *ResultResponse    `json:"result,omitempty"`
	Error       *TaskErrorResponse `json:"error,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	StartedAt   *time.Time         `json:"started_at,omitempty"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
}

type FiltersResponse struct {
	Buildings     []string `json:"buildings"`
	Floors        []string `json:"floors"`
	FacilityTypes []string `json:"facilityTypes"`
	Equipment     []string `json:"equipment"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorBody struct {
	Kind          string   `json:"kind"`
	Message       string   `json:"message"`
	Field         string   `json:"field,omitempty"`
	InvalidValues []string `json:"invalid_values,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}
