package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kelsos/roomfinder/internal/api/dto"
	"github.com/kelsos/roomfinder/internal/async"
	"github.com/kelsos/roomfinder/internal/filters"
	"github.com/kelsos/roomfinder/internal/logger"
	"github.com/kelsos/roomfinder/internal/models"
)

const maxRequestBody = 1 << 20

// Error kinds that only exist on the wire.
const (
	kindValidation  = "ValidationError"
	kindBadRequest  = "BadRequest"
	kindNotFound    = "NotFound"
	kindConflict    = "Conflict"
	kindUnavailable = "Unavailable"
	kindInternal    = string(models.KindInternal)
)

type TaskService interface {
	Submit(ctx context.Context, raw filters.RawQuery) (string, error)
	GetStatus(id string) (models.TaskView, error)
	Cancel(id string) (models.TaskView, error)
}

type TaskHandler struct {
	tasks      TaskService
	vocabulary filters.Vocabulary
}

func NewTaskHandler(tasks TaskService, vocabulary filters.Vocabulary) *TaskHandler {
	return &TaskHandler{tasks: tasks, vocabulary: vocabulary.Clone()}
}

// POST /api/scrape
func (h *TaskHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req dto.SubmitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, dto.ErrorBody{Kind: kindBadRequest, Message: "invalid request body: " + err.Error()})
		return
	}

	id, err := h.tasks.Submit(r.Context(), filters.RawQuery{
		Buildings:     req.Buildings,
		Floors:        req.Floors,
		FacilityTypes: req.FacilityTypeValues(),
		Equipment:     req.Equipment,
	})
	if err != nil {
		var validationErr *models.ValidationError
		switch {
		case errors.As(err, &validationErr):
			writeError(w, http.StatusBadRequest, dto.ErrorBody{
				Kind:          kindValidation,
				Message:       validationErr.Error(),
				Field:         validationErr.Field,
				InvalidValues: validationErr.InvalidValues,
			})
		case errors.Is(err, async.ErrClosed):
			writeError(w, http.StatusServiceUnavailable, dto.ErrorBody{Kind: kindUnavailable, Message: err.Error()})
		default:
			logger.Error("Submitting task failed: %v", err)
			writeError(w, http.StatusInternalServerError, dto.ErrorBody{Kind: kindInternal, Message: "failed submitting task"})
		}
		return
	}

	writeJSON(w, http.StatusOK, dto.SubmitResponse{TaskID: id})
}

// GET /api/scrape/{task_id}
func (h *TaskHandler) Status(w http.ResponseWriter, r *http.Request) {
	view, err := h.tasks.GetStatus(r.PathValue("task_id"))
	if err != nil {
		h.writeTaskError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, taskResponse(view))
}

// DELETE /api/scrape/{task_id}
func (h *TaskHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	view, err := h.tasks.Cancel(r.PathValue("task_id"))
	if err != nil {
		h.writeTaskError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, taskResponse(view))
}

// GET /api/filters
func (h *TaskHandler) Filters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.FiltersResponse{
		Buildings:     h.vocabulary.Buildings,
		Floors:        h.vocabulary.Floors,
		FacilityTypes: h.vocabulary.FacilityTypes,
		Equipment:     h.vocabulary.Equipment,
	})
}

// GET /healthz
func (h *TaskHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.HealthResponse{Status: "ok"})
}

func (h *TaskHandler) writeTaskError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, async.ErrNotFound):
		writeError(w, http.StatusNotFound, dto.ErrorBody{Kind: kindNotFound, Message: err.Error()})
	case errors.Is(err, async.ErrTaskFinished):
		writeError(w, http.StatusConflict, dto.ErrorBody{Kind: kindConflict, Message: err.Error()})
	default:
		logger.Error("Reading task failed: %v", err)
		writeError(w, http.StatusInternalServerError, dto.ErrorBody{Kind: kindInternal, Message: "failed reading task"})
	}
}

func taskResponse(view models.TaskView) dto.TaskResponse {
	response := dto.TaskResponse{
		TaskID:    view.ID,
		State:     string(view.State),
		CreatedAt: view.CreatedAt,
	}
	if !view.StartedAt.IsZero() {
		startedAt := view.StartedAt
		response.StartedAt = &startedAt
	}
	if !view.CompletedAt.IsZero() {
		completedAt := view.CompletedAt
		response.CompletedAt = &completedAt
	}

	switch view.State {
	case models.TaskStateCompleted:
		result := make(dto.ResultResponse, len(view.Result))
		for room, availability := range view.Result {
			timeslots := make([]dto.TimeslotResponse, len(availability.Timeslots))
			for i, slot := range availability.Timeslots {
				timeslots[i] = dto.TimeslotResponse{Time: slot.Time, Available: slot.Available, Status: slot.Status}
			}
			result[room] = dto.RoomResponse{Timeslots: timeslots}
		}
		response.Result = &result
	case models.TaskStateFailed:
		if view.Error != nil {
			response.Error = &dto.TaskErrorResponse{Kind: string(view.Error.Kind), Message: view.Error.Message}
		}
	}

	return response
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("Writing response failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, body dto.ErrorBody) {
	writeJSON(w, status, dto.ErrorResponse{Error: body})
}
