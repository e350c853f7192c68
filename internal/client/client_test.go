package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelsos/roomfinder/internal/api/dto"
	"github.com/kelsos/roomfinder/internal/config"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newTestClient(t *testing.T, handler http.Handler) *APIClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.NewConfig()
	cfg.ServerURL = server.URL
	cfg.PollInterval = 5 * time.Millisecond
	return NewAPIClient(cfg)
}

func TestAPIClient_Submit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/scrape", func(w http.ResponseWriter, r *http.Request) {
		var req dto.SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: dto.ErrorBody{Kind: "BadRequest"}})
			return
		}
		if len(req.Buildings) != 1 || req.Buildings[0] != "Li Ka Shing Library" {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: dto.ErrorBody{
				Kind:          "ValidationError",
				Message:       "buildings: unknown values",
				Field:         "buildings",
				InvalidValues: req.Buildings,
			}})
			return
		}
		writeJSON(w, http.StatusOK, dto.SubmitResponse{TaskID: "task-1"})
	})
	c := newTestClient(t, mux)

	id, err := c.Submit(context.Background(), dto.SubmitRequest{Buildings: []string{"Li Ka Shing Library"}})
	require.NoError(t, err)
	assert.Equal(t, "task-1", id)

	_, err = c.Submit(context.Background(), dto.SubmitRequest{Buildings: []string{"Atlantis"}})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "ValidationError", apiErr.Body.Kind)
	assert.Equal(t, "buildings", apiErr.Body.Field)
	assert.Equal(t, []string{"Atlantis"}, apiErr.Body.InvalidValues)
}

func TestAPIClient_StatusNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/scrape/{task_id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: dto.ErrorBody{Kind: "NotFound", Message: "task not found"}})
	})
	c := newTestClient(t, mux)

	_, err := c.Status(context.Background(), "missing")
	assert.True(t, IsNotFound(err))
}

func TestAPIClient_WaitForResult(t *testing.T) {
	var polls atomic.Int32
	states := []string{"pending", "running", "running", "completed"}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/scrape/{task_id}", func(w http.ResponseWriter, r *http.Request) {
		n := int(polls.Add(1)) - 1
		if n >= len(states) {
			n = len(states) - 1
		}
		response := dto.TaskResponse{TaskID: r.PathValue("task_id"), State: states[n]}
		if states[n] == "completed" {
			result := dto.ResultResponse{"LKS-101": {Timeslots: []dto.TimeslotResponse{{Time: "09:00", Available: true, Status: "Available"}}}}
			response.Result = &result
		}
		writeJSON(w, http.StatusOK, response)
	})
	c := newTestClient(t, mux)

	var seen []string
	task, err := c.WaitForResult(context.Background(), "task-1", func(task dto.TaskResponse) {
		seen = append(seen, task.State)
	})
	require.NoError(t, err)
	assert.Equal(t, "completed", task.State)
	require.NotNil(t, task.Result)
	assert.Contains(t, *task.Result, "LKS-101")
	assert.Equal(t, []string{"pending", "running", "completed"}, seen)
}

func TestAPIClient_WaitForResultCancelled(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/scrape/{task_id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, dto.TaskResponse{TaskID: "task-1", State: "running"})
	})
	c := newTestClient(t, mux)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := c.WaitForResult(ctx, "task-1", nil)
	assert.Error(t, err)
}

func TestAPIClient_CancelAndFilters(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/scrape/{task_id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, dto.TaskResponse{
			TaskID: r.PathValue("task_id"),
			State:  "failed",
			Error:  &dto.TaskErrorResponse{Kind: "Cancelled", Message: "cancelled by caller"},
		})
	})
	mux.HandleFunc("GET /api/filters", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, dto.FiltersResponse{Buildings: []string{"Li Ka Shing Library"}})
	})
	c := newTestClient(t, mux)

	task, err := c.Cancel(context.Background(), "task-9")
	require.NoError(t, err)
	assert.Equal(t, "task-9", task.TaskID)
	require.NotNil(t, task.Error)
	assert.Equal(t, "Cancelled", task.Error.Kind)

	filters, err := c.Filters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Li Ka Shing Library"}, filters.Buildings)
}

func TestAPIClient_WaitForAPIReady(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, dto.HealthResponse{Status: "ok"})
	})
	c := newTestClient(t, mux)

	assert.True(t, c.WaitForAPIReady(context.Background(), 5))
	assert.EqualValues(t, 3, calls.Load())
}

func TestAPIClient_PlainTextError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))

	_, err := c.Filters(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "bad gateway", apiErr.Body.Message)
}
