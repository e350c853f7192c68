package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/kelsos/roomfinder/internal/api/dto"
	"github.com/kelsos/roomfinder/internal/config"
	"github.com/kelsos/roomfinder/internal/logger"
	"github.com/kelsos/roomfinder/internal/models"
	"github.com/kelsos/roomfinder/internal/telemetry"
)

// APIError is a non-2xx answer from the roomfinder API
type APIError struct {
	StatusCode int
	Body       dto.ErrorBody
}

func (e *APIError) Error() string {
	if e.Body.Kind == "" {
		return fmt.Sprintf("HTTP error %d: %s", e.StatusCode, e.Body.Message)
	}
	return fmt.Sprintf("%s (HTTP %d): %s", e.Body.Kind, e.StatusCode, e.Body.Message)
}

// IsNotFound reports whether err is a 404 from the API
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}

// APIClient handles all HTTP communication with the roomfinder API
type APIClient struct {
	config *config.Config
	http   *resty.Client
}

// NewAPIClient creates a new API client with the given configuration
func NewAPIClient(cfg *config.Config) *APIClient {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.ServerURL, "/")).
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json")

	telemetry.InstrumentResty(httpClient, "roomfinder/client")

	return &APIClient{config: cfg, http: httpClient}
}

// Submit starts a scrape and returns its task id
func (c *APIClient) Submit(ctx context.Context, req dto.SubmitRequest) (string, error) {
	var out dto.SubmitResponse
	if err := c.request(ctx, resty.MethodPost, "/api/scrape", req, &out); err != nil {
		return "", err
	}
	if out.TaskID == "" {
		return "", fmt.Errorf("server returned no task id")
	}
	return out.TaskID, nil
}

// Status returns the current snapshot of a task
func (c *APIClient) Status(ctx context.Context, taskID string) (dto.TaskResponse, error) {
	var out dto.TaskResponse
	err := c.request(ctx, resty.MethodGet, "/api/scrape/"+url.PathEscape(taskID), nil, &out)
	return out, err
}

// Cancel asks the server to stop a task
func (c *APIClient) Cancel(ctx context.Context, taskID string) (dto.TaskResponse, error) {
	var out dto.TaskResponse
	err := c.request(ctx, resty.MethodDelete, "/api/scrape/"+url.PathEscape(taskID), nil, &out)
	return out, err
}

// Filters returns the values the server accepts for each filter
func (c *APIClient) Filters(ctx context.Context) (dto.FiltersResponse, error) {
	var out dto.FiltersResponse
	err := c.request(ctx, resty.MethodGet, "/api/filters", nil, &out)
	return out, err
}

// request is the core HTTP request method
func (c *APIClient) request(ctx context.Context, method, endpoint string, body, result any) error {
	start := time.Now()
	logger.Debug("Starting %s request to %s", method, endpoint)

	req := c.http.R().
		SetContext(ctx).
		SetError(&dto.ErrorResponse{})
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	res, err := req.Execute(method, endpoint)
	if err != nil {
		logger.Error("Request to %s failed after %v: %v", endpoint, time.Since(start), err)
		return fmt.Errorf("request failed: %w", err)
	}

	logger.Debug("Request to %s completed in %v with status %d", endpoint, time.Since(start), res.StatusCode())

	if res.IsError() {
		apiErr := &APIError{StatusCode: res.StatusCode()}
		if body, ok := res.Error().(*dto.ErrorResponse); ok && body.Error.Kind != "" {
			apiErr.Body = body.Error
		} else {
			apiErr.Body.Message = strings.TrimSpace(string(res.Body()))
		}
		return apiErr
	}

	return nil
}

// Ping checks if the API is ready
func (c *APIClient) Ping(ctx context.Context) error {
	var out dto.HealthResponse
	if err := c.request(ctx, resty.MethodGet, "/healthz", nil, &out); err != nil {
		return err
	}
	if out.Status != "ok" {
		return fmt.Errorf("health check reported %q", out.Status)
	}
	return nil
}

// WaitForAPIReady waits for the API to become ready
func (c *APIClient) WaitForAPIReady(ctx context.Context, attempts int) bool {
	logger.Debug("Checking API readiness...")

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.Ping(ctx); err == nil {
			logger.Debug("API is ready!")
			return true
		}
		logger.Debug("API not ready (attempt %d/%d)", attempt, attempts)

		select {
		case <-ctx.Done():
			return false
		case <-time.After(c.config.PollInterval):
		}
	}

	logger.Error("API at %s failed to become ready after %d attempts", c.config.ServerURL, attempts)
	return false
}

// IsTerminal reports whether a wire state is final
func IsTerminal(state string) bool {
	return models.TaskState(state).IsTerminal()
}

// WaitForResult polls a task until it is completed or failed. onChange, if
// set, is called with the first snapshot and whenever the state changes.
func (c *APIClient) WaitForResult(ctx context.Context, taskID string, onChange func(dto.TaskResponse)) (dto.TaskResponse, error) {
	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	lastState := ""
	for {
		task, err := c.Status(ctx, taskID)
		if err != nil {
			return dto.TaskResponse{}, err
		}

		if task.State != lastState {
			lastState = task.State
			if onChange != nil {
				onChange(task)
			}
		}
		if IsTerminal(task.State) {
			return task, nil
		}

		select {
		case <-ctx.Done():
			return task, ctx.Err()
		case <-ticker.C:
		}
	}
}
