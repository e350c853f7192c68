package async

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/semaphore"

	"github.com/kelsos/roomfinder/internal/availability"
	"github.com/kelsos/roomfinder/internal/filters"
	"github.com/kelsos/roomfinder/internal/logger"
	"github.com/kelsos/roomfinder/internal/models"
	"github.com/kelsos/roomfinder/internal/store"
)

var tracer = otel.Tracer("roomfinder/async")

// Adapter fetches room availability from the booking system. Implementations
// must honour ctx and report partial failures as errors.
type Adapter interface {
	Fetch(ctx context.Context, query models.Query) (models.RawResult, error)
}

type Options struct {
	// FetchTimeout bounds a single adapter call.
	FetchTimeout time.Duration
	// MaxConcurrent limits how many adapter calls run at once; extra tasks
	// stay pending until a slot frees up.
	MaxConcurrent int
	// Retention is how long terminal tasks stay pollable. Zero keeps them
	// for the life of the process.
	Retention     time.Duration
	SweepInterval time.Duration
	StatusLabels  models.StatusLabels
}

type TaskManager struct {
	store     *store.TaskStore
	validator *filters.Validator
	adapter   Adapter
	opts      Options
	slots     *semaphore.Weighted
	metrics   instruments
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running map[string]context.CancelFunc
	closed  bool
}

func NewTaskManager(taskStore *store.TaskStore, validator *filters.Validator, adapter Adapter, opts Options) (*TaskManager, error) {
	if taskStore == nil {
		return nil, ErrStoreNil
	}
	if validator == nil {
		return nil, ErrValidatorNil
	}
	if adapter == nil {
		return nil, ErrAdapterNil
	}
	if opts.FetchTimeout <= 0 {
		return nil, fmt.Errorf("fetch timeout must be positive, got: %s", opts.FetchTimeout)
	}
	if opts.MaxConcurrent <= 0 {
		return nil, fmt.Errorf("max concurrent must be positive, got: %d", opts.MaxConcurrent)
	}

	metrics, err := newInstruments()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	tm := &TaskManager{
		store:     taskStore,
		validator: validator,
		adapter:   adapter,
		opts:      opts,
		slots:     semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		metrics:   metrics,
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
		running:   make(map[string]context.CancelFunc),
	}

	if opts.Retention > 0 && opts.SweepInterval > 0 {
		tm.wg.Add(1)
		go tm.sweep()
	}

	return tm, nil
}

// Submit validates the filters, records a pending task and starts its
// execution in the background. It returns as soon as the task exists.
func (tm *TaskManager) Submit(ctx context.Context, raw filters.RawQuery) (string, error) {
	ctx, span := tracer.Start(ctx, "Submit")
	defer span.End()

	query, err := tm.validator.Validate(raw)
	if err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return "", err
	}

	tm.mu.Lock()
	if tm.closed {
		tm.mu.Unlock()
		return "", ErrClosed
	}
	task := tm.store.Create(query)
	taskCtx, cancel := context.WithCancel(tm.ctx)
	tm.running[task.ID] = cancel
	tm.wg.Add(1)
	tm.mu.Unlock()

	span.SetAttributes(attribute.String("task.id", task.ID))
	tm.metrics.submitted.Add(ctx, 1)
	logger.Info("Task %s submitted: %s", task.ID, query)

	go tm.execute(taskCtx, task)

	return task.ID, nil
}

// GetStatus returns a snapshot of the task. Snapshots of terminal tasks never
// change.
func (tm *TaskManager) GetStatus(id string) (models.TaskView, error) {
	task, ok := tm.store.Get(id)
	if !ok {
		return models.TaskView{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return task.View(), nil
}

// Cancel fails a pending or running task with the Cancelled kind. Cancelling
// a finished task returns its snapshot together with ErrTaskFinished.
func (tm *TaskManager) Cancel(id string) (models.TaskView, error) {
	task, err := tm.store.Update(id, func(task *models.Task) error {
		if task.State.IsTerminal() {
			return ErrTaskFinished
		}
		task.State = models.TaskStateFailed
		task.Error = &models.TaskError{Kind: models.KindCancelled, Message: "cancelled by caller"}
		task.CompletedAt = tm.now()
		return nil
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		return models.TaskView{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	case errors.Is(err, ErrTaskFinished):
		return task.View(), err
	case err != nil:
		return models.TaskView{}, err
	}

	tm.mu.Lock()
	if cancel, ok := tm.running[id]; ok {
		cancel()
	}
	tm.mu.Unlock()

	tm.metrics.finished(tm.ctx, task)
	logger.Info("Task %s cancelled", id)
	return task.View(), nil
}

// Close stops accepting submissions, cancels every unfinished task and waits
// for background work to wind down or for ctx to expire.
func (tm *TaskManager) Close(ctx context.Context) error {
	tm.mu.Lock()
	tm.closed = true
	tm.mu.Unlock()

	tm.cancel()

	done := make(chan struct{})
	go func() {
		tm.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for tasks to stop: %w", ctx.Err())
	}
}

func (tm *TaskManager) forget(id string) {
	tm.mu.Lock()
	if cancel, ok := tm.running[id]; ok {
		cancel()
		delete(tm.running, id)
	}
	tm.mu.Unlock()
}

func (tm *TaskManager) execute(ctx context.Context, task models.Task) {
	defer tm.wg.Done()
	defer tm.forget(task.ID)
	defer func() {
		if r := recover(); r != nil {
			tm.fail(task.ID, models.TaskError{Kind: models.KindInternal, Message: fmt.Sprintf("panic: %v", r)})
		}
	}()

	if err := tm.slots.Acquire(ctx, 1); err != nil {
		tm.fail(task.ID, models.ClassifyError(err))
		return
	}
	defer tm.slots.Release(1)

	if _, err := tm.store.Update(task.ID, func(t *models.Task) error {
		t.State = models.TaskStateRunning
		t.StartedAt = tm.now()
		return nil
	}); err != nil {
		// cancelled while waiting for a slot
		logger.Debug("Task %s not started: %v", task.ID, err)
		return
	}
	logger.Info("Task %s running", task.ID)

	result, taskErr := tm.fetch(ctx, task)
	if taskErr != nil {
		tm.fail(task.ID, *taskErr)
		return
	}
	tm.complete(task.ID, result)
}

type fetchOutcome struct {
	raw models.RawResult
	err error
}

// fetch runs the adapter under the fetch timeout. The adapter is called on its
// own goroutine so that a call that ignores its context still cannot keep the
// task running past the deadline.
func (tm *TaskManager) fetch(ctx context.Context, task models.Task) (models.Result, *models.TaskError) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("task.id", task.ID))

	fetchCtx, cancel := context.WithTimeout(ctx, tm.opts.FetchTimeout)
	defer cancel()

	start := tm.now()
	done := make(chan fetchOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fetchOutcome{err: fmt.Errorf("adapter panic: %v", r)}
			}
		}()
		raw, err := tm.adapter.Fetch(fetchCtx, task.Query)
		done <- fetchOutcome{raw: raw, err: err}
	}()

	var out fetchOutcome
	select {
	case out = <-done:
	case <-fetchCtx.Done():
		out.err = fetchCtx.Err()
	}
	tm.metrics.fetchDuration.Record(ctx, tm.now().Sub(start).Seconds())

	if out.err != nil {
		taskErr := tm.classify(ctx, fetchCtx, out.err)
		span.RecordError(out.err)
		span.SetStatus(codes.Error, string(taskErr.Kind))
		return nil, &taskErr
	}

	result, err := availability.Normalize(out.raw, tm.opts.StatusLabels)
	if err != nil {
		taskErr := models.ClassifyError(err)
		span.SetStatus(codes.Error, string(taskErr.Kind))
		return nil, &taskErr
	}

	span.SetAttributes(attribute.Int("rooms", len(result)))
	return result, nil
}

func (tm *TaskManager) classify(taskCtx, fetchCtx context.Context, err error) models.TaskError {
	switch {
	case taskCtx.Err() != nil:
		return models.TaskError{Kind: models.KindCancelled, Message: "task cancelled"}
	case errors.Is(fetchCtx.Err(), context.DeadlineExceeded):
		return models.TaskError{
			Kind:    models.KindTimeout,
			Message: fmt.Sprintf("booking portal did not answer within %s", tm.opts.FetchTimeout),
		}
	default:
		return models.ClassifyError(err)
	}
}

func (tm *TaskManager) complete(id string, result models.Result) {
	task, err := tm.store.Update(id, func(t *models.Task) error {
		t.State = models.TaskStateCompleted
		t.Result = result
		t.CompletedAt = tm.now()
		return nil
	})
	if err != nil {
		logger.Debug("Task %s result discarded: %v", id, err)
		return
	}

	tm.metrics.finished(tm.ctx, task)
	logger.Info("Task %s completed with %d rooms", id, len(result))
}

func (tm *TaskManager) fail(id string, taskErr models.TaskError) {
	task, err := tm.store.Update(id, func(t *models.Task) error {
		t.State = models.TaskStateFailed
		t.Error = &taskErr
		t.CompletedAt = tm.now()
		return nil
	})
	if err != nil {
		logger.Debug("Task %s failure discarded: %v", id, err)
		return
	}

	tm.metrics.finished(tm.ctx, task)
	logger.Warn("Task %s failed: %s", id, taskErr.Error())
}

func (tm *TaskManager) sweep() {
	defer tm.wg.Done()

	ticker := time.NewTicker(tm.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-tm.ctx.Done():
			return
		case <-ticker.C:
			tm.purgeExpired()
		}
	}
}

func (tm *TaskManager) purgeExpired() int {
	purged := tm.store.PurgeCompletedBefore(tm.now().Add(-tm.opts.Retention))
	if purged > 0 {
		logger.Debug("Purged %d expired tasks", purged)
	}
	return purged
}

type instruments struct {
	submitted     metric.Int64Counter
	completed     metric.Int64Counter
	fetchDuration metric.Float64Histogram
}

func newInstruments() (instruments, error) {
	meter := otel.Meter("roomfinder/async")

	submitted, err := meter.Int64Counter("roomfinder.tasks.submitted",
		metric.WithDescription("Scrape tasks accepted"))
	if err != nil {
		return instruments{}, err
	}
	completed, err := meter.Int64Counter("roomfinder.tasks.finished",
		metric.WithDescription("Scrape tasks that reached a terminal state"))
	if err != nil {
		return instruments{}, err
	}
	fetchDuration, err := meter.Float64Histogram("roomfinder.fetch.duration",
		metric.WithDescription("Time spent waiting on the booking adapter"),
		metric.WithUnit("s"))
	if err != nil {
		return instruments{}, err
	}

	return instruments{submitted: submitted, completed: completed, fetchDuration: fetchDuration}, nil
}

func (i instruments) finished(ctx context.Context, task models.Task) {
	attrs := []attribute.KeyValue{attribute.String("state", string(task.State))}
	if task.Error != nil {
		attrs = append(attrs, attribute.String("kind", string(task.Error.Kind)))
	}
	i.completed.Add(ctx, 1, metric.WithAttributes(attrs...))
}
