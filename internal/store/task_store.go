package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kelsos/roomfinder/internal/models"
)

var (
	ErrNotFound          = errors.New("task not found")
	ErrInvalidTransition = errors.New("invalid task transition")
	ErrInconsistentTask  = errors.New("task state does not match its payload")
)

// Mutation edits a task in place. Returning an error discards the edit.
type Mutation func(task *models.Task) error

type record struct {
	mu   sync.Mutex
	task models.Task
}

// TaskStore is the single owner of task records. The map lock only guards
// membership; each record has its own lock so updates to one task never wait
// on another.
type TaskStore struct {
	mu      sync.RWMutex
	records map[string]*record
	now     func() time.Time
}

func New() *TaskStore {
	return &TaskStore{
		records: make(map[string]*record),
		now:     time.Now,
	}
}

// Create registers a new pending task for the query.
func (s *TaskStore) Create(query models.Query) models.Task {
	task := models.Task{
		ID:        uuid.NewString(),
		Query:     query,
		State:     models.TaskStatePending,
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	s.records[task.ID] = &record{task: task}
	s.mu.Unlock()

	return task
}

func (s *TaskStore) lookup(id string) (*record, bool) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	return rec, ok
}

// Get returns a copy of the task.
func (s *TaskStore) Get(id string) (models.Task, bool) {
	rec, ok := s.lookup(id)
	if !ok {
		return models.Task{}, false
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.task, true
}

// Update applies mutation to a copy of the task and stores it only if the
// resulting state is reachable from the current one and consistent with its
// result and error fields. Writers on the same id are serialized.
func (s *TaskStore) Update(id string, mutation Mutation) (models.Task, error) {
	rec, ok := s.lookup(id)
	if !ok {
		return models.Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	next := rec.task
	if err := mutation(&next); err != nil {
		return rec.task, err
	}

	if next.ID != rec.task.ID {
		return rec.task, fmt.Errorf("%w: task id is immutable", ErrInvalidTransition)
	}
	if next.State != rec.task.State && !models.CanTransition(rec.task.State, next.State) {
		return rec.task, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.task.State, next.State)
	}
	if next.State == rec.task.State && rec.task.State.IsTerminal() {
		return rec.task, fmt.Errorf("%w: task already %s", ErrInvalidTransition, rec.task.State)
	}
	if !next.Consistent() {
		return rec.task, fmt.Errorf("%w: %s", ErrInconsistentTask, next.State)
	}

	rec.task = next
	return next, nil
}

// PurgeCompletedBefore removes terminal tasks that finished before cutoff and
// returns how many were removed.
func (s *TaskStore) PurgeCompletedBefore(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for id, rec := range s.records {
		rec.mu.Lock()
		expired := rec.task.State.IsTerminal() && rec.task.CompletedAt.Before(cutoff)
		rec.mu.Unlock()

		if expired {
			delete(s.records, id)
			purged++
		}
	}
	return purged
}

// Len returns the number of tasks currently held.
func (s *TaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
