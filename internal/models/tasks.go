package models

import "time"

type TaskState string

const (
	TaskStatePending   TaskState = "pending"
	TaskStateRunning   TaskState = "running"
	TaskStateCompleted TaskState = "completed"
	TaskStateFailed    TaskState = "failed"
)

// IsTerminal reports whether no further transition is possible from s.
func (s TaskState) IsTerminal() bool {
	return s == TaskStateCompleted || s == TaskStateFailed
}

// CanTransition reports whether a task may move from one state to another.
// Pending may fail directly when it is cancelled before a scrape slot frees up.
func CanTransition(from, to TaskState) bool {
	switch from {
	case TaskStatePending:
		return to == TaskStateRunning || to == TaskStateFailed
	case TaskStateRunning:
		return to == TaskStateCompleted || to == TaskStateFailed
	default:
		return false
	}
}

// Task is one scrape execution. Records are owned by the task store; everything
// else works on copies.
type Task struct {
	ID          string
	Query       Query
	State       TaskState
	Result      Result
	Error       *TaskError
	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

// Consistent checks that the payload fields agree with the state.
func (t Task) Consistent() bool {
	switch t.State {
	case TaskStatePending, TaskStateRunning:
		return t.Result == nil && t.Error == nil && t.CompletedAt.IsZero()
	case TaskStateCompleted:
		return t.Result != nil && t.Error == nil && !t.CompletedAt.IsZero()
	case TaskStateFailed:
		return t.Result == nil && t.Error != nil && !t.CompletedAt.IsZero()
	default:
		return false
	}
}

// View returns the read-only snapshot handed to pollers.
func (t Task) View() TaskView {
	view := TaskView{
		ID:          t.ID,
		State:       t.State,
		Result:      t.Result,
		CreatedAt:   t.CreatedAt,
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
	}
	if t.Error != nil {
		taskErr := *t.Error
		view.Error = &taskErr
	}
	return view
}

type TaskView struct {
	ID          string
	State       TaskState
	Result      Result
	Error       *TaskError
	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}
