package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type ErrorKind string

const (
	KindTimeout             ErrorKind = "Timeout"
	KindAuthFailure         ErrorKind = "AuthFailure"
	KindUpstreamUnavailable ErrorKind = "UpstreamUnavailable"
	KindParseFailure        ErrorKind = "ParseFailure"
	KindCancelled           ErrorKind = "Cancelled"
	KindInternal            ErrorKind = "InternalError"
)

// ValidationError rejects a submission before any task exists.
type ValidationError struct {
	Field         string
	InvalidValues []string
}

func (e *ValidationError) Error() string {
	if len(e.InvalidValues) == 0 {
		return fmt.Sprintf("%s: at least one value is required", e.Field)
	}
	return fmt.Sprintf("%s: unknown values %s", e.Field, strings.Join(e.InvalidValues, ", "))
}

// AdapterError is returned by booking adapters for classified failures.
type AdapterError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func NewAdapterError(kind ErrorKind, err error, format string, args ...any) *AdapterError {
	return &AdapterError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.detail())
}

func (e *AdapterError) detail() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// TaskError is the failure recorded on a task.
type TaskError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e TaskError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ClassifyError maps any failure of a background execution onto a TaskError.
func ClassifyError(err error) TaskError {
	var adapterErr *AdapterError
	switch {
	case errors.As(err, &adapterErr):
		return TaskError{Kind: adapterErr.Kind, Message: adapterErr.detail()}
	case errors.Is(err, context.DeadlineExceeded):
		return TaskError{Kind: KindTimeout, Message: err.Error()}
	case errors.Is(err, context.Canceled):
		return TaskError{Kind: KindCancelled, Message: err.Error()}
	default:
		return TaskError{Kind: KindInternal, Message: err.Error()}
	}
}
