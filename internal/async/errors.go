package async

import "errors"

var (
	ErrNotFound     = errors.New("task not found")
	ErrTaskFinished = errors.New("task already finished")
	ErrClosed       = errors.New("task manager is shut down")
	ErrStoreNil     = errors.New("task store is nil")
	ErrValidatorNil = errors.New("filter validator is nil")
	ErrAdapterNil   = errors.New("booking adapter is nil")
)
