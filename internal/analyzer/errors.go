package analyzer

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrTransform    = errors.New("frequency transform failed")
	ErrConfig       = errors.New("invalid configuration")
)

// StageError is the single terminal failure of a run. It matches both its
// category (ErrInvalidInput, ErrTransform, ErrConfig) and the underlying cause.
type StageError struct {
	Stage string
	Kind  error
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func stageError(stage string, kind, err error) error {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}
