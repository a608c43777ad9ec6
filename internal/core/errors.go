package core

import (
	"errors"
	"fmt"
	"time"
)

var ErrJobCancelled = errors.New("inference job cancelled")

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func validationErrorf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

type SizeLimitError struct {
	SizeBytes uint64
	MaxBytes  uint64
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("upload of %d bytes exceeds the %d byte limit", e.SizeBytes, e.MaxBytes)
}

type MissingFileError struct {
	Field string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("no file attached in field '%s'", e.Field)
}

type WorkspaceError struct {
	Op  string
	Err error
}

func (e *WorkspaceError) Error() string {
	return fmt.Sprintf("workspace %s failed: %v", e.Op, e.Err)
}

func (e *WorkspaceError) Unwrap() error {
	return e.Err
}

type SpawnError struct {
	Program string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("unable to start %s: %v", e.Program, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

type ProcessError struct {
	ExitStatus int
	Stderr     []byte
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("inference process exited with status %d", e.ExitStatus)
}

type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("inference process exceeded its %v time budget", e.Timeout)
}

type NotFoundError struct {
	ModelVariant string
	TopicCount   int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no visualization available for model '%s' with %d topics", e.ModelVariant, e.TopicCount)
}
