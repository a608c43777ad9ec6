package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"tmpl-backend/internal/core"
)

// submissionError maps the core error taxonomy onto client facing status codes
// and messages. Internal detail stays in the wrapped error for logging;
// process stderr is only shown when expose is set.
func submissionError(err error, expose bool) error {
	var (
		validationErr *core.ValidationError
		sizeErr       *core.SizeLimitError
		missingErr    *core.MissingFileError
		notFoundErr   *core.NotFoundError
		workspaceErr  *core.WorkspaceError
		spawnErr      *core.SpawnError
		processErr    *core.ProcessError
		timeoutErr    *core.TimeoutError
	)

	switch {
	case errors.As(err, &validationErr):
		return CodedError(http.StatusBadRequest, validationErr)
	case errors.As(err, &sizeErr):
		return CodedErrorf(http.StatusRequestEntityTooLarge, "Your PDF was too big: the limit is %d bytes", sizeErr.MaxBytes)
	case errors.As(err, &missingErr):
		return CodedErrorf(http.StatusBadRequest, "No files were uploaded.")
	case errors.As(err, &notFoundErr):
		return CodedError(http.StatusNotFound, notFoundErr)
	case errors.As(err, &workspaceErr):
		return CodedErrorf(http.StatusInternalServerError, "could not prepare workspace")
	case errors.As(err, &spawnErr):
		return CodedErrorf(http.StatusBadGateway, "inference backend unavailable")
	case errors.As(err, &processErr):
		msg := fmt.Sprintf("inference failed (exit status %d)", processErr.ExitStatus)
		if expose {
			if stderr := strings.TrimSpace(string(processErr.Stderr)); stderr != "" {
				msg += ": " + stderr
			}
		}
		return CodedErrorf(http.StatusBadGateway, "%s", msg)
	case errors.As(err, &timeoutErr):
		return CodedErrorf(http.StatusGatewayTimeout, "inference timed out after %v", timeoutErr.Timeout)
	case errors.Is(err, core.ErrJobCancelled):
		return CodedErrorf(http.StatusServiceUnavailable, "request cancelled")
	case errors.Is(err, errNoJobSlot):
		return CodedErrorf(http.StatusServiceUnavailable, "server busy, try again later")
	}

	return err
}

// errorKind is the short label stored in the ledger and used as the metrics
// outcome.
func errorKind(err error) string {
	var (
		validationErr *core.ValidationError
		workspaceErr  *core.WorkspaceError
		spawnErr      *core.SpawnError
		processErr    *core.ProcessError
		timeoutErr    *core.TimeoutError
	)

	switch {
	case err == nil:
		return "completed"
	case errors.As(err, &validationErr):
		return "invalid"
	case errors.As(err, &workspaceErr):
		return "workspace"
	case errors.As(err, &spawnErr):
		return "spawn"
	case errors.As(err, &processErr):
		return "process"
	case errors.As(err, &timeoutErr):
		return "timeout"
	case errors.Is(err, core.ErrJobCancelled):
		return "cancelled"
	default:
		return "internal"
	}
}
