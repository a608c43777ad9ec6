package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrSubmissionNotFound = errors.New("submission not found")

func CreateSubmission(ctx context.Context, db *gorm.DB, submission *Submission) error {
	if err := db.WithContext(ctx).Create(submission).Error; err != nil {
		return fmt.Errorf("error creating submission: %w", err)
	}
	return nil
}

func MarkSubmissionRunning(ctx context.Context, db *gorm.DB, id uuid.UUID, workspaceId string) error {
	updates := map[string]any{
		"status":       SubmissionRunning,
		"workspace_id": workspaceId,
		"start_time":   time.Now().UTC(),
	}

	if err := db.WithContext(ctx).Model(&Submission{Id: id}).Updates(updates).Error; err != nil {
		slog.Error("error updating submission status", "submission_id", id, "status", SubmissionRunning, "error", err)
		return err
	}
	return nil
}

type SubmissionOutcome struct {
	Status     string
	ExitStatus *int
	ErrorKind  string
	Duration   time.Duration
}

func FinishSubmission(ctx context.Context, db *gorm.DB, id uuid.UUID, outcome SubmissionOutcome) error {
	updates := map[string]any{
		"status":          outcome.Status,
		"completion_time": time.Now().UTC(),
		"duration_ms":     outcome.Duration.Milliseconds(),
	}
	if outcome.ExitStatus != nil {
		updates["exit_status"] = sql.NullInt64{Int64: int64(*outcome.ExitStatus), Valid: true}
	}
	if outcome.ErrorKind != "" {
		updates["error_kind"] = sql.NullString{String: outcome.ErrorKind, Valid: true}
	}

	if err := db.WithContext(ctx).Model(&Submission{Id: id}).Updates(updates).Error; err != nil {
		slog.Error("error updating submission status", "submission_id", id, "status", outcome.Status, "error", err)
		return err
	}
	return nil
}

func GetSubmission(ctx context.Context, db *gorm.DB, id uuid.UUID) (Submission, error) {
	var submission Submission
	if err := db.WithContext(ctx).First(&submission, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Submission{}, ErrSubmissionNotFound
		}
		return Submission{}, fmt.Errorf("error getting submission %s: %w", id, err)
	}
	return submission, nil
}

func ListSubmissions(ctx context.Context, db *gorm.DB, limit int) ([]Submission, error) {
	var submissions []Submission
	if err := db.WithContext(ctx).Order("creation_time DESC").Limit(limit).Find(&submissions).Error; err != nil {
		return nil, fmt.Errorf("error listing submissions: %w", err)
	}
	return submissions, nil
}
