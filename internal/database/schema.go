package database

import (
	"database/sql"
	"time"
	"tmpl-backend/internal/core/types"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	SubmissionQueued    string = "QUEUED"
	SubmissionRunning   string = "RUNNING"
	SubmissionCompleted string = "COMPLETED"
	SubmissionFailed    string = "FAILED"
)

// Submission records what happened to an upload. It never holds the document
// or the inference output.
type Submission struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey"`
	WorkspaceId sql.NullString

	OriginalName string
	SizeBytes    int64
	Pages        int

	Parameters datatypes.JSONType[types.JobParameters]

	Status     string `gorm:"size:20;not null;index"`
	ExitStatus sql.NullInt64
	ErrorKind  sql.NullString `gorm:"size:40"`
	DurationMs int64          `gorm:"default:0"`

	CreationTime   time.Time `gorm:"index"`
	StartTime      sql.NullTime
	CompletionTime sql.NullTime
}
