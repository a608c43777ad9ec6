package api

import (
	"time"

	"github.com/google/uuid"
)

type JobParameters struct {
	ModelVariant     string
	TopicCount       int
	DistanceFunction string
	ResultCount      int
}

type SubmitResponse struct {
	SubmissionId uuid.UUID
	Filename     string
	Output       string
	Truncated    bool
}

type Visualization struct {
	ModelVariant string
	TopicCount   int
	Location     string
}

type Submission struct {
	Id          uuid.UUID
	WorkspaceId string `json:"WorkspaceId,omitempty"`

	OriginalName string
	SizeBytes    int64
	Pages        int

	Parameters JobParameters

	Status     string
	ExitStatus *int   `json:"ExitStatus,omitempty"`
	ErrorKind  string `json:"ErrorKind,omitempty"`
	DurationMs int64

	CreationTime   time.Time
	StartTime      *time.Time `json:"StartTime,omitempty"`
	CompletionTime *time.Time `json:"CompletionTime,omitempty"`
}
