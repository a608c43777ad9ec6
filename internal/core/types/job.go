package types

import (
	"path/filepath"
	"time"
)

type ModelVariant string

type DistanceFunction string

type RetentionPolicy string

const (
	RetainDelete  RetentionPolicy = "delete"
	RetainKeep    RetentionPolicy = "retain"
	RetainArchive RetentionPolicy = "archive"
)

// RawParameters holds the job fields exactly as they arrived in the request.
// Nothing in here may reach a command line or a file path.
type RawParameters struct {
	Mode string
	K    string
	Dist string
	Num  string
}

type JobParameters struct {
	ModelVariant     ModelVariant
	TopicCount       int
	DistanceFunction DistanceFunction
	ResultCount      int
}

type UploadedDocument struct {
	OriginalName string
	SizeBytes    uint64
	SourcePath   string
}

type Workspace struct {
	Id       string
	RootPath string
}

type InferenceJob struct {
	Workspace  Workspace
	Parameters JobParameters
	Document   UploadedDocument
}

type InferenceResult struct {
	Stdout     []byte
	Stderr     []byte
	ExitStatus int
	Duration   time.Duration
	Truncated  bool
}

type VisualizationBundle struct {
	ModelVariant ModelVariant
	TopicCount   int
	BundlePath   string
	EntryPath    string
	URL          string
}

// DocumentFileName is the fixed name an upload takes inside its workspace.
const DocumentFileName = "document.pdf"

func (w Workspace) DocumentPath() string {
	return filepath.Join(w.RootPath, DocumentFileName)
}
