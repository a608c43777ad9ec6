package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
	"tmpl-backend/internal/core/types"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port string `env:"PORT" envDefault:"3000"`

	UploadsDir  string `env:"UPLOADS_DIR" envDefault:"./uploads"`
	ResultsDir  string `env:"RESULTS_DIR" envDefault:"./web/visuals"`
	StaticDir   string `env:"STATIC_DIR"`
	CatalogPath string `env:"CATALOG_PATH"`

	InferenceProgram   string        `env:"INFERENCE_PROGRAM" envDefault:"python3"`
	InferenceArgs      []string      `env:"INFERENCE_ARGS" envSeparator:" " envDefault:"infer.py"`
	InferenceDir       string        `env:"INFERENCE_DIR" envDefault:"./backend"`
	InferenceExtraPath []string      `env:"INFERENCE_EXTRA_PATH" envSeparator:":"`
	InferenceTimeout   time.Duration `env:"INFERENCE_TIMEOUT" envDefault:"10m"`
	MaxOutputBytes     int           `env:"MAX_OUTPUT_BYTES" envDefault:"1048576"`

	MaxUploadBytes      uint64        `env:"MAX_UPLOAD_BYTES" envDefault:"41943040"`
	MaxConcurrentJobs   int64         `env:"MAX_CONCURRENT_JOBS" envDefault:"4"`
	JobQueueTimeout     time.Duration `env:"JOB_QUEUE_TIMEOUT" envDefault:"30s"`
	ExposeProcessErrors bool          `env:"EXPOSE_PROCESS_ERRORS" envDefault:"false"`
	CheckPDF            bool          `env:"CHECK_PDF" envDefault:"true"`

	WorkspaceRetention types.RetentionPolicy `env:"WORKSPACE_RETENTION" envDefault:"delete"`
	StorageBackend     string                `env:"STORAGE_BACKEND" envDefault:"local"`
	ArchiveDir         string                `env:"ARCHIVE_DIR" envDefault:"./archive"`
	ArchiveBucket      string                `env:"ARCHIVE_BUCKET" envDefault:"workspaces"`
	S3EndpointURL      string                `env:"S3_ENDPOINT_URL"`
	S3AccessKeyID      string                `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey  string                `env:"AWS_SECRET_ACCESS_KEY"`
	S3Region           string                `env:"AWS_REGION" envDefault:"us-east-1"`

	DatabaseURL string `env:"DATABASE_URL" envDefault:"tmpl.db"`

	SubmitRatePerSecond float64  `env:"SUBMIT_RATE_PER_SECOND" envDefault:"1"`
	SubmitBurst         int      `env:"SUBMIT_BURST" envDefault:"5"`
	CORSOrigins         []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
}

// LoadConfig reads the process environment. Call cmd.LoadEnvFile first to
// pick up a .env file.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("error parsing config: %w", err)
	}
	if err := cfg.Check(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Check() error {
	if c.MaxUploadBytes == 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if c.MaxConcurrentJobs < 1 {
		return fmt.Errorf("MAX_CONCURRENT_JOBS must be at least 1")
	}
	if c.InferenceTimeout <= 0 {
		return fmt.Errorf("INFERENCE_TIMEOUT must be positive")
	}
	if strings.TrimSpace(c.InferenceProgram) == "" {
		return fmt.Errorf("INFERENCE_PROGRAM must be set")
	}
	switch c.StorageBackend {
	case "local", "s3":
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND '%s', expected local or s3", c.StorageBackend)
	}
	if c.StorageBackend == "s3" && c.S3EndpointURL != "" && (c.S3AccessKeyID == "" || c.S3SecretAccessKey == "") {
		slog.Warn("S3_ENDPOINT_URL is set, but AWS_ACCESS_KEY_ID or AWS_SECRET_ACCESS_KEY are missing")
	}
	return nil
}
