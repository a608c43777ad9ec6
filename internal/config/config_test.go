package config

import (
	"testing"
	"time"
	"tmpl-backend/internal/core/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, uint64(41943040), cfg.MaxUploadBytes)
	assert.Equal(t, []string{"infer.py"}, cfg.InferenceArgs)
	assert.Equal(t, 10*time.Minute, cfg.InferenceTimeout)
	assert.Equal(t, types.RetainDelete, cfg.WorkspaceRetention)
	assert.False(t, cfg.ExposeProcessErrors)
	assert.True(t, cfg.CheckPDF)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("INFERENCE_ARGS", "-u infer.py")
	t.Setenv("INFERENCE_EXTRA_PATH", "/opt/lda/bin:/usr/local/bin")
	t.Setenv("MAX_CONCURRENT_JOBS", "2")
	t.Setenv("WORKSPACE_RETENTION", "archive")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"-u", "infer.py"}, cfg.InferenceArgs)
	assert.Equal(t, []string{"/opt/lda/bin", "/usr/local/bin"}, cfg.InferenceExtraPath)
	assert.Equal(t, int64(2), cfg.MaxConcurrentJobs)
	assert.Equal(t, types.RetainArchive, cfg.WorkspaceRetention)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	for key, value := range map[string]string{
		"MAX_CONCURRENT_JOBS": "0",
		"STORAGE_BACKEND":     "ftp",
		"INFERENCE_TIMEOUT":   "-1s",
		"MAX_UPLOAD_BYTES":    "0",
	} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}
