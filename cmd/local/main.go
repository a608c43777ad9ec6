package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"
	"tmpl-backend/cmd"
	"tmpl-backend/internal/config"

	"github.com/caarlos0/env/v11"
)

// Runs the server with all state kept under a single root directory: uploads,
// archived workspaces, the sqlite ledger and a log file. Explicitly set
// variables still win over the root defaults.
type LocalConfig struct {
	Root string `env:"ROOT" envDefault:"./tmpl-data"`
}

func main() {
	var local LocalConfig
	if err := env.Parse(&local); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if err := os.MkdirAll(local.Root, os.ModePerm); err != nil {
		log.Fatalf("error creating root directory: %v", err)
	}

	f, err := os.OpenFile(filepath.Join(local.Root, "backend.log"), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	log.SetOutput(io.MultiWriter(f, os.Stderr))

	defaults := map[string]string{
		"UPLOADS_DIR":         filepath.Join(local.Root, "uploads"),
		"ARCHIVE_DIR":         filepath.Join(local.Root, "archive"),
		"DATABASE_URL":        filepath.Join(local.Root, "tmpl.db"),
		"WORKSPACE_RETENTION": "archive",
		"STORAGE_BACKEND":     "local",
	}
	for key, value := range defaults {
		if _, ok := os.LookupEnv(key); !ok {
			os.Setenv(key, value) //nolint:errcheck
		}
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	slog.Info("starting local backend", "root", local.Root, "port", cfg.Port)

	server, err := cmd.CreateServer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("error creating server: %v", err)
	}

	if err := cmd.RunServer(server, cfg.InferenceTimeout+30*time.Second); err != nil {
		log.Fatalf("%v", err)
	}
}
