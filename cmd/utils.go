package cmd

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"tmpl-backend/internal/config"
	"tmpl-backend/internal/core"
	"tmpl-backend/internal/core/types"
	"tmpl-backend/internal/storage"

	"github.com/joho/godotenv"
)

func LoadEnvFile() {
	var configPath string

	flag.StringVar(&configPath, "env", "", "path to load env from")
	flag.Parse()

	if configPath == "" {
		log.Printf("no env file specified, using os.Environ only")
		return
	}

	log.Printf("loading env from file %s", configPath)
	err := godotenv.Load(configPath)
	if err != nil {
		log.Fatalf("error loading .env file '%s': %v", configPath, err)
	}
}

// CreateArchiveProvider returns nil unless workspaces are archived.
func CreateArchiveProvider(ctx context.Context, cfg config.Config) (storage.Provider, error) {
	if cfg.WorkspaceRetention != types.RetainArchive {
		return nil, nil
	}

	var provider storage.Provider
	switch cfg.StorageBackend {
	case "s3":
		s3p, err := storage.NewS3Provider(ctx, storage.S3ProviderConfig{
			S3EndpointURL:     cfg.S3EndpointURL,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
			S3Region:          cfg.S3Region,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating s3 provider: %w", err)
		}
		provider = s3p
	default:
		local, err := storage.NewLocalProvider(cfg.ArchiveDir)
		if err != nil {
			return nil, fmt.Errorf("error creating local provider: %w", err)
		}
		provider = local
	}

	if err := provider.CreateBucket(ctx, cfg.ArchiveBucket); err != nil {
		return nil, fmt.Errorf("error creating archive bucket: %w", err)
	}

	slog.Info("archiving workspaces", "backend", cfg.StorageBackend, "bucket", cfg.ArchiveBucket)

	return provider, nil
}

func LoadCatalog(cfg config.Config) (*core.Catalog, error) {
	if cfg.CatalogPath == "" {
		return core.DefaultCatalog(), nil
	}
	catalog, err := core.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	slog.Info("loaded model catalog", "path", cfg.CatalogPath, "variants", catalog.VariantNames())
	return catalog, nil
}
