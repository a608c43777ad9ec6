package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"tmpl-backend/internal/core"
	"tmpl-backend/internal/core/types"
	"tmpl-backend/internal/core/utils"
	"tmpl-backend/internal/storage"

	"github.com/google/uuid"
)

const (
	stagingDirName = ".staging"
	archiveWorkers = 4
)

type Config struct {
	UploadsDir string
	Retention  types.RetentionPolicy

	// Archive and ArchiveBucket are required for the archive retention policy.
	Archive       storage.Provider
	ArchiveBucket string
}

// Allocator hands out one private directory per submission under the uploads
// root. It only ever touches paths below that root and never changes the
// process working directory.
type Allocator struct {
	root      string
	staging   string
	retention types.RetentionPolicy
	archive   storage.Provider
	bucket    string
}

func NewAllocator(cfg Config) (*Allocator, error) {
	root, err := filepath.Abs(cfg.UploadsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for %s: %w", cfg.UploadsDir, err)
	}

	retention := cfg.Retention
	if retention == "" {
		retention = types.RetainDelete
	}
	switch retention {
	case types.RetainDelete, types.RetainKeep:
	case types.RetainArchive:
		if cfg.Archive == nil || cfg.ArchiveBucket == "" {
			return nil, fmt.Errorf("archive retention requires a storage provider and bucket")
		}
	default:
		return nil, fmt.Errorf("unknown workspace retention policy '%s'", retention)
	}

	staging := filepath.Join(root, stagingDirName)
	if err := os.MkdirAll(staging, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create staging directory %s: %w", staging, err)
	}

	return &Allocator{
		root:      root,
		staging:   staging,
		retention: retention,
		archive:   cfg.Archive,
		bucket:    cfg.ArchiveBucket,
	}, nil
}

func (a *Allocator) Root() string {
	return a.root
}

// CleanStaging removes uploads left behind by a previous process.
func (a *Allocator) CleanStaging() error {
	entries, err := os.ReadDir(a.staging)
	if err != nil {
		return fmt.Errorf("failed to read staging directory: %w", err)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(a.staging, entry.Name())); err != nil {
			return fmt.Errorf("failed to remove stale upload %s: %w", entry.Name(), err)
		}
	}
	if len(entries) > 0 {
		slog.Info("removed stale staged uploads", "count", len(entries))
	}
	return nil
}

// Stage writes an incoming upload to the staging area, reading at most
// limit+1 bytes. A SizeBytes above limit means the upload is too large; the
// true size is not known in that case.
func (a *Allocator) Stage(src io.Reader, originalName string, limit uint64) (types.UploadedDocument, error) {
	file, err := os.CreateTemp(a.staging, "upload-*")
	if err != nil {
		return types.UploadedDocument{}, &core.WorkspaceError{Op: "stage", Err: err}
	}
	defer file.Close()

	n, err := io.Copy(file, io.LimitReader(src, int64(limit)+1))
	if err == nil {
		err = file.Close()
	}
	if err != nil {
		os.Remove(file.Name()) //nolint:errcheck
		return types.UploadedDocument{}, err
	}

	return types.UploadedDocument{
		OriginalName: filepath.Base(originalName),
		SizeBytes:    uint64(n),
		SourcePath:   file.Name(),
	}, nil
}

// Discard removes a staged upload that will never reach a workspace.
func (a *Allocator) Discard(doc types.UploadedDocument) {
	if doc.SourcePath == "" {
		return
	}
	if err := os.Remove(doc.SourcePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to remove staged upload", "path", doc.SourcePath, "error", err)
	}
}

func (a *Allocator) Allocate(ctx context.Context, doc types.UploadedDocument) (types.Workspace, error) {
	id := uuid.NewString()
	ws := types.Workspace{Id: id, RootPath: filepath.Join(a.root, id)}

	// Mkdir rather than MkdirAll: it fails if the directory already exists.
	if err := os.Mkdir(ws.RootPath, 0o700); err != nil {
		return types.Workspace{}, &core.WorkspaceError{Op: "create", Err: err}
	}

	if err := moveFile(doc.SourcePath, ws.DocumentPath()); err != nil {
		if rmErr := os.RemoveAll(ws.RootPath); rmErr != nil {
			slog.Error("failed to clean up partial workspace", "workspace", id, "error", rmErr)
		}
		return types.Workspace{}, &core.WorkspaceError{Op: "move", Err: err}
	}

	slog.Info("allocated workspace", "workspace", id, "size_bytes", doc.SizeBytes)

	return ws, nil
}

func moveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}

	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) || !errors.Is(linkErr.Err, syscall.EXDEV) {
		return err
	}

	// Staging and uploads live on different devices: copy, then remove the source.
	if err := copyFile(src, dst); err != nil {
		os.Remove(dst) //nolint:errcheck
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

func (a *Allocator) contains(path string) bool {
	rel, err := filepath.Rel(a.root, path)
	if err != nil || rel == "." || rel == stagingDirName {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !strings.Contains(rel, string(filepath.Separator))
}

// Release applies the retention policy to a finished workspace.
func (a *Allocator) Release(ctx context.Context, ws types.Workspace) error {
	if !a.contains(ws.RootPath) {
		return &core.WorkspaceError{Op: "release", Err: fmt.Errorf("%s is not a workspace under %s", ws.RootPath, a.root)}
	}

	switch a.retention {
	case types.RetainKeep:
		slog.Info("retaining workspace", "workspace", ws.Id)
		return nil
	case types.RetainArchive:
		if err := a.archiveWorkspace(ctx, ws); err != nil {
			// Keep the files around so nothing is lost.
			return &core.WorkspaceError{Op: "archive", Err: err}
		}
	}

	if err := os.RemoveAll(ws.RootPath); err != nil {
		return &core.WorkspaceError{Op: "remove", Err: err}
	}

	slog.Info("released workspace", "workspace", ws.Id, "retention", a.retention)
	return nil
}

func (a *Allocator) archiveWorkspace(ctx context.Context, ws types.Workspace) error {
	var files []string
	err := filepath.WalkDir(ws.RootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error listing workspace files: %w", err)
	}

	queue := make(chan string, len(files))
	for _, file := range files {
		queue <- file
	}
	close(queue)

	upload := func(ctx context.Context, path string) (string, error) {
		rel, err := filepath.Rel(ws.RootPath, path)
		if err != nil {
			return "", err
		}
		key := ws.Id + "/" + filepath.ToSlash(rel)

		file, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer file.Close()

		return key, a.archive.PutObject(ctx, a.bucket, key, file)
	}

	completed := make(chan utils.CompletedTask[string, string], len(files))
	utils.RunInPool(ctx, upload, queue, completed, archiveWorkers)

	var errs []error
	for task := range completed {
		if task.Error != nil {
			errs = append(errs, fmt.Errorf("error archiving %s: %w", task.Input, task.Error))
		}
	}

	if len(errs) == 0 {
		slog.Info("archived workspace", "workspace", ws.Id, "files", len(files), "bucket", a.bucket)
	}

	return errors.Join(errs...)
}
