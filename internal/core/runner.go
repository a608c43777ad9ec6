package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"tmpl-backend/internal/core/types"
)

const (
	DefaultMaxOutputBytes = 1 << 20
	waitDelay             = 5 * time.Second
)

type RunnerConfig struct {
	// Program is the collaborator executable, ideally an absolute path.
	Program string
	// Args are fixed leading arguments, e.g. the script for an interpreter.
	Args []string
	// Dir is the collaborator's installation directory, used as the child's
	// working directory.
	Dir string
	// ExtraPath entries are prepended to the child's PATH.
	ExtraPath []string

	MaxOutputBytes int
}

type Runner struct {
	program   string
	args      []string
	dir       string
	extraPath []string
	maxOutput int
}

func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.Program == "" {
		return nil, fmt.Errorf("inference program must be specified")
	}

	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for %s: %w", cfg.Dir, err)
	}

	maxOutput := cfg.MaxOutputBytes
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutputBytes
	}

	return &Runner{
		program:   cfg.Program,
		args:      append([]string(nil), cfg.Args...),
		dir:       dir,
		extraPath: append([]string(nil), cfg.ExtraPath...),
		maxOutput: maxOutput,
	}, nil
}

// JobArgs is the argument vector handed to the collaborator after the fixed
// leading arguments. Every element comes from validated parameters or from a
// path the workspace allocator created.
func JobArgs(job types.InferenceJob) []string {
	p := job.Parameters
	return []string{
		job.Workspace.DocumentPath(),
		string(p.ModelVariant),
		strconv.Itoa(p.TopicCount),
		string(p.DistanceFunction),
		strconv.Itoa(p.ResultCount),
	}
}

func (r *Runner) command(ctx context.Context, job types.InferenceJob) *exec.Cmd {
	argv := append(append([]string(nil), r.args...), JobArgs(job)...)

	cmd := exec.CommandContext(ctx, r.program, argv...)
	cmd.Dir = r.dir
	cmd.Env = r.environ(os.Environ())
	cmd.WaitDelay = waitDelay
	configureProcess(cmd)

	return cmd
}

// environ derives the child's environment from the parent's without touching
// the parent.
func (r *Runner) environ(parent []string) []string {
	env := make([]string, 0, len(parent)+3)
	parentPath := ""
	for _, kv := range parent {
		switch {
		case strings.HasPrefix(kv, "PATH="):
			parentPath = strings.TrimPrefix(kv, "PATH=")
		case strings.HasPrefix(kv, "PYTHONIOENCODING="), strings.HasPrefix(kv, "PWD="):
		default:
			env = append(env, kv)
		}
	}

	path := r.extraPath
	if parentPath != "" {
		path = append(append([]string(nil), r.extraPath...), parentPath)
	}

	env = append(env,
		"PATH="+strings.Join(path, string(os.PathListSeparator)),
		"PYTHONIOENCODING=utf8",
		"PWD="+r.dir,
	)
	return env
}

func (r *Runner) Run(ctx context.Context, job types.InferenceJob, timeout time.Duration) (types.InferenceResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stdout := &cappedBuffer{limit: r.maxOutput}
	stderr := &cappedBuffer{limit: r.maxOutput}

	cmd := r.command(runCtx, job)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return types.InferenceResult{ExitStatus: -1}, &SpawnError{Program: r.program, Err: err}
	}

	slog.Info("started inference process", "workspace", job.Workspace.Id, "pid", cmd.Process.Pid)

	waitErr := cmd.Wait()

	result := types.InferenceResult{
		Stdout:     stdout.Bytes(),
		Stderr:     stderr.Bytes(),
		ExitStatus: -1,
		Duration:   time.Since(start),
		Truncated:  stdout.truncated || stderr.truncated,
	}
	if cmd.ProcessState != nil {
		result.ExitStatus = cmd.ProcessState.ExitCode()
	}

	if waitErr != nil {
		// A child that exited cleanly before the deadline keeps its result.
		if ctx.Err() != nil {
			return result, fmt.Errorf("%w: %w", ErrJobCancelled, ctx.Err())
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return result, &TimeoutError{Timeout: timeout}
		}

		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return result, &ProcessError{ExitStatus: exitErr.ExitCode(), Stderr: result.Stderr}
		}
		return result, fmt.Errorf("error waiting for inference process: %w", waitErr)
	}

	slog.Info("inference process finished", "workspace", job.Workspace.Id, "duration", result.Duration, "stdout_bytes", len(result.Stdout))

	return result, nil
}

// cappedBuffer keeps the first limit bytes and silently drops the rest so the
// child never sees a write error.
type cappedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	remaining := b.limit - b.buf.Len()
	if remaining <= 0 {
		if len(p) > 0 {
			b.truncated = true
		}
		return len(p), nil
	}
	if len(p) > remaining {
		b.buf.Write(p[:remaining])
		b.truncated = true
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

func (b *cappedBuffer) Bytes() []byte {
	return b.buf.Bytes()
}
