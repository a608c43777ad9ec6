package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"tmpl-backend/internal/core"
	"tmpl-backend/internal/core/types"
	"tmpl-backend/internal/database"
	"tmpl-backend/internal/document"
	"tmpl-backend/internal/visualize"
	"tmpl-backend/internal/workspace"
	"tmpl-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DefaultMaxUploadBytes  = 41943040
	defaultSubmissionLimit = 100
)

var errNoJobSlot = errors.New("no inference slot available")

type ServiceConfig struct {
	MaxUploadBytes      uint64
	InferenceTimeout    time.Duration
	MaxConcurrentJobs   int64
	JobQueueTimeout     time.Duration
	ExposeProcessErrors bool
	StaticDir           string
	SubmitRatePerSecond float64
	SubmitBurst         int
}

type BackendService struct {
	db        *gorm.DB
	validator *core.Validator
	inspector document.Inspector
	allocator *workspace.Allocator
	runner    *core.Runner
	resolver  *visualize.Resolver

	maxUploadBytes      uint64
	inferenceTimeout    time.Duration
	jobQueueTimeout     time.Duration
	exposeProcessErrors bool

	slots   *semaphore.Weighted
	limiter *RateLimiter
	metrics *Metrics
	pages   *pages
}

func NewBackendService(
	db *gorm.DB,
	validator *core.Validator,
	inspector document.Inspector,
	allocator *workspace.Allocator,
	runner *core.Runner,
	resolver *visualize.Resolver,
	cfg ServiceConfig,
) *BackendService {
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.MaxConcurrentJobs < 1 {
		cfg.MaxConcurrentJobs = 1
	}

	metrics := NewMetrics()
	limiter := NewRateLimiter(cfg.SubmitRatePerSecond, cfg.SubmitBurst)
	limiter.onLimit = metrics.rateLimitHits.Inc

	return &BackendService{
		db:                  db,
		validator:           validator,
		inspector:           inspector,
		allocator:           allocator,
		runner:              runner,
		resolver:            resolver,
		maxUploadBytes:      cfg.MaxUploadBytes,
		inferenceTimeout:    cfg.InferenceTimeout,
		jobQueueTimeout:     cfg.JobQueueTimeout,
		exposeProcessErrors: cfg.ExposeProcessErrors,
		slots:               semaphore.NewWeighted(cfg.MaxConcurrentJobs),
		limiter:             limiter,
		metrics:             metrics,
		pages:               newPages(cfg.StaticDir),
	}
}

func (s *BackendService) AddRoutes(r chi.Router) {
	r.Use(s.metrics.Middleware)

	r.Get("/health", RestHandler(func(r *http.Request) (any, error) { return nil, nil }))
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Get("/", s.pages.serve(indexPage))
	r.Get("/figures", s.pages.serve(figuresPage))
	r.With(s.limiter.Middleware).Post("/", s.HandleSubmission)

	r.Get("/visuals", RestHandler(s.ListVisualizations))
	r.Handle("/visuals/*", s.resolver.FileServer())

	r.Route("/submissions", func(r chi.Router) {
		r.Get("/", RestHandler(s.ListSubmissions))
		r.Get("/{submission_id}", RestHandler(s.GetSubmission))
	})

	r.NotFound(s.pages.assets())
}

// HandleSubmission serves the upload form. Every path writes exactly one
// complete response.
func (s *BackendService) HandleSubmission(w http.ResponseWriter, r *http.Request) {
	form, doc, err := s.readSubmission(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	if form.visualize() {
		if doc != nil {
			s.allocator.Discard(*doc)
		}
		res, err := s.Visualize(form)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Location", res.Location)
		WriteJsonResponse(w, res)
		return
	}

	if doc == nil {
		writeError(w, submissionError(&core.MissingFileError{Field: DocumentField}, false))
		return
	}

	res, err := s.Submit(r.Context(), form, *doc)
	if err != nil {
		writeError(w, err)
		return
	}

	if wantsText(r) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "Processing %s...\n%s", res.Filename, res.Output) //nolint:errcheck
		return
	}

	WriteJsonResponse(w, res)
}

func wantsText(r *http.Request) bool {
	for _, accept := range strings.Split(r.Header.Get("Accept"), ",") {
		mediaType, _, _ := strings.Cut(strings.TrimSpace(accept), ";")
		if mediaType == "text/plain" {
			return true
		}
	}
	return false
}

func (s *BackendService) Visualize(form SubmissionForm) (api.Visualization, error) {
	variant, k, err := s.validator.ParseModel(form.Mode, form.K)
	if err != nil {
		return api.Visualization{}, submissionError(err, false)
	}

	bundle, err := s.resolver.Resolve(variant, k)
	if err != nil {
		return api.Visualization{}, submissionError(err, false)
	}

	slog.Info("resolved visualization", "model_variant", variant, "topic_count", k, "location", bundle.URL)

	return convertBundle(bundle), nil
}

// Submit runs one upload through validation, a private workspace and the
// inference program. The staged document is always consumed.
func (s *BackendService) Submit(ctx context.Context, form SubmissionForm, doc types.UploadedDocument) (api.SubmitResponse, error) {
	defer s.allocator.Discard(doc)

	if doc.SizeBytes > s.maxUploadBytes {
		return api.SubmitResponse{}, submissionError(&core.SizeLimitError{SizeBytes: doc.SizeBytes, MaxBytes: s.maxUploadBytes}, false)
	}

	params, err := s.validator.Validate(form.raw())
	if err != nil {
		s.metrics.jobRejected("invalid")
		return api.SubmitResponse{}, submissionError(err, false)
	}

	info, err := s.inspector.Inspect(doc)
	if err != nil {
		s.metrics.jobRejected("invalid")
		return api.SubmitResponse{}, submissionError(err, false)
	}

	if err := s.acquireSlot(ctx); err != nil {
		s.metrics.jobRejected("busy")
		return api.SubmitResponse{}, submissionError(err, false)
	}
	defer s.slots.Release(1)

	submissionId := uuid.New()
	s.recordQueued(ctx, submissionId, doc, info, params)

	ws, err := s.allocator.Allocate(ctx, doc)
	if err != nil {
		slog.Error("error allocating workspace", "submission_id", submissionId, "error", err)
		s.recordFinished(ctx, submissionId, nil, err, 0)
		s.metrics.jobRejected(errorKind(err))
		return api.SubmitResponse{}, submissionError(err, false)
	}
	defer func() {
		// Cleanup must happen even when the client has gone away.
		if err := s.allocator.Release(context.WithoutCancel(ctx), ws); err != nil {
			slog.Error("error releasing workspace", "workspace", ws.Id, "error", err)
		}
	}()

	s.recordRunning(ctx, submissionId, ws)

	job := types.InferenceJob{Workspace: ws, Parameters: params, Document: doc}

	slog.Info("starting inference job", "submission_id", submissionId, "workspace", ws.Id,
		"model_variant", params.ModelVariant, "topic_count", params.TopicCount,
		"distance", params.DistanceFunction, "num", params.ResultCount)

	s.metrics.jobStarted()
	result, err := s.runner.Run(ctx, job, s.inferenceTimeout)
	s.metrics.jobFinished(string(params.ModelVariant), errorKind(err), result.Duration)

	s.recordFinished(ctx, submissionId, &result, err, result.Duration)

	if err != nil {
		slog.Error("inference job failed", "submission_id", submissionId, "workspace", ws.Id, "error", err,
			"stderr", string(result.Stderr))
		return api.SubmitResponse{}, submissionError(err, s.exposeProcessErrors)
	}

	slog.Info("inference job completed", "submission_id", submissionId, "workspace", ws.Id,
		"duration", result.Duration, "truncated", result.Truncated)

	return api.SubmitResponse{
		SubmissionId: submissionId,
		Filename:     doc.OriginalName,
		Output:       string(result.Stdout),
		Truncated:    result.Truncated,
	}, nil
}

func (s *BackendService) acquireSlot(ctx context.Context) error {
	waitCtx := ctx
	if s.jobQueueTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, s.jobQueueTimeout)
		defer cancel()
	}

	if err := s.slots.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", core.ErrJobCancelled, ctx.Err())
		}
		return errNoJobSlot
	}
	return nil
}

func (s *BackendService) ListVisualizations(r *http.Request) (any, error) {
	return convertBundles(s.resolver.List()), nil
}

type listSubmissionsParams struct {
	Limit int `schema:"limit"`
}

func (s *BackendService) ListSubmissions(r *http.Request) (any, error) {
	params, err := ParseRequestQueryParams[listSubmissionsParams](r)
	if err != nil {
		return nil, err
	}
	if params.Limit <= 0 || params.Limit > defaultSubmissionLimit {
		params.Limit = defaultSubmissionLimit
	}

	submissions, err := database.ListSubmissions(r.Context(), s.db, params.Limit)
	if err != nil {
		slog.Error("error listing submissions", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving submission records")
	}

	return convertSubmissions(submissions), nil
}

func (s *BackendService) GetSubmission(r *http.Request) (any, error) {
	submissionId, err := URLParamUUID(r, "submission_id")
	if err != nil {
		return nil, err
	}

	submission, err := database.GetSubmission(r.Context(), s.db, submissionId)
	if err != nil {
		if errors.Is(err, database.ErrSubmissionNotFound) {
			return nil, CodedErrorf(http.StatusNotFound, "submission not found")
		}
		slog.Error("error getting submission", "submission_id", submissionId, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving submission record")
	}

	return convertSubmission(submission), nil
}

// Ledger writes are best effort: a failure is logged and the submission
// carries on.

func (s *BackendService) recordQueued(ctx context.Context, id uuid.UUID, doc types.UploadedDocument, info document.Info, params types.JobParameters) {
	submission := &database.Submission{
		Id:           id,
		OriginalName: doc.OriginalName,
		SizeBytes:    int64(doc.SizeBytes),
		Pages:        info.Pages,
		Parameters:   datatypes.NewJSONType(params),
		Status:       database.SubmissionQueued,
		CreationTime: time.Now().UTC(),
	}
	if err := database.CreateSubmission(ctx, s.db, submission); err != nil {
		slog.Error("error recording submission", "submission_id", id, "error", err)
	}
}

func (s *BackendService) recordRunning(ctx context.Context, id uuid.UUID, ws types.Workspace) {
	database.MarkSubmissionRunning(ctx, s.db, id, ws.Id) //nolint:errcheck
}

func (s *BackendService) recordFinished(ctx context.Context, id uuid.UUID, result *types.InferenceResult, err error, duration time.Duration) {
	outcome := database.SubmissionOutcome{
		Status:   database.SubmissionCompleted,
		Duration: duration,
	}
	if err != nil {
		outcome.Status = database.SubmissionFailed
		outcome.ErrorKind = errorKind(err)
	}
	if result != nil && result.ExitStatus >= 0 {
		exit := result.ExitStatus
		outcome.ExitStatus = &exit
	}

	database.FinishSubmission(context.WithoutCancel(ctx), s.db, id, outcome) //nolint:errcheck
}
