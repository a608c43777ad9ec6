package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"
	backend "tmpl-backend/internal/api"
	"tmpl-backend/internal/core"
	"tmpl-backend/internal/database"
	"tmpl-backend/internal/document"
	"tmpl-backend/internal/visualize"
	"tmpl-backend/internal/workspace"
	"tmpl-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const inferScript = `#!/bin/sh
echo "cwd=$(pwd -P)"
for a in "$@"; do echo "arg=$a"; done
echo "content=$(cat "$1")"
echo ran >> ran.log
`

const testPDF = "%PDF-1.4 test document"

type testEnv struct {
	router     chi.Router
	db         *gorm.DB
	uploads    string
	installDir string
}

func newTestEnv(t *testing.T, script string, configure func(*backend.ServiceConfig, *core.RunnerConfig)) *testEnv {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("collaborator scripts require a unix shell")
	}

	installDir := t.TempDir()
	program := filepath.Join(t.TempDir(), "infer.sh")
	require.NoError(t, os.WriteFile(program, []byte(script), 0o755))

	results := t.TempDir()
	bundle := filepath.Join(results, "abstracts", "50")
	require.NoError(t, os.MkdirAll(bundle, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bundle, "index.html"), []byte("<html>topics</html>"), 0o644))

	uploads := t.TempDir()
	allocator, err := workspace.NewAllocator(workspace.Config{UploadsDir: uploads})
	require.NoError(t, err)

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)

	catalog := core.DefaultCatalog()
	resolver, err := visualize.NewResolver(results, catalog)
	require.NoError(t, err)

	cfg := backend.ServiceConfig{
		InferenceTimeout:  10 * time.Second,
		MaxConcurrentJobs: 4,
		JobQueueTimeout:   5 * time.Second,
	}
	runnerCfg := core.RunnerConfig{Program: program, Dir: installDir}
	if configure != nil {
		configure(&cfg, &runnerCfg)
	}

	runner, err := core.NewRunner(runnerCfg)
	require.NoError(t, err)

	service := backend.NewBackendService(db, core.NewValidator(catalog), document.HeaderInspector{}, allocator, runner, resolver, cfg)
	router := chi.NewRouter()
	service.AddRoutes(router)

	return &testEnv{router: router, db: db, uploads: uploads, installDir: installDir}
}

func multipartBody(t *testing.T, fields map[string]string, filename string, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if filename != "" {
		part, err := writer.CreateFormFile("userpdf", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func (e *testEnv) post(t *testing.T, fields map[string]string, filename, content string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, fields, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", contentType)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// leftovers returns everything under the uploads root except the empty
// staging directory.
func (e *testEnv) leftovers(t *testing.T) []string {
	t.Helper()
	var found []string
	err := filepath.WalkDir(e.uploads, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(e.uploads, path)
		if rel != "." && rel != ".staging" {
			found = append(found, rel)
		}
		return nil
	})
	require.NoError(t, err)
	return found
}

func (e *testEnv) processRan() bool {
	_, err := os.Stat(filepath.Join(e.installDir, "ran.log"))
	return err == nil
}

func uploadFields(mode, k, dist, num string) map[string]string {
	return map[string]string{"modes": mode, "ks": k, "dist": dist, "num": num, "submit": "Upload"}
}

func TestSubmitRunsInference(t *testing.T) {
	env := newTestEnv(t, inferScript, nil)

	cwd, err := os.Getwd()
	require.NoError(t, err)

	rec := env.post(t, uploadFields("fulltext", "20", "kl", "10"), "paper.pdf", testPDF)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res api.SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "paper.pdf", res.Filename)
	assert.False(t, res.Truncated)

	realInstallDir, err := filepath.EvalSymlinks(env.installDir)
	require.NoError(t, err)
	assert.Contains(t, res.Output, "cwd="+realInstallDir+"\n")
	assert.Contains(t, res.Output, "/document.pdf\narg=fulltext\narg=20\narg=kl\narg=10\n")
	assert.Contains(t, res.Output, "content="+testPDF+"\n")

	after, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, cwd, after)

	assert.Empty(t, env.leftovers(t))

	sub := env.get("/submissions/" + res.SubmissionId.String())
	require.Equal(t, http.StatusOK, sub.Code)
	var record api.Submission
	require.NoError(t, json.Unmarshal(sub.Body.Bytes(), &record))
	assert.Equal(t, database.SubmissionCompleted, record.Status)
	assert.Equal(t, "paper.pdf", record.OriginalName)
	assert.Equal(t, int64(len(testPDF)), record.SizeBytes)
	assert.Equal(t, api.JobParameters{ModelVariant: "fulltext", TopicCount: 20, DistanceFunction: "kl", ResultCount: 10}, record.Parameters)
	require.NotNil(t, record.ExitStatus)
	assert.Equal(t, 0, *record.ExitStatus)
	assert.NotEmpty(t, record.WorkspaceId)
}

func TestSubmitDefaultsResultCount(t *testing.T) {
	env := newTestEnv(t, inferScript, nil)

	rec := env.post(t, uploadFields("abstracts", "50", "euclidean", ""), "paper.pdf", testPDF)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res api.SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Contains(t, res.Output, "arg=abstracts\narg=50\narg=euclidean\narg=20\n")
}

func TestSubmitPlainText(t *testing.T) {
	env := newTestEnv(t, inferScript, nil)

	rec := env.post(t, uploadFields("fulltext", "100", "kl", "5"), "my paper.pdf", testPDF, "Accept", "text/plain")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.True(t, strings.HasPrefix(rec.Body.String(), "Processing my paper.pdf...\ncwd="), rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
}

func TestVisualize(t *testing.T) {
	env := newTestEnv(t, inferScript, nil)

	t.Run("Available", func(t *testing.T) {
		rec := env.post(t, map[string]string{"modes": "abstracts", "ks": "50", "submit": "Visualize"}, "", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "/visuals/abstracts/50/", rec.Header().Get("Location"))

		var res api.Visualization
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, api.Visualization{ModelVariant: "abstracts", TopicCount: 50, Location: "/visuals/abstracts/50/"}, res)

		page := env.get(res.Location)
		assert.Equal(t, http.StatusOK, page.Code)
		assert.Contains(t, page.Body.String(), "topics")
	})

	t.Run("MissingBundle", func(t *testing.T) {
		rec := env.post(t, map[string]string{"modes": "fulltext", "ks": "200", "submit": "Visualize"}, "", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("UnknownTopicCount", func(t *testing.T) {
		rec := env.post(t, map[string]string{"modes": "fulltext", "ks": "999", "submit": "Visualize"}, "", "")
		assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	})

	t.Run("NonNumericTopicCount", func(t *testing.T) {
		rec := env.post(t, map[string]string{"modes": "fulltext", "ks": "many", "submit": "Visualize"}, "", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("InvalidModel", func(t *testing.T) {
		rec := env.post(t, map[string]string{"modes": "../../etc", "ks": "50", "submit": "Visualize"}, "", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("IgnoresUpload", func(t *testing.T) {
		rec := env.post(t, map[string]string{"modes": "abstracts", "ks": "50", "submit": "Visualize"}, "paper.pdf", testPDF)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	assert.False(t, env.processRan())
	assert.Empty(t, env.leftovers(t))
}

func TestListVisualizations(t *testing.T) {
	env := newTestEnv(t, inferScript, nil)

	rec := env.get("/visuals")
	require.Equal(t, http.StatusOK, rec.Code)

	var res []api.Visualization
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, []api.Visualization{{ModelVariant: "abstracts", TopicCount: 50, Location: "/visuals/abstracts/50/"}}, res)
}

func TestMissingFile(t *testing.T) {
	env := newTestEnv(t, inferScript, nil)

	rec := env.post(t, uploadFields("fulltext", "20", "kl", "10"), "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No files were uploaded.")

	rec = env.post(t, uploadFields("fulltext", "20", "kl", "10"), "empty.pdf", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.False(t, env.processRan())
	assert.Empty(t, env.leftovers(t))
}

func TestNotMultipart(t *testing.T) {
	env := newTestEnv(t, inferScript, nil)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"modes":"fulltext"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadTooLarge(t *testing.T) {
	env := newTestEnv(t, inferScript, func(cfg *backend.ServiceConfig, _ *core.RunnerConfig) {
		cfg.MaxUploadBytes = 64
	})

	rec := env.post(t, uploadFields("fulltext", "20", "kl", "10"), "big.pdf", "%PDF-"+strings.Repeat("x", 200))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = env.post(t, uploadFields("fulltext", "20", "kl", "10"), "exact.pdf", "%PDF-"+strings.Repeat("x", 59))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Empty(t, env.leftovers(t))
}

type unreadableBody struct {
	t *testing.T
}

func (b unreadableBody) Read([]byte) (int, error) {
	b.t.Error("body of an oversized request must not be read")
	return 0, io.EOF
}

func TestUploadTooLargeByContentLength(t *testing.T) {
	env := newTestEnv(t, inferScript, func(cfg *backend.ServiceConfig, _ *core.RunnerConfig) {
		cfg.MaxUploadBytes = 64
	})

	req := httptest.NewRequest(http.MethodPost, "/", unreadableBody{t: t})
	req.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")
	req.ContentLength = 64 + 2<<20

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	entries, err := os.ReadDir(filepath.Join(env.uploads, ".staging"))
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, env.leftovers(t))
}

func TestInvalidParametersNeverSpawn(t *testing.T) {
	env := newTestEnv(t, inferScript, nil)

	cases := []struct {
		name   string
		fields map[string]string
		field  string
	}{
		{"ShellMode", uploadFields("fulltext; rm -rf /", "20", "kl", "10"), "modes"},
		{"UnknownMode", uploadFields("FULLTEXT", "20", "kl", "10"), "modes"},
		{"UnsupportedK", uploadFields("fulltext", "30", "kl", "10"), "ks"},
		{"SubstitutionK", uploadFields("fulltext", "$(id)", "kl", "10"), "ks"},
		{"UnknownDistance", uploadFields("fulltext", "20", "cosine", "10"), "dist"},
		{"ZeroNum", uploadFields("fulltext", "20", "kl", "0"), "num"},
		{"LargeNum", uploadFields("fulltext", "20", "kl", "101"), "num"},
		{"TextNum", uploadFields("fulltext", "20", "kl", "ten"), "num"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.post(t, tc.fields, "paper.pdf", testPDF)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "invalid "+tc.field)
		})
	}

	assert.False(t, env.processRan())
	assert.Empty(t, env.leftovers(t))
}

func TestRejectsNonPDF(t *testing.T) {
	env := newTestEnv(t, inferScript, nil)

	rec := env.post(t, uploadFields("fulltext", "20", "kl", "10"), "notes.pdf", "plain text, not a pdf")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid userpdf")

	assert.False(t, env.processRan())
	assert.Empty(t, env.leftovers(t))
}

func TestProcessFailure(t *testing.T) {
	script := "#!/bin/sh\necho 'Traceback: model file missing' >&2\nexit 3\n"

	t.Run("Hidden", func(t *testing.T) {
		env := newTestEnv(t, script, nil)

		rec := env.post(t, uploadFields("fulltext", "20", "kl", "10"), "paper.pdf", testPDF)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Contains(t, rec.Body.String(), "inference failed (exit status 3)")
		assert.NotContains(t, rec.Body.String(), "Traceback")
		assert.Empty(t, env.leftovers(t))

		var subs []database.Submission
		require.NoError(t, env.db.Find(&subs).Error)
		require.Len(t, subs, 1)
		assert.Equal(t, database.SubmissionFailed, subs[0].Status)
		assert.Equal(t, "process", subs[0].ErrorKind.String)
		assert.Equal(t, int64(3), subs[0].ExitStatus.Int64)
	})

	t.Run("Exposed", func(t *testing.T) {
		env := newTestEnv(t, script, func(cfg *backend.ServiceConfig, _ *core.RunnerConfig) {
			cfg.ExposeProcessErrors = true
		})

		rec := env.post(t, uploadFields("fulltext", "20", "kl", "10"), "paper.pdf", testPDF)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Contains(t, rec.Body.String(), "Traceback: model file missing")
	})
}

func TestSpawnFailure(t *testing.T) {
	env := newTestEnv(t, inferScript, func(_ *backend.ServiceConfig, runner *core.RunnerConfig) {
		runner.Program = filepath.Join(t.TempDir(), "missing-python")
	})

	rec := env.post(t, uploadFields("fulltext", "20", "kl", "10"), "paper.pdf", testPDF)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "inference backend unavailable")
	assert.Empty(t, env.leftovers(t))
}

func TestTimeout(t *testing.T) {
	env := newTestEnv(t, "#!/bin/sh\nsleep 30\n", func(cfg *backend.ServiceConfig, _ *core.RunnerConfig) {
		cfg.InferenceTimeout = 200 * time.Millisecond
	})

	rec := env.post(t, uploadFields("fulltext", "20", "kl", "10"), "paper.pdf", testPDF)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Empty(t, env.leftovers(t))
}

func TestConcurrentSubmissionsAreIsolated(t *testing.T) {
	env := newTestEnv(t, inferScript, func(cfg *backend.ServiceConfig, _ *core.RunnerConfig) {
		cfg.MaxConcurrentJobs = 8
	})

	const n = 8
	outputs := make([]string, n)
	codes := make([]int, n)

	wg := sync.WaitGroup{}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := env.post(t, uploadFields("fulltext", "20", "kl", "10"), fmt.Sprintf("paper-%d.pdf", i), fmt.Sprintf("%%PDF-document-%d", i))
			codes[i] = rec.Code
			outputs[i] = rec.Body.String()
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.Equal(t, http.StatusOK, codes[i], outputs[i])
		var res api.SubmitResponse
		require.NoError(t, json.Unmarshal([]byte(outputs[i]), &res))
		assert.Equal(t, fmt.Sprintf("paper-%d.pdf", i), res.Filename)
		assert.Contains(t, res.Output, fmt.Sprintf("content=%%PDF-document-%d\n", i))
	}

	assert.Empty(t, env.leftovers(t))
}

func TestBusyServerRejectsAfterQueueTimeout(t *testing.T) {
	script := "#!/bin/sh\ntouch started\nsleep 2\necho done\n"
	env := newTestEnv(t, script, func(cfg *backend.ServiceConfig, _ *core.RunnerConfig) {
		cfg.MaxConcurrentJobs = 1
		cfg.JobQueueTimeout = 50 * time.Millisecond
	})

	first := make(chan int, 1)
	go func() {
		first <- env.post(t, uploadFields("fulltext", "20", "kl", "10"), "a.pdf", testPDF).Code
	}()

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(env.installDir, "started"))
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	rec := env.post(t, uploadFields("fulltext", "20", "kl", "10"), "b.pdf", testPDF)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	assert.Equal(t, http.StatusOK, <-first)
	assert.Empty(t, env.leftovers(t))
}

func TestClientDisconnectStopsJob(t *testing.T) {
	env := newTestEnv(t, "#!/bin/sh\ntouch started\nsleep 30\n", nil)

	body, contentType := multipartBody(t, uploadFields("fulltext", "20", "kl", "10"), "paper.pdf", testPDF)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodPost, "/", body).WithContext(ctx)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		env.router.ServeHTTP(rec, req)
	}()

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(env.installDir, "started"))
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	start := time.Now()
	cancel()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("handler did not return after the request was cancelled")
	}
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var subs []database.Submission
	require.NoError(t, env.db.Find(&subs).Error)
	require.Len(t, subs, 1)
	assert.Equal(t, database.SubmissionFailed, subs[0].Status)
	assert.Equal(t, "cancelled", subs[0].ErrorKind.String)

	assert.Empty(t, env.leftovers(t))
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, inferScript, func(cfg *backend.ServiceConfig, _ *core.RunnerConfig) {
		cfg.SubmitRatePerSecond = 0.001
		cfg.SubmitBurst = 1
	})

	rec := env.post(t, uploadFields("fulltext", "20", "kl", "10"), "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.post(t, uploadFields("fulltext", "20", "kl", "10"), "paper.pdf", testPDF)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.False(t, env.processRan())

	// Reads are not limited.
	assert.Equal(t, http.StatusOK, env.get("/visuals").Code)
}

func TestSubmissionRoutes(t *testing.T) {
	env := newTestEnv(t, inferScript, nil)

	for i := 0; i < 3; i++ {
		rec := env.post(t, uploadFields("fulltext", "20", "kl", "10"), fmt.Sprintf("%d.pdf", i), testPDF)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := env.get("/submissions?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	var subs []api.Submission
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &subs))
	assert.Len(t, subs, 2)

	assert.Equal(t, http.StatusNotFound, env.get("/submissions/7a1d9e0c-8e4f-4bb0-9a51-5f0c1c6a3f11").Code)
	assert.Equal(t, http.StatusBadRequest, env.get("/submissions/not-a-uuid").Code)
}

func TestPagesAndOperationalRoutes(t *testing.T) {
	env := newTestEnv(t, inferScript, nil)

	index := env.get("/")
	assert.Equal(t, http.StatusOK, index.Code)
	assert.Contains(t, index.Body.String(), `name="userpdf"`)

	assert.Equal(t, http.StatusOK, env.get("/figures").Code)
	assert.Equal(t, http.StatusOK, env.get("/health").Code)
	assert.Equal(t, http.StatusNotFound, env.get("/nope.html").Code)
	assert.Equal(t, http.StatusNotFound, env.get("/visuals/abstracts/").Code)

	metrics := env.get("/metrics")
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "tmpl_http_requests_total")
}

func TestStaticDirOverridesEmbeddedPages(t *testing.T) {
	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("custom landing"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(static, "style.css"), []byte("body{}"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(static, "img"), 0o755))

	env := newTestEnv(t, inferScript, func(cfg *backend.ServiceConfig, _ *core.RunnerConfig) {
		cfg.StaticDir = static
	})

	assert.Contains(t, env.get("/").Body.String(), "custom landing")
	assert.Equal(t, "body{}", env.get("/style.css").Body.String())
	assert.Equal(t, http.StatusNotFound, env.get("/img").Code)
	assert.Equal(t, http.StatusNotFound, env.get("/figures").Code)
}
