package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"recut/internal/agent"
	"recut/internal/api"
	"recut/internal/config"
	"recut/internal/engine"
	"recut/internal/generation"
	"recut/internal/logging"
	"recut/internal/media/ffprobe"
	"recut/internal/testsupport"
)

func writeArtifact(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

type apiMedia struct{}

func (apiMedia) Probe(context.Context, string) (ffprobe.Result, error) {
	return ffprobe.Result{Format: ffprobe.Format{Duration: "4.0"}}, nil
}

func (apiMedia) ExtractFrame(_ context.Context, _ string, _ float64, dst string) error {
	return writeArtifact(dst, "frame")
}

func (apiMedia) ExtractSegment(_ context.Context, _ string, _, _ float64, dst string) error {
	return writeArtifact(dst, "segment")
}

func (apiMedia) Concat(_ context.Context, _ []string, dst string) error {
	return writeArtifact(dst, "final")
}

type apiDecomposer struct{}

func (apiDecomposer) Decompose(context.Context, string, float64) ([]generation.ShotPlan, error) {
	return []generation.ShotPlan{
		{StartSeconds: 0, EndSeconds: 2, Description: "a dog crosses the street"},
		{StartSeconds: 2, EndSeconds: 4, Description: "the dog sits by a lamp post"},
	}, nil
}

type apiStylizer struct{}

func (apiStylizer) Stylize(_ context.Context, req generation.StylizeRequest) error {
	return writeArtifact(req.OutputPath, "stylized")
}

type apiSynthesizer struct{}

func (apiSynthesizer) Synthesize(_ context.Context, req generation.SynthesizeRequest) error {
	return writeArtifact(req.OutputPath, "clip")
}

type apiPipelines struct {
	set generation.Set
}

func (p apiPipelines) For(string) (generation.Set, error) { return p.set, nil }

type scriptedCompleter struct {
	response string
	err      error
}

func (s *scriptedCompleter) CompleteJSON(context.Context, string, string) (string, error) {
	return s.response, s.err
}

func newTestEngine(t testing.TB, cfg *config.Config) *engine.Engine {
	t.Helper()
	set := generation.Set{
		Name:        generation.MockModel,
		Decomposer:  apiDecomposer{},
		Stylizer:    apiStylizer{},
		Synthesizer: apiSynthesizer{},
	}
	eng, err := engine.New(cfg, apiMedia{}, apiPipelines{set: set}, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return eng
}

type fixtureSettings struct {
	cfgOpts []testsupport.ConfigOption
	noChat  bool
}

type fixtureOption func(*fixtureSettings)

func withConfigOptions(opts ...testsupport.ConfigOption) fixtureOption {
	return func(s *fixtureSettings) { s.cfgOpts = append(s.cfgOpts, opts...) }
}

func withoutChatClient() fixtureOption {
	return func(s *fixtureSettings) { s.noChat = true }
}

type serverFixture struct {
	cfg       *config.Config
	daemon    *Daemon
	srv       *apiServer
	completer *scriptedCompleter
}

func newServerFixture(t *testing.T, opts ...fixtureOption) *serverFixture {
	t.Helper()

	var settings fixtureSettings
	for _, opt := range opts {
		opt(&settings)
	}

	cfg := testsupport.NewConfig(t, settings.cfgOpts...)
	eng := newTestEngine(t, cfg)
	completer := &scriptedCompleter{}
	chatAgent := agent.New(completer, logging.NewNop())
	if settings.noChat {
		chatAgent = agent.New(nil, logging.NewNop())
	}
	d, err := New(cfg, eng, chatAgent, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	srv, err := newAPIServer(cfg, d, logging.NewNop())
	if err != nil {
		t.Fatalf("newAPIServer: %v", err)
	}
	if srv == nil {
		t.Fatal("expected api server to be configured")
	}
	return &serverFixture{cfg: cfg, daemon: d, srv: srv, completer: completer}
}

// do routes a request through the server's mux without a live listener.
func (f *serverFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch payload := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(payload)
	default:
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	f.srv.server.Handler.ServeHTTP(w, req)
	return w
}

func (f *serverFixture) createJob(t *testing.T) api.JobView {
	t.Helper()

	source := filepath.Join(testsupport.BaseDir(f.cfg), "clips", "source.mp4")
	testsupport.WriteFile(t, source, "source-bytes")
	w := f.do(t, http.MethodPost, "/api/jobs", api.CreateJobRequest{
		SourceVideo: source,
		StylePrompt: "noir comic",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create job: expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	var resp api.JobResponse
	decodeBody(t, w, &resp)
	return resp.Job
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("decode response: %v (%s)", err, w.Body.String())
	}
}

func TestAPICreateAndGetJob(t *testing.T) {
	fx := newServerFixture(t)

	job := fx.createJob(t)
	if job.ID == "" {
		t.Fatal("expected job id to be assigned")
	}
	if len(job.Shots) != 2 {
		t.Fatalf("expected 2 shots, got %d", len(job.Shots))
	}
	if job.Stages["analyze"] != "SUCCESS" || job.Stages["extract"] != "SUCCESS" {
		t.Fatalf("expected bootstrap stages done, got %+v", job.Stages)
	}
	if job.StylePrompt != "noir comic" {
		t.Fatalf("unexpected style prompt %q", job.StylePrompt)
	}

	w := fx.do(t, http.MethodGet, "/api/jobs/"+job.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var resp api.JobResponse
	decodeBody(t, w, &resp)
	if resp.Job.ID != job.ID {
		t.Fatalf("expected job %s, got %s", job.ID, resp.Job.ID)
	}

	w = fx.do(t, http.MethodGet, "/api/jobs/no-such-job", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown job, got %d", w.Code)
	}
}

func TestAPICreateRejectsMissingSource(t *testing.T) {
	fx := newServerFixture(t)

	w := fx.do(t, http.MethodPost, "/api/jobs", api.CreateJobRequest{
		SourceVideo: filepath.Join(testsupport.BaseDir(fx.cfg), "missing.mp4"),
		StylePrompt: "noir comic",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing source, got %d", w.Code)
	}

	w = fx.do(t, http.MethodPost, "/api/jobs", "{not json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", w.Code)
	}
}

func TestAPIListJobs(t *testing.T) {
	fx := newServerFixture(t)
	job := fx.createJob(t)

	w := fx.do(t, http.MethodGet, "/api/jobs", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var resp api.JobListResponse
	decodeBody(t, w, &resp)
	if len(resp.Jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(resp.Jobs))
	}
	if resp.Jobs[0].ID != job.ID || resp.Jobs[0].ShotCount != 2 {
		t.Fatalf("unexpected summary: %+v", resp.Jobs[0])
	}
	if resp.Jobs[0].State != "pending" {
		t.Fatalf("expected pending state, got %q", resp.Jobs[0].State)
	}
}

func TestAPIEditsBatch(t *testing.T) {
	fx := newServerFixture(t)
	job := fx.createJob(t)

	w := fx.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/edits",
		`[{"op":"set_global_style","value":"watercolor wash"}]`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d (%s)", w.Code, w.Body.String())
	}
	var resp api.EditResponse
	decodeBody(t, w, &resp)
	if len(resp.Applied) != 1 || resp.Applied[0].Op != "set_global_style" || resp.Applied[0].Affected != 2 {
		t.Fatalf("unexpected applied results: %+v", resp.Applied)
	}
	if resp.Job.StylePrompt != "watercolor wash" {
		t.Fatalf("expected updated style, got %q", resp.Job.StylePrompt)
	}

	w = fx.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/edits", `{"op":"reverse_time"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown op, got %d", w.Code)
	}

	w = fx.do(t, http.MethodPost, "/api/jobs/no-such-job/edits",
		`[{"op":"set_global_style","value":"x"}]`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown job, got %d", w.Code)
	}
}

func TestAPIRunExecutesInBackground(t *testing.T) {
	fx := newServerFixture(t)
	job := fx.createJob(t)

	w := fx.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/run/stylize", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202 Accepted, got %d (%s)", w.Code, w.Body.String())
	}
	var resp api.RunAccepted
	decodeBody(t, w, &resp)
	if resp.Status != "started" || resp.Stage != "stylize" {
		t.Fatalf("unexpected acknowledgement: %+v", resp)
	}
	if len(resp.Shots) != 2 {
		t.Fatalf("expected 2 claimed shots, got %v", resp.Shots)
	}
	if resp.RequestID == "" {
		t.Fatal("expected a request id")
	}

	fx.daemon.tasks.Wait()

	w = fx.do(t, http.MethodGet, "/api/jobs/"+job.ID, nil)
	var after api.JobResponse
	decodeBody(t, w, &after)
	for _, shot := range after.Job.Shots {
		if shot.Stages["stylize"] != "SUCCESS" {
			t.Fatalf("expected stylize SUCCESS for %s, got %q", shot.ID, shot.Stages["stylize"])
		}
	}
}

func TestAPIRunTargetsSingleShot(t *testing.T) {
	fx := newServerFixture(t)
	job := fx.createJob(t)

	w := fx.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/run/stylize?shot_id=shot_01", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202 Accepted, got %d (%s)", w.Code, w.Body.String())
	}
	var resp api.RunAccepted
	decodeBody(t, w, &resp)
	if len(resp.Shots) != 1 || resp.Shots[0] != "shot_01" {
		t.Fatalf("expected claim on shot_01 only, got %v", resp.Shots)
	}

	fx.daemon.tasks.Wait()

	w = fx.do(t, http.MethodGet, "/api/jobs/"+job.ID, nil)
	var after api.JobResponse
	decodeBody(t, w, &after)
	states := map[string]string{}
	for _, shot := range after.Job.Shots {
		states[shot.ID] = shot.Stages["stylize"]
	}
	if states["shot_01"] != "SUCCESS" || states["shot_02"] != "NOT_STARTED" {
		t.Fatalf("unexpected stylize states: %+v", states)
	}
}

func TestAPIRunRejectsUnknownStage(t *testing.T) {
	fx := newServerFixture(t)
	job := fx.createJob(t)

	w := fx.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/run/colorize", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown stage, got %d", w.Code)
	}
}

func TestAPIRunRejectsDuplicateClaim(t *testing.T) {
	fx := newServerFixture(t)
	job := fx.createJob(t)

	// Claim every shot without executing, leaving the stage RUNNING.
	if _, err := fx.daemon.eng.BeginStage(context.Background(), job.ID, "stylize", ""); err != nil {
		t.Fatalf("BeginStage: %v", err)
	}

	w := fx.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/run/stylize?shot_id=shot_01", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for in-flight shot, got %d (%s)", w.Code, w.Body.String())
	}
	w = fx.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/run/video_generate", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 while stylize is in flight, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestAPIMergeAfterFullRender(t *testing.T) {
	fx := newServerFixture(t)
	job := fx.createJob(t)

	w := fx.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/run/video_generate", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202 Accepted, got %d (%s)", w.Code, w.Body.String())
	}
	fx.daemon.tasks.Wait()

	w = fx.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/merge", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d (%s)", w.Code, w.Body.String())
	}
	var resp api.MergeResponse
	decodeBody(t, w, &resp)
	if resp.JobID != job.ID || resp.Output == "" {
		t.Fatalf("unexpected merge response: %+v", resp)
	}
	if _, err := os.Stat(resp.Output); err != nil {
		t.Fatalf("expected merged output at %s: %v", resp.Output, err)
	}

	w = fx.do(t, http.MethodGet, "/api/jobs/"+job.ID, nil)
	var after api.JobResponse
	decodeBody(t, w, &after)
	if after.Job.Stages["merge"] != "SUCCESS" {
		t.Fatalf("expected merge SUCCESS, got %q", after.Job.Stages["merge"])
	}
}

func TestAPIMergeRejectsPendingShots(t *testing.T) {
	fx := newServerFixture(t)
	job := fx.createJob(t)

	w := fx.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/merge", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for pending shots, got %d", w.Code)
	}
	var resp map[string]string
	decodeBody(t, w, &resp)
	if !strings.Contains(resp["error"], "pending") {
		t.Fatalf("expected pending detail, got %q", resp["error"])
	}
}

func TestAPIChatAppliesProposal(t *testing.T) {
	fx := newServerFixture(t)
	job := fx.createJob(t)
	fx.completer.response = `[{"op":"set_global_style","value":"sumi-e ink"},{"op":"none","reason":"greeting"}]`

	w := fx.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/chat", api.ChatRequest{Message: "make it ink wash"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d (%s)", w.Code, w.Body.String())
	}
	var resp api.ChatResponse
	decodeBody(t, w, &resp)
	if len(resp.Applied) != 1 || resp.Applied[0].Op != "set_global_style" || resp.Applied[0].Affected != 2 {
		t.Fatalf("unexpected applied ops: %+v", resp.Applied)
	}
	if len(resp.Skipped) != 1 || resp.Skipped[0].Op != "none" {
		t.Fatalf("unexpected skipped directives: %+v", resp.Skipped)
	}
	if resp.Job.StylePrompt != "sumi-e ink" {
		t.Fatalf("expected applied style, got %q", resp.Job.StylePrompt)
	}
}

func TestAPIChatValidation(t *testing.T) {
	fx := newServerFixture(t)
	job := fx.createJob(t)
	fx.completer.response = `[]`

	w := fx.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/chat", api.ChatRequest{Message: "   "})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty message, got %d", w.Code)
	}

	w = fx.do(t, http.MethodPost, "/api/jobs/no-such-job/chat", api.ChatRequest{Message: "hello"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown job, got %d", w.Code)
	}
}

func TestAPIChatWithoutChatModel(t *testing.T) {
	fx := newServerFixture(t, withoutChatClient())
	job := fx.createJob(t)

	w := fx.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/chat", api.ChatRequest{Message: "hello"})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for unconfigured chat model, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestAPIStatusEndpoint(t *testing.T) {
	fx := newServerFixture(t)
	fx.createJob(t)

	w := fx.do(t, http.MethodGet, "/api/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var resp api.DaemonStatus
	decodeBody(t, w, &resp)
	if resp.Running {
		t.Fatal("expected running=false before Start")
	}
	if resp.PID <= 0 {
		t.Fatalf("expected a pid, got %d", resp.PID)
	}
	if resp.JobCount != 1 || resp.JobStates["pending"] != 1 {
		t.Fatalf("unexpected job counts: %+v", resp)
	}
	if resp.JobsDir != fx.cfg.Paths.JobsDir {
		t.Fatalf("unexpected jobs dir %q", resp.JobsDir)
	}

	w = fx.do(t, http.MethodPost, "/api/status", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestAPIMethodNotAllowed(t *testing.T) {
	fx := newServerFixture(t)
	job := fx.createJob(t)

	w := fx.do(t, http.MethodDelete, "/api/jobs", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for DELETE /api/jobs, got %d", w.Code)
	}
	w = fx.do(t, http.MethodGet, "/api/jobs/"+job.ID+"/merge", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET merge, got %d", w.Code)
	}
	w = fx.do(t, http.MethodGet, "/api/jobs/"+job.ID+"/unknown", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown route, got %d", w.Code)
	}
}

func TestAPIAuthToken(t *testing.T) {
	fx := newServerFixture(t, withConfigOptions(testsupport.WithAPIToken("super-secret")))

	w := fx.do(t, http.MethodGet, "/api/status", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	fx.srv.server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer super-secret")
	rec = httptest.NewRecorder()
	fx.srv.server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d", rec.Code)
	}
}
