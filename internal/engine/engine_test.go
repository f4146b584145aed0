package engine_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"recut/internal/config"
	"recut/internal/engine"
	"recut/internal/generation"
	"recut/internal/logging"
	"recut/internal/media/ffprobe"
	"recut/internal/registry"
	"recut/internal/services"
	"recut/internal/testsupport"
	"recut/internal/workflow"
)

// callLog records generator invocations across stub collaborators so tests
// can assert ordering between stylize and video calls.
type callLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *callLog) add(entry string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := make([]string, len(l.entries))
	copy(cp, l.entries)
	return cp
}

func (l *callLog) count(prefix string) int {
	n := 0
	for _, entry := range l.all() {
		if strings.HasPrefix(entry, prefix) {
			n++
		}
	}
	return n
}

// stubMedia satisfies engine.Media with canned probe results; the extraction
// and concat calls write real files so the reconciler sees artifacts on disk.
type stubMedia struct {
	mu           sync.Mutex
	duration     float64
	probeErr     error
	frameErr     error
	segmentErr   error
	concatErr    error
	concatInputs []string
	concatDst    string
}

func (m *stubMedia) Probe(_ context.Context, _ string) (ffprobe.Result, error) {
	if m.probeErr != nil {
		return ffprobe.Result{}, m.probeErr
	}
	return ffprobe.Result{Format: ffprobe.Format{
		Duration: strconv.FormatFloat(m.duration, 'f', -1, 64),
	}}, nil
}

func (m *stubMedia) ExtractFrame(_ context.Context, _ string, _ float64, dst string) error {
	if m.frameErr != nil {
		return m.frameErr
	}
	return writeStubFile(dst, "frame")
}

func (m *stubMedia) ExtractSegment(_ context.Context, _ string, _, _ float64, dst string) error {
	if m.segmentErr != nil {
		return m.segmentErr
	}
	return writeStubFile(dst, "segment")
}

func (m *stubMedia) Concat(_ context.Context, inputs []string, dst string) error {
	m.mu.Lock()
	m.concatInputs = append([]string(nil), inputs...)
	m.concatDst = dst
	err := m.concatErr
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return writeStubFile(dst, "merged")
}

func (m *stubMedia) lastConcatInputs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.concatInputs...)
}

type stubDecomposer struct {
	plans []generation.ShotPlan
	err   error
}

func (d stubDecomposer) Decompose(context.Context, string, float64) ([]generation.ShotPlan, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.plans, nil
}

// stubStylizer writes the requested stylized frame unless told to fail for a
// particular shot.
type stubStylizer struct {
	log  *callLog
	mu   sync.Mutex
	fail map[string]error
}

func (s *stubStylizer) Stylize(_ context.Context, req generation.StylizeRequest) error {
	s.log.add("stylize " + req.ShotID)
	s.mu.Lock()
	err := s.fail[req.ShotID]
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return writeStubFile(req.OutputPath, "stylized "+req.ShotID)
}

func (s *stubStylizer) failShot(shotID string, err error) {
	s.mu.Lock()
	s.fail[shotID] = err
	s.mu.Unlock()
}

// stubSynthesizer writes the requested clip unless told to fail, and keeps
// the requests it saw for inspection.
type stubSynthesizer struct {
	log      *callLog
	mu       sync.Mutex
	fail     map[string]error
	requests []generation.SynthesizeRequest
}

func (s *stubSynthesizer) Synthesize(_ context.Context, req generation.SynthesizeRequest) error {
	s.log.add("video " + req.ShotID)
	s.mu.Lock()
	s.requests = append(s.requests, req)
	err := s.fail[req.ShotID]
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return writeStubFile(req.OutputPath, "clip "+req.ShotID)
}

func (s *stubSynthesizer) failShot(shotID string, err error) {
	s.mu.Lock()
	s.fail[shotID] = err
	s.mu.Unlock()
}

func (s *stubSynthesizer) seen() []generation.SynthesizeRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]generation.SynthesizeRequest(nil), s.requests...)
}

type stubPipelines struct {
	set generation.Set
	err error
}

func (p stubPipelines) For(string) (generation.Set, error) {
	if p.err != nil {
		return generation.Set{}, p.err
	}
	return p.set, nil
}

func writeStubFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

// rig wires an engine against stub collaborators in a temp directory.
type rig struct {
	t        *testing.T
	cfg      *config.Config
	eng      *engine.Engine
	media    *stubMedia
	stylizer *stubStylizer
	synth    *stubSynthesizer
	calls    *callLog
}

type rigOption func(*rigConfig)

type rigConfig struct {
	plans []generation.ShotPlan
	index *registry.Store
}

func withPlans(plans []generation.ShotPlan) rigOption {
	return func(rc *rigConfig) { rc.plans = plans }
}

func withIndex(index *registry.Store) rigOption {
	return func(rc *rigConfig) { rc.index = index }
}

func newRig(t *testing.T, opts ...rigOption) *rig {
	t.Helper()
	return newRigWithConfig(t, testsupport.NewConfig(t), opts...)
}

func newRigWithConfig(t *testing.T, cfg *config.Config, opts ...rigOption) *rig {
	t.Helper()
	rc := rigConfig{plans: []generation.ShotPlan{
		{StartSeconds: 0, EndSeconds: 2, Description: "a dog crosses the street"},
		{StartSeconds: 2, EndSeconds: 4, Description: "the dog sits by a lamp post"},
	}}
	for _, opt := range opts {
		opt(&rc)
	}

	calls := &callLog{}
	media := &stubMedia{duration: 12}
	stylizer := &stubStylizer{log: calls, fail: make(map[string]error)}
	synth := &stubSynthesizer{log: calls, fail: make(map[string]error)}
	set := generation.Set{
		Name:        generation.MockModel,
		Decomposer:  stubDecomposer{plans: rc.plans},
		Stylizer:    stylizer,
		Synthesizer: synth,
	}

	eng, err := engine.New(cfg, media, stubPipelines{set: set}, rc.index, logging.NewNop())
	if err != nil {
		t.Fatalf("engine.New failed: %v", err)
	}
	return &rig{t: t, cfg: cfg, eng: eng, media: media, stylizer: stylizer, synth: synth, calls: calls}
}

func (r *rig) layout(jobID string) workflow.Layout {
	return workflow.NewLayout(r.cfg.JobDir(jobID))
}

// seedJob writes a bootstrapped document straight to disk, bypassing Create,
// so each test controls every status. Shots come back with analyze and
// extract done and both render stages NOT_STARTED.
func (r *rig) seedJob(jobID string, shots int) *workflow.Job {
	r.t.Helper()
	source := filepath.Join(testsupport.BaseDir(r.cfg), "source.mp4")
	testsupport.WriteFile(r.t, source, "source")

	job := workflow.NewJob(jobID, source, workflow.Global{
		StylePrompt: "noir comic",
		VideoModel:  generation.MockModel,
	})
	job.SetStage(workflow.StageAnalyze, workflow.StatusSuccess)
	job.SetStage(workflow.StageExtract, workflow.StatusSuccess)

	layout := r.layout(jobID)
	for i := 1; i <= shots; i++ {
		shotID := workflow.FormatShotID(i)
		shot := workflow.NewShot(shotID, float64(i-1)*2, float64(i)*2,
			fmt.Sprintf("a dog crosses street %d", i))
		shot.Assets[workflow.AssetFirstFrame] = workflow.FirstFrameRel(shotID)
		shot.Assets[workflow.AssetSourceSegment] = workflow.SourceSegmentRel(shotID)
		testsupport.WriteFile(r.t, layout.FirstFramePath(shotID), "frame")
		testsupport.WriteFile(r.t, layout.SourceSegmentPath(shotID), "segment")
		job.Shots = append(job.Shots, shot)
	}
	job.RecomputeDerived()
	r.saveJob(job)
	return job
}

func (r *rig) saveJob(job *workflow.Job) {
	r.t.Helper()
	if err := workflow.Save(r.cfg.JobDir(job.ID), job); err != nil {
		r.t.Fatalf("save document: %v", err)
	}
}

// staleStamp marks a document written by saveJobRaw. Save restamps
// Meta.UpdatedAt, so a reload still carrying this value proves the engine
// did not persist.
const staleStamp = "2020-01-01T00:00:00Z"

// saveJobRaw writes the document without restamping Meta.UpdatedAt.
func (r *rig) saveJobRaw(job *workflow.Job) {
	r.t.Helper()
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		r.t.Fatalf("marshal document: %v", err)
	}
	testsupport.WriteFile(r.t, r.layout(job.ID).DocumentPath(), string(data))
}

func (r *rig) reload(jobID string) *workflow.Job {
	r.t.Helper()
	job, err := workflow.Load(r.cfg.JobDir(jobID))
	if err != nil {
		r.t.Fatalf("load document: %v", err)
	}
	return job
}

// finishStage drives one shot stage to SUCCESS with its artifact on disk.
func (r *rig) finishStage(job *workflow.Job, shotID string, stage workflow.Stage) {
	r.t.Helper()
	shot := job.ShotByID(shotID)
	if shot == nil {
		r.t.Fatalf("unknown shot %s", shotID)
	}
	rel, ok := workflow.ArtifactRel(stage, shotID)
	if !ok {
		r.t.Fatalf("stage %s has no artifact", stage)
	}
	testsupport.WriteFile(r.t, r.layout(job.ID).Resolve(rel), "artifact")
	shot.MarkSuccess(stage, rel)
}

func fileExists(t *testing.T, path string) bool {
	t.Helper()
	_, err := os.Stat(path)
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("stat %s: %v", path, err)
	}
	return err == nil
}

func wantOutcome(t *testing.T, err error, want services.Outcome) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected an error classified as %s", want)
	}
	if got := services.ClassifyOutcome(err); got != want {
		t.Fatalf("outcome = %s, want %s (error: %v)", got, want, err)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := engine.New(cfg, nil, stubPipelines{}, nil, logging.NewNop()); err == nil {
		t.Fatal("expected error for nil media tools")
	}
	if _, err := engine.New(nil, &stubMedia{}, stubPipelines{}, nil, logging.NewNop()); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := engine.New(cfg, &stubMedia{}, nil, nil, logging.NewNop()); err == nil {
		t.Fatal("expected error for nil pipelines")
	}
}

func TestGetUnknownJob(t *testing.T) {
	r := newRig(t)
	_, err := r.eng.Get(context.Background(), "no-such-job")
	wantOutcome(t, err, services.OutcomeNotFound)
}

func TestGetEmptyJobID(t *testing.T) {
	r := newRig(t)
	_, err := r.eng.Get(context.Background(), "  ")
	wantOutcome(t, err, services.OutcomeBadRequest)
}

func TestListWalksJobsDirWithoutIndex(t *testing.T) {
	r := newRig(t)
	r.seedJob("job-b", 1)
	r.seedJob("job-a", 2)

	entries, err := r.eng.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].JobID != "job-a" || entries[1].JobID != "job-b" {
		t.Fatalf("unexpected order: %s, %s", entries[0].JobID, entries[1].JobID)
	}
	if entries[0].ShotCount != 2 || entries[1].ShotCount != 1 {
		t.Fatalf("unexpected shot counts: %d, %d", entries[0].ShotCount, entries[1].ShotCount)
	}
}

func TestListEmptyWorkspace(t *testing.T) {
	r := newRig(t)
	entries, err := r.eng.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}
