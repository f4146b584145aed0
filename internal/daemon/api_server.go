package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"recut/internal/api"
	"recut/internal/config"
	"recut/internal/edits"
	"recut/internal/logging"
	"recut/internal/services"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}
	token := cfg.Paths.APIToken
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", srv.authorized(token, srv.handleStatus))
	mux.HandleFunc("/api/jobs", srv.authorized(token, srv.handleJobs))
	mux.HandleFunc("/api/jobs/", srv.authorized(token, srv.handleJobPath))

	// Create and merge run ffmpeg synchronously on the request path, so the
	// write timeout stays generous.
	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) address() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// authorized wraps a handler with bearer-token auth. An empty token leaves
// the route open, which suits localhost binds.
func (s *apiServer) authorized(token string, next http.HandlerFunc) http.HandlerFunc {
	if token == "" {
		return next
	}
	expected := "Bearer " + token
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != expected {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	payload := api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		JobsDir:      status.JobsDir,
		RegistryPath: status.RegistryPath,
		LockFilePath: status.LockFilePath,
		JobCount:     status.JobCount,
		JobStates:    status.JobStates,
		Checks:       api.FromPreflight(status.Checks),
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listJobs(w, r)
	case http.MethodPost:
		s.createJob(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleJobPath(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/jobs/"), "/")
	if rest == "" {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	segments := strings.Split(rest, "/")
	jobID := segments[0]
	switch {
	case len(segments) == 1:
		s.getJob(w, r, jobID)
	case len(segments) == 2 && segments[1] == "edits":
		s.applyEdits(w, r, jobID)
	case len(segments) == 2 && segments[1] == "chat":
		s.chat(w, r, jobID)
	case len(segments) == 2 && segments[1] == "merge":
		s.merge(w, r, jobID)
	case len(segments) == 3 && segments[1] == "run":
		s.runStage(w, r, jobID, segments[2])
	default:
		s.writeError(w, http.StatusNotFound, "unknown route")
	}
}

func (s *apiServer) listJobs(w http.ResponseWriter, r *http.Request) {
	entries, err := s.daemon.eng.List(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: api.FromEntries(entries)})
}

func (s *apiServer) createJob(w http.ResponseWriter, r *http.Request) {
	var req api.CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed create request")
		return
	}
	job, err := s.daemon.eng.Create(r.Context(), api.ToCreateRequest(req))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.JobResponse{Job: api.FromJob(job)})
}

func (s *apiServer) getJob(w http.ResponseWriter, r *http.Request, jobID string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	job, err := s.daemon.eng.Get(r.Context(), jobID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobResponse{Job: api.FromJob(job)})
}

func (s *apiServer) applyEdits(w http.ResponseWriter, r *http.Request, jobID string) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "read request body")
		return
	}
	ops, err := edits.DecodeBatch(body)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	report, err := s.daemon.eng.ApplyEdits(r.Context(), jobID, ops)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.EditResponse{
		Applied: api.FromEditOutcomes(report.Applied),
		Job:     api.FromJob(report.Job),
	})
}

func (s *apiServer) chat(w http.ResponseWriter, r *http.Request, jobID string) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed chat request")
		return
	}
	result, err := s.daemon.Chat(r.Context(), jobID, req.Message)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ChatResponse{
		Applied: api.FromEditOutcomes(result.Applied),
		Skipped: api.FromSkippedDirectives(result.Skipped),
		Job:     api.FromJob(result.Job),
	})
}

func (s *apiServer) runStage(w http.ResponseWriter, r *http.Request, jobID, stageName string) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	shotID := strings.TrimSpace(r.URL.Query().Get("shot_id"))
	run, err := s.daemon.StartRun(r.Context(), jobID, stageName, shotID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.RunAccepted{
		Status:    "started",
		JobID:     run.JobID(),
		Stage:     string(run.Stage()),
		Shots:     run.Shots(),
		RequestID: run.RequestID(),
	})
}

func (s *apiServer) merge(w http.ResponseWriter, r *http.Request, jobID string) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	output, err := s.daemon.eng.Merge(r.Context(), jobID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.MergeResponse{JobID: jobID, Output: output})
}

// writeEngineError maps engine outcomes onto HTTP statuses: unknown
// jobs/shots/stages answer 404, rejected requests 400, everything else 500.
func (s *apiServer) writeEngineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch services.ClassifyOutcome(err) {
	case services.OutcomeNotFound:
		status = http.StatusNotFound
	case services.OutcomeBadRequest:
		status = http.StatusBadRequest
	}
	s.writeError(w, status, err.Error())
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
