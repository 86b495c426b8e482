package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/user/cyberpulse/pkg/credentials"
	"github.com/user/cyberpulse/pkg/engine"
	"github.com/user/cyberpulse/pkg/logging"
	"github.com/user/cyberpulse/pkg/meter"
	"github.com/user/cyberpulse/pkg/metrics"
	"github.com/user/cyberpulse/pkg/runner"
)

const maxRequestBody = 10 << 20

// UpstreamFactory builds the metered client for one request's credential
type UpstreamFactory func(cred credentials.Credential) runner.Upstream

// Options configures a Server
type Options struct {
	Upstream UpstreamFactory
	// Credential is used when a request carries neither x-api-key nor Authorization
	Credential credentials.Credential
	Metrics    *metrics.Collector
	Recorder   runner.Recorder
	Logger     *slog.Logger
}

// activeCrosswalk is swapped wholesale on reload, never mutated
type activeCrosswalk struct {
	table  engine.Crosswalk
	source string
}

// Server exposes evaluation over HTTP
type Server struct {
	opts      Options
	log       *slog.Logger
	crosswalk atomic.Pointer[activeCrosswalk]
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	s := &Server{opts: opts, log: opts.Logger.With("component", "server")}
	s.SetCrosswalk(nil, runner.SourceDefault)
	return s
}

// SetCrosswalk replaces the table used by requests without a crosswalk_url.
// A nil table selects the built-in default.
func (s *Server) SetCrosswalk(cw engine.Crosswalk, source string) {
	if cw == nil {
		cw = engine.DefaultCrosswalk()
	}
	s.crosswalk.Store(&activeCrosswalk{table: cw, source: source})
}

// Crosswalk returns the current table and where it came from
func (s *Server) Crosswalk() (engine.Crosswalk, string) {
	a := s.crosswalk.Load()
	return a.table, a.source
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/evaluate", s.handleEvaluate)
	mux.HandleFunc("GET /v1/crosswalk", s.handleCrosswalk)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.opts.Metrics != nil {
		mux.Handle("GET /metrics", s.opts.Metrics.Handler())
	}
	return mux
}

// ListenAndServe runs until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// EvaluateRequest is the body of POST /v1/evaluate
type EvaluateRequest struct {
	CrosswalkURL   string        `json:"crosswalk_url"`
	ContinueOnFail bool          `json:"continue_on_fail"`
	Items          []engine.Item `json:"items"`
}

type errorResponse struct {
	Error       string          `json:"error"`
	Description string          `json:"description,omitempty"`
	ItemIndex   *int            `json:"item_index,omitempty"`
	RunID       string          `json:"run_id,omitempty"`
	Outputs     []engine.Output `json:"outputs,omitempty"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	// the caller's own key wins over the server's
	cred, err := credentials.Resolve(credentials.FromHeaders(r.Header)...)
	if err != nil {
		cred, err = credentials.Resolve(s.opts.Credential)
	}
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}

	policy := engine.AbortOnFailure
	if req.ContinueOnFail {
		policy = engine.ContinueOnFailure
	}
	cw, source := s.Crosswalk()

	run := runner.New(s.opts.Upstream(cred),
		runner.WithMetrics(s.opts.Metrics),
		runner.WithRecorder(s.opts.Recorder),
		runner.WithLogger(s.opts.Logger),
	)
	rep, err := run.Run(r.Context(), runner.Batch{
		Items:           req.Items,
		Policy:          policy,
		CrosswalkURL:    req.CrosswalkURL,
		Crosswalk:       cw,
		CrosswalkSource: source,
	})
	if err != nil {
		s.writeRunError(w, rep, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) writeRunError(w http.ResponseWriter, rep runner.Report, err error) {
	var opErr *meter.OperationError
	var itemErr *engine.ItemError
	switch {
	case errors.As(err, &itemErr):
		idx := itemErr.Index
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:     err.Error(),
			ItemIndex: &idx,
			RunID:     rep.RunID,
			Outputs:   rep.Outputs,
		})
	case errors.Is(err, credentials.ErrNoCredential):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	case errors.As(err, &opErr):
		writeJSON(w, upstreamStatus(err), errorResponse{
			Error:       opErr.Message,
			Description: opErr.Description,
			RunID:       rep.RunID,
		})
	default:
		s.log.Error("evaluation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), RunID: rep.RunID})
	}
}

// upstreamStatus passes the known metered API codes through and reports
// everything else as a bad gateway.
func upstreamStatus(err error) int {
	var apiErr *meter.APIError
	if errors.As(err, &apiErr) {
		if _, ok := meter.FriendlyMessage(apiErr.StatusCode); ok {
			return apiErr.StatusCode
		}
	}
	return http.StatusBadGateway
}

type crosswalkResponse struct {
	Source     string             `json:"source"`
	Frameworks []engine.Framework `json:"frameworks"`
	Crosswalk  engine.Crosswalk   `json:"crosswalk"`
}

func (s *Server) handleCrosswalk(w http.ResponseWriter, r *http.Request) {
	cw, source := s.Crosswalk()
	writeJSON(w, http.StatusOK, crosswalkResponse{Source: source, Frameworks: cw.Frameworks(), Crosswalk: cw})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, source := s.Crosswalk()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "crosswalk_source": source})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
