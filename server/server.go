// Package server exposes the agent over HTTP: a chat endpoint, the agent
// card for discovery and a health probe.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rivalscope/rivalscope/agent"
	"github.com/rivalscope/rivalscope/config"
	"github.com/rivalscope/rivalscope/logging"
	"github.com/rivalscope/rivalscope/model"
)

// Options configure the Server.
type Options struct {
	Logger logging.Logger

	// RequestTimeout bounds one chat request end to end. Agent runs make
	// many upstream calls, so the default is generous.
	RequestTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// IsConfigError classifies errors caused by missing operator
	// configuration (e.g. a required credential). Those map to 503 with a
	// configuration error code instead of 500.
	IsConfigError func(error) bool
}

// Server serves the agent's HTTP surface.
type Server struct {
	cfg    *config.Config
	runner runnerFunc
	ready  func() bool
	logger logging.Logger
	opts   Options
	http   *http.Server
}

type runnerFunc func(ctx context.Context, messages []model.Message) (*agent.Result, error)

// New constructs the server. The run function executes one conversation and
// returns the agent's result; ready reports whether the agent is initialized.
func New(cfg *config.Config, run runnerFunc, ready func() bool, optFns ...func(o *Options)) *Server {
	opts := Options{
		RequestTimeout:  10 * time.Minute,
		ShutdownTimeout: 10 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Server{
		cfg:    cfg,
		runner: run,
		ready:  ready,
		logger: logging.OrNoOp(opts.Logger),
		opts:   opts,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat", s.handleChat)
	mux.HandleFunc("GET /.well-known/agent.json", s.handleAgentCard)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.http = &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// ListenAndServe blocks serving requests until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server.listen", "addr", s.http.Addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	s.logger.Info("server.shutdown")
	return s.http.Shutdown(shutdownCtx)
}

// Handler returns the underlying HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

type chatRequest struct {
	Messages []model.Message `json:"messages"`
}

type chatResponse struct {
	Content string            `json:"content"`
	Usage   *model.TokenUsage `json:"usage,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return
	}
	if len(req.Messages) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "messages must not be empty"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.runner(ctx, req.Messages)
	if err != nil {
		s.logger.Error("server.chat.error", "error", err.Error())
		if s.opts.IsConfigError != nil && s.opts.IsConfigError(err) {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error(), Code: "configuration"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	s.logger.Info("server.chat.done", "duration_ms", time.Since(start).Milliseconds(), "turns", result.Turns)

	resp := chatResponse{Content: result.Content}
	if result.Usage.TotalTokens > 0 {
		resp.Usage = &result.Usage
	}
	writeJSON(w, http.StatusOK, resp)
}

// agentCard is the discovery document served at /.well-known/agent.json,
// derived from the manifest.
type agentCard struct {
	Name                 string          `json:"name"`
	Description          string          `json:"description"`
	Version              string          `json:"version"`
	URL                  string          `json:"url"`
	ProtocolVersion      string          `json:"protocol_version"`
	Capabilities         []string        `json:"capabilities"`
	EnvironmentVariables []config.EnvVar `json:"environment_variables"`
}

func (s *Server) handleAgentCard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, agentCard{
		Name:            s.cfg.Name,
		Description:     s.cfg.Description,
		Version:         s.cfg.Version,
		URL:             s.cfg.Deployment.URL,
		ProtocolVersion: s.cfg.Deployment.ProtocolVersion,
		Capabilities: []string{
			"web_search",
			"website_scraping",
			"competitive_analysis",
			"strategic_reporting",
		},
		EnvironmentVariables: s.cfg.EnvironmentVariables,
	})
}

type healthResponse struct {
	Status string `json:"status"`
	Ready  bool   `json:"ready"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	ready := false
	if s.ready != nil {
		ready = s.ready()
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Ready: ready})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
