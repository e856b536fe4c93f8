// Package server exposes a Console over HTTP: a JSON API, a browser page
// that renders entries server side, and per-session event streams.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/flatval"
	"github.com/aretw0/flatval/internal/logging"
	"github.com/aretw0/flatval/internal/metrics"
	"github.com/aretw0/flatval/pkg/console"
	"github.com/aretw0/flatval/pkg/domain"
	"github.com/aretw0/flatval/pkg/render"
	"github.com/go-chi/chi/v5"
)

// Console is the part of flatval.Console the server drives.
type Console interface {
	NewSession(ctx context.Context) (string, error)
	Exists(ctx context.Context, sessionID string) (bool, error)
	Eval(ctx context.Context, sessionID, code string) (console.Block, error)
	Entries(ctx context.Context, sessionID, filter string) ([]console.Block, error)
	Toggle(ctx context.Context, sessionID, entryID string, pos render.Pos) (console.Block, error)
	ExpandAll(ctx context.Context, sessionID, entryID string, limit int) (console.Block, error)
	Clear(ctx context.Context, sessionID string) (string, error)
}

var _ Console = (*flatval.Console)(nil)

// Server holds the handlers.
type Server struct {
	Console Console
	Streams *StreamManager

	logger      *slog.Logger
	metrics     *metrics.Metrics
	expandLimit int
}

// Option configures the handler.
type Option func(*Server)

// WithLogger sets the logger (default: discard).
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics mounts /metrics and counts connected streams.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithExpandLimit bounds the expand endpoint (default 500). Requests may ask
// for less, never more; 0 lifts the bound.
func WithExpandLimit(n int) Option {
	return func(s *Server) {
		s.expandLimit = n
	}
}

// NewHandler creates the HTTP handler for the console.
func NewHandler(c Console, opts ...Option) http.Handler {
	s := &Server{
		Console:     c,
		logger:      logging.NewNop(),
		expandLimit: 500,
	}
	for _, opt := range opts {
		opt(s)
	}

	var onChange func(int)
	if s.metrics != nil {
		onChange = func(delta int) { s.metrics.ActiveStreams.Add(float64(delta)) }
	}
	s.Streams = NewStreamManager(s.logger, onChange)

	r := chi.NewRouter()
	r.Get("/", s.Page)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.CreateSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Delete("/", s.ClearSession)
			r.Get("/entries", s.ListEntries)
			r.Post("/eval", s.Eval)
			r.Post("/entries/{entryID}/toggle", s.Toggle)
			r.Post("/entries/{entryID}/expand", s.Expand)
			r.Get("/events", s.SubscribeEvents)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// EntryResponse is the wire form of a rendered entry.
type EntryResponse struct {
	ID       string `json:"id"`
	Input    string `json:"input"`
	Status   string `json:"status"`
	Text     string `json:"text"`
	HTML     string `json:"html"`
	IsError  bool   `json:"is_error"`
	Fallback bool   `json:"fallback,omitempty"`
}

// SessionResponse names a session.
type SessionResponse struct {
	SessionID string `json:"session_id"`
}

// Event is what a session stream carries.
type Event struct {
	Type      string         `json:"type"`
	Entry     *EntryResponse `json:"entry,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
}

const (
	EventEntry   = "entry"
	EventCleared = "cleared"
)

// Page serves the browser console.
func (s *Server) Page(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct{ Version string }{Version: strings.TrimSpace(flatval.Version)}
	if err := pageTemplate.Execute(w, data); err != nil {
		s.logger.Error("Page render failed", "err", err)
	}
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "flatval-http",
		"version": strings.TrimSpace(flatval.Version),
	})
}

// CreateSession handles POST /api/sessions.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	id, err := s.Console.NewSession(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, SessionResponse{SessionID: id})
}

// ClearSession handles DELETE /api/sessions/{sessionID}. The response names
// the session that replaces the cleared one.
func (s *Server) ClearSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if !s.requireSession(w, r, sessionID) {
		return
	}

	next, err := s.Console.Clear(r.Context(), sessionID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.broadcast(sessionID, Event{Type: EventCleared, SessionID: next})
	s.writeJSON(w, http.StatusOK, SessionResponse{SessionID: next})
}

// ListEntries handles GET /api/sessions/{sessionID}/entries?filter=.
func (s *Server) ListEntries(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	blocks, err := s.Console.Entries(r.Context(), sessionID, r.URL.Query().Get("filter"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := make([]EntryResponse, 0, len(blocks))
	for _, b := range blocks {
		e, err := toResponse(b)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		resp = append(resp, e)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// Eval handles POST /api/sessions/{sessionID}/eval.
func (s *Server) Eval(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Eval: Invalid request body", "err", err)
		return
	}
	if !s.requireSession(w, r, sessionID) {
		return
	}

	b, err := s.Console.Eval(r.Context(), sessionID, body.Code)
	s.respondEntry(w, r, sessionID, b, err)
}

// Toggle handles POST /api/sessions/{sessionID}/entries/{entryID}/toggle.
func (s *Server) Toggle(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	var body struct {
		Pos string `json:"pos"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Toggle: Invalid request body", "err", err)
		return
	}

	b, err := s.Console.Toggle(r.Context(), sessionID, chi.URLParam(r, "entryID"), render.Pos(body.Pos))
	s.respondEntry(w, r, sessionID, b, err)
}

// Expand handles POST /api/sessions/{sessionID}/entries/{entryID}/expand?limit=.
func (s *Server) Expand(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	limit := s.expandLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = clampLimit(n, s.expandLimit)
	}

	b, err := s.Console.ExpandAll(r.Context(), sessionID, chi.URLParam(r, "entryID"), limit)
	s.respondEntry(w, r, sessionID, b, err)
}

// clampLimit bounds a client's limit by the server's. A client cannot ask
// for "all" (0) unless the server itself allows it.
func clampLimit(n, ceiling int) int {
	if ceiling == 0 {
		return n
	}
	if n == 0 || n > ceiling {
		return ceiling
	}
	return n
}

// SubscribeEvents handles GET /api/sessions/{sessionID}/events (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	if !s.requireSession(w, r, sessionID) {
		return
	}

	ch, cancel := s.Streams.Subscribe(sessionID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE Client Disconnected", "session_id", sessionID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *Server) respondEntry(w http.ResponseWriter, r *http.Request, sessionID string, b console.Block, err error) {
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp, err := toResponse(b)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.broadcast(sessionID, Event{Type: EventEntry, Entry: &resp})
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) requireSession(w http.ResponseWriter, r *http.Request, sessionID string) bool {
	ok, err := s.Console.Exists(r.Context(), sessionID)
	if err != nil {
		s.fail(w, r, err)
		return false
	}
	if !ok {
		s.fail(w, r, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID))
		return false
	}
	return true
}

func (s *Server) broadcast(sessionID string, ev Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("Event encode failed", "err", err)
		return
	}
	s.Streams.Broadcast(sessionID, string(msg))
}

// fail maps console errors to status codes.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrEntryNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrEmptyInput), errors.Is(err, console.ErrInvalidPosition):
		status = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "err", err)
	}
	http.Error(w, err.Error(), status)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}

func toResponse(b console.Block) (EntryResponse, error) {
	var buf bytes.Buffer
	if err := console.WriteHTML(&buf, b); err != nil {
		return EntryResponse{}, err
	}
	text := b.Text
	if b.Item != nil {
		text = render.Text(b.Item)
	}
	return EntryResponse{
		ID:       b.EntryID,
		Input:    b.Input,
		Status:   string(b.Status),
		Text:     text,
		HTML:     buf.String(),
		IsError:  b.IsError,
		Fallback: b.Fallback,
	}, nil
}

// Run serves srv until ctx is done, then shuts it down, giving outstanding
// requests up to timeout to complete.
func Run(ctx context.Context, srv *http.Server, timeout time.Duration, logger *slog.Logger) error {
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting flatval server", "addr", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Start shutdown...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Graceful shutdown did not complete", "timeout", timeout, "err", err)
		if err := srv.Close(); err != nil {
			return fmt.Errorf("failed to kill server: %w", err)
		}
	}
	logger.Info("flatval server stopped gracefully")
	return nil
}
