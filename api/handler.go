// Package api serves agents and conversations over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/m0rjc/cyberalchemy/agents"
	"github.com/m0rjc/cyberalchemy/conversation"
	"github.com/m0rjc/cyberalchemy/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Handler holds the services behind the routes.
type Handler struct {
	engine   *conversation.Engine
	registry *agents.Registry
	gatherer prometheus.Gatherer // nil = no /metrics route
}

func NewHandler(engine *conversation.Engine, registry *agents.Registry, gatherer prometheus.Gatherer) *Handler {
	return &Handler{engine: engine, registry: registry, gatherer: gatherer}
}

// Router returns the complete HTTP handler.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chiMiddleware.Recoverer)

	r.Get("/healthz", h.Health)
	if h.gatherer != nil {
		r.Handle("/metrics", metrics.Handler(h.gatherer))
	}

	r.Route("/agents", func(r chi.Router) {
		r.Get("/", h.ListAgents)
		r.Post("/", h.CreateAgent)
		r.Get("/{id}", h.GetAgent)
		r.Delete("/{id}", h.DeleteAgent)
	})
	r.Route("/conversations", func(r chi.Router) {
		r.Get("/", h.ListConversations)
		r.Post("/", h.StartConversation)
		r.Get("/{id}", h.GetConversation)
		r.Delete("/{id}", h.DeleteConversation)
		r.Post("/{id}/fork", h.ForkConversation)
		r.Post("/{id}/messages", h.PostMessage)
	})
	return r
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response_encoding_failed", "error", err)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// writeError maps domain errors to status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, agents.ErrAgentNotFound), errors.Is(err, conversation.ErrConversationNotFound):
		status = http.StatusNotFound
	case errors.Is(err, agents.ErrDuplicateName), errors.Is(err, agents.ErrReservedAgent):
		status = http.StatusConflict
	case errors.Is(err, agents.ErrMissingName), errors.Is(err, conversation.ErrEmptyInput), errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request_failed", "path", r.URL.Path, "error", err)
	}
	Error(w, status, err.Error())
}

var errBadRequest = errors.New("bad request")

// decode reads a JSON body into v. An empty body leaves v unchanged.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(errBadRequest, err)
	}
	return nil
}

// requestLogger logs each request through slog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		slog.DebugContext(r.Context(), "http_request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(started),
			"request_id", chiMiddleware.GetReqID(r.Context()))
	})
}
