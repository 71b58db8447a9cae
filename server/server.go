// Package server exposes the candidex operations over HTTP with a chi router.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/poiesic/candidex/core"
	"github.com/poiesic/candidex/metrics"
	"github.com/poiesic/candidex/storage"
	"github.com/poiesic/candidex/tools"
)

// maxBodyBytes caps request bodies; a full candidate with raw text fits comfortably.
const maxBodyBytes = 4 << 20

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HealthCheck reports whether the backing stores are reachable.
type HealthCheck func(ctx context.Context) error

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the HTTP API.
type Server struct {
	svc           *tools.Service
	dispatcher    *tools.Dispatcher
	health        HealthCheck
	validate      *validator.Validate
	logger        *slog.Logger
	errorHandlers []errorHandler
}

// Option configures a Server.
type Option func(*Server)

// WithHealthCheck sets the check behind GET /healthz.
func WithHealthCheck(h HealthCheck) Option {
	return func(s *Server) {
		s.health = h
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Server over svc.
func New(svc *tools.Service, opts ...Option) *Server {
	s := &Server{
		svc:        svc,
		dispatcher: tools.NewDispatcher(svc),
		health:     func(context.Context) error { return nil },
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(core.ErrValidation, http.StatusBadRequest, "validation_failed"),
		sentinelHandler(storage.ErrInvalidQuery, http.StatusBadRequest, "invalid_query"),
		sentinelHandler(storage.ErrNotFound, http.StatusNotFound, "candidate_not_found"),
		sentinelHandler(tools.ErrUnknownOperation, http.StatusNotFound, "unknown_operation"),
		sentinelHandler(tools.ErrReadOnly, http.StatusForbidden, "read_only"),
		sentinelHandler(storage.ErrUnavailable, http.StatusServiceUnavailable, "store_unavailable"),
		sentinelHandler(context.DeadlineExceeded, http.StatusServiceUnavailable, "timeout"),
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(metrics.Middleware())

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/search", s.handleSearch)
		r.Get("/candidates", s.handleListCandidates)
		r.Post("/candidates", s.handleIngestCandidate)
		r.Get("/candidates/{id}", s.handleGetCandidate)
		r.Delete("/candidates/{id}", s.handleDeleteCandidate)
		r.Get("/operations", s.handleOperations)
		r.Post("/invoke/{operation}", s.handleInvoke)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.health(r.Context()); err != nil {
		s.logger.Warn("health check failed", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req tools.SearchArgs
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.svc.Search(r.Context(), req.Query())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	offset, err := intParam(r, "offset")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	limit, err := intParam(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	page, err := s.svc.ListCandidates(r.Context(), offset, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetCandidate(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.GetCandidate(r.Context(), core.ID(chi.URLParam(r, "id")))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleIngestCandidate(w http.ResponseWriter, r *http.Request) {
	var c core.Candidate
	if !s.decode(w, r, &c) {
		return
	}
	res, err := s.svc.IngestCandidate(r.Context(), &c)
	var warnings []core.Warning
	if res != nil {
		warnings = res.Warnings
	}
	metrics.ObserveWrite("ingest", warnings, err)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleDeleteCandidate(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.DeleteCandidate(r.Context(), core.ID(chi.URLParam(r, "id")))
	var warnings []core.Warning
	if res != nil {
		warnings = res.Warnings
	}
	metrics.ObserveWrite("delete", warnings, err)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleOperations(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"operations": s.dispatcher.Operations()})
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	var args json.RawMessage
	if r.ContentLength != 0 {
		if !s.decode(w, r, &args) {
			return
		}
	}
	out, err := s.dispatcher.Invoke(r.Context(), chi.URLParam(r, "operation"), args)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// decode reads a JSON body into v and validates its struct tags. It writes
// the 400 response itself and returns false on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return false
	}
	if _, raw := v.(*json.RawMessage); raw {
		return true
	}
	if err := s.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return false
	}
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	for _, h := range s.errorHandlers {
		if h(w, err) {
			if !errors.Is(err, storage.ErrNotFound) {
				s.logger.Warn("request failed", "err", err)
			}
			return
		}
	}
	s.logger.Error("internal error", "err", err)
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := chiMiddleware.GetReqID(r.Context())
		if requestID != "" {
			w.Header().Set("X-Request-ID", requestID)
		}

		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Debug("http_request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"latency", time.Since(start),
			"response_bytes", ww.BytesWritten(),
		)
	})
}

func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, err.Error())
		return true
	}
}

func intParam(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New(name + " must be an integer")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
