// Package api is the HTTP surface of the query service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	apperrors "cloudwise/internal/common/errors"
	"cloudwise/internal/common/metrics"
	"cloudwise/internal/common/validation"
	"cloudwise/internal/models"
	"cloudwise/internal/service"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	RequestIDHeader = "X-Request-ID"

	maxBodyBytes = 1 << 20
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Service is the part of service.Service the handlers call.
type Service interface {
	Query(ctx context.Context, req service.QueryRequest) (*models.Envelope, error)
	AnalyzeError(ctx context.Context, req service.AnalyzeRequest) (models.Sections, error)
	OptimizeCosts(ctx context.Context, req service.OptimizeRequest) (*service.OptimizeResult, error)
	AvailableServices() map[string]bool
}

// ReadyCheck fails while a required dependency is unreachable.
type ReadyCheck func(ctx context.Context) error

type Server struct {
	svc    Service
	logger Logger
	ready  []ReadyCheck
	now    func() time.Time
	mux    *http.ServeMux
}

func NewServer(svc Service, log Logger, ready ...ReadyCheck) *Server {
	s := &Server{svc: svc, logger: log, ready: ready, now: time.Now, mux: http.NewServeMux()}
	s.route("POST /api/query", "query", s.handleQuery)
	s.route("POST /api/analyze-error", "analyze_error", s.handleAnalyzeError)
	s.route("POST /api/optimize-costs", "optimize_costs", s.handleOptimizeCosts)
	s.route("GET /health", "health", s.handleHealth)
	s.route("GET /ready", "ready", s.handleReady)
	s.mux.Handle("GET /metrics", promhttp.Handler())
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe serves until ctx is cancelled, then drains for up to five
// seconds.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", map[string]interface{}{"address": addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type requestIDKey struct{}

// RequestID returns the ID assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// route registers a handler behind request ID assignment and the request
// counter.
func (s *Server) route(pattern, name string, h http.HandlerFunc) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
		metrics.HTTPRequests.WithLabelValues(name, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// ==========================
// Handlers
// ==========================

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req service.QueryRequest
	if !s.decode(w, r, querySchema, &req) {
		return
	}
	req.RequestID = RequestID(r.Context())

	env, err := s.svc.Query(r.Context(), req)
	if err != nil {
		if env != nil {
			// The envelope explains the failure; the status carries its class.
			writeJSON(w, apperrors.HTTPStatus(apperrors.Normalize(err).Code), env)
			return
		}
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (s *Server) handleAnalyzeError(w http.ResponseWriter, r *http.Request) {
	var req service.AnalyzeRequest
	if !s.decode(w, r, analyzeSchema, &req) {
		return
	}
	analysis, err := s.svc.AnalyzeError(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"analysis": analysis})
}

func (s *Server) handleOptimizeCosts(w http.ResponseWriter, r *http.Request) {
	var req service.OptimizeRequest
	if !s.decode(w, r, optimizeSchema, &req) {
		return
	}
	if req.Platform == "" {
		req.Platform = service.PlatformAll
	}
	result, err := s.svc.OptimizeCosts(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "healthy",
		"time":               s.now().Format(time.RFC3339),
		"available_services": s.svc.AvailableServices(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	for _, check := range s.ready {
		if err := check(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "not_ready",
				"error":  err.Error(),
				"time":   s.now().Format(time.RFC3339),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"time":   s.now().Format(time.RFC3339),
	})
}

// ==========================
// Encoding helpers
// ==========================

// decode validates the body against schema before unmarshalling it into out.
// On failure the 400 response has already been written.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, schema *validation.Schema, out any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, r, apperrors.NewInvalidInputError(fmt.Sprintf("read body: %v", err)))
		return false
	}

	result, err := schema.ValidateBytes(body)
	if err != nil {
		s.writeError(w, r, apperrors.NewInvalidInputError(err.Error()))
		return false
	}
	if !result.Valid {
		stdErr := apperrors.NewInvalidInputError("request body does not match schema").
			WithMetadata("validation_errors", result.Errors)
		s.writeError(w, r, stdErr)
		return false
	}

	if err := json.Unmarshal(body, out); err != nil {
		s.writeError(w, r, apperrors.NewInvalidInputError(err.Error()))
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := apperrors.Normalize(err)
	status := apperrors.HTTPStatus(stdErr.Code)

	fields := map[string]interface{}{
		"requestId": RequestID(r.Context()),
		"path":      r.URL.Path,
		"code":      string(stdErr.Code),
		"status":    status,
		"error":     err.Error(),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", fields)
	} else {
		s.logger.Warn("Request rejected", fields)
	}

	writeJSON(w, status, map[string]any{
		"error":      stdErr,
		"request_id": RequestID(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
