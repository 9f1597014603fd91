// HTTP host for the research service.
//
// Information Hiding:
// - Route table and request decoding
// - Mapping of research errors to status codes
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/richinex/deepresearch/research"
	"github.com/richinex/deepresearch/storage"
)

const (
	maxRequestBytes = 1 << 20
	shutdownTimeout = 10 * time.Second
)

// Server exposes a Service over HTTP.
type Server struct {
	service *Service
	logger  *zap.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewHandler creates the HTTP handler for svc.
func NewHandler(svc *Service, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{service: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Post("/research", s.research)
		r.Post("/clarify", s.clarify)
		r.Get("/memory/similar", s.similar)
		r.Delete("/memory", s.clearMemory)
	})
	return r
}

// Serve runs the HTTP host on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, opts Options) error {
	app, err := NewApp(ctx, opts, true)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              addr,
		Handler:           NewHandler(app.Service, app.Logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.Logger.Info("research server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		app.Logger.Info("research server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) research(w http.ResponseWriter, r *http.Request) {
	var req ResearchRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.service.Research(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

func (s *Server) clarify(w http.ResponseWriter, r *http.Request) {
	var req research.RunRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.service.Clarify(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

func (s *Server) similar(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSONResponse(w, http.StatusBadRequest, errorResponse{Error: "query parameter q is required"})
		return
	}
	n := storage.DefaultSimilarResults
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeJSONResponse(w, http.StatusBadRequest, errorResponse{Error: "n must be a positive integer"})
			return
		}
		n = parsed
	}
	records, err := s.service.Similar(r.Context(), query, n)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if records == nil {
		records = []storage.MemoryRecord{}
	}
	writeJSONResponse(w, http.StatusOK, records)
}

func (s *Server) clearMemory(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ClearMemory(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(v); err != nil {
		s.logger.Warn("invalid request body", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSONResponse(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
	}
	writeJSONResponse(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	var stageErr *research.StageError
	switch {
	case errors.Is(err, research.ErrEmptyTopic),
		errors.Is(err, research.ErrInvalidOptions),
		errors.Is(err, research.ErrInvalidSearchDepth):
		return http.StatusBadRequest
	case errors.Is(err, ErrMemoryDisabled):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &stageErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSONResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
