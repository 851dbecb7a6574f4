// Package httpapi serves loaded models over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/zachgk/djl/internal/engine"
	"github.com/zachgk/djl/internal/ndarray"
	"github.com/zachgk/djl/internal/translate"
)

// maxBodyBytes caps predict request bodies.
const maxBodyBytes = 8 << 20

// Server routes requests to endpoints.
type Server struct {
	registry    *engine.Registry
	corsOrigins []string

	mu        sync.RWMutex
	endpoints map[string]Endpoint
}

// Option configures a Server.
type Option func(*Server)

// WithCORSOrigins enables CORS for the given origins.
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) {
		s.corsOrigins = append(s.corsOrigins, origins...)
	}
}

// New creates a server that reports the engines of registry.
func New(registry *engine.Registry, opts ...Option) *Server {
	s := &Server{registry: registry, endpoints: map[string]Endpoint{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add serves ep under its name.
func (s *Server) Add(ep Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.endpoints[ep.Name()]; ok {
		return fmt.Errorf("model %q is already served", ep.Name())
	}
	s.endpoints[ep.Name()] = ep
	return nil
}

// Close closes every endpoint.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for name, ep := range s.endpoints {
		if err := ep.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	clear(s.endpoints)
	return errors.Join(errs...)
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	if len(s.corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/engines", s.listEngines)
	r.Get("/models", s.listModels)
	r.Post("/models/{name}/predict", s.predict)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	return r
}

type engineInfo struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Devices     []string `json:"devices"`
	Features    []string `json:"features"`
	Threads     int      `json:"threads"`
	Translators []string `json:"translators"`
	LiveManager int      `json:"live_managers"`
}

func (s *Server) listEngines(w http.ResponseWriter, _ *http.Request) {
	engines := s.registry.Engines()
	out := make([]engineInfo, 0, len(engines))
	for _, e := range engines {
		devices := make([]string, 0, len(e.Devices()))
		for _, d := range e.Devices() {
			devices = append(devices, d.String())
		}
		out = append(out, engineInfo{
			Name:        e.Name(),
			Version:     e.Version(),
			Devices:     devices,
			Features:    e.Features(),
			Threads:     e.Threads(),
			Translators: e.Translators().Pairs(),
			LiveManager: ndarray.LiveManagers(e.Name()),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"engines": out})
}

type modelInfo struct {
	Name   string `json:"name"`
	Engine string `json:"engine"`
}

func (s *Server) listModels(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	names := slices.Sorted(maps.Keys(s.endpoints))
	out := make([]modelInfo, 0, len(names))
	for _, name := range names {
		out = append(out, modelInfo{Name: name, Engine: s.endpoints[name].Engine()})
	}
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string]any{"models": out})
}

type predictRequest struct {
	Input json.RawMessage `json:"input"`
}

func (s *Server) predict(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s.mu.RLock()
	ep, ok := s.endpoints[name]
	s.mu.RUnlock()
	if !ok {
		writeJSONError(w, http.StatusNotFound, fmt.Sprintf("model %q is not served", name))
		return
	}

	var req predictRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil || len(req.Input) == 0 {
		writeJSONError(w, http.StatusBadRequest, `body must be {"input": ...}`)
		return
	}

	out, err := ep.Predict(r.Context(), req.Input)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			log.Error().Str("component", "httpapi").Str("model", name).Err(err).Msg("predict failed")
		}
		writeJSONError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"output": out})
}

func statusFor(err error) int {
	var bad errBadInput
	switch {
	case errors.As(err, &bad), errors.Is(err, translate.ErrTranslate):
		return http.StatusBadRequest
	case errors.Is(err, ndarray.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg, "code": status})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("component", "httpapi").
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
