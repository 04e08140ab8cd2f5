package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v4/mem"

	"smartcache/pkg/cache"
	"smartcache/pkg/cacheerrors"
	"smartcache/pkg/keys"
	"smartcache/pkg/metrics"
)

const (
	contentTypeJSON        = "application/json"
	headerRequestID        = "X-Request-ID"
	defaultHTTPPort        = 8080
	defaultShutdownTimeout = time.Second * 5
)

// iCache - то, что шлюз использует из фасада
type iCache interface {
	Get(ctx context.Context, key string) (any, bool, error)
	Set(ctx context.Context, key string, value any, opts ...cache.SetOption) error
	Delete(ctx context.Context, key string) (bool, error)
	Size(ctx context.Context, key string) (int64, error)
	Do(ctx context.Context, verb, key string, args ...any) (any, error)
	Keys(ctx context.Context, match string) ([]string, error)
}

type ctxKey struct{}

// Server exposes the cache facade over HTTP.
type Server struct {
	cache             iCache
	metrics           *metrics.Registry
	httpServer        *http.Server
	readHeaderTimeout time.Duration
	URL               string
	addr              string
}

// NewServer creates a new server instance. reg may be nil.
func NewServer(c iCache, reg *metrics.Registry, port int, readHeaderTimeout time.Duration) *Server {
	if port == 0 {
		port = defaultHTTPPort
	}
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	if readHeaderTimeout <= 0 {
		readHeaderTimeout = time.Second
	}
	return &Server{
		cache:             c,
		metrics:           reg,
		readHeaderTimeout: readHeaderTimeout,
		URL:               fmt.Sprintf("http://localhost:%d", port),
		addr:              fmt.Sprintf(":%d", port),
	}
}

// Start starts the server
func (s *Server) Start() error {
	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop stops the server
func (s *Server) Stop() error {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown HTTP server: %w", err)
		}
	}
	return nil
}

// createRouter builds chi router
func (s *Server) createRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)
	r.Put("/api/string", s.handlePut)
	r.Get("/api/string", s.handleGet)
	r.Get("/api/size", s.handleSize)
	r.Get("/api/keys", s.handleKeys)
	r.Post("/api/command", s.handleCommand)
	r.Delete("/api", s.handleDelete)

	return r
}

func (s *Server) startHTTPServer() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.createRouter(),
		ReadHeaderTimeout: s.readHeaderTimeout,
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("HTTP server started", "addr", s.URL)
	return nil
}

// requestID reuses the caller's X-Request-ID or issues a new one.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))

		// шаблон маршрута известен только после роутинга
		s.metrics.IncCounter("http_requests_total", map[string]string{"method": r.Method, "path": routePattern(r)}, 1)
	})
}

// routePattern keeps the metric label set bounded: unmatched paths share one label.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, data Response) {
	data.RequestID = requestIDFrom(r.Context())
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("Error encoding response", "error", err, "request_id", data.RequestID)
	}
}

// writeError maps facade errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, cacheerrors.ErrWrongType):
		status = http.StatusConflict
	case errors.Is(err, cacheerrors.ErrUnsupportedCommand),
		errors.Is(err, cacheerrors.ErrInvalidArgument),
		errors.Is(err, cacheerrors.ErrSerialization):
		status = http.StatusBadRequest
	case errors.Is(err, cacheerrors.ErrTransport):
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "error", err, "request_id", requestIDFrom(r.Context()))
	}
	s.writeJSON(w, r, status, NewErrorResponse(err.Error()))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, NewOKResponse())
}

type metricsResponse struct {
	Host    *hostStats       `json:"host,omitempty"`
	Metrics []metrics.Sample `json:"metrics"`
}

type hostStats struct {
	MemTotal       uint64  `json:"mem_total"`
	MemUsed        uint64  `json:"mem_used"`
	MemUsedPercent float64 `json:"mem_used_percent"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	resp := metricsResponse{}
	if vm, err := mem.VirtualMemoryWithContext(r.Context()); err != nil {
		slog.Warn("Failed to read host memory", "error", err)
	} else {
		s.metrics.SetGauge("host_mem_used_percent", nil, vm.UsedPercent)
		resp.Host = &hostStats{MemTotal: vm.Total, MemUsed: vm.Used, MemUsedPercent: vm.UsedPercent}
	}
	resp.Metrics = s.metrics.Snapshot()

	w.Header().Set("Content-Type", contentTypeJSON)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Warn("Failed to write metrics response", "error", err)
	}
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.writeJSON(w, r, http.StatusBadRequest, NewErrorResponse("Failed to parse form"))
		return
	}

	key := r.FormValue("key")
	value := r.FormValue("value")

	if key == "" || value == "" {
		s.writeJSON(w, r, http.StatusBadRequest, NewErrorResponse("Missing key or value"))
		return
	}

	var opts []cache.SetOption
	if raw := r.FormValue("ttl"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil || ttl < 0 {
			s.writeJSON(w, r, http.StatusBadRequest, NewErrorResponse("Invalid ttl"))
			return
		}
		if ttl == 0 {
			opts = append(opts, cache.WithoutExpiry())
		} else {
			opts = append(opts, cache.WithTTL(ttl))
		}
	}

	if err := s.cache.Set(r.Context(), key, value, opts...); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, NewSuccessResponse())
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		s.writeJSON(w, r, http.StatusBadRequest, NewErrorResponse("Missing key"))
		return
	}

	value, found, err := s.cache.Get(r.Context(), key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !found {
		s.writeJSON(w, r, http.StatusNotFound, NewErrorResponse("Key not found"))
		return
	}

	s.writeJSON(w, r, http.StatusOK, NewValueResponse(value))
}

func (s *Server) handleSize(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		s.writeJSON(w, r, http.StatusBadRequest, NewErrorResponse("Missing key"))
		return
	}

	n, err := s.cache.Size(r.Context(), key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, NewValueResponse(n))
}

func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	found, err := s.cache.Keys(r.Context(), r.URL.Query().Get("match"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, NewValueResponse(found))
}

// commandRequest names the key either directly or as parts joined by keys.Pack.
type commandRequest struct {
	Verb     string `json:"verb"`
	Key      string `json:"key"`
	KeyParts []any  `json:"key_parts"`
	Args     []any  `json:"args"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, r, http.StatusBadRequest, NewErrorResponse(err.Error()))
		return
	}
	if req.Key == "" && len(req.KeyParts) > 0 {
		req.Key = keys.Pack(req.KeyParts...)
	}
	if req.Verb == "" || req.Key == "" {
		s.writeJSON(w, r, http.StatusBadRequest, NewErrorResponse("Missing verb or key"))
		return
	}

	value, err := s.cache.Do(r.Context(), req.Verb, req.Key, req.Args...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, NewValueResponse(value))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		s.writeJSON(w, r, http.StatusBadRequest, NewErrorResponse("Missing key"))
		return
	}

	if _, err := s.cache.Delete(r.Context(), key); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, NewSuccessResponse())
}

// Handler returns the gateway routes without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.createRouter()
}
