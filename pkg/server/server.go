// Package server exposes recordings over HTTP and hosts the viewer websocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/user/tapeplay/pkg/orchestrator"
	"github.com/user/tapeplay/pkg/ports"
	"github.com/user/tapeplay/pkg/stages/load"
)

// Backend answers the file API.
type Backend interface {
	ports.Catalog
	Chunk(ctx context.Context, name string, req ports.ChunkRequest) (ports.ChunkDelivery, error)
}

// Config holds HTTP server settings.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	// CompressionLevel applies to gzip, deflate and brotli responses.
	CompressionLevel int
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Addr:             ":8050",
		ReadTimeout:      30 * time.Second,
		WriteTimeout:     30 * time.Second,
		IdleTimeout:      120 * time.Second,
		ShutdownTimeout:  10 * time.Second,
		CompressionLevel: 5,
	}
}

// Server serves the chunk API and, when a hub is given, the /ws endpoint.
type Server struct {
	config     Config
	backend    Backend
	hub        http.Handler
	logger     ports.Logger
	router     *chi.Mux
	httpServer *http.Server
}

// New creates a Server. hub may be nil.
func New(config Config, backend Backend, hub http.Handler, logger ports.Logger) *Server {
	s := &Server{
		config:  config,
		backend: backend,
		hub:     hub,
		logger:  logger.WithComponent("server"),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *chi.Mux {
	router := chi.NewRouter()
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Recoverer)

	compressor := chimiddleware.NewCompressor(s.config.CompressionLevel, "application/json")
	compressor.SetEncoder("br", func(w io.Writer, level int) io.Writer {
		return brotli.NewWriterLevel(w, level)
	})

	router.Group(func(r chi.Router) {
		r.Use(s.logRequests)
		r.Use(compressor.Handler)
		r.Get("/api/files", s.handleFiles)
		r.Get("/api/files/{name}", s.handleInfo)
		r.Get("/api/files/{name}/chunks", s.handleChunks)
	})

	// The websocket upgrade needs the raw connection, so it skips compression.
	if s.hub != nil {
		router.Handle("/ws", s.hub)
	}
	return router
}

// Start listens on the configured address and blocks until the server stops.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	s.logger.Info("Serving recordings on %s", s.config.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	if s.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}
	s.logger.Info("Shutting down server")
	return s.httpServer.Shutdown(ctx)
}

// ListenAndServe runs the server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.backend.Files(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"files": files})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	name, err := fileName(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	info, err := s.backend.Info(r.Context(), name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleChunks(w http.ResponseWriter, r *http.Request) {
	name, err := fileName(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	req, err := parseChunkRequest(r.URL.Query())
	if err != nil {
		s.writeError(w, err)
		return
	}
	delivery, err := s.backend.Chunk(r.Context(), name, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if delivery.Frames == nil {
		delivery.Frames = []ports.Frame{}
	}
	writeJSON(w, http.StatusOK, delivery)
}

// errBadRequest marks malformed query parameters.
var errBadRequest = errors.New("bad request")

func fileName(r *http.Request) (string, error) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		return "", errors.Join(errBadRequest, err)
	}
	if err := load.ValidateName(name); err != nil {
		return "", err
	}
	return name, nil
}

func parseChunkRequest(q url.Values) (ports.ChunkRequest, error) {
	var req ports.ChunkRequest
	var err error
	if v := q.Get("start"); v != "" {
		if req.StartRow, err = strconv.Atoi(v); err != nil {
			return req, errors.Join(errBadRequest, errors.New("start must be an integer"))
		}
	}
	if v := q.Get("count"); v != "" {
		if req.Count, err = strconv.Atoi(v); err != nil {
			return req, errors.Join(errBadRequest, errors.New("count must be an integer"))
		}
	}
	if v := q.Get("reset"); v != "" {
		if req.Reset, err = strconv.ParseBool(v); err != nil {
			return req, errors.Join(errBadRequest, errors.New("reset must be a boolean"))
		}
	}
	return req, nil
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, orchestrator.ErrFileNotFound):
		return http.StatusNotFound
	case errors.Is(err, orchestrator.ErrRowOutOfRange),
		errors.Is(err, load.ErrInvalidName),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed: %v", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("%s %s %d %s [%s]",
			r.Method, r.URL.RequestURI(), ww.Status(), time.Since(start).Round(time.Microsecond),
			chimiddleware.GetReqID(r.Context()))
	})
}
