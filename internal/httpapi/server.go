// Package httpapi exposes registered resources over HTTP.
//
// Routes, per resource name:
//
//	POST   /{resource}               create
//	GET    /{resource}               list (page, pageSize, search, order, filters)
//	GET    /{resource}/_lov/{field}  distinct values of field
//	GET    /{resource}/{id}          get
//	PATCH  /{resource}/{id}          update (shallow merge)
//	DELETE /{resource}/{id}          delete
//
// plus GET /healthz.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/roach88/crudkit/internal/registry"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 1 << 20

// Server serves a registry over HTTP.
type Server struct {
	registry *registry.Registry
	logger   *slog.Logger
}

// New creates a server for reg. A nil logger discards.
func New(reg *registry.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{registry: reg, logger: logger}
}

// Handler returns the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.requestLogger)
	r.NotFoundHandler = http.HandlerFunc(s.notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(s.methodNotAllowed)

	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)

	r.HandleFunc("/{resource}", s.create).Methods(http.MethodPost)
	r.HandleFunc("/{resource}", s.list).Methods(http.MethodGet)
	r.HandleFunc("/{resource}/_lov/{field}", s.distinct).Methods(http.MethodGet)
	r.HandleFunc("/{resource}/{id}", s.get).Methods(http.MethodGet)
	r.HandleFunc("/{resource}/{id}", s.update).Methods(http.MethodPatch)
	r.HandleFunc("/{resource}/{id}", s.delete).Methods(http.MethodDelete)
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down,
// waiting up to shutdownTimeout for in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr, "resources", s.registry.Names())
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// requestLogger logs method, path, status and duration of each request.
// 5xx logs at error, 4xx at warn, the rest at info.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		level := slog.LevelInfo
		switch {
		case rw.statusCode >= 500:
			level = slog.LevelError
		case rw.statusCode >= 400:
			level = slog.LevelWarn
		}
		s.logger.Log(r.Context(), level, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration", time.Since(start),
		)
	})
}

// responseWriter captures the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
