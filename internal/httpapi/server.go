// Package httpapi exposes the generator service to the host pipeline over
// HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"pkg.jsn.cam/synthgen/internal/logging"
	"pkg.jsn.cam/synthgen/internal/service"
	"pkg.jsn.cam/synthgen/pkg/synthgen"
	"pkg.jsn.cam/synthgen/pkg/synthgen/httpx"
)

const maxBodyBytes = 1 << 20

// Server routes HTTP requests to a service.Service.
type Server struct {
	svc    *service.Service
	scope  synthgen.Scope
	router *mux.Router
	logger *slog.Logger
}

// NewServer builds the router. scope applies to requests without a scope
// query parameter.
func NewServer(svc *service.Service, scope synthgen.Scope, logger *slog.Logger) *Server {
	s := &Server{
		svc:    svc,
		scope:  scope,
		router: mux.NewRouter(),
		logger: logging.Resolve(logger).With("module", "httpapi"),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)

	s.router.HandleFunc("/health", httpx.Wrap(s.handleHealth)).Methods(http.MethodGet)
	s.router.HandleFunc("/api/generators", httpx.Wrap(s.handleKinds)).Methods(http.MethodGet)
	s.router.HandleFunc("/api/generators/{kind}/entities", httpx.Wrap(s.handleEntities)).Methods(http.MethodPost)
	s.router.HandleFunc("/api/admin/shutdown", httpx.Wrap(s.handleShutdown)).Methods(http.MethodPost)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "event", "http.listen", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) error {
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	return nil
}

func (s *Server) handleKinds(w http.ResponseWriter, r *http.Request) error {
	httpx.JSON(w, http.StatusOK, s.svc.Kinds())
	return nil
}

// EntitiesResponse is the body of a successful entities request.
type EntitiesResponse struct {
	Kind     synthgen.Kind         `json:"kind"`
	Count    int                   `json:"count"`
	Entities []*synthgen.Entity    `json:"entities,omitempty"`
	Flat     []map[string][]string `json:"flat,omitempty"`
}

func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) error {
	kind := synthgen.Kind(strings.ToUpper(mux.Vars(r)["kind"]))

	q := r.URL.Query()
	scope := s.scope
	var err error
	if raw := q.Get("scope"); raw != "" {
		if scope, err = synthgen.ParseScope(raw); err != nil {
			return err
		}
	}
	flatten := false
	if raw := q.Get("flatten"); raw != "" {
		if flatten, err = strconv.ParseBool(raw); err != nil {
			return synthgen.Invalid("flatten", "not a boolean: %q", raw)
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: %v", synthgen.ErrInvalidRequest, err)
	}
	req, err := synthgen.ParseRequest(body)
	if err != nil {
		return err
	}

	entities, err := s.svc.GetEntities(r.Context(), kind, req, q.Get("processId"), scope)
	if err != nil {
		return err
	}

	resp := EntitiesResponse{Kind: kind, Count: len(entities)}
	if flatten {
		resp.Flat = make([]map[string][]string, len(entities))
		for i, e := range entities {
			resp.Flat[i] = e.Flatten()
		}
	} else {
		resp.Entities = entities
	}
	httpx.JSON(w, http.StatusOK, resp)
	return nil
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) error {
	s.svc.Shutdown()
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "reset"})
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		level := slog.LevelDebug
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.logger.Log(r.Context(), level, "request",
			"event", "http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
