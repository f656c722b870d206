// Package server exposes the connector's webhook and health endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"jira-connector/internal/connector"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// maxEventBytes bounds the size of a posted time group.
const maxEventBytes = 4 << 20

// Server serves the connector over HTTP.
type Server struct {
	srv *http.Server
}

// New creates a server listening on addr.
func New(addr string, c connector.Connector) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(c),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.srv.Addr).Msg("HTTP server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("HTTP server stopped")
	return nil
}

// NewRouter builds the HTTP routes.
func NewRouter(c connector.Connector) http.Handler {
	h := &handler{conn: c}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/ping", h.ping)
	r.Get("/health", h.health)
	r.Post("/receiveTimePostedEvent", h.receiveTimePosted)
	return r
}

type handler struct {
	conn connector.Connector
}

type postTimeResponse struct {
	Status  connector.PostStatus `json:"status"`
	Message string               `json:"message,omitempty"`
}

type healthResponse struct {
	Healthy bool `json:"healthy"`
}

func (h *handler) ping(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("pong"))
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	healthy := h.conn.Healthy(r.Context())
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{Healthy: healthy})
}

func (h *handler) receiveTimePosted(w http.ResponseWriter, r *http.Request) {
	var tg connector.TimeGroup
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBytes)).Decode(&tg); err != nil {
		writeJSON(w, http.StatusBadRequest, postTimeResponse{
			Status:  connector.StatusPermanentFailure,
			Message: "Malformed time group: " + err.Error(),
		})
		return
	}

	res := h.conn.PostTime(r.Context(), tg)
	writeJSON(w, statusCode(res.Status), postTimeResponse{Status: res.Status, Message: res.Message})
}

func statusCode(s connector.PostStatus) int {
	switch s {
	case connector.StatusSuccess:
		return http.StatusOK
	case connector.StatusPermanentFailure:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Str("requestId", middleware.GetReqID(r.Context())).
			Dur("elapsed", time.Since(start)).
			Msg("HTTP request")
	})
}
