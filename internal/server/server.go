package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/tivyapp/tivy/internal/cache"
	"github.com/tivyapp/tivy/internal/config"
	"github.com/tivyapp/tivy/internal/favorites"
	"github.com/tivyapp/tivy/internal/probe"
	"github.com/tivyapp/tivy/internal/service"
)

// Server holds dependencies for the HTTP API.
type Server struct {
	browser *service.Browser
	favs    *favorites.Manager
	prober  *probe.Prober
	redis   *cache.Redis // nil when Redis is not configured
	cfg     *config.Config
	mux     *http.ServeMux
}

// New creates a Server and registers routes. redis may be nil.
func New(browser *service.Browser, favs *favorites.Manager, prober *probe.Prober, redis *cache.Redis, cfg *config.Config) *Server {
	srv := &Server{browser: browser, favs: favs, prober: prober, redis: redis, cfg: cfg, mux: http.NewServeMux()}
	srv.routes()
	return srv
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	// Channels
	s.mux.HandleFunc("GET /api/channels", s.handleListChannels)
	s.mux.HandleFunc("POST /api/channels/refresh", s.handleRefreshChannels)
	s.mux.HandleFunc("POST /api/channels/validate", s.handleValidateChannels)

	// Favorites
	s.mux.HandleFunc("GET /api/favorites", s.handleListFavorites)
	s.mux.HandleFunc("POST /api/favorites/toggle", s.handleToggleFavorite)

	// Preferences
	s.mux.HandleFunc("GET /api/preferences/theme", s.handleGetTheme)
	s.mux.HandleFunc("PUT /api/preferences/theme", s.handleSetTheme)

	// Playback
	s.mux.HandleFunc("GET /api/playback", s.handlePlaybackStatus)
	s.mux.HandleFunc("POST /api/playback", s.handlePlay)
	s.mux.HandleFunc("DELETE /api/playback", s.handleStop)

	// Docs
	s.mux.HandleFunc("GET /api/docs", handleSwaggerUI)
	s.mux.HandleFunc("GET /api/docs/openapi.yaml", handleOpenAPISpec)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on the configured port.
// It blocks until the server is shut down or ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := ":" + s.cfg.ServerPort
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      withCORS(withLogging(s)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	log.Printf("listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("ListenAndServe: %w", err)
	}
	return nil
}

// --- helpers ---

// APIError is the standard error envelope for all error responses.
type APIError struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON: %v", err)
	}
}

func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func writeErr(w http.ResponseWriter, status int, err error) {
	if status >= 500 {
		log.Printf("ERROR %d: %v", status, err)
	}
	writeJSON(w, status, APIError{
		Status: status,
		Error:  http.StatusText(status),
		Detail: err.Error(),
	})
}
