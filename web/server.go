package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// DefaultReloadInterval bounds how often stats.json is stat'ed.
const DefaultReloadInterval = 60 * time.Second

// Server exposes the exported dashboard stats over HTTP.
type Server struct {
	statsFile string
	interval  time.Duration
	now       func() time.Time

	mu        sync.Mutex
	body      []byte
	modTime   time.Time
	checkedAt time.Time

	srv *http.Server
}

// NewServer serves statsFile on addr.
func NewServer(addr, statsFile string) *Server {
	s := &Server{statsFile: statsFile, interval: DefaultReloadInterval, now: time.Now}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP, middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/stats", s.handleStats)
	return r
}

// Start listens in the background until Shutdown.
func (s *Server) Start() {
	go func() {
		log.Printf("Stats server listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Stats server error: %v", err)
		}
	}()
}

// Shutdown stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	body, err := s.load()
	if err != nil {
		log.Printf("Error loading %s: %v", s.statsFile, err)
		writeError(w, http.StatusServiceUnavailable, "stats not available yet")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// load returns the cached file, re-reading it when its mtime moved. The
// mtime is checked at most once per interval.
func (s *Server) load() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.body != nil && now.Sub(s.checkedAt) < s.interval {
		return s.body, nil
	}
	s.checkedAt = now

	info, err := os.Stat(s.statsFile)
	if err != nil {
		if s.body != nil {
			return s.body, nil
		}
		return nil, err
	}
	if s.body != nil && info.ModTime().Equal(s.modTime) {
		return s.body, nil
	}

	body, err := os.ReadFile(s.statsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read stats file: %w", err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("stats file %s is not valid JSON", s.statsFile)
	}
	s.body = body
	s.modTime = info.ModTime()
	return body, nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
