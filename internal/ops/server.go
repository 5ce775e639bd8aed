// Package ops serves the bot's operational HTTP endpoints: a health probe
// backed by the database and a view of pending chat unlocks.
package ops

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/m3rciful/raidbot/core/logger"
	"github.com/m3rciful/raidbot/internal/lock"
)

const component = "ops"

// Pinger checks a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// LockLister reports pending unlocks.
type LockLister interface {
	Pending() []lock.Entry
}

// Server exposes the ops router over HTTP.
type Server struct {
	db    Pinger
	locks LockLister
	now   func() time.Time

	srv *http.Server
}

// NewServer builds a Server. Call Start to listen.
func NewServer(db Pinger, locks LockLister) *Server {
	return &Server{db: db, locks: locks, now: time.Now}
}

// Router returns the ops handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/v1/locks", s.listLocks)
	return r
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, "DB_UNAVAILABLE", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type lockView struct {
	ChatID      int64     `json:"chat_id"`
	Deadline    time.Time `json:"deadline"`
	SecondsLeft int64     `json:"seconds_left"`
}

func (s *Server) listLocks(w http.ResponseWriter, _ *http.Request) {
	now := s.now()
	entries := s.locks.Pending()
	out := make([]lockView, 0, len(entries))
	for _, e := range entries {
		left := e.Deadline.Sub(now)
		if left < 0 {
			left = 0
		}
		out = append(out, lockView{ChatID: e.ChatID, Deadline: e.Deadline.UTC(), SecondsLeft: int64(left / time.Second)})
	}
	respondJSON(w, http.StatusOK, map[string]any{"locks": out})
}

// Start listens on addr in the background. An empty addr disables the server.
func (s *Server) Start(ctx context.Context, addr string) error {
	if addr == "" {
		return nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.srv = &http.Server{Handler: s.Router(), ReadHeaderTimeout: 5 * time.Second}
	logger.Info(ctx, component, "ops.listen",
		slog.String("status", "ok"),
		slog.String("addr", ln.Addr().String()),
	)
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), component, "ops.serve",
				slog.String("status", "fail"),
				logger.Err(err),
			)
		}
	}()
	return nil
}

// Shutdown stops a started server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]any{"error": code, "message": message})
}
