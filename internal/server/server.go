// Package server exposes the engine over a websocket: clients post
// positions, receive streamed search info and a final best move, and can
// query move legality and game status.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/logging"
)

const (
	defaultPingInterval = 30 * time.Second
	shutdownTimeout     = 5 * time.Second
	sendBuffer          = 64
)

// Config configures a Server.
type Config struct {
	HashMB       int           // transposition table per session
	PingInterval time.Duration // idle time before a heartbeat is sent
	Logger       zerolog.Logger
}

// Server is the websocket bridge. Every connection gets its own engine.
type Server struct {
	cfg      Config
	log      zerolog.Logger
	upgrader websocket.Upgrader
	router   chi.Router
	started  time.Time

	sessions atomic.Int64
	analyses atomic.Uint64
	nodes    atomic.Uint64
}

// New builds a server and its routes.
func New(cfg Config) *Server {
	if cfg.HashMB <= 0 {
		cfg.HashMB = 16
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}
	s := &Server{
		cfg:      cfg,
		log:      cfg.Logger,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		started:  time.Now(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWS)
	s.router = r
	return s
}

// Handler returns the HTTP handler with all routes.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info().Str("addr", addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

type healthResponse struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Sessions int64  `json:"sessions"`
	Analyses uint64 `json:"analyses"`
	Nodes    string `json:"nodes"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Uptime:   humanize.RelTime(s.started, time.Now(), "", ""),
		Sessions: s.sessions.Load(),
		Analyses: s.analyses.Load(),
		Nodes:    humanize.Comma(int64(s.nodes.Load())),
	})
}

// newEngine gives a session its own engine and table.
func (s *Server) newEngine() *engine.Engine {
	return engine.New(
		engine.WithHashMB(s.cfg.HashMB),
		engine.WithLogger(logging.Component(s.log, "engine")),
	)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	sess := newSession(s, conn, s.newEngine(), middleware.GetReqID(r.Context()))

	s.sessions.Add(1)
	defer s.sessions.Add(-1)
	sess.log.Info().Str("remote", r.RemoteAddr).Msg("session opened")
	err = sess.run(r.Context())
	sess.log.Info().Err(err).Msg("session closed")
}

// requestLogger logs one line per HTTP request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func mustMarshal(v any) []byte {
	data, _ := json.Marshal(v)
	return data
}
