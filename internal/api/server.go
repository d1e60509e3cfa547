// Package api provides the HTTP API for observing and steering the arena.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/talgya/dotarena/internal/engine"
)

const msgpackType = "application/msgpack"

// Server serves simulation state over HTTP and websocket.
type Server struct {
	Sim      *engine.Simulation
	Eng      *engine.Engine
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.
	RunID    string // Timing export run, if any

	// Origins lists the browser origins renderers may connect from. Empty
	// admits any origin.
	Origins []string

	// FrameInterval is how often the stream pushes a frame.
	FrameInterval time.Duration

	streams  streamCounter
	upgrader websocket.Upgrader
}

// Handler builds the routing table.
func (s *Server) Handler() http.Handler {
	streamLimiter := NewRateLimiter(10, time.Minute)
	origins := newOriginSet(s.Origins)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 16 * 1024,
		CheckOrigin: func(r *http.Request) bool {
			return origins.allows(r.Header.Get("Origin"))
		},
	}

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/levels", s.handleLevels)
	mux.HandleFunc("/api/v1/frame", s.handleFrame)

	// Renderer and input bridge.
	mux.HandleFunc("/api/v1/stream", RateLimitMiddleware(streamLimiter, s.handleStream))

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))

	return corsMiddleware(origins, mux)
}

// Start serves the API until ctx is done.
func (s *Server) Start(ctx context.Context) {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
}

// originSet is the set of browser origins a renderer may be served from. An
// empty set admits any origin.
type originSet map[string]bool

func newOriginSet(origins []string) originSet {
	set := make(originSet, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			set[o] = true
		}
	}
	return set
}

func (o originSet) allows(origin string) bool {
	return len(o) == 0 || origin == "" || o[origin]
}

func corsMiddleware(origins originSet, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && origins.allows(origin) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept")
			h.Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authorized compares the bearer token in constant time.
func (s *Server) authorized(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(token), []byte(s.AdminKey)) == 1
}

// adminOnly guards the mutating methods of an endpoint. Reads pass through.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			switch {
			case s.AdminKey == "":
				http.Error(w, "admin endpoints disabled (no DOTARENA_ADMIN_KEY set)", http.StatusForbidden)
				return
			case !s.authorized(r):
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.Sim.Status()
	status := map[string]any{
		"name":     "dotarena",
		"run_id":   s.RunID,
		"tick":     st.Tick,
		"elapsed":  st.Elapsed,
		"alive":    st.Alive,
		"max_dots": st.MaxDots,
		"slots":    st.Slots,
		"reserve":  st.Reserve,
		"last":     st.Last,
		"totals":   st.Totals,
		"streams":  s.streams.Load(),
	}
	if s.Eng != nil {
		status["speed"] = s.Eng.Speed()
		status["running"] = s.Eng.Running()
	}
	if h, ok := s.Sim.Player(); ok {
		status["player"] = h
	}
	writeJSON(w, status)
}

func (s *Server) handleLevels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Tables().Ladder.Levels())
}

// handleFrame returns the current frame as JSON, or msgpack when the client
// asks for it.
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	frame := s.Sim.Frame(nil)
	if strings.Contains(r.Header.Get("Accept"), msgpackType) {
		data, err := msgpack.Marshal(&frame)
		if err != nil {
			http.Error(w, "encode frame", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", msgpackType)
		w.Write(data)
		return
	}
	writeJSON(w, frame)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if s.Eng == nil {
		http.Error(w, "no engine attached", http.StatusServiceUnavailable)
		return
	}
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 100 {
			http.Error(w, "speed must be 0-100", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Debug("write response", "error", err)
	}
}
