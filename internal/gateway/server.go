// Package gateway is the thin HTTP/WebSocket surface that exposes the
// subagent core to out-of-process callers. It carries no domain logic of
// its own: every handler validates wire input, calls straight into a
// subagent.DispatchTool/PollTool/AwaitTool, and serializes the result.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/arbor-sdk/arbor/internal/events"
	"github.com/arbor-sdk/arbor/internal/gateway/ws"
	"github.com/arbor-sdk/arbor/internal/subagent"
)

// Server is the Arbor gateway HTTP server.
type Server struct {
	httpServer *http.Server
	hub        *ws.Hub
	core       *subagent.Core
	dispatch   *subagent.DispatchTool
	poll       *subagent.PollTool
	await      *subagent.AwaitTool
	host       string
	port       int
}

// NewServer wires a gateway around a running subagent Core. newFn adapts
// the wire-level DispatchInput into a TaskFunc the scheduler can run; see
// subagent.NewDispatchTool for its contract.
func NewServer(core *subagent.Core, bus *events.Bus, host string, port int, newFn func(prompt, instructions string, metadata map[string]any) subagent.TaskFunc) *Server {
	hub := ws.NewHub(bus)

	s := &Server{
		hub:      hub,
		core:     core,
		dispatch: subagent.NewDispatchTool(core.Registry, newFn),
		poll:     subagent.NewPollTool(core.Registry),
		await:    subagent.NewAwaitTool(core.Registry, subagent.Hooks{}),
		host:     host,
		port:     port,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/api/health", s.handleHealth)
	r.Post("/api/subagents", s.handleDispatch)
	r.Get("/api/subagents", s.handlePoll)
	r.Post("/api/subagents/await", s.handleAwait)
	r.Get("/api/events/ws", hub.ServeWS)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: r,
	}

	return s
}

// Start begins listening. It blocks until the server is stopped.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	slog.Info("arbor gateway listening", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.core.Registry.Stats()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"stats":  stats,
	})
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var in subagent.DispatchInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}

	out := s.dispatch.Dispatch(r.Context(), in, nil)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := subagent.PollInput{
		IncludePartialOutput: q.Get("includePartialOutput") == "true",
	}
	if ids := q.Get("ids"); ids != "" {
		in.TaskIDs = strings.Split(ids, ",")
	}
	if n := q.Get("maxPartialOutputLength"); n != "" {
		if v, err := strconv.Atoi(n); err == nil {
			in.MaxPartialOutputLength = v
		}
	}

	out := s.poll.Poll(in)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (s *Server) handleAwait(w http.ResponseWriter, r *http.Request) {
	var in subagent.AwaitInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}

	out := s.await.Await(r.Context(), in)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}
