// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/c2FmZQ/storage"
	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

func generateETag(data []byte) string {
	return fmt.Sprintf("\"%x\"", sha256.Sum256(data))
}

func hubBusyResponse(w http.ResponseWriter, retryAfter string) {
	w.Header().Set("Retry-After", retryAfter)
	http.Error(w, "Too Many Requests: Server is busy", http.StatusTooManyRequests)
}

type Options struct {
	Addr     string
	DataDir  string
	Debug    bool
	Listener net.Listener

	// RecordID names the one record this server serves. When empty, the
	// first stored record is used, or a new id is generated. With Raft a
	// new id is never generated: every node must serve the same record.
	RecordID string
	// Store overrides the file-backed OrderStore built from Storage.
	Store   RecordStore
	Storage *storage.Storage

	// Registry receives the server's metrics and backs /metrics. A fresh
	// registry is used when nil.
	Registry *prometheus.Registry

	// Raft Options
	RaftEnabled           bool
	RaftBind              string
	RaftAdvertise         string
	RaftBootstrap         bool
	RaftSecret            string       // Shared secret for /api/cluster/join
	RaftJoin              string       // HTTP URL of a cluster member to join through
	RaftManager           *RaftManager // Allow injecting pre-configured RaftManager
	UseProductionTimeouts bool         // Set to true to use longer timeouts (e.g. for production)
}

// Server represents the running server instance.
type Server struct {
	httpServer *http.Server
	raftMgr    *RaftManager
	hub        *Hub
	store      RecordStore
}

// Hub returns the hub serving the record.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Shutdown gracefully shuts down the server and Raft node.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []string

	if s.raftMgr != nil {
		if err := s.raftMgr.Shutdown(); err != nil {
			errs = append(errs, fmt.Sprintf("raft: %v", err))
		}
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Sprintf("http: %v", err))
	}
	// Websocket connections are hijacked and outlive httpServer.Shutdown.
	s.hub.Close()
	if err := s.store.FlushAll(); err != nil {
		errs = append(errs, fmt.Sprintf("store flush: %v", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %s", strings.Join(errs, ", "))
	}
	return nil
}

// StartServer starts the web server and registers the API handlers.
func StartServer(opts Options) (*Server, error) {
	app, err := NewServerHandler(opts)
	if err != nil {
		return nil, err
	}

	if app.Raft != nil {
		// Wait for Raft to replay log and catch up to ensure data consistency
		// before starting the public HTTP server.
		if err := app.Raft.WaitForSync(raftSyncTimeout); err != nil {
			log.Warn("Raft sync timed out", "err", err)
		}
		if opts.RaftJoin != "" {
			ctx, cancel := context.WithTimeout(context.Background(), raftJoinTimeout)
			err := app.Raft.JoinCluster(ctx, opts.RaftJoin)
			cancel()
			if err != nil {
				// A restarted member is already in the configuration and
				// catches up once the leader is reachable.
				log.Warn("Could not join Raft cluster", "err", err)
			}
		}
	}

	httpServer := &http.Server{
		Addr:              opts.Addr,
		Handler:           app.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		var err error
		if opts.Listener != nil {
			log.Info("Starting HTTP server on provided listener", "addr", opts.Listener.Addr())
			err = httpServer.Serve(opts.Listener)
		} else {
			log.Info("Server starting", "addr", opts.Addr)
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error", "err", err)
		}
	}()

	return &Server{
		httpServer: httpServer,
		raftMgr:    app.Raft,
		hub:        app.Hub,
		store:      app.Store,
	}, nil
}

// App is the wired server: the record store, the hub that serializes access
// to the record, the optional Raft node, and the HTTP handler in front.
type App struct {
	Store   RecordStore
	Hub     *Hub
	Raft    *RaftManager
	Metrics *Metrics
	Handler http.Handler
}

// NewServerHandler creates the store, hub and Raft node described by opts
// and the HTTP handler that serves them.
func NewServerHandler(opts Options) (*App, error) {
	if opts.DataDir == "" {
		opts.DataDir = "data"
	}

	store := opts.Store
	if store == nil {
		if opts.Storage == nil {
			opts.Storage = storage.New(opts.DataDir, nil)
		}
		orderStore := NewOrderStore(opts.DataDir, opts.Storage)
		orderStore.Debug = opts.Debug
		store = orderStore
	}

	recordID, err := resolveRecordID(opts.RecordID, store, opts.RaftEnabled)
	if err != nil {
		return nil, err
	}
	log.Info("Serving record", "id", recordID)

	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	metrics := NewMetrics(reg)

	var raftMgr *RaftManager
	if opts.RaftEnabled {
		raftMgr = opts.RaftManager
		if raftMgr == nil {
			raftMgr = NewRaftManager(filepath.Join(opts.DataDir, "raft"), opts.RaftBind, opts.RaftAdvertise, NewFSM(store))
			raftMgr.UseProductionTimeouts = opts.UseProductionTimeouts
		}
		if opts.RaftSecret != "" {
			raftMgr.Secret = opts.RaftSecret
		}
	}

	hub := NewHub(recordID, store, raftMgr, metrics)
	if raftMgr != nil {
		raftMgr.FSM.SetHub(hub)
		if err := raftMgr.Start(opts.RaftBootstrap); err != nil {
			hub.Close()
			return nil, fmt.Errorf("failed to start raft: %w", err)
		}
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID, chiMiddleware.Recoverer)
	r.Use(loggingMiddleware, securityMiddleware, cacheControlMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, "ok\n")
	})
	r.Method(http.MethodGet, "/metrics", NewMetricsHandler(reg))

	h := &orderHandlers{hub: hub}
	r.Route("/api", func(r chi.Router) {
		r.Get("/order", h.getOrder)
		r.Put("/order", h.putOrder)
		r.Get("/order/stats", h.getStats)
		r.Get("/order/scorecard", h.getScorecard)
		r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
			ServeWS(hub, w, r)
		})
		if raftMgr != nil {
			r.Post("/cluster/join", raftMgr.handleJoin)
		}
	})

	return &App{
		Store:   store,
		Hub:     hub,
		Raft:    raftMgr,
		Metrics: metrics,
		Handler: r,
	}, nil
}

// ErrRecordIDRequired is returned when a replicated server has no record id
// configured and nothing stored to take one from.
var ErrRecordIDRequired = errors.New("a record id is required when Raft is enabled")

func resolveRecordID(id string, store RecordStore, replicated bool) (string, error) {
	if id != "" {
		return id, nil
	}
	ids, err := store.ListRecordIDs()
	if err != nil {
		return "", fmt.Errorf("failed to list records: %w", err)
	}
	if len(ids) > 0 {
		return ids[0], nil
	}
	if replicated {
		return "", ErrRecordIDRequired
	}
	return uuid.NewString(), nil
}

type orderHandlers struct {
	hub *Hub
}

// load fetches the record and writes the error response when there is
// nothing to serve.
func (h *orderHandlers) load(w http.ResponseWriter, r *http.Request) (*Record, bool) {
	rec, err := h.hub.Load(r.Context())
	if err != nil {
		writeHubError(w, r, err, retryAfterLoad)
		return nil, false
	}
	if rec == nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return nil, false
	}
	return rec, true
}

func (h *orderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.load(w, r)
	if !ok {
		return
	}
	body, err := json.Marshal(rec)
	if err != nil {
		log.Error("Failed to encode record", "id", rec.ID, "err", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	etag := generateETag(body)
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func (h *orderHandlers) putOrder(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxOrderBodySize))
	if err != nil {
		http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
		return
	}
	data, err := ValidateOrderJSON(body)
	if err != nil {
		http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
		return
	}
	rec, err := h.hub.Save(r.Context(), data)
	if err != nil {
		writeHubError(w, r, err, retryAfterSave)
		return
	}
	writeJSON(w, rec)
}

func (h *orderHandlers) getStats(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, NewStatsView(rec.Order()))
}

func (h *orderHandlers) getScorecard(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.load(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, RenderScorecard(rec.Order()))
}

func writeHubError(w http.ResponseWriter, r *http.Request, err error, retryAfter string) {
	switch {
	case errors.Is(err, ErrHubBusy):
		hubBusyResponse(w, retryAfter)
	case errors.Is(err, ErrNotLeader):
		http.Error(w, "Service Unavailable: not the leader", http.StatusServiceUnavailable)
	case errors.Is(err, ErrHubClosed):
		http.Error(w, "Service Unavailable: shutting down", http.StatusServiceUnavailable)
	case r.Context().Err() != nil:
		// Client went away.
	default:
		log.Error("Request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to write response", "err", err)
	}
}

func cacheControlMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Cache-Control", "private, no-cache, no-transform")
		} else {
			w.Header().Set("Cache-Control", "no-store")
		}
		next.ServeHTTP(w, r)
	})
}

// securityMiddleware adds HTTP security headers to responses.
func securityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs every request with its status and duration.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug("Request",
			"id", chiMiddleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"dur", time.Since(start))
	})
}
