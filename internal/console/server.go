// Package console is the live control surface over a loaded interface:
// an HTTP API and a websocket wire for loading interfaces, collecting
// control values, invoking operations, and watching their state.
package console

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/matthewbaird/abiconsole/internal/activity"
	"github.com/matthewbaird/abiconsole/internal/emit"
	"github.com/matthewbaird/abiconsole/internal/invoke"
	"github.com/matthewbaird/abiconsole/internal/typemap"
)

// Config holds the console's collaborators.
type Config struct {
	Engine   *invoke.Engine
	Endpoint *Endpoint
	Journal  activity.Store
	Hub      *Hub
	Gatherer prometheus.Gatherer

	// Target is the contract address used when a call names none.
	Target  string
	Dialect typemap.Dialect
	Mode    emit.Mode

	// ClientIdle is how long a websocket client may stay silent before its
	// collected values are forgotten.
	ClientIdle time.Duration
	Log        *zap.Logger
}

// Server serves the console API.
type Server struct {
	engine   *invoke.Engine
	endpoint *Endpoint
	journal  activity.Store
	hub      *Hub
	gatherer prometheus.Gatherer
	clients  *ClientManager

	target  string
	dialect typemap.Dialect
	mode    emit.Mode
	log     *zap.Logger
}

func New(cfg Config) *Server {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	idle := cfg.ClientIdle
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	ep := cfg.Endpoint
	if ep == nil {
		ep = NewEndpoint(nil, log)
	}
	journal := cfg.Journal
	if journal == nil {
		journal = activity.NewMemoryStore()
	}
	return &Server{
		engine:   cfg.Engine,
		endpoint: ep,
		journal:  journal,
		hub:      cfg.Hub,
		gatherer: cfg.Gatherer,
		clients:  NewClientManager(idle),
		target:   cfg.Target,
		dialect:  cfg.Dialect,
		mode:     cfg.Mode,
		log:      log.With(zap.String("component", "console")),
	}
}

// Clients exposes the websocket client registry.
func (s *Server) Clients() *ClientManager { return s.clients }

// Routes returns the console's HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(Recovery(s.log))
	r.Use(Logging(s.log))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Put("/schema", s.loadSchema)
		r.Get("/schema", s.getSchema)
		r.Post("/session", s.acquireSession)
		r.Get("/ops", s.listStates)
		r.Post("/ops/{name}/invoke", s.invoke)
		r.Get("/ops/{name}/state", s.getState)
		r.Get("/ops/{name}/history", s.history)
		r.Get("/emit", s.emitComponent)
		r.Get("/ws", s.serveWS)
	})
	return r
}

// Run serves h on port until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, port int, h http.Handler, log *zap.Logger) error {
	addr := fmt.Sprintf(":%d", port)
	server := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("shutdown", zap.Error(err))
		}
	}()

	log.Info("starting console", zap.String("addr", addr))
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}
