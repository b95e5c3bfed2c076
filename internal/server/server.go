// Package server exposes a Graph Store over HTTP.
//
// The API is the one pkg/store/remote speaks, so a board on another machine
// can use a served store as if it were local:
//
//	GET    /healthz
//	GET    /restaurants/{restaurantID}/graph
//	PUT    /restaurants/{restaurantID}/graph
//	GET    /restaurants/{restaurantID}/render/{format}
//	POST   /restaurants/{restaurantID}/nodes
//	PATCH  /nodes/{nodeID}/move
//	PATCH  /nodes/{nodeID}/toggle
//	DELETE /nodes/{nodeID}
//	POST   /restaurants/{restaurantID}/edges
//	DELETE /edges/{edgeID}
//
// Reads are public. Writes need an Authorization: Bearer header carrying one
// of the configured tokens; a server with no tokens rejects every write.
// Failures use the JSON envelope of pkg/httputil.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/kitchenboard/pkg/layout"
	"github.com/matzehuels/kitchenboard/pkg/pipeline"
	"github.com/matzehuels/kitchenboard/pkg/store"
)

// Request body limits.
const (
	maxBodyBytes  = 1 << 20
	maxGraphBytes = 32 << 20
)

// Options configures a Server.
type Options struct {
	Store store.Store

	// Runner renders scenes for the render endpoint. Nil disables caching.
	Runner *pipeline.Runner

	// Tokens are the accepted bearer tokens for writes.
	Tokens []string

	Layout layout.Options
	Logger *log.Logger
}

// Server is the HTTP Graph Store API.
type Server struct {
	store  store.Store
	runner *pipeline.Runner
	auth   *tokenSet
	layout layout.Options
	logger *log.Logger
	router chi.Router
}

// New builds the router. The store is owned by the caller.
func New(opts Options) *Server {
	s := &Server{
		store:  opts.Store,
		runner: opts.Runner,
		auth:   newTokenSet(opts.Tokens),
		layout: opts.Layout,
		logger: opts.Logger,
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if s.runner == nil {
		s.runner = pipeline.NewRunner(nil, nil, s.logger)
	}
	if s.layout == (layout.Options{}) {
		s.layout = layout.DefaultOptions()
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(recoverer(s.logger))

	r.Get("/healthz", s.health)

	r.Route("/restaurants/{restaurantID}", func(r chi.Router) {
		r.Get("/graph", s.getGraph)
		r.Get("/render/{format}", s.render)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.require)
			r.Put("/graph", s.importGraph)
			r.Post("/nodes", s.createNode)
			r.Post("/edges", s.createEdge)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.auth.require)
		r.Patch("/nodes/{nodeID}/move", s.moveNode)
		r.Patch("/nodes/{nodeID}/toggle", s.toggleNode)
		r.Delete("/nodes/{nodeID}", s.deleteNode)
		r.Delete("/edges/{edgeID}", s.deleteEdge)
	})

	r.NotFound(s.notFound)
	r.MethodNotAllowed(s.methodNotAllowed)
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenOptions configures ListenAndServe.
type ListenOptions struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// ListenAndServe serves until ctx is cancelled, then drains open requests
// for up to ShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, opts ListenOptions) error {
	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           s,
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      opts.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", opts.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", "timeout", opts.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
