// Package server provides the HTTP server and routing.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"folio/internal/events"
	"folio/internal/modules/history"
	"folio/internal/modules/portfolio"
	"folio/internal/modules/rebalancing"
	"folio/internal/modules/trading"
	"folio/internal/modules/valuation"
	"folio/internal/oracle"
	"folio/internal/store"
)

// Config holds server configuration
type Config struct {
	Port      int
	DevMode   bool
	Store     *store.Store
	Oracle    *oracle.Service
	Valuation *valuation.Service
	History   *history.Service
	Events    *events.Manager
	Log       zerolog.Logger
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
}

// New creates the server and mounts all routes.
func New(cfg Config) *Server {
	log := cfg.Log.With().Str("component", "server").Logger()
	router := chi.NewRouter()

	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	if !cfg.DevMode {
		router.Use(middleware.Compress(5))
	}
	router.Use(requestLogger(log))

	systemHandlers := NewSystemHandlers(cfg.Store, cfg.Log)
	eventsHandler := NewEventsHandler(cfg.Events.Bus(), cfg.Log)
	portfolioHandler := portfolio.NewHandler(cfg.Store, cfg.Oracle, cfg.Valuation, cfg.Events, cfg.Log)
	marketHandler := oracle.NewHandler(cfg.Oracle, cfg.Store, cfg.Log)
	planner := rebalancing.NewPlanner(cfg.Log)
	rebalancingHandler := rebalancing.NewHandler(cfg.Store, cfg.Oracle, cfg.Valuation, planner, cfg.Log)
	executor := trading.NewExecutor(cfg.Store, cfg.Events, cfg.Log)
	tradingHandler := trading.NewHandler(executor, cfg.Log)
	historyHandler := history.NewHandler(cfg.History, cfg.Log)

	router.Get("/health", systemHandlers.HandleHealth)

	router.Route("/api", func(r chi.Router) {
		r.Get("/system/status", systemHandlers.HandleSystemStatus)
		r.Get("/portfolio", portfolioHandler.HandleGetPortfolio)
		r.Post("/portfolio", portfolioHandler.HandleSavePortfolio)
		r.Post("/rollback", portfolioHandler.HandleRollback)
		r.Get("/market-data", marketHandler.HandleGetMarketData)
		r.Get("/rebalancing/plan", rebalancingHandler.HandleGetPlan)
		r.Post("/trades", tradingHandler.HandleExecuteTrades)
		r.Get("/history", historyHandler.HandleGetHistory)
		r.Get("/events/ws", eventsHandler.HandleEventsWS)
	})

	return &Server{
		router: router,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// Router exposes the mux, used by tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP server listening")
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("Request handled")
		})
	}
}
