package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/gosuda/aegis/internal/api/ws"
	"github.com/gosuda/aegis/internal/config"
	"github.com/gosuda/aegis/internal/metrics"
	"github.com/gosuda/aegis/internal/policy"
	"github.com/gosuda/aegis/internal/server/middleware"
	"github.com/gosuda/aegis/internal/store/postgres"
	redisstore "github.com/gosuda/aegis/internal/store/redis"
)

// Server is the HTTP server that wires all application routes and middleware.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	store      *postgres.Store
	pubsub     *redisstore.PubSub // nil when Redis is not configured
	wsHub      *ws.Hub
	engine     *policy.Engine
	cfg        *config.Config
}

// New creates a Server with all routes wired. apiKeyHashes maps sha256 hex
// digests of agent API keys to agent names; pubsub may be nil, in which case
// the WebSocket event routes are not mounted.
func New(
	cfg *config.Config,
	store *postgres.Store,
	pubsub *redisstore.PubSub,
	engine *policy.Engine,
	m *metrics.Metrics,
	apiKeyHashes map[string]string,
) *Server {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	var hub *ws.Hub
	if pubsub != nil {
		hub = ws.NewHub(pubsub)
	}

	s := &Server{
		router: router,
		store:  store,
		pubsub: pubsub,
		wsHub:  hub,
		engine: engine,
		cfg:    cfg,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	// Mount API routes on /api/v1 with two sub-groups:
	// 1. Authenticated group for agents and operators.
	// 2. Operator-only group for approvals and policy administration.
	router.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT.Secret, apiKeyHashes))
			r.Use(middleware.RateLimit(context.Background(), 100, 200))

			apiConfig := huma.DefaultConfig("Aegis API", "1.0.0")
			apiConfig.Servers = []*huma.Server{
				{URL: "/api/v1"},
			}
			api := humachi.New(r, apiConfig)
			registerAPIRoutes(api, store, engine)
		})

		// Approving, rejecting, pre-authorization and breaker resets are
		// human decisions; agents never reach them.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT.Secret, apiKeyHashes))
			r.Use(middleware.RequireOperator())
			r.Use(middleware.RateLimit(context.Background(), 100, 200))

			opConfig := huma.DefaultConfig("Aegis Operator API", "1.0.0")
			opConfig.Servers = []*huma.Server{
				{URL: "/api/v1"},
			}
			// The main group already serves /openapi.json, /docs and
			// /schemas; registering them twice would panic chi.
			opConfig.OpenAPIPath = ""
			opConfig.DocsPath = ""
			opConfig.SchemasPath = ""
			opAPI := humachi.New(r, opConfig)
			registerOperatorRoutes(opAPI, engine)
		})
	})

	// WebSocket routes, only when Redis pub/sub is available.
	if hub != nil {
		router.Route("/ws", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT.Secret, apiKeyHashes))
			registerWSRoutes(r, hub)
		})
	}

	// Prometheus scrape endpoint (unauthenticated, like /healthz).
	router.Method(http.MethodGet, "/metrics", m.Handler())

	// Health check (unauthenticated).
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	return s
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
