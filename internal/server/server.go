// Package server exposes the live development system over HTTP: a JSON
// API for project management, a websocket stream of live events and an
// SSE fallback.
package server

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/emergent-labs/livedev/internal/health"
	"github.com/emergent-labs/livedev/internal/manager"
	"github.com/emergent-labs/livedev/internal/metrics"
	"github.com/emergent-labs/livedev/internal/requestid"
	"github.com/emergent-labs/livedev/internal/store"
)

// Config holds the HTTP surface configuration.
type Config struct {
	ListenAddr  string
	CORSOrigins string
}

// Server is the fiber application serving the API and the live stream.
type Server struct {
	app      *fiber.App
	handlers *Handlers
	logger   zerolog.Logger
	config   Config
}

// New wires the fiber app, middleware and routes. ctx bounds the
// simulation runs spawned by project creation.
func New(
	ctx context.Context,
	cfg Config,
	mgr *manager.Manager,
	sim *manager.Simulator,
	st *store.Store,
	checker *health.Checker,
	collector *metrics.Metrics,
	logger zerolog.Logger,
) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ReadBufferSize:        8192,
		WriteBufferSize:       8192,
	})

	handlers := NewHandlers(ctx, mgr, sim, st, checker, logger)

	s := &Server{
		app:      app,
		handlers: handlers,
		logger:   logger.With().Str("component", "server").Logger(),
		config:   cfg,
	}

	s.setupMiddleware(cfg, collector, logger)
	s.setupRoutes(handlers, collector)

	return s
}

func (s *Server) setupMiddleware(cfg Config, collector *metrics.Metrics, logger zerolog.Logger) {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	s.app.Use(func(c *fiber.Ctx) error {
		ctx, reqID := requestid.New(c.UserContext())
		c.SetUserContext(ctx)
		c.Set("X-Request-ID", reqID)
		c.Locals("request_id", reqID)
		return c.Next()
	})

	if cfg.CORSOrigins != "" {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CORSOrigins,
			AllowHeaders: "Origin, Content-Type, Accept, X-Request-ID",
			AllowMethods: "GET, POST, OPTIONS",
		}))
	}

	// Audit log plus per-route request counts. Probes stay out of the
	// log to keep it readable.
	s.app.Use(func(c *fiber.Ctx) error {
		err := c.Next()

		path := c.Path()
		if collector != nil {
			collector.RecordRequest(c.Route().Path, strconv.Itoa(c.Response().StatusCode()))
		}
		if path == "/healthz" || path == "/readyz" || path == "/metrics" {
			return err
		}

		logger.Info().
			Str("method", c.Method()).
			Str("path", path).
			Int("status", c.Response().StatusCode()).
			Str("ip", c.IP()).
			Msg("api request")
		return err
	})
}

func (s *Server) setupRoutes(h *Handlers, collector *metrics.Metrics) {
	s.app.Get("/healthz", h.Liveness)
	s.app.Get("/readyz", h.Readiness)

	if collector != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(collector.Handler()))
	}

	api := s.app.Group("/api")

	api.Get("/", h.Root)

	api.Post("/status", h.CreateStatusCheck)
	api.Get("/status", h.ListStatusChecks)

	api.Post("/projects/create", h.CreateProject)
	api.Get("/projects", h.ListProjects)
	api.Get("/projects/:id", h.GetProject)
	api.Post("/projects/:id/logs", h.AddProjectLog)
	api.Post("/projects/:id/errors", h.AddProjectError)

	api.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/ws/live", websocket.New(h.LiveSocket))

	api.Get("/stream/events", h.StreamEvents)
}

// Start serves until Shutdown is called. Blocks.
func (s *Server) Start() error {
	addr := s.config.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	s.logger.Info().Str("addr", addr).Msg("http server starting")
	return s.app.Listen(addr)
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown() error {
	s.logger.Info().Msg("http server shutting down")
	return s.app.Shutdown()
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func errorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		logger.Error().
			Err(err).
			Int("status", code).
			Str("path", c.Path()).
			Str("method", c.Method()).
			Str("request_id", requestid.FromContext(c.UserContext())).
			Msg("unhandled error")

		detail := err.Error()
		if code == fiber.StatusInternalServerError {
			detail = "An internal error occurred"
		}

		return c.Status(code).JSON(ProblemDetail{
			Type:     "internal_error",
			Title:    "Internal Server Error",
			Status:   code,
			Detail:   detail,
			Instance: c.Path(),
		})
	}
}
