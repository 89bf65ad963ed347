package server

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/emergent-labs/livedev/internal/health"
	"github.com/emergent-labs/livedev/internal/manager"
	"github.com/emergent-labs/livedev/internal/project"
	"github.com/emergent-labs/livedev/internal/store"
)

// Handlers holds dependencies for the HTTP handlers.
type Handlers struct {
	manager *manager.Manager
	sim     *manager.Simulator
	store   *store.Store
	checker *health.Checker
	logger  zerolog.Logger

	// runCtx bounds simulation goroutines spawned by CreateProject.
	runCtx context.Context

	// heartbeat is the SSE keepalive cadence.
	heartbeat time.Duration
}

// NewHandlers creates a Handlers instance.
func NewHandlers(
	ctx context.Context,
	mgr *manager.Manager,
	sim *manager.Simulator,
	st *store.Store,
	checker *health.Checker,
	logger zerolog.Logger,
) *Handlers {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Handlers{
		manager:   mgr,
		sim:       sim,
		store:     st,
		checker:   checker,
		logger:    logger.With().Str("component", "handlers").Logger(),
		runCtx:    ctx,
		heartbeat: 30 * time.Second,
	}
}

// Root handles GET /api/.
func (h *Handlers) Root(c *fiber.Ctx) error {
	return c.JSON(RootResponse{Message: "Live Development System Ready"})
}

// CreateStatusCheck handles POST /api/status.
func (h *Handlers) CreateStatusCheck(c *fiber.Ctx) error {
	var req StatusCheckRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}
	if strings.TrimSpace(req.ClientName) == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_client_name", "Bad Request",
			"client_name is required")
	}

	check, err := h.store.AddStatusCheck(req.ClientName)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(check)
}

// ListStatusChecks handles GET /api/status.
func (h *Handlers) ListStatusChecks(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 1000)
	checks, err := h.store.ListStatusChecks(limit)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	if checks == nil {
		checks = []*store.StatusCheck{}
	}
	return c.JSON(checks)
}

// CreateProject handles POST /api/projects/create. The response carries
// the assigned id only; state updates flow over the live stream while
// the simulated build runs in the background.
func (h *Handlers) CreateProject(c *fiber.Ctx) error {
	var req CreateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}
	if strings.TrimSpace(req.Name) == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_name", "Bad Request",
			"Project name is required")
	}

	projectType := req.ProjectType
	if projectType == "" {
		projectType = project.TypeReactApp
	}

	p, err := h.manager.CreateProject(req.Name, projectType)
	if err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_project", "Bad Request", err.Error())
	}

	if h.sim != nil {
		go h.sim.Run(h.runCtx, p.ID, projectType)
	}

	return c.JSON(CreateProjectResponse{
		ProjectID: p.ID,
		Status:    "created",
	})
}

// ListProjects handles GET /api/projects.
func (h *Handlers) ListProjects(c *fiber.Ctx) error {
	projects := h.manager.ListProjects()
	if projects == nil {
		projects = []*project.Project{}
	}
	return c.JSON(projects)
}

// GetProject handles GET /api/projects/:id.
func (h *Handlers) GetProject(c *fiber.Ctx) error {
	id := c.Params("id")
	p, ok := h.manager.GetProject(id)
	if !ok {
		return problemResponse(c, fiber.StatusNotFound,
			"project_not_found", "Not Found",
			"Project not found: "+id)
	}
	return c.JSON(p)
}

// AddProjectLog handles POST /api/projects/:id/logs.
func (h *Handlers) AddProjectLog(c *fiber.Ctx) error {
	return h.appendMessage(c, h.manager.AddLog, "log_added")
}

// AddProjectError handles POST /api/projects/:id/errors.
func (h *Handlers) AddProjectError(c *fiber.Ctx) error {
	return h.appendMessage(c, h.manager.AddError, "error_added")
}

func (h *Handlers) appendMessage(c *fiber.Ctx, apply func(id, message string), status string) error {
	id := c.Params("id")
	if _, ok := h.manager.GetProject(id); !ok {
		return problemResponse(c, fiber.StatusNotFound,
			"project_not_found", "Not Found",
			"Project not found: "+id)
	}

	var req MessageRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}
	if strings.TrimSpace(req.Message) == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_message", "Bad Request",
			"message is required")
	}

	apply(id, req.Message)
	return c.JSON(fiber.Map{"status": status})
}

// Liveness handles GET /healthz.
func (h *Handlers) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Readiness handles GET /readyz.
func (h *Handlers) Readiness(c *fiber.Ctx) error {
	if h.checker != nil && !h.checker.IsReady(c.Context()) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "not_ready",
		})
	}
	return c.JSON(fiber.Map{"status": "ready"})
}

func problemResponse(c *fiber.Ctx, status int, errType, title, detail string) error {
	return c.Status(status).JSON(ProblemDetail{
		Type:     errType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Path(),
	})
}
