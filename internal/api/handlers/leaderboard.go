package handlers

import (
	"context"
	"errors"

	"runcomp/internal/leaderboard"
	"runcomp/internal/models"
	"runcomp/internal/service"
	"runcomp/internal/session"
	"runcomp/internal/websocket"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
)

// StatsService is the part of the service layer the leaderboard routes use
type StatsService interface {
	UserStats(ctx context.Context, userID string) (*models.UserStatsResponse, error)
	HealthCheck(ctx context.Context) error
}

// LeaderboardHandler handles HTTP requests for the leaderboard
type LeaderboardHandler struct {
	sessions  *session.Registry
	service   StatsService
	hub       *websocket.Hub
	validator *validator.Validate
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(sessions *session.Registry, service StatsService, hub *websocket.Hub) *LeaderboardHandler {
	return &LeaderboardHandler{
		sessions:  sessions,
		service:   service,
		hub:       hub,
		validator: validator.New(),
	}
}

// controller resolves the caller's session, activating it on first use
func (h *LeaderboardHandler) controller(c *fiber.Ctx) *leaderboard.Controller {
	id, ctrl, created := h.sessions.Resolve(c.Get(SessionHeader))
	c.Set(SessionHeader, id)
	if created {
		ctrl.Activate(c.UserContext())
	}
	return ctrl
}

// GetLeaderboard handles GET /api/v1/leaderboard
// @Summary Get leaderboard
// @Description Returns the session's current leaderboard view
// @Produce json
// @Success 200 {object} models.LeaderboardView
// @Router /api/v1/leaderboard [get]
func (h *LeaderboardHandler) GetLeaderboard(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(h.controller(c).View())
}

// SelectPeriod handles POST /api/v1/leaderboard/period
// @Summary Select timeframe
// @Description Switches the session to a period and resets to its latest instance
// @Accept json
// @Produce json
// @Param request body models.PeriodRequest true "Period selection"
// @Success 200 {object} models.LeaderboardView
// @Failure 400 {object} models.ErrorResponse
// @Router /api/v1/leaderboard/period [post]
func (h *LeaderboardHandler) SelectPeriod(c *fiber.Ctx) error {
	var req models.PeriodRequest
	if errResp := bind(c, h.validator, &req); errResp != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errResp)
	}

	period, err := leaderboard.ParsePeriod(req.Period)
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid period", err)
	}

	view, err := h.controller(c).SelectPeriod(c.UserContext(), period)
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid period", err)
	}
	return c.Status(fiber.StatusOK).JSON(view)
}

// Navigate handles POST /api/v1/leaderboard/navigate
// @Summary Navigate periods
// @Description Moves the session one period older or newer
// @Accept json
// @Produce json
// @Param request body models.NavigateRequest true "Direction"
// @Success 200 {object} models.LeaderboardView
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/v1/leaderboard/navigate [post]
func (h *LeaderboardHandler) Navigate(c *fiber.Ctx) error {
	var req models.NavigateRequest
	if errResp := bind(c, h.validator, &req); errResp != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errResp)
	}

	direction, err := leaderboard.ParseDirection(req.Direction)
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid direction", err)
	}

	view, err := h.controller(c).Navigate(c.UserContext(), direction)
	switch {
	case errors.Is(err, leaderboard.ErrNavigationDisabled):
		return respondError(c, fiber.StatusConflict, "Navigation disabled", err)
	case err != nil:
		return respondError(c, fiber.StatusBadRequest, "Invalid direction", err)
	}
	return c.Status(fiber.StatusOK).JSON(view)
}

// UserStats handles GET /api/v1/users/:userId
// @Summary User stats
// @Description Returns a user's all-time standing and runs
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {object} models.UserStatsResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/users/{userId} [get]
func (h *LeaderboardHandler) UserStats(c *fiber.Ctx) error {
	userID := c.Params("userId")

	stats, err := h.service.UserStats(c.UserContext(), userID)
	switch {
	case errors.Is(err, service.ErrUserNotRanked):
		return respondError(c, fiber.StatusNotFound, "User not found", err)
	case err != nil:
		return respondError(c, fiber.StatusInternalServerError, "Failed to load user stats", err)
	}
	return c.Status(fiber.StatusOK).JSON(stats)
}

// HealthCheck handles GET /api/v1/health
// @Summary Health check
// @Description Checks the health of the service and its dependencies
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} models.ErrorResponse
// @Router /api/v1/health [get]
func (h *LeaderboardHandler) HealthCheck(c *fiber.Ctx) error {
	if err := h.service.HealthCheck(c.UserContext()); err != nil {
		return respondError(c, fiber.StatusServiceUnavailable, "Health check failed", err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":   "healthy",
		"message":  "All systems operational",
		"sessions": h.sessions.Len(),
	})
}

// HandleWebSocket attaches a connection to the version hub
func (h *LeaderboardHandler) HandleWebSocket(conn *fiberws.Conn) {
	websocket.ServeWS(h.hub, conn)
}
