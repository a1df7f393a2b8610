package handlers

import (
	"context"
	"errors"

	"runcomp/internal/models"
	"runcomp/internal/repository"
	"runcomp/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// RunService is the part of the service layer the run and profile routes use
type RunService interface {
	ListRuns(ctx context.Context, userID string) ([]models.Run, error)
	AddRun(ctx context.Context, userID string, req models.RunRequest) (*models.Run, error)
	UpdateRun(ctx context.Context, runID string, req models.RunRequest) (*models.Run, error)
	DeleteRun(ctx context.Context, runID string) error
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, userID string, req models.ProfileRequest) (*models.Profile, error)
}

// RunHandler handles run logging and profile editing
type RunHandler struct {
	service   RunService
	validator *validator.Validate
}

// NewRunHandler creates a new run handler
func NewRunHandler(service RunService) *RunHandler {
	return &RunHandler{
		service:   service,
		validator: validator.New(),
	}
}

// writeStatus maps service errors onto HTTP statuses
func writeStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidRun):
		return fiber.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// ListRuns handles GET /api/v1/users/:userId/runs
func (h *RunHandler) ListRuns(c *fiber.Ctx) error {
	runs, err := h.service.ListRuns(c.UserContext(), c.Params("userId"))
	if err != nil {
		return respondError(c, fiber.StatusInternalServerError, "Failed to list runs", err)
	}

	resp := make([]models.RunResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, models.NewRunResponse(run))
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// AddRun handles POST /api/v1/users/:userId/runs
func (h *RunHandler) AddRun(c *fiber.Ctx) error {
	var req models.RunRequest
	if errResp := bind(c, h.validator, &req); errResp != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errResp)
	}

	run, err := h.service.AddRun(c.UserContext(), c.Params("userId"), req)
	if err != nil {
		return respondError(c, writeStatus(err), "Failed to add run", err)
	}
	return c.Status(fiber.StatusCreated).JSON(models.NewRunResponse(*run))
}

// UpdateRun handles PUT /api/v1/runs/:runId
func (h *RunHandler) UpdateRun(c *fiber.Ctx) error {
	var req models.RunRequest
	if errResp := bind(c, h.validator, &req); errResp != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errResp)
	}

	run, err := h.service.UpdateRun(c.UserContext(), c.Params("runId"), req)
	if err != nil {
		return respondError(c, writeStatus(err), "Failed to update run", err)
	}
	return c.Status(fiber.StatusOK).JSON(models.NewRunResponse(*run))
}

// DeleteRun handles DELETE /api/v1/runs/:runId
func (h *RunHandler) DeleteRun(c *fiber.Ctx) error {
	if err := h.service.DeleteRun(c.UserContext(), c.Params("runId")); err != nil {
		return respondError(c, writeStatus(err), "Failed to delete run", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetProfile handles GET /api/v1/users/:userId/profile
func (h *RunHandler) GetProfile(c *fiber.Ctx) error {
	profile, err := h.service.GetProfile(c.UserContext(), c.Params("userId"))
	if err != nil {
		return respondError(c, writeStatus(err), "Failed to load profile", err)
	}
	return c.Status(fiber.StatusOK).JSON(profile)
}

// UpdateProfile handles PUT /api/v1/users/:userId/profile
func (h *RunHandler) UpdateProfile(c *fiber.Ctx) error {
	var req models.ProfileRequest
	if errResp := bind(c, h.validator, &req); errResp != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errResp)
	}

	profile, err := h.service.UpdateProfile(c.UserContext(), c.Params("userId"), req)
	if err != nil {
		return respondError(c, writeStatus(err), "Failed to update profile", err)
	}
	return c.Status(fiber.StatusOK).JSON(profile)
}
