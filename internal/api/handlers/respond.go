package handlers

import (
	"errors"

	"runcomp/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// SessionHeader carries the viewer session id in both directions
const SessionHeader = "X-Session-ID"

// bind parses the JSON body into req and validates it. A non-nil result is
// the 400 payload to send back.
func bind(c *fiber.Ctx, validate *validator.Validate, req interface{}) *models.ErrorResponse {
	if err := c.BodyParser(req); err != nil {
		return &models.ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		}
	}

	if err := validate.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return &models.ErrorResponse{
				Error:   "Validation failed",
				Message: validationErrors.Error(),
			}
		}
		return &models.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		}
	}
	return nil
}

func respondError(c *fiber.Ctx, status int, title string, err error) error {
	return c.Status(status).JSON(models.ErrorResponse{
		Error:   title,
		Message: err.Error(),
	})
}
