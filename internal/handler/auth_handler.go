package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/od-tracker-api/internal/dto"
	"github.com/noah-isme/od-tracker-api/internal/service"
	"github.com/noah-isme/od-tracker-api/internal/utils"
)

// AuthHandler serves the student and faculty login endpoints.
type AuthHandler struct {
	service service.AuthService
	logger  zerolog.Logger
}

// NewAuthHandler constructs an auth handler.
func NewAuthHandler(service service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register wires login routes.
func (h *AuthHandler) Register(router fiber.Router) {
	router.Post("/auth/login", h.studentLogin)
	router.Post("/auth/faculty-login", h.facultyLogin)
}

func (h *AuthHandler) studentLogin(c *fiber.Ctx) error {
	var payload dto.StudentLoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	response, err := h.service.StudentLogin(c.UserContext(), payload)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCollegeEmail) {
			return utils.SendError(c, fiber.StatusUnauthorized, "Invalid college email format. Use name.departmentYEAR@"+h.service.EmailDomain())
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("student login failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "Login failed")
	}

	return utils.SendJSON(c, fiber.StatusOK, response)
}

func (h *AuthHandler) facultyLogin(c *fiber.Ctx) error {
	var payload dto.FacultyLoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	response, err := h.service.FacultyLogin(c.UserContext(), payload)
	if err != nil {
		if errors.Is(err, service.ErrInvalidFacultyCredentials) {
			return utils.SendError(c, fiber.StatusUnauthorized, "Invalid faculty credentials")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("faculty login failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "Login failed")
	}

	return utils.SendJSON(c, fiber.StatusOK, response)
}
