package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/od-tracker-api/internal/dto"
	"github.com/noah-isme/od-tracker-api/internal/models"
	"github.com/noah-isme/od-tracker-api/internal/service"
	"github.com/noah-isme/od-tracker-api/internal/utils"
	"github.com/noah-isme/od-tracker-api/internal/validation"
)

// ODRequestHandler serves OD submission, listing and review endpoints.
type ODRequestHandler struct {
	service service.ODRequestService
	logger  zerolog.Logger
}

// NewODRequestHandler constructs an OD request handler.
func NewODRequestHandler(service service.ODRequestService, logger zerolog.Logger) *ODRequestHandler {
	return &ODRequestHandler{
		service: service,
		logger:  logger.With().Str("component", "od_request_handler").Logger(),
	}
}

// Register wires OD request routes.
func (h *ODRequestHandler) Register(router fiber.Router) {
	router.Post("/apply", h.submit)
	router.Get("/all", h.listAll)
	router.Get("/stats", h.stats)
	router.Get("/student/email/:email", h.listByEmail)
	router.Get("/student/:roll_no", h.listByRollNo)
	router.Patch("/status/:id", h.updateStatus)
}

func (h *ODRequestHandler) submit(c *fiber.Ctx) error {
	var payload dto.ODRequestCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	response, err := h.service.Submit(c.UserContext(), payload)
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, validation.Describe(err))
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to submit od request")
		return utils.SendError(c, fiber.StatusInternalServerError, "Failed to submit request")
	}

	return utils.SendJSON(c, fiber.StatusOK, response)
}

func (h *ODRequestHandler) listAll(c *fiber.Ctx) error {
	documents, err := h.service.ListAll(c.UserContext())
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list od requests")
		return utils.SendError(c, fiber.StatusInternalServerError, "Failed to fetch requests")
	}

	return utils.SendJSON(c, fiber.StatusOK, documents)
}

func (h *ODRequestHandler) listByRollNo(c *fiber.Ctx) error {
	views, err := h.service.ListByRollNo(c.UserContext(), pathParam(c, "roll_no"))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list od requests by roll number")
		return utils.SendError(c, fiber.StatusInternalServerError, "Failed to fetch requests")
	}

	return utils.SendJSON(c, fiber.StatusOK, views)
}

func (h *ODRequestHandler) listByEmail(c *fiber.Ctx) error {
	views, err := h.service.ListByEmail(c.UserContext(), pathParam(c, "email"))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list od requests by email")
		return utils.SendError(c, fiber.StatusInternalServerError, "Failed to fetch requests")
	}

	return utils.SendJSON(c, fiber.StatusOK, views)
}

func (h *ODRequestHandler) updateStatus(c *fiber.Ctx) error {
	var payload dto.ODStatusUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	response, err := h.service.UpdateStatus(c.UserContext(), pathParam(c, "id"), payload)
	if err != nil {
		var transitionErr *service.TransitionError
		switch {
		case errors.Is(err, service.ErrInvalidRequestID):
			return utils.SendError(c, fiber.StatusBadRequest, "Invalid ID format")
		case errors.Is(err, service.ErrInvalidStatus):
			return utils.SendError(c, fiber.StatusBadRequest, "Invalid status. Must be one of: "+models.JoinODStatuses(", "))
		case errors.Is(err, service.ErrODRequestNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "Request not found")
		case errors.As(err, &transitionErr):
			return utils.SendError(c, fiber.StatusConflict, "Cannot change status from "+transitionErr.From.String()+" to "+transitionErr.To.String())
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to update od status")
			return utils.SendError(c, fiber.StatusInternalServerError, "Failed to update status")
		}
	}

	return utils.SendMessage(c, fiber.StatusOK, response.Message)
}

func (h *ODRequestHandler) stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext())
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to compute od stats")
		return utils.SendError(c, fiber.StatusInternalServerError, "Failed to fetch stats")
	}

	return utils.SendJSON(c, fiber.StatusOK, stats)
}
