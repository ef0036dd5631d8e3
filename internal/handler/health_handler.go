package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/od-tracker-api/internal/config"
	"github.com/noah-isme/od-tracker-api/internal/utils"
)

const storePingTimeout = 5 * time.Second

// StorePinger reports whether the backing store is reachable.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// WelcomeResponse is served at the API root.
type WelcomeResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	Service string `json:"service"`
}

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
}

// StoreStatusResponse reports the outcome of a store ping.
type StoreStatusResponse struct {
	Status string `json:"status"`
	Driver string `json:"driver"`
	Error  string `json:"error,omitempty"`
}

// HealthHandler serves liveness and store connectivity endpoints.
type HealthHandler struct {
	cfg    config.Config
	store  StorePinger
	logger zerolog.Logger
}

// NewHealthHandler constructs a health handler.
func NewHealthHandler(cfg config.Config, store StorePinger, logger zerolog.Logger) *HealthHandler {
	return &HealthHandler{
		cfg:    cfg,
		store:  store,
		logger: logger.With().Str("component", "health_handler").Logger(),
	}
}

// Register wires health routes.
func (h *HealthHandler) Register(router fiber.Router) {
	router.Get("/", h.welcome)
	router.Get("/healthcheck", h.health)
	router.Get("/test-db", h.testStore)
}

func (h *HealthHandler) welcome(c *fiber.Ctx) error {
	return utils.SendJSON(c, fiber.StatusOK, WelcomeResponse{
		Message: "Welcome to the Digital OD Portal API",
		Status:  "Online",
		Service: h.cfg.AppName,
	})
}

func (h *HealthHandler) health(c *fiber.Ctx) error {
	return utils.SendJSON(c, fiber.StatusOK, HealthResponse{
		Status:      "Backend is running",
		Timestamp:   time.Now().UTC(),
		Service:     h.cfg.AppName,
		Environment: h.cfg.AppEnv,
	})
}

func (h *HealthHandler) testStore(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), storePingTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Str("driver", h.cfg.StorageDriver).Msg("store ping failed")
		return utils.SendJSON(c, fiber.StatusServiceUnavailable, StoreStatusResponse{
			Status: "Connection failed",
			Driver: h.cfg.StorageDriver,
			Error:  err.Error(),
		})
	}

	return utils.SendJSON(c, fiber.StatusOK, StoreStatusResponse{
		Status: "Successfully connected to the database",
		Driver: h.cfg.StorageDriver,
	})
}
