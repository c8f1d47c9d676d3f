package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/wealthsutra/backend/internal/agent"
	"example.com/wealthsutra/backend/internal/auth"
	"example.com/wealthsutra/backend/internal/models"
	"example.com/wealthsutra/backend/internal/notifications"
)

type PlanGenerator interface {
	GeneratePlan(ctx context.Context, userID uuid.UUID, trigger models.PlanTrigger) (agent.Result, error)
}

type AgentHandler struct {
	Generator PlanGenerator
	Notifier  *notifications.Hub
	Logger    *slog.Logger
}

// NewAgentHandler создает обработчик генерации плана.
func NewAgentHandler(generator PlanGenerator, notifier *notifications.Hub, logger *slog.Logger) *AgentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AgentHandler{Generator: generator, Notifier: notifier, Logger: logger}
}

type GeneratePlanRequest struct {
	Trigger string `json:"trigger" validate:"omitempty,oneof=initial_plan risk_adjustment"`
}

// GeneratePlan запускает конвейер планирования для текущего пользователя.
func (h *AgentHandler) GeneratePlan(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req GeneratePlanRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid payload")
		}
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "invalid trigger")
	}

	result, err := h.Generator.GeneratePlan(c.Request().Context(), userID, models.PlanTrigger(req.Trigger))
	if err != nil {
		if errors.Is(err, agent.ErrInvalidTrigger) {
			return badRequest(c, "invalid trigger")
		}
		h.Logger.Error("plan generation failed",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()),
		)
		return serverError(c)
	}

	h.Notifier.Publish(userID, notifications.PlanGenerated(result.Plan, result.Risk.Level))

	return c.JSON(http.StatusCreated, result)
}
