package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"example.com/wealthsutra/backend/internal/auth"
	"example.com/wealthsutra/backend/internal/models"
	"example.com/wealthsutra/backend/internal/repository"
)

type GoalHandler struct {
	Goals *repository.GoalRepository
}

// NewGoalHandler создает обработчик целей.
func NewGoalHandler(goals *repository.GoalRepository) *GoalHandler {
	return &GoalHandler{Goals: goals}
}

type GoalRequest struct {
	GoalType     string  `json:"goal_type" validate:"required,oneof=emi_payment rent emergency_fund festival_savings"`
	TargetAmount float64 `json:"target_amount" validate:"gt=0"`
	TargetDate   string  `json:"target_date" validate:"required"`
}

type GoalResponse struct {
	Goal models.Goal `json:"goal"`
}

type GoalsResponse struct {
	Goals []models.Goal `json:"goals"`
}

// Create создает цель накоплений.
func (h *GoalHandler) Create(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req GoalRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	targetDate, err := time.Parse(dateLayout, req.TargetDate)
	if err != nil {
		return badRequest(c, "invalid target_date")
	}

	goal, err := h.Goals.Create(c.Request().Context(), userID, models.GoalType(req.GoalType), req.TargetAmount, targetDate)
	if err != nil {
		if errors.Is(err, repository.ErrInvalid) {
			return badRequest(c, "invalid goal")
		}
		return serverError(c)
	}

	return c.JSON(http.StatusCreated, GoalResponse{Goal: goal})
}

// List возвращает цели пользователя, новые первыми.
func (h *GoalHandler) List(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	goals, err := h.Goals.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, GoalsResponse{Goals: goals})
}
