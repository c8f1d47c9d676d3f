package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"example.com/wealthsutra/backend/internal/auth"
	"example.com/wealthsutra/backend/internal/models"
	"example.com/wealthsutra/backend/internal/repository"
)

type PlanHandler struct {
	Plans      *repository.PlanRepository
	RiskEvents *repository.RiskEventRepository
}

// NewPlanHandler создает обработчик планов.
func NewPlanHandler(plans *repository.PlanRepository, riskEvents *repository.RiskEventRepository) *PlanHandler {
	return &PlanHandler{Plans: plans, RiskEvents: riskEvents}
}

type ActivePlanResponse struct {
	Plan *models.Plan `json:"plan"`
}

type PlansResponse struct {
	Plans []models.Plan `json:"plans"`
}

type RiskEventsResponse struct {
	RiskEvents []models.RiskEvent `json:"risk_events"`
}

// Active возвращает действующий план. Отсутствие плана - не ошибка.
func (h *PlanHandler) Active(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	plan, err := h.Plans.GetActive(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusOK, ActivePlanResponse{})
		}
		return serverError(c)
	}

	return c.JSON(http.StatusOK, ActivePlanResponse{Plan: &plan})
}

// History возвращает все планы пользователя, новые первыми.
func (h *PlanHandler) History(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	limit, offset, err := parsePagination(c, 20, 100)
	if err != nil {
		return badRequest(c, err.Error())
	}

	plans, err := h.Plans.ListHistory(c.Request().Context(), userID, limit, offset)
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, PlansResponse{Plans: plans})
}

// RiskEventList возвращает журнал оценок риска.
func (h *PlanHandler) RiskEventList(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	limit, offset, err := parsePagination(c, 20, 100)
	if err != nil {
		return badRequest(c, err.Error())
	}

	events, err := h.RiskEvents.ListByUser(c.Request().Context(), userID, limit, offset)
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, RiskEventsResponse{RiskEvents: events})
}
