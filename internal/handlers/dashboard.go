package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/wealthsutra/backend/internal/auth"
	"example.com/wealthsutra/backend/internal/dashboard"
)

type DashboardReader interface {
	Summary(ctx context.Context, userID uuid.UUID) (dashboard.Summary, error)
}

// CacheInvalidator сбрасывает кэшированную сводку после изменения данных пользователя.
type CacheInvalidator interface {
	Invalidate(userID uuid.UUID)
}

type DashboardHandler struct {
	Dashboard DashboardReader
}

// NewDashboardHandler создает обработчик сводки.
func NewDashboardHandler(reader DashboardReader) *DashboardHandler {
	return &DashboardHandler{Dashboard: reader}
}

// Get возвращает сводку за последние семь дней и индекс здоровья.
func (h *DashboardHandler) Get(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	summary, err := h.Dashboard.Summary(c.Request().Context(), userID)
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, summary)
}
