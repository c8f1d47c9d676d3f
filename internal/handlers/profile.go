package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"example.com/wealthsutra/backend/internal/auth"
	"example.com/wealthsutra/backend/internal/models"
	"example.com/wealthsutra/backend/internal/repository"
)

type ProfileHandler struct {
	Profiles  *repository.ProfileRepository
	Dashboard CacheInvalidator
}

// NewProfileHandler создает обработчик профиля.
func NewProfileHandler(profiles *repository.ProfileRepository, dashboard CacheInvalidator) *ProfileHandler {
	return &ProfileHandler{Profiles: profiles, Dashboard: dashboard}
}

type ProfileRequest struct {
	City             *string  `json:"city" validate:"omitempty,max=100"`
	IncomeMinPerDay  float64  `json:"income_min_per_day" validate:"gte=0"`
	IncomeMaxPerDay  float64  `json:"income_max_per_day" validate:"gte=0,gtefield=IncomeMinPerDay"`
	WorkDaysPerWeek  int      `json:"work_days_per_week" validate:"gte=0,lte=7"`
	RentAmount       *float64 `json:"rent_amount" validate:"omitempty,gte=0"`
	EMIAmount        *float64 `json:"emi_amount" validate:"omitempty,gte=0"`
	SchoolFeesAmount *float64 `json:"school_fees_amount" validate:"omitempty,gte=0"`
}

type ProfileResponse struct {
	Profile models.Profile `json:"profile"`
}

// Upsert создает или обновляет профиль текущего пользователя.
func (h *ProfileHandler) Upsert(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req ProfileRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	profile, err := h.Profiles.Upsert(c.Request().Context(), userID, repository.ProfileInput{
		City:             trimOptional(req.City),
		IncomeMinPerDay:  req.IncomeMinPerDay,
		IncomeMaxPerDay:  req.IncomeMaxPerDay,
		WorkDaysPerWeek:  req.WorkDaysPerWeek,
		RentAmount:       req.RentAmount,
		EMIAmount:        req.EMIAmount,
		SchoolFeesAmount: req.SchoolFeesAmount,
	})
	if err != nil {
		if errors.Is(err, repository.ErrInvalid) {
			return badRequest(c, "invalid profile")
		}
		return serverError(c)
	}

	if h.Dashboard != nil {
		h.Dashboard.Invalidate(userID)
	}

	return c.JSON(http.StatusOK, ProfileResponse{Profile: profile})
}

// Get возвращает профиль текущего пользователя.
func (h *ProfileHandler) Get(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	profile, err := h.Profiles.GetByUserID(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "profile not found")
		}
		return serverError(c)
	}

	return c.JSON(http.StatusOK, ProfileResponse{Profile: profile})
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}

	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
