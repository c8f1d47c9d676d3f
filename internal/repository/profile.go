package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/wealthsutra/backend/internal/models"
)

type ProfileRepository struct {
	db *pgxpool.Pool
}

// ProfileInput описывает данные профиля; пустые фиксированные расходы считаются нулем.
type ProfileInput struct {
	City             *string
	IncomeMinPerDay  float64
	IncomeMaxPerDay  float64
	WorkDaysPerWeek  int
	RentAmount       *float64
	EMIAmount        *float64
	SchoolFeesAmount *float64
}

const profileColumns = `id, user_id, city, income_min_per_day, income_max_per_day, work_days_per_week,
	rent_amount, emi_amount, school_fees_amount, created_at, updated_at`

// NewProfileRepository создает репозиторий профилей.
func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Upsert создает или обновляет профиль пользователя.
func (r *ProfileRepository) Upsert(ctx context.Context, userID uuid.UUID, input ProfileInput) (models.Profile, error) {
	if input.IncomeMinPerDay < 0 || input.IncomeMaxPerDay < 0 || input.IncomeMaxPerDay < input.IncomeMinPerDay {
		return models.Profile{}, ErrInvalid
	}

	return scanProfile(r.db.QueryRow(ctx,
		`INSERT INTO profiles
		 (user_id, city, income_min_per_day, income_max_per_day, work_days_per_week, rent_amount, emi_amount, school_fees_amount)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (user_id) DO UPDATE
		 SET city = EXCLUDED.city,
		     income_min_per_day = EXCLUDED.income_min_per_day,
		     income_max_per_day = EXCLUDED.income_max_per_day,
		     work_days_per_week = EXCLUDED.work_days_per_week,
		     rent_amount = EXCLUDED.rent_amount,
		     emi_amount = EXCLUDED.emi_amount,
		     school_fees_amount = EXCLUDED.school_fees_amount,
		     updated_at = NOW()
		 RETURNING `+profileColumns,
		userID,
		input.City,
		roundAmount(input.IncomeMinPerDay),
		roundAmount(input.IncomeMaxPerDay),
		input.WorkDaysPerWeek,
		amountOrZero(input.RentAmount),
		amountOrZero(input.EMIAmount),
		amountOrZero(input.SchoolFeesAmount),
	))
}

// GetByUserID возвращает профиль пользователя.
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (models.Profile, error) {
	profile, err := scanProfile(r.db.QueryRow(ctx,
		`SELECT `+profileColumns+`
		 FROM profiles
		 WHERE user_id = $1`,
		userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return profile, ErrNotFound
		}
		return profile, err
	}

	return profile, nil
}

func scanProfile(row pgx.Row) (models.Profile, error) {
	var profile models.Profile
	err := row.Scan(
		&profile.ID,
		&profile.UserID,
		&profile.City,
		&profile.IncomeMinPerDay,
		&profile.IncomeMaxPerDay,
		&profile.WorkDaysPerWeek,
		&profile.RentAmount,
		&profile.EMIAmount,
		&profile.SchoolFeesAmount,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	return profile, err
}

func amountOrZero(value *float64) float64 {
	if value == nil || *value < 0 {
		return 0
	}
	return roundAmount(*value)
}
