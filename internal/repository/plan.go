package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/wealthsutra/backend/internal/models"
)

type PlanRepository struct {
	db *pgxpool.Pool
}

const planColumns = `id, user_id, goal_id, start_date, end_date, daily_saving_target, spending_caps, status, trigger, created_at, updated_at`

// NewPlanRepository создает репозиторий планов накоплений.
func NewPlanRepository(db *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{db: db}
}

// ReplaceActivePlan атомарно деактивирует действующий план пользователя,
// создает новый активный план и записывает событие риска.
// При любой ошибке прежний активный план остается в силе.
func (r *PlanRepository) ReplaceActivePlan(ctx context.Context, plan models.Plan, event models.RiskEvent) (models.Plan, models.RiskEvent, error) {
	if plan.UserID == uuid.Nil || plan.DailySavingTarget < 0 || !plan.EndDate.After(plan.StartDate) {
		return models.Plan{}, models.RiskEvent{}, ErrInvalid
	}

	caps, err := json.Marshal(nonNilCaps(plan.SpendingCaps))
	if err != nil {
		return models.Plan{}, models.RiskEvent{}, fmt.Errorf("encode spending caps: %w", err)
	}

	reasons, err := json.Marshal(nonNilReasons(event.Reasons))
	if err != nil {
		return models.Plan{}, models.RiskEvent{}, fmt.Errorf("encode risk reasons: %w", err)
	}

	trigger := plan.Trigger
	if !trigger.Valid() {
		trigger = models.TriggerInitialPlan
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return models.Plan{}, models.RiskEvent{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// сериализуем генерацию планов одного пользователя
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1::text))`, plan.UserID.String()); err != nil {
		return models.Plan{}, models.RiskEvent{}, fmt.Errorf("lock user plans: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE plans
		 SET status = $2, updated_at = NOW()
		 WHERE user_id = $1 AND status = $3`,
		plan.UserID, models.PlanStatusInactive, models.PlanStatusActive,
	); err != nil {
		return models.Plan{}, models.RiskEvent{}, fmt.Errorf("deactivate plans: %w", err)
	}

	created, err := scanPlan(tx.QueryRow(ctx,
		`INSERT INTO plans (user_id, goal_id, start_date, end_date, daily_saving_target, spending_caps, status, trigger)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+planColumns,
		plan.UserID, plan.GoalID, plan.StartDate, plan.EndDate, plan.DailySavingTarget, caps, models.PlanStatusActive, trigger,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return models.Plan{}, models.RiskEvent{}, ErrConflict
		}
		return models.Plan{}, models.RiskEvent{}, fmt.Errorf("insert plan: %w", err)
	}

	recorded, err := scanRiskEvent(tx.QueryRow(ctx,
		`INSERT INTO risk_events (user_id, plan_id, risk_level, shortfall_amount, timeframe, reasons)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+riskEventColumns,
		plan.UserID, created.ID, event.RiskLevel, roundAmount(event.ShortfallAmount), event.Timeframe, reasons,
	))
	if err != nil {
		return models.Plan{}, models.RiskEvent{}, fmt.Errorf("insert risk event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Plan{}, models.RiskEvent{}, err
	}

	return created, recorded, nil
}

// GetActive возвращает действующий план пользователя.
func (r *PlanRepository) GetActive(ctx context.Context, userID uuid.UUID) (models.Plan, error) {
	plan, err := scanPlan(r.db.QueryRow(ctx,
		`SELECT `+planColumns+`
		 FROM plans
		 WHERE user_id = $1 AND status = $2`,
		userID, models.PlanStatusActive,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return plan, ErrNotFound
		}
		return plan, err
	}

	return plan, nil
}

// ListHistory возвращает историю планов пользователя, новые первыми.
func (r *PlanRepository) ListHistory(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Plan, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+planColumns+`
		 FROM plans
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, err
	}

	return collectPlans(rows)
}

// ListExpiredActive возвращает активные планы, окно которых закончилось до now.
func (r *PlanRepository) ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]models.Plan, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+planColumns+`
		 FROM plans
		 WHERE status = $1 AND end_date <= $2
		 ORDER BY end_date ASC
		 LIMIT $3`,
		models.PlanStatusActive, now, limit,
	)
	if err != nil {
		return nil, err
	}

	return collectPlans(rows)
}

func collectPlans(rows pgx.Rows) ([]models.Plan, error) {
	defer rows.Close()

	plans := make([]models.Plan, 0)
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return plans, nil
}

func scanPlan(row pgx.Row) (models.Plan, error) {
	var plan models.Plan
	var caps []byte

	err := row.Scan(
		&plan.ID,
		&plan.UserID,
		&plan.GoalID,
		&plan.StartDate,
		&plan.EndDate,
		&plan.DailySavingTarget,
		&caps,
		&plan.Status,
		&plan.Trigger,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	if err != nil {
		return plan, err
	}

	plan.SpendingCaps = map[string]float64{}
	if len(caps) > 0 {
		if err := json.Unmarshal(caps, &plan.SpendingCaps); err != nil {
			return plan, fmt.Errorf("decode spending caps: %w", err)
		}
	}

	return plan, nil
}

func nonNilCaps(caps map[string]float64) map[string]float64 {
	if caps == nil {
		return map[string]float64{}
	}
	return caps
}

func nonNilReasons(reasons []string) []string {
	if reasons == nil {
		return []string{}
	}
	return reasons
}
