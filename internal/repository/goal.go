package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/wealthsutra/backend/internal/models"
)

type GoalRepository struct {
	db *pgxpool.Pool
}

const goalColumns = `id, user_id, goal_type, target_amount, target_date, status, created_at, updated_at`

// NewGoalRepository создает репозиторий финансовых целей.
func NewGoalRepository(db *pgxpool.Pool) *GoalRepository {
	return &GoalRepository{db: db}
}

// Create создает цель пользователя со статусом active.
func (r *GoalRepository) Create(ctx context.Context, userID uuid.UUID, goalType models.GoalType, targetAmount float64, targetDate time.Time) (models.Goal, error) {
	if !goalType.Valid() || targetAmount <= 0 || targetDate.IsZero() {
		return models.Goal{}, ErrInvalid
	}

	return scanGoal(r.db.QueryRow(ctx,
		`INSERT INTO goals (user_id, goal_type, target_amount, target_date, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+goalColumns,
		userID, goalType, roundAmount(targetAmount), targetDate.UTC(), models.GoalStatusActive,
	))
}

// ListByUser возвращает цели пользователя, новые первыми.
func (r *GoalRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Goal, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+goalColumns+`
		 FROM goals
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	goals := make([]models.Goal, 0)
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, goal)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return goals, nil
}

func scanGoal(row pgx.Row) (models.Goal, error) {
	var goal models.Goal
	err := row.Scan(&goal.ID, &goal.UserID, &goal.GoalType, &goal.TargetAmount, &goal.TargetDate, &goal.Status, &goal.CreatedAt, &goal.UpdatedAt)
	return goal, err
}
