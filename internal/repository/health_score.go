package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/wealthsutra/backend/internal/models"
)

type HealthScoreRepository struct {
	db *pgxpool.Pool
}

// NewHealthScoreRepository создает репозиторий снимков индекса финансового здоровья.
func NewHealthScoreRepository(db *pgxpool.Pool) *HealthScoreRepository {
	return &HealthScoreRepository{db: db}
}

// Create сохраняет снимок индекса.
func (r *HealthScoreRepository) Create(ctx context.Context, snapshot models.HealthScoreSnapshot) (models.HealthScoreSnapshot, error) {
	var created models.HealthScoreSnapshot

	err := r.db.QueryRow(ctx,
		`INSERT INTO health_score_snapshots (user_id, score, label, context)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, user_id, score, label, context, calculated_at`,
		snapshot.UserID, snapshot.Score, snapshot.Label, snapshot.Context,
	).Scan(&created.ID, &created.UserID, &created.Score, &created.Label, &created.Context, &created.CalculatedAt)
	return created, err
}

// Latest возвращает последний снимок пользователя.
func (r *HealthScoreRepository) Latest(ctx context.Context, userID uuid.UUID) (models.HealthScoreSnapshot, error) {
	var snapshot models.HealthScoreSnapshot

	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, score, label, context, calculated_at
		 FROM health_score_snapshots
		 WHERE user_id = $1
		 ORDER BY calculated_at DESC
		 LIMIT 1`,
		userID,
	).Scan(&snapshot.ID, &snapshot.UserID, &snapshot.Score, &snapshot.Label, &snapshot.Context, &snapshot.CalculatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return snapshot, ErrNotFound
		}
		return snapshot, err
	}

	return snapshot, nil
}
