package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/wealthsutra/backend/internal/models"
)

type RiskEventRepository struct {
	db *pgxpool.Pool
}

const riskEventColumns = `id, user_id, plan_id, risk_level, shortfall_amount, timeframe, reasons, created_at`

// NewRiskEventRepository создает репозиторий журнала рисков.
func NewRiskEventRepository(db *pgxpool.Pool) *RiskEventRepository {
	return &RiskEventRepository{db: db}
}

// ListByUser возвращает события риска пользователя, новые первыми.
func (r *RiskEventRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.RiskEvent, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+riskEventColumns+`
		 FROM risk_events
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]models.RiskEvent, 0)
	for rows.Next() {
		event, err := scanRiskEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

func scanRiskEvent(row pgx.Row) (models.RiskEvent, error) {
	var event models.RiskEvent
	var reasons []byte

	err := row.Scan(
		&event.ID,
		&event.UserID,
		&event.PlanID,
		&event.RiskLevel,
		&event.ShortfallAmount,
		&event.Timeframe,
		&reasons,
		&event.CreatedAt,
	)
	if err != nil {
		return event, err
	}

	event.Reasons = []string{}
	if len(reasons) > 0 {
		if err := json.Unmarshal(reasons, &event.Reasons); err != nil {
			return event, fmt.Errorf("decode risk reasons: %w", err)
		}
	}

	return event, nil
}
