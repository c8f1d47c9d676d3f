package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"example.com/wealthsutra/backend/internal/dashboard"
	"example.com/wealthsutra/backend/internal/models"
)

type ActivityReader interface {
	ActiveUserIDs(ctx context.Context, since time.Time, after uuid.UUID, limit int) ([]uuid.UUID, error)
}

type SummaryComputer interface {
	Compute(ctx context.Context, userID uuid.UUID) (dashboard.Summary, error)
}

type SnapshotWriter interface {
	Create(ctx context.Context, snapshot models.HealthScoreSnapshot) (models.HealthScoreSnapshot, error)
}

// HealthScoreJob сохраняет снимок индекса здоровья для пользователей,
// у которых были транзакции за окно.
type HealthScoreJob struct {
	Activity  ActivityReader
	Summaries SummaryComputer
	Snapshots SnapshotWriter
	Window    time.Duration
	BatchSize int
	Logger    *slog.Logger

	now func() time.Time
}

// NewHealthScoreJob создает задачу снимков индекса здоровья.
func NewHealthScoreJob(activity ActivityReader, summaries SummaryComputer, snapshots SnapshotWriter, window time.Duration, batchSize int, logger *slog.Logger) *HealthScoreJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthScoreJob{
		Activity:  activity,
		Summaries: summaries,
		Snapshots: snapshots,
		Window:    window,
		BatchSize: max(batchSize, 1),
		Logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run проходит всех активных пользователей страницами. Ошибка по одному
// пользователю не останавливает задачу.
func (j *HealthScoreJob) Run(ctx context.Context) (int, error) {
	since := j.now().Add(-j.Window)
	after := uuid.Nil
	processed := 0
	var failed error

	for {
		userIDs, err := j.Activity.ActiveUserIDs(ctx, since, after, j.BatchSize)
		if err != nil {
			return processed, fmt.Errorf("list active users: %w", err)
		}

		for _, userID := range userIDs {
			if err := ctx.Err(); err != nil {
				return processed, err
			}
			if err := j.snapshot(ctx, userID); err != nil {
				j.Logger.Warn("health score snapshot failed",
					slog.String("user_id", userID.String()),
					slog.String("error", err.Error()),
				)
				failed = errors.Join(failed, err)
				continue
			}
			processed++
		}

		if len(userIDs) < j.BatchSize {
			return processed, failed
		}
		after = userIDs[len(userIDs)-1]
	}
}

func (j *HealthScoreJob) snapshot(ctx context.Context, userID uuid.UUID) error {
	summary, err := j.Summaries.Compute(ctx, userID)
	if err != nil {
		return err
	}

	_, err = j.Snapshots.Create(ctx, models.HealthScoreSnapshot{
		UserID:  userID,
		Score:   summary.HealthScore.Score,
		Label:   summary.HealthScore.Label,
		Context: summary.HealthScore.Context,
	})
	return err
}
