package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"example.com/wealthsutra/backend/internal/agent"
	"example.com/wealthsutra/backend/internal/models"
	"example.com/wealthsutra/backend/internal/notifications"
)

type ExpiredPlanLister interface {
	ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]models.Plan, error)
}

type PlanGenerator interface {
	GeneratePlan(ctx context.Context, userID uuid.UUID, trigger models.PlanTrigger) (agent.Result, error)
}

type Publisher interface {
	Publish(userID uuid.UUID, event notifications.Event) int
}

// PlanRefreshJob перестраивает планы, срок которых истек.
type PlanRefreshJob struct {
	Plans     ExpiredPlanLister
	Generator PlanGenerator
	Publisher Publisher
	BatchSize int
	Logger    *slog.Logger

	now func() time.Time
}

// NewPlanRefreshJob создает задачу обновления истекших планов.
func NewPlanRefreshJob(plans ExpiredPlanLister, generator PlanGenerator, publisher Publisher, batchSize int, logger *slog.Logger) *PlanRefreshJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlanRefreshJob{
		Plans:     plans,
		Generator: generator,
		Publisher: publisher,
		BatchSize: max(batchSize, 1),
		Logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run берет истекшие планы пачками, пока они не закончатся. Пачка без
// единого успешного обновления завершает проход, иначе задача зациклится
// на тех же планах.
func (j *PlanRefreshJob) Run(ctx context.Context) (int, error) {
	refreshed := 0
	var failed error

	for {
		plans, err := j.Plans.ListExpiredActive(ctx, j.now(), j.BatchSize)
		if err != nil {
			return refreshed, fmt.Errorf("list expired plans: %w", err)
		}

		batch := 0
		for _, plan := range plans {
			if err := ctx.Err(); err != nil {
				return refreshed, err
			}

			result, err := j.Generator.GeneratePlan(ctx, plan.UserID, models.TriggerRiskAdjustment)
			if err != nil {
				j.Logger.Warn("plan refresh failed",
					slog.String("user_id", plan.UserID.String()),
					slog.String("plan_id", plan.ID.String()),
					slog.String("error", err.Error()),
				)
				failed = errors.Join(failed, err)
				continue
			}

			if j.Publisher != nil {
				j.Publisher.Publish(plan.UserID, notifications.PlanGenerated(result.Plan, result.Risk.Level))
			}
			batch++
		}

		refreshed += batch
		if len(plans) < j.BatchSize || batch == 0 {
			return refreshed, failed
		}
	}
}
