package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"example.com/wealthsutra/backend/internal/ai"
	"example.com/wealthsutra/backend/internal/models"
)

var ErrInvalidTrigger = errors.New("invalid plan trigger")

// Result - ответ генерации плана.
type Result struct {
	Plan      models.Plan      `json:"plan"`
	Coach     CoachOutput      `json:"coach"`
	Risk      RiskOutput       `json:"risk"`
	Analysis  AnalystOutput    `json:"analysis"`
	RiskEvent models.RiskEvent `json:"-"`
}

type Orchestrator struct {
	store  Store
	coach  *Coach
	rules  Rules
	logger *slog.Logger
	now    func() time.Time
}

// NewOrchestrator создает оркестратор конвейера планирования.
func NewOrchestrator(store Store, coach *Coach, rules Rules, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:  store,
		coach:  coach,
		rules:  rules,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Rules возвращает действующие пороги.
func (o *Orchestrator) Rules() Rules {
	return o.rules
}

// RunPipeline выполняет детерминированные этапы: аналитик, риск, планировщик.
func RunPipeline(c Context, now time.Time, rules Rules) (AnalystOutput, RiskOutput, PlannerOutput) {
	analyst := Analyze(c, rules)
	risk := DetectRisk(c, analyst, rules)
	plan := Plan(c, analyst, risk, now, rules)
	return analyst, risk, plan
}

// GeneratePlan строит контекст, прогоняет конвейер, получает совет коуча и
// атомарно заменяет активный план. trigger сохраняется, но на расчет не влияет.
func (o *Orchestrator) GeneratePlan(ctx context.Context, userID uuid.UUID, trigger models.PlanTrigger) (Result, error) {
	if trigger == "" {
		trigger = models.TriggerInitialPlan
	}
	if !trigger.Valid() {
		return Result{}, ErrInvalidTrigger
	}

	now := o.now()

	planningContext, err := BuildContext(ctx, o.store, userID, now, o.rules)
	if err != nil {
		return Result{}, fmt.Errorf("build planning context: %w", err)
	}

	analyst, risk, plan := RunPipeline(planningContext, now, o.rules)
	o.logger.Debug("pipeline computed",
		slog.String("user_id", userID.String()),
		slog.Float64("savings_rate", analyst.SavingsRate),
		slog.String("risk_level", string(risk.Level)),
		slog.Float64("daily_saving_target", plan.DailySavingTarget),
	)

	coach := o.coach.Advise(ai.WithSubject(ctx, userID), CoachInput{
		Context: planningContext,
		Analyst: analyst,
		Risk:    risk,
		Plan:    plan,
	})

	record := models.Plan{
		UserID:            userID,
		StartDate:         plan.StartDate,
		EndDate:           plan.EndDate,
		DailySavingTarget: plan.DailySavingTarget,
		SpendingCaps:      plan.SpendingCaps,
		Status:            models.PlanStatusActive,
		Trigger:           trigger,
	}
	if len(planningContext.Goals) > 0 {
		goalID := planningContext.Goals[0].ID
		record.GoalID = &goalID
	}

	event := models.RiskEvent{
		UserID:          userID,
		RiskLevel:       risk.Level,
		ShortfallAmount: risk.ShortfallAmount,
		Timeframe:       risk.Timeframe,
		Reasons:         risk.Reasons,
	}

	saved, savedEvent, err := o.store.ReplaceActivePlan(ctx, record, event)
	if err != nil {
		return Result{}, fmt.Errorf("replace active plan: %w", err)
	}

	o.logger.Info("plan generated",
		slog.String("user_id", userID.String()),
		slog.String("plan_id", saved.ID.String()),
		slog.String("risk_level", string(risk.Level)),
		slog.String("coach_source", string(coach.Source)),
		slog.String("trigger", string(trigger)),
	)

	return Result{
		Plan:      saved,
		Coach:     coach,
		Risk:      risk,
		Analysis:  analyst,
		RiskEvent: savedEvent,
	}, nil
}
