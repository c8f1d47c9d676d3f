package agent

import (
	"time"

	"example.com/wealthsutra/backend/internal/models"
)

type PlannerOutput struct {
	DailySavingTarget float64            `json:"daily_saving_target"`
	SpendingCaps      map[string]float64 `json:"spending_caps"`
	StartDate         time.Time          `json:"start_date"`
	EndDate           time.Time          `json:"end_date"`
}

// Plan рассчитывает дневную цель накоплений и месячные лимиты по топ-категориям.
func Plan(c Context, analyst AnalystOutput, risk RiskOutput, now time.Time, rules Rules) PlannerOutput {
	projection := float64(rules.ProjectionDays)
	window := float64(rules.WindowDays)

	target := max(0, (risk.ShortfallAmount+rules.Planner.MonthlyBuffer)/projection)

	factor := reductionFactor(risk.Level, rules.Planner.Reduction)
	caps := make(map[string]float64, len(analyst.Spending.TopCategories))
	for _, category := range analyst.Spending.TopCategories {
		caps[category.Category] = category.Amount / window * projection * factor
	}

	return PlannerOutput{
		DailySavingTarget: roundWhole(target),
		SpendingCaps:      caps,
		StartDate:         now,
		EndDate:           now.AddDate(0, 0, rules.PlanDays),
	}
}

func reductionFactor(level models.RiskLevel, factors ReductionFactors) float64 {
	switch level {
	case models.RiskHigh:
		return factors.High
	case models.RiskMedium:
		return factors.Medium
	default:
		return factors.Low
	}
}
