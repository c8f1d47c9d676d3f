package agent

import (
	"fmt"

	"example.com/wealthsutra/backend/internal/models"
)

type RiskOutput struct {
	Level           models.RiskLevel `json:"risk_level"`
	ShortfallAmount float64          `json:"shortfall_amount"`
	Timeframe       string           `json:"timeframe"`
	Reasons         []string         `json:"reasons"`
}

type riskInput struct {
	context        Context
	analyst        AnalystOutput
	rules          RiskRules
	projectionDays float64
}

// riskRule предлагает уровень риска с причиной, если срабатывает.
type riskRule func(in riskInput) (models.RiskLevel, string, bool)

var riskRules = []riskRule{
	shortfallRule,
	savingsRateRule,
	fixedExpenseRule,
	volatilityRule,
}

// DetectRisk сворачивает правила по порядку, сохраняя максимальный уровень.
// Уровень никогда не понижается.
func DetectRisk(c Context, analyst AnalystOutput, rules Rules) RiskOutput {
	in := riskInput{context: c, analyst: analyst, rules: rules.Risk, projectionDays: float64(rules.ProjectionDays)}

	level := models.RiskLow
	reasons := make([]string, 0, len(riskRules))
	for _, rule := range riskRules {
		proposed, reason, ok := rule(in)
		if !ok {
			continue
		}
		level = maxRisk(level, proposed)
		reasons = append(reasons, reason)
	}

	return RiskOutput{
		Level:           level,
		ShortfallAmount: c.Window.ProjectedShortfall,
		Timeframe:       rules.Timeframe,
		Reasons:         reasons,
	}
}

func shortfallRule(in riskInput) (models.RiskLevel, string, bool) {
	shortfall := in.context.Window.ProjectedShortfall
	reason := fmt.Sprintf("Projected monthly shortfall of ₹%.0f", shortfall)

	switch {
	case shortfall > in.rules.ShortfallHigh:
		return models.RiskHigh, reason, true
	case shortfall > in.rules.ShortfallMedium:
		return models.RiskMedium, reason, true
	default:
		return models.RiskLow, "", false
	}
}

func savingsRateRule(in riskInput) (models.RiskLevel, string, bool) {
	rate := in.analyst.SavingsRate

	switch {
	case rate < 0:
		return models.RiskHigh, "Negative savings rate", true
	case rate < in.rules.SavingsRateFloor:
		return models.RiskMedium, "Very low savings rate", true
	default:
		return models.RiskLow, "", false
	}
}

func fixedExpenseRule(in riskInput) (models.RiskLevel, string, bool) {
	monthlyIncome := in.context.Window.AvgDailyIncome * in.projectionDays
	if in.context.Profile.Fixed.RentAndEMI() <= monthlyIncome*in.rules.FixedExpenseRatio {
		return models.RiskLow, "", false
	}

	return models.RiskMedium, fmt.Sprintf("Fixed expenses exceed %.0f%% of projected income", in.rules.FixedExpenseRatio*100), true
}

func volatilityRule(in riskInput) (models.RiskLevel, string, bool) {
	if in.analyst.Income.Volatility != VolatilityHigh {
		return models.RiskLow, "", false
	}
	return models.RiskMedium, "High income volatility", true
}

func maxRisk(a, b models.RiskLevel) models.RiskLevel {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}
