package agent

import "sort"

type Volatility string

const (
	VolatilityLow    Volatility = "low"
	VolatilityMedium Volatility = "medium"
	VolatilityHigh   Volatility = "high"
)

const (
	InsightSpendingExceedsIncome = "Spending exceeds income. Immediate action needed."
	InsightLowSavingsRate        = "Low savings rate. Consider reducing discretionary spending."
	InsightGoodSavingsRate       = "Good savings rate. Keep up the discipline!"
	InsightHighVolatility        = "High income volatility detected. Build emergency buffer."
)

type IncomeSummary struct {
	Total      float64    `json:"total"`
	AvgDaily   float64    `json:"avg_daily"`
	Volatility Volatility `json:"volatility"`
}

type SpendingSummary struct {
	Total         float64          `json:"total"`
	AvgDaily      float64          `json:"avg_daily"`
	TopCategories []CategoryAmount `json:"top_categories"`
}

type AnalystOutput struct {
	Income      IncomeSummary   `json:"income_summary"`
	Spending    SpendingSummary `json:"spending_summary"`
	SavingsRate float64         `json:"savings_rate"`
	Insights    []string        `json:"insights"`
}

// Analyze сводит доходы и траты, оценивает волатильность дохода и норму сбережений.
func Analyze(c Context, rules Rules) AnalystOutput {
	volatility := classifyVolatility(c.Profile, rules.Volatility)
	savingsRate := savingsRate(c.Recent)

	return AnalystOutput{
		Income: IncomeSummary{
			Total:      c.Recent.IncomeTotal,
			AvgDaily:   c.Window.AvgDailyIncome,
			Volatility: volatility,
		},
		Spending: SpendingSummary{
			Total:         c.Recent.SpendTotal,
			AvgDaily:      c.Window.AvgDailySpend,
			TopCategories: topCategories(c.Recent.Categories, rules.TopCategories),
		},
		SavingsRate: savingsRate,
		Insights:    insights(savingsRate, volatility, rules.Insights),
	}
}

func classifyVolatility(p Profile, rules VolatilityRules) Volatility {
	spread := p.IncomeMaxPerDay - p.IncomeMinPerDay
	mid := p.IncomeMinPerDay + spread/2
	if mid == 0 {
		return VolatilityLow
	}

	ratio := spread / mid
	switch {
	case ratio > rules.HighRatio:
		return VolatilityHigh
	case ratio > rules.MediumRatio:
		return VolatilityMedium
	default:
		return VolatilityLow
	}
}

func savingsRate(recent TransactionSummary) float64 {
	if recent.IncomeTotal <= 0 {
		return 0
	}
	return (recent.IncomeTotal - recent.SpendTotal) / recent.IncomeTotal
}

// topCategories не меняет входной срез; равные суммы сохраняют исходный порядок.
func topCategories(categories []CategoryAmount, limit int) []CategoryAmount {
	sorted := make([]CategoryAmount, len(categories))
	copy(sorted, categories)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Amount > sorted[j].Amount
	})

	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

func insights(rate float64, volatility Volatility, rules InsightRules) []string {
	out := make([]string, 0, 2)

	switch {
	case rate < 0:
		out = append(out, InsightSpendingExceedsIncome)
	case rate < rules.LowSavingsRate:
		out = append(out, InsightLowSavingsRate)
	case rate > rules.GoodSavingsRate:
		out = append(out, InsightGoodSavingsRate)
	}

	if volatility == VolatilityHigh {
		out = append(out, InsightHighVolatility)
	}

	return out
}
