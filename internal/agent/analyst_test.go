package agent

import "testing"

// TestAnalyzeZeroIncome проверяет нулевую норму сбережений без дохода.
func TestAnalyzeZeroIncome(t *testing.T) {
	out := Analyze(Context{Recent: TransactionSummary{SpendTotal: 700}}, DefaultRules())
	if out.SavingsRate != 0 {
		t.Fatalf("expected zero savings rate, got %v", out.SavingsRate)
	}
	if out.Income.Volatility != VolatilityLow {
		t.Fatalf("expected low volatility for zero mid, got %s", out.Income.Volatility)
	}
}

// TestClassifyVolatility проверяет границы волатильности.
func TestClassifyVolatility(t *testing.T) {
	rules := DefaultRules().Volatility
	cases := []struct {
		min, max float64
		want     Volatility
	}{
		{0, 0, VolatilityLow},
		{800, 800, VolatilityLow},
		{900, 1000, VolatilityLow},
		{800, 1000, VolatilityMedium},
		{600, 1200, VolatilityHigh},
	}

	for _, tc := range cases {
		got := classifyVolatility(Profile{IncomeMinPerDay: tc.min, IncomeMaxPerDay: tc.max}, rules)
		if got != tc.want {
			t.Fatalf("min=%v max=%v: expected %s, got %s", tc.min, tc.max, tc.want, got)
		}
	}
}

// TestTopCategoriesStable проверяет стабильную сортировку и ограничение тремя категориями.
func TestTopCategoriesStable(t *testing.T) {
	input := []CategoryAmount{
		{Category: "A", Amount: 100},
		{Category: "B", Amount: 300},
		{Category: "C", Amount: 100},
		{Category: "D", Amount: 300},
		{Category: "E", Amount: 50},
	}

	top := topCategories(input, 3)
	if len(top) != 3 {
		t.Fatalf("expected 3 categories, got %d", len(top))
	}
	if top[0].Category != "B" || top[1].Category != "D" || top[2].Category != "A" {
		t.Fatalf("unexpected order: %+v", top)
	}
	if input[0].Category != "A" {
		t.Fatal("input slice must not be reordered")
	}
}

// TestInsights проверяет правила подсказок аналитика.
func TestInsights(t *testing.T) {
	rules := DefaultRules().Insights

	got := insights(-0.1, VolatilityHigh, rules)
	if len(got) != 2 || got[0] != InsightSpendingExceedsIncome || got[1] != InsightHighVolatility {
		t.Fatalf("unexpected insights: %v", got)
	}

	if got := insights(0.05, VolatilityLow, rules); len(got) != 1 || got[0] != InsightLowSavingsRate {
		t.Fatalf("unexpected insights: %v", got)
	}

	if got := insights(0.15, VolatilityMedium, rules); len(got) != 0 {
		t.Fatalf("expected no insights, got %v", got)
	}

	if got := insights(0.5, VolatilityLow, rules); len(got) != 1 || got[0] != InsightGoodSavingsRate {
		t.Fatalf("unexpected insights: %v", got)
	}
}
