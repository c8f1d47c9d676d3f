package agent

import (
	"reflect"
	"testing"

	"example.com/wealthsutra/backend/internal/models"
)

func riskContext(shortfall, avgIncome, rent, emi float64) Context {
	return Context{
		Profile: Profile{Fixed: FixedExpenses{Rent: rent, EMI: emi}},
		Window: WindowSummary{
			AvgDailyIncome:     avgIncome,
			ProjectedShortfall: shortfall,
		},
	}
}

// TestDetectRiskScenarioA проверяет средний риск и причины эталонного сценария.
func TestDetectRiskScenarioA(t *testing.T) {
	c := riskContext(2142.857, 857.142857, 10000, 5000)
	analyst := AnalystOutput{SavingsRate: 0.5, Income: IncomeSummary{Volatility: VolatilityHigh}}

	out := DetectRisk(c, analyst, DefaultRules())
	if out.Level != models.RiskMedium {
		t.Fatalf("expected medium risk, got %s", out.Level)
	}

	want := []string{
		"Projected monthly shortfall of ₹2143",
		"Fixed expenses exceed 50% of projected income",
		"High income volatility",
	}
	if !reflect.DeepEqual(out.Reasons, want) {
		t.Fatalf("expected %v, got %v", want, out.Reasons)
	}
	if out.Timeframe != "30 days" {
		t.Fatalf("unexpected timeframe: %s", out.Timeframe)
	}
}

// TestDetectRiskNoIncome проверяет высокий риск при отсутствии дохода.
func TestDetectRiskNoIncome(t *testing.T) {
	out := DetectRisk(riskContext(15000, 0, 10000, 5000), AnalystOutput{}, DefaultRules())
	if out.Level != models.RiskHigh {
		t.Fatalf("expected high risk, got %s", out.Level)
	}

	want := []string{
		"Projected monthly shortfall of ₹15000",
		"Very low savings rate",
		"Fixed expenses exceed 50% of projected income",
	}
	if !reflect.DeepEqual(out.Reasons, want) {
		t.Fatalf("expected %v, got %v", want, out.Reasons)
	}
	if out.ShortfallAmount != 15000 {
		t.Fatalf("unexpected shortfall: %v", out.ShortfallAmount)
	}
}

// TestDetectRiskLow проверяет отсутствие причин у благополучного пользователя.
func TestDetectRiskLow(t *testing.T) {
	out := DetectRisk(riskContext(0, 1000, 2000, 0), AnalystOutput{SavingsRate: 0.3}, DefaultRules())
	if out.Level != models.RiskLow || len(out.Reasons) != 0 {
		t.Fatalf("expected low risk without reasons, got %+v", out)
	}
}

// TestDetectRiskMonotonic проверяет, что больший дефицит не снижает уровень риска.
func TestDetectRiskMonotonic(t *testing.T) {
	rules := DefaultRules()
	rates := []float64{-0.5, 0, 0.03, 0.2}

	for _, rate := range rates {
		previous := -1
		for shortfall := 0.0; shortfall <= 10000; shortfall += 500 {
			out := DetectRisk(riskContext(shortfall, 500, 1000, 0), AnalystOutput{SavingsRate: rate}, rules)
			if out.Level.Rank() < previous {
				t.Fatalf("risk decreased at shortfall %v rate %v", shortfall, rate)
			}
			previous = out.Level.Rank()
		}
	}
}

// TestDetectRiskNegativeSavings проверяет, что отрицательная норма дает высокий риск.
func TestDetectRiskNegativeSavings(t *testing.T) {
	out := DetectRisk(riskContext(0, 1000, 0, 0), AnalystOutput{SavingsRate: -0.2}, DefaultRules())
	if out.Level != models.RiskHigh {
		t.Fatalf("expected high risk, got %s", out.Level)
	}
	if len(out.Reasons) != 1 || out.Reasons[0] != "Negative savings rate" {
		t.Fatalf("unexpected reasons: %v", out.Reasons)
	}
}
