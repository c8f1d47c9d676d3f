package agent

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rules содержит пороги конвейера планирования. Суммы в рупиях.
type Rules struct {
	WindowDays     int    `yaml:"window_days"`
	ProjectionDays int    `yaml:"projection_days"`
	PlanDays       int    `yaml:"plan_days"`
	Timeframe      string `yaml:"timeframe"`
	TopCategories  int    `yaml:"top_categories"`

	Volatility VolatilityRules `yaml:"volatility"`
	Insights   InsightRules    `yaml:"insights"`
	Risk       RiskRules       `yaml:"risk"`
	Planner    PlannerRules    `yaml:"planner"`
	Coach      CoachRules      `yaml:"coach"`
}

type VolatilityRules struct {
	HighRatio   float64 `yaml:"high_ratio"`
	MediumRatio float64 `yaml:"medium_ratio"`
}

type InsightRules struct {
	LowSavingsRate  float64 `yaml:"low_savings_rate"`
	GoodSavingsRate float64 `yaml:"good_savings_rate"`
}

type RiskRules struct {
	ShortfallHigh     float64 `yaml:"shortfall_high"`
	ShortfallMedium   float64 `yaml:"shortfall_medium"`
	SavingsRateFloor  float64 `yaml:"savings_rate_floor"`
	FixedExpenseRatio float64 `yaml:"fixed_expense_ratio"`
}

type PlannerRules struct {
	MonthlyBuffer float64          `yaml:"monthly_buffer"`
	Reduction     ReductionFactors `yaml:"reduction"`
}

type ReductionFactors struct {
	High   float64 `yaml:"high"`
	Medium float64 `yaml:"medium"`
	Low    float64 `yaml:"low"`
}

type CoachRules struct {
	InvestmentShare    float64 `yaml:"investment_share"`
	InvestmentShareMin float64 `yaml:"investment_share_min"`
	InvestmentShareMax float64 `yaml:"investment_share_max"`
}

// DefaultRules возвращает базовые пороги.
func DefaultRules() Rules {
	return Rules{
		WindowDays:     7,
		ProjectionDays: 30,
		PlanDays:       30,
		Timeframe:      "30 days",
		TopCategories:  3,
		Volatility: VolatilityRules{
			HighRatio:   0.5,
			MediumRatio: 0.2,
		},
		Insights: InsightRules{
			LowSavingsRate:  0.1,
			GoodSavingsRate: 0.2,
		},
		Risk: RiskRules{
			ShortfallHigh:     5000,
			ShortfallMedium:   2000,
			SavingsRateFloor:  0.05,
			FixedExpenseRatio: 0.5,
		},
		Planner: PlannerRules{
			MonthlyBuffer: 1000,
			Reduction: ReductionFactors{
				High:   0.8,
				Medium: 0.9,
				Low:    1.0,
			},
		},
		Coach: CoachRules{
			InvestmentShare:    0.4,
			InvestmentShareMin: 0.3,
			InvestmentShareMax: 0.5,
		},
	}
}

// LoadRules читает YAML-файл порогов поверх DefaultRules.
// Пустой путь возвращает значения по умолчанию.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if strings.TrimSpace(path) == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("read planning rules %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &rules); err != nil {
		return rules, fmt.Errorf("parse planning rules %s: %w", path, err)
	}

	if err := rules.Validate(); err != nil {
		return rules, fmt.Errorf("planning rules %s: %w", path, err)
	}

	return rules, nil
}

// Validate отклоняет отрицательные и перевернутые пороги.
func (r Rules) Validate() error {
	var errs []error

	if r.WindowDays <= 0 || r.ProjectionDays <= 0 || r.PlanDays <= 0 {
		errs = append(errs, errors.New("window_days, projection_days and plan_days must be positive"))
	}
	if r.TopCategories <= 0 {
		errs = append(errs, errors.New("top_categories must be positive"))
	}
	if strings.TrimSpace(r.Timeframe) == "" {
		errs = append(errs, errors.New("timeframe is required"))
	}
	if r.Volatility.MediumRatio < 0 || r.Volatility.HighRatio < r.Volatility.MediumRatio {
		errs = append(errs, errors.New("volatility ratios must satisfy 0 <= medium_ratio <= high_ratio"))
	}
	if r.Insights.LowSavingsRate < 0 || r.Insights.GoodSavingsRate < r.Insights.LowSavingsRate {
		errs = append(errs, errors.New("insight savings rates must satisfy 0 <= low <= good"))
	}
	if r.Risk.ShortfallMedium < 0 || r.Risk.ShortfallHigh < r.Risk.ShortfallMedium {
		errs = append(errs, errors.New("shortfall thresholds must satisfy 0 <= medium <= high"))
	}
	if r.Risk.SavingsRateFloor < 0 || r.Risk.FixedExpenseRatio < 0 {
		errs = append(errs, errors.New("savings_rate_floor and fixed_expense_ratio must not be negative"))
	}
	if r.Planner.MonthlyBuffer < 0 {
		errs = append(errs, errors.New("monthly_buffer must not be negative"))
	}

	reduction := r.Planner.Reduction
	if !inUnit(reduction.High) || !inUnit(reduction.Medium) || !inUnit(reduction.Low) ||
		reduction.High > reduction.Medium || reduction.Medium > reduction.Low {
		errs = append(errs, errors.New("reduction factors must satisfy 0 < high <= medium <= low <= 1"))
	}

	coach := r.Coach
	if !inUnit(coach.InvestmentShare) || coach.InvestmentShareMin < 0 || coach.InvestmentShareMax < coach.InvestmentShareMin || coach.InvestmentShareMax > 1 {
		errs = append(errs, errors.New("investment shares must lie in (0, 1] with min <= max"))
	}

	return errors.Join(errs...)
}

func inUnit(v float64) bool {
	return v > 0 && v <= 1
}
