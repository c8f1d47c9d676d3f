package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"example.com/wealthsutra/backend/internal/models"
)

// Reader отдает данные пользователя, из которых собирается контекст планирования.
// Profile и ActivePlan возвращают nil без ошибки, если записи нет.
type Reader interface {
	Profile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	TransactionsBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.Transaction, error)
	UserGoals(ctx context.Context, userID uuid.UUID) ([]models.Goal, error)
	ActivePlan(ctx context.Context, userID uuid.UUID) (*models.Plan, error)
}

// Store дополняет Reader атомарной заменой активного плана.
type Store interface {
	Reader
	ReplaceActivePlan(ctx context.Context, plan models.Plan, event models.RiskEvent) (models.Plan, models.RiskEvent, error)
}

type FixedExpenses struct {
	Rent       float64 `json:"rent_amount"`
	EMI        float64 `json:"emi_amount"`
	SchoolFees float64 `json:"school_fees_amount"`
}

// RentAndEMI возвращает фиксированные расходы, которые учитываются в дефиците.
func (f FixedExpenses) RentAndEMI() float64 {
	return f.Rent + f.EMI
}

// Total возвращает все фиксированные ежемесячные расходы.
func (f FixedExpenses) Total() float64 {
	return f.Rent + f.EMI + f.SchoolFees
}

type Profile struct {
	IncomeMinPerDay float64       `json:"income_min_per_day"`
	IncomeMaxPerDay float64       `json:"income_max_per_day"`
	WorkDaysPerWeek int           `json:"work_days_per_week"`
	Fixed           FixedExpenses `json:"fixed_expenses"`
}

// NewProfile переводит сохраненный профиль в профиль планирования.
// Отсутствующий профиль и отрицательные значения дают нули.
func NewProfile(p *models.Profile) Profile {
	if p == nil {
		return Profile{}
	}

	return Profile{
		IncomeMinPerDay: nonNegative(p.IncomeMinPerDay),
		IncomeMaxPerDay: nonNegative(p.IncomeMaxPerDay),
		WorkDaysPerWeek: max(p.WorkDaysPerWeek, 0),
		Fixed: FixedExpenses{
			Rent:       nonNegative(p.RentAmount),
			EMI:        nonNegative(p.EMIAmount),
			SchoolFees: nonNegative(p.SchoolFeesAmount),
		},
	}
}

type CategoryAmount struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

type TransactionSummary struct {
	IncomeTotal float64          `json:"income_total"`
	SpendTotal  float64          `json:"spend_total"`
	Categories  []CategoryAmount `json:"categories"`
}

type Goal struct {
	ID           uuid.UUID       `json:"id"`
	Type         models.GoalType `json:"type"`
	TargetAmount float64         `json:"target_amount"`
	TargetDate   time.Time       `json:"target_date"`
}

type PlanSnapshot struct {
	DailySavingTarget float64            `json:"daily_saving_target"`
	SpendingCaps      map[string]float64 `json:"spending_caps"`
}

type WindowSummary struct {
	AvgDailyIncome     float64 `json:"avg_daily_income"`
	AvgDailySpend      float64 `json:"avg_daily_spend"`
	ProjectedShortfall float64 `json:"projected_shortfall"`
}

// Context - снимок финансового состояния пользователя на момент планирования.
type Context struct {
	UserID       uuid.UUID          `json:"user_id"`
	Profile      Profile            `json:"profile"`
	Recent       TransactionSummary `json:"recent_transactions"`
	Goals        []Goal             `json:"goals"`
	ExistingPlan *PlanSnapshot      `json:"existing_plan"`
	Window       WindowSummary      `json:"last_7_days_summary"`
}

// BuildContext собирает контекст из профиля, транзакций за окно, целей и активного плана.
func BuildContext(ctx context.Context, store Reader, userID uuid.UUID, now time.Time, rules Rules) (Context, error) {
	stored, err := store.Profile(ctx, userID)
	if err != nil {
		return Context{}, fmt.Errorf("load profile: %w", err)
	}
	profile := NewProfile(stored)

	from := now.AddDate(0, 0, -rules.WindowDays)
	transactions, err := store.TransactionsBetween(ctx, userID, from, now)
	if err != nil {
		return Context{}, fmt.Errorf("load transactions: %w", err)
	}

	goals, err := store.UserGoals(ctx, userID)
	if err != nil {
		return Context{}, fmt.Errorf("load goals: %w", err)
	}

	active, err := store.ActivePlan(ctx, userID)
	if err != nil {
		return Context{}, fmt.Errorf("load active plan: %w", err)
	}

	recent := SummarizeTransactions(transactions)

	return Context{
		UserID:       userID,
		Profile:      profile,
		Recent:       recent,
		Goals:        activeGoals(goals),
		ExistingPlan: snapshotPlan(active),
		Window:       Summarize(recent, profile.Fixed, rules),
	}, nil
}

// SummarizeTransactions складывает поступления и траты; категории трат идут
// в порядке первого появления.
func SummarizeTransactions(transactions []models.Transaction) TransactionSummary {
	income := decimal.Zero
	spend := decimal.Zero
	order := make([]string, 0)
	byCategory := make(map[string]decimal.Decimal)

	for _, t := range transactions {
		amount := decimal.NewFromFloat(t.Amount)
		if t.Direction == models.DirectionCredit {
			income = income.Add(amount)
			continue
		}

		spend = spend.Add(amount)
		category := t.Category
		if category == "" {
			category = models.DefaultCategory
		}
		if _, ok := byCategory[category]; !ok {
			order = append(order, category)
		}
		byCategory[category] = byCategory[category].Add(amount)
	}

	categories := make([]CategoryAmount, 0, len(order))
	for _, category := range order {
		categories = append(categories, CategoryAmount{
			Category: category,
			Amount:   byCategory[category].InexactFloat64(),
		})
	}

	return TransactionSummary{
		IncomeTotal: income.InexactFloat64(),
		SpendTotal:  spend.InexactFloat64(),
		Categories:  categories,
	}
}

// Summarize считает средние за окно и прогнозируемый месячный дефицит.
// Плата за школу в дефицит не входит.
func Summarize(recent TransactionSummary, fixed FixedExpenses, rules Rules) WindowSummary {
	days := float64(rules.WindowDays)
	projection := float64(rules.ProjectionDays)

	avgIncome := recent.IncomeTotal / days
	avgSpend := recent.SpendTotal / days
	shortfall := avgSpend*projection + fixed.RentAndEMI() - avgIncome*projection

	return WindowSummary{
		AvgDailyIncome:     avgIncome,
		AvgDailySpend:      avgSpend,
		ProjectedShortfall: max(0, shortfall),
	}
}

func activeGoals(goals []models.Goal) []Goal {
	out := make([]Goal, 0, len(goals))
	for _, g := range goals {
		if g.Status != "" && g.Status != models.GoalStatusActive {
			continue
		}
		out = append(out, Goal{
			ID:           g.ID,
			Type:         g.GoalType,
			TargetAmount: g.TargetAmount,
			TargetDate:   g.TargetDate,
		})
	}
	return out
}

func snapshotPlan(plan *models.Plan) *PlanSnapshot {
	if plan == nil {
		return nil
	}

	caps := make(map[string]float64, len(plan.SpendingCaps))
	for category, limit := range plan.SpendingCaps {
		caps[category] = limit
	}

	return &PlanSnapshot{
		DailySavingTarget: plan.DailySavingTarget,
		SpendingCaps:      caps,
	}
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
