package models

import (
	"time"

	"github.com/google/uuid"
)

type PersonaType string

type Direction string

type GoalType string

type GoalStatus string

type PlanStatus string

type PlanTrigger string

type RiskLevel string

const (
	PersonaGigWorker PersonaType = "gig_worker"
	PersonaDailyWage PersonaType = "daily_wage"

	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"

	GoalTypeEMIPayment      GoalType = "emi_payment"
	GoalTypeRent            GoalType = "rent"
	GoalTypeEmergencyFund   GoalType = "emergency_fund"
	GoalTypeFestivalSavings GoalType = "festival_savings"

	GoalStatusActive    GoalStatus = "active"
	GoalStatusCompleted GoalStatus = "completed"
	GoalStatusCancelled GoalStatus = "cancelled"

	PlanStatusActive   PlanStatus = "active"
	PlanStatusInactive PlanStatus = "inactive"

	TriggerInitialPlan    PlanTrigger = "initial_plan"
	TriggerRiskAdjustment PlanTrigger = "risk_adjustment"

	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

const (
	DefaultCategory = "uncategorized"
	DefaultSource   = "sms"
)

// Rank возвращает порядковый номер уровня риска: low < medium < high.
func (l RiskLevel) Rank() int {
	switch l {
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}

// Valid сообщает, входит ли тип цели в закрытый список.
func (g GoalType) Valid() bool {
	switch g {
	case GoalTypeEMIPayment, GoalTypeRent, GoalTypeEmergencyFund, GoalTypeFestivalSavings:
		return true
	}
	return false
}

// Valid сообщает, допустим ли триггер генерации плана.
func (t PlanTrigger) Valid() bool {
	return t == TriggerInitialPlan || t == TriggerRiskAdjustment
}

type User struct {
	ID           uuid.UUID   `json:"id"`
	PhoneNumber  string      `json:"phone_number"`
	PersonaType  PersonaType `json:"persona_type"`
	PasswordHash string      `json:"-"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type Profile struct {
	ID               uuid.UUID `json:"id"`
	UserID           uuid.UUID `json:"user_id"`
	City             *string   `json:"city,omitempty"`
	IncomeMinPerDay  float64   `json:"income_min_per_day"`
	IncomeMaxPerDay  float64   `json:"income_max_per_day"`
	WorkDaysPerWeek  int       `json:"work_days_per_week"`
	RentAmount       float64   `json:"rent_amount"`
	EMIAmount        float64   `json:"emi_amount"`
	SchoolFeesAmount float64   `json:"school_fees_amount"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type Transaction struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Amount     float64   `json:"amount"`
	Direction  Direction `json:"direction"`
	Channel    string    `json:"channel"`
	Merchant   string    `json:"merchant"`
	Category   string    `json:"category"`
	Source     string    `json:"source"`
	RawText    string    `json:"raw_text"`
	CreatedAt  time.Time `json:"created_at"`
}

type Goal struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	GoalType     GoalType   `json:"goal_type"`
	TargetAmount float64    `json:"target_amount"`
	TargetDate   time.Time  `json:"target_date"`
	Status       GoalStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type Plan struct {
	ID                uuid.UUID          `json:"id"`
	UserID            uuid.UUID          `json:"user_id"`
	GoalID            *uuid.UUID         `json:"goal_id,omitempty"`
	StartDate         time.Time          `json:"start_date"`
	EndDate           time.Time          `json:"end_date"`
	DailySavingTarget float64            `json:"daily_saving_target"`
	SpendingCaps      map[string]float64 `json:"spending_caps"`
	Status            PlanStatus         `json:"status"`
	Trigger           PlanTrigger        `json:"trigger"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

type RiskEvent struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	PlanID          *uuid.UUID `json:"plan_id,omitempty"`
	RiskLevel       RiskLevel  `json:"risk_level"`
	ShortfallAmount float64    `json:"shortfall_amount"`
	Timeframe       string     `json:"timeframe"`
	Reasons         []string   `json:"reasons"`
	CreatedAt       time.Time  `json:"created_at"`
}

type HealthScoreSnapshot struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	Score        int       `json:"score"`
	Label        string    `json:"label"`
	Context      string    `json:"context"`
	CalculatedAt time.Time `json:"calculated_at"`
}

type RefreshToken struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	TokenHash  string     `json:"-"`
	ExpiresAt  time.Time  `json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	ReplacedBy *uuid.UUID `json:"replaced_by,omitempty"`
}
