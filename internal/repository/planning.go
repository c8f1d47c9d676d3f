package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/wealthsutra/backend/internal/models"
)

// PlanningStore собирает репозитории, которые читает и пишет конвейер планирования.
type PlanningStore struct {
	Profiles     *ProfileRepository
	Transactions *TransactionRepository
	Goals        *GoalRepository
	Plans        *PlanRepository
}

// NewPlanningStore создает хранилище для конвейера планирования.
func NewPlanningStore(db *pgxpool.Pool) *PlanningStore {
	return &PlanningStore{
		Profiles:     NewProfileRepository(db),
		Transactions: NewTransactionRepository(db),
		Goals:        NewGoalRepository(db),
		Plans:        NewPlanRepository(db),
	}
}

// Profile возвращает профиль пользователя или nil, если профиль не заполнен.
func (s *PlanningStore) Profile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	profile, err := s.Profiles.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// TransactionsBetween возвращает транзакции пользователя в окне [from, to).
func (s *PlanningStore) TransactionsBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.Transaction, error) {
	return s.Transactions.ListBetween(ctx, userID, from, to)
}

// UserGoals возвращает цели пользователя, новые первыми.
func (s *PlanningStore) UserGoals(ctx context.Context, userID uuid.UUID) ([]models.Goal, error) {
	return s.Goals.ListByUser(ctx, userID)
}

// ActivePlan возвращает действующий план или nil.
func (s *PlanningStore) ActivePlan(ctx context.Context, userID uuid.UUID) (*models.Plan, error) {
	plan, err := s.Plans.GetActive(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

// ReplaceActivePlan делегирует атомарную замену плана репозиторию планов.
func (s *PlanningStore) ReplaceActivePlan(ctx context.Context, plan models.Plan, event models.RiskEvent) (models.Plan, models.RiskEvent, error) {
	return s.Plans.ReplaceActivePlan(ctx, plan, event)
}
