package agent

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"example.com/wealthsutra/backend/internal/models"
)

// memoryStore хранит данные одного теста в памяти и повторяет
// контракт атомарной замены плана.
type memoryStore struct {
	mu           sync.Mutex
	profiles     map[uuid.UUID]models.Profile
	transactions []models.Transaction
	goals        []models.Goal
	plans        []models.Plan
	events       []models.RiskEvent
	replaceErr   error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{profiles: make(map[uuid.UUID]models.Profile)}
}

func (s *memoryStore) Profile(_ context.Context, userID uuid.UUID) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &profile, nil
}

func (s *memoryStore) TransactionsBetween(_ context.Context, userID uuid.UUID, from, to time.Time) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Transaction, 0)
	for _, t := range s.transactions {
		if t.UserID == userID && !t.OccurredAt.Before(from) && t.OccurredAt.Before(to) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memoryStore) UserGoals(_ context.Context, userID uuid.UUID) ([]models.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Goal, 0)
	for i := len(s.goals) - 1; i >= 0; i-- {
		if s.goals[i].UserID == userID {
			out = append(out, s.goals[i])
		}
	}
	return out, nil
}

func (s *memoryStore) ActivePlan(_ context.Context, userID uuid.UUID) (*models.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, plan := range s.plans {
		if plan.UserID == userID && plan.Status == models.PlanStatusActive {
			p := plan
			return &p, nil
		}
	}
	return nil, nil
}

func (s *memoryStore) ReplaceActivePlan(_ context.Context, plan models.Plan, event models.RiskEvent) (models.Plan, models.RiskEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.replaceErr != nil {
		return models.Plan{}, models.RiskEvent{}, s.replaceErr
	}

	for i := range s.plans {
		if s.plans[i].UserID == plan.UserID && s.plans[i].Status == models.PlanStatusActive {
			s.plans[i].Status = models.PlanStatusInactive
		}
	}

	plan.ID = uuid.New()
	plan.Status = models.PlanStatusActive
	s.plans = append(s.plans, plan)

	planID := plan.ID
	event.ID = uuid.New()
	event.PlanID = &planID
	s.events = append(s.events, event)

	return plan, event, nil
}

func (s *memoryStore) activeCount(userID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, plan := range s.plans {
		if plan.UserID == userID && plan.Status == models.PlanStatusActive {
			count++
		}
	}
	return count
}

func (s *memoryStore) addTransaction(userID uuid.UUID, at time.Time, amount float64, direction models.Direction, category string) {
	s.transactions = append(s.transactions, models.Transaction{
		ID:         uuid.New(),
		UserID:     userID,
		OccurredAt: at,
		Amount:     amount,
		Direction:  direction,
		Category:   category,
	})
}

type stubGenerator struct {
	reply     coachReply
	err       error
	text      string
	textErr   error
	textCalls int
	block     bool
}

func (g *stubGenerator) GenerateStructured(ctx context.Context, _, _ string, out any) error {
	if g.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if g.err != nil {
		return g.err
	}
	*(out.(*coachReply)) = g.reply
	return nil
}

func (g *stubGenerator) GenerateText(ctx context.Context, _ string) (string, error) {
	g.textCalls++
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return g.text, g.textErr
}

var errGeneratorDown = errors.New("generator down")

// scenarioA - профиль и недельные транзакции из эталонного сценария.
func scenarioA(store *memoryStore, userID uuid.UUID, now time.Time) {
	store.profiles[userID] = models.Profile{
		UserID:           userID,
		IncomeMinPerDay:  600,
		IncomeMaxPerDay:  1200,
		RentAmount:       10000,
		EMIAmount:        5000,
		SchoolFeesAmount: 3000,
	}

	day := 24 * time.Hour
	store.addTransaction(userID, now.Add(-6*day), 3000, models.DirectionCredit, "salary")
	store.addTransaction(userID, now.Add(-2*day), 3000, models.DirectionCredit, "salary")
	store.addTransaction(userID, now.Add(-5*day), 1000, models.DirectionDebit, "Food")
	store.addTransaction(userID, now.Add(-4*day), 900, models.DirectionDebit, "Transport")
	store.addTransaction(userID, now.Add(-3*day), 600, models.DirectionDebit, "Shopping")
	store.addTransaction(userID, now.Add(-time.Hour), 500, models.DirectionDebit, "Food")
	// вне окна
	store.addTransaction(userID, now.Add(-10*day), 99999, models.DirectionDebit, "Old")
}
