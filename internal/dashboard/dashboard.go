package dashboard

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/google/uuid"

	"example.com/wealthsutra/backend/internal/agent"
	"example.com/wealthsutra/backend/internal/models"
)

const (
	LabelUnstable  = "Unstable"
	LabelImproving = "Improving"
	LabelStable    = "Stable"
)

// Reader - часть хранилища планирования, нужная сводке.
type Reader interface {
	Profile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	TransactionsBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.Transaction, error)
}

type HealthScore struct {
	Score   int    `json:"score"`
	Label   string `json:"label"`
	Context string `json:"context"`
}

type Summary struct {
	IncomeTotal        float64                `json:"income_total"`
	SpendTotal         float64                `json:"spend_total"`
	Categories         []agent.CategoryAmount `json:"categories"`
	EMIAmount          float64                `json:"emi_amount"`
	RentAmount         float64                `json:"rent_amount"`
	SchoolFeesAmount   float64                `json:"school_fees_amount"`
	ProjectedShortfall float64                `json:"projected_shortfall"`
	HealthScore        HealthScore            `json:"health_score"`
}

type Service struct {
	reader Reader
	rules  agent.Rules
	cache  *ristretto.Cache
	ttl    time.Duration
	now    func() time.Time

	// поколение кэша на пользователя; Invalidate увеличивает его, и сводка,
	// посчитанная до инвалидации, пишется под устаревший ключ
	mu          sync.Mutex
	generations map[uuid.UUID]uint64
}

// NewService создает сервис сводки. ttl <= 0 отключает кэш.
func NewService(reader Reader, rules agent.Rules, ttl time.Duration) (*Service, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        1e5,
		MaxCost:            1 << 14,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create dashboard cache: %w", err)
	}

	return &Service{
		reader: reader,
		rules:  rules,
		cache:  cache,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },

		generations: make(map[uuid.UUID]uint64),
	}, nil
}

// Summary возвращает сводку за последние дни окна, из кэша если она свежая.
func (s *Service) Summary(ctx context.Context, userID uuid.UUID) (Summary, error) {
	key := s.cacheKey(userID)
	if s.ttl > 0 {
		if cached, ok := s.cache.Get(key); ok {
			if summary, ok := cached.(Summary); ok {
				return summary, nil
			}
		}
	}

	summary, err := s.Compute(ctx, userID)
	if err != nil {
		return Summary{}, err
	}

	if s.ttl > 0 {
		s.cache.SetWithTTL(key, summary, 1, s.ttl)
	}
	return summary, nil
}

// Compute считает сводку без кэша.
func (s *Service) Compute(ctx context.Context, userID uuid.UUID) (Summary, error) {
	stored, err := s.reader.Profile(ctx, userID)
	if err != nil {
		return Summary{}, fmt.Errorf("load profile: %w", err)
	}

	now := s.now()
	transactions, err := s.reader.TransactionsBetween(ctx, userID, now.AddDate(0, 0, -s.rules.WindowDays), now)
	if err != nil {
		return Summary{}, fmt.Errorf("load transactions: %w", err)
	}

	return Build(agent.NewProfile(stored), agent.SummarizeTransactions(transactions), s.rules), nil
}

// Invalidate сбрасывает кэшированную сводку пользователя.
func (s *Service) Invalidate(userID uuid.UUID) {
	s.mu.Lock()
	previous := userID.String() + ":" + strconv.FormatUint(s.generations[userID], 10)
	s.generations[userID]++
	s.mu.Unlock()

	s.cache.Del(previous)
}

func (s *Service) cacheKey(userID uuid.UUID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return userID.String() + ":" + strconv.FormatUint(s.generations[userID], 10)
}

// Close освобождает ресурсы кэша.
func (s *Service) Close() {
	s.cache.Close()
}

// Build собирает сводку из профиля и транзакций окна.
func Build(profile agent.Profile, recent agent.TransactionSummary, rules agent.Rules) Summary {
	window := agent.Summarize(recent, profile.Fixed, rules)

	return Summary{
		IncomeTotal:        recent.IncomeTotal,
		SpendTotal:         recent.SpendTotal,
		Categories:         recent.Categories,
		EMIAmount:          profile.Fixed.EMI,
		RentAmount:         profile.Fixed.Rent,
		SchoolFeesAmount:   profile.Fixed.SchoolFees,
		ProjectedShortfall: window.ProjectedShortfall,
		HealthScore:        ScoreHealth(recent.IncomeTotal, recent.SpendTotal, window.ProjectedShortfall),
	}
}

// ScoreHealth считает индекс финансового здоровья от 0 до 100.
func ScoreHealth(income, spend, shortfall float64) HealthScore {
	if income <= 0 {
		return HealthScore{Score: 0, Label: LabelUnstable, Context: "No income recorded"}
	}

	rate := (income - spend) / income
	score := 50.0

	switch {
	case rate > 0.2:
		score += 30
	case rate > 0.1:
		score += 15
	case rate < 0:
		score -= 30
	}

	if shortfall > 0 {
		score -= min(30, shortfall/1000)
	}

	score = math.Round(max(0, min(100, score)))

	switch {
	case score < 40:
		return HealthScore{Score: int(score), Label: LabelUnstable, Context: "High spending relative to income. Consider reducing expenses."}
	case score < 70:
		return HealthScore{Score: int(score), Label: LabelImproving, Context: "Moderate financial health. Focus on building savings."}
	default:
		return HealthScore{Score: int(score), Label: LabelStable, Context: "Good financial health. Maintain current spending patterns."}
	}
}
