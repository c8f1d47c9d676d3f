package notifications

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"example.com/wealthsutra/backend/internal/models"
)

const (
	EventConnected            = "connected"
	EventPlanGenerated        = "plan_generated"
	EventTransactionsIngested = "transactions_ingested"
)

const subscriberBuffer = 16

type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// PlanGenerated описывает новый активный план пользователя.
func PlanGenerated(plan models.Plan, level models.RiskLevel) Event {
	return Event{
		Type: EventPlanGenerated,
		Data: map[string]any{
			"plan_id":             plan.ID.String(),
			"trigger":             plan.Trigger,
			"risk_level":          level,
			"daily_saving_target": plan.DailySavingTarget,
			"end_date":            plan.EndDate,
		},
	}
}

// TransactionsIngested сообщает о записанной пачке транзакций.
func TransactionsIngested(transactions []models.Transaction) Event {
	ids := make([]string, 0, len(transactions))
	for _, t := range transactions {
		ids = append(ids, t.ID.String())
	}

	return Event{
		Type: EventTransactionsIngested,
		Data: map[string]any{
			"count": len(transactions),
			"ids":   ids,
		},
	}
}

// Hub рассылает события подписчикам одного пользователя. Медленный подписчик
// теряет события, а не блокирует публикацию.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]map[chan Event]struct{}
	now         func() time.Time
}

// NewHub создает хаб для SSE и WebSocket подписок.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[uuid.UUID]map[chan Event]struct{}),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Subscribe подписывает пользователя на события и возвращает канал и функцию отписки.
// Функцию отписки можно вызывать повторно.
func (h *Hub) Subscribe(userID uuid.UUID) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	userSubs, ok := h.subscribers[userID]
	if !ok {
		userSubs = make(map[chan Event]struct{})
		h.subscribers[userID] = userSubs
	}
	userSubs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()

			if subs, exists := h.subscribers[userID]; exists {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(h.subscribers, userID)
				}
			}
			close(ch)
		})
	}
}

// Publish отправляет событие всем подписчикам пользователя.
// Возвращает число подписчиков, получивших событие.
func (h *Hub) Publish(userID uuid.UUID, event Event) int {
	if h == nil {
		return 0
	}
	event.Timestamp = h.now()

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for ch := range h.subscribers[userID] {
		select {
		case ch <- event:
			delivered++
		default:
		}
	}
	return delivered
}

// Subscribers возвращает число активных подписок пользователя.
func (h *Hub) Subscribers(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subscribers[userID])
}
