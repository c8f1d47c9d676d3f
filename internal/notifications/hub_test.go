package notifications

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"example.com/wealthsutra/backend/internal/models"
)

// TestHubPublishSubscribe проверяет доставку событий подписчику.
func TestHubPublishSubscribe(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()

	ch, unsubscribe := hub.Subscribe(userID)
	defer unsubscribe()

	plan := models.Plan{ID: uuid.New(), Trigger: models.TriggerInitialPlan, DailySavingTarget: 105}
	if delivered := hub.Publish(userID, PlanGenerated(plan, models.RiskMedium)); delivered != 1 {
		t.Fatalf("expected one delivery, got %d", delivered)
	}

	select {
	case event := <-ch:
		if event.Type != EventPlanGenerated {
			t.Fatalf("expected plan_generated, got %s", event.Type)
		}
		if event.Timestamp.IsZero() {
			t.Fatal("expected timestamp to be set")
		}
		data := event.Data.(map[string]any)
		if data["plan_id"] != plan.ID.String() {
			t.Fatalf("unexpected plan id: %v", data["plan_id"])
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected event to be delivered")
	}
}

// TestHubIsolatesUsers проверяет, что события не уходят чужим подписчикам.
func TestHubIsolatesUsers(t *testing.T) {
	hub := NewHub()
	owner := uuid.New()

	ch, unsubscribe := hub.Subscribe(uuid.New())
	defer unsubscribe()

	if delivered := hub.Publish(owner, TransactionsIngested(nil)); delivered != 0 {
		t.Fatalf("expected no deliveries, got %d", delivered)
	}

	select {
	case event := <-ch:
		t.Fatalf("unexpected event %s", event.Type)
	default:
	}
}

// TestHubDropsWhenFull проверяет, что переполненный подписчик не блокирует публикацию.
func TestHubDropsWhenFull(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()

	_, unsubscribe := hub.Subscribe(userID)
	defer unsubscribe()

	for i := 0; i < subscriberBuffer; i++ {
		hub.Publish(userID, Event{Type: "fill"})
	}
	if delivered := hub.Publish(userID, Event{Type: "overflow"}); delivered != 0 {
		t.Fatalf("expected dropped event, got %d deliveries", delivered)
	}
}

// TestHubUnsubscribe проверяет закрытие канала после отписки.
func TestHubUnsubscribe(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()

	ch, unsubscribe := hub.Subscribe(userID)
	unsubscribe()
	unsubscribe()

	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed")
	}
	if hub.Subscribers(userID) != 0 {
		t.Fatal("expected no subscribers")
	}
}

// TestTransactionsIngested проверяет содержимое события о пачке транзакций.
func TestTransactionsIngested(t *testing.T) {
	event := TransactionsIngested([]models.Transaction{{ID: uuid.New()}, {ID: uuid.New()}})

	data := event.Data.(map[string]any)
	if data["count"] != 2 || len(data["ids"].([]string)) != 2 {
		t.Fatalf("unexpected event data: %v", data)
	}
}
