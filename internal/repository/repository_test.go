package repository

import (
	"errors"
	"testing"
	"time"

	"example.com/wealthsutra/backend/internal/models"
)

// TestNormalizeTransactionDefaults проверяет значения по умолчанию для события.
func TestNormalizeTransactionDefaults(t *testing.T) {
	input := TransactionInput{
		OccurredAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.FixedZone("IST", 5*3600+1800)),
		Amount:     149.999,
		Direction:  models.DirectionDebit,
		Category:   "  ",
	}

	got, err := NormalizeTransaction(input)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if got.Category != models.DefaultCategory {
		t.Fatalf("expected category %s, got %s", models.DefaultCategory, got.Category)
	}
	if got.Source != models.DefaultSource {
		t.Fatalf("expected source %s, got %s", models.DefaultSource, got.Source)
	}
	if got.Amount != 150 {
		t.Fatalf("expected rounded amount 150, got %v", got.Amount)
	}
	if got.OccurredAt.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp, got %s", got.OccurredAt.Location())
	}
}

// TestNormalizeTransactionRejectsInvalid проверяет отклонение некорректных событий.
func TestNormalizeTransactionRejectsInvalid(t *testing.T) {
	now := time.Now()
	cases := []TransactionInput{
		{OccurredAt: now, Amount: 0, Direction: models.DirectionCredit},
		{OccurredAt: now, Amount: -5, Direction: models.DirectionDebit},
		{OccurredAt: now, Amount: 10, Direction: "refund"},
		{Amount: 10, Direction: models.DirectionCredit},
	}

	for i, input := range cases {
		if _, err := NormalizeTransaction(input); !errors.Is(err, ErrInvalid) {
			t.Fatalf("case %d: expected ErrInvalid, got %v", i, err)
		}
	}
}

// TestAmountOrZero проверяет обнуление пустых и отрицательных фиксированных расходов.
func TestAmountOrZero(t *testing.T) {
	negative := -100.0
	rent := 10000.456

	if got := amountOrZero(nil); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
	if got := amountOrZero(&negative); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
	if got := amountOrZero(&rent); got != 10000.46 {
		t.Fatalf("expected 10000.46, got %v", got)
	}
}

// TestBuildAIRequestWhere проверяет сборку фильтра логов AI.
func TestBuildAIRequestWhere(t *testing.T) {
	success := true
	requestType := RequestTypeCoach

	where, args := buildAIRequestWhere(AIRequestFilter{Success: &success, RequestType: &requestType})
	if where != " WHERE success = $1 AND request_type = $2" {
		t.Fatalf("unexpected where clause: %q", where)
	}
	if len(args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(args))
	}
}
