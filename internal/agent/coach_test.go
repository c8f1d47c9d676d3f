package agent

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"example.com/wealthsutra/backend/internal/ai"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func scenarioAInput(t *testing.T) CoachInput {
	t.Helper()

	store := newMemoryStore()
	userID := uuid.New()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	scenarioA(store, userID, now)

	rules := DefaultRules()
	c, err := BuildContext(context.Background(), store, userID, now, rules)
	if err != nil {
		t.Fatalf("build context: %v", err)
	}

	analyst, risk, plan := RunPipeline(c, now, rules)
	return CoachInput{Context: c, Analyst: analyst, Risk: risk, Plan: plan}
}

func assertCoachFilled(t *testing.T, out CoachOutput) {
	t.Helper()

	if out.Message == "" || out.Summary == "" || out.RiskExplanation == "" || out.CoachIntro == "" {
		t.Fatalf("expected all coach fields, got %+v", out)
	}
	if len(out.Nudges) == 0 {
		t.Fatal("expected nudges")
	}
}

// TestAdviseStructured проверяет использование ответа модели.
func TestAdviseStructured(t *testing.T) {
	generator := &stubGenerator{reply: coachReply{
		Summary:         " Plan ready ",
		RiskExplanation: "Medium risk",
		CoachIntro:      "Hello",
		Nudges:          []string{"Cut Food", " ", "Track Transport"},
	}}
	coach := NewCoach(generator, time.Second, DefaultRules(), discardLogger())

	out := coach.Advise(context.Background(), scenarioAInput(t))

	if out.Source != CoachSourceAI {
		t.Fatalf("expected ai source, got %s", out.Source)
	}
	if out.Summary != "Plan ready" || out.Message != "Hello" {
		t.Fatalf("unexpected output: %+v", out)
	}
	if !reflect.DeepEqual(out.Nudges, []string{"Cut Food", "Track Transport"}) {
		t.Fatalf("unexpected nudges: %v", out.Nudges)
	}
	if generator.textCalls != 0 {
		t.Fatalf("text generation must not be called, got %d calls", generator.textCalls)
	}
}

// TestAdviseFallbackScenarioA проверяет шаблонный ответ при сбое модели.
func TestAdviseFallbackScenarioA(t *testing.T) {
	generator := &stubGenerator{err: errGeneratorDown, textErr: errGeneratorDown}
	coach := NewCoach(generator, time.Second, DefaultRules(), discardLogger())
	in := scenarioAInput(t)

	out := coach.Advise(context.Background(), in)
	assertCoachFilled(t, out)

	if out.Source != CoachSourceFallback {
		t.Fatalf("expected fallback source, got %s", out.Source)
	}
	if generator.textCalls != 1 {
		t.Fatalf("expected one text attempt, got %d", generator.textCalls)
	}
	if out.Summary != "Your financial plan has been created. Daily saving target is ₹105." {
		t.Fatalf("unexpected summary: %s", out.Summary)
	}
	if out.RiskExplanation != "Your risk level is medium. Projected shortfall: ₹2,142.86 in the next 30 days." {
		t.Fatalf("unexpected risk explanation: %s", out.RiskExplanation)
	}
	if out.Message != templatedIntro(in.Risk) || out.CoachIntro != out.Message {
		t.Fatalf("unexpected intro: %s", out.Message)
	}

	want := []string{
		"Save ₹105 daily to meet your goals",
		"Keep Food spending under ₹5,785.71/month (currently ₹1,500 in last 7 days)",
		"Track Transport expenses (₹900 recently)",
	}
	if !reflect.DeepEqual(out.Nudges, want) {
		t.Fatalf("expected %v, got %v", want, out.Nudges)
	}
}

// TestAdviseTextFallback проверяет, что текст модели становится вступлением.
func TestAdviseTextFallback(t *testing.T) {
	generator := &stubGenerator{err: fmt.Errorf("decode: %w", errGeneratorDown), text: " Keep going, save daily. "}
	coach := NewCoach(generator, time.Second, DefaultRules(), discardLogger())

	out := coach.Advise(context.Background(), scenarioAInput(t))

	if out.Source != CoachSourceFallback {
		t.Fatalf("expected fallback source, got %s", out.Source)
	}
	if out.Message != "Keep going, save daily." || out.CoachIntro != out.Message {
		t.Fatalf("unexpected message: %q", out.Message)
	}
}

// TestAdviseUnavailable проверяет, что без настроек модели текст не запрашивается.
func TestAdviseUnavailable(t *testing.T) {
	generator := &stubGenerator{err: fmt.Errorf("groq: %w", ai.ErrUnavailable)}
	coach := NewCoach(generator, time.Second, DefaultRules(), discardLogger())

	out := coach.Advise(context.Background(), scenarioAInput(t))
	assertCoachFilled(t, out)

	if generator.textCalls != 0 {
		t.Fatalf("expected no text attempts, got %d", generator.textCalls)
	}
}

// TestAdvisePartialReply проверяет, что неполный ответ модели отбрасывается целиком.
func TestAdvisePartialReply(t *testing.T) {
	generator := &stubGenerator{reply: coachReply{Summary: "Only summary"}, textErr: errGeneratorDown}
	coach := NewCoach(generator, time.Second, DefaultRules(), discardLogger())

	out := coach.Advise(context.Background(), scenarioAInput(t))
	assertCoachFilled(t, out)

	if out.Source != CoachSourceFallback || strings.Contains(out.Summary, "Only summary") {
		t.Fatalf("expected fallback output, got %+v", out)
	}
}

// TestAdviseNilGenerator проверяет работу без генератора.
func TestAdviseNilGenerator(t *testing.T) {
	coach := NewCoach(nil, time.Second, DefaultRules(), nil)

	out := coach.Advise(context.Background(), scenarioAInput(t))
	assertCoachFilled(t, out)

	if out.Source != CoachSourceFallback {
		t.Fatalf("expected fallback source, got %s", out.Source)
	}
}

// TestAdviseTimeout проверяет, что зависший генератор ограничен таймаутом.
func TestAdviseTimeout(t *testing.T) {
	generator := &stubGenerator{block: true}
	coach := NewCoach(generator, 50*time.Millisecond, DefaultRules(), discardLogger())

	started := time.Now()
	out := coach.Advise(context.Background(), scenarioAInput(t))

	if elapsed := time.Since(started); elapsed > 2*time.Second {
		t.Fatalf("advise took too long: %s", elapsed)
	}
	assertCoachFilled(t, out)
	if out.Source != CoachSourceFallback {
		t.Fatalf("expected fallback source, got %s", out.Source)
	}
}

// TestFallbackNudgesPositiveSavings проверяет совет об инвестициях при положительном остатке.
func TestFallbackNudgesPositiveSavings(t *testing.T) {
	in := CoachInput{
		Context: Context{Profile: Profile{Fixed: FixedExpenses{Rent: 5000}}},
		Analyst: AnalystOutput{
			Income:   IncomeSummary{AvgDaily: 1000},
			Spending: SpendingSummary{AvgDaily: 300, TopCategories: []CategoryAmount{{Category: "Food", Amount: 2100}}},
		},
		Plan: PlannerOutput{DailySavingTarget: 33},
	}

	nudges := fallbackNudges(in, DefaultRules())
	if len(nudges) != 3 {
		t.Fatalf("expected 3 nudges, got %v", nudges)
	}
	if nudges[1] != "Monitor your Food spending (₹2,100 in last 7 days)" {
		t.Fatalf("unexpected category nudge: %s", nudges[1])
	}
	if nudges[2] != "Start a SIP of ₹6,400/month in equity mutual funds to grow your savings" {
		t.Fatalf("unexpected investment nudge: %s", nudges[2])
	}
}

// TestTemplatedIntro проверяет вступление для каждого уровня риска.
func TestTemplatedIntro(t *testing.T) {
	high := templatedIntro(RiskOutput{Level: "high", ShortfallAmount: 15000, Timeframe: "30 days"})
	if !strings.Contains(high, "₹15,000") {
		t.Fatalf("expected shortfall in intro: %s", high)
	}

	low := templatedIntro(RiskOutput{Level: "low", Timeframe: "30 days"})
	if strings.Contains(low, "₹") {
		t.Fatalf("expected no amount without shortfall: %s", low)
	}
}

// TestFallbackNudgesNoCategories проверяет общий совет без трат и без остатка.
func TestFallbackNudgesNoCategories(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	rules := DefaultRules()
	analyst, risk, plan := RunPipeline(Context{}, now, rules)

	nudges := fallbackNudges(CoachInput{Analyst: analyst, Risk: risk, Plan: plan}, rules)
	want := []string{"Save ₹33 daily to meet your goals", "Review your spending patterns weekly"}
	if !reflect.DeepEqual(nudges, want) {
		t.Fatalf("expected %v, got %v", want, nudges)
	}
}

// TestFallbackNudgesSingleCategoryDeficit проверяет одну категорию без остатка.
func TestFallbackNudgesSingleCategoryDeficit(t *testing.T) {
	in := CoachInput{
		Analyst: AnalystOutput{
			Spending: SpendingSummary{AvgDaily: 100, TopCategories: []CategoryAmount{{Category: "Food", Amount: 700}}},
		},
		Plan: PlannerOutput{DailySavingTarget: 33},
	}

	nudges := fallbackNudges(in, DefaultRules())
	want := []string{
		"Save ₹33 daily to meet your goals",
		"Monitor your Food spending (₹700 in last 7 days)",
		"Review your spending patterns weekly",
	}
	if !reflect.DeepEqual(nudges, want) {
		t.Fatalf("expected %v, got %v", want, nudges)
	}
}

// TestAdviseMediumRiskWithoutShortfall проверяет, что вступление не говорит о нулевом дефиците.
func TestAdviseMediumRiskWithoutShortfall(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	rules := DefaultRules()
	analyst, risk, plan := RunPipeline(Context{}, now, rules)
	if risk.Level != "medium" || risk.ShortfallAmount != 0 {
		t.Fatalf("expected medium risk without shortfall, got %+v", risk)
	}

	generator := &stubGenerator{err: errGeneratorDown, textErr: errGeneratorDown}
	coach := NewCoach(generator, time.Second, rules, discardLogger())
	out := coach.Advise(context.Background(), CoachInput{Analyst: analyst, Risk: risk, Plan: plan})

	if strings.Contains(out.Message, "shortfall of") || strings.Contains(out.Message, "₹0") {
		t.Fatalf("intro mentions a zero shortfall: %s", out.Message)
	}
	if !strings.Contains(out.Message, "very low savings rate") {
		t.Fatalf("expected risk driver in intro: %s", out.Message)
	}
	if out.CoachIntro != out.Message {
		t.Fatalf("expected intro to match message")
	}
}

// TestTemplatedIntroHighWithoutShortfall проверяет высокий риск без дефицита.
func TestTemplatedIntroHighWithoutShortfall(t *testing.T) {
	intro := templatedIntro(RiskOutput{Level: "high", Timeframe: "30 days", Reasons: []string{"High income volatility"}})
	if strings.Contains(intro, "₹") || !strings.Contains(intro, "high income volatility") {
		t.Fatalf("unexpected intro: %s", intro)
	}

	intro = templatedIntro(RiskOutput{Level: "medium", Timeframe: "30 days"})
	if strings.Contains(intro, "₹") || !strings.Contains(intro, "spending is high relative to income") {
		t.Fatalf("unexpected intro without reasons: %s", intro)
	}
}
