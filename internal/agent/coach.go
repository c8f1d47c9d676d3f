package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"example.com/wealthsutra/backend/internal/ai"
	"example.com/wealthsutra/backend/internal/models"
)

// Generator - внешний сервис генерации текста. При отсутствии настроек
// возвращает ai.ErrUnavailable.
type Generator interface {
	GenerateStructured(ctx context.Context, prompt, system string, out any) error
	GenerateText(ctx context.Context, prompt string) (string, error)
}

type CoachSource string

const (
	CoachSourceAI       CoachSource = "ai"
	CoachSourceFallback CoachSource = "fallback"
)

type CoachOutput struct {
	Message         string      `json:"message"`
	Summary         string      `json:"summary"`
	RiskExplanation string      `json:"risk_explanation"`
	CoachIntro      string      `json:"coach_intro"`
	Nudges          []string    `json:"nudges"`
	Source          CoachSource `json:"source"`
}

// CoachInput - выходы предыдущих этапов конвейера.
type CoachInput struct {
	Context Context
	Analyst AnalystOutput
	Risk    RiskOutput
	Plan    PlannerOutput
}

type coachReply struct {
	Summary         string   `json:"summary"`
	RiskExplanation string   `json:"riskExplanation"`
	CoachIntro      string   `json:"coachIntro"`
	Nudges          []string `json:"nudges"`
}

// coachResult - либо структурированный ответ модели, либо запасной вариант с причиной.
type coachResult struct {
	structured *coachReply
	reason     string
	message    string
}

func structuredResult(reply coachReply) coachResult {
	return coachResult{structured: &reply}
}

func fallbackResult(reason, message string) coachResult {
	return coachResult{reason: reason, message: message}
}

type Coach struct {
	generator Generator
	timeout   time.Duration
	rules     Rules
	logger    *slog.Logger
}

// NewCoach создает коуча. timeout ограничивает суммарное время обращения к генератору.
func NewCoach(generator Generator, timeout time.Duration, rules Rules, logger *slog.Logger) *Coach {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coach{generator: generator, timeout: timeout, rules: rules, logger: logger}
}

// Advise всегда возвращает заполненный ответ: при сбое генератора
// используются шаблонные тексты.
func (c *Coach) Advise(ctx context.Context, in CoachInput) CoachOutput {
	result := c.generate(ctx, in)
	if result.structured == nil {
		c.logger.Warn("coach fallback",
			slog.String("user_id", in.Context.UserID.String()),
			slog.String("reason", result.reason),
		)
	}
	return formatCoach(result, in, c.rules)
}

func (c *Coach) generate(ctx context.Context, in CoachInput) coachResult {
	if c.generator == nil {
		return fallbackResult(ai.ErrUnavailable.Error(), "")
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	prompt := coachPrompt(in.Context, in.Analyst, in.Risk, in.Plan, c.rules)
	system := coachSystemPrompt(monthlySavings(in.Context, in.Analyst, c.rules), c.rules)

	var reply coachReply
	err := c.generator.GenerateStructured(ctx, prompt, system, &reply)
	if err == nil {
		reply, err = normalizeReply(reply)
	}
	if err == nil {
		return structuredResult(reply)
	}

	reason := err.Error()
	if errors.Is(err, ai.ErrUnavailable) {
		return fallbackResult(reason, "")
	}

	message, textErr := c.generator.GenerateText(ctx, prompt)
	if textErr != nil {
		return fallbackResult(reason, "")
	}
	return fallbackResult(reason, message)
}

func normalizeReply(reply coachReply) (coachReply, error) {
	reply.Summary = strings.TrimSpace(reply.Summary)
	reply.RiskExplanation = strings.TrimSpace(reply.RiskExplanation)
	reply.CoachIntro = strings.TrimSpace(reply.CoachIntro)

	nudges := make([]string, 0, len(reply.Nudges))
	for _, nudge := range reply.Nudges {
		if trimmed := strings.TrimSpace(nudge); trimmed != "" {
			nudges = append(nudges, trimmed)
		}
	}
	reply.Nudges = nudges

	switch {
	case reply.Summary == "":
		return reply, errors.New("coach reply missing summary")
	case reply.RiskExplanation == "":
		return reply, errors.New("coach reply missing riskExplanation")
	case reply.CoachIntro == "":
		return reply, errors.New("coach reply missing coachIntro")
	case len(reply.Nudges) == 0:
		return reply, errors.New("coach reply missing nudges")
	}

	return reply, nil
}

// formatCoach - единственное место, где собирается CoachOutput для обеих веток.
func formatCoach(result coachResult, in CoachInput, rules Rules) CoachOutput {
	if reply := result.structured; reply != nil {
		return CoachOutput{
			Message:         reply.CoachIntro,
			Summary:         reply.Summary,
			RiskExplanation: reply.RiskExplanation,
			CoachIntro:      reply.CoachIntro,
			Nudges:          reply.Nudges,
			Source:          CoachSourceAI,
		}
	}

	message := strings.TrimSpace(result.message)
	if message == "" {
		message = templatedIntro(in.Risk)
	}

	return CoachOutput{
		Message:         message,
		Summary:         fmt.Sprintf("Your financial plan has been created. Daily saving target is %s.", Rupees(in.Plan.DailySavingTarget)),
		RiskExplanation: fmt.Sprintf("Your risk level is %s. Projected shortfall: %s in the next %s.", in.Risk.Level, Rupees(in.Risk.ShortfallAmount), in.Risk.Timeframe),
		CoachIntro:      message,
		Nudges:          fallbackNudges(in, rules),
		Source:          CoachSourceFallback,
	}
}

func templatedIntro(risk RiskOutput) string {
	shortfall := RupeesWhole(risk.ShortfallAmount)
	hasShortfall := risk.ShortfallAmount > 0

	switch risk.Level {
	case models.RiskHigh:
		if hasShortfall {
			return fmt.Sprintf("Your budget needs attention: we project a shortfall of %s over the next %s. Let's trim your biggest expenses and put a little aside every day.", shortfall, risk.Timeframe)
		}
		return fmt.Sprintf("Your budget needs attention: %s. Let's trim your biggest expenses and put a little aside every day.", riskDriver(risk))
	case models.RiskMedium:
		if hasShortfall {
			return fmt.Sprintf("You are close to balance, with a projected shortfall of %s over the next %s. Small daily savings will close the gap.", shortfall, risk.Timeframe)
		}
		return fmt.Sprintf("You have no projected shortfall over the next %s, but watch out: %s. Small daily savings will build your buffer.", risk.Timeframe, riskDriver(risk))
	default:
		if hasShortfall {
			return fmt.Sprintf("You are on track, with a small projected shortfall of %s over the next %s. Keep saving daily to build your buffer.", shortfall, risk.Timeframe)
		}
		return "You are on track with no projected shortfall. Keep saving daily to build your buffer."
	}
}

// riskDriver - первая причина риска в нижнем регистре для вставки в предложение.
func riskDriver(risk RiskOutput) string {
	for _, reason := range risk.Reasons {
		if reason = strings.TrimSpace(reason); reason != "" {
			return strings.ToLower(reason[:1]) + reason[1:]
		}
	}
	return "your spending is high relative to income"
}

func fallbackNudges(in CoachInput, rules Rules) []string {
	top := in.Analyst.Spending.TopCategories
	nudges := []string{
		fmt.Sprintf("Save %s daily to meet your goals", Rupees(in.Plan.DailySavingTarget)),
	}

	if len(top) > 0 {
		first := top[0]
		if limit, ok := in.Plan.SpendingCaps[first.Category]; ok && limit > 0 {
			nudges = append(nudges, fmt.Sprintf("Keep %s spending under %s/month (currently %s in last %d days)",
				first.Category, Rupees(limit), Rupees(first.Amount), rules.WindowDays))
		} else {
			nudges = append(nudges, fmt.Sprintf("Monitor your %s spending (%s in last %d days)",
				first.Category, Rupees(first.Amount), rules.WindowDays))
		}
	}

	savings := monthlySavings(in.Context, in.Analyst, rules)
	switch {
	case savings > 0:
		nudges = append(nudges, fmt.Sprintf("Start a SIP of %s/month in equity mutual funds to grow your savings",
			RupeesWhole(savings*rules.Coach.InvestmentShare)))
	case len(top) > 1:
		nudges = append(nudges, fmt.Sprintf("Track %s expenses (%s recently)", top[1].Category, Rupees(top[1].Amount)))
	default:
		nudges = append(nudges, "Review your spending patterns weekly")
	}

	return nudges
}
