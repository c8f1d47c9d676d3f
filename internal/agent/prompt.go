package agent

import (
	"fmt"
	"sort"
	"strings"
)

// monthlySavings - прогноз месячного остатка после трат и всех фиксированных расходов.
func monthlySavings(c Context, analyst AnalystOutput, rules Rules) float64 {
	projection := float64(rules.ProjectionDays)
	income := analyst.Income.AvgDaily * projection
	spend := analyst.Spending.AvgDaily * projection
	return income - spend - c.Profile.Fixed.Total()
}

func coachSystemPrompt(savings float64, rules Rules) string {
	var guidance string
	if savings > 0 {
		guidance = fmt.Sprintf(`IMPORTANT: The user has positive monthly savings of approximately %s.
You MUST include investment suggestions in your nudges, such as:
- SIP (Systematic Investment Plan) recommendations based on savings amount
- Mutual fund suggestions (%s-%s per month)
- Emergency fund building
- Long-term wealth creation strategies
Mention specific amounts based on their savings.`,
			RupeesWhole(savings),
			RupeesWhole(savings*rules.Coach.InvestmentShareMin),
			FormatAmount(roundWhole(savings*rules.Coach.InvestmentShareMax)),
		)
	} else {
		guidance = "The user has negative or zero savings. Focus on expense reduction and building emergency fund first."
	}

	var b strings.Builder
	b.WriteString(`You are a friendly financial coach for workers in India (including irregular-income workers and salaried professionals).
Provide simple, encouraging advice in plain language.
Focus on practical tips for saving money and managing expenses.
Always mention specific spending categories by name when giving advice.
`)
	b.WriteString(guidance)
	b.WriteString(`
Output a JSON object with the following structure:
{
  "summary": "A brief 1-2 sentence summary of the financial plan",
  "riskExplanation": "Explain the risk level and shortfall in simple terms, mentioning specific amounts",
  "coachIntro": "A personalized 2-3 sentence introduction message as a financial coach",
  "nudges": ["First actionable nudge mentioning specific categories", "Second nudge", "Third nudge"]
}
Each nudge should be specific and mention the actual top spending categories by name.`)
	if savings > 0 {
		b.WriteString("\nInclude at least one investment/SIP suggestion in the nudges with specific amounts.")
	}

	return b.String()
}

func coachPrompt(c Context, analyst AnalystOutput, risk RiskOutput, plan PlannerOutput, rules Rules) string {
	projection := float64(rules.ProjectionDays)
	fixed := c.Profile.Fixed
	savings := monthlySavings(c, analyst, rules)

	var b strings.Builder
	b.WriteString("User Financial Situation:\n\n")

	b.WriteString("INCOME:\n")
	fmt.Fprintf(&b, "- Average daily income: ₹%.0f/day\n", analyst.Income.AvgDaily)
	fmt.Fprintf(&b, "- Income volatility: %s\n", analyst.Income.Volatility)
	fmt.Fprintf(&b, "- Total income (last %d days): %s\n\n", rules.WindowDays, Rupees(analyst.Income.Total))

	b.WriteString("SPENDING:\n")
	fmt.Fprintf(&b, "- Average daily spending: ₹%.0f/day\n", analyst.Spending.AvgDaily)
	fmt.Fprintf(&b, "- Total spending (last %d days): %s\n", rules.WindowDays, Rupees(analyst.Spending.Total))
	fmt.Fprintf(&b, "- Savings rate: %.1f%%\n\n", analyst.SavingsRate*100)

	b.WriteString("TOP SPENDING CATEGORIES (with amounts):\n")
	names := make([]string, 0, len(analyst.Spending.TopCategories))
	for i, category := range analyst.Spending.TopCategories {
		share := 0.0
		if analyst.Spending.Total > 0 {
			share = category.Amount / analyst.Spending.Total * 100
		}
		fmt.Fprintf(&b, "%d. %s: %s (%.1f%% of total spending)\n", i+1, category.Category, Rupees(category.Amount), share)
		names = append(names, category.Category)
	}
	if len(names) == 0 {
		b.WriteString("- No spending recorded\n")
	}
	b.WriteString("\n")

	b.WriteString("FIXED EXPENSES:\n")
	fmt.Fprintf(&b, "- Rent: %s/month\n", Rupees(fixed.Rent))
	fmt.Fprintf(&b, "- EMI: %s/month\n", Rupees(fixed.EMI))
	fmt.Fprintf(&b, "- School Fees: %s/month\n\n", Rupees(fixed.SchoolFees))

	b.WriteString("RISK ASSESSMENT:\n")
	fmt.Fprintf(&b, "- Risk level: %s\n", risk.Level)
	fmt.Fprintf(&b, "- Projected shortfall: %s\n", Rupees(risk.ShortfallAmount))
	fmt.Fprintf(&b, "- Timeframe: %s\n", risk.Timeframe)
	for _, reason := range risk.Reasons {
		fmt.Fprintf(&b, "- Reason: %s\n", reason)
	}
	b.WriteString("\n")

	b.WriteString("NEW PLAN:\n")
	fmt.Fprintf(&b, "- Daily saving target: %s\n", Rupees(plan.DailySavingTarget))
	b.WriteString("- Spending caps set:\n")
	for _, category := range sortedCapNames(plan.SpendingCaps, analyst.Spending.TopCategories) {
		fmt.Fprintf(&b, "- %s: %s/month limit\n", category, Rupees(plan.SpendingCaps[category]))
	}
	b.WriteString("\n")

	b.WriteString("MONTHLY SAVINGS ANALYSIS:\n")
	fmt.Fprintf(&b, "- Projected monthly income: %s\n", Rupees(analyst.Income.AvgDaily*projection))
	fmt.Fprintf(&b, "- Projected monthly spending: %s\n", Rupees(analyst.Spending.AvgDaily*projection))
	fmt.Fprintf(&b, "- Fixed monthly expenses: %s\n", Rupees(fixed.Total()))
	fmt.Fprintf(&b, "- Estimated monthly savings: %s\n", RupeesWhole(savings))
	if savings > 0 {
		fmt.Fprintf(&b, "- Savings available for investment: %s/month\n\n", RupeesWhole(savings))
	} else {
		b.WriteString("- No savings available (focus on expense reduction)\n\n")
	}

	b.WriteString("INSTRUCTIONS:\n")
	b.WriteString("Generate personalized financial coaching messages that:\n")
	fmt.Fprintf(&b, "1. Mention the specific top spending categories by name (%s)\n", strings.Join(names, ", "))
	b.WriteString("2. Reference actual amounts where relevant\n")
	b.WriteString("3. Provide actionable, specific advice\n")
	b.WriteString("4. Be encouraging and supportive\n")
	b.WriteString("5. Focus on the categories where they spend the most\n")
	if savings > 0 {
		fmt.Fprintf(&b, `6. CRITICAL: Since they have %s/month in savings, you MUST suggest:
   - SIP (Systematic Investment Plan) of %s-%s/month in mutual funds
   - Building emergency fund with remaining savings
   - Long-term wealth creation strategies
   Include specific investment amounts in your nudges.`,
			RupeesWhole(savings),
			RupeesWhole(savings*rules.Coach.InvestmentShareMin),
			FormatAmount(roundWhole(savings*rules.Coach.InvestmentShareMax)),
		)
	} else {
		b.WriteString("6. Focus on expense reduction and building emergency fund first.")
	}

	return b.String()
}

// sortedCapNames перечисляет лимиты в порядке топ-категорий, остальные по алфавиту.
func sortedCapNames(caps map[string]float64, top []CategoryAmount) []string {
	names := make([]string, 0, len(caps))
	seen := make(map[string]bool, len(caps))
	for _, category := range top {
		if _, ok := caps[category.Category]; ok && !seen[category.Category] {
			names = append(names, category.Category)
			seen[category.Category] = true
		}
	}

	rest := make([]string, 0)
	for name := range caps {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)

	return append(names, rest...)
}
