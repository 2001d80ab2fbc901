package insight

import (
	"fmt"
	"math"
	"strings"

	"coinwise/internal/core"
)

// BuildPrompt renders the summary aggregates into the generation prompt.
// The response contract is spelled out inline so a schema drift shows up
// as a parse failure, not silently different advice.
func BuildPrompt(s core.Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze this personal financial data for %s.\n\n", s.Period)
	fmt.Fprintf(&b, "Total income: %s across %d transactions\n", formatPeso(s.TotalIncome), s.IncomeCount)
	fmt.Fprintf(&b, "Total expenses: %s across %d transactions\n", formatPeso(s.TotalExpense), s.ExpenseCount)
	fmt.Fprintf(&b, "Cash flow: %s\n", formatPeso(s.CashFlow))
	fmt.Fprintf(&b, "Savings rate: %.1f%%\n\n", s.SavingsRate)

	if len(s.ExpenseByCategory) > 0 {
		b.WriteString("Expenses by category:\n")
		for _, c := range s.ExpenseByCategory {
			fmt.Fprintf(&b, "- %s: %s (%d transactions, %.1f%% of spending)\n",
				c.Category, formatPeso(c.Total), c.Count, c.Percentage)
		}
		b.WriteString("\n")
	}

	if len(s.IncomeBySource) > 0 {
		b.WriteString("Income by source:\n")
		for _, c := range s.IncomeBySource {
			fmt.Fprintf(&b, "- %s: %s (%d transactions)\n", c.Category, formatPeso(c.Total), c.Count)
		}
		b.WriteString("\n")
	}

	if len(s.TopMerchants) > 0 {
		b.WriteString("Top merchants by spending:\n")
		for _, m := range s.TopMerchants {
			fmt.Fprintf(&b, "- %s: %s over %d visits (avg %s)\n",
				m.Name, formatPeso(m.Total), m.Count, formatPeso(m.Average))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Compared with the preceding 30 days, spending changed by %s (%+.1f%%).\n\n",
		formatPeso(s.Comparison.Change), s.Comparison.ChangePercentage)

	b.WriteString(`Respond with one JSON object using exactly these fields:
{
  "financial_health_score": <integer 1-10>,
  "score_explanation": "<one sentence>",
  "money_leaks": [
    {"category": "...", "current_spending": 0, "potential_savings": 0, "annual_impact": 0, "action": "...", "severity": "high|medium|low"}
  ],
  "doing_well": ["<2-3 specific habits worth keeping>"],
  "action_plan": [
    {"title": "...", "description": "...", "monthly_savings": 0, "timeframe": "...", "difficulty": "easy|medium|hard"}
  ],
  "priority_alert": "<most urgent issue, or omit if none>",
  "monthly_goal": {"target_savings": 0, "current_savings": 0, "percentage": 0},
  "insights_summary": "<2-3 sentence overview>"
}
Rank money_leaks by annual_impact (2-4 items) and order action_plan by
payoff (3-5 items). Amounts are plain numbers in pesos, no currency symbols.`)

	return b.String()
}

// formatPeso renders an amount as "₱1,234.56" with digit grouping.
// Negative amounts keep the sign ahead of the symbol.
func formatPeso(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}

	whole := int64(math.Floor(v))
	cents := int64(math.Round((v - float64(whole)) * 100))
	if cents == 100 {
		whole++
		cents = 0
	}

	digits := fmt.Sprintf("%d", whole)
	var grouped strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		grouped.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if grouped.Len() > 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteString(digits[i : i+3])
	}

	return fmt.Sprintf("%s₱%s.%02d", sign, grouped.String(), cents)
}
