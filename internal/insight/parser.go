package insight

import (
	"encoding/json"
	"fmt"
	"strings"

	"coinwise/internal/core"
)

type (
	// MoneyLeak is one recurring drain the model identified, ranked by
	// annual impact.
	MoneyLeak struct {
		Category         string  `json:"category"`
		CurrentSpending  float64 `json:"current_spending"`
		PotentialSavings float64 `json:"potential_savings"`
		AnnualImpact     float64 `json:"annual_impact"`
		Action           string  `json:"action"`
		Severity         string  `json:"severity"` // high | medium | low
	}

	// ActionItem is one step of the ordered action plan.
	ActionItem struct {
		Title          string  `json:"title"`
		Description    string  `json:"description"`
		MonthlySavings float64 `json:"monthly_savings"`
		Timeframe      string  `json:"timeframe"`
		Difficulty     string  `json:"difficulty"` // easy | medium | hard
	}

	// MonthlyGoal tracks savings against a concrete peso target.
	MonthlyGoal struct {
		TargetSavings  float64 `json:"target_savings"`
		CurrentSavings float64 `json:"current_savings"`
		Percentage     float64 `json:"percentage"`
	}

	// Insights is the structured advice payload. Every generated response
	// must deserialize into this shape; anything else is discarded in
	// favor of the deterministic fallback.
	Insights struct {
		FinancialHealthScore int          `json:"financial_health_score"`
		ScoreExplanation     string       `json:"score_explanation"`
		MoneyLeaks           []MoneyLeak  `json:"money_leaks"`
		DoingWell            []string     `json:"doing_well"`
		ActionPlan           []ActionItem `json:"action_plan"`
		PriorityAlert        string       `json:"priority_alert,omitempty"`
		MonthlyGoal          MonthlyGoal  `json:"monthly_goal"`
		InsightsSummary      string       `json:"insights_summary"`
	}
)

// Schema bounds: list fields are clamped to these maxima after parsing,
// and a response with an empty required list is rejected outright.
const (
	maxMoneyLeaks  = 4
	maxDoingWell   = 3
	maxActionItems = 5
)

// ParseInsights decodes one model response into the advice schema. Code
// fences around the JSON body are tolerated; any structural violation is
// an error and the caller substitutes the deterministic fallback.
func ParseInsights(raw string) (Insights, error) {
	body := stripCodeFences(raw)

	var out Insights
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return Insights{}, fmt.Errorf("decode insight response: %w", err)
	}
	if err := out.validate(); err != nil {
		return Insights{}, err
	}
	out.clamp()
	return out, nil
}

func (i Insights) validate() error {
	if i.FinancialHealthScore < 1 || i.FinancialHealthScore > 10 {
		return fmt.Errorf("financial_health_score %d out of range", i.FinancialHealthScore)
	}
	if strings.TrimSpace(i.InsightsSummary) == "" {
		return fmt.Errorf("missing insights_summary")
	}
	if len(i.MoneyLeaks) == 0 {
		return fmt.Errorf("missing money_leaks")
	}
	if len(i.ActionPlan) == 0 {
		return fmt.Errorf("missing action_plan")
	}
	return nil
}

func (i *Insights) clamp() {
	if len(i.MoneyLeaks) > maxMoneyLeaks {
		i.MoneyLeaks = i.MoneyLeaks[:maxMoneyLeaks]
	}
	if len(i.DoingWell) > maxDoingWell {
		i.DoingWell = i.DoingWell[:maxDoingWell]
	}
	if len(i.ActionPlan) > maxActionItems {
		i.ActionPlan = i.ActionPlan[:maxActionItems]
	}
}

// stripCodeFences removes a surrounding ```json ... ``` block, which
// models emit even when told not to.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// FallbackInsights derives advice from the aggregates alone, for when
// every parse attempt failed. Same numbers in, same advice out.
func FallbackInsights(s core.Summary) Insights {
	score := 4
	explanation := "Your expenses are close to your income. Building a savings buffer should be the priority."
	switch {
	case s.SavingsRate > 30:
		score = 8
		explanation = "You are saving well above the 20% guideline. Keep the momentum."
	case s.SavingsRate > 15:
		score = 6
		explanation = "Solid savings rate with room to push toward 20% or more."
	}

	out := Insights{
		FinancialHealthScore: score,
		ScoreExplanation:     explanation,
		DoingWell:            []string{"You are tracking your spending consistently, which is the foundation of every improvement."},
		InsightsSummary: fmt.Sprintf(
			"In %s you earned %s and spent %s, a savings rate of %.1f%%.",
			s.Period, formatPeso(s.TotalIncome), formatPeso(s.TotalExpense), s.SavingsRate),
		MonthlyGoal: MonthlyGoal{
			TargetSavings:  s.TotalIncome * 0.20,
			CurrentSavings: s.CashFlow,
		},
	}
	if out.MonthlyGoal.TargetSavings > 0 {
		out.MonthlyGoal.Percentage = s.CashFlow / out.MonthlyGoal.TargetSavings * 100
	}
	if s.SavingsRate > 0 {
		out.DoingWell = append(out.DoingWell,
			fmt.Sprintf("You kept a positive cash flow of %s this period.", formatPeso(s.CashFlow)))
	}

	if top, ok := s.HighestExpenseCategory(); ok {
		severity := "medium"
		if top.Percentage > 40 {
			severity = "high"
		}
		out.MoneyLeaks = append(out.MoneyLeaks, MoneyLeak{
			Category:         top.Category,
			CurrentSpending:  top.Total,
			PotentialSavings: top.Total * 0.15,
			AnnualImpact:     top.Total * 0.15 * 12,
			Action:           fmt.Sprintf("Set a monthly cap for %s and review it weekly.", top.Category),
			Severity:         severity,
		})
		out.ActionPlan = append(out.ActionPlan, ActionItem{
			Title:          fmt.Sprintf("Trim %s by 15%%", top.Category),
			Description:    fmt.Sprintf("%s is your largest expense at %s. Cutting 15%% frees %s every month.", top.Category, formatPeso(top.Total), formatPeso(top.Total*0.15)),
			MonthlySavings: top.Total * 0.15,
			Timeframe:      "this month",
			Difficulty:     "medium",
		})
	} else {
		out.MoneyLeaks = append(out.MoneyLeaks, MoneyLeak{
			Category: "Uncategorized",
			Action:   "Categorize your transactions so spending patterns become visible.",
			Severity: "low",
		})
		out.ActionPlan = append(out.ActionPlan, ActionItem{
			Title:       "Categorize your transactions",
			Description: "Assign a category to every entry so the next review has real patterns to work with.",
			Timeframe:   "this week",
			Difficulty:  "easy",
		})
	}

	out.ActionPlan = append(out.ActionPlan, ActionItem{
		Title:          "Automate a savings transfer",
		Description:    fmt.Sprintf("Move %s to savings the day income arrives, before it can be spent.", formatPeso(s.TotalIncome*0.10)),
		MonthlySavings: s.TotalIncome * 0.10,
		Timeframe:      "next payday",
		Difficulty:     "easy",
	})

	if s.SavingsRate <= 10 {
		out.PriorityAlert = fmt.Sprintf(
			"Your savings rate is %.1f%%. Below 10%% leaves no buffer for an emergency; start with a small automatic transfer.",
			s.SavingsRate)
	}

	return out
}
