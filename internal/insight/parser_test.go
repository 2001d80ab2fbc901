package insight

import (
	"encoding/json"
	"strings"
	"testing"

	"coinwise/internal/core"
)

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

const validResponse = `{
	"financial_health_score": 7,
	"score_explanation": "Healthy savings rate with one heavy category.",
	"money_leaks": [
		{"category": "Food", "current_spending": 6000, "potential_savings": 900, "annual_impact": 10800, "action": "Cook twice a week", "severity": "medium"}
	],
	"doing_well": ["Consistent tracking"],
	"action_plan": [
		{"title": "Meal prep", "description": "Prep on Sundays", "monthly_savings": 900, "timeframe": "this month", "difficulty": "easy"}
	],
	"monthly_goal": {"target_savings": 4000, "current_savings": 3000, "percentage": 75},
	"insights_summary": "Good month overall."
}`

func TestParseInsightsPlainJSON(t *testing.T) {
	out, err := ParseInsights(validResponse)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.FinancialHealthScore != 7 {
		t.Errorf("score = %d", out.FinancialHealthScore)
	}
	if len(out.MoneyLeaks) != 1 || out.MoneyLeaks[0].Category != "Food" {
		t.Errorf("money leaks = %+v", out.MoneyLeaks)
	}
}

func TestParseInsightsStripsCodeFences(t *testing.T) {
	for _, wrapped := range []string{
		"```json\n" + validResponse + "\n```",
		"```\n" + validResponse + "\n```",
		"  \n```json\n" + validResponse + "\n```\n  ",
	} {
		out, err := ParseInsights(wrapped)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.FinancialHealthScore != 7 {
			t.Errorf("score = %d", out.FinancialHealthScore)
		}
	}
}

func TestParseInsightsRejectsBadPayloads(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "Here are your insights: spend less."},
		{"empty", ""},
		{"score out of range", strings.Replace(validResponse, `"financial_health_score": 7`, `"financial_health_score": 11`, 1)},
		{"score zero", strings.Replace(validResponse, `"financial_health_score": 7`, `"financial_health_score": 0`, 1)},
		{"no leaks", strings.Replace(validResponse, `"money_leaks": [
		{"category": "Food", "current_spending": 6000, "potential_savings": 900, "annual_impact": 10800, "action": "Cook twice a week", "severity": "medium"}
	]`, `"money_leaks": []`, 1)},
		{"no summary", strings.Replace(validResponse, `"insights_summary": "Good month overall."`, `"insights_summary": "  "`, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseInsights(tt.raw); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

func TestParseInsightsClampsListLengths(t *testing.T) {
	leak := `{"category": "X", "action": "a", "severity": "low"}`
	leaks := strings.Repeat(leak+",", 7) + leak
	raw := strings.Replace(validResponse,
		`"money_leaks": [
		{"category": "Food", "current_spending": 6000, "potential_savings": 900, "annual_impact": 10800, "action": "Cook twice a week", "severity": "medium"}
	]`,
		`"money_leaks": [`+leaks+`]`, 1)

	out, err := ParseInsights(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.MoneyLeaks) != maxMoneyLeaks {
		t.Errorf("leaks = %d, want clamped to %d", len(out.MoneyLeaks), maxMoneyLeaks)
	}
}

func fallbackSummary(income, expense float64) core.Summary {
	totals := core.KindTotals{Income: income, Expense: expense, IncomeCount: 2, ExpenseCount: 8}
	byCategory := []core.CategoryBreakdown{
		{Category: "Food", Total: expense * 0.6, Count: 5},
		{Category: "Transport", Total: expense * 0.4, Count: 3},
	}
	w := core.TimeWindow{}
	return core.Summarize(w, totals, byCategory, nil, nil, 0)
}

func TestFallbackInsightsScoreThresholds(t *testing.T) {
	tests := []struct {
		name      string
		income    float64
		expense   float64
		wantScore int
	}{
		{"savings above 30 percent", 10000, 6000, 8},
		{"savings above 15 percent", 10000, 8000, 6},
		{"thin savings", 10000, 9500, 4},
		{"no income", 0, 5000, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := FallbackInsights(fallbackSummary(tt.income, tt.expense))
			if out.FinancialHealthScore != tt.wantScore {
				t.Errorf("score = %d, want %d", out.FinancialHealthScore, tt.wantScore)
			}
		})
	}
}

func TestFallbackInsightsPriorityAlert(t *testing.T) {
	out := FallbackInsights(fallbackSummary(10000, 9500))
	if out.PriorityAlert == "" {
		t.Error("expected a priority alert at 5% savings")
	}

	out = FallbackInsights(fallbackSummary(10000, 6000))
	if out.PriorityAlert != "" {
		t.Errorf("unexpected alert at 40%% savings: %q", out.PriorityAlert)
	}
}

func TestFallbackInsightsTargetsTopCategory(t *testing.T) {
	out := FallbackInsights(fallbackSummary(10000, 8000))
	if len(out.MoneyLeaks) == 0 || out.MoneyLeaks[0].Category != "Food" {
		t.Fatalf("money leaks = %+v, want the largest category", out.MoneyLeaks)
	}
	if len(out.ActionPlan) == 0 {
		t.Fatal("fallback must produce an action plan")
	}
	if _, err := ParseInsights(mustJSON(t, out)); err != nil {
		t.Errorf("fallback does not satisfy its own schema: %v", err)
	}
}

func TestFormatPeso(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "₱0.00"},
		{1234.5, "₱1,234.50"},
		{1000000, "₱1,000,000.00"},
		{-2500.75, "-₱2,500.75"},
		{999.999, "₱1,000.00"},
	}
	for _, tt := range tests {
		if got := formatPeso(tt.in); got != tt.want {
			t.Errorf("formatPeso(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
