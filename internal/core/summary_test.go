package core

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func testWindow() TimeWindow {
	return TimeWindow{
		Start: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestSummarizeTotalsAndRates(t *testing.T) {
	totals := KindTotals{Income: 10000, Expense: 500, IncomeCount: 2, ExpenseCount: 5}

	s := Summarize(testWindow(), totals, nil, nil, nil, 0)

	if s.TotalIncome != 10000 || s.TotalExpense != 500 {
		t.Fatalf("totals = %v/%v", s.TotalIncome, s.TotalExpense)
	}
	if s.CashFlow != 9500 {
		t.Errorf("cash flow = %v, want 9500", s.CashFlow)
	}
	if !approx(s.SavingsRate, 95) {
		t.Errorf("savings rate = %v, want 95", s.SavingsRate)
	}
	if s.TotalTransactions != 7 {
		t.Errorf("total transactions = %d, want 7", s.TotalTransactions)
	}
	if s.Period != "June 2025" {
		t.Errorf("period = %q", s.Period)
	}
}

func TestSummarizeZeroIncome(t *testing.T) {
	s := Summarize(testWindow(), KindTotals{Expense: 800, ExpenseCount: 3}, nil, nil, nil, 0)

	if s.SavingsRate != 0 {
		t.Errorf("savings rate = %v, want 0 with no income", s.SavingsRate)
	}
	if s.CashFlow != -800 {
		t.Errorf("cash flow = %v, want -800", s.CashFlow)
	}
}

func TestSummarizeCategoryPercentages(t *testing.T) {
	byCategory := []CategoryBreakdown{
		{Category: "Food", Total: 600, Count: 4},
		{Category: "Transport", Total: 200, Count: 2},
	}

	s := Summarize(testWindow(), KindTotals{Expense: 800, ExpenseCount: 6}, byCategory, nil, nil, 0)

	if !approx(s.ExpenseByCategory[0].Percentage, 75) {
		t.Errorf("food share = %v, want 75", s.ExpenseByCategory[0].Percentage)
	}
	if !approx(s.ExpenseByCategory[1].Percentage, 25) {
		t.Errorf("transport share = %v, want 25", s.ExpenseByCategory[1].Percentage)
	}
}

func TestSummarizeZeroExpenseKeepsPercentagesZero(t *testing.T) {
	byCategory := []CategoryBreakdown{{Category: "Food", Total: 0, Count: 0}}

	s := Summarize(testWindow(), KindTotals{}, byCategory, nil, nil, 0)

	if s.ExpenseByCategory[0].Percentage != 0 {
		t.Errorf("percentage = %v, want 0", s.ExpenseByCategory[0].Percentage)
	}
}

func TestSummarizeComparison(t *testing.T) {
	tests := []struct {
		name       string
		expense    float64
		previous   float64
		wantChange float64
		wantPct    float64
	}{
		{"spending up", 1200, 1000, 200, 20},
		{"spending down", 800, 1000, -200, -20},
		{"no prior data", 800, 0, 800, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Summarize(testWindow(), KindTotals{Expense: tt.expense, ExpenseCount: 1}, nil, nil, nil, tt.previous)
			if !approx(s.Comparison.Change, tt.wantChange) {
				t.Errorf("change = %v, want %v", s.Comparison.Change, tt.wantChange)
			}
			if !approx(s.Comparison.ChangePercentage, tt.wantPct) {
				t.Errorf("change pct = %v, want %v", s.Comparison.ChangePercentage, tt.wantPct)
			}
		})
	}
}

func TestSummarizeExposesResolvedDateRange(t *testing.T) {
	s := Summarize(testWindow(), KindTotals{Income: 100, IncomeCount: 1}, nil, nil, nil, 0)

	if s.DateRange == nil {
		t.Fatal("expected the resolved window in the summary")
	}
	if !s.DateRange.Start.Equal(testWindow().Start) || !s.DateRange.End.Equal(testWindow().End) {
		t.Errorf("date range = %+v", s.DateRange)
	}

	// Callers read the boundaries out of the marshaled payload.
	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded struct {
		DateRange struct {
			Start time.Time `json:"start"`
			End   time.Time `json:"end"`
		} `json:"date_range"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.DateRange.Start.Equal(testWindow().Start) || !decoded.DateRange.End.Equal(testWindow().End) {
		t.Errorf("marshaled date range = %+v", decoded.DateRange)
	}
}

func TestSummarizeAllTimeOmitsDateRange(t *testing.T) {
	s := Summarize(TimeWindow{All: true}, KindTotals{Income: 100, IncomeCount: 1}, nil, nil, nil, 0)

	if s.DateRange != nil {
		t.Fatalf("date range = %+v, want absent for the unbounded window", s.DateRange)
	}
	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), "date_range") {
		t.Errorf("unbounded summary must omit the date_range key: %s", raw)
	}
}

func TestHighestExpenseCategory(t *testing.T) {
	s := Summary{ExpenseByCategory: []CategoryBreakdown{
		{Category: "Transport", Total: 200},
		{Category: "Food", Total: 600},
	}}

	top, ok := s.HighestExpenseCategory()
	if !ok || top.Category != "Food" {
		t.Fatalf("top = %+v ok=%v, want Food", top, ok)
	}

	if _, ok := (Summary{}).HighestExpenseCategory(); ok {
		t.Error("empty summary must report no top category")
	}
}
