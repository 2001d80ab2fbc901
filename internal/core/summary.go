package core

import (
	"math"
	"time"
)

type (
	// KindTotals is the raw aggregate of a filtered entry set, produced by
	// the store. Totals are absolute values; classification is by Kind.
	KindTotals struct {
		Income       float64
		Expense      float64
		IncomeCount  int
		ExpenseCount int
	}

	// CategoryBreakdown is one category's share of a kind total.
	CategoryBreakdown struct {
		Category   string  `json:"category"`
		Total      float64 `json:"total"`
		Count      int     `json:"count"`
		Percentage float64 `json:"percentage"`
	}

	// MerchantStat is one recurring entry name's expense aggregate.
	MerchantStat struct {
		Name    string  `json:"name"`
		Total   float64 `json:"total"`
		Count   int     `json:"count"`
		Average float64 `json:"average"`
	}

	// Comparison relates the window's expense total to the fixed 30-day
	// lookback window preceding it.
	Comparison struct {
		PreviousExpense  float64 `json:"previous_period_expense"`
		Change           float64 `json:"change"`
		ChangePercentage float64 `json:"change_percentage"`
	}

	// DateRange is the resolved window boundary echoed back to callers,
	// so custom and weekly requests can see the interval that was
	// actually queried. Absent for the unbounded window.
	DateRange struct {
		Start time.Time `json:"start"`
		End   time.Time `json:"end"`
	}

	// Summary is a pure reduction of (owner, window, category filter).
	Summary struct {
		Period            string              `json:"period"`
		Window            TimeWindow          `json:"-"`
		DateRange         *DateRange          `json:"date_range,omitempty"`
		TotalIncome       float64             `json:"total_income"`
		TotalExpense      float64             `json:"total_expense"`
		IncomeCount       int                 `json:"income_count"`
		ExpenseCount      int                 `json:"expense_count"`
		TotalTransactions int                 `json:"total_transactions"`
		CashFlow          float64             `json:"cash_flow"`
		SavingsRate       float64             `json:"savings_rate"`
		ExpenseByCategory []CategoryBreakdown `json:"expense_by_category"`
		IncomeBySource    []CategoryBreakdown `json:"income_by_source"`
		TopMerchants      []MerchantStat      `json:"top_merchants"`
		Comparison        Comparison          `json:"comparison"`
	}
)

// Summarize derives the full summary from store aggregates. Totals arrive
// as absolute values already; percentages and rates are computed here so
// the zero-denominator rules live in one place.
func Summarize(window TimeWindow, totals KindTotals, byCategory, bySource []CategoryBreakdown, merchants []MerchantStat, previousExpense float64) Summary {
	s := Summary{
		Period:            window.Label(),
		Window:            window,
		TotalIncome:       totals.Income,
		TotalExpense:      totals.Expense,
		IncomeCount:       totals.IncomeCount,
		ExpenseCount:      totals.ExpenseCount,
		TotalTransactions: totals.IncomeCount + totals.ExpenseCount,
		CashFlow:          totals.Income - totals.Expense,
		ExpenseByCategory: byCategory,
		IncomeBySource:    bySource,
		TopMerchants:      merchants,
	}

	if !window.All {
		s.DateRange = &DateRange{Start: window.Start, End: window.End}
	}

	// savings_rate is 0 when there is no income, never a division by zero.
	if totals.Income > 0 {
		s.SavingsRate = s.CashFlow / totals.Income * 100
	}

	for i := range s.ExpenseByCategory {
		s.ExpenseByCategory[i].Percentage = percentOf(s.ExpenseByCategory[i].Total, totals.Expense)
	}

	s.Comparison = Comparison{
		PreviousExpense: previousExpense,
		Change:          totals.Expense - previousExpense,
	}
	if previousExpense > 0 {
		s.Comparison.ChangePercentage = (totals.Expense - previousExpense) / previousExpense * 100
	}

	return s
}

// HighestExpenseCategory returns the largest expense breakdown entry, or
// false when the window has no expenses.
func (s Summary) HighestExpenseCategory() (CategoryBreakdown, bool) {
	var best CategoryBreakdown
	found := false
	for _, c := range s.ExpenseByCategory {
		if !found || c.Total > best.Total {
			best = c
			found = true
		}
	}
	return best, found
}

func percentOf(part, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Abs(part) / total * 100
}
