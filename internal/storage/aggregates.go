package storage

import (
	"context"
	"fmt"
	"strings"

	"coinwise/internal/core"
)

// Aggregation queries backing the summary aggregator. Classification is
// strictly by the kind column; ABS() neutralizes whatever sign the amount
// was stored with.

func windowConds(userID string, w core.TimeWindow, categoryID string) (string, []any) {
	conds := []string{"e.user_id = ?"}
	args := []any{userID}

	if !w.All {
		conds = append(conds, "e.occurred_at >= ?", "e.occurred_at < ?")
		args = append(args, w.Start.Unix(), w.End.Unix())
	}
	if categoryID != "" {
		conds = append(conds, "e.category_id = ?")
		args = append(args, categoryID)
	}
	return strings.Join(conds, " AND "), args
}

// KindTotals sums income and expense magnitudes and counts for a window.
func (s *Store) KindTotals(ctx context.Context, userID string, w core.TimeWindow, categoryID string) (core.KindTotals, error) {
	where, args := windowConds(userID, w, categoryID)

	var t core.KindTotals
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN e.kind = 'income' THEN ABS(e.amount) ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN e.kind = 'expense' THEN ABS(e.amount) ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN e.kind = 'income' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN e.kind = 'expense' THEN 1 ELSE 0 END), 0)
		FROM entries e WHERE `+where, args...).
		Scan(&t.Income, &t.Expense, &t.IncomeCount, &t.ExpenseCount)
	if err != nil {
		return core.KindTotals{}, fmt.Errorf("kind totals: %w", err)
	}
	return t, nil
}

// BreakdownByCategory groups one kind's entries by resolved category name.
// Percentages are filled in later by the summarizer.
func (s *Store) BreakdownByCategory(ctx context.Context, userID string, w core.TimeWindow, categoryID string, kind core.Kind) ([]core.CategoryBreakdown, error) {
	where, args := windowConds(userID, w, categoryID)
	args = append(args, string(kind))

	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(c.category_name, 'Others'), SUM(ABS(e.amount)), COUNT(*)
		FROM entries e
		LEFT JOIN categories c ON c.id = e.category_id AND c.user_id = e.user_id
		WHERE `+where+` AND e.kind = ?
		GROUP BY COALESCE(c.category_name, 'Others')
		ORDER BY SUM(ABS(e.amount)) DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("breakdown by category: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryBreakdown
	for rows.Next() {
		var b core.CategoryBreakdown
		if err := rows.Scan(&b.Category, &b.Total, &b.Count); err != nil {
			return nil, fmt.Errorf("scan breakdown: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// TopMerchants returns the window's heaviest recurring expense names.
func (s *Store) TopMerchants(ctx context.Context, userID string, w core.TimeWindow, categoryID string, limit int) ([]core.MerchantStat, error) {
	where, args := windowConds(userID, w, categoryID)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, `
		SELECT e.name, SUM(ABS(e.amount)), COUNT(*), AVG(ABS(e.amount))
		FROM entries e
		WHERE `+where+` AND e.kind = 'expense'
		GROUP BY e.name
		ORDER BY SUM(ABS(e.amount)) DESC
		LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("top merchants: %w", err)
	}
	defer rows.Close()

	var out []core.MerchantStat
	for rows.Next() {
		var m core.MerchantStat
		if err := rows.Scan(&m.Name, &m.Total, &m.Count, &m.Average); err != nil {
			return nil, fmt.Errorf("scan merchant: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// WindowExpense sums expense magnitudes in an arbitrary window, used for
// the prior-period comparison.
func (s *Store) WindowExpense(ctx context.Context, userID string, w core.TimeWindow) (float64, error) {
	where, args := windowConds(userID, w, "")

	var total float64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN e.kind = 'expense' THEN ABS(e.amount) ELSE 0 END), 0)
		FROM entries e WHERE `+where, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("window expense: %w", err)
	}
	return total, nil
}
