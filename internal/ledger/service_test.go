package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"coinwise/internal/amqp"
	"coinwise/internal/core"
	"coinwise/internal/storage"
)

type fakeEntryStore struct {
	entries   []core.EnrichedEntry
	total     int
	queryErr  error
	lastQuery storage.Query
	created   []core.Entry
	updated   map[string]core.Entry
	deleted   []string
}

func (f *fakeEntryStore) QueryEntries(ctx context.Context, q storage.Query) ([]core.EnrichedEntry, int, error) {
	f.lastQuery = q
	return f.entries, f.total, f.queryErr
}

func (f *fakeEntryStore) GetEntry(ctx context.Context, userID, id string) (core.EnrichedEntry, error) {
	for _, e := range f.entries {
		if e.ID == id && e.UserID == userID {
			return e, nil
		}
	}
	return core.EnrichedEntry{}, core.ErrNotFound
}

func (f *fakeEntryStore) CreateEntry(ctx context.Context, e core.Entry) (string, error) {
	f.created = append(f.created, e)
	e.ID = "new-id"
	f.entries = append(f.entries, core.EnrichedEntry{Entry: e})
	return e.ID, nil
}

func (f *fakeEntryStore) UpdateEntry(ctx context.Context, userID, id string, e core.Entry) error {
	if f.updated == nil {
		f.updated = make(map[string]core.Entry)
	}
	if _, err := f.GetEntry(ctx, userID, id); err != nil {
		return err
	}
	f.updated[id] = e
	return nil
}

func (f *fakeEntryStore) DeleteEntry(ctx context.Context, userID, id string) error {
	if _, err := f.GetEntry(ctx, userID, id); err != nil {
		return err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeAggregates struct {
	totals      core.KindTotals
	expenses    []core.CategoryBreakdown
	income      []core.CategoryBreakdown
	merchants   []core.MerchantStat
	prevExpense float64

	prevCalls   int
	prevWindows []core.TimeWindow
	err         error
}

func (f *fakeAggregates) KindTotals(ctx context.Context, userID string, w core.TimeWindow, categoryID string) (core.KindTotals, error) {
	return f.totals, f.err
}

func (f *fakeAggregates) BreakdownByCategory(ctx context.Context, userID string, w core.TimeWindow, categoryID string, kind core.Kind) ([]core.CategoryBreakdown, error) {
	if kind == core.Income {
		return f.income, f.err
	}
	return f.expenses, f.err
}

func (f *fakeAggregates) TopMerchants(ctx context.Context, userID string, w core.TimeWindow, categoryID string, limit int) ([]core.MerchantStat, error) {
	return f.merchants, f.err
}

func (f *fakeAggregates) WindowExpense(ctx context.Context, userID string, w core.TimeWindow) (float64, error) {
	f.prevCalls++
	f.prevWindows = append(f.prevWindows, w)
	return f.prevExpense, f.err
}

type fakeEvents struct {
	published []amqp.EntryEventMessage
	err       error
}

func (f *fakeEvents) PublishEntryEvent(ctx context.Context, msg amqp.EntryEventMessage) error {
	f.published = append(f.published, msg)
	return f.err
}

func validEntry() core.Entry {
	return core.Entry{
		Name:   "Jollibee",
		Amount: 250,
		Kind:   core.Expense,
		Date:   time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestListReturnsEmptySliceNotNil(t *testing.T) {
	store := &fakeEntryStore{}
	svc := NewService(store, &fakeAggregates{}, nil)

	res, err := svc.List(context.Background(), ListRequest{UserID: "u1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Entries == nil {
		t.Error("entries must serialize as [], not null")
	}
	if res.Pagination.Total != 0 {
		t.Errorf("total = %d", res.Pagination.Total)
	}
}

func TestListRejectsMalformedFilter(t *testing.T) {
	svc := NewService(&fakeEntryStore{}, &fakeAggregates{}, nil)

	_, err := svc.List(context.Background(), ListRequest{UserID: "u1", Kind: "transfer"})
	var malformed *core.MalformedFilterError
	if !errors.As(err, &malformed) {
		t.Fatalf("error = %v, want MalformedFilterError", err)
	}
}

func TestCreateValidatesBeforeWrite(t *testing.T) {
	store := &fakeEntryStore{}
	svc := NewService(store, &fakeAggregates{}, nil)

	e := validEntry()
	e.Name = "   "
	if _, err := svc.Create(context.Background(), "u1", e); !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("error = %v, want ErrEmptyName", err)
	}
	if len(store.created) != 0 {
		t.Error("invalid entry must not reach the store")
	}
}

func TestCreateForcesOwnerAndPublishes(t *testing.T) {
	store := &fakeEntryStore{}
	events := &fakeEvents{}
	svc := NewService(store, &fakeAggregates{}, events)

	e := validEntry()
	e.UserID = "someone-else"
	got, err := svc.Create(context.Background(), "u1", e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.created[0].UserID != "u1" {
		t.Errorf("stored owner = %q, want the authenticated user", store.created[0].UserID)
	}
	if got.ID != "new-id" {
		t.Errorf("returned entry = %+v", got.Entry)
	}
	if len(events.published) != 1 || events.published[0].Action != "created" {
		t.Errorf("published = %+v", events.published)
	}
}

func TestWritesSucceedWithoutPublisher(t *testing.T) {
	store := &fakeEntryStore{}
	svc := NewService(store, &fakeAggregates{}, nil)

	if _, err := svc.Create(context.Background(), "u1", validEntry()); err != nil {
		t.Fatalf("create without publisher: %v", err)
	}
	if err := svc.Delete(context.Background(), "u1", "new-id"); err != nil {
		t.Fatalf("delete without publisher: %v", err)
	}
}

func TestWritesSucceedWhenPublishFails(t *testing.T) {
	store := &fakeEntryStore{}
	events := &fakeEvents{err: errors.New("broker down")}
	svc := NewService(store, &fakeAggregates{}, events)

	if _, err := svc.Create(context.Background(), "u1", validEntry()); err != nil {
		t.Fatalf("create must not fail on publish error: %v", err)
	}
}

func TestUpdateAndDeletePublish(t *testing.T) {
	existing := validEntry()
	existing.ID = "e1"
	existing.UserID = "u1"
	store := &fakeEntryStore{entries: []core.EnrichedEntry{{Entry: existing}}}
	events := &fakeEvents{}
	svc := NewService(store, &fakeAggregates{}, events)

	if _, err := svc.Update(context.Background(), "u1", "e1", validEntry()); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := svc.Delete(context.Background(), "u1", "e1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if len(events.published) != 2 {
		t.Fatalf("published %d events, want 2", len(events.published))
	}
	if events.published[0].Action != "updated" || events.published[1].Action != "deleted" {
		t.Errorf("actions = %q, %q", events.published[0].Action, events.published[1].Action)
	}
}

func TestDeleteMissingEntryPublishesNothing(t *testing.T) {
	events := &fakeEvents{}
	svc := NewService(&fakeEntryStore{}, &fakeAggregates{}, events)

	if err := svc.Delete(context.Background(), "u1", "ghost"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	if len(events.published) != 0 {
		t.Error("failed delete must not publish")
	}
}

func TestSummaryCombinesAggregates(t *testing.T) {
	agg := &fakeAggregates{
		totals:      core.KindTotals{Income: 50000, Expense: 30000, IncomeCount: 2, ExpenseCount: 10},
		expenses:    []core.CategoryBreakdown{{Category: "Food", Total: 18000, Count: 6}},
		income:      []core.CategoryBreakdown{{Category: "Salary", Total: 50000, Count: 2}},
		merchants:   []core.MerchantStat{{Name: "Jollibee", Total: 2000, Count: 8, Average: 250}},
		prevExpense: 20000,
	}
	svc := NewService(&fakeEntryStore{}, agg, nil)
	svc.SetClock(func() time.Time {
		return time.Date(2025, time.June, 15, 10, 0, 0, 0, time.UTC)
	})

	sum, err := svc.Summary(context.Background(), "u1", core.WindowRequest{Mode: core.ModeMonthly}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.TotalIncome != 50000 || sum.TotalExpense != 30000 {
		t.Errorf("totals = %v/%v", sum.TotalIncome, sum.TotalExpense)
	}
	if sum.TotalTransactions != 12 || sum.CashFlow != 20000 || sum.SavingsRate != 40 {
		t.Errorf("derived fields = %d/%v/%v", sum.TotalTransactions, sum.CashFlow, sum.SavingsRate)
	}
	if len(sum.ExpenseByCategory) != 1 || sum.ExpenseByCategory[0].Percentage != 60 {
		t.Errorf("by category = %+v", sum.ExpenseByCategory)
	}
	if sum.Comparison.PreviousExpense != 20000 || sum.Comparison.ChangePercentage != 50 {
		t.Errorf("comparison = %+v", sum.Comparison)
	}

	// The comparison anchor is the fixed lookback behind the window start.
	if agg.prevCalls != 1 {
		t.Fatalf("prev expense queried %d times", agg.prevCalls)
	}
	prev := agg.prevWindows[0]
	wantEnd := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	if !prev.End.Equal(wantEnd) || !prev.Start.Equal(wantEnd.AddDate(0, 0, -30)) {
		t.Errorf("previous window = %v..%v", prev.Start, prev.End)
	}
}

func TestSummaryAllTimeSkipsComparison(t *testing.T) {
	agg := &fakeAggregates{totals: core.KindTotals{Income: 100, IncomeCount: 1}}
	svc := NewService(&fakeEntryStore{}, agg, nil)

	if _, err := svc.Summary(context.Background(), "u1", core.WindowRequest{Mode: core.ModeAll}, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if agg.prevCalls != 0 {
		t.Error("unbounded window must not query the prior period")
	}
}

func TestSummaryPropagatesAggregateErrors(t *testing.T) {
	agg := &fakeAggregates{err: errors.New("db gone")}
	svc := NewService(&fakeEntryStore{}, agg, nil)

	if _, err := svc.Summary(context.Background(), "u1", core.WindowRequest{Mode: core.ModeMonthly}, ""); err == nil {
		t.Fatal("expected error")
	}
}
