package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"coinwise/internal/amqp"
	"coinwise/internal/core"
	"coinwise/internal/storage"

	"golang.org/x/sync/errgroup"
)

const topMerchantLimit = 5

type (
	// EntryStore is the ledger's port onto the entry store adapter.
	EntryStore interface {
		QueryEntries(ctx context.Context, q storage.Query) ([]core.EnrichedEntry, int, error)
		GetEntry(ctx context.Context, userID, id string) (core.EnrichedEntry, error)
		CreateEntry(ctx context.Context, e core.Entry) (string, error)
		UpdateEntry(ctx context.Context, userID, id string, e core.Entry) error
		DeleteEntry(ctx context.Context, userID, id string) error
	}

	// AggregateStore is the summary aggregator's port.
	AggregateStore interface {
		KindTotals(ctx context.Context, userID string, w core.TimeWindow, categoryID string) (core.KindTotals, error)
		BreakdownByCategory(ctx context.Context, userID string, w core.TimeWindow, categoryID string, kind core.Kind) ([]core.CategoryBreakdown, error)
		TopMerchants(ctx context.Context, userID string, w core.TimeWindow, categoryID string, limit int) ([]core.MerchantStat, error)
		WindowExpense(ctx context.Context, userID string, w core.TimeWindow) (float64, error)
	}

	// EventPublisher pushes entry-change events to the sync queue.
	EventPublisher interface {
		PublishEntryEvent(ctx context.Context, msg amqp.EntryEventMessage) error
	}

	// ListResult is one report page plus its facet metadata.
	ListResult struct {
		Entries    []core.EnrichedEntry `json:"transactions"`
		Pagination Pagination           `json:"pagination"`
	}
)

// Service implements the report and summary operations over the entry
// store. The event publisher is optional; a nil publisher disables the
// audit stream without affecting writes.
type Service struct {
	store      EntryStore
	aggregates AggregateStore
	events     EventPublisher
	now        func() time.Time
}

func NewService(store EntryStore, aggregates AggregateStore, events EventPublisher) *Service {
	return &Service{
		store:      store,
		aggregates: aggregates,
		events:     events,
		now:        time.Now,
	}
}

// SetClock replaces the service time source for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// List runs the compiled filter pipeline and returns one page of
// enriched entries with facet metadata from the same filtered set.
func (s *Service) List(ctx context.Context, req ListRequest) (ListResult, error) {
	q, err := req.Compile()
	if err != nil {
		return ListResult{}, err
	}

	entries, total, err := s.store.QueryEntries(ctx, q)
	if err != nil {
		return ListResult{}, fmt.Errorf("list entries: %w", err)
	}
	if entries == nil {
		entries = []core.EnrichedEntry{}
	}

	return ListResult{Entries: entries, Pagination: req.paginate(total)}, nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (core.EnrichedEntry, error) {
	return s.store.GetEntry(ctx, userID, id)
}

// Create validates and stores a new entry. The owner id is forced to the
// authenticated user before the write.
func (s *Service) Create(ctx context.Context, userID string, e core.Entry) (core.EnrichedEntry, error) {
	e.UserID = userID
	if err := e.Validate(); err != nil {
		return core.EnrichedEntry{}, err
	}

	id, err := s.store.CreateEntry(ctx, e)
	if err != nil {
		return core.EnrichedEntry{}, fmt.Errorf("create entry: %w", err)
	}

	s.publishEvent(ctx, id, userID, "created")
	return s.store.GetEntry(ctx, userID, id)
}

func (s *Service) Update(ctx context.Context, userID, id string, e core.Entry) (core.EnrichedEntry, error) {
	e.UserID = userID
	if err := e.Validate(); err != nil {
		return core.EnrichedEntry{}, err
	}

	if err := s.store.UpdateEntry(ctx, userID, id, e); err != nil {
		return core.EnrichedEntry{}, err
	}

	s.publishEvent(ctx, id, userID, "updated")
	return s.store.GetEntry(ctx, userID, id)
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteEntry(ctx, userID, id); err != nil {
		return err
	}
	s.publishEvent(ctx, id, userID, "deleted")
	return nil
}

// Summary resolves the requested window and reduces the matching entries
// to totals, breakdowns, and the fixed-lookback comparison. The five
// aggregate queries are independent reads and run concurrently.
func (s *Service) Summary(ctx context.Context, userID string, req core.WindowRequest, categoryID string) (core.Summary, error) {
	window, err := core.ResolveWindow(req, s.now())
	if err != nil {
		return core.Summary{}, err
	}

	var (
		totals      core.KindTotals
		byCategory  []core.CategoryBreakdown
		bySource    []core.CategoryBreakdown
		merchants   []core.MerchantStat
		prevExpense float64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		totals, err = s.aggregates.KindTotals(gctx, userID, window, categoryID)
		return err
	})
	g.Go(func() error {
		var err error
		byCategory, err = s.aggregates.BreakdownByCategory(gctx, userID, window, categoryID, core.Expense)
		return err
	})
	g.Go(func() error {
		var err error
		bySource, err = s.aggregates.BreakdownByCategory(gctx, userID, window, categoryID, core.Income)
		return err
	})
	g.Go(func() error {
		var err error
		merchants, err = s.aggregates.TopMerchants(gctx, userID, window, categoryID, topMerchantLimit)
		return err
	})
	g.Go(func() error {
		// No comparison anchor exists for the unbounded window.
		if window.All {
			return nil
		}
		var err error
		prevExpense, err = s.aggregates.WindowExpense(gctx, userID, window.PreviousWindow())
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Summary{}, fmt.Errorf("aggregate summary: %w", err)
	}

	return core.Summarize(window, totals, byCategory, bySource, merchants, prevExpense), nil
}

func (s *Service) publishEvent(ctx context.Context, entryID, userID, action string) {
	if s.events == nil {
		return
	}
	msg := amqp.NewEntryEventMessage(entryID, userID, action, s.now())
	if err := s.events.PublishEntryEvent(ctx, msg); err != nil {
		// The write already succeeded; the audit stream is best-effort.
		slog.ErrorContext(ctx, "Failed to publish entry event",
			"entry_id", entryID, "action", action, "error", err)
	}
}
