package insight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"coinwise/internal/core"
)

const (
	// MinTransactions is the floor below which generation is skipped and
	// the caller gets the raw aggregates with an explanation instead.
	MinTransactions = 3

	// DefaultGenerationTimeout bounds one dispatch, including failovers.
	DefaultGenerationTimeout = 60 * time.Second
)

type (
	// Summarizer is the insight service's port onto the ledger aggregates.
	Summarizer interface {
		Summary(ctx context.Context, userID string, req core.WindowRequest, categoryID string) (core.Summary, error)
	}

	// Request selects the data slice to analyze. Empty dates default to
	// the current calendar month.
	Request struct {
		UserID     string
		StartDate  string // ISO date, optional
		EndDate    string // ISO date, optional
		CategoryID string
	}

	// Result is the insight payload returned to the caller. Insights is
	// nil when the window held too little data to analyze.
	Result struct {
		Insights    *Insights    `json:"insights"`
		DataSummary core.Summary `json:"data_summary"`
		GeneratedAt time.Time    `json:"generated_at,omitempty"`
		Model       string       `json:"model,omitempty"`
		Cached      bool         `json:"cached"`
		CacheAge    string       `json:"cache_age,omitempty"`
		Fallback    bool         `json:"fallback,omitempty"`
		Message     string       `json:"message,omitempty"`
	}
)

// Service runs the full insight pipeline: resolve the window, aggregate,
// guard on data volume, serve from cache, rate limit, generate, parse,
// and cache the result.
type Service struct {
	summarizer Summarizer
	cache      *Cache
	limiter    *RateLimiter
	dispatcher *Dispatcher
	timeout    time.Duration
	now        func() time.Time
}

func NewService(summarizer Summarizer, cache *Cache, limiter *RateLimiter, dispatcher *Dispatcher) *Service {
	return &Service{
		summarizer: summarizer,
		cache:      cache,
		limiter:    limiter,
		dispatcher: dispatcher,
		timeout:    DefaultGenerationTimeout,
		now:        time.Now,
	}
}

// SetClock replaces the service time source for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// SetGenerationTimeout overrides the per-request dispatch deadline.
func (s *Service) SetGenerationTimeout(d time.Duration) { s.timeout = d }

// Generate produces financial insights for the requested slice. A cache
// hit consumes no rate-limit slot; a rate-limited request gets a
// core.RateLimitedError carrying the wait.
func (s *Service) Generate(ctx context.Context, req Request) (Result, error) {
	window, err := windowRequest(req)
	if err != nil {
		return Result{}, err
	}

	summary, err := s.summarizer.Summary(ctx, req.UserID, window, req.CategoryID)
	if err != nil {
		return Result{}, fmt.Errorf("summarize for insights: %w", err)
	}

	if summary.TotalTransactions < MinTransactions {
		return Result{
			DataSummary: summary,
			Message: fmt.Sprintf(
				"Not enough data to analyze: %d transactions in %s, need at least %d.",
				summary.TotalTransactions, summary.Period, MinTransactions),
		}, nil
	}

	fingerprint := Fingerprint(req.UserID, summary.Window, req.CategoryID)
	if hit, age, ok := s.cache.Lookup(fingerprint); ok {
		slog.InfoContext(ctx, "Serving cached insights",
			"user_id", req.UserID, "age", age.Round(time.Second))
		return Result{
			Insights:    &hit.Insights,
			DataSummary: hit.DataSummary,
			GeneratedAt: hit.GeneratedAt,
			Cached:      true,
			CacheAge:    age.Round(time.Second).String(),
			Fallback:    hit.Fallback,
		}, nil
	}

	if err := s.limiter.CheckAndRecord(req.UserID); err != nil {
		return Result{}, err
	}

	gctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, model, err := s.dispatcher.Generate(gctx, BuildPrompt(summary), nil)
	if err != nil {
		return Result{}, err
	}

	fallback := false
	insights, err := ParseInsights(text)
	if err != nil {
		slog.WarnContext(ctx, "Unparseable model response, using derived insights",
			"model", model, "error", err)
		insights = FallbackInsights(summary)
		fallback = true
	}

	generatedAt := s.now()
	s.cache.Store(fingerprint, CachedInsight{
		Insights:    insights,
		DataSummary: summary,
		GeneratedAt: generatedAt,
		Fallback:    fallback,
	})

	slog.InfoContext(ctx, "Generated insights",
		"user_id", req.UserID, "model", model, "fallback", fallback,
		"score", insights.FinancialHealthScore)

	return Result{
		Insights:    &insights,
		DataSummary: summary,
		GeneratedAt: generatedAt,
		Model:       model,
		Fallback:    fallback,
	}, nil
}

// windowRequest maps the raw date parameters onto a window request:
// no dates means the current month, any date means a custom range.
func windowRequest(req Request) (core.WindowRequest, error) {
	if req.StartDate == "" && req.EndDate == "" {
		return core.WindowRequest{Mode: core.ModeMonthly}, nil
	}

	w := core.WindowRequest{Mode: core.ModeCustom}
	if req.StartDate != "" {
		from, err := parseISODate(req.StartDate)
		if err != nil {
			return core.WindowRequest{}, &core.MalformedFilterError{Field: "start_date", Value: req.StartDate}
		}
		w.DateFrom = from
	}
	if req.EndDate != "" {
		to, err := parseISODate(req.EndDate)
		if err != nil {
			return core.WindowRequest{}, &core.MalformedFilterError{Field: "end_date", Value: req.EndDate}
		}
		// The end date names a whole day; the window is half-open.
		w.DateTo = time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, to.Location()).AddDate(0, 0, 1)
	}
	return w, nil
}

func parseISODate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, errors.New("unrecognized date format")
}
