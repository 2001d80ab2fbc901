package core

import (
	"fmt"
	"time"
)

const (
	ModeDaily   WindowMode = "daily"
	ModeWeekly  WindowMode = "weekly"
	ModeMonthly WindowMode = "monthly"
	ModeYearly  WindowMode = "yearly"
	ModeCustom  WindowMode = "custom"
	ModeAll     WindowMode = "all"
)

type (
	WindowMode string

	// WindowRequest carries the raw period parameters of a summary or
	// insight request before resolution.
	WindowRequest struct {
		Mode     WindowMode
		Year     int // 0 means current
		Month    int // 0 means current, 1-12 otherwise
		DateFrom time.Time
		DateTo   time.Time
	}

	// TimeWindow is a half-open interval [Start, End). When All is set the
	// window is unbounded and downstream queries omit the date predicate.
	TimeWindow struct {
		Start time.Time
		End   time.Time
		All   bool
	}
)

func (m WindowMode) Valid() bool {
	switch m {
	case ModeDaily, ModeWeekly, ModeMonthly, ModeYearly, ModeCustom, ModeAll:
		return true
	}
	return false
}

// Contains reports whether t falls inside the window.
func (w TimeWindow) Contains(t time.Time) bool {
	if w.All {
		return true
	}
	return !t.Before(w.Start) && t.Before(w.End)
}

// Label renders the window start as a "January 2006" period name for
// prompts and data summaries. The unbounded window has no anchor month.
func (w TimeWindow) Label() string {
	if w.All {
		return "all time"
	}
	return w.Start.Format("January 2006")
}

// ResolveWindow maps a named period plus optional month/year/date-range
// parameters onto an absolute half-open window, relative to now.
func ResolveWindow(req WindowRequest, now time.Time) (TimeWindow, error) {
	switch req.Mode {
	case ModeDaily:
		start := midnight(now)
		return TimeWindow{Start: start, End: start.AddDate(0, 0, 1)}, nil

	case ModeWeekly:
		start := midnight(now)
		// Monday-anchored: time.Weekday has Sunday == 0.
		offset := (int(now.Weekday()) + 6) % 7
		start = start.AddDate(0, 0, -offset)
		return TimeWindow{Start: start, End: start.AddDate(0, 0, 7)}, nil

	case ModeMonthly:
		year, month := req.Year, req.Month
		if year == 0 {
			year = now.Year()
		}
		if month == 0 {
			month = int(now.Month())
		}
		if month < 1 || month > 12 {
			return TimeWindow{}, &MalformedFilterError{Field: "month", Value: fmt.Sprint(month)}
		}
		start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, now.Location())
		// AddDate normalizes December to January of the next year.
		return TimeWindow{Start: start, End: start.AddDate(0, 1, 0)}, nil

	case ModeYearly:
		year := req.Year
		if year == 0 {
			year = now.Year()
		}
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, now.Location())
		return TimeWindow{Start: start, End: start.AddDate(1, 0, 0)}, nil

	case ModeCustom:
		if req.DateFrom.IsZero() && req.DateTo.IsZero() {
			return TimeWindow{}, ErrMissingDateRange
		}
		start := req.DateFrom
		if start.IsZero() {
			start = time.Unix(0, 0).UTC()
		}
		end := req.DateTo
		if end.IsZero() {
			end = now.AddDate(0, 0, 1)
		}
		return TimeWindow{Start: start, End: end}, nil

	case ModeAll:
		return TimeWindow{All: true}, nil
	}
	return TimeWindow{}, &MalformedFilterError{Field: "mode", Value: string(req.Mode)}
}

// ComparisonLookback is the fixed distance of the prior-period comparison
// window: [Start-30d, Start), regardless of the resolved window's length.
// Not true period-over-period alignment.
const ComparisonLookback = 30 * 24 * time.Hour

// PreviousWindow returns the fixed 30-day comparison window ending at the
// window's start. Undefined for the unbounded window; callers skip the
// comparison in that case.
func (w TimeWindow) PreviousWindow() TimeWindow {
	return TimeWindow{Start: w.Start.Add(-ComparisonLookback), End: w.Start}
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
