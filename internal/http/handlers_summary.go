package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"coinwise/internal/core"
	"coinwise/internal/insight"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	req := core.WindowRequest{Mode: core.ModeMonthly}
	if v := strings.TrimSpace(q.Get("period")); v != "" {
		mode := core.WindowMode(v)
		if !mode.Valid() {
			writeError(w, http.StatusBadRequest, (&core.MalformedFilterError{Field: "period", Value: v}).Error())
			return
		}
		req.Mode = mode
	}

	if v := q.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, (&core.MalformedFilterError{Field: "year", Value: v}).Error())
			return
		}
		req.Year = year
	}
	if v := q.Get("month"); v != "" {
		month, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, (&core.MalformedFilterError{Field: "month", Value: v}).Error())
			return
		}
		req.Month = month
	}

	if v := q.Get("date_from"); v != "" {
		from, err := parseDateParam("date_from", v)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		req.DateFrom = from
	}
	if v := q.Get("date_to"); v != "" {
		to, err := parseDateParam("date_to", v)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		// date_to covers the whole named day, even when the caller sent a
		// timestamp with a time component.
		day := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, to.Location())
		req.DateTo = day.AddDate(0, 0, 1)
	}

	summary, err := s.ledger.Summary(r.Context(), userID(r), req, q.Get("category_id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	result, err := s.insights.Generate(r.Context(), insight.Request{
		UserID:     userID(r),
		StartDate:  q.Get("start_date"),
		EndDate:    q.Get("end_date"),
		CategoryID: q.Get("category_id"),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
