package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"coinwise/internal/core"
	"coinwise/internal/ledger"
)

// entryPayload is the write shape shared by create and update.
type entryPayload struct {
	Name         string  `json:"name"`
	Amount       float64 `json:"amount"`
	Kind         string  `json:"type"`
	CategoryID   string  `json:"category_id"`
	Label        string  `json:"label"`
	Note         string  `json:"note"`
	Date         string  `json:"date"` // ISO date or RFC 3339; empty means now
	BalanceAfter string  `json:"balance_after"`
}

func (p entryPayload) toEntry() (core.Entry, error) {
	e := core.Entry{
		Name:         strings.TrimSpace(p.Name),
		Amount:       p.Amount,
		Kind:         core.Kind(p.Kind),
		CategoryID:   strings.TrimSpace(p.CategoryID),
		Label:        strings.TrimSpace(p.Label),
		Note:         p.Note,
		BalanceAfter: strings.TrimSpace(p.BalanceAfter),
		Date:         time.Now(),
	}
	if v := strings.TrimSpace(p.Date); v != "" {
		t, err := parseDateParam("date", v)
		if err != nil {
			return core.Entry{}, err
		}
		e.Date = t
	}
	return e, nil
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	req := ledger.ListRequest{
		UserID:     userID(r),
		Kind:       q.Get("type"),
		CategoryID: q.Get("category_id"),
		DateFrom:   q.Get("date_from"),
		DateTo:     q.Get("date_to"),
		Search:     q.Get("search"),
		SortBy:     q.Get("sort_by"),
		Order:      q.Get("order"),
	}

	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, (&core.MalformedFilterError{Field: "page", Value: v}).Error())
			return
		}
		req.Page = page
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, (&core.MalformedFilterError{Field: "limit", Value: v}).Error())
			return
		}
		req.Limit = &limit
	}

	result, err := s.ledger.List(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	entry, err := s.ledger.Get(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var payload entryPayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry, err := payload.toEntry()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	created, err := s.ledger.Create(r.Context(), userID(r), entry)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var payload entryPayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry, err := payload.toEntry()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	updated, err := s.ledger.Update(r.Context(), userID(r), r.PathValue("id"), entry)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Delete(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "transaction deleted"})
}

func parseDateParam(field, value string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &core.MalformedFilterError{Field: field, Value: value}
}
