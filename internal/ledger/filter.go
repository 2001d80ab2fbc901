package ledger

import (
	"strings"
	"time"

	"coinwise/internal/core"
	"coinwise/internal/storage"
)

// MaxPageLimit caps a bounded page size. A nil/absent limit means the
// caller wants every matching row in one response.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// ListRequest is the raw caller-facing report query. The owner id is
// always injected server-side, never read from request parameters.
type ListRequest struct {
	UserID     string
	Kind       string
	CategoryID string
	DateFrom   string // ISO date or RFC 3339 timestamp
	DateTo     string // inclusive of the whole named day
	Search     string
	SortBy     string
	Order      string
	Page       int
	Limit      *int // nil means unbounded
}

// Pagination is the facet metadata returned with every page.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      *int `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

var sortKeys = map[string]bool{"date": true, "amount": true, "name": true}

// Compile turns the request into a normalized store query. Invalid dates
// and kinds surface as MalformedFilterError naming the field; an unknown
// sort key silently falls back to date.
func (r ListRequest) Compile() (storage.Query, error) {
	q := storage.Query{
		UserID:     r.UserID,
		CategoryID: strings.TrimSpace(r.CategoryID),
		Search:     strings.TrimSpace(r.Search),
	}

	if kind := strings.TrimSpace(r.Kind); kind != "" {
		if !core.Kind(kind).Valid() {
			return storage.Query{}, &core.MalformedFilterError{Field: "type", Value: kind}
		}
		q.Kind = kind
	}

	if v := strings.TrimSpace(r.DateFrom); v != "" {
		from, err := parseISODate("date_from", v)
		if err != nil {
			return storage.Query{}, err
		}
		q.DateFrom = from
	}
	if v := strings.TrimSpace(r.DateTo); v != "" {
		to, err := parseISODate("date_to", v)
		if err != nil {
			return storage.Query{}, err
		}
		// date_to names a calendar day and covers all of it: the bound
		// is the following midnight, exclusive.
		q.DateTo = startOfDay(to).AddDate(0, 0, 1)
	}

	sortBy := strings.TrimSpace(r.SortBy)
	if !sortKeys[sortBy] {
		sortBy = "date"
	}
	q.SortBy = sortBy
	q.Desc = strings.TrimSpace(r.Order) != "asc"

	page := r.Page
	if page < 1 {
		page = 1
	}
	if r.Limit != nil {
		limit := *r.Limit
		if limit < 1 {
			limit = DefaultPageLimit
		}
		if limit > MaxPageLimit {
			limit = MaxPageLimit
		}
		q.Limit = limit
		q.Offset = (page - 1) * limit
	}

	return q, nil
}

// paginate derives the facet metadata for a total count under this
// request's page/limit. Unbounded queries are a single page.
func (r ListRequest) paginate(total int) Pagination {
	page := r.Page
	if page < 1 {
		page = 1
	}

	if r.Limit == nil {
		return Pagination{
			Page:       1,
			Total:      total,
			TotalPages: 1,
		}
	}

	limit := *r.Limit
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	return Pagination{
		Page:       page,
		Limit:      &limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
		HasNext:    page*limit < total,
		HasPrev:    page > 1,
	}
}

// parseISODate accepts a plain ISO date or a full RFC 3339 timestamp.
func parseISODate(field, value string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &core.MalformedFilterError{Field: field, Value: value}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
