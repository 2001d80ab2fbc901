package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

type (
	// Kind classifies an entry. Aggregation is driven by Kind only; the
	// stored amount sign is informational and may be positive for both kinds.
	Kind string

	// Entry is a single recorded income or expense transaction.
	Entry struct {
		ID           string    `json:"id"`
		UserID       string    `json:"user_id"`
		CategoryID   string    `json:"category_id,omitempty"` // may reference a deleted category
		Name         string    `json:"name"`
		Amount       float64   `json:"amount"`
		Kind         Kind      `json:"type"`
		Label        string    `json:"label,omitempty"`
		Note         string    `json:"note,omitempty"`
		Date         time.Time `json:"date"`
		CreatedAt    time.Time `json:"created_at"`
		BalanceAfter string    `json:"balance_after,omitempty"` // optional post-entry balance, free-form
	}

	// Category groups entries under a display name within a category group.
	Category struct {
		ID        string    `json:"id"`
		UserID    string    `json:"user_id"`
		GroupID   string    `json:"group_id"`
		Name      string    `json:"category_name"`
		Kind      Kind      `json:"type"`
		Icon      string    `json:"icon,omitempty"`
		CreatedAt time.Time `json:"created_at"`
	}

	// CategoryGroup is the top level of the category hierarchy.
	CategoryGroup struct {
		ID        string    `json:"id"`
		UserID    string    `json:"user_id"`
		Name      string    `json:"group_name"`
		Kind      Kind      `json:"type"`
		CreatedAt time.Time `json:"created_at"`
	}

	// CategoryDetails is the denormalized category view attached to an
	// enriched entry. Missing category or group resolves to defaults
	// instead of failing.
	CategoryDetails struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Icon      string `json:"icon"`
		Kind      Kind   `json:"type"`
		GroupID   string `json:"group_id"`
		GroupName string `json:"group_name"`
	}

	// EnrichedEntry is a read-only projection of an Entry joined to its
	// category and group records. Never persisted.
	EnrichedEntry struct {
		Entry
		CategoryDetails CategoryDetails `json:"category_details"`
	}
)

// DefaultCategoryName is rendered whenever a category or group reference
// does not resolve.
const DefaultCategoryName = "Others"

var (
	ErrNotFound         = errors.New("not found")
	ErrMissingDateRange = errors.New("custom range requires date_from or date_to")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyUserID      = errors.New("empty user id")
	ErrInvalidKind      = errors.New("invalid kind")
	ErrNameTooLong      = errors.New("name too long (max 200 characters)")
	ErrZeroDate         = errors.New("date cannot be zero")
)

// MalformedFilterError reports a filter parameter that failed to parse,
// naming the offending field.
type MalformedFilterError struct {
	Field string
	Value string
}

func (e *MalformedFilterError) Error() string {
	return fmt.Sprintf("malformed filter field %q: %q", e.Field, e.Value)
}

// RateLimitedError is returned when an owner has exhausted its insight
// generation quota for the current window.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// RetryAfterMinutes reports the wait rounded up to whole minutes, always
// at least 1 so callers never see a zero retry hint.
func (e *RateLimitedError) RetryAfterMinutes() int {
	m := int((e.RetryAfter + time.Minute - 1) / time.Minute)
	if m < 1 {
		m = 1
	}
	return m
}

func (k Kind) Valid() bool {
	return k == Income || k == Expense
}

func (e Entry) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return ErrEmptyUserID
	}
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyName
	}
	if len(e.Name) > 200 {
		return ErrNameTooLong
	}
	if !e.Kind.Valid() {
		return ErrInvalidKind
	}
	if e.Date.IsZero() {
		return ErrZeroDate
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return ErrEmptyUserID
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Kind.Valid() {
		return ErrInvalidKind
	}
	return nil
}

func (g CategoryGroup) Validate() error {
	if strings.TrimSpace(g.UserID) == "" {
		return ErrEmptyUserID
	}
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if !g.Kind.Valid() {
		return ErrInvalidKind
	}
	return nil
}
