package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"coinwise/internal/core"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store is the SQLite entry store adapter. The query surface mirrors an
// aggregation pipeline: match, join, project, sort, facet. The faceted
// count and the page slice always come from one compiled statement.
type Store struct {
	db *sql.DB
}

// Query is the compiled match/sort/paginate plan produced by the filter
// compiler. Zero time bounds mean the corresponding predicate is omitted.
type Query struct {
	UserID     string
	Kind       string
	CategoryID string
	DateFrom   time.Time // inclusive
	DateTo     time.Time // exclusive
	Search     string
	SortBy     string // date | amount | name
	Desc       bool
	Offset     int
	Limit      int // <= 0 means unbounded
}

// EntryEvent is one row of the entry-change audit trail.
type EntryEvent struct {
	EntryID    string
	UserID     string
	Action     string
	OccurredAt time.Time
}

func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping backs the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var sortColumns = map[string]string{
	"date":   "e.occurred_at",
	"amount": "e.amount",
	"name":   "e.name",
}

// enrichedColumns projects the entry plus its joined category details.
// COALESCE supplies the graceful defaults: a dangling category renders as
// "Others" with the entry's own kind, a dangling group as "Others".
const enrichedColumns = `
	e.id, e.user_id, e.category_id, e.name, e.amount, e.kind,
	e.label, e.note, e.balance_after, e.occurred_at, e.created_at,
	COALESCE(c.category_name, 'Others'),
	COALESCE(c.icon, ''),
	COALESCE(c.kind, e.kind),
	COALESCE(c.group_id, ''),
	COALESCE(g.group_name, 'Others')`

const enrichedJoins = `
	FROM entries e
	LEFT JOIN categories c ON c.id = e.category_id AND c.user_id = e.user_id
	LEFT JOIN category_groups g ON g.id = c.group_id AND g.user_id = c.user_id`

func (q Query) where() (string, []any) {
	conds := []string{"e.user_id = ?"}
	args := []any{q.UserID}

	if q.Kind != "" {
		conds = append(conds, "e.kind = ?")
		args = append(args, q.Kind)
	}
	if q.CategoryID != "" {
		conds = append(conds, "e.category_id = ?")
		args = append(args, q.CategoryID)
	}
	if !q.DateFrom.IsZero() {
		conds = append(conds, "e.occurred_at >= ?")
		args = append(args, q.DateFrom.Unix())
	}
	if !q.DateTo.IsZero() {
		conds = append(conds, "e.occurred_at < ?")
		args = append(args, q.DateTo.Unix())
	}
	if q.Search != "" {
		conds = append(conds, "(LOWER(e.name) LIKE ? OR LOWER(e.note) LIKE ?)")
		pattern := "%" + strings.ToLower(q.Search) + "%"
		args = append(args, pattern, pattern)
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

// QueryEntries returns one page of enriched entries together with the
// total match count, both computed by the same statement via a window
// count so the facets can never diverge.
func (s *Store) QueryEntries(ctx context.Context, q Query) ([]core.EnrichedEntry, int, error) {
	where, args := q.where()

	col, ok := sortColumns[q.SortBy]
	if !ok {
		col = sortColumns["date"]
	}
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}

	stmt := "SELECT" + enrichedColumns + ", COUNT(*) OVER () " + enrichedJoins + where +
		fmt.Sprintf(" ORDER BY %s %s, e.id ASC", col, dir)
	if q.Limit > 0 {
		stmt += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var (
		entries []core.EnrichedEntry
		total   int
	)
	for rows.Next() {
		entry, rowTotal, err := scanEnriched(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, entry)
		total = rowTotal
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate entries: %w", err)
	}

	// A fully skipped page still needs the real total.
	if len(entries) == 0 && q.Limit > 0 {
		countStmt := "SELECT COUNT(*)" + enrichedJoins + where
		if err := s.db.QueryRowContext(ctx, countStmt, args[:len(args)-2]...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count entries: %w", err)
		}
	}

	return entries, total, nil
}

// GetEntry returns a single owner-scoped enriched entry.
func (s *Store) GetEntry(ctx context.Context, userID, id string) (core.EnrichedEntry, error) {
	stmt := "SELECT" + enrichedColumns + ", 1 " + enrichedJoins + " WHERE e.user_id = ? AND e.id = ?"

	rows, err := s.db.QueryContext(ctx, stmt, userID, id)
	if err != nil {
		return core.EnrichedEntry{}, fmt.Errorf("get entry: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return core.EnrichedEntry{}, fmt.Errorf("get entry: %w", err)
		}
		return core.EnrichedEntry{}, core.ErrNotFound
	}
	entry, _, err := scanEnriched(rows)
	if err != nil {
		return core.EnrichedEntry{}, fmt.Errorf("scan entry: %w", err)
	}
	return entry, nil
}

func scanEnriched(rows *sql.Rows) (core.EnrichedEntry, int, error) {
	var (
		e                    core.EnrichedEntry
		kind, detailKind     string
		occurredAt, createdAt int64
		total                int
	)
	err := rows.Scan(
		&e.ID, &e.UserID, &e.CategoryID, &e.Name, &e.Amount, &kind,
		&e.Label, &e.Note, &e.BalanceAfter, &occurredAt, &createdAt,
		&e.CategoryDetails.Name, &e.CategoryDetails.Icon, &detailKind,
		&e.CategoryDetails.GroupID, &e.CategoryDetails.GroupName, &total,
	)
	if err != nil {
		return core.EnrichedEntry{}, 0, err
	}
	e.Kind = core.Kind(kind)
	e.Date = time.Unix(occurredAt, 0).UTC()
	e.CreatedAt = time.Unix(createdAt, 0).UTC()
	e.CategoryDetails.ID = e.CategoryID
	e.CategoryDetails.Kind = core.Kind(detailKind)
	return e, total, nil
}

// CreateEntry inserts a new entry owned by its UserID and returns the
// generated id.
func (s *Store) CreateEntry(ctx context.Context, e core.Entry) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	if e.Date.IsZero() {
		e.Date = now
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (id, user_id, category_id, name, amount, kind, label, note, balance_after, occurred_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, e.UserID, e.CategoryID, e.Name, e.Amount, string(e.Kind),
		e.Label, e.Note, e.BalanceAfter, e.Date.Unix(), now.Unix())
	if err != nil {
		return "", fmt.Errorf("insert entry: %w", err)
	}

	slog.InfoContext(ctx, "Entry saved", "id", id, "user_id", e.UserID, "kind", e.Kind, "amount", e.Amount)
	return id, nil
}

// UpdateEntry rewrites the mutable fields of an owner-scoped entry.
func (s *Store) UpdateEntry(ctx context.Context, userID, id string, e core.Entry) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE entries SET category_id = ?, name = ?, amount = ?, kind = ?, label = ?, note = ?, balance_after = ?, occurred_at = ?
		 WHERE id = ? AND user_id = ?`,
		e.CategoryID, e.Name, e.Amount, string(e.Kind), e.Label, e.Note, e.BalanceAfter, e.Date.Unix(),
		id, userID)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	return requireAffected(res)
}

// DeleteEntry removes an owner-scoped entry.
func (s *Store) DeleteEntry(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM entries WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return requireAffected(res)
}

// RecordEntryEvent appends one row to the audit trail.
func (s *Store) RecordEntryEvent(ctx context.Context, ev EntryEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entry_events (entry_id, user_id, action, occurred_at, recorded_at)
		 VALUES (?, ?, ?, ?, ?)`,
		ev.EntryID, ev.UserID, ev.Action, ev.OccurredAt.Unix(), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("record entry event: %w", err)
	}
	return nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// IsNotFound reports whether err is the store's absence signal.
func IsNotFound(err error) bool {
	return errors.Is(err, core.ErrNotFound) || errors.Is(err, sql.ErrNoRows)
}
