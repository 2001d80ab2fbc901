package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"coinwise/internal/core"

	"github.com/google/uuid"
)

// Owner-scoped CRUD for categories and category groups. Deleting a
// category is allowed while entries still reference it; those entries
// degrade to the default display values on read.

func (s *Store) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, group_id, category_name, kind, icon, created_at
		 FROM categories WHERE user_id = ? ORDER BY category_name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetCategory(ctx context.Context, userID, id string) (core.Category, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, group_id, category_name, kind, icon, created_at
		 FROM categories WHERE id = ? AND user_id = ?`, id, userID)

	var (
		c         core.Category
		kind      string
		createdAt int64
	)
	err := row.Scan(&c.ID, &c.UserID, &c.GroupID, &c.Name, &kind, &c.Icon, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	c.Kind = core.Kind(kind)
	c.CreatedAt = time.Unix(createdAt, 0).UTC()
	return c, nil
}

func (s *Store) CreateCategory(ctx context.Context, c core.Category) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (id, user_id, group_id, category_name, kind, icon, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, c.UserID, c.GroupID, c.Name, string(c.Kind), c.Icon, time.Now().Unix())
	if err != nil {
		return "", fmt.Errorf("insert category: %w", err)
	}
	return id, nil
}

func (s *Store) UpdateCategory(ctx context.Context, userID, id string, c core.Category) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET group_id = ?, category_name = ?, kind = ?, icon = ?
		 WHERE id = ? AND user_id = ?`,
		c.GroupID, c.Name, string(c.Kind), c.Icon, id, userID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return requireAffected(res)
}

func (s *Store) DeleteCategory(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM categories WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireAffected(res)
}

func (s *Store) ListGroups(ctx context.Context, userID string) ([]core.CategoryGroup, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, group_name, kind, created_at
		 FROM category_groups WHERE user_id = ? ORDER BY group_name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryGroup
	for rows.Next() {
		var (
			g         core.CategoryGroup
			kind      string
			createdAt int64
		)
		if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &kind, &createdAt); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		g.Kind = core.Kind(kind)
		g.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) GetGroup(ctx context.Context, userID, id string) (core.CategoryGroup, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, group_name, kind, created_at
		 FROM category_groups WHERE id = ? AND user_id = ?`, id, userID)

	var (
		g         core.CategoryGroup
		kind      string
		createdAt int64
	)
	err := row.Scan(&g.ID, &g.UserID, &g.Name, &kind, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CategoryGroup{}, core.ErrNotFound
	}
	if err != nil {
		return core.CategoryGroup{}, fmt.Errorf("get group: %w", err)
	}
	g.Kind = core.Kind(kind)
	g.CreatedAt = time.Unix(createdAt, 0).UTC()
	return g, nil
}

func (s *Store) CreateGroup(ctx context.Context, g core.CategoryGroup) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO category_groups (id, user_id, group_name, kind, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, g.UserID, g.Name, string(g.Kind), time.Now().Unix())
	if err != nil {
		return "", fmt.Errorf("insert group: %w", err)
	}
	return id, nil
}

func (s *Store) UpdateGroup(ctx context.Context, userID, id string, g core.CategoryGroup) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE category_groups SET group_name = ?, kind = ? WHERE id = ? AND user_id = ?`,
		g.Name, string(g.Kind), id, userID)
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	return requireAffected(res)
}

func (s *Store) DeleteGroup(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM category_groups WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return requireAffected(res)
}

// GroupsWithCategories returns every group with its member categories
// attached, for the grouped taxonomy listing.
func (s *Store) GroupsWithCategories(ctx context.Context, userID string) ([]core.CategoryGroup, map[string][]core.Category, error) {
	groups, err := s.ListGroups(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	categories, err := s.ListCategories(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	byGroup := make(map[string][]core.Category, len(groups))
	for _, c := range categories {
		byGroup[c.GroupID] = append(byGroup[c.GroupID], c)
	}
	return groups, byGroup, nil
}

func scanCategory(rows *sql.Rows) (core.Category, error) {
	var (
		c         core.Category
		kind      string
		createdAt int64
	)
	if err := rows.Scan(&c.ID, &c.UserID, &c.GroupID, &c.Name, &kind, &c.Icon, &createdAt); err != nil {
		return core.Category{}, fmt.Errorf("scan category: %w", err)
	}
	c.Kind = core.Kind(kind)
	c.CreatedAt = time.Unix(createdAt, 0).UTC()
	return c, nil
}
