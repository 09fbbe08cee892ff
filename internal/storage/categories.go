package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"budget/internal/core"
)

// CreateCategory inserts a named category. Names colliding with the
// reserved default are rejected regardless of case.
func (s *Store) CreateCategory(ctx context.Context, name string) (core.Category, error) {
	name = strings.TrimSpace(name)
	if err := core.ValidateName(name); err != nil {
		return core.Category{}, err
	}
	if core.IsReservedCategory(name) {
		return core.Category{}, fmt.Errorf("category %q: %w", name, core.ErrReservedName)
	}

	var category core.Category
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		c, err := insertCategory(ctx, tx, name)
		if err != nil {
			return err
		}
		category = c
		return nil
	})
	return category, err
}

// insertCategory is the tx-scoped insert shared with seeding, which
// creates the default category mid-transaction.
func insertCategory(ctx context.Context, tx *sql.Tx, name string) (core.Category, error) {
	taken, err := nameTaken(ctx, tx, "categories", name, 0)
	if err != nil {
		return core.Category{}, err
	}
	if taken {
		return core.Category{}, fmt.Errorf("category %q: %w", name, core.ErrDuplicateName)
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO categories (name) VALUES (?)`, name)
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("category insert id: %w", err)
	}
	return core.Category{ID: id, Name: name}, nil
}

// RenameCategory changes a category's name. The reserved default can
// neither be renamed nor be the rename target.
func (s *Store) RenameCategory(ctx context.Context, id int64, newName string) error {
	newName = strings.TrimSpace(newName)
	if err := core.ValidateName(newName); err != nil {
		return err
	}
	if core.IsReservedCategory(newName) {
		return fmt.Errorf("category %q: %w", newName, core.ErrReservedName)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx, `SELECT name FROM categories WHERE id = ?`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("category %d: %w", id, core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get category: %w", err)
		}
		if core.IsReservedCategory(current) {
			return fmt.Errorf("category %q: %w", current, core.ErrReservedName)
		}

		taken, err := nameTaken(ctx, tx, "categories", newName, id)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("category %q: %w", newName, core.ErrDuplicateName)
		}

		res, err := tx.ExecContext(ctx, `UPDATE categories SET name = ? WHERE id = ?`, newName, id)
		if err != nil {
			return fmt.Errorf("rename category: %w", err)
		}
		return requireRowAffected(res, "category", id)
	})
}

// DeleteCategory removes a category unless transactions reference it
// or it is the reserved default.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var name string
		err := tx.QueryRowContext(ctx, `SELECT name FROM categories WHERE id = ?`, id).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("category %d: %w", id, core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get category: %w", err)
		}
		if core.IsReservedCategory(name) {
			return fmt.Errorf("category %q: %w", name, core.ErrReservedName)
		}

		var txCount int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM transactions WHERE category_id = ?`, id).Scan(&txCount)
		if err != nil {
			return fmt.Errorf("count category transactions: %w", err)
		}
		if txCount > 0 {
			return fmt.Errorf("category %d has %d transaction(s): %w", id, txCount, core.ErrEntityReferenced)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		return requireRowAffected(res, "category", id)
	})
}

// GetCategory fetches one category by id.
func (s *Store) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	var category core.Category
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name FROM categories WHERE id = ?`, id).Scan(&category.ID, &category.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return category, nil
}

// GetCategoryByName fetches one category by exact name.
func (s *Store) GetCategoryByName(ctx context.Context, name string) (core.Category, error) {
	var category core.Category
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name FROM categories WHERE name = ?`, name).Scan(&category.ID, &category.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %q: %w", name, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category by name: %w", err)
	}
	return category, nil
}

// ListCategories returns all categories ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}
