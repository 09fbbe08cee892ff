package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"budget/internal/core"
)

// SeedResult reports what first-run initialization actually inserted.
type SeedResult struct {
	CategoryAdded bool
	AccountsAdded []string
}

// EnsureDefaults performs idempotent first-run initialization: the
// reserved default category always exists, and the starter accounts
// are inserted only while the accounts table is completely empty, so
// one user-created account suppresses them forever. No transaction is
// opened when there is nothing to add.
func (s *Store) EnsureDefaults(ctx context.Context) (SeedResult, error) {
	var result SeedResult

	haveCategory, err := s.defaultCategoryExists(ctx)
	if err != nil {
		return result, err
	}
	accountCount, err := s.CountAccounts(ctx)
	if err != nil {
		return result, err
	}
	if haveCategory && accountCount > 0 {
		return result, nil
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if !haveCategory {
			if _, err := insertCategory(ctx, tx, core.DefaultCategoryName); err != nil {
				return fmt.Errorf("insert default category: %w", err)
			}
			result.CategoryAdded = true
		}

		if accountCount == 0 {
			for _, name := range core.DefaultAccountNames {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO accounts (name) VALUES (?)`, name); err != nil {
					return fmt.Errorf("insert default account %q: %w", name, err)
				}
				result.AccountsAdded = append(result.AccountsAdded, name)
			}
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, err
	}
	return result, nil
}

func (s *Store) defaultCategoryExists(ctx context.Context) (bool, error) {
	_, err := s.GetCategoryByName(ctx, core.DefaultCategoryName)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	return false, err
}
