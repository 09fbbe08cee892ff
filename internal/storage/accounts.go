package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"budget/internal/core"
)

// CreateAccount inserts a named account. The duplicate check runs
// before the insert so the caller sees core.ErrDuplicateName instead
// of a UNIQUE constraint violation.
func (s *Store) CreateAccount(ctx context.Context, name string) (core.Account, error) {
	name = strings.TrimSpace(name)
	if err := core.ValidateName(name); err != nil {
		return core.Account{}, err
	}

	var account core.Account
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		taken, err := nameTaken(ctx, tx, "accounts", name, 0)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("account %q: %w", name, core.ErrDuplicateName)
		}

		res, err := tx.ExecContext(ctx, `INSERT INTO accounts (name) VALUES (?)`, name)
		if err != nil {
			return fmt.Errorf("insert account: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("account insert id: %w", err)
		}
		account = core.Account{ID: id, Name: name}
		return nil
	})
	return account, err
}

// RenameAccount changes an account's name, subject to the same
// duplicate check as creation.
func (s *Store) RenameAccount(ctx context.Context, id int64, newName string) error {
	newName = strings.TrimSpace(newName)
	if err := core.ValidateName(newName); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		taken, err := nameTaken(ctx, tx, "accounts", newName, id)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("account %q: %w", newName, core.ErrDuplicateName)
		}

		res, err := tx.ExecContext(ctx, `UPDATE accounts SET name = ? WHERE id = ?`, newName, id)
		if err != nil {
			return fmt.Errorf("rename account: %w", err)
		}
		return requireRowAffected(res, "account", id)
	})
}

// DeleteAccount removes an account unless transactions or snapshot
// entries still reference it. Rejecting keeps financial history intact;
// the caller must delete or reassign the referencing rows first.
func (s *Store) DeleteAccount(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var txCount, entryCount int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM transactions WHERE account_id = ?`, id).Scan(&txCount)
		if err != nil {
			return fmt.Errorf("count account transactions: %w", err)
		}
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM snapshot_entries WHERE account_id = ?`, id).Scan(&entryCount)
		if err != nil {
			return fmt.Errorf("count account snapshot entries: %w", err)
		}
		if txCount > 0 || entryCount > 0 {
			return fmt.Errorf("account %d has %d transaction(s) and %d snapshot entries: %w",
				id, txCount, entryCount, core.ErrEntityReferenced)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete account: %w", err)
		}
		return requireRowAffected(res, "account", id)
	})
}

// GetAccount fetches one account by id.
func (s *Store) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	var account core.Account
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name FROM accounts WHERE id = ?`, id).Scan(&account.ID, &account.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("account %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

// GetAccountByName fetches one account by exact name.
func (s *Store) GetAccountByName(ctx context.Context, name string) (core.Account, error) {
	var account core.Account
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name FROM accounts WHERE name = ?`, name).Scan(&account.ID, &account.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("account %q: %w", name, core.ErrNotFound)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account by name: %w", err)
	}
	return account, nil
}

// ListAccounts returns all accounts ordered by name.
func (s *Store) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM accounts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

// CountAccounts reports how many accounts exist. Used by seeding to
// decide whether default accounts are wanted at all.
func (s *Store) CountAccounts(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

// nameTaken reports whether a case-sensitive exact name already exists
// in the given table, excluding excludeID (0 means exclude nothing).
func nameTaken(ctx context.Context, tx *sql.Tx, table, name string, excludeID int64) (bool, error) {
	var id int64
	query := `SELECT id FROM ` + table + ` WHERE name = ? AND id != ?`
	err := tx.QueryRowContext(ctx, query, name, excludeID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check %s name: %w", table, err)
	}
	return true, nil
}

func requireRowAffected(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", entity, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", entity, id, core.ErrNotFound)
	}
	return nil
}
