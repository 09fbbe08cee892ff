package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"budget/internal/core"
	"github.com/shopspring/decimal"
)

// CreateTransaction inserts a ledger entry. Optional category/account
// references are resolved inside the transaction so a dangling id is
// reported as core.ErrDanglingReference, never as a driver FK error.
func (s *Store) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkReferences(ctx, tx, t); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO transactions (date, description, amount, category_id, account_id, notes)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			t.Date.Format(dateLayout), t.Description, t.Amount.String(),
			nullableID(t.CategoryID), nullableID(t.AccountID), t.Notes)
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("transaction insert id: %w", err)
		}
		t.ID = id
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

// CreateTransactions inserts a batch of pre-validated entries in one
// transaction. Used by CSV import so a large file commits in chunks
// instead of one giant transaction.
func (s *Store) CreateTransactions(ctx context.Context, txs []core.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO transactions (date, description, amount, category_id, account_id, notes)
			 VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare batch insert: %w", err)
		}
		defer stmt.Close()

		for _, t := range txs {
			if err := t.Validate(); err != nil {
				return err
			}
			if err := checkReferences(ctx, tx, t); err != nil {
				return err
			}
			_, err := stmt.ExecContext(ctx,
				t.Date.Format(dateLayout), t.Description, t.Amount.String(),
				nullableID(t.CategoryID), nullableID(t.AccountID), t.Notes)
			if err != nil {
				return fmt.Errorf("insert transaction batch row: %w", err)
			}
		}
		return nil
	})
}

// UpdateTransaction rewrites all mutable fields of an existing entry.
func (s *Store) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkReferences(ctx, tx, t); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE transactions
			 SET date = ?, description = ?, amount = ?, category_id = ?, account_id = ?, notes = ?
			 WHERE id = ?`,
			t.Date.Format(dateLayout), t.Description, t.Amount.String(),
			nullableID(t.CategoryID), nullableID(t.AccountID), t.Notes, t.ID)
		if err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		return requireRowAffected(res, "transaction", t.ID)
	})
}

// DeleteTransaction removes one ledger entry.
func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
		return requireRowAffected(res, "transaction", id)
	})
}

// GetTransaction fetches one ledger entry by id.
func (s *Store) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, date, description, amount, category_id, account_id, notes
		 FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// ListTransactions returns every ledger entry, newest date first and
// insertion order within a day, so the listing is deterministic.
func (s *Store) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	return s.queryTransactions(ctx,
		`SELECT id, date, description, amount, category_id, account_id, notes
		 FROM transactions ORDER BY date DESC, id DESC`)
}

// TransactionsForAccount returns one account's entries, newest first.
func (s *Store) TransactionsForAccount(ctx context.Context, accountID int64) ([]core.Transaction, error) {
	return s.queryTransactions(ctx,
		`SELECT id, date, description, amount, category_id, account_id, notes
		 FROM transactions WHERE account_id = ? ORDER BY date DESC, id DESC`, accountID)
}

// TransactionsForCategory returns one category's entries, newest first.
func (s *Store) TransactionsForCategory(ctx context.Context, categoryID int64) ([]core.Transaction, error) {
	return s.queryTransactions(ctx,
		`SELECT id, date, description, amount, category_id, account_id, notes
		 FROM transactions WHERE category_id = ? ORDER BY date DESC, id DESC`, categoryID)
}

// SumAccountTransactions totals an account's amounts, optionally
// restricted to dates strictly after a cutoff date string. Decimal
// arithmetic happens in Go; SQLite would coerce the TEXT amounts to
// floats.
func (s *Store) SumAccountTransactions(ctx context.Context, accountID int64, after string) (decimal.Decimal, error) {
	query := `SELECT amount FROM transactions WHERE account_id = ?`
	args := []any{accountID}
	if after != "" {
		query += ` AND date > ?`
		args = append(args, after)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum transactions: %w", err)
	}
	defer rows.Close()

	sum := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Zero, fmt.Errorf("scan amount: %w", err)
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse stored amount %q: %w", raw, err)
		}
		sum = sum.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("iterate amounts: %w", err)
	}
	return sum, nil
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t         core.Transaction
		date, amt string
		catID     sql.NullInt64
		accID     sql.NullInt64
		notes     sql.NullString
	)
	if err := row.Scan(&t.ID, &date, &t.Description, &amt, &catID, &accID, &notes); err != nil {
		return core.Transaction{}, err
	}

	parsed, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("stored date %q: %w", date, err)
	}
	t.Date = parsed

	amount, err := decimal.NewFromString(amt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("stored amount %q: %w", amt, err)
	}
	t.Amount = amount

	if catID.Valid {
		t.CategoryID = &catID.Int64
	}
	if accID.Valid {
		t.AccountID = &accID.Int64
	}
	t.Notes = notes.String
	return t, nil
}

// checkReferences verifies that non-nil category/account ids resolve.
func checkReferences(ctx context.Context, tx *sql.Tx, t core.Transaction) error {
	if t.AccountID != nil {
		if err := rowExists(ctx, tx, "accounts", *t.AccountID); err != nil {
			return fmt.Errorf("account %d: %w", *t.AccountID, err)
		}
	}
	if t.CategoryID != nil {
		if err := rowExists(ctx, tx, "categories", *t.CategoryID); err != nil {
			return fmt.Errorf("category %d: %w", *t.CategoryID, err)
		}
	}
	return nil
}

func rowExists(ctx context.Context, tx *sql.Tx, table string, id int64) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrDanglingReference
	}
	if err != nil {
		return fmt.Errorf("check %s reference: %w", table, err)
	}
	return nil
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}
