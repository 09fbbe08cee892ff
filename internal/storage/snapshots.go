package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"budget/internal/core"
	"github.com/shopspring/decimal"
)

// CreateSnapshot records the supplied balance for every known account
// at the given instant, atomically. Every account present at call time
// must have a balance (core.ErrIncompleteInput names the missing ones)
// and every supplied id must be a real account
// (core.ErrDanglingReference). Entries are immutable afterwards; a
// correction is a new snapshot.
func (s *Store) CreateSnapshot(ctx context.Context, ts time.Time, notes string, balances map[int64]decimal.Decimal) (core.Snapshot, error) {
	var snapshot core.Snapshot
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id, name FROM accounts ORDER BY id`)
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}
		known := make(map[int64]string)
		var missing []string
		for rows.Next() {
			var (
				id   int64
				name string
			)
			if err := rows.Scan(&id, &name); err != nil {
				rows.Close()
				return fmt.Errorf("scan account: %w", err)
			}
			known[id] = name
			if _, ok := balances[id]; !ok {
				missing = append(missing, name)
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate accounts: %w", err)
		}

		if len(missing) > 0 {
			sort.Strings(missing)
			return fmt.Errorf("missing balance for %s: %w",
				strings.Join(missing, ", "), core.ErrIncompleteInput)
		}
		for id := range balances {
			if _, ok := known[id]; !ok {
				return fmt.Errorf("account %d: %w", id, core.ErrDanglingReference)
			}
		}

		stamp := formatTimestamp(ts)
		res, err := tx.ExecContext(ctx,
			`INSERT INTO snapshots (timestamp, notes) VALUES (?, ?)`, stamp, notes)
		if err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}
		snapshotID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("snapshot insert id: %w", err)
		}

		// Deterministic entry order: ascending account id.
		ids := make([]int64, 0, len(balances))
		for id := range balances {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO snapshot_entries (snapshot_id, account_id, balance) VALUES (?, ?, ?)`,
				snapshotID, id, balances[id].String())
			if err != nil {
				return fmt.Errorf("insert snapshot entry for account %d: %w", id, err)
			}
		}

		parsed, err := parseTimestamp(stamp)
		if err != nil {
			return err
		}
		snapshot = core.Snapshot{ID: snapshotID, Timestamp: parsed, Notes: notes}
		return nil
	})
	if err != nil {
		return core.Snapshot{}, err
	}
	return snapshot, nil
}

// LatestSnapshot returns the snapshot with the maximum timestamp,
// breaking timestamp ties by higher id (insertion order).
func (s *Store) LatestSnapshot(ctx context.Context) (core.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, timestamp, notes FROM snapshots ORDER BY timestamp DESC, id DESC LIMIT 1`)
	snapshot, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Snapshot{}, fmt.Errorf("latest snapshot: %w", core.ErrNotFound)
	}
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("latest snapshot: %w", err)
	}
	return snapshot, nil
}

// GetSnapshot fetches one snapshot by id.
func (s *Store) GetSnapshot(ctx context.Context, id int64) (core.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, timestamp, notes FROM snapshots WHERE id = ?`, id)
	snapshot, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Snapshot{}, fmt.Errorf("snapshot %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("get snapshot: %w", err)
	}
	return snapshot, nil
}

// ListSnapshots returns all snapshots, newest first.
func (s *Store) ListSnapshots(ctx context.Context) ([]core.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, notes FROM snapshots ORDER BY timestamp DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []core.Snapshot
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return out, nil
}

// SnapshotEntries returns a snapshot's entries ordered by account id.
func (s *Store) SnapshotEntries(ctx context.Context, snapshotID int64) ([]core.SnapshotEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, snapshot_id, account_id, balance FROM snapshot_entries
		 WHERE snapshot_id = ? ORDER BY account_id`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("list snapshot entries: %w", err)
	}
	defer rows.Close()

	var out []core.SnapshotEntry
	for rows.Next() {
		var (
			e   core.SnapshotEntry
			raw string
		)
		if err := rows.Scan(&e.ID, &e.SnapshotID, &e.AccountID, &raw); err != nil {
			return nil, fmt.Errorf("scan snapshot entry: %w", err)
		}
		balance, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("stored balance %q: %w", raw, err)
		}
		e.Balance = balance
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot entries: %w", err)
	}
	return out, nil
}

// LastEntryForAccount finds the account's balance in the latest
// snapshot containing an entry for it, which is not necessarily the
// globally latest snapshot when the account is newer than older
// snapshots. Returns core.ErrNoBalanceHistory when no snapshot has
// ever recorded the account.
func (s *Store) LastEntryForAccount(ctx context.Context, accountID int64) (decimal.Decimal, time.Time, error) {
	var (
		raw   string
		stamp string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT e.balance, s.timestamp
		 FROM snapshot_entries e
		 JOIN snapshots s ON s.id = e.snapshot_id
		 WHERE e.account_id = ?
		 ORDER BY s.timestamp DESC, s.id DESC
		 LIMIT 1`, accountID).Scan(&raw, &stamp)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, time.Time{}, fmt.Errorf("account %d: %w", accountID, core.ErrNoBalanceHistory)
	}
	if err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("last entry for account: %w", err)
	}

	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("stored balance %q: %w", raw, err)
	}
	ts, err := parseTimestamp(stamp)
	if err != nil {
		return decimal.Zero, time.Time{}, err
	}
	return balance, ts, nil
}

// DeleteSnapshot removes a snapshot and its entries in one
// transaction, children first. The schema also declares ON DELETE
// CASCADE; the explicit delete keeps the behavior independent of the
// foreign_keys pragma.
func (s *Store) DeleteSnapshot(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := rowExists(ctx, tx, "snapshots", id); err != nil {
			if errors.Is(err, core.ErrDanglingReference) {
				return fmt.Errorf("snapshot %d: %w", id, core.ErrNotFound)
			}
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM snapshot_entries WHERE snapshot_id = ?`, id); err != nil {
			return fmt.Errorf("delete snapshot entries: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete snapshot: %w", err)
		}
		return requireRowAffected(res, "snapshot", id)
	})
}

// CountSnapshotEntries reports the total number of entries across all
// snapshots.
func (s *Store) CountSnapshotEntries(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshot_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count snapshot entries: %w", err)
	}
	return n, nil
}

func scanSnapshot(row rowScanner) (core.Snapshot, error) {
	var (
		snapshot core.Snapshot
		stamp    string
		notes    sql.NullString
	)
	if err := row.Scan(&snapshot.ID, &stamp, &notes); err != nil {
		return core.Snapshot{}, err
	}
	ts, err := parseTimestamp(stamp)
	if err != nil {
		return core.Snapshot{}, err
	}
	snapshot.Timestamp = ts
	snapshot.Notes = notes.String
	return snapshot, nil
}
