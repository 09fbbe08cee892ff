package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"budget/internal/cache"
	"budget/internal/core"
	applog "budget/internal/log"
	"budget/internal/storage"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// SnapshotService is the balance engine: it records point-in-time
// snapshots and derives current balances as
// last-snapshot-balance + net transactions since that snapshot.
type SnapshotService struct {
	store    *storage.Store
	balances *cache.BalanceCache
	now      func() time.Time
}

func NewSnapshotService(store *storage.Store, balances *cache.BalanceCache) *SnapshotService {
	return &SnapshotService{
		store:    store,
		balances: balances,
		now:      time.Now,
	}
}

// AccountBalance is one row of the balance sheet.
type AccountBalance struct {
	Account        core.Account
	Current        decimal.Decimal
	LastKnown      decimal.Decimal
	LastSnapshotAt time.Time
	// HasHistory is false when no snapshot has ever recorded the
	// account; LastKnown and LastSnapshotAt are then meaningless and a
	// front-end should render "N/A" rather than zero.
	HasHistory bool
}

// CreateSnapshot checkpoints the supplied balance of every known
// account at the current instant. Any cached derived balance may be
// stale afterwards, so the whole cache is dropped.
func (s *SnapshotService) CreateSnapshot(ctx context.Context, balances map[int64]decimal.Decimal, notes string) (core.Snapshot, error) {
	snapshot, err := s.store.CreateSnapshot(ctx, s.now(), notes, balances)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("create snapshot: %w", err)
	}
	s.balances.InvalidateAll()

	slog.InfoContext(ctx, "Snapshot created",
		applog.FieldSnapshotID, snapshot.ID,
		"timestamp", snapshot.Timestamp,
		"entries", len(balances))
	return snapshot, nil
}

// DeleteSnapshot removes a snapshot and all its entries.
func (s *SnapshotService) DeleteSnapshot(ctx context.Context, id int64) error {
	if err := s.store.DeleteSnapshot(ctx, id); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	s.balances.InvalidateAll()

	slog.InfoContext(ctx, "Snapshot deleted", applog.FieldSnapshotID, id)
	return nil
}

// LatestSnapshot returns the most recent snapshot, or
// core.ErrNotFound when none exist yet.
func (s *SnapshotService) LatestSnapshot(ctx context.Context) (core.Snapshot, error) {
	return s.store.LatestSnapshot(ctx)
}

// ListSnapshots returns all snapshots, newest first.
func (s *SnapshotService) ListSnapshots(ctx context.Context) ([]core.Snapshot, error) {
	return s.store.ListSnapshots(ctx)
}

// SnapshotEntries returns the per-account balances of one snapshot.
func (s *SnapshotService) SnapshotEntries(ctx context.Context, snapshotID int64) ([]core.SnapshotEntry, error) {
	return s.store.SnapshotEntries(ctx, snapshotID)
}

// LastKnownBalance returns the balance recorded for the account in the
// latest snapshot containing it, with that snapshot's timestamp.
// core.ErrNoBalanceHistory when the account appears in no snapshot.
func (s *SnapshotService) LastKnownBalance(ctx context.Context, accountID int64) (decimal.Decimal, time.Time, error) {
	return s.store.LastEntryForAccount(ctx, accountID)
}

// CurrentBalance derives the account's present balance: the last
// snapshot balance plus all transaction amounts dated strictly after
// that snapshot. With no snapshot history the baseline is zero and
// every transaction counts.
func (s *SnapshotService) CurrentBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	if cached, ok := s.balances.Get(accountID); ok {
		return cached, nil
	}

	ab, err := s.balanceFor(ctx, core.Account{ID: accountID})
	if err != nil {
		return decimal.Zero, err
	}
	s.balances.Set(accountID, ab.Current)
	return ab.Current, nil
}

// BalanceSheet computes the current balance of every account, in
// account-name order. The per-account queries are independent reads,
// so they fan out across the connection pool.
func (s *SnapshotService) BalanceSheet(ctx context.Context) ([]AccountBalance, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	sheet := make([]AccountBalance, len(accounts))
	g, gctx := errgroup.WithContext(ctx)
	for i, account := range accounts {
		i, account := i, account
		g.Go(func() error {
			ab, err := s.balanceFor(gctx, account)
			if err != nil {
				return err
			}
			sheet[i] = ab
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, ab := range sheet {
		s.balances.Set(ab.Account.ID, ab.Current)
	}
	return sheet, nil
}

func (s *SnapshotService) balanceFor(ctx context.Context, account core.Account) (AccountBalance, error) {
	ab := AccountBalance{Account: account}

	lastKnown, snapAt, err := s.store.LastEntryForAccount(ctx, account.ID)
	switch {
	case errors.Is(err, core.ErrNoBalanceHistory):
		// Baseline zero: the balance is the full transaction history.
		sum, err := s.store.SumAccountTransactions(ctx, account.ID, "")
		if err != nil {
			return AccountBalance{}, fmt.Errorf("sum transactions for account %d: %w", account.ID, err)
		}
		ab.Current = sum
		return ab, nil
	case err != nil:
		return AccountBalance{}, fmt.Errorf("last known balance for account %d: %w", account.ID, err)
	}

	// Transactions have calendar-date precision, so "dated strictly
	// after the snapshot timestamp" reduces to after the snapshot's day.
	since, err := s.store.SumAccountTransactions(ctx, account.ID, snapAt.UTC().Format("2006-01-02"))
	if err != nil {
		return AccountBalance{}, fmt.Errorf("sum transactions since snapshot for account %d: %w", account.ID, err)
	}

	ab.Current = lastKnown.Add(since)
	ab.LastKnown = lastKnown
	ab.LastSnapshotAt = snapAt
	ab.HasHistory = true
	return ab, nil
}
