// Package services orchestrates the storage layer into the operations
// the presentation layer calls: ledger writes, the snapshot/balance
// engine, CSV import, and first-run seeding.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"budget/internal/cache"
	"budget/internal/core"
	applog "budget/internal/log"
	"budget/internal/storage"
)

// LedgerService handles transaction writes and keeps the derived
// balance cache honest about them.
type LedgerService struct {
	store    *storage.Store
	balances *cache.BalanceCache
}

func NewLedgerService(store *storage.Store, balances *cache.BalanceCache) *LedgerService {
	return &LedgerService{
		store:    store,
		balances: balances,
	}
}

// CreateTransaction records a ledger entry and invalidates the
// affected account balance.
func (s *LedgerService) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	created, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	s.invalidate(created.AccountID)

	slog.InfoContext(ctx, "Transaction recorded",
		"id", created.ID,
		applog.FieldDate, created.Date.String(),
		applog.FieldAmount, created.Amount.String(),
		"description", created.Description)
	return created, nil
}

// UpdateTransaction rewrites an entry. Both the old and new account
// balance can shift, and the old account id is only known to storage,
// so the whole cache goes.
func (s *LedgerService) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	if err := s.store.UpdateTransaction(ctx, t); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	s.balances.InvalidateAll()

	slog.InfoContext(ctx, "Transaction updated", "id", t.ID)
	return nil
}

// DeleteTransaction removes an entry.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id int64) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.balances.InvalidateAll()

	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	return nil
}

func (s *LedgerService) invalidate(accountID *int64) {
	if accountID != nil {
		s.balances.Invalidate(*accountID)
	}
}
