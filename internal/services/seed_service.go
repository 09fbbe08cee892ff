package services

import (
	"context"
	"fmt"
	"log/slog"

	"budget/internal/storage"
)

// SeedService runs first-run initialization on every startup.
type SeedService struct {
	store *storage.Store
}

func NewSeedService(store *storage.Store) *SeedService {
	return &SeedService{store: store}
}

// EnsureDefaults guarantees the default category and, on a completely
// empty ledger, the starter accounts. Idempotent.
func (s *SeedService) EnsureDefaults(ctx context.Context) (storage.SeedResult, error) {
	result, err := s.store.EnsureDefaults(ctx)
	if err != nil {
		return storage.SeedResult{}, fmt.Errorf("seed defaults: %w", err)
	}

	if result.CategoryAdded || len(result.AccountsAdded) > 0 {
		slog.InfoContext(ctx, "Seeded default data",
			"category_added", result.CategoryAdded,
			"accounts_added", result.AccountsAdded)
	} else {
		slog.DebugContext(ctx, "Default data already present")
	}
	return result, nil
}
