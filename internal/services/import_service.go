package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"budget/internal/cache"
	"budget/internal/core"
	applog "budget/internal/log"
	"budget/internal/storage"

	"github.com/google/uuid"
)

// Row is one CSV record handed to the importer, with its 1-based line
// number for error reporting.
type Row struct {
	Line        int
	Date        string
	Description string
	Amount      string
	Category    string
}

// SkippedRow records why a malformed row was left out of an import.
type SkippedRow struct {
	Line   int
	Reason string
}

// Report summarizes one import run.
type Report struct {
	RunID    uuid.UUID
	Inserted int
	Skipped  []SkippedRow
}

// ImportService loads bank-export CSV rows into the ledger. Rows are
// validated independently: a malformed row is skipped with a reason
// and the rest of the batch proceeds.
type ImportService struct {
	store          *storage.Store
	balances       *cache.BalanceCache
	batchSize      int
	defaultAccount string
}

func NewImportService(store *storage.Store, balances *cache.BalanceCache, batchSize int, defaultAccount string) *ImportService {
	return &ImportService{
		store:          store,
		balances:       balances,
		batchSize:      batchSize,
		defaultAccount: defaultAccount,
	}
}

// Import inserts the valid rows into accountName (the configured
// default account when empty). Commits happen every batchSize rows so
// a big file never rides a single transaction. A missing target
// account or default category fails the whole run up front; everything
// past that point is per-row.
func (s *ImportService) Import(ctx context.Context, rows []Row, accountName string) (Report, error) {
	report := Report{RunID: uuid.New()}

	if accountName == "" {
		accountName = s.defaultAccount
	}
	account, err := s.store.GetAccountByName(ctx, accountName)
	if err != nil {
		return report, fmt.Errorf("import target account %q: %w", accountName, err)
	}
	uncategorized, err := s.store.GetCategoryByName(ctx, core.DefaultCategoryName)
	if err != nil {
		return report, fmt.Errorf("default category: %w", err)
	}

	// Categories found or created during this run.
	categories := map[string]int64{core.DefaultCategoryName: uncategorized.ID}

	var pending []core.Transaction
	flush := func() error {
		if err := s.store.CreateTransactions(ctx, pending); err != nil {
			return fmt.Errorf("commit import batch: %w", err)
		}
		report.Inserted += len(pending)
		pending = pending[:0]
		return nil
	}

	for _, row := range rows {
		t, reason, err := s.buildTransaction(ctx, row, account.ID, categories)
		if err != nil {
			return report, err
		}
		if reason != "" {
			report.Skipped = append(report.Skipped, SkippedRow{Line: row.Line, Reason: reason})
			slog.WarnContext(ctx, "Skipping import row",
				applog.FieldImportRun, report.RunID.String(),
				applog.FieldRowLine, row.Line,
				"reason", reason)
			continue
		}
		pending = append(pending, t)
		if len(pending) >= s.batchSize {
			if err := flush(); err != nil {
				return report, err
			}
		}
	}
	if err := flush(); err != nil {
		return report, err
	}

	s.balances.Invalidate(account.ID)

	slog.InfoContext(ctx, "Import complete",
		applog.FieldImportRun, report.RunID.String(),
		applog.FieldAccountName, account.Name,
		applog.FieldInserted, report.Inserted,
		applog.FieldSkipped, len(report.Skipped))
	return report, nil
}

// buildTransaction validates one row. A non-empty reason means the row
// is skipped; an error aborts the run (storage trouble, not row data).
func (s *ImportService) buildTransaction(ctx context.Context, row Row, accountID int64, categories map[string]int64) (core.Transaction, string, error) {
	dateStr := strings.TrimSpace(row.Date)
	description := strings.TrimSpace(row.Description)
	amountStr := strings.TrimSpace(row.Amount)
	if dateStr == "" || description == "" || amountStr == "" {
		return core.Transaction{}, "missing required data (date/description/amount)", nil
	}

	date, err := core.ParseDate(dateStr)
	if err != nil {
		return core.Transaction{}, fmt.Sprintf("invalid date %q", dateStr), nil
	}
	amount, err := core.ParseAmount(amountStr)
	if err != nil {
		return core.Transaction{}, fmt.Sprintf("invalid amount %q", amountStr), nil
	}

	categoryID, err := s.resolveCategory(ctx, strings.TrimSpace(row.Category), categories)
	if err != nil {
		return core.Transaction{}, "", err
	}

	return core.Transaction{
		Date:        date,
		Description: description,
		Amount:      amount,
		CategoryID:  &categoryID,
		AccountID:   &accountID,
	}, "", nil
}

// resolveCategory finds or creates the named category, caching lookups
// for the run. Blank names and any casing of the reserved default map
// to "Uncategorized".
func (s *ImportService) resolveCategory(ctx context.Context, name string, categories map[string]int64) (int64, error) {
	if name == "" || core.IsReservedCategory(name) {
		return categories[core.DefaultCategoryName], nil
	}
	if id, ok := categories[name]; ok {
		return id, nil
	}

	category, err := s.store.GetCategoryByName(ctx, name)
	if errors.Is(err, core.ErrNotFound) {
		category, err = s.store.CreateCategory(ctx, name)
	}
	if err != nil {
		return 0, fmt.Errorf("resolve category %q: %w", name, err)
	}
	categories[name] = category.ID
	return category.ID, nil
}

// ParseCSV reads a bank-export CSV into rows for Import. The header
// names the columns; "Transaction Date"/"Date", "Description",
// "Amount" are required, "Category" is optional. Line numbers count
// from the header as line 1.
func ParseCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv file is empty: %w", core.ErrInvalidValue)
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	dateIdx := findColumn(header, "Transaction Date", "Date")
	descIdx := findColumn(header, "Description")
	amountIdx := findColumn(header, "Amount")
	categoryIdx := findColumn(header, "Category")
	if dateIdx < 0 || descIdx < 0 || amountIdx < 0 {
		return nil, fmt.Errorf("csv header missing required column (date/description/amount): %w", core.ErrInvalidValue)
	}

	var rows []Row
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Structurally broken line: keep the row so Import reports
			// it as skipped instead of aborting the file.
			rows = append(rows, Row{Line: line})
			continue
		}
		row := Row{Line: line}
		if dateIdx < len(record) {
			row.Date = record[dateIdx]
		}
		if descIdx < len(record) {
			row.Description = record[descIdx]
		}
		if amountIdx < len(record) {
			row.Amount = record[amountIdx]
		}
		if categoryIdx >= 0 && categoryIdx < len(record) {
			row.Category = record[categoryIdx]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func findColumn(header []string, names ...string) int {
	for i, h := range header {
		for _, name := range names {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
	}
	return -1
}
