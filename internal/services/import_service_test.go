package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"budget/internal/core"
	"budget/internal/storage"
)

func newImportFixture(t *testing.T) (*storage.Store, *ImportService) {
	t.Helper()
	store, balances := newTestStore(t)
	if _, err := store.EnsureDefaults(context.Background()); err != nil {
		t.Fatalf("seed defaults: %v", err)
	}
	return store, NewImportService(store, balances, 100, "Cash")
}

func TestImportInsertsValidRowsAndSkipsBad(t *testing.T) {
	ctx := context.Background()
	store, svc := newImportFixture(t)

	rows := []Row{
		{Line: 2, Date: "2024-01-05", Description: "Salary", Amount: "2000.00"},
		{Line: 3, Date: "2024-01-06", Description: "Groceries", Amount: "-54.30", Category: "Food"},
		{Line: 4, Date: "not-a-date", Description: "Broken", Amount: "1.00"},
		{Line: 5, Date: "2024-01-07", Description: "", Amount: "3.00"},
		{Line: 6, Date: "2024-01-08", Description: "Coffee", Amount: "abc"},
		{Line: 7, Date: "2024-01-09", Description: "Refund", Amount: "$12.50"},
	}

	report, err := svc.Import(ctx, rows, "")
	if err != nil {
		t.Fatal(err)
	}
	if report.Inserted != 3 {
		t.Errorf("inserted = %d, want 3", report.Inserted)
	}
	if len(report.Skipped) != 3 {
		t.Fatalf("skipped = %d, want 3", len(report.Skipped))
	}
	wantSkipped := map[int]string{4: "invalid date", 5: "missing required data", 6: "invalid amount"}
	for _, skipped := range report.Skipped {
		want, ok := wantSkipped[skipped.Line]
		if !ok {
			t.Errorf("unexpected skipped line %d (%s)", skipped.Line, skipped.Reason)
			continue
		}
		if !strings.Contains(skipped.Reason, want) {
			t.Errorf("line %d reason = %q, want it to mention %q", skipped.Line, skipped.Reason, want)
		}
	}

	cash, err := store.GetAccountByName(ctx, "Cash")
	if err != nil {
		t.Fatal(err)
	}
	txs, err := store.TransactionsForAccount(ctx, cash.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 3 {
		t.Fatalf("stored transactions = %d, want 3", len(txs))
	}

	// A fresh category from the file exists and tags the row.
	food, err := store.GetCategoryByName(ctx, "Food")
	if err != nil {
		t.Fatalf("category Food should have been created: %v", err)
	}
	var tagged bool
	for _, tx := range txs {
		if tx.CategoryID != nil && *tx.CategoryID == food.ID {
			tagged = true
		}
	}
	if !tagged {
		t.Error("no transaction tagged with the imported category")
	}
}

func TestImportBlankCategoryFallsBackToDefault(t *testing.T) {
	ctx := context.Background()
	store, svc := newImportFixture(t)

	rows := []Row{
		{Line: 2, Date: "2024-02-01", Description: "Untagged", Amount: "10.00"},
		{Line: 3, Date: "2024-02-02", Description: "Shouted", Amount: "20.00", Category: "UNCATEGORIZED"},
	}
	if _, err := svc.Import(ctx, rows, ""); err != nil {
		t.Fatal(err)
	}

	uncategorized, err := store.GetCategoryByName(ctx, core.DefaultCategoryName)
	if err != nil {
		t.Fatal(err)
	}
	txs, err := store.TransactionsForCategory(ctx, uncategorized.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 2 {
		t.Fatalf("default-category transactions = %d, want 2", len(txs))
	}
}

func TestImportBatching(t *testing.T) {
	ctx := context.Background()
	store, balances := newTestStore(t)
	if _, err := store.EnsureDefaults(ctx); err != nil {
		t.Fatal(err)
	}
	svc := NewImportService(store, balances, 2, "Cash")

	var rows []Row
	for i := 0; i < 5; i++ {
		rows = append(rows, Row{
			Line:        i + 2,
			Date:        "2024-03-01",
			Description: "bulk",
			Amount:      "1.00",
		})
	}
	report, err := svc.Import(ctx, rows, "")
	if err != nil {
		t.Fatal(err)
	}
	// 2 + 2 + trailing 1, all committed.
	if report.Inserted != 5 {
		t.Fatalf("inserted = %d, want 5", report.Inserted)
	}

	cash, err := store.GetAccountByName(ctx, "Cash")
	if err != nil {
		t.Fatal(err)
	}
	sum, err := store.SumAccountTransactions(ctx, cash.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if !sum.Equal(dec(t, "5.00")) {
		t.Fatalf("imported sum = %s, want 5.00", sum)
	}
}

func TestImportUnknownAccountFailsRun(t *testing.T) {
	ctx := context.Background()
	_, svc := newImportFixture(t)

	_, err := svc.Import(ctx, []Row{{Line: 2, Date: "2024-01-01", Description: "x", Amount: "1"}}, "Nope")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not-found for unknown account, got %v", err)
	}
}

func TestParseCSV(t *testing.T) {
	input := strings.Join([]string{
		"Transaction Date,Description,Amount,Category",
		"2024-01-05,Salary,2000.00,Income",
		"2024-01-06,Groceries,-54.30,",
		"2024-01-07,Coffee,-3.50,Food",
	}, "\n")

	rows, err := ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0].Line != 2 || rows[0].Date != "2024-01-05" || rows[0].Category != "Income" {
		t.Errorf("first row wrong: %+v", rows[0])
	}
	if rows[1].Category != "" {
		t.Errorf("blank category should stay blank, got %q", rows[1].Category)
	}
}

func TestParseCSVAlternateHeader(t *testing.T) {
	input := "Date,Description,Amount\n01/15/2024,Lunch,-12.00\n"
	rows, err := ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Date != "01/15/2024" || rows[0].Category != "" {
		t.Fatalf("rows wrong: %+v", rows)
	}
}

func TestParseCSVShortRecord(t *testing.T) {
	// A record with fewer fields than the header still comes back as a
	// row, with the missing columns blank so Import can report it.
	input := "Date,Description,Amount\n2024-01-05,OnlyTwo\n"
	rows, err := ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Amount != "" || rows[0].Description != "OnlyTwo" {
		t.Fatalf("rows wrong: %+v", rows)
	}
}

func TestParseCSVMissingColumn(t *testing.T) {
	input := "Date,Description\n2024-01-05,NoAmount\n"
	if _, err := ParseCSV(strings.NewReader(input)); !errors.Is(err, core.ErrInvalidValue) {
		t.Fatalf("expected invalid-value for missing column, got %v", err)
	}
}

func TestParseCSVEmptyFile(t *testing.T) {
	if _, err := ParseCSV(strings.NewReader("")); !errors.Is(err, core.ErrInvalidValue) {
		t.Fatalf("expected invalid-value for empty file, got %v", err)
	}
}
