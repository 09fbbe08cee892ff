// Command budget is a personal finance tracker: accounts, categories,
// a transaction ledger, CSV import, and point-in-time balance
// snapshots from which current balances are derived.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"budget/internal/cache"
	"budget/internal/cli"
	"budget/internal/core"
	"budget/internal/services"
	"budget/internal/storage"
)

const usage = `Usage: budget <command> [arguments]

Commands:
  accounts                       balance sheet for all accounts
  account add <name>             create an account
  account rename <old> <new>     rename an account
  account delete <name>          delete an account without activity
  categories                     list categories
  category add <name>            create a category
  category rename <old> <new>    rename a category
  category delete <name>         delete an unused category
  tx add                         record a transaction (see tx add -h)
  tx list                        list transactions (see tx list -h)
  tx delete <id>                 delete a transaction
  import [-account name] <file>  import a bank-export CSV
  snapshot create                record balances (see snapshot create -h)
  snapshot list                  list snapshots, newest first
  snapshot show <id>             show one snapshot's entries
  snapshot delete <id>           delete a snapshot and its entries
`

type app struct {
	store     *storage.Store
	ledger    *services.LedgerService
	snapshots *services.SnapshotService
	importer  *services.ImportService
}

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("info")
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel)

	store := cli.InitStore(logger, cfg.DBPath)
	defer store.Close()

	ctx, cancel := cli.SignalContext()
	defer cancel()

	if _, err := services.NewSeedService(store).EnsureDefaults(ctx); err != nil {
		fatal(err)
	}

	balances := cache.NewBalanceCache(cfg.BalanceCacheSize, cfg.BalanceCacheTTL)
	a := &app{
		store:     store,
		ledger:    services.NewLedgerService(store, balances),
		snapshots: services.NewSnapshotService(store, balances),
		importer:  services.NewImportService(store, balances, cfg.ImportBatchSize, cfg.ImportAccount),
	}

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "accounts":
		err = a.balanceSheet(ctx)
	case "account":
		err = a.accountCmd(ctx, os.Args[2:])
	case "categories":
		err = a.listCategories(ctx)
	case "category":
		err = a.categoryCmd(ctx, os.Args[2:])
	case "tx":
		err = a.txCmd(ctx, os.Args[2:])
	case "import":
		err = a.importCmd(ctx, os.Args[2:])
	case "snapshot":
		err = a.snapshotCmd(ctx, os.Args[2:])
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "budget: unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "budget: %v\n", err)
	os.Exit(1)
}

func (a *app) balanceSheet(ctx context.Context) error {
	sheet, err := a.snapshots.BalanceSheet(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tCURRENT\tLAST SNAPSHOT\tAS OF")
	total := decimal.Zero
	for _, row := range sheet {
		lastKnown, asOf := "N/A", "N/A"
		if row.HasHistory {
			lastKnown = core.FormatAmount(row.LastKnown)
			asOf = row.LastSnapshotAt.UTC().Format("2006-01-02")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			row.Account.Name, core.FormatAmount(row.Current), lastKnown, asOf)
		total = total.Add(row.Current)
	}
	fmt.Fprintf(w, "TOTAL\t%s\t\t\n", core.FormatAmount(total))
	return w.Flush()
}

func (a *app) accountCmd(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: budget account add|rename|delete <name> ...")
	}
	switch args[0] {
	case "add":
		account, err := a.store.CreateAccount(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("created account %q (id %d)\n", account.Name, account.ID)
		return nil
	case "rename":
		if len(args) < 3 {
			return fmt.Errorf("usage: budget account rename <old> <new>")
		}
		account, err := a.store.GetAccountByName(ctx, args[1])
		if err != nil {
			return err
		}
		if err := a.store.RenameAccount(ctx, account.ID, args[2]); err != nil {
			return err
		}
		fmt.Printf("renamed account %q to %q\n", args[1], args[2])
		return nil
	case "delete":
		account, err := a.store.GetAccountByName(ctx, args[1])
		if err != nil {
			return err
		}
		if err := a.store.DeleteAccount(ctx, account.ID); err != nil {
			return err
		}
		fmt.Printf("deleted account %q\n", account.Name)
		return nil
	}
	return fmt.Errorf("unknown account subcommand %q", args[0])
}

func (a *app) listCategories(ctx context.Context) error {
	categories, err := a.store.ListCategories(ctx)
	if err != nil {
		return err
	}
	for _, category := range categories {
		fmt.Println(category.Name)
	}
	return nil
}

func (a *app) categoryCmd(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: budget category add|rename|delete <name> ...")
	}
	switch args[0] {
	case "add":
		category, err := a.store.CreateCategory(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("created category %q (id %d)\n", category.Name, category.ID)
		return nil
	case "rename":
		if len(args) < 3 {
			return fmt.Errorf("usage: budget category rename <old> <new>")
		}
		category, err := a.store.GetCategoryByName(ctx, args[1])
		if err != nil {
			return err
		}
		if err := a.store.RenameCategory(ctx, category.ID, args[2]); err != nil {
			return err
		}
		fmt.Printf("renamed category %q to %q\n", args[1], args[2])
		return nil
	case "delete":
		category, err := a.store.GetCategoryByName(ctx, args[1])
		if err != nil {
			return err
		}
		if err := a.store.DeleteCategory(ctx, category.ID); err != nil {
			return err
		}
		fmt.Printf("deleted category %q\n", category.Name)
		return nil
	}
	return fmt.Errorf("unknown category subcommand %q", args[0])
}

func (a *app) txCmd(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: budget tx add|list|delete ...")
	}
	switch args[0] {
	case "add":
		return a.txAdd(ctx, args[1:])
	case "list":
		return a.txList(ctx, args[1:])
	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("usage: budget tx delete <id>")
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("transaction id must be a number: %w", err)
		}
		if err := a.ledger.DeleteTransaction(ctx, id); err != nil {
			return err
		}
		fmt.Printf("deleted transaction %d\n", id)
		return nil
	}
	return fmt.Errorf("unknown tx subcommand %q", args[0])
}

func (a *app) txAdd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("tx add", flag.ExitOnError)
	date := fs.String("date", time.Now().Format("2006-01-02"), "transaction date (YYYY-MM-DD)")
	description := fs.String("desc", "", "description (required)")
	amountStr := fs.String("amount", "", "signed amount, e.g. -12.50 (required)")
	categoryName := fs.String("category", "", "category name (optional)")
	accountName := fs.String("account", "", "account name (optional)")
	notes := fs.String("notes", "", "free-form notes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	parsedDate, err := core.ParseDate(*date)
	if err != nil {
		return err
	}
	amount, err := core.ParseAmount(*amountStr)
	if err != nil {
		return err
	}

	t := core.Transaction{
		Date:        parsedDate,
		Description: *description,
		Amount:      amount,
		Notes:       *notes,
	}
	if *categoryName != "" {
		category, err := a.store.GetCategoryByName(ctx, *categoryName)
		if err != nil {
			return err
		}
		t.CategoryID = &category.ID
	}
	if *accountName != "" {
		account, err := a.store.GetAccountByName(ctx, *accountName)
		if err != nil {
			return err
		}
		t.AccountID = &account.ID
	}

	created, err := a.ledger.CreateTransaction(ctx, t)
	if err != nil {
		return err
	}
	fmt.Printf("recorded transaction %d: %s %s %q\n",
		created.ID, created.Date, core.FormatAmount(created.Amount), created.Description)
	return nil
}

func (a *app) txList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("tx list", flag.ExitOnError)
	accountName := fs.String("account", "", "only this account's transactions")
	categoryName := fs.String("category", "", "only this category's transactions")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		txs []core.Transaction
		err error
	)
	switch {
	case *accountName != "":
		var account core.Account
		if account, err = a.store.GetAccountByName(ctx, *accountName); err == nil {
			txs, err = a.store.TransactionsForAccount(ctx, account.ID)
		}
	case *categoryName != "":
		var category core.Category
		if category, err = a.store.GetCategoryByName(ctx, *categoryName); err == nil {
			txs, err = a.store.TransactionsForCategory(ctx, category.ID)
		}
	default:
		txs, err = a.store.ListTransactions(ctx)
	}
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tAMOUNT\tDESCRIPTION")
	for _, t := range txs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", t.ID, t.Date, core.FormatAmount(t.Amount), t.Description)
	}
	return w.Flush()
}

func (a *app) importCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	accountName := fs.String("account", "", "target account (defaults to IMPORT_ACCOUNT)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: budget import [-account name] <file.csv>")
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	rows, err := services.ParseCSV(f)
	if err != nil {
		return err
	}
	report, err := a.importer.Import(ctx, rows, *accountName)
	if err != nil {
		return err
	}

	fmt.Printf("imported %d transaction(s), skipped %d (run %s)\n",
		report.Inserted, len(report.Skipped), report.RunID)
	for _, skipped := range report.Skipped {
		fmt.Printf("  line %d: %s\n", skipped.Line, skipped.Reason)
	}
	return nil
}

// balanceArgs collects repeated -set Account=Amount flags.
type balanceArgs map[string]string

func (b balanceArgs) String() string { return fmt.Sprintf("%v", map[string]string(b)) }

func (b balanceArgs) Set(value string) error {
	name, amount, ok := strings.Cut(value, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return fmt.Errorf("expected Account=Amount, got %q", value)
	}
	b[strings.TrimSpace(name)] = strings.TrimSpace(amount)
	return nil
}

func (a *app) snapshotCmd(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: budget snapshot create|list|show|delete ...")
	}
	switch args[0] {
	case "create":
		return a.snapshotCreate(ctx, args[1:])
	case "list":
		return a.snapshotList(ctx)
	case "show":
		if len(args) < 2 {
			return fmt.Errorf("usage: budget snapshot show <id>")
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("snapshot id must be a number: %w", err)
		}
		return a.snapshotShow(ctx, id)
	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("usage: budget snapshot delete <id>")
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("snapshot id must be a number: %w", err)
		}
		if err := a.snapshots.DeleteSnapshot(ctx, id); err != nil {
			return err
		}
		fmt.Printf("deleted snapshot %d\n", id)
		return nil
	}
	return fmt.Errorf("unknown snapshot subcommand %q", args[0])
}

func (a *app) snapshotCreate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("snapshot create", flag.ExitOnError)
	set := balanceArgs{}
	fs.Var(set, "set", "account balance as Account=Amount (repeat for every account)")
	notes := fs.String("notes", "", "free-form notes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	balances := make(map[int64]decimal.Decimal, len(set))
	for name, amountStr := range set {
		account, err := a.store.GetAccountByName(ctx, name)
		if err != nil {
			return fmt.Errorf("account %q: %w", name, err)
		}
		amount, err := core.ParseAmount(amountStr)
		if err != nil {
			return fmt.Errorf("balance for %q: %w", name, err)
		}
		balances[account.ID] = amount
	}

	snapshot, err := a.snapshots.CreateSnapshot(ctx, balances, *notes)
	if err != nil {
		return err
	}
	fmt.Printf("created snapshot %d at %s\n",
		snapshot.ID, snapshot.Timestamp.UTC().Format(time.RFC3339))
	return nil
}

func (a *app) snapshotList(ctx context.Context) error {
	snapshots, err := a.snapshots.ListSnapshots(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIMESTAMP\tNOTES")
	for _, s := range snapshots {
		fmt.Fprintf(w, "%d\t%s\t%s\n", s.ID, s.Timestamp.UTC().Format(time.RFC3339), s.Notes)
	}
	return w.Flush()
}

func (a *app) snapshotShow(ctx context.Context, id int64) error {
	snapshot, err := a.store.GetSnapshot(ctx, id)
	if err != nil {
		return err
	}
	entries, err := a.snapshots.SnapshotEntries(ctx, id)
	if err != nil {
		return err
	}

	fmt.Printf("snapshot %d at %s", snapshot.ID, snapshot.Timestamp.UTC().Format(time.RFC3339))
	if snapshot.Notes != "" {
		fmt.Printf(" (%s)", snapshot.Notes)
	}
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	total := decimal.Zero
	for _, entry := range entries {
		account, err := a.store.GetAccount(ctx, entry.AccountID)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\n", account.Name, core.FormatAmount(entry.Balance))
		total = total.Add(entry.Balance)
	}
	fmt.Fprintf(w, "TOTAL\t%s\n", core.FormatAmount(total))
	return w.Flush()
}
