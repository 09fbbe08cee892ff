package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCategoryName is the reserved fallback classification. It is
// seeded on first run and can never be renamed or deleted.
const DefaultCategoryName = "Uncategorized"

// DefaultAccountNames are seeded when the accounts table is empty.
var DefaultAccountNames = []string{"Cash", "Checking", "Savings", "Brokerage"}

// Recoverable error taxonomy. Callers classify with errors.Is; none of
// these should ever terminate the process.
var (
	ErrDuplicateName     = errors.New("duplicate name")
	ErrDanglingReference = errors.New("dangling reference")
	ErrInvalidValue      = errors.New("invalid value")
	ErrIncompleteInput   = errors.New("incomplete input")
	ErrNotFound          = errors.New("not found")
	ErrEntityReferenced  = errors.New("entity referenced")

	// ErrNoBalanceHistory marks an account that has no entry in any
	// snapshot. Distinct from ErrNotFound so the caller can render
	// "unknown" instead of a misleading zero.
	ErrNoBalanceHistory = errors.New("no balance history")
)

// Specific invalid-value cases, all matching ErrInvalidValue.
var (
	ErrInvalidAmount    = fmt.Errorf("%w: bad amount", ErrInvalidValue)
	ErrInvalidDate      = fmt.Errorf("%w: bad date", ErrInvalidValue)
	ErrEmptyName        = fmt.Errorf("%w: empty name", ErrInvalidValue)
	ErrEmptyDescription = fmt.Errorf("%w: empty description", ErrInvalidValue)
	ErrReservedName     = fmt.Errorf("%w: reserved name", ErrInvalidValue)
)

type (
	// Account is a named money-holding entity.
	Account struct {
		ID   int64
		Name string
	}

	// Category classifies transactions.
	Category struct {
		ID   int64
		Name string
	}

	// Transaction is a single ledger entry. Amount is signed: positive
	// for inflows, negative for outflows. Category and account links
	// are optional to tolerate unassigned imports.
	Transaction struct {
		ID          int64
		Date        Date
		Description string
		Amount      decimal.Decimal
		CategoryID  *int64
		AccountID   *int64
		Notes       string
	}

	// Snapshot is an immutable point-in-time checkpoint of all account
	// balances. Corrections are new snapshots, never edits.
	Snapshot struct {
		ID        int64
		Timestamp time.Time
		Notes     string
	}

	// SnapshotEntry records one account's balance within one snapshot.
	SnapshotEntry struct {
		ID         int64
		SnapshotID int64
		AccountID  int64
		Balance    decimal.Decimal
	}
)

// Date is a calendar date without a time component.
type Date struct {
	time.Time
}

// NewDate builds a Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts ISO (2024-01-31) and US (01/31/2024) layouts, the
// two formats bank exports actually use.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "01/02/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: t.UTC()}, nil
		}
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// After reports whether the date falls strictly after the given instant.
func (d Date) After(t time.Time) bool {
	return d.Time.After(t)
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

// ValidateName checks an account or category name before any write.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if len(name) > 100 {
		return fmt.Errorf("%w: name too long (max 100 characters)", ErrInvalidValue)
	}
	return nil
}

// IsReservedCategory reports whether a name collides with the default
// category, case-insensitively.
func IsReservedCategory(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), DefaultCategoryName)
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return fmt.Errorf("%w: description too long (max 200 characters)", ErrInvalidValue)
	}
	return nil
}
