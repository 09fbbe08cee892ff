package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want Date
		ok   bool
	}{
		{"2024-01-05", NewDate(2024, 1, 5), true},
		{"01/05/2024", NewDate(2024, 1, 5), true},
		{" 2024-12-31 ", NewDate(2024, 12, 31), true},
		{"2024-13-01", Date{}, false},
		{"31/12/2024", Date{}, false},
		{"yesterday", Date{}, false},
		{"", Date{}, false},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(tc.want.Time) {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.want, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
			if !errors.Is(err, ErrInvalidValue) {
				t.Fatalf("%q error should match ErrInvalidValue, got %v", tc.in, err)
			}
		}
	}
}

func TestDateAfter(t *testing.T) {
	snap := time.Date(2024, 1, 1, 15, 30, 0, 0, time.UTC)
	if NewDate(2024, 1, 1).After(snap) {
		t.Error("same-day date should not count as after an intraday snapshot")
	}
	if !NewDate(2024, 1, 5).After(snap) {
		t.Error("later date should count as after the snapshot")
	}
}

func TestValidateName(t *testing.T) {
	if err := ValidateName("Checking"); err != nil {
		t.Fatalf("valid name rejected: %v", err)
	}
	if err := ValidateName("   "); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("blank name should be invalid, got %v", err)
	}
}

func TestIsReservedCategory(t *testing.T) {
	for _, name := range []string{"Uncategorized", "uncategorized", " UNCATEGORIZED "} {
		if !IsReservedCategory(name) {
			t.Errorf("%q should be reserved", name)
		}
	}
	if IsReservedCategory("Groceries") {
		t.Error("Groceries should not be reserved")
	}
}

func TestTransactionValidate(t *testing.T) {
	valid := Transaction{
		Date:        NewDate(2024, 1, 5),
		Description: "coffee",
		Amount:      decimal.NewFromInt(-4),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid transaction rejected: %v", err)
	}

	t.Run("zero date", func(t *testing.T) {
		tx := valid
		tx.Date = Date{}
		if err := tx.Validate(); !errors.Is(err, ErrInvalidValue) {
			t.Fatalf("expected invalid-value, got %v", err)
		}
	})

	t.Run("blank description", func(t *testing.T) {
		tx := valid
		tx.Description = "  "
		if err := tx.Validate(); !errors.Is(err, ErrEmptyDescription) {
			t.Fatalf("expected empty-description, got %v", err)
		}
	})
}
