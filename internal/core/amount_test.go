package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.23", "1.23", true},
		{"-1.23", "-1.23", true},
		{"12,34", "12.34", true},
		{"1,234.56", "1234.56", true},
		{"$50.00", "50", true},
		{"-$20.00", "-20", true},
		{" 2.50 ", "2.5", true},
		{"0", "0", true},
		{"", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"$", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("%q unexpected error: %v", tc.in, err)
			}
			want, _ := decimal.NewFromString(tc.out)
			if !got.Equal(want) {
				t.Fatalf("%q expected %s, got %s", tc.in, want, got)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	d, _ := decimal.NewFromString("1030.5")
	if got := FormatAmount(d); got != "1030.50" {
		t.Fatalf("expected 1030.50, got %s", got)
	}
}
