package domain_test

import (
	"testing"

	"earnlog/internal/domain"

	"github.com/shopspring/decimal"
)

func TestCommission(t *testing.T) {
	tests := []struct {
		name  string
		sales string
		want  string
	}{
		{"zero", "0", "0"},
		{"negative", "-100", "0"},
		{"base tier upper edge", "5999", "59.99"},
		{"1.5% tier lower edge", "6000", "90"},
		{"1.5% tier upper edge", "7499.99", "112.49985"},
		{"2% tier lower edge", "7500", "150"},
		{"2% tier upper edge", "8499.99", "169.9998"},
		{"3% tier lower edge", "8500", "255"},
		{"3% tier upper edge", "9999.99", "299.9997"},
		{"4% tier lower edge", "10000", "400"},
		{"well above top tier", "25000", "1000"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := domain.Commission(decimal.RequireFromString(tc.sales))
			want := decimal.RequireFromString(tc.want)
			if !got.Equal(want) {
				t.Errorf("Commission(%s) = %s; want %s", tc.sales, got, want)
			}
		})
	}
}

func TestCommissionNonNegativeAndMonotonic(t *testing.T) {
	samples := []string{
		"-50", "0", "0.01", "1000", "5999", "5999.99", "6000", "6000.01",
		"7000", "7499.99", "7500", "8000", "8499.99", "8500", "9000",
		"9999.99", "10000", "10000.01", "50000",
	}
	prev := decimal.NewFromInt(-1)
	for _, s := range samples {
		c := domain.Commission(decimal.RequireFromString(s))
		if c.Sign() < 0 {
			t.Errorf("Commission(%s) = %s; want >= 0", s, c)
		}
		if c.LessThan(prev) {
			t.Errorf("Commission(%s) = %s dropped below previous %s", s, c, prev)
		}
		prev = c
	}
}

func TestCommissionDeterministic(t *testing.T) {
	s := decimal.RequireFromString("8765.43")
	first := domain.Commission(s)
	for i := 0; i < 5; i++ {
		if got := domain.Commission(s); !got.Equal(first) {
			t.Fatalf("Commission(%s) changed between calls: %s then %s", s, first, got)
		}
	}
}
