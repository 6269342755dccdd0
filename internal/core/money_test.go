package core

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMoneyFromDecimal(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"0.01", 1, true},
		{"1", 100, true},
		{"12.34", 1234, true},
		{"12.340", 1234, true},
		{"1000000000000", 100000000000000, true},
		{"0", 0, false},
		{"-5", 0, false},
		{"0.005", 0, false},
		{"0.0099", 0, false},
		{"12.345", 0, false},
		{"1.001", 0, false},
		{"1000000000000.01", 0, false},
	}
	for _, tc := range cases {
		got, err := MoneyFromDecimal(decimal.RequireFromString(tc.in))
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%s: expected %d cents, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%s: expected ErrInvalidAmount, got %v", tc.in, err)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(Money{Cents: 1250})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != "12.5" {
		t.Fatalf("expected bare number 12.5, got %s", b)
	}
	if s := (Money{Cents: 90000}).String(); s != "900.00" {
		t.Fatalf("String() = %q", s)
	}
}
