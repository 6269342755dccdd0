package core

import (
	"errors"
	"testing"
)

func TestParseMonthLabelNormalizes(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"January 2025", "January 2025"},
		{"january 2025", "January 2025"},
		{"JANUARY 2025", "January 2025"},
		{"  March   2024 ", "March 2024"},
		{"Feb-2025", "February 2025"},
		{"sep/2023", "September 2023"},
		{"Sept 2023", "September 2023"},
		{"december, 1999", "December 1999"},
		{"Dec_2030", "December 2030"},
	}
	for _, tc := range cases {
		m, err := ParseMonthLabel(tc.in)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", tc.in, err)
		}
		if got := m.String(); got != tc.want {
			t.Fatalf("%q: expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestParseMonthLabelRejects(t *testing.T) {
	for _, in := range []string{
		"",
		"2025",
		"January",
		"2025 January",
		"Janvier 2025",
		"January 25",
		"January 20255",
		"January 0999",
		"13 2025",
		"January 2025 extra",
	} {
		if _, err := ParseMonthLabel(in); !errors.Is(err, ErrInvalidMonth) {
			t.Fatalf("%q: expected ErrInvalidMonth, got %v", in, err)
		}
	}
}

func TestMonthLabelPeriod(t *testing.T) {
	m, err := ParseMonthLabel("October 2026")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.Period() != 202610 {
		t.Fatalf("expected period 202610, got %d", m.Period())
	}
}
