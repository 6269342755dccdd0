package core

import (
	"sort"
	"strings"
)

const (
	// OrderChronological sorts report rows by calendar month.
	OrderChronological ReportOrder = "chronological"
	// OrderLexical sorts report rows by the month label string, so
	// "April 2025" precedes "January 2025".
	OrderLexical ReportOrder = "lexical"
)

type ReportOrder string

// ReportRow is the total of one category in one month.
type ReportRow struct {
	Month    string   `json:"month"`
	Category Category `json:"category"`
	Total    Money    `json:"total"`
	Period   int      `json:"-"`
}

// ParseReportOrder maps a query value to an order; empty means chronological.
func ParseReportOrder(s string) (ReportOrder, error) {
	switch ReportOrder(strings.ToLower(strings.TrimSpace(s))) {
	case "", OrderChronological:
		return OrderChronological, nil
	case OrderLexical:
		return OrderLexical, nil
	default:
		return "", ErrInvalidOrder
	}
}

// SortReport orders rows by month (per order) and then by category name.
func SortReport(rows []ReportRow, order ReportOrder) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if order == OrderLexical {
			if a.Month != b.Month {
				return a.Month < b.Month
			}
		} else if pa, pb := a.period(), b.period(); pa != pb {
			return pa < pb
		}
		return a.Category < b.Category
	})
}

func (r ReportRow) period() int {
	if r.Period != 0 {
		return r.Period
	}
	if m, err := ParseMonthLabel(r.Month); err == nil {
		return m.Period()
	}
	return 0
}
