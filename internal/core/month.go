package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// MonthLabel is a calendar month in a given year. Its String form
// ("January 2025") is the canonical label stored and returned by the API.
type MonthLabel struct {
	Year  int
	Month time.Month
}

var monthNames = func() map[string]time.Month {
	names := make(map[string]time.Month, 25)
	for m := time.January; m <= time.December; m++ {
		full := strings.ToLower(m.String())
		names[full] = m
		names[full[:3]] = m
	}
	names["sept"] = time.September
	return names
}()

// ParseMonthLabel parses "<month name> <year>" where the month may be a full
// English name or a three-letter abbreviation in any case, and the tokens may
// be separated by any run of spaces or punctuation.
func ParseMonthLabel(s string) (MonthLabel, error) {
	fields := strings.FieldsFunc(strings.TrimSpace(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(fields) != 2 {
		return MonthLabel{}, ErrInvalidMonth
	}

	month, ok := monthNames[strings.ToLower(fields[0])]
	if !ok {
		return MonthLabel{}, ErrInvalidMonth
	}

	yearStr := fields[1]
	if len(yearStr) != 4 {
		return MonthLabel{}, ErrInvalidMonth
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil || year < 1000 {
		return MonthLabel{}, ErrInvalidMonth
	}

	return MonthLabel{Year: year, Month: month}, nil
}

func (m MonthLabel) String() string {
	return fmt.Sprintf("%s %04d", m.Month, m.Year)
}

// Period encodes the month as YYYYMM so it sorts chronologically.
func (m MonthLabel) Period() int {
	return m.Year*100 + int(m.Month)
}
