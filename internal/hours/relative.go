package hours

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/golang-sql/civil"

	"github.com/City-of-Helsinki/hauki-sub000/internal/recurrence"
)

// ErrInvalidDate is returned for strings that are neither a date nor a
// relative shorthand.
var ErrInvalidDate = errors.New("hours: invalid date")

var relativeDatePattern = regexp.MustCompile(`^([-+]?)\s*(\d+)([dwmy])$`)

// ParseMaybeRelativeDate parses "today", an ISO date such as "2020-1-1", or
// a shorthand like "-1w" relative to today. Week, month and year shorthands
// snap to the start of the interval, or to its end when endDate is set.
func ParseMaybeRelativeDate(s string, endDate bool, today civil.Date) (civil.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return civil.Date{}, ErrInvalidDate
	}
	if s == "today" {
		return today, nil
	}

	if m := relativeDatePattern.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return civil.Date{}, fmt.Errorf("%w: %s", ErrInvalidDate, s)
		}
		if m[1] == "-" {
			n = -n
		}
		return shiftDate(today, n, m[3], endDate), nil
	}

	t, err := time.Parse("2006-1-2", s)
	if err != nil {
		return civil.Date{}, fmt.Errorf("%w: %s", ErrInvalidDate, s)
	}
	return civil.DateOf(t), nil
}

func shiftDate(today civil.Date, n int, unit string, endDate bool) civil.Date {
	switch unit {
	case "w":
		d := today.AddDays(7 * n)
		if endDate {
			return recurrence.MondayOnOrBefore(d).AddDays(6)
		}
		return recurrence.MondayOnOrBefore(d)
	case "m":
		first := civil.DateOf(time.Date(today.Year, today.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC))
		if endDate {
			return recurrence.LastOfMonth(first)
		}
		return first
	case "y":
		if endDate {
			return civil.Date{Year: today.Year + n, Month: time.December, Day: 31}
		}
		return civil.Date{Year: today.Year + n, Month: time.January, Day: 1}
	}
	return today.AddDays(n)
}
