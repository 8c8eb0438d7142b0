package convert

import (
	"fmt"
	"strings"
	"time"

	"github.com/conduit-lang/rowmap/internal/orm/ormerrors"
)

// DefaultDateLayouts are tried in order when parsing dates from text. The first
// entry is the canonical rendering of dates and timestamps as text.
var DefaultDateLayouts = []string{
	"01/02/2006",
	"01-02-2006",
	"01 02 2006",
	"Jan 02 2006",
	"02 Jan 2006",
	"02-Jan-2006",
	"02/Jan/2006",
	"02Jan2006",
	"2006/01/02",
	"2006-01-02",
	"2006 01 02",
	"20060102",
	"2006-01-02T15:04:05.000Z07:00",
	time.RFC3339,
	"1/2/2006",
	"1-2-2006",
	"Jan 2 2006",
	"2 Jan 2006",
	"2006/1/2",
	"2006-1-2",
}

// Date is a calendar date without time of day or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's location
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Time returns midnight UTC of the date
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// IsZero reports whether d is the zero date
func (d Date) IsZero() bool { return d == Date{} }

// Equal reports whether two dates denote the same day
func (d Date) Equal(other Date) bool { return d == other }

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// ParseDate parses s with the first matching layout. The wall-clock fields of
// the parsed value are kept and expressed in UTC.
func ParseDate(s string, layouts []string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: date %q matches none of %d layouts", ormerrors.ErrInvalidArgument, s, len(layouts))
}

func (r *Registry) registerDates() {
	r.Register(stringType, timeType, func(value interface{}) (interface{}, error) {
		s := value.(string)
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		return ParseDate(s, r.layouts)
	})
	Register(r, func(t time.Time) (string, error) {
		return t.Format(r.layouts[0]), nil
	})
	Register(r, func(s string) (Date, error) {
		t, err := ParseDate(s, r.layouts)
		if err != nil {
			return Date{}, err
		}
		return DateOf(t), nil
	})
	Register(r, func(d Date) (string, error) {
		return d.Time().Format(r.layouts[0]), nil
	})
	Register(r, func(t time.Time) (Date, error) { return DateOf(t), nil })
	Register(r, func(d Date) (time.Time, error) { return d.Time(), nil })
}
