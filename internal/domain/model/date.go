package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Rendering layouts for dates that leave the service.
const (
	DayLayout      = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// Date is either a timestamp or the distinguished Missing value.
// Missing orders before every timestamp.
type Date struct {
	Time  time.Time
	Valid bool
}

// Missing returns the absent date.
func Missing() Date { return Date{} }

// At wraps t as a present date.
func At(t time.Time) Date { return Date{Time: t, Valid: true} }

// Day builds a present date at midnight UTC.
func Day(year int, month time.Month, day int) Date {
	return At(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// IsMissing reports whether d carries no timestamp.
func (d Date) IsMissing() bool { return !d.Valid }

// Compare returns -1, 0 or +1. Missing compares less than any timestamp
// and equal to another Missing.
func (d Date) Compare(o Date) int {
	switch {
	case !d.Valid && !o.Valid:
		return 0
	case !d.Valid:
		return -1
	case !o.Valid:
		return 1
	}
	return d.Time.Compare(o.Time)
}

// After reports whether d is strictly later than o.
func (d Date) After(o Date) bool { return d.Compare(o) > 0 }

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }

// String renders the date as YYYY-MM-DD, adding the clock time when it is
// not midnight. Missing renders as the empty string.
func (d Date) String() string {
	if !d.Valid {
		return ""
	}
	t := d.Time
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(DayLayout)
	}
	return t.Format(DateTimeLayout)
}

// MarshalJSON renders Missing as null.
func (d Date) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// MarshalCSV renders Missing as an empty cell.
func (d Date) MarshalCSV() (string, error) {
	return d.String(), nil
}

// UnmarshalCSV accepts the layouts produced by MarshalCSV.
func (d *Date) UnmarshalCSV(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*d = Missing()
		return nil
	}
	for _, layout := range []string{DayLayout, DateTimeLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			*d = At(t)
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}
