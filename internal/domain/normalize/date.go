package normalize

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/okian/tutorboard/internal/domain/model"
)

// dateLayouts are tried in order; the first layout that consumes the
// whole cell wins. Day and month accept one or two digits.
var dateLayouts = []string{
	"1/2/2006",   // MM/DD/YYYY
	"2/1/2006",   // DD/MM/YYYY
	"2006-01-02", // YYYY-MM-DD
	"1/2/06",     // MM/DD/YY
	"2/1/06",     // DD/MM/YY
}

// ParseDate reads a submission date cell. Anything it cannot read is
// Missing; it never panics.
func ParseDate(s string) model.Date {
	s = strings.TrimSpace(s)
	if isMissingToken(s) {
		return model.Missing()
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.At(t)
		}
	}
	return parsePermissive(s)
}

func parsePermissive(s string) (d model.Date) {
	defer func() {
		if recover() != nil {
			d = model.Missing()
		}
	}()
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return model.Missing()
	}
	// Timestamps are kept in UTC at whole seconds so they survive a CSV
	// round trip.
	return model.At(t.UTC().Truncate(time.Second))
}
