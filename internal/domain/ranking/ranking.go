// Package ranking applies the qualification rule and orders students into
// leaderboard rows.
package ranking

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/okian/tutorboard/internal/domain/model"
	"github.com/okian/tutorboard/internal/domain/types"
)

// Query selects a leaderboard view.
type Query struct {
	// Level restricts the view to one cohort; empty means all levels.
	Level string
	// MinAssignments is the qualification threshold. Values below 1 count as 1.
	MinAssignments int
	// TopN truncates the view; zero or negative keeps every row.
	TopN int
}

// Rank filters aggregates by level and qualification, orders them by total
// marks and then by last activity (both descending, Missing last) and
// assigns positional ranks. Equal keys keep their input order.
func Rank(aggs []model.StudentAggregate, q Query) []types.Entry {
	level := NormalizeLevel(q.Level)
	minAssignments := max(q.MinAssignments, 1)

	kept := make([]model.StudentAggregate, 0, len(aggs))
	for _, a := range aggs {
		if level != "" && a.Level != level {
			continue
		}
		if a.AssignmentsCompleted < minAssignments {
			continue
		}
		kept = append(kept, a)
	}

	slices.SortStableFunc(kept, func(a, b model.StudentAggregate) int {
		if c := cmp.Compare(b.TotalMarks, a.TotalMarks); c != 0 {
			return c
		}
		return b.LastActivity.Compare(a.LastActivity)
	})

	if q.TopN > 0 && len(kept) > q.TopN {
		kept = kept[:q.TopN]
	}

	entries := make([]types.Entry, len(kept))
	for i, a := range kept {
		entries[i] = types.FromAggregate(a)
		entries[i].Rank = i + 1
	}
	return entries
}

// Levels lists the distinct non-empty levels in ascending order.
func Levels(records []model.Record) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, r := range records {
		lvl := NormalizeLevel(r.Level)
		if lvl == "" {
			continue
		}
		if _, ok := seen[lvl]; ok {
			continue
		}
		seen[lvl] = struct{}{}
		out = append(out, lvl)
	}
	slices.Sort(out)
	return out
}

// NormalizeLevel trims and uppercases a level name.
func NormalizeLevel(level string) string {
	return strings.ToUpper(strings.TrimSpace(level))
}

// Filter narrows the attempts considered before deduplication.
type Filter struct {
	// From is inclusive; the zero time leaves the window open.
	From time.Time
	// To is exclusive; the zero time leaves the window open.
	To time.Time
	// Search matches a case-insensitive substring of the name or code.
	Search string
}

// DayLayout is the format of filter bounds given as text.
const DayLayout = "2006-01-02"

// ParseFilter builds a Filter from YYYY-MM-DD bounds and a search term.
// Empty bounds leave the window open; from must precede to.
func ParseFilter(from, to, search string) (Filter, error) {
	var (
		f   Filter
		err error
	)
	if f.From, err = parseDay("from", from); err != nil {
		return Filter{}, err
	}
	if f.To, err = parseDay("to", to); err != nil {
		return Filter{}, err
	}
	if !f.From.IsZero() && !f.To.IsZero() && !f.From.Before(f.To) {
		return Filter{}, fmt.Errorf("%w: from must be before to", ErrInvalidFilter)
	}
	f.Search = strings.TrimSpace(search)
	return f, nil
}

func parseDay(name, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(DayLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %q must be YYYY-MM-DD", ErrInvalidFilter, name, raw)
	}
	return t, nil
}

// IsZero reports whether the filter keeps every record.
func (f Filter) IsZero() bool {
	return f.From.IsZero() && f.To.IsZero() && strings.TrimSpace(f.Search) == ""
}

// Apply returns the records that pass the filter. Records without a date
// are dropped once either window bound is set.
func (f Filter) Apply(records []model.Record) []model.Record {
	if f.IsZero() {
		return records
	}
	needle := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]model.Record, 0, len(records))
	for _, r := range records {
		if !f.From.IsZero() || !f.To.IsZero() {
			if r.Date.IsMissing() {
				continue
			}
			if !f.From.IsZero() && r.Date.Time.Before(f.From) {
				continue
			}
			if !f.To.IsZero() && !r.Date.Time.Before(f.To) {
				continue
			}
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(r.Name), needle) &&
			!strings.Contains(r.StudentCode, needle) {
			continue
		}
		out = append(out, r)
	}
	return out
}
