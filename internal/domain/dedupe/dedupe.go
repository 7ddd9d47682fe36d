// Package dedupe keeps one representative attempt per student and
// assignment.
package dedupe

import (
	"cmp"
	"slices"

	"github.com/okian/tutorboard/internal/domain/canon"
	"github.com/okian/tutorboard/internal/domain/model"
)

// groupKey identifies the attempts that compete with each other.
type groupKey struct {
	student    string
	assignment canon.Key
}

// Latest returns one record per (student, canonical assignment).
//
// Records are stably sorted by date ascending (Missing first) and then by
// score ascending; the last record of each group is kept. A later date
// wins, a higher score breaks a same-date tie, and exact ties go to the
// later input row. The output keeps that sorted order.
func Latest(records []model.Record) []model.Record {
	if len(records) == 0 {
		return nil
	}

	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, byDateThenScore)

	last := make(map[groupKey]int, len(sorted))
	for i, r := range sorted {
		last[groupKey{student: r.StudentCode, assignment: canon.Of(r.Assignment)}] = i
	}

	out := make([]model.Record, 0, len(last))
	for i, r := range sorted {
		if last[groupKey{student: r.StudentCode, assignment: canon.Of(r.Assignment)}] == i {
			out = append(out, r)
		}
	}
	return out
}

func byDateThenScore(a, b model.Record) int {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c
	}
	return cmp.Compare(a.Score, b.Score)
}
