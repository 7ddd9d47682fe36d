// Package scoring aggregates deduplicated attempts into per-student
// totals.
package scoring

import (
	"math"
	"slices"
	"strings"

	"github.com/okian/tutorboard/internal/domain/canon"
	"github.com/okian/tutorboard/internal/domain/model"
)

// Aggregate summarizes records per student. Records are expected to be the
// output of dedupe.Latest; their order decides mode tie-breaks. The result
// is sorted by ascending student code.
func Aggregate(records []model.Record) []model.StudentAggregate {
	groups := make(map[string][]model.Record)
	var codes []string
	for _, r := range records {
		if _, ok := groups[r.StudentCode]; !ok {
			codes = append(codes, r.StudentCode)
		}
		groups[r.StudentCode] = append(groups[r.StudentCode], r)
	}
	slices.Sort(codes)

	out := make([]model.StudentAggregate, 0, len(codes))
	for _, code := range codes {
		out = append(out, summarize(code, groups[code]))
	}
	return out
}

func summarize(code string, group []model.Record) model.StudentAggregate {
	agg := model.StudentAggregate{
		StudentCode:  code,
		LastActivity: model.Missing(),
	}

	keys := make(map[canon.Key]struct{}, len(group))
	names := make([]string, 0, len(group))
	levels := make([]string, 0, len(group))
	for _, r := range group {
		agg.TotalMarks += r.Score
		keys[canon.Of(r.Assignment)] = struct{}{}
		if r.Date.After(agg.LastActivity) {
			agg.LastActivity = r.Date
		}
		names = append(names, r.Name)
		levels = append(levels, r.Level)
	}

	agg.AssignmentsCompleted = len(keys)
	agg.AverageScore = RoundCents(agg.TotalMarks / float64(len(group)))
	agg.DisplayName = Mode(names)
	agg.Level = Mode(levels)
	return agg
}

// RoundCents rounds half to even at two decimals.
func RoundCents(x float64) float64 {
	return math.RoundToEven(x*100) / 100
}

// Mode returns the most frequent non-empty value. Ties go to the value that
// appeared first. It returns "" when every value is empty.
func Mode(values []string) string {
	counts := make(map[string]int, len(values))
	best, bestCount := "", 0
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		counts[v]++
	}
	for _, v := range values {
		if c := counts[v]; c > bestCount {
			best, bestCount = v, c
		}
	}
	return best
}
