// Package types contains the leaderboard table shape shared by the API,
// the CLI and CSV exports.
package types

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/tutorboard/internal/domain/model"
)

// Columns lists the output columns in export order.
var Columns = []string{
	"rank",
	"display_name",
	"student_code",
	"level",
	"total_marks",
	"assignments_completed",
	"average_score",
	"last_activity",
}

// Entry represents a leaderboard row.
type Entry struct {
	Rank                 int        `json:"rank" csv:"rank"`
	DisplayName          string     `json:"display_name" csv:"display_name"`
	StudentCode          string     `json:"student_code" csv:"student_code"`
	Level                string     `json:"level" csv:"level"`
	TotalMarks           float64    `json:"total_marks" csv:"total_marks"`
	AssignmentsCompleted int        `json:"assignments_completed" csv:"assignments_completed"`
	AverageScore         Average    `json:"average_score" csv:"average_score"`
	LastActivity         model.Date `json:"last_activity" csv:"last_activity"`
}

// FromAggregate builds an unranked row from a student aggregate.
func FromAggregate(a model.StudentAggregate) Entry {
	return Entry{
		DisplayName:          a.DisplayName,
		StudentCode:          a.StudentCode,
		Level:                a.Level,
		TotalMarks:           a.TotalMarks,
		AssignmentsCompleted: a.AssignmentsCompleted,
		AverageScore:         Average(a.AverageScore),
		LastActivity:         a.LastActivity,
	}
}

// Average is a mean score already rounded to two decimals.
// It always renders with exactly two decimals in CSV.
type Average float64

// MarshalCSV formats the average with two decimals.
func (a Average) MarshalCSV() (string, error) {
	return strconv.FormatFloat(float64(a), 'f', 2, 64), nil
}

// UnmarshalCSV parses a decimal cell.
func (a *Average) UnmarshalCSV(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*a = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid average %q: %w", s, err)
	}
	*a = Average(v)
	return nil
}
