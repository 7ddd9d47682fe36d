// Package model contains domain models passed between pipeline stages.
package model

// Record is one normalized attempt read from the score sheet.
// StudentCode and Assignment are never empty once a record leaves the
// normalizer.
type Record struct {
	StudentCode string  // trimmed, lowercased
	Name        string  // trimmed, may be empty
	Assignment  string  // trimmed original title, shown to operators
	Score       float64 // 0 when the cell was missing or not numeric
	Level       string  // trimmed, uppercased, may be empty
	Date        Date    // submission date or Missing
	Comments    string
	Link        string
}

// StudentAggregate summarizes the kept attempts of a single student.
type StudentAggregate struct {
	StudentCode          string
	DisplayName          string
	Level                string
	TotalMarks           float64
	AverageScore         float64
	AssignmentsCompleted int
	LastActivity         Date
}
