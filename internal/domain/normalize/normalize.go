// Package normalize turns the raw score sheet CSV into canonical records.
//
// The sheet is edited by hand, so the normalizer is forgiving: headers are
// matched case-insensitively, unknown columns are ignored, unreadable
// scores become 0 and unreadable dates become Missing. Only rows without a
// student code or an assignment title are dropped.
package normalize

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/okian/tutorboard/internal/domain/model"
)

// Canonical field names recognized in the header row.
const (
	FieldStudentCode = "studentcode"
	FieldName        = "name"
	FieldAssignment  = "assignment"
	FieldScore       = "score"
	FieldComments    = "comments"
	FieldDate        = "date"
	FieldLevel       = "level"
	FieldLink        = "link"
)

// Fields lists every canonical field.
var Fields = []string{
	FieldStudentCode,
	FieldName,
	FieldAssignment,
	FieldScore,
	FieldComments,
	FieldDate,
	FieldLevel,
	FieldLink,
}

// Stats describes what a normalization pass saw.
type Stats struct {
	RowsRead    int
	RowsKept    int
	RowsDropped int
}

// Result is the output of Normalize.
type Result struct {
	Records []model.Record
	Stats   Stats
}

// Normalize parses raw CSV bytes and returns the valid canonical records in
// sheet order. An empty body yields an empty result. A CSV syntax error is
// reported as ErrMalformed.
func Normalize(raw []byte) (Result, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Result{}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("%w: header: %w", ErrMalformed, err)
	}
	index := headerIndex(header)

	var res Result
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		if blankRow(row) {
			continue
		}
		res.Stats.RowsRead++

		rec, ok := FromRow(index, row)
		if !ok {
			res.Stats.RowsDropped++
			continue
		}
		res.Records = append(res.Records, rec)
	}
	res.Stats.RowsKept = len(res.Records)
	return res, nil
}

// Index maps canonical field names to column positions.
type Index map[string]int

// headerIndex builds a case-insensitive index over trimmed header names.
// When a header repeats, the first column wins.
func headerIndex(header []string) Index {
	known := make(map[string]struct{}, len(Fields))
	for _, f := range Fields {
		known[f] = struct{}{}
	}
	idx := make(Index, len(Fields))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, ok := known[name]; !ok {
			continue
		}
		if _, seen := idx[name]; !seen {
			idx[name] = i
		}
	}
	return idx
}

// IndexOf builds an Index from a header row.
func IndexOf(header []string) Index { return headerIndex(header) }

// cell returns the trimmed value of a field, or "" when the field is absent
// or holds a missing token.
func (idx Index) cell(row []string, field string) string {
	i, ok := idx[field]
	if !ok || i >= len(row) {
		return ""
	}
	v := strings.TrimSpace(row[i])
	if isMissingToken(v) {
		return ""
	}
	return v
}

// FromRow coerces a single row. It reports false when the row lacks a
// student code or an assignment title.
func FromRow(idx Index, row []string) (model.Record, bool) {
	rec := model.Record{
		StudentCode: strings.ToLower(idx.cell(row, FieldStudentCode)),
		Name:        idx.cell(row, FieldName),
		Assignment:  idx.cell(row, FieldAssignment),
		Score:       parseScore(idx.cell(row, FieldScore)),
		Level:       strings.ToUpper(idx.cell(row, FieldLevel)),
		Date:        ParseDate(idx.cell(row, FieldDate)),
		Comments:    idx.cell(row, FieldComments),
		Link:        idx.cell(row, FieldLink),
	}
	if rec.StudentCode == "" || rec.Assignment == "" {
		return model.Record{}, false
	}
	return rec, true
}

// parseScore reads a numeric score; anything else, including NaN and
// infinities, counts as 0.
func parseScore(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// isMissingToken reports whether a trimmed cell stands for "no value".
func isMissingToken(s string) bool {
	switch s {
	case "", "nan", "NaN", "None":
		return true
	}
	return false
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
