package types

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
)

// WriteCSV writes entries as UTF-8 comma separated values. The header row
// is always written, even for an empty table.
func WriteCSV(w io.Writer, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	if err := gocsv.Marshal(entries, w); err != nil {
		return fmt.Errorf("marshal leaderboard csv: %w", err)
	}
	return nil
}

// MarshalCSV renders entries into a byte slice.
func MarshalCSV(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadCSV parses a table previously produced by WriteCSV.
func ReadCSV(r io.Reader) ([]Entry, error) {
	var out []Entry
	if err := gocsv.Unmarshal(r, &out); err != nil {
		return nil, fmt.Errorf("unmarshal leaderboard csv: %w", err)
	}
	return out, nil
}

// ExportFilename names the CSV download of a level view.
func ExportFilename(level string) string {
	level = strings.ToUpper(strings.TrimSpace(level))
	if level == "" {
		return "leaderboard_all_levels.csv"
	}
	return "leaderboard_" + level + ".csv"
}
