package source

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver

	"github.com/okian/tutorboard/pkg/logger"
	"github.com/okian/tutorboard/pkg/metrics"
)

var identifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresSource reads the scores from a table instead of the spreadsheet.
// The tab name selects the table; the result is rendered as CSV with the
// column names as the header, so the normalizer treats both sources alike.
type PostgresSource struct {
	db      *sql.DB
	schema  string
	timeout time.Duration
}

// OpenPostgres connects through the pgx stdlib driver.
func OpenPostgres(url, schema string, timeout time.Duration) (*PostgresSource, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	src, err := NewPostgresSource(db, schema, timeout)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return src, nil
}

// NewPostgresSource wraps an open database handle.
func NewPostgresSource(db *sql.DB, schema string, timeout time.Duration) (*PostgresSource, error) {
	schema, err := sanitizeIdentifier("schema", schema)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &PostgresSource{db: db, schema: schema, timeout: timeout}, nil
}

// Close releases the connection pool.
func (p *PostgresSource) Close() error { return p.db.Close() }

// Fetch selects every row of the table named by req.Tab.
func (p *PostgresSource) Fetch(ctx context.Context, req Request) ([]byte, error) {
	table, err := sanitizeIdentifier("table", req.Tab)
	if err != nil {
		return nil, &FetchError{Tab: req.Tab, Kind: KindQuery, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	body, err := p.dump(ctx, table)
	metrics.RecordFetchLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		kind := KindQuery
		if errors.Is(err, context.DeadlineExceeded) {
			kind = KindTimeout
		}
		metrics.RecordFetchError(kind)
		metrics.RecordFetch(req.Tab, "error")
		logger.Get().Named("source").Warn(ctx, "score table query failed",
			logger.String("schema", p.schema),
			logger.String("table", table),
			logger.Error(err))
		return nil, &FetchError{Tab: req.Tab, Kind: kind, Err: err}
	}
	metrics.RecordFetch(req.Tab, "ok")
	metrics.RecordFetchBytes(len(body))
	return body, nil
}

func (p *PostgresSource) dump(ctx context.Context, table string) ([]byte, error) {
	query := fmt.Sprintf(`SELECT * FROM %q.%q`, p.schema, table)
	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(cols); err != nil {
		return nil, err
	}

	cells := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range cells {
		dest[i] = &cells[i]
	}
	record := make([]string, len(cols))
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		for i, c := range cells {
			record[i] = ""
			if c.Valid {
				record[i] = strings.TrimSpace(c.String)
			}
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func sanitizeIdentifier(what, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%s name is required", what)
	}
	if !identifier.MatchString(value) {
		return "", fmt.Errorf("invalid %s name: %s", what, value)
	}
	return value, nil
}
