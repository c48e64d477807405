// Package sqlquery is a read-only SQL tool over database/sql. Only single
// SELECT (or WITH ... SELECT) statements are accepted; everything else is
// rejected before touching the database.
package sqlquery

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
)

const defaultMaxRows = 20

// Config holds SQL tool configuration.
type Config struct {
	// DSN is a lib/pq connection string, used when DB is nil.
	DSN     string
	MaxRows int
}

// Tool implements the tool interface for read-only SQL queries.
type Tool struct {
	db      *sql.DB
	maxRows int
}

// New wraps an existing database handle.
func New(db *sql.DB, maxRows int) *Tool {
	if maxRows <= 0 {
		maxRows = defaultMaxRows
	}
	return &Tool{db: db, maxRows: maxRows}
}

// Open connects to PostgreSQL using the configured DSN.
func Open(config *Config) (*Tool, error) {
	if config == nil || config.DSN == "" {
		return nil, fmt.Errorf("sql_query: DSN is required")
	}
	db, err := sql.Open("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("sql_query: failed to connect: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("sql_query: failed to ping database: %w", err)
	}
	return New(db, config.MaxRows), nil
}

func (t *Tool) Name() string { return "sql_query" }

func (t *Tool) Description() string {
	return "Runs a read-only SQL SELECT statement against the configured database and returns the rows as text. Parameter: the SQL statement."
}

// Execute validates and runs the statement from the parameter text.
func (t *Tool) Execute(ctx context.Context, params, _ string) (string, error) {
	stmt, err := validateStatement(params)
	if err != nil {
		return "", err
	}
	if t.db == nil {
		return "", fmt.Errorf("sql_query: no database configured")
	}

	rows, err := t.db.QueryContext(ctx, stmt)
	if err != nil {
		return "", fmt.Errorf("sql_query: query failed: %w", err)
	}
	defer rows.Close()

	return t.formatRows(rows)
}

// Close releases the underlying database handle.
func (t *Tool) Close() error {
	if t.db == nil {
		return nil
	}
	return t.db.Close()
}

// validateStatement enforces the read-only contract: one statement, starting
// with SELECT or WITH, no stacked statements.
func validateStatement(raw string) (string, error) {
	stmt := strings.TrimSpace(raw)
	stmt = strings.TrimSuffix(stmt, ";")
	if stmt == "" {
		return "", fmt.Errorf("sql_query: empty statement")
	}
	if strings.Contains(stmt, ";") {
		return "", fmt.Errorf("sql_query: multiple statements are not allowed")
	}

	lowered := strings.ToLower(stmt)
	if !strings.HasPrefix(lowered, "select") && !strings.HasPrefix(lowered, "with") {
		return "", fmt.Errorf("sql_query: only SELECT statements are allowed")
	}
	return stmt, nil
}

func (t *Tool) formatRows(rows *sql.Rows) (string, error) {
	columns, err := rows.Columns()
	if err != nil {
		return "", fmt.Errorf("sql_query: read columns: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(strings.Join(columns, " | "))
	sb.WriteString("\n")

	count := 0
	truncated := false
	values := make([]any, len(columns))
	pointers := make([]any, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	for rows.Next() {
		if count >= t.maxRows {
			truncated = true
			break
		}
		if err := rows.Scan(pointers...); err != nil {
			return "", fmt.Errorf("sql_query: scan row: %w", err)
		}

		fields := make([]string, len(values))
		for i, v := range values {
			fields[i] = formatValue(v)
		}
		sb.WriteString(strings.Join(fields, " | "))
		sb.WriteString("\n")
		count++
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("sql_query: iterate rows: %w", err)
	}

	if count == 0 {
		return "no rows returned", nil
	}
	if truncated {
		fmt.Fprintf(&sb, "(truncated at %d rows)\n", t.maxRows)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
