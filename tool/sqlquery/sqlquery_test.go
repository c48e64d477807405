package sqlquery

import (
	"context"
	"strings"
	"testing"
)

func TestValidateStatement(t *testing.T) {
	cases := []struct {
		name    string
		stmt    string
		wantErr bool
	}{
		{"plain select", "SELECT * FROM users", false},
		{"lowercase select", "select id from orders limit 5", false},
		{"cte", "WITH recent AS (SELECT * FROM logs) SELECT * FROM recent", false},
		{"trailing semicolon", "SELECT 1;", false},
		{"leading whitespace", "   SELECT 1", false},
		{"empty", "", true},
		{"update", "UPDATE users SET name = 'x'", true},
		{"delete", "DELETE FROM users", true},
		{"drop", "DROP TABLE users", true},
		{"stacked statements", "SELECT 1; DROP TABLE users", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := validateStatement(tc.stmt)
			if tc.wantErr && err == nil {
				t.Errorf("validateStatement(%q) expected error", tc.stmt)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("validateStatement(%q) failed: %v", tc.stmt, err)
			}
		})
	}
}

func TestExecuteRejectsWritesBeforeConnecting(t *testing.T) {
	// No database handle: the statement guard must fire first for writes,
	// and reads must fail on the missing handle, not panic.
	tool := New(nil, 0)

	_, err := tool.Execute(context.Background(), "DELETE FROM users", "")
	if err == nil || !strings.Contains(err.Error(), "only SELECT") {
		t.Errorf("expected read-only rejection, got %v", err)
	}

	_, err = tool.Execute(context.Background(), "SELECT 1", "")
	if err == nil || !strings.Contains(err.Error(), "no database") {
		t.Errorf("expected missing database error, got %v", err)
	}
}

func TestFormatValue(t *testing.T) {
	if got := formatValue(nil); got != "NULL" {
		t.Errorf("formatValue(nil) = %q", got)
	}
	if got := formatValue([]byte("bytes")); got != "bytes" {
		t.Errorf("formatValue bytes = %q", got)
	}
	if got := formatValue(int64(7)); got != "7" {
		t.Errorf("formatValue int = %q", got)
	}
}
