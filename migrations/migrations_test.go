package migrations

import (
	"regexp"
	"strings"
	"testing"
)

func schema(t *testing.T) string {
	t.Helper()
	b, err := FS.ReadFile("001_init.sql")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	return string(b)
}

// column returns the definition of column in table, whitespace collapsed.
func column(t *testing.T, sql, table, col string) string {
	t.Helper()
	start := strings.Index(sql, "CREATE TABLE IF NOT EXISTS "+table+" (")
	if start < 0 {
		t.Fatalf("table %s not found", table)
	}
	body := sql[start:]
	body = body[:strings.Index(body, ");")]
	for _, line := range strings.Split(body, "\n") {
		fields := strings.Fields(strings.TrimSuffix(strings.TrimSpace(line), ","))
		if len(fields) > 1 && fields[0] == col {
			return strings.Join(fields[1:], " ")
		}
	}
	t.Fatalf("column %s.%s not found", table, col)
	return ""
}

func TestSchemaColumns(t *testing.T) {
	t.Parallel()

	sql := schema(t)
	tests := []struct {
		table, col string
		want       *regexp.Regexp
	}{
		{"periodic_tasks", "name", regexp.MustCompile(`^TEXT PRIMARY KEY$`)},
		{"habits", "related_habit_id", regexp.MustCompile(`REFERENCES habits \(id\) ON DELETE SET NULL$`)},
		{"habits", "owner_id", regexp.MustCompile(`REFERENCES users \(id\) ON DELETE CASCADE$`)},
		{"habits", "action", regexp.MustCompile(`^VARCHAR\(255\) NOT NULL$`)},
		{"users", "email", regexp.MustCompile(`^VARCHAR\(254\) NOT NULL UNIQUE$`)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.table+"."+tt.col, func(t *testing.T) {
			t.Parallel()
			if got := column(t, sql, tt.table, tt.col); !tt.want.MatchString(got) {
				t.Fatalf("definition = %q, want match %s", got, tt.want)
			}
		})
	}
}
