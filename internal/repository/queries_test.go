package repository

import (
	"regexp"
	"strings"
	"testing"
)

// squash collapses whitespace so assertions ignore query layout.
func squash(q string) string {
	return strings.Join(strings.Fields(q), " ")
}

func TestVisibleHabitQueries(t *testing.T) {
	t.Parallel()

	if visibleToUser != "owner_id = $1 OR is_public" {
		t.Fatalf("visibility predicate = %q", visibleToUser)
	}
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"count", countVisibleHabitsQuery, []string{"SELECT COUNT(*) FROM habits WHERE owner_id = $1 OR is_public"}},
		{"list", listVisibleHabitsQuery, []string{
			"FROM habits WHERE owner_id = $1 OR is_public ORDER BY id LIMIT $2 OFFSET $3",
			"SELECT id, owner_id,",
		}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			q := squash(tt.query)
			for _, want := range tt.want {
				if !strings.Contains(q, want) {
					t.Fatalf("query %q missing %q", q, want)
				}
			}
		})
	}
}

func TestUpsertJobQuery(t *testing.T) {
	t.Parallel()

	q := squash(upsertJobQuery)
	if !strings.Contains(q, "ON CONFLICT (name) DO UPDATE") {
		t.Fatalf("conflict target missing: %q", q)
	}
	set := q[strings.Index(q, "DO UPDATE"):strings.Index(q, "RETURNING")]
	for _, col := range []string{"every_days", "start_time", "task", "payload"} {
		if !regexp.MustCompile(`\b` + col + ` = EXCLUDED\.` + col + `\b`).MatchString(set) {
			t.Fatalf("%s not reassigned on conflict: %q", col, set)
		}
	}
	for _, want := range []string{"enabled = TRUE", "updated_at = NOW()"} {
		if !strings.Contains(set, want) {
			t.Fatalf("update clause missing %q: %q", want, set)
		}
	}
	if strings.Contains(set, "created_at") {
		t.Fatalf("created_at must survive an upsert: %q", set)
	}
}
