package record

import (
	"strings"
	"testing"
)

func TestFromRowsTrimsAndPads(t *testing.T) {
	t.Parallel()

	table, err := FromRows(
		[]string{" Company ", "Website"},
		[][]string{
			{"  Acme Corp  ", " acme.test "},
			{"Globex"},
			{"", ""},
		},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := strings.Join(table.Columns, ","); got != "Company,Website" {
		t.Fatalf("columns = %q", got)
	}
	if len(table.Records) != 3 {
		t.Fatalf("got %d records, want 3", len(table.Records))
	}
	if got := table.Records[0].Value("Company"); got != "Acme Corp" {
		t.Fatalf("record 0 company = %q", got)
	}
	if got := table.Records[1].Value("Website"); got != "" {
		t.Fatalf("short row must pad with empty, got %q", got)
	}
}

func TestFromRowsRejectsBadHeaders(t *testing.T) {
	t.Parallel()

	t.Run("empty name", func(t *testing.T) {
		t.Parallel()
		if _, err := FromRows([]string{"Company", "  "}, nil); err == nil {
			t.Fatalf("expected error for empty column name")
		}
	})

	t.Run("duplicate name", func(t *testing.T) {
		t.Parallel()
		if _, err := FromRows([]string{"Company", "company"}, nil); err == nil {
			t.Fatalf("expected error for duplicate column name")
		}
	})
}

func TestFromRowsRejectsWideRows(t *testing.T) {
	t.Parallel()

	_, err := FromRows([]string{"Company"}, [][]string{{"Acme", "extra"}})
	if err == nil {
		t.Fatalf("expected error for row wider than header")
	}
	if !strings.Contains(err.Error(), "row 1") {
		t.Fatalf("error should name the row: %v", err)
	}
}

func TestResolveColumnIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	table := Table{Columns: []string{"Company", "Website"}}

	col, ok := table.ResolveColumn(" company ")
	if !ok || col != "Company" {
		t.Fatalf("ResolveColumn = %q, %t", col, ok)
	}
	if _, ok := table.ResolveColumn("missing"); ok {
		t.Fatalf("expected miss for unknown column")
	}
}
