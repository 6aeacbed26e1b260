package results

import (
	"strings"
	"testing"
	"time"

	"github.com/sadopc/dbnav/internal/adapter"
	"github.com/sadopc/dbnav/internal/theme"
)

func init() {
	theme.Current = theme.Default()
}

func selectResult() *adapter.QueryResult {
	return &adapter.QueryResult{
		Columns: columns("id", "email"),
		Rows: [][]string{
			{"1", "a@acme.test"},
			{"2", "b@acme.test"},
		},
		RowCount: 2,
		IsSelect: true,
		Duration: 15 * time.Millisecond,
	}
}

func TestSetResults_Select(t *testing.T) {
	m := New()
	m.SetSize(80, 20)
	m.SetResults(selectResult())

	if m.RowCount() != 2 {
		t.Errorf("RowCount() = %d, want 2", m.RowCount())
	}
	if len(m.Columns()) != 2 {
		t.Errorf("Columns() = %d, want 2", len(m.Columns()))
	}
	v := m.View()
	if !strings.Contains(v, "a@acme.test") {
		t.Error("view should show row data")
	}
	if !strings.Contains(v, "2 rows") {
		t.Error("footer should show the row count")
	}
}

func TestSetResults_NonSelect(t *testing.T) {
	m := New()
	m.SetSize(80, 20)
	m.SetResults(&adapter.QueryResult{
		IsSelect: false,
		Message:  "3 rows affected",
		RowCount: 3,
	})

	v := m.View()
	if !strings.Contains(v, "3 rows affected") {
		t.Errorf("view should show the statement message:\n%s", v)
	}
	if len(m.Rows()) != 0 {
		t.Error("non-select result should clear rows")
	}
}

func TestSetError(t *testing.T) {
	m := New()
	m.SetSize(80, 20)
	m.SetResults(selectResult())
	m.SetError(errTest("syntax error near FROM"))

	v := m.View()
	if !strings.Contains(v, "syntax error near FROM") {
		t.Error("view should show the error")
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }

func TestSetLoadingClearsError(t *testing.T) {
	m := New()
	m.SetSize(80, 20)
	m.SetError(errTest("old failure"))
	m.SetLoading(true)

	v := m.View()
	if strings.Contains(v, "old failure") {
		t.Error("loading state should clear previous error")
	}
	if !strings.Contains(v, "Executing") {
		t.Error("loading state should show progress text")
	}
}

func TestClear(t *testing.T) {
	m := New()
	m.SetSize(80, 20)
	m.SetResults(selectResult())
	m.Clear()

	if m.RowCount() != -1 {
		t.Errorf("RowCount() after Clear = %d, want -1", m.RowCount())
	}
	if len(m.Rows()) != 0 || len(m.Columns()) != 0 {
		t.Error("Clear should drop rows and columns")
	}
}

func TestAutoSizeColumns(t *testing.T) {
	cols := columns("id", "description")
	rows := [][]string{
		{"1", strings.Repeat("x", 80)},
	}
	sized := autoSizeColumns(cols, rows, 120)
	if len(sized) != 2 {
		t.Fatalf("got %d columns, want 2", len(sized))
	}
	if sized[1].Width != maxColWidth {
		t.Errorf("long column width = %d, want cap %d", sized[1].Width, maxColWidth)
	}
	if sized[0].Width < 4 {
		t.Errorf("short column width = %d, want at least 4", sized[0].Width)
	}
}

func TestAutoSizeColumns_ScalesDownToFit(t *testing.T) {
	cols := columns("a", "b", "c")
	rows := [][]string{{strings.Repeat("x", 40), strings.Repeat("y", 40), strings.Repeat("z", 40)}}
	sized := autoSizeColumns(cols, rows, 60)

	total := len(sized) * 2
	for _, c := range sized {
		total += c.Width
	}
	if total > 60 {
		t.Errorf("total width %d exceeds available 60", total)
	}
	for _, c := range sized {
		if c.Width < 2 {
			t.Errorf("column %q shrunk below 2", c.Title)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Microsecond, "500 us"},
		{15 * time.Millisecond, "15 ms"},
		{2500 * time.Millisecond, "2.50 s"},
		{90 * time.Second, "1.5 min"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
