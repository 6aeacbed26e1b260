package historybrowser

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/dbnav/internal/history"
	"github.com/sadopc/dbnav/internal/theme"
)

func init() {
	theme.Current = theme.Default()
}

func TestNilHistory(t *testing.T) {
	m := New(nil)
	m.Show()

	if !m.Visible() {
		t.Fatal("expected visible after Show()")
	}
	if len(m.entries) != 0 {
		t.Fatalf("expected 0 entries with nil history, got %d", len(m.entries))
	}

	// Should not panic on Update
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	_ = m.View()
}

func TestSelectQueryMsg(t *testing.T) {
	m := New(nil)
	m.visible = true
	m.entries = []history.Entry{
		{Query: "SELECT 1", Server: "prod", DatabaseName: "app"},
		{Query: "SELECT 2", Server: "staging", DatabaseName: "warehouse"},
	}
	m.cursor = 1

	var cmd tea.Cmd
	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if m.Visible() {
		t.Fatal("expected hidden after enter")
	}
	if cmd == nil {
		t.Fatal("expected cmd from enter")
	}
	msg := cmd()
	sel, ok := msg.(SelectQueryMsg)
	if !ok {
		t.Fatalf("expected SelectQueryMsg, got %T", msg)
	}
	if sel.Query != "SELECT 2" {
		t.Fatalf("expected 'SELECT 2', got %q", sel.Query)
	}
	if sel.Server != "staging" || sel.Database != "warehouse" {
		t.Fatalf("expected origin context, got %q/%q", sel.Server, sel.Database)
	}
}

func TestShowLoadsRecent(t *testing.T) {
	hist, err := history.New()
	if err != nil {
		t.Fatalf("history.New: %v", err)
	}
	defer hist.Close()

	for _, q := range []string{"SELECT a FROM t1", "SELECT b FROM t2"} {
		if err := hist.Add(history.Entry{Query: q, Server: "prod", Driver: "postgres"}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	m := New(hist)
	m.Show()

	if len(m.entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(m.entries))
	}
}

func TestSearchNarrowsEntries(t *testing.T) {
	hist, err := history.New()
	if err != nil {
		t.Fatalf("history.New: %v", err)
	}
	defer hist.Close()

	for _, q := range []string{"SELECT * FROM orders", "SELECT * FROM customers", "DELETE FROM orders"} {
		if err := hist.Add(history.Entry{Query: q}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	m := New(hist)
	m.Show()
	for _, r := range "customers" {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}

	if len(m.entries) != 1 {
		t.Fatalf("expected 1 entry after search, got %d", len(m.entries))
	}
	if !strings.Contains(m.entries[0].Query, "customers") {
		t.Fatalf("expected customers query, got %q", m.entries[0].Query)
	}
}

func TestRelativeTime(t *testing.T) {
	tests := []struct {
		offset time.Duration
		want   string
	}{
		{5 * time.Second, "just now"},
		{5 * time.Minute, "5m ago"},
		{2 * time.Hour, "2h ago"},
		{36 * time.Hour, "yesterday"},
		{72 * time.Hour, "3d ago"},
	}
	for _, tt := range tests {
		got := RelativeTime(time.Now().Add(-tt.offset))
		if got != tt.want {
			t.Errorf("RelativeTime(-%v) = %q, want %q", tt.offset, got, tt.want)
		}
	}
}

func TestFormatEntryTruncation(t *testing.T) {
	m := New(nil)
	long := "SELECT very_long_column_name_one, very_long_column_name_two, very_long_column_name_three FROM some_extremely_long_table_name WHERE condition = true"
	e := history.Entry{
		Query:      long,
		Server:     "prod",
		DurationMS: 1500,
		ExecutedAt: time.Now(),
	}

	line := m.formatEntry(e, 60)
	if !strings.Contains(line, "...") {
		t.Fatal("expected truncated query")
	}
	if !strings.Contains(line, "prod") {
		t.Fatal("expected server name in metadata")
	}
	if !strings.Contains(line, "1.5s") {
		t.Fatal("expected duration in metadata")
	}
}

func TestHideShow(t *testing.T) {
	m := New(nil)

	if m.Visible() {
		t.Fatal("expected hidden initially")
	}

	m.Show()
	if !m.Visible() {
		t.Fatal("expected visible after Show")
	}

	m.Hide()
	if m.Visible() {
		t.Fatal("expected hidden after Hide")
	}
}

func TestEscHides(t *testing.T) {
	m := New(nil)
	m.Show()

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.Visible() {
		t.Fatal("expected hidden after esc")
	}
}
