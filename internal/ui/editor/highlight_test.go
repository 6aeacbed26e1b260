package editor

import (
	"strings"
	"testing"

	"github.com/sadopc/dbnav/internal/theme"
)

func TestLexerNameFor(t *testing.T) {
	tests := []struct {
		dialect string
		want    string
	}{
		{"postgres", "PostgreSQL"},
		{"duckdb", "PostgreSQL"},
		{"mysql", "MySQL"},
		{"sqlserver", "Transact-SQL"},
		{"sqlite", "SQL"},
		{"", "SQL"},
	}
	for _, tt := range tests {
		if got := lexerNameFor(tt.dialect); got != tt.want {
			t.Errorf("lexerNameFor(%q) = %q, want %q", tt.dialect, got, tt.want)
		}
	}
}

func TestHighlight_PreservesText(t *testing.T) {
	h := NewHighlighter("postgres")
	th := theme.Default()

	queries := []string{
		"SELECT * FROM users WHERE id = 42",
		"INSERT INTO t (a, b) VALUES ('x', 1.5)",
		"-- a comment\nSELECT 1",
		"CREATE TABLE x (id INT, name VARCHAR(50))",
	}
	for _, q := range queries {
		got := h.Highlight(q, th)
		// Stripping ANSI escapes must recover the original text.
		if stripANSI(got) != q {
			t.Errorf("Highlight(%q) altered text: %q", q, stripANSI(got))
		}
	}
}

func TestHighlight_PreservesNewlines(t *testing.T) {
	h := NewHighlighter("")
	th := theme.Default()

	q := "SELECT *\nFROM users\nWHERE id > 5"
	got := h.Highlight(q, th)
	if strings.Count(got, "\n") != 2 {
		t.Errorf("Highlight changed newline count: %d, want 2", strings.Count(got, "\n"))
	}
}

func TestHighlight_NilTheme(t *testing.T) {
	h := NewHighlighter("")
	q := "SELECT 1"
	if got := h.Highlight(q, nil); got != q {
		t.Errorf("Highlight with nil theme = %q, want passthrough", got)
	}
}

func TestHighlight_EmptyInput(t *testing.T) {
	h := NewHighlighter("mysql")
	if got := h.Highlight("", theme.Default()); got != "" {
		t.Errorf("Highlight(\"\") = %q, want empty", got)
	}
}

// stripANSI removes CSI escape sequences from s.
func stripANSI(s string) string {
	var b strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case inEscape:
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEscape = false
			}
		case r == '\x1b':
			inEscape = true
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
