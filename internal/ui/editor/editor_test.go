package editor

import (
	"strings"
	"testing"

	appmsg "github.com/sadopc/dbnav/internal/msg"
	"github.com/sadopc/dbnav/internal/theme"
)

func init() {
	theme.Current = theme.Default()
}

func TestNew(t *testing.T) {
	m := New("postgres")

	if m.Value() != "" {
		t.Errorf("Value() = %q, want empty string", m.Value())
	}
	if m.Modified() {
		t.Error("Modified() should be false for a new editor")
	}
	if m.Focused() {
		t.Error("Focused() should be false for a new editor")
	}
}

func TestValue_SetValue(t *testing.T) {
	m := New("")

	m.SetValue("SELECT * FROM users")
	if got := m.Value(); got != "SELECT * FROM users" {
		t.Errorf("Value() = %q, want %q", got, "SELECT * FROM users")
	}

	m.SetValue("")
	if got := m.Value(); got != "" {
		t.Errorf("Value() = %q, want empty string", got)
	}

	query := "SELECT *\nFROM users\nWHERE id > 5"
	m.SetValue(query)
	if got := m.Value(); got != query {
		t.Errorf("Value() = %q, want %q", got, query)
	}
}

func TestModified(t *testing.T) {
	m := New("")
	if m.Modified() {
		t.Error("Modified() should be false initially")
	}

	m.InsertText("SELECT 1")
	if !m.Modified() {
		t.Error("Modified() should be true after InsertText")
	}
	if got := m.Value(); got != "SELECT 1" {
		t.Errorf("Value() = %q, want %q", got, "SELECT 1")
	}

	m.ResetModified()
	if m.Modified() {
		t.Error("Modified() should be false after ResetModified")
	}
}

func TestInsertText_AddsSeparatingSpace(t *testing.T) {
	m := New("")
	m.SetValue("SELECT * FROM")
	m.InsertText("users")
	if got := m.Value(); got != "SELECT * FROM users" {
		t.Errorf("Value() = %q, want %q", got, "SELECT * FROM users")
	}

	m.SetValue("SELECT * FROM ")
	m.InsertText("orders")
	if got := m.Value(); got != "SELECT * FROM orders" {
		t.Errorf("Value() = %q, want no doubled space, got %q", got, got)
	}
}

func TestInsertTextMsg(t *testing.T) {
	m := New("")
	m.SetValue("SELECT * FROM")
	m, _ = m.Update(appmsg.InsertTextMsg{Text: "invoices"})
	if got := m.Value(); got != "SELECT * FROM invoices" {
		t.Errorf("Value() = %q, want inserted text", got)
	}
}

func TestFocusBlur(t *testing.T) {
	m := New("")
	m.Focus()
	if !m.Focused() {
		t.Error("Focused() should be true after Focus")
	}
	m.Blur()
	if m.Focused() {
		t.Error("Focused() should be false after Blur")
	}
}

func TestView_BlurredShowsLineNumbers(t *testing.T) {
	m := New("")
	m.SetSize(60, 10)
	m.SetValue("SELECT 1;\nSELECT 2;")

	v := m.View()
	if !strings.Contains(v, "1") || !strings.Contains(v, "2") {
		t.Error("blurred view should show line numbers")
	}
	if !strings.Contains(v, "SELECT") {
		t.Error("blurred view should show the content")
	}
}

func TestView_EmptyShowsPlaceholder(t *testing.T) {
	m := New("")
	m.SetSize(60, 10)
	if v := m.View(); !strings.Contains(v, "Enter SQL query") {
		t.Error("empty editor should show the placeholder")
	}
}
