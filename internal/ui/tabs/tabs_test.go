package tabs

import (
	"strings"
	"testing"

	appmsg "github.com/sadopc/dbnav/internal/msg"
	"github.com/sadopc/dbnav/internal/theme"
)

func init() {
	theme.Current = theme.Default()
}

func threeTabs() []Tab {
	return []Tab{
		{ID: 1, Title: "Query 1"},
		{ID: 2, Title: "Query 2"},
		{ID: 3, Title: "Query 3"},
	}
}

func TestSetTabs_SelectsActiveByID(t *testing.T) {
	m := New()
	m.SetTabs(threeTabs(), 2)

	if m.ActiveID() != 2 {
		t.Fatalf("expected active tab 2, got %d", m.ActiveID())
	}
}

func TestSetTabs_UnknownActiveFallsBackToFirst(t *testing.T) {
	m := New()
	m.SetTabs(threeTabs(), 99)

	if m.ActiveID() != 1 {
		t.Fatalf("expected first tab active, got %d", m.ActiveID())
	}
}

func TestUpdate_SwitchBufferMsg(t *testing.T) {
	m := New()
	m.SetTabs(threeTabs(), 1)

	m, _ = m.Update(appmsg.SwitchBufferMsg{BufferID: 3})
	if m.ActiveID() != 3 {
		t.Fatalf("expected active tab 3, got %d", m.ActiveID())
	}

	// Unknown IDs leave the selection alone.
	m, _ = m.Update(appmsg.SwitchBufferMsg{BufferID: 42})
	if m.ActiveID() != 3 {
		t.Fatalf("expected active tab unchanged, got %d", m.ActiveID())
	}
}

func TestNextTab_WrapsAndEmitsSwitch(t *testing.T) {
	m := New()
	m.SetTabs(threeTabs(), 3)

	cmd := m.NextTab()
	if m.ActiveID() != 1 {
		t.Fatalf("expected wrap to tab 1, got %d", m.ActiveID())
	}
	if cmd == nil {
		t.Fatal("expected switch command")
	}
	sw, ok := cmd().(appmsg.SwitchBufferMsg)
	if !ok {
		t.Fatalf("expected SwitchBufferMsg, got %T", cmd())
	}
	if sw.BufferID != 1 {
		t.Fatalf("expected switch to buffer 1, got %d", sw.BufferID)
	}
}

func TestPrevTab_Wraps(t *testing.T) {
	m := New()
	m.SetTabs(threeTabs(), 1)

	cmd := m.PrevTab()
	if m.ActiveID() != 3 {
		t.Fatalf("expected wrap to tab 3, got %d", m.ActiveID())
	}
	sw := cmd().(appmsg.SwitchBufferMsg)
	if sw.BufferID != 3 {
		t.Fatalf("expected switch to buffer 3, got %d", sw.BufferID)
	}
}

func TestNextTab_Empty(t *testing.T) {
	m := New()
	if cmd := m.NextTab(); cmd != nil {
		t.Fatal("expected nil cmd with no tabs")
	}
	if cmd := m.PrevTab(); cmd != nil {
		t.Fatal("expected nil cmd with no tabs")
	}
}

func TestSetModified(t *testing.T) {
	m := New()
	m.SetTabs(threeTabs(), 1)
	m.SetSize(80)

	m.SetModified(2, true)

	view := m.View()
	if !strings.Contains(view, "Query 2 *") {
		t.Fatal("expected modified marker on Query 2")
	}

	m.SetModified(2, false)
	if strings.Contains(m.View(), "Query 2 *") {
		t.Fatal("expected modified marker cleared")
	}
}

func TestSetRunning(t *testing.T) {
	m := New()
	m.SetTabs(threeTabs(), 1)
	m.SetSize(80)

	m.SetRunning(1, true)
	if !strings.Contains(m.View(), "▶ Query 1") {
		t.Fatal("expected running marker on Query 1")
	}
}

func TestView_ZeroWidth(t *testing.T) {
	m := New()
	m.SetTabs(threeTabs(), 1)
	if m.View() != "" {
		t.Fatal("expected empty view when width=0")
	}
}

func TestView_ShowsNewTabButton(t *testing.T) {
	m := New()
	m.SetTabs(threeTabs(), 1)
	m.SetSize(80)

	if !strings.Contains(m.View(), "+") {
		t.Fatal("expected new-tab button in view")
	}
}

func TestActiveTab_Empty(t *testing.T) {
	m := New()
	if got := m.ActiveTab(); got.ID != 0 || got.Title != "" {
		t.Fatalf("expected zero Tab, got %+v", got)
	}
	if m.Count() != 0 {
		t.Fatalf("expected 0 tabs, got %d", m.Count())
	}
}
