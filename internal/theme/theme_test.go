package theme

import (
	"testing"

	"github.com/sadopc/dbnav/internal/catalog"
)

func TestThemes_AllRegistered(t *testing.T) {
	expected := []string{"default", "light", "monokai"}
	for _, name := range expected {
		if _, ok := Themes[name]; !ok {
			t.Errorf("expected theme %q to be registered", name)
		}
	}
}

func TestThemes_NamesMatch(t *testing.T) {
	for name, th := range Themes {
		if th.Name != name {
			t.Errorf("theme registered as %q has Name=%q", name, th.Name)
		}
	}
}

func TestDefault(t *testing.T) {
	d := Default()
	if d == nil {
		t.Fatal("Default() returned nil")
	}
	if d.Name != "default" {
		t.Errorf("Default().Name = %q, want %q", d.Name, "default")
	}
}

func TestGet_UnknownTheme_FallsBackToDefault(t *testing.T) {
	th := Get("nonexistent")
	if th == nil {
		t.Fatal("Get(nonexistent) returned nil")
	}
	if th.Name != "default" {
		t.Errorf("Get(nonexistent).Name = %q, want %q", th.Name, "default")
	}
}

func TestKind_KnownKindsHaveStyles(t *testing.T) {
	th := Default()
	kinds := []catalog.Kind{
		catalog.KindServer, catalog.KindDatabase, catalog.KindSchema,
		catalog.KindTable, catalog.KindView, catalog.KindProcedure,
		catalog.KindFunction, catalog.KindSynonym, catalog.KindColumn,
	}
	for _, k := range kinds {
		if _, ok := th.kindStyles[k]; !ok {
			t.Errorf("no style registered for kind %v", k)
		}
	}
}

func TestKind_FallsBackForUnknownKind(t *testing.T) {
	th := Default()
	// Action nodes have no dedicated kind style and take the cell style.
	got := th.Kind(catalog.KindAction)
	if got.GetForeground() != th.ResultsCell.GetForeground() {
		t.Error("Kind(KindAction) should fall back to the cell style")
	}
}
