package app

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
)

// containsKey checks whether the binding's keys contain the given key string.
func containsKey(b key.Binding, target string) bool {
	for _, k := range b.Keys() {
		if k == target {
			return true
		}
	}
	return false
}

// requireNonEmpty fails the test if the binding has no keys.
func requireNonEmpty(t *testing.T, name string, b key.Binding) {
	t.Helper()
	if len(b.Keys()) == 0 {
		t.Errorf("%s binding has no keys", name)
	}
}

func TestDefaultKeyMap(t *testing.T) {
	km := DefaultKeyMap()

	t.Run("ExecuteQuery has keys", func(t *testing.T) {
		requireNonEmpty(t, "ExecuteQuery", km.ExecuteQuery)
		if !containsKey(km.ExecuteQuery, "ctrl+enter") && !containsKey(km.ExecuteQuery, "f5") {
			t.Error("ExecuteQuery should contain ctrl+enter or f5")
		}
	})

	t.Run("Quit has ctrl+q", func(t *testing.T) {
		requireNonEmpty(t, "Quit", km.Quit)
		if !containsKey(km.Quit, "ctrl+q") {
			t.Errorf("Quit keys = %v, want to contain %q", km.Quit.Keys(), "ctrl+q")
		}
	})

	t.Run("FocusNext has tab", func(t *testing.T) {
		requireNonEmpty(t, "FocusNext", km.FocusNext)
		if !containsKey(km.FocusNext, "tab") {
			t.Errorf("FocusNext keys = %v, want to contain %q", km.FocusNext.Keys(), "tab")
		}
	})

	t.Run("NewBuffer has ctrl+t", func(t *testing.T) {
		requireNonEmpty(t, "NewBuffer", km.NewBuffer)
		if !containsKey(km.NewBuffer, "ctrl+t") {
			t.Errorf("NewBuffer keys = %v, want to contain %q", km.NewBuffer.Keys(), "ctrl+t")
		}
	})

	t.Run("CloseBuffer has ctrl+w", func(t *testing.T) {
		requireNonEmpty(t, "CloseBuffer", km.CloseBuffer)
		if !containsKey(km.CloseBuffer, "ctrl+w") {
			t.Errorf("CloseBuffer keys = %v, want to contain %q", km.CloseBuffer.Keys(), "ctrl+w")
		}
	})

	t.Run("CancelQuery has ctrl+c", func(t *testing.T) {
		requireNonEmpty(t, "CancelQuery", km.CancelQuery)
		if !containsKey(km.CancelQuery, "ctrl+c") {
			t.Errorf("CancelQuery keys = %v, want to contain %q", km.CancelQuery.Keys(), "ctrl+c")
		}
	})

	t.Run("History has ctrl+h", func(t *testing.T) {
		requireNonEmpty(t, "History", km.History)
		if !containsKey(km.History, "ctrl+h") {
			t.Errorf("History keys = %v, want to contain %q", km.History.Keys(), "ctrl+h")
		}
	})

	t.Run("no overlapping global bindings", func(t *testing.T) {
		bindings := map[string]key.Binding{
			"Quit":           km.Quit,
			"Help":           km.Help,
			"NewBuffer":      km.NewBuffer,
			"CloseBuffer":    km.CloseBuffer,
			"ToggleExplorer": km.ToggleExplorer,
			"History":        km.History,
			"Export":         km.Export,
		}
		seen := map[string]string{}
		for name, b := range bindings {
			for _, k := range b.Keys() {
				if other, dup := seen[k]; dup {
					t.Errorf("key %q bound to both %s and %s", k, name, other)
				}
				seen[k] = name
			}
		}
	})
}

func TestShortHelp(t *testing.T) {
	km := DefaultKeyMap()
	short := km.ShortHelp()
	if len(short) == 0 {
		t.Fatal("ShortHelp returned no bindings")
	}
	for i, b := range short {
		if len(b.Keys()) == 0 {
			t.Errorf("ShortHelp[%d] has no keys", i)
		}
	}
}

func TestFullHelp(t *testing.T) {
	km := DefaultKeyMap()
	full := km.FullHelp()
	if len(full) == 0 {
		t.Fatal("FullHelp returned no groups")
	}
	for gi, group := range full {
		if len(group) == 0 {
			t.Errorf("FullHelp group %d is empty", gi)
		}
	}
}
