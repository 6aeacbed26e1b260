package history

import (
	"path/filepath"
	"testing"
	"time"
)

func openTemp(t *testing.T) *History {
	t.Helper()
	h, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

func TestAddAndRecent(t *testing.T) {
	h := openTemp(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	queries := []string{"SELECT 1", "SELECT 2", "SELECT 3"}
	for i, q := range queries {
		err := h.Add(Entry{
			Query:        q,
			Server:       "test",
			Driver:       "sqlite",
			DatabaseName: "main",
			ExecutedAt:   base.Add(time.Duration(i) * time.Minute),
			DurationMS:   int64(10 * (i + 1)),
			RowCount:     int64(i),
		})
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	entries, err := h.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Recent returned %d entries, want 3", len(entries))
	}
	// Most recent first.
	if entries[0].Query != "SELECT 3" || entries[2].Query != "SELECT 1" {
		t.Errorf("Recent order wrong: %q ... %q", entries[0].Query, entries[2].Query)
	}
	if entries[0].Server != "test" || entries[0].Driver != "sqlite" {
		t.Errorf("entry context lost: %+v", entries[0])
	}
}

func TestRecentRespectsLimit(t *testing.T) {
	h := openTemp(t)
	for i := 0; i < 5; i++ {
		if err := h.Add(Entry{Query: "SELECT 1", ExecutedAt: time.Now()}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	entries, err := h.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Recent(2) returned %d entries", len(entries))
	}
}

func TestSearch(t *testing.T) {
	h := openTemp(t)
	now := time.Now()
	h.Add(Entry{Query: "SELECT * FROM users", ExecutedAt: now})
	h.Add(Entry{Query: "SELECT * FROM orders", ExecutedAt: now})
	h.Add(Entry{Query: "DROP TABLE users", ExecutedAt: now, IsError: true})

	entries, err := h.Search("%users%", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Search returned %d entries, want 2", len(entries))
	}
	for _, e := range entries {
		if e.Query == "SELECT * FROM orders" {
			t.Errorf("Search matched unrelated query %q", e.Query)
		}
	}
}

func TestClear(t *testing.T) {
	h := openTemp(t)
	h.Add(Entry{Query: "SELECT 1", ExecutedAt: time.Now()})

	if err := h.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	entries, err := h.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Recent after Clear returned %d entries", len(entries))
	}
}
