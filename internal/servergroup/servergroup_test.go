package servergroup

import (
	"errors"
	"path/filepath"
	"testing"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "groups.yaml"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestOpenMissingFileIsEmpty(t *testing.T) {
	s := tempStore(t)
	if len(s.Groups) != 0 {
		t.Errorf("new store has %d groups, want 0", len(s.Groups))
	}
}

func TestCreateAndFind(t *testing.T) {
	s := tempStore(t)

	g, err := s.Create("Production")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !g.Expanded {
		t.Error("new group should start expanded")
	}
	if s.Find("Production") != g {
		t.Error("Find should return the created group")
	}
	if s.Find("Staging") != nil {
		t.Error("Find of unknown group should return nil")
	}

	if _, err := s.Create("Production"); !errors.Is(err, ErrGroupExists) {
		t.Errorf("duplicate Create error = %v, want ErrGroupExists", err)
	}
	if _, err := s.Create(""); err == nil {
		t.Error("Create with empty name should fail")
	}
}

func TestRename(t *testing.T) {
	s := tempStore(t)
	s.Create("Old")
	s.Create("Other")

	if err := s.Rename("Old", "New"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if s.Find("New") == nil || s.Find("Old") != nil {
		t.Error("Rename did not replace the name")
	}
	if err := s.Rename("New", "Other"); !errors.Is(err, ErrGroupExists) {
		t.Errorf("Rename onto existing name error = %v, want ErrGroupExists", err)
	}
	if err := s.Rename("Missing", "X"); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("Rename missing group error = %v, want ErrGroupNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	s := tempStore(t)
	s.Create("A")
	s.Create("B")

	if err := s.Delete("A"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(s.Groups) != 1 || s.Groups[0].Name != "B" {
		t.Errorf("Groups after delete = %+v", s.Groups)
	}
	if err := s.Delete("A"); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("double Delete error = %v, want ErrGroupNotFound", err)
	}
}

func TestMoveServer(t *testing.T) {
	s := tempStore(t)
	s.Create("Prod")
	s.Create("Dev")

	if err := s.MoveServer("alpha", "Prod"); err != nil {
		t.Fatalf("MoveServer: %v", err)
	}
	if g := s.GroupOf("alpha"); g == nil || g.Name != "Prod" {
		t.Fatalf("GroupOf(alpha) = %v, want Prod", g)
	}

	// Moving into another group removes from the old one.
	if err := s.MoveServer("alpha", "Dev"); err != nil {
		t.Fatalf("MoveServer: %v", err)
	}
	if g := s.GroupOf("alpha"); g == nil || g.Name != "Dev" {
		t.Fatalf("GroupOf(alpha) = %v, want Dev", g)
	}
	if len(s.Find("Prod").Servers) != 0 {
		t.Error("server left behind in old group")
	}

	// Empty group name ungroups.
	if err := s.MoveServer("alpha", ""); err != nil {
		t.Fatalf("MoveServer ungroup: %v", err)
	}
	if s.GroupOf("alpha") != nil {
		t.Error("server should be ungrouped")
	}

	if err := s.MoveServer("alpha", "Missing"); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("MoveServer to missing group error = %v, want ErrGroupNotFound", err)
	}
}

func TestReorder(t *testing.T) {
	s := tempStore(t)
	s.Create("A")
	s.Create("B")
	s.Create("C")

	if err := s.Reorder(0, 2); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	got := []string{s.Groups[0].Name, s.Groups[1].Name, s.Groups[2].Name}
	want := []string{"B", "C", "A"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order after Reorder = %v, want %v", got, want)
		}
	}

	if err := s.Reorder(0, 5); err == nil {
		t.Error("out-of-range Reorder should fail")
	}
}

func TestToggleExpandedPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groups.yaml")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.Create("Prod")
	if err := s.ToggleExpanded("Prod"); err != nil {
		t.Fatalf("ToggleExpanded: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	g := reopened.Find("Prod")
	if g == nil {
		t.Fatal("group missing after reopen")
	}
	if g.Expanded {
		t.Error("Expanded flag did not persist as false")
	}
}
