package explorer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/dbnav/internal/catalog"
	appmsg "github.com/sadopc/dbnav/internal/msg"
	"github.com/sadopc/dbnav/internal/servergroup"
	"github.com/sadopc/dbnav/internal/theme"
)

func init() {
	theme.Current = theme.Default()
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// collect runs cmd, unpacking batches, and returns every produced message.
// Blocking commands are given until the test deadline.
func collect(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	var out []tea.Msg
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			out = append(out, collect(t, c)...)
		}
		return out
	}
	if msg != nil {
		out = append(out, msg)
	}
	return out
}

func nodeLoadedFrom(t *testing.T, msgs []tea.Msg) (appmsg.NodeLoadedMsg, bool) {
	t.Helper()
	for _, m := range msgs {
		if nl, ok := m.(appmsg.NodeLoadedMsg); ok {
			return nl, true
		}
	}
	return appmsg.NodeLoadedMsg{}, false
}

func newTestModel() Model {
	m := New(nil, time.Second)
	m.SetSize(40, 20)
	m.Focus()
	return m
}

func TestFlattenShowsServersAndAddRow(t *testing.T) {
	m := newTestModel()
	m.SetServers([]*catalog.Server{
		catalog.NewServer("alpha", "sqlite", "a.db"),
		catalog.NewServer("beta", "sqlite", "b.db"),
	})

	if len(m.flat) != 3 {
		t.Fatalf("flat rows = %d, want 2 servers + add row", len(m.flat))
	}
	if !m.flat[2].addServer {
		t.Error("last row should be the add-server row")
	}
	v := m.View()
	if !strings.Contains(v, "alpha") || !strings.Contains(v, "Add server") {
		t.Errorf("view missing expected rows:\n%s", v)
	}
}

func TestGroupedServersRenderUnderHeading(t *testing.T) {
	store, err := servergroup.Open("")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Create("production"); err != nil {
		t.Fatal(err)
	}
	if err := store.MoveServer("alpha", "production"); err != nil {
		t.Fatal(err)
	}

	m := New(store, time.Second)
	m.SetSize(40, 20)
	m.Focus()
	m.SetServers([]*catalog.Server{
		catalog.NewServer("alpha", "sqlite", "a.db"),
		catalog.NewServer("beta", "sqlite", "b.db"),
	})

	// heading, alpha under it, ungrouped beta, add row
	if len(m.flat) != 4 {
		t.Fatalf("flat rows = %d, want 4", len(m.flat))
	}
	if m.flat[0].group == nil || m.flat[0].group.Name != "production" {
		t.Fatal("first row should be the group heading")
	}
	if m.flat[1].entity == nil || m.flat[1].entity.Name() != "alpha" || m.flat[1].depth != 1 {
		t.Error("grouped server should render indented under its heading")
	}
	if m.flat[2].entity == nil || m.flat[2].entity.Name() != "beta" {
		t.Error("ungrouped server should follow the groups")
	}

	// Collapsing the heading hides the member but keeps it out of the
	// ungrouped section.
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	for _, r := range m.flat {
		if r.entity != nil && r.entity.Name() == "alpha" {
			t.Error("collapsed group should hide its servers")
		}
	}
}

func TestNavigationClampsAndScrolls(t *testing.T) {
	m := newTestModel()
	m.SetServers([]*catalog.Server{
		catalog.NewServer("alpha", "sqlite", ""),
		catalog.NewServer("beta", "sqlite", ""),
	})

	m, _ = m.Update(key("k"))
	if m.cursor != 0 {
		t.Error("cursor should clamp at top")
	}
	m, _ = m.Update(key("G"))
	if m.cursor != len(m.flat)-1 {
		t.Error("G should jump to last row")
	}
	m, _ = m.Update(key("j"))
	if m.cursor != len(m.flat)-1 {
		t.Error("cursor should clamp at bottom")
	}
	m, _ = m.Update(key("g"))
	if m.cursor != 0 {
		t.Error("g should jump to first row")
	}
}

func TestEnterOnAddServerRowRequestsForm(t *testing.T) {
	m := newTestModel()
	m.SetServers(nil)

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	msgs := collect(t, cmd)
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if _, ok := msgs[0].(appmsg.AddServerRequestMsg); !ok {
		t.Errorf("got %T, want AddServerRequestMsg", msgs[0])
	}
}

func TestToggleStartsAsyncLoad(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	srv := catalog.NewServer("alpha", "sqlite", "")
	grp := catalog.AddLazyGroup(srv, catalog.GroupTables, "Tables", func(ctx context.Context) ([]catalog.Entity, error) {
		close(started)
		select {
		case <-release:
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	srv.UI().Expanded = true

	m := newTestModel()
	m.SetServers([]*catalog.Server{srv})
	m.cursor = 1 // the group row

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !m.Loading(grp) {
		t.Fatal("toggling an unloaded node should start a load")
	}
	if !grp.UI().Loading {
		t.Error("node should be flagged loading")
	}

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("loader never started")
	}
	close(release)

	nl, ok := nodeLoadedFrom(t, collect(t, cmd))
	if !ok {
		t.Fatal("no NodeLoadedMsg produced")
	}
	if nl.Err != nil || nl.Cancelled {
		t.Fatalf("unexpected completion: %+v", nl)
	}
	m, _ = m.Update(nl)
	if m.Loading(grp) || grp.UI().Loading {
		t.Error("completion should clear the loading state")
	}
	if !grp.Loaded() {
		t.Error("group should be loaded after completion")
	}
}

func TestSecondLoadCancelsFirst(t *testing.T) {
	srv := catalog.NewServer("alpha", "sqlite", "")
	grp := catalog.AddLazyGroup(srv, catalog.GroupTables, "Tables", func(ctx context.Context) ([]catalog.Entity, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	m := newTestModel()
	m.SetServers([]*catalog.Server{srv})

	cmd1 := m.startLoad(grp)
	first := m.inflight[grp]
	cmd2 := m.startLoad(grp)

	if first.handle.Token().Cancelled() != true {
		t.Fatal("starting a second load should cancel the first")
	}
	nl, ok := nodeLoadedFrom(t, collect(t, cmd1))
	if !ok {
		t.Fatal("first load produced no completion")
	}
	if !nl.Cancelled {
		t.Errorf("first completion should be a cancellation, got %+v", nl)
	}

	// Unblock the second load via its own cancellation.
	m.inflight[grp].handle.Cancel()
	if _, ok := nodeLoadedFrom(t, collect(t, cmd2)); !ok {
		t.Fatal("second load produced no completion")
	}
}

func TestStaleCompletionDoesNotClobberNewerLoad(t *testing.T) {
	srv := catalog.NewServer("alpha", "sqlite", "")
	grp := catalog.AddLazyGroup(srv, catalog.GroupTables, "Tables", func(ctx context.Context) ([]catalog.Entity, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	grp.UI().Expanded = true

	m := newTestModel()
	m.SetServers([]*catalog.Server{srv})

	cmd1 := m.startLoad(grp)
	cmd2 := m.startLoad(grp)

	// The superseded load completes as a cancellation. Applying it must not
	// touch the state owned by the newer load.
	stale, ok := nodeLoadedFrom(t, collect(t, cmd1))
	if !ok {
		t.Fatal("first load produced no completion")
	}
	m, _ = m.Update(stale)
	if !m.Loading(grp) {
		t.Fatal("stale completion removed the newer in-flight load")
	}
	if !grp.UI().Loading {
		t.Error("stale completion cleared the loading flag")
	}
	if !grp.UI().Expanded {
		t.Error("stale completion collapsed the node")
	}
	if m.inflight[grp].handle.Token().Cancelled() {
		t.Error("stale completion cancelled the newer load")
	}

	// The newer load's own completion still applies.
	m.inflight[grp].handle.Cancel()
	nl, ok := nodeLoadedFrom(t, collect(t, cmd2))
	if !ok {
		t.Fatal("second load produced no completion")
	}
	m, _ = m.Update(nl)
	if m.Loading(grp) || grp.UI().Loading {
		t.Error("current completion should clear the loading state")
	}
}

func TestLoadResultsAttachOnlyInUpdate(t *testing.T) {
	srv := catalog.NewServer("alpha", "sqlite", "")
	grp := catalog.AddLazyGroup(srv, catalog.GroupTables, "Tables", func(ctx context.Context) ([]catalog.Entity, error) {
		return []catalog.Entity{
			catalog.NewServer("one", "sqlite", ""),
			catalog.NewServer("two", "sqlite", ""),
		}, nil
	})

	m := newTestModel()
	m.SetServers([]*catalog.Server{srv})

	cmd := m.startLoad(grp)
	nl, ok := nodeLoadedFrom(t, collect(t, cmd))
	if !ok {
		t.Fatal("no completion")
	}

	// The fetch has finished, but nothing may reach the tree until the
	// update loop applies the completion.
	if len(grp.Children()) != 0 {
		t.Fatalf("children attached before apply: %d", len(grp.Children()))
	}
	if grp.Loaded() {
		t.Fatal("node marked loaded before apply")
	}

	m, _ = m.Update(nl)
	if !grp.Loaded() {
		t.Error("apply should mark the node loaded")
	}
	if len(grp.Children()) != 2 {
		t.Errorf("apply should attach the fetched children, got %d", len(grp.Children()))
	}
}

func TestCancellationClearsLoadingState(t *testing.T) {
	srv := catalog.NewServer("alpha", "sqlite", "")
	grp := catalog.AddLazyGroup(srv, catalog.GroupTables, "Tables", func(ctx context.Context) ([]catalog.Entity, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	m := newTestModel()
	m.SetServers([]*catalog.Server{srv})

	cmd := m.startLoad(grp)
	m.CancelAll()

	nl, ok := nodeLoadedFrom(t, collect(t, cmd))
	if !ok {
		t.Fatal("no completion after cancel")
	}
	if !nl.Cancelled {
		t.Fatalf("completion should carry the cancellation flag, got %+v", nl)
	}
	m, _ = m.Update(nl)
	if grp.UI().Loading {
		t.Error("cancellation should clear the loading flag")
	}
	if grp.UI().Err != "" {
		t.Error("cancellation is not an error")
	}
	if grp.Loaded() {
		t.Error("cancelled load must not mark the node loaded")
	}
}

func TestLoadErrorCollapsesAndReports(t *testing.T) {
	srv := catalog.NewServer("alpha", "sqlite", "")
	boom := errors.New("catalog query failed")
	grp := catalog.AddLazyGroup(srv, catalog.GroupTables, "Tables", func(ctx context.Context) ([]catalog.Entity, error) {
		return nil, boom
	})
	grp.UI().Expanded = true

	m := newTestModel()
	m.SetServers([]*catalog.Server{srv})

	cmd := m.startLoad(grp)
	nl, ok := nodeLoadedFrom(t, collect(t, cmd))
	if !ok {
		t.Fatal("no completion")
	}

	var statusCmd tea.Cmd
	m, statusCmd = m.Update(nl)
	if grp.UI().Expanded {
		t.Error("failed load should collapse the node")
	}
	if grp.UI().Err == "" {
		t.Error("failed load should record the error on the node")
	}
	found := false
	for _, produced := range collect(t, statusCmd) {
		if st, ok := produced.(appmsg.StatusMsg); ok && st.IsError {
			found = true
		}
	}
	if !found {
		t.Error("failed load should emit an error status")
	}
}

func TestFilterNarrowsRows(t *testing.T) {
	m := newTestModel()
	m.SetServers([]*catalog.Server{
		catalog.NewServer("analytics", "sqlite", ""),
		catalog.NewServer("billing", "sqlite", ""),
		catalog.NewServer("batch", "sqlite", ""),
	})

	m, _ = m.Update(key("/"))
	if !m.filtering {
		t.Fatal("/ should enter filter mode")
	}
	for _, r := range "bil" {
		m, _ = m.Update(key(string(r)))
	}
	if len(m.flat) != 1 || m.flat[0].entity.Name() != "billing" {
		t.Fatalf("filter 'bil' should leave only billing, got %d rows", len(m.flat))
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.filter != "" {
		t.Error("esc should clear the filter")
	}
	if len(m.flat) != 4 {
		t.Errorf("clearing the filter should restore all rows, got %d", len(m.flat))
	}
}

func TestCollapseAscendsToParent(t *testing.T) {
	srv := catalog.NewServer("alpha", "sqlite", "")
	catalog.AddLazyGroup(srv, catalog.GroupTables, "Tables", nil)
	srv.UI().Expanded = true

	m := newTestModel()
	m.SetServers([]*catalog.Server{srv})
	m.cursor = 1 // group row, collapsed

	m, _ = m.Update(key("h"))
	if m.cursor != 0 {
		t.Errorf("h on a collapsed child should move to its parent, cursor = %d", m.cursor)
	}

	m, _ = m.Update(key("h"))
	if srv.UI().Expanded {
		t.Error("h on an expanded node should collapse it")
	}
}
