package explorer

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/dbnav/internal/catalog"
	appmsg "github.com/sadopc/dbnav/internal/msg"
	"github.com/sadopc/dbnav/internal/task"
)

// inflightLoad pairs a dispatched load with its sequence number, so a
// completion can be matched against the dispatch that is still current.
type inflightLoad struct {
	handle *task.Handle
	seq    uint64
}

// startLoad dispatches an async load for e. At most one load per entity is
// in flight: a superseded load is cancelled before the new one starts, and
// its completion carries a stale sequence number so handleNodeLoaded drops
// it. The update loop never sees partial results: the dispatched function
// only fetches, and the staged apply runs in handleNodeLoaded.
func (m *Model) startLoad(e catalog.Entity) tea.Cmd {
	if prev, ok := m.inflight[e]; ok {
		prev.handle.Cancel()
	}
	m.loadSeq++
	seq := m.loadSeq

	catalog.BeginLoad(e)
	ui := e.UI()
	ui.Loading = true
	ui.Err = ""

	done := make(chan appmsg.NodeLoadedMsg, 1)
	var apply func() error
	opts := task.Options{
		Timeout: m.timeout,
		OnComplete: func(err error) {
			if task.IsCancelled(err) {
				done <- appmsg.NodeLoadedMsg{Entity: e, Seq: seq, Cancelled: true}
				return
			}
			done <- appmsg.NodeLoadedMsg{Entity: e, Seq: seq, Apply: apply, Err: err}
		},
	}

	// OnComplete runs after the dispatched function returns, in the same
	// goroutine, so the apply variable is set by the time it is read.
	h := task.Dispatch(func(ctx context.Context) error {
		apply = catalog.StageLoad(ctx, e)
		return ctx.Err()
	}, opts)
	m.inflight[e] = inflightLoad{handle: h, seq: seq}

	return tea.Batch(m.spin.Tick, func() tea.Msg { return <-done })
}

// handleNodeLoaded applies a load completion. A completion whose sequence
// number does not match the registered in-flight load belongs to a
// superseded dispatch; the newer load owns the entity and the stale result
// is dropped entirely.
func (m Model) handleNodeLoaded(loaded appmsg.NodeLoadedMsg) (Model, tea.Cmd) {
	e := loaded.Entity
	cur, ok := m.inflight[e]
	if !ok || cur.seq != loaded.Seq {
		return m, nil
	}
	delete(m.inflight, e)
	ui := e.UI()
	ui.Loading = false

	err := loaded.Err
	if !loaded.Cancelled && loaded.Apply != nil {
		if aerr := loaded.Apply(); err == nil {
			err = aerr
		}
	}

	var cmds []tea.Cmd
	switch {
	case loaded.Cancelled || task.IsCancelled(err):
		// Not an error: the node just drops back to collapsed, ready for
		// another attempt.
		ui.Err = ""
		ui.Expanded = false
		delete(m.pendingGoto, e)

	case err != nil:
		ui.Err = err.Error()
		ui.Expanded = false
		cmds = append(cmds, status(fmt.Sprintf("load %s: %v", e.Name(), err), true))
		if s, ok := e.(*catalog.Server); ok && s.State() == catalog.StateError {
			srv := s
			loadErr := err
			cmds = append(cmds, func() tea.Msg {
				return appmsg.ServerConnectErrMsg{Server: srv, Err: loadErr}
			})
		}
		delete(m.pendingGoto, e)

	default:
		ui.Err = ""
		if s, ok := e.(*catalog.Server); ok && s.State() == catalog.StateConnected {
			srv := s
			cmds = append(cmds, func() tea.Msg {
				return appmsg.ServerConnectedMsg{Server: srv}
			})
		}
		if syn, ok := m.pendingGoto[e]; ok {
			delete(m.pendingGoto, e)
			cmds = append(cmds, m.resolveSynonym(syn, m.loadTimeout()))
		}
	}

	m.flatten()
	if len(cmds) == 0 {
		return m, nil
	}
	return m, tea.Batch(cmds...)
}

// loadTimeout returns the configured per-load timeout, falling back to the
// task default.
func (m Model) loadTimeout() time.Duration {
	if m.timeout > 0 {
		return m.timeout
	}
	return task.DefaultTimeout
}

func status(text string, isError bool) tea.Cmd {
	return func() tea.Msg {
		return appmsg.StatusMsg{Text: text, IsError: isError}
	}
}
