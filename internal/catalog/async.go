package catalog

import (
	"context"

	"github.com/sadopc/dbnav/internal/task"
)

// stagedLoader is implemented by entities whose load performs adapter I/O.
// The fetch half runs on the calling goroutine; the returned apply half
// attaches the results to the tree.
type stagedLoader interface {
	stageLoad(ctx context.Context) func() error
}

// BeginLoad records that an async load is about to be dispatched for e.
// Servers without a session enter the connecting state so the tree shows
// it immediately.
func BeginLoad(e Entity) {
	if s, ok := e.(*Server); ok && s.sess == nil {
		s.state = StateConnecting
	}
}

// StageLoad splits e's load into a fetch half, run on the calling
// goroutine, and an attach half, returned as a function. Background
// loaders run the fetch under a task context and hand the returned
// function to the update loop; nothing render-visible changes until it
// runs there. A caller abandoning a load simply drops the function.
// Entities without an I/O phase defer the whole load to the returned
// function.
func StageLoad(ctx context.Context, e Entity) func() error {
	if e.Loaded() {
		return func() error { return nil }
	}
	if sl, ok := e.(stagedLoader); ok {
		return sl.stageLoad(ctx)
	}
	return func() error { return e.Load(ctx) }
}

func isCancelled(err error) bool { return task.IsCancelled(err) }
