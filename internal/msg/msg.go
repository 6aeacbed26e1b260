// Package msg defines the tea.Msg types shared between dbnav components.
// Generation counters (ConnGen, RunID) let receivers drop results that
// belong to a connection or run that has since been superseded.
package msg

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/dbnav/internal/adapter"
	"github.com/sadopc/dbnav/internal/catalog"
)

// Pane focus targets.
type Pane int

const (
	PaneExplorer Pane = iota
	PaneEditor
	PaneResults
)

// String returns the pane's display name.
func (p Pane) String() string {
	switch p {
	case PaneExplorer:
		return "explorer"
	case PaneEditor:
		return "editor"
	case PaneResults:
		return "results"
	}
	return "unknown"
}

// FocusMsg requests a pane focus change.
type FocusMsg struct {
	Pane Pane
}

// StatusMsg updates the status bar text.
type StatusMsg struct {
	Text     string
	IsError  bool
	Duration time.Duration
}

// ServerConnectedMsg is sent when a server connection is established.
type ServerConnectedMsg struct {
	Server *catalog.Server
}

// ServerConnectErrMsg is sent when a connection attempt fails.
type ServerConnectErrMsg struct {
	Server *catalog.Server
	Err    error
}

// ServerDisconnectedMsg is sent when a server connection is closed.
type ServerDisconnectedMsg struct {
	Server *catalog.Server
}

// NodeLoadedMsg is sent when an entity's async load completes. The fetch
// half runs in the background; Apply attaches its results to the tree and
// must run on the update goroutine. Seq ties the completion to the dispatch
// that started it, so a superseded load's completion can be dropped. Err is
// nil on success and carries the load failure otherwise; cancellations are
// normalized by the sender and arrive with Cancelled set and no Apply.
type NodeLoadedMsg struct {
	Entity    catalog.Entity
	Seq       uint64
	Apply     func() error
	Err       error
	Cancelled bool
}

// TreeChangedMsg requests a re-flatten and re-render of the explorer tree.
type TreeChangedMsg struct{}

// OpenQueryMsg asks the query buffer manager to open generated SQL bound to
// a server and database context.
type OpenQueryMsg struct {
	Title    string
	SQL      string
	Server   *catalog.Server
	Database string
	Execute  bool
}

// ExecuteQueryMsg requests execution of the SQL in a query buffer.
type ExecuteQueryMsg struct {
	BufferID int
	SQL      string
}

// QueryStartedMsg is sent when a query begins executing.
type QueryStartedMsg struct {
	BufferID int
	RunID    uint64
	ConnGen  uint64
}

// QueryResultMsg is sent when query execution completes.
type QueryResultMsg struct {
	Result   *adapter.QueryResult
	BufferID int
	RunID    uint64
	ConnGen  uint64
}

// QueryErrMsg is sent when query execution fails.
type QueryErrMsg struct {
	Err      error
	BufferID int
	RunID    uint64
	ConnGen  uint64
}

// NewBufferMsg requests creating a new query buffer.
type NewBufferMsg struct {
	SQL string
}

// CloseBufferMsg requests closing a query buffer.
type CloseBufferMsg struct {
	BufferID int
}

// SwitchBufferMsg requests switching to a query buffer.
type SwitchBufferMsg struct {
	BufferID int
}

// ShowFloatMsg opens a floating panel with prebuilt content lines.
type ShowFloatMsg struct {
	Title string
	Lines []string
}

// CloseFloatMsg dismisses the topmost floating panel.
type CloseFloatMsg struct{}

// ConfirmMsg asks the user a yes/no question; OnConfirm runs on yes and its
// result is fed back through the update loop.
type ConfirmMsg struct {
	Title     string
	Prompt    string
	OnConfirm func() tea.Msg
}

// PromptFieldsMsg opens the input form with the given fields; OnSubmit
// receives the final values in field order and its result is fed back
// through the update loop.
type PromptFieldsMsg struct {
	Title    string
	Fields   []PromptField
	OnSubmit func(values []string) tea.Msg
}

// PromptField is one input form field definition.
type PromptField struct {
	Label       string
	Placeholder string
	Value       string
}

// ExportRequestMsg requests exporting the current result set.
type ExportRequestMsg struct {
	Format string // "csv" or "json"
	Path   string
}

// ExportCompleteMsg is sent when export finishes.
type ExportCompleteMsg struct {
	Path     string
	RowCount int64
}

// ExportErrMsg is sent when export fails.
type ExportErrMsg struct {
	Err error
}

// OpenHistoryMsg opens the query history browser.
type OpenHistoryMsg struct{}

// AddServerRequestMsg asks the app to open the add-server form.
type AddServerRequestMsg struct{}

// InsertTextMsg inserts text into the active editor.
type InsertTextMsg struct {
	Text string
}
