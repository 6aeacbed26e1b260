// Package querybuf owns the SQL scratch buffers generated by explorer
// actions or opened by the user. Each buffer is bound to the server and
// database it was generated against; execution results carry generation
// counters so late completions for a superseded run or connection are
// dropped instead of overwriting newer state.
package querybuf

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/dbnav/internal/adapter"
	"github.com/sadopc/dbnav/internal/audit"
	"github.com/sadopc/dbnav/internal/catalog"
	"github.com/sadopc/dbnav/internal/history"
	"github.com/sadopc/dbnav/internal/msg"
)

const executeTimeout = 5 * time.Minute

// Buffer is one SQL scratch buffer.
type Buffer struct {
	ID       int
	Title    string
	Server   *catalog.Server
	Database string
	SQL      string

	Result  *adapter.QueryResult
	Err     error
	Running bool
	RunID   uint64
}

// Manager tracks query buffers and the generation counters guarding their
// async results. It holds no package-level state; the app owns one Manager
// for its lifetime.
type Manager struct {
	buffers []*Buffer
	active  int
	nextID  int
	connGen uint64

	cancels map[int]context.CancelFunc

	hist *history.History // nil disables persistence
	aud  *audit.Logger    // nil disables auditing
}

// NewManager creates a Manager. hist and aud may be nil.
func NewManager(hist *history.History, aud *audit.Logger) *Manager {
	return &Manager{
		nextID:  1,
		cancels: map[int]context.CancelFunc{},
		hist:    hist,
		aud:     aud,
	}
}

// Open creates a new buffer bound to a server+database context and makes it
// active.
func (m *Manager) Open(title, sql string, server *catalog.Server, database string) *Buffer {
	if title == "" {
		title = fmt.Sprintf("query %d", m.nextID)
	}
	b := &Buffer{
		ID:       m.nextID,
		Title:    title,
		Server:   server,
		Database: database,
		SQL:      sql,
	}
	m.nextID++
	m.buffers = append(m.buffers, b)
	m.active = len(m.buffers) - 1
	return b
}

// Buffers returns all open buffers in tab order.
func (m *Manager) Buffers() []*Buffer { return m.buffers }

// Active returns the active buffer, or nil when none are open.
func (m *Manager) Active() *Buffer {
	if m.active < 0 || m.active >= len(m.buffers) {
		return nil
	}
	return m.buffers[m.active]
}

// Get returns the buffer with the given ID, or nil.
func (m *Manager) Get(id int) *Buffer {
	for _, b := range m.buffers {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// SwitchTo makes the buffer with the given ID active.
func (m *Manager) SwitchTo(id int) error {
	for i, b := range m.buffers {
		if b.ID == id {
			m.active = i
			return nil
		}
	}
	return fmt.Errorf("no buffer with id %d", id)
}

// Next cycles to the following buffer.
func (m *Manager) Next() {
	if len(m.buffers) > 0 {
		m.active = (m.active + 1) % len(m.buffers)
	}
}

// Prev cycles to the preceding buffer.
func (m *Manager) Prev() {
	if len(m.buffers) > 0 {
		m.active = (m.active - 1 + len(m.buffers)) % len(m.buffers)
	}
}

// Close removes the buffer with the given ID, cancelling any in-flight run.
func (m *Manager) Close(id int) error {
	for i, b := range m.buffers {
		if b.ID == id {
			m.Cancel(id)
			m.buffers = append(m.buffers[:i], m.buffers[i+1:]...)
			if m.active >= len(m.buffers) {
				m.active = len(m.buffers) - 1
			}
			return nil
		}
	}
	return fmt.Errorf("no buffer with id %d", id)
}

// BumpConnGen invalidates results of every in-flight run. The app calls
// this whenever any server connects or disconnects.
func (m *Manager) BumpConnGen() { m.connGen++ }

// Cancel aborts the in-flight run for a buffer, if any.
func (m *Manager) Cancel(id int) {
	if cancel, ok := m.cancels[id]; ok {
		cancel()
		delete(m.cancels, id)
	}
}

// Execute runs a buffer's SQL against its bound server. It returns a
// command batch that first marks the run started and then delivers the
// result; a previous in-flight run for the same buffer is cancelled.
func (m *Manager) Execute(id int, sql string) tea.Cmd {
	b := m.Get(id)
	if b == nil {
		return nil
	}
	m.Cancel(id)

	b.SQL = sql
	b.RunID++
	b.Running = true
	runID := b.RunID
	gen := m.connGen
	server := b.Server

	ctx, cancel := context.WithTimeout(context.Background(), executeTimeout)
	m.cancels[id] = cancel

	return tea.Batch(
		func() tea.Msg {
			return msg.QueryStartedMsg{BufferID: id, RunID: runID, ConnGen: gen}
		},
		func() tea.Msg {
			defer cancel()
			sess := sessionOf(server)
			if sess == nil {
				return msg.QueryErrMsg{Err: adapter.ErrNotConnected, BufferID: id, RunID: runID, ConnGen: gen}
			}
			result, err := sess.Execute(ctx, sql)
			if err != nil {
				return msg.QueryErrMsg{Err: err, BufferID: id, RunID: runID, ConnGen: gen}
			}
			return msg.QueryResultMsg{Result: result, BufferID: id, RunID: runID, ConnGen: gen}
		},
	)
}

func sessionOf(server *catalog.Server) adapter.Session {
	if server == nil {
		return nil
	}
	return server.Session()
}

// HandleResult applies a completed run to its buffer. It returns false when
// the message is stale (superseded run or connection) and was dropped.
func (m *Manager) HandleResult(r msg.QueryResultMsg) bool {
	b := m.Get(r.BufferID)
	if b == nil || r.RunID != b.RunID || r.ConnGen != m.connGen {
		return false
	}
	b.Result = r.Result
	b.Err = nil
	b.Running = false
	delete(m.cancels, b.ID)
	m.record(b, r.Result, nil)
	return true
}

// HandleError applies a failed run to its buffer. Stale messages are
// dropped the same way as results.
func (m *Manager) HandleError(r msg.QueryErrMsg) bool {
	b := m.Get(r.BufferID)
	if b == nil || r.RunID != b.RunID || r.ConnGen != m.connGen {
		return false
	}
	b.Err = r.Err
	b.Running = false
	delete(m.cancels, b.ID)
	m.record(b, nil, r.Err)
	return true
}

func (m *Manager) record(b *Buffer, result *adapter.QueryResult, execErr error) {
	var (
		durationMS int64
		rowCount   int64
		driver     string
		serverName string
		dsn        string
	)
	if result != nil {
		durationMS = result.Duration.Milliseconds()
		rowCount = result.RowCount
	}
	if b.Server != nil {
		serverName = b.Server.Name()
		driver = b.Server.DriverName
		dsn = audit.SanitizeDSN(b.Server.DSN)
	}

	if m.hist != nil {
		_ = m.hist.Add(history.Entry{
			Query:        b.SQL,
			Server:       serverName,
			Driver:       driver,
			DatabaseName: b.Database,
			ExecutedAt:   time.Now(),
			DurationMS:   durationMS,
			RowCount:     rowCount,
			IsError:      execErr != nil,
		})
	}
	m.aud.Log(audit.Entry{
		Timestamp:    time.Now(),
		Query:        b.SQL,
		Server:       serverName,
		Driver:       driver,
		DatabaseName: b.Database,
		DurationMS:   durationMS,
		RowCount:     rowCount,
		IsError:      execErr != nil,
		DSN:          dsn,
	})
}
