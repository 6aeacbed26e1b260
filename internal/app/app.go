package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/dbnav/internal/audit"
	"github.com/sadopc/dbnav/internal/catalog"
	"github.com/sadopc/dbnav/internal/config"
	"github.com/sadopc/dbnav/internal/history"
	appmsg "github.com/sadopc/dbnav/internal/msg"
	"github.com/sadopc/dbnav/internal/querybuf"
	"github.com/sadopc/dbnav/internal/servergroup"
	"github.com/sadopc/dbnav/internal/theme"
	"github.com/sadopc/dbnav/internal/ui/editor"
	"github.com/sadopc/dbnav/internal/ui/explorer"
	"github.com/sadopc/dbnav/internal/ui/float"
	"github.com/sadopc/dbnav/internal/ui/historybrowser"
	"github.com/sadopc/dbnav/internal/ui/inputform"
	"github.com/sadopc/dbnav/internal/ui/results"
	"github.com/sadopc/dbnav/internal/ui/statusbar"
	"github.com/sadopc/dbnav/internal/ui/tabs"
)

// bufState holds the per-buffer UI state: each query buffer owns its own
// editor and result grid.
type bufState struct {
	Editor  editor.Model
	Results results.Model
}

// serverAddedMsg is produced by the add-server form.
type serverAddedMsg struct {
	saved config.SavedServer
}

// Model is the root application model.
type Model struct {
	// Layout
	width         int
	height        int
	explorerWidth int
	editorHeight  int // percentage of main area for editor (rest for results)
	showExplorer  bool

	// Focus
	focusedPane appmsg.Pane

	// Components
	explorer    explorer.Model
	tabs        tabs.Model
	statusbar   statusbar.Model
	histBrowser historybrowser.Model
	float       float.Model
	form        inputform.Model
	help        help.Model

	// Per-buffer state
	bufStates map[int]*bufState

	// Domain
	buffers *querybuf.Manager
	groups  *servergroup.Store

	cfg     *config.Config
	history *history.History
	aud     *audit.Logger

	keyMap KeyMap

	// State
	bufSeq   int
	showHelp bool
	quitting bool
}

// New creates the root model. hist, aud, and groups may be nil.
func New(cfg *config.Config, hist *history.History, aud *audit.Logger, groups *servergroup.Store) Model {
	if t := theme.Get(cfg.Theme); t != nil {
		theme.Current = t
	}
	if groups == nil {
		groups, _ = servergroup.Open("")
	}

	m := Model{
		explorerWidth: 32,
		editorHeight:  50,
		showExplorer:  true,
		focusedPane:   appmsg.PaneExplorer,

		explorer:    explorer.New(groups, cfg.Explorer.MetadataTimeout()),
		tabs:        tabs.New(),
		statusbar:   statusbar.New(),
		histBrowser: historybrowser.New(hist),
		help:        help.New(),

		bufStates: make(map[int]*bufState),
		buffers:   querybuf.NewManager(hist, aud),
		groups:    groups,
		cfg:       cfg,
		history:   hist,
		aud:       aud,
		keyMap:    DefaultKeyMap(),
	}

	m.explorer.SetServers(serversFromConfig(cfg))
	m.explorer.Focus()

	m.openBuffer("", nil, "")
	return m
}

// serversFromConfig builds catalog servers from the saved server list.
func serversFromConfig(cfg *config.Config) []*catalog.Server {
	var servers []*catalog.Server
	for _, sv := range cfg.Servers {
		srv := catalog.NewServer(sv.Name, sv.Driver, sv.BuildDSN())
		if cfg.Explorer.LoadPolicy == "eager" {
			srv.Policy = catalog.PolicyEager
		}
		srv.SchemaFilter = cfg.Explorer.SchemaFilter
		servers = append(servers, srv)
	}
	return servers
}

// Init initializes the application.
func (m Model) Init() tea.Cmd {
	return m.explorer.Init()
}

// Update handles all messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil

	case tea.KeyMsg:
		// Overlays take priority in stacking order.
		if m.form.Visible() {
			var cmd tea.Cmd
			m.form, cmd = m.form.Update(msg)
			return m, cmd
		}
		if m.float.Visible() {
			var cmd tea.Cmd
			m.float, cmd = m.float.Update(msg)
			return m, cmd
		}
		if m.histBrowser.Visible() {
			var cmd tea.Cmd
			m.histBrowser, cmd = m.histBrowser.Update(msg)
			return m, cmd
		}
		if m.showHelp {
			switch msg.String() {
			case "f1", "?", "esc", "q":
				m.showHelp = false
			}
			return m, nil
		}

		if cmd := m.handleGlobalKeys(msg); cmd != nil {
			return m, cmd
		}
		if cmd := m.handleFocusedPaneKey(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}

	case appmsg.ServerConnectedMsg:
		m.buffers.BumpConnGen()
		var cmd tea.Cmd
		m.statusbar, cmd = m.statusbar.Update(msg)
		cmds = append(cmds, cmd)

	case appmsg.ServerConnectErrMsg:
		var cmd tea.Cmd
		m.statusbar, cmd = m.statusbar.Update(msg)
		cmds = append(cmds, cmd)

	case appmsg.ServerDisconnectedMsg:
		m.buffers.BumpConnGen()
		var cmd tea.Cmd
		m.statusbar, cmd = m.statusbar.Update(msg)
		cmds = append(cmds, cmd)

	case appmsg.NodeLoadedMsg, appmsg.TreeChangedMsg, spinner.TickMsg:
		var cmd tea.Cmd
		m.explorer, cmd = m.explorer.Update(msg)
		cmds = append(cmds, cmd)

	case appmsg.OpenQueryMsg:
		cmds = append(cmds, m.handleOpenQuery(msg))

	case appmsg.ExecuteQueryMsg:
		cmds = append(cmds, m.buffers.Execute(msg.BufferID, msg.SQL))

	case appmsg.QueryStartedMsg:
		if b := m.buffers.Get(msg.BufferID); b != nil && b.RunID == msg.RunID {
			if bs := m.bufStates[msg.BufferID]; bs != nil {
				bs.Results.SetLoading(true)
			}
			m.tabs.SetRunning(msg.BufferID, true)
		}

	case appmsg.QueryResultMsg:
		if m.buffers.HandleResult(msg) {
			if bs := m.bufStates[msg.BufferID]; bs != nil {
				bs.Results.SetLoading(false)
				bs.Results.SetResults(msg.Result)
			}
			m.tabs.SetRunning(msg.BufferID, false)
			var cmd tea.Cmd
			m.statusbar, cmd = m.statusbar.Update(msg)
			cmds = append(cmds, cmd)
		}

	case appmsg.QueryErrMsg:
		if m.buffers.HandleError(msg) {
			if bs := m.bufStates[msg.BufferID]; bs != nil {
				bs.Results.SetLoading(false)
				bs.Results.SetError(msg.Err)
			}
			m.tabs.SetRunning(msg.BufferID, false)
			var cmd tea.Cmd
			m.statusbar, cmd = m.statusbar.Update(msg)
			cmds = append(cmds, cmd)
		}

	case appmsg.NewBufferMsg:
		var server *catalog.Server
		var database string
		if b := m.buffers.Active(); b != nil {
			server = b.Server
			database = b.Database
		}
		m.openBuffer(msg.SQL, server, database)
		m.setFocus(appmsg.PaneEditor)
		m.updateLayout()

	case appmsg.CloseBufferMsg:
		if len(m.buffers.Buffers()) <= 1 {
			break // keep the last buffer
		}
		if err := m.buffers.Close(msg.BufferID); err == nil {
			delete(m.bufStates, msg.BufferID)
			m.syncTabs()
		}

	case appmsg.SwitchBufferMsg:
		if err := m.buffers.SwitchTo(msg.BufferID); err == nil {
			m.tabs, _ = m.tabs.Update(msg)
			m.updateLayout()
		}

	case appmsg.ShowFloatMsg:
		m.float = float.New(msg.Title, msg.Lines)
		m.float.SetSize(m.width, m.height)
		m.float.Show()

	case appmsg.CloseFloatMsg:
		m.float.Hide()

	case appmsg.ConfirmMsg:
		onConfirm := msg.OnConfirm
		m.float = float.New(msg.Title, []string{msg.Prompt},
			float.Button{Label: "Yes", Action: onConfirm},
			float.Button{Label: "No", Action: func() tea.Msg { return nil }},
		)
		m.float.SetSize(m.width, m.height)
		m.float.Show()

	case appmsg.PromptFieldsMsg:
		m.form = promptForm(msg)
		m.form.Show()

	case appmsg.AddServerRequestMsg:
		m.form = m.addServerForm()
		m.form.Show()

	case serverAddedMsg:
		cmds = append(cmds, m.handleServerAdded(msg))

	case appmsg.ExportRequestMsg:
		cmds = append(cmds, m.exportResults(msg.Format, msg.Path))

	case appmsg.ExportCompleteMsg:
		var cmd tea.Cmd
		m.statusbar, cmd = m.statusbar.Update(appmsg.StatusMsg{
			Text: fmt.Sprintf("Exported %d rows to %s", msg.RowCount, msg.Path),
		})
		cmds = append(cmds, cmd)

	case appmsg.ExportErrMsg:
		var cmd tea.Cmd
		m.statusbar, cmd = m.statusbar.Update(appmsg.StatusMsg{
			Text: "Export failed: " + msg.Err.Error(), IsError: true,
		})
		cmds = append(cmds, cmd)

	case appmsg.OpenHistoryMsg:
		m.histBrowser.Show()

	case historybrowser.SelectQueryMsg:
		server := m.findServer(msg.Server)
		m.openBuffer(msg.Query, server, msg.Database)
		m.setFocus(appmsg.PaneEditor)
		m.updateLayout()

	case appmsg.InsertTextMsg:
		if bs := m.activeBufState(); bs != nil {
			var cmd tea.Cmd
			bs.Editor, cmd = bs.Editor.Update(msg)
			cmds = append(cmds, cmd)
		}

	case appmsg.StatusMsg:
		var cmd tea.Cmd
		m.statusbar, cmd = m.statusbar.Update(msg)
		cmds = append(cmds, cmd)

	case appmsg.FocusMsg:
		m.setFocus(msg.Pane)

	case statusbar.ClearStatusMsg:
		m.statusbar, _ = m.statusbar.Update(msg)

	default:
		// Component-internal messages (synonym jumps, ticks) route back to
		// the explorer.
		var cmd tea.Cmd
		m.explorer, cmd = m.explorer.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleGlobalKeys(msg tea.KeyMsg) tea.Cmd {
	km := m.keyMap
	switch {
	case key.Matches(msg, km.Quit):
		m.quitting = true
		m.explorer.CancelAll()
		return tea.Quit

	case key.Matches(msg, km.CancelQuery):
		if b := m.buffers.Active(); b != nil && b.Running {
			m.buffers.Cancel(b.ID)
			var cmd tea.Cmd
			m.statusbar, cmd = m.statusbar.Update(appmsg.StatusMsg{Text: "Query cancelled"})
			return cmd
		}
		return nil

	case key.Matches(msg, km.Help):
		m.showHelp = !m.showHelp
		return nil

	case msg.String() == "?" && m.focusedPane != appmsg.PaneEditor:
		m.showHelp = !m.showHelp
		return nil

	case key.Matches(msg, km.ToggleExplorer):
		m.showExplorer = !m.showExplorer
		if !m.showExplorer && m.focusedPane == appmsg.PaneExplorer {
			m.setFocus(appmsg.PaneEditor)
		}
		m.updateLayout()
		return nil

	case key.Matches(msg, km.Export):
		return m.exportResults("csv", "")

	case key.Matches(msg, km.History):
		m.histBrowser.Show()
		return nil

	case key.Matches(msg, km.NewBuffer):
		return func() tea.Msg { return appmsg.NewBufferMsg{} }

	case key.Matches(msg, km.CloseBuffer):
		id := m.tabs.ActiveID()
		return func() tea.Msg { return appmsg.CloseBufferMsg{BufferID: id} }

	case key.Matches(msg, km.NextBuffer):
		return m.tabs.NextTab()

	case key.Matches(msg, km.PrevBuffer):
		return m.tabs.PrevTab()

	case key.Matches(msg, km.FocusNext) && m.focusedPane != appmsg.PaneEditor:
		m.cycleFocus(1)
		return nil

	case key.Matches(msg, km.FocusPrev):
		m.cycleFocus(-1)
		return nil

	case key.Matches(msg, km.FocusExplorer):
		m.setFocus(appmsg.PaneExplorer)
		return nil

	case key.Matches(msg, km.FocusEditor):
		m.setFocus(appmsg.PaneEditor)
		return nil

	case key.Matches(msg, km.FocusResults):
		m.setFocus(appmsg.PaneResults)
		return nil

	case key.Matches(msg, km.ResizeLeft):
		if m.explorerWidth > 16 {
			m.explorerWidth -= 2
			m.updateLayout()
		}
		return nil

	case key.Matches(msg, km.ResizeRight):
		if m.explorerWidth < m.width/2 {
			m.explorerWidth += 2
			m.updateLayout()
		}
		return nil

	case key.Matches(msg, km.ResizeUp):
		if m.editorHeight > 20 {
			m.editorHeight -= 5
			m.updateLayout()
		}
		return nil

	case key.Matches(msg, km.ResizeDown):
		if m.editorHeight < 80 {
			m.editorHeight += 5
			m.updateLayout()
		}
		return nil
	}
	return nil
}

func (m *Model) handleFocusedPaneKey(msg tea.KeyMsg) tea.Cmd {
	switch m.focusedPane {
	case appmsg.PaneExplorer:
		var cmd tea.Cmd
		m.explorer, cmd = m.explorer.Update(msg)
		return cmd

	case appmsg.PaneEditor:
		bs := m.activeBufState()
		if bs == nil {
			return nil
		}
		if key.Matches(msg, m.keyMap.ExecuteQuery) {
			sql := bs.Editor.Value()
			if strings.TrimSpace(sql) == "" {
				return nil
			}
			id := m.buffers.Active().ID
			return func() tea.Msg { return appmsg.ExecuteQueryMsg{BufferID: id, SQL: sql} }
		}
		var cmd tea.Cmd
		bs.Editor, cmd = bs.Editor.Update(msg)
		if b := m.buffers.Active(); b != nil {
			m.tabs.SetModified(b.ID, bs.Editor.Modified())
		}
		return cmd

	case appmsg.PaneResults:
		bs := m.activeBufState()
		if bs == nil {
			return nil
		}
		var cmd tea.Cmd
		bs.Results, cmd = bs.Results.Update(msg)
		return cmd
	}
	return nil
}

// View renders the entire application.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	tabBar := m.tabs.View()
	statusBar := m.statusbar.View()

	mainHeight := m.height - lipgloss.Height(tabBar) - lipgloss.Height(statusBar)
	if mainHeight < 1 {
		mainHeight = 1
	}

	var editorView, resultsView string
	if bs := m.activeBufState(); bs != nil {
		editorView = bs.Editor.View()
		resultsView = bs.Results.View()
	}
	mainContent := lipgloss.JoinVertical(lipgloss.Left, editorView, resultsView)

	var content string
	if m.showExplorer {
		content = lipgloss.JoinHorizontal(lipgloss.Top, m.explorer.View(), mainContent)
	} else {
		content = mainContent
	}

	view := lipgloss.JoinVertical(lipgloss.Left, tabBar, content, statusBar)

	if m.showHelp {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.renderHelpScreen())
	}
	if m.histBrowser.Visible() {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.histBrowser.View())
	}
	if m.form.Visible() {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.form.View())
	}
	return m.float.Overlay(view)
}

func (m *Model) updateLayout() {
	m.tabs.SetSize(m.width)
	m.statusbar.SetSize(m.width)
	m.float.SetSize(m.width, m.height)
	m.histBrowser.SetSize(m.width, m.height)

	mainHeight := m.height - 3 // tab bar + status bar estimate
	if mainHeight < 1 {
		mainHeight = 1
	}
	mainWidth := m.width
	if m.showExplorer {
		mainWidth = m.width - m.explorerWidth
		m.explorer.SetSize(m.explorerWidth, mainHeight)
	}

	if bs := m.activeBufState(); bs != nil {
		editorH := mainHeight * m.editorHeight / 100
		if editorH < 3 {
			editorH = 3
		}
		resultsH := mainHeight - editorH
		if resultsH < 3 {
			resultsH = 3
		}
		bs.Editor.SetSize(mainWidth, editorH)
		bs.Results.SetSize(mainWidth, resultsH)
	}
}

func (m *Model) cycleFocus(direction int) {
	panes := []appmsg.Pane{appmsg.PaneEditor, appmsg.PaneResults}
	if m.showExplorer {
		panes = []appmsg.Pane{appmsg.PaneExplorer, appmsg.PaneEditor, appmsg.PaneResults}
	}

	current := 0
	for i, p := range panes {
		if p == m.focusedPane {
			current = i
			break
		}
	}
	next := (current + direction + len(panes)) % len(panes)
	m.setFocus(panes[next])
}

func (m *Model) setFocus(pane appmsg.Pane) {
	switch m.focusedPane {
	case appmsg.PaneExplorer:
		m.explorer.Blur()
	case appmsg.PaneEditor:
		if bs := m.activeBufState(); bs != nil {
			bs.Editor.Blur()
		}
	case appmsg.PaneResults:
		if bs := m.activeBufState(); bs != nil {
			bs.Results.Blur()
		}
	}

	m.focusedPane = pane
	m.statusbar.SetPane(pane)

	switch pane {
	case appmsg.PaneExplorer:
		m.explorer.Focus()
	case appmsg.PaneEditor:
		if bs := m.activeBufState(); bs != nil {
			bs.Editor.Focus()
		}
	case appmsg.PaneResults:
		if bs := m.activeBufState(); bs != nil {
			bs.Results.Focus()
		}
	}
}

func (m Model) activeBufState() *bufState {
	b := m.buffers.Active()
	if b == nil {
		return nil
	}
	return m.bufStates[b.ID]
}

// openBuffer creates a buffer plus its editor/results pair and makes it
// active.
func (m *Model) openBuffer(sql string, server *catalog.Server, database string) *querybuf.Buffer {
	m.bufSeq++
	title := fmt.Sprintf("Query %d", m.bufSeq)
	b := m.buffers.Open(title, sql, server, database)

	dialect := ""
	if server != nil {
		dialect = server.DriverName
	}
	ed := editor.New(dialect)
	if sql != "" {
		ed.SetValue(sql)
	}
	if m.focusedPane == appmsg.PaneEditor {
		ed.Focus()
	}
	m.bufStates[b.ID] = &bufState{
		Editor:  ed,
		Results: results.New(),
	}
	m.syncTabs()
	return b
}

// syncTabs rebuilds the tab bar from the buffer manager.
func (m *Model) syncTabs() {
	var ts []tabs.Tab
	for _, b := range m.buffers.Buffers() {
		t := tabs.Tab{ID: b.ID, Title: b.Title, Running: b.Running}
		if bs := m.bufStates[b.ID]; bs != nil {
			t.Modified = bs.Editor.Modified()
		}
		ts = append(ts, t)
	}
	activeID := 0
	if b := m.buffers.Active(); b != nil {
		activeID = b.ID
	}
	m.tabs.SetTabs(ts, activeID)
}

// handleOpenQuery opens generated SQL in a fresh buffer bound to the
// originating server and database.
func (m *Model) handleOpenQuery(msg appmsg.OpenQueryMsg) tea.Cmd {
	b := m.openBuffer(msg.SQL, msg.Server, msg.Database)
	if msg.Title != "" {
		b.Title = msg.Title
		m.syncTabs()
	}
	m.setFocus(appmsg.PaneEditor)
	m.updateLayout()
	if msg.Execute {
		return m.buffers.Execute(b.ID, msg.SQL)
	}
	return nil
}

// AddServer registers an additional server in the explorer without
// persisting it, for connections given on the command line.
func (m *Model) AddServer(name, driver, dsn string) {
	srv := catalog.NewServer(name, driver, dsn)
	if m.cfg.Explorer.LoadPolicy == "eager" {
		srv.Policy = catalog.PolicyEager
	}
	srv.SchemaFilter = m.cfg.Explorer.SchemaFilter
	m.explorer.AddServer(srv)
}

func (m Model) findServer(name string) *catalog.Server {
	for _, s := range m.explorer.Servers() {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

// promptForm builds an input form from a field prompt request.
func promptForm(msg appmsg.PromptFieldsMsg) inputform.Model {
	var fields []*inputform.Field
	for _, f := range msg.Fields {
		fields = append(fields, inputform.NewField(f.Label, f.Placeholder, f.Value))
	}
	onSubmit := msg.OnSubmit
	return inputform.New(msg.Title, fields,
		func(values []string) tea.Msg {
			if onSubmit == nil {
				return nil
			}
			return onSubmit(values)
		},
		func() tea.Msg { return nil },
	)
}

// addServerForm builds the register-server form.
func (m *Model) addServerForm() inputform.Model {
	fields := []*inputform.Field{
		inputform.NewField("Name", "production", ""),
		inputform.NewField("Driver", "postgres|mysql|sqlserver|sqlite|duckdb", ""),
		inputform.NewField("Host", "localhost", ""),
		inputform.NewField("Port", "5432", ""),
		inputform.NewField("User", "", ""),
		inputform.NewField("Password", "", ""),
		inputform.NewField("Database", "", ""),
	}
	return inputform.New("Add Server", fields,
		func(values []string) tea.Msg {
			port, _ := strconv.Atoi(values[3])
			sv := config.SavedServer{
				Name:     values[0],
				Driver:   values[1],
				Host:     values[2],
				Port:     port,
				User:     values[4],
				Password: values[5],
				Database: values[6],
			}
			if sv.Driver == "sqlite" || sv.Driver == "duckdb" {
				sv.File = values[6]
			}
			return serverAddedMsg{saved: sv}
		},
		func() tea.Msg { return nil },
	)
}

func (m *Model) handleServerAdded(msg serverAddedMsg) tea.Cmd {
	sv := msg.saved
	if sv.Name == "" || sv.Driver == "" {
		return func() tea.Msg {
			return appmsg.StatusMsg{Text: "Server name and driver are required", IsError: true}
		}
	}

	srv := catalog.NewServer(sv.Name, sv.Driver, sv.BuildDSN())
	if m.cfg.Explorer.LoadPolicy == "eager" {
		srv.Policy = catalog.PolicyEager
	}
	srv.SchemaFilter = m.cfg.Explorer.SchemaFilter
	m.explorer.AddServer(srv)

	m.cfg.Servers = append(m.cfg.Servers, sv)
	if err := m.cfg.SaveDefault(); err != nil {
		return func() tea.Msg {
			return appmsg.StatusMsg{Text: "Server added (config not saved: " + err.Error() + ")", IsError: true}
		}
	}
	return func() tea.Msg {
		return appmsg.StatusMsg{Text: "Server " + sv.Name + " added"}
	}
}

func (m *Model) exportResults(format, path string) tea.Cmd {
	bs := m.activeBufState()
	if bs == nil {
		return nil
	}
	cols := bs.Results.Columns()
	rows := bs.Results.Rows()
	if len(cols) == 0 || len(rows) == 0 {
		return func() tea.Msg {
			return appmsg.ExportErrMsg{Err: fmt.Errorf("no results to export")}
		}
	}
	if format == "" {
		format = "csv"
	}

	return func() tea.Msg {
		out := path
		if out == "" {
			dir, err := os.Getwd()
			if err != nil {
				return appmsg.ExportErrMsg{Err: err}
			}
			out = filepath.Join(dir, fmt.Sprintf("export_%s.%s", time.Now().Format("20060102_150405"), format))
		}
		n, err := results.Export(format, out, cols, rows)
		if err != nil {
			return appmsg.ExportErrMsg{Err: err}
		}
		return appmsg.ExportCompleteMsg{Path: out, RowCount: n}
	}
}

func (m *Model) renderHelpScreen() string {
	th := theme.Current

	keyStyle := th.StatusBarKey
	descStyle := th.InputValue
	sectionStyle := th.FloatTitle

	line := func(k, desc string) string {
		return fmt.Sprintf("  %s  %s", keyStyle.Render(fmt.Sprintf("%-16s", k)), descStyle.Render(desc))
	}

	var b strings.Builder
	b.WriteString(th.FloatTitle.Render("  dbnav - Keyboard Shortcuts"))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("  Query"))
	b.WriteString("\n")
	b.WriteString(line("F5 / Ctrl+G", "Execute query"))
	b.WriteString("\n")
	b.WriteString(line("Ctrl+C", "Cancel running query"))
	b.WriteString("\n")
	b.WriteString(line("Ctrl+E", "Export results"))
	b.WriteString("\n")
	b.WriteString(line("Ctrl+H", "Query history"))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("  Navigation"))
	b.WriteString("\n")
	b.WriteString(line("Tab / Shift+Tab", "Next / previous pane"))
	b.WriteString("\n")
	b.WriteString(line("Alt+1 / 2 / 3", "Jump to explorer / editor / results"))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("  Buffers"))
	b.WriteString("\n")
	b.WriteString(line("Ctrl+T", "New buffer"))
	b.WriteString("\n")
	b.WriteString(line("Ctrl+W", "Close buffer"))
	b.WriteString("\n")
	b.WriteString(line("Ctrl+] / Ctrl+[", "Next / previous buffer"))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("  Explorer"))
	b.WriteString("\n")
	b.WriteString(line("Enter / Right", "Expand node / run action"))
	b.WriteString("\n")
	b.WriteString(line("Left", "Collapse node / go to parent"))
	b.WriteString("\n")
	b.WriteString(line("r", "Reload node"))
	b.WriteString("\n")
	b.WriteString(line("x", "Cancel node load"))
	b.WriteString("\n")
	b.WriteString(line("/", "Filter objects"))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("  Application"))
	b.WriteString("\n")
	b.WriteString(line("Ctrl+B", "Toggle explorer"))
	b.WriteString("\n")
	b.WriteString(line("Ctrl+Arrow keys", "Resize panes"))
	b.WriteString("\n")
	b.WriteString(line("Ctrl+Q", "Quit"))
	b.WriteString("\n")

	b.WriteString("\n")
	b.WriteString(th.MutedText.Render("  Press ? / F1 / Esc to close"))

	return th.FloatBorder.Render(b.String())
}
