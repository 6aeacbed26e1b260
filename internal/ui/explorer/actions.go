package explorer

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/dbnav/internal/adapter"
	"github.com/sadopc/dbnav/internal/catalog"
	appmsg "github.com/sadopc/dbnav/internal/msg"
	"github.com/sadopc/dbnav/internal/task"
)

// synonymResolvedMsg carries the result of a go-to-base-object resolution.
type synonymResolvedMsg struct {
	source  *catalog.Synonym
	target  catalog.Entity
	err     error
	crossDB bool
}

// executeAction dispatches the operation behind an action leaf. Query
// generation runs inside the returned command because templates may fetch
// columns or parameters first.
func (m *Model) executeAction(a *catalog.Action) tea.Cmd {
	owner := a.Owner
	srv := catalog.ServerOf(owner)
	if srv == nil {
		return status("no server for "+owner.Name(), true)
	}
	dbName := ""
	if db := catalog.DatabaseOf(owner); db != nil {
		dbName = db.Name()
	}
	timeout := m.timeout
	if timeout <= 0 {
		timeout = task.DefaultTimeout
	}

	switch a.Type {
	case catalog.ActionDrop:
		return m.confirmDrop(a, srv, dbName)

	case catalog.ActionExec:
		if p, ok := owner.(*catalog.Procedure); ok {
			return m.promptExec(p, srv, dbName)
		}

	case catalog.ActionAlter:
		return m.openDefinition(owner, srv, dbName)

	case catalog.ActionDependencies:
		return m.showDependencies(owner, srv)

	case catalog.ActionGoto:
		if syn, ok := owner.(*catalog.Synonym); ok {
			if !srv.Loaded() {
				// Cross-database targets need the server's database list;
				// resolve once the load completes.
				m.pendingGoto[srv] = syn
				return m.startLoad(srv)
			}
			return m.resolveSynonym(syn, timeout)
		}
	}

	execute := a.Type == catalog.ActionSelect ||
		a.Type == catalog.ActionCount ||
		a.Type == catalog.ActionDescribe
	action := a
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		sql, err := catalog.BuildQuery(ctx, action)
		if err != nil {
			return appmsg.StatusMsg{Text: err.Error(), IsError: true}
		}
		return appmsg.OpenQueryMsg{
			Title:    fmt.Sprintf("%s %s", strings.ToLower(action.Type.String()), owner.Name()),
			SQL:      sql,
			Server:   srv,
			Database: dbName,
			Execute:  execute,
		}
	}
}

// confirmDrop asks before opening the DROP statement; the statement is
// never executed unprompted.
func (m *Model) confirmDrop(a *catalog.Action, srv *catalog.Server, dbName string) tea.Cmd {
	owner := a.Owner
	stmt, err := catalog.DropStatement(owner)
	if err != nil {
		return status(err.Error(), true)
	}
	return func() tea.Msg {
		return appmsg.ConfirmMsg{
			Title:  "Drop " + owner.Kind().String(),
			Prompt: fmt.Sprintf("Open DROP statement for %s?", owner.Name()),
			OnConfirm: func() tea.Msg {
				return appmsg.OpenQueryMsg{
					Title:    "drop " + owner.Name(),
					SQL:      stmt,
					Server:   srv,
					Database: dbName,
				}
			},
		}
	}
}

// promptExec fetches the routine's parameters and opens one input field per
// IN/INOUT parameter; the submitted values are spliced into the invocation.
func (m *Model) promptExec(p *catalog.Procedure, srv *catalog.Server, dbName string) tea.Cmd {
	timeout := m.timeout
	if timeout <= 0 {
		timeout = task.DefaultTimeout
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		params, err := p.GetParameters(ctx)
		if err != nil {
			return appmsg.StatusMsg{Text: err.Error(), IsError: true}
		}

		var inputs []*catalog.Parameter
		for _, pr := range params {
			if pr.Info.Mode == adapter.ParamOut {
				continue
			}
			inputs = append(inputs, pr)
		}

		if len(inputs) == 0 {
			sql, err := catalog.ExecStatement(ctx, p)
			if err != nil {
				return appmsg.StatusMsg{Text: err.Error(), IsError: true}
			}
			return appmsg.OpenQueryMsg{
				Title:    "exec " + p.Name(),
				SQL:      sql,
				Server:   srv,
				Database: dbName,
			}
		}

		fields := make([]appmsg.PromptField, len(inputs))
		for i, pr := range inputs {
			fields[i] = appmsg.PromptField{
				Label:       pr.Name(),
				Placeholder: pr.Info.DataType,
			}
		}
		dbType := ""
		if sess := srv.Session(); sess != nil {
			dbType = sess.DBType()
		}
		proc := p
		return appmsg.PromptFieldsMsg{
			Title:  "Execute " + p.Name(),
			Fields: fields,
			OnSubmit: func(values []string) tea.Msg {
				sql := execWithValues(proc, inputs, values, dbType)
				return appmsg.OpenQueryMsg{
					Title:    "exec " + proc.Name(),
					SQL:      sql,
					Server:   srv,
					Database: dbName,
				}
			},
		}
	}
}

// execWithValues renders the invocation with user-supplied argument text.
// Values are inserted verbatim; the user sees and edits the statement
// before running it.
func execWithValues(p *catalog.Procedure, inputs []*catalog.Parameter, values []string, dbType string) string {
	name := catalog.FullPath(p, ".")
	if srv := catalog.ServerOf(p); srv != nil {
		if sess := srv.Session(); sess != nil {
			schema := ""
			if sc := catalog.SchemaOf(p); sc != nil {
				schema = sc.Name()
			}
			dbName := ""
			if db := catalog.DatabaseOf(p); db != nil {
				dbName = db.Name()
			}
			name = sess.QualifiedName(dbName, schema, p.Name())
		}
	}

	args := make([]string, 0, len(inputs))
	for i, pr := range inputs {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		if v == "" {
			v = "NULL"
		}
		if dbType == "sqlserver" {
			args = append(args, fmt.Sprintf("%s = %s", pr.Name(), v))
		} else {
			args = append(args, v)
		}
	}

	if dbType == "sqlserver" {
		if len(args) == 0 {
			return fmt.Sprintf("EXEC %s;", name)
		}
		return fmt.Sprintf("EXEC %s\n    %s;", name, strings.Join(args, ",\n    "))
	}
	return fmt.Sprintf("CALL %s(%s);", name, strings.Join(args, ", "))
}

// openDefinition loads the object's source and opens it for editing.
func (m *Model) openDefinition(owner catalog.Entity, srv *catalog.Server, dbName string) tea.Cmd {
	timeout := m.timeout
	if timeout <= 0 {
		timeout = task.DefaultTimeout
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		def, err := definitionOf(ctx, owner)
		if err != nil {
			return appmsg.StatusMsg{Text: err.Error(), IsError: true}
		}
		if strings.TrimSpace(def) == "" {
			return appmsg.StatusMsg{Text: "no definition available for " + owner.Name(), IsError: true}
		}
		return appmsg.OpenQueryMsg{
			Title:    "alter " + owner.Name(),
			SQL:      def,
			Server:   srv,
			Database: dbName,
		}
	}
}

func definitionOf(ctx context.Context, e catalog.Entity) (string, error) {
	switch o := e.(type) {
	case *catalog.View:
		if err := o.LoadDefinition(ctx); err != nil {
			return "", err
		}
		return o.Definition(), nil
	case *catalog.Procedure:
		if err := o.LoadDefinition(ctx); err != nil {
			return "", err
		}
		return o.Definition(), nil
	case *catalog.Function:
		if err := o.LoadDefinition(ctx); err != nil {
			return "", err
		}
		return o.Definition(), nil
	}
	return "", fmt.Errorf("%s has no stored definition", e.Kind())
}

// showDependencies lists referencing and referenced objects in a float.
func (m *Model) showDependencies(owner catalog.Entity, srv *catalog.Server) tea.Cmd {
	timeout := m.timeout
	if timeout <= 0 {
		timeout = task.DefaultTimeout
	}
	return func() tea.Msg {
		sess := srv.Session()
		if sess == nil {
			return appmsg.StatusMsg{Text: adapter.ErrNotConnected.Error(), IsError: true}
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		dbName := ""
		if db := catalog.DatabaseOf(owner); db != nil {
			dbName = db.Name()
		}
		schema := ""
		if sc := catalog.SchemaOf(owner); sc != nil {
			schema = sc.Name()
		}
		deps, err := sess.Dependencies(ctx, dbName, schema, owner.Name())
		if err != nil {
			return appmsg.StatusMsg{Text: err.Error(), IsError: true}
		}
		if len(deps) == 0 {
			return appmsg.ShowFloatMsg{
				Title: "Dependencies: " + owner.Name(),
				Lines: []string{"No dependencies found."},
			}
		}

		var uses, usedBy []string
		for _, d := range deps {
			line := fmt.Sprintf("  %-10s %s.%s", strings.ToLower(d.Type), d.Schema, d.Name)
			if d.Referencing {
				usedBy = append(usedBy, line)
			} else {
				uses = append(uses, line)
			}
		}
		var lines []string
		if len(uses) > 0 {
			lines = append(lines, "Uses:")
			lines = append(lines, uses...)
		}
		if len(usedBy) > 0 {
			if len(lines) > 0 {
				lines = append(lines, "")
			}
			lines = append(lines, "Used by:")
			lines = append(lines, usedBy...)
		}
		return appmsg.ShowFloatMsg{Title: "Dependencies: " + owner.Name(), Lines: lines}
	}
}

// resolveSynonym resolves the base object chain and jumps to the target.
func (m *Model) resolveSynonym(syn *catalog.Synonym, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		target, err := syn.Resolve(ctx)
		if err != nil {
			return synonymResolvedMsg{source: syn, err: err}
		}
		crossDB := catalog.DatabaseOf(target) != catalog.DatabaseOf(syn)
		return synonymResolvedMsg{source: syn, target: target, crossDB: crossDB}
	}
}

// handleSynonymResolved moves the cursor to the resolved base object.
func (m Model) handleSynonymResolved(res synonymResolvedMsg) (Model, tea.Cmd) {
	if res.err != nil {
		return m, status(fmt.Sprintf("resolve %s: %v", res.source.Name(), res.err), true)
	}
	m.moveCursorTo(res.target)
	if res.crossDB {
		return m, status(fmt.Sprintf("%s resolves into another database", res.source.Name()), false)
	}
	return m, status("jumped to "+res.target.Name(), false)
}
