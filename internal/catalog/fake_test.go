package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/sadopc/dbnav/internal/adapter"
)

// fakeSession is an in-memory adapter.Session. Every introspection call
// bumps a counter keyed by method and arguments so tests can assert how
// many queries a loading policy actually issued.
type fakeSession struct {
	dbType        string
	features      adapter.Features
	defSchema     string
	databases     []string
	schemas       map[string][]string               // db -> schema names
	tables        map[string][]adapter.TableInfo    // db -> tables (all schemas)
	views         map[string][]adapter.ViewInfo
	procs         map[string][]adapter.RoutineInfo
	funcs         map[string][]adapter.RoutineInfo
	syns          map[string][]adapter.SynonymInfo
	columns       map[string][]adapter.ColumnInfo    // "db/schema/object"
	indexes       map[string][]adapter.IndexInfo     // "db/schema/table"
	constraints   map[string][]adapter.ConstraintInfo
	params        map[string][]adapter.ParameterInfo // "db/schema/routine"
	defs          map[string]string                  // "db/schema/object"
	bulkSupported bool

	calls map[string]int
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		dbType:    "sqlserver",
		features:  adapter.Features{Schemas: true, Views: true, Procedures: true, Functions: true, Synonyms: true},
		defSchema: "dbo",
		schemas:   map[string][]string{},
		tables:    map[string][]adapter.TableInfo{},
		views:     map[string][]adapter.ViewInfo{},
		procs:     map[string][]adapter.RoutineInfo{},
		funcs:     map[string][]adapter.RoutineInfo{},
		syns:      map[string][]adapter.SynonymInfo{},
		columns:   map[string][]adapter.ColumnInfo{},
		indexes:   map[string][]adapter.IndexInfo{},
		constraints: map[string][]adapter.ConstraintInfo{},
		params:    map[string][]adapter.ParameterInfo{},
		defs:      map[string]string{},
		calls:     map[string]int{},
	}
}

func (f *fakeSession) count(method string, args ...string) {
	key := method
	for _, a := range args {
		key += ":" + a
	}
	f.calls[key]++
}

func objKey(db, schema, object string) string { return db + "/" + schema + "/" + object }

func (f *fakeSession) DBType() string             { return f.dbType }
func (f *fakeSession) Features() adapter.Features { return f.features }
func (f *fakeSession) DefaultSchema() string      { return f.defSchema }
func (f *fakeSession) DatabaseName() string {
	if len(f.databases) > 0 {
		return f.databases[0]
	}
	return ""
}

func (f *fakeSession) Databases(context.Context) ([]string, error) {
	f.count("databases")
	return append([]string(nil), f.databases...), nil
}

func (f *fakeSession) Schemas(_ context.Context, db string) ([]string, error) {
	f.count("schemas", db)
	return append([]string(nil), f.schemas[db]...), nil
}

func (f *fakeSession) Tables(_ context.Context, db, schema string) ([]adapter.TableInfo, error) {
	f.count("tables", db, schema)
	var out []adapter.TableInfo
	for _, t := range f.tables[db] {
		if schema == "" || t.Schema == schema {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeSession) Views(_ context.Context, db, schema string) ([]adapter.ViewInfo, error) {
	f.count("views", db, schema)
	var out []adapter.ViewInfo
	for _, v := range f.views[db] {
		if schema == "" || v.Schema == schema {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeSession) Procedures(_ context.Context, db, schema string) ([]adapter.RoutineInfo, error) {
	f.count("procedures", db, schema)
	var out []adapter.RoutineInfo
	for _, p := range f.procs[db] {
		if schema == "" || p.Schema == schema {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeSession) Functions(_ context.Context, db, schema string) ([]adapter.RoutineInfo, error) {
	f.count("functions", db, schema)
	var out []adapter.RoutineInfo
	for _, fn := range f.funcs[db] {
		if schema == "" || fn.Schema == schema {
			out = append(out, fn)
		}
	}
	return out, nil
}

func (f *fakeSession) Synonyms(_ context.Context, db, schema string) ([]adapter.SynonymInfo, error) {
	f.count("synonyms", db, schema)
	var out []adapter.SynonymInfo
	for _, s := range f.syns[db] {
		if schema == "" || s.Schema == schema {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSession) Columns(_ context.Context, db, schema, object string) ([]adapter.ColumnInfo, error) {
	f.count("columns", db, schema, object)
	return f.columns[objKey(db, schema, object)], nil
}

func (f *fakeSession) Indexes(_ context.Context, db, schema, table string) ([]adapter.IndexInfo, error) {
	f.count("indexes", db, schema, table)
	return f.indexes[objKey(db, schema, table)], nil
}

func (f *fakeSession) Constraints(_ context.Context, db, schema, table string) ([]adapter.ConstraintInfo, error) {
	f.count("constraints", db, schema, table)
	return f.constraints[objKey(db, schema, table)], nil
}

func (f *fakeSession) Parameters(_ context.Context, db, schema, routine string) ([]adapter.ParameterInfo, error) {
	f.count("parameters", db, schema, routine)
	return f.params[objKey(db, schema, routine)], nil
}

func (f *fakeSession) Definition(_ context.Context, db, schema, object string) (string, error) {
	f.count("definition", db, schema, object)
	return f.defs[objKey(db, schema, object)], nil
}

func (f *fakeSession) Dependencies(context.Context, string, string, string) ([]adapter.Dependency, error) {
	return nil, nil
}

func (f *fakeSession) AllDefinitions(_ context.Context, db string) (map[adapter.ObjectKey]string, error) {
	f.count("alldefinitions", db)
	if !f.bulkSupported {
		return nil, adapter.ErrUnsupported
	}
	out := map[adapter.ObjectKey]string{}
	for key, def := range f.defs {
		parts := strings.SplitN(key, "/", 3)
		if len(parts) != 3 || parts[0] != db {
			continue
		}
		out[adapter.ObjectKey{Schema: parts[1], Name: parts[2]}] = def
	}
	return out, nil
}

func (f *fakeSession) AllObjectMeta(_ context.Context, db string) (map[adapter.ObjectKey]adapter.ObjectMeta, error) {
	f.count("allobjectmeta", db)
	if !f.bulkSupported {
		return nil, adapter.ErrUnsupported
	}
	return map[adapter.ObjectKey]adapter.ObjectMeta{}, nil
}

func (f *fakeSession) Execute(_ context.Context, query string) (*adapter.QueryResult, error) {
	f.count("execute")
	return &adapter.QueryResult{IsSelect: true, Duration: time.Millisecond}, nil
}

func (f *fakeSession) Cancel() error { return nil }

func (f *fakeSession) QuoteIdent(name string) string { return "[" + name + "]" }

func (f *fakeSession) QualifiedName(db, schema, object string) string {
	out := ""
	for _, part := range []string{db, schema, object} {
		if part == "" {
			continue
		}
		if out != "" {
			out += "."
		}
		out += f.QuoteIdent(part)
	}
	return out
}

func (f *fakeSession) Ping(context.Context) error { return nil }
func (f *fakeSession) Close() error               { return nil }

// newTestServer wires a connected server around the fake with one database
// holding two schemas of objects.
func newTestServer(f *fakeSession) *Server {
	f.databases = []string{"appdb"}
	f.schemas["appdb"] = []string{"dbo", "sales"}
	f.tables["appdb"] = []adapter.TableInfo{
		{Schema: "dbo", Name: "Users", RowCount: 3},
		{Schema: "dbo", Name: "Orders", RowCount: 9},
		{Schema: "sales", Name: "Invoices", RowCount: 2},
	}
	f.views["appdb"] = []adapter.ViewInfo{
		{Schema: "dbo", Name: "ActiveUsers"},
	}
	f.procs["appdb"] = []adapter.RoutineInfo{
		{Schema: "dbo", Name: "GetUser"},
	}
	f.funcs["appdb"] = []adapter.RoutineInfo{
		{Schema: "dbo", Name: "FullName"},
	}
	f.columns[objKey("appdb", "dbo", "Users")] = []adapter.ColumnInfo{
		{Name: "id", DataType: "int", Position: 1},
		{Name: "email", DataType: "nvarchar(200)", Nullable: true, Position: 2},
		{Name: "org_id", DataType: "int", Position: 3},
	}
	f.constraints[objKey("appdb", "dbo", "Users")] = []adapter.ConstraintInfo{
		{Name: "PK_Users", Type: adapter.ConstraintPrimaryKey, Columns: []string{"id"}},
		{Name: "FK_Users_Org", Type: adapter.ConstraintForeignKey, Columns: []string{"org_id"},
			RefSchema: "dbo", RefTable: "Orgs", RefColumns: []string{"id"}},
	}
	return NewServerWithSession("test", f)
}
