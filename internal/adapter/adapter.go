package adapter

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotConnected = errors.New("not connected to database")
	ErrCancelled    = errors.New("query cancelled")
	// ErrUnsupported is returned by bulk metadata methods on engines that
	// have no single-query implementation; callers fall back to per-object
	// loading.
	ErrUnsupported = errors.New("operation not supported by this engine")
)

// Driver creates database sessions.
type Driver interface {
	Connect(ctx context.Context, dsn string) (Session, error)
	Name() string
	DefaultPort() int
}

// Features describes which object kinds an engine exposes. Engines without
// the Schemas flag store tables and routines directly under the database.
type Features struct {
	Schemas    bool
	Views      bool
	Procedures bool
	Functions  bool
	Synonyms   bool
}

// ObjectKey identifies an object within a database for bulk result maps.
type ObjectKey struct {
	Schema string
	Name   string
}

// Session represents an active connection to one server.
//
// Introspection methods take a schema argument where applicable; the empty
// string means "all schemas" and performs one bulk query whose results span
// every schema. Engines without schema support ignore the argument.
type Session interface {
	// Identity and capabilities
	DBType() string
	Features() Features
	DefaultSchema() string
	DatabaseName() string

	// Introspection
	Databases(ctx context.Context) ([]string, error)
	Schemas(ctx context.Context, db string) ([]string, error)
	Tables(ctx context.Context, db, schema string) ([]TableInfo, error)
	Views(ctx context.Context, db, schema string) ([]ViewInfo, error)
	Procedures(ctx context.Context, db, schema string) ([]RoutineInfo, error)
	Functions(ctx context.Context, db, schema string) ([]RoutineInfo, error)
	Synonyms(ctx context.Context, db, schema string) ([]SynonymInfo, error)
	Columns(ctx context.Context, db, schema, object string) ([]ColumnInfo, error)
	Indexes(ctx context.Context, db, schema, table string) ([]IndexInfo, error)
	Constraints(ctx context.Context, db, schema, table string) ([]ConstraintInfo, error)
	Parameters(ctx context.Context, db, schema, routine string) ([]ParameterInfo, error)
	Definition(ctx context.Context, db, schema, object string) (string, error)
	Dependencies(ctx context.Context, db, schema, object string) ([]Dependency, error)

	// Bulk metadata; ErrUnsupported when the engine has no one-query path.
	AllDefinitions(ctx context.Context, db string) (map[ObjectKey]string, error)
	AllObjectMeta(ctx context.Context, db string) (map[ObjectKey]ObjectMeta, error)

	// Query execution
	Execute(ctx context.Context, query string) (*QueryResult, error)
	Cancel() error

	// Dialect helpers
	QuoteIdent(name string) string
	QualifiedName(db, schema, object string) string

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}

// TableInfo is one table row from introspection.
type TableInfo struct {
	Schema   string
	Name     string
	RowCount int64 // -1 if unknown
}

// ViewInfo is one view row from introspection.
type ViewInfo struct {
	Schema string
	Name   string
}

// RoutineInfo is one procedure or function row.
type RoutineInfo struct {
	Schema string
	Name   string
}

// SynonymInfo is one synonym row. BaseObject is the possibly-qualified
// target name as stored by the engine, e.g. "[OtherDB].[dbo].[Customers]".
type SynonymInfo struct {
	Schema     string
	Name       string
	BaseObject string
}

// ColumnInfo is one column row.
type ColumnInfo struct {
	Name     string
	DataType string
	Nullable bool
	Default  string
	Position int
}

// IndexInfo is one index row.
type IndexInfo struct {
	Name    string
	Columns []string
	Unique  bool
	Primary bool
}

// Constraint type tags.
const (
	ConstraintPrimaryKey = "PRIMARY KEY"
	ConstraintForeignKey = "FOREIGN KEY"
	ConstraintUnique     = "UNIQUE"
	ConstraintCheck      = "CHECK"
)

// ConstraintInfo is one constraint row. Ref* fields are set for foreign keys.
type ConstraintInfo struct {
	Name       string
	Type       string
	Columns    []string
	RefSchema  string
	RefTable   string
	RefColumns []string
}

// Parameter directions.
const (
	ParamIn    = "IN"
	ParamOut   = "OUT"
	ParamInOut = "INOUT"
)

// ParameterInfo is one routine parameter row.
type ParameterInfo struct {
	Name     string
	DataType string
	Mode     string
	Position int
}

// ObjectMeta holds the cross-type metadata loaded by AllObjectMeta.
type ObjectMeta struct {
	Type       string
	CreateDate string
	ModifyDate string
}

// Dependency is one edge from Dependencies.
type Dependency struct {
	Schema string
	Name   string
	Type   string
	// Referencing is true when the listed object depends on the queried
	// object rather than the other way around.
	Referencing bool
}

// QueryResult holds the result of a query execution.
type QueryResult struct {
	Columns  []ColumnMeta
	Rows     [][]string
	RowCount int64 // -1 if unknown
	Duration time.Duration
	IsSelect bool
	Message  string
}

// ColumnMeta holds metadata about a result column.
type ColumnMeta struct {
	Name     string
	Type     string
	Nullable bool
}

// Registry holds registered drivers by name.
var Registry = map[string]Driver{}

// Register adds a driver to the global registry.
func Register(d Driver) {
	Registry[d.Name()] = d
}
