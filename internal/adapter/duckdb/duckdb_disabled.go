//go:build !duckdb

package duckdb

import (
	"context"
	"errors"

	"github.com/sadopc/dbnav/internal/adapter"
)

var errDisabled = errors.New("DuckDB support not compiled in. Rebuild with -tags duckdb")

func init() {
	adapter.Register(&disabledDriver{})
}

type disabledDriver struct{}

func (d *disabledDriver) Name() string     { return "duckdb" }
func (d *disabledDriver) DefaultPort() int { return 0 }

func (d *disabledDriver) Connect(_ context.Context, _ string) (adapter.Session, error) {
	return nil, errDisabled
}

// disabledSession is never instantiated but satisfies the interface at compile time.
var _ adapter.Session = (*disabledSession)(nil)

type disabledSession struct{}

func (s *disabledSession) DBType() string             { return "duckdb" }
func (s *disabledSession) Features() adapter.Features { return adapter.Features{} }
func (s *disabledSession) DefaultSchema() string      { return "" }
func (s *disabledSession) DatabaseName() string       { return "" }

func (s *disabledSession) Databases(context.Context) ([]string, error) { return nil, errDisabled }
func (s *disabledSession) Schemas(context.Context, string) ([]string, error) {
	return nil, errDisabled
}
func (s *disabledSession) Tables(context.Context, string, string) ([]adapter.TableInfo, error) {
	return nil, errDisabled
}
func (s *disabledSession) Views(context.Context, string, string) ([]adapter.ViewInfo, error) {
	return nil, errDisabled
}
func (s *disabledSession) Procedures(context.Context, string, string) ([]adapter.RoutineInfo, error) {
	return nil, errDisabled
}
func (s *disabledSession) Functions(context.Context, string, string) ([]adapter.RoutineInfo, error) {
	return nil, errDisabled
}
func (s *disabledSession) Synonyms(context.Context, string, string) ([]adapter.SynonymInfo, error) {
	return nil, errDisabled
}
func (s *disabledSession) Columns(context.Context, string, string, string) ([]adapter.ColumnInfo, error) {
	return nil, errDisabled
}
func (s *disabledSession) Indexes(context.Context, string, string, string) ([]adapter.IndexInfo, error) {
	return nil, errDisabled
}
func (s *disabledSession) Constraints(context.Context, string, string, string) ([]adapter.ConstraintInfo, error) {
	return nil, errDisabled
}
func (s *disabledSession) Parameters(context.Context, string, string, string) ([]adapter.ParameterInfo, error) {
	return nil, errDisabled
}
func (s *disabledSession) Definition(context.Context, string, string, string) (string, error) {
	return "", errDisabled
}
func (s *disabledSession) Dependencies(context.Context, string, string, string) ([]adapter.Dependency, error) {
	return nil, errDisabled
}
func (s *disabledSession) AllDefinitions(context.Context, string) (map[adapter.ObjectKey]string, error) {
	return nil, errDisabled
}
func (s *disabledSession) AllObjectMeta(context.Context, string) (map[adapter.ObjectKey]adapter.ObjectMeta, error) {
	return nil, errDisabled
}
func (s *disabledSession) Execute(context.Context, string) (*adapter.QueryResult, error) {
	return nil, errDisabled
}
func (s *disabledSession) Cancel() error                      { return errDisabled }
func (s *disabledSession) QuoteIdent(name string) string      { return name }
func (s *disabledSession) QualifiedName(_, _, o string) string { return o }
func (s *disabledSession) Ping(context.Context) error         { return errDisabled }
func (s *disabledSession) Close() error                       { return errDisabled }
