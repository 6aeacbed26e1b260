//go:build duckdb

package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/sadopc/dbnav/internal/adapter"
)

func init() {
	adapter.Register(&duckdbDriver{})
}

// duckdbDriver implements adapter.Driver for DuckDB databases.
type duckdbDriver struct{}

func (d *duckdbDriver) Name() string     { return "duckdb" }
func (d *duckdbDriver) DefaultPort() int { return 0 }

func (d *duckdbDriver) Connect(ctx context.Context, dsn string) (adapter.Session, error) {
	dsn = strings.TrimPrefix(dsn, "duckdb://")

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("duckdb open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("duckdb ping: %w", err)
	}

	dbName := ":memory:"
	if dsn != "" {
		dbName = filepath.Base(dsn)
	}
	return &duckdbSession{db: db, dbName: dbName}, nil
}

// duckdbSession implements adapter.Session. DuckDB has schemas but no
// stored routines or synonyms worth browsing.
type duckdbSession struct {
	db     *sql.DB
	dbName string

	mu       sync.Mutex
	cancelFn context.CancelFunc
}

func (s *duckdbSession) DBType() string        { return "duckdb" }
func (s *duckdbSession) DatabaseName() string  { return s.dbName }
func (s *duckdbSession) DefaultSchema() string { return "main" }

func (s *duckdbSession) Features() adapter.Features {
	return adapter.Features{Schemas: true, Views: true}
}

func (s *duckdbSession) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *duckdbSession) Close() error                   { return s.db.Close() }

func (s *duckdbSession) Cancel() error {
	s.mu.Lock()
	fn := s.cancelFn
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

// ---------------------------------------------------------------------------
// Introspection
// ---------------------------------------------------------------------------

func (s *duckdbSession) Databases(ctx context.Context) ([]string, error) {
	return []string{s.dbName}, nil
}

func (s *duckdbSession) Schemas(ctx context.Context, db string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT schema_name FROM information_schema.schemata
		 WHERE catalog_name = current_database()
		   AND schema_name NOT IN ('information_schema', 'pg_catalog')
		 ORDER BY schema_name`)
	if err != nil {
		return nil, fmt.Errorf("duckdb schemas: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("duckdb schemas scan: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (s *duckdbSession) Tables(ctx context.Context, db, schema string) ([]adapter.TableInfo, error) {
	query := `SELECT schema_name, table_name, estimated_size
		 FROM duckdb_tables()
		 WHERE NOT internal`
	args := []any{}
	if schema != "" {
		query += ` AND schema_name = ?`
		args = append(args, schema)
	}
	query += ` ORDER BY schema_name, table_name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("duckdb tables: %w", err)
	}
	defer rows.Close()

	var out []adapter.TableInfo
	for rows.Next() {
		var (
			info adapter.TableInfo
			size sql.NullInt64
		)
		if err := rows.Scan(&info.Schema, &info.Name, &size); err != nil {
			return nil, fmt.Errorf("duckdb tables scan: %w", err)
		}
		info.RowCount = -1
		if size.Valid {
			info.RowCount = size.Int64
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *duckdbSession) Views(ctx context.Context, db, schema string) ([]adapter.ViewInfo, error) {
	query := `SELECT schema_name, view_name FROM duckdb_views() WHERE NOT internal`
	args := []any{}
	if schema != "" {
		query += ` AND schema_name = ?`
		args = append(args, schema)
	}
	query += ` ORDER BY schema_name, view_name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("duckdb views: %w", err)
	}
	defer rows.Close()

	var out []adapter.ViewInfo
	for rows.Next() {
		var info adapter.ViewInfo
		if err := rows.Scan(&info.Schema, &info.Name); err != nil {
			return nil, fmt.Errorf("duckdb views scan: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *duckdbSession) Procedures(ctx context.Context, db, schema string) ([]adapter.RoutineInfo, error) {
	return nil, nil
}

func (s *duckdbSession) Functions(ctx context.Context, db, schema string) ([]adapter.RoutineInfo, error) {
	return nil, nil
}

func (s *duckdbSession) Synonyms(ctx context.Context, db, schema string) ([]adapter.SynonymInfo, error) {
	return nil, nil
}

func (s *duckdbSession) Columns(ctx context.Context, db, schema, object string) ([]adapter.ColumnInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT column_name, data_type, is_nullable, COALESCE(column_default, ''), ordinal_position
		 FROM information_schema.columns
		 WHERE table_schema = ? AND table_name = ?
		 ORDER BY ordinal_position`, schema, object)
	if err != nil {
		return nil, fmt.Errorf("duckdb columns: %w", err)
	}
	defer rows.Close()

	var out []adapter.ColumnInfo
	for rows.Next() {
		var (
			info     adapter.ColumnInfo
			nullable string
		)
		if err := rows.Scan(&info.Name, &info.DataType, &nullable, &info.Default, &info.Position); err != nil {
			return nil, fmt.Errorf("duckdb columns scan: %w", err)
		}
		info.Nullable = nullable == "YES"
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *duckdbSession) Indexes(ctx context.Context, db, schema, table string) ([]adapter.IndexInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT index_name, is_unique, is_primary, COALESCE(expressions, '')
		 FROM duckdb_indexes()
		 WHERE schema_name = ? AND table_name = ?
		 ORDER BY index_name`, schema, table)
	if err != nil {
		return nil, fmt.Errorf("duckdb indexes: %w", err)
	}
	defer rows.Close()

	var out []adapter.IndexInfo
	for rows.Next() {
		var (
			info adapter.IndexInfo
			expr string
		)
		if err := rows.Scan(&info.Name, &info.Unique, &info.Primary, &expr); err != nil {
			return nil, fmt.Errorf("duckdb indexes scan: %w", err)
		}
		// expressions comes back as a bracketed list, e.g. [id, email].
		expr = strings.Trim(expr, "[]")
		if expr != "" {
			for _, c := range strings.Split(expr, ",") {
				info.Columns = append(info.Columns, strings.TrimSpace(c))
			}
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *duckdbSession) Constraints(ctx context.Context, db, schema, table string) ([]adapter.ConstraintInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT constraint_type, constraint_column_names
		 FROM duckdb_constraints()
		 WHERE schema_name = ? AND table_name = ?`, schema, table)
	if err != nil {
		return nil, fmt.Errorf("duckdb constraints: %w", err)
	}
	defer rows.Close()

	var out []adapter.ConstraintInfo
	n := 0
	for rows.Next() {
		var ctype, colList string
		if err := rows.Scan(&ctype, &colList); err != nil {
			return nil, fmt.Errorf("duckdb constraints scan: %w", err)
		}
		n++
		info := adapter.ConstraintInfo{
			Name: fmt.Sprintf("%s_%s_%d", strings.ToLower(strings.ReplaceAll(ctype, " ", "_")), table, n),
		}
		switch ctype {
		case "PRIMARY KEY":
			info.Type = adapter.ConstraintPrimaryKey
		case "FOREIGN KEY":
			info.Type = adapter.ConstraintForeignKey
		case "UNIQUE":
			info.Type = adapter.ConstraintUnique
		case "CHECK":
			info.Type = adapter.ConstraintCheck
		default:
			info.Type = ctype
		}
		colList = strings.Trim(colList, "[]")
		if colList != "" {
			for _, c := range strings.Split(colList, ",") {
				info.Columns = append(info.Columns, strings.TrimSpace(c))
			}
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *duckdbSession) Parameters(ctx context.Context, db, schema, routine string) ([]adapter.ParameterInfo, error) {
	return nil, nil
}

func (s *duckdbSession) Definition(ctx context.Context, db, schema, object string) (string, error) {
	var def sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT sql FROM duckdb_views() WHERE schema_name = ? AND view_name = ?`,
		schema, object).Scan(&def)
	if err == sql.ErrNoRows {
		err = s.db.QueryRowContext(ctx,
			`SELECT sql FROM duckdb_tables() WHERE schema_name = ? AND table_name = ?`,
			schema, object).Scan(&def)
	}
	if err != nil {
		return "", fmt.Errorf("duckdb definition %s: %w", object, err)
	}
	return def.String, nil
}

func (s *duckdbSession) Dependencies(ctx context.Context, db, schema, object string) ([]adapter.Dependency, error) {
	return nil, nil
}

// AllDefinitions reads every table and view CREATE statement in one pass.
func (s *duckdbSession) AllDefinitions(ctx context.Context, db string) (map[adapter.ObjectKey]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT schema_name, table_name, COALESCE(sql, '') FROM duckdb_tables() WHERE NOT internal
		 UNION ALL
		 SELECT schema_name, view_name, COALESCE(sql, '') FROM duckdb_views() WHERE NOT internal`)
	if err != nil {
		return nil, fmt.Errorf("duckdb bulk definitions: %w", err)
	}
	defer rows.Close()

	out := map[adapter.ObjectKey]string{}
	for rows.Next() {
		var schema, name, def string
		if err := rows.Scan(&schema, &name, &def); err != nil {
			return nil, fmt.Errorf("duckdb bulk definitions scan: %w", err)
		}
		out[adapter.ObjectKey{Schema: schema, Name: name}] = def
	}
	return out, rows.Err()
}

// AllObjectMeta has no DuckDB implementation: the catalog functions carry
// no creation timestamps.
func (s *duckdbSession) AllObjectMeta(ctx context.Context, db string) (map[adapter.ObjectKey]adapter.ObjectMeta, error) {
	return nil, adapter.ErrUnsupported
}

// ---------------------------------------------------------------------------
// Query execution
// ---------------------------------------------------------------------------

func (s *duckdbSession) Execute(ctx context.Context, query string) (*adapter.QueryResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancelFn = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.cancelFn = nil
		s.mu.Unlock()
		cancel()
	}()

	start := time.Now()
	if adapter.IsSelectQuery(query) {
		return s.executeSelect(ctx, query, start)
	}
	return s.executeNonSelect(ctx, query, start)
}

func (s *duckdbSession) executeSelect(ctx context.Context, query string, start time.Time) (*adapter.QueryResult, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, adapter.ErrCancelled
		}
		return nil, fmt.Errorf("execute: %w", err)
	}
	defer rows.Close()

	colNames, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("execute columns: %w", err)
	}
	cols := make([]adapter.ColumnMeta, len(colNames))
	for i, name := range colNames {
		cols[i] = adapter.ColumnMeta{Name: name}
	}
	if types, err := rows.ColumnTypes(); err == nil {
		for i, t := range types {
			cols[i].Type = t.DatabaseTypeName()
		}
	}

	var result [][]string
	for rows.Next() {
		values := make([]any, len(colNames))
		ptrs := make([]any, len(colNames))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("execute scan: %w", err)
		}
		result = append(result, adapter.ValuesToStrings(values))
	}
	if err := rows.Err(); err != nil {
		if ctx.Err() != nil {
			return nil, adapter.ErrCancelled
		}
		return nil, fmt.Errorf("execute rows: %w", err)
	}

	return &adapter.QueryResult{
		Columns:  cols,
		Rows:     result,
		RowCount: int64(len(result)),
		Duration: time.Since(start),
		IsSelect: true,
	}, nil
}

func (s *duckdbSession) executeNonSelect(ctx context.Context, query string, start time.Time) (*adapter.QueryResult, error) {
	res, err := s.db.ExecContext(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, adapter.ErrCancelled
		}
		return nil, fmt.Errorf("execute: %w", err)
	}
	affected, _ := res.RowsAffected()
	return &adapter.QueryResult{
		RowCount: affected,
		Duration: time.Since(start),
		IsSelect: false,
		Message:  fmt.Sprintf("%d row(s) affected", affected),
	}, nil
}

// ---------------------------------------------------------------------------
// Dialect helpers
// ---------------------------------------------------------------------------

func (s *duckdbSession) QuoteIdent(name string) string { return adapter.QuoteAnsi(name) }

func (s *duckdbSession) QualifiedName(db, schema, object string) string {
	if schema == "" || schema == "main" {
		return s.QuoteIdent(object)
	}
	return s.QuoteIdent(schema) + "." + s.QuoteIdent(object)
}
