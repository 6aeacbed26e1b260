package postgres

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sadopc/dbnav/internal/adapter"
)

func init() {
	adapter.Register(&postgresDriver{})
}

// systemSchemas are excluded from every introspection query.
const systemSchemas = "('pg_catalog', 'information_schema', 'pg_toast')"

// postgresDriver implements adapter.Driver for PostgreSQL.
type postgresDriver struct{}

func (d *postgresDriver) Name() string     { return "postgres" }
func (d *postgresDriver) DefaultPort() int { return 5432 }

func (d *postgresDriver) Connect(ctx context.Context, dsn string) (adapter.Session, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return &pgSession{pool: pool, dbName: extractDBName(dsn)}, nil
}

// extractDBName parses the database name from the DSN.
func extractDBName(dsn string) string {
	if dsn == "" {
		return ""
	}
	u, err := url.Parse(dsn)
	if err == nil && u.Scheme != "" {
		return strings.TrimPrefix(u.Path, "/")
	}
	// keyword=value format (e.g. "host=localhost dbname=myapp")
	for _, part := range strings.Fields(dsn) {
		if strings.HasPrefix(part, "dbname=") {
			return strings.TrimPrefix(part, "dbname=")
		}
	}
	return ""
}

// pgSession implements adapter.Session for PostgreSQL.
type pgSession struct {
	pool     *pgxpool.Pool
	dbName   string
	cancelMu sync.Mutex
	cancelFn context.CancelFunc
}

func (s *pgSession) DBType() string       { return "postgres" }
func (s *pgSession) DatabaseName() string { return s.dbName }
func (s *pgSession) DefaultSchema() string { return "public" }

func (s *pgSession) Features() adapter.Features {
	return adapter.Features{Schemas: true, Views: true, Procedures: true, Functions: true}
}

func (s *pgSession) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *pgSession) Close() error {
	s.pool.Close()
	return nil
}

// Cancel cancels the currently running query, if any.
func (s *pgSession) Cancel() error {
	s.cancelMu.Lock()
	fn := s.cancelFn
	s.cancelMu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

func (s *pgSession) setCancel(fn context.CancelFunc) {
	s.cancelMu.Lock()
	s.cancelFn = fn
	s.cancelMu.Unlock()
}

func (s *pgSession) clearCancel() {
	s.cancelMu.Lock()
	s.cancelFn = nil
	s.cancelMu.Unlock()
}

// ---------------------------------------------------------------------------
// Introspection
// ---------------------------------------------------------------------------

func (s *pgSession) Databases(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT datname FROM pg_database
		 WHERE datistemplate = false
		 ORDER BY datname`)
	if err != nil {
		return nil, fmt.Errorf("databases: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("databases scan: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *pgSession) Schemas(ctx context.Context, db string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT schema_name FROM information_schema.schemata
		 WHERE schema_name NOT IN `+systemSchemas+`
		 ORDER BY schema_name`)
	if err != nil {
		return nil, fmt.Errorf("schemas: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("schemas scan: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *pgSession) Tables(ctx context.Context, db, schema string) ([]adapter.TableInfo, error) {
	// reltuples is the planner's estimate: cheap, good enough for display.
	query := `SELECT n.nspname, c.relname, c.reltuples::bigint
	 FROM pg_class c
	 JOIN pg_namespace n ON n.oid = c.relnamespace
	 WHERE c.relkind = 'r'
	   AND n.nspname NOT IN ` + systemSchemas
	args := []any{}
	if schema != "" {
		query += ` AND n.nspname = $1`
		args = append(args, schema)
	}
	query += ` ORDER BY n.nspname, c.relname`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("tables: %w", err)
	}
	defer rows.Close()

	var out []adapter.TableInfo
	for rows.Next() {
		var info adapter.TableInfo
		if err := rows.Scan(&info.Schema, &info.Name, &info.RowCount); err != nil {
			return nil, fmt.Errorf("tables scan: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *pgSession) Views(ctx context.Context, db, schema string) ([]adapter.ViewInfo, error) {
	query := `SELECT table_schema, table_name
	 FROM information_schema.views
	 WHERE table_schema NOT IN ` + systemSchemas
	args := []any{}
	if schema != "" {
		query += ` AND table_schema = $1`
		args = append(args, schema)
	}
	query += ` ORDER BY table_schema, table_name`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("views: %w", err)
	}
	defer rows.Close()

	var out []adapter.ViewInfo
	for rows.Next() {
		var info adapter.ViewInfo
		if err := rows.Scan(&info.Schema, &info.Name); err != nil {
			return nil, fmt.Errorf("views scan: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *pgSession) routines(ctx context.Context, schema, prokind string) ([]adapter.RoutineInfo, error) {
	query := `SELECT n.nspname, p.proname
	 FROM pg_proc p
	 JOIN pg_namespace n ON n.oid = p.pronamespace
	 WHERE p.prokind = $1
	   AND n.nspname NOT IN ` + systemSchemas
	args := []any{prokind}
	if schema != "" {
		query += ` AND n.nspname = $2`
		args = append(args, schema)
	}
	query += ` ORDER BY n.nspname, p.proname`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("routines: %w", err)
	}
	defer rows.Close()

	var out []adapter.RoutineInfo
	for rows.Next() {
		var info adapter.RoutineInfo
		if err := rows.Scan(&info.Schema, &info.Name); err != nil {
			return nil, fmt.Errorf("routines scan: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *pgSession) Procedures(ctx context.Context, db, schema string) ([]adapter.RoutineInfo, error) {
	return s.routines(ctx, schema, "p")
}

func (s *pgSession) Functions(ctx context.Context, db, schema string) ([]adapter.RoutineInfo, error) {
	return s.routines(ctx, schema, "f")
}

func (s *pgSession) Synonyms(ctx context.Context, db, schema string) ([]adapter.SynonymInfo, error) {
	return nil, nil
}

func (s *pgSession) Columns(ctx context.Context, db, schema, object string) ([]adapter.ColumnInfo, error) {
	if schema == "" {
		schema = "public"
	}
	rows, err := s.pool.Query(ctx,
		`SELECT column_name,
		        data_type,
		        is_nullable,
		        COALESCE(column_default, ''),
		        ordinal_position
		 FROM information_schema.columns
		 WHERE table_schema = $1
		   AND table_name   = $2
		 ORDER BY ordinal_position`, schema, object)
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	defer rows.Close()

	var out []adapter.ColumnInfo
	for rows.Next() {
		var (
			info     adapter.ColumnInfo
			nullable string
		)
		if err := rows.Scan(&info.Name, &info.DataType, &nullable, &info.Default, &info.Position); err != nil {
			return nil, fmt.Errorf("columns scan: %w", err)
		}
		info.Nullable = nullable == "YES"
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *pgSession) Indexes(ctx context.Context, db, schema, table string) ([]adapter.IndexInfo, error) {
	if schema == "" {
		schema = "public"
	}
	rows, err := s.pool.Query(ctx,
		`SELECT i.relname                         AS index_name,
		        array_agg(a.attname ORDER BY k.n) AS columns,
		        ix.indisunique,
		        ix.indisprimary
		 FROM pg_index ix
		 JOIN pg_class  t ON t.oid = ix.indrelid
		 JOIN pg_class  i ON i.oid = ix.indexrelid
		 JOIN pg_namespace n ON n.oid = t.relnamespace
		 JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS k(attnum, n) ON true
		 JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
		 WHERE n.nspname = $1
		   AND t.relname = $2
		 GROUP BY i.relname, ix.indisunique, ix.indisprimary
		 ORDER BY i.relname`, schema, table)
	if err != nil {
		return nil, fmt.Errorf("indexes: %w", err)
	}
	defer rows.Close()

	var out []adapter.IndexInfo
	for rows.Next() {
		var info adapter.IndexInfo
		if err := rows.Scan(&info.Name, &info.Columns, &info.Unique, &info.Primary); err != nil {
			return nil, fmt.Errorf("indexes scan: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *pgSession) Constraints(ctx context.Context, db, schema, table string) ([]adapter.ConstraintInfo, error) {
	if schema == "" {
		schema = "public"
	}
	rows, err := s.pool.Query(ctx,
		`SELECT tc.constraint_name,
		        tc.constraint_type,
		        kcu.column_name,
		        COALESCE(ccu.table_schema, ''),
		        COALESCE(ccu.table_name, ''),
		        COALESCE(ccu.column_name, '')
		 FROM information_schema.table_constraints tc
		 LEFT JOIN information_schema.key_column_usage kcu
		      ON kcu.constraint_name = tc.constraint_name
		     AND kcu.table_schema    = tc.table_schema
		 LEFT JOIN information_schema.constraint_column_usage ccu
		      ON ccu.constraint_name = tc.constraint_name
		     AND ccu.table_schema    = tc.table_schema
		     AND tc.constraint_type  = 'FOREIGN KEY'
		 WHERE tc.table_schema = $1
		   AND tc.table_name   = $2
		 ORDER BY tc.constraint_name, kcu.ordinal_position`, schema, table)
	if err != nil {
		return nil, fmt.Errorf("constraints: %w", err)
	}
	defer rows.Close()

	conMap := make(map[string]*adapter.ConstraintInfo)
	var order []string
	for rows.Next() {
		var (
			name, ctype, col, refSchema, refTable, refCol string
		)
		if err := rows.Scan(&name, &ctype, &col, &refSchema, &refTable, &refCol); err != nil {
			return nil, fmt.Errorf("constraints scan: %w", err)
		}
		con, ok := conMap[name]
		if !ok {
			con = &adapter.ConstraintInfo{
				Name: name, Type: ctype,
				RefSchema: refSchema, RefTable: refTable,
			}
			conMap[name] = con
			order = append(order, name)
		}
		if col != "" {
			con.Columns = append(con.Columns, col)
		}
		if refCol != "" {
			con.RefColumns = append(con.RefColumns, refCol)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]adapter.ConstraintInfo, 0, len(order))
	for _, name := range order {
		out = append(out, *conMap[name])
	}
	return out, nil
}

func (s *pgSession) Parameters(ctx context.Context, db, schema, routine string) ([]adapter.ParameterInfo, error) {
	if schema == "" {
		schema = "public"
	}
	rows, err := s.pool.Query(ctx,
		`SELECT COALESCE(p.parameter_name, ''),
		        p.data_type,
		        p.parameter_mode,
		        p.ordinal_position
		 FROM information_schema.parameters p
		 JOIN information_schema.routines r
		      ON r.specific_name = p.specific_name
		 WHERE r.routine_schema = $1
		   AND r.routine_name   = $2
		 ORDER BY p.ordinal_position`, schema, routine)
	if err != nil {
		return nil, fmt.Errorf("parameters: %w", err)
	}
	defer rows.Close()

	var out []adapter.ParameterInfo
	for rows.Next() {
		var info adapter.ParameterInfo
		if err := rows.Scan(&info.Name, &info.DataType, &info.Mode, &info.Position); err != nil {
			return nil, fmt.Errorf("parameters scan: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *pgSession) Definition(ctx context.Context, db, schema, object string) (string, error) {
	if schema == "" {
		schema = "public"
	}
	// Try a view first, then a routine.
	var def string
	err := s.pool.QueryRow(ctx,
		`SELECT pg_get_viewdef(c.oid, true)
		 FROM pg_class c
		 JOIN pg_namespace n ON n.oid = c.relnamespace
		 WHERE n.nspname = $1 AND c.relname = $2 AND c.relkind IN ('v', 'm')`,
		schema, object).Scan(&def)
	if err == nil {
		return def, nil
	}
	err = s.pool.QueryRow(ctx,
		`SELECT pg_get_functiondef(p.oid)
		 FROM pg_proc p
		 JOIN pg_namespace n ON n.oid = p.pronamespace
		 WHERE n.nspname = $1 AND p.proname = $2
		 LIMIT 1`, schema, object).Scan(&def)
	if err != nil {
		return "", fmt.Errorf("definition %s.%s: %w", schema, object, err)
	}
	return def, nil
}

func (s *pgSession) Dependencies(ctx context.Context, db, schema, object string) ([]adapter.Dependency, error) {
	if schema == "" {
		schema = "public"
	}
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT view_schema, view_name
		 FROM information_schema.view_table_usage
		 WHERE table_schema = $1 AND table_name = $2
		 ORDER BY view_schema, view_name`, schema, object)
	if err != nil {
		return nil, fmt.Errorf("dependencies: %w", err)
	}
	defer rows.Close()

	var out []adapter.Dependency
	for rows.Next() {
		var dep adapter.Dependency
		if err := rows.Scan(&dep.Schema, &dep.Name); err != nil {
			return nil, fmt.Errorf("dependencies scan: %w", err)
		}
		dep.Type = "view"
		dep.Referencing = true
		out = append(out, dep)
	}
	return out, rows.Err()
}

func (s *pgSession) AllDefinitions(ctx context.Context, db string) (map[adapter.ObjectKey]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT n.nspname, c.relname, pg_get_viewdef(c.oid, true)
		 FROM pg_class c
		 JOIN pg_namespace n ON n.oid = c.relnamespace
		 WHERE c.relkind IN ('v', 'm')
		   AND n.nspname NOT IN `+systemSchemas+`
		 UNION ALL
		 SELECT n.nspname, p.proname, pg_get_functiondef(p.oid)
		 FROM pg_proc p
		 JOIN pg_namespace n ON n.oid = p.pronamespace
		 WHERE p.prokind IN ('f', 'p')
		   AND n.nspname NOT IN `+systemSchemas)
	if err != nil {
		return nil, fmt.Errorf("bulk definitions: %w", err)
	}
	defer rows.Close()

	out := map[adapter.ObjectKey]string{}
	for rows.Next() {
		var (
			key adapter.ObjectKey
			def string
		)
		if err := rows.Scan(&key.Schema, &key.Name, &def); err != nil {
			return nil, fmt.Errorf("bulk definitions scan: %w", err)
		}
		out[key] = def
	}
	return out, rows.Err()
}

// AllObjectMeta has no PostgreSQL implementation: the catalogs do not track
// creation or modification timestamps.
func (s *pgSession) AllObjectMeta(ctx context.Context, db string) (map[adapter.ObjectKey]adapter.ObjectMeta, error) {
	return nil, adapter.ErrUnsupported
}

// ---------------------------------------------------------------------------
// Query execution
// ---------------------------------------------------------------------------

func (s *pgSession) Execute(ctx context.Context, query string) (*adapter.QueryResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	s.setCancel(cancel)
	defer s.clearCancel()

	start := time.Now()
	if adapter.IsSelectQuery(query) {
		return s.executeSelect(ctx, query, start)
	}
	return s.executeNonSelect(ctx, query, start)
}

func (s *pgSession) executeSelect(ctx context.Context, query string, start time.Time) (*adapter.QueryResult, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, adapter.ErrCancelled
		}
		return nil, fmt.Errorf("execute: %w", err)
	}
	defer rows.Close()

	cols := fieldDescToMeta(rows.FieldDescriptions())

	var result [][]string
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("execute values: %w", err)
		}
		result = append(result, adapter.ValuesToStrings(vals))
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

func (s *pgSession) executeNonSelect(ctx context.Context, query string, start time.Time) (*adapter.QueryResult, error) {
	tag, err := s.pool.Exec(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, adapter.ErrCancelled
		}
		return nil, fmt.Errorf("execute: %w", err)
	}
	return &adapter.QueryResult{
		RowCount: tag.RowsAffected(),
		Duration: time.Since(start),
		IsSelect: false,
		Message:  tag.String(),
	}, nil
}

// ---------------------------------------------------------------------------
// Dialect helpers
// ---------------------------------------------------------------------------

func (s *pgSession) QuoteIdent(name string) string { return adapter.QuoteAnsi(name) }

// QualifiedName renders schema.object; PostgreSQL cannot address other
// databases in a query, so the db part is dropped.
func (s *pgSession) QualifiedName(db, schema, object string) string {
	if schema == "" {
		return s.QuoteIdent(object)
	}
	return s.QuoteIdent(schema) + "." + s.QuoteIdent(object)
}

func fieldDescToMeta(fds []pgconn.FieldDescription) []adapter.ColumnMeta {
	cols := make([]adapter.ColumnMeta, len(fds))
	for i, fd := range fds {
		cols[i] = adapter.ColumnMeta{
			Name: fd.Name,
			Type: pgTypeOIDToName(fd.DataTypeOID),
		}
	}
	return cols
}

// pgTypeOIDToName maps common PostgreSQL type OIDs to human-readable names.
func pgTypeOIDToName(oid uint32) string {
	switch oid {
	case 16:
		return "bool"
	case 17:
		return "bytea"
	case 20:
		return "int8"
	case 21:
		return "int2"
	case 23:
		return "int4"
	case 25:
		return "text"
	case 114:
		return "json"
	case 700:
		return "float4"
	case 701:
		return "float8"
	case 1042:
		return "bpchar"
	case 1043:
		return "varchar"
	case 1082:
		return "date"
	case 1083:
		return "time"
	case 1114:
		return "timestamp"
	case 1184:
		return "timestamptz"
	case 1186:
		return "interval"
	case 1700:
		return "numeric"
	case 2950:
		return "uuid"
	case 3802:
		return "jsonb"
	default:
		return fmt.Sprintf("oid:%d", oid)
	}
}
