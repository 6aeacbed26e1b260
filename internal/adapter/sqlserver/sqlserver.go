package sqlserver

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/sadopc/dbnav/internal/adapter"
)

func init() {
	adapter.Register(&sqlserverDriver{})
}

// ---------------------------------------------------------------------------
// Driver
// ---------------------------------------------------------------------------

type sqlserverDriver struct{}

func (d *sqlserverDriver) Name() string     { return "sqlserver" }
func (d *sqlserverDriver) DefaultPort() int { return 1433 }

func (d *sqlserverDriver) Connect(ctx context.Context, dsn string) (adapter.Session, error) {
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlserver: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlserver: ping: %w", err)
	}

	s := &mssqlSession{db: db, dbName: extractDBName(dsn)}
	if s.dbName == "" {
		// Fall back to the login's default database.
		_ = db.QueryRowContext(ctx, "SELECT DB_NAME()").Scan(&s.dbName)
	}
	return s, nil
}

// extractDBName pulls the database from a sqlserver:// URL, either from the
// "database" query parameter or the path.
func extractDBName(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return ""
	}
	if db := u.Query().Get("database"); db != "" {
		return db
	}
	return strings.TrimPrefix(u.Path, "/")
}

// ---------------------------------------------------------------------------
// Session
// ---------------------------------------------------------------------------

type mssqlSession struct {
	db     *sql.DB
	dbName string

	cancelMu sync.Mutex
	cancelFn context.CancelFunc
}

func (s *mssqlSession) DBType() string        { return "sqlserver" }
func (s *mssqlSession) DatabaseName() string  { return s.dbName }
func (s *mssqlSession) DefaultSchema() string { return "dbo" }

func (s *mssqlSession) Features() adapter.Features {
	return adapter.Features{Schemas: true, Views: true, Procedures: true, Functions: true, Synonyms: true}
}

func (s *mssqlSession) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *mssqlSession) Close() error                   { return s.db.Close() }

func (s *mssqlSession) Cancel() error {
	s.cancelMu.Lock()
	fn := s.cancelFn
	s.cancelMu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

func (s *mssqlSession) setCancel(fn context.CancelFunc) {
	s.cancelMu.Lock()
	s.cancelFn = fn
	s.cancelMu.Unlock()
}

func (s *mssqlSession) clearCancel() {
	s.cancelMu.Lock()
	s.cancelFn = nil
	s.cancelMu.Unlock()
}

// dbPrefix renders a bracket-quoted database prefix for cross-database
// catalog queries, defaulting to the session's database.
func (s *mssqlSession) dbPrefix(db string) string {
	if db == "" {
		db = s.dbName
	}
	return quoteBracket(db)
}

func quoteBracket(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// ---------------------------------------------------------------------------
// Introspection
// ---------------------------------------------------------------------------

func (s *mssqlSession) Databases(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sys.databases WHERE state = 0 ORDER BY name`)
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

func (s *mssqlSession) Schemas(ctx context.Context, db string) ([]string, error) {
	query := fmt.Sprintf(
		`SELECT name FROM %s.sys.schemas
		 WHERE name NOT IN ('sys', 'INFORMATION_SCHEMA', 'guest')
		   AND name NOT LIKE 'db[_]%%'
		 ORDER BY name`, s.dbPrefix(db))
	rows, err := s.db.QueryContext(ctx, query)
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

func (s *mssqlSession) Tables(ctx context.Context, db, schema string) ([]adapter.TableInfo, error) {
	pfx := s.dbPrefix(db)
	query := fmt.Sprintf(
		`SELECT sc.name, t.name, SUM(p.rows)
		 FROM %s.sys.tables t
		 JOIN %s.sys.schemas sc ON sc.schema_id = t.schema_id
		 JOIN %s.sys.partitions p ON p.object_id = t.object_id AND p.index_id IN (0, 1)
		 WHERE t.is_ms_shipped = 0`, pfx, pfx, pfx)
	args := []any{}
	if schema != "" {
		query += ` AND sc.name = @p1`
		args = append(args, schema)
	}
	query += ` GROUP BY sc.name, t.name ORDER BY sc.name, t.name`

	rows, err := s.db.QueryContext(ctx, query, args...)
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

func (s *mssqlSession) Views(ctx context.Context, db, schema string) ([]adapter.ViewInfo, error) {
	pfx := s.dbPrefix(db)
	query := fmt.Sprintf(
		`SELECT sc.name, v.name
		 FROM %s.sys.views v
		 JOIN %s.sys.schemas sc ON sc.schema_id = v.schema_id
		 WHERE v.is_ms_shipped = 0`, pfx, pfx)
	args := []any{}
	if schema != "" {
		query += ` AND sc.name = @p1`
		args = append(args, schema)
	}
	query += ` ORDER BY sc.name, v.name`

	rows, err := s.db.QueryContext(ctx, query, args...)
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

func (s *mssqlSession) objects(ctx context.Context, db, schema, typeFilter string) ([]adapter.RoutineInfo, error) {
	pfx := s.dbPrefix(db)
	query := fmt.Sprintf(
		`SELECT sc.name, o.name
		 FROM %s.sys.objects o
		 JOIN %s.sys.schemas sc ON sc.schema_id = o.schema_id
		 WHERE o.type IN (%s)
		   AND o.is_ms_shipped = 0`, pfx, pfx, typeFilter)
	args := []any{}
	if schema != "" {
		query += ` AND sc.name = @p1`
		args = append(args, schema)
	}
	query += ` ORDER BY sc.name, o.name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("objects: %w", err)
	}
	defer rows.Close()

	var out []adapter.RoutineInfo
	for rows.Next() {
		var info adapter.RoutineInfo
		if err := rows.Scan(&info.Schema, &info.Name); err != nil {
			return nil, fmt.Errorf("objects scan: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *mssqlSession) Procedures(ctx context.Context, db, schema string) ([]adapter.RoutineInfo, error) {
	return s.objects(ctx, db, schema, "'P'")
}

func (s *mssqlSession) Functions(ctx context.Context, db, schema string) ([]adapter.RoutineInfo, error) {
	// Scalar, inline table-valued, and multi-statement table-valued.
	return s.objects(ctx, db, schema, "'FN', 'IF', 'TF'")
}

func (s *mssqlSession) Synonyms(ctx context.Context, db, schema string) ([]adapter.SynonymInfo, error) {
	pfx := s.dbPrefix(db)
	query := fmt.Sprintf(
		`SELECT sc.name, sy.name, sy.base_object_name
		 FROM %s.sys.synonyms sy
		 JOIN %s.sys.schemas sc ON sc.schema_id = sy.schema_id`, pfx, pfx)
	args := []any{}
	if schema != "" {
		query += ` WHERE sc.name = @p1`
		args = append(args, schema)
	}
	query += ` ORDER BY sc.name, sy.name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("synonyms: %w", err)
	}
	defer rows.Close()

	var out []adapter.SynonymInfo
	for rows.Next() {
		var info adapter.SynonymInfo
		if err := rows.Scan(&info.Schema, &info.Name, &info.BaseObject); err != nil {
			return nil, fmt.Errorf("synonyms scan: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *mssqlSession) Columns(ctx context.Context, db, schema, object string) ([]adapter.ColumnInfo, error) {
	pfx := s.dbPrefix(db)
	query := fmt.Sprintf(
		`SELECT c.name,
		        TYPE_NAME(c.user_type_id),
		        c.is_nullable,
		        ISNULL(dc.definition, ''),
		        c.column_id
		 FROM %s.sys.columns c
		 JOIN %s.sys.objects o ON o.object_id = c.object_id
		 JOIN %s.sys.schemas sc ON sc.schema_id = o.schema_id
		 LEFT JOIN %s.sys.default_constraints dc
		      ON dc.parent_object_id = c.object_id
		     AND dc.parent_column_id = c.column_id
		 WHERE sc.name = @p1 AND o.name = @p2
		 ORDER BY c.column_id`, pfx, pfx, pfx, pfx)

	rows, err := s.db.QueryContext(ctx, query, schema, object)
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	defer rows.Close()

	var out []adapter.ColumnInfo
	for rows.Next() {
		var info adapter.ColumnInfo
		if err := rows.Scan(&info.Name, &info.DataType, &info.Nullable, &info.Default, &info.Position); err != nil {
			return nil, fmt.Errorf("columns scan: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *mssqlSession) Indexes(ctx context.Context, db, schema, table string) ([]adapter.IndexInfo, error) {
	pfx := s.dbPrefix(db)
	query := fmt.Sprintf(
		`SELECT i.name, c.name, i.is_unique, i.is_primary_key
		 FROM %s.sys.indexes i
		 JOIN %s.sys.index_columns ic
		      ON ic.object_id = i.object_id AND ic.index_id = i.index_id
		 JOIN %s.sys.columns c
		      ON c.object_id = ic.object_id AND c.column_id = ic.column_id
		 JOIN %s.sys.tables t ON t.object_id = i.object_id
		 JOIN %s.sys.schemas sc ON sc.schema_id = t.schema_id
		 WHERE sc.name = @p1 AND t.name = @p2 AND i.name IS NOT NULL
		 ORDER BY i.name, ic.key_ordinal`, pfx, pfx, pfx, pfx, pfx)

	rows, err := s.db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("indexes: %w", err)
	}
	defer rows.Close()

	idxMap := make(map[string]*adapter.IndexInfo)
	var order []string
	for rows.Next() {
		var (
			name, col       string
			unique, primary bool
		)
		if err := rows.Scan(&name, &col, &unique, &primary); err != nil {
			return nil, fmt.Errorf("indexes scan: %w", err)
		}
		idx, ok := idxMap[name]
		if !ok {
			idx = &adapter.IndexInfo{Name: name, Unique: unique, Primary: primary}
			idxMap[name] = idx
			order = append(order, name)
		}
		idx.Columns = append(idx.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]adapter.IndexInfo, 0, len(order))
	for _, name := range order {
		out = append(out, *idxMap[name])
	}
	return out, nil
}

func (s *mssqlSession) Constraints(ctx context.Context, db, schema, table string) ([]adapter.ConstraintInfo, error) {
	keys, err := s.keyConstraints(ctx, db, schema, table)
	if err != nil {
		return nil, err
	}
	fks, err := s.foreignKeys(ctx, db, schema, table)
	if err != nil {
		return nil, err
	}
	checks, err := s.checkConstraints(ctx, db, schema, table)
	if err != nil {
		return nil, err
	}
	return append(append(keys, fks...), checks...), nil
}

func (s *mssqlSession) keyConstraints(ctx context.Context, db, schema, table string) ([]adapter.ConstraintInfo, error) {
	pfx := s.dbPrefix(db)
	query := fmt.Sprintf(
		`SELECT kc.name, kc.type, c.name
		 FROM %s.sys.key_constraints kc
		 JOIN %s.sys.index_columns ic
		      ON ic.object_id = kc.parent_object_id AND ic.index_id = kc.unique_index_id
		 JOIN %s.sys.columns c
		      ON c.object_id = ic.object_id AND c.column_id = ic.column_id
		 JOIN %s.sys.tables t ON t.object_id = kc.parent_object_id
		 JOIN %s.sys.schemas sc ON sc.schema_id = t.schema_id
		 WHERE sc.name = @p1 AND t.name = @p2
		 ORDER BY kc.name, ic.key_ordinal`, pfx, pfx, pfx, pfx, pfx)

	rows, err := s.db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("key constraints: %w", err)
	}
	defer rows.Close()

	conMap := make(map[string]*adapter.ConstraintInfo)
	var order []string
	for rows.Next() {
		var name, ctype, col string
		if err := rows.Scan(&name, &ctype, &col); err != nil {
			return nil, fmt.Errorf("key constraints scan: %w", err)
		}
		con, ok := conMap[name]
		if !ok {
			kind := adapter.ConstraintUnique
			if strings.TrimSpace(ctype) == "PK" {
				kind = adapter.ConstraintPrimaryKey
			}
			con = &adapter.ConstraintInfo{Name: name, Type: kind}
			conMap[name] = con
			order = append(order, name)
		}
		con.Columns = append(con.Columns, col)
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

func (s *mssqlSession) foreignKeys(ctx context.Context, db, schema, table string) ([]adapter.ConstraintInfo, error) {
	pfx := s.dbPrefix(db)
	query := fmt.Sprintf(
		`SELECT fk.name, pc.name, rs.name, rt.name, rc.name
		 FROM %s.sys.foreign_keys fk
		 JOIN %s.sys.foreign_key_columns fkc ON fkc.constraint_object_id = fk.object_id
		 JOIN %s.sys.columns pc
		      ON pc.object_id = fkc.parent_object_id AND pc.column_id = fkc.parent_column_id
		 JOIN %s.sys.columns rc
		      ON rc.object_id = fkc.referenced_object_id AND rc.column_id = fkc.referenced_column_id
		 JOIN %s.sys.tables rt ON rt.object_id = fkc.referenced_object_id
		 JOIN %s.sys.schemas rs ON rs.schema_id = rt.schema_id
		 JOIN %s.sys.tables pt ON pt.object_id = fk.parent_object_id
		 JOIN %s.sys.schemas ps ON ps.schema_id = pt.schema_id
		 WHERE ps.name = @p1 AND pt.name = @p2
		 ORDER BY fk.name, fkc.constraint_column_id`, pfx, pfx, pfx, pfx, pfx, pfx, pfx, pfx)

	rows, err := s.db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("foreign keys: %w", err)
	}
	defer rows.Close()

	fkMap := make(map[string]*adapter.ConstraintInfo)
	var order []string
	for rows.Next() {
		var name, col, refSchema, refTable, refCol string
		if err := rows.Scan(&name, &col, &refSchema, &refTable, &refCol); err != nil {
			return nil, fmt.Errorf("foreign keys scan: %w", err)
		}
		fk, ok := fkMap[name]
		if !ok {
			fk = &adapter.ConstraintInfo{
				Name: name, Type: adapter.ConstraintForeignKey,
				RefSchema: refSchema, RefTable: refTable,
			}
			fkMap[name] = fk
			order = append(order, name)
		}
		fk.Columns = append(fk.Columns, col)
		fk.RefColumns = append(fk.RefColumns, refCol)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]adapter.ConstraintInfo, 0, len(order))
	for _, name := range order {
		out = append(out, *fkMap[name])
	}
	return out, nil
}

func (s *mssqlSession) checkConstraints(ctx context.Context, db, schema, table string) ([]adapter.ConstraintInfo, error) {
	pfx := s.dbPrefix(db)
	query := fmt.Sprintf(
		`SELECT cc.name, ISNULL(c.name, '')
		 FROM %s.sys.check_constraints cc
		 JOIN %s.sys.tables t ON t.object_id = cc.parent_object_id
		 JOIN %s.sys.schemas sc ON sc.schema_id = t.schema_id
		 LEFT JOIN %s.sys.columns c
		      ON c.object_id = cc.parent_object_id AND c.column_id = cc.parent_column_id
		 WHERE sc.name = @p1 AND t.name = @p2
		 ORDER BY cc.name`, pfx, pfx, pfx, pfx)

	rows, err := s.db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("check constraints: %w", err)
	}
	defer rows.Close()

	var out []adapter.ConstraintInfo
	for rows.Next() {
		var name, col string
		if err := rows.Scan(&name, &col); err != nil {
			return nil, fmt.Errorf("check constraints scan: %w", err)
		}
		con := adapter.ConstraintInfo{Name: name, Type: adapter.ConstraintCheck}
		if col != "" {
			con.Columns = []string{col}
		}
		out = append(out, con)
	}
	return out, rows.Err()
}

func (s *mssqlSession) Parameters(ctx context.Context, db, schema, routine string) ([]adapter.ParameterInfo, error) {
	pfx := s.dbPrefix(db)
	query := fmt.Sprintf(
		`SELECT p.name, TYPE_NAME(p.user_type_id), p.is_output, p.parameter_id
		 FROM %s.sys.parameters p
		 JOIN %s.sys.objects o ON o.object_id = p.object_id
		 JOIN %s.sys.schemas sc ON sc.schema_id = o.schema_id
		 WHERE sc.name = @p1 AND o.name = @p2 AND p.parameter_id > 0
		 ORDER BY p.parameter_id`, pfx, pfx, pfx)

	rows, err := s.db.QueryContext(ctx, query, schema, routine)
	if err != nil {
		return nil, fmt.Errorf("parameters: %w", err)
	}
	defer rows.Close()

	var out []adapter.ParameterInfo
	for rows.Next() {
		var (
			info     adapter.ParameterInfo
			isOutput bool
		)
		if err := rows.Scan(&info.Name, &info.DataType, &isOutput, &info.Position); err != nil {
			return nil, fmt.Errorf("parameters scan: %w", err)
		}
		info.Mode = adapter.ParamIn
		if isOutput {
			info.Mode = adapter.ParamOut
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *mssqlSession) Definition(ctx context.Context, db, schema, object string) (string, error) {
	pfx := s.dbPrefix(db)
	query := fmt.Sprintf(
		`SELECT m.definition
		 FROM %s.sys.sql_modules m
		 JOIN %s.sys.objects o ON o.object_id = m.object_id
		 JOIN %s.sys.schemas sc ON sc.schema_id = o.schema_id
		 WHERE sc.name = @p1 AND o.name = @p2`, pfx, pfx, pfx)

	var def string
	if err := s.db.QueryRowContext(ctx, query, schema, object).Scan(&def); err != nil {
		return "", fmt.Errorf("definition %s.%s: %w", schema, object, err)
	}
	return def, nil
}

func (s *mssqlSession) Dependencies(ctx context.Context, db, schema, object string) ([]adapter.Dependency, error) {
	pfx := s.dbPrefix(db)
	query := fmt.Sprintf(
		`SELECT DISTINCT sc.name, o.name, o.type_desc
		 FROM %s.sys.sql_expression_dependencies d
		 JOIN %s.sys.objects o ON o.object_id = d.referencing_id
		 JOIN %s.sys.schemas sc ON sc.schema_id = o.schema_id
		 WHERE d.referenced_entity_name = @p2
		   AND (d.referenced_schema_name = @p1 OR d.referenced_schema_name IS NULL)
		 ORDER BY sc.name, o.name`, pfx, pfx, pfx)

	rows, err := s.db.QueryContext(ctx, query, schema, object)
	if err != nil {
		return nil, fmt.Errorf("dependencies: %w", err)
	}
	defer rows.Close()

	var out []adapter.Dependency
	for rows.Next() {
		var dep adapter.Dependency
		if err := rows.Scan(&dep.Schema, &dep.Name, &dep.Type); err != nil {
			return nil, fmt.Errorf("dependencies scan: %w", err)
		}
		dep.Referencing = true
		out = append(out, dep)
	}
	return out, rows.Err()
}

// AllDefinitions fetches every module definition in one query from
// sys.sql_modules.
func (s *mssqlSession) AllDefinitions(ctx context.Context, db string) (map[adapter.ObjectKey]string, error) {
	pfx := s.dbPrefix(db)
	query := fmt.Sprintf(
		`SELECT sc.name, o.name, m.definition
		 FROM %s.sys.sql_modules m
		 JOIN %s.sys.objects o ON o.object_id = m.object_id
		 JOIN %s.sys.schemas sc ON sc.schema_id = o.schema_id
		 WHERE o.is_ms_shipped = 0`, pfx, pfx, pfx)

	rows, err := s.db.QueryContext(ctx, query)
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

// AllObjectMeta fetches type and timestamps for every user object in one
// query from sys.objects.
func (s *mssqlSession) AllObjectMeta(ctx context.Context, db string) (map[adapter.ObjectKey]adapter.ObjectMeta, error) {
	pfx := s.dbPrefix(db)
	query := fmt.Sprintf(
		`SELECT sc.name, o.name, o.type_desc,
		        CONVERT(varchar(19), o.create_date, 120),
		        CONVERT(varchar(19), o.modify_date, 120)
		 FROM %s.sys.objects o
		 JOIN %s.sys.schemas sc ON sc.schema_id = o.schema_id
		 WHERE o.is_ms_shipped = 0`, pfx, pfx)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("bulk metadata: %w", err)
	}
	defer rows.Close()

	out := map[adapter.ObjectKey]adapter.ObjectMeta{}
	for rows.Next() {
		var (
			key  adapter.ObjectKey
			meta adapter.ObjectMeta
		)
		if err := rows.Scan(&key.Schema, &key.Name, &meta.Type, &meta.CreateDate, &meta.ModifyDate); err != nil {
			return nil, fmt.Errorf("bulk metadata scan: %w", err)
		}
		out[key] = meta
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// Query execution
// ---------------------------------------------------------------------------

func (s *mssqlSession) Execute(ctx context.Context, query string) (*adapter.QueryResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	s.setCancel(cancel)
	defer s.clearCancel()

	start := time.Now()
	if adapter.IsSelectQuery(query) {
		return s.executeSelect(ctx, query, start)
	}
	return s.executeNonSelect(ctx, query, start)
}

func (s *mssqlSession) executeSelect(ctx context.Context, query string, start time.Time) (*adapter.QueryResult, error) {
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
	colTypes, _ := rows.ColumnTypes()
	cols := make([]adapter.ColumnMeta, len(colNames))
	for i, name := range colNames {
		cols[i] = adapter.ColumnMeta{Name: name}
		if colTypes != nil && i < len(colTypes) {
			cols[i].Type = colTypes[i].DatabaseTypeName()
		}
	}

	var result [][]string
	for rows.Next() {
		vals := make([]any, len(colNames))
		ptrs := make([]any, len(colNames))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("execute scan: %w", err)
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

func (s *mssqlSession) executeNonSelect(ctx context.Context, query string, start time.Time) (*adapter.QueryResult, error) {
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

func (s *mssqlSession) QuoteIdent(name string) string { return quoteBracket(name) }

func (s *mssqlSession) QualifiedName(db, schema, object string) string {
	parts := make([]string, 0, 3)
	if db != "" && db != s.dbName {
		parts = append(parts, quoteBracket(db))
		if schema == "" {
			schema = "dbo"
		}
	}
	if schema != "" {
		parts = append(parts, quoteBracket(schema))
	}
	parts = append(parts, quoteBracket(object))
	return strings.Join(parts, ".")
}
