package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sadopc/dbnav/internal/adapter"
)

func init() {
	adapter.Register(&sqliteDriver{})
}

// sqliteDriver implements adapter.Driver for SQLite databases.
type sqliteDriver struct{}

func (d *sqliteDriver) Name() string     { return "sqlite" }
func (d *sqliteDriver) DefaultPort() int { return 0 }

func (d *sqliteDriver) Connect(ctx context.Context, dsn string) (adapter.Session, error) {
	dsn = normalizeDSN(dsn)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite enable foreign keys: %w", err)
	}

	dbName := dsn
	if dsn != ":memory:" {
		dbName = filepath.Base(dsn)
	}
	return &sqliteSession{db: db, dbName: dbName}, nil
}

// normalizeDSN strips common SQLite URI prefixes.
func normalizeDSN(dsn string) string {
	if strings.HasPrefix(dsn, "sqlite://") {
		return strings.TrimPrefix(dsn, "sqlite://")
	}
	if strings.HasPrefix(dsn, "file:") {
		return strings.TrimPrefix(dsn, "file:")
	}
	return dsn
}

// sqliteSession implements adapter.Session. One file, one database, no
// schema level; tables and views only.
type sqliteSession struct {
	db     *sql.DB
	dbName string

	mu       sync.Mutex
	cancelFn context.CancelFunc
}

func (s *sqliteSession) DBType() string        { return "sqlite" }
func (s *sqliteSession) DatabaseName() string  { return s.dbName }
func (s *sqliteSession) DefaultSchema() string { return "" }

func (s *sqliteSession) Features() adapter.Features {
	return adapter.Features{Views: true}
}

func (s *sqliteSession) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *sqliteSession) Close() error                   { return s.db.Close() }

func (s *sqliteSession) Cancel() error {
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

func (s *sqliteSession) Databases(ctx context.Context) ([]string, error) {
	return []string{s.dbName}, nil
}

func (s *sqliteSession) Schemas(ctx context.Context, db string) ([]string, error) {
	return nil, nil
}

func (s *sqliteSession) Tables(ctx context.Context, db, schema string) ([]adapter.TableInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master
		 WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite tables: %w", err)
	}
	defer rows.Close()

	var out []adapter.TableInfo
	for rows.Next() {
		var info adapter.TableInfo
		if err := rows.Scan(&info.Name); err != nil {
			return nil, fmt.Errorf("sqlite tables scan: %w", err)
		}
		info.RowCount = -1
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *sqliteSession) Views(ctx context.Context, db, schema string) ([]adapter.ViewInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'view' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite views: %w", err)
	}
	defer rows.Close()

	var out []adapter.ViewInfo
	for rows.Next() {
		var info adapter.ViewInfo
		if err := rows.Scan(&info.Name); err != nil {
			return nil, fmt.Errorf("sqlite views scan: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *sqliteSession) Procedures(ctx context.Context, db, schema string) ([]adapter.RoutineInfo, error) {
	return nil, nil
}

func (s *sqliteSession) Functions(ctx context.Context, db, schema string) ([]adapter.RoutineInfo, error) {
	return nil, nil
}

func (s *sqliteSession) Synonyms(ctx context.Context, db, schema string) ([]adapter.SynonymInfo, error) {
	return nil, nil
}

func (s *sqliteSession) Columns(ctx context.Context, db, schema, object string) ([]adapter.ColumnInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("PRAGMA table_info(%s)", s.QuoteIdent(object)))
	if err != nil {
		return nil, fmt.Errorf("sqlite columns: %w", err)
	}
	defer rows.Close()

	var out []adapter.ColumnInfo
	for rows.Next() {
		var (
			cid     int
			info    adapter.ColumnInfo
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &info.Name, &info.DataType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("sqlite columns scan: %w", err)
		}
		info.Nullable = notNull == 0
		info.Default = dflt.String
		info.Position = cid + 1
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *sqliteSession) Indexes(ctx context.Context, db, schema, table string) ([]adapter.IndexInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("PRAGMA index_list(%s)", s.QuoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("sqlite indexes: %w", err)
	}
	defer rows.Close()

	type idxRow struct {
		name    string
		unique  bool
		primary bool
	}
	var idxRows []idxRow
	for rows.Next() {
		var (
			seq     int
			name    string
			unique  int
			origin  string
			partial int
		)
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return nil, fmt.Errorf("sqlite indexes scan: %w", err)
		}
		idxRows = append(idxRows, idxRow{name: name, unique: unique == 1, primary: origin == "pk"})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []adapter.IndexInfo
	for _, ir := range idxRows {
		colRows, err := s.db.QueryContext(ctx,
			fmt.Sprintf("PRAGMA index_info(%s)", s.QuoteIdent(ir.name)))
		if err != nil {
			return nil, fmt.Errorf("sqlite index columns: %w", err)
		}
		info := adapter.IndexInfo{Name: ir.name, Unique: ir.unique, Primary: ir.primary}
		for colRows.Next() {
			var (
				seqno, cid int
				col        sql.NullString
			)
			if err := colRows.Scan(&seqno, &cid, &col); err != nil {
				colRows.Close()
				return nil, fmt.Errorf("sqlite index columns scan: %w", err)
			}
			if col.Valid {
				info.Columns = append(info.Columns, col.String)
			}
		}
		colRows.Close()
		if err := colRows.Err(); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}

func (s *sqliteSession) Constraints(ctx context.Context, db, schema, table string) ([]adapter.ConstraintInfo, error) {
	var out []adapter.ConstraintInfo

	// Primary key from table_info.
	pkCols, err := s.primaryKeyColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(pkCols) > 0 {
		out = append(out, adapter.ConstraintInfo{
			Name:    "pk_" + table,
			Type:    adapter.ConstraintPrimaryKey,
			Columns: pkCols,
		})
	}

	// Foreign keys from the pragma; grouped by id for composite keys.
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("PRAGMA foreign_key_list(%s)", s.QuoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("sqlite foreign keys: %w", err)
	}
	defer rows.Close()

	fkMap := make(map[int]*adapter.ConstraintInfo)
	var order []int
	for rows.Next() {
		var (
			id, seq                      int
			refTable, from, to           string
			onUpdate, onDelete, matchStr string
		)
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &matchStr); err != nil {
			return nil, fmt.Errorf("sqlite foreign keys scan: %w", err)
		}
		fk, ok := fkMap[id]
		if !ok {
			fk = &adapter.ConstraintInfo{
				Name:     fmt.Sprintf("fk_%s_%d", table, id),
				Type:     adapter.ConstraintForeignKey,
				RefTable: refTable,
			}
			fkMap[id] = fk
			order = append(order, id)
		}
		fk.Columns = append(fk.Columns, from)
		fk.RefColumns = append(fk.RefColumns, to)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, id := range order {
		out = append(out, *fkMap[id])
	}
	return out, nil
}

func (s *sqliteSession) primaryKeyColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("PRAGMA table_info(%s)", s.QuoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("sqlite primary key: %w", err)
	}
	defer rows.Close()

	// pk column carries the 1-based position within the key.
	type pkCol struct {
		name string
		pos  int
	}
	var pks []pkCol
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, dtype      string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &dtype, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("sqlite primary key scan: %w", err)
		}
		if pk > 0 {
			pks = append(pks, pkCol{name: name, pos: pk})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]string, len(pks))
	for _, c := range pks {
		if c.pos-1 < len(out) {
			out[c.pos-1] = c.name
		}
	}
	return out, nil
}

func (s *sqliteSession) Parameters(ctx context.Context, db, schema, routine string) ([]adapter.ParameterInfo, error) {
	return nil, nil
}

func (s *sqliteSession) Definition(ctx context.Context, db, schema, object string) (string, error) {
	var def sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT sql FROM sqlite_master WHERE name = ?`, object).Scan(&def)
	if err != nil {
		return "", fmt.Errorf("sqlite definition %s: %w", object, err)
	}
	return def.String, nil
}

func (s *sqliteSession) Dependencies(ctx context.Context, db, schema, object string) ([]adapter.Dependency, error) {
	return nil, nil
}

// AllDefinitions reads every object's CREATE statement from sqlite_master
// in one pass.
func (s *sqliteSession) AllDefinitions(ctx context.Context, db string) (map[adapter.ObjectKey]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, IFNULL(sql, '') FROM sqlite_master
		 WHERE name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return nil, fmt.Errorf("sqlite bulk definitions: %w", err)
	}
	defer rows.Close()

	out := map[adapter.ObjectKey]string{}
	for rows.Next() {
		var name, def string
		if err := rows.Scan(&name, &def); err != nil {
			return nil, fmt.Errorf("sqlite bulk definitions scan: %w", err)
		}
		out[adapter.ObjectKey{Name: name}] = def
	}
	return out, rows.Err()
}

// AllObjectMeta has no SQLite implementation: sqlite_master carries no
// timestamps.
func (s *sqliteSession) AllObjectMeta(ctx context.Context, db string) (map[adapter.ObjectKey]adapter.ObjectMeta, error) {
	return nil, adapter.ErrUnsupported
}

// ---------------------------------------------------------------------------
// Query execution
// ---------------------------------------------------------------------------

func (s *sqliteSession) Execute(ctx context.Context, query string) (*adapter.QueryResult, error) {
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

func (s *sqliteSession) executeSelect(ctx context.Context, query string, start time.Time) (*adapter.QueryResult, error) {
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

	var result [][]string
	for rows.Next() {
		values := make([]sql.NullString, len(colNames))
		ptrs := make([]any, len(colNames))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("execute scan: %w", err)
		}
		row := make([]string, len(colNames))
		for i, v := range values {
			if v.Valid {
				row[i] = v.String
			} else {
				row[i] = "NULL"
			}
		}
		result = append(result, row)
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

func (s *sqliteSession) executeNonSelect(ctx context.Context, query string, start time.Time) (*adapter.QueryResult, error) {
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

func (s *sqliteSession) QuoteIdent(name string) string { return adapter.QuoteAnsi(name) }

func (s *sqliteSession) QualifiedName(db, schema, object string) string {
	return s.QuoteIdent(object)
}
