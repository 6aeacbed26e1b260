package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/sadopc/dbnav/internal/adapter"
)

// DefaultSelectLimit caps generated row-browsing queries.
const DefaultSelectLimit = 200

// qualifiedOf renders the object's fully qualified, quoted name in the
// owning session's dialect.
func qualifiedOf(e Entity) (string, error) {
	sess, err := sessionOf(e)
	if err != nil {
		return "", err
	}
	db := DatabaseOf(e)
	dbName := ""
	if db != nil {
		dbName = db.Name()
	}
	return sess.QualifiedName(dbName, schemaNameOf(e), e.Name()), nil
}

// SelectQuery builds a row-browsing query with a limit in the engine's
// dialect. limit <= 0 uses DefaultSelectLimit.
func SelectQuery(e Entity, limit int) (string, error) {
	sess, err := sessionOf(e)
	if err != nil {
		return "", err
	}
	if limit <= 0 {
		limit = DefaultSelectLimit
	}
	q, err := qualifiedOf(e)
	if err != nil {
		return "", err
	}
	if sess.DBType() == "sqlserver" {
		return fmt.Sprintf("SELECT TOP %d * FROM %s;", limit, q), nil
	}
	return fmt.Sprintf("SELECT * FROM %s LIMIT %d;", q, limit), nil
}

// CountQuery builds a row-count query.
func CountQuery(e Entity) (string, error) {
	q, err := qualifiedOf(e)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT COUNT(*) FROM %s;", q), nil
}

// DescribeQuery builds the engine's structure-inspection statement.
func DescribeQuery(e Entity) (string, error) {
	sess, err := sessionOf(e)
	if err != nil {
		return "", err
	}
	q, err := qualifiedOf(e)
	if err != nil {
		return "", err
	}
	switch sess.DBType() {
	case "sqlserver":
		return fmt.Sprintf("EXEC sp_help '%s';", strings.ReplaceAll(q, "'", "''")), nil
	case "mysql", "duckdb":
		return fmt.Sprintf("DESCRIBE %s;", q), nil
	case "sqlite":
		return fmt.Sprintf("PRAGMA table_info(%s);", sess.QuoteIdent(e.Name())), nil
	default:
		return fmt.Sprintf(
			"SELECT column_name, data_type, is_nullable, column_default\nFROM information_schema.columns\nWHERE table_schema = '%s' AND table_name = '%s'\nORDER BY ordinal_position;",
			schemaNameOf(e), e.Name()), nil
	}
}

// DropStatement builds a DROP for the entity's object kind.
func DropStatement(e Entity) (string, error) {
	q, err := qualifiedOf(e)
	if err != nil {
		return "", err
	}
	var object string
	switch e.Kind() {
	case KindTable:
		object = "TABLE"
	case KindView:
		object = "VIEW"
	case KindProcedure:
		object = "PROCEDURE"
	case KindFunction:
		object = "FUNCTION"
	case KindSynonym:
		object = "SYNONYM"
	default:
		return "", fmt.Errorf("no drop statement for %s", e.Kind())
	}
	return fmt.Sprintf("DROP %s %s;", object, q), nil
}

// InsertTemplate builds an INSERT listing every column, with a placeholder
// per value for the caller to fill in.
func InsertTemplate(ctx context.Context, t *Table) (string, error) {
	sess, err := sessionOf(t)
	if err != nil {
		return "", err
	}
	cols, err := t.GetColumns(ctx)
	if err != nil {
		return "", err
	}
	q, err := qualifiedOf(t)
	if err != nil {
		return "", err
	}
	names := make([]string, len(cols))
	values := make([]string, len(cols))
	for i, c := range cols {
		names[i] = sess.QuoteIdent(c.Name())
		values[i] = placeholderFor(c.Info)
	}
	return fmt.Sprintf("INSERT INTO %s (%s)\nVALUES (%s);", q,
		strings.Join(names, ", "), strings.Join(values, ", ")), nil
}

// UpdateTemplate builds an UPDATE with one SET line per non-key column and
// a WHERE clause over the primary key columns when the table has any.
func UpdateTemplate(ctx context.Context, t *Table) (string, error) {
	sess, err := sessionOf(t)
	if err != nil {
		return "", err
	}
	cols, err := t.GetColumns(ctx)
	if err != nil {
		return "", err
	}
	q, err := qualifiedOf(t)
	if err != nil {
		return "", err
	}
	keys := map[string]bool{}
	if cons, err := t.GetConstraints(ctx); err == nil {
		for _, con := range cons {
			if con.Info.Type != adapter.ConstraintPrimaryKey {
				continue
			}
			for _, name := range con.Info.Columns {
				keys[name] = true
			}
		}
	}
	var sets, where []string
	for _, c := range cols {
		line := fmt.Sprintf("%s = %s", sess.QuoteIdent(c.Name()), placeholderFor(c.Info))
		if keys[c.Name()] {
			where = append(where, line)
			continue
		}
		sets = append(sets, line)
	}
	if len(sets) == 0 {
		sets = append(sets, "/* no non-key columns */")
	}
	stmt := fmt.Sprintf("UPDATE %s\nSET %s", q, strings.Join(sets, ",\n    "))
	if len(where) > 0 {
		stmt += "\nWHERE " + strings.Join(where, "\n  AND ")
	} else {
		stmt += "\nWHERE <condition>"
	}
	return stmt + ";", nil
}

// DeleteTemplate builds a DELETE keyed on the primary key when one exists.
func DeleteTemplate(ctx context.Context, t *Table) (string, error) {
	sess, err := sessionOf(t)
	if err != nil {
		return "", err
	}
	q, err := qualifiedOf(t)
	if err != nil {
		return "", err
	}
	var where []string
	if cons, err := t.GetConstraints(ctx); err == nil {
		for _, con := range cons {
			if con.Info.Type != adapter.ConstraintPrimaryKey {
				continue
			}
			for _, name := range con.Info.Columns {
				where = append(where, fmt.Sprintf("%s = <value>", sess.QuoteIdent(name)))
			}
		}
	}
	if len(where) == 0 {
		where = append(where, "<condition>")
	}
	return fmt.Sprintf("DELETE FROM %s\nWHERE %s;", q, strings.Join(where, "\n  AND ")), nil
}

// ExecStatement builds a routine invocation with one named argument line
// per input parameter.
func ExecStatement(ctx context.Context, p *Procedure) (string, error) {
	sess, err := sessionOf(p)
	if err != nil {
		return "", err
	}
	params, err := p.GetParameters(ctx)
	if err != nil {
		return "", err
	}
	q, err := qualifiedOf(p)
	if err != nil {
		return "", err
	}
	args := make([]string, 0, len(params))
	for _, pr := range params {
		if pr.Info.Mode == adapter.ParamOut {
			continue
		}
		args = append(args, placeholderFor(adapter.ColumnInfo{DataType: pr.Info.DataType}))
	}
	switch sess.DBType() {
	case "sqlserver":
		named := make([]string, 0, len(params))
		for _, pr := range params {
			if pr.Info.Mode == adapter.ParamOut {
				continue
			}
			named = append(named, fmt.Sprintf("%s = %s", pr.Name(),
				placeholderFor(adapter.ColumnInfo{DataType: pr.Info.DataType})))
		}
		if len(named) == 0 {
			return fmt.Sprintf("EXEC %s;", q), nil
		}
		return fmt.Sprintf("EXEC %s\n    %s;", q, strings.Join(named, ",\n    ")), nil
	default:
		return fmt.Sprintf("CALL %s(%s);", q, strings.Join(args, ", ")), nil
	}
}

// placeholderFor renders a literal placeholder appropriate for the column
// type, so generated templates are close to runnable.
func placeholderFor(info adapter.ColumnInfo) string {
	t := strings.ToLower(info.DataType)
	switch {
	case strings.Contains(t, "int"), strings.Contains(t, "decimal"),
		strings.Contains(t, "numeric"), strings.Contains(t, "float"),
		strings.Contains(t, "double"), strings.Contains(t, "real"),
		strings.Contains(t, "money"):
		return "0"
	case strings.Contains(t, "bool"), strings.Contains(t, "bit"):
		return "false"
	case strings.Contains(t, "date"), strings.Contains(t, "time"):
		return "'1970-01-01'"
	default:
		return "''"
	}
}

// BuildQuery renders the SQL for an action against its owner. Synonym
// owners generate against the synonym name itself; the engine resolves it
// server side.
func BuildQuery(ctx context.Context, a *Action) (string, error) {
	owner := a.Owner
	switch a.Type {
	case ActionSelect:
		return SelectQuery(owner, 0)
	case ActionCount:
		return CountQuery(owner)
	case ActionDescribe:
		return DescribeQuery(owner)
	case ActionDrop:
		return DropStatement(owner)
	case ActionInsert:
		if t, ok := owner.(*Table); ok {
			return InsertTemplate(ctx, t)
		}
	case ActionUpdate:
		if t, ok := owner.(*Table); ok {
			return UpdateTemplate(ctx, t)
		}
	case ActionDelete:
		if t, ok := owner.(*Table); ok {
			return DeleteTemplate(ctx, t)
		}
	case ActionExec:
		if p, ok := owner.(*Procedure); ok {
			return ExecStatement(ctx, p)
		}
	}
	return "", fmt.Errorf("no query for %s on %s", a.Type, owner.Kind())
}
