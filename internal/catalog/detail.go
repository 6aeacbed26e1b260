package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/sadopc/dbnav/internal/adapter"
)

// Column is a terminal leaf. Key predicates are derived from the parent
// table's constraint list rather than stored, so they stay consistent with
// whatever the constraints say after a refresh.
type Column struct {
	node
	Info adapter.ColumnInfo
}

func newColumn(info adapter.ColumnInfo, parent Entity) *Column {
	c := &Column{node: newNode(info.Name, KindColumn), Info: info}
	c.loaded = true
	adopt(parent, c)
	return c
}

// Label renders the column for tree display: name, type, and nullability.
func (c *Column) Label() string {
	var b strings.Builder
	b.WriteString(c.name)
	b.WriteString(" ")
	b.WriteString(c.Info.DataType)
	if !c.Info.Nullable {
		b.WriteString(" not null")
	}
	return b.String()
}

func (c *Column) table() *Table {
	for cur := c.Parent(); cur != nil; cur = cur.Parent() {
		if t, ok := cur.(*Table); ok {
			return t
		}
	}
	return nil
}

// IsPrimaryKey reports whether the column appears in the parent table's
// primary key constraint. Columns of views always report false.
func (c *Column) IsPrimaryKey(ctx context.Context) (bool, error) {
	t := c.table()
	if t == nil {
		return false, nil
	}
	cons, err := t.GetConstraints(ctx)
	if err != nil {
		return false, err
	}
	for _, con := range cons {
		if con.Info.Type != adapter.ConstraintPrimaryKey {
			continue
		}
		for _, name := range con.Info.Columns {
			if name == c.name {
				return true, nil
			}
		}
	}
	return false, nil
}

// IsForeignKey reports whether the column appears in any foreign key
// constraint of the parent table.
func (c *Column) IsForeignKey(ctx context.Context) (bool, error) {
	ref, err := c.ForeignKeyRef(ctx)
	return ref != nil, err
}

// ForeignKeyRef returns the foreign key constraint covering this column, or
// nil when the column is not part of one.
func (c *Column) ForeignKeyRef(ctx context.Context) (*Constraint, error) {
	t := c.table()
	if t == nil {
		return nil, nil
	}
	cons, err := t.GetConstraints(ctx)
	if err != nil {
		return nil, err
	}
	for _, con := range cons {
		if con.Info.Type != adapter.ConstraintForeignKey {
			continue
		}
		for _, name := range con.Info.Columns {
			if name == c.name {
				return con, nil
			}
		}
	}
	return nil, nil
}

// Index is a terminal leaf.
type Index struct {
	node
	Info adapter.IndexInfo
}

func newIndex(info adapter.IndexInfo, parent Entity) *Index {
	i := &Index{node: newNode(info.Name, KindIndex), Info: info}
	i.loaded = true
	adopt(parent, i)
	return i
}

// Label renders the index for tree display.
func (i *Index) Label() string {
	kind := "index"
	switch {
	case i.Info.Primary:
		kind = "primary key"
	case i.Info.Unique:
		kind = "unique"
	}
	return fmt.Sprintf("%s (%s) %s", i.name, strings.Join(i.Info.Columns, ", "), kind)
}

// Constraint is a terminal leaf.
type Constraint struct {
	node
	Info adapter.ConstraintInfo
}

func newConstraint(info adapter.ConstraintInfo, parent Entity) *Constraint {
	c := &Constraint{node: newNode(info.Name, KindConstraint), Info: info}
	c.loaded = true
	adopt(parent, c)
	return c
}

// Label renders the constraint for tree display; foreign keys show their
// referenced table.
func (c *Constraint) Label() string {
	switch c.Info.Type {
	case adapter.ConstraintForeignKey:
		target := c.Info.RefTable
		if c.Info.RefSchema != "" {
			target = c.Info.RefSchema + "." + target
		}
		return fmt.Sprintf("%s (%s) -> %s", c.name, strings.Join(c.Info.Columns, ", "), target)
	default:
		return fmt.Sprintf("%s [%s]", c.name, c.Info.Type)
	}
}

// Parameter is a terminal leaf on procedures and functions.
type Parameter struct {
	node
	Info adapter.ParameterInfo
}

func newParameter(info adapter.ParameterInfo, parent Entity) *Parameter {
	p := &Parameter{node: newNode(info.Name, KindParameter), Info: info}
	p.loaded = true
	adopt(parent, p)
	return p
}

// Label renders the parameter for tree display.
func (p *Parameter) Label() string {
	return fmt.Sprintf("%s %s %s", p.name, p.Info.DataType, p.Info.Mode)
}
