package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/sadopc/dbnav/internal/adapter"
)

// schemaNameOf returns the owning schema name, or "" for direct-mode
// engines where objects hang off the database.
func schemaNameOf(e Entity) string {
	if sc := SchemaOf(e); sc != nil {
		return sc.Name()
	}
	return ""
}

// sessionOf resolves the adapter session through the owning server.
func sessionOf(e Entity) (adapter.Session, error) {
	srv := ServerOf(e)
	if srv == nil || srv.Session() == nil {
		return nil, adapter.ErrNotConnected
	}
	return srv.Session(), nil
}

// loadDefinition fills the cached definition for an object, consulting the
// database-wide bulk cache first and falling back to a per-object query.
func loadDefinition(ctx context.Context, e Entity, out *string, loaded *bool) error {
	if *loaded {
		return nil
	}
	db := DatabaseOf(e)
	if db == nil {
		return adapter.ErrNotConnected
	}
	sess, err := sessionOf(e)
	if err != nil {
		return err
	}
	key := adapter.ObjectKey{Schema: schemaNameOf(e), Name: e.Name()}
	if defs, derr := db.AllDefinitions(ctx); derr == nil {
		if def, ok := defs[key]; ok {
			*out = def
			*loaded = true
			return nil
		}
	}
	def, err := sess.Definition(ctx, db.Name(), key.Schema, key.Name)
	if err != nil {
		return fmt.Errorf("definition %s: %w", FullPath(e, "."), err)
	}
	*out = def
	*loaded = true
	return nil
}

// loadMeta fills the cached create/modify metadata for an object from the
// database-wide bulk cache. Objects missing from the cache keep zero meta.
func loadMeta(ctx context.Context, e Entity, out *adapter.ObjectMeta, loaded *bool) error {
	if *loaded {
		return nil
	}
	db := DatabaseOf(e)
	if db == nil {
		return adapter.ErrNotConnected
	}
	meta, err := db.AllObjectMeta(ctx)
	if err != nil {
		return err
	}
	*out = meta[adapter.ObjectKey{Schema: schemaNameOf(e), Name: e.Name()}]
	*loaded = true
	return nil
}

// ---------------------------------------------------------------------------
// Table
// ---------------------------------------------------------------------------

// Table holds columns, indexes, and constraints, each fetched on demand and
// cached independently.
type Table struct {
	node

	RowCount int64

	columns           []*Column
	indexes           []*Index
	constraints       []*Constraint
	columnsLoaded     bool
	indexesLoaded     bool
	constraintsLoaded bool

	meta       adapter.ObjectMeta
	metaLoaded bool

	// mu guards the caches above; concurrent background loaders may share
	// this table.
	mu sync.Mutex
}

func newTable(info adapter.TableInfo, parent Entity) *Table {
	t := &Table{node: newNode(info.Name, KindTable), RowCount: info.RowCount}
	adopt(parent, t)
	return t
}

// GetColumns fetches and caches the column list.
func (t *Table) GetColumns(ctx context.Context) ([]*Column, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.columnsLoaded {
		return t.columns, nil
	}
	sess, err := sessionOf(t)
	if err != nil {
		return nil, err
	}
	infos, err := sess.Columns(ctx, DatabaseOf(t).Name(), schemaNameOf(t), t.name)
	if err != nil {
		return nil, fmt.Errorf("columns %s: %w", FullPath(t, "."), err)
	}
	t.columns = t.columns[:0]
	for _, info := range infos {
		t.columns = append(t.columns, newColumn(info, t))
	}
	t.columnsLoaded = true
	return t.columns, nil
}

// GetIndexes fetches and caches the index list.
func (t *Table) GetIndexes(ctx context.Context) ([]*Index, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.indexesLoaded {
		return t.indexes, nil
	}
	sess, err := sessionOf(t)
	if err != nil {
		return nil, err
	}
	infos, err := sess.Indexes(ctx, DatabaseOf(t).Name(), schemaNameOf(t), t.name)
	if err != nil {
		return nil, fmt.Errorf("indexes %s: %w", FullPath(t, "."), err)
	}
	t.indexes = t.indexes[:0]
	for _, info := range infos {
		t.indexes = append(t.indexes, newIndex(info, t))
	}
	t.indexesLoaded = true
	return t.indexes, nil
}

// GetConstraints fetches and caches the constraint list.
func (t *Table) GetConstraints(ctx context.Context) ([]*Constraint, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.constraintsLoaded {
		return t.constraints, nil
	}
	sess, err := sessionOf(t)
	if err != nil {
		return nil, err
	}
	infos, err := sess.Constraints(ctx, DatabaseOf(t).Name(), schemaNameOf(t), t.name)
	if err != nil {
		return nil, fmt.Errorf("constraints %s: %w", FullPath(t, "."), err)
	}
	t.constraints = t.constraints[:0]
	for _, info := range infos {
		t.constraints = append(t.constraints, newConstraint(info, t))
	}
	t.constraintsLoaded = true
	return t.constraints, nil
}

// Meta returns creation/modification metadata from the bulk cache.
func (t *Table) Meta(ctx context.Context) (adapter.ObjectMeta, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	err := loadMeta(ctx, t, &t.meta, &t.metaLoaded)
	return t.meta, err
}

// Load builds the table's UI children: query actions, then lazy groups for
// columns, indexes, and keys, then a mutation actions group.
func (t *Table) Load(ctx context.Context) error {
	if t.loaded {
		return nil
	}
	detachChildren(t)
	AddAction(t, t, ActionSelect)
	AddAction(t, t, ActionCount)
	AddAction(t, t, ActionDescribe)
	AddLazyGroup(t, GroupColumns, "Columns", func(ctx context.Context) ([]Entity, error) {
		items, err := t.GetColumns(ctx)
		return asEntities(items), err
	})
	AddLazyGroup(t, GroupIndexes, "Indexes", func(ctx context.Context) ([]Entity, error) {
		items, err := t.GetIndexes(ctx)
		return asEntities(items), err
	})
	AddLazyGroup(t, GroupKeys, "Keys", func(ctx context.Context) ([]Entity, error) {
		items, err := t.GetConstraints(ctx)
		return asEntities(items), err
	})
	AddActionsGroup(t, ActionInsert, ActionUpdate, ActionDelete, ActionDrop, ActionDependencies)
	t.loaded = true
	return nil
}

func (t *Table) reset() {
	t.node.reset()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.columns, t.indexes, t.constraints = nil, nil, nil
	t.columnsLoaded, t.indexesLoaded, t.constraintsLoaded = false, false, false
	t.metaLoaded = false
}

// ---------------------------------------------------------------------------
// View
// ---------------------------------------------------------------------------

// View exposes columns and a source definition.
type View struct {
	node

	columns       []*Column
	columnsLoaded bool

	definition string
	defLoaded  bool

	meta       adapter.ObjectMeta
	metaLoaded bool

	mu sync.Mutex
}

func newView(name string, parent Entity) *View {
	v := &View{node: newNode(name, KindView)}
	adopt(parent, v)
	return v
}

// GetColumns fetches and caches the view's column list.
func (v *View) GetColumns(ctx context.Context) ([]*Column, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.columnsLoaded {
		return v.columns, nil
	}
	sess, err := sessionOf(v)
	if err != nil {
		return nil, err
	}
	infos, err := sess.Columns(ctx, DatabaseOf(v).Name(), schemaNameOf(v), v.name)
	if err != nil {
		return nil, fmt.Errorf("columns %s: %w", FullPath(v, "."), err)
	}
	v.columns = v.columns[:0]
	for _, info := range infos {
		v.columns = append(v.columns, newColumn(info, v))
	}
	v.columnsLoaded = true
	return v.columns, nil
}

// LoadDefinition fetches and caches the view source.
func (v *View) LoadDefinition(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return loadDefinition(ctx, v, &v.definition, &v.defLoaded)
}

// Definition returns the cached source; empty until LoadDefinition succeeds.
func (v *View) Definition() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.definition
}

// Meta returns creation/modification metadata from the bulk cache.
func (v *View) Meta(ctx context.Context) (adapter.ObjectMeta, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	err := loadMeta(ctx, v, &v.meta, &v.metaLoaded)
	return v.meta, err
}

func (v *View) Load(ctx context.Context) error {
	if v.loaded {
		return nil
	}
	detachChildren(v)
	AddAction(v, v, ActionSelect)
	AddAction(v, v, ActionCount)
	AddAction(v, v, ActionDescribe)
	AddLazyGroup(v, GroupColumns, "Columns", func(ctx context.Context) ([]Entity, error) {
		items, err := v.GetColumns(ctx)
		return asEntities(items), err
	})
	AddActionsGroup(v, ActionAlter, ActionDrop, ActionDependencies)
	v.loaded = true
	return nil
}

func (v *View) reset() {
	v.node.reset()
	v.mu.Lock()
	defer v.mu.Unlock()
	v.columns, v.columnsLoaded = nil, false
	v.definition, v.defLoaded = "", false
	v.metaLoaded = false
}

// ---------------------------------------------------------------------------
// Procedure
// ---------------------------------------------------------------------------

// Procedure exposes parameters and a source definition.
type Procedure struct {
	node

	parameters   []*Parameter
	paramsLoaded bool

	definition string
	defLoaded  bool

	meta       adapter.ObjectMeta
	metaLoaded bool

	mu sync.Mutex
}

func newProcedure(name string, parent Entity) *Procedure {
	p := &Procedure{node: newNode(name, KindProcedure)}
	adopt(parent, p)
	return p
}

// GetParameters fetches and caches the parameter list.
func (p *Procedure) GetParameters(ctx context.Context) ([]*Parameter, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paramsLoaded {
		return p.parameters, nil
	}
	sess, err := sessionOf(p)
	if err != nil {
		return nil, err
	}
	infos, err := sess.Parameters(ctx, DatabaseOf(p).Name(), schemaNameOf(p), p.name)
	if err != nil {
		return nil, fmt.Errorf("parameters %s: %w", FullPath(p, "."), err)
	}
	p.parameters = p.parameters[:0]
	for _, info := range infos {
		p.parameters = append(p.parameters, newParameter(info, p))
	}
	p.paramsLoaded = true
	return p.parameters, nil
}

// LoadDefinition fetches and caches the procedure source.
func (p *Procedure) LoadDefinition(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return loadDefinition(ctx, p, &p.definition, &p.defLoaded)
}

// Definition returns the cached source; empty until LoadDefinition succeeds.
func (p *Procedure) Definition() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.definition
}

// Meta returns creation/modification metadata from the bulk cache.
func (p *Procedure) Meta(ctx context.Context) (adapter.ObjectMeta, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := loadMeta(ctx, p, &p.meta, &p.metaLoaded)
	return p.meta, err
}

func (p *Procedure) Load(ctx context.Context) error {
	if p.loaded {
		return nil
	}
	detachChildren(p)
	AddAction(p, p, ActionExec)
	AddAction(p, p, ActionDescribe)
	AddLazyGroup(p, GroupParameters, "Parameters", func(ctx context.Context) ([]Entity, error) {
		items, err := p.GetParameters(ctx)
		return asEntities(items), err
	})
	AddActionsGroup(p, ActionAlter, ActionDrop, ActionDependencies)
	p.loaded = true
	return nil
}

func (p *Procedure) reset() {
	p.node.reset()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.parameters, p.paramsLoaded = nil, false
	p.definition, p.defLoaded = "", false
	p.metaLoaded = false
}

// ---------------------------------------------------------------------------
// Function
// ---------------------------------------------------------------------------

// Function exposes parameters and a source definition. Table-valued
// functions also answer Select actions.
type Function struct {
	node

	parameters   []*Parameter
	paramsLoaded bool

	definition string
	defLoaded  bool

	meta       adapter.ObjectMeta
	metaLoaded bool

	mu sync.Mutex
}

func newFunction(name string, parent Entity) *Function {
	f := &Function{node: newNode(name, KindFunction)}
	adopt(parent, f)
	return f
}

// GetParameters fetches and caches the parameter list.
func (f *Function) GetParameters(ctx context.Context) ([]*Parameter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.paramsLoaded {
		return f.parameters, nil
	}
	sess, err := sessionOf(f)
	if err != nil {
		return nil, err
	}
	infos, err := sess.Parameters(ctx, DatabaseOf(f).Name(), schemaNameOf(f), f.name)
	if err != nil {
		return nil, fmt.Errorf("parameters %s: %w", FullPath(f, "."), err)
	}
	f.parameters = f.parameters[:0]
	for _, info := range infos {
		f.parameters = append(f.parameters, newParameter(info, f))
	}
	f.paramsLoaded = true
	return f.parameters, nil
}

// LoadDefinition fetches and caches the function source.
func (f *Function) LoadDefinition(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return loadDefinition(ctx, f, &f.definition, &f.defLoaded)
}

// Definition returns the cached source; empty until LoadDefinition succeeds.
func (f *Function) Definition() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.definition
}

// Meta returns creation/modification metadata from the bulk cache.
func (f *Function) Meta(ctx context.Context) (adapter.ObjectMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	err := loadMeta(ctx, f, &f.meta, &f.metaLoaded)
	return f.meta, err
}

func (f *Function) Load(ctx context.Context) error {
	if f.loaded {
		return nil
	}
	detachChildren(f)
	AddAction(f, f, ActionSelect)
	AddAction(f, f, ActionDescribe)
	AddLazyGroup(f, GroupParameters, "Parameters", func(ctx context.Context) ([]Entity, error) {
		items, err := f.GetParameters(ctx)
		return asEntities(items), err
	})
	AddActionsGroup(f, ActionAlter, ActionDrop, ActionDependencies)
	f.loaded = true
	return nil
}

func (f *Function) reset() {
	f.node.reset()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.parameters, f.paramsLoaded = nil, false
	f.definition, f.defLoaded = "", false
	f.metaLoaded = false
}
