package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sadopc/dbnav/internal/adapter"
)

// Database belongs to exactly one Server. Schema-based engines populate the
// schemas collection; engines without schema support store object arrays
// directly. The two storage modes are mutually exclusive per the session's
// capability flags.
type Database struct {
	node

	Policy       LoadPolicy
	SchemaFilter string

	schemas       []*Schema
	schemasLoaded bool

	// Direct-mode storage (Features.Schemas == false).
	tables           []*Table
	views            []*View
	procedures       []*Procedure
	functions        []*Function
	synonyms         []*Synonym
	tablesLoaded     bool
	viewsLoaded      bool
	proceduresLoaded bool
	functionsLoaded  bool
	synonymsLoaded   bool

	// Bulk caches; cleared on reset so a reload refetches fresh data.
	defs       map[adapter.ObjectKey]string
	defsLoaded bool
	meta       map[adapter.ObjectKey]adapter.ObjectMeta
	metaLoaded bool

	// mu serializes background fetches that share the schema collection,
	// the typed object arrays and the bulk caches, such as a group load
	// racing a synonym resolution on the same database.
	mu sync.Mutex

	connected bool
}

func newDatabase(name string, server *Server) *Database {
	d := &Database{
		node:         newNode(name, KindDatabase),
		Policy:       server.Policy,
		SchemaFilter: server.SchemaFilter,
	}
	adopt(server, d)
	return d
}

func (d *Database) session() (adapter.Session, error) {
	srv := ServerOf(d)
	if srv == nil || srv.Session() == nil {
		return nil, adapter.ErrNotConnected
	}
	return srv.Session(), nil
}

// IsConnected reports whether this database is the server's current default.
func (d *Database) IsConnected() bool { return d.connected }

// Connect marks this database as the server's active one. At most one
// database per server carries the flag; siblings are cleared here.
func (d *Database) Connect() {
	if srv := ServerOf(d); srv != nil {
		srv.mu.Lock()
		for _, sib := range srv.Databases {
			sib.connected = false
		}
		srv.mu.Unlock()
	}
	d.connected = true
}

// Schemas returns the loaded schema collection (names may be loaded while
// their object arrays are not).
func (d *Database) Schemas() []*Schema { return d.schemas }

// FindSchema returns the schema with the exact name, or nil.
func (d *Database) FindSchema(name string) *Schema {
	for _, sc := range d.schemas {
		if sc.Name() == name {
			return sc
		}
	}
	return nil
}

// DefaultSchema returns the engine's default schema for this session.
func (d *Database) DefaultSchema() string {
	sess, err := d.session()
	if err != nil {
		return ""
	}
	return sess.DefaultSchema()
}

// ensureSchemasLoaded fetches schema names only; object arrays stay nil
// until a loader targets them. Existing Schema entities are kept by name.
// Callers hold d.mu.
func (d *Database) ensureSchemasLoaded(ctx context.Context) error {
	if d.schemasLoaded {
		return nil
	}
	sess, err := d.session()
	if err != nil {
		return err
	}
	names, err := sess.Schemas(ctx, d.name)
	if err != nil {
		return fmt.Errorf("load %s: schemas: %w", d.name, err)
	}

	existing := make(map[string]*Schema, len(d.schemas))
	for _, sc := range d.schemas {
		existing[sc.Name()] = sc
	}
	d.schemas = d.schemas[:0]
	for _, name := range names {
		sc, ok := existing[name]
		if !ok {
			sc = newSchema(name, d)
		}
		d.schemas = append(d.schemas, sc)
	}
	d.schemasLoaded = true
	return nil
}

// stageLoad fetches the schema name list on the calling goroutine; the
// returned function rebuilds the group children, so a background load
// leaves the tree untouched until the update loop applies it.
func (d *Database) stageLoad(ctx context.Context) func() error {
	sess, err := d.session()
	if err != nil {
		return func() error {
			d.ui.Err = err.Error()
			return err
		}
	}
	feats := sess.Features()
	if feats.Schemas {
		d.mu.Lock()
		err := d.ensureSchemasLoaded(ctx)
		d.mu.Unlock()
		if err != nil {
			return func() error {
				d.ui.Err = err.Error()
				return err
			}
		}
	}
	return func() error {
		d.rebuildGroups(feats)
		d.loaded = true
		d.ui.Err = ""
		return nil
	}
}

// Load populates the UI children: one lazy group per object type the engine
// supports. Schema-based engines get their schema name list first.
func (d *Database) Load(ctx context.Context) error {
	if d.loaded {
		return nil
	}
	return d.stageLoad(ctx)()
}

// rebuildGroups replaces the UI children with one lazy group per object
// type the engine supports.
func (d *Database) rebuildGroups(feats adapter.Features) {
	detachChildren(d)
	addGroup := func(class GroupClass, label string, load func(ctx context.Context) ([]Entity, error)) {
		AddLazyGroup(d, class, label, load)
	}

	addGroup(GroupTables, "Tables", func(ctx context.Context) ([]Entity, error) {
		items, err := d.GetTables(ctx, "")
		return asEntities(items), err
	})
	if feats.Views {
		addGroup(GroupViews, "Views", func(ctx context.Context) ([]Entity, error) {
			items, err := d.GetViews(ctx, "")
			return asEntities(items), err
		})
	}
	if feats.Procedures {
		addGroup(GroupProcedures, "Procedures", func(ctx context.Context) ([]Entity, error) {
			items, err := d.GetProcedures(ctx, "")
			return asEntities(items), err
		})
	}
	if feats.Functions {
		addGroup(GroupFunctions, "Functions", func(ctx context.Context) ([]Entity, error) {
			items, err := d.GetFunctions(ctx, "")
			return asEntities(items), err
		})
	}
	if feats.Synonyms {
		addGroup(GroupSynonyms, "Synonyms", func(ctx context.Context) ([]Entity, error) {
			items, err := d.GetSynonyms(ctx, "")
			return asEntities(items), err
		})
	}
}

func (d *Database) reset() {
	d.node.reset()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.schemas = nil
	d.schemasLoaded = false
	d.tables, d.views, d.procedures, d.functions, d.synonyms = nil, nil, nil, nil, nil
	d.tablesLoaded, d.viewsLoaded, d.proceduresLoaded = false, false, false
	d.functionsLoaded, d.synonymsLoaded = false, false
	d.defs, d.defsLoaded = nil, false
	d.meta, d.metaLoaded = nil, false
}

// ---------------------------------------------------------------------------
// Aggregated object access
// ---------------------------------------------------------------------------

// aggregated implements the shared eager/lazy policy for one object type on
// a schema-based engine. Eager mode issues a single bulk query spanning all
// schemas and distributes results through the schema's merge setter; lazy
// mode loads only the schema named by the filter chain (explicit argument,
// database filter, engine default) and leaves the rest untouched. The
// policy changes when work happens, never the result.
func aggregated[T Entity](ctx context.Context, d *Database, filter string,
	bulk func(ctx context.Context) (map[string][]T, error),
	perSchema func(ctx context.Context, sc *Schema) ([]T, error),
	get func(sc *Schema) ([]T, bool),
	set func(sc *Schema, items []T),
) ([]T, error) {
	if err := d.ensureSchemasLoaded(ctx); err != nil {
		return nil, err
	}

	if d.Policy == PolicyEager && filter == "" {
		missing := false
		for _, sc := range d.schemas {
			if _, ok := get(sc); !ok {
				missing = true
				break
			}
		}
		if missing {
			grouped, err := bulk(ctx)
			if err != nil {
				return nil, err
			}
			for _, sc := range d.schemas {
				if _, ok := get(sc); ok {
					continue
				}
				set(sc, grouped[sc.Name()])
			}
		}
		var out []T
		for _, sc := range d.schemas {
			items, _ := get(sc)
			out = append(out, items...)
		}
		return out, nil
	}

	target := filter
	if target == "" {
		target = d.SchemaFilter
	}
	if target == "" {
		target = d.DefaultSchema()
	}
	sc := d.FindSchema(target)
	if sc == nil {
		return nil, fmt.Errorf("schema %q not found in database %s", target, d.name)
	}
	if items, ok := get(sc); ok {
		return items, nil
	}
	items, err := perSchema(ctx, sc)
	if err != nil {
		return nil, err
	}
	set(sc, items)
	items, _ = get(sc)
	return items, nil
}

// GetTables returns tables according to the loading policy. An empty
// schemaFilter means "policy default": every schema under eager, the default
// schema under lazy.
func (d *Database) GetTables(ctx context.Context, schemaFilter string) ([]*Table, error) {
	sess, err := d.session()
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !sess.Features().Schemas {
		return d.directTables(ctx)
	}
	return aggregated(ctx, d, schemaFilter,
		d.bulkTables,
		func(ctx context.Context, sc *Schema) ([]*Table, error) { return sc.fetchTables(ctx) },
		func(sc *Schema) ([]*Table, bool) { return sc.tables, sc.tablesLoaded },
		func(sc *Schema, items []*Table) { sc.SetTables(items) },
	)
}

// GetViews returns views according to the loading policy.
func (d *Database) GetViews(ctx context.Context, schemaFilter string) ([]*View, error) {
	sess, err := d.session()
	if err != nil {
		return nil, err
	}
	if !sess.Features().Views {
		return nil, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !sess.Features().Schemas {
		return d.directViews(ctx)
	}
	return aggregated(ctx, d, schemaFilter,
		d.bulkViews,
		func(ctx context.Context, sc *Schema) ([]*View, error) { return sc.fetchViews(ctx) },
		func(sc *Schema) ([]*View, bool) { return sc.views, sc.viewsLoaded },
		func(sc *Schema, items []*View) { sc.SetViews(items) },
	)
}

// GetProcedures returns procedures according to the loading policy.
func (d *Database) GetProcedures(ctx context.Context, schemaFilter string) ([]*Procedure, error) {
	sess, err := d.session()
	if err != nil {
		return nil, err
	}
	if !sess.Features().Procedures {
		return nil, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !sess.Features().Schemas {
		return d.directProcedures(ctx)
	}
	return aggregated(ctx, d, schemaFilter,
		d.bulkProcedures,
		func(ctx context.Context, sc *Schema) ([]*Procedure, error) { return sc.fetchProcedures(ctx) },
		func(sc *Schema) ([]*Procedure, bool) { return sc.procedures, sc.proceduresLoaded },
		func(sc *Schema, items []*Procedure) { sc.SetProcedures(items) },
	)
}

// GetFunctions returns functions according to the loading policy.
func (d *Database) GetFunctions(ctx context.Context, schemaFilter string) ([]*Function, error) {
	sess, err := d.session()
	if err != nil {
		return nil, err
	}
	if !sess.Features().Functions {
		return nil, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !sess.Features().Schemas {
		return d.directFunctions(ctx)
	}
	return aggregated(ctx, d, schemaFilter,
		d.bulkFunctions,
		func(ctx context.Context, sc *Schema) ([]*Function, error) { return sc.fetchFunctions(ctx) },
		func(sc *Schema) ([]*Function, bool) { return sc.functions, sc.functionsLoaded },
		func(sc *Schema, items []*Function) { sc.SetFunctions(items) },
	)
}

// GetSynonyms returns synonyms according to the loading policy.
func (d *Database) GetSynonyms(ctx context.Context, schemaFilter string) ([]*Synonym, error) {
	sess, err := d.session()
	if err != nil {
		return nil, err
	}
	if !sess.Features().Synonyms {
		return nil, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !sess.Features().Schemas {
		return d.directSynonyms(ctx)
	}
	return aggregated(ctx, d, schemaFilter,
		d.bulkSynonyms,
		func(ctx context.Context, sc *Schema) ([]*Synonym, error) { return sc.fetchSynonyms(ctx) },
		func(sc *Schema) ([]*Synonym, bool) { return sc.synonyms, sc.synonymsLoaded },
		func(sc *Schema, items []*Synonym) { sc.SetSynonyms(items) },
	)
}

// ---------------------------------------------------------------------------
// Bulk loaders (one query per object type across all schemas)
// ---------------------------------------------------------------------------

func (d *Database) bulkTables(ctx context.Context) (map[string][]*Table, error) {
	sess, err := d.session()
	if err != nil {
		return nil, err
	}
	infos, err := sess.Tables(ctx, d.name, "")
	if err != nil {
		return nil, fmt.Errorf("bulk tables %s: %w", d.name, err)
	}
	out := make(map[string][]*Table)
	for _, info := range infos {
		sc := d.FindSchema(info.Schema)
		if sc == nil {
			continue
		}
		out[info.Schema] = append(out[info.Schema], newTable(info, sc))
	}
	return out, nil
}

func (d *Database) bulkViews(ctx context.Context) (map[string][]*View, error) {
	sess, err := d.session()
	if err != nil {
		return nil, err
	}
	infos, err := sess.Views(ctx, d.name, "")
	if err != nil {
		return nil, fmt.Errorf("bulk views %s: %w", d.name, err)
	}
	out := make(map[string][]*View)
	for _, info := range infos {
		sc := d.FindSchema(info.Schema)
		if sc == nil {
			continue
		}
		out[info.Schema] = append(out[info.Schema], newView(info.Name, sc))
	}
	return out, nil
}

func (d *Database) bulkProcedures(ctx context.Context) (map[string][]*Procedure, error) {
	sess, err := d.session()
	if err != nil {
		return nil, err
	}
	infos, err := sess.Procedures(ctx, d.name, "")
	if err != nil {
		return nil, fmt.Errorf("bulk procedures %s: %w", d.name, err)
	}
	out := make(map[string][]*Procedure)
	for _, info := range infos {
		sc := d.FindSchema(info.Schema)
		if sc == nil {
			continue
		}
		out[info.Schema] = append(out[info.Schema], newProcedure(info.Name, sc))
	}
	return out, nil
}

func (d *Database) bulkFunctions(ctx context.Context) (map[string][]*Function, error) {
	sess, err := d.session()
	if err != nil {
		return nil, err
	}
	infos, err := sess.Functions(ctx, d.name, "")
	if err != nil {
		return nil, fmt.Errorf("bulk functions %s: %w", d.name, err)
	}
	out := make(map[string][]*Function)
	for _, info := range infos {
		sc := d.FindSchema(info.Schema)
		if sc == nil {
			continue
		}
		out[info.Schema] = append(out[info.Schema], newFunction(info.Name, sc))
	}
	return out, nil
}

func (d *Database) bulkSynonyms(ctx context.Context) (map[string][]*Synonym, error) {
	sess, err := d.session()
	if err != nil {
		return nil, err
	}
	infos, err := sess.Synonyms(ctx, d.name, "")
	if err != nil {
		return nil, fmt.Errorf("bulk synonyms %s: %w", d.name, err)
	}
	out := make(map[string][]*Synonym)
	for _, info := range infos {
		sc := d.FindSchema(info.Schema)
		if sc == nil {
			continue
		}
		out[info.Schema] = append(out[info.Schema], newSynonym(info, sc))
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Direct-mode loaders (one query per object type, no schemas)
// ---------------------------------------------------------------------------

func (d *Database) directTables(ctx context.Context) ([]*Table, error) {
	if d.tablesLoaded {
		return d.tables, nil
	}
	sess, err := d.session()
	if err != nil {
		return nil, err
	}
	infos, err := sess.Tables(ctx, d.name, "")
	if err != nil {
		return nil, fmt.Errorf("load tables %s: %w", d.name, err)
	}
	d.tables = d.tables[:0]
	for _, info := range infos {
		d.tables = append(d.tables, newTable(info, d))
	}
	d.tablesLoaded = true
	return d.tables, nil
}

func (d *Database) directViews(ctx context.Context) ([]*View, error) {
	if d.viewsLoaded {
		return d.views, nil
	}
	sess, err := d.session()
	if err != nil {
		return nil, err
	}
	infos, err := sess.Views(ctx, d.name, "")
	if err != nil {
		return nil, fmt.Errorf("load views %s: %w", d.name, err)
	}
	d.views = d.views[:0]
	for _, info := range infos {
		d.views = append(d.views, newView(info.Name, d))
	}
	d.viewsLoaded = true
	return d.views, nil
}

func (d *Database) directProcedures(ctx context.Context) ([]*Procedure, error) {
	if d.proceduresLoaded {
		return d.procedures, nil
	}
	sess, err := d.session()
	if err != nil {
		return nil, err
	}
	infos, err := sess.Procedures(ctx, d.name, "")
	if err != nil {
		return nil, fmt.Errorf("load procedures %s: %w", d.name, err)
	}
	d.procedures = d.procedures[:0]
	for _, info := range infos {
		d.procedures = append(d.procedures, newProcedure(info.Name, d))
	}
	d.proceduresLoaded = true
	return d.procedures, nil
}

func (d *Database) directFunctions(ctx context.Context) ([]*Function, error) {
	if d.functionsLoaded {
		return d.functions, nil
	}
	sess, err := d.session()
	if err != nil {
		return nil, err
	}
	infos, err := sess.Functions(ctx, d.name, "")
	if err != nil {
		return nil, fmt.Errorf("load functions %s: %w", d.name, err)
	}
	d.functions = d.functions[:0]
	for _, info := range infos {
		d.functions = append(d.functions, newFunction(info.Name, d))
	}
	d.functionsLoaded = true
	return d.functions, nil
}

func (d *Database) directSynonyms(ctx context.Context) ([]*Synonym, error) {
	if d.synonymsLoaded {
		return d.synonyms, nil
	}
	sess, err := d.session()
	if err != nil {
		return nil, err
	}
	infos, err := sess.Synonyms(ctx, d.name, "")
	if err != nil {
		return nil, fmt.Errorf("load synonyms %s: %w", d.name, err)
	}
	d.synonyms = d.synonyms[:0]
	for _, info := range infos {
		d.synonyms = append(d.synonyms, newSynonym(info, d))
	}
	d.synonymsLoaded = true
	return d.synonyms, nil
}

// ---------------------------------------------------------------------------
// Bulk definition / metadata caches
// ---------------------------------------------------------------------------

// AllDefinitions returns every object definition in the database from one
// bulk query, cached until reset. Engines without a bulk path yield an
// empty map so callers degrade to per-object loads.
func (d *Database) AllDefinitions(ctx context.Context) (map[adapter.ObjectKey]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.defsLoaded {
		return d.defs, nil
	}
	sess, err := d.session()
	if err != nil {
		return nil, err
	}
	m, err := sess.AllDefinitions(ctx, d.name)
	if errors.Is(err, adapter.ErrUnsupported) {
		m, err = map[adapter.ObjectKey]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("bulk definitions %s: %w", d.name, err)
	}
	d.defs = m
	d.defsLoaded = true
	return d.defs, nil
}

// AllObjectMeta returns cross-type metadata for every object from one bulk
// query, with the same unsupported-engine fallback as AllDefinitions.
func (d *Database) AllObjectMeta(ctx context.Context) (map[adapter.ObjectKey]adapter.ObjectMeta, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.metaLoaded {
		return d.meta, nil
	}
	sess, err := d.session()
	if err != nil {
		return nil, err
	}
	m, err := sess.AllObjectMeta(ctx, d.name)
	if errors.Is(err, adapter.ErrUnsupported) {
		m, err = map[adapter.ObjectKey]adapter.ObjectMeta{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("bulk metadata %s: %w", d.name, err)
	}
	d.meta = m
	d.metaLoaded = true
	return d.meta, nil
}

// asEntities converts a typed slice to the Entity interface slice used by
// group loaders.
func asEntities[T Entity](items []T) []Entity {
	out := make([]Entity, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}
