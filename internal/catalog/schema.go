package catalog

import (
	"context"
	"fmt"
)

// Schema groups objects inside a schema-based database. Object arrays start
// nil; each type has its own loaded flag so one type can be present while
// the others are still unfetched.
type Schema struct {
	node

	tables     []*Table
	views      []*View
	procedures []*Procedure
	functions  []*Function
	synonyms   []*Synonym

	tablesLoaded     bool
	viewsLoaded      bool
	proceduresLoaded bool
	functionsLoaded  bool
	synonymsLoaded   bool
}

func newSchema(name string, db *Database) *Schema {
	sc := &Schema{node: newNode(name, KindSchema)}
	adopt(db, sc)
	return sc
}

func (sc *Schema) Tables() []*Table         { return sc.tables }
func (sc *Schema) Views() []*View           { return sc.views }
func (sc *Schema) Procedures() []*Procedure { return sc.procedures }
func (sc *Schema) Functions() []*Function   { return sc.functions }
func (sc *Schema) Synonyms() []*Synonym     { return sc.synonyms }

// mergeByName keeps the previously loaded entity when the incoming list
// carries the same name, so expanded subtrees and fetched details survive a
// refresh. Names absent from the incoming list are dropped.
func mergeByName[T Entity](old, incoming []T) []T {
	existing := make(map[string]T, len(old))
	for _, e := range old {
		existing[e.Name()] = e
	}
	out := make([]T, 0, len(incoming))
	for _, e := range incoming {
		if prev, ok := existing[e.Name()]; ok {
			out = append(out, prev)
			continue
		}
		out = append(out, e)
	}
	return out
}

// SetTables replaces the table list, preserving existing entities by name.
func (sc *Schema) SetTables(items []*Table) {
	sc.tables = mergeByName(sc.tables, items)
	sc.tablesLoaded = true
}

// SetViews replaces the view list, preserving existing entities by name.
func (sc *Schema) SetViews(items []*View) {
	sc.views = mergeByName(sc.views, items)
	sc.viewsLoaded = true
}

// SetProcedures replaces the procedure list, preserving existing entities by name.
func (sc *Schema) SetProcedures(items []*Procedure) {
	sc.procedures = mergeByName(sc.procedures, items)
	sc.proceduresLoaded = true
}

// SetFunctions replaces the function list, preserving existing entities by name.
func (sc *Schema) SetFunctions(items []*Function) {
	sc.functions = mergeByName(sc.functions, items)
	sc.functionsLoaded = true
}

// SetSynonyms replaces the synonym list, preserving existing entities by name.
func (sc *Schema) SetSynonyms(items []*Synonym) {
	sc.synonyms = mergeByName(sc.synonyms, items)
	sc.synonymsLoaded = true
}

func (sc *Schema) database() *Database { return DatabaseOf(sc) }

func (sc *Schema) fetchTables(ctx context.Context) ([]*Table, error) {
	db := sc.database()
	sess, err := db.session()
	if err != nil {
		return nil, err
	}
	infos, err := sess.Tables(ctx, db.Name(), sc.name)
	if err != nil {
		return nil, fmt.Errorf("load tables %s.%s: %w", db.Name(), sc.name, err)
	}
	out := make([]*Table, 0, len(infos))
	for _, info := range infos {
		out = append(out, newTable(info, sc))
	}
	return out, nil
}

func (sc *Schema) fetchViews(ctx context.Context) ([]*View, error) {
	db := sc.database()
	sess, err := db.session()
	if err != nil {
		return nil, err
	}
	infos, err := sess.Views(ctx, db.Name(), sc.name)
	if err != nil {
		return nil, fmt.Errorf("load views %s.%s: %w", db.Name(), sc.name, err)
	}
	out := make([]*View, 0, len(infos))
	for _, info := range infos {
		out = append(out, newView(info.Name, sc))
	}
	return out, nil
}

func (sc *Schema) fetchProcedures(ctx context.Context) ([]*Procedure, error) {
	db := sc.database()
	sess, err := db.session()
	if err != nil {
		return nil, err
	}
	infos, err := sess.Procedures(ctx, db.Name(), sc.name)
	if err != nil {
		return nil, fmt.Errorf("load procedures %s.%s: %w", db.Name(), sc.name, err)
	}
	out := make([]*Procedure, 0, len(infos))
	for _, info := range infos {
		out = append(out, newProcedure(info.Name, sc))
	}
	return out, nil
}

func (sc *Schema) fetchFunctions(ctx context.Context) ([]*Function, error) {
	db := sc.database()
	sess, err := db.session()
	if err != nil {
		return nil, err
	}
	infos, err := sess.Functions(ctx, db.Name(), sc.name)
	if err != nil {
		return nil, fmt.Errorf("load functions %s.%s: %w", db.Name(), sc.name, err)
	}
	out := make([]*Function, 0, len(infos))
	for _, info := range infos {
		out = append(out, newFunction(info.Name, sc))
	}
	return out, nil
}

func (sc *Schema) fetchSynonyms(ctx context.Context) ([]*Synonym, error) {
	db := sc.database()
	sess, err := db.session()
	if err != nil {
		return nil, err
	}
	infos, err := sess.Synonyms(ctx, db.Name(), sc.name)
	if err != nil {
		return nil, fmt.Errorf("load synonyms %s.%s: %w", db.Name(), sc.name, err)
	}
	out := make([]*Synonym, 0, len(infos))
	for _, info := range infos {
		out = append(out, newSynonym(info, sc))
	}
	return out, nil
}

func (sc *Schema) reset() {
	sc.node.reset()
	sc.tables, sc.views, sc.procedures, sc.functions, sc.synonyms = nil, nil, nil, nil, nil
	sc.tablesLoaded, sc.viewsLoaded, sc.proceduresLoaded = false, false, false
	sc.functionsLoaded, sc.synonymsLoaded = false, false
}
