package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sadopc/dbnav/internal/adapter"
)

// Synonym resolution errors. Resolve wraps these with the names involved;
// match with errors.Is.
var (
	ErrUnparseableName   = errors.New("cannot parse base object name")
	ErrLinkedServer      = errors.New("base object is on a linked server")
	ErrDatabaseNotFound  = errors.New("base object database not found")
	ErrObjectNotFound    = errors.New("base object not found")
	ErrCircularReference = errors.New("circular synonym reference")
	ErrChainTooDeep      = errors.New("synonym chain too deep")
)

// maxResolveDepth bounds synonym-to-synonym chains.
const maxResolveDepth = 10

// ObjectName is a parsed multi-part object name. Parts fill right to left:
// one segment is an object, two is schema.object, three adds the database,
// four adds a linked server.
type ObjectName struct {
	Server   string
	Database string
	Schema   string
	Object   string
}

// ParseObjectName splits a possibly-qualified name into its parts. Segments
// may be bracket-quoted ([Name]), double-quoted, or backtick-quoted; dots
// inside quoting do not split. Empty input, empty trailing segment, or more
// than four segments fail with ErrUnparseableName.
func ParseObjectName(raw string) (ObjectName, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ObjectName{}, fmt.Errorf("%w: empty name", ErrUnparseableName)
	}

	var segments []string
	var cur strings.Builder
	var quote byte
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			} else {
				cur.WriteByte(ch)
			}
		case ch == '[':
			quote = ']'
		case ch == '"' || ch == '`':
			quote = ch
		case ch == '.':
			segments = append(segments, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(ch)
		}
	}
	if quote != 0 {
		return ObjectName{}, fmt.Errorf("%w: unterminated quote in %q", ErrUnparseableName, raw)
	}
	segments = append(segments, cur.String())

	if len(segments) > 4 {
		return ObjectName{}, fmt.Errorf("%w: too many parts in %q", ErrUnparseableName, raw)
	}
	// Right to left: object, schema, database, server.
	var name ObjectName
	fields := []*string{&name.Object, &name.Schema, &name.Database, &name.Server}
	for i := 0; i < len(segments); i++ {
		*fields[i] = segments[len(segments)-1-i]
	}
	if name.Object == "" {
		return ObjectName{}, fmt.Errorf("%w: empty object part in %q", ErrUnparseableName, raw)
	}
	return name, nil
}

// Synonym is an alias for another object, possibly in another database or
// behind a chain of further synonyms. Resolution is cached terminally: both
// a successful target and a definitive failure stick until reset.
type Synonym struct {
	node

	BaseObject string

	resolved       Entity
	resolveErr     error
	resolutionDone bool

	// mu guards the resolution cache; a background resolve may race
	// another loader reaching this synonym.
	mu sync.Mutex
}

func newSynonym(info adapter.SynonymInfo, parent Entity) *Synonym {
	s := &Synonym{node: newNode(info.Name, KindSynonym), BaseObject: info.BaseObject}
	adopt(parent, s)
	return s
}

// Resolve follows the base object reference to a concrete table, view,
// procedure, or function, chasing synonym chains up to maxResolveDepth.
// The outcome is cached; cancellation is the one result never cached, so a
// retry after an interrupted resolve starts clean.
func (s *Synonym) Resolve(ctx context.Context) (Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolutionDone {
		return s.resolved, s.resolveErr
	}
	visited := map[string]bool{FullPath(s, "."): true}
	target, err := s.resolve(ctx, visited, 1)
	if err != nil && isCancelled(err) {
		return nil, err
	}
	s.resolved, s.resolveErr = target, err
	s.resolutionDone = true
	return s.resolved, s.resolveErr
}

func (s *Synonym) resolve(ctx context.Context, visited map[string]bool, depth int) (Entity, error) {
	if depth > maxResolveDepth {
		return nil, fmt.Errorf("resolve %s: %w (limit %d)", s.name, ErrChainTooDeep, maxResolveDepth)
	}

	name, err := ParseObjectName(s.BaseObject)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", s.name, err)
	}
	if name.Server != "" {
		return nil, fmt.Errorf("resolve %s: %q: %w", s.name, s.BaseObject, ErrLinkedServer)
	}

	db := DatabaseOf(s)
	if db == nil {
		return nil, adapter.ErrNotConnected
	}
	if name.Database != "" && name.Database != db.Name() {
		srv := ServerOf(s)
		if srv == nil {
			return nil, adapter.ErrNotConnected
		}
		if !srv.Loaded() {
			if err := srv.Load(ctx); err != nil {
				return nil, err
			}
		}
		target := srv.FindDatabase(name.Database)
		if target == nil {
			return nil, fmt.Errorf("resolve %s: %q: %w", s.name, name.Database, ErrDatabaseNotFound)
		}
		db = target
	}

	schema := name.Schema
	if schema == "" {
		schema = db.DefaultSchema()
	}

	target, err := findObject(ctx, db, schema, name.Object)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", s.name, err)
	}
	if target == nil {
		return nil, fmt.Errorf("resolve %s: %s.%s: %w", s.name, schema, name.Object, ErrObjectNotFound)
	}

	next, ok := target.(*Synonym)
	if !ok {
		return target, nil
	}
	key := FullPath(next, ".")
	if visited[key] {
		return nil, fmt.Errorf("resolve %s: at %s: %w", s.name, key, ErrCircularReference)
	}
	visited[key] = true
	return next.resolve(ctx, visited, depth+1)
}

// findObject searches one schema of a database for a named object, in
// fixed order: tables, views, procedures, functions, synonyms.
func findObject(ctx context.Context, db *Database, schema, object string) (Entity, error) {
	tables, err := db.GetTables(ctx, schema)
	if err != nil {
		return nil, err
	}
	for _, t := range tables {
		if t.Name() == object {
			return t, nil
		}
	}
	views, err := db.GetViews(ctx, schema)
	if err != nil {
		return nil, err
	}
	for _, v := range views {
		if v.Name() == object {
			return v, nil
		}
	}
	procs, err := db.GetProcedures(ctx, schema)
	if err != nil {
		return nil, err
	}
	for _, p := range procs {
		if p.Name() == object {
			return p, nil
		}
	}
	funcs, err := db.GetFunctions(ctx, schema)
	if err != nil {
		return nil, err
	}
	for _, f := range funcs {
		if f.Name() == object {
			return f, nil
		}
	}
	syns, err := db.GetSynonyms(ctx, schema)
	if err != nil {
		return nil, err
	}
	for _, sy := range syns {
		if sy.Name() == object {
			return sy, nil
		}
	}
	return nil, nil
}

// BaseObjectType resolves the synonym and reports the target's kind.
func (s *Synonym) BaseObjectType(ctx context.Context) (Kind, error) {
	target, err := s.Resolve(ctx)
	if err != nil {
		return 0, err
	}
	return target.Kind(), nil
}

// GetColumns proxies to the resolved target when it carries columns.
func (s *Synonym) GetColumns(ctx context.Context) ([]*Column, error) {
	target, err := s.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	switch t := target.(type) {
	case *Table:
		return t.GetColumns(ctx)
	case *View:
		return t.GetColumns(ctx)
	default:
		return nil, nil
	}
}

// GetParameters proxies to the resolved target when it is a routine.
func (s *Synonym) GetParameters(ctx context.Context) ([]*Parameter, error) {
	target, err := s.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	switch t := target.(type) {
	case *Procedure:
		return t.GetParameters(ctx)
	case *Function:
		return t.GetParameters(ctx)
	default:
		return nil, nil
	}
}

// Load builds the synonym's UI children. Column and parameter groups proxy
// the resolved target, so expanding them triggers resolution.
func (s *Synonym) Load(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	detachChildren(s)
	AddAction(s, s, ActionSelect)
	AddAction(s, s, ActionDescribe)
	AddAction(s, s, ActionGoto)
	AddLazyGroup(s, GroupColumns, "Columns", func(ctx context.Context) ([]Entity, error) {
		items, err := s.GetColumns(ctx)
		return asEntities(items), err
	})
	AddActionsGroup(s, ActionDrop, ActionDependencies)
	s.loaded = true
	return nil
}

func (s *Synonym) reset() {
	s.node.reset()
	s.mu.Lock()
	s.resolved, s.resolveErr, s.resolutionDone = nil, nil, false
	s.mu.Unlock()
}
