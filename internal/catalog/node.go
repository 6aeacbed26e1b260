// Package catalog implements the lazy-loading database object model: a typed
// hierarchy of entities that fetch their own children on demand, cache
// results, support bulk loading strategies, and resolve cross-database
// synonym references.
package catalog

import (
	"context"
	"strings"
)

// Kind discriminates the closed set of entity variants.
type Kind int

const (
	KindServer Kind = iota
	KindDatabase
	KindSchema
	KindTable
	KindView
	KindProcedure
	KindFunction
	KindSynonym
	KindColumn
	KindIndex
	KindConstraint
	KindParameter
	KindAction
	KindGroup
)

func (k Kind) String() string {
	switch k {
	case KindServer:
		return "server"
	case KindDatabase:
		return "database"
	case KindSchema:
		return "schema"
	case KindTable:
		return "table"
	case KindView:
		return "view"
	case KindProcedure:
		return "procedure"
	case KindFunction:
		return "function"
	case KindSynonym:
		return "synonym"
	case KindColumn:
		return "column"
	case KindIndex:
		return "index"
	case KindConstraint:
		return "constraint"
	case KindParameter:
		return "parameter"
	case KindAction:
		return "action"
	case KindGroup:
		return "group"
	default:
		return "unknown"
	}
}

// UIState is presentation state, kept strictly separate from domain data.
// Loading/Err describe the most recent load attempt; Expanded drives
// rendering only and never implies anything about Loaded.
type UIState struct {
	Expanded bool
	Visible  bool
	Loading  bool
	Err      string
	Icon     string
}

// Entity is a node in the object hierarchy. Concrete variants embed node and
// override Load/reset as needed; lookups return nil rather than failing.
type Entity interface {
	Name() string
	Kind() Kind
	Parent() Entity
	// Children is the ordered UI child list (actions, lazy groups, and the
	// entities rendered beneath this node). Typed collections live on the
	// concrete variants; Children is rebuilt by Load.
	Children() []Entity
	Loaded() bool
	// Load lazily populates children and typed fields; it is a no-op while
	// Loaded reports true.
	Load(ctx context.Context) error
	UI() *UIState

	base() *node
	reset()
}

// node is the embedded base shared by all entity variants.
type node struct {
	name     string
	kind     Kind
	parent   Entity
	children []Entity
	loaded   bool
	ui       UIState
}

func newNode(name string, kind Kind) node {
	return node{name: name, kind: kind, ui: UIState{Visible: true}}
}

func (n *node) Name() string       { return n.name }
func (n *node) Kind() Kind         { return n.kind }
func (n *node) Parent() Entity     { return n.parent }
func (n *node) Children() []Entity { return n.children }
func (n *node) Loaded() bool       { return n.loaded }
func (n *node) UI() *UIState       { return &n.ui }
func (n *node) base() *node        { return n }

// Load on the base marks terminal entities loaded; loadable variants
// override it.
func (n *node) Load(_ context.Context) error {
	n.loaded = true
	return nil
}

func (n *node) reset() {
	n.loaded = false
	n.children = nil
}

// adopt links child's parent without adding it to the UI child list. Typed
// collections use this; a parent is assigned exactly once, at construction.
func adopt(parent, child Entity) {
	child.base().parent = parent
}

// attachChild links the parent and appends the child to the UI child list.
func attachChild(parent, child Entity) {
	child.base().parent = parent
	parent.base().children = append(parent.base().children, child)
}

// addUIChild appends to the UI child list without touching the child's
// parent link; used when a grouping node renders entities it does not own.
func addUIChild(parent, child Entity) {
	parent.base().children = append(parent.base().children, child)
}

// detachChildren clears the UI child list.
func detachChildren(parent Entity) {
	parent.base().children = nil
}

// Invalidate drops e's cached children and load state so the next Load
// fetches fresh data.
func Invalidate(e Entity) {
	e.reset()
}

// Reload invalidates cached state and loads again. After Reload the entity's
// collections reflect only freshly fetched data.
func Reload(ctx context.Context, e Entity) error {
	e.reset()
	return e.Load(ctx)
}

// Toggle flips the expanded flag. When the node becomes expanded and is not
// yet loaded, Load runs synchronously unless skipLoad is set; callers that
// need non-blocking behavior pass skipLoad and drive an async load
// themselves.
func Toggle(ctx context.Context, e Entity, skipLoad bool) error {
	ui := e.UI()
	ui.Expanded = !ui.Expanded
	if ui.Expanded && !e.Loaded() && !skipLoad {
		return e.Load(ctx)
	}
	return nil
}

// ExpandAll expands e and its descendants down to maxDepth levels below e.
// Nodes are not loaded; collapsed unloaded nodes simply render empty.
func ExpandAll(e Entity, maxDepth int) {
	if maxDepth < 0 {
		return
	}
	e.UI().Expanded = true
	for _, c := range e.Children() {
		ExpandAll(c, maxDepth-1)
	}
}

// CollapseAll collapses e and every descendant.
func CollapseAll(e Entity) {
	e.UI().Expanded = false
	for _, c := range e.Children() {
		CollapseAll(c)
	}
}

// FindChild returns the direct child with the exact name, or nil.
func FindChild(e Entity, name string) Entity {
	for _, c := range e.Children() {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// FindByPath resolves a path of exact names via repeated FindChild. Any miss
// returns nil; there is no partial match.
func FindByPath(e Entity, names []string) Entity {
	current := e
	for _, name := range names {
		current = FindChild(current, name)
		if current == nil {
			return nil
		}
	}
	return current
}

// IsAncestorOf reports whether a appears on b's parent chain.
func IsAncestorOf(a, b Entity) bool {
	for cur := b.Parent(); cur != nil; cur = cur.Parent() {
		if cur == a {
			return true
		}
	}
	return false
}

// IsDescendantOf reports whether a has b on its parent chain.
func IsDescendantOf(a, b Entity) bool {
	return IsAncestorOf(b, a)
}

// Depth returns the number of ancestors above e.
func Depth(e Entity) int {
	d := 0
	for cur := e.Parent(); cur != nil; cur = cur.Parent() {
		d++
	}
	return d
}

// FullPath joins the names from the root down to e with sep.
func FullPath(e Entity, sep string) string {
	if sep == "" {
		sep = "."
	}
	var parts []string
	for cur := e; cur != nil; cur = cur.Parent() {
		parts = append([]string{cur.Name()}, parts...)
	}
	return strings.Join(parts, sep)
}

// ServerOf walks to the root Server of e's subtree, or nil when e is not
// attached to one.
func ServerOf(e Entity) *Server {
	for cur := e; cur != nil; cur = cur.Parent() {
		if s, ok := cur.(*Server); ok {
			return s
		}
	}
	return nil
}

// DatabaseOf walks up to the owning Database, or nil.
func DatabaseOf(e Entity) *Database {
	for cur := e; cur != nil; cur = cur.Parent() {
		if d, ok := cur.(*Database); ok {
			return d
		}
	}
	return nil
}

// SchemaOf walks up to the owning Schema, or nil for direct-mode engines.
func SchemaOf(e Entity) *Schema {
	for cur := e; cur != nil; cur = cur.Parent() {
		if s, ok := cur.(*Schema); ok {
			return s
		}
	}
	return nil
}
