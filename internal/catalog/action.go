package catalog

import "context"

// ActionType enumerates the operations an object node offers.
type ActionType int

const (
	ActionSelect ActionType = iota
	ActionCount
	ActionDescribe
	ActionInsert
	ActionUpdate
	ActionDelete
	ActionDrop
	ActionExec
	ActionAlter
	ActionDependencies
	ActionGoto
)

func (t ActionType) String() string {
	switch t {
	case ActionSelect:
		return "Select"
	case ActionCount:
		return "Count"
	case ActionDescribe:
		return "Describe"
	case ActionInsert:
		return "Insert"
	case ActionUpdate:
		return "Update"
	case ActionDelete:
		return "Delete"
	case ActionDrop:
		return "Drop"
	case ActionExec:
		return "Execute"
	case ActionAlter:
		return "Alter"
	case ActionDependencies:
		return "Dependencies"
	case ActionGoto:
		return "Go to object"
	default:
		return "Unknown"
	}
}

// Action is a leaf that triggers an operation against its owning object.
// Owner is the entity the operation targets, which may sit above the
// immediate UI parent when actions live inside a grouping node.
type Action struct {
	node
	Type  ActionType
	Owner Entity
}

func newAction(t ActionType, owner Entity) *Action {
	a := &Action{node: newNode(t.String(), KindAction), Type: t, Owner: owner}
	a.loaded = true
	return a
}

// AddAction attaches a single action leaf under parent, owned by owner.
func AddAction(parent, owner Entity, t ActionType) *Action {
	a := newAction(t, owner)
	attachChild(parent, a)
	return a
}

// GroupClass identifies what a grouping node collects.
type GroupClass int

const (
	GroupTables GroupClass = iota
	GroupViews
	GroupProcedures
	GroupFunctions
	GroupSynonyms
	GroupColumns
	GroupIndexes
	GroupKeys
	GroupParameters
	GroupActions
)

// Group is a pure UI node: it renders a heading and, when expanded, runs
// its loader to obtain the entities shown beneath it. Loaded entities keep
// their data-model parent; the group only lists them.
type Group struct {
	node
	Class  GroupClass
	loader func(ctx context.Context) ([]Entity, error)
}

// AddLazyGroup attaches a grouping node whose children come from load on
// first expansion.
func AddLazyGroup(parent Entity, class GroupClass, label string, load func(ctx context.Context) ([]Entity, error)) *Group {
	g := &Group{node: newNode(label, KindGroup), Class: class, loader: load}
	attachChild(parent, g)
	return g
}

// AddActionsGroup attaches an "Actions" grouping node with one leaf per
// action type, all owned by owner.
func AddActionsGroup(owner Entity, types ...ActionType) *Group {
	g := &Group{node: newNode("Actions", KindGroup), Class: GroupActions}
	attachChild(owner, g)
	for _, t := range types {
		AddAction(g, owner, t)
	}
	g.loaded = true
	return g
}

// stageLoad runs the loader on the calling goroutine and defers listing the
// results as UI children to the returned function. Groups with no loader
// are static and load trivially.
func (g *Group) stageLoad(ctx context.Context) func() error {
	if g.loader == nil {
		return func() error {
			g.loaded = true
			return nil
		}
	}
	items, err := g.loader(ctx)
	if err != nil {
		return func() error {
			g.ui.Err = err.Error()
			return err
		}
	}
	return func() error {
		g.children = g.children[:0]
		for _, it := range items {
			addUIChild(g, it)
		}
		g.loaded = true
		g.ui.Err = ""
		return nil
	}
}

// Load runs the loader and lists the results as UI children.
func (g *Group) Load(ctx context.Context) error {
	if g.loaded {
		return nil
	}
	return g.stageLoad(ctx)()
}
