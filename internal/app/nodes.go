package app

import (
	"sort"

	"github.com/steveyegge/ghtrack/internal/fields"
	"github.com/steveyegge/ghtrack/internal/sanitize"
	"github.com/steveyegge/ghtrack/internal/types"
	"github.com/steveyegge/ghtrack/internal/workitems"
)

// NodeKind tells work item rows from epic group headers.
type NodeKind string

const (
	NodeItem  NodeKind = "item"
	NodeGroup NodeKind = "group"
)

// noEpic names the group of children without an epic.
const noEpic = "None"

// Node is one row of the displayed tree, in depth-first order.
type Node struct {
	Level       int      `json:"level"`
	ID          string   `json:"id"`
	Kind        NodeKind `json:"kind"`
	Name        string   `json:"name,omitempty"` // groups only
	HasChildren bool     `json:"has_children"`
	IsModified  bool     `json:"is_modified"`
}

type nodeBuilder struct {
	fields    *fields.Fields
	items     *workitems.WorkItems
	filters   Filters
	closed    string
	originals map[types.WorkItemID]types.WorkItem
	visible   map[types.WorkItemID]bool
	nodes     []Node
}

// BuildNodes lays out the tree from the roots of items. Siblings are
// grouped by epic when they span more than one epic; items without an
// epic come first, the rest in order of epic name. Within a group the
// sub-issue order is kept. Filters.HideClosed hides items whose status
// option is named closedStatus, "Closed" when empty.
func BuildNodes(f *fields.Fields, items *workitems.WorkItems, filters Filters, closedStatus string, originals map[types.WorkItemID]types.WorkItem) []Node {
	if closedStatus == "" {
		closedStatus = sanitize.DefaultRules().ClosedStatus
	}
	b := &nodeBuilder{
		fields:    f,
		items:     items,
		filters:   filters,
		closed:    closedStatus,
		originals: originals,
		visible:   make(map[types.WorkItemID]bool),
	}
	b.addNodes(items.Roots(), 0, "", nil)
	return b.nodes
}

type groupedID struct {
	epic string // option name, "" when none
	id   types.WorkItemID
}

func (b *nodeBuilder) addNodes(ids []types.WorkItemID, level int, path string, onPath map[types.WorkItemID]bool) {
	var entries []groupedID
	for _, id := range ids {
		if !b.include(id, map[types.WorkItemID]bool{}) {
			continue
		}
		entries = append(entries, groupedID{epic: b.epicName(id), id: id})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].epic < entries[j].epic
	})

	multiple := false
	for _, e := range entries {
		if e.epic != entries[0].epic {
			multiple = true
			break
		}
	}

	itemLevel := level
	if multiple {
		itemLevel = level + 1
	}
	currentPath := path
	for i, e := range entries {
		if multiple && (i == 0 || entries[i-1].epic != e.epic) {
			name := e.epic
			if name == "" {
				name = noEpic
			}
			id := path + name
			currentPath = id + "/"
			b.nodes = append(b.nodes, Node{Level: level, ID: id, Kind: NodeGroup, Name: name, HasChildren: true})
		}
		b.addNode(e.id, itemLevel, currentPath, onPath)
	}
}

func (b *nodeBuilder) addNode(id types.WorkItemID, level int, path string, onPath map[types.WorkItemID]bool) {
	item, ok := b.items.Get(id)
	if !ok || onPath[id] {
		return
	}
	var children []types.WorkItemID
	if is, ok := item.Issue(); ok {
		children = is.SubIssues
	}
	_, modified := b.originals[id]
	b.nodes = append(b.nodes, Node{
		Level:       level,
		ID:          string(id),
		Kind:        NodeItem,
		HasChildren: len(children) > 0,
		IsModified:  modified,
	})

	next := make(map[types.WorkItemID]bool, len(onPath)+1)
	for k := range onPath {
		next[k] = true
	}
	next[id] = true
	b.addNodes(children, level+1, path+string(id)+"/", next)
}

func (b *nodeBuilder) epicName(id types.WorkItemID) string {
	item, ok := b.items.Get(id)
	if !ok {
		return ""
	}
	return b.fields.ValueName(types.FieldEpic, item.ProjectItem.Epic)
}

// include reports whether an item passes the filters itself or has a
// visible descendant.
func (b *nodeBuilder) include(id types.WorkItemID, seen map[types.WorkItemID]bool) bool {
	if v, ok := b.visible[id]; ok {
		return v
	}
	item, ok := b.items.Get(id)
	if !ok || seen[id] {
		return false
	}
	seen[id] = true
	v := b.passes(item)
	if !v {
		if is, ok := item.Issue(); ok {
			for _, child := range is.SubIssues {
				if b.include(child, seen) {
					v = true
					break
				}
			}
		}
	}
	b.visible[id] = v
	return v
}

func (b *nodeBuilder) passes(item *types.WorkItem) bool {
	if b.filters.HideClosed {
		if status, ok := item.ProjectItem.Status.Get(); ok {
			if name, _ := b.fields.Status.OptionName(status); name == b.closed {
				return false
			}
		}
	}
	return true
}
