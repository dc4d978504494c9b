// Package workitems stores fetched work items as an arena: an id-indexed map
// plus the insertion order. Hierarchy edges are ids, never pointers.
package workitems

import (
	"encoding/json"
	"fmt"
	"iter"
	"sort"

	"github.com/steveyegge/ghtrack/internal/classify"
	"github.com/steveyegge/ghtrack/internal/types"
)

// WorkItems owns every fetched work item.
type WorkItems struct {
	byID  map[types.WorkItemID]*types.WorkItem
	order []types.WorkItemID
}

// New returns a collection holding items in the given order.
func New(items ...types.WorkItem) *WorkItems {
	w := &WorkItems{byID: make(map[types.WorkItemID]*types.WorkItem, len(items))}
	for _, item := range items {
		w.Add(item)
	}
	return w
}

// Add stores item. Adding an id twice replaces the stored item and keeps
// its original position.
func (w *WorkItems) Add(item types.WorkItem) {
	if _, ok := w.byID[item.ID]; !ok {
		w.order = append(w.order, item.ID)
	}
	it := item
	w.byID[item.ID] = &it
}

// Update replaces the stored copy of item and reports how much the
// displayed hierarchy is affected. Unknown items are added.
func (w *WorkItems) Update(item types.WorkItem) classify.UpdateType {
	old, ok := w.byID[item.ID]
	if !ok {
		w.Add(item)
		return classify.Classify(nil, &item)
	}
	kind := classify.Classify(old, &item)
	it := item
	w.byID[item.ID] = &it
	return kind
}

// Get returns a copy-free view of the item with id. Callers must not
// modify it; use GetMut for that.
func (w *WorkItems) Get(id types.WorkItemID) (*types.WorkItem, bool) {
	item, ok := w.byID[id]
	return item, ok
}

// GetMut returns the stored item for in-place modification.
func (w *WorkItems) GetMut(id types.WorkItemID) (*types.WorkItem, bool) {
	item, ok := w.byID[id]
	return item, ok
}

// Len returns the number of items.
func (w *WorkItems) Len() int {
	return len(w.order)
}

// IDs returns the ids in insertion order.
func (w *WorkItems) IDs() []types.WorkItemID {
	return append([]types.WorkItemID(nil), w.order...)
}

// All iterates items in insertion order.
func (w *WorkItems) All() iter.Seq[*types.WorkItem] {
	return func(yield func(*types.WorkItem) bool) {
		for _, id := range w.order {
			if !yield(w.byID[id]) {
				return
			}
		}
	}
}

// Roots returns the ids that are nobody's sub-issue, in insertion order.
// Tracked issues are not hierarchy edges. Sub-issue ids unknown to the
// collection are ignored and cycles are not detected.
func (w *WorkItems) Roots() []types.WorkItemID {
	index := make(map[types.WorkItemID]int, len(w.order))
	for i, id := range w.order {
		index[id] = i
	}
	for _, item := range w.byID {
		if is, ok := item.Issue(); ok {
			for _, child := range is.SubIssues {
				delete(index, child)
			}
		}
	}
	roots := make([]types.WorkItemID, 0, len(index))
	for id := range index {
		roots = append(roots, id)
	}
	sort.Slice(roots, func(i, j int) bool { return index[roots[i]] < index[roots[j]] })
	return roots
}

// Clone returns a deep copy.
func (w *WorkItems) Clone() *WorkItems {
	c := &WorkItems{
		byID:  make(map[types.WorkItemID]*types.WorkItem, len(w.byID)),
		order: append([]types.WorkItemID(nil), w.order...),
	}
	for id, item := range w.byID {
		it := item.Clone()
		c.byID[id] = &it
	}
	return c
}

// Restore writes snapshots back over the stored items, undoing any
// in-memory edits made since they were taken.
func (w *WorkItems) Restore(originals map[types.WorkItemID]types.WorkItem) {
	for id, item := range originals {
		if _, ok := w.byID[id]; !ok {
			continue
		}
		it := item.Clone()
		w.byID[id] = &it
	}
}

// MarshalJSON writes the items as an ordered list.
func (w *WorkItems) MarshalJSON() ([]byte, error) {
	items := make([]*types.WorkItem, 0, len(w.order))
	for item := range w.All() {
		items = append(items, item)
	}
	return json.Marshal(items)
}

// UnmarshalJSON reads the ordered list written by MarshalJSON.
func (w *WorkItems) UnmarshalJSON(data []byte) error {
	var items []types.WorkItem
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("decode work items: %w", err)
	}
	*w = *New(items...)
	return nil
}
