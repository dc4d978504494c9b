package changes

import (
	"encoding/json"
	"iter"
	"log/slog"
	"slices"

	"github.com/steveyegge/ghtrack/internal/debug"
)

// Changes is the ledger of pending changes, keyed by (work item, kind).
// Iteration follows insertion order. The zero value is ready to use.
type Changes struct {
	log   *slog.Logger
	order []Key
	data  map[Key]Change
}

// New returns an empty ledger that logs through log. A nil log uses the
// default logger.
func New(log *slog.Logger) *Changes {
	return &Changes{log: log}
}

func (c *Changes) logger() *slog.Logger {
	if c.log == nil {
		return debug.Logger()
	}
	return c.log
}

// SetLogger replaces the logger used for warnings.
func (c *Changes) SetLogger(log *slog.Logger) {
	c.log = log
}

// Add inserts change. A pending change of the same kind for the same item
// is replaced and keeps its position; a warning is logged when the value
// differs.
func (c *Changes) Add(change Change) {
	if c.data == nil {
		c.data = make(map[Key]Change)
	}
	key := change.Key()
	if old, ok := c.data[key]; ok {
		if old.Data != change.Data {
			c.logger().Warn("change overrides pending change", "change", change.String(), "old", old.String())
		}
	} else {
		c.order = append(c.order, key)
	}
	c.data[key] = change
}

// Remove deletes the pending change occupying change's slot.
func (c *Changes) Remove(change Change) {
	c.RemoveKey(change.Key())
}

// RemoveKey deletes the pending change at key.
func (c *Changes) RemoveKey(key Key) {
	if _, ok := c.data[key]; !ok {
		return
	}
	delete(c.data, key)
	c.order = slices.DeleteFunc(c.order, func(k Key) bool { return k == key })
}

// AddChanges merges other into c in other's order.
func (c *Changes) AddChanges(other *Changes) {
	if other == nil {
		return
	}
	for change := range other.All() {
		c.Add(change)
	}
}

// Get returns the change at key.
func (c *Changes) Get(key Key) (Change, bool) {
	change, ok := c.data[key]
	return change, ok
}

// Len returns the number of pending changes.
func (c *Changes) Len() int {
	return len(c.order)
}

// Clear drops every pending change.
func (c *Changes) Clear() {
	c.order = nil
	c.data = nil
}

// All iterates pending changes in insertion order.
func (c *Changes) All() iter.Seq[Change] {
	return func(yield func(Change) bool) {
		for _, key := range c.order {
			if !yield(c.data[key]) {
				return
			}
		}
	}
}

// List returns the pending changes in insertion order.
func (c *Changes) List() []Change {
	return slices.Collect(c.All())
}

// Clone returns an independent copy sharing the logger.
func (c *Changes) Clone() *Changes {
	out := New(c.log)
	out.AddChanges(c)
	return out
}

// take empties the ledger and returns what it held.
func (c *Changes) take() []Change {
	list := c.List()
	c.Clear()
	return list
}

// MarshalJSON writes the pending changes as an ordered list.
func (c *Changes) MarshalJSON() ([]byte, error) {
	list := c.List()
	if list == nil {
		list = []Change{}
	}
	return json.Marshal(list)
}

// UnmarshalJSON replaces the ledger content with the decoded list.
func (c *Changes) UnmarshalJSON(data []byte) error {
	var list []Change
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	c.Clear()
	for _, change := range list {
		c.Add(change)
	}
	return nil
}
