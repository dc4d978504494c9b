package changes

import (
	"fmt"

	"github.com/steveyegge/ghtrack/internal/fields"
	"github.com/steveyegge/ghtrack/internal/types"
	"github.com/steveyegge/ghtrack/internal/workitems"
)

const blank = "<>"

// Describe renders the change as Kind(old -> new) using option names from
// the catalog.
func (c Change) Describe(f *fields.Fields, items *workitems.WorkItems) string {
	item, _ := items.Get(c.WorkItemID)

	var old, next string
	switch d := c.Data.(type) {
	case SetField:
		if item != nil {
			if v := item.ProjectItem.Field(d.Field); v != nil {
				old = f.ValueName(d.Field, *v)
			}
		}
		next = f.ValueName(d.Field, types.OptionOf(d.Value))
	case SetIssueType:
		if item != nil {
			if is, ok := item.Issue(); ok {
				old = is.IssueType.Or("")
			}
		}
		next = d.Name
	case SetParent:
		if item != nil {
			if is, ok := item.Issue(); ok {
				old = string(is.ParentID)
			}
		}
		next = string(d.Parent)
	case AddToProject:
	}
	return fmt.Sprintf("%s(%s -> %s)", c.Data.Kind(), orBlank(old), orBlank(next))
}

func orBlank(s string) string {
	if s == "" {
		return blank
	}
	return s
}
