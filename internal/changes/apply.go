package changes

import (
	"slices"

	"github.com/steveyegge/ghtrack/internal/types"
	"github.com/steveyegge/ghtrack/internal/workitems"
)

// Apply performs the pending changes on items in memory and returns the
// snapshot each touched item had before its first modification. Restoring
// the snapshots with items.Restore undoes the apply.
//
// AddToProject changes are skipped: the item is not in the tree yet.
func (c *Changes) Apply(items *workitems.WorkItems) map[types.WorkItemID]types.WorkItem {
	originals := make(map[types.WorkItemID]types.WorkItem)
	remember := func(item *types.WorkItem) {
		if _, ok := originals[item.ID]; !ok {
			originals[item.ID] = item.Clone()
		}
	}
	log := c.logger()

	for change := range c.All() {
		if _, ok := change.Data.(AddToProject); ok {
			continue
		}
		item, ok := items.GetMut(change.WorkItemID)
		if !ok {
			log.Warn("change for missing work item", "work_item", change.WorkItemID, "change", change.String())
			continue
		}

		switch d := change.Data.(type) {
		case SetField:
			v := item.ProjectItem.Field(d.Field)
			if v == nil {
				log.Warn("change for unknown field", "work_item", item.ID, "field", d.Field)
				continue
			}
			remember(item)
			*v = types.OptionOf(d.Value)

		case SetIssueType:
			is, ok := item.Issue()
			if !ok {
				log.Warn("issue type change for non-issue", "work_item", item.Describe())
				continue
			}
			remember(item)
			is.IssueType = types.Loaded(d.Name)

		case SetParent:
			is, ok := item.Issue()
			if !ok {
				log.Warn("parent change for non-issue", "work_item", item.Describe())
				continue
			}
			remember(item)
			if is.ParentID != "" {
				if old, ok := items.GetMut(is.ParentID); ok {
					remember(old)
					if oldIssue, ok := old.Issue(); ok {
						oldIssue.SubIssues = slices.DeleteFunc(oldIssue.SubIssues, func(id types.WorkItemID) bool {
							return id == item.ID
						})
					}
				} else {
					log.Warn("old parent not found", "work_item", item.Describe(), "parent", is.ParentID)
				}
			}
			is.ParentID = d.Parent
			parent, ok := items.GetMut(d.Parent)
			if !ok {
				log.Warn("new parent not found", "work_item", item.Describe(), "parent", d.Parent)
				continue
			}
			parentIssue, ok := parent.Issue()
			if !ok {
				log.Warn("new parent is not an issue", "work_item", item.Describe(), "parent", parent.Describe())
				continue
			}
			remember(parent)
			parentIssue.SubIssues = append(parentIssue.SubIssues, item.ID)
		}
	}
	return originals
}
