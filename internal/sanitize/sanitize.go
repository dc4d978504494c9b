// Package sanitize derives corrective changes from the state of the work
// item tree: closed items get the closed status, bugs get the bug issue
// type and epics flow from parents to children.
package sanitize

import (
	"fmt"
	"log/slog"

	"github.com/steveyegge/ghtrack/internal/changes"
	"github.com/steveyegge/ghtrack/internal/debug"
	"github.com/steveyegge/ghtrack/internal/fields"
	"github.com/steveyegge/ghtrack/internal/types"
	"github.com/steveyegge/ghtrack/internal/workitems"
)

// Sanitize returns the changes that bring items in line with rules. It
// only reads items. Values that were never loaded are left alone.
//
// Epics are inherited down the sub-issue tree from each root. A child with
// its own conflicting epic is never changed; a warning is logged instead.
// A sub-issue missing from items yields an AddToProject change.
func Sanitize(items *workitems.WorkItems, f *fields.Fields, rules Rules, log *slog.Logger) *changes.Changes {
	if log == nil {
		log = debug.Logger()
	}
	s := &sanitizer{
		items: items,
		f:     f,
		rules: rules,
		log:   log,
		out:   changes.New(log),
	}
	for item := range items.All() {
		s.closed(item)
		s.bug(item)
		s.milestone(item)
	}
	for _, root := range items.Roots() {
		s.walk(root, "", map[types.WorkItemID]bool{})
	}
	return s.out
}

type sanitizer struct {
	items *workitems.WorkItems
	f     *fields.Fields
	rules Rules
	log   *slog.Logger
	out   *changes.Changes
}

func (s *sanitizer) closed(item *types.WorkItem) {
	closed, ok := item.IsClosed().Get()
	if !ok || !closed {
		return
	}
	status, ok := item.ProjectItem.Status.Get()
	if !ok {
		return
	}
	closedID, ok := s.f.Status.OptionID(s.rules.ClosedStatus)
	if !ok {
		s.log.Debug("status field has no closed option", "option", s.rules.ClosedStatus)
		return
	}
	if status != closedID {
		s.out.Add(changes.Field(item.ID, types.FieldStatus, closedID))
	}
}

func (s *sanitizer) bug(item *types.WorkItem) {
	is, ok := item.Issue()
	if !ok {
		return
	}
	if !item.ProjectItem.Kind.IsLoaded() || s.f.ValueName(types.FieldKind, item.ProjectItem.Kind) != s.rules.BugKind {
		return
	}
	issueType, ok := is.IssueType.Get()
	if ok && issueType != s.rules.BugIssueType {
		s.out.Add(changes.IssueType(item.ID, s.rules.BugIssueType))
	}
}

func (s *sanitizer) milestone(item *types.WorkItem) {
	if len(s.rules.MilestoneEpics) == 0 {
		return
	}
	epic, ok := item.ProjectItem.Epic.Get()
	if !ok || epic != "" {
		return
	}
	name := s.f.ValueName(types.FieldProjectMilestone, item.ProjectItem.ProjectMilestone)
	epicName, ok := s.rules.MilestoneEpics[name]
	if !ok || name == "" {
		return
	}
	epicID, ok := s.f.Epic.OptionID(epicName)
	if !ok {
		s.log.Warn("milestone rule names unknown epic", "milestone", name, "epic", epicName)
		return
	}
	s.out.Add(changes.Field(item.ID, types.FieldEpic, epicID))
}

// epic returns the item's epic including any change emitted by the flat
// pass.
func (s *sanitizer) epic(item *types.WorkItem) (types.FieldOptionID, bool) {
	if change, ok := s.out.Get(changes.Key{WorkItemID: item.ID, Kind: changes.KindEpic}); ok {
		return change.Data.(changes.SetField).Value, true
	}
	return item.ProjectItem.Epic.Get()
}

func (s *sanitizer) walk(id types.WorkItemID, inherited types.FieldOptionID, path map[types.WorkItemID]bool) {
	item, ok := s.items.Get(id)
	if !ok {
		s.out.Add(changes.Add(id))
		return
	}
	if path[id] {
		return
	}
	path[id] = true
	defer delete(path, id)

	own, loaded := s.epic(item)
	if loaded && inherited != "" && own != inherited {
		if own != "" {
			s.log.Warn(fmt.Sprintf("%s - epic is '%s', should be '%s' - but not changing non-blank value",
				item.Describe(), s.optionName(own), s.optionName(inherited)))
		} else {
			s.out.Add(changes.Field(item.ID, types.FieldEpic, inherited))
		}
	}

	next := inherited
	if next == "" {
		next = own
	}
	if is, ok := item.Issue(); ok {
		for _, child := range is.SubIssues {
			s.walk(child, next, path)
		}
	}
}

func (s *sanitizer) optionName(id types.FieldOptionID) string {
	if name, ok := s.f.Epic.OptionName(id); ok {
		return name
	}
	return string(id)
}

// ConvertTrackedToSubIssues returns a SetParent change for every tracked
// issue of parent that is known, is an issue and has no parent yet.
func ConvertTrackedToSubIssues(items *workitems.WorkItems, parent types.WorkItemID, log *slog.Logger) *changes.Changes {
	out := changes.New(log)
	item, ok := items.Get(parent)
	if !ok {
		return out
	}
	is, ok := item.Issue()
	if !ok {
		return out
	}
	tracked, _ := is.TrackedIssues.Get()
	for _, id := range tracked {
		child, ok := items.Get(id)
		if !ok {
			continue
		}
		childIssue, ok := child.Issue()
		if !ok || childIssue.ParentID != "" {
			continue
		}
		out.Add(changes.Parent(id, parent))
	}
	return out
}
