// Package classify decides how much of the displayed hierarchy must be
// recomputed after a work item is replaced by a freshly fetched copy.
package classify

import (
	"slices"

	"github.com/steveyegge/ghtrack/internal/types"
)

// UpdateType is the severity of an update. Values are totally ordered.
type UpdateType int

const (
	// NoUpdate means nothing observable changed.
	NoUpdate UpdateType = iota
	// SimpleChange means the item's own node can be patched in place.
	SimpleChange
	// ChangesHierarchy means the displayed tree must be rebuilt.
	ChangesHierarchy
)

func (u UpdateType) String() string {
	switch u {
	case NoUpdate:
		return "no_update"
	case SimpleChange:
		return "simple_change"
	case ChangesHierarchy:
		return "changes_hierarchy"
	}
	return "unknown"
}

// Max returns the most severe of the given update types.
func Max(us ...UpdateType) UpdateType {
	out := NoUpdate
	for _, u := range us {
		if u > out {
			out = u
		}
	}
	return out
}

// Field tags one changed attribute of a work item.
type Field string

const (
	ID                Field = "id"
	Title             Field = "title"
	UpdatedAt         Field = "updated_at"
	ResourcePath      Field = "resource_path"
	RepoNameWithOwner Field = "repo_name_with_owner"
	Data              Field = "data" // variant changed

	IssueParentID      Field = "issue.parent_id"
	IssueType          Field = "issue.issue_type"
	IssueState         Field = "issue.state"
	IssueSubIssues     Field = "issue.sub_issues"
	IssueTrackedIssues Field = "issue.tracked_issues"
	IssueAssignees     Field = "issue.assignees"

	PullRequestState     Field = "pull_request.state"
	PullRequestAssignees Field = "pull_request.assignees"

	ProjectItemID         Field = "project_item.id"
	ProjectItemDatabaseID Field = "project_item.database_id"
	ProjectItemUpdatedAt  Field = "project_item.updated_at"
	Status                Field = "project_item.status"
	Iteration             Field = "project_item.iteration"
	Blocked               Field = "project_item.blocked"
	Kind                  Field = "project_item.kind"
	Epic                  Field = "project_item.epic"
	Workstream            Field = "project_item.workstream"
	Estimate              Field = "project_item.estimate"
	Priority              Field = "project_item.priority"
	ProjectMilestone      Field = "project_item.project_milestone"
)

// Severity returns the update type implied by a change to f.
func (f Field) Severity() UpdateType {
	switch f {
	case RepoNameWithOwner, Data,
		IssueParentID, IssueType, IssueState, IssueSubIssues,
		PullRequestState,
		Status, Blocked, Kind, Epic, Workstream, ProjectMilestone:
		return ChangesHierarchy
	case ID, Title, UpdatedAt, ResourcePath,
		IssueTrackedIssues, IssueAssignees, PullRequestAssignees,
		ProjectItemID, ProjectItemDatabaseID, ProjectItemUpdatedAt,
		Iteration, Estimate, Priority:
		return SimpleChange
	}
	return ChangesHierarchy
}

// Classify returns the maximum severity over the fields that differ
// between old and new. A nil old item is a new entity and always
// ChangesHierarchy.
func Classify(old, new *types.WorkItem) UpdateType {
	if old == nil {
		return ChangesHierarchy
	}
	out := NoUpdate
	for _, f := range Diff(old, new) {
		out = Max(out, f.Severity())
	}
	return out
}

// Diff returns the tags of the fields that differ between a and b.
func Diff(a, b *types.WorkItem) []Field {
	var d []Field
	add := func(changed bool, f Field) {
		if changed {
			d = append(d, f)
		}
	}
	add(a.ID != b.ID, ID)
	add(a.Title != b.Title, Title)
	add(!a.UpdatedAt.Equal(b.UpdatedAt), UpdatedAt)
	add(a.ResourcePath != b.ResourcePath, ResourcePath)
	add(a.RepoNameWithOwner != b.RepoNameWithOwner, RepoNameWithOwner)

	switch ad := a.Data.(type) {
	case *types.Issue:
		bd, ok := b.Data.(*types.Issue)
		if !ok {
			d = append(d, Data)
			break
		}
		d = append(d, diffIssue(ad, bd)...)
	case *types.PullRequest:
		bd, ok := b.Data.(*types.PullRequest)
		if !ok {
			d = append(d, Data)
			break
		}
		add(ad.State != bd.State, PullRequestState)
		add(!slices.Equal(ad.Assignees, bd.Assignees), PullRequestAssignees)
	case *types.DraftIssue:
		if _, ok := b.Data.(*types.DraftIssue); !ok {
			d = append(d, Data)
		}
	default:
		add(b.Data != nil, Data)
	}

	return append(d, diffProjectItem(&a.ProjectItem, &b.ProjectItem)...)
}

func diffIssue(a, b *types.Issue) []Field {
	var d []Field
	if a.ParentID != b.ParentID {
		d = append(d, IssueParentID)
	}
	if a.IssueType != b.IssueType {
		d = append(d, IssueType)
	}
	if a.State != b.State {
		d = append(d, IssueState)
	}
	if !slices.Equal(a.SubIssues, b.SubIssues) {
		d = append(d, IssueSubIssues)
	}
	at, aok := a.TrackedIssues.Get()
	bt, bok := b.TrackedIssues.Get()
	if aok != bok || !slices.Equal(at, bt) {
		d = append(d, IssueTrackedIssues)
	}
	if !slices.Equal(a.Assignees, b.Assignees) {
		d = append(d, IssueAssignees)
	}
	return d
}

func diffProjectItem(a, b *types.ProjectItem) []Field {
	var d []Field
	if a.ID != b.ID {
		d = append(d, ProjectItemID)
	}
	if !equalPtr(a.DatabaseID, b.DatabaseID) {
		d = append(d, ProjectItemDatabaseID)
	}
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		d = append(d, ProjectItemUpdatedAt)
	}
	for _, fv := range []struct {
		a, b types.FieldValue
		tag  Field
	}{
		{a.Status, b.Status, Status},
		{a.Iteration, b.Iteration, Iteration},
		{a.Blocked, b.Blocked, Blocked},
		{a.Kind, b.Kind, Kind},
		{a.Epic, b.Epic, Epic},
		{a.Workstream, b.Workstream, Workstream},
		{a.Estimate, b.Estimate, Estimate},
		{a.Priority, b.Priority, Priority},
		{a.ProjectMilestone, b.ProjectMilestone, ProjectMilestone},
	} {
		if fv.a != fv.b {
			d = append(d, fv.tag)
		}
	}
	return d
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
