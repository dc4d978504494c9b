// Package testutil provides builders for work items and field catalogs used
// across package tests.
package testutil

import (
	"time"

	"github.com/steveyegge/ghtrack/internal/fields"
	"github.com/steveyegge/ghtrack/internal/types"
)

// Option ids of the catalog returned by Fields.
const (
	StatusTodo       types.FieldOptionID = "status-todo"
	StatusInProgress types.FieldOptionID = "status-in-progress"
	StatusClosed     types.FieldOptionID = "status-closed"

	KindBug     types.FieldOptionID = "kind-bug"
	KindFeature types.FieldOptionID = "kind-feature"

	EpicAlpha types.FieldOptionID = "epic-alpha"
	EpicBeta  types.FieldOptionID = "epic-beta"

	MilestoneM1 types.FieldOptionID = "milestone-m1"

	IterationOne types.FieldOptionID = "iteration-1"
	IterationTwo types.FieldOptionID = "iteration-2"
)

// Epoch is the timestamp given to every built item.
var Epoch = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

// Fields returns a small, fully populated field catalog.
func Fields() *fields.Fields {
	single := func(id, name string, opts ...fields.Option) fields.Field {
		return fields.Field{ID: types.FieldID(id), Name: name, Type: fields.SingleSelect, Options: opts}
	}
	opt := func(id types.FieldOptionID, name string) fields.Option {
		return fields.Option{ID: id, Name: name}
	}
	return &fields.Fields{
		ProjectID: "project-1",
		Status:    single("field-status", "Status", opt(StatusTodo, "Todo"), opt(StatusInProgress, "In Progress"), opt(StatusClosed, "Closed")),
		Blocked:   single("field-blocked", "Blocked", opt("blocked-yes", "Yes")),
		Epic:      single("field-epic", "Epic", opt(EpicAlpha, "Alpha"), opt(EpicBeta, "Beta")),
		Iteration: fields.Field{
			ID:   "field-iteration",
			Name: "Iteration",
			Type: fields.Iteration,
			Options: []fields.Option{
				{ID: IterationOne, Name: "Iteration 1", StartDate: "2024-01-01", Duration: 14},
				{ID: IterationTwo, Name: "Iteration 2", StartDate: "2024-01-15", Duration: 14},
			},
		},
		Kind:             single("field-kind", "Kind", opt(KindBug, "Bug"), opt(KindFeature, "Feature")),
		Estimate:         single("field-estimate", "Estimate", opt("estimate-s", "S"), opt("estimate-m", "M")),
		Priority:         single("field-priority", "Priority", opt("priority-p0", "P0"), opt("priority-p1", "P1")),
		Workstream:       single("field-workstream", "Workstream", opt("ws-core", "Core")),
		ProjectMilestone: single("field-milestone", "Project Milestone", opt(MilestoneM1, "M1")),
	}
}

// ItemBuilder builds a WorkItem with every field loaded and blank.
type ItemBuilder struct {
	item types.WorkItem
}

func newBuilder(id string, data types.WorkItemData) *ItemBuilder {
	blank := types.OptionOf("")
	return &ItemBuilder{item: types.WorkItem{
		ID:                types.WorkItemID(id),
		Title:             "Item " + id,
		UpdatedAt:         Epoch,
		RepoNameWithOwner: "acme/widgets",
		Data:              data,
		ProjectItem: types.ProjectItem{
			ID:               types.ProjectItemID("pi-" + id),
			UpdatedAt:        Epoch,
			Status:           blank,
			Iteration:        blank,
			Blocked:          blank,
			Kind:             blank,
			Epic:             blank,
			Workstream:       blank,
			Estimate:         blank,
			Priority:         blank,
			ProjectMilestone: blank,
		},
	}}
}

// Issue starts an open issue with no type, parent or children.
func Issue(id string) *ItemBuilder {
	return newBuilder(id, &types.Issue{
		IssueType:     types.Loaded(""),
		State:         types.Loaded(types.IssueOpen),
		TrackedIssues: types.Loaded[[]types.WorkItemID](nil),
	})
}

// PullRequest starts an open pull request.
func PullRequest(id string) *ItemBuilder {
	return newBuilder(id, &types.PullRequest{State: types.Loaded(types.PullRequestOpen)})
}

// Draft starts a draft issue.
func Draft(id string) *ItemBuilder {
	b := newBuilder(id, &types.DraftIssue{})
	b.item.RepoNameWithOwner = ""
	return b
}

func (b *ItemBuilder) issue() *types.Issue {
	is, ok := b.item.Data.(*types.Issue)
	if !ok {
		panic("testutil: " + string(b.item.ID) + " is not an issue")
	}
	return is
}

// Title sets the title.
func (b *ItemBuilder) Title(t string) *ItemBuilder {
	b.item.Title = t
	return b
}

// Path sets the resource path.
func (b *ItemBuilder) Path(p string) *ItemBuilder {
	b.item.ResourcePath = p
	return b
}

// Closed closes an issue or pull request.
func (b *ItemBuilder) Closed() *ItemBuilder {
	switch d := b.item.Data.(type) {
	case *types.Issue:
		d.State = types.Loaded(types.IssueClosed)
	case *types.PullRequest:
		d.State = types.Loaded(types.PullRequestClosed)
	}
	return b
}

// Merged marks a pull request merged.
func (b *ItemBuilder) Merged() *ItemBuilder {
	if d, ok := b.item.Data.(*types.PullRequest); ok {
		d.State = types.Loaded(types.PullRequestMerged)
	}
	return b
}

// Set sets a custom field value.
func (b *ItemBuilder) Set(f types.ProjectField, id types.FieldOptionID) *ItemBuilder {
	*b.item.ProjectItem.Field(f) = types.OptionOf(id)
	return b
}

// Unloaded marks a custom field as not loaded.
func (b *ItemBuilder) Unloaded(f types.ProjectField) *ItemBuilder {
	*b.item.ProjectItem.Field(f) = types.NotLoaded[types.FieldOptionID]()
	return b
}

// Status sets the Status field.
func (b *ItemBuilder) Status(id types.FieldOptionID) *ItemBuilder {
	return b.Set(types.FieldStatus, id)
}

// Epic sets the Epic field.
func (b *ItemBuilder) Epic(id types.FieldOptionID) *ItemBuilder {
	return b.Set(types.FieldEpic, id)
}

// Kind sets the Kind field.
func (b *ItemBuilder) Kind(id types.FieldOptionID) *ItemBuilder {
	return b.Set(types.FieldKind, id)
}

// IssueType sets the issue type of an issue.
func (b *ItemBuilder) IssueType(name string) *ItemBuilder {
	b.issue().IssueType = types.Loaded(name)
	return b
}

// Parent sets the parent of an issue.
func (b *ItemBuilder) Parent(id string) *ItemBuilder {
	b.issue().ParentID = types.WorkItemID(id)
	return b
}

// SubIssues sets the ordered children of an issue.
func (b *ItemBuilder) SubIssues(ids ...string) *ItemBuilder {
	b.issue().SubIssues = IDs(ids...)
	return b
}

// Tracked sets the tracked issues of an issue.
func (b *ItemBuilder) Tracked(ids ...string) *ItemBuilder {
	b.issue().TrackedIssues = types.Loaded(IDs(ids...))
	return b
}

// Build returns the item.
func (b *ItemBuilder) Build() types.WorkItem {
	return b.item.Clone()
}

// IDs converts strings to work item ids.
func IDs(ids ...string) []types.WorkItemID {
	out := make([]types.WorkItemID, len(ids))
	for i, id := range ids {
		out[i] = types.WorkItemID(id)
	}
	return out
}
