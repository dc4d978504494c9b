package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// WorkItem is a cached issue, pull request or draft issue together with its
// project custom-field values.
type WorkItem struct {
	ID                WorkItemID   `json:"id"`
	Title             string       `json:"title"`
	UpdatedAt         time.Time    `json:"updated_at"`
	ResourcePath      string       `json:"resource_path,omitempty"`        // e.g. /owner/repo/issues/12
	RepoNameWithOwner string       `json:"repo_name_with_owner,omitempty"` // e.g. owner/repo
	Data              WorkItemData `json:"-"`
	ProjectItem       ProjectItem  `json:"project_item"`
}

// DataKind names a WorkItemData variant.
type DataKind string

const (
	DataDraftIssue  DataKind = "draft_issue"
	DataIssue       DataKind = "issue"
	DataPullRequest DataKind = "pull_request"
)

// WorkItemData is the content-specific part of a work item. It is a closed
// set: *DraftIssue, *Issue or *PullRequest.
type WorkItemData interface {
	Kind() DataKind
	isWorkItemData()
}

// DraftIssue is a project-only item with no repository.
type DraftIssue struct{}

// IssueState is the state of an issue.
type IssueState string

const (
	IssueOpen   IssueState = "OPEN"
	IssueClosed IssueState = "CLOSED"
)

// Issue is a repository issue.
type Issue struct {
	ParentID      WorkItemID             `json:"parent_id,omitempty"`
	IssueType     Loadable[string]       `json:"issue_type"` // loaded "" means no type
	State         Loadable[IssueState]   `json:"state"`
	SubIssues     []WorkItemID           `json:"sub_issues,omitempty"` // ordered
	TrackedIssues Loadable[[]WorkItemID] `json:"tracked_issues"`
	Assignees     []string               `json:"assignees,omitempty"`
}

// PullRequestState is the state of a pull request.
type PullRequestState string

const (
	PullRequestOpen   PullRequestState = "OPEN"
	PullRequestClosed PullRequestState = "CLOSED"
	PullRequestMerged PullRequestState = "MERGED"
)

// PullRequest is a repository pull request.
type PullRequest struct {
	State     Loadable[PullRequestState] `json:"state"`
	Assignees []string                   `json:"assignees,omitempty"`
}

func (*DraftIssue) Kind() DataKind  { return DataDraftIssue }
func (*Issue) Kind() DataKind       { return DataIssue }
func (*PullRequest) Kind() DataKind { return DataPullRequest }

func (*DraftIssue) isWorkItemData()  {}
func (*Issue) isWorkItemData()       {}
func (*PullRequest) isWorkItemData() {}

// Issue returns the issue data if the item is an issue.
func (w *WorkItem) Issue() (*Issue, bool) {
	is, ok := w.Data.(*Issue)
	return is, ok
}

// IsClosed reports whether the item is closed. Draft issues are never
// closed; pull requests count as closed when merged.
func (w *WorkItem) IsClosed() Loadable[bool] {
	switch d := w.Data.(type) {
	case *Issue:
		return MapLoadable(d.State, func(s IssueState) bool { return s == IssueClosed })
	case *PullRequest:
		return MapLoadable(d.State, func(s PullRequestState) bool {
			return s == PullRequestMerged || s == PullRequestClosed
		})
	default:
		return Loaded(false)
	}
}

// Describe returns a human readable reference to the item: its URL when
// known, its id otherwise.
func (w *WorkItem) Describe() string {
	if w.ResourcePath != "" {
		return "https://github.com" + w.ResourcePath
	}
	return "[" + string(w.ID) + "]"
}

// RepositoryInfo splits RepoNameWithOwner into owner and name.
func (w *WorkItem) RepositoryInfo() (owner, name string, ok bool) {
	owner, name, ok = strings.Cut(w.RepoNameWithOwner, "/")
	if !ok || owner == "" || name == "" {
		return "", "", false
	}
	return owner, name, true
}

// Clone returns a deep copy of the item.
func (w *WorkItem) Clone() WorkItem {
	c := *w
	if w.ProjectItem.DatabaseID != nil {
		id := *w.ProjectItem.DatabaseID
		c.ProjectItem.DatabaseID = &id
	}
	switch d := w.Data.(type) {
	case *Issue:
		is := *d
		is.SubIssues = cloneSlice(d.SubIssues)
		is.Assignees = cloneSlice(d.Assignees)
		is.TrackedIssues = MapLoadable(d.TrackedIssues, cloneSlice[WorkItemID])
		c.Data = &is
	case *PullRequest:
		pr := *d
		pr.Assignees = cloneSlice(d.Assignees)
		c.Data = &pr
	case *DraftIssue:
		c.Data = &DraftIssue{}
	}
	return c
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}

type workItemJSON struct {
	ID                WorkItemID      `json:"id"`
	Title             string          `json:"title"`
	UpdatedAt         time.Time       `json:"updated_at"`
	ResourcePath      string          `json:"resource_path,omitempty"`
	RepoNameWithOwner string          `json:"repo_name_with_owner,omitempty"`
	Type              DataKind        `json:"type"`
	Data              json.RawMessage `json:"data,omitempty"`
	ProjectItem       ProjectItem     `json:"project_item"`
}

// MarshalJSON writes the data variant as a "type" tag plus a "data" body.
func (w WorkItem) MarshalJSON() ([]byte, error) {
	out := workItemJSON{
		ID:                w.ID,
		Title:             w.Title,
		UpdatedAt:         w.UpdatedAt,
		ResourcePath:      w.ResourcePath,
		RepoNameWithOwner: w.RepoNameWithOwner,
		ProjectItem:       w.ProjectItem,
	}
	if w.Data != nil {
		data, err := json.Marshal(w.Data)
		if err != nil {
			return nil, err
		}
		out.Type = w.Data.Kind()
		out.Data = data
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the form written by MarshalJSON.
func (w *WorkItem) UnmarshalJSON(b []byte) error {
	var in workItemJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	var data WorkItemData
	switch in.Type {
	case DataIssue:
		data = &Issue{}
	case DataPullRequest:
		data = &PullRequest{}
	case DataDraftIssue, "":
		data = &DraftIssue{}
	default:
		return fmt.Errorf("work item %s: unknown type %q", in.ID, in.Type)
	}
	if len(in.Data) > 0 {
		if err := json.Unmarshal(in.Data, data); err != nil {
			return fmt.Errorf("work item %s: %w", in.ID, err)
		}
	}
	*w = WorkItem{
		ID:                in.ID,
		Title:             in.Title,
		UpdatedAt:         in.UpdatedAt,
		ResourcePath:      in.ResourcePath,
		RepoNameWithOwner: in.RepoNameWithOwner,
		Data:              data,
		ProjectItem:       in.ProjectItem,
	}
	return nil
}
