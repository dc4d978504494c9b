package github

import (
	"time"

	"github.com/steveyegge/ghtrack/internal/fields"
	"github.com/steveyegge/ghtrack/internal/types"
)

// OwnerType is the kind of account that owns a project.
type OwnerType string

const (
	Organization OwnerType = "organization"
	User         OwnerType = "user"
)

// Project identifies a project (v2) by owner and number.
type Project struct {
	Owner     string
	OwnerType OwnerType
	Number    int
}

// IDPage is one page of the project item listing.
type IDPage struct {
	IDs         []types.ProjectItemID
	TotalCount  int
	EndCursor   string
	HasNextPage bool
}

type pageInfo struct {
	HasNextPage bool    `json:"hasNextPage"`
	EndCursor   *string `json:"endCursor"`
}

// next returns the cursor of the following page, or an error when GitHub
// reports more pages without a cursor.
func (p pageInfo) next() (string, bool, error) {
	if !p.HasNextPage {
		return "", false, nil
	}
	if p.EndCursor == nil || *p.EndCursor == "" {
		return "", false, unexpected("has next page, but end cursor is missing")
	}
	return *p.EndCursor, true, nil
}

type idNode struct {
	ID string `json:"id"`
}

type connection struct {
	TotalCount int      `json:"totalCount"`
	PageInfo   pageInfo `json:"pageInfo"`
	Nodes      []idNode `json:"nodes"`
}

func (c *connection) ids() []types.WorkItemID {
	out := make([]types.WorkItemID, 0, len(c.Nodes))
	for _, n := range c.Nodes {
		if n.ID != "" {
			out = append(out, types.WorkItemID(n.ID))
		}
	}
	return out
}

type projectItemsResponse struct {
	Owner *struct {
		ProjectV2 *struct {
			Items *struct {
				TotalCount int      `json:"totalCount"`
				PageInfo   pageInfo `json:"pageInfo"`
				Nodes      []idNode `json:"nodes"`
			} `json:"items"`
		} `json:"projectV2"`
	} `json:"owner"`
}

type iterationNode struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	StartDate string `json:"startDate"`
	Duration  int    `json:"duration"`
}

type fieldNode struct {
	Typename string `json:"__typename"`
	ID       string `json:"id"`
	Name     string `json:"name"`
	Options  []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"options"`
	Configuration *struct {
		Iterations          []iterationNode `json:"iterations"`
		CompletedIterations []iterationNode `json:"completedIterations"`
	} `json:"configuration"`
}

type fieldsResponse struct {
	Owner *struct {
		ProjectV2 *struct {
			ID     string `json:"id"`
			Fields struct {
				Nodes []fieldNode `json:"nodes"`
			} `json:"fields"`
		} `json:"projectV2"`
	} `json:"owner"`
}

// toField converts a catalog node. Iteration options are the current and
// completed iterations sorted by title.
func (n *fieldNode) toField() (fields.Field, bool) {
	switch n.Typename {
	case "ProjectV2SingleSelectField":
		f := fields.Field{ID: types.FieldID(n.ID), Name: n.Name, Type: fields.SingleSelect}
		for _, o := range n.Options {
			f.Options = append(f.Options, fields.Option{ID: types.FieldOptionID(o.ID), Name: o.Name})
		}
		return f, true
	case "ProjectV2IterationField":
		f := fields.Field{ID: types.FieldID(n.ID), Name: n.Name, Type: fields.Iteration}
		if n.Configuration != nil {
			for _, it := range append(n.Configuration.Iterations, n.Configuration.CompletedIterations...) {
				f.Options = append(f.Options, fields.Option{
					ID:        types.FieldOptionID(it.ID),
					Name:      it.Title,
					StartDate: it.StartDate,
					Duration:  it.Duration,
				})
			}
		}
		f.SortOptionsByName()
		return f, true
	}
	return fields.Field{}, false
}

type fieldValueNode struct {
	Typename    string `json:"__typename"`
	OptionID    string `json:"optionId"`
	IterationID string `json:"iterationId"`
}

// value maps a field value; a missing value is loaded and blank.
func (v *fieldValueNode) value() types.FieldValue {
	if v == nil {
		return types.OptionOf("")
	}
	if v.OptionID != "" {
		return types.OptionOf(types.FieldOptionID(v.OptionID))
	}
	return types.OptionOf(types.FieldOptionID(v.IterationID))
}

type contentNode struct {
	Typename     string    `json:"__typename"`
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	UpdatedAt    time.Time `json:"updatedAt"`
	ResourcePath string    `json:"resourcePath"`
	Repository   *struct {
		NameWithOwner string `json:"nameWithOwner"`
	} `json:"repository"`
	State     string `json:"state"`
	IssueType *struct {
		Name string `json:"name"`
	} `json:"issueType"`
	Parent        *idNode     `json:"parent"`
	SubIssues     *connection `json:"subIssues"`
	TrackedIssues *connection `json:"trackedIssues"`
	Assignees     *struct {
		Nodes []struct {
			Login string `json:"login"`
		} `json:"nodes"`
	} `json:"assignees"`
}

func (c *contentNode) assignees() []string {
	if c.Assignees == nil {
		return nil
	}
	var out []string
	for _, n := range c.Assignees.Nodes {
		out = append(out, n.Login)
	}
	return out
}

type projectItemNode struct {
	ID               string          `json:"id"`
	DatabaseID       *int64          `json:"databaseId"`
	UpdatedAt        time.Time       `json:"updatedAt"`
	Status           *fieldValueNode `json:"status"`
	Iteration        *fieldValueNode `json:"iteration"`
	Blocked          *fieldValueNode `json:"blocked"`
	Kind             *fieldValueNode `json:"kind"`
	Epic             *fieldValueNode `json:"epic"`
	Workstream       *fieldValueNode `json:"workstream"`
	Estimate         *fieldValueNode `json:"estimate"`
	Priority         *fieldValueNode `json:"priority"`
	ProjectMilestone *fieldValueNode `json:"projectMilestone"`
	Content          *contentNode    `json:"content"`
}

type itemsResponse struct {
	Nodes []*projectItemNode `json:"nodes"`
}

// toWorkItem maps a hydrated project item. Overflowing sub-issue and
// tracked-issue lists are returned so the caller can page through them.
func (n *projectItemNode) toWorkItem() (item types.WorkItem, subCursor, trackedCursor string, err error) {
	c := n.Content
	item = types.WorkItem{
		ID:           types.WorkItemID(c.ID),
		Title:        c.Title,
		UpdatedAt:    c.UpdatedAt,
		ResourcePath: c.ResourcePath,
		ProjectItem: types.ProjectItem{
			ID:               types.ProjectItemID(n.ID),
			DatabaseID:       n.DatabaseID,
			UpdatedAt:        n.UpdatedAt,
			Status:           n.Status.value(),
			Iteration:        n.Iteration.value(),
			Blocked:          n.Blocked.value(),
			Kind:             n.Kind.value(),
			Epic:             n.Epic.value(),
			Workstream:       n.Workstream.value(),
			Estimate:         n.Estimate.value(),
			Priority:         n.Priority.value(),
			ProjectMilestone: n.ProjectMilestone.value(),
		},
	}
	if c.Repository != nil {
		item.RepoNameWithOwner = c.Repository.NameWithOwner
	}

	switch c.Typename {
	case "DraftIssue":
		item.Data = &types.DraftIssue{}
	case "PullRequest":
		item.Data = &types.PullRequest{
			State:     types.Loaded(types.PullRequestState(c.State)),
			Assignees: c.assignees(),
		}
	case "Issue":
		is := &types.Issue{
			State:         types.Loaded(types.IssueState(c.State)),
			IssueType:     types.Loaded(""),
			TrackedIssues: types.NotLoaded[[]types.WorkItemID](),
			Assignees:     c.assignees(),
		}
		if c.IssueType != nil {
			is.IssueType = types.Loaded(c.IssueType.Name)
		}
		if c.Parent != nil {
			is.ParentID = types.WorkItemID(c.Parent.ID)
		}
		if c.SubIssues != nil {
			is.SubIssues = c.SubIssues.ids()
			if subCursor, _, err = c.SubIssues.PageInfo.next(); err != nil {
				return item, "", "", err
			}
		}
		if c.TrackedIssues != nil {
			is.TrackedIssues = types.Loaded(c.TrackedIssues.ids())
			if trackedCursor, _, err = c.TrackedIssues.PageInfo.next(); err != nil {
				return item, "", "", err
			}
		}
		item.Data = is
	default:
		return item, "", "", unexpected("unknown content type %q for project item %s", c.Typename, n.ID)
	}
	return item, subCursor, trackedCursor, nil
}

type nodeConnectionResponse struct {
	Node *struct {
		Connection *connection `json:"connection"`
	} `json:"node"`
}

type repoIssueTypesResponse struct {
	Repository *struct {
		IssueTypes struct {
			Nodes []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"nodes"`
		} `json:"issueTypes"`
	} `json:"repository"`
}

type addToProjectResponse struct {
	AddProjectV2ItemByID *struct {
		Item *idNode `json:"item"`
	} `json:"addProjectV2ItemById"`
}
