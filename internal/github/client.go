package github

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/ghtrack/internal/debug"
	"github.com/steveyegge/ghtrack/internal/fields"
	"github.com/steveyegge/ghtrack/internal/types"
)

// Client provides typed project queries and mutations over a Transport.
type Client struct {
	Transport Transport
	Project   Project
	PageSize  int          // items per listing page (default: MaxPageSize)
	Log       *slog.Logger // optional, defaults to debug.Logger()
}

// NewClient creates a client for project p.
func NewClient(t Transport, p Project) *Client {
	if p.OwnerType == "" {
		p.OwnerType = Organization
	}
	return &Client{
		Transport: t,
		Project:   p,
		PageSize:  MaxPageSize,
	}
}

// WithPageSize returns a new client listing size items per page.
func (c *Client) WithPageSize(size int) *Client {
	if size <= 0 || size > MaxPageSize {
		size = MaxPageSize
	}
	return &Client{Transport: c.Transport, Project: c.Project, PageSize: size, Log: c.Log}
}

// WithLogger returns a new client logging through log.
func (c *Client) WithLogger(log *slog.Logger) *Client {
	return &Client{Transport: c.Transport, Project: c.Project, PageSize: c.PageSize, Log: log}
}

func (c *Client) logger() *slog.Logger {
	if c.Log == nil {
		return debug.Logger()
	}
	return c.Log
}

func (c *Client) ownerVars() map[string]any {
	return map[string]any{"login": c.Project.Owner, "number": c.Project.Number}
}

// ProjectItemIDs fetches one page of project item ids starting after
// cursor. An empty cursor starts at the beginning.
func (c *Client) ProjectItemIDs(ctx context.Context, cursor string) (IDPage, error) {
	vars := c.ownerVars()
	vars["first"] = c.PageSize
	if cursor != "" {
		vars["after"] = cursor
	}
	var resp projectItemsResponse
	if err := c.Transport.Do(ctx, withOwner(projectItemIDsQuery, c.Project.OwnerType), vars, &resp); err != nil {
		return IDPage{}, fmt.Errorf("list project items: %w", err)
	}
	if resp.Owner == nil || resp.Owner.ProjectV2 == nil || resp.Owner.ProjectV2.Items == nil {
		return IDPage{}, unexpected("project %s/%d not found", c.Project.Owner, c.Project.Number)
	}
	items := resp.Owner.ProjectV2.Items
	next, more, err := items.PageInfo.next()
	if err != nil {
		return IDPage{}, err
	}
	page := IDPage{TotalCount: items.TotalCount, EndCursor: next, HasNextPage: more}
	for _, n := range items.Nodes {
		page.IDs = append(page.IDs, types.ProjectItemID(n.ID))
	}
	return page, nil
}

// Fields fetches the project's custom-field catalog. Fields are matched
// by name; fields the project lacks stay empty.
func (c *Client) Fields(ctx context.Context) (*fields.Fields, error) {
	var resp fieldsResponse
	if err := c.Transport.Do(ctx, withOwner(fieldsQuery, c.Project.OwnerType), c.ownerVars(), &resp); err != nil {
		return nil, fmt.Errorf("fetch fields: %w", err)
	}
	if resp.Owner == nil || resp.Owner.ProjectV2 == nil {
		return nil, unexpected("project %s/%d not found", c.Project.Owner, c.Project.Number)
	}
	project := resp.Owner.ProjectV2
	out := &fields.Fields{ProjectID: types.ProjectID(project.ID)}
	for i := range project.Fields.Nodes {
		f, ok := project.Fields.Nodes[i].toField()
		if !ok {
			continue
		}
		if slot := out.Field(types.ProjectField(f.Name)); slot != nil {
			*slot = f
		}
	}
	return out, nil
}

// Items hydrates the given project items. Items whose sub-issue or
// tracked-issue lists were truncated are completed with follow-up
// requests, one sequential chain per item; items are completed
// concurrently. The result keeps the order of ids; items GitHub does not
// return (deleted or inaccessible) are skipped.
func (c *Client) Items(ctx context.Context, ids []types.ProjectItemID) ([]types.WorkItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var resp itemsResponse
	if err := c.Transport.Do(ctx, itemsQuery, map[string]any{"ids": ids}, &resp); err != nil {
		return nil, fmt.Errorf("fetch project items: %w", err)
	}

	items := make([]types.WorkItem, 0, len(resp.Nodes))
	g, gctx := errgroup.WithContext(ctx)
	for _, node := range resp.Nodes {
		if node == nil || node.Content == nil {
			c.logger().Debug("skipping project item without content")
			continue
		}
		item, subCursor, trackedCursor, err := node.toWorkItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if subCursor == "" && trackedCursor == "" {
			continue
		}
		is := items[len(items)-1].Data.(*types.Issue)
		id := item.ID
		g.Go(func() error {
			if subCursor != "" {
				more, err := c.remaining(gctx, subIssuesQuery, id, subCursor)
				if err != nil {
					return fmt.Errorf("sub-issues of %s: %w", id, err)
				}
				is.SubIssues = append(is.SubIssues, more...)
			}
			if trackedCursor != "" {
				more, err := c.remaining(gctx, trackedIssuesQuery, id, trackedCursor)
				if err != nil {
					return fmt.Errorf("tracked issues of %s: %w", id, err)
				}
				tracked, _ := is.TrackedIssues.Get()
				is.TrackedIssues = types.Loaded(append(tracked, more...))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

// remaining pages through an issue connection starting after cursor.
func (c *Client) remaining(ctx context.Context, query string, id types.WorkItemID, cursor string) ([]types.WorkItemID, error) {
	var out []types.WorkItemID
	for cursor != "" {
		var resp nodeConnectionResponse
		vars := map[string]any{"id": id, "first": MaxPageSize, "after": cursor}
		if err := c.Transport.Do(ctx, query, vars, &resp); err != nil {
			return nil, err
		}
		if resp.Node == nil || resp.Node.Connection == nil {
			return nil, unexpected("missing data for %s", id)
		}
		out = append(out, resp.Node.Connection.ids()...)
		next, _, err := resp.Node.Connection.PageInfo.next()
		if err != nil {
			return nil, err
		}
		cursor = next
	}
	return out, nil
}

// RepoIssueTypes fetches the issue types available in owner/name.
func (c *Client) RepoIssueTypes(ctx context.Context, owner, name string) (*fields.IssueTypes, error) {
	var resp repoIssueTypesResponse
	if err := c.Transport.Do(ctx, repoIssueTypesQuery, map[string]any{"owner": owner, "name": name}, &resp); err != nil {
		return nil, fmt.Errorf("fetch issue types: %w", err)
	}
	if resp.Repository == nil {
		return nil, unexpected("repository %s/%s not found", owner, name)
	}
	var ids []types.IssueTypeID
	var names []string
	for _, n := range resp.Repository.IssueTypes.Nodes {
		ids = append(ids, types.IssueTypeID(n.ID))
		names = append(names, n.Name)
	}
	return fields.NewIssueTypes(ids, names), nil
}
