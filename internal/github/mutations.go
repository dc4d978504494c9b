package github

import (
	"context"
	"fmt"

	"github.com/steveyegge/ghtrack/internal/fields"
	"github.com/steveyegge/ghtrack/internal/types"
)

// AddSubIssue makes subIssue a sub-issue of issue. replaceParent must be
// set when subIssue already has a parent.
func (c *Client) AddSubIssue(ctx context.Context, issue, subIssue types.WorkItemID, replaceParent bool) error {
	vars := map[string]any{"issueId": issue, "subIssueId": subIssue, "replaceParent": replaceParent}
	if err := c.Transport.Do(ctx, addSubIssueMutation, vars, nil); err != nil {
		return fmt.Errorf("add sub-issue %s to %s: %w", subIssue, issue, err)
	}
	return nil
}

// AddToProject adds content to project and returns the new project item id.
func (c *Client) AddToProject(ctx context.Context, project types.ProjectID, content types.WorkItemID) (types.ProjectItemID, error) {
	var resp addToProjectResponse
	vars := map[string]any{"projectId": project, "contentId": content}
	if err := c.Transport.Do(ctx, addToProjectMutation, vars, &resp); err != nil {
		return "", fmt.Errorf("add %s to project: %w", content, err)
	}
	if resp.AddProjectV2ItemByID == nil || resp.AddProjectV2ItemByID.Item == nil || resp.AddProjectV2ItemByID.Item.ID == "" {
		return "", unexpected("no project item returned for %s", content)
	}
	return types.ProjectItemID(resp.AddProjectV2ItemByID.Item.ID), nil
}

// SetFieldValue sets a single-select or iteration field of a project item.
func (c *Client) SetFieldValue(ctx context.Context, project types.ProjectID, item types.ProjectItemID, field *fields.Field, value types.FieldOptionID) error {
	var v map[string]any
	switch field.Type {
	case fields.Iteration:
		v = map[string]any{"iterationId": value}
	default:
		v = map[string]any{"singleSelectOptionId": value}
	}
	vars := map[string]any{"projectId": project, "itemId": item, "fieldId": field.ID, "value": v}
	if err := c.Transport.Do(ctx, setFieldValueMutation, vars, nil); err != nil {
		return fmt.Errorf("set %s on %s: %w", field.Name, item, err)
	}
	return nil
}

// ClearFieldValue blanks a field of a project item.
func (c *Client) ClearFieldValue(ctx context.Context, project types.ProjectID, item types.ProjectItemID, field types.FieldID) error {
	vars := map[string]any{"projectId": project, "itemId": item, "fieldId": field}
	if err := c.Transport.Do(ctx, clearFieldValueMutation, vars, nil); err != nil {
		return fmt.Errorf("clear %s on %s: %w", field, item, err)
	}
	return nil
}

// SetIssueType sets the issue type of issue. An empty id removes it.
func (c *Client) SetIssueType(ctx context.Context, issue types.WorkItemID, issueType types.IssueTypeID) error {
	var id any
	if issueType != "" {
		id = issueType
	}
	vars := map[string]any{"issueId": issue, "issueTypeId": id}
	if err := c.Transport.Do(ctx, setIssueTypeMutation, vars, nil); err != nil {
		return fmt.Errorf("set issue type of %s: %w", issue, err)
	}
	return nil
}
