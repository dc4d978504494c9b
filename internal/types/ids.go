// Package types defines the work item model cached by ghtrack.
package types

// WorkItemID identifies the content behind a project item (issue, pull
// request or draft issue). It is a GraphQL node id.
type WorkItemID string

// ProjectItemID identifies the membership row of a work item inside a
// project. It is never interchangeable with WorkItemID.
type ProjectItemID string

// FieldID identifies a project custom field.
type FieldID string

// FieldOptionID identifies a single-select option or an iteration of a
// custom field. The empty value means "no option".
type FieldOptionID string

// IssueTypeID identifies a repository issue type.
type IssueTypeID string

// ProjectID identifies a project (v2).
type ProjectID string
