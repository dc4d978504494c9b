// Package fields holds the custom-field catalog of a project: field ids and
// the option tables used to translate between option ids and names.
package fields

import (
	"sort"

	"github.com/steveyegge/ghtrack/internal/types"
)

// FieldType is the data type of a custom field.
type FieldType string

const (
	SingleSelect FieldType = "single_select"
	Iteration    FieldType = "iteration"
)

// Option is one selectable value of a field.
type Option struct {
	ID        types.FieldOptionID `json:"id"`
	Name      string              `json:"name"`
	StartDate string              `json:"start_date,omitempty"` // iterations only, YYYY-MM-DD
	Duration  int                 `json:"duration,omitempty"`   // iterations only, days
}

// Field describes a single-select or iteration custom field.
type Field struct {
	ID      types.FieldID `json:"id"`
	Name    string        `json:"name"`
	Type    FieldType     `json:"type"`
	Options []Option      `json:"options"`
}

// OptionID returns the id of the option called name.
func (f *Field) OptionID(name string) (types.FieldOptionID, bool) {
	if f == nil {
		return "", false
	}
	for _, o := range f.Options {
		if o.Name == name {
			return o.ID, true
		}
	}
	return "", false
}

// OptionName returns the name of option id.
func (f *Field) OptionName(id types.FieldOptionID) (string, bool) {
	if f == nil || id == "" {
		return "", false
	}
	for _, o := range f.Options {
		if o.ID == id {
			return o.Name, true
		}
	}
	return "", false
}

// SortOptionsByName orders options by name. Iteration catalogs are kept
// sorted this way.
func (f *Field) SortOptionsByName() {
	sort.SliceStable(f.Options, func(i, j int) bool {
		return f.Options[i].Name < f.Options[j].Name
	})
}

// Fields is the catalog of a project's custom fields. It is immutable for
// the duration of a fetch session.
type Fields struct {
	ProjectID        types.ProjectID `json:"project_id"`
	Status           Field           `json:"status"`
	Blocked          Field           `json:"blocked"`
	Epic             Field           `json:"epic"`
	Iteration        Field           `json:"iteration"`
	Kind             Field           `json:"kind"`
	Estimate         Field           `json:"estimate"`
	Priority         Field           `json:"priority"`
	Workstream       Field           `json:"workstream"`
	ProjectMilestone Field           `json:"project_milestone"`
}

// Field returns the catalog entry for f, or nil if f is unknown.
func (c *Fields) Field(f types.ProjectField) *Field {
	switch f {
	case types.FieldStatus:
		return &c.Status
	case types.FieldBlocked:
		return &c.Blocked
	case types.FieldEpic:
		return &c.Epic
	case types.FieldIteration:
		return &c.Iteration
	case types.FieldKind:
		return &c.Kind
	case types.FieldEstimate:
		return &c.Estimate
	case types.FieldPriority:
		return &c.Priority
	case types.FieldWorkstream:
		return &c.Workstream
	case types.FieldProjectMilestone:
		return &c.ProjectMilestone
	}
	return nil
}

// ByName returns the catalog entry with the given display name.
func (c *Fields) ByName(name string) (types.ProjectField, *Field, bool) {
	for _, pf := range types.AllFields {
		if f := c.Field(pf); f != nil && f.Name == name {
			return pf, f, true
		}
	}
	return "", nil, false
}

// ValueName returns the option name of a loaded field value. It returns
// "" when the value is not loaded, blank or unknown to the catalog.
func (c *Fields) ValueName(f types.ProjectField, v types.FieldValue) string {
	id, ok := v.Get()
	if !ok || id == "" {
		return ""
	}
	name, _ := c.Field(f).OptionName(id)
	return name
}

// IssueTypes is the issue-type catalog of one repository.
type IssueTypes struct {
	ByID   map[types.IssueTypeID]string `json:"by_id"`
	ByName map[string]types.IssueTypeID `json:"by_name"`
}

// NewIssueTypes builds the catalog from id/name pairs.
func NewIssueTypes(ids []types.IssueTypeID, names []string) *IssueTypes {
	t := &IssueTypes{
		ByID:   make(map[types.IssueTypeID]string, len(ids)),
		ByName: make(map[string]types.IssueTypeID, len(ids)),
	}
	for i, id := range ids {
		if i >= len(names) {
			break
		}
		t.ByID[id] = names[i]
		t.ByName[names[i]] = id
	}
	return t
}
