// Package changes records pending local edits to work items, applies them
// in memory for preview and commits them to GitHub.
package changes

import (
	"encoding/json"
	"fmt"

	"github.com/steveyegge/ghtrack/internal/types"
)

// Kind names the kind of a change. An item has at most one pending change
// per kind.
type Kind string

const (
	KindStatus       Kind = Kind(types.FieldStatus)
	KindBlocked      Kind = Kind(types.FieldBlocked)
	KindEpic         Kind = Kind(types.FieldEpic)
	KindIteration    Kind = Kind(types.FieldIteration)
	KindKind         Kind = Kind(types.FieldKind)
	KindWorkstream   Kind = Kind(types.FieldWorkstream)
	KindEstimate     Kind = Kind(types.FieldEstimate)
	KindPriority     Kind = Kind(types.FieldPriority)
	KindIssueType    Kind = "IssueType"
	KindSetParent    Kind = "SetParent"
	KindAddToProject Kind = "AddToProject"
)

// Data is the payload of a change. It is a closed set: SetField,
// SetIssueType, SetParent or AddToProject.
type Data interface {
	Kind() Kind
	isChangeData()
}

// SetField sets a project custom field. An empty Value clears the field.
type SetField struct {
	Field types.ProjectField
	Value types.FieldOptionID
}

// SetIssueType sets the issue type by name. An empty Name clears it.
type SetIssueType struct {
	Name string
}

// SetParent makes the item a sub-issue of Parent.
type SetParent struct {
	Parent types.WorkItemID
}

// AddToProject adds an item that is referenced but not yet part of the
// project.
type AddToProject struct{}

func (d SetField) Kind() Kind   { return Kind(d.Field) }
func (SetIssueType) Kind() Kind { return KindIssueType }
func (SetParent) Kind() Kind    { return KindSetParent }
func (AddToProject) Kind() Kind { return KindAddToProject }

func (SetField) isChangeData()     {}
func (SetIssueType) isChangeData() {}
func (SetParent) isChangeData()    {}
func (AddToProject) isChangeData() {}

// Change is one pending edit of one work item.
type Change struct {
	WorkItemID types.WorkItemID
	Data       Data
}

// Key identifies the slot a change occupies in the ledger.
type Key struct {
	WorkItemID types.WorkItemID
	Kind       Kind
}

// Key returns the ledger slot of c.
func (c Change) Key() Key {
	return Key{WorkItemID: c.WorkItemID, Kind: c.Data.Kind()}
}

// Field returns a change setting field f of item id to value.
func Field(id types.WorkItemID, f types.ProjectField, value types.FieldOptionID) Change {
	return Change{WorkItemID: id, Data: SetField{Field: f, Value: value}}
}

// IssueType returns a change setting the issue type of id.
func IssueType(id types.WorkItemID, name string) Change {
	return Change{WorkItemID: id, Data: SetIssueType{Name: name}}
}

// Parent returns a change moving child under parent.
func Parent(child, parent types.WorkItemID) Change {
	return Change{WorkItemID: child, Data: SetParent{Parent: parent}}
}

// Add returns a change adding id to the project.
func Add(id types.WorkItemID) Change {
	return Change{WorkItemID: id, Data: AddToProject{}}
}

func (c Change) String() string {
	switch d := c.Data.(type) {
	case SetField:
		return fmt.Sprintf("%s(%s)=%q", d.Field, c.WorkItemID, d.Value)
	case SetIssueType:
		return fmt.Sprintf("IssueType(%s)=%q", c.WorkItemID, d.Name)
	case SetParent:
		return fmt.Sprintf("SetParent(%s)=%s", c.WorkItemID, d.Parent)
	case AddToProject:
		return fmt.Sprintf("AddToProject(%s)", c.WorkItemID)
	}
	return fmt.Sprintf("Change(%s)", c.WorkItemID)
}

type changeJSON struct {
	WorkItemID types.WorkItemID    `json:"work_item_id"`
	Kind       Kind                `json:"kind"`
	Value      types.FieldOptionID `json:"value,omitempty"`
	IssueType  string              `json:"issue_type,omitempty"`
	Parent     types.WorkItemID    `json:"parent,omitempty"`
}

// MarshalJSON writes the change as a kind tag plus its value.
func (c Change) MarshalJSON() ([]byte, error) {
	out := changeJSON{WorkItemID: c.WorkItemID}
	switch d := c.Data.(type) {
	case SetField:
		out.Kind, out.Value = d.Kind(), d.Value
	case SetIssueType:
		out.Kind, out.IssueType = KindIssueType, d.Name
	case SetParent:
		out.Kind, out.Parent = KindSetParent, d.Parent
	case AddToProject:
		out.Kind = KindAddToProject
	default:
		return nil, fmt.Errorf("change %s: unknown data %T", c.WorkItemID, c.Data)
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the form written by MarshalJSON.
func (c *Change) UnmarshalJSON(b []byte) error {
	var in changeJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	c.WorkItemID = in.WorkItemID
	switch in.Kind {
	case KindIssueType:
		c.Data = SetIssueType{Name: in.IssueType}
	case KindSetParent:
		c.Data = SetParent{Parent: in.Parent}
	case KindAddToProject:
		c.Data = AddToProject{}
	default:
		f := types.ProjectField(in.Kind)
		if !f.Writable() {
			return fmt.Errorf("change %s: unknown kind %q", in.WorkItemID, in.Kind)
		}
		c.Data = SetField{Field: f, Value: in.Value}
	}
	return nil
}
