package types

import "time"

// ProjectItem holds the project membership row of a work item and its
// custom-field values.
type ProjectItem struct {
	ID               ProjectItemID `json:"id"`
	DatabaseID       *int64        `json:"database_id,omitempty"`
	UpdatedAt        time.Time     `json:"updated_at"`
	Status           FieldValue    `json:"status"`
	Iteration        FieldValue    `json:"iteration"`
	Blocked          FieldValue    `json:"blocked"`
	Kind             FieldValue    `json:"kind"`
	Epic             FieldValue    `json:"epic"`
	Workstream       FieldValue    `json:"workstream"`
	Estimate         FieldValue    `json:"estimate"`
	Priority         FieldValue    `json:"priority"`
	ProjectMilestone FieldValue    `json:"project_milestone"` // read only
}

// ProjectField names a project custom field known to ghtrack.
type ProjectField string

const (
	FieldStatus           ProjectField = "Status"
	FieldBlocked          ProjectField = "Blocked"
	FieldEpic             ProjectField = "Epic"
	FieldIteration        ProjectField = "Iteration"
	FieldKind             ProjectField = "Kind"
	FieldWorkstream       ProjectField = "Workstream"
	FieldEstimate         ProjectField = "Estimate"
	FieldPriority         ProjectField = "Priority"
	FieldProjectMilestone ProjectField = "Project Milestone"
)

// WritableFields lists the fields that changes may set, in display order.
var WritableFields = []ProjectField{
	FieldStatus,
	FieldBlocked,
	FieldEpic,
	FieldIteration,
	FieldKind,
	FieldWorkstream,
	FieldEstimate,
	FieldPriority,
}

// AllFields lists every known field, read-only ones included.
var AllFields = []ProjectField{
	FieldStatus,
	FieldBlocked,
	FieldEpic,
	FieldIteration,
	FieldKind,
	FieldWorkstream,
	FieldEstimate,
	FieldPriority,
	FieldProjectMilestone,
}

// Writable reports whether changes may set f.
func (f ProjectField) Writable() bool {
	return f != FieldProjectMilestone && f.Valid()
}

// Valid reports whether f names a known field.
func (f ProjectField) Valid() bool {
	switch f {
	case FieldStatus, FieldBlocked, FieldEpic, FieldIteration, FieldKind,
		FieldWorkstream, FieldEstimate, FieldPriority, FieldProjectMilestone:
		return true
	}
	return false
}

// Field returns a pointer to the value of f, or nil for an unknown field.
func (p *ProjectItem) Field(f ProjectField) *FieldValue {
	switch f {
	case FieldStatus:
		return &p.Status
	case FieldBlocked:
		return &p.Blocked
	case FieldEpic:
		return &p.Epic
	case FieldIteration:
		return &p.Iteration
	case FieldKind:
		return &p.Kind
	case FieldWorkstream:
		return &p.Workstream
	case FieldEstimate:
		return &p.Estimate
	case FieldPriority:
		return &p.Priority
	case FieldProjectMilestone:
		return &p.ProjectMilestone
	}
	return nil
}
