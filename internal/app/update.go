package app

import (
	"encoding/json"

	"github.com/steveyegge/ghtrack/internal/changes"
	"github.com/steveyegge/ghtrack/internal/classify"
	"github.com/steveyegge/ghtrack/internal/fields"
	"github.com/steveyegge/ghtrack/internal/types"
	"github.com/steveyegge/ghtrack/internal/workitems"
)

// DataUpdate is pushed to the watcher: a Progress or a *Data snapshot.
type DataUpdate interface {
	isDataUpdate()
}

// Watcher receives every DataUpdate. It is called with the Context lock
// held and must not call back into the Context.
type Watcher func(DataUpdate)

// Progress reports fetch or save progress. Done == Total == 0 marks the end.
type Progress struct {
	Done  int
	Total int
}

// Filters controls which items the node tree shows.
type Filters struct {
	HideClosed bool `json:"hide_closed"`
}

// Data is a snapshot of everything the UI displays.
type Data struct {
	Fields *fields.Fields
	// WorkItems has pending changes applied when preview is on.
	WorkItems *workitems.WorkItems
	// Originals holds the unmodified copies of items changed by preview.
	Originals  map[types.WorkItemID]types.WorkItem
	Nodes      []Node
	Filters    Filters
	Changes    []changes.Change
	UpdateType classify.UpdateType
}

func (Progress) isDataUpdate() {}
func (*Data) isDataUpdate()    {}

func (p Progress) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string `json:"type"`
		Done  int    `json:"done"`
		Total int    `json:"total"`
	}{"progress", p.Done, p.Total})
}

func (d *Data) MarshalJSON() ([]byte, error) {
	originals := d.Originals
	if originals == nil {
		originals = map[types.WorkItemID]types.WorkItem{}
	}
	list := d.Changes
	if list == nil {
		list = []changes.Change{}
	}
	nodes := d.Nodes
	if nodes == nil {
		nodes = []Node{}
	}
	return json.Marshal(struct {
		Type       string                              `json:"type"`
		Fields     *fields.Fields                      `json:"fields"`
		WorkItems  *workitems.WorkItems                `json:"work_items"`
		Originals  map[types.WorkItemID]types.WorkItem `json:"original_work_items"`
		Nodes      []Node                              `json:"nodes"`
		Filters    Filters                             `json:"filters"`
		Changes    []changes.Change                    `json:"changes"`
		UpdateType string                              `json:"update_type"`
	}{"data", d.Fields, d.WorkItems, originals, nodes, d.Filters, list, d.UpdateType.String()})
}
