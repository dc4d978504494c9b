package changes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/steveyegge/ghtrack/internal/fields"
	"github.com/steveyegge/ghtrack/internal/types"
	"github.com/steveyegge/ghtrack/internal/workitems"
)

// Mode selects whether Save talks to GitHub.
type Mode int

const (
	// DryRun drains the ledger and reports progress without sending anything.
	DryRun Mode = iota
	// Commit sends every change to GitHub.
	Commit
)

// Mutator is the set of GitHub mutations Save needs.
type Mutator interface {
	AddSubIssue(ctx context.Context, issue, subIssue types.WorkItemID, replaceParent bool) error
	AddToProject(ctx context.Context, project types.ProjectID, content types.WorkItemID) (types.ProjectItemID, error)
	SetFieldValue(ctx context.Context, project types.ProjectID, item types.ProjectItemID, field *fields.Field, value types.FieldOptionID) error
	ClearFieldValue(ctx context.Context, project types.ProjectID, item types.ProjectItemID, field types.FieldID) error
	SetIssueType(ctx context.Context, issue types.WorkItemID, issueType types.IssueTypeID) error
	RepoIssueTypes(ctx context.Context, owner, name string) (*fields.IssueTypes, error)
}

// ProgressFunc is called once per change after it was handled, successful
// or not. done counts handled changes, total is the batch size.
type ProgressFunc func(change Change, done, total int)

// Save drains the ledger and sends each change to GitHub once.
//
// A change that fails is put back into the ledger for the next save and a
// warning is logged; the rest of the batch still runs. If ctx is cancelled
// the remaining changes are put back and ctx's error is returned.
//
// The returned ids are the work items GitHub reported as changed, without
// duplicates, in the order they were first touched. A parent change
// includes the old and the new parent.
func (c *Changes) Save(ctx context.Context, m Mutator, f *fields.Fields, items *workitems.WorkItems, mode Mode, progress ProgressFunc) ([]types.WorkItemID, error) {
	batch := c.take()
	log := c.logger()
	s := &saver{m: m, log: log, fields: f, items: items, issueTypes: make(map[string]*fields.IssueTypes)}

	var changed []types.WorkItemID
	seen := make(map[types.WorkItemID]bool)

	for i, change := range batch {
		if err := ctx.Err(); err != nil {
			for _, rest := range batch[i:] {
				c.Add(rest)
			}
			return changed, err
		}

		var ids []types.WorkItemID
		var err error
		if mode == Commit {
			ids, err = s.save(ctx, change)
		}
		if err != nil {
			c.Add(change)
			if ctx.Err() != nil {
				for _, rest := range batch[i+1:] {
					c.Add(rest)
				}
				if progress != nil {
					progress(change, i+1, len(batch))
				}
				return changed, ctx.Err()
			}
			log.Warn("failed to save change, will retry on next save", "change", change.String(), "error", err)
		} else {
			for _, id := range ids {
				if id != "" && !seen[id] {
					seen[id] = true
					changed = append(changed, id)
				}
			}
		}
		if progress != nil {
			progress(change, i+1, len(batch))
		}
	}
	return changed, nil
}

// ErrUnknownIssueType is returned when a repository has no issue type with
// the requested name.
var ErrUnknownIssueType = errors.New("unknown issue type")

type saver struct {
	m          Mutator
	log        *slog.Logger
	fields     *fields.Fields
	items      *workitems.WorkItems
	issueTypes map[string]*fields.IssueTypes // by owner/name
}

func (s *saver) save(ctx context.Context, change Change) ([]types.WorkItemID, error) {
	id := change.WorkItemID
	switch d := change.Data.(type) {
	case SetField:
		item, ok := s.items.Get(id)
		if !ok {
			s.log.Warn("change for missing work item, skipping", "change", change.String())
			return nil, nil
		}
		field := s.fields.Field(d.Field)
		if field == nil {
			return nil, fmt.Errorf("no catalog entry for field %s", d.Field)
		}
		if d.Value == "" {
			err := s.m.ClearFieldValue(ctx, s.fields.ProjectID, item.ProjectItem.ID, field.ID)
			return []types.WorkItemID{id}, err
		}
		err := s.m.SetFieldValue(ctx, s.fields.ProjectID, item.ProjectItem.ID, field, d.Value)
		return []types.WorkItemID{id}, err

	case SetIssueType:
		item, ok := s.items.Get(id)
		if !ok {
			s.log.Warn("change for missing work item, skipping", "change", change.String())
			return nil, nil
		}
		typeID, err := s.issueTypeID(ctx, item, d.Name)
		if err != nil {
			return nil, err
		}
		if err := s.m.SetIssueType(ctx, id, typeID); err != nil {
			return nil, err
		}
		return []types.WorkItemID{id}, nil

	case SetParent:
		var oldParent types.WorkItemID
		if item, ok := s.items.Get(id); ok {
			if is, ok := item.Issue(); ok {
				oldParent = is.ParentID
			}
		}
		if err := s.m.AddSubIssue(ctx, d.Parent, id, oldParent != ""); err != nil {
			return nil, err
		}
		return []types.WorkItemID{id, oldParent, d.Parent}, nil

	case AddToProject:
		if _, err := s.m.AddToProject(ctx, s.fields.ProjectID, id); err != nil {
			return nil, err
		}
		return []types.WorkItemID{id}, nil
	}
	return nil, fmt.Errorf("unsupported change %T", change.Data)
}

func (s *saver) issueTypeID(ctx context.Context, item *types.WorkItem, name string) (types.IssueTypeID, error) {
	if name == "" {
		return "", nil
	}
	owner, repo, ok := item.RepositoryInfo()
	if !ok {
		return "", fmt.Errorf("%s has no repository", item.Describe())
	}
	key := owner + "/" + repo
	catalog, ok := s.issueTypes[key]
	if !ok {
		var err error
		catalog, err = s.m.RepoIssueTypes(ctx, owner, repo)
		if err != nil {
			return "", fmt.Errorf("issue types of %s: %w", key, err)
		}
		s.issueTypes[key] = catalog
	}
	typeID, ok := catalog.ByName[name]
	if !ok {
		return "", fmt.Errorf("%w %q in %s", ErrUnknownIssueType, name, key)
	}
	return typeID, nil
}
