// Package app holds the state shared by the CLI and the web UI: the
// project's field catalog, its work items and the pending change ledger.
// Every mutation rebuilds the displayed tree and pushes a DataUpdate to
// the watcher.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/steveyegge/ghtrack/internal/cache"
	"github.com/steveyegge/ghtrack/internal/changes"
	"github.com/steveyegge/ghtrack/internal/classify"
	"github.com/steveyegge/ghtrack/internal/debug"
	"github.com/steveyegge/ghtrack/internal/fetch"
	"github.com/steveyegge/ghtrack/internal/fields"
	"github.com/steveyegge/ghtrack/internal/sanitize"
	"github.com/steveyegge/ghtrack/internal/telemetry"
	"github.com/steveyegge/ghtrack/internal/types"
	"github.com/steveyegge/ghtrack/internal/workitems"
)

// Remote is the GitHub side of the Context. *github.Client implements it.
type Remote interface {
	fetch.Source
	changes.Mutator
	Fields(ctx context.Context) (*fields.Fields, error)
}

// Store persists the Context between runs. *cache.Cache implements it.
type Store interface {
	LoadFields(ctx context.Context) (*fields.Fields, error)
	SaveFields(ctx context.Context, f *fields.Fields) error
	LoadWorkItems(ctx context.Context) (*workitems.WorkItems, error)
	SaveWorkItems(ctx context.Context, items *workitems.WorkItems) error
	LoadChanges(ctx context.Context, into *changes.Changes) error
	SaveChanges(ctx context.Context, ch *changes.Changes) error
}

// ErrNotLoaded is returned by operations that need a refresh first.
var ErrNotLoaded = errors.New("project not loaded; run refresh first")

// Options configures a Context.
type Options struct {
	Remote Remote
	Store  Store // optional
	Log    *slog.Logger
	Rules  sanitize.Rules
	// MaxConcurrency bounds concurrent page hydrations; 0 means unbounded.
	MaxConcurrency int
	Watcher        Watcher
}

// Context owns the loaded project state. All methods are safe for
// concurrent use; operations are serialized on one lock, so a long
// refresh blocks edits until it finishes.
type Context struct {
	remote  Remote
	store   Store
	log     *slog.Logger
	rules   sanitize.Rules
	fetcher *fetch.Fetcher
	tracer  trace.Tracer

	mu      sync.Mutex
	watcher Watcher
	fields  *fields.Fields
	items   *workitems.WorkItems
	changes *changes.Changes
	filters Filters
	preview bool
}

// New creates a Context and restores the pending changes from the store.
// A store that fails to load is logged and the ledger starts empty.
func New(ctx context.Context, opts Options) *Context {
	log := opts.Log
	if log == nil {
		log = debug.Logger()
	}
	rules := opts.Rules
	if rules.ClosedStatus == "" {
		rules = sanitize.DefaultRules()
	}
	f := fetch.New(opts.Remote)
	f.MaxConcurrency = opts.MaxConcurrency

	c := &Context{
		remote:  opts.Remote,
		store:   opts.Store,
		log:     log,
		rules:   rules,
		fetcher: f,
		tracer:  telemetry.Tracer("ghtrack/app"),
		watcher: opts.Watcher,
		changes: changes.New(log),
		preview: true,
	}
	if c.store != nil {
		if err := c.store.LoadChanges(ctx, c.changes); err != nil {
			if !isMiss(err) {
				log.Warn("could not load pending changes", "error", err)
			}
			c.changes.Clear()
		}
	}
	return c
}

// SetWatcher replaces the watcher. nil stops notifications.
func (c *Context) SetWatcher(w Watcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watcher = w
}

func (c *Context) emit(u DataUpdate) {
	if c.watcher != nil {
		c.watcher(u)
	}
}

func (c *Context) progress(done, total int) {
	c.emit(Progress{Done: done, Total: total})
}

// Refresh loads the field catalog and all work items, from the store when
// possible unless force is set, and publishes a full snapshot.
func (c *Context) Refresh(ctx context.Context, force bool) error {
	ctx, span := c.tracer.Start(ctx, "ghtrack.refresh", trace.WithAttributes(attribute.Bool("force", force)))
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.refresh(ctx, force); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetAttributes(attribute.Int("ghtrack.work_items", c.items.Len()))
	return nil
}

func (c *Context) refresh(ctx context.Context, force bool) error {
	c.progress(0, 1)
	defer c.progress(0, 0)

	if err := c.refreshFields(ctx, force); err != nil {
		return err
	}
	if err := c.refreshItems(ctx, force); err != nil {
		return err
	}
	c.publish(classify.ChangesHierarchy)
	return nil
}

func (c *Context) refreshFields(ctx context.Context, force bool) error {
	if !force && c.store != nil {
		f, err := c.store.LoadFields(ctx)
		if err == nil {
			c.fields = f
			return nil
		}
		c.logCacheMiss("fields", err)
	}
	f, err := c.remote.Fields(ctx)
	if err != nil {
		return fmt.Errorf("fetch fields: %w", err)
	}
	c.fields = f
	if c.store != nil {
		if err := c.store.SaveFields(ctx, f); err != nil {
			c.log.Warn("could not cache fields", "error", err)
		}
	}
	return nil
}

func (c *Context) refreshItems(ctx context.Context, force bool) error {
	if !force && c.store != nil {
		items, err := c.store.LoadWorkItems(ctx)
		if err == nil {
			c.items = items
			return nil
		}
		c.logCacheMiss("work items", err)
	}
	list, err := c.fetcher.FetchAll(ctx, c.progress)
	if err != nil {
		return fmt.Errorf("fetch work items: %w", err)
	}
	c.items = workitems.New(list...)
	c.persistItems(ctx)
	return nil
}

func (c *Context) logCacheMiss(what string, err error) {
	if isMiss(err) {
		c.log.Debug("cache miss", "blob", what)
		return
	}
	c.log.Warn("could not load cached "+what+", fetching", "error", err)
}

func (c *Context) persistItems(ctx context.Context) {
	if c.store == nil {
		return
	}
	if err := c.store.SaveWorkItems(ctx, c.items); err != nil {
		c.log.Warn("could not cache work items", "error", err)
	}
}

func (c *Context) persistChanges(ctx context.Context) {
	if c.store == nil {
		return
	}
	if err := c.store.SaveChanges(ctx, c.changes); err != nil {
		c.log.Warn("could not persist pending changes", "error", err)
	}
}

// snapshot builds the current Data from a copy of the items, so it can be
// read after the lock is released. With preview on, pending changes are
// applied to that copy.
func (c *Context) snapshot(u classify.UpdateType) *Data {
	items := c.items.Clone()
	var originals map[types.WorkItemID]types.WorkItem
	if c.preview && c.changes.Len() > 0 {
		originals = c.changes.Apply(items)
	}
	d := &Data{
		Fields:     c.fields,
		WorkItems:  items,
		Originals:  originals,
		Filters:    c.filters,
		Changes:    c.changes.List(),
		UpdateType: u,
	}
	if u == classify.ChangesHierarchy {
		d.Nodes = BuildNodes(c.fields, items, c.filters, c.rules.ClosedStatus, originals)
	}
	return d
}

func (c *Context) publish(u classify.UpdateType) {
	if c.watcher == nil || c.items == nil {
		return
	}
	c.emit(c.snapshot(u))
}

// Snapshot returns the current state with the full node tree.
func (c *Context) Snapshot() (*Data, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil || c.fields == nil {
		return nil, ErrNotLoaded
	}
	return c.snapshot(classify.ChangesHierarchy), nil
}

// Changes returns the pending changes in ledger order.
func (c *Context) Changes() []changes.Change {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.changes.List()
}

// Describe renders a change against the unmodified items.
func (c *Context) Describe(change changes.Change) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fields == nil || c.items == nil {
		return change.String()
	}
	return change.Describe(c.fields, c.items)
}

// AddChange records a change, replacing any pending change of the same
// kind for the same item.
func (c *Context) AddChange(ctx context.Context, change changes.Change) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changes.Add(change)
	c.changesUpdated(ctx)
}

// AddChanges merges a batch into the ledger.
func (c *Context) AddChanges(ctx context.Context, batch *changes.Changes) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changes.AddChanges(batch)
	c.changesUpdated(ctx)
}

// RemoveChange drops the pending change with the same key, if any.
func (c *Context) RemoveChange(ctx context.Context, change changes.Change) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changes.Remove(change)
	c.changesUpdated(ctx)
}

// ClearChanges drops every pending change.
func (c *Context) ClearChanges(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changes.Clear()
	c.changesUpdated(ctx)
}

func (c *Context) changesUpdated(ctx context.Context) {
	c.persistChanges(ctx)
	if c.preview {
		c.publish(classify.ChangesHierarchy)
	} else {
		c.publish(classify.NoUpdate)
	}
}

// SetFilters replaces the filters and publishes a new tree.
func (c *Context) SetFilters(f Filters) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = f
	c.publish(classify.ChangesHierarchy)
}

// Filters returns the current filters.
func (c *Context) Filters() Filters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters
}

// SetPreview turns applying pending changes to the published items on or off.
func (c *Context) SetPreview(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.preview == on {
		return
	}
	c.preview = on
	c.publish(classify.ChangesHierarchy)
}

// Sanitize runs the sanitizer rules over the loaded items, adds the
// resulting changes to the ledger and returns them.
func (c *Context) Sanitize(ctx context.Context) (*changes.Changes, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil || c.fields == nil {
		return nil, ErrNotLoaded
	}
	out := sanitize.Sanitize(c.items, c.fields, c.rules, c.log)
	if out.Len() > 0 {
		c.changes.AddChanges(out)
		c.changesUpdated(ctx)
	}
	return out, nil
}

// ConvertTrackedToSubIssues queues parent changes turning the tracked
// issues of id into its sub-issues, and returns them.
func (c *Context) ConvertTrackedToSubIssues(ctx context.Context, id types.WorkItemID) (*changes.Changes, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		return nil, ErrNotLoaded
	}
	if _, ok := c.items.Get(id); !ok {
		return nil, fmt.Errorf("unknown work item %s", id)
	}
	out := sanitize.ConvertTrackedToSubIssues(c.items, id, c.log)
	if out.Len() > 0 {
		c.changes.AddChanges(out)
		c.changesUpdated(ctx)
	}
	return out, nil
}

// SaveProgress is called after each change of a save.
type SaveProgress = changes.ProgressFunc

// Save commits the pending changes to GitHub and reloads the items
// GitHub reports as changed. Changes that fail stay in the ledger.
func (c *Context) Save(ctx context.Context, progress SaveProgress) ([]types.WorkItemID, error) {
	ctx, span := c.tracer.Start(ctx, "ghtrack.save")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil || c.fields == nil {
		return nil, ErrNotLoaded
	}
	span.SetAttributes(attribute.Int("ghtrack.changes", c.changes.Len()))

	changed, err := c.changes.Save(ctx, c.remote, c.fields, c.items, changes.Commit, func(ch changes.Change, done, total int) {
		c.progress(done, total)
		if progress != nil {
			progress(ch, done, total)
		}
	})
	c.progress(0, 0)
	c.persistChanges(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.publish(classify.ChangesHierarchy)
		return changed, err
	}
	span.SetAttributes(attribute.Int("ghtrack.changed_items", len(changed)))
	if len(changed) == 0 {
		c.publish(classify.ChangesHierarchy)
		return changed, nil
	}
	if err := c.updateItems(ctx, changed, true); err != nil {
		return changed, fmt.Errorf("reload saved items: %w", err)
	}
	return changed, nil
}

// SaveDryRun walks the pending changes as Save would without sending
// anything. The ledger is left untouched.
func (c *Context) SaveDryRun(ctx context.Context, progress SaveProgress) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil || c.fields == nil {
		return ErrNotLoaded
	}
	_, err := c.changes.Clone().Save(ctx, c.remote, c.fields, c.items, changes.DryRun, progress)
	return err
}

// UpdateItems re-fetches the given items. An id the Context has never
// seen triggers a full forced refresh, since it cannot be mapped to a
// project item. Without force, nothing is published when no item changed.
func (c *Context) UpdateItems(ctx context.Context, ids []types.WorkItemID, force bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		return ErrNotLoaded
	}
	return c.updateItems(ctx, ids, force)
}

func (c *Context) updateItems(ctx context.Context, ids []types.WorkItemID, force bool) error {
	pids := make([]types.ProjectItemID, 0, len(ids))
	for _, id := range ids {
		item, ok := c.items.Get(id)
		if !ok {
			c.log.Debug("unknown work item, refreshing everything", "id", id)
			return c.refresh(ctx, true)
		}
		pids = append(pids, item.ProjectItem.ID)
	}

	fetched, err := c.remote.Items(ctx, pids)
	if err != nil {
		return fmt.Errorf("fetch work items: %w", err)
	}
	update := classify.NoUpdate
	for _, item := range fetched {
		update = classify.Max(update, c.items.Update(item))
	}
	if update != classify.NoUpdate {
		c.persistItems(ctx)
	}
	if update == classify.NoUpdate && !force {
		return nil
	}
	if force {
		update = classify.Max(update, classify.SimpleChange)
	}
	c.publish(update)
	return nil
}

func isMiss(err error) bool {
	return errors.Is(err, cache.ErrMiss)
}
