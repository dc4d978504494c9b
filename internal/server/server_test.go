package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/ghtrack/internal/app"
	"github.com/steveyegge/ghtrack/internal/changes"
	"github.com/steveyegge/ghtrack/internal/fields"
	"github.com/steveyegge/ghtrack/internal/github"
	"github.com/steveyegge/ghtrack/internal/testutil"
	"github.com/steveyegge/ghtrack/internal/types"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeRemote struct {
	mu    sync.Mutex
	items []types.WorkItem
	sets  int
}

func (r *fakeRemote) ProjectItemIDs(context.Context, string) (github.IDPage, error) {
	var ids []types.ProjectItemID
	for _, it := range r.items {
		ids = append(ids, it.ProjectItem.ID)
	}
	return github.IDPage{IDs: ids, TotalCount: len(ids)}, nil
}

func (r *fakeRemote) Items(_ context.Context, ids []types.ProjectItemID) ([]types.WorkItem, error) {
	var out []types.WorkItem
	for _, id := range ids {
		for _, it := range r.items {
			if it.ProjectItem.ID == id {
				out = append(out, it.Clone())
			}
		}
	}
	return out, nil
}

func (r *fakeRemote) Fields(context.Context) (*fields.Fields, error) { return testutil.Fields(), nil }

func (r *fakeRemote) AddSubIssue(context.Context, types.WorkItemID, types.WorkItemID, bool) error {
	return nil
}

func (r *fakeRemote) AddToProject(context.Context, types.ProjectID, types.WorkItemID) (types.ProjectItemID, error) {
	return "", nil
}

func (r *fakeRemote) SetFieldValue(context.Context, types.ProjectID, types.ProjectItemID, *fields.Field, types.FieldOptionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sets++
	return nil
}

func (r *fakeRemote) ClearFieldValue(context.Context, types.ProjectID, types.ProjectItemID, types.FieldID) error {
	return nil
}

func (r *fakeRemote) SetIssueType(context.Context, types.WorkItemID, types.IssueTypeID) error {
	return nil
}

func (r *fakeRemote) RepoIssueTypes(context.Context, string, string) (*fields.IssueTypes, error) {
	return fields.NewIssueTypes(nil, nil), nil
}

func newTestServer(t *testing.T) (*httptest.Server, *app.Context, *fakeRemote) {
	t.Helper()
	remote := &fakeRemote{items: []types.WorkItem{
		testutil.Issue("root").Epic(testutil.EpicAlpha).SubIssues("child").Build(),
		testutil.Issue("child").Parent("root").Build(),
		testutil.Issue("tracker").Tracked("loose").Build(),
		testutil.Issue("loose").Build(),
	}}
	a := app.New(context.Background(), app.Options{Remote: remote, Log: discard})
	ts := httptest.NewServer(New(a, discard).Handler())
	t.Cleanup(ts.Close)
	return ts, a, remote
}

func do(t *testing.T, ts *httptest.Server, method, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.URL+path, r)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestSnapshotBeforeRefresh(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp := do(t, ts, http.MethodGet, "/api/snapshot", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRefreshAndSnapshot(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp := do(t, ts, http.MethodPost, "/api/refresh?force=true", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, ts, http.MethodGet, "/api/snapshot", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got struct {
		Type  string     `json:"type"`
		Nodes []app.Node `json:"nodes"`
	}
	decode(t, resp, &got)
	assert.Equal(t, "data", got.Type)
	assert.NotEmpty(t, got.Nodes)

	resp = do(t, ts, http.MethodPost, "/api/refresh?force=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChangeEndpoints(t *testing.T) {
	ts, a, _ := newTestServer(t)
	require.NoError(t, a.Refresh(context.Background(), false))
	change := changes.Field("child", types.FieldStatus, testutil.StatusTodo)

	resp := do(t, ts, http.MethodPost, "/api/changes", change)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, []changes.Change{change}, a.Changes())

	var list []changes.Change
	decode(t, do(t, ts, http.MethodGet, "/api/changes", nil), &list)
	assert.Equal(t, []changes.Change{change}, list)

	resp = do(t, ts, http.MethodDelete, "/api/changes", change)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, a.Changes())

	a.AddChange(context.Background(), change)
	resp = do(t, ts, http.MethodDelete, "/api/changes/all", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, a.Changes())

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/changes", strings.NewReader("{"))
	require.NoError(t, err)
	bad, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestSaveEndpoint(t *testing.T) {
	ts, a, remote := newTestServer(t)
	require.NoError(t, a.Refresh(context.Background(), false))
	a.AddChange(context.Background(), changes.Field("child", types.FieldStatus, testutil.StatusTodo))

	var dry saveResponse
	decode(t, do(t, ts, http.MethodPost, "/api/save?dry_run=true", nil), &dry)
	assert.True(t, dry.DryRun)
	assert.Equal(t, 1, dry.Pending)
	assert.Equal(t, 0, remote.sets)

	var got saveResponse
	resp := do(t, ts, http.MethodPost, "/api/save", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &got)
	assert.NotEmpty(t, got.BatchID)
	assert.NotEqual(t, dry.BatchID, got.BatchID)
	assert.Equal(t, []types.WorkItemID{"child"}, got.Changed)
	assert.Equal(t, 0, got.Pending)
	assert.Equal(t, 1, remote.sets)
}

func TestSanitizeAndConvert(t *testing.T) {
	ts, a, _ := newTestServer(t)
	require.NoError(t, a.Refresh(context.Background(), false))

	var sanitized []changes.Change
	decode(t, do(t, ts, http.MethodPost, "/api/sanitize", nil), &sanitized)
	assert.Equal(t, []changes.Change{changes.Field("child", types.FieldEpic, testutil.EpicAlpha)}, sanitized)

	var converted []changes.Change
	decode(t, do(t, ts, http.MethodPost, "/api/items/tracker/convert-tracked", nil), &converted)
	assert.Equal(t, []changes.Change{changes.Parent("loose", "tracker")}, converted)

	resp := do(t, ts, http.MethodPost, "/api/items/nope/convert-tracked", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	assert.Len(t, a.Changes(), 2)
}

func TestFiltersAndPreview(t *testing.T) {
	ts, a, _ := newTestServer(t)

	var f app.Filters
	decode(t, do(t, ts, http.MethodPut, "/api/filters", app.Filters{HideClosed: true}), &f)
	assert.True(t, f.HideClosed)
	assert.Equal(t, f, a.Filters())

	resp := do(t, ts, http.MethodPut, "/api/preview", map[string]bool{"on": false})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestUpdateItemsEndpoint(t *testing.T) {
	ts, a, _ := newTestServer(t)

	resp := do(t, ts, http.MethodPost, "/api/items/update", updateItemsRequest{IDs: []types.WorkItemID{"child"}})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	require.NoError(t, a.Refresh(context.Background(), false))
	resp = do(t, ts, http.MethodPost, "/api/items/update", updateItemsRequest{IDs: []types.WorkItemID{"child"}, Force: true})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestWebsocketStreamsUpdates(t *testing.T) {
	ts, a, _ := newTestServer(t)
	require.NoError(t, a.Refresh(context.Background(), false))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	type message struct {
		Type    string           `json:"type"`
		Changes []changes.Change `json:"changes"`
	}
	var first message
	require.NoError(t, wsjson.Read(ctx, conn, &first))
	assert.Equal(t, "data", first.Type)
	assert.Empty(t, first.Changes)

	change := changes.Field("child", types.FieldStatus, testutil.StatusTodo)
	resp := do(t, ts, http.MethodPost, "/api/changes", change)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	var next message
	require.NoError(t, wsjson.Read(ctx, conn, &next))
	assert.Equal(t, "data", next.Type)
	assert.Equal(t, []changes.Change{change}, next.Changes)
}

func TestHubDropsSlowClient(t *testing.T) {
	h := newHub(discard)
	c := h.register()
	for i := 0; i <= clientBuffer; i++ {
		h.broadcast(app.Progress{Done: i, Total: clientBuffer})
	}

	select {
	case <-c.dropped:
	default:
		t.Fatal("slow client was not dropped")
	}
	assert.Equal(t, 0, h.count())
	h.unregister(c)
}
