package changes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/ghtrack/internal/testutil"
	"github.com/steveyegge/ghtrack/internal/types"
	"github.com/steveyegge/ghtrack/internal/workitems"
)

func subIssues(t *testing.T, items *workitems.WorkItems, id string) []types.WorkItemID {
	t.Helper()
	item, ok := items.Get(types.WorkItemID(id))
	require.True(t, ok, id)
	is, ok := item.Issue()
	require.True(t, ok, id)
	return is.SubIssues
}

func parentOf(t *testing.T, items *workitems.WorkItems, id string) types.WorkItemID {
	t.Helper()
	item, ok := items.Get(types.WorkItemID(id))
	require.True(t, ok, id)
	is, ok := item.Issue()
	require.True(t, ok, id)
	return is.ParentID
}

func TestApplyNoChanges(t *testing.T) {
	items := workitems.New(testutil.Issue("a").Build())
	before := items.Clone()

	originals := New(quietLogger()).Apply(items)

	assert.Empty(t, originals)
	assert.Equal(t, before, items)
}

func TestApplySetNewParent(t *testing.T) {
	items := workitems.New(
		testutil.Issue("parent").Build(),
		testutil.Issue("child").Build(),
	)
	c := New(quietLogger())
	c.Add(Parent("child", "parent"))

	originals := c.Apply(items)

	assert.Equal(t, testutil.IDs("child"), subIssues(t, items, "parent"))
	assert.Equal(t, types.WorkItemID("parent"), parentOf(t, items, "child"))
	assert.Len(t, originals, 2)
	assert.Contains(t, originals, types.WorkItemID("child"))
	assert.Contains(t, originals, types.WorkItemID("parent"))
}

func TestApplyMoveParent(t *testing.T) {
	items := workitems.New(
		testutil.Issue("old").SubIssues("x", "child", "y").Build(),
		testutil.Issue("new").SubIssues("z").Build(),
		testutil.Issue("child").Parent("old").Build(),
		testutil.Issue("other").SubIssues("child").Build(),
	)
	c := New(quietLogger())
	c.Add(Parent("child", "new"))

	originals := c.Apply(items)

	assert.Equal(t, testutil.IDs("x", "y"), subIssues(t, items, "old"))
	assert.Equal(t, testutil.IDs("z", "child"), subIssues(t, items, "new"))
	assert.Equal(t, testutil.IDs("child"), subIssues(t, items, "other"), "only the recorded parent is edited")
	assert.Equal(t, types.WorkItemID("new"), parentOf(t, items, "child"))

	require.Len(t, originals, 3)
	oldOriginal := originals["old"]
	is, _ := oldOriginal.Issue()
	assert.Equal(t, testutil.IDs("x", "child", "y"), is.SubIssues)
	newOriginal := originals["new"]
	is, _ = newOriginal.Issue()
	assert.Equal(t, testutil.IDs("z"), is.SubIssues)
}

func TestApplyItemNotFound(t *testing.T) {
	items := workitems.New(testutil.Issue("a").Build())
	before := items.Clone()
	log, buf := bufferLogger()
	c := New(log)
	c.Add(Field("missing", types.FieldStatus, testutil.StatusClosed))
	c.Add(Parent("missing", "a"))
	c.Add(Add("missing"))

	originals := c.Apply(items)

	assert.Empty(t, originals)
	assert.Equal(t, before, items)
	assert.Contains(t, buf.String(), "missing work item")
}

func TestApplyFieldsAndIssueType(t *testing.T) {
	items := workitems.New(
		testutil.Issue("a").Build(),
		testutil.PullRequest("pr").Build(),
	)
	c := New(quietLogger())
	c.Add(Field("a", types.FieldStatus, testutil.StatusClosed))
	c.Add(Field("a", types.FieldEpic, testutil.EpicAlpha))
	c.Add(IssueType("a", "Bug"))
	c.Add(IssueType("pr", "Bug"))
	c.Add(Field("pr", types.FieldKind, testutil.KindBug))

	originals := c.Apply(items)

	a, _ := items.Get("a")
	assert.Equal(t, types.OptionOf(testutil.StatusClosed), a.ProjectItem.Status)
	assert.Equal(t, types.OptionOf(testutil.EpicAlpha), a.ProjectItem.Epic)
	is, _ := a.Issue()
	assert.Equal(t, types.Loaded("Bug"), is.IssueType)

	pr, _ := items.Get("pr")
	assert.Equal(t, types.OptionOf(testutil.KindBug), pr.ProjectItem.Kind)

	// a is snapshotted once, before its first change.
	aOriginal := originals["a"]
	assert.Equal(t, types.OptionOf(""), aOriginal.ProjectItem.Status)
	assert.Equal(t, types.OptionOf(""), aOriginal.ProjectItem.Epic)
}

func TestApplyRestoreRoundTrip(t *testing.T) {
	items := workitems.New(
		testutil.Issue("old").SubIssues("child").Build(),
		testutil.Issue("new").Build(),
		testutil.Issue("child").Parent("old").Build(),
		testutil.Issue("other").Build(),
	)
	before := items.Clone()

	c := New(quietLogger())
	c.Add(Parent("child", "new"))
	c.Add(Field("child", types.FieldEpic, testutil.EpicBeta))
	c.Add(Field("new", types.FieldStatus, testutil.StatusInProgress))
	c.Add(IssueType("other", "Feature"))

	originals := c.Apply(items)
	require.NotEqual(t, before, items)

	items.Restore(originals)
	assert.Equal(t, before, items)
}

func TestDescribe(t *testing.T) {
	f := testutil.Fields()
	items := workitems.New(
		testutil.Issue("a").Status(testutil.StatusTodo).Build(),
		testutil.Issue("b").Parent("a").Build(),
	)

	tests := []struct {
		change Change
		want   string
	}{
		{Field("a", types.FieldStatus, testutil.StatusClosed), "Status(Todo -> Closed)"},
		{Field("a", types.FieldStatus, ""), "Status(Todo -> <>)"},
		{IssueType("a", "Bug"), "IssueType(<> -> Bug)"},
		{Parent("b", "c"), "SetParent(a -> c)"},
		{Add("zzz"), "AddToProject(<> -> <>)"},
	}
	for _, tt := range tests {
		if got := tt.change.Describe(f, items); got != tt.want {
			t.Errorf("Describe(%v) = %q, want %q", tt.change, got, tt.want)
		}
	}
}
