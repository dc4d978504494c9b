package workitems

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/ghtrack/internal/classify"
	"github.com/steveyegge/ghtrack/internal/testutil"
	"github.com/steveyegge/ghtrack/internal/types"
)

func TestRoots(t *testing.T) {
	items := New(
		testutil.Issue("child").Parent("root").Build(),
		testutil.Issue("root").SubIssues("child", "missing").Build(),
		testutil.PullRequest("pr").Build(),
		testutil.Issue("tracker").Tracked("pr", "child").Build(),
		testutil.Draft("draft").Build(),
	)

	assert.Equal(t, testutil.IDs("root", "pr", "tracker", "draft"), items.Roots())
}

func TestRootsCycle(t *testing.T) {
	items := New(
		testutil.Issue("a").SubIssues("b").Build(),
		testutil.Issue("b").SubIssues("a").Build(),
		testutil.Issue("c").Build(),
	)

	assert.Equal(t, testutil.IDs("c"), items.Roots())
}

func TestAddKeepsPosition(t *testing.T) {
	items := New(testutil.Issue("a").Build(), testutil.Issue("b").Build())
	items.Add(testutil.Issue("a").Title("again").Build())

	assert.Equal(t, testutil.IDs("a", "b"), items.IDs())
	got, ok := items.Get("a")
	require.True(t, ok)
	assert.Equal(t, "again", got.Title)
}

func TestUpdate(t *testing.T) {
	items := New(testutil.Issue("a").Build())

	tests := []struct {
		name string
		item types.WorkItem
		want classify.UpdateType
	}{
		{"same", testutil.Issue("a").Build(), classify.NoUpdate},
		{"title", testutil.Issue("a").Title("new").Build(), classify.SimpleChange},
		{"children", testutil.Issue("a").Title("new").SubIssues("b").Build(), classify.ChangesHierarchy},
		{"new item", testutil.Issue("z").Build(), classify.ChangesHierarchy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := items.Update(tt.item); got != tt.want {
				t.Errorf("Update() = %v, want %v", got, tt.want)
			}
		})
	}
	assert.Equal(t, testutil.IDs("a", "z"), items.IDs())
}

func TestCloneIsDeep(t *testing.T) {
	items := New(testutil.Issue("a").SubIssues("b").Build())
	clone := items.Clone()

	a, _ := clone.GetMut("a")
	is, _ := a.Issue()
	is.SubIssues = append(is.SubIssues, "c")
	is.SubIssues[0] = "x"

	orig, _ := items.Get("a")
	origIssue, _ := orig.Issue()
	assert.Equal(t, testutil.IDs("b"), origIssue.SubIssues)
}

func TestRestore(t *testing.T) {
	items := New(testutil.Issue("a").Build(), testutil.Issue("b").Build())
	before := items.Clone()

	a, _ := items.GetMut("a")
	original := a.Clone()
	a.Title = "edited"

	items.Restore(map[types.WorkItemID]types.WorkItem{"a": original, "gone": original})

	assert.Equal(t, before, items)
}

func TestJSONRoundTrip(t *testing.T) {
	items := New(
		testutil.Issue("a").SubIssues("b").Epic(testutil.EpicAlpha).Build(),
		testutil.Issue("b").Parent("a").Unloaded(types.FieldKind).Build(),
		testutil.PullRequest("pr").Merged().Build(),
		testutil.Draft("d").Build(),
	)

	data, err := json.Marshal(items)
	require.NoError(t, err)

	var decoded WorkItems
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, items.IDs(), decoded.IDs())
	for item := range items.All() {
		got, ok := decoded.Get(item.ID)
		require.True(t, ok, item.ID)
		assert.Empty(t, classify.Diff(item, got), item.ID)
	}
}
