package sanitize

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/ghtrack/internal/changes"
	"github.com/steveyegge/ghtrack/internal/testutil"
	"github.com/steveyegge/ghtrack/internal/types"
	"github.com/steveyegge/ghtrack/internal/workitems"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func sanitize(items ...types.WorkItem) []changes.Change {
	return Sanitize(workitems.New(items...), testutil.Fields(), DefaultRules(), discard).List()
}

func TestClosedStatus(t *testing.T) {
	tests := []struct {
		name string
		item types.WorkItem
		want []changes.Change
	}{
		{"closed issue", testutil.Issue("a").Closed().Status(testutil.StatusInProgress).Build(),
			[]changes.Change{changes.Field("a", types.FieldStatus, testutil.StatusClosed)}},
		{"closed issue blank status", testutil.Issue("a").Closed().Build(),
			[]changes.Change{changes.Field("a", types.FieldStatus, testutil.StatusClosed)}},
		{"already closed", testutil.Issue("a").Closed().Status(testutil.StatusClosed).Build(), nil},
		{"open issue", testutil.Issue("a").Status(testutil.StatusTodo).Build(), nil},
		{"merged pr", testutil.PullRequest("a").Merged().Build(),
			[]changes.Change{changes.Field("a", types.FieldStatus, testutil.StatusClosed)}},
		{"closed pr", testutil.PullRequest("a").Closed().Build(),
			[]changes.Change{changes.Field("a", types.FieldStatus, testutil.StatusClosed)}},
		{"draft", testutil.Draft("a").Build(), nil},
		{"status not loaded", testutil.Issue("a").Closed().Unloaded(types.FieldStatus).Build(), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitize(tt.item))
		})
	}
}

func TestBugIssueType(t *testing.T) {
	tests := []struct {
		name string
		item types.WorkItem
		want []changes.Change
	}{
		{"bug without type", testutil.Issue("a").Kind(testutil.KindBug).Build(),
			[]changes.Change{changes.IssueType("a", "Bug")}},
		{"bug with other type", testutil.Issue("a").Kind(testutil.KindBug).IssueType("Feature").Build(),
			[]changes.Change{changes.IssueType("a", "Bug")}},
		{"bug already typed", testutil.Issue("a").Kind(testutil.KindBug).IssueType("Bug").Build(), nil},
		{"feature", testutil.Issue("a").Kind(testutil.KindFeature).Build(), nil},
		{"pull request", testutil.PullRequest("a").Kind(testutil.KindBug).Build(), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitize(tt.item))
		})
	}
}

func TestEpicFromParent(t *testing.T) {
	got := sanitize(
		testutil.Issue("root").Epic(testutil.EpicAlpha).SubIssues("child").Build(),
		testutil.Issue("child").Parent("root").Build(),
	)
	assert.Equal(t, []changes.Change{changes.Field("child", types.FieldEpic, testutil.EpicAlpha)}, got)
}

func TestEpicFromGrandparent(t *testing.T) {
	got := sanitize(
		testutil.Issue("root").Epic(testutil.EpicAlpha).SubIssues("mid").Build(),
		testutil.Issue("mid").Parent("root").SubIssues("leaf").Build(),
		testutil.Issue("leaf").Parent("mid").Build(),
	)
	assert.Equal(t, []changes.Change{
		changes.Field("mid", types.FieldEpic, testutil.EpicAlpha),
		changes.Field("leaf", types.FieldEpic, testutil.EpicAlpha),
	}, got)
}

func TestEpicNeverOverwritesNonBlank(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	items := workitems.New(
		testutil.Issue("root").Epic(testutil.EpicAlpha).SubIssues("mid").Path("/acme/widgets/issues/1").Build(),
		testutil.Issue("mid").Parent("root").Epic(testutil.EpicBeta).SubIssues("leaf").Path("/acme/widgets/issues/2").Build(),
		testutil.Issue("leaf").Parent("mid").Build(),
	)

	got := Sanitize(items, testutil.Fields(), DefaultRules(), log).List()

	// leaf inherits from the root, not from its mismatched parent.
	assert.Equal(t, []changes.Change{changes.Field("leaf", types.FieldEpic, testutil.EpicAlpha)}, got)
	assert.Contains(t, buf.String(), "https://github.com/acme/widgets/issues/2 - epic is 'Beta', should be 'Alpha'")
}

func TestEpicFromChildOwnValue(t *testing.T) {
	got := sanitize(
		testutil.Issue("root").SubIssues("mid").Build(),
		testutil.Issue("mid").Parent("root").Epic(testutil.EpicBeta).SubIssues("leaf").Build(),
		testutil.Issue("leaf").Parent("mid").Build(),
	)
	assert.Equal(t, []changes.Change{changes.Field("leaf", types.FieldEpic, testutil.EpicBeta)}, got)
}

func TestMissingChildAddedToProject(t *testing.T) {
	got := sanitize(
		testutil.Issue("root").SubIssues("ghost", "ghost2").Build(),
		testutil.Issue("other").SubIssues("ghost").Build(),
	)
	assert.Equal(t, []changes.Change{changes.Add("ghost"), changes.Add("ghost2")}, got)
}

func TestCycleIsIgnored(t *testing.T) {
	got := sanitize(
		testutil.Issue("root").Epic(testutil.EpicAlpha).SubIssues("a").Build(),
		testutil.Issue("a").SubIssues("b").Build(),
		testutil.Issue("b").SubIssues("a").Build(),
	)
	assert.Equal(t, []changes.Change{
		changes.Field("a", types.FieldEpic, testutil.EpicAlpha),
		changes.Field("b", types.FieldEpic, testutil.EpicAlpha),
	}, got)
}

func TestMilestoneEpics(t *testing.T) {
	rules := DefaultRules()
	rules.MilestoneEpics = map[string]string{"M1": "Beta"}
	items := workitems.New(
		testutil.Issue("root").Set(types.FieldProjectMilestone, testutil.MilestoneM1).SubIssues("child").Build(),
		testutil.Issue("child").Build(),
		testutil.Issue("tagged").Epic(testutil.EpicAlpha).Set(types.FieldProjectMilestone, testutil.MilestoneM1).Build(),
	)

	got := Sanitize(items, testutil.Fields(), rules, discard).List()

	assert.Equal(t, []changes.Change{
		changes.Field("root", types.FieldEpic, testutil.EpicBeta),
		changes.Field("child", types.FieldEpic, testutil.EpicBeta),
	}, got)
}

func TestConvertTrackedToSubIssues(t *testing.T) {
	items := workitems.New(
		testutil.Issue("parent").Tracked("free", "owned", "pr", "missing", "draft").Build(),
		testutil.Issue("free").Build(),
		testutil.Issue("owned").Parent("elsewhere").Build(),
		testutil.PullRequest("pr").Build(),
		testutil.Draft("draft").Build(),
		testutil.Issue("elsewhere").SubIssues("owned").Build(),
	)

	got := ConvertTrackedToSubIssues(items, "parent", discard)
	require.Equal(t, []changes.Change{changes.Parent("free", "parent")}, got.List())

	got.Apply(items)
	again := ConvertTrackedToSubIssues(items, "parent", discard)
	assert.Equal(t, 0, again.Len())

	assert.Equal(t, 0, ConvertTrackedToSubIssues(items, "nope", discard).Len())
	assert.Equal(t, 0, ConvertTrackedToSubIssues(items, "pr", discard).Len())
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
closed_status = "Done"

[milestone_epics]
"M1" = "Alpha"
`), 0o600))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, "Done", rules.ClosedStatus)
	assert.Equal(t, "Bug", rules.BugKind)
	assert.Equal(t, map[string]string{"M1": "Alpha"}, rules.MilestoneEpics)

	defaults, err := LoadRules("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), defaults)

	require.NoError(t, os.WriteFile(path, []byte(`closed_state = "Done"`), 0o600))
	_, err = LoadRules(path)
	assert.Error(t, err)
}
