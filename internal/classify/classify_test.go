package classify

import (
	"testing"

	"github.com/steveyegge/ghtrack/internal/testutil"
	"github.com/steveyegge/ghtrack/internal/types"
)

func TestClassify(t *testing.T) {
	base := testutil.Issue("a").SubIssues("b", "c").Tracked("x").Epic(testutil.EpicAlpha).Build()

	tests := []struct {
		name   string
		mutate func(w *types.WorkItem)
		want   UpdateType
	}{
		{"no change", func(w *types.WorkItem) {}, NoUpdate},
		{"title", func(w *types.WorkItem) { w.Title = "renamed" }, SimpleChange},
		{"resource path", func(w *types.WorkItem) { w.ResourcePath = "/acme/widgets/issues/9" }, SimpleChange},
		{"tracked issues only", func(w *types.WorkItem) {
			w.Data.(*types.Issue).TrackedIssues = types.Loaded(testutil.IDs("x", "y"))
		}, SimpleChange},
		{"tracked issues unloaded", func(w *types.WorkItem) {
			w.Data.(*types.Issue).TrackedIssues = types.NotLoaded[[]types.WorkItemID]()
		}, SimpleChange},
		{"sub issues reordered", func(w *types.WorkItem) {
			w.Data.(*types.Issue).SubIssues = testutil.IDs("c", "b")
		}, ChangesHierarchy},
		{"parent", func(w *types.WorkItem) { w.Data.(*types.Issue).ParentID = "p" }, ChangesHierarchy},
		{"state", func(w *types.WorkItem) {
			w.Data.(*types.Issue).State = types.Loaded(types.IssueClosed)
		}, ChangesHierarchy},
		{"issue type", func(w *types.WorkItem) {
			w.Data.(*types.Issue).IssueType = types.Loaded("Bug")
		}, ChangesHierarchy},
		{"epic", func(w *types.WorkItem) { w.ProjectItem.Epic = types.OptionOf(testutil.EpicBeta) }, ChangesHierarchy},
		{"epic unloaded", func(w *types.WorkItem) { w.ProjectItem.Epic = types.NotLoaded[types.FieldOptionID]() }, ChangesHierarchy},
		{"estimate", func(w *types.WorkItem) { w.ProjectItem.Estimate = types.OptionOf("estimate-s") }, SimpleChange},
		{"repo", func(w *types.WorkItem) { w.RepoNameWithOwner = "acme/other" }, ChangesHierarchy},
		{"variant", func(w *types.WorkItem) { w.Data = &types.DraftIssue{} }, ChangesHierarchy},
		{"title and status", func(w *types.WorkItem) {
			w.Title = "x"
			w.ProjectItem.Status = types.OptionOf(testutil.StatusClosed)
		}, ChangesHierarchy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updated := base.Clone()
			tt.mutate(&updated)
			if got := Classify(&base, &updated); got != tt.want {
				t.Errorf("Classify() = %v, want %v (diff %v)", got, tt.want, Diff(&base, &updated))
			}
		})
	}
}

func TestClassifyNewEntity(t *testing.T) {
	item := testutil.Draft("d").Build()
	if got := Classify(nil, &item); got != ChangesHierarchy {
		t.Errorf("Classify(nil, item) = %v, want ChangesHierarchy", got)
	}
}

func TestDiffPullRequest(t *testing.T) {
	a := testutil.PullRequest("pr").Build()
	b := testutil.PullRequest("pr").Merged().Build()
	b.Data.(*types.PullRequest).Assignees = []string{"octocat"}

	got := Diff(&a, &b)
	want := []Field{PullRequestState, PullRequestAssignees}
	if len(got) != len(want) {
		t.Fatalf("Diff() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Diff()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestMax(t *testing.T) {
	if got := Max(); got != NoUpdate {
		t.Errorf("Max() = %v, want NoUpdate", got)
	}
	if got := Max(SimpleChange, NoUpdate, ChangesHierarchy, SimpleChange); got != ChangesHierarchy {
		t.Errorf("Max() = %v, want ChangesHierarchy", got)
	}
	if !(NoUpdate < SimpleChange && SimpleChange < ChangesHierarchy) {
		t.Error("update types are not ordered")
	}
}
