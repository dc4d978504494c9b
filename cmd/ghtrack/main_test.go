package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/ghtrack/internal/app"
	"github.com/steveyegge/ghtrack/internal/changes"
	"github.com/steveyegge/ghtrack/internal/testutil"
	"github.com/steveyegge/ghtrack/internal/types"
	"github.com/steveyegge/ghtrack/internal/workitems"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    changes.Kind
		wantErr bool
	}{
		{"Status", changes.KindStatus, false},
		{"status", changes.KindStatus, false},
		{"issuetype", changes.KindIssueType, false},
		{"SetParent", changes.KindSetParent, false},
		{"AddToProject", changes.KindAddToProject, false},
		{"Project Milestone", "", true},
		{"bogus", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseKind(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseChange(t *testing.T) {
	f := testutil.Fields()
	tests := []struct {
		name    string
		kind    string
		value   string
		want    changes.Change
		wantErr string
	}{
		{"field option", "Status", "In Progress", changes.Field("a", types.FieldStatus, testutil.StatusInProgress), ""},
		{"clear field", "Epic", "", changes.Field("a", types.FieldEpic, ""), ""},
		{"iteration", "Iteration", "Iteration 2", changes.Field("a", types.FieldIteration, testutil.IterationTwo), ""},
		{"unknown option", "Status", "Done", changes.Change{}, "options: Todo, In Progress, Closed"},
		{"issue type", "IssueType", "Bug", changes.IssueType("a", "Bug"), ""},
		{"parent", "SetParent", "b", changes.Parent("a", "b"), ""},
		{"parent missing", "SetParent", "", changes.Change{}, "needs a parent"},
		{"add", "AddToProject", "", changes.Add("a"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseChange(f, "a", tt.kind, tt.value)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTreeRows(t *testing.T) {
	items := workitems.New(
		testutil.Issue("a").Title("Parent").Path("/acme/widgets/issues/1").Status(testutil.StatusTodo).SubIssues("b").Build(),
		testutil.Issue("b").Title("Child").Closed().Build(),
	)
	d := &app.Data{
		Fields:    testutil.Fields(),
		WorkItems: items,
		Nodes: []app.Node{
			{Level: 0, ID: "a", Kind: app.NodeItem, HasChildren: true},
			{Level: 1, ID: "a/Alpha", Kind: app.NodeGroup, Name: "Alpha", HasChildren: true},
			{Level: 2, ID: "b", Kind: app.NodeItem, IsModified: true},
			{Level: 0, ID: "gone", Kind: app.NodeItem},
		},
	}

	rows := treeRows(d)

	require.Len(t, rows, 3)
	assert.Equal(t, "Parent", rows[0].Text)
	assert.Equal(t, "https://github.com/acme/widgets/issues/1 · Todo", rows[0].Detail)
	assert.True(t, rows[1].Group)
	assert.Equal(t, "Alpha", rows[1].Text)
	assert.True(t, rows[2].Closed)
	assert.True(t, rows[2].Modified)
	assert.Equal(t, 2, rows[2].Level)
}

func TestDisplayValueHidesToken(t *testing.T) {
	assert.Equal(t, "********", displayValue("github.token", "ghp_secret"))
	assert.Equal(t, "", displayValue("github.token", ""))
	assert.Equal(t, 7, displayValue("project.number", 7))
}

func TestOpenStoreFallsBack(t *testing.T) {
	t.Cleanup(closeApp)
	ctx := context.Background()
	dir := t.TempDir()

	bad := filepath.Join(dir, "cache.db")
	require.NoError(t, os.WriteFile(bad, bytes.Repeat([]byte("not a database "), 300), 0o600))
	store := openStore(ctx, bad)
	require.NotNil(t, store)
	assert.NotNil(t, appCache)
	closeApp()

	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))
	assert.Nil(t, openStore(ctx, filepath.Join(blocker, "cache.db")))
	assert.Nil(t, appCache)
}
