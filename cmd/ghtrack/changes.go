package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steveyegge/ghtrack/internal/changes"
	"github.com/steveyegge/ghtrack/internal/debug"
	"github.com/steveyegge/ghtrack/internal/fields"
	"github.com/steveyegge/ghtrack/internal/types"
	"github.com/steveyegge/ghtrack/internal/ui"
)

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Manage pending changes",
	Long: `Pending changes are local edits that have not been sent to GitHub yet.
They survive restarts and are committed with 'ghtrack save'.`,
}

var changesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending changes",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp(true)
		list := a.Changes()
		if jsonOutput {
			if list == nil {
				list = []changes.Change{}
			}
			outputJSON(list)
			return
		}
		if len(list) == 0 {
			fmt.Println("No pending changes")
			return
		}
		for _, ch := range list {
			fmt.Println(ui.ChangeLine(string(ch.WorkItemID), a.Describe(ch)))
		}
	},
}

var changesAddCmd = &cobra.Command{
	Use:   "add <item-id> <kind> [value]",
	Short: "Queue a change",
	Long: `Queues a change for a work item, replacing any pending change of the same
kind for that item. kind is a field name (Status, Epic, ...), IssueType,
SetParent or AddToProject. Field values are option names; an empty or
missing value clears the field.

Examples:
  ghtrack changes add I_kwDO123 Status "In Progress"
  ghtrack changes add I_kwDO123 IssueType Bug
  ghtrack changes add I_kwDO123 SetParent I_kwDO456
  ghtrack changes add I_kwDO789 AddToProject`,
	Args: cobra.RangeArgs(2, 3),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp(true)
		snap, err := a.Snapshot()
		if err != nil {
			fatal(err)
		}
		value := ""
		if len(args) == 3 {
			value = args[2]
		}
		ch, err := parseChange(snap.Fields, types.WorkItemID(args[0]), args[1], value)
		if err != nil {
			fatal(err)
		}
		a.AddChange(rootCtx, ch)
		if jsonOutput {
			outputJSON(ch)
			return
		}
		debug.PrintNormal("%s Queued %s\n", ui.RenderPass(ui.IconPass), ui.ChangeLine(string(ch.WorkItemID), a.Describe(ch)))
	},
}

var changesRemoveCmd = &cobra.Command{
	Use:   "remove <item-id> <kind>",
	Short: "Drop a pending change",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp(false)
		kind, err := parseKind(args[1])
		if err != nil {
			fatal(err)
		}
		key := changes.Key{WorkItemID: types.WorkItemID(args[0]), Kind: kind}
		found := false
		for _, ch := range a.Changes() {
			if ch.Key() == key {
				a.RemoveChange(rootCtx, ch)
				found = true
				break
			}
		}
		if !found {
			fatal(fmt.Errorf("no pending %s change for %s", kind, args[0]))
		}
		if !jsonOutput {
			debug.PrintNormal("%s Removed %s change for %s\n", ui.RenderPass(ui.IconPass), kind, args[0])
		}
	},
}

var changesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop all pending changes",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp(false)
		n := len(a.Changes())
		a.ClearChanges(rootCtx)
		if jsonOutput {
			outputJSON(map[string]int{"removed": n})
			return
		}
		debug.PrintNormal("%s Removed %d pending changes\n", ui.RenderPass(ui.IconPass), n)
	},
}

// parseKind accepts a change kind by name, case-insensitively.
func parseKind(s string) (changes.Kind, error) {
	for _, k := range []changes.Kind{changes.KindIssueType, changes.KindSetParent, changes.KindAddToProject} {
		if strings.EqualFold(s, string(k)) {
			return k, nil
		}
	}
	for _, pf := range types.WritableFields {
		if strings.EqualFold(s, string(pf)) {
			return changes.Kind(pf), nil
		}
	}
	return "", fmt.Errorf("unknown change kind %q", s)
}

// parseChange builds a change from command line arguments, resolving
// option names through the field catalog.
func parseChange(f *fields.Fields, id types.WorkItemID, kind, value string) (changes.Change, error) {
	k, err := parseKind(kind)
	if err != nil {
		return changes.Change{}, err
	}
	switch k {
	case changes.KindIssueType:
		return changes.IssueType(id, value), nil
	case changes.KindSetParent:
		if value == "" {
			return changes.Change{}, fmt.Errorf("SetParent needs a parent id")
		}
		return changes.Parent(id, types.WorkItemID(value)), nil
	case changes.KindAddToProject:
		return changes.Add(id), nil
	}

	pf := types.ProjectField(k)
	if value == "" {
		return changes.Field(id, pf, ""), nil
	}
	field := f.Field(pf)
	option, ok := field.OptionID(value)
	if !ok {
		var names []string
		if field != nil {
			for _, o := range field.Options {
				names = append(names, o.Name)
			}
		}
		return changes.Change{}, fmt.Errorf("%s has no option %q (options: %s)", pf, value, strings.Join(names, ", "))
	}
	return changes.Field(id, pf, option), nil
}

func init() {
	changesCmd.AddCommand(changesListCmd, changesAddCmd, changesRemoveCmd, changesClearCmd)
	rootCmd.AddCommand(changesCmd)
}
