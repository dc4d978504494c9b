package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/ghtrack/internal/changes"
	"github.com/steveyegge/ghtrack/internal/debug"
	"github.com/steveyegge/ghtrack/internal/types"
	"github.com/steveyegge/ghtrack/internal/ui"
)

var sanitizeCmd = &cobra.Command{
	Use:   "sanitize",
	Short: "Queue changes that fix inconsistent work items",
	Long: `Checks every work item against the sanitize rules and queues the fixes:

  - closed issues and pull requests get the closed status
  - items of the bug kind get the Bug issue type
  - epics are inherited down the sub-issue tree
  - sub-issues missing from the project are added

Inconsistencies that cannot be fixed automatically are reported as warnings.
With --save the queued changes are committed right away.`,
	Run: func(cmd *cobra.Command, args []string) {
		save, _ := cmd.Flags().GetBool("save")
		a := mustApp(true)
		out, err := a.Sanitize(rootCtx)
		if err != nil {
			fatal(err)
		}
		if !save || out.Len() == 0 {
			printQueued(a.Describe, out)
			return
		}
		changed, err := a.Save(rootCtx, nil)
		if err != nil {
			fatal(err)
		}
		left := len(a.Changes())
		if jsonOutput {
			if changed == nil {
				changed = []types.WorkItemID{}
			}
			outputJSON(map[string]any{"queued": out.Len(), "changed": changed, "pending": left})
			return
		}
		if left > 0 {
			fmt.Printf("%s %d changes failed and stay pending\n", ui.RenderFail(ui.IconFail), left)
		}
		debug.PrintNormal("%s Sanitized %d work items\n", ui.RenderPass(ui.IconPass), len(changed))
	},
}

var convertTrackedCmd = &cobra.Command{
	Use:   "convert-tracked <item-id>",
	Short: "Queue changes turning tracked issues into sub-issues",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp(true)
		out, err := a.ConvertTrackedToSubIssues(rootCtx, types.WorkItemID(args[0]))
		if err != nil {
			fatal(err)
		}
		printQueued(a.Describe, out)
	},
}

func printQueued(describe func(changes.Change) string, out *changes.Changes) {
	if jsonOutput {
		outputJSON(out)
		return
	}
	if out.Len() == 0 {
		fmt.Println("Nothing to do")
		return
	}
	for ch := range out.All() {
		fmt.Println(ui.ChangeLine(string(ch.WorkItemID), describe(ch)))
	}
	debug.PrintNormal("\n%s Queued %d changes; run 'ghtrack save' to commit them\n", ui.RenderPass(ui.IconPass), out.Len())
}

func init() {
	sanitizeCmd.Flags().Bool("save", false, "Commit the queued changes to GitHub")
	rootCmd.AddCommand(sanitizeCmd, convertTrackedCmd)
}
