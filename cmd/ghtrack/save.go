package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/steveyegge/ghtrack/internal/changes"
	"github.com/steveyegge/ghtrack/internal/debug"
	"github.com/steveyegge/ghtrack/internal/types"
	"github.com/steveyegge/ghtrack/internal/ui"
)

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Commit pending changes to GitHub",
	Long: `Sends every pending change to GitHub once and reloads the affected items.
Changes that fail stay pending and are retried on the next save.`,
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		yes, _ := cmd.Flags().GetBool("yes")
		a := mustApp(true)

		pending := a.Changes()
		if len(pending) == 0 {
			if jsonOutput {
				outputJSON(map[string]any{"changed": []types.WorkItemID{}, "pending": 0})
				return
			}
			fmt.Println("No pending changes")
			return
		}

		progress := func(ch changes.Change, done, total int) {
			if !jsonOutput && !debug.IsQuiet() {
				fmt.Printf("[%d/%d] %s\n", done, total, ui.ChangeLine(string(ch.WorkItemID), a.Describe(ch)))
			}
		}

		if dryRun {
			if err := a.SaveDryRun(rootCtx, progress); err != nil {
				fatal(err)
			}
			if jsonOutput {
				outputJSON(pending)
			}
			return
		}

		if !yes && !jsonOutput && ui.IsTerminal() {
			confirmed := false
			form := huh.NewForm(
				huh.NewGroup(
					huh.NewConfirm().
						Title(fmt.Sprintf("Send %d changes to GitHub?", len(pending))).
						Affirmative("Save").
						Negative("Cancel").
						Value(&confirmed),
				),
			).WithTheme(huh.ThemeDracula())
			err := form.Run()
			if err != nil && err != huh.ErrUserAborted {
				fatal(err)
			}
			if !confirmed {
				fmt.Fprintln(os.Stderr, "Cancelled")
				return
			}
		}

		changed, err := a.Save(rootCtx, progress)
		left := len(a.Changes())
		if err != nil {
			fatal(fmt.Errorf("%w (%d changes still pending)", err, left))
		}
		if jsonOutput {
			if changed == nil {
				changed = []types.WorkItemID{}
			}
			outputJSON(map[string]any{"changed": changed, "pending": left})
			return
		}
		if left > 0 {
			fmt.Printf("%s %d changes failed and stay pending\n", ui.RenderFail(ui.IconFail), left)
		}
		debug.PrintNormal("%s Updated %d work items\n", ui.RenderPass(ui.IconPass), len(changed))
	},
}

func init() {
	saveCmd.Flags().Bool("dry-run", false, "List what would be sent without contacting GitHub")
	saveCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(saveCmd)
}
