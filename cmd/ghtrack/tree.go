package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steveyegge/ghtrack/internal/app"
	"github.com/steveyegge/ghtrack/internal/debug"
	"github.com/steveyegge/ghtrack/internal/fields"
	"github.com/steveyegge/ghtrack/internal/types"
	"github.com/steveyegge/ghtrack/internal/ui"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Load the project's fields and work items",
	Long: `Loads the field catalog and every work item of the project. Cached data is
used when present; --force always fetches from GitHub and rewrites the cache.`,
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")
		a := mustApp(false)

		if !jsonOutput && !debug.IsQuiet() && ui.IsTerminal() {
			a.SetWatcher(progressPrinter())
		}
		if err := a.Refresh(rootCtx, force); err != nil {
			fatal(err)
		}
		a.SetWatcher(nil)

		snap, err := a.Snapshot()
		if err != nil {
			fatal(err)
		}
		if jsonOutput {
			outputJSON(map[string]int{
				"work_items": snap.WorkItems.Len(),
				"changes":    len(snap.Changes),
			})
			return
		}
		debug.PrintNormal("%s Loaded %d work items\n", ui.RenderPass(ui.IconPass), snap.WorkItems.Len())
		if n := len(snap.Changes); n > 0 {
			debug.PrintNormal("%s %d pending changes\n", ui.RenderWarn(ui.IconWarn), n)
		}
	},
}

// progressPrinter redraws a single progress line on stderr.
func progressPrinter() app.Watcher {
	return func(u app.DataUpdate) {
		p, ok := u.(app.Progress)
		if !ok {
			return
		}
		if p.Total == 0 {
			fmt.Fprint(os.Stderr, "\r\033[K")
			return
		}
		fmt.Fprintf(os.Stderr, "\r\033[KFetching %d/%d", p.Done, p.Total)
	}
}

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Show work items as a sub-issue tree",
	Run: func(cmd *cobra.Command, args []string) {
		noPager, _ := cmd.Flags().GetBool("no-pager")
		a := mustApp(false)
		if cmd.Flags().Changed("hide-closed") {
			hide, _ := cmd.Flags().GetBool("hide-closed")
			a.SetFilters(app.Filters{HideClosed: hide})
		}
		if cmd.Flags().Changed("preview") {
			preview, _ := cmd.Flags().GetBool("preview")
			a.SetPreview(preview)
		}
		if err := a.Refresh(rootCtx, false); err != nil {
			fatal(err)
		}
		snap, err := a.Snapshot()
		if err != nil {
			fatal(err)
		}
		if jsonOutput {
			outputJSON(snap)
			return
		}
		if err := ui.ToPager(os.Stdout, ui.RenderTree(treeRows(snap)), ui.PagerOptions{NoPager: noPager}); err != nil {
			fatal(err)
		}
	},
}

// treeRows turns the node list of a snapshot into printable rows.
func treeRows(d *app.Data) []ui.Row {
	rows := make([]ui.Row, 0, len(d.Nodes))
	for _, n := range d.Nodes {
		if n.Kind == app.NodeGroup {
			rows = append(rows, ui.Row{Level: n.Level, Text: n.Name, Group: true})
			continue
		}
		item, ok := d.WorkItems.Get(types.WorkItemID(n.ID))
		if !ok {
			continue
		}
		closed, _ := item.IsClosed().Get()
		rows = append(rows, ui.Row{
			Level:    n.Level,
			Text:     item.Title,
			Detail:   itemDetail(d.Fields, item),
			Modified: n.IsModified,
			Closed:   closed,
		})
	}
	return rows
}

func itemDetail(f *fields.Fields, item *types.WorkItem) string {
	var parts []string
	if item.ResourcePath != "" {
		parts = append(parts, item.Describe())
	}
	for _, pf := range []types.ProjectField{types.FieldStatus, types.FieldKind, types.FieldIteration} {
		if name := f.ValueName(pf, *item.ProjectItem.Field(pf)); name != "" {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, " · ")
}

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List the project's custom fields and their options",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp(true)
		snap, err := a.Snapshot()
		if err != nil {
			fatal(err)
		}
		if jsonOutput {
			outputJSON(snap.Fields)
			return
		}
		for _, pf := range types.AllFields {
			f := snap.Fields.Field(pf)
			if f == nil || f.ID == "" {
				fmt.Printf("%s %s\n", ui.RenderCategory(string(pf)), ui.RenderMuted("(missing)"))
				continue
			}
			fmt.Println(ui.RenderCategory(f.Name))
			for _, o := range f.Options {
				fmt.Printf("  %s %s\n", o.Name, ui.RenderMuted(string(o.ID)))
			}
		}
	},
}

func init() {
	refreshCmd.Flags().Bool("force", false, "Fetch from GitHub even when cached data exists")
	treeCmd.Flags().Bool("no-pager", false, "Disable pager output")
	treeCmd.Flags().Bool("hide-closed", false, "Hide closed items that have no open descendants")
	treeCmd.Flags().Bool("preview", true, "Show pending changes applied")
	rootCmd.AddCommand(refreshCmd, treeCmd, fieldsCmd)
}
