package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/steveyegge/ghtrack/internal/config"
	"github.com/steveyegge/ghtrack/internal/debug"
	"github.com/steveyegge/ghtrack/internal/telemetry"
	"github.com/steveyegge/ghtrack/internal/ui"
)

var (
	jsonOutput  bool
	verboseFlag bool
	quietFlag   bool

	// Signal-aware context for graceful cancellation
	rootCtx    context.Context
	rootCancel context.CancelFunc
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output (errors only)")
}

var rootCmd = &cobra.Command{
	Use:   "ghtrack",
	Short: "ghtrack - GitHub project work item tracker",
	Long: `Keeps a local copy of a GitHub project's work items, shows them as a
sub-issue tree and queues field edits locally until they are saved.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		rootCtx, rootCancel = ctx, cancel

		debug.SetVerbose(verboseFlag)
		debug.SetQuiet(quietFlag)

		if err := config.Initialize(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to initialize config: %v\n", err)
		}
		ui.InitColor()

		if err := telemetry.Init(rootCtx, telemetry.SettingsFromEnv(), "ghtrack", Version); err != nil {
			debug.Logf("telemetry disabled: %v", err)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeApp()
		if err := telemetry.Shutdown(context.Background()); err != nil {
			debug.Logf("telemetry shutdown: %v", err)
		}
		if rootCancel != nil {
			rootCancel()
		}
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
