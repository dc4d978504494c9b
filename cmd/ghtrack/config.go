package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/ghtrack/internal/config"
	"github.com/steveyegge/ghtrack/internal/debug"
	"github.com/steveyegge/ghtrack/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change configuration",
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a config value",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		value := config.Get(args[0])
		if jsonOutput {
			outputJSON(map[string]any{"key": args[0], "value": value})
			return
		}
		fmt.Println(displayValue(args[0], value))
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a value in the project config file",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := config.SetYamlConfig(args[0], args[1]); err != nil {
			fatal(err)
		}
		if !jsonOutput {
			debug.PrintNormal("%s Set %s = %s\n", ui.RenderPass(ui.IconPass), args[0], args[1])
		}
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all config values",
	Run: func(cmd *cobra.Command, args []string) {
		keys := config.AllKeys()
		if jsonOutput {
			out := make(map[string]any, len(keys))
			for _, k := range keys {
				out[k] = displayValue(k, config.Get(k))
			}
			outputJSON(out)
			return
		}
		if f := config.ConfigFileUsed(); f != "" {
			fmt.Println(ui.RenderMuted("# " + f))
		}
		for _, k := range keys {
			fmt.Printf("%s = %v\n", k, displayValue(k, config.Get(k)))
		}
	},
}

// displayValue hides secrets.
func displayValue(key string, value any) any {
	if key == "github.token" {
		if s, _ := value.(string); s != "" {
			return "********"
		}
	}
	return value
}

func init() {
	configCmd.AddCommand(configGetCmd, configSetCmd, configListCmd)
	rootCmd.AddCommand(configCmd)
}
