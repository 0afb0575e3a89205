package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/rwallet/internal/config"
	"github.com/steveyegge/rwallet/internal/ui"
)

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "setup",
	Short:   "Manage configuration settings",
	Long: `Manage settings in .rwallet/config.yaml. Every key can also be set through
the environment as RW_<KEY>, with dots and dashes written as underscores.

Examples:
  rw config set backend dolt
  rw config set wallet.asset usd
  rw config set nats.url nats://127.0.0.1:4222
  rw config get backend
  rw config list`,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	Run: func(_ *cobra.Command, args []string) {
		key, value := args[0], args[1]
		if !config.IsKnownKey(key) {
			FatalErrorWithHint(fmt.Sprintf("unknown config key %q", key), "Run 'rw config list' to see the available keys")
		}
		if err := config.SetYamlConfig(key, value); err != nil {
			FatalError("setting config: %v", err)
		}
		if jsonOutput {
			outputJSON(map[string]interface{}{"key": key, "value": value})
			return
		}
		fmt.Printf("Set %s = %s\n", key, value)
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		key := args[0]
		if !config.IsKnownKey(key) {
			FatalErrorWithHint(fmt.Sprintf("unknown config key %q", key), "Run 'rw config list' to see the available keys")
		}
		value := config.GetString(key)
		if jsonOutput {
			outputJSON(map[string]interface{}{"key": key, "value": value})
			return
		}
		if value == "" {
			fmt.Printf("%s (not set)\n", key)
			return
		}
		fmt.Println(value)
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configuration keys and their values",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		keys := config.SortedKnownKeys()
		if jsonOutput {
			out := make(map[string]string, len(keys))
			for _, k := range keys {
				out[k] = config.GetString(k)
			}
			outputJSON(out)
			return
		}

		if path := config.ConfigFileUsed(); path != "" {
			fmt.Fprintf(os.Stderr, "%s\n\n", ui.RenderMuted("Config file: "+path))
		}
		rows := make([]ui.KV, 0, len(keys))
		for _, k := range keys {
			v := config.GetString(k)
			if v == "" {
				v = ui.RenderMuted("(not set)")
			}
			rows = append(rows, ui.KV{Label: k, Value: v})
		}
		fmt.Print(ui.Fields(rows...))
	},
}

func init() {
	configCmd.AddCommand(configSetCmd, configGetCmd, configListCmd)
	rootCmd.AddCommand(configCmd)
}
