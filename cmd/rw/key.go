package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/steveyegge/rwallet/internal/auth"
	"github.com/steveyegge/rwallet/internal/config"
	"github.com/steveyegge/rwallet/internal/ui"
)

var keyCmd = &cobra.Command{
	Use:     "key",
	Short:   "Create and inspect signing keys",
	GroupID: "setup",
}

var keyNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Generate a secp256k1 key and print its address",
	Long: `Generate a key and write it hex-encoded to --out (default
.rwallet/keys/<address>.key). Existing files are never overwritten.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		key, err := auth.GenerateKey()
		if err != nil {
			FatalError("generate key: %v", err)
		}
		addr := auth.Address(key)

		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = filepath.Join(config.WalletDir(), "keys", addr.Hex()+".key")
		}
		if err := auth.SaveKey(out, key); err != nil {
			FatalError("%v", err)
		}

		if jsonOutput {
			outputJSON(map[string]interface{}{"address": addr, "path": out})
			return
		}
		fmt.Printf("%s Key for %s written to %s\n", ui.RenderPassIcon(), addr.Hex(), out)
	},
}

var keyAddressCmd = &cobra.Command{
	Use:   "address <keyfile>",
	Short: "Print the address controlled by a key file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		key, err := auth.LoadKey(args[0])
		if err != nil {
			FatalError("%v", err)
		}
		addr := auth.Address(key)
		if jsonOutput {
			outputJSON(map[string]interface{}{"address": addr})
			return
		}
		fmt.Println(addr.Hex())
	},
}

func init() {
	keyNewCmd.Flags().StringP("out", "o", "", "Path to write the key to")
	keyCmd.AddCommand(keyNewCmd, keyAddressCmd)
	rootCmd.AddCommand(keyCmd)
}
