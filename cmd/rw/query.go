package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/rwallet/internal/config"
	"github.com/steveyegge/rwallet/internal/timeparsing"
	"github.com/steveyegge/rwallet/internal/types"
	"github.com/steveyegge/rwallet/internal/ui"
	"github.com/steveyegge/rwallet/internal/wallet"
)

var ownerCmd = &cobra.Command{
	Use:     "owner",
	Short:   "Show the stored owner",
	GroupID: "views",
	Long: `Show the owner as stored. A recovery that has met its threshold is not
applied by this read; 'rw status' shows the owner it would produce.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		var owner types.Identity
		err := app.run("get_owner", false, func(ctx context.Context) error {
			var err error
			owner, err = app.wallet.Owner(ctx)
			return err
		})
		if err != nil {
			exitWithError(err)
		}
		if jsonOutput {
			outputJSON(map[string]interface{}{"owner": owner})
			return
		}
		fmt.Println(owner.Hex())
	},
}

var balanceCmd = &cobra.Command{
	Use:     "balance",
	Short:   "Show the custody balance",
	GroupID: "views",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		var bal int64
		var cfg wallet.Config
		err := app.run("get_balance", false, func(ctx context.Context) error {
			var err error
			if bal, err = app.wallet.Balance(ctx); err != nil {
				return err
			}
			// The asset is informational; an uninitialized wallet still has a balance of 0.
			cfg, _ = app.wallet.Config(ctx)
			return nil
		})
		if err != nil {
			exitWithError(err)
		}
		if jsonOutput {
			outputJSON(map[string]interface{}{"balance": bal, "asset": cfg.CustodyAsset})
			return
		}
		if cfg.CustodyAsset == "" {
			fmt.Println(bal)
			return
		}
		fmt.Printf("%d %s\n", bal, cfg.CustodyAsset)
	},
}

var timeCmd = &cobra.Command{
	Use:     "time",
	Short:   "Show the ledger time used for recovery windows",
	GroupID: "views",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		now := app.wallet.LedgerTime()
		if jsonOutput {
			outputJSON(map[string]interface{}{"ledger_time": now})
			return
		}
		fmt.Println(formatLedgerTime(now))
	},
}

var manifestCmd = &cobra.Command{
	Use:     "manifest",
	Short:   "Print the wallet's settings as an init manifest",
	GroupID: "views",
	Long: `Print the current owner and the settings fixed at init in the format read
by 'rw init --manifest', so a wallet can be reproduced elsewhere.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		format, _ := cmd.Flags().GetString("format")

		var cfg wallet.Config
		err := app.run("manifest", false, func(ctx context.Context) error {
			var err error
			cfg, err = app.wallet.Config(ctx)
			return err
		})
		if err != nil {
			exitWithError(err)
		}

		m := manifestFor(cfg)
		var out []byte
		switch format {
		case "toml":
			out, err = m.EncodeTOML()
		case "yaml", "yml":
			out, err = m.EncodeYAML()
		default:
			FatalError("unknown format %q (want toml or yaml)", format)
		}
		if err != nil {
			FatalError("encode manifest: %v", err)
		}
		_, _ = os.Stdout.Write(out)
	},
}

func manifestFor(cfg wallet.Config) *config.Manifest {
	addrs := make([]string, len(cfg.RecoveryAddresses))
	for i, a := range cfg.RecoveryAddresses {
		addrs[i] = a.Hex()
	}
	return &config.Manifest{
		Owner:             cfg.Owner.Hex(),
		RecoveryAddresses: addrs,
		RecoveryThreshold: cfg.Threshold,
		RecoveryWindow:    timeparsing.FormatWindow(cfg.WindowSeconds),
		Asset:             cfg.CustodyAsset,
	}
}

var infoCmd = &cobra.Command{
	Use:     "info",
	Short:   "Show the wallet's owner, recovery set and settings",
	GroupID: "views",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		var cfg wallet.Config
		err := app.run("get_config", false, func(ctx context.Context) error {
			var err error
			cfg, err = app.wallet.Config(ctx)
			return err
		})
		if err != nil {
			exitWithError(err)
		}
		if jsonOutput {
			outputJSON(cfg)
			return
		}
		rows := []ui.KV{
			{Label: "Wallet", Value: app.wallet.Self().Hex()},
			{Label: "Owner", Value: cfg.Owner.Hex()},
			{Label: "Threshold", Value: fmt.Sprintf("%d of %d", cfg.Threshold, len(cfg.RecoveryAddresses))},
			{Label: "Window", Value: timeparsing.FormatWindow(cfg.WindowSeconds)},
		}
		if cfg.CustodyAsset != "" {
			rows = append(rows, ui.KV{Label: "Asset", Value: cfg.CustodyAsset})
		}
		for i, a := range cfg.RecoveryAddresses {
			rows = append(rows, ui.KV{Label: fmt.Sprintf("  recovery #%d", i+1), Value: a.Hex()})
		}
		fmt.Print(ui.Fields(rows...))
	},
}

func init() {
	manifestCmd.Flags().String("format", "toml", "Output format: toml or yaml")
	rootCmd.AddCommand(ownerCmd, balanceCmd, timeCmd, manifestCmd, infoCmd)
}
