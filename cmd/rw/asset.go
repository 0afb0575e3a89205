package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/rwallet/internal/types"
	"github.com/steveyegge/rwallet/internal/ui"
)

var assetCmd = &cobra.Command{
	Use:     "asset",
	Short:   "Manage the local development asset ledger",
	GroupID: "custody",
	Long: `The development ledger keeps asset balances next to the wallet so deposits
and withdrawals can be tried locally. Minting is unrestricted.`,
}

var assetMintCmd = &cobra.Command{
	Use:   "mint <address> <amount>",
	Short: "Credit an address with new units of an asset",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		to, err := types.ParseIdentity(args[0])
		if err != nil {
			exitWithError(err)
		}
		amount := parseAmount(args[1])
		assetID := assetFlag(cmd)

		var bal int64
		err = app.run("asset_mint", true, func(ctx context.Context) error {
			if err := app.ledger.Mint(ctx, assetID, to, amount); err != nil {
				return err
			}
			var err error
			bal, err = app.ledger.BalanceOf(ctx, assetID, to)
			return err
		})
		if err != nil {
			exitWithError(err)
		}

		if jsonOutput {
			outputJSON(map[string]interface{}{"address": to, "asset": assetID, "balance": bal})
			return
		}
		fmt.Printf("%s Minted %d %s to %s (balance %d)\n", ui.RenderPassIcon(), amount, assetID, to.Hex(), bal)
	},
}

var assetBalanceCmd = &cobra.Command{
	Use:   "balance [address]",
	Short: "Show an address's ledger balance (default: the wallet account)",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		who := app.wallet.Self()
		if len(args) == 1 {
			var err error
			if who, err = types.ParseIdentity(args[0]); err != nil {
				exitWithError(err)
			}
		}
		assetID := assetFlag(cmd)

		var bal int64
		err := app.run("asset_balance", false, func(ctx context.Context) error {
			var err error
			bal, err = app.ledger.BalanceOf(ctx, assetID, who)
			return err
		})
		if err != nil {
			exitWithError(err)
		}

		if jsonOutput {
			outputJSON(map[string]interface{}{"address": who, "asset": assetID, "balance": bal})
			return
		}
		fmt.Printf("%d %s\n", bal, assetID)
	},
}

func init() {
	assetMintCmd.Flags().String("asset", "", "Asset ID (default: config wallet.asset)")
	assetBalanceCmd.Flags().String("asset", "", "Asset ID (default: config wallet.asset)")
	assetCmd.AddCommand(assetMintCmd, assetBalanceCmd)
	rootCmd.AddCommand(assetCmd)
}
