package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/steveyegge/rwallet/internal/config"
	"github.com/steveyegge/rwallet/internal/types"
	"github.com/steveyegge/rwallet/internal/ui"
	"github.com/steveyegge/rwallet/internal/wallet"
)

var depositCmd = &cobra.Command{
	Use:     "deposit <amount>",
	Short:   "Move funds from an account into the wallet",
	GroupID: "custody",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		amount := parseAmount(args[0])
		assetID := assetFlag(cmd)
		from, key, err := resolveSigner(cmd, "from")
		if err != nil {
			exitWithError(err)
		}

		var bal int64
		err = app.run("deposit", true, func(ctx context.Context) error {
			proof, err := prove(key, wallet.DepositAction(app.wallet.Self(), from, assetID, amount))
			if err != nil {
				return err
			}
			if err := app.wallet.Deposit(ctx, from, assetID, amount, proof); err != nil {
				return err
			}
			bal, err = app.wallet.Balance(ctx)
			return err
		})
		if err != nil {
			exitWithError(err)
		}

		if jsonOutput {
			outputJSON(map[string]interface{}{"balance": bal, "asset": assetID, "events": app.emitted()})
			return
		}
		fmt.Printf("%s Deposited %d %s from %s (balance %d)\n", ui.RenderPassIcon(), amount, assetID, from.Hex(), bal)
	},
}

var withdrawCmd = &cobra.Command{
	Use:     "withdraw <amount>",
	Short:   "Move funds from the wallet to its owner",
	GroupID: "custody",
	Long: `Withdraw to the current owner. The owner's key must sign; if a recovery
has met its threshold, it is applied first and the new owner must sign.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		amount := parseAmount(args[0])
		assetID := assetFlag(cmd)
		_, key, err := resolveSigner(cmd, "")
		if err != nil && config.GetBool("auth.verify") {
			exitWithError(err)
		}

		var bal int64
		var owner types.Identity
		err = app.run("withdraw", true, func(ctx context.Context) error {
			st, err := app.wallet.Status(ctx)
			if err != nil {
				return err
			}
			owner = st.EffectiveOwner
			proof, err := prove(key, wallet.WithdrawAction(app.wallet.Self(), owner, assetID, amount))
			if err != nil {
				return err
			}
			if err := app.wallet.Withdraw(ctx, assetID, amount, proof); err != nil {
				return err
			}
			bal, err = app.wallet.Balance(ctx)
			return err
		})
		if err != nil {
			exitWithError(err)
		}

		if jsonOutput {
			outputJSON(map[string]interface{}{"balance": bal, "asset": assetID, "owner": owner, "events": app.emitted()})
			return
		}
		fmt.Printf("%s Withdrew %d %s to %s (balance %d)\n", ui.RenderPassIcon(), amount, assetID, owner.Hex(), bal)
	},
}

// assetFlag returns --asset, falling back to the wallet.asset setting.
func assetFlag(cmd *cobra.Command) string {
	id, _ := cmd.Flags().GetString("asset")
	if id == "" {
		id = config.GetString("wallet.asset")
	}
	if id == "" {
		FatalErrorWithHint("no asset given", "Pass --asset or run 'rw config set wallet.asset <id>'")
	}
	return id
}

func parseAmount(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		FatalError("invalid amount %q: %v", s, err)
	}
	return n
}

func init() {
	depositCmd.Flags().String("asset", "", "Asset to deposit (default: config wallet.asset)")
	depositCmd.Flags().String("from", "", "Depositing address when no key is used (auth.verify off)")
	addKeyFlag(depositCmd, "depositor")

	withdrawCmd.Flags().String("asset", "", "Asset to withdraw (default: config wallet.asset)")
	addKeyFlag(withdrawCmd, "owner")

	rootCmd.AddCommand(depositCmd, withdrawCmd)
}
