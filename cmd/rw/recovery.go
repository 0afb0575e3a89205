package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/rwallet/internal/types"
	"github.com/steveyegge/rwallet/internal/ui"
	"github.com/steveyegge/rwallet/internal/wallet"
)

var recoverCmd = &cobra.Command{
	Use:     "recover <new-owner>",
	Short:   "Propose a new owner and open a recovery window",
	GroupID: "recovery",
	Long: `Propose a new owner. Anyone may propose; the owner changes only after
enough recovery addresses sign before the window closes.

A finished recovery (threshold met or window elapsed) is applied first, so
a new proposal can follow an expired one directly.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		newOwner, err := types.ParseIdentity(args[0])
		if err != nil {
			exitWithError(err)
		}
		var rec wallet.Recovery
		err = app.run("recover", true, func(ctx context.Context) error {
			if err := app.wallet.Recover(ctx, newOwner); err != nil {
				return err
			}
			var err error
			rec, err = app.wallet.Recovery(ctx)
			return err
		})
		if err != nil {
			exitWithError(err)
		}

		if jsonOutput {
			outputJSON(map[string]interface{}{"recovery": rec, "events": app.emitted()})
			return
		}
		fmt.Printf("%s Recovery opened for %s\n", ui.RenderPassIcon(), newOwner.Hex())
		fmt.Printf("  Window closes at %s\n", formatLedgerTime(rec.WindowEnd()))
	},
}

var signCmd = &cobra.Command{
	Use:     "sign",
	Short:   "Attest to the open recovery as a recovery address",
	GroupID: "recovery",
	Long: `Sign the open recovery proposal. The proof is bound to the proposed
owner, so a signature cannot be reused for a different proposal.

Reaching the threshold does not change the owner yet; the next state-changing
call (or 'rw state') applies it.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		signer, key, err := resolveSigner(cmd, "signer")
		if err != nil {
			exitWithError(err)
		}
		var rec wallet.Recovery
		err = app.run("sign", true, func(ctx context.Context) error {
			pending, err := app.wallet.Recovery(ctx)
			if err != nil {
				return err
			}
			proof, err := prove(key, wallet.SignAction(app.wallet.Self(), signer, pending.ProposedOwner()))
			if err != nil {
				return err
			}
			if err := app.wallet.Sign(ctx, signer, proof); err != nil {
				return err
			}
			rec, err = app.wallet.Recovery(ctx)
			return err
		})
		if err != nil {
			exitWithError(err)
		}

		if jsonOutput {
			outputJSON(map[string]interface{}{
				"signer":          signer,
				"signature_count": rec.SignatureCount(),
				"events":          app.emitted(),
			})
			return
		}
		fmt.Printf("%s Signed by %s (%d signatures)\n", ui.RenderPassIcon(), signer.Hex(), rec.SignatureCount())
	},
}

var stateCmd = &cobra.Command{
	Use:     "state",
	Short:   "Evaluate the recovery phase, applying a finished recovery",
	GroupID: "recovery",
	Long: `Evaluate the recovery phase. If the threshold is met or the window has
elapsed, the recovery is committed or discarded now and CompletedAndReset is
reported; running it again reports NotInProgress.

Use 'rw status' for a read that never changes state.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		var phase wallet.Phase
		var owner types.Identity
		err := app.run("recovery_state", true, func(ctx context.Context) error {
			var err error
			if phase, err = app.wallet.RecoveryState(ctx); err != nil {
				return err
			}
			owner, err = app.wallet.Owner(ctx)
			return err
		})
		if err != nil {
			exitWithError(err)
		}

		if jsonOutput {
			outputJSON(map[string]interface{}{"phase": phase, "owner": owner, "events": app.emitted()})
			return
		}
		fmt.Printf("%s  (owner %s)\n", ui.RenderPhase(phase.String()), owner.Hex())
	},
}

var recoveryCmd = &cobra.Command{
	Use:     "recovery",
	Short:   "Show the stored recovery record",
	GroupID: "views",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		var rec wallet.Recovery
		err := app.run("get_recovery", false, func(ctx context.Context) error {
			var err error
			rec, err = app.wallet.Recovery(ctx)
			return err
		})
		if err != nil {
			exitWithError(err)
		}

		if jsonOutput {
			outputJSON(rec)
			return
		}
		if !rec.Active() {
			fmt.Println(ui.RenderMuted("No recovery in progress"))
			return
		}
		fmt.Print(ui.Fields(recoveryRows(rec)...))
	},
}

func recoveryRows(rec wallet.Recovery) []ui.KV {
	rows := []ui.KV{
		{Label: "Proposed owner", Value: rec.ProposedOwner().Hex()},
		{Label: "Window end", Value: formatLedgerTime(rec.WindowEnd())},
		{Label: "Signatures", Value: fmt.Sprintf("%d", rec.SignatureCount())},
	}
	for i, s := range rec.Signatures() {
		rows = append(rows, ui.KV{Label: fmt.Sprintf("  #%d", i+1), Value: s.Hex()})
	}
	return rows
}

// formatLedgerTime renders unix seconds as local time plus the raw value.
func formatLedgerTime(ts uint64) string {
	if ts > uint64(maxUnix) {
		return fmt.Sprintf("%d", ts)
	}
	return fmt.Sprintf("%s (%d)", time.Unix(int64(ts), 0).Format(time.RFC3339), ts)
}

// maxUnix is the last second time.Unix formats sensibly (year 9999).
const maxUnix = 253402300799

func init() {
	addKeyFlag(signCmd, "recovery address")
	signCmd.Flags().String("signer", "", "Recovery address to sign as when no key is used (auth.verify off)")

	rootCmd.AddCommand(recoverCmd, signCmd, stateCmd, recoveryCmd)
}
