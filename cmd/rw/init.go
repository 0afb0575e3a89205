package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/steveyegge/rwallet/internal/auth"
	"github.com/steveyegge/rwallet/internal/config"
	"github.com/steveyegge/rwallet/internal/timeparsing"
	"github.com/steveyegge/rwallet/internal/types"
	"github.com/steveyegge/rwallet/internal/ui"
	"github.com/steveyegge/rwallet/internal/wallet"
)

var initCmd = &cobra.Command{
	Use:     "init",
	Short:   "Create and configure a wallet in .rwallet/",
	GroupID: "setup",
	Long: `Create a wallet in the current directory and configure its owner and
recovery set. Configuration is fixed once written; a second init fails.

The recovery window accepts seconds ("86400"), compact durations ("3d",
"2w"), Go durations ("36h") or relative times ("in 2 weeks").

Examples:
  rw init --owner 0xA.. --recovery 0xB..,0xC..,0xD.. --threshold 2 --window 3d
  rw init --manifest wallet.toml
  rw init --interactive`,
	Run: runInit,
}

// initInput is the textual form of an init request, as read from flags, a
// manifest or the interactive form.
type initInput struct {
	owner     string
	recovery  []string
	threshold uint32
	window    string
	asset     string
}

func init() {
	initCmd.Flags().String("owner", "", "Owner address")
	initCmd.Flags().StringSlice("recovery", nil, "Recovery addresses (comma-separated or repeated)")
	initCmd.Flags().Uint32("threshold", 0, "Recovery signatures required to replace the owner")
	initCmd.Flags().String("window", "1d", "Recovery window")
	initCmd.Flags().String("asset", "", "Default asset for deposit and withdraw")
	initCmd.Flags().String("manifest", "", "Read the configuration from a .toml, .yaml or .json manifest")
	initCmd.Flags().BoolP("interactive", "i", false, "Fill in the configuration with an interactive form")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) {
	in, err := readInitInput(cmd)
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Fprintln(os.Stderr, "Wallet creation cancelled.")
			os.Exit(0)
		}
		exitWithError(err)
	}
	params, err := in.params(time.Now())
	if err != nil {
		exitWithError(err)
	}

	if err := os.MkdirAll(config.WalletDir(), 0o750); err != nil {
		FatalError("create wallet directory: %v", err)
	}
	if err := ensureWalletAddress(); err != nil {
		exitWithError(err)
	}
	if in.asset != "" {
		if err := config.SetYamlConfig("wallet.asset", in.asset); err != nil {
			WarnError("failed to record default asset: %v", err)
		}
		config.Set("wallet.asset", in.asset)
	}

	a, err := openApp(rootCtx, true)
	if err != nil {
		exitWithError(err)
	}
	app = a

	err = a.run("init", true, func(ctx context.Context) error { return a.wallet.Init(ctx, params) })
	if err != nil {
		exitWithError(err)
	}

	if jsonOutput {
		outputJSON(map[string]interface{}{
			"wallet":                  a.wallet.Self(),
			"owner":                   params.Owner,
			"recovery_addresses":      params.RecoveryAddresses,
			"recovery_threshold":      params.Threshold,
			"recovery_window_seconds": params.WindowSeconds,
			"events":                  a.emitted(),
		})
		return
	}
	fmt.Printf("%s Initialized wallet %s in %s\n\n", ui.RenderPassIcon(), a.wallet.Self().Hex(), a.dir)
	fmt.Print(ui.Fields(
		ui.KV{Label: "Owner", Value: params.Owner.Hex()},
		ui.KV{Label: "Recovery", Value: fmt.Sprintf("%d of %d", params.Threshold, len(params.RecoveryAddresses))},
		ui.KV{Label: "Window", Value: timeparsing.FormatWindow(params.WindowSeconds)},
	))
}

// ensureWalletAddress gives the wallet a custody address on first init.
// The address only identifies the wallet's ledger account, so no key is
// kept for it.
func ensureWalletAddress() error {
	if config.GetString("wallet.address") != "" {
		return nil
	}
	key, err := auth.GenerateKey()
	if err != nil {
		return fmt.Errorf("generate wallet address: %w", err)
	}
	addr := auth.Address(key).Hex()
	if err := config.SetYamlConfig("wallet.address", addr); err != nil {
		return fmt.Errorf("record wallet address: %w", err)
	}
	config.Set("wallet.address", addr)
	return nil
}

func readInitInput(cmd *cobra.Command) (initInput, error) {
	if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
		return runInitForm()
	}
	if path, _ := cmd.Flags().GetString("manifest"); path != "" {
		m, err := config.LoadManifest(path)
		if err != nil {
			return initInput{}, err
		}
		return initInput{
			owner:     m.Owner,
			recovery:  m.RecoveryAddresses,
			threshold: m.RecoveryThreshold,
			window:    m.RecoveryWindow,
			asset:     m.Asset,
		}, nil
	}

	var in initInput
	in.owner, _ = cmd.Flags().GetString("owner")
	in.recovery, _ = cmd.Flags().GetStringSlice("recovery")
	in.threshold, _ = cmd.Flags().GetUint32("threshold")
	in.window, _ = cmd.Flags().GetString("window")
	in.asset, _ = cmd.Flags().GetString("asset")
	if in.owner == "" {
		return initInput{}, fmt.Errorf("--owner is required (or use --manifest / --interactive)")
	}
	return in, nil
}

func (in initInput) params(now time.Time) (wallet.InitParams, error) {
	owner, err := types.ParseIdentity(in.owner)
	if err != nil {
		return wallet.InitParams{}, fmt.Errorf("owner: %w", err)
	}
	recovery, err := types.ParseIdentities(in.recovery)
	if err != nil {
		return wallet.InitParams{}, fmt.Errorf("recovery: %w", err)
	}
	window, err := timeparsing.ParseWindow(in.window, now)
	if err != nil {
		return wallet.InitParams{}, fmt.Errorf("window: %w", err)
	}
	return wallet.InitParams{
		Owner:             owner,
		RecoveryAddresses: recovery,
		Threshold:         in.threshold,
		WindowSeconds:     window,
	}, nil
}

func runInitForm() (initInput, error) {
	var (
		owner        string
		recoveryText string
		threshold    string
		window       = "1d"
		asset        string
		confirmed    bool
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Owner").
				Description("Address that controls withdrawals").
				Placeholder("0x...").
				Value(&owner).
				Validate(func(s string) error {
					_, err := types.ParseIdentity(strings.TrimSpace(s))
					return err
				}),

			huh.NewText().
				Title("Recovery addresses").
				Description("One per line or comma-separated").
				Value(&recoveryText).
				Validate(func(s string) error {
					_, err := types.ParseIdentities(splitAddresses(s))
					return err
				}),
		),

		huh.NewGroup(
			huh.NewInput().
				Title("Threshold").
				Description("Signatures needed to replace the owner").
				Placeholder("2").
				Value(&threshold).
				Validate(func(s string) error {
					n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
					if err != nil || n == 0 {
						return fmt.Errorf("threshold must be a positive number")
					}
					return nil
				}),

			huh.NewInput().
				Title("Recovery window").
				Description("e.g. 86400, 3d, 36h, in 2 weeks").
				Value(&window).
				Validate(func(s string) error {
					_, err := timeparsing.ParseWindow(s, time.Now())
					return err
				}),

			huh.NewInput().
				Title("Default asset").
				Description("Asset used by deposit and withdraw (optional)").
				Placeholder("usd").
				Value(&asset),

			huh.NewConfirm().
				Title("Create this wallet?").
				Affirmative("Create").
				Negative("Cancel").
				Value(&confirmed),
		),
	).WithTheme(huh.ThemeDracula())

	if err := form.Run(); err != nil {
		return initInput{}, err
	}
	if !confirmed {
		return initInput{}, huh.ErrUserAborted
	}
	n, _ := strconv.ParseUint(strings.TrimSpace(threshold), 10, 32)
	return initInput{
		owner:     strings.TrimSpace(owner),
		recovery:  splitAddresses(recoveryText),
		threshold: uint32(n),
		window:    strings.TrimSpace(window),
		asset:     strings.TrimSpace(asset),
	}, nil
}

// splitAddresses splits on commas and whitespace, dropping empty fields.
func splitAddresses(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '\n' || r == ' ' || r == '\t' || r == '\r'
	})
}
