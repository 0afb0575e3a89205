package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/rwallet/internal/config"
	"github.com/steveyegge/rwallet/internal/debug"
	"github.com/steveyegge/rwallet/internal/lockfile"
	"github.com/steveyegge/rwallet/internal/telemetry"
	"github.com/steveyegge/rwallet/internal/ui"
)

var (
	dbPath      string
	jsonOutput  bool
	verboseFlag bool
	quietFlag   bool
	noColorFlag bool
	lockTimeout = lockfile.DefaultTimeout

	// Signal-aware context for graceful cancellation
	rootCtx    context.Context
	rootCancel context.CancelFunc

	// app is the opened wallet for commands that need one.
	app *walletApp
)

// noWalletCommands lists commands that run without opening a wallet.
// init opens the wallet itself once the directory and address exist.
var noWalletCommands = map[string]bool{
	"rw":             true,
	"rw init":        true,
	"rw version":     true,
	"rw key":         true,
	"rw key new":     true,
	"rw key address": true,
	"rw config":      true,
	"rw config set":  true,
	"rw config get":  true,
	"rw config list": true,
	"rw bus":         true,
	"rw bus serve":   true,
	"rw bus tail":    true,
}

func needsWallet(cmd *cobra.Command) bool {
	if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.HasParent() && cmd.Parent().Name() == "completion" {
		return false
	}
	return !noWalletCommands[cmd.CommandPath()]
}

func init() {
	if err := config.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize config: %v\n", err)
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default: .rwallet/wallet.db)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output (errors only)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().DurationVar(&lockTimeout, "lock-timeout", lockfile.DefaultTimeout, "How long to wait for the wallet lock")

	rootCmd.Flags().BoolP("version", "V", false, "Print version information")

	rootCmd.AddGroup(&cobra.Group{ID: "recovery", Title: "Recovery:"})
	rootCmd.AddGroup(&cobra.Group{ID: "custody", Title: "Custody:"})
	rootCmd.AddGroup(&cobra.Group{ID: "views", Title: "Views:"})
	rootCmd.AddGroup(&cobra.Group{ID: "setup", Title: "Setup & Configuration:"})
}

var rootCmd = &cobra.Command{
	Use:   "rw",
	Short: "rw - social-recovery custody wallet",
	Long: `A custody wallet whose owner can be replaced by a quorum of recovery
addresses after a waiting period. Funds move only with the owner's signature.`,
	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("rw version %s (%s)\n", Version, Build)
			return
		}
		_ = cmd.Help()
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupSignalContext()
		applyVerbosityFlags()
		applyViperOverrides(cmd)
		initTelemetry()

		if !needsWallet(cmd) {
			return
		}
		a, err := openApp(rootCtx, false)
		if err != nil {
			exitWithError(err)
		}
		app = a
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app != nil {
			if err := app.Close(); err != nil {
				WarnError("closing wallet: %v", err)
			}
			app = nil
		}
		shutdownTelemetry()
		if rootCancel != nil {
			rootCancel()
		}
	},
}

func setupSignalContext() {
	rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// applyVerbosityFlags propagates --verbose and --quiet to the debug package.
func applyVerbosityFlags() {
	debug.SetVerbose(verboseFlag)
	debug.SetQuiet(quietFlag)
	if noColorFlag {
		ui.DisableColor()
	}
}

// applyViperOverrides fills flags that weren't set on the command line from
// config (file + RW_* env). Priority: flags > config > defaults.
func applyViperOverrides(cmd *cobra.Command) {
	if !cmd.Flags().Changed("json") {
		jsonOutput = config.GetBool("json")
	}
	if !cmd.Flags().Changed("db") {
		dbPath = config.GetString("db")
	}
	if !cmd.Flags().Changed("lock-timeout") {
		if d := config.GetDuration("lock-timeout"); d > 0 {
			lockTimeout = d
		}
	}
}

func initTelemetry() {
	err := telemetry.Init(rootCtx, "rw", Version,
		telemetry.WithEnabled(config.GetBool("telemetry.enabled")),
		telemetry.WithStdout(config.GetBool("telemetry.stdout")),
		telemetry.WithOTLPEndpoint(config.GetString("telemetry.otlp-endpoint")),
	)
	if err != nil {
		WarnError("telemetry disabled: %v", err)
	}
}

func shutdownTelemetry() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := telemetry.Shutdown(ctx); err != nil {
		debug.Logf("telemetry shutdown: %v\n", err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
