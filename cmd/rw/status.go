package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/steveyegge/rwallet/internal/config"
	"github.com/steveyegge/rwallet/internal/ui"
	"github.com/steveyegge/rwallet/internal/wallet"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show owner, recovery phase and balance without changing state",
	GroupID: "views",
	Long: `Show the wallet as the next state-changing call would see it. A recovery
that has met its threshold or outlived its window is reported but not
applied; 'rw state' applies it.

With --watch the view is redrawn when the wallet database changes and on
every --interval tick, since windows close with time alone.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		watch, _ := cmd.Flags().GetBool("watch")
		interval, _ := cmd.Flags().GetDuration("interval")
		noPager, _ := cmd.Flags().GetBool("no-pager")

		if watch {
			watchStatus(rootCtx, interval)
			return
		}

		st, err := readStatus()
		if err != nil {
			exitWithError(err)
		}
		if jsonOutput {
			outputJSON(st)
			return
		}
		if err := ui.ToPager(renderStatus(st), ui.PagerOptions{NoPager: noPager}); err != nil {
			FatalError("%v", err)
		}
	},
}

func readStatus() (wallet.Status, error) {
	var st wallet.Status
	err := app.run("status", false, func(ctx context.Context) error {
		var err error
		st, err = app.wallet.Status(ctx)
		return err
	})
	return st, err
}

func renderStatus(st wallet.Status) string {
	local := config.LoadLocalConfig(app.dir)
	backend := local.Backend
	if backend == "" {
		backend = config.GetString("backend")
	}

	rows := []ui.KV{
		{Label: "Phase", Value: ui.RenderPhase(st.Phase.String())},
		{Label: "Owner", Value: st.Owner.Hex()},
	}
	if st.EffectiveOwner != st.Owner {
		rows = append(rows, ui.KV{Label: "Owner after apply", Value: ui.RenderWarnIcon() + " " + ui.RenderWarn(st.EffectiveOwner.Hex())})
	}
	if st.Recovery.Active() {
		rows = append(rows,
			ui.KV{Label: "Proposed owner", Value: st.Recovery.ProposedOwner().Hex()},
			ui.KV{Label: "Signatures", Value: fmt.Sprintf("%d of %d", st.Recovery.SignatureCount(), st.Threshold)},
			ui.KV{Label: "Window end", Value: formatLedgerTime(st.Recovery.WindowEnd())},
		)
	}
	balance := fmt.Sprintf("%d", st.Balance)
	if st.Asset != "" {
		balance += " " + st.Asset
	}
	rows = append(rows,
		ui.KV{Label: "Balance", Value: balance},
		ui.KV{Label: "Ledger time", Value: formatLedgerTime(st.Now)},
	)

	title := fmt.Sprintf("Wallet %s  %s", ui.ShortAddress(app.wallet.Self().Hex()), ui.RenderMuted(backend))
	return ui.Box(title, strings.TrimRight(ui.Fields(rows...), "\n")) + "\n"
}

// watchStatus redraws the status on database writes (debounced) and on
// every tick until ctx is cancelled.
func watchStatus(ctx context.Context, interval time.Duration) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		FatalError("creating watcher: %v", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(app.dir); err != nil {
		FatalError("watching %s: %v", app.dir, err)
	}

	draw := func() {
		st, err := readStatus()
		if jsonOutput {
			if err != nil {
				WarnError("reading status: %v", err)
				return
			}
			outputJSON(st)
			return
		}
		fmt.Print("\033[H\033[2J")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading status: %v\n", err)
		} else {
			fmt.Print(renderStatus(st))
		}
		fmt.Fprintf(os.Stderr, "\nWatching for changes... (Press Ctrl+C to exit)\n")
	}
	draw()

	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	refresh := make(chan struct{}, 1)
	var debounceTimer *time.Timer
	debounceDelay := 500 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(os.Stderr, "\nStopped watching.\n")
			return
		case <-ticker.C:
			draw()
		case <-refresh:
			draw()
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !watchedFile(filepath.Base(event.Name)) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, func() {
				select {
				case refresh <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			fmt.Fprintf(os.Stderr, "Watcher error: %v\n", err)
		}
	}
}

// watchedFile reports whether a change to name can alter the status.
func watchedFile(name string) bool {
	return name == config.FileName ||
		strings.HasSuffix(name, ".db") ||
		strings.HasSuffix(name, ".db-wal")
}

func init() {
	statusCmd.Flags().BoolP("watch", "w", false, "Redraw on changes until interrupted")
	statusCmd.Flags().Duration("interval", 5*time.Second, "Redraw interval in watch mode")
	statusCmd.Flags().Bool("no-pager", false, "Disable pager output")
	rootCmd.AddCommand(statusCmd)
}
