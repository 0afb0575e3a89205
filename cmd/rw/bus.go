package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/steveyegge/rwallet/internal/config"
	"github.com/steveyegge/rwallet/internal/eventbus"
	"github.com/steveyegge/rwallet/internal/ui"
)

var busCmd = &cobra.Command{
	Use:     "bus",
	Short:   "Run or follow the wallet event stream",
	GroupID: "setup",
	Long: `Wallet events are published to the NATS JetStream stream WALLET_EVENTS
when nats.url is set. 'rw bus serve' runs an embedded server for local use
and 'rw bus tail' prints events as they arrive.`,
}

var busServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run an embedded NATS server with JetStream",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		host, _ := cmd.Flags().GetString("host")
		port, _ := cmd.Flags().GetInt("port")
		storeDir, _ := cmd.Flags().GetString("store-dir")
		natsDebug, _ := cmd.Flags().GetBool("debug")
		if storeDir == "" {
			storeDir = filepath.Join(config.WalletDir(), "nats")
		}

		ns, err := eventbus.StartServer(eventbus.ServerOptions{
			Host:     host,
			Port:     port,
			StoreDir: storeDir,
			Debug:    natsDebug,
		})
		if err != nil {
			FatalError("%v", err)
		}
		defer ns.Shutdown()

		if jsonOutput {
			outputJSON(map[string]interface{}{"url": ns.ClientURL(), "store_dir": storeDir})
		} else {
			fmt.Printf("%s NATS listening on %s\n", ui.RenderPassIcon(), ns.ClientURL())
			fmt.Printf("%s Point wallets at it with: rw config set nats.url %s\n", ui.RenderInfoIcon(), ns.ClientURL())
		}

		<-rootCtx.Done()
		fmt.Fprintln(os.Stderr, "Shutting down NATS server")
	},
}

var busTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print wallet events from the stream",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		url, _ := cmd.Flags().GetString("url")
		if url == "" {
			url = config.GetString("nats.url")
		}
		if url == "" {
			url = nats.DefaultURL
		}
		fromStart, _ := cmd.Flags().GetBool("all")

		nc, js, err := eventbus.Connect(url)
		if err != nil {
			FatalError("%v", err)
		}
		defer nc.Close()

		deliver := nats.DeliverNew()
		if fromStart {
			deliver = nats.DeliverAll()
		}
		sub, err := js.SubscribeSync(eventbus.SubjectWalletPrefix+">", deliver, nats.AckNone())
		if err != nil {
			FatalError("subscribe: %v", err)
		}
		defer func() { _ = sub.Unsubscribe() }()

		for rootCtx.Err() == nil {
			msg, err := sub.NextMsg(time.Second)
			if errors.Is(err, nats.ErrTimeout) {
				continue
			}
			if err != nil {
				FatalError("reading stream: %v", err)
			}
			var event eventbus.Event
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				WarnError("skipping malformed event on %s: %v", msg.Subject, err)
				continue
			}
			if jsonOutput {
				fmt.Println(string(msg.Data))
				continue
			}
			fmt.Printf("%s  %-16s %s  %s\n",
				formatLedgerTime(event.LedgerTime),
				ui.RenderAccent(string(event.Type)),
				ui.ShortAddress(event.Wallet),
				string(event.Payload))
		}
	},
}

func init() {
	busServeCmd.Flags().String("host", "127.0.0.1", "Listen address")
	busServeCmd.Flags().Int("port", 4222, "Client port (-1 picks a free port)")
	busServeCmd.Flags().String("store-dir", "", "JetStream storage directory (default: .rwallet/nats)")
	busServeCmd.Flags().Bool("debug", false, "Enable NATS server logging")

	busTailCmd.Flags().String("url", "", "NATS URL (default: config nats.url)")
	busTailCmd.Flags().Bool("all", false, "Replay the stream from the beginning")

	busCmd.AddCommand(busServeCmd, busTailCmd)
	rootCmd.AddCommand(busCmd)
}
