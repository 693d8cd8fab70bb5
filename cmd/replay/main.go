// Command replay browses recorded chat archives and replays a transcript in
// the terminal, following a playback clock.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/onnwee/chat-replay/client"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var server string

	root := &cobra.Command{
		Use:           "replay",
		Short:         "Chat replay - watch recorded Twitch chat in sync with a broadcast",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&server, "server", "", "API base URL (overrides config)")

	newClient := func() (*client.Client, *Config, error) {
		cfg, err := LoadConfig()
		if err != nil {
			return nil, nil, err
		}
		if server != "" {
			cfg.Server = server
		}
		return client.New(cfg.Server), cfg, nil
	}

	root.AddCommand(watchCmd(newClient))
	root.AddCommand(locateCmd(newClient))
	root.AddCommand(listCmd(newClient))
	return root
}

type clientFactory func() (*client.Client, *Config, error)
