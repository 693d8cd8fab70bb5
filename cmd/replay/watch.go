package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/onnwee/chat-replay/archive"
	"github.com/onnwee/chat-replay/telemetry"
	"github.com/onnwee/chat-replay/tui"
)

func watchCmd(newClient clientFactory) *cobra.Command {
	var at, logPath string
	var paused bool

	cmd := &cobra.Command{
		Use:   "watch <archive-id>",
		Short: "Replay an archive's chat in sync with a playback clock",
		Long: `Opens a terminal viewer that scrolls chat along with playback. Scrolling
the chat pauses following until you press r. When stdout is not a terminal the
transcript is printed from the start position instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cfg, err := newClient()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			info, err := c.Archive(ctx, args[0], at)
			if err != nil {
				return err
			}
			t, err := c.Transcript(ctx, args[0])
			if err != nil {
				return err
			}
			start := time.Duration(info.StartOffset * float64(time.Second))

			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return dumpTranscript(cmd.OutOrStdout(), t, start)
			}
			// The viewer owns the screen; logs go to --log or nowhere.
			var logOut io.Writer = io.Discard
			if logPath != "" {
				f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				logOut = f
			}
			logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: slog.LevelDebug}))
			slog.SetDefault(logger)

			return tui.Run(ctx, t, tui.Options{
				Start:    start,
				Paused:   paused || cfg.Paused,
				Observer: telemetry.SyncObserver(logger),
			})
		},
	}

	cmd.Flags().StringVar(&at, "t", "", "Start position (90, 1h2m3s, 1:02:03)")
	cmd.Flags().BoolVar(&paused, "paused", false, "Start with playback paused")
	cmd.Flags().StringVar(&logPath, "log", "", "Write debug logs to this file")

	return cmd
}

// dumpTranscript prints every line at or after start.
func dumpTranscript(w io.Writer, t *archive.Transcript, start time.Duration) error {
	for _, m := range t.Lines[t.Locate(start.Seconds()):] {
		if _, err := fmt.Fprintln(w, plainLine(m, t.Start)); err != nil {
			return err
		}
	}
	return nil
}
