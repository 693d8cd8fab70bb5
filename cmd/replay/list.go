package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/onnwee/chat-replay/archive"
)

func listCmd(newClient clientFactory) *cobra.Command {
	var channel string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded archives, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cfg, err := newClient()
			if err != nil {
				return err
			}
			if channel == "" {
				channel = cfg.Channel
			}
			archives, err := c.List(cmd.Context(), channel, limit)
			if err != nil {
				return err
			}
			if len(archives) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No archives found.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, a := range archives {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					a.ID,
					a.Channel,
					a.Start.Local().Format("2006-01-02 15:04"),
					archive.FormatOffset(int64(a.Length.Seconds())),
					a.Title,
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&channel, "channel", "", "Only list archives for this channel")
	cmd.Flags().IntVar(&limit, "limit", 20, "Max archives")

	return cmd
}
