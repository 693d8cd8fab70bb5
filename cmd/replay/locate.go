package main

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/onnwee/chat-replay/archive"
)

func locateCmd(newClient clientFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "locate <archive-id> <t>",
		Short: "Show the first chat line at or after a playback position",
		Long: `Position accepts seconds (90), units (1h2m3s) or clock form (1:02:03).
Prints the line index and the line itself, or "end" when playback is past the last line.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := newClient()
			if err != nil {
				return err
			}
			res, err := c.Locate(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if res.Line == nil {
				fmt.Fprintf(out, "%d/%d\tend\n", res.Index, res.Total)
				return nil
			}
			// Target is ceil(offset) past the broadcast start.
			start := res.Target - int64(math.Ceil(res.Offset))
			fmt.Fprintf(out, "%d/%d\t%s\n", res.Index, res.Total, plainLine(*res.Line, start))
			return nil
		},
	}
}

// plainLine formats a chat line without styling, for pipes.
func plainLine(m archive.Message, start int64) string {
	ts := archive.FormatOffset(m.Timestamp() - start)
	if m.Deleted {
		return fmt.Sprintf("[%s] %s: <message deleted>", ts, m.Name())
	}
	return fmt.Sprintf("[%s] %s: %s", ts, m.Name(), m.Text)
}
