package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSegmentsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "segments FILE",
		Short: "List the speech segments found in a file",
		Long: `Extract, normalize and split a file on silence, then list the
resulting speech segments without transcribing them.

No speech API key is needed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.newPipeline(cmd.Context(), cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}

			segments, err := p.Segments(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(segments) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No speech segments detected.")
				return nil
			}

			headers := []string{"SEGMENT", "START_MS", "END_MS", "DURATION_MS"}
			rows := make([][]string, 0, len(segments))
			for _, s := range segments {
				rows = append(rows, []string{
					itoa(s.Index + 1),
					itoa(s.StartMs),
					itoa(s.EndMs),
					itoa(int(s.Duration().Milliseconds())),
				})
			}
			return writeRows(cmd.OutOrStdout(), headers, rows, []columnAlignment{alignRight, alignRight, alignRight, alignRight})
		},
	}
}
