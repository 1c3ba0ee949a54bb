package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand(ctx *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "mindscribe",
		Short:         "Transcribe speech in audio and video files",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newTranscribeCommand(ctx))
	rootCmd.AddCommand(newSegmentsCommand(ctx))

	return rootCmd
}
