package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/maauso/mindscribe/internal/transcription"
)

// errAborted is returned after a partial transcript has been written.
var errAborted = errors.New("transcription aborted: speech service unavailable")

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var outputPath string
	var showChunks bool

	cmd := &cobra.Command{
		Use:   "transcribe FILE",
		Short: "Transcribe an audio or video file",
		Long: `Transcribe an audio (mp3, wav, ogg) or video (mp4, mkv, mov) file.

Progress messages are written to stderr. The transcript is written to stdout,
or to the file named by --output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.newPipeline(cmd.Context(), cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}

			sess, runErr := p.Run(cmd.Context(), transcription.Input{Path: args[0]})
			if sess != nil {
				printMessages(cmd.ErrOrStderr(), sess.Messages)
			}
			if runErr != nil {
				return runErr
			}

			if showChunks && len(sess.Chunks) > 0 {
				if err := writeChunks(cmd.ErrOrStderr(), sess.Chunks); err != nil {
					return err
				}
			}

			transcript := sess.Transcript.String()
			if transcript != "" {
				if err := writeTranscript(cmd.OutOrStdout(), outputPath, transcript); err != nil {
					return err
				}
				if outputPath != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "Transcript saved to %s\n", outputPath)
				}
			}

			if sess.Aborted {
				return errAborted
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the transcript to this file instead of stdout")
	cmd.Flags().BoolVar(&showChunks, "chunks", false, "Print the state of every chunk to stderr")

	return cmd
}

func printMessages(w io.Writer, messages []transcription.Message) {
	for _, m := range messages {
		fmt.Fprintf(w, "[%s] %s\n", m.Level, m.Text)
	}
}

func writeChunks(w io.Writer, chunks []transcription.Chunk) error {
	headers := []string{"CHUNK", "START_MS", "END_MS", "STATE", "ERROR"}
	rows := make([][]string, 0, len(chunks))
	for _, c := range chunks {
		rows = append(rows, []string{itoa(c.Index + 1), itoa(c.StartMs), itoa(c.EndMs), string(c.State), c.Error})
	}
	return writeRows(w, headers, rows, []columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignLeft})
}

func writeTranscript(stdout io.Writer, path, transcript string) error {
	if path == "" {
		_, err := fmt.Fprintln(stdout, transcript)
		return err
	}
	// #nosec G306 - transcripts are meant to be readable by the user's tools
	if err := os.WriteFile(path, []byte(transcript), 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}
