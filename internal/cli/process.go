package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jwulff/meetsync/internal/backend"
	"github.com/jwulff/meetsync/internal/db"
	"github.com/jwulff/meetsync/internal/output"
)

// processOptions select the backend services for transcription and
// summaries. Empty values use the server defaults.
type processOptions struct {
	Service  string
	Template string
}

func (o *processOptions) bind(cmd *cobra.Command, summary bool) {
	cmd.Flags().StringVar(&o.Service, "service", "", "Backend service to use (e.g. openai, deepseek)")
	if summary {
		cmd.Flags().StringVar(&o.Template, "template", "", "Summary template (e.g. general, standup)")
	}
}

func NewTranscribeCmd(deps *Dependencies) *cobra.Command {
	var opts processOptions

	cmd := &cobra.Command{
		Use:   "transcribe <meeting-id>",
		Short: "Transcribe a meeting's uploaded audio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(cmd.OutOrStdout())

			store, err := deps.Store()
			if err != nil {
				return err
			}
			defer store.Close()

			_, err = transcribe(cmd.Context(), deps.Backend(), store, args[0], opts, formatter)
			return err
		},
	}
	opts.bind(cmd, false)

	return cmd
}

func NewSummarizeCmd(deps *Dependencies) *cobra.Command {
	var opts processOptions
	var existing bool

	cmd := &cobra.Command{
		Use:   "summarize <meeting-id>",
		Short: "Summarize a meeting's transcript",
		Long:  "Ask the backend for a structured summary: overview, action items, outline, keywords and sentiment.\nUse --existing to print the last summary without generating a new one.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(cmd.OutOrStdout())
			client := deps.Backend()

			if existing {
				s, err := client.Summary(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				formatter.Summary(s)
				return nil
			}
			return summarize(cmd.Context(), client, args[0], opts, formatter)
		},
	}
	opts.bind(cmd, true)
	cmd.Flags().BoolVar(&existing, "existing", false, "Print the stored summary instead of generating one")

	return cmd
}

// transcribe runs server-side transcription and caches the result.
func transcribe(ctx context.Context, client *backend.Client, store *db.Store, id string, opts processOptions, formatter *output.Formatter) (backend.Transcript, error) {
	formatter.Transcribing()
	tr, err := client.Transcribe(ctx, id, opts.Service)
	if err != nil {
		return backend.Transcript{}, err
	}
	if err := store.ReplaceTranscript(ctx, id, tr.Segments); err != nil {
		return tr, fmt.Errorf("caching transcript: %w", err)
	}
	formatter.TranscribeDone(len(tr.Segments))
	return tr, nil
}

func summarize(ctx context.Context, client *backend.Client, id string, opts processOptions, formatter *output.Formatter) error {
	formatter.Summarizing()
	s, err := client.Summarize(ctx, id, opts.Service, opts.Template)
	if err != nil {
		return err
	}
	formatter.Summary(s)
	return nil
}
