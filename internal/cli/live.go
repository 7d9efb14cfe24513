package cli

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jwulff/meetsync/internal/app"
	"github.com/jwulff/meetsync/internal/live"
	"github.com/jwulff/meetsync/internal/output"
	"github.com/jwulff/meetsync/internal/transcript"
)

func NewLiveCmd(deps *Dependencies) *cobra.Command {
	var fresh bool

	cmd := &cobra.Command{
		Use:   "live <meeting-id>",
		Short: "Follow a meeting bot's transcript as it arrives",
		Long: "Join the live channel for a meeting and show final segments as they arrive, with\n" +
			"the in-progress line below them. Segments are cached locally for review.\n" +
			"s asks the bot to leave, q quits without stopping it.",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{annotationTUI: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(cmd.OutOrStdout())
			id := args[0]

			store, err := deps.Store()
			if err != nil {
				return err
			}
			defer store.Close()

			// Resume from what an earlier run cached unless asked not to.
			var cached []transcript.Segment
			if fresh {
				err = store.ReplaceTranscript(cmd.Context(), id, nil)
			} else {
				cached, err = store.Transcript(cmd.Context(), id)
			}
			if err != nil {
				return err
			}

			client := deps.Backend()
			cfg := deps.Config.Live
			session := live.NewSession(id, transcript.New(cached), live.ChannelDialer{Addr: cfg.Addr}, client, live.Options{
				PollInterval: cfg.PollInterval,
				BackoffBase:  cfg.BackoffBase,
				BackoffMax:   cfg.BackoffMax,
				Sink:         store,
				Logger:       deps.Log,
			})

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			done := make(chan error, 1)
			go func() { done <- session.Run(ctx) }()

			_, uiErr := tea.NewProgram(app.NewLive(id, session.Updates(), client, cancel), tea.WithAltScreen()).Run()
			cancel()
			runErr := <-done

			if uiErr != nil {
				return fmt.Errorf("running live view: %w", uiErr)
			}
			if runErr != nil && !errors.Is(runErr, context.Canceled) {
				return runErr
			}
			formatter.Info(fmt.Sprintf("%d segments cached for meeting %s", session.Transcript().Len(), id))
			return nil
		},
	}

	cmd.Flags().BoolVar(&fresh, "fresh", false, "Discard previously cached segments for this meeting")

	return cmd
}
