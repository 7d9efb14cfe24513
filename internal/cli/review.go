package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jwulff/meetsync/internal/app"
	"github.com/jwulff/meetsync/internal/backend"
	"github.com/jwulff/meetsync/internal/db"
	"github.com/jwulff/meetsync/internal/errs"
	"github.com/jwulff/meetsync/internal/output"
	"github.com/jwulff/meetsync/internal/playback"
	"github.com/jwulff/meetsync/internal/transcript"
)

func NewReviewCmd(deps *Dependencies) *cobra.Command {
	var audio string
	var offline bool

	cmd := &cobra.Command{
		Use:   "review <meeting-id>",
		Short: "Replay a meeting with the spoken word highlighted",
		Long: "Play back a meeting and highlight the segment and word being spoken.\n" +
			"The transcript is fetched from the backend and cached; the cache is used when\n" +
			"the backend is unreachable or with --offline.",
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

			var client *backend.Client
			if !offline {
				client = deps.Backend()
			}
			title, segs, err := loadTranscript(cmd.Context(), client, store, id, formatter)
			if err != nil {
				return err
			}
			tr := transcript.New(segs)

			src, err := openSource(audio, tr, formatter)
			if err != nil {
				return err
			}
			if c, ok := src.(io.Closer); ok {
				defer c.Close()
			}

			coord := playback.New(src, tr, deps.Log)
			cfg := deps.Config.Playback
			model := app.NewReview(title, coord, tr, cfg.TickInterval, cfg.SeekStep)
			if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
				return fmt.Errorf("running review: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&audio, "audio", "a", "", "WAV recording to play along with the transcript")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use the local cache only")

	return cmd
}

// openSource plays the recording at path through the speaker. Without a
// recording, or when no audio output is available, a silent wall-clock
// player stands in.
func openSource(path string, tr *transcript.Transcript, formatter *output.Formatter) (playback.Source, error) {
	if path == "" {
		return playback.NewPlayer(tr.Duration()), nil
	}
	src, err := playback.OpenAudio(path)
	if err == nil {
		return src, nil
	}
	if !errors.Is(err, errs.ErrDeviceUnavailable) {
		return nil, err
	}
	formatter.Warning(fmt.Sprintf("No audio output, replaying silently: %v", err))
	duration, err := playback.FileDuration(path)
	if err != nil {
		return nil, err
	}
	return playback.NewPlayer(duration), nil
}

// loadTranscript fetches a meeting's transcript and refreshes the cache,
// falling back to the cache when client is nil, the backend fails its
// health check, or the fetch fails.
func loadTranscript(ctx context.Context, client *backend.Client, store *db.Store, id string, formatter *output.Formatter) (string, []transcript.Segment, error) {
	if client != nil {
		if err := client.Health(ctx); err != nil {
			formatter.Warning(fmt.Sprintf("Backend unavailable, using cached transcript: %v", err))
			client = nil
		}
	}
	if client != nil {
		tr, err := client.Transcript(ctx, id)
		if err == nil && len(tr.Segments) > 0 {
			title := id
			if m, err := client.GetMeeting(ctx, id); err == nil && m.Title != "" {
				title = m.Title
			}
			if err := store.ReplaceTranscript(ctx, id, tr.Segments); err != nil {
				return "", nil, fmt.Errorf("caching transcript: %w", err)
			}
			if err := store.SaveMeeting(ctx, db.Meeting{ID: id, Title: title}); err != nil {
				return "", nil, fmt.Errorf("caching meeting: %w", err)
			}
			return title, tr.Segments, nil
		}
		if err != nil {
			formatter.Warning(fmt.Sprintf("Backend unavailable, using cached transcript: %v", err))
		}
	}

	m, err := store.Meeting(ctx, id)
	if err != nil {
		return "", nil, err
	}
	if m == nil || m.Segments == 0 {
		return "", nil, fmt.Errorf("no transcript for meeting %s", id)
	}
	segs, err := store.Transcript(ctx, id)
	if err != nil {
		return "", nil, err
	}
	title := m.Title
	if title == "" {
		title = id
	}
	return title, segs, nil
}
