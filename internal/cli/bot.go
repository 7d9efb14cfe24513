package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jwulff/meetsync/internal/backend"
	"github.com/jwulff/meetsync/internal/db"
	"github.com/jwulff/meetsync/internal/output"
)

func NewBotCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Control meeting bots",
	}

	cmd.AddCommand(newBotStartCmd(deps))
	cmd.AddCommand(newBotStopCmd(deps))
	cmd.AddCommand(newBotStatusCmd(deps))
	cmd.AddCommand(newBotListCmd(deps))

	return cmd
}

func newBotStartCmd(deps *Dependencies) *cobra.Command {
	var meetingURL string
	var name string

	cmd := &cobra.Command{
		Use:   "start <meeting-id>",
		Short: "Send a bot into an online meeting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(cmd.OutOrStdout())
			id := args[0]

			err := deps.Backend().StartBot(cmd.Context(), backend.StartBot{
				MeetingID:  id,
				MeetingURL: meetingURL,
				BotName:    name,
			})
			if err != nil {
				return err
			}

			store, err := deps.Store()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.SaveMeeting(cmd.Context(), db.Meeting{ID: id, Status: "live"}); err != nil {
				return fmt.Errorf("caching meeting: %w", err)
			}

			formatter.Success(fmt.Sprintf("Bot joining %s", meetingURL))
			formatter.Info(fmt.Sprintf("Follow it with: meetsync live %s", id))
			return nil
		},
	}

	cmd.Flags().StringVarP(&meetingURL, "url", "u", "", "Meeting URL to join")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name for the bot")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}

func newBotStopCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <meeting-id>",
		Short: "Make a bot leave its meeting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(cmd.OutOrStdout())

			res, err := deps.Backend().StopBot(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			formatter.Success(fmt.Sprintf("Bot stopped for %s", args[0]))
			if res.RecordingPath != "" {
				formatter.Info(fmt.Sprintf("Server recording: %s", res.RecordingPath))
			}
			return nil
		},
	}
}

func newBotStatusCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "status <meeting-id>",
		Short: "Show a bot's status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(cmd.OutOrStdout())

			s, err := deps.Backend().BotStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			formatter.BotStatus(args[0], s)
			return nil
		},
	}
}

func newBotListCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List bots currently in meetings",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(cmd.OutOrStdout())

			bots, err := deps.Backend().ActiveBots(cmd.Context())
			if err != nil {
				return err
			}
			if len(bots) == 0 {
				formatter.Info("No active bots")
				return nil
			}

			ids := make([]string, 0, len(bots))
			for id := range bots {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				formatter.BotStatus(id, bots[id])
			}
			return nil
		},
	}
}
