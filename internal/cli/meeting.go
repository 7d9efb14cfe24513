package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jwulff/meetsync/internal/backend"
	"github.com/jwulff/meetsync/internal/db"
	"github.com/jwulff/meetsync/internal/output"
)

func NewMeetingCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "meeting",
		Aliases: []string{"meetings"},
		Short:   "Create, list and upload meetings",
	}

	cmd.AddCommand(newMeetingCreateCmd(deps))
	cmd.AddCommand(newMeetingListCmd(deps))
	cmd.AddCommand(newMeetingShowCmd(deps))
	cmd.AddCommand(newMeetingUploadCmd(deps))

	return cmd
}

func newMeetingCreateCmd(deps *Dependencies) *cobra.Command {
	var m backend.NewMeeting
	var online bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a meeting on the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(cmd.OutOrStdout())

			m.MeetingType = backend.TypePhysical
			m.Platform = backend.PlatformUpload
			if online {
				m.MeetingType = backend.TypeOnline
				m.Platform = ""
			}

			created, err := deps.Backend().CreateMeeting(cmd.Context(), m)
			if err != nil {
				return err
			}

			store, err := deps.Store()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.SaveMeeting(cmd.Context(), db.Meeting{ID: created.ID, Title: m.Title, Status: created.Status}); err != nil {
				return fmt.Errorf("caching meeting: %w", err)
			}

			formatter.Success(fmt.Sprintf("Meeting %s created", created.ID))
			return nil
		},
	}

	cmd.Flags().StringVarP(&m.Title, "title", "t", "", "Meeting title")
	cmd.Flags().StringVarP(&m.Description, "description", "d", "", "Meeting description")
	cmd.Flags().BoolVar(&online, "online", false, "Online meeting joined by a bot")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func newMeetingListCmd(deps *Dependencies) *cobra.Command {
	var cached bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List meetings",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(cmd.OutOrStdout())

			if cached {
				store, err := deps.Store()
				if err != nil {
					return err
				}
				defer store.Close()

				meetings, err := store.Meetings(cmd.Context())
				if err != nil {
					return err
				}
				if len(meetings) == 0 {
					formatter.Info("No meetings cached")
					return nil
				}
				formatter.MeetingListHeader()
				for _, m := range meetings {
					formatter.CachedMeeting(m)
				}
				return nil
			}

			meetings, err := deps.Backend().ListMeetings(cmd.Context())
			if err != nil {
				return err
			}
			if len(meetings) == 0 {
				formatter.Info("No meetings found")
				return nil
			}
			formatter.MeetingListHeader()
			for _, m := range meetings {
				formatter.Meeting(m)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&cached, "cached", false, "List the local cache instead of the backend")

	return cmd
}

func newMeetingShowCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "show <meeting-id>",
		Short: "Print a meeting's cached transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(cmd.OutOrStdout())

			store, err := deps.Store()
			if err != nil {
				return err
			}
			defer store.Close()

			m, err := store.Meeting(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if m == nil {
				return fmt.Errorf("meeting %s is not cached", args[0])
			}
			segs, err := store.Transcript(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			formatter.CachedMeeting(*m)
			formatter.Transcript(segs)
			return nil
		},
	}
}

func newMeetingUploadCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <meeting-id> <file>",
		Short: "Upload an audio file as a meeting's recording",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(cmd.OutOrStdout())

			formatter.Uploading(args[0])
			m, err := deps.Backend().UploadFile(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			status := m.Status
			if status == "" {
				status = "uploaded"
			}
			formatter.Success(fmt.Sprintf("Uploaded %s (%s)", args[1], status))
			return nil
		},
	}
}
