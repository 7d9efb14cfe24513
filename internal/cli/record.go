package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gopxl/beep"
	"github.com/spf13/cobra"

	"github.com/jwulff/meetsync/internal/app"
	"github.com/jwulff/meetsync/internal/backend"
	"github.com/jwulff/meetsync/internal/capture"
	"github.com/jwulff/meetsync/internal/db"
	"github.com/jwulff/meetsync/internal/output"
)

func NewRecordCmd(deps *Dependencies) *cobra.Command {
	var title string
	var process bool
	var noUpload bool
	var opts processOptions

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a meeting from the microphone",
		Long: "Record audio from the default microphone (space pauses and resumes, s stops).\n" +
			"The recording is saved as WAV, uploaded as a new meeting, and with --process\n" +
			"transcribed and summarized.",
		Annotations: map[string]string{annotationTUI: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(cmd.OutOrStdout())

			if title == "" {
				title = "Recording " + time.Now().Format("2006-01-02 15:04")
			}

			rec, err := runRecorder(deps, title)
			if err != nil {
				return err
			}
			if rec == nil {
				formatter.Warning("Recording discarded")
				return nil
			}
			formatter.RecordingStopped(float64(rec.Elapsed), rec.Chunks)

			path, err := saveRecording(deps.Config.Capture.OutputDir, rec)
			if err != nil {
				return err
			}
			formatter.RecordingSaved(path)

			if noUpload {
				return nil
			}
			return uploadRecording(cmd.Context(), deps, title, path, process, opts, formatter)
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Meeting title")
	cmd.Flags().BoolVar(&process, "process", false, "Transcribe and summarize after upload")
	cmd.Flags().BoolVar(&noUpload, "no-upload", false, "Only save the recording locally")
	opts.bind(cmd, true)

	return cmd
}

func runRecorder(deps *Dependencies, title string) (*capture.Recording, error) {
	cfg := deps.Config.Capture
	format := beep.Format{
		SampleRate:  beep.SampleRate(cfg.SampleRate),
		NumChannels: cfg.Channels,
		Precision:   2,
	}
	device := capture.FFmpegDevice{
		Binary:       cfg.FFmpeg,
		InputFormat:  cfg.InputFormat,
		Input:        cfg.Input,
		Format:       format,
		StartTimeout: cfg.StartTimeout,
	}
	session := capture.NewSession(device, capture.Options{
		ChunkInterval: cfg.ChunkInterval,
		TickInterval:  cfg.TickInterval,
		Format:        format,
		Logger:        deps.Log,
	})
	defer session.Close()

	final, err := tea.NewProgram(app.NewRecord(session, title), tea.WithAltScreen()).Run()
	if err != nil {
		return nil, fmt.Errorf("running recorder: %w", err)
	}
	return final.(app.RecordModel).Recording(), nil
}

func saveRecording(dir string, rec *capture.Recording) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	path := filepath.Join(dir, "recording_"+time.Now().Format("20060102-150405")+".wav")
	if err := rec.WriteWAV(path); err != nil {
		return "", err
	}
	return path, nil
}

func uploadRecording(ctx context.Context, deps *Dependencies, title, path string, process bool, opts processOptions, formatter *output.Formatter) error {
	client := deps.Backend()

	m, err := client.CreateMeeting(ctx, backend.NewMeeting{
		Title:       title,
		MeetingType: backend.TypePhysical,
		Platform:    backend.PlatformRecording,
	})
	if err != nil {
		return err
	}

	formatter.Uploading(m.ID)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()
	uploaded, err := client.UploadAudio(ctx, m.ID, "recording_"+m.ID+".wav", f)
	if err != nil {
		return err
	}
	if uploaded.Status != "" {
		m.Status = uploaded.Status
	}

	store, err := deps.Store()
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.SaveMeeting(ctx, db.Meeting{ID: m.ID, Title: title, Status: m.Status}); err != nil {
		return fmt.Errorf("caching meeting: %w", err)
	}
	formatter.Success(fmt.Sprintf("Meeting %s created", m.ID))

	if !process {
		return nil
	}
	if _, err := transcribe(ctx, client, store, m.ID, opts, formatter); err != nil {
		return err
	}
	return summarize(ctx, client, m.ID, opts, formatter)
}
