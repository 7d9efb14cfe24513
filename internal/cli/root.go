package cli

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jwulff/meetsync/internal/backend"
	"github.com/jwulff/meetsync/internal/config"
	"github.com/jwulff/meetsync/internal/db"
	"github.com/jwulff/meetsync/internal/logging"
	"github.com/jwulff/meetsync/internal/version"
)

// Annotations on commands that change where logs go.
const (
	annotationTUI   = "tui"   // a full-screen UI owns the terminal
	annotationStdio = "stdio" // stdout carries a protocol
)

// Dependencies are resolved once per invocation, before any command runs.
type Dependencies struct {
	Config *config.Config
	Log    zerolog.Logger

	// ConfigOptions are passed to config.Load ahead of the flag-derived ones.
	ConfigOptions []config.Option

	configFile string
	logLevel   string
	closer     io.Closer
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "meetsync",
		Short: "Record, follow and review meeting transcripts",
		Long: "Capture meeting audio, follow a bot's live transcript as it arrives, and replay a\n" +
			"recording with the spoken word highlighted in its transcript.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return deps.load(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return deps.Close()
		},
	}

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(version.Full() + "\n")

	rootCmd.PersistentFlags().StringVarP(&deps.configFile, "config", "c", "", "Config file (default: search ./meetsync.toml, ~/.config/meetsync/)")
	rootCmd.PersistentFlags().StringVar(&deps.logLevel, "log-level", "", "Override the log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(NewRecordCmd(deps))
	rootCmd.AddCommand(NewLiveCmd(deps))
	rootCmd.AddCommand(NewReviewCmd(deps))
	rootCmd.AddCommand(NewBotCmd(deps))
	rootCmd.AddCommand(NewMeetingCmd(deps))
	rootCmd.AddCommand(NewTranscribeCmd(deps))
	rootCmd.AddCommand(NewSummarizeCmd(deps))
	rootCmd.AddCommand(NewConfigCmd(deps))
	rootCmd.AddCommand(NewMCPCmd(deps))

	return rootCmd
}

func (d *Dependencies) load(cmd *cobra.Command) error {
	opts := append([]config.Option{}, d.ConfigOptions...)
	if d.configFile != "" {
		opts = append(opts, config.WithConfigFile(d.configFile))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if d.logLevel != "" {
		cfg.Log.Level = d.logLevel
	}

	logCfg := cfg.Log
	switch {
	case cmd.Annotations[annotationTUI] == "true" && isTerminalOutput(logCfg.Output):
		logCfg.Output = logging.DefaultFile()
	case cmd.Annotations[annotationStdio] == "true" && strings.EqualFold(logCfg.Output, "stdout"):
		logCfg.Output = "stderr"
	}

	log, closer, err := logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}

	d.Config = cfg
	d.Log = log
	d.closer = closer
	d.Log.Debug().Str("command", cmd.CommandPath()).Str("log", logCfg.Output).Msg("starting")
	return nil
}

// Close releases the log output.
func (d *Dependencies) Close() error {
	if d.closer == nil {
		return nil
	}
	err := d.closer.Close()
	d.closer = nil
	return err
}

// Backend returns a client for the configured meeting backend.
func (d *Dependencies) Backend() *backend.Client {
	return backend.New(d.Config.API.BaseURL,
		backend.WithHTTPClient(&http.Client{Timeout: d.Config.API.Timeout}),
		backend.WithLogger(d.Log),
	)
}

// Store opens the local transcript cache.
func (d *Dependencies) Store() (*db.Store, error) {
	store, err := db.Open(d.Config.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return store, nil
}

func isTerminalOutput(output string) bool {
	switch strings.ToLower(output) {
	case "", "stderr", "stdout":
		return true
	}
	return false
}
