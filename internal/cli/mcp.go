package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jwulff/meetsync/internal/db"
	"github.com/jwulff/meetsync/internal/mcpserver"
	"github.com/jwulff/meetsync/internal/version"
)

func NewMCPCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:         "mcp",
		Short:       "Serve the transcript cache to MCP clients over stdio",
		Annotations: map[string]string{annotationStdio: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := db.OpenReadOnly(deps.Config.Store.Path)
			if err != nil {
				return fmt.Errorf("opening cache: %w", err)
			}
			defer store.Close()

			deps.Log.Info().Str("db", deps.Config.Store.Path).Msg("serving mcp over stdio")
			return mcpserver.Serve(store, version.Version, deps.Log)
		},
	}
}
