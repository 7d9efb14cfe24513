package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jwulff/meetsync/internal/config"
)

func NewConfigCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := deps.Config.TOML()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "paths",
		Short: "List where config files are searched",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, dir := range config.SearchDirs() {
				fmt.Fprintln(cmd.OutOrStdout(), dir)
			}
			return nil
		},
	})

	return cmd
}
