package cli

import (
	"github.com/spf13/cobra"
)

func newServersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "servers",
		Short: "Show the known server fleet",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []ServerInfo
			if err := client.Get("/api/v1/debug/servers", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			return out.Print(result)
		},
	}
}
