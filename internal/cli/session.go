package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSessionCmd() *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect live sessions",
	}

	sessionCmd.AddCommand(newSessionGetCmd())
	sessionCmd.AddCommand(newSessionListCmd())

	return sessionCmd
}

func newSessionGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <player-id>",
		Short: "Show a player's session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Session
			path := fmt.Sprintf("/api/v1/debug/sessions/%s", args[0])
			if err := client.Get(path, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			return out.Print(&result)
		},
	}
}

func newSessionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all live sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []Session
			if err := client.Get("/api/v1/debug/sessions", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			return out.Print(result)
		},
	}
}
