package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPartyCmd() *cobra.Command {
	partyCmd := &cobra.Command{
		Use:   "party",
		Short: "Inspect and manage parties",
	}

	partyCmd.AddCommand(newPartyGetCmd())
	partyCmd.AddCommand(newPartyInviteCmd())
	partyCmd.AddCommand(newPartyAcceptCmd())
	partyCmd.AddCommand(newPartyLeaveCmd())

	return partyCmd
}

func newPartyGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <party-id>",
		Short: "Show a party's roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Party
			path := fmt.Sprintf("/api/v1/parties/%s", args[0])
			if err := client.Get(path, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			return out.Print(&result)
		},
	}
}

func newPartyInviteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invite <leader-id> <target-id>",
		Short: "Invite a player to the leader's party",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{
				"leader_id": args[0],
				"target_id": args[1],
			}

			var result Party
			if err := client.Post("/api/v1/parties/invite", body, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			return out.Print(&result)
		},
	}
}

func newPartyAcceptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accept <player-id> <party-id>",
		Short: "Accept a pending party invite",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{
				"player_id": args[0],
				"party_id":  args[1],
			}

			var result Party
			if err := client.Post("/api/v1/parties/accept", body, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			return out.Print(&result)
		},
	}
}

func newPartyLeaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave <player-id>",
		Short: "Leave the current party",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{"player_id": args[0]}

			if err := client.Post("/api/v1/parties/leave", body, nil); err != nil {
				return err
			}

			fmt.Println("Left party")
			return nil
		},
	}
}
