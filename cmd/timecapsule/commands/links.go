package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"timecapsule/internal/domain"
)

// revoke <letter-id>: permanently disable the current share link.
func revokeCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "revoke <letter-id>",
		Short: "Permanently disable the current share link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := appCtx.Vault.Revoke(cmd.Context(), domain.LetterID(args[0]), reason)
			if err != nil {
				return err
			}
			if res.WasActive {
				fmt.Println("Share link revoked.")
			} else {
				fmt.Println("No active share link; nothing to revoke.")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "why the link is being revoked")
	return cmd
}

// rotate <letter-id>: replace the current share link with a fresh one.
func rotateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rotate <letter-id>",
		Short: "Replace the current share link with a fresh one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := appCtx.Vault.Rotate(cmd.Context(), domain.LetterID(args[0]))
			if err != nil {
				return err
			}
			fmt.Printf("New share link: %s\nThe old link no longer resolves.\n", token)
			return nil
		},
	}
}

// cancel <letter-id>: withdraw an unopened letter for good.
func cancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <letter-id>",
		Short: "Permanently withdraw an unopened letter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := appCtx.Vault.Cancel(cmd.Context(), domain.LetterID(args[0])); err != nil {
				return err
			}
			fmt.Println("Letter canceled. Nobody can open it anymore.")
			return nil
		},
	}
}

// delete <letter-id>: remove the letter and its blobs entirely.
func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <letter-id>",
		Short: "Remove a letter and its encrypted blobs entirely",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := appCtx.Vault.Delete(cmd.Context(), domain.LetterID(args[0])); err != nil {
				return err
			}
			fmt.Println("Letter deleted.")
			return nil
		},
	}
}
