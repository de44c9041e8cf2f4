package commands

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"timecapsule/internal/domain"
	"timecapsule/internal/services/seal"
)

func readBackupShare(kitFile, shareB64 string) ([]byte, error) {
	switch {
	case kitFile != "":
		doc, err := os.ReadFile(kitFile)
		if err != nil {
			return nil, err
		}
		return seal.ParseRecoveryKit(string(doc))
	case shareB64 != "":
		return seal.ParseBackupShare(shareB64)
	default:
		return nil, fmt.Errorf("one of --kit or --share required")
	}
}

// recover <token>: open a letter with the recovery-kit backup share
// instead of the unlock code. The time lock applies identically.
func recoverCmd() *cobra.Command {
	var (
		kitFile  string
		shareB64 string
		audioOut string
	)
	cmd := &cobra.Command{
		Use:   "recover <share-link>",
		Short: "Open a letter with the recovery-kit backup share",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backup, err := readBackupShare(kitFile, shareB64)
			if err != nil {
				return err
			}
			opened, err := appCtx.Seal.Recover(cmd.Context(), domain.Token(args[0]), backup)
			if err != nil {
				return renderOpenError(err)
			}
			if opened.IsFirstOpen {
				color.Green("Opened for the first time.")
			}
			fmt.Println(string(opened.Text))
			if len(opened.Audio) > 0 && audioOut != "" {
				if err := os.WriteFile(audioOut, opened.Audio, 0o600); err != nil {
					return err
				}
				fmt.Printf("(audio written to %s)\n", audioOut)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kitFile, "kit", "", "path to the printed recovery kit")
	cmd.Flags().StringVar(&shareB64, "share", "", "backup share as base64, if the kit file is gone")
	cmd.Flags().StringVar(&audioOut, "audio-out", "letter-audio.bin", "where to write decrypted audio, if any")
	return cmd
}

// regenerate <letter-id>: mint a new unlock code for an unopened
// letter, invalidating the old one. Allowed once per letter.
func regenerateCmd() *cobra.Command {
	var (
		kitFile  string
		shareB64 string
	)
	cmd := &cobra.Command{
		Use:   "regenerate <letter-id>",
		Short: "Mint a new unlock code for an unopened letter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backup, err := readBackupShare(kitFile, shareB64)
			if err != nil {
				return err
			}
			code, err := appCtx.Seal.Regenerate(cmd.Context(), domain.LetterID(args[0]), backup)
			if err != nil {
				return err
			}
			fmt.Printf("New unlock code: %s\n", color.New(color.Bold).Sprint(code))
			color.Yellow("The previous code no longer works. This was the letter's one regeneration.")
			return nil
		},
	}
	cmd.Flags().StringVar(&kitFile, "kit", "", "path to the printed recovery kit")
	cmd.Flags().StringVar(&shareB64, "share", "", "backup share as base64, if the kit file is gone")
	return cmd
}
