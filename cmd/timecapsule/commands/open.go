package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"timecapsule/internal/domain"
	"timecapsule/internal/services/seal"
)

// open <token>: unlock and print a letter.
func openCmd() *cobra.Command {
	var (
		code     string
		audioOut string
	)
	cmd := &cobra.Command{
		Use:   "open <share-link>",
		Short: "Unlock a letter with its share link and unlock code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if code == "" {
				return fmt.Errorf("unlock code required (--code)")
			}
			token := domain.Token(args[0])

			opened, err := appCtx.Seal.Open(cmd.Context(), token, code)
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
	cmd.Flags().StringVar(&code, "code", "", "the 12-character unlock code")
	cmd.Flags().StringVar(&audioOut, "audio-out", "letter-audio.bin", "where to write decrypted audio, if any")
	return cmd
}

// renderOpenError keeps user-facing wording aligned with the failure
// taxonomy: wrong code and corrupted material read identically, and a
// closed time gate renders as a countdown, not a fault.
func renderOpenError(err error) error {
	var notYet *seal.NotYetError
	switch {
	case errors.As(err, &notYet):
		if notYet.UnlockAt != nil {
			color.Cyan("This letter is still sealed. It unlocks in %s.", countdown(*notYet.UnlockAt))
		} else {
			color.Cyan("This letter is still sealed.")
		}
		return nil
	case errors.Is(err, domain.ErrAuthFailure), errors.Is(err, domain.ErrIntegrityFailure):
		return fmt.Errorf("unlock code incorrect")
	case errors.Is(err, domain.ErrTokenRevoked), errors.Is(err, domain.ErrTokenRotated):
		return fmt.Errorf("this link is no longer valid; ask the sender for a new one")
	case errors.Is(err, domain.ErrCanceled):
		return fmt.Errorf("this letter was withdrawn by its author")
	case errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("no letter behind this link; check it with the sender")
	default:
		return err
	}
}
