package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"timecapsule/internal/services/seal"
)

// seal: encrypt a letter locally, store it sealed, print the link,
// unlock code and recovery kit.
func sealCmd() *cobra.Command {
	var (
		message   string
		textFile  string
		audioFile string
		unlockAt  string
		kitOut    string
	)
	cmd := &cobra.Command{
		Use:   "seal",
		Short: "Encrypt a letter and store it sealed until its unlock time",
		RunE: func(cmd *cobra.Command, args []string) error {
			var text []byte
			switch {
			case message != "":
				text = []byte(message)
			case textFile != "":
				var err error
				text, err = os.ReadFile(textFile)
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("one of --message or --file required")
			}

			var audio []byte
			if audioFile != "" {
				var err error
				audio, err = os.ReadFile(audioFile)
				if err != nil {
					return err
				}
			}

			req := seal.Request{Text: text, Audio: audio}
			if unlockAt != "" {
				at, err := time.Parse(time.RFC3339, unlockAt)
				if err != nil {
					return fmt.Errorf("--unlock-at must be RFC3339, e.g. 2027-01-01T00:00:00Z: %w", err)
				}
				at = at.UTC()
				req.UnlockAt = &at
			}

			res, err := appCtx.Seal.Seal(cmd.Context(), req)
			if err != nil {
				return err
			}

			if err := os.WriteFile(kitOut, []byte(res.RecoveryKit), 0o600); err != nil {
				return fmt.Errorf("letter sealed, but recovery kit not written: %w", err)
			}

			fmt.Printf("Letter sealed.\n\n")
			fmt.Printf("Letter ID:   %s\n", res.LetterID)
			fmt.Printf("Share link:  %s\n", res.Token)
			fmt.Printf("Unlock code: %s\n", color.New(color.Bold).Sprint(res.UnlockCode))
			fmt.Printf("Recovery kit written to %s\n\n", kitOut)
			color.Yellow("Give the link and the code to the recipient separately. The code is shown only once.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "letter text")
	cmd.Flags().StringVar(&textFile, "file", "", "read letter text from file")
	cmd.Flags().StringVar(&audioFile, "audio", "", "attach an audio recording")
	cmd.Flags().StringVar(&unlockAt, "unlock-at", "", "earliest open instant (RFC3339); empty means immediately openable")
	cmd.Flags().StringVar(&kitOut, "kit-out", "recovery-kit.txt", "where to write the printable recovery kit")
	return cmd
}
