package commands

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"timecapsule/internal/domain"
)

// status <token>: show the unlock state behind a share link.
func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <share-link>",
		Short: "Show a share link's unlock state and countdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := appCtx.Vault.Resolve(cmd.Context(), domain.Token(args[0]))
			if err != nil {
				return renderOpenError(err)
			}
			if d.CanUnlock {
				color.Green("Unlockable now.")
				return nil
			}
			if d.UnlockAt != nil {
				color.Cyan("Sealed. Unlocks %s (in %s).",
					d.UnlockAt.Local().Format(time.RFC1123), countdown(*d.UnlockAt))
			} else {
				color.Cyan("Sealed.")
			}
			return nil
		},
	}
}

func countdown(at time.Time) string {
	d := time.Until(at).Round(time.Second)
	if d < 0 {
		d = 0
	}
	day := 24 * time.Hour
	if d >= day {
		return fmt.Sprintf("%dd %s", d/day, d%day)
	}
	return d.String()
}
