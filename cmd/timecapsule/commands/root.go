package commands

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"timecapsule/internal/app"
)

var (
	vaultURL string
	blobDir  string
	appCtx   *app.Client
)

func Execute() error {
	root := &cobra.Command{
		Use:   "timecapsule",
		Short: "Seal letters that unlock at a chosen future instant",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if blobDir == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				blobDir = filepath.Join(dir, ".timecapsule", "blobs")
			}
			if err := os.MkdirAll(blobDir, 0o700); err != nil {
				return err
			}

			var err error
			appCtx, err = app.NewClient(app.ClientConfig{
				VaultURL: vaultURL,
				BlobDir:  blobDir,
				HTTP:     &http.Client{Timeout: 30 * time.Second},
			})
			return err
		},
	}

	root.PersistentFlags().StringVar(&vaultURL, "vault", "http://127.0.0.1:8089", "vault base URL")
	root.PersistentFlags().StringVar(&blobDir, "blobs", "", "blob dir (default ~/.timecapsule/blobs)")

	root.AddCommand(
		sealCmd(), statusCmd(), openCmd(), recoverCmd(),
		regenerateCmd(), revokeCmd(), rotateCmd(), cancelCmd(), deleteCmd(),
	)
	return root.Execute()
}
