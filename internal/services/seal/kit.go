package seal

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"timecapsule/internal/domain"
)

// RecoveryKit renders the backup share as a printable document. The
// kit is exported to the author at seal time and is their sole
// responsibility thereafter; the server never sees it.
func RecoveryKit(id domain.LetterID, backupShare []byte) string {
	return fmt.Sprintf(`TIMECAPSULE RECOVERY KIT
========================

Letter:  %s
Printed: %s

If the unlock code for this letter is ever lost, the backup share
below can open it instead, once the letter's unlock time has passed.

Backup share:

    %s

Keep this page somewhere safe and private. Anyone holding both this
page and the letter's link can read the letter after it unlocks.
`, id, time.Now().UTC().Format(time.RFC3339), base64.StdEncoding.EncodeToString(backupShare))
}

// ParseBackupShare reads the base64 share back out of user input.
func ParseBackupShare(s string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, domain.ErrIntegrityFailure
	}
	return raw, nil
}

// ParseRecoveryKit extracts the backup share from a printed kit. It
// accepts the whole document; the share is the indented base64 line
// under the "Backup share:" heading.
func ParseRecoveryKit(doc string) ([]byte, error) {
	seen := false
	for _, line := range strings.Split(doc, "\n") {
		line = strings.TrimSpace(line)
		if line == "Backup share:" {
			seen = true
			continue
		}
		if seen && line != "" {
			return ParseBackupShare(line)
		}
	}
	return nil, domain.ErrIntegrityFailure
}
