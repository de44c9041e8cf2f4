package vault

import (
	"time"

	"timecapsule/internal/domain"
)

// sealRequest is the wire form of a sealed letter. The server stores
// what it receives; it cannot unwrap the envelope or use the server
// share alone.
type sealRequest struct {
	ID            string          `json:"id"`
	CiphertextRef string          `json:"ciphertextRef"`
	IV            []byte          `json:"iv"`
	AudioRef      string          `json:"audioRef,omitempty"`
	AudioIV       []byte          `json:"audioIV,omitempty"`
	UnlockAt      *time.Time      `json:"unlockAt,omitempty"`
	ServerShare   []byte          `json:"serverShare"`
	Envelope      domain.Envelope `json:"envelope"`
}

func (r sealRequest) letter() domain.Letter {
	return domain.Letter{
		ID:            domain.LetterID(r.ID),
		CiphertextRef: r.CiphertextRef,
		IV:            r.IV,
		AudioRef:      r.AudioRef,
		AudioIV:       r.AudioIV,
		UnlockAt:      r.UnlockAt,
		ServerShare:   r.ServerShare,
		Envelope:      r.Envelope,
		CreatedAt:     time.Now().UTC(),
	}
}

func toSealRequest(l domain.Letter) sealRequest {
	return sealRequest{
		ID:            string(l.ID),
		CiphertextRef: l.CiphertextRef,
		IV:            l.IV,
		AudioRef:      l.AudioRef,
		AudioIV:       l.AudioIV,
		UnlockAt:      l.UnlockAt,
		ServerShare:   l.ServerShare,
		Envelope:      l.Envelope,
	}
}

type tokenResponse struct {
	Token string `json:"token"`
}

type revokeRequest struct {
	Reason string `json:"reason"`
}

type regenerateRequest struct {
	Envelope domain.Envelope `json:"envelope"`
}

type errorResponse struct {
	Error string `json:"error"`
}
