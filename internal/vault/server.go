package vault

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/op/go-logging.v1"

	"timecapsule/internal/domain"
	"timecapsule/internal/services/sharelink"
	"timecapsule/internal/services/unlock"
)

// Server mounts the vault handlers. It holds no crypto capability: it
// stores envelopes it cannot open and shares it may only release
// through the unlock gate.
type Server struct {
	letters domain.LetterStore
	blobs   domain.BlobStore // optional; used only to clean up on delete
	links   *sharelink.Service
	gate    *unlock.Service
	log     *logging.Logger
	m       *metrics
}

// NewServer wires the handlers. reg may be nil to disable metrics.
func NewServer(
	letters domain.LetterStore,
	blobs domain.BlobStore,
	links *sharelink.Service,
	gate *unlock.Service,
	log *logging.Logger,
	reg prometheus.Registerer,
) *Server {
	return &Server{
		letters: letters,
		blobs:   blobs,
		links:   links,
		gate:    gate,
		log:     log,
		m:       newMetrics(reg),
	}
}

// Routes registers all vault endpoints on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /letters", s.handleSeal)
	mux.HandleFunc("POST /letters/{id}/cancel", s.handleCancel)
	mux.HandleFunc("DELETE /letters/{id}", s.handleDelete)
	mux.HandleFunc("POST /letters/{id}/revoke", s.handleRevoke)
	mux.HandleFunc("POST /letters/{id}/rotate", s.handleRotate)
	mux.HandleFunc("POST /letters/{id}/regenerate", s.handleRegenerate)
	mux.HandleFunc("GET /l/{token}", s.handleResolve)
	mux.HandleFunc("POST /l/{token}/open", s.handleOpen)
}

func (s *Server) handleSeal(w http.ResponseWriter, r *http.Request) {
	var req sealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "bad_request")
		return
	}
	l := req.letter()
	if err := s.letters.PutSealed(l); err != nil {
		s.fail(w, err)
		return
	}
	token, err := s.links.Create(l.ID)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.m.seals.Inc()
	writeJSON(w, http.StatusCreated, tokenResponse{Token: string(token)})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := domain.LetterID(r.PathValue("id"))
	if err := s.letters.Cancel(id); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := domain.LetterID(r.PathValue("id"))
	removed, err := s.letters.Delete(id)
	if err != nil {
		s.fail(w, err)
		return
	}
	if s.blobs != nil {
		for _, ref := range []string{removed.CiphertextRef, removed.AudioRef} {
			if ref == "" {
				continue
			}
			if err := s.blobs.Delete(ref); err != nil {
				s.log.Warningf("letter %s: blob %s not removed: %v", id, ref, err)
			}
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	id := domain.LetterID(r.PathValue("id"))
	var req revokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "bad_request")
		return
	}
	res, err := s.links.Revoke(id, req.Reason)
	if err != nil {
		s.fail(w, err)
		return
	}
	if res.WasActive {
		s.m.revocations.Inc()
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRotate(w http.ResponseWriter, r *http.Request) {
	id := domain.LetterID(r.PathValue("id"))
	token, err := s.links.Rotate(id)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.m.rotations.Inc()
	writeJSON(w, http.StatusOK, tokenResponse{Token: string(token)})
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	id := domain.LetterID(r.PathValue("id"))
	var req regenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "bad_request")
		return
	}
	if err := s.gate.Regenerate(id, req.Envelope); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	token := domain.Token(r.PathValue("token"))
	d, err := s.gate.Disclose(token)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.m.resolves.Inc()
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	token := domain.Token(r.PathValue("token"))
	res, err := s.gate.Open(token)
	if err != nil {
		s.fail(w, err)
		return
	}
	if res.IsFirstOpen {
		s.m.firstOpens.Inc()
	}
	writeJSON(w, http.StatusOK, res)
}

// fail maps the failure taxonomy onto HTTP statuses and wire codes.
func (s *Server) fail(w http.ResponseWriter, err error) {
	code := domain.ErrorCode(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrCanceled),
		errors.Is(err, domain.ErrTokenRevoked),
		errors.Is(err, domain.ErrTokenRotated):
		status = http.StatusGone
	case errors.Is(err, domain.ErrTimeLockNotReached):
		status = http.StatusTooEarly
	case errors.Is(err, domain.ErrAlreadyOpened),
		errors.Is(err, domain.ErrAlreadyRegenerated):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.log.Errorf("request failed: %v", err)
	}
	httpError(w, status, code)
}

func httpError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, errorResponse{Error: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
