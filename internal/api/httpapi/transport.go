package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/Britbrat22/aidaw/internal/app/session"
)

func (s *Service) handleTransport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewOfTransport(s.session.TransportState()))
}

func (s *Service) handlePlay(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewOfTransport(s.session.Play()))
}

func (s *Service) handlePause(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewOfTransport(s.session.Pause()))
}

func (s *Service) handleStop(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewOfTransport(s.session.Stop()))
}

// handleSeek is the external clock's entry point for advancing the
// playhead; the server never ticks the position itself.
func (s *Service) handleSeek(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Position float64 `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed seek: "+err.Error())
		return
	}

	ts, err := s.session.Seek(body.Position)
	if errors.Is(err, session.ErrNegativeSeek) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, viewOfTransport(ts))
}
