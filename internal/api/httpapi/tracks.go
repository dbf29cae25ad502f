package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/Britbrat22/aidaw/internal/app/library"
	"github.com/Britbrat22/aidaw/internal/app/session"
	"github.com/Britbrat22/aidaw/internal/domain/track"
)

func (s *Service) handleListTracks(w http.ResponseWriter, r *http.Request) {
	tracks := s.session.Tracks()
	views := make([]trackView, 0, len(tracks))
	for _, t := range tracks {
		views = append(views, viewOfTrack(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"tracks": views})
}

// handleUploadTrack imports the uploaded file and appends a track for it.
// A request without a file part is ignored without creating a track,
// matching a file picker dismissed with nothing selected.
func (s *Service) handleUploadTrack(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		zlog.Debug().Msg("httpapi: upload without file part ignored")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed upload: "+err.Error())
		return
	}
	defer file.Close()

	src, err := s.library.Import(header.Filename, file)
	switch {
	case errors.Is(err, library.ErrNotAudio):
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
		return
	case errors.Is(err, library.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	case errors.Is(err, library.ErrEmptyUpload):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "import failed")
		return
	}

	added, err := s.session.AddTrack(src)
	if err != nil {
		if rerr := src.Release(); rerr != nil {
			zlog.Warn().Err(rerr).Msg("httpapi: failed to release orphaned source")
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"track": viewOfTrack(added)})
}

// trackPatch is the partial-update request body. Absent fields stay nil
// and are never applied, so a patch carries only what the user changed.
type trackPatch struct {
	Name   *string `json:"name"`
	Volume *int    `json:"volume"`
	Muted  *bool   `json:"muted"`
	Solo   *bool   `json:"solo"`
}

func (s *Service) handleUpdateTrack(w http.ResponseWriter, r *http.Request) {
	var patch trackPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "malformed update: "+err.Error())
		return
	}

	updated, err := s.session.UpdateTrack(r.PathValue("id"), track.Update{
		Name:   patch.Name,
		Volume: patch.Volume,
		Muted:  patch.Muted,
		Solo:   patch.Solo,
	})
	if errors.Is(err, session.ErrTrackNotFound) {
		writeError(w, http.StatusNotFound, "track not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"track": viewOfTrack(updated)})
}

func (s *Service) handleRemoveTrack(w http.ResponseWriter, r *http.Request) {
	err := s.session.RemoveTrack(r.PathValue("id"))
	if errors.Is(err, session.ErrTrackNotFound) {
		writeError(w, http.StatusNotFound, "track not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
