package httpapi

import (
	"encoding/json"
	"net/http"

	zlog "github.com/rs/zerolog/log"

	"github.com/Britbrat22/aidaw/internal/app/session"
	"github.com/Britbrat22/aidaw/internal/domain/track"
)

// trackView is the wire representation of a track.
type trackView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Volume     int    `json:"volume"`
	Muted      bool   `json:"muted"`
	Solo       bool   `json:"solo"`
	HasSource  bool   `json:"has_source"`
	SourceMIME string `json:"source_mime,omitempty"`
}

func viewOfTrack(t *track.Track) trackView {
	v := trackView{
		ID:        t.ID,
		Name:      t.Name,
		Volume:    t.Volume,
		Muted:     t.Muted,
		Solo:      t.Solo,
		HasSource: t.HasSource(),
	}
	if t.Source != nil {
		v.SourceMIME = t.Source.ContentType()
	}
	return v
}

// transportView is the wire representation of the transport state. Busy
// is the single flag the UI uses to disable all transport controls.
type transportView struct {
	State    string  `json:"state"`
	Playing  bool    `json:"playing"`
	Position float64 `json:"position"`
	Elapsed  string  `json:"elapsed"`
	Busy     bool    `json:"busy"`
}

func viewOfTransport(ts session.Transport) transportView {
	return transportView{
		State:    ts.State.String(),
		Playing:  ts.State.IsPlaying(),
		Position: ts.Position,
		Elapsed:  ts.Elapsed(),
		Busy:     ts.Busy,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zlog.Debug().Err(err).Msg("httpapi: failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
