package httpapi

import (
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/Britbrat22/aidaw/internal/app/export"
	"github.com/Britbrat22/aidaw/internal/app/session"
)

// handleExport runs a mix-and-master export and streams the artifact
// back. A second export while one is outstanding gets 409; the UI's busy
// flag should make that unreachable, this is the backstop.
func (s *Service) handleExport(w http.ResponseWriter, r *http.Request) {
	format := s.defaultFormat
	if raw := r.URL.Query().Get("format"); raw != "" {
		var err error
		format, err = export.ParseFormat(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	artifact, err := s.session.Export(r.Context(), format)
	if errors.Is(err, session.ErrExportBusy) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		zlog.Warn().Err(err).Msgf("httpapi: export failed: format=%s", format)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	w.Header().Set("Content-Type", artifact.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Data)))
	w.Header().Set("Content-Disposition", `attachment; filename=`+strconv.Quote(artifact.Filename))
	if _, err := w.Write(artifact.Data); err != nil {
		zlog.Debug().Err(err).Msg("httpapi: failed to write artifact")
	}
}
