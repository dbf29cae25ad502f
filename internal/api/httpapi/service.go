// Package httpapi exposes the session manager as a JSON HTTP API.
package httpapi

import (
	"net/http"

	"github.com/Britbrat22/aidaw/internal/app/export"
	"github.com/Britbrat22/aidaw/internal/app/library"
	"github.com/Britbrat22/aidaw/internal/app/session"
)

// Config holds service configuration.
type Config struct {
	Token          string        // Bearer token for mutating routes; empty disables auth
	MaxUploadBytes int64         // Upload size limit hint for multipart parsing
	DefaultFormat  export.Format // Export format used when the request omits one
}

// Service implements the HTTP API over the session manager and the
// library store.
type Service struct {
	session        *session.Manager
	library        *library.Store
	token          string
	maxUploadBytes int64
	defaultFormat  export.Format
}

// NewService creates a new Service.
func NewService(sess *session.Manager, lib *library.Store, cfg Config) *Service {
	maxBytes := cfg.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = 256 << 20
	}
	defaultFormat := cfg.DefaultFormat
	if defaultFormat == "" {
		defaultFormat = export.FormatWAV
	}
	return &Service{
		session:        sess,
		library:        lib,
		token:          cfg.Token,
		maxUploadBytes: maxBytes,
		defaultFormat:  defaultFormat,
	}
}

// Handler returns the routed HTTP handler.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("GET /api/tracks", s.handleListTracks)
	mux.HandleFunc("POST /api/tracks", s.requireToken(s.handleUploadTrack))
	mux.HandleFunc("PATCH /api/tracks/{id}", s.requireToken(s.handleUpdateTrack))
	mux.HandleFunc("DELETE /api/tracks/{id}", s.requireToken(s.handleRemoveTrack))

	mux.HandleFunc("GET /api/transport", s.handleTransport)
	mux.HandleFunc("POST /api/transport/play", s.requireToken(s.handlePlay))
	mux.HandleFunc("POST /api/transport/pause", s.requireToken(s.handlePause))
	mux.HandleFunc("POST /api/transport/stop", s.requireToken(s.handleStop))
	mux.HandleFunc("POST /api/transport/seek", s.requireToken(s.handleSeek))

	mux.HandleFunc("POST /api/export", s.requireToken(s.handleExport))

	return mux
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
