package session

import (
	"github.com/Britbrat22/aidaw/internal/app/export"
	"github.com/Britbrat22/aidaw/internal/domain/track"
)

// EventType represents a session event type.
type EventType int

const (
	EventTrackAdded       EventType = iota // Track appended to the list
	EventTrackUpdated                      // Track fields changed
	EventTrackRemoved                      // Track removed, source released
	EventTransportChanged                  // Play/pause/stop transition
	EventExportStarted                     // Export accepted, busy set
	EventExportFinished                    // Export artifact produced, busy cleared
	EventExportFailed                      // Export failed, busy cleared
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackAdded:
		return "track_added"
	case EventTrackUpdated:
		return "track_updated"
	case EventTrackRemoved:
		return "track_removed"
	case EventTransportChanged:
		return "transport_changed"
	case EventExportStarted:
		return "export_started"
	case EventExportFinished:
		return "export_finished"
	case EventExportFailed:
		return "export_failed"
	default:
		return "unknown"
	}
}

// Event represents a session state change. Track carries a copy of the
// affected track (nil for transport and export events).
type Event struct {
	Type   EventType
	Track  *track.Track
	State  State
	Format export.Format // Export events only
	Err    error         // EventExportFailed only
}
