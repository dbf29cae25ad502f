package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/Britbrat22/aidaw/internal/app/export"
	"github.com/Britbrat22/aidaw/internal/domain/track"
)

// Errors
var (
	ErrTrackNotFound = errors.New("track not found")
	ErrExportBusy    = errors.New("an export is already in progress")
	ErrClosed        = errors.New("session is closed")
	ErrNegativeSeek  = errors.New("seek position must be non-negative")
)

// Config holds session manager configuration.
type Config struct {
	TargetLUFS float64 // Loudness target handed to the mastering engine
}

// Manager owns the session's track list and transport state. Every
// mutation goes through Manager; readers only ever see copies, so no
// caller can reach into owned state.
type Manager struct {
	mu sync.Mutex

	tracks []*track.Track
	added  int // Tracks ever added, drives "Track N" placeholder numbering

	state    State
	position float64 // Playhead position in seconds
	busy     bool    // True while an export is outstanding

	masterer   export.Masterer
	targetLUFS float64

	eventCh chan Event
	closed  bool
}

// Transport is a read-only snapshot of the transport state.
type Transport struct {
	State    State
	Position float64 // Seconds
	Busy     bool
}

// Elapsed formats the playhead position the way the transport bar
// displays it, e.g. "12.34s".
func (t Transport) Elapsed() string {
	return fmt.Sprintf("%.2fs", t.Position)
}

// NewManager creates a session manager. The masterer is the export
// collaborator; the session itself performs no audio processing.
func NewManager(masterer export.Masterer, cfg Config) *Manager {
	return &Manager{
		tracks:     make([]*track.Track, 0),
		masterer:   masterer,
		targetLUFS: cfg.TargetLUFS,
		eventCh:    make(chan Event, 16),
	}
}

// Events returns the event channel. It is closed by Close.
func (m *Manager) Events() <-chan Event {
	return m.eventCh
}

// AddTrack appends a new track built from the imported source, with the
// default fader state and the source's display name.
func (m *Manager) AddTrack(src track.Source) (*track.Track, error) {
	name := ""
	if src != nil {
		name = src.DisplayName()
	}
	return m.appendTrack(name, src)
}

// AddEmptyTrack appends a placeholder track with no audio attached.
func (m *Manager) AddEmptyTrack() (*track.Track, error) {
	return m.appendTrack("", nil)
}

func (m *Manager) appendTrack(name string, src track.Source) (*track.Track, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}

	m.added++
	t := track.New(name, m.added, src)
	m.tracks = append(m.tracks, t)
	out := *t
	m.sendEventLocked(Event{Type: EventTrackAdded, Track: &out, State: m.state})
	m.mu.Unlock()

	zlog.Info().Msgf("session: track added: id=%s name=%s", out.ID, out.Name)
	return &out, nil
}

// UpdateTrack applies a partial update to the track matching id. Volume
// saturates into range. The matched track is replaced with an updated
// copy; every other track is left referentially unchanged.
func (m *Manager) UpdateTrack(id string, u track.Update) (*track.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	i := m.indexLocked(id)
	if i < 0 {
		zlog.Debug().Msgf("session: update for unknown track ignored: id=%s", id)
		return nil, ErrTrackNotFound
	}

	updated := *m.tracks[i]
	u.Apply(&updated)
	m.tracks[i] = &updated

	out := updated
	m.sendEventLocked(Event{Type: EventTrackUpdated, Track: &out, State: m.state})
	return &out, nil
}

// RemoveTrack removes the track matching id, preserving the order of the
// remainder and releasing the track's source.
func (m *Manager) RemoveTrack(id string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}

	i := m.indexLocked(id)
	if i < 0 {
		m.mu.Unlock()
		return ErrTrackNotFound
	}

	removed := m.tracks[i]
	m.tracks = append(m.tracks[:i], m.tracks[i+1:]...)
	out := *removed
	m.sendEventLocked(Event{Type: EventTrackRemoved, Track: &out, State: m.state})
	m.mu.Unlock()

	if removed.Source != nil {
		if err := removed.Source.Release(); err != nil {
			zlog.Warn().Err(err).Msgf("session: failed to release source for track %s", id)
		}
	}
	zlog.Info().Msgf("session: track removed: id=%s name=%s", out.ID, out.Name)
	return nil
}

// Track returns a copy of the track matching id.
func (m *Manager) Track(id string) (*track.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexLocked(id)
	if i < 0 {
		return nil, ErrTrackNotFound
	}
	out := *m.tracks[i]
	return &out, nil
}

// Tracks returns a copy of the track list in insertion order.
func (m *Manager) Tracks() []*track.Track {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.copyTracksLocked()
}

func (m *Manager) copyTracksLocked() []*track.Track {
	out := make([]*track.Track, len(m.tracks))
	for i, t := range m.tracks {
		c := *t
		out[i] = &c
	}
	return out
}

func (m *Manager) indexLocked(id string) int {
	for i, t := range m.tracks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Play starts the transport. Playing from paused resumes at the current
// position. The playhead itself is advanced by an external clock via
// Seek, never by the manager.
func (m *Manager) Play() Transport {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StatePlaying {
		m.state = StatePlaying
		m.sendEventLocked(Event{Type: EventTransportChanged, State: m.state})
	}
	return m.transportLocked()
}

// Pause freezes the transport at the current position. A no-op unless
// the transport is playing.
func (m *Manager) Pause() Transport {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StatePlaying {
		m.state = StatePaused
		m.sendEventLocked(Event{Type: EventTransportChanged, State: m.state})
	}
	return m.transportLocked()
}

// Stop halts the transport and resets the playhead to zero,
// unconditionally. Idempotent.
func (m *Manager) Stop() Transport {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateStopped || m.position != 0 {
		m.state = StateStopped
		m.position = 0
		m.sendEventLocked(Event{Type: EventTransportChanged, State: m.state})
	}
	return m.transportLocked()
}

// Seek moves the playhead. This is the external clock's entry point and
// may be called at arbitrary granularity, so no event is emitted.
func (m *Manager) Seek(seconds float64) (Transport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if seconds < 0 {
		return m.transportLocked(), ErrNegativeSeek
	}
	m.position = seconds
	return m.transportLocked(), nil
}

// TransportState returns a snapshot of the transport state.
func (m *Manager) TransportState() Transport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transportLocked()
}

// Busy reports whether an export is outstanding.
func (m *Manager) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.busy
}

func (m *Manager) transportLocked() Transport {
	return Transport{State: m.state, Position: m.position, Busy: m.busy}
}

// Export hands the current track list to the masterer and returns the
// artifact. At most one export may be outstanding: a second call while
// busy fails with ErrExportBusy. A failed export leaves the track list
// and transport untouched; busy is cleared on every path out.
func (m *Manager) Export(ctx context.Context, format export.Format) (*export.Artifact, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	if m.busy {
		m.mu.Unlock()
		return nil, ErrExportBusy
	}
	m.busy = true
	req := &export.Request{
		Tracks:     m.copyTracksLocked(),
		Format:     format,
		TargetLUFS: m.targetLUFS,
	}
	m.sendEventLocked(Event{Type: EventExportStarted, State: m.state, Format: format})
	m.mu.Unlock()

	// A stuck busy flag would disable the transport for good, so the
	// clear must survive failure and panic alike.
	defer func() {
		m.mu.Lock()
		m.busy = false
		m.mu.Unlock()
	}()

	zlog.Info().Msgf("session: export started: format=%s tracks=%d", format, len(req.Tracks))
	artifact, err := m.masterer.MixMaster(ctx, req)
	if err != nil {
		m.emit(Event{Type: EventExportFailed, Format: format, Err: err})
		return nil, errors.Wrap(err, "mix and master failed")
	}
	if len(artifact.Data) == 0 {
		err = errors.New("masterer returned an empty artifact")
		m.emit(Event{Type: EventExportFailed, Format: format, Err: err})
		return nil, err
	}

	m.emit(Event{Type: EventExportFinished, Format: format})
	zlog.Info().Msgf("session: export finished: format=%s bytes=%d filename=%s",
		format, len(artifact.Data), artifact.Filename)
	return artifact, nil
}

// Close shuts the session down: remaining sources are released, the
// track list is dropped and the event channel is closed.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	remaining := m.tracks
	m.tracks = nil
	close(m.eventCh)
	m.mu.Unlock()

	for _, t := range remaining {
		if t.Source == nil {
			continue
		}
		if err := t.Source.Release(); err != nil {
			zlog.Warn().Err(err).Msgf("session: failed to release source for track %s", t.ID)
		}
	}
}

func (m *Manager) emit(e Event) {
	m.mu.Lock()
	m.sendEventLocked(e)
	m.mu.Unlock()
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (m *Manager) sendEventLocked(e Event) {
	if m.closed {
		return
	}
	select {
	case m.eventCh <- e:
	default:
		// Channel full, drop event (shouldn't happen with buffered channel)
	}
}
