// Package track provides the Track domain entity.
package track

import (
	"fmt"
	"io"

	"github.com/google/uuid"
)

// Fader bounds. Volume values outside the range saturate, they never error.
const (
	VolumeMin     = 0
	VolumeMax     = 100
	VolumeDefault = 75
)

// Source is a revocable reference to imported audio bytes.
// The track never reads or decodes the bytes itself; decoding is the
// mastering collaborator's job. Release must tolerate double calls.
type Source interface {
	SourceID() string
	DisplayName() string
	ContentType() string
	Open() (io.ReadCloser, error)
	Release() error
}

// Track represents a single track in the session.
type Track struct {
	ID     string // Stable unique ID (UUID), never reused within a session
	Name   string // Display name
	Volume int    // Fader level (VolumeMin..VolumeMax)
	Muted  bool   // Muted flag
	Solo   bool   // Solo flag
	Source Source // Imported audio (nil for placeholder tracks)
}

// New creates a track with default fader state. An empty name falls back
// to a placeholder derived from n, the 1-based track number.
func New(name string, n int, src Source) *Track {
	if name == "" {
		name = fmt.Sprintf("Track %d", n)
	}
	return &Track{
		ID:     uuid.New().String(),
		Name:   name,
		Volume: VolumeDefault,
		Source: src,
	}
}

// HasSource reports whether the track has imported audio attached.
func (t *Track) HasSource() bool {
	return t.Source != nil
}

// ClampVolume saturates v into the valid fader range.
func ClampVolume(v int) int {
	if v < VolumeMin {
		return VolumeMin
	}
	if v > VolumeMax {
		return VolumeMax
	}
	return v
}

// Update is a partial update to a track. Nil fields are left untouched,
// so callers only ever send the fields they changed.
type Update struct {
	Name   *string
	Volume *int
	Muted  *bool
	Solo   *bool
}

// IsZero reports whether the update carries no fields.
func (u Update) IsZero() bool {
	return u.Name == nil && u.Volume == nil && u.Muted == nil && u.Solo == nil
}

// Apply merges the update into t. Volume saturates into the fader range.
func (u Update) Apply(t *Track) {
	if u.Name != nil {
		t.Name = *u.Name
	}
	if u.Volume != nil {
		t.Volume = ClampVolume(*u.Volume)
	}
	if u.Muted != nil {
		t.Muted = *u.Muted
	}
	if u.Solo != nil {
		t.Solo = *u.Solo
	}
}
