// Package export defines the mix-and-master export boundary.
//
// Mixing, mute/solo resolution, volume scaling and encoding all happen on
// the other side of the Masterer interface; this package only carries the
// contract between the session and that collaborator.
package export

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/Britbrat22/aidaw/internal/domain/track"
)

// Format is the requested container/codec for an export artifact.
type Format string

const (
	FormatWAV Format = "wav"
	FormatMP3 Format = "mp3"
)

// ParseFormat parses a user-supplied format string.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "wav":
		return FormatWAV, nil
	case "mp3":
		return FormatMP3, nil
	case "":
		return "", errors.New("format is required")
	default:
		return "", errors.Newf("unsupported format: %q (want wav or mp3)", s)
	}
}

// MIMEType returns the artifact MIME type for the format.
func (f Format) MIMEType() string {
	switch f {
	case FormatWAV:
		return "audio/wav"
	case FormatMP3:
		return "audio/mpeg"
	default:
		return "application/octet-stream"
	}
}

// Ext returns the filename extension for the format, including the dot.
func (f Format) Ext() string {
	switch f {
	case FormatWAV:
		return ".wav"
	case FormatMP3:
		return ".mp3"
	default:
		return ""
	}
}

// Request carries the session's full ordered track list to the masterer.
type Request struct {
	Tracks     []*track.Track // Insertion order, including muted/solo tracks
	Format     Format
	TargetLUFS float64 // Integrated loudness target
}

// Artifact is the downloadable result of a successful export.
type Artifact struct {
	Data     []byte
	Filename string // Suggested filename
	MIMEType string
}

// Masterer mixes and masters a session's tracks into one artifact.
// Implementations may take arbitrarily long and must honor ctx. Keeping
// at most one export outstanding is the caller's job, not the
// implementation's.
type Masterer interface {
	MixMaster(ctx context.Context, req *Request) (*Artifact, error)
}
