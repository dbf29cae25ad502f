// Package library provides the file-import boundary. Uploaded audio is
// spooled into per-source blobs on disk and handed out as revocable
// references; the bytes are never parsed or decoded here.
package library

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/Britbrat22/aidaw/internal/domain/track"
)

// Errors
var (
	ErrEmptyUpload = errors.New("uploaded file is empty")
	ErrNotAudio    = errors.New("uploaded file is not audio")
	ErrTooLarge    = errors.New("uploaded file exceeds the size limit")
	ErrClosed      = errors.New("library store is closed")
)

// Config holds store configuration.
type Config struct {
	Dir      string // Spool directory (empty = private temp directory)
	MaxBytes int64  // Per-upload size limit in bytes (0 = unlimited)
}

// Store owns the spooled source blobs for one session.
type Store struct {
	dir      string
	ownsDir  bool // Store created the directory and removes it on Close
	maxBytes int64

	mu      sync.Mutex
	sources map[string]*Source
	closed  bool
}

// NewStore creates a store spooling into cfg.Dir, or into a fresh temp
// directory when cfg.Dir is empty.
func NewStore(cfg Config) (*Store, error) {
	dir := cfg.Dir
	ownsDir := false
	if dir == "" {
		d, err := os.MkdirTemp("", "aidaw-spool-")
		if err != nil {
			return nil, errors.Wrap(err, "failed to create spool directory")
		}
		dir = d
		ownsDir = true
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create spool directory")
	}

	return &Store{
		dir:      dir,
		ownsDir:  ownsDir,
		maxBytes: cfg.MaxBytes,
		sources:  make(map[string]*Source),
	}, nil
}

// Import spools r into a new source blob and returns a reference to it.
// Content must sniff as audio/*; anything else is rejected without being
// kept. The display name is taken from the uploaded file's name.
func (s *Store) Import(name string, r io.Reader) (*Source, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.mu.Unlock()

	id := uuid.New().String()
	path := filepath.Join(s.dir, id)

	size, err := s.spool(path, r)
	if err != nil {
		return nil, err
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		_ = os.Remove(path)
		return nil, errors.Wrap(err, "failed to sniff content type")
	}
	if !strings.HasPrefix(mt.String(), "audio/") {
		_ = os.Remove(path)
		return nil, errors.Wrapf(ErrNotAudio, "detected %s", mt.String())
	}

	src := &Source{
		id:    id,
		name:  name,
		path:  path,
		mime:  mt.String(),
		size:  size,
		store: s,
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = os.Remove(path)
		return nil, ErrClosed
	}
	s.sources[id] = src
	s.mu.Unlock()

	zlog.Debug().Msgf("library: spooled source: id=%s name=%s mime=%s size=%d", id, name, src.mime, size)
	return src, nil
}

// spool copies r into a blob at path, enforcing the size limit.
func (s *Store) spool(path string, r io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, errors.Wrap(err, "failed to create source blob")
	}

	limit := r
	if s.maxBytes > 0 {
		// One extra byte so an oversized upload is distinguishable
		// from one that exactly hits the limit.
		limit = io.LimitReader(r, s.maxBytes+1)
	}

	size, err := io.Copy(f, limit)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, errors.Wrap(err, "failed to spool upload")
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		_ = os.Remove(path)
		return 0, errors.Wrapf(ErrTooLarge, "limit is %d bytes", s.maxBytes)
	}
	if size == 0 {
		_ = os.Remove(path)
		return 0, ErrEmptyUpload
	}
	return size, nil
}

// Count returns the number of live (unreleased) sources.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sources)
}

// Close releases every remaining source. The store cannot be used after.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	remaining := make([]*Source, 0, len(s.sources))
	for _, src := range s.sources {
		remaining = append(remaining, src)
	}
	s.sources = make(map[string]*Source)
	s.mu.Unlock()

	var firstErr error
	for _, src := range remaining {
		if err := os.Remove(src.path); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = errors.Wrap(err, "failed to remove source blob")
		}
	}
	if s.ownsDir {
		if err := os.RemoveAll(s.dir); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "failed to remove spool directory")
		}
	}
	return firstErr
}

// Source is a spooled audio blob. It implements track.Source.
type Source struct {
	id    string
	name  string
	path  string
	mime  string
	size  int64
	store *Store
}

var _ track.Source = (*Source)(nil)

// SourceID returns the source's unique ID.
func (s *Source) SourceID() string { return s.id }

// DisplayName returns the uploaded file's name.
func (s *Source) DisplayName() string { return s.name }

// ContentType returns the sniffed MIME type.
func (s *Source) ContentType() string { return s.mime }

// Size returns the blob size in bytes.
func (s *Source) Size() int64 { return s.size }

// Open returns a reader over the spooled bytes.
// Fails once the source has been released.
func (s *Source) Open() (io.ReadCloser, error) {
	s.store.mu.Lock()
	_, live := s.store.sources[s.id]
	s.store.mu.Unlock()
	if !live {
		return nil, errors.Newf("source %s has been released", s.id)
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open source blob")
	}
	return f, nil
}

// Release removes the blob. Releasing a source twice is a no-op; the
// store's registry is the once-only gate, so a second call can never
// touch a path that has been handed out again.
func (s *Source) Release() error {
	s.store.mu.Lock()
	_, live := s.store.sources[s.id]
	delete(s.store.sources, s.id)
	s.store.mu.Unlock()
	if !live {
		return nil
	}

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove source blob")
	}
	zlog.Debug().Msgf("library: released source: id=%s name=%s", s.id, s.name)
	return nil
}
