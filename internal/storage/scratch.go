package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Scratch manages short-lived audio files. Every request gets its own
// directory which is removed when the request finishes, so nothing
// outlives a single request/response cycle.
type Scratch struct {
	root string
	log  zerolog.Logger
}

// NewScratch creates a scratch store rooted at dir, or under the OS
// temp dir when dir is empty.
func NewScratch(dir string, log zerolog.Logger) (*Scratch, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "voicebox")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir scratch root %s: %w", dir, err)
	}
	return &Scratch{root: dir, log: log}, nil
}

// Root returns the scratch root directory.
func (s *Scratch) Root() string { return s.root }

// NewRequestDir creates a fresh directory for one request. The caller
// must call Cleanup on every exit path.
func (s *Scratch) NewRequestDir() (*RequestDir, error) {
	dir := filepath.Join(s.root, uuid.NewString())
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir request dir: %w", err)
	}
	return &RequestDir{dir: dir, log: s.log}, nil
}

// RequestDir is a per-request temp directory.
type RequestDir struct {
	dir string
	log zerolog.Logger
}

// Dir returns the directory path.
func (r *RequestDir) Dir() string { return r.dir }

// Save writes data under a generated name with the given extension and
// returns the full path. Atomic write: temp file + rename.
func (r *RequestDir) Save(ext string, data []byte) (string, error) {
	path := r.Path(ext)

	tmp, err := os.CreateTemp(r.dir, ".save-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("rename: %w", err)
	}
	return path, nil
}

// Path returns a fresh generated file path with the given extension,
// without creating the file.
func (r *RequestDir) Path(ext string) string {
	if ext != "" && ext[0] != '.' {
		ext = "." + ext
	}
	return filepath.Join(r.dir, uuid.NewString()+ext)
}

// Cleanup removes the request directory and everything in it. Safe to
// call more than once.
func (r *RequestDir) Cleanup() {
	if err := os.RemoveAll(r.dir); err != nil {
		r.log.Warn().Err(err).Str("dir", r.dir).Msg("scratch cleanup failed")
	}
}
