package solver

import (
	"os"
	"path/filepath"
)

// inputChannel is a filesystem path an external solver reads its program
// from: a named pipe where the platform has them, a regular file otherwise.
// Named pipes are written after the solver starts; regular files must be
// written before.
type inputChannel interface {
	Name() string
	// Streamed reports whether the path is a pipe that is written while the
	// solver runs.
	Streamed() bool
	Cleanup() error
}

// newInputChannel prefers a named pipe and falls back to a regular file.
// The path lives in a fresh private temp directory either way.
func newInputChannel() (inputChannel, error) {
	if ch, err := newNamedPipe(); err == nil {
		return ch, nil
	}
	return newTempFile()
}

type tempFile struct {
	dir  string
	path string
}

func newTempFile() (*tempFile, error) {
	dir, err := os.MkdirTemp("", "aspio-")
	if err != nil {
		return nil, err
	}
	return &tempFile{dir: dir, path: filepath.Join(dir, "program.asp")}, nil
}

// openForWrite opens the channel's path for writing. O_CREATE and O_TRUNC
// are needed for the regular-file case and are harmless on a pipe.
func openForWrite(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
}

func (t *tempFile) Name() string   { return t.path }
func (t *tempFile) Streamed() bool { return false }
func (t *tempFile) Cleanup() error { return os.RemoveAll(t.dir) }
