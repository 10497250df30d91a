//go:build unix

package solver

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

type namedPipe struct {
	dir  string
	path string
}

func newNamedPipe() (inputChannel, error) {
	dir, err := os.MkdirTemp("", "aspio-")
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, "pipe")
	if err := unix.Mkfifo(path, 0o600); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	return &namedPipe{dir: dir, path: path}, nil
}

func (p *namedPipe) Name() string   { return p.path }
func (p *namedPipe) Streamed() bool { return true }
func (p *namedPipe) Cleanup() error { return os.RemoveAll(p.dir) }

// drain unblocks a writer stuck on the pipe because the solver never opened
// its end: opening for reading releases the writer's open, and reading until
// EOF releases its writes. A pipe that was already consumed reads as empty.
func (p *namedPipe) drain() {
	f, err := os.OpenFile(p.path, os.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return
	}
	f.SetReadDeadline(time.Now().Add(time.Second))
	io.Copy(io.Discard, f)
	f.Close()
}
