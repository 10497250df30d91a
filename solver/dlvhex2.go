package solver

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"aspio/asp"
	"aspio/parser"
)

// Dlvhex2 runs the external dlvhex2 process.
//
// The program is passed through a named pipe (or a temp file where pipes are
// unavailable) and answer sets are read from stdout one line at a time.
// --waitonmodel makes dlvhex2 pause after each model until it receives a
// newline on stdin, so enumeration stays lazy: solving effort is only spent
// on answer sets the caller actually consumes.
type Dlvhex2 struct {
	// Executable is the dlvhex2 binary, looked up in $PATH when not an
	// absolute path. Empty means "dlvhex2".
	Executable string
	Logger     *zap.Logger
}

// NewDlvhex2 returns a solver using the "dlvhex2" binary from $PATH.
func NewDlvhex2() *Dlvhex2 {
	return &Dlvhex2{Executable: "dlvhex2", Logger: zap.NewNop()}
}

func (s *Dlvhex2) executable() string {
	if s.Executable == "" {
		return "dlvhex2"
	}
	return s.Executable
}

func (s *Dlvhex2) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// Run starts the solver process. The returned stream is not safe for
// concurrent use.
func (s *Dlvhex2) Run(ctx context.Context, job Job) (AnswerSets, error) {
	input, err := newInputChannel()
	if err != nil {
		return nil, fmt.Errorf("creating solver input channel: %w", err)
	}

	args := []string{
		// only print the answer sets themselves
		"--silent",
		// only report the predicates the output mapping needs
		"--filter=" + strings.Join(capturePredicates(job), ","),
		// pause after each model until stdin delivers a newline
		"--waitonmodel",
	}
	opts := job.Options
	if opts.MaxAnswerSets > 0 {
		args = append(args, fmt.Sprintf("--number=%d", opts.MaxAnswerSets))
	}
	if opts.MaxInt > 0 {
		args = append(args, fmt.Sprintf("--maxint=%d", opts.MaxInt))
	}
	args = append(args, opts.Custom...)
	args = append(args, input.Name())
	args = append(args, job.FileArgs...)

	// A regular file must hold the whole program before the process starts.
	if !input.Streamed() {
		if err := writeProgramFile(input.Name(), job.WriteProgram); err != nil {
			input.Cleanup()
			return nil, err
		}
	}

	cmd := exec.CommandContext(ctx, s.executable(), args...)
	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf

	stdin, err := cmd.StdinPipe()
	if err != nil {
		input.Cleanup()
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		input.Cleanup()
		return nil, err
	}

	log := s.logger()
	log.Debug("starting solver process",
		zap.String("executable", s.executable()),
		zap.Strings("args", args))

	if err := cmd.Start(); err != nil {
		input.Cleanup()
		return nil, fmt.Errorf("starting %s: %w", s.executable(), err)
	}

	st := &dlvhexStream{
		cmd:       cmd,
		stdin:     stdin,
		stdout:    bufio.NewReader(stdout),
		stderrBuf: &stderrBuf,
		input:     input,
		log:       log,
	}

	// A named pipe must be written after the process starts: writing first
	// would deadlock once the program outgrows the pipe buffer. The open
	// blocks until the solver opens its end, so it runs in the background.
	if input.Streamed() {
		st.writer.Go(func() error {
			return writeProgramFile(input.Name(), job.WriteProgram)
		})
	}
	return st, nil
}

func writeProgramFile(path string, write func(io.Writer) error) error {
	f, err := openForWrite(path)
	if err != nil {
		return fmt.Errorf("opening solver input %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	if err := write(w); err != nil {
		f.Close()
		return fmt.Errorf("writing solver input: %w", err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("writing solver input: %w", err)
	}
	return f.Close()
}

type dlvhexStream struct {
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	stderrBuf *bytes.Buffer
	input     inputChannel
	writer    errgroup.Group
	log       *zap.Logger

	done bool
	err  error // terminal result, io.EOF on clean exhaustion
}

func (s *dlvhexStream) Next() (asp.AnswerSet, error) {
	if s.done {
		return nil, s.err
	}
	for {
		line, err := s.stdout.ReadString('\n')
		text := strings.TrimSpace(line)
		if text != "" {
			as, perr := parser.ParseAnswerSet(text)
			if perr != nil {
				s.finish(true)
				return nil, fmt.Errorf("unparsable answer set %q: %w", text, perr)
			}
			// Release the next model.
			if _, werr := io.WriteString(s.stdin, "\n"); werr != nil {
				s.log.Debug("model handshake failed", zap.Error(werr))
			}
			return as, nil
		}
		if err != nil {
			return nil, s.finish(false)
		}
	}
}

// Close shuts the solver down. Closing an exhausted stream returns the
// terminal error, if any; closing early discards unread answer sets.
func (s *dlvhexStream) Close() error {
	if !s.done {
		s.finish(true)
	}
	if s.err == io.EOF {
		return nil
	}
	return s.err
}

// finish reaps the process and releases the input channel. With terminate
// set the process may still be running and is signaled; exit statuses caused
// by our own termination do not count as errors.
func (s *dlvhexStream) finish(terminate bool) error {
	s.done = true

	waitCh := make(chan error, 1)
	go func() { waitCh <- s.cmd.Wait() }()

	grace := 5 * time.Millisecond
	if !terminate {
		// stdout is exhausted, so the process is already on its way out.
		grace = 100 * time.Millisecond
	}
	var waitErr error
	terminated := false
	select {
	case waitErr = <-waitCh:
	case <-time.After(grace):
		terminated = true
		s.log.Debug("terminating solver process")
		s.cmd.Process.Signal(syscall.SIGTERM)
		select {
		case waitErr = <-waitCh:
		case <-time.After(100 * time.Millisecond):
			s.cmd.Process.Kill()
			waitErr = <-waitCh
		}
	}

	// Unblock the program writer if the process never read its input, then
	// collect its result.
	if d, ok := s.input.(interface{ drain() }); ok {
		d.drain()
	}
	writeErr := s.writer.Wait()
	s.input.Cleanup()

	s.err = io.EOF
	if code, failed := exitFailure(waitErr, terminated); failed {
		s.err = &SubprocessError{Code: code, Stderr: s.stderrBuf.String()}
	} else if writeErr != nil && !terminated {
		s.err = writeErr
	}
	return s.err
}

// exitFailure classifies the process result. Signal deaths and the exit
// code 2 that dlvhex2 uses for its SIGTERM handler are expected after we
// terminated the process ourselves.
func exitFailure(waitErr error, terminated bool) (int, bool) {
	if waitErr == nil {
		return 0, false
	}
	exitErr, ok := waitErr.(*exec.ExitError)
	if !ok {
		return -1, true
	}
	code := exitErr.ExitCode()
	if terminated && (code == -1 || code == 2) {
		return 0, false
	}
	return code, true
}
