// Package transport runs argument vectors on a remote host over a
// remote-shell connection and exposes the child's byte streams.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/snadrus/ssher/internal/vpath"
)

// ErrRemoteCommandFailed is returned (wrapped) when a remote command exits
// non-zero or one of its streams fails.
var ErrRemoteCommandFailed = errors.New("remote command failed")

// Process is a running remote command. Callers must read Stdout to EOF
// before Wait, and must always Close.
type Process interface {
	Stdin() io.WriteCloser
	Stdout() io.Reader
	Wait() error
	Close() error
}

// Transport spawns remote commands. Implementations are safe for
// concurrent use.
type Transport interface {
	Spawn(ctx context.Context, target vpath.Target, argv []string) (Process, error)
	Close() error
}

// ExitError reports a remote command that ran but did not exit cleanly.
type ExitError struct {
	Target vpath.Target
	Status int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s: exit status %d: %s", e.Target, e.Status, e.Stderr)
	}
	return fmt.Sprintf("%s: exit status %d", e.Target, e.Status)
}

func (e *ExitError) Unwrap() error { return ErrRemoteCommandFailed }

// Output runs argv with an empty stdin and returns everything it wrote to
// stdout.
func Output(ctx context.Context, t Transport, target vpath.Target, argv []string) ([]byte, error) {
	var out []byte
	err := Run(ctx, t, target, argv, func(_ io.WriteCloser, stdout io.Reader) error {
		var err error
		out, err = io.ReadAll(stdout)
		return err
	})
	return out, err
}

// Run spawns argv and hands its streams to fn. Stdin is closed after fn
// returns if fn did not close it, stdout is drained, and the process is
// waited for and released on every path. Failures reading or writing the
// streams are reported as ErrRemoteCommandFailed; any other error from fn
// is returned as is, after the process was killed.
func Run(ctx context.Context, t Transport, target vpath.Target, argv []string, fn func(stdin io.WriteCloser, stdout io.Reader) error) error {
	p, err := t.Spawn(ctx, target, argv)
	if err != nil {
		return fmt.Errorf("%w: spawn on %s: %v", ErrRemoteCommandFailed, target, err)
	}
	defer p.Close()

	fnErr := fn(streamWriter{p.Stdin()}, streamReader{p.Stdout()})
	var se *streamError
	if fnErr != nil && !errors.Is(fnErr, ErrRemoteCommandFailed) && !errors.As(fnErr, &se) {
		return fnErr
	}

	_ = p.Stdin().Close()
	_, _ = io.Copy(io.Discard, p.Stdout())
	waitErr := p.Wait()

	if fnErr != nil {
		if errors.Is(fnErr, ErrRemoteCommandFailed) {
			return fnErr
		}
		if waitErr != nil {
			return fmt.Errorf("%w (stream: %v)", waitErr, fnErr)
		}
		return fmt.Errorf("%w: %s: %v", ErrRemoteCommandFailed, target, fnErr)
	}
	return waitErr
}

// streamError marks an I/O failure on a process stream.
type streamError struct{ err error }

func (e *streamError) Error() string { return e.err.Error() }
func (e *streamError) Unwrap() error { return e.err }

type streamReader struct{ r io.Reader }

func (s streamReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF {
		err = &streamError{err}
	}
	return n, err
}

type streamWriter struct{ w io.WriteCloser }

func (s streamWriter) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	if err != nil {
		err = &streamError{err}
	}
	return n, err
}

func (s streamWriter) Close() error {
	if err := s.w.Close(); err != nil {
		return &streamError{err}
	}
	return nil
}

// tailBuffer keeps the last max bytes written to it; used for stderr.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer { return &tailBuffer{max: max} }

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(bytes.TrimSpace(b.buf))
}
