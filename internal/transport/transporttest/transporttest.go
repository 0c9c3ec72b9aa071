// Package transporttest provides transports for tests: a fake that replays
// canned output, and a stand-in ssh binary that runs commands locally.
package transporttest

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/iotest"

	"github.com/snadrus/ssher/internal/transport"
	"github.com/snadrus/ssher/internal/vpath"
)

// Reply is the scripted outcome of one spawned command.
type Reply struct {
	Stdout string
	Status int
	// StdoutErr, when set, is returned by stdout reads after Stdout.
	StdoutErr error
}

// Call records one Spawn.
type Call struct {
	Target vpath.Target
	Argv   []string
	Stdin  *bytes.Buffer
}

// Fake is a transport.Transport that answers every Spawn with Respond.
type Fake struct {
	Respond func(argv []string) Reply

	mu    sync.Mutex
	calls []*Call
}

func (f *Fake) Spawn(_ context.Context, target vpath.Target, argv []string) (transport.Process, error) {
	c := &Call{Target: target, Argv: append([]string(nil), argv...), Stdin: &bytes.Buffer{}}
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()

	var r Reply
	if f.Respond != nil {
		r = f.Respond(argv)
	}
	var stdout io.Reader = strings.NewReader(r.Stdout)
	if r.StdoutErr != nil {
		stdout = io.MultiReader(stdout, iotest.ErrReader(r.StdoutErr))
	}
	return &fakeProcess{call: c, target: target, stdout: stdout, status: r.Status}, nil
}

func (f *Fake) Close() error { return nil }

// Calls returns every Spawn so far.
func (f *Fake) Calls() []*Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Call(nil), f.calls...)
}

type fakeProcess struct {
	call   *Call
	target vpath.Target
	stdout io.Reader
	status int
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func (p *fakeProcess) Stdin() io.WriteCloser { return nopCloser{p.call.Stdin} }
func (p *fakeProcess) Stdout() io.Reader     { return p.stdout }
func (p *fakeProcess) Close() error          { return nil }

func (p *fakeProcess) Wait() error {
	if p.status != 0 {
		return &transport.ExitError{Target: p.target, Status: p.status}
	}
	return nil
}

const localSSH = `#!/bin/sh
# stands in for ssh: drops the login and port, then lets a shell parse the
# remaining words joined by spaces, the way sshd hands them to a login shell
shift
if [ "$1" = "-p" ]; then shift 2; fi
exec sh -c "$*"
`

// LocalSSH writes a fake ssh binary and returns its path. Commands run in
// the current working directory of the test.
func LocalSSH(t testing.TB) string {
	t.Helper()
	for _, bin := range []string{"sh", "base64"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not available: %v", bin, err)
		}
	}
	p := filepath.Join(t.TempDir(), "ssh")
	if err := os.WriteFile(p, []byte(localSSH), 0o755); err != nil {
		t.Fatalf("write fake ssh: %v", err)
	}
	return p
}
