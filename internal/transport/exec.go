package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"go.uber.org/zap"

	"github.com/snadrus/ssher/internal/vpath"
)

// Exec spawns the local ssh client binary for every command, so host keys,
// agents and ~/.ssh/config are resolved exactly as on the command line.
type Exec struct {
	Binary string // default "ssh"
	log    *zap.Logger
}

func NewExec(binary string, log *zap.Logger) *Exec {
	if binary == "" {
		binary = "ssh"
	}
	return &Exec{Binary: binary, log: log}
}

// Argv is the full local argv: ssh user@host [-p port] argv...
func (e *Exec) Argv(target vpath.Target, argv []string) []string {
	full := []string{e.Binary, target.Login()}
	if target.Port != "" {
		full = append(full, "-p", target.Port)
	}
	return append(full, argv...)
}

func (e *Exec) Spawn(ctx context.Context, target vpath.Target, argv []string) (Process, error) {
	full := e.Argv(target, argv)
	cmd := exec.CommandContext(ctx, full[0], full[1:]...)
	configureCmd(cmd)

	stderr := newTailBuffer(4096)
	cmd.Stderr = stderr
	stdin, stdout, err := openPipes(cmd)
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", e.Binary, err)
	}
	e.log.Debug("spawned", zap.Stringer("target", target), zap.Int("pid", cmd.Process.Pid), zap.Int("args", len(argv)))
	return &execProcess{cmd: cmd, target: target, stdin: stdin, stdout: stdout, stderr: stderr}, nil
}

// openPipes attaches stdin and stdout pipes, releasing the first when the
// second cannot be made.
func openPipes(cmd *exec.Cmd) (io.WriteCloser, io.Reader, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = stdin.Close()
		return nil, nil, err
	}
	return stdin, stdout, nil
}

// Close is a no-op; every Spawn owns its own connection.
func (e *Exec) Close() error { return nil }

type execProcess struct {
	cmd    *exec.Cmd
	target vpath.Target
	stdin  io.WriteCloser
	stdout io.Reader
	stderr *tailBuffer
	waited bool
}

func (p *execProcess) Stdin() io.WriteCloser { return p.stdin }
func (p *execProcess) Stdout() io.Reader     { return p.stdout }

func (p *execProcess) Wait() error {
	if p.waited {
		return nil
	}
	p.waited = true
	err := p.cmd.Wait()
	if err == nil {
		return nil
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return &ExitError{Target: p.target, Status: ee.ExitCode(), Stderr: p.stderr.String()}
	}
	return fmt.Errorf("%w: %s: %v", ErrRemoteCommandFailed, p.target, err)
}

func (p *execProcess) Close() error {
	if p.waited {
		return nil
	}
	_ = p.stdin.Close()
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	p.waited = true
	_ = p.cmd.Wait()
	return nil
}
