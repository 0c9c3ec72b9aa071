package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/term"

	"github.com/snadrus/ssher/internal/vpath"
)

// SessionConfig controls the native SSH client.
type SessionConfig struct {
	KnownHosts            string
	InsecureIgnoreHostKey bool
	DialTimeout           time.Duration
	IdentityFiles         []string
}

// Session runs commands over an in-process SSH client, one ssh.Session per
// spawned command. Connections are kept per target and reused.
type Session struct {
	cfg SessionConfig
	log *zap.Logger

	mu      sync.Mutex
	clients map[string]*sessionClient
}

type sessionClient struct {
	ssh  *ssh.Client
	sftp *sftp.Client // lazily created
}

func NewSession(cfg SessionConfig, log *zap.Logger) *Session {
	return &Session{cfg: cfg, log: log, clients: make(map[string]*sessionClient)}
}

func (s *Session) Spawn(ctx context.Context, target vpath.Target, argv []string) (Process, error) {
	c, err := s.client(ctx, target)
	if err != nil {
		return nil, err
	}
	sess, err := c.NewSession()
	if err != nil {
		return nil, fmt.Errorf("ssh session: %w", err)
	}
	stdin, err := sess.StdinPipe()
	if err != nil {
		sess.Close()
		return nil, err
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		sess.Close()
		return nil, err
	}
	stderr := newTailBuffer(4096)
	sess.Stderr = stderr

	if err := sess.Start(strings.Join(argv, " ")); err != nil {
		sess.Close()
		return nil, fmt.Errorf("ssh start: %w", err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = sess.Signal(ssh.SIGTERM)
		_ = sess.Close()
	})
	return &sessionProcess{sess: sess, target: target, stdin: stdin, stdout: stdout, stderr: stderr, stop: stop}, nil
}

// SFTP returns the SFTP client multiplexed on the target's connection.
func (s *Session) SFTP(ctx context.Context, target vpath.Target) (*sftp.Client, error) {
	if _, err := s.client(ctx, target); err != nil {
		return nil, err
	}
	key := target.String()

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.clients[key]
	if !ok {
		return nil, fmt.Errorf("%s: connection dropped", target)
	}
	if entry.sftp != nil {
		return entry.sftp, nil
	}
	sc, err := sftp.NewClient(entry.ssh)
	if err != nil {
		return nil, fmt.Errorf("sftp session: %w", err)
	}
	entry.sftp = sc
	return sc, nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, entry := range s.clients {
		closeEntry(entry)
		delete(s.clients, key)
	}
	return nil
}

func (s *Session) client(ctx context.Context, target vpath.Target) (*ssh.Client, error) {
	key := target.String()

	s.mu.Lock()
	if cached, ok := s.clients[key]; ok {
		if isAlive(cached.ssh) {
			s.mu.Unlock()
			return cached.ssh, nil
		}
		closeEntry(cached)
		delete(s.clients, key)
	}
	s.mu.Unlock()

	c, err := s.dial(ctx, target)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if raced, ok := s.clients[key]; ok {
		c.Close()
		return raced.ssh, nil
	}
	s.clients[key] = &sessionClient{ssh: c}
	return c, nil
}

func isAlive(c *ssh.Client) bool {
	_, _, err := c.SendRequest("keepalive@openssh.com", true, nil)
	return err == nil
}

func closeEntry(entry *sessionClient) {
	if entry.sftp != nil {
		_ = entry.sftp.Close()
	}
	_ = entry.ssh.Close()
}

// dial tries the SSH agent first, then unencrypted identity files, then
// prompts for a password on the controlling terminal.
func (s *Session) dial(ctx context.Context, target vpath.Target) (*ssh.Client, error) {
	hostKeys, err := s.hostKeyCallback()
	if err != nil {
		return nil, err
	}

	var authMethods []ssh.AuthMethod
	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := net.Dial("unix", sock); err == nil {
			authMethods = append(authMethods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		}
	}
	if signers := loadIdentities(s.cfg.IdentityFiles); len(signers) > 0 {
		authMethods = append(authMethods, ssh.PublicKeys(signers...))
	}
	authMethods = append(authMethods, ssh.PasswordCallback(func() (string, error) {
		return promptPassword(target)
	}))

	login := target.User
	if login == "" {
		if u, err := user.Current(); err == nil {
			login = u.Username
		}
	}
	config := &ssh.ClientConfig{
		User:            login,
		Auth:            authMethods,
		HostKeyCallback: hostKeys,
		Timeout:         s.cfg.DialTimeout,
	}

	addr := target.Addr()
	s.log.Info("connecting", zap.String("addr", addr), zap.String("user", login))
	dialer := &net.Dialer{Timeout: s.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("ssh dial %s: %w", addr, err)
	}
	cc, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ssh handshake %s: %w", addr, err)
	}
	s.log.Info("connected", zap.String("addr", addr))
	return ssh.NewClient(cc, chans, reqs), nil
}

func (s *Session) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if s.cfg.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(expandHome(s.cfg.KnownHosts))
	if err != nil {
		return nil, fmt.Errorf("known_hosts %s: %w", s.cfg.KnownHosts, err)
	}
	return cb, nil
}

func loadIdentities(files []string) []ssh.Signer {
	var signers []ssh.Signer
	for _, f := range files {
		key, err := os.ReadFile(expandHome(f))
		if err != nil {
			continue
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			// encrypted keys are left to the agent
			continue
		}
		signers = append(signers, signer)
	}
	return signers
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}

// promptPassword reads from /dev/tty so stdin stays free for buffer content.
func promptPassword(target vpath.Target) (string, error) {
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return "", fmt.Errorf("no terminal for password prompt: %w", err)
	}
	defer tty.Close()
	fmt.Fprintf(tty, "Password for %s: ", target.Login())
	pw, err := term.ReadPassword(int(tty.Fd()))
	fmt.Fprintln(tty)
	return string(pw), err
}

type sessionProcess struct {
	sess   *ssh.Session
	target vpath.Target
	stdin  io.WriteCloser
	stdout io.Reader
	stderr *tailBuffer
	stop   func() bool
	done   bool
}

func (p *sessionProcess) Stdin() io.WriteCloser { return p.stdin }
func (p *sessionProcess) Stdout() io.Reader     { return p.stdout }

func (p *sessionProcess) Wait() error {
	if p.done {
		return nil
	}
	p.done = true
	err := p.sess.Wait()
	if err == nil {
		return nil
	}
	var ee *ssh.ExitError
	if errors.As(err, &ee) {
		return &ExitError{Target: p.target, Status: ee.ExitStatus(), Stderr: p.stderr.String()}
	}
	return fmt.Errorf("%w: %s: %v", ErrRemoteCommandFailed, p.target, err)
}

func (p *sessionProcess) Close() error {
	p.stop()
	err := p.sess.Close()
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
