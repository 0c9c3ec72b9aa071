// Package scp pushes a single file to a remote host with the sink side of
// the legacy rcp/scp protocol (scp -t).
package scp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/snadrus/ssher/internal/shell"
	"github.com/snadrus/ssher/internal/transport"
	"github.com/snadrus/ssher/internal/vpath"
)

// ErrWriteBackFailed is returned (wrapped) when a push did not complete.
var ErrWriteBackFailed = errors.New("write-back failed")

var permRe = regexp.MustCompile(`^[0-7]{3}$`)

// Header is the C record announcing one file: C0<perm> <size> <name>\n.
func Header(perm string, size int, name string) string {
	return fmt.Sprintf("C0%s %d %s\n", perm, size, name)
}

// Command is the remote argv of the receiving scp.
func Command(remotePath string) []string {
	return shell.Wrap(shell.Cmd("scp", "-qt", "--", remotePath).Line())
}

// Push writes data to vp's path with permission bits perm (three octal
// digits). Acknowledgements are not awaited; a warning or error record from
// the remote side fails the push.
func Push(ctx context.Context, t transport.Transport, vp vpath.VirtualPath, perm string, data []byte) error {
	if !permRe.MatchString(perm) {
		return fmt.Errorf("%w: %s: bad permission %q", ErrWriteBackFailed, vp, perm)
	}
	var replies []byte
	err := transport.Run(ctx, t, vp.Target, Command(vp.Path), func(stdin io.WriteCloser, stdout io.Reader) error {
		if _, err := io.WriteString(stdin, Header(perm, len(data), vp.Base())); err != nil {
			return err
		}
		if _, err := stdin.Write(data); err != nil {
			return err
		}
		if _, err := stdin.Write([]byte{0}); err != nil {
			return err
		}
		if err := stdin.Close(); err != nil {
			return err
		}
		var err error
		replies, err = io.ReadAll(stdout)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteBackFailed, vp, err)
	}
	if msg := remoteError(replies); msg != "" {
		return fmt.Errorf("%w: %s: %s", ErrWriteBackFailed, vp, msg)
	}
	return nil
}

// remoteError extracts the first warning (0x01) or fatal (0x02) message from
// the sink's reply stream. Plain acknowledgements are 0x00.
func remoteError(replies []byte) string {
	i := bytes.IndexAny(replies, "\x01\x02")
	if i < 0 {
		return ""
	}
	msg := replies[i+1:]
	if j := bytes.IndexByte(msg, '\n'); j >= 0 {
		msg = msg[:j]
	}
	if msg = bytes.TrimSpace(msg); len(msg) == 0 {
		return "remote scp reported an error"
	}
	return string(msg)
}
