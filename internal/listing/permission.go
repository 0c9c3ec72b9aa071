// Package listing turns remote command output into file records. Two
// protocol variants exist, the single-pass ls listing and the batched stat
// listing; an SFTP variant is available on native transports.
package listing

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// ErrListingProtocolViolation is returned (wrapped) alongside the records
// parsed so far when remote output stops short of a full record.
var ErrListingProtocolViolation = errors.New("listing protocol violation")

// Permission is the decoded form of an ls-style access string.
type Permission struct {
	Octal       string // owner, group, other; special bits are dropped
	IsDirectory bool
	IsSymlink   bool
}

// ParsePermission decodes a 10-character access string like drwxr-xr-x.
// Any character other than '-' in a permission slot counts as set, so
// s/t/S/T contribute the execute bit and nothing else.
func ParsePermission(access string) (Permission, error) {
	if len(access) < 10 {
		return Permission{}, fmt.Errorf("permission string %q too short", access)
	}
	t := func(f int) int {
		n := 0
		if access[f] != '-' {
			n += 4
		}
		if access[f+1] != '-' {
			n += 2
		}
		if access[f+2] != '-' {
			n++
		}
		return n
	}
	return Permission{
		Octal:       fmt.Sprintf("%d%d%d", t(1), t(4), t(7)),
		IsDirectory: access[0] == 'd',
		IsSymlink:   access[0] == 'l',
	}, nil
}

// AccessString renders m the way ls -l and stat %A do.
func AccessString(m fs.FileMode) string {
	var b strings.Builder
	switch {
	case m&fs.ModeDir != 0:
		b.WriteByte('d')
	case m&fs.ModeSymlink != 0:
		b.WriteByte('l')
	case m&fs.ModeNamedPipe != 0:
		b.WriteByte('p')
	case m&fs.ModeSocket != 0:
		b.WriteByte('s')
	case m&fs.ModeCharDevice != 0:
		b.WriteByte('c')
	case m&fs.ModeDevice != 0:
		b.WriteByte('b')
	default:
		b.WriteByte('-')
	}
	const rwx = "rwxrwxrwx"
	perm := m.Perm()
	for i := 0; i < 9; i++ {
		if perm&(1<<uint(8-i)) != 0 {
			b.WriteByte(rwx[i])
		} else {
			b.WriteByte('-')
		}
	}
	s := []byte(b.String())
	special := func(pos int, set bool, lower, upper byte) {
		if !set {
			return
		}
		if s[pos] == 'x' {
			s[pos] = lower
		} else {
			s[pos] = upper
		}
	}
	special(3, m&fs.ModeSetuid != 0, 's', 'S')
	special(6, m&fs.ModeSetgid != 0, 's', 'S')
	special(9, m&fs.ModeSticky != 0, 't', 'T')
	return string(s)
}
