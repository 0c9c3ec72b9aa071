// Package vpath encodes and decodes the virtual buffer names that address a
// remote file or directory: ssher://user@host[:port]/path.
package vpath

import (
	"errors"
	"fmt"
	"net"
	"path"
	"regexp"
	"strings"
)

// Scheme is the literal prefix of every virtual name.
const Scheme = "ssher://"

const defaultPort = "22"

// ErrInvalidName is returned when a name does not follow the virtual name grammar.
var ErrInvalidName = errors.New("invalid ssher name")

// The user may be empty (ssh then picks its default). IPv6 hosts are
// bracketed and stored without the brackets.
var targetRe = regexp.MustCompile(`^(.*)@(\[[0-9A-Za-z:.%]+\]|[^@:/\[\]]+)(?::(\d+))?$`)

// Target identifies a remote-shell endpoint.
type Target struct {
	User string
	Host string
	Port string // empty means the transport default
}

// ParseTarget parses user@host[:port].
func ParseTarget(s string) (Target, error) {
	g := targetRe.FindStringSubmatch(s)
	if g == nil {
		return Target{}, fmt.Errorf("%w: bad target %q", ErrInvalidName, s)
	}
	host := strings.TrimSuffix(strings.TrimPrefix(g[2], "["), "]")
	return Target{User: g[1], Host: host, Port: g[3]}, nil
}

func (t Target) hostPart() string {
	if strings.Contains(t.Host, ":") {
		return "[" + t.Host + "]"
	}
	return t.Host
}

// String renders user@host[:port].
func (t Target) String() string {
	if t.Port != "" {
		return t.User + "@" + t.hostPart() + ":" + t.Port
	}
	return t.User + "@" + t.hostPart()
}

// Login is the user@host argument handed to ssh, or just the host when no
// user was given.
func (t Target) Login() string {
	if t.User == "" {
		return t.Host
	}
	return t.User + "@" + t.Host
}

// Addr is host:port for dialing, with port 22 when none was given.
func (t Target) Addr() string {
	port := t.Port
	if port == "" {
		port = defaultPort
	}
	return net.JoinHostPort(t.Host, port)
}

// VirtualPath is the decoded form of a virtual name. Path is relative to the
// remote login directory unless it starts with '/'; an empty path or a
// trailing '/' denotes a directory.
type VirtualPath struct {
	Target Target
	Path   string
}

// IsVirtualName reports whether name carries the scheme prefix.
func IsVirtualName(name string) bool {
	return strings.HasPrefix(name, Scheme)
}

// Decode splits name into its target and path.
func Decode(name string) (VirtualPath, error) {
	if !IsVirtualName(name) {
		return VirtualPath{}, fmt.Errorf("%w: missing %s prefix in %q", ErrInvalidName, Scheme, name)
	}
	rest := name[len(Scheme):]
	targetStr, pathStr := rest, ""
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		targetStr, pathStr = rest[:i], rest[i+1:]
	}
	t, err := ParseTarget(targetStr)
	if err != nil {
		return VirtualPath{}, err
	}
	return VirtualPath{Target: t, Path: pathStr}, nil
}

// Encode renders vp as ssher://user@host[:port]/path.
func Encode(vp VirtualPath) string {
	return Scheme + vp.Target.String() + "/" + vp.Path
}

// String is Encode(vp).
func (vp VirtualPath) String() string { return Encode(vp) }

// IsDirectory reports whether vp names a directory.
func (vp VirtualPath) IsDirectory() bool {
	return vp.Path == "" || strings.HasSuffix(vp.Path, "/")
}

// Base returns the last element of the remote path.
func (vp VirtualPath) Base() string {
	return path.Base(vp.Path)
}

// Join returns a VirtualPath on the same target with child joined onto the
// current path.
func (vp VirtualPath) Join(child string) VirtualPath {
	return VirtualPath{Target: vp.Target, Path: NormalizeJoin(vp.Path, child)}
}

// NormalizeJoin joins child onto base the way a filesystem would, keeping a
// trailing '/' from child so directories stay directories. Results of "."
// or "./" collapse to the empty root-relative path.
func NormalizeJoin(base, child string) string {
	p := path.Join(base, child)
	if p == "." {
		return ""
	}
	if strings.HasSuffix(child, "/") && !strings.HasSuffix(p, "/") {
		p += "/"
	}
	if p == "./" {
		return ""
	}
	return p
}
