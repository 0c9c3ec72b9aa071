package listing

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/snadrus/ssher/internal/shell"
)

// StatField is one stat(1) format queried per entry. Escaped fields can
// contain arbitrary bytes and travel base64-encoded.
type StatField struct {
	Name   string
	Format string
	Escape bool
}

// StatFields is the fixed order of per-entry output lines. A record is
// len(StatFields) lines plus one dereference line.
var StatFields = []StatField{
	{Name: "access", Format: "%A"},
	{Name: "sizeInBytes", Format: "%s"},
	{Name: "userId", Format: "%u"},
	{Name: "userName", Format: "%U", Escape: true},
	{Name: "groupId", Format: "%g"},
	{Name: "groupName", Format: "%G", Escape: true},
	{Name: "fileName", Format: "%n", Escape: true},
}

// RecordLines is the number of output lines per entry.
var RecordLines = len(StatFields) + 1

// FileRecord is one entry of a batched listing.
type FileRecord struct {
	Access       string
	SizeInBytes  int64
	UserID       string
	UserName     string
	GroupID      string
	GroupName    string
	FileName     string
	Dereferenced string
}

// Permission decodes Access.
func (r FileRecord) Permission() (Permission, error) {
	return ParsePermission(r.Access)
}

// Name is the last element of FileName.
func (r FileRecord) Name() string {
	return path.Base(r.FileName)
}

// Child is the name to navigate to, with a trailing '/' for directories
// and for symlinks that resolve to one.
func (r FileRecord) Child() string {
	name := r.Name()
	p, err := r.Permission()
	if err != nil {
		return name
	}
	if p.IsDirectory || (p.IsSymlink && strings.HasSuffix(r.Dereferenced, "/")) {
		name += "/"
	}
	return name
}

// entryScript prints one record for the path in $0.
func entryScript() string {
	var stmts []shell.Stmt
	for _, f := range StatFields {
		if !f.Escape {
			stmts = append(stmts, shell.Cmd("stat", "--format="+f.Format, "--").With(shell.Ref("0")))
			continue
		}
		stmts = append(stmts,
			shell.Pipeline{
				shell.Cmd("stat", "--printf="+f.Format, "--").With(shell.Ref("0")),
				shell.Cmd("base64", "-w0"),
			},
			shell.Cmd("echo"),
		)
	}
	// the dereference line ends in '/' when the path resolves to a directory
	deref := shell.Script(
		shell.Cmd("readlink", "-f", "--").With(shell.Ref("0")),
		shell.AndList{
			shell.Cmd("test", "-d").With(shell.Ref("0")),
			shell.Cmd("printf", "/"),
		},
	)
	stmts = append(stmts,
		shell.Pipeline{
			shell.Cmd("sh", "-c", deref).With(shell.Ref("0")),
			shell.Cmd("base64", "-w0"),
		},
		shell.Cmd("echo"),
	)
	return shell.Script(stmts...)
}

// BatchedCommand lists dir: a record for dir/.., optionally dir/., then
// one per child in find's enumeration order.
func BatchedCommand(dir string, showDot bool) []string {
	if dir == "" {
		dir = "."
	}
	script := entryScript()
	base := strings.TrimSuffix(dir, "/")
	stmts := []shell.Stmt{shell.Cmd("sh", "-c", script, base+"/..")}
	if showDot {
		stmts = append(stmts, shell.Cmd("sh", "-c", script, base+"/."))
	}
	stmts = append(stmts, shell.Cmd("find", dir, "-mindepth", "1", "-maxdepth", "1",
		"-exec", "sh", "-c", script, "{}", ";"))
	return shell.JoinCommandsInShell(stmts...)
}

// ParseBatched reads RecordLines lines per record. When the stream ends
// inside a record, or a record does not decode, the records parsed so far
// are returned with an error wrapping ErrListingProtocolViolation.
func ParseBatched(r io.Reader) ([]FileRecord, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		records []FileRecord
		group   = make([]string, 0, RecordLines)
	)
	for sc.Scan() {
		group = append(group, sc.Text())
		if len(group) < RecordLines {
			continue
		}
		rec, err := decodeRecord(group)
		if err != nil {
			return records, fmt.Errorf("%w: record %d: %v", ErrListingProtocolViolation, len(records), err)
		}
		records = append(records, rec)
		group = group[:0]
	}
	if err := sc.Err(); err != nil {
		return records, fmt.Errorf("%w: %v", ErrListingProtocolViolation, err)
	}
	if len(group) > 0 {
		return records, fmt.Errorf("%w: %d trailing lines after %d records", ErrListingProtocolViolation, len(group), len(records))
	}
	return records, nil
}

func decodeRecord(lines []string) (FileRecord, error) {
	vals := make([]string, len(StatFields))
	for i, f := range StatFields {
		v := lines[i]
		if f.Escape {
			b, err := base64.StdEncoding.DecodeString(v)
			if err != nil {
				return FileRecord{}, fmt.Errorf("%s: %w", f.Name, err)
			}
			v = string(b)
		}
		vals[i] = v
	}
	size, err := strconv.ParseInt(vals[1], 10, 64)
	if err != nil {
		return FileRecord{}, fmt.Errorf("sizeInBytes: %w", err)
	}
	deref, err := base64.StdEncoding.DecodeString(lines[len(StatFields)])
	if err != nil {
		return FileRecord{}, fmt.Errorf("dereference: %w", err)
	}
	return FileRecord{
		Access:       vals[0],
		SizeInBytes:  size,
		UserID:       vals[2],
		UserName:     vals[3],
		GroupID:      vals[4],
		GroupName:    vals[5],
		FileName:     vals[6],
		Dereferenced: decodeDereference(string(deref)),
	}, nil
}

// decodeDereference turns readlink output, followed by "/" when the target
// is a directory, into a path that ends in '/' exactly for directories.
func decodeDereference(s string) string {
	isDir := strings.HasSuffix(s, "\n/")
	if isDir {
		s = strings.TrimSuffix(s, "/")
	}
	s = strings.TrimSuffix(s, "\n")
	if isDir && !strings.HasSuffix(s, "/") {
		s += "/"
	}
	return s
}
