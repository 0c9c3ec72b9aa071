package listing

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/snadrus/ssher/internal/shell"
)

// Ls is one parsed line of ls -lFah --time-style=long-iso.
type Ls struct {
	Stat string
	Path string
}

// drwxr-xr-x  6 luma luma 4.0K 2021-09-18 11:05 vim/
var lsRe = regexp.MustCompile(`^(\S+)\s+(\S+)\s+(\S+)\s+(\S+)\s+(\S+)\s+(\S+)\s+(\S+)\s+(.*)$`)

// ParseLs parses one listing line. The eighth field is the rest of the
// line, so names with spaces survive.
func ParseLs(line string) (Ls, error) {
	g := lsRe.FindStringSubmatch(line)
	if g == nil {
		return Ls{}, fmt.Errorf("invalid ls line %q", line)
	}
	return Ls{Stat: g[1], Path: g[8]}, nil
}

// LsIsDir reports whether the entry is a directory (ls -F appends '/').
func LsIsDir(ls Ls) bool {
	return strings.HasSuffix(ls.Path, "/") || ls.Path == ""
}

// Child is the name to navigate to: the link name without its " -> target"
// suffix and without the ls -F classification mark, with a trailing '/'
// when the entry is a directory or a link to one.
func (ls Ls) Child() string {
	name := ls.Path
	kind := byte('-')
	if ls.Stat != "" {
		kind = ls.Stat[0]
	}
	if kind == 'l' {
		if i := strings.Index(name, " -> "); i >= 0 {
			name = name[:i]
		}
	} else if mark := classification(kind, ls.Stat); mark != 0 && strings.HasSuffix(name, string(mark)) {
		name = name[:len(name)-1]
	}
	if LsIsDir(ls) && !strings.HasSuffix(name, "/") {
		name += "/"
	}
	return name
}

// classification is the mark ls -F appends for an entry of this type.
func classification(kind byte, stat string) byte {
	switch kind {
	case 'd':
		return '/'
	case 'p':
		return '|'
	case 's':
		return '='
	case '-':
		if len(stat) > 1 && strings.ContainsAny(stat[1:], "xst") {
			return '*'
		}
	}
	return 0
}

// LegacyCommand lists dir with a single ls invocation.
func LegacyCommand(dir string) []string {
	c := shell.Cmd("ls", "-lFah", "--time-style=long-iso")
	if dir != "" {
		c = c.With(shell.Lit(dir))
	}
	return shell.Wrap(c.Line())
}

// LegacyEntry is an ls line together with its parsed form.
type LegacyEntry struct {
	Line string
	Ls   Ls
}

// ParseLegacy parses every entry line of ls output, skipping the "total"
// line and anything else that does not look like an entry.
func ParseLegacy(out string) []LegacyEntry {
	var entries []LegacyEntry
	for _, line := range strings.Split(out, "\n") {
		ls, err := ParseLs(line)
		if err != nil {
			continue
		}
		entries = append(entries, LegacyEntry{Line: line, Ls: ls})
	}
	return entries
}
