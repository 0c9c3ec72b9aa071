// Package dirview renders a directory listing into buffer lines and keeps
// the mapping from those lines back to the entries they show.
package dirview

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/snadrus/ssher/internal/listing"
)

const (
	rule      = "------------------------------------------------------------"
	usageHint = "<CR>: open the entry under the cursor"
)

// Entry is one displayed line and the child name it navigates to.
type Entry struct {
	Display string
	Child   string // basename, with a trailing '/' for directories
}

// Listing is a rendered directory view.
type Listing struct {
	Header  []string
	Entries []Entry
}

// FromRecords builds entries from batched or sftp records, one per record
// in the order given.
func FromRecords(recs []listing.FileRecord) []Entry {
	entries := make([]Entry, 0, len(recs))
	for _, r := range recs {
		name := r.Child()
		if p, err := r.Permission(); err == nil && p.IsSymlink {
			name += " -> " + r.Dereferenced
		}
		cols := []string{
			r.Access,
			humanize.IBytes(uint64(max(r.SizeInBytes, 0))),
			r.UserID + ":" + r.GroupID,
			name,
		}
		entries = append(entries, Entry{Display: strings.Join(cols, "\t"), Child: r.Child()})
	}
	return entries
}

// FromLegacy shows ls lines verbatim.
func FromLegacy(ls []listing.LegacyEntry) []Entry {
	entries := make([]Entry, 0, len(ls))
	for _, e := range ls {
		entries = append(entries, Entry{Display: e.Line, Child: e.Ls.Child()})
	}
	return entries
}

// Render lays out the header block followed by one line per entry.
func Render(fetched time.Time, note string, entries []Entry) *Listing {
	return &Listing{
		Header: []string{
			"Fetched at " + fetched.Format("2006-01-02 15:04:05 MST"),
			note,
			rule,
			usageHint,
			rule,
			"",
		},
		Entries: entries,
	}
}

// HeaderLineCount is the number of lines before the first entry.
func (l *Listing) HeaderLineCount() int { return len(l.Header) }

// Lines is the full buffer content.
func (l *Listing) Lines() []string {
	lines := make([]string, 0, len(l.Header)+len(l.Entries))
	lines = append(lines, l.Header...)
	for _, e := range l.Entries {
		lines = append(lines, e.Display)
	}
	return lines
}

// Resolve maps a 0-based buffer line to the child name shown on it. Lines
// in the header or past the last entry resolve to nothing.
func (l *Listing) Resolve(line int) (string, bool) {
	i := line - len(l.Header)
	if i < 0 || i >= len(l.Entries) {
		return "", false
	}
	return l.Entries[i].Child, true
}
