// Package buffer is an in-memory editor: a set of named line buffers that
// satisfies browser.Editor. The command-line front end drives it.
package buffer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/snadrus/ssher/internal/browser"
)

var ErrNoBuffer = errors.New("no such buffer")

// Buffer is one named buffer. A fresh buffer holds a single empty line.
type Buffer struct {
	ID         browser.BufferID
	Name       string
	Lines      []string
	Modifiable bool
	Modified   bool
	Tabstop    int
	Cursor     int
}

// Store holds buffers and records Edit requests.
type Store struct {
	mu      sync.Mutex
	next    browser.BufferID
	bufs    map[browser.BufferID]*Buffer
	current browser.BufferID
	opened  []string
}

func NewStore() *Store {
	return &Store{next: 1, bufs: make(map[browser.BufferID]*Buffer)}
}

// Add creates a buffer named name and makes it current.
func (s *Store) Add(name string) browser.BufferID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(name)
}

func (s *Store) add(name string) browser.BufferID {
	id := s.next
	s.next++
	s.bufs[id] = &Buffer{ID: id, Name: name, Lines: []string{""}, Modifiable: true, Tabstop: 8}
	s.current = id
	return id
}

// Get returns a copy of the buffer.
func (s *Store) Get(id browser.BufferID) (Buffer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bufs[id]
	if !ok {
		return Buffer{}, false
	}
	cp := *b
	cp.Lines = append([]string(nil), b.Lines...)
	return cp, true
}

// Current is the buffer most recently added or opened.
func (s *Store) Current() browser.BufferID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Opened lists the names passed to Edit, oldest first.
func (s *Store) Opened() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.opened...)
}

// SetCursor moves the cursor of id to line.
func (s *Store) SetCursor(id browser.BufferID, line int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.get(id)
	if err != nil {
		return err
	}
	if line < 0 || line >= len(b.Lines) {
		return fmt.Errorf("cursor %d outside 0..%d", line, len(b.Lines)-1)
	}
	b.Cursor = line
	return nil
}

// Remove deletes a buffer.
func (s *Store) Remove(id browser.BufferID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bufs, id)
}

func (s *Store) get(id browser.BufferID) (*Buffer, error) {
	b, ok := s.bufs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNoBuffer, id)
	}
	return b, nil
}

func (s *Store) BufferName(_ context.Context, id browser.BufferID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.get(id)
	if err != nil {
		return "", err
	}
	return b.Name, nil
}

func (s *Store) Buffers(context.Context) ([]browser.BufferInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]browser.BufferInfo, 0, len(s.bufs))
	for _, b := range s.bufs {
		out = append(out, browser.BufferInfo{ID: b.ID, Name: b.Name, LineCount: len(b.Lines)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SetLines(_ context.Context, id browser.BufferID, start int, lines []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.get(id)
	if err != nil {
		return err
	}
	if start < 0 || start > len(b.Lines) {
		return fmt.Errorf("start line %d outside 0..%d", start, len(b.Lines))
	}
	for i, l := range lines {
		if start+i < len(b.Lines) {
			b.Lines[start+i] = l
		} else {
			b.Lines = append(b.Lines, l)
		}
	}
	return nil
}

func (s *Store) DeleteLines(_ context.Context, id browser.BufferID, from int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.get(id)
	if err != nil {
		return err
	}
	if from < len(b.Lines) {
		b.Lines = b.Lines[:max(from, 0)]
	}
	if len(b.Lines) == 0 {
		b.Lines = []string{""}
	}
	if b.Cursor >= len(b.Lines) {
		b.Cursor = len(b.Lines) - 1
	}
	return nil
}

func (s *Store) Cursor(_ context.Context, id browser.BufferID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.get(id)
	if err != nil {
		return 0, err
	}
	return b.Cursor, nil
}

func (s *Store) SetModifiable(_ context.Context, id browser.BufferID, on bool) error {
	return s.update(id, func(b *Buffer) { b.Modifiable = on })
}

func (s *Store) SetModified(_ context.Context, id browser.BufferID, on bool) error {
	return s.update(id, func(b *Buffer) { b.Modified = on })
}

func (s *Store) SetTabstop(_ context.Context, id browser.BufferID, width int) error {
	return s.update(id, func(b *Buffer) { b.Tabstop = width })
}

// Edit opens name, reusing a buffer that already carries it.
func (s *Store) Edit(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = append(s.opened, name)
	for _, b := range s.bufs {
		if b.Name == name {
			s.current = b.ID
			return nil
		}
	}
	s.add(name)
	return nil
}

func (s *Store) update(id browser.BufferID, fn func(*Buffer)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.get(id)
	if err != nil {
		return err
	}
	fn(b)
	return nil
}

var _ browser.Editor = (*Store)(nil)
