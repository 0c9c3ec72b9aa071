// Package browser drives remote buffers: it fetches content or listings
// when a buffer is set up, resolves navigation in listings, and writes
// edited files back.
package browser

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/snadrus/ssher/internal/dirview"
	"github.com/snadrus/ssher/internal/listing"
	"github.com/snadrus/ssher/internal/scp"
	"github.com/snadrus/ssher/internal/shell"
	"github.com/snadrus/ssher/internal/transport"
	"github.com/snadrus/ssher/internal/vpath"
)

// ErrNotLoaded is returned when saving a buffer that has no loaded file.
var ErrNotLoaded = errors.New("buffer not loaded")

const maxLineBatch = 1024

type phase int

const (
	phaseLoading phase = iota
	phaseLoaded
	phaseSaving
)

// state is what the Controller remembers about one buffer.
type state struct {
	phase   phase
	perm    string           // file buffers: octal captured at setup
	listing *dirview.Listing // directory buffers
}

// Options configures a Controller.
type Options struct {
	Listing        listing.Options
	Tabstop        int
	MaxConcurrency int // SetupAll fan-out; 0 means unbounded
	Now            func() time.Time
}

// Controller implements Setup, OnEnter and OnSave for remote buffers.
type Controller struct {
	editor    Editor
	transport transport.Transport
	opts      Options
	log       *zap.Logger

	mu     sync.Mutex
	states map[BufferID]*state
}

func New(editor Editor, t transport.Transport, opts Options, log *zap.Logger) *Controller {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Tabstop <= 0 {
		opts.Tabstop = 16
	}
	return &Controller{
		editor:    editor,
		transport: t,
		opts:      opts,
		log:       log,
		states:    make(map[BufferID]*state),
	}
}

// Setup loads the buffer's remote content: a rendered listing for
// directories, the file's lines for files.
func (c *Controller) Setup(ctx context.Context, id BufferID) error {
	vp, err := c.decode(ctx, id)
	if err != nil {
		return err
	}
	c.setState(id, &state{phase: phaseLoading})

	if vp.IsDirectory() {
		err = c.setupDirectory(ctx, id, vp)
	} else {
		err = c.setupFile(ctx, id, vp)
	}
	if err != nil {
		c.Close(id)
		return err
	}
	return nil
}

func (c *Controller) setupDirectory(ctx context.Context, id BufferID, vp vpath.VirtualPath) error {
	res, err := listing.List(ctx, c.transport, vp, c.opts.Listing)
	if err != nil {
		if !errors.Is(err, listing.ErrListingProtocolViolation) {
			return err
		}
		c.log.Warn("partial listing", zap.Stringer("path", vp), zap.Error(err))
	}

	var entries []dirview.Entry
	if res.Mode == listing.ModeLegacy {
		entries = dirview.FromLegacy(res.Legacy)
	} else {
		entries = dirview.FromRecords(res.Records)
	}
	l := dirview.Render(c.opts.Now(), vpath.Encode(vp), entries)

	lines := l.Lines()
	if err := c.editor.SetLines(ctx, id, 0, lines); err != nil {
		return err
	}
	if err := c.editor.DeleteLines(ctx, id, len(lines)); err != nil {
		return err
	}
	if err := c.editor.SetTabstop(ctx, id, c.opts.Tabstop); err != nil {
		return err
	}
	if err := c.editor.SetModifiable(ctx, id, false); err != nil {
		return err
	}
	c.setState(id, &state{phase: phaseLoaded, listing: l})
	c.log.Debug("listed", zap.Stringer("path", vp), zap.Int("entries", len(entries)))
	return nil
}

func (c *Controller) setupFile(ctx context.Context, id BufferID, vp vpath.VirtualPath) error {
	out, err := transport.Output(ctx, c.transport, vp.Target, StatCommand(vp.Path))
	if err != nil {
		return err
	}
	perm, err := listing.ParsePermission(strings.TrimSpace(string(out)))
	if err != nil {
		return fmt.Errorf("%w: stat %s: %v", transport.ErrRemoteCommandFailed, vp, err)
	}

	var n int
	err = transport.Run(ctx, c.transport, vp.Target, CatCommand(vp.Path), func(_ io.WriteCloser, stdout io.Reader) error {
		var err error
		n, err = c.streamLines(ctx, id, stdout)
		return err
	})
	if err != nil {
		return err
	}
	if err := c.editor.SetModifiable(ctx, id, true); err != nil {
		return err
	}
	if err := c.editor.SetModified(ctx, id, false); err != nil {
		return err
	}
	c.setState(id, &state{phase: phaseLoaded, perm: perm.Octal})
	c.log.Debug("fetched", zap.Stringer("path", vp), zap.String("perm", perm.Octal), zap.Int("lines", n))
	return nil
}

// streamLines copies r into the buffer as it arrives, one batch per read
// that leaves the reader empty. A final newline does not produce a
// trailing empty line, but an empty file is one empty line.
func (c *Controller) streamLines(ctx context.Context, id BufferID, r io.Reader) (int, error) {
	if err := c.editor.SetLines(ctx, id, 0, []string{""}); err != nil {
		return 0, err
	}
	if err := c.editor.DeleteLines(ctx, id, 1); err != nil {
		return 0, err
	}

	br := bufio.NewReaderSize(r, 64*1024)
	lineNr := 0
	var batch []string
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := c.editor.SetLines(ctx, id, lineNr, batch)
		lineNr += len(batch)
		batch = nil
		return err
	}
	for {
		line, err := br.ReadString('\n')
		if err == nil {
			batch = append(batch, line[:len(line)-1])
			if br.Buffered() == 0 || len(batch) >= maxLineBatch {
				if err := flush(); err != nil {
					return lineNr, err
				}
			}
			continue
		}
		if err != io.EOF {
			return lineNr, err
		}
		if line != "" || lineNr+len(batch) == 0 {
			batch = append(batch, line)
		}
		err = flush()
		return lineNr, err
	}
}

// OnEnter opens the entry under the cursor of a directory buffer. Lines
// outside the entry range, and non-directory buffers, are ignored.
func (c *Controller) OnEnter(ctx context.Context, id BufferID) error {
	vp, err := c.decode(ctx, id)
	if err != nil {
		return err
	}
	st := c.getState(id)
	if st == nil || st.phase != phaseLoaded || st.listing == nil {
		return nil
	}
	line, err := c.editor.Cursor(ctx, id)
	if err != nil {
		return err
	}
	child, ok := st.listing.Resolve(line)
	if !ok {
		return nil
	}
	next := vpath.Encode(vp.Join(child))
	c.log.Debug("enter", zap.Stringer("from", vp), zap.String("to", next))
	return c.editor.Edit(ctx, next)
}

// OnSave writes lines back to the remote file with the permission bits
// captured at setup. Directory buffers are never written. The buffer is
// marked unmodified only after the remote side accepted the content.
func (c *Controller) OnSave(ctx context.Context, id BufferID, lines []string) error {
	vp, err := c.decode(ctx, id)
	if err != nil {
		return err
	}
	if vp.IsDirectory() {
		return nil
	}

	c.mu.Lock()
	st := c.states[id]
	if st == nil || st.phase != phaseLoaded || st.listing != nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotLoaded, vp)
	}
	st.phase = phaseSaving
	perm := st.perm
	c.mu.Unlock()

	err = scp.Push(ctx, c.transport, vp, perm, EncodeLines(lines))

	c.mu.Lock()
	st.phase = phaseLoaded
	c.mu.Unlock()

	if err != nil {
		return err
	}
	c.log.Info("saved", zap.Stringer("path", vp), zap.Int("lines", len(lines)))
	return c.editor.SetModified(ctx, id, false)
}

// SetupAll sets up every remote buffer that has not been loaded yet (a
// single line), concurrently. Failures do not stop the other buffers.
func (c *Controller) SetupAll(ctx context.Context) error {
	bufs, err := c.editor.Buffers(ctx)
	if err != nil {
		return err
	}

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	if c.opts.MaxConcurrency > 0 {
		g.SetLimit(c.opts.MaxConcurrency)
	}
	for _, b := range bufs {
		if !vpath.IsVirtualName(b.Name) || b.LineCount != 1 {
			continue
		}
		b := b
		g.Go(func() error {
			if err := c.Setup(ctx, b.ID); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", b.Name, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Close forgets everything about a buffer.
func (c *Controller) Close(id BufferID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, id)
}

// Permission is the octal captured for a loaded file buffer.
func (c *Controller) Permission(id BufferID) (string, bool) {
	st := c.getState(id)
	if st == nil || st.phase == phaseLoading || st.listing != nil {
		return "", false
	}
	return st.perm, true
}

// Listing is the view of a loaded directory buffer.
func (c *Controller) Listing(id BufferID) (*dirview.Listing, bool) {
	st := c.getState(id)
	if st == nil || st.listing == nil {
		return nil, false
	}
	return st.listing, true
}

func (c *Controller) decode(ctx context.Context, id BufferID) (vpath.VirtualPath, error) {
	name, err := c.editor.BufferName(ctx, id)
	if err != nil {
		return vpath.VirtualPath{}, err
	}
	return vpath.Decode(name)
}

func (c *Controller) getState(id BufferID) *state {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[id]
}

func (c *Controller) setState(id BufferID, st *state) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[id] = st
}

// StatCommand prints the access string of path.
func StatCommand(path string) []string {
	return shell.Wrap(shell.Cmd("stat", "--format=%A", "--", path).Line())
}

// CatCommand prints the content of path.
func CatCommand(path string) []string {
	return shell.Wrap(shell.Cmd("cat", "--", path).Line())
}

// EncodeLines joins lines with a newline after each one.
func EncodeLines(lines []string) []byte {
	var b bytes.Buffer
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.Bytes()
}
