package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/snadrus/ssher/internal/browser"
	"github.com/snadrus/ssher/internal/buffer"
	"github.com/snadrus/ssher/internal/vpath"
)

var errUsage = errors.New("usage")

// execute runs one command against a fresh in-memory buffer.
func execute(ctx context.Context, ctrl *browser.Controller, store *buffer.Store, cmd string, args []string, in io.Reader, out io.Writer) error {
	switch cmd {
	case "open":
		if len(args) != 1 {
			return fmt.Errorf("%w: ssher open NAME", errUsage)
		}
		return cmdOpen(ctx, ctrl, store, args[0], out)
	case "enter":
		if len(args) != 2 {
			return fmt.Errorf("%w: ssher enter NAME LINE", errUsage)
		}
		line, err := strconv.Atoi(args[1])
		if err != nil || line < 1 {
			return fmt.Errorf("%w: LINE must be a positive number, got %q", errUsage, args[1])
		}
		return cmdEnter(ctx, ctrl, store, args[0], line, out)
	case "save":
		if len(args) != 1 {
			return fmt.Errorf("%w: ssher save NAME < content", errUsage)
		}
		return cmdSave(ctx, ctrl, store, args[0], in)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func setup(ctx context.Context, ctrl *browser.Controller, store *buffer.Store, name string) (browser.BufferID, error) {
	if _, err := vpath.Decode(name); err != nil {
		return 0, err
	}
	id := store.Add(name)
	return id, ctrl.Setup(ctx, id)
}

func cmdOpen(ctx context.Context, ctrl *browser.Controller, store *buffer.Store, name string, out io.Writer) error {
	id, err := setup(ctx, ctrl, store, name)
	if err != nil {
		return err
	}
	defer ctrl.Close(id)
	b, _ := store.Get(id)
	for _, l := range b.Lines {
		if _, err := fmt.Fprintln(out, l); err != nil {
			return err
		}
	}
	return nil
}

func cmdEnter(ctx context.Context, ctrl *browser.Controller, store *buffer.Store, name string, line int, out io.Writer) error {
	vp, err := vpath.Decode(name)
	if err != nil {
		return err
	}
	if !vp.IsDirectory() {
		return fmt.Errorf("%s is not a directory", name)
	}
	id, err := setup(ctx, ctrl, store, name)
	if err != nil {
		return err
	}
	defer ctrl.Close(id)
	if err := store.SetCursor(id, line-1); err != nil {
		return err
	}
	before := len(store.Opened())
	if err := ctrl.OnEnter(ctx, id); err != nil {
		return err
	}
	opened := store.Opened()
	if len(opened) == before {
		return fmt.Errorf("line %d of %s is not an entry", line, name)
	}
	_, err = fmt.Fprintln(out, opened[len(opened)-1])
	return err
}

func cmdSave(ctx context.Context, ctrl *browser.Controller, store *buffer.Store, name string, in io.Reader) error {
	vp, err := vpath.Decode(name)
	if err != nil {
		return err
	}
	if vp.IsDirectory() {
		return fmt.Errorf("%s is a directory", name)
	}
	content, err := io.ReadAll(in)
	if err != nil {
		return err
	}

	id, err := setup(ctx, ctrl, store, name)
	if err != nil {
		return err
	}
	defer ctrl.Close(id)

	lines := splitLines(string(content))
	if err := store.SetLines(ctx, id, 0, lines); err != nil {
		return err
	}
	if err := store.DeleteLines(ctx, id, len(lines)); err != nil {
		return err
	}
	if err := store.SetModified(ctx, id, true); err != nil {
		return err
	}
	b, _ := store.Get(id)
	return ctrl.OnSave(ctx, id, b.Lines)
}

// splitLines splits s the way a buffer holds it: no trailing empty line for
// a final newline, one empty line for empty input.
func splitLines(s string) []string {
	lines := strings.Split(s, "\n")
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
