package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/snadrus/ssher/internal/browser"
	"github.com/snadrus/ssher/internal/buffer"
	"github.com/snadrus/ssher/internal/scp"
	"github.com/snadrus/ssher/internal/transport/transporttest"
	"github.com/snadrus/ssher/internal/vpath"
)

func b64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

func record(access string, size int, name string) string {
	return strings.Join([]string{
		access, fmt.Sprint(size), "0", b64("root"), "0", b64("root"), b64(name), b64(name + "\n"),
	}, "\n") + "\n"
}

func fakeRemote() *transporttest.Fake {
	return &transporttest.Fake{Respond: func(argv []string) transporttest.Reply {
		switch {
		case slices.Equal(argv, browser.StatCommand("etc/hosts")):
			return transporttest.Reply{Stdout: "-rw-r--r--\n"}
		case slices.Equal(argv, browser.CatCommand("etc/hosts")):
			return transporttest.Reply{Stdout: "127.0.0.1 localhost\n::1 localhost\n"}
		case slices.Equal(argv, scp.Command("etc/hosts")):
			return transporttest.Reply{}
		default:
			return transporttest.Reply{Stdout: record("drwxr-xr-x", 4096, "etc/..") + record("-rw-r--r--", 40, "etc/hosts")}
		}
	}}
}

func run(t *testing.T, fake *transporttest.Fake, stdin string, args ...string) (string, error) {
	t.Helper()
	store := buffer.NewStore()
	ctrl := browser.New(store, fake, browser.Options{}, zap.NewNop())
	var out bytes.Buffer
	err := execute(context.Background(), ctrl, store, args[0], args[1:], strings.NewReader(stdin), &out)
	return out.String(), err
}

func TestOpenFile(t *testing.T) {
	out, err := run(t, fakeRemote(), "", "open", "ssher://root@box/etc/hosts")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1 localhost\n::1 localhost\n", out)
}

func TestOpenDirectory(t *testing.T) {
	out, err := run(t, fakeRemote(), "", "open", "ssher://root@box/etc/")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 8)
	assert.Equal(t, "ssher://root@box/etc/", lines[1])
	assert.Equal(t, "-rw-r--r--\t40 B\t0:0\thosts", lines[7])
}

func TestEnter(t *testing.T) {
	out, err := run(t, fakeRemote(), "", "enter", "ssher://root@box/etc/", "8")
	require.NoError(t, err)
	assert.Equal(t, "ssher://root@box/etc/hosts\n", out)

	out, err = run(t, fakeRemote(), "", "enter", "ssher://root@box/etc/", "7")
	require.NoError(t, err)
	assert.Equal(t, "ssher://root@box/\n", out)

	_, err = run(t, fakeRemote(), "", "enter", "ssher://root@box/etc/", "2")
	assert.ErrorContains(t, err, "not an entry")

	_, err = run(t, fakeRemote(), "", "enter", "ssher://root@box/etc/hosts", "1")
	assert.ErrorContains(t, err, "not a directory")
}

func TestSave(t *testing.T) {
	fake := fakeRemote()
	_, err := run(t, fake, "10.0.0.1 box\n", "save", "ssher://root@box/etc/hosts")
	require.NoError(t, err)

	calls := fake.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "C0644 13 hosts\n10.0.0.1 box\n\x00", calls[2].Stdin.String())
}

func TestUsageErrors(t *testing.T) {
	for _, args := range [][]string{
		{"open"},
		{"enter", "ssher://root@box/etc/"},
		{"enter", "ssher://root@box/etc/", "zero"},
		{"enter", "ssher://root@box/etc/", "0"},
		{"save"},
		{"frobnicate", "x"},
	} {
		_, err := run(t, fakeRemote(), "", args...)
		assert.ErrorIs(t, err, errUsage, "%v", args)
	}

	_, err := run(t, fakeRemote(), "", "open", "/etc/hosts")
	assert.ErrorIs(t, err, vpath.ErrInvalidName)
	_, err = run(t, fakeRemote(), "", "save", "ssher://root@box/etc/")
	assert.ErrorContains(t, err, "is a directory")
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{""}, splitLines(""))
	assert.Equal(t, []string{"a"}, splitLines("a"))
	assert.Equal(t, []string{"a"}, splitLines("a\n"))
	assert.Equal(t, []string{"a", ""}, splitLines("a\n\n"))
}
