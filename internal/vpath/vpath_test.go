package vpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		want VirtualPath
	}{
		{"ssher://luma@example.com/", VirtualPath{Target{"luma", "example.com", ""}, ""}},
		{"ssher://luma@example.com", VirtualPath{Target{"luma", "example.com", ""}, ""}},
		{"ssher://luma@example.com:2222/src/", VirtualPath{Target{"luma", "example.com", "2222"}, "src/"}},
		{"ssher://ec2-user@10.0.0.1/notes.txt", VirtualPath{Target{"ec2-user", "10.0.0.1", ""}, "notes.txt"}},
		{"ssher://root@box//etc/hosts", VirtualPath{Target{"root", "box", ""}, "/etc/hosts"}},
		{"ssher://a@b/dir with space/it's $x", VirtualPath{Target{"a", "b", ""}, "dir with space/it's $x"}},
		{"ssher://@host/x", VirtualPath{Target{"", "host", ""}, "x"}},
		{"ssher://u@[::1]:2222/x/", VirtualPath{Target{"u", "::1", "2222"}, "x/"}},
		{"ssher://u@[fe80::1%eth0]/", VirtualPath{Target{"u", "fe80::1%eth0", ""}, ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_Invalid(t *testing.T) {
	for _, name := range []string{
		"",
		"ssh://luma@example.com/",
		"ssher://example.com/",
		"ssher://luma@/x",
		"ssher://u@::1/x",
		"ssher://u@[::1/x",
		"ssher://u@host:port/x",
	} {
		_, err := Decode(name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	targets := []Target{
		{User: "luma", Host: "example.com"},
		{User: "luma", Host: "example.com", Port: "2222"},
		{User: "first.last", Host: "10.1.2.3", Port: "22"},
	}
	paths := []string{"", "a", "a/", "a/b/c.txt", "/etc/", "with space/", "x@y:1", "ssh:weird"}
	for _, tg := range targets {
		for _, p := range paths {
			vp := VirtualPath{Target: tg, Path: p}
			got, err := Decode(Encode(vp))
			require.NoError(t, err)
			assert.Equal(t, vp, got)
		}
	}
}

func TestEncode_EmptyRoot(t *testing.T) {
	vp, err := Decode("ssher://luma@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ssher://luma@example.com/", Encode(vp))
}

func TestIsDirectory(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"ssher://u@h", true},
		{"ssher://u@h/", true},
		{"ssher://u@h/src/", true},
		{"ssher://u@h/src", false},
		{"ssher://u@h:22/src/main.go", false},
	}
	for _, tt := range tests {
		vp, err := Decode(tt.name)
		require.NoError(t, err)
		assert.Equal(t, tt.want, vp.IsDirectory(), tt.name)
	}
}

func TestNormalizeJoin(t *testing.T) {
	tests := []struct {
		base, child, want string
	}{
		{"", "foo", "foo"},
		{"", "vim/", "vim/"},
		{"dir/", "..", ""},
		{"dir/", "../", ""},
		{"dir/", ".", "dir"},
		{"dir/", "./", "dir/"},
		{"", "./", ""},
		{"", ".", ""},
		{"a/b/", "../", "a/"},
		{"", "../", "../"},
		{"/etc/", "../", "/"},
		{"/", "../", "/"},
		{"src/", "main.go", "src/main.go"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeJoin(tt.base, tt.child), "%q + %q", tt.base, tt.child)
	}
}

func TestTargetAddr(t *testing.T) {
	assert.Equal(t, "example.com:22", Target{User: "u", Host: "example.com"}.Addr())
	assert.Equal(t, "example.com:2200", Target{User: "u", Host: "example.com", Port: "2200"}.Addr())
	assert.Equal(t, "u@example.com", Target{User: "u", Host: "example.com", Port: "2200"}.Login())
}

func TestTargetIPv6AndEmptyUser(t *testing.T) {
	v6 := Target{User: "u", Host: "::1", Port: "2222"}
	assert.Equal(t, "u@[::1]:2222", v6.String())
	assert.Equal(t, "[::1]:2222", v6.Addr())
	assert.Equal(t, "u@::1", v6.Login())

	anon := Target{Host: "box"}
	assert.Equal(t, "@box", anon.String())
	assert.Equal(t, "box", anon.Login())

	for _, name := range []string{"ssher://u@[::1]:2222/x", "ssher://@box/y/"} {
		vp, err := Decode(name)
		require.NoError(t, err)
		assert.Equal(t, name, Encode(vp))
	}
}
