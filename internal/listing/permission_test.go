package listing

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePermission(t *testing.T) {
	tests := []struct {
		in   string
		want Permission
	}{
		{"drwxr-xr-x", Permission{Octal: "755", IsDirectory: true}},
		{"-rw-r--r--", Permission{Octal: "644"}},
		{"lrwxrwxrwx", Permission{Octal: "777", IsSymlink: true}},
		{"-rwsr-x---", Permission{Octal: "750"}},
		{"drwxrwxrwt", Permission{Octal: "777", IsDirectory: true}},
		{"-rwSr--r--", Permission{Octal: "744"}},
		{"----------", Permission{Octal: "000"}},
		{"-rw-r--r--.", Permission{Octal: "644"}},
	}
	for _, tt := range tests {
		got, err := ParsePermission(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParsePermission_TooShort(t *testing.T) {
	_, err := ParsePermission("drwx")
	assert.Error(t, err)
	_, err = ParsePermission("")
	assert.Error(t, err)
}

func TestAccessString(t *testing.T) {
	tests := []struct {
		mode fs.FileMode
		want string
	}{
		{fs.ModeDir | 0o755, "drwxr-xr-x"},
		{0o644, "-rw-r--r--"},
		{fs.ModeSymlink | 0o777, "lrwxrwxrwx"},
		{fs.ModeSetuid | 0o755, "-rwsr-xr-x"},
		{fs.ModeSetuid | 0o644, "-rwSr--r--"},
		{fs.ModeDir | fs.ModeSticky | 0o777, "drwxrwxrwt"},
		{fs.ModeNamedPipe | 0o600, "prw-------"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AccessString(tt.mode))
	}
}

func TestAccessStringRoundTripsOctal(t *testing.T) {
	for _, m := range []fs.FileMode{0o000, 0o644, 0o755, 0o700, 0o421} {
		p, err := ParsePermission(AccessString(m))
		require.NoError(t, err)
		assert.Equal(t, fmtOctal(m), p.Octal)
	}
}

func fmtOctal(m fs.FileMode) string {
	const digits = "01234567"
	return string([]byte{digits[(m>>6)&7], digits[(m>>3)&7], digits[m&7]})
}
