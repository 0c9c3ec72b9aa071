package shell

import (
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"sh", "base64"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not available: %v", bin, err)
		}
	}
}

// runAsLoginShell runs argv the way sshd does: joined by spaces and parsed
// by a shell once more.
func runAsLoginShell(t *testing.T, argv []string) string {
	t.Helper()
	out, err := exec.Command("sh", "-c", strings.Join(argv, " ")).Output()
	require.NoError(t, err)
	return string(out)
}

var hostileArgs = []string{
	"plain",
	"",
	"with space",
	"it's",
	`"double"`,
	"$HOME ${PATH}",
	"`id`",
	"$(id)",
	"a\tb",
	"semi;colon && echo pwned | cat",
	"new\nline inside",
	"\xff\xfe\x80 not utf8",
	"-n",
	"%d%s",
	`back\slash\`,
	"*?[a-z]~",
	"日本語",
}

func TestEscapeRoundTrip(t *testing.T) {
	requireShell(t)
	for _, s := range hostileArgs {
		argv := Wrap(Cmd("printf", "%s", s).Line())
		assert.Equal(t, s, runAsLoginShell(t, argv), "%q", s)
	}
}

func TestEscape_NoRawArgument(t *testing.T) {
	line := Cmd("cat", "--", "x'; rm -rf / #").Line()
	assert.NotContains(t, line, "rm -rf")
	assert.NotContains(t, line, "'")
}

func TestEscape_Ref(t *testing.T) {
	assert.Equal(t, `"$0"`, Escape(Ref("0")))
	assert.Equal(t, `"$(printf "%s" YQ==|base64 -d)" "$1"`, Cmd("a").With(Ref("1")).Line())
}

func TestJoinCommandsInShell_RunsInOrder(t *testing.T) {
	requireShell(t)
	argv := JoinCommandsInShell(
		Cmd("printf", "%s", "first "),
		Cmd("printf", "%s", "second"),
	)
	assert.Equal(t, "first second", runAsLoginShell(t, argv))
}

func TestJoinCommandsInShell_SharesWorkingDirectory(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	argv := JoinCommandsInShell(
		Cmd("cd", "--", dir),
		Cmd("pwd"),
	)
	got := strings.TrimSpace(runAsLoginShell(t, argv))
	resolved, err := exec.Command("sh", "-c", "cd "+Quote(dir)+" && pwd").Output()
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace(string(resolved)), got)
}

func TestNestedScriptWithPositional(t *testing.T) {
	requireShell(t)
	inner := Script(Cmd("printf", "%s|").With(Ref("0")))
	for _, s := range hostileArgs {
		if s == "" || strings.HasPrefix(s, "-") {
			continue
		}
		argv := JoinCommandsInShell(Cmd("sh", "-c", inner, s))
		assert.Equal(t, s+"|", runAsLoginShell(t, argv), "%q", s)
	}
}

func TestPipeline(t *testing.T) {
	requireShell(t)
	argv := JoinCommandsInShell(Pipeline{
		Cmd("printf", "%s", "a b c"),
		Cmd("tr", " ", "-"),
	})
	assert.Equal(t, "a-b-c", runAsLoginShell(t, argv))
}

func TestAndList(t *testing.T) {
	requireShell(t)
	argv := JoinCommandsInShell(
		AndList{Cmd("true"), Cmd("printf", "%s", "ran")},
		AndList{Cmd("false"), Cmd("printf", "%s", "skipped")},
		Cmd("printf", "%s", "|end"),
	)
	assert.Equal(t, "ran|end", runAsLoginShell(t, argv))
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "''", Quote(""))
	assert.Equal(t, "abc", Quote("abc"))
	assert.Equal(t, "'a b'", Quote("a b"))
	assert.Equal(t, `'it'\''s'`, Quote("it's"))
}
