// Package shell builds remote command lines that survive any number of
// shell parsing passes. Literal arguments never reach a shell parser as
// text: each one is base64-encoded and decoded back on the remote side.
package shell

import (
	"encoding/base64"
	"strings"
)

// Arg is one word of a command line: either a literal or a reference the
// remote shell expands (a positional parameter or variable name).
type Arg struct {
	lit string
	ref string
}

// Lit is a literal argument, passed byte for byte.
func Lit(s string) Arg { return Arg{lit: s} }

// Ref expands a shell parameter, e.g. Ref("0") renders as "$0".
func Ref(name string) Arg { return Arg{ref: name} }

// Stmt is anything that renders as one line of a shell script.
type Stmt interface {
	Line() string
}

// Command is an argument vector.
type Command []Arg

// Cmd builds a Command from literal words.
func Cmd(name string, args ...string) Command {
	c := make(Command, 0, len(args)+1)
	c = append(c, Lit(name))
	for _, a := range args {
		c = append(c, Lit(a))
	}
	return c
}

// With returns a copy of c with args appended.
func (c Command) With(args ...Arg) Command {
	out := make(Command, 0, len(c)+len(args))
	out = append(out, c...)
	return append(out, args...)
}

// Line renders c as escaped words separated by spaces.
func (c Command) Line() string {
	return Escape(c...)
}

// Pipeline feeds each command's stdout into the next one's stdin.
type Pipeline []Command

func (p Pipeline) Line() string {
	parts := make([]string, len(p))
	for i, c := range p {
		parts[i] = c.Line()
	}
	return strings.Join(parts, " | ")
}

// AndList runs each command only when the previous one succeeded.
type AndList []Command

func (l AndList) Line() string {
	parts := make([]string, len(l))
	for i, c := range l {
		parts[i] = c.Line()
	}
	return strings.Join(parts, " && ")
}

// Escape renders args as `"$(printf "%s" B64|base64 -d)"` words. The
// command substitution strips trailing newlines from a literal.
func Escape(args ...Arg) string {
	words := make([]string, len(args))
	for i, a := range args {
		if a.ref != "" {
			words[i] = `"$` + a.ref + `"`
			continue
		}
		words[i] = `"$(printf "%s" ` + base64.StdEncoding.EncodeToString([]byte(a.lit)) + `|base64 -d)"`
	}
	return strings.Join(words, " ")
}

// Script joins statements into a newline separated script body. All
// statements run in order in the same shell.
func Script(stmts ...Stmt) string {
	lines := make([]string, len(stmts))
	for i, s := range stmts {
		lines[i] = s.Line()
	}
	return strings.Join(lines, "\n")
}

// Wrap turns a script body into the argv handed to the remote login shell.
func Wrap(script string) []string {
	return []string{"sh", "-c", Quote(script)}
}

// JoinCommandsInShell wraps stmts into a single sh -c invocation.
func JoinCommandsInShell(stmts ...Stmt) []string {
	return Wrap(Script(stmts...))
}

// Quote single-quotes s for a POSIX shell when it contains anything the
// shell would interpret.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n\"'\\$`!#&|;(){}[]<>?*~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
