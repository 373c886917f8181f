// Package ttyguard keeps terminal color probing away from non-interactive
// runs. Import it for side effects before any package that builds styles.
package ttyguard

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// init sets CI=1 for headless invocations. Termenv and colorprofile honor CI
// and skip the OSC/DSR queries that would otherwise land in exported JSON or
// SVG written to stdout.
func init() {
	if os.Getenv("CI") != "" {
		return
	}
	if !Suppress(os.Args, os.Getenv("IL_TEST_MODE") != "", term.IsTerminal(int(os.Stdout.Fd()))) {
		return
	}
	_ = os.Setenv("CI", "1")
}

// Suppress reports whether the invocation described by args should run
// without terminal queries.
func Suppress(args []string, testMode, stdoutTTY bool) bool {
	if testMode || !stdoutTTY {
		return true
	}
	for _, arg := range args {
		name, _, _ := strings.Cut(arg, "=")
		switch name {
		case "--version", "--help", "-h", "--export", "--serve":
			return true
		}
	}
	return false
}
