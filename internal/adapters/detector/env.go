// Package detector decides whether the installer may prompt the user.
package detector

import (
	"os"

	"golang.org/x/term"
)

// OutputMode is how the installer talks to the user.
type OutputMode int

const (
	// ModeInteractive prompts, shows spinners and reads hidden input.
	ModeInteractive OutputMode = iota
	// ModeLinear never prompts: every question takes its default.
	ModeLinear
)

// DetectEnvironment returns ModeInteractive when both stdin and stdout are terminals
// and no CI environment variable is set.
func DetectEnvironment(stdin, stdout *os.File) OutputMode {
	if isCI() {
		return ModeLinear
	}
	if !isTerminal(stdin) || !isTerminal(stdout) {
		return ModeLinear
	}
	return ModeInteractive
}

func isTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}

func isCI() bool {
	ci := os.Getenv("CI")
	return ci == "true" || ci == "1"
}
