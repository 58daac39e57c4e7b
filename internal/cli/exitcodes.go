package cli

import (
	"errors"

	"github.com/kk-code-lab/bigtext/internal/textsource"
)

// Exit codes for bigtext.
const (
	ExitSuccess = 0

	// ExitNoMatches means find completed without a match.
	ExitNoMatches = 1

	ExitError        = 2
	ExitInvalidUsage = 64
	ExitConfigError  = 65
	ExitIOError      = 74
)

var (
	// ErrNoMatches signals ExitNoMatches; it is not reported as a failure.
	ErrNoMatches = errors.New("no matches")

	ErrUsage  = errors.New("invalid usage")
	ErrConfig = errors.New("invalid configuration")
)

// ExitCode maps the error returned by a command to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, ErrNoMatches):
		return ExitNoMatches
	case errors.Is(err, ErrUsage):
		return ExitInvalidUsage
	case errors.Is(err, ErrConfig):
		return ExitConfigError
	case errors.Is(err, textsource.ErrIO):
		return ExitIOError
	default:
		return ExitError
	}
}
