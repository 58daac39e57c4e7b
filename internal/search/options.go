// Package search finds literal and regular-expression matches in a text
// source by sliding a bounded window over it, and in trees of files.
//
// Offsets, lengths and columns are in runes. Case and whole-word options are
// applied while matching; no transformed copy of the text is built.
package search

import (
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kk-code-lab/bigtext/internal/logging"
	"github.com/kk-code-lab/bigtext/internal/textsource"
)

const (
	// DefaultWindowSize is the number of runes read per window.
	DefaultWindowSize = 4 << 20

	// DefaultRegexOverlap is how far a window is extended so that regex
	// matches straddling its end are still seen whole.
	DefaultRegexOverlap = 4096

	// DefaultRegexTimeout bounds a single regex match attempt.
	DefaultRegexTimeout = 5 * time.Second

	// maxContext bounds the line text kept on each side of a match.
	maxContext = 256
)

var (
	// ErrCancelled matches the error returned by a cancelled search.
	ErrCancelled = textsource.ErrCancelled

	// ErrEmptyPattern is returned for an empty pattern.
	ErrEmptyPattern = errors.New("empty search pattern")
)

// Options describes what to look for.
type Options struct {
	Pattern    string
	MatchCase  bool
	WholeWord  bool
	UseRegex   bool
	WrapAround bool
}

// Result is one match. Line and Column are zero-based; DisplayColumn counts
// terminal cells with tabs expanded. LineText holds the line around the
// match, clipped on very long lines, and MatchStart is the match position
// inside it.
type Result struct {
	Offset        int64
	Length        int
	Line          int64
	Column        int64
	DisplayColumn int
	LineText      string
	MatchStart    int
	FilePath      string
}

// Config tunes an Engine.
type Config struct {
	WindowSize   int64
	RegexOverlap int64
	RegexTimeout time.Duration
	TabWidth     int
	Logger       *log.Logger
}

func (c Config) withDefaults() Config {
	if c.WindowSize <= 0 {
		c.WindowSize = DefaultWindowSize
	}
	if c.RegexOverlap <= 0 {
		c.RegexOverlap = DefaultRegexOverlap
	}
	if c.RegexTimeout <= 0 {
		c.RegexTimeout = DefaultRegexTimeout
	}
	c.Logger = logging.OrDefault(c.Logger)
	return c
}

func cancelled(err error) error {
	return errors.Join(ErrCancelled, err)
}
