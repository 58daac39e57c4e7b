package search

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// matcher finds the first match starting at or after rune from of a window.
type matcher interface {
	next(w *window, from int) (pos, length int, err error)
	// overlap is how far past its end a window must reach to see every
	// match that starts inside it.
	overlap() int64
	// leftContext is how much text before a window a match may look at.
	leftContext() int64
}

func compile(opts Options, cfg Config) (matcher, error) {
	if opts.Pattern == "" {
		return nil, ErrEmptyPattern
	}
	if opts.UseRegex {
		options := regexp2.RegexOptions(regexp2.Multiline)
		if !opts.MatchCase {
			options |= regexp2.IgnoreCase
		}
		re, err := regexp2.Compile(opts.Pattern, options)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", opts.Pattern, err)
		}
		re.MatchTimeout = cfg.RegexTimeout
		return &regexMatcher{re: re, span: cfg.RegexOverlap}, nil
	}

	runeLen := utf8.RuneCountInString(opts.Pattern)
	if opts.MatchCase {
		return &literalMatcher{pattern: opts.Pattern, runeLen: runeLen}, nil
	}
	if isASCIIString(opts.Pattern) {
		first := opts.Pattern[0]
		return &literalMatcher{
			pattern: opts.Pattern,
			runeLen: runeLen,
			fold:    true,
			lower:   toLowerASCII(first),
			upper:   toUpperASCII(first),
		}, nil
	}
	re, err := regexp2.Compile(regexp2.Escape(opts.Pattern), regexp2.IgnoreCase)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", opts.Pattern, err)
	}
	re.MatchTimeout = cfg.RegexTimeout
	return &regexMatcher{re: re, span: int64(runeLen), literal: true}, nil
}

type literalMatcher struct {
	pattern string
	runeLen int
	fold    bool
	lower   byte
	upper   byte
}

func (m *literalMatcher) overlap() int64     { return int64(m.runeLen - 1) }
func (m *literalMatcher) leftContext() int64 { return 1 }

func (m *literalMatcher) next(w *window, from int) (int, int, error) {
	b := w.byteOf(from)
	if b >= len(w.text) {
		return -1, 0, nil
	}
	var idx int
	if m.fold {
		idx = m.indexFold(w.text[b:])
	} else {
		idx = strings.Index(w.text[b:], m.pattern)
	}
	if idx < 0 {
		return -1, 0, nil
	}
	return w.runeOfByte(b + idx), m.runeLen, nil
}

// indexFold finds the pattern ignoring ASCII case: candidate positions come
// from byte scans for either case of the first byte, then EqualFold confirms.
func (m *literalMatcher) indexFold(s string) int {
	n := len(m.pattern)
	nextLower, nextUpper := -2, -2
	for i := 0; i+n <= len(s); {
		if nextLower != -1 && nextLower < i {
			nextLower = indexByteFrom(s, m.lower, i)
		}
		if m.upper == m.lower {
			nextUpper = nextLower
		} else if nextUpper != -1 && nextUpper < i {
			nextUpper = indexByteFrom(s, m.upper, i)
		}

		c := nextLower
		if c == -1 || (nextUpper != -1 && nextUpper < c) {
			c = nextUpper
		}
		if c == -1 || c+n > len(s) {
			return -1
		}
		if strings.EqualFold(s[c:c+n], m.pattern) {
			return c
		}
		i = c + 1
	}
	return -1
}

func indexByteFrom(s string, c byte, from int) int {
	k := strings.IndexByte(s[from:], c)
	if k < 0 {
		return -1
	}
	return from + k
}

type regexMatcher struct {
	re      *regexp2.Regexp
	span    int64
	literal bool
}

func (m *regexMatcher) overlap() int64 {
	if m.literal {
		return m.span - 1
	}
	return m.span
}

func (m *regexMatcher) leftContext() int64 {
	if m.literal {
		return 1
	}
	return m.span
}

// next skips empty matches.
func (m *regexMatcher) next(w *window, from int) (int, int, error) {
	runes := w.runeView()
	for from <= len(runes) {
		match, err := m.re.FindRunesMatchStartingAt(runes, from)
		if err != nil {
			return -1, 0, err
		}
		if match == nil {
			return -1, 0, nil
		}
		if match.Length > 0 {
			return match.Index, match.Length, nil
		}
		from = match.Index + 1
	}
	return -1, 0, nil
}

func isASCIIString(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func toLowerASCII(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}

func toUpperASCII(c byte) byte {
	if 'a' <= c && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}
