package fs

import (
	"strings"

	"golang.org/x/text/transform"
)

// LineEnding is the line terminator style of a file on disk.
type LineEnding int

const (
	LineEndingLF LineEnding = iota
	LineEndingCRLF
	LineEndingCR
)

func (l LineEnding) String() string {
	switch l {
	case LineEndingCRLF:
		return "crlf"
	case LineEndingCR:
		return "cr"
	default:
		return "lf"
	}
}

// Sequence returns the terminator itself.
func (l LineEnding) Sequence() string {
	switch l {
	case LineEndingCRLF:
		return "\r\n"
	case LineEndingCR:
		return "\r"
	default:
		return "\n"
	}
}

// DetectLineEnding returns the dominant terminator in text. Ties and text
// without any terminator resolve to LF.
func DetectLineEnding(text string) LineEnding {
	var lf, crlf, cr int
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			lf++
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				crlf++
				i++
			} else if i+1 < len(text) {
				cr++
			}
		}
	}
	switch {
	case crlf > lf && crlf >= cr:
		return LineEndingCRLF
	case cr > lf && cr > crlf:
		return LineEndingCR
	default:
		return LineEndingLF
	}
}

// NormalizeLineEndings folds CRLF and lone CR to LF.
func NormalizeLineEndings(text string) string {
	if strings.IndexByte(text, '\r') < 0 {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '\r' {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('\n')
		if i+1 < len(text) && text[i+1] == '\n' {
			i++
		}
	}
	return b.String()
}

// Reconstitute rewrites LF terminators of normalized text to style l.
func Reconstitute(text string, l LineEnding) string {
	if l == LineEndingLF {
		return text
	}
	return strings.ReplaceAll(text, "\n", l.Sequence())
}

// LineEndingTransformer returns a transformer that rewrites LF to l, for use
// with transform.NewWriter when saving normalized text.
func LineEndingTransformer(l LineEnding) transform.Transformer {
	if l == LineEndingLF {
		return transform.Nop
	}
	return &lineEndingTransformer{seq: []byte(l.Sequence())}
}

type lineEndingTransformer struct {
	transform.NopResetter
	seq []byte
}

func (t *lineEndingTransformer) Transform(dst, src []byte, _ bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		c := src[nSrc]
		if c != '\n' {
			if nDst >= len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}
			dst[nDst] = c
			nDst++
			nSrc++
			continue
		}
		if nDst+len(t.seq) > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		nDst += copy(dst[nDst:], t.seq)
		nSrc++
	}
	return nDst, nSrc, nil
}
