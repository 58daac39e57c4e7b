package search

import (
	"unicode"
	"unicode/utf8"
)

// window is a slice of the source being searched, with a cursor that maps
// between rune and byte positions. Lookups are expected to move mostly
// forward.
type window struct {
	text  string
	start int64
	ascii bool
	runes []rune

	curByte int
	curRune int
}

func newWindow(text string, start int64) *window {
	w := &window{text: text, start: start, ascii: true}
	for i := 0; i < len(text); i++ {
		if text[i] >= utf8.RuneSelf {
			w.ascii = false
			break
		}
	}
	return w
}

func (w *window) runeView() []rune {
	if w.runes == nil {
		w.runes = []rune(w.text)
	}
	return w.runes
}

func (w *window) byteOf(r int) int {
	if w.ascii {
		return r
	}
	if r < w.curRune/2 {
		w.curByte, w.curRune = 0, 0
	}
	for w.curRune > r {
		_, size := utf8.DecodeLastRuneInString(w.text[:w.curByte])
		w.curByte -= size
		w.curRune--
	}
	for w.curRune < r && w.curByte < len(w.text) {
		_, size := utf8.DecodeRuneInString(w.text[w.curByte:])
		w.curByte += size
		w.curRune++
	}
	return w.curByte
}

func (w *window) runeOfByte(b int) int {
	if w.ascii {
		return b
	}
	if b < w.curByte/2 {
		w.curByte, w.curRune = 0, 0
	}
	for w.curByte > b {
		_, size := utf8.DecodeLastRuneInString(w.text[:w.curByte])
		w.curByte -= size
		w.curRune--
	}
	for w.curByte < b {
		_, size := utf8.DecodeRuneInString(w.text[w.curByte:])
		w.curByte += size
		w.curRune++
	}
	return w.curRune
}

// at returns rune r of the window, or -1 outside it.
func (w *window) at(r int) rune {
	if r < 0 {
		return -1
	}
	if w.runes != nil {
		if r >= len(w.runes) {
			return -1
		}
		return w.runes[r]
	}
	b := w.byteOf(r)
	if b >= len(w.text) {
		return -1
	}
	if w.ascii {
		return rune(w.text[b])
	}
	ch, _ := utf8.DecodeRuneInString(w.text[b:])
	return ch
}

// isWholeWord reports whether [pos, pos+n) is not flanked by word characters.
func (w *window) isWholeWord(pos, n int) bool {
	return !isWordRune(w.at(pos-1)) && !isWordRune(w.at(pos+n))
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
