package textsource

import "unicode/utf8"

// runeMarkStride is the distance in runes between byte-offset marks.
const runeMarkStride = 256

// DecodedChunk is UTF-8 text with a sparse rune→byte index, so rune
// addressing costs at most runeMarkStride steps.
type DecodedChunk struct {
	text  string
	runes int
	marks []int32
}

// NewDecodedChunk indexes text.
func NewDecodedChunk(text string) *DecodedChunk {
	c := &DecodedChunk{text: text}
	if isASCII(text) {
		c.runes = len(text)
		return c
	}
	c.marks = make([]int32, 0, len(text)/runeMarkStride+1)
	n := 0
	for i := range text {
		if n%runeMarkStride == 0 {
			c.marks = append(c.marks, int32(i))
		}
		n++
	}
	c.runes = n
	return c
}

// Len returns the number of runes.
func (c *DecodedChunk) Len() int { return c.runes }

// String returns the whole text.
func (c *DecodedChunk) String() string { return c.text }

// Size approximates the memory held by the chunk, for cache accounting.
func (c *DecodedChunk) Size() int64 {
	return int64(len(c.text)) + int64(len(c.marks))*4
}

func (c *DecodedChunk) byteOffset(r int) int {
	if r >= c.runes {
		return len(c.text)
	}
	if c.marks == nil {
		return r
	}
	mark := r / runeMarkStride
	pos := int(c.marks[mark])
	for k := mark * runeMarkStride; k < r; k++ {
		_, size := utf8.DecodeRuneInString(c.text[pos:])
		pos += size
	}
	return pos
}

// At returns rune r.
func (c *DecodedChunk) At(r int) rune {
	pos := c.byteOffset(r)
	if c.marks == nil {
		return rune(c.text[pos])
	}
	ch, _ := utf8.DecodeRuneInString(c.text[pos:])
	return ch
}

// Slice returns runes [from, to).
func (c *DecodedChunk) Slice(from, to int) string {
	if from >= to {
		return ""
	}
	return c.text[c.byteOffset(from):c.byteOffset(to)]
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func runeCount(s string) int {
	if isASCII(s) {
		return len(s)
	}
	return utf8.RuneCountInString(s)
}
