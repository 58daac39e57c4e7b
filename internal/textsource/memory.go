package textsource

import fsutil "github.com/kk-code-lab/bigtext/internal/fs"

// Memory is a Source over an in-memory string.
type Memory struct {
	chunk *DecodedChunk
	lines []int64
}

// NewMemory wraps text as-is.
func NewMemory(text string) *Memory {
	return &Memory{
		chunk: NewDecodedChunk(text),
		lines: LineStarts(text),
	}
}

// NewMemoryNormalized wraps text after folding CRLF and lone CR to LF.
func NewMemoryNormalized(text string) *Memory {
	return NewMemory(fsutil.NormalizeLineEndings(text))
}

func (m *Memory) Len() int64 { return int64(m.chunk.Len()) }

func (m *Memory) At(offset int64) (rune, error) {
	if offset < 0 || offset >= m.Len() {
		return 0, &RangeError{Offset: offset, Count: 1, Len: m.Len()}
	}
	return m.chunk.At(int(offset)), nil
}

func (m *Memory) Text(start, count int64) (string, error) {
	if err := CheckRange(start, count, m.Len()); err != nil {
		return "", err
	}
	return m.chunk.Slice(int(start), int(start+count)), nil
}

func (m *Memory) CountLineFeeds(start, count int64) (int64, error) {
	if err := CheckRange(start, count, m.Len()); err != nil {
		return 0, err
	}
	return countLineFeeds(m.lines, start, count), nil
}

func (m *Memory) LineOffsets() []int64 { return m.lines }

func (m *Memory) LineCount() int64 { return int64(len(m.lines)) }

func (m *Memory) LineStart(line int64) (int64, error) { return lineStart(m.lines, line) }

func (m *Memory) LineOf(offset int64) (int64, error) {
	if offset < 0 || offset > m.Len() {
		return 0, &RangeError{Offset: offset, Len: m.Len()}
	}
	return lineOf(m.lines, offset), nil
}

// String returns the whole content.
func (m *Memory) String() string { return m.chunk.String() }
