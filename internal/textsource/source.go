// Package textsource defines the read-only character sequences documents are
// built from: an in-memory source and a memory-mapped file source whose chunk
// directory and line-offset table are built by an incremental background scan.
//
// Offsets and counts are in runes. Line feeds are the only counted separator.
package textsource

import "sort"

// Source is a read-only, randomly addressable character sequence.
type Source interface {
	Len() int64
	At(offset int64) (rune, error)
	Text(start, count int64) (string, error)
	CountLineFeeds(start, count int64) (int64, error)
}

// LineOffsetter is implemented by sources that keep precomputed line starts.
// The returned slice is shared and must not be modified.
type LineOffsetter interface {
	LineOffsets() []int64
}

// LineLocator is implemented by sources that can map between lines and
// offsets without reading text.
type LineLocator interface {
	LineCount() int64
	LineStart(line int64) (int64, error)
	LineOf(offset int64) (int64, error)
}

// AppendLineStarts appends the start offset of every line that begins inside
// text, which itself starts at base.
func AppendLineStarts(dst []int64, text string, base int64) []int64 {
	pos := base
	last := 0
	for i := 0; i < len(text); i++ {
		if text[i] != '\n' {
			continue
		}
		pos += int64(runeCount(text[last:i])) + 1
		dst = append(dst, pos)
		last = i + 1
	}
	return dst
}

// upperBound returns the index of the first line start greater than x.
func upperBound(lines []int64, x int64) int {
	return sort.Search(len(lines), func(i int) bool { return lines[i] > x })
}

// countLineFeeds counts '\n' in [start, start+count): a feed at p starts a
// line at p+1.
func countLineFeeds(lines []int64, start, count int64) int64 {
	return int64(upperBound(lines, start+count) - upperBound(lines, start))
}

func lineOf(lines []int64, offset int64) int64 {
	return int64(upperBound(lines, offset) - 1)
}

func lineStart(lines []int64, line int64) (int64, error) {
	if line < 0 || line >= int64(len(lines)) {
		return 0, &RangeError{Offset: line, Len: int64(len(lines))}
	}
	return lines[line], nil
}

// LineStarts computes the line-offset table of text.
func LineStarts(text string) []int64 {
	return AppendLineStarts([]int64{0}, text, 0)
}
