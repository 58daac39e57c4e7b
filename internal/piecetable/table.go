// Package piecetable implements the mutable edit buffer: an immutable
// original source plus an append-only buffer of inserted text, stitched
// together as an ordered list of pieces, with a line-start table kept current
// through a pending delta.
//
// A PieceTable has a single writer. Reads do not mutate it, so concurrent
// readers are safe while no edit is in flight.
package piecetable

import (
	"sort"
	"strings"
	"sync/atomic"

	"github.com/kk-code-lab/bigtext/internal/textsource"
)

// lineScanWindow is the read size used to index a source that keeps no line table.
const lineScanWindow = 1 << 20

// Options tunes a PieceTable.
type Options struct {
	// FoldThreshold bounds the same-line edits a pending delta absorbs.
	FoldThreshold int

	// EditErr, when set, is returned by every edit. Used for tables published
	// while their source is still loading.
	EditErr error
}

// PieceTable is an editable view over an original Source.
type PieceTable struct {
	original  textsource.Source
	origLines []int64
	added     []rune
	pieces    *arena
	lines     *lineIndex
	history   history
	editErr   error
	disposed  atomic.Bool
}

// New creates a table whose content is original.
func New(original textsource.Source) (*PieceTable, error) {
	return NewWithOptions(original, Options{})
}

// NewWithOptions creates a table whose content is original.
func NewWithOptions(original textsource.Source, opts Options) (*PieceTable, error) {
	origLines, shared, err := sourceLines(original)
	if err != nil {
		return nil, err
	}
	t := &PieceTable{
		original:  original,
		origLines: origLines,
		pieces:    newArena(),
		lines:     newLineIndex(origLines, shared, opts.FoldThreshold),
		editErr:   opts.EditErr,
	}
	t.pieces.root = t.pieces.build([]pieceRef{{buf: bufOriginal, length: original.Len()}})
	return t, nil
}

// NewFromString creates a table over an in-memory copy of text.
func NewFromString(text string) *PieceTable {
	t, _ := New(textsource.NewMemory(text))
	return t
}

// sourceLines returns the original line table. It is always reported as
// shared: the line index must clone it before its first splice because undo
// and redo recompute line starts from it.
func sourceLines(src textsource.Source) ([]int64, bool, error) {
	if lo, ok := src.(textsource.LineOffsetter); ok {
		return lo.LineOffsets(), true, nil
	}
	lines := []int64{0}
	length := src.Len()
	for pos := int64(0); pos < length; pos += lineScanWindow {
		n := min(int64(lineScanWindow), length-pos)
		text, err := src.Text(pos, n)
		if err != nil {
			return nil, false, err
		}
		lines = textsource.AppendLineStarts(lines, text, pos)
	}
	return lines, true, nil
}

// Dispose invalidates the table; every later operation fails with
// textsource.ErrDisposed.
func (t *PieceTable) Dispose() { t.disposed.Store(true) }

// Disposed reports whether Dispose was called.
func (t *PieceTable) Disposed() bool { return t.disposed.Load() }

// Original returns the source the table was built over.
func (t *PieceTable) Original() textsource.Source { return t.original }

// Len returns the current length in characters.
func (t *PieceTable) Len() int64 { return t.pieces.size(t.pieces.root) }

// PieceCount returns the number of pieces.
func (t *PieceTable) PieceCount() int { return int(t.pieces.count(t.pieces.root)) }

func (t *PieceTable) checkRead(start, count int64) error {
	if t.disposed.Load() {
		return textsource.ErrDisposed
	}
	return textsource.CheckRange(start, count, t.Len())
}

func (t *PieceTable) At(offset int64) (rune, error) {
	if t.disposed.Load() {
		return 0, textsource.ErrDisposed
	}
	if offset < 0 || offset >= t.Len() {
		return 0, &textsource.RangeError{Offset: offset, Count: 1, Len: t.Len()}
	}
	node, pos := t.pieces.find(offset)
	ref := t.pieces.nodes[node].pieceRef
	if ref.buf == bufAdded {
		return t.added[ref.start+pos], nil
	}
	return t.original.At(ref.start + pos)
}

func (t *PieceTable) Text(start, count int64) (string, error) {
	if err := t.checkRead(start, count); err != nil {
		return "", err
	}
	var b strings.Builder
	err := t.pieces.visit(t.pieces.root, start, start+count, func(ref pieceRef, lo, hi int64) error {
		return t.writeRef(&b, ref, lo, hi)
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// String returns the whole content, or "" for a disposed table.
func (t *PieceTable) String() string {
	text, _ := t.Text(0, t.Len())
	return text
}

func (t *PieceTable) writeRef(b *strings.Builder, ref pieceRef, lo, hi int64) error {
	if ref.buf == bufAdded {
		for _, r := range t.added[ref.start+lo : ref.start+hi] {
			b.WriteRune(r)
		}
		return nil
	}
	text, err := t.original.Text(ref.start+lo, hi-lo)
	if err != nil {
		return err
	}
	b.WriteString(text)
	return nil
}

func (t *PieceTable) CountLineFeeds(start, count int64) (int64, error) {
	if err := t.checkRead(start, count); err != nil {
		return 0, err
	}
	return t.lines.feedsIn(start, count), nil
}

// LineCount returns the number of lines. Like LineOffsets it has no error
// result and keeps answering after Dispose.
func (t *PieceTable) LineCount() int64 { return t.lines.count() }

func (t *PieceTable) LineStart(line int64) (int64, error) {
	if t.disposed.Load() {
		return 0, textsource.ErrDisposed
	}
	if line < 0 || line >= t.lines.count() {
		return 0, &textsource.RangeError{Offset: line, Len: t.lines.count()}
	}
	return t.lines.start(line), nil
}

func (t *PieceTable) LineOf(offset int64) (int64, error) {
	if err := t.checkRead(offset, 0); err != nil {
		return 0, err
	}
	return t.lines.lineOf(offset), nil
}

// LineOffsets returns the current line starts. Without a pending delta the
// table is shared and must not be modified; otherwise it is a fresh copy.
// The table stays readable after Dispose.
func (t *PieceTable) LineOffsets() []int64 { return t.lines.resolved() }

// Resolve folds the pending line delta into the base table.
func (t *PieceTable) Resolve() error {
	if t.disposed.Load() {
		return textsource.ErrDisposed
	}
	t.lines.fold()
	return nil
}

func (t *PieceTable) checkEdit(start, count int64) error {
	if t.disposed.Load() {
		return textsource.ErrDisposed
	}
	if t.editErr != nil {
		return t.editErr
	}
	return textsource.CheckRange(start, count, t.Len())
}

// Insert inserts text at offset. An insert right after the most recently
// typed text extends that piece instead of adding one.
func (t *PieceTable) Insert(offset int64, text string) error {
	if err := t.checkEdit(offset, 0); err != nil {
		return err
	}
	if text == "" {
		return nil
	}

	runes := []rune(text)
	k := int64(len(runes))
	starts := runeLineStarts(runes)

	if t.extendsTail(offset) {
		oldTail := int64(len(t.added))
		t.added = append(t.added, runes...)
		t.pieces.grow(offset-1, k)
		t.lines.inserted(offset, k, starts)
		t.history.recordTyping(offset, pieceRef{buf: bufAdded, start: oldTail, length: k})
		return nil
	}

	ref := pieceRef{buf: bufAdded, start: int64(len(t.added)), length: k}
	t.added = append(t.added, runes...)
	t.insertRefs(offset, []pieceRef{ref}, k, starts)
	t.history.record(edit{offset: offset, inserted: []pieceRef{ref}, typing: true})
	return nil
}

// extendsTail reports whether the character before offset is the last one
// of the append buffer and its piece ends there.
func (t *PieceTable) extendsTail(offset int64) bool {
	if offset == 0 || len(t.added) == 0 {
		return false
	}
	node, pos := t.pieces.find(offset - 1)
	if node == nilNode {
		return false
	}
	ref := t.pieces.nodes[node].pieceRef
	return ref.buf == bufAdded && pos == ref.length-1 && ref.start+ref.length == int64(len(t.added))
}

// Delete removes length characters starting at start.
func (t *PieceTable) Delete(start, length int64) error {
	if err := t.checkEdit(start, length); err != nil {
		return err
	}
	if length == 0 {
		return nil
	}
	removed := t.removeRange(start, length)
	t.history.record(edit{offset: start, removed: removed})
	return nil
}

func (t *PieceTable) insertRefs(offset int64, refs []pieceRef, k int64, starts []int64) {
	a := t.pieces
	l, r := a.split(a.root, offset)
	a.root = a.merge(a.merge(l, a.build(refs)), r)
	t.lines.inserted(offset, k, starts)
}

func (t *PieceTable) removeRange(start, length int64) []pieceRef {
	a := t.pieces
	l, rest := a.split(a.root, start)
	mid, r := a.split(rest, length)
	removed := a.collect(mid, nil)
	a.release(mid)
	a.root = a.merge(l, r)
	t.lines.deleted(start, length)
	return removed
}

// refLineStarts returns the line starts created by refs, relative to their
// start.
func (t *PieceTable) refLineStarts(refs []pieceRef) []int64 {
	var starts []int64
	var base int64
	for _, ref := range refs {
		if ref.buf == bufAdded {
			for i, r := range t.added[ref.start : ref.start+ref.length] {
				if r == '\n' {
					starts = append(starts, base+int64(i)+1)
				}
			}
		} else {
			lines := t.origLines
			i := sort.Search(len(lines), func(i int) bool { return lines[i] > ref.start })
			for ; i < len(lines) && lines[i] <= ref.start+ref.length; i++ {
				starts = append(starts, base+lines[i]-ref.start)
			}
		}
		base += ref.length
	}
	return starts
}

func runeLineStarts(runes []rune) []int64 {
	var starts []int64
	for i, r := range runes {
		if r == '\n' {
			starts = append(starts, int64(i)+1)
		}
	}
	return starts
}

func refsLen(refs []pieceRef) int64 {
	var n int64
	for _, ref := range refs {
		n += ref.length
	}
	return n
}

var _ textsource.Source = (*PieceTable)(nil)
