package piecetable

import (
	"slices"
	"sort"
)

// DefaultFoldThreshold is the number of same-line edits a pending delta may
// absorb before it is folded into the base table. An edit on any other line
// folds immediately, which is O(lines); alternating between two lines pays
// that on every edit.
const DefaultFoldThreshold = 1024

// pendingDelta shifts every line after line by delta.
type pendingDelta struct {
	line   int64
	delta  int64
	edits  int
	active bool
}

// lineIndex is a line-start table plus at most one pending shift. base may
// alias the original source's table until the first splice.
type lineIndex struct {
	base      []int64
	shared    bool
	pending   pendingDelta
	threshold int
}

func newLineIndex(base []int64, shared bool, threshold int) *lineIndex {
	if threshold <= 0 {
		threshold = DefaultFoldThreshold
	}
	return &lineIndex{base: base, shared: shared, threshold: threshold}
}

func (x *lineIndex) count() int64 { return int64(len(x.base)) }

func (x *lineIndex) start(line int64) int64 {
	v := x.base[line]
	if x.pending.active && line > x.pending.line {
		v += x.pending.delta
	}
	return v
}

// lineOf returns the line containing offset.
func (x *lineIndex) lineOf(offset int64) int64 {
	n := len(x.base)
	return int64(sort.Search(n, func(i int) bool { return x.start(int64(i)) > offset })) - 1
}

// feedsIn counts line feeds in [start, start+count), which equals the number
// of line starts in (start, start+count].
func (x *lineIndex) feedsIn(start, count int64) int64 {
	return x.lineOf(start+count) - x.lineOf(start)
}

// fold applies the pending delta to the base table.
func (x *lineIndex) fold() {
	if !x.pending.active {
		return
	}
	if x.pending.delta != 0 {
		x.own()
		tail := x.base[x.pending.line+1:]
		for i := range tail {
			tail[i] += x.pending.delta
		}
	}
	x.pending = pendingDelta{}
}

func (x *lineIndex) own() {
	if x.shared {
		x.base = slices.Clone(x.base)
		x.shared = false
	}
}

// shift records an edit of d characters confined to line.
func (x *lineIndex) shift(line, d int64) {
	if x.pending.active && x.pending.line == line {
		x.pending.delta += d
		x.pending.edits++
		if x.pending.edits >= x.threshold {
			x.fold()
		}
		return
	}
	x.fold()
	x.pending = pendingDelta{line: line, delta: d, edits: 1, active: true}
}

// inserted records k characters inserted at offset, where starts are the
// line starts the insertion creates, relative to offset.
func (x *lineIndex) inserted(offset, k int64, starts []int64) {
	line := x.lineOf(offset)
	if len(starts) == 0 {
		x.shift(line, k)
		return
	}
	x.fold()
	x.own()
	abs := make([]int64, len(starts))
	for i, s := range starts {
		abs[i] = offset + s
	}
	x.base = slices.Insert(x.base, int(line+1), abs...)
	x.pending = pendingDelta{line: line + int64(len(starts)), delta: k, edits: 1, active: true}
}

// deleted records the removal of [start, start+n).
func (x *lineIndex) deleted(start, n int64) {
	first := x.lineOf(start)
	last := x.lineOf(start + n)
	if first == last {
		x.shift(first, -n)
		return
	}
	x.fold()
	x.own()
	x.base = slices.Delete(x.base, int(first+1), int(last+1))
	x.pending = pendingDelta{line: first, delta: -n, edits: 1, active: true}
}

// resolved returns the table with the pending delta applied.
func (x *lineIndex) resolved() []int64 {
	if !x.pending.active || x.pending.delta == 0 {
		return x.base
	}
	out := slices.Clone(x.base)
	for i := x.pending.line + 1; i < int64(len(out)); i++ {
		out[i] += x.pending.delta
	}
	return out
}
