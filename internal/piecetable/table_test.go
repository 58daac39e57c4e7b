package piecetable

import (
	"errors"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/kk-code-lab/bigtext/internal/textsource"
)

// plainSource hides the line table of a Memory source.
type plainSource struct {
	inner *textsource.Memory
}

func (s plainSource) Len() int64                              { return s.inner.Len() }
func (s plainSource) At(offset int64) (rune, error)           { return s.inner.At(offset) }
func (s plainSource) Text(start, count int64) (string, error) { return s.inner.Text(start, count) }
func (s plainSource) CountLineFeeds(start, count int64) (int64, error) {
	return s.inner.CountLineFeeds(start, count)
}

func assertContent(t *testing.T, pt *PieceTable, want []rune) {
	t.Helper()
	if got := pt.Len(); got != int64(len(want)) {
		t.Fatalf("Len() = %d, want %d", got, len(want))
	}
	got, err := pt.Text(0, pt.Len())
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if got != string(want) {
		t.Fatalf("content = %q, want %q", got, string(want))
	}
	wantLines := textsource.LineStarts(string(want))
	if gotLines := pt.LineOffsets(); !slices.Equal(gotLines, wantLines) {
		t.Fatalf("line offsets = %v, want %v", gotLines, wantLines)
	}
}

func TestInsertIntoMiddle(t *testing.T) {
	pt := NewFromString("ABCD")
	if err := pt.Insert(2, "X"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got, err := pt.Text(0, 5)
	if err != nil || got != "ABXCD" {
		t.Fatalf("Text(0, 5) = %q, %v", got, err)
	}
	if pt.PieceCount() != 3 {
		t.Fatalf("PieceCount() = %d, want 3", pt.PieceCount())
	}
}

func TestInsertThenDeleteIsIdentity(t *testing.T) {
	original := "first line\nsecond líne\nthird"
	for _, offset := range []int64{0, 3, 10, 11, 20, int64(len([]rune(original)))} {
		pt := NewFromString(original)
		inserted := "new\ntext é\n"
		if err := pt.Insert(offset, inserted); err != nil {
			t.Fatalf("Insert(%d): %v", offset, err)
		}
		if err := pt.Delete(offset, int64(len([]rune(inserted)))); err != nil {
			t.Fatalf("Delete(%d): %v", offset, err)
		}
		assertContent(t, pt, []rune(original))
	}
}

func TestRandomEditsMatchReference(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	alphabet := []rune("ab c\nDé😀\n")
	original := strings.Repeat("hello wörld\nsecond line\n", 20)

	for _, src := range []textsource.Source{
		textsource.NewMemory(original),
		plainSource{inner: textsource.NewMemory(original)},
	} {
		pt, err := New(src)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		ref := []rune(original)

		for step := 0; step < 500; step++ {
			if rng.IntN(3) > 0 || len(ref) == 0 {
				offset := rng.IntN(len(ref) + 1)
				n := 1 + rng.IntN(6)
				ins := make([]rune, n)
				for i := range ins {
					ins[i] = alphabet[rng.IntN(len(alphabet))]
				}
				if err := pt.Insert(int64(offset), string(ins)); err != nil {
					t.Fatalf("step %d: Insert: %v", step, err)
				}
				ref = slices.Insert(ref, offset, ins...)
			} else {
				start := rng.IntN(len(ref))
				n := 1 + rng.IntN(min(8, len(ref)-start))
				if err := pt.Delete(int64(start), int64(n)); err != nil {
					t.Fatalf("step %d: Delete: %v", step, err)
				}
				ref = slices.Delete(ref, start, start+n)
			}
			if step%25 == 0 {
				assertContent(t, pt, ref)
			}
		}
		assertContent(t, pt, ref)

		feeds, err := pt.CountLineFeeds(0, pt.Len())
		if err != nil || feeds != int64(strings.Count(string(ref), "\n")) {
			t.Fatalf("CountLineFeeds = %d, %v", feeds, err)
		}
		for offset := int64(0); offset < pt.Len(); offset += 13 {
			r, err := pt.At(offset)
			if err != nil || r != ref[offset] {
				t.Fatalf("At(%d) = %q, %v; want %q", offset, r, err, ref[offset])
			}
		}
	}
}

func TestSameLineEditsResolveToFullRecompute(t *testing.T) {
	pt := NewFromString("alpha\nbeta\ngamma\ndelta\n")
	ref := []rune("alpha\nbeta\ngamma\ndelta\n")

	edits := []struct {
		insert bool
		offset int
		text   string
		n      int
	}{
		{insert: true, offset: 8, text: "XYZ"},
		{insert: true, offset: 11, text: "é"},
		{insert: false, offset: 6, n: 2},
		{insert: true, offset: 6, text: "ab"},
		{insert: false, offset: 9, n: 3},
	}
	for _, e := range edits {
		if e.insert {
			if err := pt.Insert(int64(e.offset), e.text); err != nil {
				t.Fatalf("Insert: %v", err)
			}
			ref = slices.Insert(ref, e.offset, []rune(e.text)...)
		} else {
			if err := pt.Delete(int64(e.offset), int64(e.n)); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			ref = slices.Delete(ref, e.offset, e.offset+e.n)
		}
	}

	if !pt.lines.pending.active || pt.lines.pending.line != 1 {
		t.Fatalf("edits on line 1 should stay pending, got %+v", pt.lines.pending)
	}
	if err := pt.Resolve(); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if pt.lines.pending.active {
		t.Fatalf("Resolve left a pending delta")
	}
	if want := textsource.LineStarts(string(ref)); !slices.Equal(pt.lines.base, want) {
		t.Fatalf("resolved base = %v, want %v", pt.lines.base, want)
	}
}

func TestPendingDeltaFoldsAtThreshold(t *testing.T) {
	pt, err := NewWithOptions(textsource.NewMemory("one\ntwo\n"), Options{FoldThreshold: 3})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := pt.Insert(0, "x"); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	if !pt.lines.pending.active {
		t.Fatalf("delta should still be pending")
	}
	if err := pt.Insert(0, "x"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if pt.lines.pending.active {
		t.Fatalf("delta should have been folded")
	}
	assertContent(t, pt, []rune("xxxone\ntwo\n"))
}

func TestEditOnAnotherLineFoldsPendingDelta(t *testing.T) {
	pt := NewFromString("one\ntwo\nthree\n")
	if err := pt.Insert(1, "A"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := pt.Insert(10, "B"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if pt.lines.pending.line != 2 || pt.lines.pending.delta != 1 {
		t.Fatalf("pending = %+v, want line 2 delta 1", pt.lines.pending)
	}
	assertContent(t, pt, []rune("oAne\ntwo\ntBhree\n"))
}

func TestTypingExtendsLastPiece(t *testing.T) {
	pt := NewFromString("ABCD")
	for i, r := range "hello" {
		if err := pt.Insert(int64(2+i), string(r)); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	if pt.PieceCount() != 3 {
		t.Fatalf("PieceCount() = %d, want 3", pt.PieceCount())
	}
	assertContent(t, pt, []rune("ABhelloCD"))

	if ok, err := pt.Undo(); !ok || err != nil {
		t.Fatalf("Undo = %v, %v", ok, err)
	}
	assertContent(t, pt, []rune("ABCD"))
	if pt.CanUndo() {
		t.Fatalf("typing should be a single undo record")
	}
}

func TestUndoRedoRestoresEveryState(t *testing.T) {
	pt := NewFromString("line one\nline two\n")
	states := []string{pt.String()}

	steps := []func() error{
		func() error { return pt.Insert(4, "\nsplit") },
		func() error { return pt.Delete(0, 6) },
		func() error { return pt.Insert(pt.Len(), "tail") },
		func() error { return pt.Delete(3, 8) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("edit: %v", err)
		}
		states = append(states, pt.String())
	}

	for i := len(states) - 2; i >= 0; i-- {
		if ok, err := pt.Undo(); !ok || err != nil {
			t.Fatalf("Undo = %v, %v", ok, err)
		}
		assertContent(t, pt, []rune(states[i]))
	}
	if ok, _ := pt.Undo(); ok {
		t.Fatalf("Undo past the first edit should report false")
	}
	for i := 1; i < len(states); i++ {
		if ok, err := pt.Redo(); !ok || err != nil {
			t.Fatalf("Redo = %v, %v", ok, err)
		}
		assertContent(t, pt, []rune(states[i]))
	}
	if pt.CanRedo() {
		t.Fatalf("redo stack should be empty")
	}
}

func TestNewEditClearsRedo(t *testing.T) {
	pt := NewFromString("abc")
	if err := pt.Delete(0, 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := pt.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if err := pt.Insert(3, "d"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if pt.CanRedo() {
		t.Fatalf("redo should be cleared by a new edit")
	}
}

func TestRangeErrors(t *testing.T) {
	pt := NewFromString("abc")

	if err := pt.Insert(4, "x"); !errors.Is(err, textsource.ErrRange) {
		t.Fatalf("Insert past end error = %v", err)
	}
	if err := pt.Delete(2, 2); !errors.Is(err, textsource.ErrRange) {
		t.Fatalf("Delete past end error = %v", err)
	}
	if err := pt.Delete(-1, 1); !errors.Is(err, textsource.ErrRange) {
		t.Fatalf("negative Delete error = %v", err)
	}
	if _, err := pt.At(3); !errors.Is(err, textsource.ErrRange) {
		t.Fatalf("At(3) error = %v", err)
	}
	if pt.String() != "abc" {
		t.Fatalf("failed edits changed content to %q", pt.String())
	}
}

func TestDisposedTable(t *testing.T) {
	pt := NewFromString("abc")
	pt.Dispose()

	if err := pt.Insert(0, "x"); !errors.Is(err, textsource.ErrDisposed) {
		t.Fatalf("Insert error = %v", err)
	}
	if _, err := pt.Text(0, 1); !errors.Is(err, textsource.ErrDisposed) {
		t.Fatalf("Text error = %v", err)
	}
	if _, err := pt.Undo(); !errors.Is(err, textsource.ErrDisposed) {
		t.Fatalf("Undo error = %v", err)
	}
}

func TestEditErrBlocksEdits(t *testing.T) {
	pt, err := NewWithOptions(textsource.NewMemory("abc"), Options{EditErr: textsource.ErrNotReady})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := pt.Insert(0, "x"); !errors.Is(err, textsource.ErrNotReady) {
		t.Fatalf("Insert error = %v", err)
	}
	if got, _ := pt.Text(0, 3); got != "abc" {
		t.Fatalf("reads should still work, got %q", got)
	}
}

func TestEditsDoNotTouchSharedSourceLines(t *testing.T) {
	src := textsource.NewMemory("a\nb\nc\n")
	before := slices.Clone(src.LineOffsets())

	pt, err := New(src)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := pt.Insert(0, "x\ny"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := pt.Resolve(); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !slices.Equal(src.LineOffsets(), before) {
		t.Fatalf("source line table modified: %v", src.LineOffsets())
	}
}

func TestUndoRedoOverSourceWithoutLineTable(t *testing.T) {
	original := "a\nb\nc"
	pt, err := New(plainSource{inner: textsource.NewMemory(original)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	before := slices.Clone(pt.origLines)

	if err := pt.Insert(0, "X"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := pt.Delete(3, 2); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	assertContent(t, pt, []rune("Xa\nc"))
	if !slices.Equal(pt.origLines, before) {
		t.Fatalf("original line table modified: %v, want %v", pt.origLines, before)
	}

	if _, err := pt.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	assertContent(t, pt, []rune("Xa\nb\nc"))
	if _, err := pt.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	assertContent(t, pt, []rune(original))
	if _, err := pt.Redo(); err != nil {
		t.Fatalf("Redo: %v", err)
	}
	if _, err := pt.Redo(); err != nil {
		t.Fatalf("Redo: %v", err)
	}
	assertContent(t, pt, []rune("Xa\nc"))
	if got, _ := pt.LineOf(3); got != 1 {
		t.Fatalf("LineOf(3) = %d, want 1", got)
	}
}

func TestLineTableReadableAfterDispose(t *testing.T) {
	pt := NewFromString("a\nb")
	pt.Dispose()

	if got := pt.LineCount(); got != 2 {
		t.Fatalf("LineCount = %d, want 2", got)
	}
	if got := pt.LineOffsets(); !slices.Equal(got, []int64{0, 2}) {
		t.Fatalf("LineOffsets = %v", got)
	}
	if _, err := pt.LineStart(0); !errors.Is(err, textsource.ErrDisposed) {
		t.Fatalf("LineStart error = %v", err)
	}
}
