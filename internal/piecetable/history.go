package piecetable

// edit is one undo record: at offset, the pieces in removed were replaced by
// the pieces in inserted. Records reference buffer ranges, never text.
type edit struct {
	offset   int64
	removed  []pieceRef
	inserted []pieceRef
	typing   bool
}

type history struct {
	undo []edit
	redo []edit
}

func (h *history) record(e edit) {
	h.undo = append(h.undo, e)
	h.redo = nil
}

// recordTyping merges an insert that continues the previous typed insert.
func (h *history) recordTyping(offset int64, ref pieceRef) {
	if n := len(h.undo); n > 0 {
		top := &h.undo[n-1]
		if top.typing && len(top.removed) == 0 && len(top.inserted) == 1 {
			last := &top.inserted[0]
			if last.buf == ref.buf && last.start+last.length == ref.start && top.offset+last.length == offset {
				last.length += ref.length
				h.redo = nil
				return
			}
		}
	}
	h.record(edit{offset: offset, inserted: []pieceRef{ref}, typing: true})
}

// CanUndo reports whether there is an edit to undo.
func (t *PieceTable) CanUndo() bool { return len(t.history.undo) > 0 }

// CanRedo reports whether there is an undone edit to reapply.
func (t *PieceTable) CanRedo() bool { return len(t.history.redo) > 0 }

// Undo reverts the most recent edit. It reports false when there is nothing
// to undo.
func (t *PieceTable) Undo() (bool, error) {
	if err := t.checkEdit(0, 0); err != nil {
		return false, err
	}
	n := len(t.history.undo)
	if n == 0 {
		return false, nil
	}
	e := t.history.undo[n-1]
	t.history.undo = t.history.undo[:n-1]
	t.replace(e.offset, refsLen(e.inserted), e.removed)
	t.history.redo = append(t.history.redo, e)
	return true, nil
}

// Redo reapplies the most recently undone edit.
func (t *PieceTable) Redo() (bool, error) {
	if err := t.checkEdit(0, 0); err != nil {
		return false, err
	}
	n := len(t.history.redo)
	if n == 0 {
		return false, nil
	}
	e := t.history.redo[n-1]
	t.history.redo = t.history.redo[:n-1]
	t.replace(e.offset, refsLen(e.removed), e.inserted)
	t.history.undo = append(t.history.undo, e)
	return true, nil
}

func (t *PieceTable) replace(offset, removeLen int64, refs []pieceRef) {
	if removeLen > 0 {
		t.removeRange(offset, removeLen)
	}
	if len(refs) > 0 {
		t.insertRefs(offset, refs, refsLen(refs), t.refLineStarts(refs))
	}
}
