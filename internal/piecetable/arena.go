package piecetable

type bufferID uint8

const (
	bufOriginal bufferID = iota
	bufAdded
)

const nilNode int32 = -1

// pieceRef is a piece by value: a range of one of the two buffers.
type pieceRef struct {
	buf    bufferID
	start  int64
	length int64
}

type node struct {
	pieceRef
	left     int32
	right    int32
	priority uint32
	size     int64
	pieces   int32
}

// arena stores the piece list as an implicit treap ordered by document
// position and keyed by subtree character size.
type arena struct {
	nodes []node
	free  []int32
	root  int32
	seed  uint32
}

func newArena() *arena {
	return &arena{root: nilNode, seed: 0x9E3779B9}
}

func (a *arena) nextPriority() uint32 {
	x := a.seed
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	a.seed = x
	return x
}

func (a *arena) alloc(ref pieceRef, priority uint32) int32 {
	n := node{pieceRef: ref, left: nilNode, right: nilNode, priority: priority, size: ref.length, pieces: 1}
	if k := len(a.free); k > 0 {
		idx := a.free[k-1]
		a.free = a.free[:k-1]
		a.nodes[idx] = n
		return idx
	}
	a.nodes = append(a.nodes, n)
	return int32(len(a.nodes) - 1)
}

func (a *arena) release(t int32) {
	if t == nilNode {
		return
	}
	a.release(a.nodes[t].left)
	a.release(a.nodes[t].right)
	a.free = append(a.free, t)
}

func (a *arena) size(t int32) int64 {
	if t == nilNode {
		return 0
	}
	return a.nodes[t].size
}

func (a *arena) count(t int32) int32 {
	if t == nilNode {
		return 0
	}
	return a.nodes[t].pieces
}

func (a *arena) update(t int32) {
	n := &a.nodes[t]
	n.size = a.size(n.left) + n.length + a.size(n.right)
	n.pieces = a.count(n.left) + 1 + a.count(n.right)
}

// split cuts t so that the left tree holds the first k characters. A piece
// straddling k is divided; the tail inherits its priority.
func (a *arena) split(t int32, k int64) (int32, int32) {
	if t == nilNode {
		return nilNode, nilNode
	}
	leftSize := a.size(a.nodes[t].left)
	length := a.nodes[t].length
	switch {
	case k <= leftSize:
		l, r := a.split(a.nodes[t].left, k)
		a.nodes[t].left = r
		a.update(t)
		return l, t
	case k >= leftSize+length:
		l, r := a.split(a.nodes[t].right, k-leftSize-length)
		a.nodes[t].right = l
		a.update(t)
		return t, r
	default:
		off := k - leftSize
		ref := a.nodes[t].pieceRef
		tail := a.alloc(pieceRef{buf: ref.buf, start: ref.start + off, length: ref.length - off}, a.nodes[t].priority)
		a.nodes[tail].right = a.nodes[t].right
		a.nodes[t].right = nilNode
		a.nodes[t].length = off
		a.update(tail)
		a.update(t)
		return t, tail
	}
}

func (a *arena) merge(l, r int32) int32 {
	if l == nilNode {
		return r
	}
	if r == nilNode {
		return l
	}
	if a.nodes[l].priority > a.nodes[r].priority {
		a.nodes[l].right = a.merge(a.nodes[l].right, r)
		a.update(l)
		return l
	}
	a.nodes[r].left = a.merge(l, a.nodes[r].left)
	a.update(r)
	return r
}

// build makes a tree of refs in order, skipping empty ones.
func (a *arena) build(refs []pieceRef) int32 {
	t := nilNode
	for _, ref := range refs {
		if ref.length == 0 {
			continue
		}
		t = a.merge(t, a.alloc(ref, a.nextPriority()))
	}
	return t
}

// collect appends the refs of t in order.
func (a *arena) collect(t int32, dst []pieceRef) []pieceRef {
	if t == nilNode {
		return dst
	}
	dst = a.collect(a.nodes[t].left, dst)
	dst = append(dst, a.nodes[t].pieceRef)
	return a.collect(a.nodes[t].right, dst)
}

// find returns the node containing offset and the position inside it.
func (a *arena) find(offset int64) (int32, int64) {
	t := a.root
	for t != nilNode {
		n := &a.nodes[t]
		leftSize := a.size(n.left)
		switch {
		case offset < leftSize:
			t = n.left
		case offset < leftSize+n.length:
			return t, offset - leftSize
		default:
			offset -= leftSize + n.length
			t = n.right
		}
	}
	return nilNode, 0
}

// grow lengthens the piece containing offset by k, fixing subtree sizes on
// the way down.
func (a *arena) grow(offset, k int64) {
	t := a.root
	for t != nilNode {
		n := &a.nodes[t]
		n.size += k
		leftSize := a.size(n.left)
		switch {
		case offset < leftSize:
			t = n.left
		case offset < leftSize+n.length:
			n.length += k
			return
		default:
			offset -= leftSize + n.length
			t = n.right
		}
	}
}

// visit calls fn for each piece overlapping [from, to), with the overlap
// expressed relative to the piece.
func (a *arena) visit(t int32, from, to int64, fn func(ref pieceRef, lo, hi int64) error) error {
	if t == nilNode || from >= to {
		return nil
	}
	n := a.nodes[t]
	leftSize := a.size(n.left)
	if from < leftSize {
		if err := a.visit(n.left, from, min(to, leftSize), fn); err != nil {
			return err
		}
	}
	pieceEnd := leftSize + n.length
	if from < pieceEnd && to > leftSize {
		lo := max(from, leftSize) - leftSize
		hi := min(to, pieceEnd) - leftSize
		if err := fn(n.pieceRef, lo, hi); err != nil {
			return err
		}
	}
	if to > pieceEnd {
		return a.visit(n.right, max(from, pieceEnd)-pieceEnd, to-pieceEnd, fn)
	}
	return nil
}
