package textsource

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	fsutil "github.com/kk-code-lab/bigtext/internal/fs"
	"github.com/kk-code-lab/bigtext/internal/logging"
)

const (
	// DefaultChunkSize is the byte size of one scan and cache unit.
	DefaultChunkSize = 4 << 20

	// FirstBatchChunks is the size of the first scan batch (time to first paint).
	FirstBatchChunks = 1

	// BatchChunks is the size of every following scan batch (throughput).
	BatchChunks = 16

	minChunkSize = 64
)

// MappedOptions configures OpenMapped.
type MappedOptions struct {
	// Normalize folds CRLF and lone CR to LF.
	Normalize bool

	// DeferScan leaves the index empty until ScanNextBatch is called.
	DeferScan bool

	ChunkSize  int
	CacheBytes int64

	// Encoding overrides detection when set.
	Encoding *fsutil.Encoding

	Logger *log.Logger
}

type chunkEntry struct {
	byteStart int64
	byteEnd   int64
	charStart int64
	charLen   int64
	bad       bool
}

// scanIndex is an immutable view of the committed chunk directory and line
// table. The writer appends past len of published slices only.
type scanIndex struct {
	chunks       []chunkEntry
	lines        []int64
	chars        int64
	scannedBytes int64
	complete     bool
}

// Mapped is a Source over a read-only memory-mapped file. Its chunk directory
// and line-offset table are built by ScanNextBatch, normally from a
// background goroutine, while readers keep using the last published index.
type Mapped struct {
	path       string
	mapping    *fsutil.Mapping
	data       []byte
	encoding   fsutil.Encoding
	lineEnding fsutil.LineEnding
	normalize  bool
	chunkSize  int
	cache      *ChunkCache
	logger     *log.Logger

	index atomic.Pointer[scanIndex]

	scanMu sync.Mutex
	work   scanIndex

	life     sync.RWMutex
	closed   bool
	disposed atomic.Bool
}

// OpenMapped maps path and detects its encoding and line-ending style. Unless
// opts.DeferScan is set the whole file is indexed before returning; chunks
// that fail to decode are logged and left unreadable.
func OpenMapped(path string, opts MappedOptions) (*Mapped, error) {
	mapping, err := fsutil.MapFile(path)
	if err != nil {
		return nil, &IOError{Op: "map", Path: path, Err: err}
	}
	data := mapping.Bytes()

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkSize < minChunkSize {
		chunkSize = minChunkSize
	}

	sample := data
	if len(sample) > fsutil.EncodingSampleSize {
		sample = sample[:fsutil.EncodingSampleSize]
	}
	enc := fsutil.DetectEncoding(sample)
	if opts.Encoding != nil {
		enc = *opts.Encoding
	}
	bomLen := 0
	if bom := enc.BOM(); len(bom) > 0 && bytes.HasPrefix(data, bom) {
		bomLen = len(bom)
	}

	m := &Mapped{
		path:      path,
		mapping:   mapping,
		data:      data,
		encoding:  enc,
		normalize: opts.Normalize,
		chunkSize: chunkSize,
		logger:    logging.OrDefault(opts.Logger),
	}
	sampleText, _, _ := m.decodeBytes(sample[bomLen:], len(sample) == len(data))
	m.lineEnding = fsutil.DetectLineEnding(sampleText)

	m.cache = NewChunkCache(opts.CacheBytes, m.decodeChunk)
	m.work = scanIndex{
		lines:        []int64{0},
		scannedBytes: int64(bomLen),
		complete:     bomLen == len(data),
	}
	m.publish()

	m.logger.Debug("mapped file",
		logging.FieldPath, path,
		logging.FieldBytes, len(data),
		logging.FieldEncoding, enc,
		logging.FieldLineEnd, m.lineEnding)

	if !opts.DeferScan {
		if err := m.ScanAll(context.Background()); err != nil && !isEncodingOnly(err) {
			_ = m.Close()
			return nil, err
		}
	}
	return m, nil
}

func (m *Mapped) publish() {
	snap := m.work
	m.index.Store(&snap)
}

// Path returns the mapped file path.
func (m *Mapped) Path() string { return m.path }

// Encoding returns the detected (or overridden) encoding.
func (m *Mapped) Encoding() fsutil.Encoding { return m.encoding }

// LineEnding returns the dominant line-ending style of the file.
func (m *Mapped) LineEnding() fsutil.LineEnding { return m.lineEnding }

// Normalized reports whether line endings are folded to LF.
func (m *Mapped) Normalized() bool { return m.normalize }

// HasBOM reports whether the file starts with the encoding's byte-order mark.
func (m *Mapped) HasBOM() bool {
	bom := m.encoding.BOM()
	return len(bom) > 0 && bytes.HasPrefix(m.data, bom)
}

// TotalBytes returns the file size.
func (m *Mapped) TotalBytes() int64 { return int64(len(m.data)) }

// ScannedBytes returns how many bytes the committed index covers.
func (m *Mapped) ScannedBytes() int64 { return m.index.Load().scannedBytes }

// Complete reports whether the whole file has been scanned.
func (m *Mapped) Complete() bool { return m.index.Load().complete }

// ChunkCount returns the number of committed chunks.
func (m *Mapped) ChunkCount() int { return len(m.index.Load().chunks) }

// CacheStats returns the chunk cache counters.
func (m *Mapped) CacheStats() CacheStats { return m.cache.Stats() }

// Snapshot returns an immutable Source over the content committed so far.
func (m *Mapped) Snapshot() *MappedSnapshot {
	return &MappedSnapshot{m: m, idx: m.index.Load()}
}

func (m *Mapped) live() *MappedSnapshot {
	return &MappedSnapshot{m: m, idx: m.index.Load(), live: true}
}

// Len returns the exact length once scanning is complete and an upper-bound
// estimate before that.
func (m *Mapped) Len() int64 { return m.live().Len() }

func (m *Mapped) At(offset int64) (rune, error) { return m.live().At(offset) }

func (m *Mapped) Text(start, count int64) (string, error) { return m.live().Text(start, count) }

func (m *Mapped) CountLineFeeds(start, count int64) (int64, error) {
	return m.live().CountLineFeeds(start, count)
}

func (m *Mapped) LineOffsets() []int64 { return m.index.Load().lines }

func (m *Mapped) LineCount() int64 { return int64(len(m.index.Load().lines)) }

func (m *Mapped) LineStart(line int64) (int64, error) { return m.live().LineStart(line) }

func (m *Mapped) LineOf(offset int64) (int64, error) { return m.live().LineOf(offset) }

// ChunkFor locates the committed chunk containing offset.
func (m *Mapped) ChunkFor(offset int64) (index int, charStart, charLen int64, err error) {
	return m.live().ChunkFor(offset)
}

// Close unmaps the file. Later reads fail with ErrDisposed. Close waits for an
// in-flight scan batch or decode to finish.
func (m *Mapped) Close() error {
	m.life.Lock()
	defer m.life.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.disposed.Store(true)
	m.cache.Purge()
	return m.mapping.Close()
}

// MappedSnapshot reads a Mapped source through one published index.
type MappedSnapshot struct {
	m    *Mapped
	idx  *scanIndex
	live bool
}

// Len returns the committed length. For the live view of an incomplete scan
// it adds an estimate of the unscanned remainder.
func (s *MappedSnapshot) Len() int64 {
	if !s.live || s.idx.complete {
		return s.idx.chars
	}
	remaining := int64(len(s.m.data)) - s.idx.scannedBytes
	return s.idx.chars + remaining/int64(s.m.encoding.UnitSize())
}

// Complete reports whether the snapshot covers the whole file.
func (s *MappedSnapshot) Complete() bool { return s.idx.complete }

func (s *MappedSnapshot) checkRead(start, count int64) error {
	if s.m.disposed.Load() {
		return ErrDisposed
	}
	if start >= 0 && count >= 0 && start+count <= s.idx.chars {
		return nil
	}
	if s.live && start >= 0 && count >= 0 && start+count <= s.Len() {
		return ErrNotReady
	}
	return &RangeError{Offset: start, Count: count, Len: s.Len()}
}

func (s *MappedSnapshot) chunkIndex(offset int64) int {
	chunks := s.idx.chunks
	return sort.Search(len(chunks), func(i int) bool { return chunks[i].charStart > offset }) - 1
}

// ChunkFor locates the chunk containing offset by binary search.
func (s *MappedSnapshot) ChunkFor(offset int64) (index int, charStart, charLen int64, err error) {
	if err := s.checkRead(offset, 1); err != nil {
		return 0, 0, 0, err
	}
	i := s.chunkIndex(offset)
	entry := s.idx.chunks[i]
	return i, entry.charStart, entry.charLen, nil
}

func (s *MappedSnapshot) At(offset int64) (rune, error) {
	if err := s.checkRead(offset, 1); err != nil {
		return 0, err
	}
	i := s.chunkIndex(offset)
	chunk, err := s.m.cache.Get(i)
	if err != nil {
		return 0, err
	}
	return chunk.At(int(offset - s.idx.chunks[i].charStart)), nil
}

func (s *MappedSnapshot) Text(start, count int64) (string, error) {
	if err := s.checkRead(start, count); err != nil {
		return "", err
	}
	if count == 0 {
		return "", nil
	}

	i := s.chunkIndex(start)
	entry := s.idx.chunks[i]
	chunk, err := s.m.cache.Get(i)
	if err != nil {
		return "", err
	}
	from := start - entry.charStart
	if from+count <= entry.charLen {
		return chunk.Slice(int(from), int(from+count)), nil
	}

	var b strings.Builder
	pos, remaining := start, count
	for remaining > 0 {
		entry = s.idx.chunks[i]
		if chunk == nil {
			if chunk, err = s.m.cache.Get(i); err != nil {
				return "", err
			}
		}
		from = pos - entry.charStart
		n := min(remaining, entry.charLen-from)
		b.WriteString(chunk.Slice(int(from), int(from+n)))
		pos += n
		remaining -= n
		i++
		chunk = nil
	}
	return b.String(), nil
}

func (s *MappedSnapshot) CountLineFeeds(start, count int64) (int64, error) {
	if err := s.checkRead(start, count); err != nil {
		return 0, err
	}
	return countLineFeeds(s.idx.lines, start, count), nil
}

func (s *MappedSnapshot) LineOffsets() []int64 { return s.idx.lines }

func (s *MappedSnapshot) LineCount() int64 { return int64(len(s.idx.lines)) }

func (s *MappedSnapshot) LineStart(line int64) (int64, error) {
	if s.m.disposed.Load() {
		return 0, ErrDisposed
	}
	return lineStart(s.idx.lines, line)
}

func (s *MappedSnapshot) LineOf(offset int64) (int64, error) {
	if err := s.checkRead(offset, 0); err != nil {
		return 0, err
	}
	return lineOf(s.idx.lines, offset), nil
}
