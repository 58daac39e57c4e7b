package textsource

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/transform"

	fsutil "github.com/kk-code-lab/bigtext/internal/fs"
	"github.com/kk-code-lab/bigtext/internal/logging"
)

var errInvalidSequence = errors.New("invalid byte sequence")

// ScanNextBatch indexes up to n more chunks and publishes the extended index.
// It reports whether the file is fully scanned. Chunks that fail to decode
// are still committed, with their lengths counted as replacement characters,
// and returned as joined *EncodingError values; reads inside them fail with
// ErrEncoding.
func (m *Mapped) ScanNextBatch(n int) (bool, error) {
	m.scanMu.Lock()
	defer m.scanMu.Unlock()
	m.life.RLock()
	defer m.life.RUnlock()

	if m.closed {
		return false, ErrDisposed
	}
	if m.work.complete {
		return true, nil
	}
	if n <= 0 {
		n = 1
	}

	var encErrs []error
	for i := 0; i < n && !m.work.complete; i++ {
		if err := m.scanChunk(); err != nil {
			m.logger.Warn("undecodable chunk", logging.FieldPath, m.path, logging.FieldError, err)
			encErrs = append(encErrs, err)
		}
	}
	m.publish()

	m.logger.Debug("scan batch",
		logging.FieldPath, m.path,
		logging.FieldChunks, len(m.work.chunks),
		logging.FieldScannedBytes, m.work.scannedBytes,
		logging.FieldLines, len(m.work.lines),
		logging.FieldChars, m.work.chars)

	return m.work.complete, errors.Join(encErrs...)
}

// ScanAll scans the remaining chunks: one chunk first, then batches of
// BatchChunks, checking ctx between batches. Encoding errors do not stop the
// scan and are returned joined once it completes.
func (m *Mapped) ScanAll(ctx context.Context) error {
	var encErrs []error
	batch := FirstBatchChunks
	for {
		if err := ctx.Err(); err != nil {
			return errors.Join(ErrCancelled, err)
		}
		done, err := m.ScanNextBatch(batch)
		if err != nil {
			if !isEncodingOnly(err) {
				return err
			}
			encErrs = append(encErrs, err)
		}
		if done {
			return errors.Join(encErrs...)
		}
		batch = BatchChunks
	}
}

// isEncodingOnly reports whether err carries nothing but encoding failures.
func isEncodingOnly(err error) bool {
	if err == nil {
		return false
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if !isEncodingOnly(e) {
				return false
			}
		}
		return true
	}
	return errors.Is(err, ErrEncoding)
}

func (m *Mapped) scanChunk() error {
	total := int64(len(m.data))
	start := m.work.scannedBytes
	end := min(start+int64(m.chunkSize), total)
	atEOF := end == total

	text, consumed, decErr := m.decodeBytes(m.data[start:end], atEOF)
	if consumed == 0 {
		text, consumed, decErr = m.decodeBytes(m.data[start:end], true)
		atEOF = true
	}
	// A CR at the end may be the first half of a CRLF split across chunks.
	if m.normalize && !atEOF && strings.HasSuffix(text, "\r") && consumed > m.encoding.UnitSize() {
		text = text[:len(text)-1]
		consumed -= m.encoding.UnitSize()
	}
	if m.normalize {
		text = fsutil.NormalizeLineEndings(text)
	}

	entry := chunkEntry{
		byteStart: start,
		byteEnd:   start + int64(consumed),
		charStart: m.work.chars,
		charLen:   int64(runeCount(text)),
		bad:       decErr != nil,
	}
	index := len(m.work.chunks)
	m.work.chunks = append(m.work.chunks, entry)
	m.work.lines = AppendLineStarts(m.work.lines, text, entry.charStart)
	m.work.chars += entry.charLen
	m.work.scannedBytes = entry.byteEnd
	m.work.complete = entry.byteEnd >= total

	if decErr != nil {
		return &EncodingError{Chunk: index, ByteOffset: start, Encoding: m.encoding, Err: decErr}
	}
	if index == 0 {
		m.cache.Put(0, NewDecodedChunk(text))
	}
	return nil
}

func (m *Mapped) decodeChunk(index int) (*DecodedChunk, error) {
	m.life.RLock()
	defer m.life.RUnlock()
	if m.closed {
		return nil, ErrDisposed
	}

	idx := m.index.Load()
	if index < 0 || index >= len(idx.chunks) {
		return nil, ErrNotReady
	}
	entry := idx.chunks[index]
	if entry.bad {
		return nil, &EncodingError{Chunk: index, ByteOffset: entry.byteStart, Encoding: m.encoding, Err: errInvalidSequence}
	}
	text, _, err := m.decodeBytes(m.data[entry.byteStart:entry.byteEnd], true)
	if err != nil {
		return nil, &EncodingError{Chunk: index, ByteOffset: entry.byteStart, Encoding: m.encoding, Err: err}
	}
	if m.normalize {
		text = fsutil.NormalizeLineEndings(text)
	}
	chunk := NewDecodedChunk(text)
	if int64(chunk.Len()) != entry.charLen {
		return nil, fmt.Errorf("chunk %d decoded to %d runes, indexed %d: %w", index, chunk.Len(), entry.charLen, ErrEncoding)
	}
	return chunk, nil
}

// decodeBytes decodes raw into UTF-8. Unless atEOF, a trailing incomplete
// sequence is left unconsumed. On failure the text holds replacement
// characters and consumed covers all of raw.
func (m *Mapped) decodeBytes(raw []byte, atEOF bool) (text string, consumed int, err error) {
	if m.encoding.IsUTF8() {
		n := len(raw)
		if !atEOF {
			n = fsutil.CompleteUTF8Prefix(raw)
		}
		part := raw[:n]
		if utf8.Valid(part) {
			return string(part), n, nil
		}
		return strings.ToValidUTF8(string(part), string(utf8.RuneError)), n, errInvalidSequence
	}

	out, n, err := transcode(m.encoding.Codec().NewDecoder(), raw, atEOF)
	if err != nil {
		return strings.ToValidUTF8(string(out), string(utf8.RuneError)), len(raw), err
	}
	if m.encoding.UnitSize() == 1 && strings.ContainsRune(string(out), utf8.RuneError) {
		return string(out), n, errInvalidSequence
	}
	return string(out), n, nil
}

// transcode runs t over src, growing the destination on demand. When atEOF
// is false an incomplete trailing sequence stops the transform and n reports
// how much of src was consumed.
func transcode(t transform.Transformer, src []byte, atEOF bool) ([]byte, int, error) {
	dst := make([]byte, len(src)+len(src)/2+utf8.UTFMax)
	var nDst, nSrc int
	for {
		d, s, err := t.Transform(dst[nDst:], src[nSrc:], atEOF)
		nDst += d
		nSrc += s
		switch {
		case err == nil:
			return dst[:nDst], nSrc, nil
		case errors.Is(err, transform.ErrShortDst):
			grown := make([]byte, 2*len(dst)+utf8.UTFMax)
			copy(grown, dst[:nDst])
			dst = grown
		case errors.Is(err, transform.ErrShortSrc) && !atEOF:
			return dst[:nDst], nSrc, nil
		default:
			return dst[:nDst], nSrc, err
		}
	}
}
