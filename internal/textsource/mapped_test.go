package textsource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/encoding/unicode"

	fsutil "github.com/kk-code-lab/bigtext/internal/fs"
)

func writeTempFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.txt")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func syntheticText(lines int) string {
	var b strings.Builder
	for i := 0; i < lines; i++ {
		switch i % 4 {
		case 0:
			fmt.Fprintf(&b, "line %d plain ascii\r\n", i)
		case 1:
			fmt.Fprintf(&b, "línea %d con acentos ñ\n", i)
		case 2:
			fmt.Fprintf(&b, "行 %d 😀\r", i)
		default:
			fmt.Fprintf(&b, "\t%d\r\n", i)
		}
	}
	return b.String()
}

func assertSameSource(t *testing.T, got *MappedSnapshot, want *Memory) {
	t.Helper()
	if got.Len() != want.Len() {
		t.Fatalf("Len() = %d, want %d", got.Len(), want.Len())
	}
	gotLines, wantLines := got.LineOffsets(), want.LineOffsets()
	if len(gotLines) != len(wantLines) {
		t.Fatalf("line count = %d, want %d", len(gotLines), len(wantLines))
	}
	for i := range wantLines {
		if gotLines[i] != wantLines[i] {
			t.Fatalf("line %d starts at %d, want %d", i, gotLines[i], wantLines[i])
		}
	}
	text, err := got.Text(0, got.Len())
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if text != want.String() {
		t.Fatalf("decoded text differs from reference")
	}
}

func TestMappedMatchesMemorySource(t *testing.T) {
	content := syntheticText(2000)
	path := writeTempFile(t, []byte(content))

	m, err := OpenMapped(path, MappedOptions{Normalize: true, ChunkSize: 256, CacheBytes: 2048})
	if err != nil {
		t.Fatalf("OpenMapped: %v", err)
	}
	defer m.Close()

	if !m.Complete() {
		t.Fatalf("scan should be complete")
	}
	if m.ChunkCount() < 100 {
		t.Fatalf("expected many chunks, got %d", m.ChunkCount())
	}
	assertSameSource(t, m.Snapshot(), NewMemoryNormalized(content))

	for _, offset := range []int64{0, 255, 256, 1000, m.Len() - 1} {
		want, _ := NewMemoryNormalized(content).At(offset)
		got, err := m.At(offset)
		if err != nil || got != want {
			t.Fatalf("At(%d) = %q, %v; want %q", offset, got, err, want)
		}
	}
}

func TestMappedBatchSizeDoesNotChangeIndex(t *testing.T) {
	content := syntheticText(1500)
	path := writeTempFile(t, []byte(content))

	scan := func(batch int) *MappedSnapshot {
		m, err := OpenMapped(path, MappedOptions{Normalize: true, DeferScan: true, ChunkSize: 128})
		if err != nil {
			t.Fatalf("OpenMapped: %v", err)
		}
		t.Cleanup(func() { _ = m.Close() })
		for {
			done, err := m.ScanNextBatch(batch)
			if err != nil {
				t.Fatalf("ScanNextBatch: %v", err)
			}
			if done {
				return m.Snapshot()
			}
		}
	}

	one, four := scan(1), scan(4)
	assertSameSource(t, one, NewMemoryNormalized(content))
	assertSameSource(t, four, NewMemoryNormalized(content))
}

func TestMappedChunkForIsConsistent(t *testing.T) {
	content := syntheticText(400)
	path := writeTempFile(t, []byte(content))

	m, err := OpenMapped(path, MappedOptions{ChunkSize: 100})
	if err != nil {
		t.Fatalf("OpenMapped: %v", err)
	}
	defer m.Close()

	for offset := int64(0); offset < m.Len(); offset += 37 {
		index, start, length, err := m.ChunkFor(offset)
		if err != nil {
			t.Fatalf("ChunkFor(%d): %v", offset, err)
		}
		if offset < start || offset >= start+length {
			t.Fatalf("ChunkFor(%d) = chunk %d [%d, %d)", offset, index, start, start+length)
		}
	}
}

func TestMappedUTF16WithBOM(t *testing.T) {
	content := strings.Repeat("héllo\r\nwörld 😀\r\n", 40)
	encoded, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder().String(content)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	data := append([]byte{0xFF, 0xFE}, encoded...)
	path := writeTempFile(t, data)

	m, err := OpenMapped(path, MappedOptions{Normalize: true, ChunkSize: 64})
	if err != nil {
		t.Fatalf("OpenMapped: %v", err)
	}
	defer m.Close()

	if m.Encoding() != fsutil.EncodingUTF16LE {
		t.Fatalf("Encoding() = %v", m.Encoding())
	}
	if !m.HasBOM() {
		t.Fatalf("HasBOM() = false")
	}
	if m.LineEnding() != fsutil.LineEndingCRLF {
		t.Fatalf("LineEnding() = %v", m.LineEnding())
	}
	assertSameSource(t, m.Snapshot(), NewMemoryNormalized(content))
}

func TestMappedWithoutNormalizationKeepsCarriageReturns(t *testing.T) {
	content := "a\r\nb\r\nc"
	path := writeTempFile(t, []byte(content))

	m, err := OpenMapped(path, MappedOptions{})
	if err != nil {
		t.Fatalf("OpenMapped: %v", err)
	}
	defer m.Close()

	text, err := m.Text(0, m.Len())
	if err != nil || text != content {
		t.Fatalf("Text = %q, %v", text, err)
	}
	if got := m.LineCount(); got != 3 {
		t.Fatalf("LineCount() = %d, want 3", got)
	}
}

func TestMappedNotReadyBeyondScanBoundary(t *testing.T) {
	path := writeTempFile(t, []byte(strings.Repeat("a", 1000)))

	m, err := OpenMapped(path, MappedOptions{DeferScan: true, ChunkSize: 64})
	if err != nil {
		t.Fatalf("OpenMapped: %v", err)
	}
	defer m.Close()

	done, err := m.ScanNextBatch(1)
	if err != nil || done {
		t.Fatalf("ScanNextBatch = %v, %v", done, err)
	}
	if got := m.Len(); got != 1000 {
		t.Fatalf("estimated Len() = %d, want 1000", got)
	}
	if _, err := m.Text(0, 64); err != nil {
		t.Fatalf("committed read: %v", err)
	}
	if _, err := m.Text(100, 1); !errors.Is(err, ErrNotReady) {
		t.Fatalf("uncommitted read error = %v, want ErrNotReady", err)
	}
	if _, err := m.Text(5000, 1); !errors.Is(err, ErrRange) {
		t.Fatalf("out of range error = %v, want ErrRange", err)
	}

	snap := m.Snapshot()
	if snap.Len() != 64 {
		t.Fatalf("snapshot Len() = %d, want 64", snap.Len())
	}
	if _, err := snap.Text(100, 1); !errors.Is(err, ErrRange) {
		t.Fatalf("snapshot read error = %v, want ErrRange", err)
	}
}

func TestMappedBadChunkIsIsolated(t *testing.T) {
	data := []byte(strings.Repeat("a", 200))
	data = append(data, 0xFF)
	data = append(data, strings.Repeat("b", 199)...)
	path := writeTempFile(t, data)

	utf8 := fsutil.EncodingUTF8
	m, err := OpenMapped(path, MappedOptions{DeferScan: true, ChunkSize: 64, Encoding: &utf8})
	if err != nil {
		t.Fatalf("OpenMapped: %v", err)
	}
	defer m.Close()

	if err := m.ScanAll(t.Context()); !errors.Is(err, ErrEncoding) {
		t.Fatalf("ScanAll error = %v, want ErrEncoding", err)
	}
	if !m.Complete() || m.Len() != 400 {
		t.Fatalf("Complete() = %v, Len() = %d", m.Complete(), m.Len())
	}
	if text, err := m.Text(0, 10); err != nil || text != "aaaaaaaaaa" {
		t.Fatalf("Text(0, 10) = %q, %v", text, err)
	}
	if _, err := m.At(195); !errors.Is(err, ErrEncoding) {
		t.Fatalf("At in bad chunk error = %v, want ErrEncoding", err)
	}
	if r, err := m.At(300); err != nil || r != 'b' {
		t.Fatalf("At(300) = %q, %v", r, err)
	}
}

func TestMappedClosedReadsAreDisposed(t *testing.T) {
	path := writeTempFile(t, []byte("hello"))

	m, err := OpenMapped(path, MappedOptions{})
	if err != nil {
		t.Fatalf("OpenMapped: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := m.Text(0, 1); !errors.Is(err, ErrDisposed) {
		t.Fatalf("Text after Close error = %v, want ErrDisposed", err)
	}
	if _, err := m.ScanNextBatch(1); !errors.Is(err, ErrDisposed) {
		t.Fatalf("ScanNextBatch after Close error = %v, want ErrDisposed", err)
	}
}

func TestOpenMappedMissingFile(t *testing.T) {
	_, err := OpenMapped(filepath.Join(t.TempDir(), "missing.txt"), MappedOptions{})
	if !errors.Is(err, ErrIO) {
		t.Fatalf("error = %v, want ErrIO", err)
	}
}

func TestOpenMappedEmptyFile(t *testing.T) {
	path := writeTempFile(t, nil)
	m, err := OpenMapped(path, MappedOptions{})
	if err != nil {
		t.Fatalf("OpenMapped: %v", err)
	}
	defer m.Close()
	if m.Len() != 0 || m.LineCount() != 1 || !m.Complete() {
		t.Fatalf("Len() = %d, LineCount() = %d", m.Len(), m.LineCount())
	}
}
