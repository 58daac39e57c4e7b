package fs

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

func TestIsTextFileDetectsUTF16LE(t *testing.T) {
	content := []byte{0xFF, 0xFE, 0x41, 0x00, 0x0D, 0x00, 0x0A, 0x00}
	if !IsTextFile("config.ini", content) {
		t.Fatalf("expected UTF-16 LE content to be treated as text")
	}
}

func TestIsTextFileRejectsBinaryExtension(t *testing.T) {
	if IsTextFile("image.png", []byte("plain")) {
		t.Fatalf("expected .png to be treated as binary")
	}
}

func TestIsTextFileRejectsNullHeavyContent(t *testing.T) {
	content := []byte{0x7F, 0x45, 0x4C, 0x46, 0x02, 0x01, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x03, 0x00, 0x3E, 0x00}
	if IsTextFile("program", content) {
		t.Fatalf("expected ELF header to be treated as binary")
	}
}

func TestDecodeBytesUTF16LE(t *testing.T) {
	content := []byte{0xFF, 0xFE, 0x41, 0x00, 0x0D, 0x00, 0x0A, 0x00}
	got, enc, err := DecodeBytes(content)
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	if enc != EncodingUTF16LE {
		t.Fatalf("encoding = %s, want utf-16le", enc)
	}
	if got != "A\r\n" {
		t.Fatalf("DecodeBytes returned %q, want %q", got, "A\r\n")
	}
}

func TestDetectEncoding(t *testing.T) {
	utf16NoBOM, err := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte("hello world, plain ascii"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	gbk, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte("中文文本，用于检测编码。中文文本"))
	if err != nil {
		t.Fatalf("encode gbk: %v", err)
	}

	tests := []struct {
		name   string
		sample []byte
		want   Encoding
	}{
		{"empty", nil, EncodingUTF8},
		{"ascii", []byte("just ascii\n"), EncodingUTF8},
		{"utf8 multibyte", []byte("zażółć gęślą jaźń"), EncodingUTF8},
		{"utf8 cut rune", []byte("ab\xc5"), EncodingUTF8},
		{"utf8 bom", []byte{0xEF, 0xBB, 0xBF, 'a'}, EncodingUTF8BOM},
		{"utf16le bom", []byte{0xFF, 0xFE, 'h', 0, 'i', 0}, EncodingUTF16LE},
		{"utf16be bom", []byte{0xFE, 0xFF, 0, 'h', 0, 'i'}, EncodingUTF16BE},
		{"utf32le bom", []byte{0xFF, 0xFE, 0, 0, 'h', 0, 0, 0}, EncodingUTF32LE},
		{"utf32be bom", []byte{0, 0, 0xFE, 0xFF, 0, 0, 0, 'h'}, EncodingUTF32BE},
		{"utf16be heuristic", utf16NoBOM, EncodingUTF16BE},
		{"utf32le heuristic", []byte{'a', 0, 0, 0, 'b', 0, 0, 0, 'c', 0, 0, 0}, EncodingUTF32LE},
		{"gb2312 pairs", gbk, EncodingGB2312},
		{"windows-1252", []byte("caf\xe9 cr\xe8me br\xfbl\xe9e"), EncodingWindows1252},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectEncoding(tt.sample); got != tt.want {
				t.Fatalf("DetectEncoding = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestUTF16LEBOMFollowedByASCIIIsNotUTF8(t *testing.T) {
	sample := append([]byte{0xFF, 0xFE}, []byte("plain ascii that is valid utf-8")...)
	if got := DetectEncoding(sample); got != EncodingUTF16LE {
		t.Fatalf("DetectEncoding = %s, want utf-16le", got)
	}
}

func TestParseEncoding(t *testing.T) {
	for name, want := range map[string]Encoding{
		"UTF-8":        EncodingUTF8,
		"utf16le":      EncodingUTF16LE,
		"utf_16be":     EncodingUTF16BE,
		"gbk":          EncodingGB2312,
		"windows-1252": EncodingWindows1252,
	} {
		got, err := ParseEncoding(name)
		if err != nil {
			t.Fatalf("ParseEncoding(%q): %v", name, err)
		}
		if got != want {
			t.Fatalf("ParseEncoding(%q) = %s, want %s", name, got, want)
		}
	}
	if _, err := ParseEncoding("ebcdic"); err == nil {
		t.Fatalf("expected error for unknown encoding")
	}
}

func TestDetectLineEnding(t *testing.T) {
	tests := []struct {
		text string
		want LineEnding
	}{
		{"", LineEndingLF},
		{"a\nb\n", LineEndingLF},
		{"a\r\nb\r\nc\n", LineEndingCRLF},
		{"a\rb\rc", LineEndingCR},
		{"no terminator", LineEndingLF},
	}
	for _, tt := range tests {
		if got := DetectLineEnding(tt.text); got != tt.want {
			t.Fatalf("DetectLineEnding(%q) = %s, want %s", tt.text, got, tt.want)
		}
	}
}

func TestNormalizeAndReconstitute(t *testing.T) {
	normalized := NormalizeLineEndings("a\r\nb\rc\n")
	if normalized != "a\nb\nc\n" {
		t.Fatalf("NormalizeLineEndings = %q", normalized)
	}
	if got := Reconstitute(normalized, LineEndingCRLF); got != "a\r\nb\r\nc\r\n" {
		t.Fatalf("Reconstitute = %q", got)
	}
}

func TestLineEndingTransformerWriter(t *testing.T) {
	var buf bytes.Buffer
	w := transform.NewWriter(&buf, LineEndingTransformer(LineEndingCRLF))
	if _, err := io.WriteString(w, "one\ntwo\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if buf.String() != "one\r\ntwo\r\n" {
		t.Fatalf("transformed = %q", buf.String())
	}
}

func TestMapFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mapped.txt")
	if err := os.WriteFile(path, []byte("mapped content"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	m, err := MapFile(path)
	if err != nil {
		t.Fatalf("MapFile: %v", err)
	}
	if string(m.Bytes()) != "mapped content" {
		t.Fatalf("mapped bytes = %q", m.Bytes())
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	empty := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	m, err = MapFile(empty)
	if err != nil {
		t.Fatalf("MapFile(empty): %v", err)
	}
	if m.Len() != 0 {
		t.Fatalf("empty mapping len = %d", m.Len())
	}

	if _, err := MapFile(filepath.Join(dir, "missing.txt")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
