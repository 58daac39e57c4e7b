package fs

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
)

// Encoding identifies the byte encoding of a text file.
type Encoding int

const (
	EncodingUTF8 Encoding = iota
	EncodingUTF8BOM
	EncodingUTF16LE
	EncodingUTF16BE
	EncodingUTF32LE
	EncodingUTF32BE
	EncodingGB2312
	EncodingWindows1252
)

const (
	// EncodingSampleSize is how many leading bytes DetectEncoding looks at.
	EncodingSampleSize = 64 * 1024

	nullRatioThreshold     = 0.3
	gb2312PairRatioMinimum = 0.8
)

var encodingNames = map[Encoding]string{
	EncodingUTF8:        "utf-8",
	EncodingUTF8BOM:     "utf-8-bom",
	EncodingUTF16LE:     "utf-16le",
	EncodingUTF16BE:     "utf-16be",
	EncodingUTF32LE:     "utf-32le",
	EncodingUTF32BE:     "utf-32be",
	EncodingGB2312:      "gb2312",
	EncodingWindows1252: "windows-1252",
}

func (e Encoding) String() string {
	if name, ok := encodingNames[e]; ok {
		return name
	}
	return fmt.Sprintf("encoding(%d)", int(e))
}

// ParseEncoding resolves a user supplied encoding name (manual override).
func ParseEncoding(name string) (Encoding, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	switch normalized {
	case "utf8":
		return EncodingUTF8, nil
	case "utf16le", "utf-16":
		return EncodingUTF16LE, nil
	case "utf16be":
		return EncodingUTF16BE, nil
	case "utf32le", "utf-32":
		return EncodingUTF32LE, nil
	case "utf32be":
		return EncodingUTF32BE, nil
	case "gbk", "euc-cn":
		return EncodingGB2312, nil
	case "cp1252", "latin1":
		return EncodingWindows1252, nil
	}
	for enc, encName := range encodingNames {
		if encName == normalized {
			return enc, nil
		}
	}
	return EncodingUTF8, fmt.Errorf("unknown encoding %q", name)
}

// BOM returns the byte-order mark written in front of content in this encoding.
func (e Encoding) BOM() []byte {
	switch e {
	case EncodingUTF8BOM:
		return []byte{0xEF, 0xBB, 0xBF}
	case EncodingUTF16LE:
		return []byte{0xFF, 0xFE}
	case EncodingUTF16BE:
		return []byte{0xFE, 0xFF}
	case EncodingUTF32LE:
		return []byte{0xFF, 0xFE, 0x00, 0x00}
	case EncodingUTF32BE:
		return []byte{0x00, 0x00, 0xFE, 0xFF}
	default:
		return nil
	}
}

// UnitSize is the size in bytes of one code unit. Line feeds and carriage
// returns always occupy exactly one unit.
func (e Encoding) UnitSize() int {
	switch e {
	case EncodingUTF16LE, EncodingUTF16BE:
		return 2
	case EncodingUTF32LE, EncodingUTF32BE:
		return 4
	default:
		return 1
	}
}

// IsUTF8 reports whether decoded content can be used as-is.
func (e Encoding) IsUTF8() bool {
	return e == EncodingUTF8 || e == EncodingUTF8BOM
}

// Codec returns the x/text encoding used to transcode content, or nil for UTF-8.
// BOM handling is left to the caller: the codecs ignore byte-order marks.
func (e Encoding) Codec() encoding.Encoding {
	switch e {
	case EncodingUTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	case EncodingUTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	case EncodingUTF32LE:
		return utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM)
	case EncodingUTF32BE:
		return utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM)
	case EncodingGB2312:
		return simplifiedchinese.GBK
	case EncodingWindows1252:
		return charmap.Windows1252
	default:
		return nil
	}
}

// DetectEncoding guesses the encoding of sample. A byte-order mark always wins;
// without one, the null-byte distribution, UTF-8 validity and the GB2312 pair
// ratio are checked in that order, with Windows-1252 as the last resort.
func DetectEncoding(sample []byte) Encoding {
	if enc, ok := detectBOM(sample); ok {
		return enc
	}
	if len(sample) == 0 {
		return EncodingUTF8
	}
	if enc, ok := detectByNulls(sample); ok {
		return enc
	}
	if validUTF8Prefix(sample) {
		return EncodingUTF8
	}
	if looksLikeGB2312(sample) {
		return EncodingGB2312
	}
	return EncodingWindows1252
}

// DetectBOM reports the encoding announced by a leading byte-order mark.
func DetectBOM(sample []byte) (Encoding, bool) {
	return detectBOM(sample)
}

func detectBOM(sample []byte) (Encoding, bool) {
	switch {
	case len(sample) >= 4 && sample[0] == 0xFF && sample[1] == 0xFE && sample[2] == 0x00 && sample[3] == 0x00:
		return EncodingUTF32LE, true
	case len(sample) >= 4 && sample[0] == 0x00 && sample[1] == 0x00 && sample[2] == 0xFE && sample[3] == 0xFF:
		return EncodingUTF32BE, true
	case len(sample) >= 3 && sample[0] == 0xEF && sample[1] == 0xBB && sample[2] == 0xBF:
		return EncodingUTF8BOM, true
	case len(sample) >= 2 && sample[0] == 0xFF && sample[1] == 0xFE:
		return EncodingUTF16LE, true
	case len(sample) >= 2 && sample[0] == 0xFE && sample[1] == 0xFF:
		return EncodingUTF16BE, true
	}
	return EncodingUTF8, false
}

func detectByNulls(sample []byte) (Encoding, bool) {
	if len(sample) < 4 {
		return EncodingUTF8, false
	}

	var byLane [4]int
	total := 0
	for i, b := range sample {
		if b == 0 {
			byLane[i%4]++
			total++
		}
	}
	if total == 0 {
		return EncodingUTF8, false
	}

	quads := float64(len(sample) / 4)
	if quads > 0 {
		high := func(n int) bool { return float64(n) >= quads*0.9 }
		low := func(n int) bool { return float64(n) <= quads*0.1 }
		if low(byLane[0]) && high(byLane[1]) && high(byLane[2]) && high(byLane[3]) {
			return EncodingUTF32LE, true
		}
		if high(byLane[0]) && high(byLane[1]) && high(byLane[2]) && low(byLane[3]) {
			return EncodingUTF32BE, true
		}
	}

	pairs := float64(len(sample) / 2)
	even := float64(byLane[0] + byLane[2])
	odd := float64(byLane[1] + byLane[3])
	switch {
	case odd/pairs >= nullRatioThreshold && even/pairs < nullRatioThreshold/3:
		return EncodingUTF16LE, true
	case even/pairs >= nullRatioThreshold && odd/pairs < nullRatioThreshold/3:
		return EncodingUTF16BE, true
	}
	return EncodingUTF8, false
}

// validUTF8Prefix validates sample while tolerating a rune cut off by the
// sample boundary.
func validUTF8Prefix(sample []byte) bool {
	return utf8.Valid(sample[:CompleteUTF8Prefix(sample)])
}

// CompleteUTF8Prefix returns the length of b without a trailing, incomplete
// UTF-8 sequence.
func CompleteUTF8Prefix(b []byte) int {
	end := len(b)
	for i := end - 1; i >= 0 && i >= end-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if !utf8.FullRune(b[i:]) {
				return i
			}
			break
		}
	}
	return end
}

func looksLikeGB2312(sample []byte) bool {
	highBytes := 0
	pairBytes := 0
	for i := 0; i < len(sample); i++ {
		b := sample[i]
		if b < 0x80 {
			continue
		}
		highBytes++
		if b >= 0xA1 && b <= 0xF7 && i+1 < len(sample) {
			next := sample[i+1]
			if next >= 0xA1 && next <= 0xFE {
				pairBytes += 2
				highBytes++
				i++
			}
		}
	}
	if highBytes == 0 {
		return false
	}
	return float64(pairBytes)/float64(highBytes) >= gb2312PairRatioMinimum
}
