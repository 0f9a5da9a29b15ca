// Package charset implements the character-set service the bitstream
// decoder consumes: mapping ECI designators and hinted encoding names to a
// CharacterSet, guessing an encoding when neither is available, and
// appending decoded text onto a result buffer.
package charset

import (
	"errors"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrUnknownECI indicates an ECI value outside the legal 0..899 range.
var ErrUnknownECI = errors.New("charset: eci value out of range")

// CharacterSet identifies a named text encoding recognized by this package.
type CharacterSet int

// Recognized character sets, following the ECI designators of ISO/IEC 18004
// Annex D / AIM ITS/04-023.
const (
	Unknown CharacterSet = iota
	Cp437
	ISO8859_1
	ISO8859_2
	ISO8859_3
	ISO8859_4
	ISO8859_5
	ISO8859_6
	ISO8859_7
	ISO8859_8
	ISO8859_9
	ISO8859_10
	ISO8859_11
	ISO8859_13
	ISO8859_14
	ISO8859_15
	ISO8859_16
	ShiftJIS
	Cp1250
	Cp1251
	Cp1252
	Cp1256
	UTF16BE
	UTF8
	ASCII
	Big5
	GB18030
	EUCKR
)

type eciDef struct {
	cs          CharacterSet
	value       int
	extraValues []int
	name        string
	aliases     []string
	enc         encoding.Encoding // nil: pass-through / Latin-1 semantics
}

var eciTable = []eciDef{
	{Cp437, 0, []int{2}, "Cp437", nil, charmap.CodePage437},
	{ISO8859_1, 1, []int{3}, "ISO8859_1", []string{"ISO-8859-1"}, charmap.ISO8859_1},
	{ISO8859_2, 4, nil, "ISO8859_2", []string{"ISO-8859-2"}, charmap.ISO8859_2},
	{ISO8859_3, 5, nil, "ISO8859_3", []string{"ISO-8859-3"}, charmap.ISO8859_3},
	{ISO8859_4, 6, nil, "ISO8859_4", []string{"ISO-8859-4"}, charmap.ISO8859_4},
	{ISO8859_5, 7, nil, "ISO8859_5", []string{"ISO-8859-5"}, charmap.ISO8859_5},
	{ISO8859_6, 8, nil, "ISO8859_6", []string{"ISO-8859-6"}, charmap.ISO8859_6},
	{ISO8859_7, 9, nil, "ISO8859_7", []string{"ISO-8859-7"}, charmap.ISO8859_7},
	{ISO8859_8, 10, nil, "ISO8859_8", []string{"ISO-8859-8"}, charmap.ISO8859_8},
	{ISO8859_9, 11, nil, "ISO8859_9", []string{"ISO-8859-9"}, charmap.ISO8859_9},
	{ISO8859_10, 12, nil, "ISO8859_10", []string{"ISO-8859-10"}, charmap.ISO8859_10},
	{ISO8859_11, 13, nil, "ISO8859_11", []string{"ISO-8859-11"}, nil}, // Thai; no x/text charmap
	{ISO8859_13, 15, nil, "ISO8859_13", []string{"ISO-8859-13"}, charmap.ISO8859_13},
	{ISO8859_14, 16, nil, "ISO8859_14", []string{"ISO-8859-14"}, charmap.ISO8859_14},
	{ISO8859_15, 17, nil, "ISO8859_15", []string{"ISO-8859-15"}, charmap.ISO8859_15},
	{ISO8859_16, 18, nil, "ISO8859_16", []string{"ISO-8859-16"}, charmap.ISO8859_16},
	{ShiftJIS, 20, nil, "SJIS", []string{"Shift_JIS"}, japanese.ShiftJIS},
	{Cp1250, 21, nil, "Cp1250", []string{"windows-1250"}, charmap.Windows1250},
	{Cp1251, 22, nil, "Cp1251", []string{"windows-1251"}, charmap.Windows1251},
	{Cp1252, 23, nil, "Cp1252", []string{"windows-1252"}, charmap.Windows1252},
	{Cp1256, 24, nil, "Cp1256", []string{"windows-1256"}, charmap.Windows1256},
	{UTF16BE, 25, nil, "UnicodeBigUnmarked", []string{"UTF-16BE", "UnicodeBig"}, unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)},
	{UTF8, 26, nil, "UTF8", []string{"UTF-8"}, nil},
	{ASCII, 27, []int{170}, "ASCII", []string{"US-ASCII"}, nil},
	{Big5, 28, nil, "Big5", nil, traditionalchinese.Big5},
	{GB18030, 29, nil, "GB18030", []string{"GB2312", "EUC_CN", "GBK"}, simplifiedchinese.GB18030},
	{EUCKR, 30, nil, "EUC_KR", []string{"EUC-KR"}, korean.EUCKR},
}

var (
	valueToCS    map[int]CharacterSet
	nameToCS     map[string]CharacterSet
	csToEncoding map[CharacterSet]encoding.Encoding
)

func init() {
	valueToCS = make(map[int]CharacterSet)
	nameToCS = make(map[string]CharacterSet)
	csToEncoding = make(map[CharacterSet]encoding.Encoding)

	for _, e := range eciTable {
		valueToCS[e.value] = e.cs
		for _, v := range e.extraValues {
			valueToCS[v] = e.cs
		}
		nameToCS[e.name] = e.cs
		for _, a := range e.aliases {
			nameToCS[a] = e.cs
		}
		if e.enc != nil {
			csToEncoding[e.cs] = e.enc
		}
	}
}

// CharsetFromECI maps an in-stream ECI designator (§4.9.5) to a
// CharacterSet. Values outside 0..899 are invalid per the ECI
// specification; unassigned values in range map to Unknown.
func CharsetFromECI(value int) (CharacterSet, error) {
	if value < 0 || value >= 900 {
		return Unknown, ErrUnknownECI
	}
	return valueToCS[value], nil
}

// CharsetFromName maps an IANA/Java-style encoding name (the hintedCharset
// parameter of Decode, or an ECI name) to a CharacterSet. Returns Unknown
// for unrecognized names.
func CharsetFromName(name string) CharacterSet {
	return nameToCS[name]
}

// Append decodes bytes under the given character set and writes the
// resulting text onto result. Unknown, ASCII, and UTF8 are passed through
// unchanged (ASCII is a strict subset of UTF-8); any set with no mapped
// x/text decoder, or one whose decode fails, falls back to Latin-1
// byte-for-codepoint semantics, matching the upstream decoder's behavior
// of never losing data to an encoding error.
func Append(result *strings.Builder, b []byte, cs CharacterSet) {
	switch cs {
	case Unknown, ASCII, UTF8:
		result.Write(b)
		return
	case ISO8859_1:
		AppendLatin1(result, b)
		return
	}
	if enc, ok := csToEncoding[cs]; ok {
		decoded, _, err := transform.Bytes(enc.NewDecoder(), b)
		if err == nil {
			result.Write(decoded)
			return
		}
	}
	AppendLatin1(result, b)
}

// AppendLatin1 appends bytes interpreted as ISO-8859-1: each byte maps
// directly to the Unicode code point of the same value.
func AppendLatin1(result *strings.Builder, b []byte) {
	for _, c := range b {
		result.WriteRune(rune(c))
	}
}

// GuessEncoding heuristically identifies the character set of bytes that
// arrived with neither an ECI designator nor a caller-supplied hint. It
// checks, in order: a UTF-16 byte-order mark (either byte order reports
// UTF16BE), valid UTF-8 containing a BOM or multi-byte characters,
// Shift_JIS-looking byte sequences, and ISO-8859-1; bytes that fit none of
// these are reported as UTF8.
func GuessEncoding(b []byte) CharacterSet {
	if len(b) > 2 &&
		((b[0] == 0xFE && b[1] == 0xFF) || (b[0] == 0xFF && b[1] == 0xFE)) {
		return UTF16BE
	}

	length := len(b)
	canBeISO88591 := true
	canBeShiftJIS := true
	canBeUTF8 := true
	utf8BytesLeft := 0
	utf2BytesChars := 0
	utf3BytesChars := 0
	utf4BytesChars := 0
	sjisBytesLeft := 0
	sjisKatakanaChars := 0
	sjisCurKatakanaWordLength := 0
	sjisCurDoubleBytesWordLength := 0
	sjisMaxKatakanaWordLength := 0
	sjisMaxDoubleBytesWordLength := 0
	isoHighOther := 0

	utf8bom := len(b) > 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF

	for i := 0; i < length && (canBeISO88591 || canBeShiftJIS || canBeUTF8); i++ {
		value := int(b[i]) & 0xFF

		if canBeUTF8 {
			if utf8BytesLeft > 0 {
				if (value & 0x80) == 0 {
					canBeUTF8 = false
				} else {
					utf8BytesLeft--
				}
			} else if (value & 0x80) != 0 {
				if (value & 0x40) == 0 {
					canBeUTF8 = false
				} else {
					utf8BytesLeft++
					if (value & 0x20) == 0 {
						utf2BytesChars++
					} else {
						utf8BytesLeft++
						if (value & 0x10) == 0 {
							utf3BytesChars++
						} else {
							utf8BytesLeft++
							if (value & 0x08) == 0 {
								utf4BytesChars++
							} else {
								canBeUTF8 = false
							}
						}
					}
				}
			}
		}

		if canBeISO88591 {
			if value > 0x7F && value < 0xA0 {
				canBeISO88591 = false
			} else if value > 0x9F && (value < 0xC0 || value == 0xD7 || value == 0xF7) {
				isoHighOther++
			}
		}

		if canBeShiftJIS {
			if sjisBytesLeft > 0 {
				if value < 0x40 || value == 0x7F || value > 0xFC {
					canBeShiftJIS = false
				} else {
					sjisBytesLeft--
				}
			} else if value == 0x80 || value == 0xA0 || value > 0xEF {
				canBeShiftJIS = false
			} else if value > 0xA0 && value < 0xE0 {
				sjisKatakanaChars++
				sjisCurDoubleBytesWordLength = 0
				sjisCurKatakanaWordLength++
				if sjisCurKatakanaWordLength > sjisMaxKatakanaWordLength {
					sjisMaxKatakanaWordLength = sjisCurKatakanaWordLength
				}
			} else if value > 0x7F {
				sjisBytesLeft++
				sjisCurKatakanaWordLength = 0
				sjisCurDoubleBytesWordLength++
				if sjisCurDoubleBytesWordLength > sjisMaxDoubleBytesWordLength {
					sjisMaxDoubleBytesWordLength = sjisCurDoubleBytesWordLength
				}
			} else {
				sjisCurKatakanaWordLength = 0
				sjisCurDoubleBytesWordLength = 0
			}
		}
	}

	if canBeUTF8 && utf8BytesLeft > 0 {
		canBeUTF8 = false
	}
	if canBeShiftJIS && sjisBytesLeft > 0 {
		canBeShiftJIS = false
	}

	if canBeUTF8 && (utf8bom || utf2BytesChars+utf3BytesChars+utf4BytesChars > 0) {
		return UTF8
	}
	if canBeShiftJIS && (sjisMaxKatakanaWordLength >= 3 || sjisMaxDoubleBytesWordLength >= 3) {
		return ShiftJIS
	}
	if canBeISO88591 && canBeShiftJIS {
		if (sjisMaxKatakanaWordLength == 2 && sjisKatakanaChars == 2) || isoHighOther*10 >= length {
			return ShiftJIS
		}
		return ISO8859_1
	}
	if canBeISO88591 {
		return ISO8859_1
	}
	if canBeShiftJIS {
		return ShiftJIS
	}
	return UTF8
}
