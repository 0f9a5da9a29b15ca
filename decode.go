package qrdecode

import (
	"github.com/qrscan/qrdecode/bitutil"
	"github.com/qrscan/qrdecode/internal"
	"github.com/qrscan/qrdecode/qrcode/decoder"
)

// DecoderResult is the outcome of decoding a QR symbol.
type DecoderResult = internal.DecoderResult

// Decode parses a QR symbol out of bits and decodes its data codewords into
// text. hintedCharset is an optional IANA/Java-style encoding name (for
// example "UTF-8" or "Shift_JIS") used for BYTE-mode segments that carry no
// ECI designator; pass the empty string to disable the hint and fall back
// to heuristic guessing.
//
// bits is never mutated: Decode clones it internally, including across the
// mirrored retry, so decoding the same matrix repeatedly is safe and
// produces identical results.
func Decode(bits *bitutil.BitMatrix, hintedCharset string) (*DecoderResult, error) {
	return decoder.NewDecoder().Decode(bits, hintedCharset)
}
