// Package qrdecode provides a QR Code core decoder: format/version
// recovery, Reed-Solomon error correction, and segmented bitstream
// decoding per ISO/IEC 18004.
package qrdecode

import "github.com/qrscan/qrdecode/internal"

var (
	// ErrChecksum is returned when a symbol's error-correction codewords
	// cannot reconcile the data codewords.
	ErrChecksum = internal.ErrChecksum

	// ErrFormat is returned when a symbol cannot be decoded due to a
	// structural or encoding violation.
	ErrFormat = internal.ErrFormat
)
