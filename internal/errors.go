package internal

import "errors"

var (
	// ErrChecksum is returned when a symbol's error-correction codewords
	// cannot reconcile the data codewords.
	ErrChecksum = errors.New("checksum error")

	// ErrFormat is returned when a symbol cannot be decoded due to a
	// structural or encoding violation.
	ErrFormat = errors.New("format error")
)
