package wire

import (
	"errors"
)

// Varint encoding/decoding errors, shared by the varint codec
// (varint_codec.go) and both ByteSource implementations.
var (
	ErrVarintOverflow = errors.New("varint overflow")
	ErrVarintTooLong  = errors.New("varint too long")
	ErrUnexpectedEOF  = errors.New("unexpected EOF while reading varint")
)
