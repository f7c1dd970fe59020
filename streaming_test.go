package protolite

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gowire/protolite/wire"
)

// chunkProducer feeds a fixed sequence of byte chunks one Refill call at a
// time, then reports io.EOF.
type chunkProducer struct {
	chunks [][]byte
	idx    int
}

func (c *chunkProducer) Refill(ctx context.Context) ([]byte, error) {
	if c.idx >= len(c.chunks) {
		return nil, io.EOF
	}
	chunk := c.chunks[c.idx]
	c.idx++
	return chunk, nil
}

func TestDecodeStreamSync_SingleVarintField(t *testing.T) {
	body := []byte{0x08, 0x96, 0x01}
	r := bytes.NewReader(body)

	fields, err := DecodeStreamSync(r, wire.PrefixNone, wire.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, fields, 1)
	require.EqualValues(t, 1, fields[0].Number)
	require.Equal(t, wire.WireVarint, fields[0].WireType)
	require.Equal(t, uint64(150), fields[0].Scalar)
}

func TestDecodeStreamSync_LengthDelimitedString(t *testing.T) {
	body := []byte{0x12, 0x07, 0x74, 0x65, 0x73, 0x74, 0x69, 0x6E, 0x67}
	r := bytes.NewReader(body)

	fields, err := DecodeStreamSync(r, wire.PrefixNone, wire.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, fields, 1)
	require.EqualValues(t, 2, fields[0].Number)
	require.Equal(t, wire.WireBytes, fields[0].WireType)
	require.Equal(t, []byte("testing"), fields[0].Scalar)
	// Schema-less: "testing" doesn't parse as a well-formed nested message
	// (or does, but leaves bytes unconsumed), so the sub-decode is rejected
	// and Nested stays empty rather than reporting garbage fields.
	require.Empty(t, fields[0].Nested)
}

func TestDecodeStreamSync_NestedMessage(t *testing.T) {
	body := []byte{0x1A, 0x03, 0x08, 0x96, 0x01}
	r := bytes.NewReader(body)

	fields, err := DecodeStreamSync(r, wire.PrefixNone, wire.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, fields, 1)
	require.EqualValues(t, 3, fields[0].Number)
	require.Equal(t, wire.WireBytes, fields[0].WireType)
	require.Len(t, fields[0].Nested, 1)
	require.EqualValues(t, 1, fields[0].Nested[0].Number)
	require.Equal(t, uint64(150), fields[0].Nested[0].Scalar)
}

func TestDecodeStreamSync_UnknownFieldReported(t *testing.T) {
	body := []byte{0x28, 0x2A, 0x08, 0x96, 0x01}
	r := bytes.NewReader(body)

	fields, err := DecodeStreamSync(r, wire.PrefixNone, wire.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, fields, 2)
	require.EqualValues(t, 5, fields[0].Number)
	require.EqualValues(t, 1, fields[1].Number)
	require.Equal(t, uint64(150), fields[1].Scalar)
}

func TestDecodeStreamSync_Fixed32PrefixedFrame(t *testing.T) {
	// Length prefix (5, little-endian fixed32) followed by the nested-message
	// scenario, to exercise a framed multi-byte decode that nests through
	// WireBytes.
	frame := []byte{0x1A, 0x03, 0x08, 0x96, 0x01}
	prefix := []byte{byte(len(frame)), 0, 0, 0}
	r := bytes.NewReader(append(prefix, frame...))

	fields, err := DecodeStreamSync(r, wire.PrefixFixed32, wire.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, fields, 1)
	require.Len(t, fields[0].Nested, 1)
	require.Equal(t, uint64(150), fields[0].Nested[0].Scalar)
}

func TestDecodeFrameFromSource_MultipleFramesOverPipe(t *testing.T) {
	// Two base-128-prefixed frames back to back, each containing a nested
	// message — the shape cmd/wirestream drives per connection.
	frame := []byte{0x1A, 0x03, 0x08, 0x96, 0x01}
	var stream []byte
	stream = append(stream, byte(len(frame)))
	stream = append(stream, frame...)
	stream = append(stream, byte(len(frame)))
	stream = append(stream, frame...)

	producer := &chunkProducer{chunks: [][]byte{stream}}
	src := wire.NewPipeSource(context.Background(), producer, 4)

	for i := 0; i < 2; i++ {
		fields, err := DecodeFrameFromSource(src, wire.PrefixBase128, wire.DefaultOptions())
		require.NoError(t, err)
		require.Len(t, fields, 1)
		require.Len(t, fields[0].Nested, 1)
		require.Equal(t, uint64(150), fields[0].Nested[0].Scalar)
	}

	_, err := DecodeFrameFromSource(src, wire.PrefixBase128, wire.DefaultOptions())
	require.ErrorIs(t, err, io.EOF)
}
