package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadLengthPrefix_None(t *testing.T) {
	src := NewMemorySource([]byte{0x01, 0x02, 0x03})
	length, err := ReadLengthPrefix(src, PrefixNone)
	require.NoError(t, err)
	require.Equal(t, NoMessage, length)
	// PrefixNone never consumes anything; the whole buffer is still there.
	require.Equal(t, 3, src.RemainingInCurrent())
}

func TestReadLengthPrefix_Fixed32(t *testing.T) {
	src := NewMemorySource([]byte{0x05, 0x00, 0x00, 0x00, 0xAA, 0xBB, 0xCC, 0xDD, 0xEE})
	length, err := ReadLengthPrefix(src, PrefixFixed32)
	require.NoError(t, err)
	require.Equal(t, int64(5), length)
	require.Equal(t, 5, src.RemainingInCurrent())
}

func TestReadLengthPrefix_Fixed32BigEndian(t *testing.T) {
	src := NewMemorySource([]byte{0x00, 0x00, 0x00, 0x05, 0xAA})
	length, err := ReadLengthPrefix(src, PrefixFixed32BigEndian)
	require.NoError(t, err)
	require.Equal(t, int64(5), length)
}

func TestReadLengthPrefix_Base128_LengthOnly(t *testing.T) {
	// A bare varint length with no optional header tag in front of it.
	src := NewMemorySource([]byte{0xAC, 0x02})
	length, err := ReadLengthPrefix(src, PrefixBase128)
	require.NoError(t, err)
	require.Equal(t, int64(300), length)
	require.True(t, src.IsFullyConsumed())
}

func TestReadLengthPrefix_Base128_WithHeaderTag(t *testing.T) {
	// Field 1, WireBytes tag (0x0A), followed by a length varint of 5.
	src := NewMemorySource([]byte{0x0A, 0x05, 1, 2, 3, 4, 5})
	length, err := ReadLengthPrefix(src, PrefixBase128)
	require.NoError(t, err)
	require.Equal(t, int64(5), length)
	require.Equal(t, 5, src.RemainingInCurrent())
}

func TestReadLengthPrefix_CleanEndOfStream(t *testing.T) {
	src := NewMemorySource(nil)
	for _, style := range []PrefixStyle{PrefixBase128, PrefixFixed32, PrefixFixed32BigEndian} {
		length, err := ReadLengthPrefix(src, style)
		require.NoError(t, err)
		require.Equal(t, NoMessage, length)
	}
}

func TestReadLengthPrefix_TruncatedBase128(t *testing.T) {
	src := NewMemorySource([]byte{0x80})
	_, err := ReadLengthPrefix(src, PrefixBase128)
	require.ErrorIs(t, err, ErrTruncated)
}
