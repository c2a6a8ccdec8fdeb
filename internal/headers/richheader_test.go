package headers

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildRichHeader encodes a valid Rich header structure starting at offset
// 0x80 so DecodeRichHeader's backward scan (bounded at 0x80) can find it.
func buildRichHeader(key uint32, entries [][2]uint32) []byte {
	b := make([]byte, 0x80+16+len(entries)*8+8)

	put := func(off int, v uint32) {
		binary.LittleEndian.PutUint32(b[off:], v^key)
	}

	off := 0x80
	put(off, binary.LittleEndian.Uint32(danSMarker[:]))
	put(off+4, 0)
	put(off+8, 0)
	put(off+12, 0)
	off += 16

	for _, e := range entries {
		// packed = productID (high 16) | buildID (low 16), matching
		// DecodeRichHeader's productID := packed>>16, buildID := packed&0xFFFF.
		packed := uint32(e[0])<<16 | uint32(e[1])
		put(off, packed)
		put(off+4, e[1])
		off += 8
	}

	copy(b[off:], richMarker[:])
	binary.LittleEndian.PutUint32(b[off+4:], key)

	return b
}

func TestDecodeRichHeaderRoundTrip(t *testing.T) {
	b := buildRichHeader(0xDEADBEEF, [][2]uint32{{5, 100}, {7, 200}})
	summary, ok := DecodeRichHeader(b, len(b))
	require.True(t, ok)
	require.Len(t, summary.Entries, 2)
	assert.Equal(t, uint16(5), summary.Entries[0].ProductID)
	assert.NotEmpty(t, summary.Hash)
}

func TestDecodeRichHeaderAbsent(t *testing.T) {
	b := make([]byte, 256)
	_, ok := DecodeRichHeader(b, len(b))
	assert.False(t, ok)
}

func TestFindRichHeaderLocatesMarker(t *testing.T) {
	b := buildRichHeader(0x1234, [][2]uint32{{1, 1}})
	off, found := FindRichHeader(b, len(b))
	assert.True(t, found)
	assert.Equal(t, 'R', rune(b[off]))
}
