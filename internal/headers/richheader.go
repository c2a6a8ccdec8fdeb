package headers

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/glaurung-re/glaurung/internal/types"
)

var richMarker = [4]byte{'R', 'i', 'c', 'h'}
var danSMarker = [4]byte{'D', 'a', 'n', 'S'}

// FindRichHeader searches for the "Rich" marker from offset 0x80 up to
// peOff (the "PE\0\0" signature offset), per spec.md §4.10.
// Returns the marker's byte offset and whether it was found.
func FindRichHeader(prefix []byte, peOff int) (int, bool) {
	searchEnd := peOff
	if searchEnd > len(prefix) {
		searchEnd = len(prefix)
	}
	for i := 0x80; i+4 <= searchEnd; i++ {
		if prefix[i] == richMarker[0] && prefix[i+1] == richMarker[1] &&
			prefix[i+2] == richMarker[2] && prefix[i+3] == richMarker[3] {
			return i, true
		}
	}
	return 0, false
}

// DecodeRichHeader XOR-decrypts the entries preceding the "Rich" marker
// using the key stored immediately after it, walking backward until the
// "DanS" start-of-stream marker is found, per spec.md §4.10. Tolerates
// absence and malformed variants by returning ok=false rather than
// panicking or erroring — the caller treats a missing Rich header as
// merely "no summary", not a diagnostic.
func DecodeRichHeader(prefix []byte, peOff int) (types.RichHeaderSummary, bool) {
	richOff, found := FindRichHeader(prefix, peOff)
	if !found || richOff+8 > len(prefix) {
		return types.RichHeaderSummary{}, false
	}
	key := binary.LittleEndian.Uint32(prefix[richOff+4 : richOff+8])

	// Walk backward in 4-byte steps looking for the decrypted DanS marker.
	danSOff := -1
	for off := richOff - 4; off >= 0x80; off -= 4 {
		dec := binary.LittleEndian.Uint32(prefix[off:off+4]) ^ key
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], dec)
		if buf == danSMarker {
			danSOff = off
			break
		}
	}
	if danSOff < 0 {
		return types.RichHeaderSummary{}, false
	}

	// Three zero padding DWORDs follow DanS.
	entriesStart := danSOff + 16
	if entriesStart > richOff {
		return types.RichHeaderSummary{}, false
	}

	var entries []types.RichHeaderEntry
	hasher := sha256.New()
	for off := entriesStart; off+8 <= richOff; off += 8 {
		packed := binary.LittleEndian.Uint32(prefix[off:off+4]) ^ key
		count := binary.LittleEndian.Uint32(prefix[off+4:off+8]) ^ key
		productID := uint16(packed >> 16)
		buildID := uint16(packed & 0xFFFF)
		entries = append(entries, types.RichHeaderEntry{
			ProductID: productID,
			BuildID:   buildID,
			Count:     count,
		})
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], packed)
		hasher.Write(b[:])
		binary.LittleEndian.PutUint32(b[:], count)
		hasher.Write(b[:])
	}

	if len(entries) == 0 {
		return types.RichHeaderSummary{}, false
	}

	return types.RichHeaderSummary{
		Entries: entries,
		Hash:    hex.EncodeToString(hasher.Sum(nil)),
	}, true
}
