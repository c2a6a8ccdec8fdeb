// Package containers implements spec.md §4.3's Container/Overlay Probe:
// cheap magic detection for archive/compression formats and overlay
// (trailing-data-past-a-caller-supplied-extent) computation. It never
// unpacks an archive's contents; it only reads enough bytes to confirm a
// magic signature, the first zip local file header's compressed size
// (reported as a child entry), and gzip's ISIZE trailer (the uncompressed
// size mod 2^32).
//
// Grounded on internal/sniffers' magic-table style for the signature
// dispatch and internal/headers' Result-struct convention for callers.
package containers

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/glaurung-re/glaurung/internal/entropy"
	"github.com/glaurung-re/glaurung/internal/types"
)

// Family names the archive/compression kind a magic probe matched.
type Family string

const (
	FamilyZip        Family = "zip"
	FamilySevenZip   Family = "sevenzip"
	FamilyTar        Family = "tar"
	FamilyAr         Family = "ar"
	FamilyCpio       Family = "cpio"
	FamilyGzip       Family = "gzip"
	FamilyXZ         Family = "xz"
	FamilyBzip2      Family = "bzip2"
	FamilyZstd       Family = "zstd"
	FamilyLZ4        Family = "lz4"
	FamilyUEFICapsule Family = "uefi_capsule"
	FamilyISO9660    Family = "iso9660"
	FamilyShebang    Family = "shebang"
)

// magicSignature is a fixed-offset byte-prefix match.
type magicSignature struct {
	family Family
	offset int
	magic  []byte
}

// ueficapsuleGUID is the EFI_FIRMWARE_VOLUME capsule GUID's first bytes
// (little-endian GUID encoding) for the common UEFI capsule header layout.
var ueficapsuleGUID = []byte{0xBD, 0x86, 0x66, 0x3B, 0x76, 0x0D, 0x30, 0x40}

var signatures = []magicSignature{
	{FamilyZip, 0, []byte{'P', 'K', 0x03, 0x04}},
	{FamilyZip, 0, []byte{'P', 'K', 0x05, 0x06}}, // empty archive
	{FamilySevenZip, 0, []byte{'7', 'z', 0xBC, 0xAF, 0x27, 0x1C}},
	{FamilyAr, 0, []byte("!<arch>\n")},
	{FamilyTar, 257, []byte("ustar")},
	{FamilyGzip, 0, []byte{0x1F, 0x8B}},
	{FamilyXZ, 0, []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}},
	{FamilyBzip2, 0, []byte("BZh")},
	{FamilyZstd, 0, []byte{0x28, 0xB5, 0x2F, 0xFD}},
	{FamilyLZ4, 0, []byte{0x04, 0x22, 0x4D, 0x18}},
	{FamilyISO9660, 0x8001, []byte("CD001")},
	{FamilyUEFICapsule, 0, ueficapsuleGUID},
	{FamilyShebang, 0, []byte{'#', '!'}},
}

// cpioASCIIMagics covers the three ASCII cpio header magics ("070701"/
// "070702" new-style and "070707" old portable ASCII). The binary cpio
// format is not detected.
var cpioASCIIMagics = [][]byte{[]byte("070701"), []byte("070702"), []byte("070707")}

// Probe detects archive/compression container families within data's
// budgeted prefix and, when data starts with a zip local file header,
// reports that first entry as a zip_entry child. It performs no
// decompression and computes no overlay (see Overlay).
func Probe(data []byte) ([]Family, []types.ContainerChild, []types.ConfidenceSignal) {
	var families []Family
	var children []types.ContainerChild
	var signals []types.ConfidenceSignal

	for _, sig := range signatures {
		if matchAt(data, sig.offset, sig.magic) {
			families = append(families, sig.family)
			signals = append(signals, types.ConfidenceSignal{
				Name:  "container_" + string(sig.family) + "_magic",
				Score: 0.10,
			})
		}
	}
	if matchCpio(data) {
		families = append(families, FamilyCpio)
		signals = append(signals, types.ConfidenceSignal{Name: "container_cpio_magic", Score: 0.10})
	}

	if off, size, ok := zipEntryExtent(data); ok {
		children = append(children, types.ContainerChild{
			TypeName: "zip_entry",
			Offset:   int64(off),
			Size:     int64(size),
			ID:       "zip:0",
		})
	}

	return dedupFamilies(families), children, signals
}

// matchAt reports whether data[offset:offset+len(magic)] equals magic,
// treating an out-of-bounds offset as a non-match rather than a panic.
func matchAt(data []byte, offset int, magic []byte) bool {
	if offset < 0 || offset+len(magic) > len(data) {
		return false
	}
	for i, b := range magic {
		if data[offset+i] != b {
			return false
		}
	}
	return true
}

func matchCpio(data []byte) bool {
	for _, m := range cpioASCIIMagics {
		if matchAt(data, 0, m) {
			return true
		}
	}
	return false
}

func dedupFamilies(in []Family) []Family {
	seen := make(map[Family]bool, len(in))
	out := make([]Family, 0, len(in))
	for _, f := range in {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// zipEntryExtent reads the single-entry local file header compressed size
// (offset 18, 4 bytes LE) when the buffer begins with a zip local file
// header, giving a cheap bound on the first entry's on-disk extent without
// walking the central directory.
func zipEntryExtent(data []byte) (offset, size int, ok bool) {
	if !matchAt(data, 0, []byte{'P', 'K', 0x03, 0x04}) {
		return 0, 0, false
	}
	if len(data) < 30 {
		return 0, 0, false
	}
	compSize := binary.LittleEndian.Uint32(data[18:22])
	nameLen := binary.LittleEndian.Uint16(data[26:28])
	extraLen := binary.LittleEndian.Uint16(data[28:30])
	headerLen := 30 + int(nameLen) + int(extraLen)
	return headerLen, int(compSize), true
}

// GzipDeclaredSize reads the trailing 8-byte gzip member trailer (CRC32,
// ISIZE mod 2^32) for a buffer that both starts with the gzip magic and
// contains the full member; it is the only metadata recoverable without
// inflating the stream.
func GzipDeclaredSize(data []byte) (uint32, bool) {
	if !matchAt(data, 0, []byte{0x1F, 0x8B}) || len(data) < 18 {
		return 0, false
	}
	isize := binary.LittleEndian.Uint32(data[len(data)-4:])
	return isize, true
}

// Overlay computes spec.md §4.3's overlay metadata for the bytes of data
// past knownEnd, the last declared section/segment end a header validator
// reported. formatHint is an advisory label (e.g. a container family name
// detected within the trailing bytes, or "" when none matched).
func Overlay(data []byte, knownEnd int64, formatHint string) *types.OverlayInfo {
	if knownEnd < 0 || knownEnd >= int64(len(data)) {
		return nil
	}
	tail := data[knownEnd:]
	if len(tail) == 0 {
		return nil
	}
	sum := sha256.Sum256(tail)
	return &types.OverlayInfo{
		Offset:             knownEnd,
		Size:               int64(len(tail)),
		Entropy:            entropy.OfBytes(tail),
		SHA256:             hex.EncodeToString(sum[:]),
		DetectedFormatHint: formatHint,
	}
}

// HintForTail runs Probe over an overlay's tail bytes and returns the
// first detected family name, or "" if none of the magic probes matched.
func HintForTail(tail []byte) string {
	families, _, _ := Probe(tail)
	if len(families) == 0 {
		return ""
	}
	return string(families[0])
}
