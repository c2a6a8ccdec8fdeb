package containers

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeDetectsZip(t *testing.T) {
	b := []byte{'P', 'K', 0x03, 0x04, 0, 0, 0, 0}
	families, _, signals := Probe(b)
	require.Contains(t, families, FamilyZip)
	assert.NotEmpty(t, signals)
}

func TestProbeDetectsGzip(t *testing.T) {
	b := []byte{0x1F, 0x8B, 0x08, 0x00}
	families, _, _ := Probe(b)
	assert.Contains(t, families, FamilyGzip)
}

func TestProbeDetectsXZ(t *testing.T) {
	b := []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}
	families, _, _ := Probe(b)
	assert.Contains(t, families, FamilyXZ)
}

func TestProbeDetectsSevenZip(t *testing.T) {
	b := []byte{'7', 'z', 0xBC, 0xAF, 0x27, 0x1C}
	families, _, _ := Probe(b)
	assert.Contains(t, families, FamilySevenZip)
}

func TestProbeDetectsBzip2(t *testing.T) {
	b := []byte("BZh91AY&SY")
	families, _, _ := Probe(b)
	assert.Contains(t, families, FamilyBzip2)
}

func TestProbeDetectsZstd(t *testing.T) {
	b := []byte{0x28, 0xB5, 0x2F, 0xFD}
	families, _, _ := Probe(b)
	assert.Contains(t, families, FamilyZstd)
}

func TestProbeDetectsLZ4(t *testing.T) {
	b := []byte{0x04, 0x22, 0x4D, 0x18}
	families, _, _ := Probe(b)
	assert.Contains(t, families, FamilyLZ4)
}

func TestProbeDetectsAr(t *testing.T) {
	b := []byte("!<arch>\n")
	families, _, _ := Probe(b)
	assert.Contains(t, families, FamilyAr)
}

func TestProbeDetectsCpio(t *testing.T) {
	b := []byte("070701" + "00000000")
	families, _, _ := Probe(b)
	assert.Contains(t, families, FamilyCpio)
}

func TestProbeDetectsTarAtOffset257(t *testing.T) {
	b := make([]byte, 265)
	copy(b[257:], []byte("ustar"))
	families, _, _ := Probe(b)
	assert.Contains(t, families, FamilyTar)
}

func TestProbeDetectsISO9660(t *testing.T) {
	b := make([]byte, 0x8001+5)
	copy(b[0x8001:], []byte("CD001"))
	families, _, _ := Probe(b)
	assert.Contains(t, families, FamilyISO9660)
}

func TestProbeDetectsShebang(t *testing.T) {
	b := []byte("#!/bin/sh\necho hi\n")
	families, _, _ := Probe(b)
	assert.Contains(t, families, FamilyShebang)
}

func TestProbeNoFalsePositiveOnPlainText(t *testing.T) {
	b := []byte("hello world, this is plain ascii text")
	families, children, _ := Probe(b)
	assert.Empty(t, families)
	assert.Empty(t, children)
}

func TestProbeZipEntryProducesChild(t *testing.T) {
	b := make([]byte, 40)
	copy(b[0:4], []byte{'P', 'K', 0x03, 0x04})
	binary.LittleEndian.PutUint32(b[18:], 10) // compressed size
	binary.LittleEndian.PutUint16(b[26:], 4)  // file name length
	binary.LittleEndian.PutUint16(b[28:], 0)  // extra length
	_, children, _ := Probe(b)
	require.Len(t, children, 1)
	assert.Equal(t, int64(34), children[0].Offset)
	assert.Equal(t, int64(10), children[0].Size)
}

func TestGzipDeclaredSizeReadsTrailer(t *testing.T) {
	b := make([]byte, 20)
	copy(b[0:2], []byte{0x1F, 0x8B})
	binary.LittleEndian.PutUint32(b[len(b)-4:], 1234)
	size, ok := GzipDeclaredSize(b)
	require.True(t, ok)
	assert.Equal(t, uint32(1234), size)
}

func TestGzipDeclaredSizeRejectsNonGzip(t *testing.T) {
	_, ok := GzipDeclaredSize([]byte("not gzip"))
	assert.False(t, ok)
}

func TestOverlayComputesEntropyAndHash(t *testing.T) {
	data := make([]byte, 100)
	for i := range data {
		data[i] = byte(i)
	}
	ov := Overlay(data, 80, "zip")
	require.NotNil(t, ov)
	assert.Equal(t, int64(80), ov.Offset)
	assert.Equal(t, int64(20), ov.Size)
	assert.Equal(t, "zip", ov.DetectedFormatHint)
	assert.NotEmpty(t, ov.SHA256)
}

func TestOverlayNilWhenNoTrailingData(t *testing.T) {
	data := make([]byte, 50)
	ov := Overlay(data, 50, "")
	assert.Nil(t, ov)
}

func TestOverlayNilWhenKnownEndOutOfBounds(t *testing.T) {
	data := make([]byte, 10)
	assert.Nil(t, Overlay(data, 100, ""))
	assert.Nil(t, Overlay(data, -1, ""))
}

func TestHintForTailDetectsEmbeddedZip(t *testing.T) {
	tail := []byte{'P', 'K', 0x03, 0x04, 0, 0}
	assert.Equal(t, "zip", HintForTail(tail))
}

func TestHintForTailEmptyWhenNoMatch(t *testing.T) {
	assert.Equal(t, "", HintForTail([]byte("plain")))
}
