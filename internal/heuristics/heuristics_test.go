package heuristics

import (
	"testing"

	"github.com/glaurung-re/glaurung/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestEndiannessGuessLittleEndian(t *testing.T) {
	data := make([]byte, 64)
	for i := 0; i+4 <= len(data); i += 4 {
		data[i] = byte(i)
		// high bytes zero -> LE-plausible
	}
	end, sig := EndiannessGuess(data)
	assert.Equal(t, types.LittleEndian, end)
	assert.Equal(t, "heuristic_endian_le", sig.Name)
}

func TestEndiannessGuessBigEndian(t *testing.T) {
	data := make([]byte, 64)
	for i := 0; i+4 <= len(data); i += 4 {
		data[i+3] = byte(i)
		// high bytes (index 0,1) zero -> BE-plausible
	}
	end, sig := EndiannessGuess(data)
	assert.Equal(t, types.BigEndian, end)
	assert.Equal(t, "heuristic_endian_be", sig.Name)
}

func TestEndiannessGuessEmptyData(t *testing.T) {
	end, sig := EndiannessGuess(nil)
	assert.Equal(t, types.LittleEndian, end)
	assert.Equal(t, 0.0, sig.Score)
}

func TestArchGuessReturnsSomeArch(t *testing.T) {
	data := []byte{0x48, 0x89, 0xE5, 0x48, 0x83, 0xEC, 0x10, 0xC3, 0x55, 0x90}
	arch, sig := ArchGuess(data)
	assert.NotEqual(t, types.ArchUnknown, arch)
	assert.GreaterOrEqual(t, sig.Score, -1.0)
	assert.LessOrEqual(t, sig.Score, 1.0)
}

func TestScanStringsASCII(t *testing.T) {
	data := []byte("\x00\x00hello world\x00\x00ab\x00this is a test\x00")
	s := ScanStrings(data, 10)
	assert.GreaterOrEqual(t, s.ASCIICount, 2)
}

func TestScanStringsSkipsShortRuns(t *testing.T) {
	data := []byte("\x00ab\x00") // run length 2, below minPrintableRun
	s := ScanStrings(data, 10)
	assert.Equal(t, 0, s.ASCIICount)
}

func TestScanStringsUTF16LE(t *testing.T) {
	data := []byte{'h', 0, 'i', 0, '!', 0, 'x', 0, 0, 0}
	s := ScanStrings(data, 10)
	assert.Equal(t, 1, s.UTF16LECount)
}

func TestScanStringsRespectsSampleCap(t *testing.T) {
	data := []byte("aaaa\x00bbbb\x00cccc\x00dddd\x00")
	s := ScanStrings(data, 2)
	assert.LessOrEqual(t, len(s.Samples), 2)
}

func TestScanStringsCollapsesNearDuplicates(t *testing.T) {
	// Four near-identical padding strings followed by one distinct string;
	// clustering should collapse the repeats rather than let them crowd
	// the one distinct sample out of a small cap.
	data := []byte("paddingAAAA\x00paddingAAAB\x00paddingAAAC\x00paddingAAAD\x00distinctvalue\x00")
	s := ScanStrings(data, 2)
	assert.LessOrEqual(t, len(s.Samples), 2)
	assert.Greater(t, s.DuplicateClusters, 0)

	found := false
	for _, sample := range s.Samples {
		if sample.Text == "distinctvalue" {
			found = true
		}
	}
	assert.True(t, found, "distinct sample should survive clustering of near-duplicate padding strings")
}
