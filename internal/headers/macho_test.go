package headers

import (
	"encoding/binary"
	"testing"

	"github.com/glaurung-re/glaurung/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildThinMachO64() []byte {
	b := make([]byte, 32)
	binary.BigEndian.PutUint32(b[0:], machMagic64)
	binary.BigEndian.PutUint32(b[4:], 0x01000007) // CPU_TYPE_X86_64
	binary.BigEndian.PutUint32(b[8:], 0)
	binary.BigEndian.PutUint32(b[12:], 2) // MH_EXECUTE
	binary.BigEndian.PutUint32(b[16:], 10)
	binary.BigEndian.PutUint32(b[20:], 100)
	return b
}

func TestValidateMachOThinValid(t *testing.T) {
	b := buildThinMachO64()
	r := ValidateMachO(b)
	require.NotNil(t, r.Verdict)
	assert.Equal(t, types.FormatMachO, r.Verdict.Format)
	assert.Equal(t, types.ArchX86_64, r.Verdict.Arch)
	assert.Equal(t, types.Bits64, r.Verdict.Bits)
	assert.Nil(t, r.Error)
}

func TestValidateMachONotMachO(t *testing.T) {
	r := ValidateMachO([]byte("nope"))
	assert.Nil(t, r.Verdict)
}

func buildFatMachO(archCPUs []uint32) []byte {
	b := make([]byte, 8+len(archCPUs)*fatArchEntrySize)
	binary.BigEndian.PutUint32(b[0:], fatMagic)
	binary.BigEndian.PutUint32(b[4:], uint32(len(archCPUs)))
	off := 8
	sliceOff := uint32(0x1000)
	for _, cpu := range archCPUs {
		binary.BigEndian.PutUint32(b[off:], cpu)
		binary.BigEndian.PutUint32(b[off+4:], 0)
		binary.BigEndian.PutUint32(b[off+8:], sliceOff)
		binary.BigEndian.PutUint32(b[off+12:], 0x1000)
		binary.BigEndian.PutUint32(b[off+16:], 0)
		off += fatArchEntrySize
		sliceOff += 0x1000
	}
	return b
}

func TestValidateMachOFatProducesChildren(t *testing.T) {
	b := buildFatMachO([]uint32{0x01000007, 0x0100000C})
	r := ValidateMachO(b)
	require.NotNil(t, r.Verdict)
	assert.Len(t, r.Children, 2)
	assert.Equal(t, int64(0x1000), r.Children[0].Offset)
}

func TestValidateMachOFatImplausibleNfatArch(t *testing.T) {
	b := make([]byte, 8)
	binary.BigEndian.PutUint32(b[0:], fatMagic)
	binary.BigEndian.PutUint32(b[4:], 9999)
	r := ValidateMachO(b)
	require.NotNil(t, r.Error)
}
