package headers

import (
	"encoding/binary"
	"testing"

	"github.com/glaurung-re/glaurung/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPE64 constructs a minimal coherent PE32+ (x86_64) header.
func buildPE64() []byte {
	const lfanew = 0x80
	b := make([]byte, lfanew+0x100)
	b[0], b[1] = 'M', 'Z'
	binary.LittleEndian.PutUint32(b[0x3C:], lfanew)

	b[lfanew] = 'P'
	b[lfanew+1] = 'E'
	b[lfanew+2] = 0
	b[lfanew+3] = 0

	coff := lfanew + 4
	binary.LittleEndian.PutUint16(b[coff:], 0x8664) // Machine = AMD64
	binary.LittleEndian.PutUint16(b[coff+2:], 2)     // NumberOfSections
	binary.LittleEndian.PutUint16(b[coff+16:], 240)  // SizeOfOptionalHeader

	opt := coff + 20
	binary.LittleEndian.PutUint16(b[opt:], 0x20b) // PE32+ magic
	binary.LittleEndian.PutUint32(b[opt+56:], 0x10000) // SizeOfImage
	binary.LittleEndian.PutUint32(b[opt+60:], 0x400)   // SizeOfHeaders
	return b
}

func TestValidatePEValidX86_64(t *testing.T) {
	b := buildPE64()
	r := ValidatePE(b)
	require.NotNil(t, r.Verdict)
	assert.Equal(t, types.FormatPE, r.Verdict.Format)
	assert.Equal(t, types.ArchX86_64, r.Verdict.Arch)
	assert.Equal(t, types.Bits64, r.Verdict.Bits)
	assert.GreaterOrEqual(t, r.Verdict.Confidence, 0.85)
	assert.Nil(t, r.Error)
}

func TestValidatePENotPE(t *testing.T) {
	r := ValidatePE([]byte("definitely not a PE"))
	assert.Nil(t, r.Verdict)
}

func TestValidatePETruncatedBeforeLfanew(t *testing.T) {
	b := make([]byte, 16)
	b[0], b[1] = 'M', 'Z'
	r := ValidatePE(b)
	require.NotNil(t, r.Error)
}

func TestValidatePEBadSignature(t *testing.T) {
	b := buildPE64()
	b[0x80] = 'X'
	r := ValidatePE(b)
	require.NotNil(t, r.Error)
}

func TestValidatePEIncoherentSizeOfHeaders(t *testing.T) {
	b := buildPE64()
	opt := 0x80 + 4 + 20
	binary.LittleEndian.PutUint32(b[opt+60:], 0x999999) // SizeOfHeaders > SizeOfImage
	r := ValidatePE(b)
	require.NotNil(t, r.Error)
	assert.Less(t, r.Verdict.Confidence, 0.9)
}
