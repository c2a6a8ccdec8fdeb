package headers

import (
	"encoding/binary"
	"testing"

	"github.com/glaurung-re/glaurung/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateWasmValid(t *testing.T) {
	b := make([]byte, 8)
	copy(b[0:4], wasmPreamble[:])
	binary.LittleEndian.PutUint32(b[4:], 1)
	r := ValidateWasm(b)
	require.NotNil(t, r.Verdict)
	assert.Equal(t, types.FormatWasm, r.Verdict.Format)
	assert.GreaterOrEqual(t, r.Verdict.Confidence, 0.9)
	assert.Nil(t, r.Error)
}

func TestValidateWasmNotWasm(t *testing.T) {
	r := ValidateWasm([]byte("nope"))
	assert.Nil(t, r.Verdict)
}

func TestValidateWasmBadVersion(t *testing.T) {
	b := make([]byte, 8)
	copy(b[0:4], wasmPreamble[:])
	binary.LittleEndian.PutUint32(b[4:], 99)
	r := ValidateWasm(b)
	require.NotNil(t, r.Error)
}

func TestValidateWasmTruncated(t *testing.T) {
	b := make([]byte, 4)
	copy(b[0:4], wasmPreamble[:])
	r := ValidateWasm(b)
	require.NotNil(t, r.Error)
}
