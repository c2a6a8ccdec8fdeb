package headers

import (
	"encoding/binary"

	tregoerr "github.com/glaurung-re/glaurung/internal/errors"
	"github.com/glaurung-re/glaurung/internal/types"
)

var wasmPreamble = [4]byte{0x00, 0x61, 0x73, 0x6D} // "\0asm"

// ValidateWasm implements spec.md §4.4's Wasm validator: verify the 8-byte
// preamble and version field.
func ValidateWasm(prefix []byte) Result {
	if len(prefix) < 4 || prefix[0] != wasmPreamble[0] || prefix[1] != wasmPreamble[1] ||
		prefix[2] != wasmPreamble[2] || prefix[3] != wasmPreamble[3] {
		return Result{}
	}

	signals := []types.ConfidenceSignal{{Name: "wasm_magic", Score: 0.20}}

	if len(prefix) < 8 {
		return Result{
			Signals: signals,
			Error:   tregoerr.New(tregoerr.Truncated, stage, "Wasm version field truncated"),
			Verdict: &types.Verdict{Format: types.FormatWasm, Confidence: 0.2, Signals: signals},
		}
	}

	version := binary.LittleEndian.Uint32(prefix[4:8])
	confidence := 0.5
	var tErr *tregoerr.TriageError
	if version == 1 {
		signals = append(signals, types.ConfidenceSignal{Name: "wasm_coherent", Score: 0.40})
		confidence = 0.95
	} else {
		tErr = tregoerr.New(tregoerr.UnsupportedVariant, stage, "unrecognized Wasm version %d", version)
	}

	return Result{
		Verdict: &types.Verdict{
			Format:     types.FormatWasm,
			Arch:       types.ArchWasm32,
			Bits:       types.Bits32,
			Endianness: types.LittleEndian,
			Confidence: types.ClampConfidence(confidence),
			Signals:    signals,
		},
		Signals: signals,
		Error:   tErr,
	}
}
