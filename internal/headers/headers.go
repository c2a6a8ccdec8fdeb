// Package headers implements the Header Validators stage (spec.md §4.4):
// minimal bounded parsers for ELF, PE/COFF, Mach-O (incl. FAT), and Wasm
// that read only enough of the prefix (<= 4 KiB) to validate structural
// invariants and emit a candidate Verdict plus coherence signals. Every
// field read is bounds-checked against the available slice before use,
// and incoherence is reported as a diagnostic rather than a panic.
package headers

import (
	"encoding/binary"

	tregoerr "github.com/glaurung-re/glaurung/internal/errors"
	"github.com/glaurung-re/glaurung/internal/types"
)

const stage = "headers"

// MaxHeaderBytes bounds how much of the prefix a validator ever reads
// (spec.md §4.4: "reads only enough bytes (<= 4 KiB)").
const MaxHeaderBytes = 4096

// Result is one format validator's output: a candidate verdict (nil if the
// magic didn't match at all), the signals it raised, any diagnostic, and
// any FAT/archive-style children discovered (Mach-O FAT slices only).
type Result struct {
	Verdict  *types.Verdict
	Signals  []types.ConfidenceSignal
	Error    *tregoerr.TriageError
	Children []types.ContainerChild

	// HaveOverlayStart and OverlayStart are set only by ValidatePE, where the
	// section table yields a cheap bound on the last on-disk section end
	// (spec.md §4.3's overlay start). Other validators leave these zero.
	HaveOverlayStart bool
	OverlayStart     int64
}

// ValidateAll runs every format validator against the prefix and returns
// only the results that matched a magic number (so callers don't have to
// filter nil verdicts from formats that plainly don't apply).
func ValidateAll(prefix []byte) []Result {
	if len(prefix) > MaxHeaderBytes {
		prefix = prefix[:MaxHeaderBytes]
	}

	var out []Result
	for _, fn := range []func([]byte) Result{ValidateELF, ValidatePE, ValidateMachO, ValidateWasm} {
		r := fn(prefix)
		if r.Verdict != nil || r.Error != nil {
			out = append(out, r)
		}
	}
	return out
}

func le16(b []byte, off int) (uint16, bool) {
	if off+2 > len(b) {
		return 0, false
	}
	return binary.LittleEndian.Uint16(b[off:]), true
}

func le32(b []byte, off int) (uint32, bool) {
	if off+4 > len(b) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(b[off:]), true
}

func le64(b []byte, off int) (uint64, bool) {
	if off+8 > len(b) {
		return 0, false
	}
	return binary.LittleEndian.Uint64(b[off:]), true
}

func be32(b []byte, off int) (uint32, bool) {
	if off+4 > len(b) {
		return 0, false
	}
	return binary.BigEndian.Uint32(b[off:]), true
}
