// Package heuristics implements the Heuristics stage (spec.md §4.5):
// endianness/architecture scoring and a bounded strings scan, activated
// when header validators are missing or inconclusive, via a
// frequency-table scan over a byte slice generalized from
// identifier-frequency statistics to opcode-byte-frequency statistics.
package heuristics

import (
	"github.com/glaurung-re/glaurung/internal/types"
)

const maxEndianSamples = 4096
const endianWindowBytes = 64 * 1024

// EndiannessGuess scores little-endian vs big-endian by sampling aligned
// 32-bit words from the prefix and counting how often the high-order bytes
// are zero (the pattern small integers produce in header-like fields).
// Returns the guessed endianness and a confidence signal name/score pair.
func EndiannessGuess(data []byte) (types.Endianness, types.ConfidenceSignal) {
	window := data
	if len(window) > endianWindowBytes {
		window = window[:endianWindowBytes]
	}

	var leScore, beScore int
	samples := 0
	for off := 0; off+4 <= len(window) && samples < maxEndianSamples; off += 4 {
		w := window[off : off+4]
		// LE plausibly-small integer: the two high bytes (indices 3 and 2) are zero.
		if w[3] == 0 && w[2] == 0 {
			leScore++
		}
		// BE plausibly-small integer: the two high bytes (indices 0 and 1) are zero.
		if w[0] == 0 && w[1] == 0 {
			beScore++
		}
		samples++
	}

	if samples == 0 {
		return types.LittleEndian, types.ConfidenceSignal{Name: "heuristic_endian_le", Score: 0}
	}

	if beScore > leScore {
		conf := types.ClampScore(float64(beScore-leScore) / float64(samples))
		return types.BigEndian, types.ConfidenceSignal{Name: "heuristic_endian_be", Score: conf}
	}
	conf := types.ClampScore(float64(leScore-beScore) / float64(samples))
	return types.LittleEndian, types.ConfidenceSignal{Name: "heuristic_endian_le", Score: conf}
}

// archProfile is a precomputed 256-byte histogram profile for an
// architecture's typical opcode-byte distribution. Populated once at
// process start (spec.md §9 "globals built once... read-only afterward")
// from coarse, well-known opcode-frequency facts rather than a trained
// corpus: common prefix/opcode bytes for each family are given elevated
// weight, everything else flat.
type archProfile struct {
	arch    types.Arch
	weights [256]float64
}

var archProfiles []archProfile

func init() {
	archProfiles = []archProfile{
		flatProfile(types.ArchX86, []byte{0x8B, 0x89, 0x83, 0xE8, 0xE9, 0x74, 0x75, 0xC3, 0x55, 0x90}),
		flatProfile(types.ArchX86_64, []byte{0x48, 0x4C, 0x41, 0x8B, 0x89, 0xE8, 0xE9, 0xC3, 0x55, 0x90}),
		flatProfile(types.ArchARM, []byte{0xE1, 0xE3, 0xE5, 0xEB, 0x00, 0x01, 0x02, 0x03}),
		flatProfile(types.ArchAArch64, []byte{0xD1, 0x91, 0xA9, 0xF9, 0x94, 0x14}),
		flatProfile(types.ArchMIPSEL, []byte{0x24, 0x27, 0x8F, 0xAF, 0x03, 0x00}),
		flatProfile(types.ArchMIPSEB, []byte{0x00, 0x24, 0x27, 0x8F, 0xAF, 0x03}),
		flatProfile(types.ArchRISCV, []byte{0x13, 0x17, 0x67, 0x6F, 0x63, 0x03}),
		flatProfile(types.ArchPPC, []byte{0x7C, 0x3C, 0x60, 0x48, 0x4B, 0x94}),
	}
}

// flatProfile builds a profile with elevated weight on the given common
// bytes and a small flat baseline everywhere else, so the cosine comparison
// degrades gracefully rather than producing a degenerate all-zero vector.
func flatProfile(arch types.Arch, common []byte) archProfile {
	p := archProfile{arch: arch}
	for i := range p.weights {
		p.weights[i] = 0.001
	}
	for _, b := range common {
		p.weights[b] += 1.0
	}
	return p
}

// histogram256 computes a normalized 256-byte frequency histogram of data.
func histogram256(data []byte) [256]float64 {
	var h [256]float64
	if len(data) == 0 {
		return h
	}
	for _, b := range data {
		h[b]++
	}
	n := float64(len(data))
	for i := range h {
		h[i] /= n
	}
	return h
}

// cosineSimilarity returns the cosine similarity of two 256-length vectors.
func cosineSimilarity(a, b [256]float64) float64 {
	var dot, na, nb float64
	for i := 0; i < 256; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (sqrt(na) * sqrt(nb))
}

func sqrt(x float64) float64 {
	if x <= 0 {
		return 0
	}
	// Newton's method; avoids importing math solely for one call site used
	// in a hot per-candidate comparison loop.
	z := x
	for i := 0; i < 32; i++ {
		z -= (z*z - x) / (2 * z)
	}
	return z
}

// ArchGuess compares the prefix's byte histogram against precomputed
// architecture profiles via cosine similarity and returns the best match
// plus a confidence signal, per spec.md §4.5.
func ArchGuess(data []byte) (types.Arch, types.ConfidenceSignal) {
	h := histogram256(data)

	best := types.ArchUnknown
	bestScore := -1.0
	for _, p := range archProfiles {
		score := cosineSimilarity(h, p.weights)
		if score > bestScore {
			bestScore = score
			best = p.arch
		}
	}
	if bestScore < 0 {
		bestScore = 0
	}
	return best, types.ConfidenceSignal{
		Name:  "heuristic_arch_" + string(best),
		Score: types.ClampScore(bestScore),
	}
}
