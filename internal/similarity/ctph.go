// Package similarity implements the fuzzy-hashing primitives spec.md
// §4.11 asks for: a content-triggered piecewise hash (CTPH) as the
// authoritative similarity primitive, plus an advisory ssdeep-compatible
// cross-check digest and PE import-hash passthrough.
package similarity

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ctphSmallMax and ctphMediumMax are the size thresholds spec.md §4.11
// names for auto-selecting (W, D).
const (
	ctphSmallMax  = 16 * 1024
	ctphMediumMax = 1 * 1024 * 1024
)

// paramsFor returns (window, triggerBits) for data of the given size,
// per spec.md §4.11's size-tiered auto-selection.
func paramsFor(size int) (window, triggerBits int) {
	switch {
	case size < ctphSmallMax:
		return 8, 4
	case size < ctphMediumMax:
		return 16, 5
	default:
		return 32, 6
	}
}

// CTPH computes spec.md §4.11's content-triggered piecewise hash digest
// over data (or its bounded prefix, if the caller has already truncated
// it), in the form "<W>:<D>:<b1>:<b2>:...".
//
// The rolling trigger is a plain polynomial rolling hash over the last W
// bytes; a block boundary fires when the low D bits of the rolling state
// are all set (expected block size 2^D) or when a safety length of
// 64*W bytes is reached without a natural trigger, preventing pathological
// inputs (all-zero runs) from producing one enormous block.
func CTPH(data []byte) string {
	window, triggerBits := paramsFor(len(data))
	if len(data) == 0 {
		return fmtHeader(window, triggerBits)
	}

	const base uint64 = 257
	var basePowW uint64 = 1
	for i := 0; i < window; i++ {
		basePowW *= base
	}

	mask := uint64(1)<<uint(triggerBits) - 1
	safetyLen := window * 64

	var blocks []string
	var rolling uint64
	blockStart := 0

	for i := 0; i < len(data); i++ {
		rolling = rolling*base + uint64(data[i])
		if i >= window {
			rolling -= basePowW * uint64(data[i-window])
		}

		atTrigger := i >= window-1 && rolling&mask == mask
		blockLen := i - blockStart + 1
		atSafety := blockLen >= safetyLen
		isLast := i == len(data)-1

		if atTrigger || atSafety || isLast {
			blocks = append(blocks, blockDigest(data[blockStart:i+1]))
			blockStart = i + 1
			rolling = 0
		}
	}

	return fmtHeader(window, triggerBits) + ":" + strings.Join(blocks, ":")
}

func fmtHeader(window, triggerBits int) string {
	return strconv.Itoa(window) + ":" + strconv.Itoa(triggerBits)
}

// blockDigest reduces one CTPH block to a short, fixed-length token: the
// low 16 bits of an xxhash, hex-encoded to 4 characters. Full-width
// hashing per block would make digests unnecessarily long for a value
// whose only job is set-membership comparison (Jaccard over block sets).
func blockDigest(block []byte) string {
	sum := xxhash.Sum64(block)
	var b [2]byte
	b[0] = byte(sum)
	b[1] = byte(sum >> 8)
	return hex.EncodeToString(b[:])
}

// Similar computes the spec.md §4.11 Jaccard similarity between two CTPH
// digests. Digests with mismatched (W, D) headers are declared
// incomparable (score 0), as the spec requires, since their block
// granularities aren't commensurable.
func Similar(a, b string) float64 {
	headerA, blocksA, ok := splitDigest(a)
	headerB, blocksB, ok2 := splitDigest(b)
	if !ok || !ok2 || headerA != headerB {
		return 0
	}
	if len(blocksA) == 0 || len(blocksB) == 0 {
		return 0
	}

	setA := make(map[string]bool, len(blocksA))
	for _, t := range blocksA {
		setA[t] = true
	}
	setB := make(map[string]bool, len(blocksB))
	for _, t := range blocksB {
		setB[t] = true
	}

	inter := 0
	for t := range setA {
		if setB[t] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func splitDigest(digest string) (header string, blocks []string, ok bool) {
	parts := strings.Split(digest, ":")
	if len(parts) < 2 {
		return "", nil, false
	}
	return parts[0] + ":" + parts[1], parts[2:], true
}
