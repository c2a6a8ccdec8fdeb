// Package scoring implements spec.md §4.12: aggregating every stage's
// ConfidenceSignals into final, ranked Verdicts.
//
// Header validators and heuristics already produce a candidate Verdict
// with an initial confidence and its own structural signals (headers.go's
// "elf_magic"/"elf_coherent" style). This package applies the remaining,
// cross-cutting signals — sniffer/extension disagreement, parser
// success/mismatch, multi-parser agreement, packer dominance — on top of
// those candidates, then re-ranks with spec.md §4.12's tie-break: higher
// confirming-signal count wins before falling back to canonical order.
package scoring

import (
	"github.com/glaurung-re/glaurung/internal/types"
)

// SnifferMismatchPenalty and ExtMismatchPenalty are spec.md §4.12's fixed
// disagreement penalties.
const (
	SnifferMismatchPenalty = -0.10
	ExtMismatchPenalty     = -0.15
	PackedConfidencePenalty = 0.10
)

// ApplyCrossCutting adds every cross-cutting signal's score to each
// candidate's confidence (clamped to [0,1]) and appends the signals to the
// candidate's own signal list, so the final artifact shows the full
// evidence trail for every verdict it reports.
func ApplyCrossCutting(candidates []types.Verdict, crossCutting []types.ConfidenceSignal) []types.Verdict {
	if len(crossCutting) == 0 {
		return candidates
	}
	var delta float64
	for _, s := range crossCutting {
		delta += s.Score
	}
	out := make([]types.Verdict, len(candidates))
	for i, c := range candidates {
		c.Signals = append(append([]types.ConfidenceSignal{}, c.Signals...), crossCutting...)
		c.Confidence = types.ClampConfidence(c.Confidence + delta)
		out[i] = c
	}
	return out
}

// ApplyPackerDominance implements spec.md §4.12's "entropy/packer
// dominance may add a secondary 'packed' label and lower confidence of
// inner classification accordingly": when a packer match or a high
// packed-indicator verdict is present, the top candidate gets a
// PackedLabel and a fixed confidence penalty (its structural identity is
// still correct, just less certain once packed).
func ApplyPackerDominance(candidates []types.Verdict, packers []types.PackerMatch, packedVerdict float64) []types.Verdict {
	if len(candidates) == 0 {
		return candidates
	}
	label := dominantLabel(packers, packedVerdict)
	if label == "" {
		return candidates
	}
	out := make([]types.Verdict, len(candidates))
	copy(out, candidates)
	out[0].PackedLabel = label
	out[0].Confidence = types.ClampConfidence(out[0].Confidence - PackedConfidencePenalty)
	return out
}

func dominantLabel(packers []types.PackerMatch, packedVerdict float64) string {
	best := ""
	bestConf := 0.0
	for _, p := range packers {
		if p.Confidence > bestConf {
			bestConf = p.Confidence
			best = p.Name
		}
	}
	if best != "" {
		return best
	}
	if packedVerdict >= 0.6 {
		return "packed:unknown"
	}
	return ""
}

// Rank sorts candidates by spec.md §4.12's tie-break order: confidence
// descending, then confirming-signal count (positive-score signals)
// descending, then canonical (format, arch) order.
func Rank(candidates []types.Verdict) {
	sortStable(candidates, func(a, b types.Verdict) bool {
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		ac, bc := confirmingCount(a.Signals), confirmingCount(b.Signals)
		if ac != bc {
			return ac > bc
		}
		if a.Format.CanonicalOrder() != b.Format.CanonicalOrder() {
			return a.Format.CanonicalOrder() < b.Format.CanonicalOrder()
		}
		return a.Arch.CanonicalOrder() < b.Arch.CanonicalOrder()
	})
}

func confirmingCount(signals []types.ConfidenceSignal) int {
	n := 0
	for _, s := range signals {
		if s.Score > 0 {
			n++
		}
	}
	return n
}

// sortStable is a small insertion sort, matching internal/types's own
// choice to avoid sort.Slice's reflection for these short verdict lists.
func sortStable(vs []types.Verdict, less func(a, b types.Verdict) bool) {
	for i := 1; i < len(vs); i++ {
		j := i
		for j > 0 && less(vs[j], vs[j-1]) {
			vs[j], vs[j-1] = vs[j-1], vs[j]
			j--
		}
	}
}
