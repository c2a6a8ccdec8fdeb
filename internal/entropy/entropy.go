// Package entropy implements the Entropy stage (spec.md §4.6): overall and
// windowed Shannon entropy, classification bands, and packed-payload
// indicators, using a windowed-aggregate shape (mean/std-dev/min/max over
// a slice) generalized to byte-distribution statistics.
package entropy

import (
	"math"

	"github.com/glaurung-re/glaurung/internal/types"
)

// OfBytes returns the Shannon entropy of data in bits/byte, in [0, 8].
// Matches spec.md §4.6/§8 exactly: 0 for an all-zero buffer, approaching 8
// for uniform random data as length grows.
func OfBytes(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}
	var counts [256]int
	for _, b := range data {
		counts[b]++
	}
	n := float64(len(data))
	var h float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	return h
}

// windowOf computes entropy over data[start:start+size], clamped to len(data).
func windowOf(data []byte, start, size int) float64 {
	end := start + size
	if end > len(data) {
		end = len(data)
	}
	if start >= end {
		return 0
	}
	return OfBytes(data[start:end])
}

// Compute implements spec.md §6's `compute_entropy(bytes, window_size, step,
// max_windows, overall?, header_size)`: overall entropy plus up to
// max_windows sliding windows of windowSize stepped by step, with derived
// mean/std-dev/min/max. step <= 0 defaults to windowSize; windowSize <= 0
// (or empty data) yields only the overall value, with no windows.
func Compute(data []byte, windowSize, step, maxWindows int) types.EntropySummary {
	overall := OfBytes(data)
	s := types.EntropySummary{
		Overall:    &overall,
		WindowSize: &windowSize,
	}
	if windowSize <= 0 || len(data) == 0 {
		return s
	}
	if step <= 0 {
		step = windowSize
	}

	for start := 0; start < len(data) && len(s.Windows) < maxWindows; start += step {
		s.Windows = append(s.Windows, windowOf(data, start, windowSize))
	}

	if len(s.Windows) == 0 {
		return s
	}

	sum := 0.0
	min, max := s.Windows[0], s.Windows[0]
	for _, w := range s.Windows {
		sum += w
		if w < min {
			min = w
		}
		if w > max {
			max = w
		}
	}
	mean := sum / float64(len(s.Windows))

	var variance float64
	for _, w := range s.Windows {
		d := w - mean
		variance += d * d
	}
	variance /= float64(len(s.Windows))
	stdDev := math.Sqrt(variance)

	s.Mean = &mean
	s.StdDev = &stdDev
	s.Min = &min
	s.Max = &max
	return s
}

// Classify maps an overall entropy value to a band per spec.md §4.6's
// boundaries: text <5.5; code 5.5-6.5; compressed 6.5-7.5; encrypted
// 7.5-~8; random ~8.
func Classify(overall float64) types.EntropyClass {
	switch {
	case overall < 5.5:
		return types.EntropyText
	case overall < 6.5:
		return types.EntropyCode
	case overall < 7.5:
		return types.EntropyCompressed
	case overall < 7.9:
		return types.EntropyEncrypted
	default:
		return types.EntropyRandom
	}
}

const (
	lowHeaderThreshold  = 5.0
	highBodyThreshold   = 7.3
	cliffDeltaThreshold = 2.0
	headerWindowBytes   = 4096
)

// Analyze builds the full EntropyAnalysis per spec.md §4.6: windowed
// summary, classification band, packed indicators, and anomaly list.
func Analyze(data []byte, windowSize, step, maxWindows int) types.EntropyAnalysis {
	summary := Compute(data, windowSize, step, maxWindows)
	a := types.EntropyAnalysis{
		Summary:        summary,
		Classification: Classify(*summary.Overall),
	}

	headerEntropy := windowOf(data, 0, headerWindowBytes)
	a.PackedIndicators.HasLowEntropyHeader = len(data) > 0 && headerEntropy < lowHeaderThreshold

	for i, w := range summary.Windows {
		// Skip the header window itself when comparing "body" windows so a
		// legitimately low-entropy header doesn't get double-counted as body.
		if i == 0 && windowSize >= headerWindowBytes {
			continue
		}
		if w >= highBodyThreshold {
			a.PackedIndicators.HasHighEntropyBody = true
		}
		if i > 0 {
			delta := w - summary.Windows[i-1]
			if math.Abs(delta) >= cliffDeltaThreshold {
				idx := i
				if a.PackedIndicators.EntropyCliff == nil {
					a.PackedIndicators.EntropyCliff = &idx
				}
				a.Anomalies = append(a.Anomalies, types.EntropyAnomaly{Index: i, From: summary.Windows[i-1], To: w, Delta: delta})
			}
		}
	}

	a.PackedIndicators.Verdict = packedVerdict(a.PackedIndicators)
	return a
}

// packedVerdict normalizes the boolean/positional indicators into a single
// [0,1] score, weighting the low-header+high-body combination (the classic
// packer signature) most heavily.
func packedVerdict(p types.PackedIndicators) float64 {
	var v float64
	if p.HasLowEntropyHeader {
		v += 0.3
	}
	if p.HasHighEntropyBody {
		v += 0.3
	}
	if p.HasLowEntropyHeader && p.HasHighEntropyBody {
		v += 0.3
	}
	if p.EntropyCliff != nil {
		v += 0.1
	}
	if v > 1 {
		v = 1
	}
	return v
}
