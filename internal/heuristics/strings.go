package heuristics

import (
	"github.com/hbollon/go-edlib"

	"github.com/glaurung-re/glaurung/internal/types"
)

const minPrintableRun = 4

// candidateMultiplier bounds how many raw candidate samples are collected
// per encoding before near-duplicate clustering trims them down to
// sampleCap, so clustering has something to collapse instead of the
// collection cap doing all the work.
const candidateMultiplier = 4

// duplicateSimilarity is the go-edlib Jaro-Winkler threshold above which
// two samples are treated as the same repeated string (spec.md §4.5's
// sample budget is meant to surface distinct strings, not N copies of a
// packer's padding string).
const duplicateSimilarity = 0.92

func isPrintableASCII(b byte) bool {
	return b >= 0x20 && b < 0x7F
}

// ScanStrings implements spec.md §4.5's bounded strings quick scan: ASCII
// runs of length >= 4, plus a zero-interleave heuristic for UTF-16LE/BE,
// near-duplicate clustered and capped at sampleCap samples total.
func ScanStrings(data []byte, sampleCap int) types.StringsSummary {
	var out types.StringsSummary
	candidateCap := sampleCap * candidateMultiplier

	scanASCII(data, candidateCap, &out)
	scanUTF16(data, candidateCap, &out, true)
	scanUTF16(data, candidateCap, &out, false)

	out.Samples, out.DuplicateClusters = dedupeSamples(out.Samples, sampleCap)
	return out
}

// dedupeSamples collapses near-duplicate samples (by Jaro-Winkler
// similarity of their text) before truncating to sampleCap, so the kept
// samples are diverse rather than N near-identical repeats of the same
// packer stub string. Returns the kept samples and the number collapsed.
func dedupeSamples(samples []types.StringSample, sampleCap int) ([]types.StringSample, int) {
	kept := make([]types.StringSample, 0, len(samples))
	duplicates := 0

	for _, s := range samples {
		if len(kept) >= sampleCap {
			break
		}
		if isNearDuplicate(s.Text, kept) {
			duplicates++
			continue
		}
		kept = append(kept, s)
	}
	// Anything never considered because kept already hit sampleCap still
	// counts toward the totals tracked separately (ASCIICount etc.), so it
	// isn't lost, only excluded from the Samples slice itself.
	return kept, duplicates
}

func isNearDuplicate(text string, kept []types.StringSample) bool {
	for _, k := range kept {
		if k.Text == text {
			return true
		}
		score, err := edlib.StringsSimilarity(text, k.Text, edlib.JaroWinkler)
		if err != nil {
			continue
		}
		if float64(score) >= duplicateSimilarity {
			return true
		}
	}
	return false
}

func scanASCII(data []byte, candidateCap int, out *types.StringsSummary) {
	runStart := -1
	flush := func(end int) {
		if runStart < 0 {
			return
		}
		length := end - runStart
		if length >= minPrintableRun {
			out.ASCIICount++
			if len(out.Samples) < candidateCap {
				out.Samples = append(out.Samples, types.StringSample{
					Text:     string(data[runStart:end]),
					Encoding: types.EncodingASCII,
					Offset:   int64(runStart),
				})
			}
		}
		runStart = -1
	}

	for i, b := range data {
		if isPrintableASCII(b) {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		flush(i)
	}
	flush(len(data))
}

// scanUTF16 looks for the zero-interleave pattern characteristic of
// UTF-16LE (low byte printable, high byte zero) or UTF-16BE (reversed).
func scanUTF16(data []byte, candidateCap int, out *types.StringsSummary, little bool) {
	encoding := types.EncodingUTF16BE
	if little {
		encoding = types.EncodingUTF16LE
	}

	runStart := -1
	runLen := 0
	flush := func(endOff int) {
		if runStart < 0 {
			return
		}
		if runLen >= minPrintableRun {
			if little {
				out.UTF16LECount++
			} else {
				out.UTF16BECount++
			}
			if len(out.Samples) < candidateCap {
				out.Samples = append(out.Samples, types.StringSample{
					Text:     decodeUTF16Run(data[runStart:endOff], little),
					Encoding: encoding,
					Offset:   int64(runStart),
				})
			}
		}
		runStart = -1
		runLen = 0
	}

	for i := 0; i+1 < len(data); i += 2 {
		var lo, hi byte
		if little {
			lo, hi = data[i], data[i+1]
		} else {
			hi, lo = data[i], data[i+1]
		}
		if hi == 0 && isPrintableASCII(lo) {
			if runStart < 0 {
				runStart = i
			}
			runLen++
			continue
		}
		flush(i)
	}
	flush(len(data))
}

func decodeUTF16Run(data []byte, little bool) string {
	out := make([]byte, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		if little {
			out = append(out, data[i])
		} else {
			out = append(out, data[i+1])
		}
	}
	return string(out)
}
