package scoring

import (
	"testing"

	"github.com/glaurung-re/glaurung/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyCrossCuttingAddsDeltaAndSignals(t *testing.T) {
	candidates := []types.Verdict{{Format: types.FormatELF, Confidence: 0.80}}
	crossCutting := []types.ConfidenceSignal{
		{Name: "parser_Object_ok", Score: 0.30},
		{Name: "sniffer_ext_mismatch", Score: SnifferMismatchPenalty},
	}
	out := ApplyCrossCutting(candidates, crossCutting)
	require.Len(t, out, 1)
	assert.InDelta(t, 1.0, out[0].Confidence, 0.001) // 0.80+0.30-0.10=1.00, clamped
	assert.Len(t, out[0].Signals, 2)
}

func TestApplyCrossCuttingClampsToZero(t *testing.T) {
	candidates := []types.Verdict{{Format: types.FormatELF, Confidence: 0.05}}
	out := ApplyCrossCutting(candidates, []types.ConfidenceSignal{{Name: "x", Score: -0.5}})
	assert.Equal(t, float64(0), out[0].Confidence)
}

func TestApplyCrossCuttingNoOpWhenEmpty(t *testing.T) {
	candidates := []types.Verdict{{Format: types.FormatELF, Confidence: 0.5}}
	out := ApplyCrossCutting(candidates, nil)
	assert.Equal(t, candidates, out)
}

func TestApplyPackerDominanceSetsLabelAndPenalizesTop(t *testing.T) {
	candidates := []types.Verdict{
		{Format: types.FormatPE, Confidence: 0.90},
		{Format: types.FormatELF, Confidence: 0.40},
	}
	packers := []types.PackerMatch{{Name: "upx", Confidence: 0.8, Tier: "runtime"}}
	out := ApplyPackerDominance(candidates, packers, 0)
	assert.Equal(t, "upx", out[0].PackedLabel)
	assert.InDelta(t, 0.80, out[0].Confidence, 0.001)
	assert.Empty(t, out[1].PackedLabel)
}

func TestApplyPackerDominanceUsesEntropyVerdictWhenNoPackerMatch(t *testing.T) {
	candidates := []types.Verdict{{Format: types.FormatPE, Confidence: 0.90}}
	out := ApplyPackerDominance(candidates, nil, 0.75)
	assert.Equal(t, "packed:unknown", out[0].PackedLabel)
}

func TestApplyPackerDominanceNoOpWhenNoEvidence(t *testing.T) {
	candidates := []types.Verdict{{Format: types.FormatPE, Confidence: 0.90}}
	out := ApplyPackerDominance(candidates, nil, 0.1)
	assert.Empty(t, out[0].PackedLabel)
	assert.Equal(t, 0.90, out[0].Confidence)
}

func TestRankBreaksTiesByConfirmingSignalCount(t *testing.T) {
	candidates := []types.Verdict{
		{Format: types.FormatPE, Confidence: 0.8, Signals: []types.ConfidenceSignal{{Name: "a", Score: 0.1}}},
		{Format: types.FormatELF, Confidence: 0.8, Signals: []types.ConfidenceSignal{
			{Name: "a", Score: 0.1}, {Name: "b", Score: 0.2},
		}},
	}
	Rank(candidates)
	assert.Equal(t, types.FormatELF, candidates[0].Format)
}

func TestRankFallsBackToCanonicalOrder(t *testing.T) {
	candidates := []types.Verdict{
		{Format: types.FormatPE, Confidence: 0.8},
		{Format: types.FormatELF, Confidence: 0.8},
	}
	Rank(candidates)
	assert.Equal(t, types.FormatELF, candidates[0].Format)
}
