package types

import (
	"testing"

	tregoerr "github.com/glaurung-re/glaurung/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 1.0, ClampScore(5))
	assert.Equal(t, -1.0, ClampScore(-5))
	assert.Equal(t, 0.5, ClampScore(0.5))

	assert.Equal(t, 1.0, ClampConfidence(5))
	assert.Equal(t, 0.0, ClampConfidence(-5))
}

func TestSortVerdictsByConfidenceDesc(t *testing.T) {
	vs := []Verdict{
		{Format: FormatPE, Confidence: 0.5},
		{Format: FormatELF, Confidence: 0.9},
		{Format: FormatMachO, Confidence: 0.7},
	}
	SortVerdicts(vs)
	assert.Equal(t, FormatELF, vs[0].Format)
	assert.Equal(t, FormatMachO, vs[1].Format)
	assert.Equal(t, FormatPE, vs[2].Format)
}

func TestSortVerdictsTieBreakByCanonicalOrder(t *testing.T) {
	vs := []Verdict{
		{Format: FormatPE, Confidence: 0.8},
		{Format: FormatELF, Confidence: 0.8},
	}
	SortVerdicts(vs)
	assert.Equal(t, FormatELF, vs[0].Format)
	assert.Equal(t, FormatPE, vs[1].Format)
}

func TestBudgetInvariants(t *testing.T) {
	b := Budget{LimitBytes: 100, BytesRead: 100}
	assert.True(t, b.Exhausted())
	assert.Equal(t, int64(0), b.Remaining())

	b2 := Budget{MaxRecursionDepth: 1, RecursionDepth: 1}
	assert.False(t, b2.CanRecurse())
}

func TestArtifactAddVerdictClampsAndSorts(t *testing.T) {
	a := New("abc", 1)
	a.AddVerdict(Verdict{Format: FormatELF, Confidence: 1.5})
	a.AddVerdict(Verdict{Format: FormatPE, Confidence: 0.2})
	assert.Equal(t, 1.0, a.Verdicts[0].Confidence)
	assert.Equal(t, FormatELF, a.Verdicts[0].Format)
}

func TestArtifactHasFatalError(t *testing.T) {
	a := New("abc", 1)
	assert.False(t, a.HasFatalError())
	a.AddError(tregoerr.New(tregoerr.ShortRead, "budget", "short"))
	assert.False(t, a.HasFatalError())
	a.AddError(tregoerr.New(tregoerr.BudgetExceeded, "budget", "exceeded"))
	assert.True(t, a.HasFatalError())
}

func TestTopVerdict(t *testing.T) {
	a := New("abc", 1)
	assert.Nil(t, a.TopVerdict())
	a.AddVerdict(Verdict{Format: FormatELF, Confidence: 0.9})
	assert.Equal(t, FormatELF, a.TopVerdict().Format)
}
