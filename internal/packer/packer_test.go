package packer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRulesParsesEmbeddedTable(t *testing.T) {
	rules, err := LoadRules()
	require.NoError(t, err)
	require.NotEmpty(t, rules)
	var names []string
	for _, r := range rules {
		names = append(names, r.Name)
	}
	assert.Contains(t, names, "upx")
	assert.Contains(t, names, "vmprotect")
}

func TestMatcherDetectsCompiledUPXSignature(t *testing.T) {
	m := NewMatcher()
	haystack := []byte("junkjunkUPX!morejunk")
	matches, signals := m.Match(haystack, Features{})
	require.NotEmpty(t, matches)
	found := false
	for _, mm := range matches {
		if mm.Name == "upx" && mm.Tier == string(TierCompiled) {
			found = true
		}
	}
	assert.True(t, found)
	assert.NotEmpty(t, signals)
}

func TestMatcherRuntimeTierFindsSectionName(t *testing.T) {
	m := NewMatcher()
	haystack := []byte("headerbytes.themida.winlicetrailer")
	matches, _ := m.Match(haystack, Features{EntropyOverall: 7.5, SectionCount: 3})
	found := false
	for _, mm := range matches {
		if mm.Name == "themida" {
			found = true
			assert.Greater(t, mm.Confidence, 0.6)
		}
	}
	assert.True(t, found)
}

func TestMatcherScriptTierLowersConfidenceWhenPredicateFails(t *testing.T) {
	m := NewMatcher()
	haystack := []byte("xx.vmp0yy")
	matches, _ := m.Match(haystack, Features{EntropyOverall: 2.0, SectionCount: 1})
	require.NotEmpty(t, matches)
	for _, mm := range matches {
		if mm.Name == "vmprotect" {
			assert.LessOrEqual(t, mm.Confidence, 0.5)
		}
	}
}

func TestMatcherScriptOnlyRuleDiscardedWhenPredicateFails(t *testing.T) {
	m := NewMatcher()
	haystack := []byte("NullsoftInst")
	matches, _ := m.Match(haystack, Features{EntropyOverall: 9.0, SectionCount: 0})
	for _, mm := range matches {
		assert.NotEqual(t, "nsis_installer", mm.Name)
	}
}

func TestMatcherNoMatchOnPlainData(t *testing.T) {
	m := NewMatcher()
	matches, signals := m.Match([]byte("perfectly ordinary ascii content"), Features{})
	assert.Empty(t, matches)
	assert.Empty(t, signals)
}

func TestAhoCorasickFindsMultiplePatternsInOnePass(t *testing.T) {
	ac := buildAC([][]byte{[]byte("UPX0"), []byte("UPX1"), []byte("zzz")})
	hits := ac.search([]byte("prefixUPX0middleUPX1suffix"))
	assert.Contains(t, hits, 0)
	assert.Contains(t, hits, 1)
	assert.NotContains(t, hits, 2)
}

func TestEvaluateScriptEmptyExprAlwaysTrue(t *testing.T) {
	ok, err := evaluateScript("", Features{})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateScriptEvaluatesFeatureExpression(t *testing.T) {
	ok, err := evaluateScript("features.entropy_overall > 7.0", Features{EntropyOverall: 7.9})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = evaluateScript("features.entropy_overall > 7.0", Features{EntropyOverall: 1.0})
	require.NoError(t, err)
	assert.False(t, ok)
}
