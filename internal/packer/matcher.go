package packer

import (
	"github.com/glaurung-re/glaurung/internal/types"
)

// compiledSignature is a tier-1 hardcoded packer indicator: a fixed byte
// string checked with a plain substring scan rather than going through the
// declarative Aho-Corasick tier, mirroring spec.md §4.7's "statically
// built patterns (e.g., UPX section names/offsets)".
type compiledSignature struct {
	name    string
	pattern []byte
}

var compiledSignatures = []compiledSignature{
	{"upx", []byte("UPX!")},
	{"aspack", []byte(".aspack")},
}

// Matcher runs the compiled, runtime, and script tiers over an artifact's
// prefix (and optional overlay bytes), per spec.md §4.7.
type Matcher struct {
	ac    *acAutomaton
	rules []Rule
}

// NewMatcher builds the Aho-Corasick automaton over every runtime/script
// tier rule's patterns, from the embedded rule table.
func NewMatcher() *Matcher {
	return newMatcherFromRules(defaultRules)
}

func newMatcherFromRules(rules []Rule) *Matcher {
	var patterns [][]byte
	var ruleForPattern []int
	for ri, r := range rules {
		if r.Tier == string(TierCompiled) {
			continue
		}
		for _, p := range r.Patterns {
			patterns = append(patterns, []byte(p))
			ruleForPattern = append(ruleForPattern, ri)
		}
	}
	m := &Matcher{rules: rules}
	m.ac = buildACWithRuleMap(patterns, ruleForPattern)
	return m
}

// buildACWithRuleMap is a thin wrapper that keeps the pattern->rule index
// mapping alongside the automaton build, since buildAC itself is agnostic
// to what a pattern index "means" to the caller.
func buildACWithRuleMap(patterns [][]byte, ruleForPattern []int) *acAutomaton {
	ac := buildAC(patterns)
	ac.ruleForPattern = ruleForPattern
	return ac
}

// Match scans haystack (typically the artifact prefix concatenated with
// any overlay bytes) for compiled and runtime-tier signatures, then runs
// the script tier over every runtime hit's owning rule to refine it.
// Each surviving hit becomes one types.PackerMatch plus a packer_<name>
// signal, per spec.md §4.7.
func (m *Matcher) Match(haystack []byte, features Features) ([]types.PackerMatch, []types.ConfidenceSignal) {
	var matches []types.PackerMatch
	var signals []types.ConfidenceSignal
	seen := make(map[string]bool)

	for _, sig := range compiledSignatures {
		if containsBytes(haystack, sig.pattern) {
			if seen[sig.name] {
				continue
			}
			seen[sig.name] = true
			matches = append(matches, types.PackerMatch{Name: sig.name, Confidence: 0.55, Tier: string(TierCompiled)})
			signals = append(signals, types.ConfidenceSignal{Name: "packer_" + sig.name, Score: 0.25})
		}
	}

	hits := m.ac.search(haystack)
	ruleHit := make(map[int]bool)
	for patternIdx := range hits {
		ruleHit[m.ac.ruleForPattern[patternIdx]] = true
	}

	for ri := range ruleHit {
		r := m.rules[ri]
		if seen[r.Name] {
			continue
		}
		confidence := 0.60
		ok, err := evaluateScript(r.CELExpr, features)
		if err != nil || !ok {
			// A failing or false script-tier predicate doesn't discard the
			// runtime hit; it just caps confidence, since the pattern
			// evidence alone is still meaningful (spec.md §4.7 tier 3 is a
			// refinement, not a gate, except where the rule is script-only).
			if r.Tier == string(TierScript) {
				continue
			}
			confidence = 0.45
		} else if r.CELExpr != "" {
			confidence = 0.80
		}
		seen[r.Name] = true
		matches = append(matches, types.PackerMatch{Name: r.Name, Confidence: confidence, Tier: r.Tier})
		signals = append(signals, types.ConfidenceSignal{Name: "packer_" + r.Name, Score: 0.25})
	}

	return matches, signals
}

func containsBytes(haystack, needle []byte) bool {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return false
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
