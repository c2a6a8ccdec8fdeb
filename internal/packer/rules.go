// Package packer implements the three-tier Packer Matcher (spec.md §4.7):
// a small set of hardcoded "compiled" signatures, a declarative rule table
// (rules.toml, this package's embedded runtime/script tiers) searched with
// a hand-rolled Aho-Corasick automaton, and a bounded CEL predicate that
// refines candidate hits using already-computed entropy/section features.
//
// Uses go-toml/v2 struct-tag marshaling for the declarative rule file and
// cel-go for the script tier's bounded predicate evaluation.
package packer

import (
	_ "embed"

	"github.com/pelletier/go-toml/v2"
)

//go:embed rules.toml
var rulesTOML []byte

// Tier is the packer-matcher vocabulary from spec.md §4.7.
type Tier string

const (
	TierCompiled Tier = "compiled"
	TierRuntime  Tier = "runtime"
	TierScript   Tier = "script"
)

// Rule is one declarative packer signature loaded from rules.toml.
type Rule struct {
	Name     string   `toml:"name"`
	Tier     string   `toml:"tier"`
	Patterns []string `toml:"patterns"`
	CELExpr  string   `toml:"cel_expr"`
}

type ruleFile struct {
	Rule []Rule `toml:"rule"`
}

// LoadRules parses the embedded rule table. It is called once at package
// init and cached; callers never need to re-parse it.
func LoadRules() ([]Rule, error) {
	var rf ruleFile
	if err := toml.Unmarshal(rulesTOML, &rf); err != nil {
		return nil, err
	}
	return rf.Rule, nil
}

var defaultRules []Rule

func init() {
	rules, err := LoadRules()
	if err != nil {
		// rules.toml is embedded at build time; a parse failure here is a
		// packaging bug, not a runtime condition to recover from per-call.
		panic("packer: embedded rules.toml failed to parse: " + err.Error())
	}
	defaultRules = rules
}
