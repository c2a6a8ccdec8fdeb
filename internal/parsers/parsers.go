// Package parsers implements the Structured Confirmation stage (spec.md
// §4.8): for a candidate format, one or more independent parsers attempt a
// full structural decode and report ok/mismatch plus a SymbolSummary.
// Agreement between independent parsers raises confidence (§4.12);
// disagreement is recorded as a ParserMismatch diagnostic.
//
// The stable ParserName vocabulary (Object, Goblin, PELite, Nom) is kept
// from spec.md §4.8 verbatim; this package maps each name onto a distinct
// Go implementation strategy rather than porting the named crate:
//   - Object — hand-written bounded structural parser (object.go).
//   - Goblin — stdlib debug/elf, debug/pe, debug/macho cross-check, plus
//     blacktop/go-macho for FAT Mach-O (goblin.go).
//   - PELite — PE-only minimal COFF/Optional-Header re-validation (pelite.go).
//   - Nom — struct-tag-driven decode via go-restruct (nom.go).
package parsers

import (
	tregoerr "github.com/glaurung-re/glaurung/internal/errors"
	"github.com/glaurung-re/glaurung/internal/types"
)

// Adapter is the shared parser-adapter contract (spec.md §4.8):
// parse(bytes, budget) -> Result<Summary, ParserError>. It never mutates
// data and never allocates unbounded import/export tables.
type Adapter interface {
	Name() types.ParserName
	// Applicable reports whether this adapter has anything to say about
	// format; adapters that don't apply are skipped rather than reporting
	// a spurious mismatch.
	Applicable(format types.Format) bool
	Parse(data []byte, format types.Format) (types.SymbolSummary, error)
}

const maxImportsExports = 4096

// adapters is the fixed set run for every candidate format; each decides
// for itself via Applicable whether it has anything to contribute.
var adapters = []Adapter{
	objectAdapter{},
	goblinAdapter{},
	peliteAdapter{},
	nomAdapter{},
}

// Run executes every applicable adapter against data for the given
// format, merging their SymbolSummary output (first successful parse
// supplies the base summary; later successes only fill unset fields) and
// emitting spec.md §4.8/§4.12 signals: parser_<name>_ok (+0.30),
// parser_<name>_mismatch (-0.10), plus a multi-parser agreement bonus
// capped at +0.10 for additional confirming parsers beyond the first.
func Run(data []byte, format types.Format) ([]types.ParserResult, types.SymbolSummary, []types.ConfidenceSignal) {
	var results []types.ParserResult
	var signals []types.ConfidenceSignal
	var summary types.SymbolSummary
	haveSummary := false
	okCount := 0

	for _, a := range adapters {
		if !a.Applicable(format) {
			continue
		}
		name := a.Name()
		s, err := a.Parse(data, format)
		if err != nil {
			results = append(results, types.ParserResult{Parser: name, OK: false, Error: err.Error()})
			signals = append(signals, types.ConfidenceSignal{
				Name:  "parser_" + string(name) + "_mismatch",
				Score: -0.10,
			})
			continue
		}
		results = append(results, types.ParserResult{Parser: name, OK: true})
		signals = append(signals, types.ConfidenceSignal{
			Name:  "parser_" + string(name) + "_ok",
			Score: 0.30,
		})
		okCount++
		if !haveSummary {
			summary = s
			haveSummary = true
		} else {
			summary = mergeSummary(summary, s)
		}
	}

	if okCount > 1 {
		bonus := types.ClampScore(0.05 * float64(okCount-1))
		if bonus > 0.10 {
			bonus = 0.10
		}
		signals = append(signals, types.ConfidenceSignal{Name: "parser_multi_agreement", Score: bonus})
	}

	return results, summary, signals
}

// mergeSummary fills zero-valued fields of base from other without
// overwriting anything base already reports, so the first successful
// parser's values win and a later parser only fills the count, entry
// section, imphash and suspicious-import fields left zero or empty.
func mergeSummary(base, other types.SymbolSummary) types.SymbolSummary {
	if base.ImportsCount == 0 {
		base.ImportsCount = other.ImportsCount
	}
	if base.ExportsCount == 0 {
		base.ExportsCount = other.ExportsCount
	}
	if base.LibsCount == 0 {
		base.LibsCount = other.LibsCount
	}
	if base.EntrySection == "" {
		base.EntrySection = other.EntrySection
	}
	if base.ImportHash == "" {
		base.ImportHash = other.ImportHash
	}
	if len(base.SuspiciousImports) == 0 {
		base.SuspiciousImports = other.SuspiciousImports
	}
	return base
}

func parserErr(kind tregoerr.Kind, stage, msg string) error {
	return tregoerr.New(kind, stage, msg)
}
