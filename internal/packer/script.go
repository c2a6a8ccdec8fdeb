package packer

import (
	"github.com/google/cel-go/cel"
)

// scriptCostLimit bounds CEL evaluation "fuel" (spec.md §4.7: "bounded
// fuel, no I/O, no allocation beyond a fixed arena"). Every script-tier
// rule evaluates over a fixed, small features map; this limit is far
// above any legitimate expression's actual cost and exists only to cap
// pathological rule authoring.
const scriptCostLimit = 10_000

// Features is the fixed, flat set of already-computed signals a script-tier
// rule's CEL expression may reference (spec.md §4.7 supplement).
type Features struct {
	EntropyOverall float64
	SectionCount   int
	HasUPXSections bool
}

func (f Features) asCELMap() map[string]any {
	return map[string]any{
		"entropy_overall":   f.EntropyOverall,
		"section_count":     int64(f.SectionCount),
		"has_upx_sections": f.HasUPXSections,
	}
}

var scriptEnv *cel.Env

func init() {
	env, err := cel.NewEnv(cel.Variable("features", cel.MapType(cel.StringType, cel.DynType)))
	if err != nil {
		panic("packer: failed to build CEL environment: " + err.Error())
	}
	scriptEnv = env
}

// evaluateScript compiles and runs a rule's CEL expression against the
// given features, returning true (not an error) for any rule whose
// expression is empty — callers treat an empty CELExpr as "no script-tier
// refinement, tier-1/2 hit stands on its own".
func evaluateScript(expr string, features Features) (bool, error) {
	if expr == "" {
		return true, nil
	}
	ast, iss := scriptEnv.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return false, iss.Err()
	}
	prg, err := scriptEnv.Program(ast, cel.CostLimit(scriptCostLimit))
	if err != nil {
		return false, err
	}
	out, _, err := prg.Eval(map[string]any{"features": features.asCELMap()})
	if err != nil {
		return false, err
	}
	b, ok := out.Value().(bool)
	return ok && b, nil
}
