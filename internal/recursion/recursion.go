// Package recursion implements the bounded child-artifact walk (spec.md
// §4.9): FAT Mach-O slices, overlay payloads recognized as containers, and
// in-place archive entries become children of the root TriagedArtifact.
// Descent happens strictly under the shared budget, and the DAG shape is
// guaranteed acyclic because every child offset is required to be forward
// within its parent's own byte range — there is no pointer-following that
// could loop back.
//
// This package takes the orchestrator's per-child analysis function as a
// parameter rather than depending on internal/orchestrator directly, which
// would otherwise create an import cycle (orchestrator needs to call into
// recursion to walk children it discovers).
package recursion

import (
	"fmt"

	tregoerr "github.com/glaurung-re/glaurung/internal/errors"
	"github.com/glaurung-re/glaurung/internal/types"
)

// Budget is the minimal recursion-bookkeeping contract recursion.Walk
// needs from internal/budget.Reader, kept narrow so this package doesn't
// need to import the concrete Reader type.
type Budget interface {
	EnterRecursion() bool
	ChildLimit(childCap int64) int64
}

// AnalyzeFunc runs the full pipeline over a child's byte slice and returns
// its artifact. Supplied by the orchestrator.
type AnalyzeFunc func(data []byte, byteCap int64) (*types.TriagedArtifact, *tregoerr.TriageError)

// DefaultChildByteCap bounds how many bytes a single child analysis may
// consume absent any tighter global remaining-budget constraint.
const DefaultChildByteCap = 8 * 1024 * 1024

// Walk descends into every child edge discovered by header validators and
// the container probe, skipping (with a diagnostic, not a panic or fatal
// abort) any edge that would violate the forward-offset invariant or that
// the budget can no longer afford. It returns the built child artifacts
// keyed by ContainerChild.ID and any diagnostics accumulated along the way.
func Walk(parentData []byte, b Budget, children []types.ContainerChild, analyze AnalyzeFunc) (map[string]*types.TriagedArtifact, []*tregoerr.TriageError) {
	out := make(map[string]*types.TriagedArtifact)
	var diags []*tregoerr.TriageError

	for _, child := range children {
		if child.Offset < 0 || child.Size < 0 || child.Offset+child.Size > int64(len(parentData)) {
			diags = append(diags, tregoerr.New(tregoerr.IncoherentFields, "recursion",
				"child %s offset/size %d/%d exceeds parent extent %d", child.ID, child.Offset, child.Size, len(parentData)))
			continue
		}
		if !b.EnterRecursion() {
			diags = append(diags, tregoerr.New(tregoerr.BudgetExceeded, "recursion",
				"max recursion depth reached before child %s", child.ID))
			break
		}

		childCap := b.ChildLimit(DefaultChildByteCap)
		slice := parentData[child.Offset : child.Offset+child.Size]

		artifact, tErr := analyze(slice, childCap)
		if tErr != nil {
			diags = append(diags, tErr)
		}
		if artifact != nil {
			out[child.ID] = artifact
		}
	}

	return out, diags
}

// ChildID builds a stable, human-readable child identifier from a parent
// id and edge, used when a caller constructs ContainerChild values that
// don't already carry a unique ID (e.g. overlay-as-container detection).
func ChildID(parentID, typeName string, offset int64) string {
	return fmt.Sprintf("%s/%s@%d", parentID, typeName, offset)
}
