package types

import (
	tregoerr "github.com/glaurung-re/glaurung/internal/errors"
)

// TriagedArtifact is the engine's root output entity (spec.md §3). It is
// created once per top-level input; children created by recursion share the
// same artifact tree via Containers but carry their own nested
// TriagedArtifact under ChildArtifacts. The orchestrator exclusively owns
// this value during a run and never mutates it after returning.
type TriagedArtifact struct {
	ID            string                    `json:"id"`
	Path          string                    `json:"path,omitempty"`
	SizeBytes     int64                     `json:"size_bytes"`
	SHA256        string                    `json:"sha256,omitempty"`
	Hints         []TriageHint              `json:"hints"`
	Verdicts      []Verdict                 `json:"verdicts"`
	Entropy       *float64                  `json:"entropy,omitempty"`
	EntropyAnalysis *EntropyAnalysis        `json:"entropy_analysis,omitempty"`
	Strings       *StringsSummary           `json:"strings,omitempty"`
	Symbols       *SymbolSummary            `json:"symbols,omitempty"`
	Packers       []PackerMatch             `json:"packers,omitempty"`
	Containers    []ContainerChild          `json:"containers,omitempty"`
	ChildArtifacts map[string]*TriagedArtifact `json:"child_artifacts,omitempty"`
	ParseStatus   []ParserResult            `json:"parse_status,omitempty"`
	Similarity    *SimilarityInfo           `json:"similarity,omitempty"`
	Overlay       *OverlayInfo              `json:"overlay,omitempty"`
	RichHeader    *RichHeaderSummary        `json:"rich_header,omitempty"`
	Budgets       Budget                    `json:"budgets"`
	Errors        []*tregoerr.TriageError   `json:"errors"`
	SchemaVersion int                       `json:"schema_version"`
	EngineVersion string                    `json:"engine_version,omitempty"`
	AnalysisMS    int64                     `json:"analysis_ms,omitempty"`
}

// New creates an empty, identity-bearing artifact. Callers fill in fields as
// stages run; the orchestrator is the only caller.
func New(id string, schemaVersion int) *TriagedArtifact {
	return &TriagedArtifact{
		ID:            id,
		Hints:         []TriageHint{},
		Verdicts:      []Verdict{},
		Errors:        []*tregoerr.TriageError{},
		SchemaVersion: schemaVersion,
	}
}

// AddError appends a non-nil diagnostic.
func (a *TriagedArtifact) AddError(e *tregoerr.TriageError) {
	if e != nil {
		a.Errors = append(a.Errors, e)
	}
}

// AddHint appends a sniffer hint.
func (a *TriagedArtifact) AddHint(h TriageHint) {
	a.Hints = append(a.Hints, h)
}

// AddVerdict appends a candidate verdict and re-sorts per spec.md §3.
func (a *TriagedArtifact) AddVerdict(v Verdict) {
	v.Confidence = ClampConfidence(v.Confidence)
	a.Verdicts = append(a.Verdicts, v)
	SortVerdicts(a.Verdicts)
}

// AddChild records a container/FAT-slice child edge and its nested artifact.
func (a *TriagedArtifact) AddChild(edge ContainerChild, child *TriagedArtifact) {
	a.Containers = append(a.Containers, edge)
	if a.ChildArtifacts == nil {
		a.ChildArtifacts = make(map[string]*TriagedArtifact)
	}
	a.ChildArtifacts[edge.ID] = child
}

// HasFatalError reports whether any accumulated error is run-level fatal.
func (a *TriagedArtifact) HasFatalError() bool {
	for _, e := range a.Errors {
		if e.Fatal() {
			return true
		}
	}
	return false
}

// TopVerdict returns the highest-confidence verdict, or nil if none exists.
func (a *TriagedArtifact) TopVerdict() *Verdict {
	if len(a.Verdicts) == 0 {
		return nil
	}
	return &a.Verdicts[0]
}
