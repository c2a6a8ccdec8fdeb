// Package schema implements spec.md §6's "Artifact JSON": the canonical
// JSON Schema for TriagedArtifact, generated from the Go struct via
// reflection and pinned where the generator's output would otherwise leave
// spec-mandated invariants (required fields, an object-typed root) unstated.
//
// Hand-built *jsonschema.Schema literals work fine for a small, stable set
// of tool-input shapes; here the bulk of the shape comes from
// google/jsonschema-go's reflection generator instead, since
// TriagedArtifact is large enough that a hand-maintained schema would
// drift from the struct on every field addition.
package schema

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/glaurung-re/glaurung/internal/types"
)

var (
	once      sync.Once
	cached    *jsonschema.Schema
	cachedErr error
)

// requiredTopLevel are the TriagedArtifact fields spec.md §3 treats as
// always-present, regardless of what the reflection generator infers from
// omitempty tags.
var requiredTopLevel = []string{
	"id",
	"size_bytes",
	"hints",
	"verdicts",
	"budgets",
	"errors",
	"schema_version",
}

// ArtifactJSONSchema returns the canonical JSON Schema for TriagedArtifact.
// The schema is built once and cached; callers must not mutate the
// returned value.
func ArtifactJSONSchema() (*jsonschema.Schema, error) {
	once.Do(func() {
		s, err := jsonschema.For[types.TriagedArtifact](nil)
		if err != nil {
			cachedErr = fmt.Errorf("schema: generating TriagedArtifact schema: %w", err)
			return
		}
		pin(s)
		cached = s
	})
	return cached, cachedErr
}

// pin asserts the spec-mandated invariants the reflection generator alone
// doesn't guarantee: which top-level fields are required, and that the
// root schema actually describes a JSON object.
func pin(s *jsonschema.Schema) {
	if s.Type == "" {
		s.Type = "object"
	}
	seen := make(map[string]bool, len(s.Required))
	for _, r := range s.Required {
		seen[r] = true
	}
	for _, r := range requiredTopLevel {
		if _, ok := s.Properties[r]; !ok {
			continue
		}
		if !seen[r] {
			s.Required = append(s.Required, r)
			seen[r] = true
		}
	}
}

// Validate checks a marshaled TriagedArtifact document against the
// canonical schema, returning a descriptive error naming the first
// violation found. It re-marshals doc to a generic map first so this
// works equally for a *types.TriagedArtifact or for raw JSON bytes already
// decoded by a caller (e.g. the CLI's --json round-trip check).
func Validate(doc any) error {
	s, err := ArtifactJSONSchema()
	if err != nil {
		return err
	}
	resolved, err := s.Resolve(nil)
	if err != nil {
		return fmt.Errorf("schema: resolving schema: %w", err)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("schema: marshaling document: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("schema: unmarshaling document: %w", err)
	}

	if err := resolved.Validate(generic); err != nil {
		return fmt.Errorf("schema: document violates artifact schema: %w", err)
	}
	return nil
}
