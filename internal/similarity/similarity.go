package similarity

import (
	"github.com/glaslos/ssdeep"

	"github.com/glaurung-re/glaurung/internal/types"
)

// Build assembles spec.md §4.11's SimilarityInfo for one artifact: the
// authoritative CTPH digest, an advisory ssdeep-compatible cross-check
// digest (not used in scoring — see package doc), and the PE import-hash
// computed earlier by internal/parsers, passed through unchanged.
func Build(data []byte, imphash string) types.SimilarityInfo {
	info := types.SimilarityInfo{
		CTPH:    CTPH(data),
		Imphash: imphash,
	}
	if digest, err := ssdeep.FuzzyBytes(data); err == nil {
		info.SSDeepCrossCheck = digest
	}
	return info
}
