package parsers

import (
	"encoding/binary"

	tregoerr "github.com/glaurung-re/glaurung/internal/errors"
	"github.com/glaurung-re/glaurung/internal/types"
)

const peliteStage = "parsers.pelite"

// peliteAdapter re-validates only the COFF/Optional-Header coherence
// fields, mirroring a lightweight PE-only parser's minimal-footprint
// philosophy: no section table, no import table, just a second opinion
// on the same few fields the header validator already read, phrased as an
// independent pass rather than reusing headers.ValidatePE's internals.
type peliteAdapter struct{}

func (peliteAdapter) Name() types.ParserName { return types.ParserPELite }

func (peliteAdapter) Applicable(format types.Format) bool { return format == types.FormatPE }

func (peliteAdapter) Parse(data []byte, format types.Format) (types.SymbolSummary, error) {
	if len(data) < 0x40 || data[0] != 'M' || data[1] != 'Z' {
		return types.SymbolSummary{}, parserErr(tregoerr.BadMagic, peliteStage, "missing MZ")
	}
	lfanew := binary.LittleEndian.Uint32(data[0x3C:])
	if uint64(lfanew)+24 > uint64(len(data)) {
		return types.SymbolSummary{}, parserErr(tregoerr.ShortRead, peliteStage, "e_lfanew out of bounds")
	}
	peOff := uint64(lfanew)
	if data[peOff] != 'P' || data[peOff+1] != 'E' {
		return types.SymbolSummary{}, parserErr(tregoerr.BadMagic, peliteStage, "missing PE signature")
	}
	coffOff := peOff + 4
	sizeOfOptHeader := binary.LittleEndian.Uint16(data[coffOff+16:])
	optOff := coffOff + 20
	if sizeOfOptHeader < 2 || optOff+2 > uint64(len(data)) {
		return types.SymbolSummary{}, parserErr(tregoerr.IncoherentFields, peliteStage, "optional header missing")
	}
	magic := binary.LittleEndian.Uint16(data[optOff:])
	if magic != 0x10b && magic != 0x20b {
		return types.SymbolSummary{}, parserErr(tregoerr.IncoherentFields, peliteStage, "unrecognized optional header magic 0x%x", magic)
	}
	return types.SymbolSummary{}, nil
}
