package parsers

import (
	"encoding/binary"

	"github.com/go-restruct/restruct"

	tregoerr "github.com/glaurung-re/glaurung/internal/errors"
	"github.com/glaurung-re/glaurung/internal/types"
)

const nomStage = "parsers.nom"

// nomAdapter decodes the same coherence-relevant header fields as the
// other adapters, but declaratively via go-restruct struct tags instead of
// imperative byte-offset reads, mirroring a parser-combinator's style: the
// struct shape *is* the grammar.
type nomAdapter struct{}

func (nomAdapter) Name() types.ParserName { return types.ParserNom }

func (nomAdapter) Applicable(format types.Format) bool {
	switch format {
	case types.FormatELF, types.FormatWasm:
		return true
	default:
		return false
	}
}

// elfIdent mirrors the first 16 bytes of an ELF header (e_ident), decoded
// declaratively to cross-check the class/data/version fields the bounded
// header validator already read imperatively.
type elfIdent struct {
	Magic   [4]byte `struct:"[4]byte"`
	Class   uint8   `struct:"uint8"`
	Data    uint8   `struct:"uint8"`
	Version uint8   `struct:"uint8"`
	ABI     uint8   `struct:"uint8"`
	Pad     [8]byte `struct:"[8]byte"`
}

type wasmPreambleStruct struct {
	Magic   [4]byte `struct:"[4]byte"`
	Version uint32  `struct:"uint32"`
}

func (nomAdapter) Parse(data []byte, format types.Format) (types.SymbolSummary, error) {
	switch format {
	case types.FormatELF:
		var ident elfIdent
		if err := restruct.Unpack(data, binary.LittleEndian, &ident); err != nil {
			return types.SymbolSummary{}, parserErr(tregoerr.ShortRead, nomStage, "elf ident decode failed: %v", err)
		}
		if ident.Magic != [4]byte{0x7F, 'E', 'L', 'F'} {
			return types.SymbolSummary{}, parserErr(tregoerr.BadMagic, nomStage, "e_ident magic mismatch")
		}
		if ident.Class != 1 && ident.Class != 2 {
			return types.SymbolSummary{}, parserErr(tregoerr.IncoherentFields, nomStage, "invalid ei_class %d", ident.Class)
		}
		return types.SymbolSummary{}, nil

	case types.FormatWasm:
		var preamble wasmPreambleStruct
		if err := restruct.Unpack(data, binary.LittleEndian, &preamble); err != nil {
			return types.SymbolSummary{}, parserErr(tregoerr.ShortRead, nomStage, "wasm preamble decode failed: %v", err)
		}
		if preamble.Magic != [4]byte{0x00, 0x61, 0x73, 0x6D} {
			return types.SymbolSummary{}, parserErr(tregoerr.BadMagic, nomStage, "wasm magic mismatch")
		}
		if preamble.Version != 1 {
			return types.SymbolSummary{}, parserErr(tregoerr.UnsupportedVariant, nomStage, "unsupported wasm version %d", preamble.Version)
		}
		return types.SymbolSummary{}, nil

	default:
		return types.SymbolSummary{}, parserErr(tregoerr.UnsupportedVariant, nomStage, "format %s not applicable", format)
	}
}
