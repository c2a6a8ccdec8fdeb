package parsers

import (
	"encoding/binary"

	tregoerr "github.com/glaurung-re/glaurung/internal/errors"
	"github.com/glaurung-re/glaurung/internal/types"
)

const objectStage = "parsers.object"

// objectAdapter is the primary hand-written structural parser: a bounded,
// offset-driven re-walk of section/symbol tables grounded in the same
// style as internal/headers (no reflection, no stdlib debug/* packages),
// serving as the first independent confirmation of a header validator's
// candidate format.
type objectAdapter struct{}

func (objectAdapter) Name() types.ParserName { return types.ParserObject }

func (objectAdapter) Applicable(format types.Format) bool {
	return format == types.FormatELF || format == types.FormatPE
}

func (objectAdapter) Parse(data []byte, format types.Format) (types.SymbolSummary, error) {
	switch format {
	case types.FormatELF:
		return parseELFObject(data)
	case types.FormatPE:
		return parsePEObject(data)
	default:
		return types.SymbolSummary{}, parserErr(tregoerr.UnsupportedVariant, objectStage, "format %s not applicable", format)
	}
}

// parseELFObject walks the ELF section header table to count sections
// named ".dynsym"/".symtab" (approximating imports/exports by dynamic vs.
// static symbol table presence) and detects a stripped binary as the
// absence of both. It bounds the section count it will ever walk.
func parseELFObject(data []byte) (types.SymbolSummary, error) {
	if len(data) < 64 {
		return types.SymbolSummary{}, parserErr(tregoerr.ShortRead, objectStage, "ELF header truncated")
	}
	is64 := data[4] == 2
	le := data[5] == 1
	if !le {
		return types.SymbolSummary{}, parserErr(tregoerr.UnsupportedVariant, objectStage, "big-endian ELF object parse not implemented")
	}

	var shoff uint64
	var shentsize, shnum, shstrndx uint16
	if is64 {
		if len(data) < 64 {
			return types.SymbolSummary{}, parserErr(tregoerr.ShortRead, objectStage, "ELF64 header truncated")
		}
		shoff = binary.LittleEndian.Uint64(data[40:48])
		shentsize = binary.LittleEndian.Uint16(data[58:60])
		shnum = binary.LittleEndian.Uint16(data[60:62])
		shstrndx = binary.LittleEndian.Uint16(data[62:64])
	} else {
		if len(data) < 52 {
			return types.SymbolSummary{}, parserErr(tregoerr.ShortRead, objectStage, "ELF32 header truncated")
		}
		shoff = uint64(binary.LittleEndian.Uint32(data[32:36]))
		shentsize = binary.LittleEndian.Uint16(data[46:48])
		shnum = binary.LittleEndian.Uint16(data[48:50])
		shstrndx = binary.LittleEndian.Uint16(data[50:52])
	}

	if shoff == 0 || shnum == 0 {
		// No section header table (common in stripped/linked images); this
		// is not incoherent, just nothing further to confirm here.
		return types.SymbolSummary{Stripped: true}, nil
	}
	if shnum > 512 {
		return types.SymbolSummary{}, parserErr(tregoerr.IncoherentFields, objectStage, "implausible section count %d", shnum)
	}

	// sh_name is a 4-byte field at offset 0 of the section header in both
	// the 32- and 64-bit ELF layouts.
	sectionNameOff := func(idx uint16) (uint32, bool) {
		base := shoff + uint64(idx)*uint64(shentsize)
		if base+4 > uint64(len(data)) {
			return 0, false
		}
		return binary.LittleEndian.Uint32(data[base : base+4]), true
	}

	var strtabOff, strtabSize uint64
	if int(shstrndx) < int(shnum) {
		base := shoff + uint64(shstrndx)*uint64(shentsize)
		if is64 && base+40 <= uint64(len(data)) {
			strtabOff = binary.LittleEndian.Uint64(data[base+24 : base+32])
			strtabSize = binary.LittleEndian.Uint64(data[base+32 : base+40])
		} else if !is64 && base+28 <= uint64(len(data)) {
			strtabOff = uint64(binary.LittleEndian.Uint32(data[base+16 : base+20]))
			strtabSize = uint64(binary.LittleEndian.Uint32(data[base+20 : base+24]))
		}
	}

	hasDynsym, hasSymtab := false, false
	for i := uint16(0); i < shnum; i++ {
		nameOff, ok := sectionNameOff(i)
		if !ok {
			break
		}
		name := readCString(data, strtabOff, strtabSize, uint64(nameOff))
		switch name {
		case ".dynsym":
			hasDynsym = true
		case ".symtab":
			hasSymtab = true
		}
	}

	return types.SymbolSummary{
		Stripped:         !hasSymtab,
		DebugInfoPresent: hasSymtab,
		ImportsCount:     boolToImportEstimate(hasDynsym),
	}, nil
}

func boolToImportEstimate(present bool) int {
	if present {
		return 1
	}
	return 0
}

func readCString(data []byte, tabOff, tabSize, off uint64) string {
	if tabOff == 0 || off >= tabSize {
		return ""
	}
	start := tabOff + off
	if start >= uint64(len(data)) {
		return ""
	}
	end := start
	for end < uint64(len(data)) && end-tabOff < tabSize && data[end] != 0 {
		end++
	}
	return string(data[start:end])
}

// parsePEObject reads the COFF Characteristics field and reports
// IMAGE_FILE_DEBUG_STRIPPED (0x0200) as stripped, with debug info present
// when that bit is clear. It does not walk the IMAGE_DEBUG_DIRECTORY or
// the import table; it reports only what the bounds-checked COFF header
// gives.
func parsePEObject(data []byte) (types.SymbolSummary, error) {
	if len(data) < 0x40 {
		return types.SymbolSummary{}, parserErr(tregoerr.ShortRead, objectStage, "PE too short for DOS header")
	}
	lfanew := binary.LittleEndian.Uint32(data[0x3C:])
	coffOff := uint64(lfanew) + 4
	if coffOff+20 > uint64(len(data)) {
		return types.SymbolSummary{}, parserErr(tregoerr.ShortRead, objectStage, "COFF header out of bounds")
	}
	characteristics := binary.LittleEndian.Uint16(data[coffOff+18:])
	const imageFileDebugStripped = 0x0200
	stripped := characteristics&imageFileDebugStripped != 0
	return types.SymbolSummary{Stripped: stripped, DebugInfoPresent: !stripped}, nil
}
