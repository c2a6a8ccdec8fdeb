package parsers

import (
	"bytes"
	"debug/elf"
	"debug/macho"
	"debug/pe"

	gomacho "github.com/blacktop/go-macho"
	tregoerr "github.com/glaurung-re/glaurung/internal/errors"
	"github.com/glaurung-re/glaurung/internal/types"
)

const goblinStage = "parsers.goblin"

// goblinAdapter is the secondary cross-validation parser: Go's standard
// debug/elf, debug/pe, debug/macho packages do the structural decode for
// ELF, PE, and thin Mach-O; blacktop/go-macho takes over for Mach-O
// because the stdlib's FatFile support stops at the architecture list and
// doesn't expose imported-library names per slice the way this adapter
// wants to cross-check against the Object adapter's own count.
type goblinAdapter struct{}

func (goblinAdapter) Name() types.ParserName { return types.ParserGoblin }

func (goblinAdapter) Applicable(format types.Format) bool {
	switch format {
	case types.FormatELF, types.FormatPE, types.FormatMachO:
		return true
	default:
		return false
	}
}

func (goblinAdapter) Parse(data []byte, format types.Format) (types.SymbolSummary, error) {
	switch format {
	case types.FormatELF:
		return goblinELF(data)
	case types.FormatPE:
		return goblinPE(data)
	case types.FormatMachO:
		return goblinMachO(data)
	default:
		return types.SymbolSummary{}, parserErr(tregoerr.UnsupportedVariant, goblinStage, "format %s not applicable", format)
	}
}

func goblinELF(data []byte) (types.SymbolSummary, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return types.SymbolSummary{}, parserErr(tregoerr.ParserMismatch, goblinStage, "elf decode failed: %v", err)
	}
	defer f.Close()

	syms, symErr := f.Symbols()
	dynSyms, dynErr := f.DynamicSymbols()
	libs, libErr := f.ImportedLibraries()

	summary := types.SymbolSummary{
		Stripped:         symErr != nil || len(syms) == 0,
		DebugInfoPresent: symErr == nil && len(syms) > 0,
	}
	if dynErr == nil {
		summary.ImportsCount = capInt(len(dynSyms), maxImportsExports)
	}
	if libErr == nil {
		summary.LibsCount = capInt(len(libs), maxImportsExports)
	}
	return summary, nil
}

func goblinPE(data []byte) (types.SymbolSummary, error) {
	f, err := pe.NewFile(bytes.NewReader(data))
	if err != nil {
		return types.SymbolSummary{}, parserErr(tregoerr.ParserMismatch, goblinStage, "pe decode failed: %v", err)
	}
	defer f.Close()

	libs, libErr := f.ImportedLibraries()
	syms, symErr := f.ImportedSymbols()

	summary := types.SymbolSummary{
		Stripped: len(f.COFFSymbols) == 0,
	}
	if libErr == nil {
		summary.LibsCount = capInt(len(libs), maxImportsExports)
	}
	if symErr == nil {
		summary.ImportsCount = capInt(len(syms), maxImportsExports)
		summary.ImportHash = importHash(syms)
	}
	return summary, nil
}

func goblinMachO(data []byte) (types.SymbolSummary, error) {
	if isFatMachO(data) {
		return goblinFatMachO(data)
	}
	f, err := macho.NewFile(bytes.NewReader(data))
	if err != nil {
		return types.SymbolSummary{}, parserErr(tregoerr.ParserMismatch, goblinStage, "macho decode failed: %v", err)
	}
	defer f.Close()

	libs := f.ImportedLibraries()
	summary := types.SymbolSummary{LibsCount: capInt(len(libs), maxImportsExports)}
	if f.Symtab != nil {
		summary.ImportsCount = capInt(len(f.Symtab.Syms), maxImportsExports)
		summary.DebugInfoPresent = len(f.Symtab.Syms) > 0
		summary.Stripped = len(f.Symtab.Syms) == 0
	} else {
		summary.Stripped = true
	}
	return summary, nil
}

func isFatMachO(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	magic := uint32(data[0])<<24 | uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3])
	return magic == 0xCAFEBABE || magic == 0xBEBAFECA
}

// goblinFatMachO cross-checks a FAT Mach-O via blacktop/go-macho, summing
// imported-library counts across every architecture slice (capped, since a
// universal binary's slices are each independently bounded already by the
// header validator's own nfat_arch cap).
func goblinFatMachO(data []byte) (types.SymbolSummary, error) {
	fat, err := gomacho.NewFatFile(bytes.NewReader(data))
	if err != nil {
		return types.SymbolSummary{}, parserErr(tregoerr.ParserMismatch, goblinStage, "fat macho decode failed: %v", err)
	}
	defer fat.Close()

	var libsTotal int
	for _, arch := range fat.Arches {
		if arch.File == nil {
			continue
		}
		libs, err := arch.File.ImportedLibraries()
		if err == nil {
			libsTotal += len(libs)
		}
	}
	return types.SymbolSummary{LibsCount: capInt(libsTotal, maxImportsExports)}, nil
}

func capInt(n, max int) int {
	if n > max {
		return max
	}
	return n
}
