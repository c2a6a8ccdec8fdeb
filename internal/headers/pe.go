package headers

import (
	tregoerr "github.com/glaurung-re/glaurung/internal/errors"
	"github.com/glaurung-re/glaurung/internal/types"
)

var peMachineToArch = map[uint16]struct {
	arch types.Arch
	bits types.Bits
}{
	0x014c: {types.ArchX86, types.Bits32},
	0x8664: {types.ArchX86_64, types.Bits64},
	0x01c0: {types.ArchARM, types.Bits32},
	0x01c4: {types.ArchThumb, types.Bits32},
	0xaa64: {types.ArchAArch64, types.Bits64},
}

// ValidatePE implements spec.md §4.4's PE validator: MZ at 0, e_lfanew in
// range, "PE\0\0" signature, COFF Machine/NumberOfSections, Optional Header
// magic (PE32/PE32+), SizeOfHeaders <= SizeOfImage. Also locates the Rich
// header (§4.10) when present.
func ValidatePE(prefix []byte) Result {
	if len(prefix) < 2 || prefix[0] != 'M' || prefix[1] != 'Z' {
		return Result{}
	}
	signals := []types.ConfidenceSignal{{Name: "pe_magic", Score: 0.20}}

	lfanew, ok := le32(prefix, 0x3C)
	if !ok || lfanew == 0 || int(lfanew)+24 > len(prefix) {
		return Result{
			Signals: signals,
			Error:   tregoerr.New(tregoerr.Truncated, stage, "e_lfanew out of bounds or header truncated"),
			Verdict: &types.Verdict{Format: types.FormatPE, Confidence: 0.2, Signals: signals},
		}
	}

	peOff := int(lfanew)
	if prefix[peOff] != 'P' || prefix[peOff+1] != 'E' || prefix[peOff+2] != 0 || prefix[peOff+3] != 0 {
		return Result{
			Signals: signals,
			Error:   tregoerr.New(tregoerr.BadMagic, stage, "missing PE\\0\\0 signature at e_lfanew"),
			Verdict: &types.Verdict{Format: types.FormatPE, Confidence: 0.2, Signals: signals},
		}
	}

	coffOff := peOff + 4
	machine, _ := le16(prefix, coffOff)
	numSections, _ := le16(prefix, coffOff+2)
	sizeOfOptHeader, _ := le16(prefix, coffOff+16)

	info, known := peMachineToArch[machine]
	arch, bits := types.ArchUnknown, types.Bits32
	if known {
		arch, bits = info.arch, info.bits
	}

	optOff := coffOff + 20
	coherent := numSections > 0 && numSections < 256 && sizeOfOptHeader > 0

	if coherent && optOff+2 <= len(prefix) {
		magic, _ := le16(prefix, optOff)
		switch magic {
		case 0x10b:
			bits = types.Bits32
		case 0x20b:
			bits = types.Bits64
		default:
			coherent = false
		}

		if coherent {
			sizeOfHeadersOff := optOff + 60
			sizeOfImageOff := optOff + 56
			if bits == types.Bits64 {
				sizeOfHeadersOff = optOff + 60
				sizeOfImageOff = optOff + 56
			}
			sizeOfImage, okImg := le32(prefix, sizeOfImageOff)
			sizeOfHeaders, okHdr := le32(prefix, sizeOfHeadersOff)
			if okImg && okHdr && sizeOfHeaders > sizeOfImage {
				coherent = false
			}
		}
	} else {
		coherent = false
	}

	confidence := 0.45
	if coherent {
		signals = append(signals, types.ConfidenceSignal{Name: "pe_coherent", Score: 0.35})
		confidence = 0.90
	}

	richHeaderOffset, richPresent := FindRichHeader(prefix, peOff)
	if richPresent {
		signals = append(signals, types.ConfidenceSignal{Name: "pe_rich_present", Score: 0.02})
	}
	_ = richHeaderOffset

	var tErr *tregoerr.TriageError
	if !coherent {
		tErr = tregoerr.New(tregoerr.IncoherentFields, stage, "PE optional header fields inconsistent")
	}

	sectionTableEnd, lastRawEnd, haveExtent := peSectionExtent(prefix, optOff, int(sizeOfOptHeader), int(numSections))

	return Result{
		Verdict: &types.Verdict{
			Format:     types.FormatPE,
			Arch:       arch,
			Bits:       bits,
			Endianness: types.LittleEndian,
			Confidence: types.ClampConfidence(confidence),
			Signals:    signals,
		},
		Signals:      signals,
		Error:        tErr,
		OverlayStart: lastRawEnd,
		HaveOverlayStart: haveExtent && sectionTableEnd > 0,
	}
}

// peSectionExtent reads the 40-byte section headers immediately following
// the Optional Header (bounded by the already-budgeted prefix) and returns
// the highest PointerToRawData+SizeOfRawData seen, which is the start of
// any PE overlay (spec.md §4.3). Returns haveExtent=false when the section
// table falls outside the bounded prefix, so overlay detection is skipped
// rather than guessed.
func peSectionExtent(prefix []byte, optOff, sizeOfOptHeader, numSections int) (tableEnd int, lastRawEnd int64, haveExtent bool) {
	if numSections <= 0 || sizeOfOptHeader <= 0 {
		return 0, 0, false
	}
	secOff := optOff + sizeOfOptHeader
	const sectionHeaderSize = 40
	tableEnd = secOff + numSections*sectionHeaderSize
	if tableEnd > len(prefix) {
		return 0, 0, false
	}
	var maxEnd int64
	for i := 0; i < numSections; i++ {
		base := secOff + i*sectionHeaderSize
		sizeOfRawData, ok1 := le32(prefix, base+16)
		pointerToRawData, ok2 := le32(prefix, base+20)
		if !ok1 || !ok2 {
			return 0, 0, false
		}
		end := int64(pointerToRawData) + int64(sizeOfRawData)
		if end > maxEnd {
			maxEnd = end
		}
	}
	return tableEnd, maxEnd, true
}
