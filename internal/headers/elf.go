package headers

import (
	tregoerr "github.com/glaurung-re/glaurung/internal/errors"
	"github.com/glaurung-re/glaurung/internal/types"
)

var elfMachineToArch = map[uint16]types.Arch{
	3:   types.ArchX86,
	8:   types.ArchMIPSEL, // disambiguated by EI_DATA below
	20:  types.ArchPPC,
	40:  types.ArchARM,
	62:  types.ArchX86_64,
	183: types.ArchAArch64,
	243: types.ArchRISCV,
}

// ValidateELF implements spec.md §4.4's ELF validator: verify ei_class,
// ei_data, e_ehsize/e_phentsize/e_shentsize against class; bounds-check
// e_phoff/e_shoff/e_shstrndx; map e_machine to arch.
func ValidateELF(prefix []byte) Result {
	if len(prefix) < 4 || prefix[0] != 0x7F || prefix[1] != 'E' || prefix[2] != 'L' || prefix[3] != 'F' {
		return Result{}
	}

	signals := []types.ConfidenceSignal{{Name: "elf_magic", Score: 0.20}}

	if len(prefix) < 16 {
		return Result{
			Signals: signals,
			Error:   tregoerr.New(tregoerr.Truncated, stage, "ELF identification bytes truncated at %d bytes", len(prefix)),
			Verdict: &types.Verdict{Format: types.FormatELF, Confidence: 0.2, Signals: signals},
		}
	}

	eiClass := prefix[4]
	eiData := prefix[5]

	var bits types.Bits
	var ehsizeWant uint16
	switch eiClass {
	case 1:
		bits = types.Bits32
		ehsizeWant = 52
	case 2:
		bits = types.Bits64
		ehsizeWant = 64
	default:
		return Result{
			Signals: signals,
			Error:   tregoerr.New(tregoerr.IncoherentFields, stage, "unknown ei_class %d", eiClass),
			Verdict: &types.Verdict{Format: types.FormatELF, Bits: 0, Confidence: 0.25, Signals: signals},
		}
	}

	var endian types.Endianness
	switch eiData {
	case 1:
		endian = types.LittleEndian
	case 2:
		endian = types.BigEndian
	default:
		return Result{
			Signals: signals,
			Error:   tregoerr.New(tregoerr.IncoherentFields, stage, "unknown ei_data %d", eiData),
			Verdict: &types.Verdict{Format: types.FormatELF, Bits: bits, Confidence: 0.25, Signals: signals},
		}
	}

	read16 := le16
	read32 := le32
	read64 := le64
	if endian == types.BigEndian {
		read16 = be16
		read32 = be32be
		read64 = be64
	}

	machine, ok := read16(prefix, 18)
	if !ok {
		return Result{
			Signals: signals,
			Error:   tregoerr.New(tregoerr.Truncated, stage, "ELF header truncated before e_machine"),
			Verdict: &types.Verdict{Format: types.FormatELF, Bits: bits, Endianness: endian, Confidence: 0.25, Signals: signals},
		}
	}

	arch := elfMachineToArch[machine]
	if machine == 8 && eiData == 2 {
		arch = types.ArchMIPSEB
	}
	if arch == "" {
		arch = types.ArchUnknown
	}

	if len(prefix) < int(ehsizeWant) {
		return Result{
			Signals: signals,
			Error:   tregoerr.New(tregoerr.Truncated, stage, "ELF header truncated at %d bytes (need %d)", len(prefix), ehsizeWant),
			Verdict: &types.Verdict{Format: types.FormatELF, Arch: arch, Bits: bits, Endianness: endian, Confidence: 0.25, Signals: signals},
		}
	}

	ehsizeOff, phentOff, shentOff, phoffOff, shoffOff, shstrndxOff := 40, 42, 58, 0, 0, 0
	var phoff, shoff uint64
	var ehsize, phentsize, shentsize uint16
	var shstrndx uint16
	var coherent = true

	if bits == types.Bits64 {
		phoffOff, shoffOff = 32, 40
		ehsizeOff, phentOff, shentOff = 52, 54, 58
		shstrndxOff = 62
		if v, ok := read64(prefix, phoffOff); ok {
			phoff = v
		} else {
			coherent = false
		}
		if v, ok := read64(prefix, shoffOff); ok {
			shoff = v
		} else {
			coherent = false
		}
	} else {
		phoffOff, shoffOff = 28, 32
		ehsizeOff, phentOff, shentOff = 40, 42, 46
		shstrndxOff = 50
		if v, ok := read32(prefix, phoffOff); ok {
			phoff = uint64(v)
		} else {
			coherent = false
		}
		if v, ok := read32(prefix, shoffOff); ok {
			shoff = uint64(v)
		} else {
			coherent = false
		}
	}

	if v, ok := read16(prefix, ehsizeOff); ok {
		ehsize = v
	} else {
		coherent = false
	}
	if v, ok := read16(prefix, phentOff); ok {
		phentsize = v
	} else {
		coherent = false
	}
	if v, ok := read16(prefix, shentOff); ok {
		shentsize = v
	} else {
		coherent = false
	}
	if v, ok := read16(prefix, shstrndxOff); ok {
		shstrndx = v
	} else {
		coherent = false
	}
	shnumOff := 48
	if bits == types.Bits64 {
		shnumOff = 60
	}
	// e_shstrndx must index an existing section (0 = SHN_UNDEF and
	// 0xFFFF = SHN_XINDEX are the two escape values).
	if shnum, ok := read16(prefix, shnumOff); ok && shnum != 0 && shstrndx != 0 && shstrndx != 0xFFFF && shstrndx >= shnum {
		coherent = false
	}

	if ehsize != 0 && ehsize != ehsizeWant {
		coherent = false
	}
	expectedPhentsize := uint16(32)
	expectedShentsize := uint16(40)
	if bits == types.Bits64 {
		expectedPhentsize, expectedShentsize = 56, 64
	}
	if phentsize != 0 && phentsize != expectedPhentsize {
		coherent = false
	}
	if shentsize != 0 && shentsize != expectedShentsize {
		coherent = false
	}
	// e_phoff/e_shoff of 0 is legal (no program/section headers); anything
	// non-zero must at least be representable as a reasonable offset.
	if phoff > 1<<40 || shoff > 1<<40 {
		coherent = false
	}

	confidence := 0.45
	if coherent {
		signals = append(signals, types.ConfidenceSignal{Name: "elf_coherent", Score: 0.35})
		confidence = 0.90
	}

	var tErr *tregoerr.TriageError
	if !coherent {
		tErr = tregoerr.New(tregoerr.IncoherentFields, stage, "ELF header fields inconsistent with class %d", eiClass)
	}

	return Result{
		Verdict: &types.Verdict{
			Format:     types.FormatELF,
			Arch:       arch,
			Bits:       bits,
			Endianness: endian,
			Confidence: types.ClampConfidence(confidence),
			Signals:    signals,
		},
		Signals: signals,
		Error:   tErr,
	}
}

func be16(b []byte, off int) (uint16, bool) {
	if off+2 > len(b) {
		return 0, false
	}
	return uint16(b[off])<<8 | uint16(b[off+1]), true
}

func be32be(b []byte, off int) (uint32, bool) {
	return be32(b, off)
}

func be64(b []byte, off int) (uint64, bool) {
	if off+8 > len(b) {
		return 0, false
	}
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[off+i])
	}
	return v, true
}
