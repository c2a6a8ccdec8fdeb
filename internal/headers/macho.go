package headers

import (
	"encoding/binary"
	"strconv"

	tregoerr "github.com/glaurung-re/glaurung/internal/errors"
	"github.com/glaurung-re/glaurung/internal/types"
)

const (
	machMagic32   uint32 = 0xFEEDFACE
	machCigam32   uint32 = 0xCEFAEDFE
	machMagic64   uint32 = 0xFEEDFACF
	machCigam64   uint32 = 0xCFFAEDFE
	fatMagic      uint32 = 0xCAFEBABE
	fatCigam      uint32 = 0xBEBAFECA
)

var machoCPUToArch = map[uint32]types.Arch{
	7:          types.ArchX86,
	0x01000007: types.ArchX86_64,
	12:         types.ArchARM,
	0x0100000C: types.ArchAArch64,
	18:         types.ArchPPC,
}

// ValidateMachO implements spec.md §4.4's Mach-O validator: thin or FAT.
// For FAT, iterates nfat_arch entries and records each as a ContainerChild
// (spec.md §4.9); for thin, parses cputype/filetype/ncmds/sizeofcmds
// (cpusubtype is not read).
func ValidateMachO(prefix []byte) Result {
	if len(prefix) < 4 {
		return Result{}
	}
	magic := binary.BigEndian.Uint32(prefix[0:4])

	switch magic {
	case fatMagic, fatCigam:
		return validateFatMachO(prefix, magic == fatCigam)
	case machMagic32, machCigam32, machMagic64, machCigam64:
		return validateThinMachO(prefix, magic)
	default:
		return Result{}
	}
}

func validateThinMachO(prefix []byte, magic uint32) Result {
	signals := []types.ConfidenceSignal{{Name: "macho_magic", Score: 0.20}}

	bigEndian := magic == machMagic32 || magic == machMagic64
	is64 := magic == machMagic64 || magic == machCigam64

	headerLen := 28
	if is64 {
		headerLen = 32
	}
	if len(prefix) < headerLen {
		return Result{
			Signals: signals,
			Error:   tregoerr.New(tregoerr.Truncated, stage, "Mach-O header truncated at %d bytes", len(prefix)),
			Verdict: &types.Verdict{Format: types.FormatMachO, Confidence: 0.2, Signals: signals},
		}
	}

	readU32 := func(off int) uint32 {
		if bigEndian {
			return binary.BigEndian.Uint32(prefix[off : off+4])
		}
		return binary.LittleEndian.Uint32(prefix[off : off+4])
	}

	cpuType := readU32(4)
	filetype := readU32(12)
	ncmds := readU32(16)
	sizeofcmds := readU32(20)

	bits := types.Bits32
	if is64 {
		bits = types.Bits64
	}
	endian := types.LittleEndian
	if bigEndian {
		endian = types.BigEndian
	}

	arch := machoCPUToArch[cpuType]
	if arch == "" {
		arch = types.ArchUnknown
	}

	coherent := filetype >= 1 && filetype <= 10 && ncmds < 1<<20 && int(sizeofcmds) < len(prefix)*64

	confidence := 0.45
	if coherent {
		signals = append(signals, types.ConfidenceSignal{Name: "macho_coherent", Score: 0.35})
		confidence = 0.90
	}

	var tErr *tregoerr.TriageError
	if !coherent {
		tErr = tregoerr.New(tregoerr.IncoherentFields, stage, "Mach-O load-command fields inconsistent")
	}

	return Result{
		Verdict: &types.Verdict{
			Format:     types.FormatMachO,
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

const fatArchEntrySize = 20 // cputype, cpusubtype, offset, size, align (all uint32)

func validateFatMachO(prefix []byte, cigam bool) Result {
	signals := []types.ConfidenceSignal{
		{Name: "macho_magic", Score: 0.20},
		{Name: "macho_fat", Score: 0.10},
	}

	// FAT headers are always big-endian on disk; FAT_CIGAM only arises when
	// a little-endian host reads it without byte-swapping, which this
	// validator does not do (we read on-disk bytes directly).
	if cigam {
		return Result{
			Signals: signals,
			Error:   tregoerr.New(tregoerr.UnsupportedVariant, stage, "byte-swapped FAT Mach-O (FAT_CIGAM) not supported"),
			Verdict: &types.Verdict{Format: types.FormatMachO, Confidence: 0.3, Signals: signals},
		}
	}

	if len(prefix) < 8 {
		return Result{
			Signals: signals,
			Error:   tregoerr.New(tregoerr.Truncated, stage, "FAT Mach-O header truncated"),
			Verdict: &types.Verdict{Format: types.FormatMachO, Confidence: 0.2, Signals: signals},
		}
	}

	nfatArch := binary.BigEndian.Uint32(prefix[4:8])
	if nfatArch == 0 || nfatArch > 32 {
		return Result{
			Signals: signals,
			Error:   tregoerr.New(tregoerr.IncoherentFields, stage, "implausible nfat_arch %d", nfatArch),
			Verdict: &types.Verdict{Format: types.FormatMachO, Confidence: 0.25, Signals: signals},
		}
	}

	var children []types.ContainerChild
	off := 8
	for i := uint32(0); i < nfatArch; i++ {
		if off+fatArchEntrySize > len(prefix) {
			break
		}
		cpuType := binary.BigEndian.Uint32(prefix[off : off+4])
		sliceOff := binary.BigEndian.Uint32(prefix[off+8 : off+12])
		sliceSize := binary.BigEndian.Uint32(prefix[off+12 : off+16])

		arch := machoCPUToArch[cpuType]
		if arch == "" {
			arch = types.ArchUnknown
		}
		children = append(children, types.ContainerChild{
			TypeName: "macho_fat_slice_" + string(arch),
			Offset:   int64(sliceOff),
			Size:     int64(sliceSize),
			ID:       "fat:" + strconv.Itoa(int(i)),
		})
		off += fatArchEntrySize
	}

	return Result{
		Verdict: &types.Verdict{
			Format:     types.FormatMachO,
			Bits:       0,
			Endianness: types.BigEndian,
			Confidence: 0.85,
			Signals:    signals,
		},
		Signals:  signals,
		Children: children,
	}
}
