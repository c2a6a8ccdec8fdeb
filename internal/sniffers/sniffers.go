// Package sniffers implements the Sniffers stage (spec.md §4.2): cheap,
// advisory content and extension hints over the prefix bytes. A sniffer
// never classifies a buffer as a program on its own — that is the header
// validators' job — it only proposes TriageHint values and flags
// extension/content disagreement for the scoring stage to penalize.
//
// Built from a magic-byte table and binary/text heuristic, generalized
// from "is this file what its extension claims" (source-code policing) to
// "what does this prefix look like, and does that match the path's
// extension".
package sniffers

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gabriel-vasile/mimetype"
	tregoerr "github.com/glaurung-re/glaurung/internal/errors"
	"github.com/glaurung-re/glaurung/internal/types"
)

const stage = "sniffers"

// magicFamily is a coarse format family a magic signature or extension
// glob can imply, used only to detect sniffer/extension disagreement.
type magicFamily string

const (
	familyELF     magicFamily = "elf"
	familyPE      magicFamily = "pe"
	familyMachO   magicFamily = "macho"
	familyWasm    magicFamily = "wasm"
	familyZip     magicFamily = "zip"
	familyGzip    magicFamily = "gzip"
	familyXZ      magicFamily = "xz"
	familyBzip2   magicFamily = "bzip2"
	familySevenZ  magicFamily = "7z"
	familyRar     magicFamily = "rar"
	familyScript  magicFamily = "script"
	familyUnknown magicFamily = ""
)

var magicSignatures = []struct {
	prefix []byte
	family magicFamily
}{
	{[]byte{0x7F, 'E', 'L', 'F'}, familyELF},
	{[]byte{'M', 'Z'}, familyPE},
	{[]byte{0xFE, 0xED, 0xFA, 0xCE}, familyMachO},
	{[]byte{0xFE, 0xED, 0xFA, 0xCF}, familyMachO},
	{[]byte{0xCE, 0xFA, 0xED, 0xFE}, familyMachO},
	{[]byte{0xCF, 0xFA, 0xED, 0xFE}, familyMachO},
	{[]byte{0xCA, 0xFE, 0xBA, 0xBE}, familyMachO}, // FAT magic (shared with Java class; disambiguated downstream)
	{[]byte{0xBE, 0xBA, 0xFE, 0xCA}, familyMachO},
	{[]byte{0x00, 0x61, 0x73, 0x6D}, familyWasm},
	{[]byte{'P', 'K', 0x03, 0x04}, familyZip},
	{[]byte{'P', 'K', 0x05, 0x06}, familyZip},
	{[]byte{0x1F, 0x8B}, familyGzip},
	{[]byte{0xFD, '7', 'z', 'X', 'Z', 0x00}, familyXZ},
	{[]byte{'B', 'Z', 'h'}, familyBzip2},
	{[]byte{'7', 'z', 0xBC, 0xAF, 0x27, 0x1C}, familySevenZ},
	{[]byte{'R', 'a', 'r', '!', 0x1A, 0x07}, familyRar},
	{[]byte{'#', '!'}, familyScript},
}

var extFamilies = map[string]magicFamily{
	".elf": familyELF,
	".so":  familyELF,
	".exe": familyPE,
	".dll": familyPE,
	".sys": familyPE,
	".dylib": familyMachO,
	".wasm":  familyWasm,
	".zip":   familyZip,
	".jar":   familyZip,
	".gz":    familyGzip,
	".xz":    familyXZ,
	".bz2":   familyBzip2,
	".7z":    familySevenZ,
	".rar":   familyRar,
	".sh":    familyScript,
	".py":    familyScript,
	".pl":    familyScript,
	".rb":    familyScript,
}

// executableGlobs and archiveGlobs back the extension-hint classification
// used when the extension itself doesn't map to a single magicFamily (e.g.
// ".bin", ".out") but still signals intent.
var executableGlobs = []string{"*.exe", "*.dll", "*.sys", "*.so", "*.so.*", "*.dylib", "*.bin", "*.out", "*.elf", "*.o"}
var archiveGlobs = []string{"*.zip", "*.tar", "*.tar.*", "*.7z", "*.rar", "*.gz", "*.bz2", "*.xz", "*.jar", "*.war"}
var scriptGlobs = []string{"*.sh", "*.py", "*.pl", "*.rb", "*.ps1"}

// Sniff returns advisory hints over prefix (and, if path is non-empty, the
// extension), plus any SnifferMismatch diagnostic raised when the content
// and extension disagree about the format family. Never returns a verdict.
func Sniff(prefix []byte, path string) ([]types.TriageHint, []types.ConfidenceSignal, *tregoerr.TriageError) {
	var hints []types.TriageHint
	var signals []types.ConfidenceSignal

	contentFamily := familyUnknown
	if len(prefix) > 0 {
		mime := mimetype.Detect(prefix)
		label := mimeLabel(mime)
		hints = append(hints, types.TriageHint{
			Source: types.HintContentSniff,
			MIME:   mime.String(),
			Label:  label,
		})
		signals = append(signals, types.ConfidenceSignal{
			Name:  "sniffer_content_" + label,
			Score: 0.01,
		})
		contentFamily = familyFromMagic(prefix)
	}

	if path == "" {
		return hints, signals, nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return hints, signals, nil
	}

	hints = append(hints, types.TriageHint{
		Source:    types.HintExtension,
		Extension: ext,
		Label:     extensionLabel(path),
	})

	extFamily := extFamilies[ext]
	if extFamily == familyUnknown || contentFamily == familyUnknown {
		return hints, signals, nil
	}

	if extFamily != contentFamily {
		signals = append(signals, types.ConfidenceSignal{
			Name:  "sniffer_ext_mismatch",
			Score: -0.10,
		})
		tErr := tregoerr.New(tregoerr.SnifferMismatch, stage,
			"extension %q implies %s but content looks like %s", ext, extFamily, contentFamily)
		return hints, signals, tErr
	}

	return hints, signals, nil
}

func familyFromMagic(prefix []byte) magicFamily {
	for _, sig := range magicSignatures {
		if bytes.HasPrefix(prefix, sig.prefix) {
			return sig.family
		}
	}
	return familyUnknown
}

func mimeLabel(m *mimetype.MIME) string {
	if m == nil {
		return "unknown"
	}
	s := m.String()
	s = strings.SplitN(s, ";", 2)[0]
	s = strings.ReplaceAll(s, "/", "_")
	return s
}

func extensionLabel(path string) string {
	switch {
	case matchAny(path, executableGlobs):
		return "executable"
	case matchAny(path, archiveGlobs):
		return "archive"
	case matchAny(path, scriptGlobs):
		return "script"
	default:
		return "other"
	}
}

func matchAny(path string, globs []string) bool {
	base := filepath.Base(strings.ToLower(path))
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, base); ok {
			return true
		}
	}
	return false
}
