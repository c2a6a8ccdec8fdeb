// Package config holds the engine's Options record (spec.md §6, §9 "a
// single options record") plus the on-disk .glaurung.kdl loader, a
// defaults-then-KDL-overlay merge.
package config

import (
	"os"
	"path/filepath"
)

// Options are the recognized analyze_bytes/analyze_path options (spec.md
// §6). All fields are explicit; there is no scattered keyword-parameter
// surface (spec.md §9).
type Options struct {
	MaxReadBytes        int64
	MaxFileSize         int64
	MaxRecursionDepth   int
	MaxTimeMS           int64
	EnableHeuristics    bool
	EnableParsers       bool
	EnablePackerScripts bool
	StringsSampleCap    int
	EntropyWindowSize   int
	EntropyMaxWindows   int
	SimilarityEnabled   bool

	// PrefixCacheSize is an implementation-level knob not in spec.md §6's
	// enumerated list; it defaults from budget.DefaultPrefixCacheSize when
	// zero and exists purely to let tests exercise small caches cheaply.
	PrefixCacheSize int
}

// Default returns the spec.md §6 default Options.
func Default() Options {
	return Options{
		MaxReadBytes:        10 * 1024 * 1024,
		MaxFileSize:         100 * 1024 * 1024,
		MaxRecursionDepth:   1,
		MaxTimeMS:           2000,
		EnableHeuristics:    true,
		EnableParsers:       true,
		EnablePackerScripts: false,
		StringsSampleCap:    64,
		EntropyWindowSize:   8192,
		EntropyMaxWindows:   256,
		SimilarityEnabled:   true,
	}
}

// Load reads a .glaurung.kdl file from dir (if present), merging its values
// over the defaults. A missing file is not an error — Default() is
// returned unchanged. This is a one-shot triage engine, so unlike a
// codebase indexer's config there is no project-root concept to resolve.
func Load(dir string) (Options, error) {
	opts := Default()

	path := filepath.Join(dir, ".glaurung.kdl")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return opts, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return opts, err
	}

	merged, err := parseKDL(string(content), opts)
	if err != nil {
		return opts, err
	}
	return merged, nil
}
