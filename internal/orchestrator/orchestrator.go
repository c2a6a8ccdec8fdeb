// Package orchestrator implements the Orchestrator/Triage API (spec.md
// §4.13): sequencing every stage — Init, Sniff, Probe, Validate,
// Parse/Heuristic, Entropy, Packer, Recurse, Similarity, Score — over one
// artifact, and assembling their output into a TriagedArtifact.
//
// The engine is single-threaded per artifact (spec.md §5): every stage
// below runs sequentially in the goroutine that called analyze_bytes or
// analyze_path. AnalyzeBatch is the one concession to concurrency, fanning
// independent artifacts out across an errgroup.
package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/glaurung-re/glaurung/internal/budget"
	"github.com/glaurung-re/glaurung/internal/config"
	"github.com/glaurung-re/glaurung/internal/containers"
	"github.com/glaurung-re/glaurung/internal/entropy"
	tregoerr "github.com/glaurung-re/glaurung/internal/errors"
	"github.com/glaurung-re/glaurung/internal/headers"
	"github.com/glaurung-re/glaurung/internal/heuristics"
	"github.com/glaurung-re/glaurung/internal/packer"
	"github.com/glaurung-re/glaurung/internal/parsers"
	"github.com/glaurung-re/glaurung/internal/recursion"
	"github.com/glaurung-re/glaurung/internal/scoring"
	"github.com/glaurung-re/glaurung/internal/similarity"
	"github.com/glaurung-re/glaurung/internal/sniffers"
	"github.com/glaurung-re/glaurung/internal/types"
	"github.com/glaurung-re/glaurung/internal/version"
)

var sharedPackerMatcher = packer.NewMatcher()

// AnalyzeBytes implements spec.md §4.13's analyze_bytes(bytes, options).
func AnalyzeBytes(data []byte, opts config.Options) *types.TriagedArtifact {
	opts = validatedOrDefault(opts)
	src := budget.BytesSource{Data: data}
	reader := budget.New(src, opts.MaxReadBytes, opts.MaxRecursionDepth, opts.MaxTimeMS, opts.PrefixCacheSize)
	return run(reader, uuid.NewString(), "", opts, 0)
}

// AnalyzePath implements spec.md §4.13's analyze_path(path, options). A
// file that cannot be opened still yields a non-empty artifact carrying
// identity and a fatal diagnostic, per spec.md §4.13's "unknown inputs
// yield a non-empty artifact".
func AnalyzePath(path string, opts config.Options) *types.TriagedArtifact {
	opts = validatedOrDefault(opts)
	id := uuid.NewString()

	f, err := os.Open(path)
	if err != nil {
		a := types.New(id, version.SchemaVersion)
		a.Path = path
		a.AddError(tregoerr.Wrap(tregoerr.Other, "orchestrator", err))
		return a
	}
	defer f.Close()

	info, statErr := f.Stat()
	size := int64(0)
	if statErr == nil {
		size = info.Size()
	}
	if opts.MaxFileSize > 0 && size > opts.MaxFileSize {
		a := types.New(id, version.SchemaVersion)
		a.Path = path
		a.SizeBytes = size
		a.AddError(tregoerr.New(tregoerr.BudgetExceeded, "orchestrator", "file size %d exceeds max_file_size %d", size, opts.MaxFileSize))
		return a
	}

	src := budget.FileSource{R: f, Len: size}
	reader := budget.New(src, opts.MaxReadBytes, opts.MaxRecursionDepth, opts.MaxTimeMS, opts.PrefixCacheSize)
	return run(reader, id, path, opts, 0)
}

// AnalyzeBatch fans analyze_path out across paths, bounded by GOMAXPROCS
// via an errgroup, returning results in input order (spec.md §5: "batch
// callers may be analyzed in parallel by the embedder; the core exposes
// no shared mutable state").
func AnalyzeBatch(paths []string, opts config.Options) []*types.TriagedArtifact {
	results := make([]*types.TriagedArtifact, len(paths))
	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			results[i] = AnalyzePath(p, opts)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func validatedOrDefault(opts config.Options) config.Options {
	v := config.NewValidator()
	if tErr := v.ValidateAndSetDefaults(&opts); tErr != nil {
		// Options the caller passed were incoherent (e.g. negative caps);
		// fall back to spec.md §6 defaults rather than propagate garbage
		// into every stage below.
		return config.Default()
	}
	return opts
}

// run executes the full stage pipeline over reader's bounded byte window
// and returns the finished artifact. It never panics: any unexpected
// internal panic is recovered at the top level and converted to an
// Other-kind diagnostic (spec.md §7's "last-resort safety net").
func run(reader *budget.Reader, id, path string, opts config.Options, depth int) (artifact *types.TriagedArtifact) {
	artifact = types.New(id, version.SchemaVersion)
	artifact.Path = path
	artifact.SizeBytes = reader.Size()
	artifact.EngineVersion = version.Version

	defer func() {
		if r := recover(); r != nil {
			artifact.AddError(tregoerr.New(tregoerr.Other, "orchestrator", "recovered panic: %v", r))
		}
		artifact.Budgets = *reader.Budget()
		artifact.AnalysisMS = reader.ElapsedMS()
	}()

	readLen := opts.MaxReadBytes
	if reader.Size() < readLen {
		readLen = reader.Size()
	}
	data, readErr := reader.Read("init", 0, readLen)
	artifact.AddError(readErr)
	if readErr != nil {
		sum := sha256.Sum256(data)
		artifact.SHA256 = hex.EncodeToString(sum[:])
		return artifact
	}
	sum := sha256.Sum256(data)
	artifact.SHA256 = hex.EncodeToString(sum[:])

	if reader.TimeExceeded() {
		artifact.AddError(tregoerr.New(tregoerr.BudgetExceeded, "orchestrator", "time budget exceeded before sniffing"))
		return artifact
	}

	// Sniff
	hints, sniffSignals, sniffErr := sniffers.Sniff(data, path)
	artifact.Hints = hints
	artifact.AddError(sniffErr)

	// Container/Overlay probe
	_, containerChildren, containerSignals := containers.Probe(data)
	_ = containerSignals // informational; no verdict exists yet to attach them to

	// Header validators
	headerResults := headers.ValidateAll(data)

	var candidates []types.Verdict
	var overlayStart int64 = -1
	for _, r := range headerResults {
		if r.Error != nil {
			artifact.AddError(r.Error)
		}
		if r.Verdict != nil {
			candidates = append(candidates, *r.Verdict)
		}
		containerChildren = append(containerChildren, r.Children...)
		if r.HaveOverlayStart {
			overlayStart = r.OverlayStart
		}
	}

	if len(candidates) == 0 && opts.EnableHeuristics {
		candidates = append(candidates, heuristicCandidate(data))
	}

	if reader.TimeExceeded() {
		artifact.AddError(tregoerr.New(tregoerr.BudgetExceeded, "orchestrator", "time budget exceeded before parsing"))
		candidates = finalizeCandidates(candidates, sniffSignals, hints)
		artifact.Verdicts = candidates
		return artifact
	}

	// Parsers (structured confirmation), one pass per distinct candidate format.
	var symbols types.SymbolSummary
	haveSymbols := false
	parserSignalsByFormat := make(map[types.Format][]types.ConfidenceSignal)
	if opts.EnableParsers {
		seenFormat := make(map[types.Format]bool)
		for _, c := range candidates {
			if seenFormat[c.Format] {
				continue
			}
			seenFormat[c.Format] = true
			results, s, signals := parsers.Run(data, c.Format)
			artifact.ParseStatus = append(artifact.ParseStatus, results...)
			parserSignalsByFormat[c.Format] = signals
			if len(results) > 0 {
				if !haveSymbols {
					symbols = s
					haveSymbols = true
				}
			}
		}
	}
	if haveSymbols {
		artifact.Symbols = &symbols
	}

	// Entropy
	ea := entropy.Analyze(data, opts.EntropyWindowSize, 0, opts.EntropyMaxWindows)
	artifact.EntropyAnalysis = &ea
	artifact.Entropy = ea.Summary.Overall

	// Overlay (PE section-table-derived extent only; see DESIGN.md).
	if overlayStart >= 0 {
		hint := ""
		if int(overlayStart) < len(data) {
			hint = containers.HintForTail(data[overlayStart:])
		}
		artifact.Overlay = containers.Overlay(data, overlayStart, hint)
	}

	// Packer matcher
	features := packer.Features{
		EntropyOverall: valueOr(ea.Summary.Overall, 0),
		SectionCount:   0,
	}
	packerMatches, _ := sharedPackerMatcher.Match(data, features)
	artifact.Packers = packerMatches

	// Recursion: walk FAT/container children under budget.
	if len(containerChildren) > 0 && depth < opts.MaxRecursionDepth {
		childArtifacts, diags := recursion.Walk(data, reader, containerChildren, func(childData []byte, byteCap int64) (*types.TriagedArtifact, *tregoerr.TriageError) {
			childOpts := opts
			childOpts.MaxReadBytes = byteCap
			childSrc := budget.BytesSource{Data: childData}
			childReader := budget.New(childSrc, byteCap, opts.MaxRecursionDepth, opts.MaxTimeMS, opts.PrefixCacheSize)
			return run(childReader, uuid.NewString(), "", childOpts, depth+1), nil
		})
		for _, d := range diags {
			artifact.AddError(d)
		}
		for _, edge := range containerChildren {
			if child, ok := childArtifacts[edge.ID]; ok {
				artifact.AddChild(edge, child)
			}
		}
	}

	// Similarity
	if opts.SimilarityEnabled {
		imphash := ""
		if haveSymbols {
			imphash = symbols.ImportHash
		}
		sim := similarity.Build(data, imphash)
		artifact.Similarity = &sim
	}

	// Strings (heuristics' bounded scan; populated regardless of format
	// since it's useful even when header validation failed outright).
	strs := heuristics.ScanStrings(data, opts.StringsSampleCap)
	artifact.Strings = &strs

	// Scoring: fold format-specific parser signals and the global sniffer
	// mismatch signal into each candidate, then rank.
	for i, c := range candidates {
		var cross []types.ConfidenceSignal
		cross = append(cross, sniffSignals...)
		cross = append(cross, parserSignalsByFormat[c.Format]...)
		candidates[i] = scoring.ApplyCrossCutting([]types.Verdict{c}, cross)[0]
	}
	candidates = scoring.ApplyPackerDominance(candidates, packerMatches, ea.PackedIndicators.Verdict)
	scoring.Rank(candidates)
	for _, c := range candidates {
		artifact.AddVerdict(c)
	}

	return artifact
}

func heuristicCandidate(data []byte) types.Verdict {
	endian, endSignal := heuristics.EndiannessGuess(data)
	arch, archSignal := heuristics.ArchGuess(data)
	conf := types.ClampConfidence(endSignal.Score + archSignal.Score)
	return types.Verdict{
		Format:     types.FormatUnknown,
		Arch:       arch,
		Bits:       types.Bits32,
		Endianness: endian,
		Confidence: conf,
		Signals:    []types.ConfidenceSignal{endSignal, archSignal},
	}
}

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func finalizeCandidates(candidates []types.Verdict, sniffSignals []types.ConfidenceSignal, hints []types.TriageHint) []types.Verdict {
	for i, c := range candidates {
		candidates[i] = scoring.ApplyCrossCutting([]types.Verdict{c}, sniffSignals)[0]
	}
	scoring.Rank(candidates)
	return candidates
}
