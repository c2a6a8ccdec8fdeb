// Command glaurung is the CLI front end for the triage engine: a thin
// urfave/cli wrapper over internal/orchestrator (global flags, a
// per-command Action, and a fallback that treats bare arguments as
// analyze targets).
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/glaurung-re/glaurung/internal/config"
	"github.com/glaurung-re/glaurung/internal/orchestrator"
	"github.com/glaurung-re/glaurung/internal/schema"
	"github.com/glaurung-re/glaurung/internal/types"
	"github.com/glaurung-re/glaurung/internal/version"
	"github.com/glaurung-re/glaurung/pkg/pathutil"
)

func main() {
	app := &cli.App{
		Name:    "glaurung",
		Usage:   "Binary triage: format, arch, packing, and container analysis",
		Version: version.Info(),
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:  "max-read-bytes",
				Usage: "Maximum bytes read from each input",
			},
			&cli.Int64Flag{
				Name:  "max-file-size",
				Usage: "Reject files larger than this before reading",
			},
			&cli.IntFlag{
				Name:  "max-recursion-depth",
				Usage: "Maximum container/FAT-slice recursion depth",
			},
			&cli.Int64Flag{
				Name:  "max-time-ms",
				Usage: "Soft wall-clock budget per artifact, in milliseconds",
			},
			&cli.BoolFlag{
				Name:  "no-heuristics",
				Usage: "Disable endianness/arch heuristic fallback",
			},
			&cli.BoolFlag{
				Name:  "no-parsers",
				Usage: "Disable structured parser confirmation pass",
			},
			&cli.BoolFlag{
				Name:  "no-similarity",
				Usage: "Disable ssdeep/CTPH similarity computation",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "analyze",
				Aliases:   []string{"a"},
				Usage:     "Triage one or more files",
				ArgsUsage: "<path> [path...]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output the artifact as JSON",
					},
					&cli.BoolFlag{
						Name:  "validate-schema",
						Usage: "Validate JSON output against the artifact schema before printing",
					},
				},
				Action: analyzeCommand,
			},
			{
				Name:   "schema",
				Usage:  "Print the TriagedArtifact JSON Schema",
				Action: schemaCommand,
			},
			{
				Name:   "version",
				Usage:  "Print detailed version information",
				Action: func(c *cli.Context) error { fmt.Println(version.FullInfo()); return nil },
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() > 0 {
				return analyzeCommand(c)
			}
			return cli.ShowAppHelp(c)
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "glaurung: %v\n", err)
		os.Exit(1)
	}
}

// optionsFromFlags builds config.Options from the global flag set, starting
// from config.Default() and overriding only flags the caller actually set
// (spec.md §6: "a single options record", zero-value flags mean "use the
// engine default" rather than "set to zero").
func optionsFromFlags(c *cli.Context) config.Options {
	opts := config.Default()
	if v := c.Int64("max-read-bytes"); v > 0 {
		opts.MaxReadBytes = v
	}
	if v := c.Int64("max-file-size"); v > 0 {
		opts.MaxFileSize = v
	}
	if v := c.Int("max-recursion-depth"); v > 0 {
		opts.MaxRecursionDepth = v
	}
	if v := c.Int64("max-time-ms"); v > 0 {
		opts.MaxTimeMS = v
	}
	if c.Bool("no-heuristics") {
		opts.EnableHeuristics = false
	}
	if c.Bool("no-parsers") {
		opts.EnableParsers = false
	}
	if c.Bool("no-similarity") {
		opts.SimilarityEnabled = false
	}
	return opts
}

func analyzeCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return errors.New("usage: glaurung analyze <path> [path...]")
	}
	opts := optionsFromFlags(c)
	paths := c.Args().Slice()

	var artifacts []*types.TriagedArtifact
	if len(paths) == 1 {
		artifacts = []*types.TriagedArtifact{orchestrator.AnalyzePath(paths[0], opts)}
	} else {
		artifacts = orchestrator.AnalyzeBatch(paths, opts)
	}

	asJSON := c.Bool("json")
	validateSchema := c.Bool("validate-schema")

	exitCode := 0
	for _, a := range artifacts {
		if validateSchema {
			if err := schema.Validate(a); err != nil {
				fmt.Fprintf(os.Stderr, "glaurung: %s: schema validation failed: %v\n", a.Path, err)
				exitCode = 1
			}
		}
		if asJSON {
			if err := printJSON(a); err != nil {
				return err
			}
			continue
		}
		printText(a)
		if a.HasFatalError() {
			exitCode = 1
		}
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
	return nil
}

func schemaCommand(c *cli.Context) error {
	s, err := schema.ArtifactJSONSchema()
	if err != nil {
		return fmt.Errorf("building schema: %w", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func printJSON(a *types.TriagedArtifact) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(a)
}

func printText(a *types.TriagedArtifact) {
	display := a.Path
	if cwd, err := os.Getwd(); err == nil {
		display = pathutil.ToRelative(a.Path, cwd)
	}
	fmt.Printf("%s\n", display)
	fmt.Printf("  sha256:       %s\n", a.SHA256)
	fmt.Printf("  size:         %d bytes\n", a.SizeBytes)
	fmt.Printf("  analysis:     %s\n", time.Duration(a.AnalysisMS)*time.Millisecond)

	if top := a.TopVerdict(); top != nil {
		fmt.Printf("  format:       %s (%s/%d-bit/%s) confidence=%.2f\n",
			top.Format, top.Arch, top.Bits, top.Endianness, top.Confidence)
		if top.PackedLabel != "" {
			fmt.Printf("  packed:       %s\n", top.PackedLabel)
		}
		if len(a.Verdicts) > 1 {
			alts := make([]string, 0, len(a.Verdicts)-1)
			for _, v := range a.Verdicts[1:] {
				alts = append(alts, fmt.Sprintf("%s(%.2f)", v.Format, v.Confidence))
			}
			fmt.Printf("  alternatives: %s\n", strings.Join(alts, ", "))
		}
	} else {
		fmt.Printf("  format:       unknown\n")
	}

	if a.Symbols != nil && a.Symbols.ImportHash != "" {
		fmt.Printf("  imphash:      %s\n", a.Symbols.ImportHash)
	}
	if a.Similarity != nil && a.Similarity.CTPH != "" {
		fmt.Printf("  ctph:         %s\n", a.Similarity.CTPH)
	}
	if len(a.Containers) > 0 {
		fmt.Printf("  children:     %d\n", len(a.Containers))
	}
	for _, e := range a.Errors {
		fmt.Printf("  error[%s]:    %s\n", e.Stage, e.Message)
	}
	fmt.Println()
}
