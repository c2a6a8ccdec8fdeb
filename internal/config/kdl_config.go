package config

import (
	"fmt"
	"strconv"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// parseKDL overlays a .glaurung.kdl document's values onto base, returning
// the merged Options. Unknown nodes are ignored so config files can carry
// forward-compatible extra keys.
func parseKDL(content string, base Options) (Options, error) {
	cfg := base

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return base, fmt.Errorf("failed to parse .glaurung.kdl: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "max_read_bytes":
			if v, ok := firstSizeArg(n); ok {
				cfg.MaxReadBytes = v
			}
		case "max_file_size":
			if v, ok := firstSizeArg(n); ok {
				cfg.MaxFileSize = v
			}
		case "max_recursion_depth":
			if v, ok := firstIntArg(n); ok {
				cfg.MaxRecursionDepth = v
			}
		case "max_time_ms":
			if v, ok := firstIntArg(n); ok {
				cfg.MaxTimeMS = int64(v)
			}
		case "enable_heuristics":
			if b, ok := firstBoolArg(n); ok {
				cfg.EnableHeuristics = b
			}
		case "enable_parsers":
			if b, ok := firstBoolArg(n); ok {
				cfg.EnableParsers = b
			}
		case "enable_packer_scripts":
			if b, ok := firstBoolArg(n); ok {
				cfg.EnablePackerScripts = b
			}
		case "strings_sample_cap":
			if v, ok := firstIntArg(n); ok {
				cfg.StringsSampleCap = v
			}
		case "entropy_window_size":
			if v, ok := firstIntArg(n); ok {
				cfg.EntropyWindowSize = v
			}
		case "entropy_max_windows":
			if v, ok := firstIntArg(n); ok {
				cfg.EntropyMaxWindows = v
			}
		case "similarity_enabled":
			if b, ok := firstBoolArg(n); ok {
				cfg.SimilarityEnabled = b
			}
		case "prefix_cache_size":
			if v, ok := firstSizeArg(n); ok {
				cfg.PrefixCacheSize = int(v)
			}
		}
	}

	return cfg, nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

// firstSizeArg accepts either a bare integer or a "10MB"-style string.
func firstSizeArg(n *document.Node) (int64, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case string:
		if sz, err := parseSize(v); err == nil {
			return sz, true
		}
	}
	return 0, false
}

// parseSize handles size strings like "10MB", "500KB", "1GB".
func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	var multiplier int64 = 1
	var numStr string

	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		numStr = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		numStr = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		numStr = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		multiplier = 1
		numStr = strings.TrimSuffix(s, "B")
	default:
		numStr = s
	}

	num, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return 0, err
	}

	return num * multiplier, nil
}
