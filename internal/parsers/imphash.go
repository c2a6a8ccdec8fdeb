package parsers

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// importHash implements spec.md §4.8's PE import-hash: lowercase every
// "dll.func" pair, comma-join in parse order, and hash to 128 bits.
// debug/pe.File.ImportedSymbols() reports entries as "func:DLL" (and
// sometimes "func:DLL:ordinal" for ordinal-only imports); this normalizes
// either shape to "dll.func" before hashing.
func importHash(symbols []string) string {
	if len(symbols) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(symbols))
	for _, s := range symbols {
		parts := strings.Split(s, ":")
		if len(parts) < 2 {
			continue
		}
		fn := strings.ToLower(parts[0])
		dll := strings.ToLower(parts[1])
		dll = strings.TrimSuffix(dll, ".dll")
		pairs = append(pairs, dll+"."+fn)
	}
	if len(pairs) == 0 {
		return ""
	}
	sum := md5.Sum([]byte(strings.Join(pairs, ",")))
	return hex.EncodeToString(sum[:])
}
