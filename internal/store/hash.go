package store

import (
	"crypto/sha256"
	"fmt"
	"sort"
)

// ContentHash returns the hex SHA-256 of a file's content.
func ContentHash(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}

// SourcesHash computes a deterministic hash over named sources, such as the
// rule scripts in effect for a scan. Order of the map does not matter.
func SourcesHash(sources map[string]string) string {
	if len(sources) == 0 {
		return ""
	}
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		fmt.Fprintf(h, "%s\n%d\n", name, len(sources[name]))
		h.Write([]byte(sources[name]))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
