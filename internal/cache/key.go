package cache

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/zeebo/blake3"
)

// Key derives a content-addressed cache key from a tool identity and the
// files whose content defines its environment (lockfiles, tool config).
//
// The derivation is pure: identical tool + file contents always produce
// the same key. Inputs are sorted so declaration order doesn't matter,
// and a missing input hashes a distinct marker instead of failing, so
// adding a lockfile later rolls the key over.
func Key(root, tool string, inputs []string) (string, error) {
	h := blake3.New()

	h.Write([]byte(tool))
	h.Write([]byte{0})

	sorted := append([]string(nil), inputs...)
	sort.Strings(sorted)

	for _, input := range sorted {
		h.Write([]byte(input))
		h.Write([]byte{0})

		f, err := os.Open(filepath.Join(root, input))
		if err != nil {
			if os.IsNotExist(err) {
				h.Write([]byte("absent"))
				h.Write([]byte{0})
				continue
			}
			return "", fmt.Errorf("hashing cache input %s: %w", input, err)
		}
		if _, err := io.Copy(h, f); err != nil {
			f.Close()
			return "", fmt.Errorf("hashing cache input %s: %w", input, err)
		}
		f.Close()
		h.Write([]byte{0})
	}

	sum := h.Sum(nil)
	return tool + "-" + hex.EncodeToString(sum[:16]), nil
}
