package space

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// DefaultIdentitySize is the digest length used when none is given.
const DefaultIdentitySize = 16

// ComputeIdentity hashes a sample into a hex digest of the given size.
// Keys are fed in sorted order, each followed by the string form of its
// value; nested maps contribute their own digest instead.
func ComputeIdentity(sample map[string]any, size int) string {
	h := sha256.New()

	keys := make([]string, 0, len(sample))
	for k := range sample {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		h.Write([]byte(k))
		if nested, ok := sample[k].(map[string]any); ok {
			h.Write([]byte(ComputeIdentity(nested, size)))
			continue
		}
		h.Write([]byte(FormatValue(sample[k])))
	}

	digest := hex.EncodeToString(h.Sum(nil))
	if size > 0 && size < len(digest) {
		return digest[:size]
	}
	return digest
}
