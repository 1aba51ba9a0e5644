package keys

import (
	"crypto/sha256"
	"fmt"
)

// maxInline is the longest params string rendered verbatim; anything longer
// (or non-printable) collapses to a short hash so keys stay bounded and
// loggable.
const maxInline = 48

// Storage returns the printable form of a cache key: "provider" when params
// is empty, "provider?params" for short printable params, and
// "provider?#<hash>" otherwise.
func Storage(provider, params string) string {
	if params == "" {
		return provider
	}
	if len(params) <= maxInline && printable(params) {
		return provider + "?" + params
	}
	sum := sha256.Sum256([]byte(params))
	return fmt.Sprintf("%s?#%x", provider, sum[:8])
}

func printable(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return false
		}
	}
	return true
}
