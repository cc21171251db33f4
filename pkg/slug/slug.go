// Package slug derives URL-safe, per-owner-unique identifiers from
// human-entered sandbox names.
package slug

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"strings"
)

const (
	// maxLength bounds the sanitized base; collision suffixes may extend
	// the final slug by a few characters beyond it.
	maxLength   = 40
	maxAttempts = 50

	// randomAttempts bounds the randomized fallback once every numbered
	// candidate is taken.
	randomAttempts = 3

	fallbackPrefix = "sbx-"
)

// TakenFunc reports whether a slug is already in use. Implementations are
// expected to scope the check to a single owner's namespace; the same slug
// may exist for different owners.
type TakenFunc func(ctx context.Context, slug string) (bool, error)

// Generate derives a slug from desiredName and probes taken until it finds
// a free one, appending -2, -3, ... on collision and switching to a random
// suffix once the numbered candidates are exhausted. Below that bound the
// result is deterministic given the same inputs and store state, and it is
// never empty: when sanitization strips every character, a token derived
// from the owner and name is used instead.
func Generate(ctx context.Context, ownerID, desiredName string, taken TakenFunc) (string, error) {
	base := Sanitize(desiredName)
	if base == "" {
		base = fallbackToken(ownerID, desiredName)
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		candidate := base
		if attempt > 1 {
			candidate = fmt.Sprintf("%s-%d", base, attempt)
		}
		inUse, err := taken(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("slug uniqueness check: %w", err)
		}
		if !inUse {
			return candidate, nil
		}
	}

	for attempt := 0; attempt < randomAttempts; attempt++ {
		candidate := base + "-" + randomSuffix()
		inUse, err := taken(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("slug uniqueness check: %w", err)
		}
		if !inUse {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("no free slug for %q after %d attempts", desiredName, maxAttempts+randomAttempts)
}

// Sanitize lower-cases the name, replaces every character outside [a-z0-9]
// with a hyphen, collapses hyphen runs, trims boundary hyphens, and
// truncates to a bounded length. It returns "" when nothing survives.
func Sanitize(name string) string {
	var b strings.Builder
	lastHyphen := true // swallow leading hyphens
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	s := strings.TrimRight(b.String(), "-")
	if len(s) > maxLength {
		s = strings.TrimRight(s[:maxLength], "-")
	}
	return s
}

func randomSuffix() string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(b[:])
}

func fallbackToken(ownerID, desiredName string) string {
	h := fnv.New32a()
	h.Write([]byte(ownerID))
	h.Write([]byte{0})
	h.Write([]byte(desiredName))
	return fmt.Sprintf("%s%08x", fallbackPrefix, h.Sum32())
}
