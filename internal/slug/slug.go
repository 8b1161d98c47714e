// Package slug derives URL-safe unique identifiers from display names.
//
// Both icons and categories are addressed publicly by slug rather than by
// database ID, so slugs must be unique within their table. Make handles the
// textual transformation; MakeUnique layers collision probing on top via a
// caller-supplied existence check.
package slug

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// Make converts a display name to a slug:
//
//   - uppercase letters are lowercased
//   - runs of anything that isn't a letter or digit collapse to a single "-"
//   - leading and trailing separators are trimmed
//
// Example:
//
//	Make("Safari 2024!")  // "safari-2024"
//	Make("  My App 2.0 ") // "my-app-2-0"
func Make(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	lastDash := true // suppress a leading dash
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastDash = false
		} else if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}

	return strings.TrimRight(b.String(), "-")
}

// ExistsFunc reports whether a candidate slug is already taken, excluding
// the record being edited (excludeID may be empty for new records).
// Implemented by the repositories' SlugExists methods.
type ExistsFunc func(ctx context.Context, slug, excludeID string) (bool, error)

// MakeUnique returns a slug for name that is unique at the moment of check.
//
// If the base slug collides, numeric suffixes -1, -2, ... are probed until a
// free one is found. Each failed candidate strictly increases the suffix, so
// the loop always terminates.
//
// The check-then-insert here is not atomic: two concurrent uploads with the
// same name can both pass the probe. The schema's UNIQUE constraint is the
// real guarantee — callers must catch the resulting conflict at insert time
// and retry generation once.
func MakeUnique(ctx context.Context, name, excludeID string, exists ExistsFunc) (string, error) {
	base := Make(name)
	if base == "" {
		base = "untitled"
	}

	candidate := base
	for counter := 1; ; counter++ {
		taken, err := exists(ctx, candidate, excludeID)
		if err != nil {
			return "", fmt.Errorf("slug: checking %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, counter)
	}
}
