// Package familycode produces human-readable family identifiers and the
// normalized lookup variants that let a typed code resolve despite
// accents, case, or stray punctuation.
package familycode

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxAttempts bounds the uniqueness retry loop before falling back to an
// opaque identifier.
const maxAttempts = 40

var adjectives = []string{
	"amber", "brave", "calm", "clever", "cozy", "daring", "eager",
	"fuzzy", "gentle", "golden", "happy", "jolly", "kind", "lively",
	"lucky", "mellow", "merry", "nimble", "peppy", "plucky", "quiet",
	"rosy", "snug", "sunny", "swift", "tidy", "warm", "witty",
}

var nouns = []string{
	"badger", "beacon", "birch", "brook", "cabin", "cedar", "clover",
	"ember", "fern", "finch", "harbor", "hearth", "heron", "maple",
	"meadow", "orchard", "otter", "pebble", "pine", "robin", "sparrow",
	"thistle", "trail", "willow", "wren",
}

var (
	invalidRunes = regexp.MustCompile(`[^a-z0-9-]`)
	dashRuns     = regexp.MustCompile(`-{2,}`)
)

// Exists reports whether a candidate code is already taken in the store.
type Exists func(ctx context.Context, code string) (bool, error)

// Generate draws adjective-noun codes until one is free in the store.
// After maxAttempts collisions it falls back to an opaque UUID, which the
// store guarantees unique.
func Generate(ctx context.Context, taken Exists) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		adj, err := pick(adjectives)
		if err != nil {
			return "", fmt.Errorf("failed to draw adjective: %w", err)
		}
		noun, err := pick(nouns)
		if err != nil {
			return "", fmt.Errorf("failed to draw noun: %w", err)
		}

		code := Sanitize(adj + "-" + noun)
		inUse, err := taken(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check code uniqueness: %w", err)
		}
		if !inUse {
			return code, nil
		}
	}
	return uuid.New().String(), nil
}

// Sanitize normalizes arbitrary text into code form: lower-case, strip
// diacritics, replace anything outside [a-z0-9-] with '-', collapse
// repeated dashes, and trim leading/trailing dashes.
func Sanitize(text string) string {
	s := strings.ToLower(text)
	s = stripDiacritics(s)
	s = invalidRunes.ReplaceAllString(s, "-")
	s = dashRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Variants returns the deduplicated spellings a typed code should match
// against: the original and each normalization stage.
func Variants(code string) []string {
	lowered := strings.ToLower(code)
	stripped := stripDiacritics(lowered)

	seen := make(map[string]bool)
	var out []string
	for _, v := range []string{code, lowered, stripped, Sanitize(code)} {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// stripDiacritics decomposes and drops combining marks, so "café"
// becomes "cafe".
func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// pick selects one word uniformly at random.
func pick(words []string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(words))))
	if err != nil {
		return "", err
	}
	return words[n.Int64()], nil
}
