// Package identity derives deterministic identifiers for riders and team
// owners that have no canonical key upstream.
package identity

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

const (
	riderPrefix    = "rider/"
	riderHashLen   = 12
	accessHashLen  = 10
	seasonTagStart = "MB"
)

// StableRiderSlug derives a fallback rider slug from the rider's name and
// nationality. The same pair always yields the same slug.
func StableRiderSlug(name, nationality string) string {
	return riderPrefix + hashPrefix(name+"|"+nationality, riderHashLen)
}

// CanonicalRiderSlug returns the source rider url when it is a rider link,
// otherwise the stable slug for name and nationality.
func CanonicalRiderSlug(riderURL, name, nationality string) string {
	if slug, ok := NormalizeRiderURL(riderURL); ok {
		return slug
	}
	return StableRiderSlug(name, nationality)
}

// NormalizeRiderURL trims whitespace and a leading slash and reports whether
// the remainder is a "rider/<slug>" link.
func NormalizeRiderURL(riderURL string) (string, bool) {
	s := strings.TrimPrefix(strings.TrimSpace(riderURL), "/")
	if !strings.HasPrefix(s, riderPrefix) || len(s) == len(riderPrefix) {
		return "", false
	}
	return s, true
}

// SeasonTag is the access code namespace for a season, e.g. "MB2025".
func SeasonTag(year int) string {
	return fmt.Sprintf("%s%d", seasonTagStart, year)
}

// StableAccessCode derives the access code for an owner. Owner names are
// trimmed and case-folded first, so "Anna " and "anna" share a code.
func StableAccessCode(owner, seasonTag string) string {
	return seasonTag + "-" + hashPrefix(NormalizeOwner(owner), accessHashLen)
}

// NormalizeOwner trims and case-folds an owner name.
func NormalizeOwner(owner string) string {
	return FoldName(owner)
}

// FoldName trims and case-folds a display name for comparison.
func FoldName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

func hashPrefix(s string, n int) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:n]
}
