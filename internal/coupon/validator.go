// Package coupon validates redemption codes against a fixed allow-list.
//
// This is a trusted-fixed-list mechanism, not a general coupon engine:
// no expiry, no usage-count limits, no per-coupon tier mapping. A valid
// code grants the pro tier.
package coupon

import (
	"crypto/subtle"
	"strings"
)

// Validator checks redemption codes. Codes are loaded once from
// configuration and held in memory.
type Validator struct {
	codes []string
}

// NewValidator creates a validator for the given allow-list.
// Codes are normalized (trimmed, uppercased) and deduplicated, so
// matching is case-insensitive.
func NewValidator(codes []string) *Validator {
	seen := make(map[string]bool)
	normalized := make([]string, 0, len(codes))
	for _, code := range codes {
		norm := Normalize(code)
		if norm != "" && !seen[norm] {
			seen[norm] = true
			normalized = append(normalized, norm)
		}
	}
	return &Validator{codes: normalized}
}

// Normalize returns the canonical form of a code: trimmed and uppercased.
// The normalized form is what gets stored in the coupon audit field.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Valid reports whether the provided code is on the allow-list.
//
// Uses constant-time comparison to avoid leaking which prefix of a code
// matched. Every stored code is checked regardless of an earlier match so
// timing stays consistent.
func (v *Validator) Valid(code string) bool {
	normalized := Normalize(code)
	if normalized == "" {
		return false
	}

	found := 0
	for _, valid := range v.codes {
		a := []byte(normalized)
		b := []byte(valid)
		// ConstantTimeCompare requires equal lengths; gate on a
		// constant-time length check first.
		if subtle.ConstantTimeEq(int32(len(a)), int32(len(b))) == 1 {
			found |= subtle.ConstantTimeCompare(a, b)
		}
	}

	return found == 1
}
