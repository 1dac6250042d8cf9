// Package cache provides exact-match response caching keyed by request
// fingerprints.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// FormatVersion is folded into every fingerprint so that a change to the
// generation output format invalidates previously cached responses.
const FormatVersion = "1.0"

// fingerprintInput is the canonical payload hashed into a fingerprint.
// Field names are kept in sorted order to pin the serialized form.
type fingerprintInput struct {
	Model   string `json:"model"`
	Text    string `json:"text"`
	Version string `json:"version"`
}

// Canonicalize normalizes a requirement for fingerprinting: surrounding
// whitespace and letter case never affect cache identity.
func Canonicalize(requirement string) string {
	return strings.ToLower(strings.TrimSpace(requirement))
}

// Fingerprint returns the deterministic cache key for a requirement and
// parameter set: identical inputs always produce the same digest, and any
// parameter change produces a different one.
func Fingerprint(requirement, model string) string {
	payload, _ := json.Marshal(fingerprintInput{
		Model:   model,
		Text:    Canonicalize(requirement),
		Version: FormatVersion,
	})

	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
