package as2

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

const micAlgorithm = "sha-256"

// ComputeMIC returns the base64 SHA-256 digest of content in the
// Received-Content-MIC form "<digest>, sha-256".
func ComputeMIC(content []byte) string {
	sum := sha256.Sum256(content)
	return base64.StdEncoding.EncodeToString(sum[:]) + ", " + micAlgorithm
}

// MICMatches compares two MIC values ignoring whitespace around the parts
func MICMatches(a, b string) bool {
	return normalizeMIC(a) == normalizeMIC(b)
}

func normalizeMIC(m string) string {
	parts := strings.SplitN(m, ",", 2)
	digest := strings.TrimSpace(parts[0])
	alg := micAlgorithm
	if len(parts) == 2 {
		alg = strings.ToLower(strings.TrimSpace(parts[1]))
	}
	return digest + "," + alg
}

// NormalizeMessageID strips whitespace and angle brackets so IDs from
// headers and MDN bodies compare equal.
func NormalizeMessageID(id string) string {
	id = strings.TrimSpace(id)
	id = strings.TrimPrefix(id, "<")
	return strings.TrimSuffix(id, ">")
}
