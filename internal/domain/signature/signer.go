// Package signature implements the keyed request authentication used by the
// provider protocol. Every request and response carries an hmac field computed
// over a canonical ordering of the payload with a pre-shared secret.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// FieldName is the envelope field that carries the authentication tag. It is
// always excluded from the digest input.
const FieldName = "hmac"

// Signer computes and verifies request tags with a shared secret
type Signer struct {
	secret []byte
}

// NewSigner creates a Signer for the given pre-shared secret
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign computes the lowercase hex HMAC-SHA256 tag over the canonical form of
// the fields. Canonical form: keys sorted lexicographically, rendered as
// key=value pairs joined by '&'. The hmac field itself is skipped.
func (s *Signer) Sign(fields map[string]string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(canonicalize(fields)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the tag and compares it against the supplied one in
// constant time. An empty tag never verifies.
func (s *Signer) Verify(fields map[string]string, tag string) bool {
	if tag == "" {
		return false
	}
	expected := s.Sign(fields)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(tag)))
}

// canonicalize renders the fields in a deterministic order so that both sides
// of the integration compute the digest over identical bytes
func canonicalize(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == FieldName {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fields[k])
	}
	return b.String()
}
