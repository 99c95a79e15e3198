// Package canonical renders the stable subset of a verification request as
// deterministic bytes and hashes them.
//
// Only identity-bearing fields contribute. Request time, request id and nonce
// change between retries of the same attempt and are left out, so the same
// confirmed data always yields the same hash.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strconv"
	"strings"

	"suiverify/internal/kyc/models"
)

const (
	pairSeparator = "|"
	kvSeparator   = ":"
	fieldPrefix   = "field."
)

// escaper backslash-escapes the separators so no value can forge a pair.
var escaper = strings.NewReplacer(`\`, `\\`, pairSeparator, `\`+pairSeparator, kvSeparator, `\`+kvSeparator)

// Pair is one key/value of the canonical form.
type Pair struct {
	Key   string
	Value string
}

// StablePairs returns the non-empty stable fields of req, sorted by key.
func StablePairs(req *models.VerificationRequest) []Pair {
	pairs := make([]Pair, 0, 4+len(req.Fields))
	add := func(key, value string) {
		if value != "" {
			pairs = append(pairs, Pair{Key: key, Value: value})
		}
	}

	add("subject_identifier", req.SubjectIdentifier)
	add("document_type_id", req.DocumentTypeID)
	add("verification_type", string(req.VerificationType))
	add("did_id", strconv.Itoa(req.DIDID))
	for name, value := range req.Fields {
		add(fieldPrefix+string(name), value)
	}

	slices.SortFunc(pairs, func(a, b Pair) int { return strings.Compare(a.Key, b.Key) })
	return pairs
}

// Canonicalize joins the stable pairs as key:value separated by |. A
// backslash, | or : inside a key or value is escaped with a backslash.
func Canonicalize(req *models.VerificationRequest) []byte {
	var b strings.Builder
	for i, p := range StablePairs(req) {
		if i > 0 {
			b.WriteString(pairSeparator)
		}
		b.WriteString(escaper.Replace(p.Key))
		b.WriteString(kvSeparator)
		b.WriteString(escaper.Replace(p.Value))
	}
	return []byte(b.String())
}

// EvidenceHash is the lowercase hex SHA-256 of the canonical bytes.
func EvidenceHash(req *models.VerificationRequest) string {
	sum := sha256.Sum256(Canonicalize(req))
	return hex.EncodeToString(sum[:])
}
