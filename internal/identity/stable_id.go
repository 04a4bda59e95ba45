package identity

import (
	"crypto/sha1" //nolint:gosec // content addressing, not a security boundary
	"fmt"

	"github.com/google/uuid"
)

// Namespace is prefixed to every namespaced slug before hashing.
const Namespace = "build-cv:"

// Entity namespaces keep a job and a highlight that share a slug on distinct ids.
const (
	JobNamespace       = "job:"
	HighlightNamespace = "highlight:"
)

// Digest produces a 160-bit digest of its input.
type Digest func([]byte) [20]byte

// SHA1 is the default Digest.
func SHA1(b []byte) [20]byte {
	return sha1.Sum(b) //nolint:gosec
}

// Codec derives stable identifiers with a configurable digest.
type Codec struct {
	digest Digest
}

// NewCodec returns a Codec using d, or SHA1 when d is nil.
func NewCodec(d Digest) *Codec {
	if d == nil {
		d = SHA1
	}
	return &Codec{digest: d}
}

var defaultCodec = NewCodec(nil)

// StableID hashes the product namespace plus namespacedSlug, keeps the first 128 bits
// and marks them as a name-based (version 5, RFC 4122 variant) UUID.
func (c *Codec) StableID(namespacedSlug string) uuid.UUID {
	sum := c.digest([]byte(Namespace + namespacedSlug))

	var id uuid.UUID
	copy(id[:], sum[:16])
	id[6] = (id[6] & 0x0f) | 0x50
	id[8] = (id[8] & 0x3f) | 0x80
	return id
}

// StableIDFromSlug derives the stable identifier of a namespaced slug with SHA-1.
func StableIDFromSlug(namespacedSlug string) uuid.UUID {
	return defaultCodec.StableID(namespacedSlug)
}

// JobID is the stable identifier of the job with the given slug.
func JobID(slug string) uuid.UUID {
	return StableIDFromSlug(JobNamespace + slug)
}

// HighlightID is the stable identifier of the highlight with the given slug.
func HighlightID(slug string) uuid.UUID {
	return StableIDFromSlug(HighlightNamespace + slug)
}

// StoreRef derives a deterministic, SQL-identifier-safe store name for a principal.
// Two concurrent provisioning attempts for one principal always target the same store.
func StoreRef(principal string) string {
	id := StableIDFromSlug("principal:" + principal)
	return fmt.Sprintf("atoms_%x", id[:])
}
