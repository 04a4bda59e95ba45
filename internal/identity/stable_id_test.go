package identity

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStableIDFromSlug_Deterministic(t *testing.T) {
	for i := 0; i < 100; i++ {
		slug := fmt.Sprintf("job:acme-engineer-%d", i)
		assert.Equal(t, StableIDFromSlug(slug), StableIDFromSlug(slug))
	}
}

func TestStableIDFromSlug_Layout(t *testing.T) {
	id := StableIDFromSlug("job:acme-engineer-2020-01-01")

	assert.Equal(t, uuid.Version(5), id.Version())
	assert.Equal(t, uuid.RFC4122, id.Variant())

	parsed, err := uuid.Parse(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
	assert.Len(t, id.String(), 36)
}

func TestStableIDFromSlug_DistinctSlugs(t *testing.T) {
	assert.NotEqual(t, StableIDFromSlug("job:a"), StableIDFromSlug("job:b"))
}

func TestStableID_NamespacesNeverCollide(t *testing.T) {
	seen := make(map[uuid.UUID]string, 20000)
	for i := 0; i < 10000; i++ {
		slug := fmt.Sprintf("shared-slug-%d", i)
		for _, id := range []struct {
			kind string
			id   uuid.UUID
		}{
			{"job", JobID(slug)},
			{"highlight", HighlightID(slug)},
		} {
			key := id.kind + ":" + slug
			prev, dup := seen[id.id]
			require.False(t, dup, "%s collides with %s", key, prev)
			seen[id.id] = key
		}
	}
}

func TestCodec_UsesInjectedDigest(t *testing.T) {
	calls := 0
	var fixed [20]byte
	for i := range fixed {
		fixed[i] = 0xff
	}
	codec := NewCodec(func(b []byte) [20]byte {
		calls++
		assert.Equal(t, Namespace+"job:x", string(b))
		return fixed
	})

	id := codec.StableID("job:x")
	assert.Equal(t, 1, calls)
	assert.Equal(t, "ffffffff-ffff-5fff-bfff-ffffffffffff", id.String())
}

func TestNewCodec_DefaultsToSHA1(t *testing.T) {
	assert.Equal(t, StableIDFromSlug("highlight:x"), NewCodec(nil).StableID("highlight:x"))
}

func TestStoreRef(t *testing.T) {
	ref := StoreRef("github|12345")
	assert.Equal(t, ref, StoreRef("github|12345"))
	assert.NotEqual(t, ref, StoreRef("github|12346"))
	assert.Regexp(t, `^atoms_[0-9a-f]{32}$`, ref)
}
