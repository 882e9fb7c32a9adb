package storage

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	instant := uuid.MustParse("0b4e7f2a-3c1d-5e6f-8a9b-0c1d2e3f4a5b")

	t.Run("session keys are stable and KV safe", func(t *testing.T) {
		a := SessionKey("https://semrec.dev/entity/session/1")
		assert.Equal(t, a, SessionKey("https://semrec.dev/entity/session/1"))
		assert.NotEqual(t, a, SessionKey("https://semrec.dev/entity/session/2"))
		assert.NotContains(t, a, "/")
		assert.NotContains(t, a, ":")
	})

	t.Run("group keys round trip", func(t *testing.T) {
		key := GroupKey("urn:s", instant, 42)
		session, id, seq, err := ParseGroupKey(key)
		require.NoError(t, err)
		assert.Equal(t, SessionKey("urn:s"), session)
		assert.Equal(t, instant, id)
		assert.Equal(t, uint64(42), seq)
	})

	t.Run("group keys sort by sequence", func(t *testing.T) {
		assert.Less(t, GroupKey("urn:s", instant, 9), GroupKey("urn:s", instant, 10))
	})

	t.Run("invalid group keys", func(t *testing.T) {
		for _, key := range []string{"", "a.b", "a.not-a-uuid.1", "a." + instant.String() + ".x"} {
			_, _, _, err := ParseGroupKey(key)
			assert.Error(t, err, key)
		}
	})

	t.Run("instant IRI", func(t *testing.T) {
		id, err := InstantID("https://semrec.dev/entity/instant/" + instant.String())
		require.NoError(t, err)
		assert.Equal(t, instant, id)

		_, err = InstantID("https://semrec.dev/entity/instant/nope")
		assert.Error(t, err)
	})
}
