package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "warden/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseUserID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseUserID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseUserID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseUserID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, UserID(validUUID), id)
	})

	t.Run("error message names the field", func(t *testing.T) {
		_, err := ParseIdentityID("nope")
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "identity_id"))
	})
}

func TestIDHelpers(t *testing.T) {
	t.Run("zero values are nil", func(t *testing.T) {
		assert.True(t, UserID{}.IsNil())
		assert.True(t, IdentityID{}.IsNil())
		assert.True(t, CampaignID{}.IsNil())
		assert.True(t, SuspensionID{}.IsNil())
	})

	t.Run("fresh IDs are not nil and round-trip", func(t *testing.T) {
		id := NewSuspensionID()
		assert.False(t, id.IsNil())

		parsed, err := ParseSuspensionID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	})
}
