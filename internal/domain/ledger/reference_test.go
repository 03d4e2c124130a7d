package ledger

import (
	"encoding/json"
	"testing"

	"github.com/openpharm/ledger/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validHexID = "64a1b2c3d4e5f6a7b8c9d0e1"

func TestResolveReference(t *testing.T) {
	t.Run("valid bare string passes through unchanged", func(t *testing.T) {
		ref := ResolveReference(validHexID)
		assert.True(t, ref.Valid)
		assert.Equal(t, valueobject.ObjectID(validHexID), ref.ID)
		assert.Nil(t, ref.Snapshot)
	})

	t.Run("populated object preserves id and snapshot", func(t *testing.T) {
		ref := ResolveReference(map[string]interface{}{
			"_id":         validHexID,
			"totalAmount": float64(1000),
			"description": "Initial funding",
			"groupNumber": "TG-2025-001",
			"status":      "confirmed",
		})
		require.True(t, ref.Valid)
		assert.Equal(t, valueobject.ObjectID(validHexID), ref.ID)
		require.NotNil(t, ref.Snapshot)
		assert.True(t, decimal.NewFromInt(1000).Equal(ref.Snapshot.TotalAmount))
		assert.Equal(t, "Initial funding", ref.Snapshot.Description)
		assert.Equal(t, "TG-2025-001", ref.Snapshot.GroupNumber)
		assert.Equal(t, GroupStatusConfirmed, ref.Snapshot.Status)
	})

	t.Run("extended JSON oid wrapper", func(t *testing.T) {
		ref := ResolveReference(map[string]interface{}{"$oid": validHexID})
		assert.True(t, ref.Valid)
		assert.Equal(t, valueobject.ObjectID(validHexID), ref.ID)
	})

	t.Run("nested oid under _id", func(t *testing.T) {
		ref := ResolveReference(map[string]interface{}{
			"_id": map[string]interface{}{"$oid": validHexID},
		})
		assert.True(t, ref.Valid)
		assert.Equal(t, valueobject.ObjectID(validHexID), ref.ID)
	})

	t.Run("stringer input", func(t *testing.T) {
		ref := ResolveReference(valueobject.ObjectID(validHexID))
		assert.True(t, ref.Valid)
	})

	t.Run("raw JSON message", func(t *testing.T) {
		raw := json.RawMessage(`{"_id":"` + validHexID + `","totalAmount":250}`)
		ref := ResolveReference(raw)
		require.True(t, ref.Valid)
		require.NotNil(t, ref.Snapshot)
		assert.True(t, decimal.NewFromInt(250).Equal(ref.Snapshot.TotalAmount))
	})

	t.Run("malformed ids are flagged invalid", func(t *testing.T) {
		for _, raw := range []interface{}{
			nil,
			"",
			"abc",
			"64a1b2c3d4e5f6a7b8c9d0e",   // 23 chars
			"64a1b2c3d4e5f6a7b8c9d0e1f", // 25 chars
			"zza1b2c3d4e5f6a7b8c9d0e1",  // non-hex
			42,
			map[string]interface{}{"name": "no id here"},
		} {
			ref := ResolveReference(raw)
			assert.False(t, ref.Valid, "input %v should not resolve", raw)
			assert.False(t, ref.ID.IsValid())
		}
	})

	t.Run("snapshot survives an invalid id", func(t *testing.T) {
		ref := ResolveReference(map[string]interface{}{
			"_id":         "bogus",
			"totalAmount": float64(700),
		})
		assert.False(t, ref.Valid)
		require.NotNil(t, ref.Snapshot)
		assert.True(t, decimal.NewFromInt(700).Equal(ref.Snapshot.TotalAmount))
	})

	t.Run("numeric snapshot shapes", func(t *testing.T) {
		for _, amount := range []interface{}{float64(300), int64(300), 300, json.Number("300"), "300"} {
			ref := ResolveReference(map[string]interface{}{"_id": validHexID, "totalAmount": amount})
			require.NotNil(t, ref.Snapshot, "amount shape %T", amount)
			assert.True(t, decimal.NewFromInt(300).Equal(ref.Snapshot.TotalAmount))
		}
	})
}

func TestIsValidObjectID(t *testing.T) {
	assert.True(t, valueobject.IsValidObjectID(validHexID))
	assert.True(t, valueobject.IsValidObjectID("ABCDEF0123456789abcdef01"))
	assert.False(t, valueobject.IsValidObjectID(""))
	assert.False(t, valueobject.IsValidObjectID("ghijkl0123456789abcdef01"))
}
