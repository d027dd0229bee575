package operator

import (
	"testing"

	"github.com/fibonacci1729/registry/model"
	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustPayload(t *testing.T, p Payload) []byte {
	t.Helper()
	b, err := cbor.Marshal(p)
	require.NoError(t, err)
	return b
}

func TestValidator_InitEstablishesBootstrapKey(t *testing.T) {
	v := New()
	digests, err := v.Validate(model.Envelope{Payload: mustPayload(t, Payload{Op: Init, Key: "k1"})})
	require.NoError(t, err)
	assert.Empty(t, digests)

	_, ok := v.authorized["k1"]
	assert.True(t, ok)
}

func TestValidator_SecondInitRejected(t *testing.T) {
	v := New()
	_, err := v.Validate(model.Envelope{Payload: mustPayload(t, Payload{Op: Init, Key: "k1"})})
	require.NoError(t, err)

	_, err = v.Validate(model.Envelope{Payload: mustPayload(t, Payload{Op: Init, Key: "k2"})})
	var rejected *model.ValidatorRejectedError
	assert.ErrorAs(t, err, &rejected)
}

func TestValidator_GrantAndRevoke(t *testing.T) {
	v := New()
	_, err := v.Validate(model.Envelope{Payload: mustPayload(t, Payload{Op: Init, Key: "k1"})})
	require.NoError(t, err)

	_, err = v.Validate(model.Envelope{KeyId: "k1", Payload: mustPayload(t, Payload{Op: GrantKey, Key: "k2"})})
	require.NoError(t, err)

	_, err = v.Validate(model.Envelope{KeyId: "k1", Payload: mustPayload(t, Payload{Op: RevokeKey, Key: "k1"})})
	require.NoError(t, err)
	_, ok := v.authorized["k1"]
	assert.False(t, ok)
}

func TestValidator_CannotRevokeLastKey(t *testing.T) {
	v := New()
	_, err := v.Validate(model.Envelope{Payload: mustPayload(t, Payload{Op: Init, Key: "k1"})})
	require.NoError(t, err)

	_, err = v.Validate(model.Envelope{KeyId: "k1", Payload: mustPayload(t, Payload{Op: RevokeKey, Key: "k1"})})
	var rejected *model.ValidatorRejectedError
	assert.ErrorAs(t, err, &rejected)
}

func TestValidator_UnauthorizedSignerRejected(t *testing.T) {
	v := New()
	_, err := v.Validate(model.Envelope{Payload: mustPayload(t, Payload{Op: Init, Key: "k1"})})
	require.NoError(t, err)

	_, err = v.Validate(model.Envelope{KeyId: "intruder", Payload: mustPayload(t, Payload{Op: GrantKey, Key: "k2"})})
	var rejected *model.ValidatorRejectedError
	assert.ErrorAs(t, err, &rejected)
}

func TestValidator_SnapshotRollback(t *testing.T) {
	v := New()
	_, err := v.Validate(model.Envelope{Payload: mustPayload(t, Payload{Op: Init, Key: "k1"})})
	require.NoError(t, err)

	snap := v.Snapshot()
	_, err = v.Validate(model.Envelope{KeyId: "k1", Payload: mustPayload(t, Payload{Op: GrantKey, Key: "k2"})})
	require.NoError(t, err)
	_, ok := v.authorized["k2"]
	require.True(t, ok)

	v.Rollback(snap)
	_, ok = v.authorized["k2"]
	assert.False(t, ok)
	_, ok = v.authorized["k1"]
	assert.True(t, ok)
}
