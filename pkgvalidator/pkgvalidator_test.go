package pkgvalidator

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

func TestValidator_InitThenRelease(t *testing.T) {
	v := New()
	_, err := v.Validate(model.Envelope{Payload: mustPayload(t, Payload{Op: Init, Key: "k1"})})
	require.NoError(t, err)

	digest := model.ContentDigest{1, 2, 3}
	digests, err := v.Validate(model.Envelope{KeyId: "k1", Payload: mustPayload(t, Payload{
		Op: Release, Version: "1.0.0", ContentDigest: digest,
	})})
	require.NoError(t, err)
	assert.Equal(t, []model.ContentDigest{digest}, digests)
}

func TestValidator_SecondInitRejected(t *testing.T) {
	v := New()
	_, err := v.Validate(model.Envelope{Payload: mustPayload(t, Payload{Op: Init, Key: "k1"})})
	require.NoError(t, err)

	_, err = v.Validate(model.Envelope{Payload: mustPayload(t, Payload{Op: Init, Key: "k2"})})
	var rejected *model.ValidatorRejectedError
	assert.ErrorAs(t, err, &rejected)
}

func TestValidator_VersionRegressionRejected(t *testing.T) {
	v := New()
	_, err := v.Validate(model.Envelope{Payload: mustPayload(t, Payload{Op: Init, Key: "k1"})})
	require.NoError(t, err)

	_, err = v.Validate(model.Envelope{KeyId: "k1", Payload: mustPayload(t, Payload{
		Op: Release, Version: "1.0.0", ContentDigest: model.ContentDigest{1},
	})})
	require.NoError(t, err)

	_, err = v.Validate(model.Envelope{KeyId: "k1", Payload: mustPayload(t, Payload{
		Op: Release, Version: "0.9.0", ContentDigest: model.ContentDigest{2},
	})})
	var rejected *model.ValidatorRejectedError
	assert.ErrorAs(t, err, &rejected)
}

func TestValidator_RejectedReleaseDoesNotAdvanceHighWaterMark(t *testing.T) {
	v := New()
	_, err := v.Validate(model.Envelope{Payload: mustPayload(t, Payload{Op: Init, Key: "k1"})})
	require.NoError(t, err)

	snap := v.Snapshot()

	// An invalid version never advances highestAccepted.
	_, err = v.Validate(model.Envelope{KeyId: "k1", Payload: mustPayload(t, Payload{
		Op: Release, Version: "not-a-version", ContentDigest: model.ContentDigest{1},
	})})
	var rejected *model.ValidatorRejectedError
	require.ErrorAs(t, err, &rejected)

	v.Rollback(snap)
	assert.Equal(t, "", v.highestAccepted)
}

func TestValidator_YankRequiresPriorAcceptedVersion(t *testing.T) {
	v := New()
	_, err := v.Validate(model.Envelope{Payload: mustPayload(t, Payload{Op: Init, Key: "k1"})})
	require.NoError(t, err)

	_, err = v.Validate(model.Envelope{KeyId: "k1", Payload: mustPayload(t, Payload{Op: Yank, Version: "1.0.0", Reason: "bad"})})
	var rejected *model.ValidatorRejectedError
	assert.ErrorAs(t, err, &rejected)

	_, err = v.Validate(model.Envelope{KeyId: "k1", Payload: mustPayload(t, Payload{
		Op: Release, Version: "1.0.0", ContentDigest: model.ContentDigest{1},
	})})
	require.NoError(t, err)

	_, err = v.Validate(model.Envelope{KeyId: "k1", Payload: mustPayload(t, Payload{Op: Yank, Version: "1.0.0", Reason: "bad"})})
	assert.NoError(t, err)

	_, err = v.Validate(model.Envelope{KeyId: "k1", Payload: mustPayload(t, Payload{Op: Yank, Version: "1.0.0", Reason: "again"})})
	assert.ErrorAs(t, err, &rejected)
}

func TestValidator_UnauthorizedSignerRejected(t *testing.T) {
	v := New()
	_, err := v.Validate(model.Envelope{Payload: mustPayload(t, Payload{Op: Init, Key: "k1"})})
	require.NoError(t, err)

	_, err = v.Validate(model.Envelope{KeyId: "intruder", Payload: mustPayload(t, Payload{
		Op: Release, Version: "1.0.0", ContentDigest: model.ContentDigest{1},
	})})
	var rejected *model.ValidatorRejectedError
	assert.ErrorAs(t, err, &rejected)
}
