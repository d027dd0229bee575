package envelope

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"

	"github.com/datatrails/go-datatrails-common/azkeys"
	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateTestKey(t *testing.T, curve elliptic.Curve) ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(curve, rand.Reader)
	require.NoError(t, err)
	return *key
}

type testPayload struct {
	Kind  string `cbor:"1,keyasint"`
	Value int64  `cbor:"2,keyasint"`
}

func TestSignedEnvelope_SignVerifyRoundTrip(t *testing.T) {
	logger.New("TEST")

	key := generateTestKey(t, elliptic.P256())
	signer := azkeys.NewTestCoseSigner(t, key)

	codec, err := NewCodec()
	require.NoError(t, err)

	env, err := NewSignedEnvelope[testPayload](codec, signer)
	require.NoError(t, err)

	payload := testPayload{Kind: "checkpoint", Value: 42}
	signed, err := env.Sign(context.Background(), payload, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, signed)

	pubKey, err := signer.PublicKey(context.Background(), signer.KeyIdentifier())
	require.NoError(t, err)
	keys := NewStaticKeyProvider(map[string]*ecdsa.PublicKey{signer.KeyIdentifier(): pubKey})

	verifier, err := NewSignedEnvelope[testPayload](codec, nil)
	require.NoError(t, err)

	got, err := verifier.Verify(context.Background(), keys, signed, nil)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestSignedEnvelope_VerifyRejectsUnknownKey(t *testing.T) {
	logger.New("TEST")

	key := generateTestKey(t, elliptic.P256())
	signer := azkeys.NewTestCoseSigner(t, key)

	codec, err := NewCodec()
	require.NoError(t, err)

	env, err := NewSignedEnvelope[testPayload](codec, signer)
	require.NoError(t, err)

	signed, err := env.Sign(context.Background(), testPayload{Kind: "record", Value: 7}, nil)
	require.NoError(t, err)

	verifier, err := NewSignedEnvelope[testPayload](codec, nil)
	require.NoError(t, err)

	keys := NewStaticKeyProvider(nil)
	_, err = verifier.Verify(context.Background(), keys, signed, nil)
	assert.ErrorIs(t, err, ErrKeyIDMismatch)
}

func TestSignedEnvelope_VerifyRejectsTamperedPayload(t *testing.T) {
	logger.New("TEST")

	key := generateTestKey(t, elliptic.P256())
	signer := azkeys.NewTestCoseSigner(t, key)

	codec, err := NewCodec()
	require.NoError(t, err)

	env, err := NewSignedEnvelope[testPayload](codec, signer)
	require.NoError(t, err)

	signed, err := env.Sign(context.Background(), testPayload{Kind: "record", Value: 7}, nil)
	require.NoError(t, err)

	tampered := append([]byte(nil), signed...)
	tampered[len(tampered)-1] ^= 0xFF

	pubKey, err := signer.PublicKey(context.Background(), signer.KeyIdentifier())
	require.NoError(t, err)
	keys := NewStaticKeyProvider(map[string]*ecdsa.PublicKey{signer.KeyIdentifier(): pubKey})

	verifier, err := NewSignedEnvelope[testPayload](codec, nil)
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), keys, tampered, nil)
	assert.ErrorIs(t, err, ErrVerifyFailed)
}
