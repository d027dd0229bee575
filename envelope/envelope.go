package envelope

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	commoncbor "github.com/datatrails/go-datatrails-common/cbor"
	commoncose "github.com/datatrails/go-datatrails-common/cose"
	"github.com/veraison/go-cose"
)

// SignedEnvelope is the canonical wrapper every record, checkpoint and
// checkpoint candidate travels in: a COSE_Sign1 message over the canonical
// CBOR encoding of T. Verify never returns a zero-value T without an error,
// so callers can treat a nil error as proof the payload was produced by the
// holder of the named key.
type SignedEnvelope[T any] struct {
	codec  commoncbor.CBORCodec
	signer IdentifiableCoseSigner
}

// NewSignedEnvelope builds a helper bound to a codec and, when signing is
// required, a signer. Verify-only callers may pass a nil signer.
func NewSignedEnvelope[T any](codec commoncbor.CBORCodec, signer IdentifiableCoseSigner) (*SignedEnvelope[T], error) {
	return &SignedEnvelope[T]{codec: codec, signer: signer}, nil
}

// Sign produces COSE_Sign1 bytes carrying, and signed over, the canonical
// CBOR encoding of payload. external is the externally supplied AAD, typically
// empty for our purposes but plumbed through for callers that bind the
// signature to transport-level context.
func (e *SignedEnvelope[T]) Sign(ctx context.Context, payload T, external []byte) ([]byte, error) {
	if e.signer == nil {
		return nil, ErrSignerNotProvided
	}
	if e.codec == (commoncbor.CBORCodec{}) {
		return nil, ErrCBORCodecNotProvided
	}

	body, err := e.codec.MarshalCBOR(payload)
	if err != nil {
		return nil, fmt.Errorf("marshalling envelope payload: %w", err)
	}

	kid := e.signer.KeyIdentifier()
	pubKey, err := e.signer.PublicKey(ctx, kid)
	if err != nil {
		return nil, fmt.Errorf("resolving signer public key: %w", err)
	}

	msg := cose.Sign1Message{
		Headers: cose.Headers{
			Protected: cose.ProtectedHeader{
				cose.HeaderLabelAlgorithm: e.signer.Algorithm(),
				cose.HeaderLabelKeyID:     []byte(kid),
			},
		},
		Payload: body,
	}
	if err := msg.Sign(rand.Reader, external, e.signer); err != nil {
		return nil, fmt.Errorf("signing envelope: %w", err)
	}
	_ = pubKey // resolved eagerly so signing fails fast on an unknown kid

	encodable, err := commoncose.NewCoseSign1Message(&msg)
	if err != nil {
		return nil, fmt.Errorf("encoding signed envelope: %w", err)
	}
	return encodable.MarshalCBOR()
}

// Verify decodes and verifies signed, resolving the signing key by the key
// identifier carried in its protected header via keys. It returns the
// decoded payload only once the signature has been checked.
func (e *SignedEnvelope[T]) Verify(ctx context.Context, keys KeyProvider, signed []byte, external []byte) (T, error) {
	var zero T
	if e.codec == (commoncbor.CBORCodec{}) {
		return zero, ErrCBORCodecNotProvided
	}

	msg, err := commoncose.NewCoseSign1MessageFromCBOR(signed, commoncose.WithDecOptions(DecOptions()))
	if err != nil {
		return zero, fmt.Errorf("decoding signed envelope: %w", err)
	}

	kidRaw, ok := msg.Headers.Protected[cose.HeaderLabelKeyID]
	if !ok {
		return zero, fmt.Errorf("%w: no key id in protected header", ErrVerifyFailed)
	}
	kidBytes, ok := kidRaw.([]byte)
	if !ok {
		return zero, fmt.Errorf("%w: malformed key id", ErrVerifyFailed)
	}
	kid := string(kidBytes)

	pubKey, err := keys.PublicKey(ctx, kid)
	if err != nil {
		return zero, fmt.Errorf("%w: %w", ErrKeyIDMismatch, err)
	}

	alg, err := coseAlgorithm(e.signer, msg)
	if err != nil {
		return zero, err
	}

	if err := msg.VerifyWithProvider(staticProvider{pubKey: pubKey, alg: alg}, external); err != nil {
		return zero, fmt.Errorf("%w: %w", ErrVerifyFailed, err)
	}

	var payload T
	if err := e.codec.UnmarshalInto(msg.Payload, &payload); err != nil {
		return zero, fmt.Errorf("unmarshalling envelope payload: %w", err)
	}
	return payload, nil
}

// Digest returns the SHA-256 digest of the signed envelope bytes, used as
// the content-addressed RecordId and CheckpointHash throughout the service.
func Digest(signed []byte) [32]byte {
	return sha256.Sum256(signed)
}

type staticProvider struct {
	pubKey *ecdsa.PublicKey
	alg    cose.Algorithm
}

func (p staticProvider) PublicKey() (crypto.PublicKey, cose.Algorithm, error) {
	return p.pubKey, p.alg, nil
}

// coseAlgorithm resolves the signing algorithm to verify with. When a signer
// is bound to this envelope its algorithm is authoritative; verify-only
// callers fall back to the algorithm named in the message's protected header.
func coseAlgorithm(signer IdentifiableCoseSigner, msg *commoncose.CoseSign1Message) (cose.Algorithm, error) {
	if signer != nil {
		return signer.Algorithm(), nil
	}
	raw, ok := msg.Headers.Protected[cose.HeaderLabelAlgorithm]
	if !ok {
		return 0, fmt.Errorf("%w: no algorithm in protected header", ErrVerifyFailed)
	}
	switch v := raw.(type) {
	case int64:
		return cose.Algorithm(v), nil
	case cose.Algorithm:
		return v, nil
	default:
		return 0, fmt.Errorf("%w: unrecognised algorithm encoding", ErrVerifyFailed)
	}
}
