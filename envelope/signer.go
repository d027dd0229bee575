package envelope

import (
	"context"
	"crypto/ecdsa"

	"github.com/veraison/go-cose"
)

// IdentifiableCoseSigner is a cose.Signer that can also produce the public
// key material and key identifier needed by a verifier, so that signed
// envelopes are self-describing enough to check without an out of band key
// exchange.
type IdentifiableCoseSigner interface {
	cose.Signer
	PublicKey(ctx context.Context, kid string) (*ecdsa.PublicKey, error)
	LatestPublicKey() (*ecdsa.PublicKey, error)
	KeyIdentifier() string
	KeyLocation() string
}

// KeyProvider resolves the public key for a signed message by the key
// identifier carried in its protected header. It is satisfied by
// *StaticKeyProvider and by any IdentifiableCoseSigner wrapper that also
// wants to verify its own output (useful in tests).
type KeyProvider interface {
	PublicKey(ctx context.Context, kid string) (*ecdsa.PublicKey, error)
}

// StaticKeyProvider resolves keys from a fixed set, keyed by key identifier.
// It is the verifier-side counterpart used by operators and clients that
// only ever need to check envelopes signed by a known, small set of core
// service keys.
type StaticKeyProvider struct {
	keys map[string]*ecdsa.PublicKey
}

// NewStaticKeyProvider builds a KeyProvider from a fixed key identifier to
// public key mapping.
func NewStaticKeyProvider(keys map[string]*ecdsa.PublicKey) *StaticKeyProvider {
	return &StaticKeyProvider{keys: keys}
}

func (p *StaticKeyProvider) PublicKey(_ context.Context, kid string) (*ecdsa.PublicKey, error) {
	key, ok := p.keys[kid]
	if !ok {
		return nil, ErrKeyIDMismatch
	}
	return key, nil
}
