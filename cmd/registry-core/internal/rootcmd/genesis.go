package rootcmd

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"

	"github.com/fibonacci1729/registry/envelope"
	"github.com/fibonacci1729/registry/model"
	"github.com/fibonacci1729/registry/operator"
	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/go-cose"
)

// genesisKeyID is the operator key id the harness bootstraps with. A real
// deployment names its bootstrap key from operator policy; this harness
// exists to exercise the core service end to end, not to manage key
// lifecycle, so one fixed name is enough.
const genesisKeyID = "genesis"

// localSigner is a minimal envelope.IdentifiableCoseSigner over an
// in-process ECDSA key, for a harness that has no external key management
// to talk to. A real deployment supplies its own IdentifiableCoseSigner
// (Key Vault, HSM, whatever the operator's key custody requires); the core
// and envelope packages are agnostic to which one, since they only ever
// consume the already-signed bytes (SPEC_FULL.md §4.6).
type localSigner struct {
	cose.Signer
	kid string
	pub *ecdsa.PublicKey
}

func newLocalSigner(key *ecdsa.PrivateKey, kid string) (*localSigner, error) {
	signer, err := cose.NewSigner(cose.AlgorithmES256, key)
	if err != nil {
		return nil, fmt.Errorf("constructing cose signer: %w", err)
	}
	return &localSigner{Signer: signer, kid: kid, pub: &key.PublicKey}, nil
}

func (s *localSigner) PublicKey(_ context.Context, kid string) (*ecdsa.PublicKey, error) {
	if kid != s.kid {
		return nil, envelope.ErrKeyIDMismatch
	}
	return s.pub, nil
}

func (s *localSigner) LatestPublicKey() (*ecdsa.PublicKey, error) { return s.pub, nil }
func (s *localSigner) KeyIdentifier() string                      { return s.kid }
func (s *localSigner) KeyLocation() string                        { return "in-process" }

// buildGenesis constructs a signed genesis operator record and a signed
// genesis checkpoint covering it, using a freshly generated P-256 key.
func buildGenesis(ctx context.Context) (model.Envelope, model.Checkpoint, envelope.IdentifiableCoseSigner, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return model.Envelope{}, model.Checkpoint{}, nil, fmt.Errorf("generating genesis key: %w", err)
	}
	signer, err := newLocalSigner(key, genesisKeyID)
	if err != nil {
		return model.Envelope{}, model.Checkpoint{}, nil, err
	}

	codec, err := envelope.NewCodec()
	if err != nil {
		return model.Envelope{}, model.Checkpoint{}, nil, fmt.Errorf("building envelope codec: %w", err)
	}

	opEnv, err := envelope.NewSignedEnvelope[operator.Payload](codec, signer)
	if err != nil {
		return model.Envelope{}, model.Checkpoint{}, nil, err
	}
	payload := operator.Payload{Op: operator.Init, Key: genesisKeyID}
	signedRecord, err := opEnv.Sign(ctx, payload, nil)
	if err != nil {
		return model.Envelope{}, model.Checkpoint{}, nil, fmt.Errorf("signing genesis operator record: %w", err)
	}
	payloadBytes, err := cbor.Marshal(payload)
	if err != nil {
		return model.Envelope{}, model.Checkpoint{}, nil, err
	}
	genesisRecord := model.Envelope{Signed: signedRecord, Payload: payloadBytes, KeyId: genesisKeyID}

	cpEnv, err := envelope.NewSignedEnvelope[model.CheckpointCandidate](codec, signer)
	if err != nil {
		return model.Envelope{}, model.Checkpoint{}, nil, err
	}
	candidate := model.CheckpointCandidate{}
	signedCheckpoint, err := cpEnv.Sign(ctx, candidate, nil)
	if err != nil {
		return model.Envelope{}, model.Checkpoint{}, nil, fmt.Errorf("signing genesis checkpoint: %w", err)
	}
	genesisCheckpoint := model.Checkpoint{
		Envelope:  model.Envelope{Signed: signedCheckpoint, KeyId: genesisKeyID},
		Candidate: candidate,
	}

	return genesisRecord, genesisCheckpoint, signer, nil
}
