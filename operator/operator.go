// Package operator implements the validator for the single global operator
// log (C2): the authorized key set used to sign operator records, and the
// handful of operations (init, grant, revoke) that mutate it.
package operator

import (
	"fmt"

	"github.com/fibonacci1729/registry/model"
	"github.com/fxamacker/cbor/v2"
)

// OpKind tags the operator record payload union.
type OpKind int

const (
	Init OpKind = iota
	GrantKey
	RevokeKey
)

// Payload is the canonical CBOR payload of one operator record.
type Payload struct {
	Op  OpKind `cbor:"1,keyasint"`
	Key string `cbor:"2,keyasint,omitempty"` // the key id being granted/revoked; for Init, the bootstrap key
}

// Validator is the C2 state machine: the set of key ids currently
// authorized to sign operator records.
type Validator struct {
	authorized map[string]struct{}
}

// New constructs the operator validator. It does not apply the genesis
// record itself — the core's constructor calls Validate with the bootstrap
// Init record, so the same Validate logic that handles every other operator
// record installs the genesis key.
func New() *Validator {
	return &Validator{authorized: map[string]struct{}{}}
}

type snapshot struct {
	authorized map[string]struct{}
}

func (v *Validator) Snapshot() model.Snapshot {
	cp := make(map[string]struct{}, len(v.authorized))
	for k := range v.authorized {
		cp[k] = struct{}{}
	}
	return snapshot{authorized: cp}
}

func (v *Validator) Rollback(s model.Snapshot) {
	snap, ok := s.(snapshot)
	if !ok {
		panic("operator: rollback called with a snapshot from a different validator")
	}
	v.authorized = snap.authorized
}

// Validate applies one operator record. Operator records never require
// content digests, so the returned slice is always empty.
func (v *Validator) Validate(record model.Envelope) ([]model.ContentDigest, error) {
	var payload Payload
	if err := cbor.Unmarshal(record.Payload, &payload); err != nil {
		return nil, &model.ValidatorRejectedError{Reason: fmt.Sprintf("malformed operator record payload: %v", err)}
	}

	switch payload.Op {
	case Init:
		if len(v.authorized) != 0 {
			return nil, &model.ValidatorRejectedError{Reason: "operator log already initialized"}
		}
		if payload.Key == "" {
			return nil, &model.ValidatorRejectedError{Reason: "init record must name a bootstrap key"}
		}
		v.authorized[payload.Key] = struct{}{}
		return nil, nil

	case GrantKey:
		if err := v.requireSigner(record); err != nil {
			return nil, err
		}
		if payload.Key == "" {
			return nil, &model.ValidatorRejectedError{Reason: "grant record must name a key"}
		}
		v.authorized[payload.Key] = struct{}{}
		return nil, nil

	case RevokeKey:
		if err := v.requireSigner(record); err != nil {
			return nil, err
		}
		if _, ok := v.authorized[payload.Key]; !ok {
			return nil, &model.ValidatorRejectedError{Reason: "cannot revoke a key that is not authorized"}
		}
		if len(v.authorized) == 1 {
			return nil, &model.ValidatorRejectedError{Reason: "cannot revoke the last authorized key"}
		}
		delete(v.authorized, payload.Key)
		return nil, nil

	default:
		return nil, &model.ValidatorRejectedError{Reason: "unrecognised operator operation"}
	}
}

func (v *Validator) requireSigner(record model.Envelope) error {
	if len(v.authorized) == 0 {
		return &model.ValidatorRejectedError{Reason: "operator log has not been initialized"}
	}
	if _, ok := v.authorized[record.KeyId]; !ok {
		return &model.ValidatorRejectedError{Reason: "signer is not an authorized operator key"}
	}
	return nil
}
