// Package pkgvalidator implements the validator for a single package log
// (C3): ownership keys, release entries and the content digests they
// require, and yanking of previously released versions.
package pkgvalidator

import (
	"fmt"
	"strings"

	"github.com/fibonacci1729/registry/model"
	"github.com/fxamacker/cbor/v2"
	"golang.org/x/mod/semver"
)

// OpKind tags the package record payload union.
type OpKind int

const (
	Init OpKind = iota
	GrantKey
	RevokeKey
	Release
	Yank
)

// Payload is the canonical CBOR payload of one package record.
type Payload struct {
	Op            OpKind             `cbor:"1,keyasint"`
	Key           string             `cbor:"2,keyasint,omitempty"`
	Version       string             `cbor:"3,keyasint,omitempty"`
	ContentDigest model.ContentDigest `cbor:"4,keyasint,omitempty"`
	Reason        string             `cbor:"5,keyasint,omitempty"`
}

// Validator is the C3 state machine for one package log.
type Validator struct {
	authorized      map[string]struct{}
	highestAccepted string // semver, normalised with a leading "v"; "" if none accepted yet
	released        map[string]struct{}
	yanked          map[string]struct{}
}

// New constructs a package validator with no authorized keys; the log's
// first record must be Init.
func New() *Validator {
	return &Validator{
		authorized: map[string]struct{}{},
		released:   map[string]struct{}{},
		yanked:     map[string]struct{}{},
	}
}

type snapshot struct {
	authorized      map[string]struct{}
	highestAccepted string
	released        map[string]struct{}
	yanked          map[string]struct{}
}

func (v *Validator) Snapshot() model.Snapshot {
	return snapshot{
		authorized:      cloneSet(v.authorized),
		highestAccepted: v.highestAccepted,
		released:        cloneSet(v.released),
		yanked:          cloneSet(v.yanked),
	}
}

func (v *Validator) Rollback(s model.Snapshot) {
	snap, ok := s.(snapshot)
	if !ok {
		panic("pkgvalidator: rollback called with a snapshot from a different validator")
	}
	v.authorized = snap.authorized
	v.highestAccepted = snap.highestAccepted
	v.released = snap.released
	v.yanked = snap.yanked
}

func cloneSet(m map[string]struct{}) map[string]struct{} {
	cp := make(map[string]struct{}, len(m))
	for k := range m {
		cp[k] = struct{}{}
	}
	return cp
}

// Validate applies one package record, returning the content digests it
// requires (non-empty only for Release).
func (v *Validator) Validate(record model.Envelope) ([]model.ContentDigest, error) {
	var payload Payload
	if err := cbor.Unmarshal(record.Payload, &payload); err != nil {
		return nil, &model.ValidatorRejectedError{Reason: fmt.Sprintf("malformed package record payload: %v", err)}
	}

	if payload.Op == Init {
		if len(v.authorized) != 0 {
			return nil, &model.ValidatorRejectedError{Reason: "package log already initialized"}
		}
		if payload.Key == "" {
			return nil, &model.ValidatorRejectedError{Reason: "init record must name an owning key"}
		}
		v.authorized[payload.Key] = struct{}{}
		return nil, nil
	}

	if len(v.authorized) == 0 {
		return nil, &model.ValidatorRejectedError{Reason: "package log has not been initialized"}
	}
	if _, ok := v.authorized[record.KeyId]; !ok {
		return nil, &model.ValidatorRejectedError{Reason: "signer is not an authorized owner of this package"}
	}

	switch payload.Op {
	case GrantKey:
		if payload.Key == "" {
			return nil, &model.ValidatorRejectedError{Reason: "grant record must name a key"}
		}
		v.authorized[payload.Key] = struct{}{}
		return nil, nil

	case RevokeKey:
		if _, ok := v.authorized[payload.Key]; !ok {
			return nil, &model.ValidatorRejectedError{Reason: "cannot revoke a key that is not authorized"}
		}
		if len(v.authorized) == 1 {
			return nil, &model.ValidatorRejectedError{Reason: "cannot revoke the last authorized key"}
		}
		delete(v.authorized, payload.Key)
		return nil, nil

	case Release:
		version := normalizeVersion(payload.Version)
		if !semver.IsValid(version) {
			return nil, &model.ValidatorRejectedError{Reason: fmt.Sprintf("%q is not a valid semantic version", payload.Version)}
		}
		if v.highestAccepted != "" && semver.Compare(version, v.highestAccepted) <= 0 {
			return nil, &model.ValidatorRejectedError{Reason: fmt.Sprintf("version %s is not greater than the highest accepted version %s", payload.Version, strings.TrimPrefix(v.highestAccepted, "v"))}
		}
		v.highestAccepted = version
		v.released[version] = struct{}{}
		return []model.ContentDigest{payload.ContentDigest}, nil

	case Yank:
		version := normalizeVersion(payload.Version)
		if _, ok := v.released[version]; !ok {
			return nil, &model.ValidatorRejectedError{Reason: fmt.Sprintf("version %s was never accepted", payload.Version)}
		}
		if _, ok := v.yanked[version]; ok {
			return nil, &model.ValidatorRejectedError{Reason: fmt.Sprintf("version %s is already yanked", payload.Version)}
		}
		v.yanked[version] = struct{}{}
		return nil, nil

	default:
		return nil, &model.ValidatorRejectedError{Reason: "unrecognised package operation"}
	}
}

func normalizeVersion(v string) string {
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}
