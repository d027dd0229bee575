// Package envelope implements the canonical CBOR encoding and COSE_Sign1
// signing/verification that every registry record and checkpoint is wrapped
// in. It follows the same split as the teacher package it is adapted from
// (massifs.RootSigner / massifs.DecodeSignedRoot / massifs.VerifySignedCheckPoint):
// a deterministic CBOR codec for canonical payload bytes, and a thin wrapper
// around go-cose for the COSE_Sign1 envelope itself.
package envelope

import (
	commoncbor "github.com/datatrails/go-datatrails-common/cbor"
	"github.com/fxamacker/cbor/v2"
)

var (
	encOptions = commoncbor.NewDeterministicEncOpts()
	decOptions = cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
		IntDec:      cbor.IntDecConvertNone,
		TagsMd:      cbor.TagsForbidden,
	}
)

// NewCodec returns the canonical CBOR codec used for every envelope payload
// in this repository (records, checkpoints, and checkpoint candidates).
func NewCodec() (commoncbor.CBORCodec, error) {
	return commoncbor.NewCBORCodec(encOptions, decOptions)
}

// EncOptions exposes the deterministic encode options for callers that need
// to reproduce canonical bytes outside of a Codec (e.g. digesting a payload
// before it is wrapped in a signature).
func EncOptions() cbor.EncOptions { return encOptions }

// DecOptions exposes the decode options paired with EncOptions.
func DecOptions() cbor.DecOptions { return decOptions }
