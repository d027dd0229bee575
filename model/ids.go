// Package model holds the domain vocabulary shared by every component of
// the registry core: identifiers, the envelope wire shape, record and
// checkpoint state, and the sentinel errors the service surfaces.
package model

import (
	"crypto/sha256"
	"encoding/hex"
)

// DigestSize is the width of every identifier in this package: all of them
// are SHA-256 digests of some canonical byte string.
const DigestSize = sha256.Size

// LogId identifies a log (the operator log, or one package log) by the
// digest of its name.
type LogId [DigestSize]byte

// RecordId identifies a record by the digest of its signed envelope bytes.
type RecordId [DigestSize]byte

// CheckpointHash identifies a checkpoint by the digest of its signed
// envelope bytes.
type CheckpointHash [DigestSize]byte

// ContentDigest identifies a content blob a package record may require.
type ContentDigest [DigestSize]byte

func (id LogId) String() string         { return hex.EncodeToString(id[:]) }
func (id RecordId) String() string      { return hex.EncodeToString(id[:]) }
func (h CheckpointHash) String() string { return hex.EncodeToString(h[:]) }
func (d ContentDigest) String() string  { return hex.EncodeToString(d[:]) }

// NewLogId derives the LogId for a log name (the operator log's name is a
// fixed constant; a package log's name is the package name).
func NewLogId(name string) LogId {
	return LogId(sha256.Sum256([]byte(name)))
}

// OperatorLogName is the fixed name of the single global operator log.
const OperatorLogName = "operator"
