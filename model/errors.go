package model

import "errors"

// Lookup and internal errors. These are surfaced to RPC callers, unlike
// ValidatorRejectedError and ContentMissingError below, which are recorded
// as a terminal record state rather than returned as an error.
var (
	ErrCheckpointNotKnown  = errors.New("checkpoint not known")
	ErrRecordNotFound      = errors.New("record not found")
	ErrPackageNotFound     = errors.New("package not found")
	ErrCheckpointExists    = errors.New("checkpoint already installed")
	ErrInternalInconsistency = errors.New("internal inconsistency: record state was Unknown after a prior message indicated otherwise")
)

// ValidatorRejectedError is recorded as a Rejected record state; it is
// never returned from submit_package_record as a Go error, only wrapped
// into the stored RecordState.
type ValidatorRejectedError struct {
	Reason string
}

func (e *ValidatorRejectedError) Error() string { return e.Reason }

// ContentMissingError is recorded as a Rejected record state when a
// validator-required content digest was not present in the submitted
// content sources.
type ContentMissingError struct {
	Digest ContentDigest
}

func (e *ContentMissingError) Error() string {
	return "needed content " + e.Digest.String() + " but not provided"
}
