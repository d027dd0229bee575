package model

// Snapshot is a cheap, opaque copy of a Validator's internal state, taken
// before a tentative Validate call and restored via Rollback if the record
// ultimately fails admission for a reason the validator itself cannot see
// (content-availability, in this core).
type Snapshot any

// Validator is the per-log state machine shared by the operator and
// package validators (C2/C3). Validate mutates the validator's state in
// place and returns the content digests the record requires; a rejected
// record returns a *ValidatorRejectedError and leaves the state
// unspecified (the caller must restore via Rollback in that case, since a
// validator may have partially applied a multi-step record before
// detecting the failure).
type Validator interface {
	Snapshot() Snapshot
	Rollback(s Snapshot)
	Validate(record Envelope) ([]ContentDigest, error)
}
