package model

// Envelope is the signed bytes a record or checkpoint travels in, plus the
// parsed key id that signed it. Signature verification itself is C1's
// concern (envelope.Verify); by the time a model.Envelope reaches a
// validator its signature has already been checked.
type Envelope struct {
	Signed  []byte // canonical signed envelope bytes; RecordId/CheckpointHash is Digest(Signed)
	Payload []byte // the verified inner canonical CBOR payload, decoded by envelope.Verify
	KeyId   string
}

// RecordStateKind tags the RecordState union.
type RecordStateKind int

const (
	// Unknown means the record id is not present in the registry at all.
	// It must never be returned to an external caller as a status; see
	// spec's "Unknown-state surface" note.
	Unknown RecordStateKind = iota
	Processing
	Published
	Rejected
)

func (k RecordStateKind) String() string {
	switch k {
	case Unknown:
		return "Unknown"
	case Processing:
		return "Processing"
	case Published:
		return "Published"
	case Rejected:
		return "Rejected"
	default:
		return "Invalid"
	}
}

// RecordState is the tagged union from spec.md §3. Only the field matching
// Kind is meaningful.
type RecordState struct {
	Kind       RecordStateKind
	Checkpoint CheckpointHash // valid when Kind == Published
	Reason     string         // valid when Kind == Rejected
}

func UnknownState() RecordState { return RecordState{Kind: Unknown} }

func ProcessingState() RecordState { return RecordState{Kind: Processing} }

func PublishedState(h CheckpointHash) RecordState {
	return RecordState{Kind: Published, Checkpoint: h}
}

func RejectedState(reason string) RecordState {
	return RecordState{Kind: Rejected, Reason: reason}
}

// ContentSourceKind enumerates how a content blob can be retrieved. Only
// HttpAnonymous exists today; the admission check the core performs is
// agnostic to kind, so new kinds do not require core changes.
type ContentSourceKind int

const (
	HttpAnonymous ContentSourceKind = iota
)

// ContentSource is one place a content blob required by a record can be
// fetched from, as submitted alongside the record.
type ContentSource struct {
	Digest ContentDigest
	Kind   ContentSourceKind
	URL    string // valid when Kind == HttpAnonymous
}

// LogLeaf is the pair emitted to the checkpoint sink on every acceptance.
type LogLeaf struct {
	LogId    LogId
	RecordId RecordId
}

// RecordEntry is what a shard stores per RecordId: the envelope, the
// content sources it was submitted with, and its current state.
type RecordEntry struct {
	Record        Envelope
	ContentSources []ContentSource
	State         RecordState
}

// PackageRecordInfo is returned by get_package_record_info only once a
// record's state is Published.
type PackageRecordInfo struct {
	LogId      LogId
	RecordId   RecordId
	Record     Envelope
	Checkpoint CheckpointHash
}
