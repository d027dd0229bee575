package model

// ShardRoot is one shard's contribution to a checkpoint candidate: the
// accumulator root for a single log, keyed by the log's identity so the
// fold in the accumulator package can sort deterministically.
type ShardRoot struct {
	LogId LogId
	Size  uint64
	Root  [DigestSize]byte
}

// CheckpointCandidate is the unsigned precursor to a Checkpoint: the
// (external) transparency sequencer builds one of these from
// build_checkpoint_candidate, has it signed, and hands the signed bytes
// back to new_checkpoint along with the leaves it covers.
type CheckpointCandidate struct {
	MapRoot     [DigestSize]byte
	ShardRoots  []ShardRoot
	TimestampMS int64
}

// Checkpoint is a signed envelope committing to a CheckpointCandidate. The
// core never recomputes MapRoot from ShardRoots; it trusts the caller's
// already-signed bytes, matching spec.md §4.1's note that new_checkpoint
// never recomputes the root it is handed.
type Checkpoint struct {
	Envelope  Envelope
	Candidate CheckpointCandidate
}

// Hash is the CheckpointHash identifying this checkpoint: the digest of
// its signed envelope bytes.
func (c Checkpoint) Hash(digest func([]byte) CheckpointHash) CheckpointHash {
	return digest(c.Envelope.Signed)
}
