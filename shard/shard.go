// Package shard implements the per-log container (C4): a validator, the
// ordered record log, the record-id index, the checkpoint-index sequence,
// the per-shard accumulator (C9), and the rejected-record Bloom filter
// (C10) — all guarded by one exclusive lock, held only by short-lived
// tasks spawned by the Core Service.
package shard

import (
	"sync"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/fibonacci1729/registry/accumulator"
	"github.com/fibonacci1729/registry/model"
)

// Shard is the mutable per-log container described in spec.md §4.3. The
// Core Service holds shared handles to Shards; every mutation is made
// while holding mu, and mu is never held across an await point other than
// the checkpoint sink send (which happens in a spawned task, not here).
type Shard struct {
	mu sync.Mutex

	id        model.LogId
	name      string
	validator model.Validator

	log               []model.RecordId
	index             map[model.RecordId]int // RecordId -> position in log
	records           map[model.RecordId]model.RecordEntry
	checkpointIndices []int // non-decreasing; checkpointIndices[i] = k means log[i] published under checkpoints[k]

	acc      *accumulator.Index
	rejected *rejectedFilter
}

// New constructs an empty shard for the given log id/name and validator.
func New(id model.LogId, name string, validator model.Validator) (*Shard, error) {
	acc, err := accumulator.NewIndex()
	if err != nil {
		return nil, err
	}
	rf, err := newRejectedFilter()
	if err != nil {
		return nil, err
	}
	return &Shard{
		id:        id,
		name:      name,
		validator: validator,
		index:     make(map[model.RecordId]int),
		records:   make(map[model.RecordId]model.RecordEntry),
		acc:       acc,
		rejected:  rf,
	}, nil
}

// ID returns the shard's LogId.
func (s *Shard) ID() model.LogId { return s.id }

// Name returns the log name the shard was constructed with.
func (s *Shard) Name() string { return s.name }

// Lock acquires the shard's exclusive lock. Callers must Unlock via the
// returned function; it exists so Core's spawned tasks can hold the lock
// for exactly the duration of one operation without exposing the mutex
// type itself.
func (s *Shard) Lock() func() {
	s.mu.Lock()
	return s.mu.Unlock
}

// Len returns the number of entries in the append-only log. Callers must
// hold the shard lock.
func (s *Shard) Len() int { return len(s.log) }

// RecordAt returns the RecordId at log position i. Callers must hold the
// shard lock.
func (s *Shard) RecordAt(i int) model.RecordId { return s.log[i] }

// IndexOf returns the log position of id and true, or (0, false) if id has
// never been appended to this shard's log (it may still exist in records
// as a Rejected entry, which per invariant 2 of spec.md §3 never appears
// in the log). Callers must hold the shard lock.
func (s *Shard) IndexOf(id model.RecordId) (int, bool) {
	i, ok := s.index[id]
	return i, ok
}

// State returns the RecordState for id, or model.UnknownState() if id has
// never been observed on this shard at all. Callers must hold the shard
// lock.
func (s *Shard) State(id model.RecordId) model.RecordState {
	entry, ok := s.records[id]
	if !ok {
		return model.UnknownState()
	}
	return entry.State
}

// Entry returns the stored RecordEntry for id. Callers must hold the shard
// lock.
func (s *Shard) Entry(id model.RecordId) (model.RecordEntry, bool) {
	e, ok := s.records[id]
	return e, ok
}

// Validator returns the shard's validator state machine. Callers must hold
// the shard lock for the duration of any Validate/Snapshot/Rollback call.
func (s *Shard) Validator() model.Validator { return s.validator }

// AppendProcessing appends id to the log as Processing, updates the
// accumulator, and records the entry. Callers must hold the shard lock;
// this is step 6 of the admission algorithm in spec.md §4.1.
func (s *Shard) AppendProcessing(id model.RecordId, record model.Envelope, sources []model.ContentSource) error {
	if _, err := s.acc.Append(id); err != nil {
		return err
	}
	s.index[id] = len(s.log)
	s.log = append(s.log, id)
	s.records[id] = model.RecordEntry{
		Record:         record,
		ContentSources: sources,
		State:          model.ProcessingState(),
	}
	logger.Sugar.Debugf("shard %s: appended record %s at log position %d", s.id, id, s.index[id])
	return nil
}

// RecordRejected stores a terminal Rejected entry for id without touching
// the log or the accumulator (invariant 2 of spec.md §3: Rejected records
// never appear in log). It also updates the diagnostic rejected-record
// filter; a filter error is not propagated, since the filter never gates
// correctness (SPEC_FULL.md §3/C10).
func (s *Shard) RecordRejected(id model.RecordId, record model.Envelope, sources []model.ContentSource, reason string) {
	s.records[id] = model.RecordEntry{
		Record:         record,
		ContentSources: sources,
		State:          model.RejectedState(reason),
	}
	_ = s.rejected.insert(id)
	logger.Sugar.Debugf("shard %s: rejected record %s: %s", s.id, id, reason)
}

// LikelyPreviouslyRejected reports whether id was possibly rejected on
// this shard before, per the diagnostic Bloom filter (C10). It never gates
// submit_package_record and never returns a false negative. Callers must
// hold the shard lock.
func (s *Shard) LikelyPreviouslyRejected(id model.RecordId) (bool, error) {
	return s.rejected.mightContain(id)
}

// PublishAt promotes the record at log position i to Published under
// checkpoint hash h whose global index is k, and appends k to
// checkpointIndices. Callers must hold the shard lock and must call this
// in increasing order of i within one shard (the Core Service's
// checkpoint-installation algorithm guarantees this by grouping leaves per
// shard, per spec.md §4.1/§9), which is what makes invariant 3 hold.
func (s *Shard) PublishAt(i int, k int, h model.CheckpointHash) {
	id := s.log[i]
	entry := s.records[id]
	entry.State = model.PublishedState(h)
	s.records[id] = entry
	s.checkpointIndices = append(s.checkpointIndices, k)
	logger.Sugar.Debugf("shard %s: published record %s (log position %d) under checkpoint %s", s.id, id, i, h)
}

// PublishedUpperBound returns the count of log entries published under a
// checkpoint index <= k: spec.md §4.1 step 3's "end" for fetch, computed
// via upper_bound over the non-decreasing checkpointIndices sequence.
func (s *Shard) PublishedUpperBound(k int) int {
	// checkpointIndices is non-decreasing (invariant 3); binary search for
	// the first entry strictly greater than k.
	lo, hi := 0, len(s.checkpointIndices)
	for lo < hi {
		mid := (lo + hi) / 2
		if s.checkpointIndices[mid] <= k {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// AccumulatorRoot returns the shard's current accumulator size and root,
// including Processing entries not yet checkpointed, per
// get_shard_accumulator / build_checkpoint_candidate. Callers must hold
// the shard lock.
func (s *Shard) AccumulatorRoot() (uint64, [32]byte, error) {
	if s.acc.Size() == 0 {
		return 0, [32]byte{}, accumulator.ErrEmpty
	}
	root, err := s.acc.Root()
	return s.acc.Size(), root, err
}
