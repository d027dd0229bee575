package core

import (
	"context"

	"github.com/fibonacci1729/registry/model"
	"github.com/fibonacci1729/registry/shard"
)

type fetchResult struct {
	records []model.RecordEntry
	err     error
}

// FetchOperatorRecords is fetch_operator_records from spec.md §4.1.
func (s *Service) FetchOperatorRecords(ctx context.Context, checkpoint model.CheckpointHash, since *model.RecordId) ([]model.RecordEntry, error) {
	reply := make(chan fetchResult, 1)
	job := func(st *state) {
		k, ok := st.checkpointIndex[checkpoint]
		if !ok {
			reply <- fetchResult{err: model.ErrCheckpointNotKnown}
			return
		}
		go fetchFromShard(st.operator, k, since, reply)
	}
	return s.runFetch(ctx, job, reply)
}

// FetchPackageRecords is fetch_package_records from spec.md §4.1.
func (s *Service) FetchPackageRecords(ctx context.Context, checkpoint model.CheckpointHash, name string, since *model.RecordId) ([]model.RecordEntry, error) {
	reply := make(chan fetchResult, 1)
	job := func(st *state) {
		k, ok := st.checkpointIndex[checkpoint]
		if !ok {
			reply <- fetchResult{err: model.ErrCheckpointNotKnown}
			return
		}
		sh, ok := st.packages[model.NewLogId(name)]
		if !ok {
			reply <- fetchResult{err: model.ErrPackageNotFound}
			return
		}
		go fetchFromShard(sh, k, since, reply)
	}
	return s.runFetch(ctx, job, reply)
}

func (s *Service) runFetch(ctx context.Context, job func(*state), reply chan fetchResult) ([]model.RecordEntry, error) {
	if err := s.enqueue(ctx, job); err != nil {
		return nil, err
	}
	select {
	case res := <-reply:
		return res.records, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// fetchFromShard implements spec.md §4.1's fetch algorithm steps 2-4 under
// sh's lock: resolve the starting position from since (or 0), compute the
// published prefix's end via the non-decreasing checkpointIndices upper
// bound, and return that slice.
func fetchFromShard(sh *shard.Shard, k int, since *model.RecordId, reply chan<- fetchResult) {
	unlock := sh.Lock()
	defer unlock()

	start := 0
	if since != nil {
		i, ok := sh.IndexOf(*since)
		if !ok {
			reply <- fetchResult{err: model.ErrRecordNotFound}
			return
		}
		start = i + 1
	}

	end := sh.PublishedUpperBound(k)
	if start > end {
		start = end
	}

	out := make([]model.RecordEntry, 0, end-start)
	for i := start; i < end; i++ {
		id := sh.RecordAt(i)
		entry, ok := sh.Entry(id)
		if !ok {
			// A log entry with no records[] entry would violate invariant 2
			// of spec.md §3; surfacing it lets a caller see the bug rather
			// than silently truncating the result.
			reply <- fetchResult{err: model.ErrInternalInconsistency}
			return
		}
		out = append(out, entry)
	}
	reply <- fetchResult{records: out}
}

// GetPackageRecordStatus is get_package_record_status from spec.md §4.1.
func (s *Service) GetPackageRecordStatus(ctx context.Context, logID model.LogId, recordID model.RecordId) (model.RecordState, error) {
	reply := make(chan model.RecordState, 1)
	job := func(st *state) {
		sh := resolveShard(st, logID)
		if sh == nil {
			reply <- model.UnknownState()
			return
		}
		go func() {
			unlock := sh.Lock()
			defer unlock()
			reply <- sh.State(recordID)
		}()
	}
	if err := s.enqueue(ctx, job); err != nil {
		return model.RecordState{}, err
	}
	select {
	case state := <-reply:
		return state, nil
	case <-ctx.Done():
		return model.RecordState{}, ctx.Err()
	}
}

// GetPackageRecordInfo is get_package_record_info from spec.md §4.1: it
// returns a non-nil result only once the record's state is Published.
func (s *Service) GetPackageRecordInfo(ctx context.Context, logID model.LogId, recordID model.RecordId) (*model.PackageRecordInfo, error) {
	reply := make(chan *model.PackageRecordInfo, 1)
	job := func(st *state) {
		sh := resolveShard(st, logID)
		if sh == nil {
			reply <- nil
			return
		}
		go func() {
			unlock := sh.Lock()
			defer unlock()
			entry, ok := sh.Entry(recordID)
			if !ok || entry.State.Kind != model.Published {
				reply <- nil
				return
			}
			reply <- &model.PackageRecordInfo{
				LogId:      logID,
				RecordId:   recordID,
				Record:     entry.Record,
				Checkpoint: entry.State.Checkpoint,
			}
		}()
	}
	if err := s.enqueue(ctx, job); err != nil {
		return nil, err
	}
	select {
	case info := <-reply:
		return info, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetLatestCheckpoint is get_latest_checkpoint from spec.md §4.1. The
// genesis checkpoint installed at construction guarantees the list is
// never empty.
func (s *Service) GetLatestCheckpoint(ctx context.Context) (model.Checkpoint, error) {
	reply := make(chan model.Checkpoint, 1)
	job := func(st *state) {
		reply <- st.checkpoints[len(st.checkpoints)-1]
	}
	if err := s.enqueue(ctx, job); err != nil {
		return model.Checkpoint{}, err
	}
	select {
	case cp := <-reply:
		return cp, nil
	case <-ctx.Done():
		return model.Checkpoint{}, ctx.Err()
	}
}

// resolveShard looks up the shard for logID (the operator log or a
// package log). Must be called from within a job running on the actor
// loop, since it reads the shard table.
func resolveShard(st *state, logID model.LogId) *shard.Shard {
	if logID == st.operator.ID() {
		return st.operator
	}
	return st.packages[logID]
}
