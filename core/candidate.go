package core

import (
	"context"
	"time"

	"github.com/fibonacci1729/registry/accumulator"
	"github.com/fibonacci1729/registry/model"
	"github.com/fibonacci1729/registry/shard"
)

// BuildCheckpointCandidate is SPEC_FULL.md §4.1's build_checkpoint_candidate:
// it snapshots every shard's current accumulator root (including
// Processing entries not yet checkpointed) and folds them into one
// MapRoot. It is read-only and is never consulted by NewCheckpoint, which
// still simply trusts the caller-supplied, already-signed checkpoint.
func (s *Service) BuildCheckpointCandidate(ctx context.Context) (model.CheckpointCandidate, error) {
	type result struct {
		candidate model.CheckpointCandidate
		err       error
	}
	reply := make(chan result, 1)
	job := func(st *state) {
		shards := make([]*shard.Shard, 0, len(st.packages)+1)
		shards = append(shards, st.operator)
		for _, sh := range st.packages {
			shards = append(shards, sh)
		}
		go func() {
			roots := make([]model.ShardRoot, 0, len(shards))
			for _, sh := range shards {
				unlock := sh.Lock()
				size, root, err := sh.AccumulatorRoot()
				unlock()
				if err == accumulator.ErrEmpty {
					continue
				}
				if err != nil {
					reply <- result{err: err}
					return
				}
				roots = append(roots, model.ShardRoot{LogId: sh.ID(), Size: size, Root: root})
			}

			mapRoot, err := accumulator.Fold(roots)
			if err != nil {
				reply <- result{err: err}
				return
			}
			reply <- result{candidate: model.CheckpointCandidate{
				MapRoot:     mapRoot,
				ShardRoots:  roots,
				TimestampMS: time.Now().UnixMilli(),
			}}
		}()
	}
	if err := s.enqueue(ctx, job); err != nil {
		return model.CheckpointCandidate{}, err
	}
	select {
	case res := <-reply:
		return res.candidate, res.err
	case <-ctx.Done():
		return model.CheckpointCandidate{}, ctx.Err()
	}
}

type accumulatorResult struct {
	size uint64
	root [32]byte
	err  error
}

// GetShardAccumulator is SPEC_FULL.md §4.1's get_shard_accumulator.
func (s *Service) GetShardAccumulator(ctx context.Context, logID model.LogId) (uint64, [32]byte, error) {
	reply := make(chan accumulatorResult, 1)
	job := func(st *state) {
		sh := resolveShard(st, logID)
		if sh == nil {
			reply <- accumulatorResult{err: model.ErrPackageNotFound}
			return
		}
		go func() {
			unlock := sh.Lock()
			defer unlock()
			size, root, err := sh.AccumulatorRoot()
			reply <- accumulatorResult{size: size, root: root, err: err}
		}()
	}
	if err := s.enqueue(ctx, job); err != nil {
		return 0, [32]byte{}, err
	}
	select {
	case res := <-reply:
		return res.size, res.root, res.err
	case <-ctx.Done():
		return 0, [32]byte{}, ctx.Err()
	}
}
