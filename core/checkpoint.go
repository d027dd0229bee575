package core

import (
	"context"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/fibonacci1729/registry/model"
	"github.com/fibonacci1729/registry/shard"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// NewCheckpoint is new_checkpoint from spec.md §4.1. It installs the
// checkpoint into the global list/index synchronously in the actor loop
// (the sole writer of that state), resolves every leaf's shard while still
// in the loop (so the lookup itself never races with shard-table writes),
// then spawns one promotion task per shard group: leaves are grouped by
// shard and each group's leaves are promoted strictly in the order
// submitted, per spec.md §4.1 step 3 and §9's "group by shard and process
// sequentially" recommendation. It returns once every group has been
// promoted, so a query issued after it returns sees the promoted records.
func (s *Service) NewCheckpoint(ctx context.Context, checkpoint model.Checkpoint, leaves []model.LogLeaf) error {
	corrID := uuid.New().String()
	s.log.Debugf("core[%s]: new_checkpoint leaves=%d", corrID, len(leaves))

	reply := make(chan error, 1)
	job := func(st *state) {
		h := checkpoint.Hash(hashDigest)
		if _, exists := st.checkpointIndex[h]; exists {
			s.log.Infof("core[%s]: new_checkpoint %s already installed", corrID, h)
			reply <- model.ErrCheckpointExists
			return
		}

		k := len(st.checkpoints)
		st.checkpoints = append(st.checkpoints, checkpoint)
		st.checkpointIndex[h] = k
		s.log.Infof("core[%s]: installed checkpoint %s at index %d", corrID, h, k)

		groups := groupLeavesByShard(st, leaves)
		go func() {
			promote(ctx, s.log, corrID, groups, k, h)
			reply <- nil
		}()
	}
	if err := s.enqueue(ctx, job); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// groupLeavesByShard resolves every leaf's *shard.Shard while holding no
// lock but running inside the actor loop, so the shard table itself
// cannot be mutated concurrently. A leaf naming a shard the core has never
// seen is dropped (it cannot have produced a log entry to promote); this
// should not happen for a checkpoint built from build_checkpoint_candidate
// but is tolerated rather than failing the whole batch, since the caller
// already has an irrevocably signed checkpoint to install.
func groupLeavesByShard(st *state, leaves []model.LogLeaf) map[*shard.Shard][]model.RecordId {
	groups := make(map[*shard.Shard][]model.RecordId)
	for _, leaf := range leaves {
		var sh *shard.Shard
		if leaf.LogId == st.operator.ID() {
			sh = st.operator
		} else if pkg, ok := st.packages[leaf.LogId]; ok {
			sh = pkg
		} else {
			continue
		}
		groups[sh] = append(groups[sh], leaf.RecordId)
	}
	return groups
}

// promote runs one goroutine per shard group via errgroup, each processing
// its shard's leaves strictly sequentially under that shard's lock.
// Different shards' groups race freely against each other; a single
// shard's promotions never do, which is what invariant 3 of spec.md §3
// requires.
func promote(ctx context.Context, log logger.Logger, corrID string, groups map[*shard.Shard][]model.RecordId, k int, h model.CheckpointHash) {
	g, _ := errgroup.WithContext(ctx)
	for sh, ids := range groups {
		sh, ids := sh, ids
		g.Go(func() error {
			unlock := sh.Lock()
			defer unlock()
			promoted := 0
			for _, id := range ids {
				i, ok := sh.IndexOf(id)
				if !ok {
					continue
				}
				sh.PublishAt(i, k, h)
				promoted++
			}
			log.Debugf("core[%s]: promoted shard=%s leaves=%d checkpoint=%s", corrID, sh.ID(), promoted, h)
			return nil
		})
	}
	_ = g.Wait()
	log.Infof("core[%s]: promotion complete for checkpoint %s across %d shard group(s)", corrID, h, len(groups))
}
