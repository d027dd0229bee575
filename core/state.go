package core

import (
	"github.com/fibonacci1729/registry/model"
	"github.com/fibonacci1729/registry/shard"
)

// state is the mutable global state of the Core Service: the checkpoint
// list and its reverse hash index, the operator shard, and the package
// shard table. Only the actor loop goroutine ever reads or writes it — no
// lock is needed for the fields here, only for the shards they reference
// (spec.md §5, "Shared resources").
type state struct {
	checkpoints     []model.Checkpoint
	checkpointIndex map[model.CheckpointHash]int

	operator *shard.Shard
	packages map[model.LogId]*shard.Shard
}
