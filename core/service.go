// Package core implements the Core Service (C5): the single-owner actor
// that serializes all mutation of the registry's global state and routes
// per-shard work to short-lived spawned tasks, per spec.md §4.1 and §5.
package core

import (
	"context"
	"fmt"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/fibonacci1729/registry/envelope"
	"github.com/fibonacci1729/registry/model"
	"github.com/fibonacci1729/registry/operator"
	"github.com/fibonacci1729/registry/shard"
	"github.com/fibonacci1729/registry/sink"
)

// defaultMailboxCapacity is the bounded mailbox size from spec.md §4.1: "a
// small constant, e.g. 4".
const defaultMailboxCapacity = 4

// Service is the Core Service actor. Every exported method enqueues a
// closure onto the mailbox and waits for a reply on a per-call channel;
// the single loop goroutine is the only place state is read or mutated
// directly, and it either runs a job to completion itself (global-state
// mutation) or spawns a task that captures a shard handle and takes that
// shard's lock (per spec.md §4.1's "(a)"/"(b)" split).
type Service struct {
	mailbox chan func(*state)
	sink    sink.Sink
	log     logger.Logger
}

// hashDigest adapts envelope.Digest to the shape model.Checkpoint.Hash
// expects.
func hashDigest(b []byte) model.CheckpointHash {
	return model.CheckpointHash(envelope.Digest(b))
}

// New constructs a Service from the initial (genesis operator record,
// genesis checkpoint) pair every deployment is bootstrapped with
// (spec.md §6: "given an initial (checkpoint, operator_record) pair at
// startup"). The genesis record and checkpoint are applied directly,
// before the actor loop starts, since there is no concurrent access yet.
func New(genesisRecord model.Envelope, genesisCheckpoint model.Checkpoint, sk sink.Sink, mailboxCapacity int) (*Service, error) {
	log := logger.Sugar.WithServiceName("core")

	opShard, err := shard.New(model.NewLogId(model.OperatorLogName), model.OperatorLogName, operator.New())
	if err != nil {
		return nil, fmt.Errorf("core: constructing operator shard: %w", err)
	}

	genesisID := model.RecordId(envelope.Digest(genesisRecord.Signed))
	if _, err := opShard.Validator().Validate(genesisRecord); err != nil {
		return nil, fmt.Errorf("core: genesis operator record rejected: %w", err)
	}
	if err := opShard.AppendProcessing(genesisID, genesisRecord, nil); err != nil {
		return nil, fmt.Errorf("core: admitting genesis operator record: %w", err)
	}

	h := genesisCheckpoint.Hash(hashDigest)
	opShard.PublishAt(0, 0, h)

	st := &state{
		checkpoints:     []model.Checkpoint{genesisCheckpoint},
		checkpointIndex: map[model.CheckpointHash]int{h: 0},
		operator:        opShard,
		packages:        make(map[model.LogId]*shard.Shard),
	}

	if mailboxCapacity <= 0 {
		mailboxCapacity = defaultMailboxCapacity
	}

	svc := &Service{
		mailbox: make(chan func(*state), mailboxCapacity),
		sink:    sk,
		log:     log,
	}
	log.Infof("core: starting actor loop, genesis checkpoint %s, mailbox capacity %d", h, mailboxCapacity)
	go svc.loop(st)
	return svc, nil
}

// loop is the actor: it drains the mailbox in FIFO order, one job at a
// time, until the mailbox is closed. A job never blocks on a shard lock
// itself; work that needs one is spawned as a goroutine from inside the
// job (spec.md §5, "Actor loop: awaits next message from mailbox; never
// holds a shard lock").
func (s *Service) loop(st *state) {
	for job := range s.mailbox {
		s.log.Debugf("core: actor loop dequeued job")
		job(st)
		s.log.Debugf("core: actor loop job complete")
	}
}

// Close stops the actor loop. In-flight spawned tasks are allowed to
// finish; their replies are delivered to callers that are still waiting,
// but no further jobs will be accepted.
func (s *Service) Close() {
	s.log.Infof("core: closing actor mailbox")
	close(s.mailbox)
}

// enqueue submits job to the mailbox, respecting ctx cancellation while
// waiting for mailbox capacity (back-pressure, spec.md §4.4).
func (s *Service) enqueue(ctx context.Context, job func(*state)) error {
	select {
	case s.mailbox <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
