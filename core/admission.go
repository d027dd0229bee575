package core

import (
	"context"
	"fmt"

	"github.com/fibonacci1729/registry/envelope"
	"github.com/fibonacci1729/registry/model"
	"github.com/fibonacci1729/registry/pkgvalidator"
	"github.com/fibonacci1729/registry/shard"
	"github.com/google/uuid"
)

type submitResult struct {
	state model.RecordState
	err   error
}

// SubmitPackageRecord is submit_package_record from spec.md §4.1. It
// resolves or creates the named package's shard synchronously in the
// actor loop (the only writer of the shard table), then spawns a task
// that performs the admission algorithm under that shard's lock.
func (s *Service) SubmitPackageRecord(ctx context.Context, name string, record model.Envelope, sources []model.ContentSource) (model.RecordState, error) {
	corrID := uuid.New().String()
	s.log.Debugf("core[%s]: submit_package_record name=%q", corrID, name)

	reply := make(chan submitResult, 1)
	job := func(st *state) {
		logID := model.NewLogId(name)
		sh, ok := st.packages[logID]
		if !ok {
			var err error
			sh, err = shard.New(logID, name, pkgvalidator.New())
			if err != nil {
				reply <- submitResult{err: fmt.Errorf("core: constructing package shard %q: %w", name, err)}
				return
			}
			st.packages[logID] = sh
			s.log.Infof("core[%s]: created package shard %q", corrID, name)
		}
		go s.admit(ctx, corrID, sh, record, sources, reply)
	}
	if err := s.enqueue(ctx, job); err != nil {
		return model.RecordState{}, err
	}
	select {
	case res := <-reply:
		s.log.Debugf("core[%s]: submit_package_record result state=%s err=%v", corrID, res.state.Kind, res.err)
		return res.state, res.err
	case <-ctx.Done():
		return model.RecordState{}, ctx.Err()
	}
}

// admit performs the admission algorithm of spec.md §4.1 steps 2-6 under
// sh's exclusive lock: snapshot, validate, roll back and record Rejected
// on either a validator failure or a missing required content digest, or
// else append the record, emit its leaf, and report Processing.
func (s *Service) admit(ctx context.Context, corrID string, sh *shard.Shard, record model.Envelope, sources []model.ContentSource, reply chan<- submitResult) {
	unlock := sh.Lock()
	defer unlock()

	id := model.RecordId(envelope.Digest(record.Signed))
	s.log.Debugf("core[%s]: admit shard=%s record=%s: validating", corrID, sh.ID(), id)

	snap := sh.Validator().Snapshot()
	digests, err := sh.Validator().Validate(record)
	if err != nil {
		sh.Validator().Rollback(snap)
		reason := err.Error()
		sh.RecordRejected(id, record, sources, reason)
		s.log.Infof("core[%s]: admit shard=%s record=%s: rejected: %s", corrID, sh.ID(), id, reason)
		reply <- submitResult{state: model.RejectedState(reason)}
		return
	}

	if missing, ok := firstMissingDigest(digests, sources); ok {
		sh.Validator().Rollback(snap)
		reason := (&model.ContentMissingError{Digest: missing}).Error()
		sh.RecordRejected(id, record, sources, reason)
		s.log.Infof("core[%s]: admit shard=%s record=%s: rejected: %s", corrID, sh.ID(), id, reason)
		reply <- submitResult{state: model.RejectedState(reason)}
		return
	}

	if err := sh.AppendProcessing(id, record, sources); err != nil {
		reply <- submitResult{err: fmt.Errorf("core: appending record to shard %s: %w", sh.ID(), err)}
		return
	}

	leaf := model.LogLeaf{LogId: sh.ID(), RecordId: id}
	if err := s.sink.Send(ctx, leaf); err != nil {
		// Sink failures are fatal to the actor's invariants (spec.md §7):
		// the record is already Processing in the shard but its leaf may
		// never reach the sequencer, so the caller must treat this as an
		// unrecoverable error, not a terminal record outcome.
		s.log.Errorf("core[%s]: admit shard=%s record=%s: sink send failed: %v", corrID, sh.ID(), id, err)
		reply <- submitResult{err: fmt.Errorf("core: checkpoint sink send failed: %w", err)}
		return
	}

	s.log.Debugf("core[%s]: admit shard=%s record=%s: processing, leaf emitted", corrID, sh.ID(), id)
	reply <- submitResult{state: model.ProcessingState()}
}

// firstMissingDigest returns the first digest in required that is not
// present among sources, or (zero, false) if every required digest is
// covered. Validators only ever require Release digests (pkgvalidator),
// but this is written generically against model.ContentDigest so it does
// not need to change if other validators start requiring content.
func firstMissingDigest(required []model.ContentDigest, sources []model.ContentSource) (model.ContentDigest, bool) {
	for _, d := range required {
		if d == (model.ContentDigest{}) {
			continue // a zero digest means "no content required" for this op
		}
		found := false
		for _, src := range sources {
			if src.Digest == d {
				found = true
				break
			}
		}
		if !found {
			return d, true
		}
	}
	return model.ContentDigest{}, false
}
