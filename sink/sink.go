// Package sink implements the outbound checkpoint-sink interface (C6): a
// one-way, reliable channel of model.LogLeaf from the Core Service to the
// (out-of-scope) transparency sequencer.
package sink

import (
	"context"

	"github.com/fibonacci1729/registry/model"
)

// Sink is the interface the Core Service publishes leaves through. A send
// failure is fatal to the actor (spec.md §7): the sequencer is a required
// dependency, so Send returning an error means the caller should treat the
// whole publish as unable to make progress, not recorded as a rejection.
type Sink interface {
	Send(ctx context.Context, leaf model.LogLeaf) error
}

// ChannelSink is the required minimal Sink implementation: a buffered Go
// channel drained by the transparency subsystem, which later reinjects
// new_checkpoint. Send blocks (subject to ctx) when the channel is full,
// which back-pressures only the publish task that called it, never the
// Core Service's own actor loop (spec.md §4.4).
type ChannelSink struct {
	leaves chan model.LogLeaf
}

// NewChannelSink constructs a ChannelSink with the given buffer capacity.
func NewChannelSink(capacity int) *ChannelSink {
	return &ChannelSink{leaves: make(chan model.LogLeaf, capacity)}
}

// Send enqueues leaf, blocking if the channel is full until either space
// frees up or ctx is done.
func (s *ChannelSink) Send(ctx context.Context, leaf model.LogLeaf) error {
	select {
	case s.leaves <- leaf:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Leaves returns the receive side of the channel, for the (out-of-scope in
// this repository) transparency sequencer to drain.
func (s *ChannelSink) Leaves() <-chan model.LogLeaf {
	return s.leaves
}
