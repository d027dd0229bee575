package shard

import (
	"testing"

	"github.com/fibonacci1729/registry/model"
	"github.com/fibonacci1729/registry/operator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordID(b byte) model.RecordId {
	var id model.RecordId
	id[0] = b
	return id
}

func checkpointHash(b byte) model.CheckpointHash {
	var h model.CheckpointHash
	h[0] = b
	return h
}

func newTestShard(t *testing.T) *Shard {
	t.Helper()
	s, err := New(model.NewLogId("p"), "p", operator.New())
	require.NoError(t, err)
	return s
}

func TestShard_AppendProcessingThenPublish(t *testing.T) {
	s := newTestShard(t)
	id := recordID(1)

	require.NoError(t, s.AppendProcessing(id, model.Envelope{}, nil))
	assert.Equal(t, model.Processing, s.State(id).Kind)
	assert.Equal(t, 1, s.Len())

	i, ok := s.IndexOf(id)
	require.True(t, ok)
	assert.Equal(t, 0, i)

	h := checkpointHash(9)
	s.PublishAt(i, 0, h)
	assert.Equal(t, model.Published, s.State(id).Kind)
	assert.Equal(t, h, s.State(id).Checkpoint)
}

func TestShard_RejectedNeverAppearsInLog(t *testing.T) {
	s := newTestShard(t)
	id := recordID(2)

	s.RecordRejected(id, model.Envelope{}, nil, "bad record")
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, model.Rejected, s.State(id).Kind)

	_, ok := s.IndexOf(id)
	assert.False(t, ok)
}

func TestShard_UnknownForNeverSeenRecord(t *testing.T) {
	s := newTestShard(t)
	assert.Equal(t, model.Unknown, s.State(recordID(99)).Kind)
}

func TestShard_PublishedUpperBoundNonDecreasing(t *testing.T) {
	s := newTestShard(t)
	ids := []model.RecordId{recordID(1), recordID(2), recordID(3)}
	for _, id := range ids {
		require.NoError(t, s.AppendProcessing(id, model.Envelope{}, nil))
	}

	s.PublishAt(0, 0, checkpointHash(1))
	s.PublishAt(1, 0, checkpointHash(1))
	s.PublishAt(2, 1, checkpointHash(2))

	assert.Equal(t, 2, s.PublishedUpperBound(0))
	assert.Equal(t, 3, s.PublishedUpperBound(1))
	assert.Equal(t, 0, s.PublishedUpperBound(-1))
}

func TestShard_LikelyPreviouslyRejectedNoFalseNegatives(t *testing.T) {
	s := newTestShard(t)
	id := recordID(5)

	before, err := s.LikelyPreviouslyRejected(id)
	require.NoError(t, err)
	assert.False(t, before)

	s.RecordRejected(id, model.Envelope{}, nil, "bad")

	after, err := s.LikelyPreviouslyRejected(id)
	require.NoError(t, err)
	assert.True(t, after)
}

func TestShard_AccumulatorRootReflectsProcessingEntries(t *testing.T) {
	s := newTestShard(t)
	_, _, err := s.AccumulatorRoot()
	assert.Error(t, err)

	require.NoError(t, s.AppendProcessing(recordID(1), model.Envelope{}, nil))
	size, root, err := s.AccumulatorRoot()
	require.NoError(t, err)
	assert.EqualValues(t, 1, size)
	assert.NotEqual(t, [32]byte{}, root)
}
