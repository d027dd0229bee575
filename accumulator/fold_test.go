package accumulator

import (
	"testing"

	"github.com/fibonacci1729/registry/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shardRoot(name byte, root byte) model.ShardRoot {
	var logID model.LogId
	logID[0] = name
	var r [32]byte
	r[0] = root
	return model.ShardRoot{LogId: logID, Size: 1, Root: r}
}

func TestFold_EmptyYieldsZeroRoot(t *testing.T) {
	root, err := Fold(nil)
	require.NoError(t, err)
	assert.Equal(t, [32]byte{}, root)
}

func TestFold_OrderIndependentForFixedShardSet(t *testing.T) {
	a := shardRoot(1, 0xAA)
	b := shardRoot(2, 0xBB)
	c := shardRoot(3, 0xCC)

	r1, err := Fold([]model.ShardRoot{a, b, c})
	require.NoError(t, err)
	r2, err := Fold([]model.ShardRoot{c, a, b})
	require.NoError(t, err)
	r3, err := Fold([]model.ShardRoot{b, c, a})
	require.NoError(t, err)

	assert.Equal(t, r1, r2)
	assert.Equal(t, r1, r3)
}

func TestFold_DifferentShardSetsDiffer(t *testing.T) {
	a := shardRoot(1, 0xAA)
	b := shardRoot(2, 0xBB)

	r1, err := Fold([]model.ShardRoot{a, b})
	require.NoError(t, err)
	r2, err := Fold([]model.ShardRoot{a})
	require.NoError(t, err)

	assert.NotEqual(t, r1, r2)
}
