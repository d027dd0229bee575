package accumulator

import (
	"testing"

	"github.com/fibonacci1729/registry/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordID(b byte) model.RecordId {
	var id model.RecordId
	id[0] = b
	return id
}

func TestIndex_RootAfterSingleInsert(t *testing.T) {
	idx, err := NewIndex()
	require.NoError(t, err)

	_, err = idx.Append(recordID(1))
	require.NoError(t, err)

	root, err := idx.Root()
	require.NoError(t, err)
	assert.NotEqual(t, [32]byte{}, root)
}

func TestIndex_RootEmptyReturnsErrEmpty(t *testing.T) {
	idx, err := NewIndex()
	require.NoError(t, err)

	_, err = idx.Root()
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestIndex_FinalizeIsIdempotentAcrossRoot(t *testing.T) {
	idx, err := NewIndex()
	require.NoError(t, err)

	for i := byte(0); i < 5; i++ {
		_, err := idx.Append(recordID(i))
		require.NoError(t, err)
	}

	r1, err := idx.Root()
	require.NoError(t, err)
	r2, err := idx.Root()
	require.NoError(t, err)
	assert.Equal(t, r1, r2)

	// Further inserts after a Root() call still succeed and change the root.
	_, err = idx.Append(recordID(5))
	require.NoError(t, err)
	r3, err := idx.Root()
	require.NoError(t, err)
	assert.NotEqual(t, r2, r3)
}

func TestIndex_GrowsPastInitialCapacity(t *testing.T) {
	idx, err := NewIndex()
	require.NoError(t, err)

	for i := 0; i < initialLeafCapacity+10; i++ {
		_, err := idx.Append(recordID(byte(i)))
		require.NoError(t, err)
	}
	assert.EqualValues(t, initialLeafCapacity+10, idx.Size())

	root, err := idx.Root()
	require.NoError(t, err)
	assert.NotEqual(t, [32]byte{}, root)
}
