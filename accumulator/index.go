// Package accumulator implements the per-shard append-only keyed index
// (C9) and the cross-shard fold that together define a checkpoint's map
// root: a github.com/forestrie/go-merklelog/urkle trie over one shard's
// leaf ordinals, and a github.com/forestrie/go-merklelog/mmr bagging of
// the sorted per-shard roots.
package accumulator

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/fibonacci1729/registry/model"
	"github.com/forestrie/go-merklelog/urkle"
)

// initialLeafCapacity is the starting size of a fresh shard's urkle
// storage. Growth beyond this is geometric (Append doubles it via grow), since the
// number of records a package log will eventually hold is unbounded.
const initialLeafCapacity = 64

var (
	// ErrEmpty is returned by Root when no leaves have been inserted yet.
	ErrEmpty = errors.New("accumulator: no leaves inserted")
)

// Index is one shard's accumulator: a monotone urkle.Builder keyed by leaf
// ordinal (0-based, strictly increasing) over RecordId digests. It is not
// safe for concurrent use; callers serialize access the same way they
// serialize every other mutation to the owning shard (its exclusive lock).
type Index struct {
	cap       uint64
	size      uint64
	leafTable []byte
	nodeStore []byte
	builder   *urkle.Builder
}

// NewIndex constructs an empty accumulator sized for initialLeafCapacity
// leaves; it grows itself transparently on Append once that is exceeded.
func NewIndex() (*Index, error) {
	idx := &Index{}
	if err := idx.grow(initialLeafCapacity); err != nil {
		return nil, err
	}
	return idx, nil
}

// grow reallocates the leaf table and node store to hold newCap leaves,
// copying the old regions into the new (larger) buffers and rebuilding the
// builder from its saved frontier so in-flight construction is preserved.
func (idx *Index) grow(newCap uint64) error {
	newLeafTable := make([]byte, urkle.LeafTableBytes(newCap))
	newNodeStore := make([]byte, urkle.NodeStoreBytes(newCap))
	copy(newLeafTable, idx.leafTable)
	copy(newNodeStore, idx.nodeStore)

	var frontier []byte
	if idx.builder != nil {
		frontier = make([]byte, urkle.FrontierStateV1Bytes)
		if err := idx.builder.SaveFrontier(frontier); err != nil {
			return fmt.Errorf("accumulator: saving frontier before growth: %w", err)
		}
	}

	builder, err := urkle.NewBuilderFromFrontier(sha256.New(), newLeafTable, newNodeStore, frontier)
	if err != nil {
		return fmt.Errorf("accumulator: rebuilding from frontier: %w", err)
	}

	idx.leafTable = newLeafTable
	idx.nodeStore = newNodeStore
	idx.builder = builder
	idx.cap = newCap
	logger.Sugar.Debugf("accumulator: grew leaf capacity to %d", newCap)
	return nil
}

// Append inserts the next leaf ordinal (idx.size) mapping to id, growing
// storage first if the shard has outgrown its current capacity. It returns
// the leaf ordinal assigned, which is always idx.size before the call.
func (idx *Index) Append(id model.RecordId) (uint64, error) {
	if idx.size >= idx.cap {
		if err := idx.grow(idx.cap * 2); err != nil {
			return 0, err
		}
	}
	ordinal, err := idx.builder.InsertMonotone(idx.size, id[:])
	if err != nil {
		return 0, fmt.Errorf("accumulator: inserting leaf %d: %w", idx.size, err)
	}
	idx.size++
	return uint64(ordinal), nil
}

// Size returns the number of leaves inserted so far.
func (idx *Index) Size() uint64 { return idx.size }

// Root finalizes and returns the current trie root. Finalize is
// idempotent on the underlying builder (closing already-closed frames is a
// no-op), so calling Root repeatedly with no intervening Append returns
// the same value and never disturbs subsequent Append calls.
func (idx *Index) Root() ([32]byte, error) {
	if idx.size == 0 {
		return [32]byte{}, ErrEmpty
	}
	_, root, err := idx.builder.Finalize()
	if err != nil {
		return [32]byte{}, fmt.Errorf("accumulator: finalizing: %w", err)
	}
	return root, nil
}
