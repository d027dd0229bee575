package accumulator

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"sort"

	"github.com/fibonacci1729/registry/model"
	"github.com/forestrie/go-merklelog/mmr"
)

// memStore is a throwaway in-memory mmr.NodeAppender used only to combine
// one checkpoint's per-shard roots into a single MapRoot; it is never kept
// around once Fold returns.
type memStore struct {
	nodes [][]byte
}

func (s *memStore) Get(i uint64) ([]byte, error) {
	if i >= uint64(len(s.nodes)) {
		return nil, fmt.Errorf("accumulator: mmr index %d out of range", i)
	}
	return s.nodes[i], nil
}

func (s *memStore) Append(value []byte) (uint64, error) {
	s.nodes = append(s.nodes, append([]byte(nil), value...))
	return uint64(len(s.nodes) - 1), nil
}

// Fold combines the given shard roots, sorted by LogId, into one MapRoot by
// feeding them as leaves into a fresh in-memory Merkle Mountain Range and
// bagging the result. It is order-independent with respect to the order
// roots are passed in (the sort makes that explicit) but deterministic for
// a fixed shard set, matching SPEC_FULL.md §8 property 10.
func Fold(roots []model.ShardRoot) ([32]byte, error) {
	if len(roots) == 0 {
		return [32]byte{}, nil
	}

	sorted := make([]model.ShardRoot, len(roots))
	copy(sorted, roots)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].LogId[:], sorted[j].LogId[:]) < 0
	})

	store := &memStore{}
	hasher := sha256.New()
	var size uint64
	for _, r := range sorted {
		n, err := mmr.AddHashedLeaf(store, hasher, r.Root[:])
		if err != nil {
			return [32]byte{}, fmt.Errorf("accumulator: folding shard %s: %w", r.LogId, err)
		}
		size = n
	}

	root, err := mmr.GetRoot(size, store, hasher)
	if err != nil {
		return [32]byte{}, fmt.Errorf("accumulator: bagging root: %w", err)
	}
	var out [32]byte
	copy(out[:], root)
	return out, nil
}
