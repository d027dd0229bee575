package shard

import (
	"fmt"

	"github.com/fibonacci1729/registry/model"
	"github.com/forestrie/go-merklelog/bloom"
)

// expectedRejections sizes the bloom region at shard-creation time for an
// assumed rejection volume. It is a diagnostic pre-check, not a capacity
// limit: the filter degrades gracefully (more false positives) if actual
// rejections exceed this, it never rejects an insert.
const expectedRejections = 1024

// bitsPerElement and k are chosen for roughly a 1% false-positive rate at
// expectedRejections entries, the standard k = ceil(bitsPerElement * ln2).
const (
	bitsPerElement = 10
	filterK        = 7
	filterIdx      = 0
)

// rejectedFilter is C10: a small, fixed-capacity Bloom filter over the
// RecordId digests a shard has rejected, consulted only by
// Shard.LikelyPreviouslyRejected. It never gates submit_package_record.
type rejectedFilter struct {
	region []byte
}

func newRejectedFilter() (*rejectedFilter, error) {
	mBits := bloom.MBitsSafeCast(bloom.MBitsV1(expectedRejections, bitsPerElement))
	region := make([]byte, bloom.RegionBytesV1(mBits))
	if err := bloom.InitV1(region, expectedRejections, bitsPerElement, filterK); err != nil {
		return nil, fmt.Errorf("shard: initializing rejected-record filter: %w", err)
	}
	return &rejectedFilter{region: region}, nil
}

// insert records that id was rejected. Errors are internal invariant
// violations (bad region sizing), never a reason to fail the rejection
// itself, so callers log and proceed rather than propagate.
func (f *rejectedFilter) insert(id model.RecordId) error {
	return bloom.InsertV1(f.region, filterIdx, id[:])
}

// mightContain reports whether id was possibly previously rejected on this
// shard. False means definitely not; true means maybe, per standard Bloom
// filter semantics (no false negatives, possible false positives).
func (f *rejectedFilter) mightContain(id model.RecordId) (bool, error) {
	return bloom.MaybeContainsV1(f.region, filterIdx, id[:])
}
