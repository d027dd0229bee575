package sink

import (
	"context"
	"fmt"

	"github.com/datatrails/go-datatrails-common/azblob"
	"github.com/fibonacci1729/registry/model"
)

// BlobWriter is the subset of azblob's writer surface the archiver needs,
// matching massifs.MassifCommitter's Store.Put usage: a path, a reader
// over the bytes to write, and the same azblob.Option plumbing (tags,
// etag guards) the teacher's blob-commit path uses.
type BlobWriter interface {
	Put(ctx context.Context, path string, body azblob.ReaderCloser, opts ...azblob.Option) (*azblob.WriteResponse, error)
}

// ArchivingSink wraps a ChannelSink and, on every installed checkpoint
// (fed by the cmd/ entrypoint's own subscription to new_checkpoint calls —
// a separate, outer feed from the Core Service's own leaf-sink contract),
// writes the checkpoint's canonical CBOR bytes to blob storage keyed by
// its CheckpointHash. This gives operators audit/replay of checkpoints
// external to the deliberately volatile in-memory core state; it has no
// effect on the core's own restart behavior (SPEC_FULL.md's Non-goals
// section).
type ArchivingSink struct {
	*ChannelSink
	store  BlobWriter
	prefix string
}

// NewArchivingSink wraps sink with a BlobWriter; every checkpoint archived
// via ArchiveCheckpoint is stored at "<prefix><hex checkpoint hash>".
func NewArchivingSink(sink *ChannelSink, store BlobWriter, prefix string) *ArchivingSink {
	return &ArchivingSink{ChannelSink: sink, store: store, prefix: prefix}
}

// ArchiveCheckpoint persists the signed checkpoint envelope bytes for hash
// h. It is called by the process driving new_checkpoint, once per
// successfully installed checkpoint, never by the Core Service itself.
func (a *ArchivingSink) ArchiveCheckpoint(ctx context.Context, h model.CheckpointHash, signed []byte) error {
	path := a.prefix + h.String()
	if _, err := a.store.Put(ctx, path, azblob.NewBytesReaderCloser(signed)); err != nil {
		return fmt.Errorf("sink: archiving checkpoint %s: %w", h, err)
	}
	return nil
}
