package rootcmd

import (
	"context"
	"io"
	"sync"

	"github.com/datatrails/go-datatrails-common/azblob"
)

// memoryBlobWriter is a sink.BlobWriter that keeps archived checkpoints in
// memory, for the harness to demonstrate ArchivingSink without requiring a
// real Azure Storage account. A production deployment supplies a real
// go-datatrails-common/azblob.Writer against an actual container instead;
// the archiver itself does not care which it gets (SPEC_FULL.md §4.4).
type memoryBlobWriter struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemoryBlobWriter() *memoryBlobWriter {
	return &memoryBlobWriter{blobs: make(map[string][]byte)}
}

func (w *memoryBlobWriter) Put(_ context.Context, path string, body azblob.ReaderCloser, _ ...azblob.Option) (*azblob.WriteResponse, error) {
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	w.blobs[path] = data
	w.mu.Unlock()
	return &azblob.WriteResponse{}, nil
}

func (w *memoryBlobWriter) get(path string) ([]byte, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	data, ok := w.blobs[path]
	return data, ok
}
