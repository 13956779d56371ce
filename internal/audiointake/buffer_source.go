package audiointake

import (
	"context"
	"io"
	"sync"
)

// BufferSource serves a blob that arrived whole, e.g. via a multipart upload.
// It hands the blob to the recorder in a single Read.
type BufferSource struct {
	mu     sync.Mutex
	data   []byte
	served bool
}

// NewBufferSource wraps an in-memory audio blob.
func NewBufferSource(data []byte) *BufferSource {
	return &BufferSource{data: data}
}

func (s *BufferSource) Start(_ context.Context) error { return nil }

// Read returns the blob once, then io.EOF.
func (s *BufferSource) Read() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.served {
		return nil, io.EOF
	}
	s.served = true
	return s.data, nil
}

// Close is a no-op: there is no device to release, and the blob stays
// readable so a reader that closes first can still drain it before io.EOF.
func (s *BufferSource) Close() error { return nil }
