package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/dshills/localrag-mcp/pkg/types"
)

// lockRetryDelay is how often a waiting writer polls the file lock.
const lockRetryDelay = 100 * time.Millisecond

// WriterLock serializes index writers. Goroutines of one process queue on a
// channel semaphore; processes sharing a data directory queue on a flock.
type WriterLock struct {
	sem  chan struct{}
	file *flock.Flock
}

// NewWriterLock creates a lock backed by the file at path. An empty path
// gives an in-process lock only.
func NewWriterLock(path string) (*WriterLock, error) {
	l := &WriterLock{sem: make(chan struct{}, 1)}
	if path == "" {
		return l, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create lock directory: %v", types.ErrStorage, err)
	}
	l.file = flock.New(path)
	return l, nil
}

// Acquire blocks until the lock is held or ctx is done. The returned func
// releases it.
func (l *WriterLock) Acquire(ctx context.Context) (func(), error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if l.file == nil {
		return func() { <-l.sem }, nil
	}

	locked, err := l.file.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		<-l.sem
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: acquire %s: %v", types.ErrStorage, l.file.Path(), err)
	}

	return func() {
		_ = l.file.Unlock()
		<-l.sem
	}, nil
}

// TryAcquire takes the lock only if it is free right now.
func (l *WriterLock) TryAcquire() (func(), bool) {
	select {
	case l.sem <- struct{}{}:
	default:
		return nil, false
	}

	if l.file != nil {
		locked, err := l.file.TryLock()
		if err != nil || !locked {
			<-l.sem
			return nil, false
		}
	}

	return func() {
		if l.file != nil {
			_ = l.file.Unlock()
		}
		<-l.sem
	}, true
}
