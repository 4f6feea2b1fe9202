package routing

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrTimeout is returned by Future.Wait when the reply does not arrive in
// time. Distinct from delivery failures: the in-flight work is not cancelled.
var ErrTimeout = errors.New("timed out waiting for reply")

// Future is a single-resolution reply handle. The receiving workload resolves
// it exactly once, with either a result or an error; a second resolution is a
// programming error and panics.
type Future struct {
	id       string
	mu       sync.Mutex
	done     chan struct{}
	resolved bool
	result   any
	err      error
}

func NewFuture() *Future {
	return &Future{
		id:   uuid.NewString(),
		done: make(chan struct{}),
	}
}

// Id returns the correlation id assigned at creation.
func (f *Future) Id() string {
	return f.id
}

// Resolve completes the future with a result.
func (f *Future) Resolve(result any) {
	f.complete(result, nil)
}

// Fail completes the future with an error.
func (f *Future) Fail(err error) {
	f.complete(nil, err)
}

func (f *Future) complete(result any, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resolved {
		panic("future " + f.id + " resolved twice")
	}
	f.resolved = true
	f.result = result
	f.err = err
	close(f.done)
}

// Wait blocks until the future is resolved or the timeout elapses.
func (f *Future) Wait(timeout time.Duration) (any, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-time.After(timeout):
		return nil, errors.Wrapf(ErrTimeout, "after %s", timeout)
	}
}
