package jobs

import (
	"context"
	"sync"
	"sync/atomic"
)

// Token is a per-job cancellation flag. It is polled by the pipeline and
// observed by the progress reporter through Done.
type Token struct {
	cancelled atomic.Bool
	once      sync.Once
	done      chan struct{}
}

func NewToken() *Token {
	return &Token{done: make(chan struct{})}
}

// Cancel sets the flag. Safe to call more than once and from any goroutine.
func (t *Token) Cancel() {
	t.once.Do(func() {
		t.cancelled.Store(true)
		close(t.done)
	})
}

func (t *Token) Cancelled() bool { return t.cancelled.Load() }

// Done is closed on Cancel.
func (t *Token) Done() <-chan struct{} { return t.done }

// Context derives a context that is cancelled together with the token.
func (t *Token) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-t.done:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
