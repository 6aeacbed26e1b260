// Package task provides the cooperative task facility used by async entity
// loads: cancellation tokens, a default timeout, and a completion contract
// that fires exactly once per task even when cancelled.
package task

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrCancelled is delivered to OnComplete when a task is cancelled.
var ErrCancelled = errors.New("task cancelled")

// DefaultTimeout bounds metadata loads that carry no explicit timeout.
const DefaultTimeout = 60 * time.Second

// IsCancelled reports whether err represents a cancellation. Errors that
// crossed a driver boundary may only carry the word in their text, so the
// match falls back to a case-insensitive substring check.
func IsCancelled(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "cancelled") ||
		strings.Contains(strings.ToLower(err.Error()), "canceled")
}

// Token flags an in-flight task for abandonment. Cancellation is
// cooperative: blocking tasks check the token at defined checkpoints,
// dispatched tasks receive a context wired to it.
type Token struct {
	once sync.Once
	done chan struct{}
}

// NewToken returns a fresh, uncancelled token.
func NewToken() *Token {
	return &Token{done: make(chan struct{})}
}

// Cancel flags the token. Safe to call more than once.
func (t *Token) Cancel() {
	t.once.Do(func() { close(t.done) })
}

// Cancelled reports whether Cancel has been called.
func (t *Token) Cancelled() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed on cancellation.
func (t *Token) Done() <-chan struct{} { return t.done }

// Options configures a task run.
type Options struct {
	// Timeout bounds the task; DefaultTimeout when zero.
	Timeout time.Duration
	// OnProgress receives free-form progress text. May be nil.
	OnProgress func(text string)
	// OnComplete is invoked exactly once with the task's error (nil on
	// success, ErrCancelled on cancellation). May be nil.
	OnComplete func(err error)
}

func (o Options) timeout() time.Duration {
	if o.Timeout <= 0 {
		return DefaultTimeout
	}
	return o.Timeout
}

// Handle refers to a started task.
type Handle struct {
	token    *Token
	finished chan struct{}
}

// Cancel flags the task's token.
func (h *Handle) Cancel() { h.token.Cancel() }

// Done returns a channel closed once OnComplete has run.
func (h *Handle) Done() <-chan struct{} { return h.finished }

// Token returns the task's cancellation token.
func (h *Handle) Token() *Token { return h.token }

// Dispatch starts fn with a context cancelled by the returned handle's token
// or the timeout. This is the preferred, truly non-blocking path: drivers
// abandon in-flight I/O through the context and the caller returns
// immediately.
func Dispatch(fn func(ctx context.Context) error, opts Options) *Handle {
	tok := NewToken()
	h := &Handle{token: tok, finished: make(chan struct{})}

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout())
	go func() {
		select {
		case <-tok.Done():
			cancel()
		case <-h.finished:
		}
	}()

	go func() {
		defer close(h.finished)
		defer cancel()

		err := fn(ctx)
		if tok.Cancelled() || errors.Is(err, context.Canceled) {
			err = ErrCancelled
		} else if errors.Is(err, context.DeadlineExceeded) {
			err = errors.Join(err, errors.New("load timed out"))
		}
		complete(opts, err)
	}()

	return h
}

// RunBlocking wraps a blocking call behind cancellation checkpoints before
// and after the call. The call itself cannot be interrupted; this path
// exists only for loaders without a context-aware variant and is strictly
// inferior to Dispatch.
func RunBlocking(fn func() error, opts Options) *Handle {
	tok := NewToken()
	h := &Handle{token: tok, finished: make(chan struct{})}

	go func() {
		defer close(h.finished)

		if tok.Cancelled() {
			complete(opts, ErrCancelled)
			return
		}

		errc := make(chan error, 1)
		go func() { errc <- fn() }()

		var err error
		select {
		case err = <-errc:
		case <-time.After(opts.timeout()):
			err = errors.New("load timed out")
		}

		if tok.Cancelled() {
			err = ErrCancelled
		}
		complete(opts, err)
	}()

	return h
}

func complete(opts Options, err error) {
	if opts.OnComplete != nil {
		opts.OnComplete(err)
	}
}
