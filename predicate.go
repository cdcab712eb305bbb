package corsrw

import (
	"context"
	"errors"
)

// A Predicate reports whether origin should be granted access.
// A non-nil error makes the current request fail; no retry takes place.
//
// Middleware call their predicate (if any) exactly once per response to a
// request that carries an origin, even if some other rule of their [Config]
// already grants access to that origin.
// Predicates must be safe for concurrent use by multiple goroutines.
type Predicate func(ctx context.Context, origin string) (bool, error)

// Sync adapts an ordinary function into a [Predicate] that never fails.
func Sync(f func(origin string) bool) Predicate {
	return func(_ context.Context, origin string) (bool, error) {
		return f(origin), nil
	}
}

// A Result is the eventual outcome of a deferred predicate.
type Result struct {
	Allowed bool
	Err     error
}

// ErrNoResult is the error reported by a [Predicate] created by [Deferred]
// when the channel it awaits is nil or is closed before delivering a
// [Result].
var ErrNoResult = errors.New("corsrw: deferred predicate delivered no result")

// Deferred adapts a function that starts some asynchronous decision
// into a [Predicate]. The resulting predicate awaits the first [Result]
// delivered on the channel that f returns,
// or the cancellation of the request's context, whichever comes first.
// A nil channel yields [ErrNoResult] rather than blocking.
func Deferred(f func(ctx context.Context, origin string) <-chan Result) Predicate {
	return func(ctx context.Context, origin string) (bool, error) {
		ch := f(ctx, origin)
		if ch == nil {
			return false, ErrNoResult
		}
		select {
		case res, ok := <-ch:
			if !ok {
				return false, ErrNoResult
			}
			return res.Allowed, res.Err
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}
