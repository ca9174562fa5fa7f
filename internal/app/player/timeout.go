package player

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/loopify/internal/domain/media"
	"github.com/osa030/loopify/internal/domain/track"
)

// callWithTimeout runs fn and gives up once timeout elapses, even if fn
// ignores its context. The abandoned call finishes in the background.
func callWithTimeout[T any](ctx context.Context, timeout time.Duration, op string, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, errors.Wrapf(ctx.Err(), "%s did not finish within %v", op, timeout)
	}
}

type timeoutProvider struct {
	next    StatusProvider
	timeout time.Duration
}

// ProviderWithTimeout bounds every CurrentPlayback call of p by timeout.
func ProviderWithTimeout(p StatusProvider, timeout time.Duration) StatusProvider {
	return &timeoutProvider{next: p, timeout: timeout}
}

func (t *timeoutProvider) CurrentPlayback(ctx context.Context) (*track.Snapshot, error) {
	return callWithTimeout(ctx, t.timeout, "status poll", t.next.CurrentPlayback)
}

func (t *timeoutProvider) Name() string {
	return t.next.Name()
}

type timeoutIssuer struct {
	next    CommandIssuer
	timeout time.Duration
}

// IssuerWithTimeout bounds every Issue call of i by timeout.
func IssuerWithTimeout(i CommandIssuer, timeout time.Duration) CommandIssuer {
	return &timeoutIssuer{next: i, timeout: timeout}
}

func (t *timeoutIssuer) Issue(ctx context.Context, cmd media.Command) error {
	_, err := callWithTimeout(ctx, t.timeout, "command "+cmd.String(), func(ctx context.Context) (struct{}, error) {
		return struct{}{}, t.next.Issue(ctx, cmd)
	})
	return err
}

func (t *timeoutIssuer) Name() string {
	return t.next.Name()
}
