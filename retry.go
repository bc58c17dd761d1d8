package archway

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"
)

// retryProvider wraps a Provider and automatically retries transient HTTP
// errors (429 Too Many Requests and 503 Service Unavailable) with exponential
// backoff.
type retryProvider struct {
	inner       Provider
	maxAttempts int
	baseDelay   time.Duration
	timeout     time.Duration // overall timeout across all attempts; 0 = no limit
	logger      *slog.Logger
}

// RetryOption configures a retryProvider.
type RetryOption func(*retryProvider)

// RetryMaxAttempts sets the maximum number of attempts (default: 3).
func RetryMaxAttempts(n int) RetryOption {
	return func(r *retryProvider) { r.maxAttempts = n }
}

// RetryBaseDelay sets the initial backoff delay before the second attempt
// (default: 1s). Each subsequent delay doubles: baseDelay, 2x, 4x, ...
func RetryBaseDelay(d time.Duration) RetryOption {
	return func(r *retryProvider) { r.baseDelay = d }
}

// RetryTimeout bounds the entire retry sequence. The zero value (default)
// disables the bound.
func RetryTimeout(d time.Duration) RetryOption {
	return func(r *retryProvider) { r.timeout = d }
}

// RetryLogger overrides the logger used to report retries (default: slog.Default()).
func RetryLogger(l *slog.Logger) RetryOption {
	return func(r *retryProvider) { r.logger = l }
}

// WithRetry wraps p with automatic retry on transient ProviderErrors (HTTP
// 429/503). Retries use exponential backoff with jitter; when the error
// carries a RetryAfter duration, the delay is at least that long.
func WithRetry(p Provider, opts ...RetryOption) Provider {
	r := &retryProvider{
		inner:       p,
		maxAttempts: 3,
		baseDelay:   time.Second,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *retryProvider) Name() string { return r.inner.Name() }

func (r *retryProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return retryCall(ctx, r.maxAttempts, r.baseDelay, r.inner.Name(), r.logger, func() (ChatResponse, error) {
		return r.inner.Chat(ctx, req)
	})
}

func (r *retryProvider) Structured(ctx context.Context, req ChatRequest, schema ToolProperty) (string, Usage, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	type result struct {
		payload string
		usage   Usage
	}
	res, err := retryCall(ctx, r.maxAttempts, r.baseDelay, r.inner.Name(), r.logger, func() (result, error) {
		payload, usage, err := r.inner.Structured(ctx, req, schema)
		return result{payload, usage}, err
	})
	return res.payload, res.usage, err
}

// Stream does not retry once a call has been issued: once the caller holds a
// stream iterator, retrying transparently would risk resending already
// observed text. Retries only cover establishing the stream, matching the
// non-streaming retry discipline up to the first yielded chunk.
func (r *retryProvider) Stream(ctx context.Context, req ChatRequest) (func(yield func(StreamChunk) bool), error) {
	ctx, cancel := r.withTimeout(ctx)
	var lastErr error
	for i := 0; i < r.maxAttempts; i++ {
		seq, err := r.inner.Stream(ctx, req)
		if err == nil {
			return func(yield func(StreamChunk) bool) {
				defer cancel()
				seq(yield)
			}, nil
		}
		lastErr = err
		if !isTransient(err) {
			cancel()
			return nil, err
		}
		r.logger.Warn("transient provider error, retrying stream", "provider", r.inner.Name(), "attempt", i+1, "max_attempts", r.maxAttempts)
		if i < r.maxAttempts-1 {
			if !sleepOrDone(ctx, retryDelay(r.baseDelay, i, err)) {
				cancel()
				return nil, ctx.Err()
			}
		}
	}
	cancel()
	return nil, lastErr
}

func (r *retryProvider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	deadline := time.Now().Add(r.timeout)
	if existing, ok := ctx.Deadline(); ok && existing.Before(deadline) {
		return ctx, func() {}
	}
	return context.WithDeadline(ctx, deadline)
}

func isTransient(err error) bool {
	var e *ProviderError
	return errors.As(err, &e) && (e.StatusCode == 429 || e.StatusCode == 503)
}

func retryAfterOf(err error) time.Duration {
	var e *ProviderError
	if errors.As(err, &e) && e.RetryAfter > 0 {
		return time.Duration(e.RetryAfter) * time.Second
	}
	return 0
}

func retryDelay(base time.Duration, i int, err error) time.Duration {
	backoff := retryBackoff(base, i)
	if ra := retryAfterOf(err); ra > backoff {
		return ra
	}
	return backoff
}

func retryCall[T any](ctx context.Context, maxAttempts int, base time.Duration, name string, logger *slog.Logger, fn func() (T, error)) (T, error) {
	var zero T
	var last error
	for i := 0; i < maxAttempts; i++ {
		result, err := fn()
		if err == nil || !isTransient(err) {
			return result, err
		}
		last = err
		logger.Warn("transient provider error, retrying", "provider", name, "attempt", i+1, "max_attempts", maxAttempts)
		if i < maxAttempts-1 {
			if !sleepOrDone(ctx, retryDelay(base, i, err)) {
				return zero, ctx.Err()
			}
		}
	}
	return zero, last
}

// retryBackoff returns the delay for retry i (0-indexed): base * 2^i, plus up
// to 50% random jitter.
func retryBackoff(base time.Duration, i int) time.Duration {
	exp := base * (1 << i)
	jitter := time.Duration(rand.Int63n(int64(exp)/2 + 1))
	return exp + jitter
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

var _ Provider = (*retryProvider)(nil)
