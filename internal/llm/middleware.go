package llm

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Middleware decorates an LLMClient to inject cross-cutting concerns
// (rate limiting, retries, logging).
type Middleware func(LLMClient) LLMClient

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner LLMClient, mws ...Middleware) LLMClient {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// -------- Rate Limiting --------

// RateLimit throttles calls to rps per second with the given burst.
// rps <= 0 disables it.
func RateLimit(rps float64, burst int) Middleware {
	return func(next LLMClient) LLMClient {
		if rps <= 0 {
			return next
		}
		if burst < 1 {
			burst = 1
		}
		return &rateLimited{next: next, lim: rate.NewLimiter(rate.Limit(rps), burst)}
	}
}

type rateLimited struct {
	next LLMClient
	lim  *rate.Limiter
}

func (c *rateLimited) Name() string { return c.next.Name() }
func (c *rateLimited) Close() error { return c.next.Close() }
func (c *rateLimited) GenerateJSON(ctx context.Context, prompt string, input any, media ...Media) (json.RawMessage, error) {
	if err := c.lim.Wait(ctx); err != nil {
		return nil, err
	}
	return c.next.GenerateJSON(ctx, prompt, input, media...)
}

// -------- Retry with exponential backoff --------

// PermanentError marks a failure that retrying cannot fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so Retry gives up immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// Retry retries GenerateJSON up to maxAttempts with exponential backoff
// starting at baseDelay. If context is canceled, it stops immediately.
func Retry(maxAttempts int, baseDelay time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 300 * time.Millisecond
	}
	return func(next LLMClient) LLMClient {
		return &retrying{next: next, max: maxAttempts, base: baseDelay}
	}
}

type retrying struct {
	next LLMClient
	max  int
	base time.Duration
}

func (r *retrying) Name() string { return r.next.Name() }
func (r *retrying) Close() error { return r.next.Close() }
func (r *retrying) GenerateJSON(ctx context.Context, prompt string, input any, media ...Media) (json.RawMessage, error) {
	var last error
	for i := 0; i < r.max; i++ {
		resp, err := r.next.GenerateJSON(ctx, prompt, input, media...)
		if err == nil {
			return resp, nil
		}
		var pErr *PermanentError
		if errors.As(err, &pErr) {
			return nil, err
		}
		last = err
		if i == r.max-1 {
			break
		}
		timer := time.NewTimer(r.base * time.Duration(1<<i))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, last
}

// -------- Logging --------

// WithLogging logs request size and errors. A nil entry uses the standard logrus logger.
func WithLogging(logger *logrus.Entry) Middleware {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return func(next LLMClient) LLMClient {
		return &loggedClient{next: next, log: logger}
	}
}

type loggedClient struct {
	next LLMClient
	log  *logrus.Entry
}

func (l *loggedClient) Name() string { return l.next.Name() }
func (l *loggedClient) Close() error { return l.next.Close() }
func (l *loggedClient) GenerateJSON(ctx context.Context, prompt string, input any, media ...Media) (json.RawMessage, error) {
	in, _ := json.Marshal(RedactMedia(toJSONValue(input)))
	entry := l.log.WithFields(logrus.Fields{
		"phase": PhaseFrom(ctx),
		"model": l.next.Name(),
		"bytes": len(prompt) + len(in),
		"media": len(media),
	})
	started := time.Now()
	entry.Debug("LLM request")
	raw, err := l.next.GenerateJSON(ctx, prompt, input, media...)
	if err != nil {
		entry.WithError(err).Warn("LLM error")
		return raw, err
	}
	entry.WithField("elapsed", time.Since(started).String()).Debug("LLM response")
	return raw, nil
}

// toJSONValue round-trips v through JSON so RedactMedia sees plain maps and slices.
func toJSONValue(v any) any {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	return out
}
