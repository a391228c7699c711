package llm

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Options selects and tunes the client built by NewClient.
type Options struct {
	APIKey string
	Model  string
	// Fake swaps Gemini for FakeClient so the app runs offline.
	Fake   bool
	RPS    float64
	Burst  int
	Logger *logrus.Entry
	// Extra runs outermost, for example request metrics.
	Extra []Middleware
}

// NewClient builds the shared client: logging and rate limiting around
// Gemini (or FakeClient). Retries are left to each caller via
// WithRetry because incident classification must not retry on its own.
func NewClient(ctx context.Context, opts Options) (LLMClient, error) {
	var base LLMClient
	if opts.Fake {
		base = NewFakeClient()
	} else {
		g, err := NewGeminiClient(ctx, opts.APIKey, opts.Model)
		if err != nil {
			return nil, err
		}
		base = g
	}
	mws := append(append([]Middleware(nil), opts.Extra...),
		WithLogging(opts.Logger),
		RateLimit(opts.RPS, opts.Burst),
	)
	return Wrap(base, mws...), nil
}

// WithRetry layers Retry over an existing client. attempts < 2 returns c unchanged.
func WithRetry(c LLMClient, attempts int) LLMClient {
	if attempts < 2 {
		return c
	}
	return Retry(attempts, 300*time.Millisecond)(c)
}
