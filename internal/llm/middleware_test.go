package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyberguard/internal/logging"
)

// fake client that counts calls and fails the first failN of them
type countingClient struct {
	calls int
	failN int
	err   error
	media int
}

func (f *countingClient) Name() string { return "counting" }
func (f *countingClient) Close() error { return nil }
func (f *countingClient) GenerateJSON(ctx context.Context, prompt string, input any, media ...Media) (json.RawMessage, error) {
	f.calls++
	f.media = len(media)
	if f.calls <= f.failN {
		return nil, f.err
	}
	return json.RawMessage(`{"ok":true}`), nil
}

func TestWrapAppliesLeftToRight(t *testing.T) {
	var order []string
	mk := func(name string) Middleware {
		return func(next LLMClient) LLMClient {
			order = append(order, name)
			return next
		}
	}
	Wrap(&countingClient{}, mk("A"), mk("B"))
	// B wraps inner first, then A wraps B.
	assert.Equal(t, []string{"B", "A"}, order)
}

func TestRetryRecoversFromTransientErrors(t *testing.T) {
	inner := &countingClient{failN: 2, err: errors.New("503")}
	cli := Retry(3, time.Millisecond)(inner)

	raw, err := cli.GenerateJSON(context.Background(), "p", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
	assert.Equal(t, 3, inner.calls)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	inner := &countingClient{failN: 5, err: Permanent(errors.New("bad request"))}
	cli := Retry(3, time.Millisecond)(inner)

	_, err := cli.GenerateJSON(context.Background(), "p", nil)
	require.Error(t, err)
	var pErr *PermanentError
	assert.ErrorAs(t, err, &pErr)
	assert.Equal(t, 1, inner.calls)
}

func TestRetryHonoursCanceledContext(t *testing.T) {
	inner := &countingClient{failN: 5, err: errors.New("timeout")}
	cli := Retry(5, time.Hour)(inner)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := cli.GenerateJSON(ctx, "p", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, inner.calls)
}

func TestWithRetryBelowTwoAttemptsIsIdentity(t *testing.T) {
	inner := &countingClient{}
	assert.Same(t, LLMClient(inner), WithRetry(inner, 1))
}

func TestLoggingRecordsPhaseAndError(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetLevel(logrus.DebugLevel)
	logger.SetFormatter(&logrus.JSONFormatter{})

	inner := &countingClient{failN: 1, err: errors.New("boom")}
	cli := Wrap(inner, WithLogging(logrus.NewEntry(logger)))

	ctx := WithPhase(context.Background(), PhaseClassify)
	_, err := cli.GenerateJSON(ctx, "p", map[string]string{"k": "v"}, Media{MIMEType: "image/png", Data: []byte{1}})
	require.EqualError(t, err, "boom")
	assert.Equal(t, 1, inner.media)

	out := buf.String()
	assert.Contains(t, out, `"phase":"`+PhaseClassify+`"`)
	assert.Contains(t, out, `"media":1`)
	assert.Contains(t, out, `"msg":"LLM error"`)
	assert.Contains(t, out, `"error":"boom"`)

	buf.Reset()
	_, err = cli.GenerateJSON(ctx, "p", nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"msg":"LLM response"`)
}

func TestLoggingDiscardPassesThrough(t *testing.T) {
	inner := &countingClient{}
	cli := Wrap(inner, WithLogging(logging.Discard()))
	raw, err := cli.GenerateJSON(context.Background(), "p", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
}

func TestPhaseFromDefaultsToUnknown(t *testing.T) {
	assert.Equal(t, "unknown", PhaseFrom(context.Background()))
}

func TestRateLimitDisabledPassesThrough(t *testing.T) {
	inner := &countingClient{}
	cli := RateLimit(0, 0)(inner)
	for i := 0; i < 3; i++ {
		_, err := cli.GenerateJSON(context.Background(), "p", nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, inner.calls)
	require.NoError(t, cli.Close())
}

func TestRateLimitAcquireRespectsContext(t *testing.T) {
	inner := &countingClient{}
	// One token per hour with burst 1: the second call must wait.
	cli := RateLimit(1.0/3600.0, 1)(inner)
	defer cli.Close()

	_, err := cli.GenerateJSON(context.Background(), "p", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = cli.GenerateJSON(ctx, "p", nil)
	assert.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestRedactMedia(t *testing.T) {
	in := map[string]any{
		"text":  "hello",
		"image": "data:image/png;base64,iVBORw0KGgo=",
		"list":  []any{"ok", "<img src='data:image/png;base64,AAAA'>"},
	}
	out := RedactMedia(in).(map[string]any)
	assert.Equal(t, "hello", out["text"])
	assert.Equal(t, redactedMedia, out["image"])
	assert.Equal(t, []any{"ok", redactedMedia}, out["list"])
}

func TestFakeClientClassifiesByKeyword(t *testing.T) {
	cli := NewFakeClient()
	ctx := WithPhase(context.Background(), PhaseClassify)

	raw, err := cli.GenerateJSON(ctx, "p", map[string]string{"description": "My files are encrypted!"})
	require.NoError(t, err)
	var got map[string]string
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "Ransomware", got["incidentType"])
	assert.Equal(t, "High", got["severity"])
}
