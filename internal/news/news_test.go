package news

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"cyberguard/internal/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLLM struct {
	raw   string
	err   error
	calls atomic.Int32
}

func (s *stubLLM) Name() string { return "stub" }
func (s *stubLLM) Close() error { return nil }
func (s *stubLLM) GenerateJSON(ctx context.Context, _ string, _ any, _ ...llm.Media) (json.RawMessage, error) {
	s.calls.Add(1)
	if llm.PhaseFrom(ctx) != llm.PhaseNews {
		return nil, errors.New("wrong phase")
	}
	if s.err != nil {
		return nil, s.err
	}
	return json.RawMessage(s.raw), nil
}

const digestJSON = `{"articles":[
 {"title":"Bank SMS scam wave","source":"Example News","summary":"Texts pretend to be your bank.","imageUrl":"","articleUrl":"https://example.com/a","publishedDate":"2026-10-14"},
 {"title":"","source":"dropped"},
 {"title":"Browser patch","source":"Vendor Blog","summary":"Update now.","imageUrl":"https://example.com/i.png","articleUrl":"https://example.com/b","publishedDate":"2026-10-13"}
]}`

func TestFetchAssignsIDsAndCaches(t *testing.T) {
	stub := &stubLLM{raw: digestJSON}
	svc := New(stub, Options{
		CacheTTL: time.Minute,
		Now:      func() time.Time { return time.UnixMilli(1760518800000) },
	})

	got, err := svc.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "news-0-1760518800000", got[0].ID)
	assert.Equal(t, "news-1-1760518800000", got[1].ID)
	assert.Equal(t, "Browser patch", got[1].Title)

	_, err = svc.Fetch(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, stub.calls.Load())

	_, err = svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, stub.calls.Load())
}

func TestFetchFailure(t *testing.T) {
	for name, stub := range map[string]*stubLLM{
		"transport": {err: errors.New("offline")},
		"garbage":   {raw: "<html>"},
	} {
		_, err := New(stub, Options{}).Fetch(context.Background())
		assert.ErrorIs(t, err, ErrFetchFailed, name)
	}
}

func TestFetchWithFakeClient(t *testing.T) {
	got, err := New(llm.NewFakeClient(), Options{}).Fetch(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Contains(t, got[0].ID, "news-0-")
}
