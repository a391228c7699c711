package incident

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"cyberguard/internal/classifier"
	"cyberguard/internal/llm"
	"cyberguard/internal/playbook"
	reportrepo "cyberguard/internal/repository/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedClassifier blocks every call until the test answers it.
type gatedClassifier struct {
	calls chan *pendingCall
}

type pendingCall struct {
	ctx         context.Context
	description string
	reply       chan classifyReply
}

type classifyReply struct {
	res classifier.Result
	err error
}

func newGatedClassifier() *gatedClassifier {
	return &gatedClassifier{calls: make(chan *pendingCall, 4)}
}

func (g *gatedClassifier) Classify(ctx context.Context, description string) (classifier.Result, error) {
	call := &pendingCall{ctx: ctx, description: description, reply: make(chan classifyReply, 1)}
	g.calls <- call
	r := <-call.reply
	return r.res, r.err
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
	steps    int
	exported int
}

func (c *countingRecorder) Classification(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcomes == nil {
		c.outcomes = map[string]int{}
	}
	c.outcomes[outcome]++
}
func (c *countingRecorder) StepOutcome(bool) { c.mu.Lock(); c.steps++; c.mu.Unlock() }
func (c *countingRecorder) ReportExported()  { c.mu.Lock(); c.exported++; c.mu.Unlock() }

func (c *countingRecorder) outcome(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcomes[name]
}

func newTestService(t *testing.T, cls classifier.Classifier, rec Recorder) (*Service, *reportrepo.MemoryStore) {
	t.Helper()
	reports := reportrepo.NewMemoryStore()
	svc := New(Options{
		Classifier: cls,
		Catalog:    testCatalog(t),
		Reports:    reports,
		Metrics:    rec,
		TTL:        time.Minute,
		Now:        func() time.Time { return time.UnixMilli(1760518800000) },
	})
	return svc, reports
}

func waitState(t *testing.T, svc *Service, id string, want State) Session {
	t.Helper()
	var snap Session
	require.Eventually(t, func() bool {
		s, err := svc.Get(id)
		if err != nil {
			return false
		}
		snap = s
		return s.State == want
	}, 2*time.Second, 5*time.Millisecond)
	return snap
}

func TestServiceFullConversation(t *testing.T) {
	rec := &countingRecorder{}
	svc, reports := newTestService(t, classifier.Func(func(context.Context, string) (classifier.Result, error) {
		return ransomware, nil
	}), rec)

	id, snap := svc.Open()
	assert.Equal(t, AwaitingDescription, snap.State)

	snap, err := svc.Submit(id, "My files are encrypted!")
	require.NoError(t, err)
	assert.Equal(t, Classifying, snap.State)

	waitState(t, svc, id, AwaitingStepConfirmation)

	for _, answer := range []bool{true, false, true, true} {
		_, err = svc.Confirm(id, answer)
		require.NoError(t, err)
	}
	snap, err = svc.Get(id)
	require.NoError(t, err)
	assert.True(t, snap.Finished())

	name, err := svc.Export(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "incident_report_1760518800000.txt", name)
	stored, err := reports.Get(context.Background(), name)
	require.NoError(t, err)
	assert.Contains(t, string(stored), "Incident Type: Ransomware")

	assert.Equal(t, 1, rec.outcome(OutcomeSuccess))
	assert.Equal(t, 4, rec.steps)
	assert.Equal(t, 1, rec.exported)
}

func TestServiceClassificationFailure(t *testing.T) {
	rec := &countingRecorder{}
	svc, _ := newTestService(t, classifier.Func(func(context.Context, string) (classifier.Result, error) {
		return classifier.Result{}, classifier.ErrClassificationFailed
	}), rec)

	id, _ := svc.Open()
	_, err := svc.Submit(id, "network error please")
	require.NoError(t, err)

	snap := waitState(t, svc, id, AwaitingDescription)
	assert.Equal(t, TextEntry{Origin: OriginAssistant, Text: FailureText}, snap.Transcript[len(snap.Transcript)-1])
	assert.Empty(t, snap.AuditLog)
	assert.Equal(t, 1, rec.outcome(OutcomeFailure))
}

type cannedLLM struct{ raw string }

func (c cannedLLM) Name() string { return "canned" }
func (c cannedLLM) Close() error { return nil }
func (c cannedLLM) GenerateJSON(context.Context, string, any, ...llm.Media) (json.RawMessage, error) {
	return json.RawMessage(c.raw), nil
}

func TestServiceEmptyCategoryRunsUnknownPlaybook(t *testing.T) {
	cls := classifier.New(cannedLLM{raw: `{"incidentType":"","severity":"Low","summary":"unclear"}`}, classifier.Options{})
	svc, _ := newTestService(t, cls, nil)

	id, _ := svc.Open()
	_, err := svc.Submit(id, "something odd happened")
	require.NoError(t, err)

	snap := waitState(t, svc, id, AwaitingStepConfirmation)
	require.NotNil(t, snap.Playbook)
	assert.Equal(t, playbook.Unknown, snap.Playbook.Category)
	assert.Empty(t, snap.Category)
	assert.Equal(t, 0, snap.StepIndex)
	assert.Equal(t, "User Report: something odd happened", snap.AuditLog[0])
}

func TestServiceRejectsSecondSubmitWhileClassifying(t *testing.T) {
	g := newGatedClassifier()
	svc, _ := newTestService(t, g, nil)
	id, _ := svc.Open()

	_, err := svc.Submit(id, "first")
	require.NoError(t, err)
	call := <-g.calls
	assert.Equal(t, "first", call.description)

	_, err = svc.Submit(id, "second")
	assert.ErrorIs(t, err, ErrClassificationInFlight)

	call.reply <- classifyReply{res: ransomware}
	waitState(t, svc, id, AwaitingStepConfirmation)
}

func TestServiceDiscardsResultAfterReset(t *testing.T) {
	g := newGatedClassifier()
	rec := &countingRecorder{}
	svc, _ := newTestService(t, g, rec)
	id, _ := svc.Open()

	_, err := svc.Submit(id, "first")
	require.NoError(t, err)
	call := <-g.calls

	snap, err := svc.Reset(id)
	require.NoError(t, err)
	assert.Equal(t, NewSession(), snap)
	assert.ErrorIs(t, call.ctx.Err(), context.Canceled)

	call.reply <- classifyReply{res: ransomware}
	require.Eventually(t, func() bool { return rec.outcome(OutcomeStale) == 1 }, 2*time.Second, 5*time.Millisecond)

	snap, err = svc.Get(id)
	require.NoError(t, err)
	assert.Equal(t, NewSession(), snap)
}

func TestServiceDiscardsResultAfterResubmit(t *testing.T) {
	g := newGatedClassifier()
	rec := &countingRecorder{}
	svc, _ := newTestService(t, g, rec)
	id, _ := svc.Open()

	_, err := svc.Submit(id, "first")
	require.NoError(t, err)
	first := <-g.calls
	_, err = svc.Reset(id)
	require.NoError(t, err)
	_, err = svc.Submit(id, "second")
	require.NoError(t, err)
	second := <-g.calls

	// The second answer lands first; the late first answer must not win.
	second.reply <- classifyReply{res: ransomware}
	waitState(t, svc, id, AwaitingStepConfirmation)
	first.reply <- classifyReply{res: classifier.Result{Category: "Phishing", Severity: "Low", Summary: "old"}}
	require.Eventually(t, func() bool { return rec.outcome(OutcomeStale) == 1 }, 2*time.Second, 5*time.Millisecond)

	snap := waitState(t, svc, id, AwaitingStepConfirmation)
	assert.Equal(t, "Ransomware", snap.Category)
	assert.Equal(t, "User Report: second", snap.AuditLog[0])
}

func TestServiceDiscardsResultAfterClose(t *testing.T) {
	g := newGatedClassifier()
	rec := &countingRecorder{}
	svc, _ := newTestService(t, g, rec)
	id, _ := svc.Open()

	_, err := svc.Submit(id, "first")
	require.NoError(t, err)
	call := <-g.calls
	require.NoError(t, svc.Close(id))
	assert.ErrorIs(t, call.ctx.Err(), context.Canceled)

	call.reply <- classifyReply{res: ransomware}
	require.Eventually(t, func() bool { return rec.outcome(OutcomeStale) == 1 }, 2*time.Second, 5*time.Millisecond)

	_, err = svc.Get(id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, svc.Close(id), ErrSessionNotFound)
	assert.Zero(t, svc.Len())
}

func TestServiceEvictsOldestSession(t *testing.T) {
	svc := New(Options{
		Classifier:  classifier.Func(func(context.Context, string) (classifier.Result, error) { return ransomware, nil }),
		Catalog:     testCatalog(t),
		MaxSessions: 1,
	})
	first, _ := svc.Open()
	second, _ := svc.Open()

	_, err := svc.Get(first)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.Get(second)
	assert.NoError(t, err)
}

func TestServiceUnknownSession(t *testing.T) {
	svc, _ := newTestService(t, classifier.Func(func(context.Context, string) (classifier.Result, error) {
		return ransomware, nil
	}), nil)
	_, err := svc.Submit("nope", "text")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.Confirm("nope", true)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, _, err = svc.Report("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.Subscribe(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestServiceGuardsPassThrough(t *testing.T) {
	svc, _ := newTestService(t, classifier.Func(func(context.Context, string) (classifier.Result, error) {
		return ransomware, nil
	}), nil)
	id, _ := svc.Open()

	_, err := svc.Submit(id, "   ")
	assert.ErrorIs(t, err, ErrEmptyInput)
	_, err = svc.Confirm(id, true)
	assert.ErrorIs(t, err, ErrNoActivePlaybook)
	_, err = svc.Export(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFinished)
}

func TestServiceSubscribeStreamsSnapshots(t *testing.T) {
	svc, _ := newTestService(t, classifier.Func(func(context.Context, string) (classifier.Result, error) {
		return ransomware, nil
	}), nil)
	id, _ := svc.Open()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates, err := svc.Subscribe(ctx, id)
	require.NoError(t, err)

	first := <-updates
	assert.Equal(t, AwaitingDescription, first.State)

	_, err = svc.Submit(id, "My files are encrypted!")
	require.NoError(t, err)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-updates:
			if snap.State == AwaitingStepConfirmation {
				assert.Len(t, snap.AuditLog, 2)
				return
			}
		case <-deadline:
			t.Fatal("no classified snapshot received")
		}
	}
}

func TestServiceSubscribeEndsOnClose(t *testing.T) {
	svc, _ := newTestService(t, classifier.Func(func(context.Context, string) (classifier.Result, error) {
		return ransomware, nil
	}), nil)
	id, _ := svc.Open()
	updates, err := svc.Subscribe(context.Background(), id)
	require.NoError(t, err)
	<-updates

	require.NoError(t, svc.Close(id))
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-updates:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("subscription not closed")
		}
	}
}

func TestServiceClassifyTimeout(t *testing.T) {
	svc := New(Options{
		Classifier: classifier.Func(func(ctx context.Context, _ string) (classifier.Result, error) {
			<-ctx.Done()
			return classifier.Result{}, errors.Join(classifier.ErrClassificationFailed, ctx.Err())
		}),
		Catalog:         testCatalog(t),
		ClassifyTimeout: 20 * time.Millisecond,
	})
	id, _ := svc.Open()
	_, err := svc.Submit(id, "slow")
	require.NoError(t, err)
	snap := waitState(t, svc, id, AwaitingDescription)
	assert.Equal(t, TextEntry{Origin: OriginAssistant, Text: FailureText}, snap.Transcript[len(snap.Transcript)-1])
}
