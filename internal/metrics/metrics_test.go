package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"cyberguard/internal/llm"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounters(t *testing.T) {
	m := New()
	m.Classification("success")
	m.Classification("success")
	m.Classification("stale")
	m.StepOutcome(true)
	m.StepOutcome(false)
	m.ReportExported()
	m.DetectorAnalysis("High")
	m.BadgeAwarded("Rookie Detective")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Classifications.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Classifications.WithLabelValues("stale")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StepOutcomes.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReportsExported))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DetectorAnalyses.WithLabelValues("High")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BadgesAwarded.WithLabelValues("Rookie Detective")))
}

type failingLLM struct{}

func (failingLLM) Name() string { return "failing" }
func (failingLLM) Close() error { return nil }
func (failingLLM) GenerateJSON(context.Context, string, any, ...llm.Media) (json.RawMessage, error) {
	return nil, errors.New("down")
}

func TestLLMMiddlewareCountsByPhase(t *testing.T) {
	m := New()
	ok := llm.Wrap(llm.NewFakeClient(), m.LLMMiddleware())
	ctx := llm.WithPhase(context.Background(), llm.PhaseClassify)
	_, err := ok.GenerateJSON(ctx, "p", map[string]string{"description": "encrypted"})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.LLMRequests.WithLabelValues(llm.PhaseClassify, "ok")))

	bad := llm.Wrap(failingLLM{}, m.LLMMiddleware())
	_, err = bad.GenerateJSON(llm.WithPhase(context.Background(), llm.PhaseNews), "p", nil)
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LLMRequests.WithLabelValues(llm.PhaseNews, "error")))
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.ReportExported()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cyberguard_reports_exported_total 1")
}
