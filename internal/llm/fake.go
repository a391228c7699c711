package llm

import (
	"context"
	"encoding/json"
	"strings"
)

// Phases tag each request so logging, hooks and FakeClient can tell them apart.
const (
	PhaseClassify = "incident.classify"
	PhaseAnalyze  = "detector.analyze"
	PhaseNews     = "news.fetch"
)

// FakeClient returns deterministic, minimal JSON payloads per phase for offline/testing.
type FakeClient struct{}

func NewFakeClient() *FakeClient { return &FakeClient{} }

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) GenerateJSON(ctx context.Context, prompt string, input any, media ...Media) (json.RawMessage, error) {
	text := strings.ToLower(userText(input))

	var obj any
	switch PhaseFrom(ctx) {
	case PhaseClassify:
		obj = fakeClassification(text)
	case PhaseAnalyze:
		obj = fakeAnalysis(text, len(media) > 0)
	case PhaseNews:
		obj = map[string]any{
			"articles": []map[string]any{
				{
					"title":         "Offline mode: no live news",
					"source":        "cyberguard",
					"summary":       "The assistant is running without a Gemini API key, so this article is a placeholder.",
					"imageUrl":      "",
					"articleUrl":    "https://ai.google.dev/gemini-api/docs",
					"publishedDate": "1970-01-01",
				},
			},
		}
	default:
		obj = map[string]any{}
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

func fakeClassification(text string) map[string]any {
	switch {
	case strings.Contains(text, "encrypt") || strings.Contains(text, "ransom"):
		return map[string]any{"incidentType": "Ransomware", "severity": "High", "summary": "Files appear to be encrypted by an attacker."}
	case strings.Contains(text, "phish") || strings.Contains(text, "clicked") || strings.Contains(text, "link"):
		return map[string]any{"incidentType": "Phishing", "severity": "Medium", "summary": "A suspicious link or message may have exposed credentials."}
	case strings.Contains(text, "password") || strings.Contains(text, "hacked") || strings.Contains(text, "account"):
		return map[string]any{"incidentType": "Account Compromise", "severity": "High", "summary": "An online account appears to be controlled by someone else."}
	case strings.Contains(text, "virus") || strings.Contains(text, "malware") || strings.Contains(text, "pop-up"):
		return map[string]any{"incidentType": "Malware", "severity": "Medium", "summary": "The device shows signs of a malware infection."}
	default:
		return map[string]any{"incidentType": "Unknown", "severity": "Low", "summary": "The incident could not be matched to a known category."}
	}
}

func fakeAnalysis(text string, hasImage bool) map[string]any {
	score, level := 15, "Low"
	points := []map[string]any{}
	if strings.Contains(text, "urgent") || strings.Contains(text, "immediately") {
		score, level = 70, "High"
		points = append(points, map[string]any{"tactic": "Urgency", "explanation": "Pressures the reader to act before thinking.", "quote": "urgent"})
	}
	if strings.Contains(text, "gift card") || strings.Contains(text, "wire") || strings.Contains(text, "bitcoin") {
		score, level = 90, "High"
		points = append(points, map[string]any{"tactic": "Unusual payment", "explanation": "Asks for payment methods that are hard to reverse.", "quote": "gift card"})
	}
	if hasImage && score < 40 {
		score, level = 40, "Medium"
	}
	return map[string]any{
		"riskScore":      score,
		"riskLevel":      level,
		"summary":        "Offline heuristic analysis.",
		"analysisPoints": points,
	}
}

// userText picks the free text the user typed out of a prompt input, so
// category lists and other prompt scaffolding do not skew the heuristics.
func userText(input any) string {
	b, _ := json.Marshal(input)
	var fields map[string]any
	if err := json.Unmarshal(b, &fields); err == nil {
		for _, k := range []string{"description", "text"} {
			if s, ok := fields[k].(string); ok {
				return s
			}
		}
	}
	return string(b)
}
