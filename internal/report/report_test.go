package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRenderLayout(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	got := Render([]string{"User Report: x", "AI Analysis: y"}, "Ransomware", now)

	want := "INCIDENT RESPONSE REPORT\n" +
		"==============================\n" +
		"\n" +
		"Date: 2026-10-15T09:00:00.000Z\n" +
		"Incident Type: Ransomware\n" +
		"\n" +
		"Logs:\n" +
		"User Report: x\n" +
		"AI Analysis: y\n" +
		"\n" +
		"==============================\n" +
		"End of Report"
	assert.Equal(t, want, got)
}

func TestRenderConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("X", 2*60*60)
	got := Render(nil, "Unknown", time.Date(2026, 1, 2, 3, 4, 5, 6_000_000, loc))
	assert.Contains(t, got, "Date: 2026-01-02T01:04:05.006Z\n")
}

func TestRenderIsDeterministicApartFromDate(t *testing.T) {
	log := []string{"a", "a", "b"}
	first := Render(log, "Phishing", time.Unix(1, 0))
	second := Render(log, "Phishing", time.Unix(2, 0))
	logs := func(s string) string { return s[strings.Index(s, "Logs:"):] }
	assert.Equal(t, logs(first), logs(second))
	assert.Contains(t, first, "Logs:\na\na\nb\n\n")
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "incident_report_1760518800123.txt", FileName(time.UnixMilli(1760518800123)))
}
