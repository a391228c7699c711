package main

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"cyberguard/internal/classifier"
	"cyberguard/internal/incident"
	"cyberguard/internal/playbook"
	reportrepo "cyberguard/internal/repository/report"
	"cyberguard/internal/transcript"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChat(t *testing.T, input string, cls classifier.Func) (*chat, *bytes.Buffer, *reportrepo.MemoryStore) {
	t.Helper()
	reports := reportrepo.NewMemoryStore()
	svc := incident.New(incident.Options{
		Classifier: cls,
		Catalog:    playbook.Default(),
		Reports:    reports,
		TTL:        time.Minute,
		Now:        func() time.Time { return time.UnixMilli(1760518800000) },
	})
	var out bytes.Buffer
	return &chat{
		svc:    svc,
		term:   transcript.NewTerminal(120),
		out:    &out,
		in:     bufio.NewScanner(strings.NewReader(input)),
		export: svc.Export,
	}, &out, reports
}

func phishing(context.Context, string) (classifier.Result, error) {
	return classifier.Result{Category: "Phishing", Severity: "Medium", Summary: "a link"}, nil
}

func TestChatRunsPlaybookToExport(t *testing.T) {
	input := strings.Join([]string{
		"I clicked a link in an email",
		"maybe",
		"n",
		"y", "y", "y", "y",
		"plan",
		"export",
		"quit",
	}, "\n") + "\n"
	c, out, reports := newTestChat(t, input, phishing)

	require.NoError(t, c.run(context.Background()))
	text := out.String()
	assert.Contains(t, text, "Step 1 of 4")
	assert.Contains(t, text, "Answer y (completed) or n (need help).")
	assert.Contains(t, text, "Response Plan: Phishing")
	assert.Contains(t, text, "Report saved: incident_report_1760518800000.txt")

	content, err := reports.Get(context.Background(), "incident_report_1760518800000.txt")
	require.NoError(t, err)
	assert.Contains(t, string(content), "User requested help/could not complete.")
}

func TestChatRecoversFromClassificationFailure(t *testing.T) {
	calls := 0
	cls := func(ctx context.Context, s string) (classifier.Result, error) {
		calls++
		if calls == 1 {
			return classifier.Result{}, classifier.ErrClassificationFailed
		}
		return phishing(ctx, s)
	}
	c, out, _ := newTestChat(t, "first try\nsecond try\nquit\n", cls)

	require.NoError(t, c.run(context.Background()))
	assert.Equal(t, 2, calls)
	assert.Equal(t, incident.AwaitingStepConfirmation, c.cur.State)
	assert.Contains(t, out.String(), "Step 1 of 4")
}

func TestChatExportBeforeFinishIsANotice(t *testing.T) {
	c, out, _ := newTestChat(t, "export\nreset\nquit\n", phishing)
	require.NoError(t, c.run(context.Background()))
	assert.Contains(t, out.String(), "! incident: playbook not finished")
}

func TestParseAnswer(t *testing.T) {
	for in, want := range map[string]bool{"y": true, "YES": true, "n": false, "help": false} {
		got, ok := parseAnswer(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := parseAnswer("later")
	assert.False(t, ok)
}

func TestPlaybooksCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"playbooks", "--file", ""})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Ransomware")
	assert.Contains(t, out.String(), "1. Isolate the Device")
}
