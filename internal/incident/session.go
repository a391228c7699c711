// Package incident implements the incident response conversation: a pure
// state machine over immutable Session snapshots, and a Service that owns
// live sessions and runs classification in the background.
package incident

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cyberguard/internal/classifier"
	"cyberguard/internal/playbook"
	"cyberguard/internal/report"
)

var (
	ErrEmptyInput             = errors.New("incident: empty input")
	ErrClassificationInFlight = errors.New("incident: classification already in progress")
	ErrAlreadyClassified      = errors.New("incident: incident already classified")
	ErrSessionFinished        = errors.New("incident: session finished")
	ErrNoActivePlaybook       = errors.New("incident: no active playbook")
	ErrNotClassifying         = errors.New("incident: no classification pending")
	ErrNotFinished            = errors.New("incident: playbook not finished")
)

const (
	GreetingText = "Welcome to the Incident Response AI. Please describe the security issue you're facing."
	FailureText  = "Sorry, I couldn't analyze the incident. Please try rephrasing your description."
	HelpText     = "I understand. It's crucial not to proceed if you're unsure. Please consult your IT security team for assistance with this step. When you have completed it, press 'Yes, Completed' to continue."
	FinishedText = "You've completed all the steps in the playbook. The incident response is finished. You can now export a report."
)

type State int

const (
	AwaitingDescription State = iota
	Classifying
	AwaitingStepConfirmation
	BlockedAwaitingHelp
	Finished
)

func (s State) String() string {
	switch s {
	case AwaitingDescription:
		return "awaiting_description"
	case Classifying:
		return "classifying"
	case AwaitingStepConfirmation:
		return "awaiting_step_confirmation"
	case BlockedAwaitingHelp:
		return "blocked_awaiting_help"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Resolver maps a category to a playbook and never fails. *playbook.Catalog
// implements it.
type Resolver interface {
	Resolve(category string) playbook.Playbook
}

// Session is an immutable snapshot. Transitions return a new Session and
// never modify the receiver's slices.
type Session struct {
	Transcript []Entry
	// Category is the classifier's raw answer, possibly empty.
	Category string
	Severity string
	Summary  string
	// Playbook is non-nil once classification succeeded.
	Playbook  *playbook.Playbook
	StepIndex int
	AuditLog  []string
	State     State

	// staged holds the "User Report" line until classification succeeds.
	staged string
}

func NewSession() Session {
	return Session{
		Transcript: []Entry{assistantText(GreetingText)},
		State:      AwaitingDescription,
	}
}

func (s Session) Finished() bool   { return s.State == Finished }
func (s Session) Classified() bool { return s.Playbook != nil }

// CurrentStep returns the step awaiting confirmation.
func (s Session) CurrentStep() (playbook.Step, bool) {
	if s.Playbook == nil || s.StepIndex < 0 || s.StepIndex >= s.Playbook.Len() {
		return playbook.Step{}, false
	}
	return s.Playbook.Step(s.StepIndex), true
}

func (s Session) withEntries(entries ...Entry) Session {
	t := make([]Entry, 0, len(s.Transcript)+len(entries))
	s.Transcript = append(append(t, s.Transcript...), entries...)
	return s
}

func (s Session) withLog(lines ...string) Session {
	l := make([]string, 0, len(s.AuditLog)+len(lines))
	s.AuditLog = append(append(l, s.AuditLog...), lines...)
	return s
}

// Submit records a user's incident description and moves to Classifying.
func (s Session) Submit(text string) (Session, error) {
	switch {
	case strings.TrimSpace(text) == "":
		return s, ErrEmptyInput
	case s.State == Finished:
		return s, ErrSessionFinished
	case s.State == Classifying:
		return s, ErrClassificationInFlight
	case s.Playbook != nil:
		return s, ErrAlreadyClassified
	}
	next := s.withEntries(userText(text))
	next.staged = "User Report: " + text
	next.State = Classifying
	return next, nil
}

// ApplyClassification resolves the playbook for r.Category and prompts the
// first step. Unrecognized categories get the Unknown playbook.
func (s Session) ApplyClassification(r classifier.Result, catalog Resolver) (Session, error) {
	if s.State != Classifying {
		return s, ErrNotClassifying
	}
	pb := catalog.Resolve(r.Category)
	if pb.Len() == 0 {
		return s, fmt.Errorf("%w: empty playbook for %q", ErrNoActivePlaybook, r.Category)
	}
	next := s
	next.Category = r.Category
	next.Severity = r.Severity
	next.Summary = r.Summary
	next.Playbook = &pb
	next.StepIndex = 0
	next.State = AwaitingStepConfirmation
	next = next.withLog(
		s.staged,
		fmt.Sprintf("AI Analysis: Classified as %s (%s). Summary: %s", r.Category, r.Severity, r.Summary),
	)
	next.staged = ""
	next = next.withEntries(
		assistantText(fmt.Sprintf("Analysis complete. It looks like a potential %s incident with %s severity. Summary: \"%s\".\n\nLet's begin the response playbook. Please follow each step carefully.", r.Category, r.Severity, r.Summary)),
		stepPrompt(pb, 0),
	)
	return next, nil
}

// FailClassification returns to AwaitingDescription. The audit log is left
// untouched.
func (s Session) FailClassification() (Session, error) {
	if s.State != Classifying {
		return s, ErrNotClassifying
	}
	next := s.withEntries(assistantText(FailureText))
	next.staged = ""
	next.State = AwaitingDescription
	return next, nil
}

// Confirm records the outcome of the current step. Declines are logged
// every time and never advance the cursor.
func (s Session) Confirm(completed bool) (Session, error) {
	if s.State == Finished {
		return s, ErrSessionFinished
	}
	step, ok := s.CurrentStep()
	if !ok || (s.State != AwaitingStepConfirmation && s.State != BlockedAwaitingHelp) {
		return s, ErrNoActivePlaybook
	}
	n := s.StepIndex + 1

	if !completed {
		next := s.withLog(fmt.Sprintf("Step %d (%s): User requested help/could not complete.", n, step.Title))
		next = next.withEntries(assistantText(HelpText))
		next.State = BlockedAwaitingHelp
		return next, nil
	}

	next := s.withLog(fmt.Sprintf("Step %d (%s): Completed by user.", n, step.Title))
	if n < s.Playbook.Len() {
		next.StepIndex = n
		next.State = AwaitingStepConfirmation
		return next.withEntries(stepPrompt(*s.Playbook, n)), nil
	}
	next.State = Finished
	return next.withEntries(assistantText(FinishedText)), nil
}

// Report renders the audit report. Only finished sessions can be reported.
func (s Session) Report(now time.Time) (name, content string, err error) {
	if s.State != Finished {
		return "", "", ErrNotFinished
	}
	return report.FileName(now), report.Render(s.AuditLog, s.Category, now), nil
}
