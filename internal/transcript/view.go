// Package transcript projects incident sessions into what the user sees:
// a JSON view for the browser and styled text for the terminal.
package transcript

import (
	"cyberguard/internal/incident"
)

const (
	KindText = "text"
	KindStep = "step"

	StatusDone    = "done"
	StatusCurrent = "current"
	StatusPending = "pending"

	CompleteLabel = "Yes, Completed"
	HelpLabel     = "No, I need help"
)

// Item is one rendered transcript entry, in transcript order.
type Item struct {
	Kind   string    `json:"kind"`
	Origin string    `json:"origin"`
	Text   string    `json:"text,omitempty"`
	Step   *StepCard `json:"step,omitempty"`
}

// StepCard is a confirmation card. Only the card for the step awaiting an
// answer is Actionable; older cards stay in the thread as history.
type StepCard struct {
	Index       int      `json:"index"`
	Number      int      `json:"number"`
	Total       int      `json:"total"`
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	Actionable  bool     `json:"actionable"`
	Actions     []Action `json:"actions"`
}

type Action struct {
	Label     string `json:"label"`
	Completed bool   `json:"completed"`
}

// PlanStep is one row of the response plan sidebar.
type PlanStep struct {
	Title  string `json:"title"`
	Icon   string `json:"icon"`
	Status string `json:"status"`
}

type View struct {
	ID        string     `json:"id,omitempty"`
	State     string     `json:"state"`
	Analyzing bool       `json:"analyzing"`
	CanSubmit bool       `json:"canSubmit"`
	Finished  bool       `json:"finished"`
	Category  string     `json:"category,omitempty"`
	Severity  string     `json:"severity,omitempty"`
	Summary   string     `json:"summary,omitempty"`
	StepIndex int        `json:"stepIndex"`
	Items     []Item     `json:"items"`
	Plan      []PlanStep `json:"plan,omitempty"`
	AuditLog  []string   `json:"auditLog"`
}

var confirmActions = []Action{
	{Label: CompleteLabel, Completed: true},
	{Label: HelpLabel, Completed: false},
}

// Project is a pure function of the snapshot. Items mirror the transcript
// one to one, repeats included.
func Project(id string, s incident.Session) View {
	v := View{
		ID:        id,
		State:     s.State.String(),
		Analyzing: s.State == incident.Classifying,
		CanSubmit: s.State == incident.AwaitingDescription,
		Finished:  s.Finished(),
		Category:  s.Category,
		Severity:  s.Severity,
		Summary:   s.Summary,
		StepIndex: s.StepIndex,
		Items:     make([]Item, 0, len(s.Transcript)),
		AuditLog:  append([]string{}, s.AuditLog...),
	}

	total := 0
	if s.Playbook != nil {
		total = s.Playbook.Len()
	}
	lastPrompt := -1
	for i, e := range s.Transcript {
		if _, ok := e.(incident.StepPromptEntry); ok {
			lastPrompt = i
		}
	}
	awaiting := s.State == incident.AwaitingStepConfirmation || s.State == incident.BlockedAwaitingHelp

	for i, e := range s.Transcript {
		switch e := e.(type) {
		case incident.TextEntry:
			v.Items = append(v.Items, Item{Kind: KindText, Origin: string(e.Origin), Text: e.Text})
		case incident.StepPromptEntry:
			card := &StepCard{
				Index:       e.StepIndex,
				Number:      e.StepIndex + 1,
				Total:       total,
				ID:          e.Step.ID,
				Title:       e.Step.Title,
				Description: e.Step.Description,
				Icon:        e.Step.Icon,
				Actionable:  awaiting && i == lastPrompt && e.StepIndex == s.StepIndex,
				Actions:     append([]Action(nil), confirmActions...),
			}
			v.Items = append(v.Items, Item{Kind: KindStep, Origin: string(e.Origin), Step: card})
		}
	}

	if s.Playbook != nil {
		v.Plan = make([]PlanStep, 0, total)
		for i, step := range s.Playbook.Steps {
			status := StatusPending
			switch {
			case s.Finished() || i < s.StepIndex:
				status = StatusDone
			case i == s.StepIndex:
				status = StatusCurrent
			}
			v.Plan = append(v.Plan, PlanStep{Title: step.Title, Icon: step.Icon, Status: status})
		}
	}
	return v
}
