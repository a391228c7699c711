package incident

import "cyberguard/internal/playbook"

type Origin string

const (
	OriginUser      Origin = "user"
	OriginAssistant Origin = "assistant"
)

// Entry is one transcript item: either a TextEntry or a StepPromptEntry.
type Entry interface {
	EntryOrigin() Origin
	isEntry()
}

type TextEntry struct {
	Origin Origin
	Text   string
}

// StepPromptEntry asks the user to confirm the step at StepIndex.
type StepPromptEntry struct {
	Origin    Origin
	Step      playbook.Step
	StepIndex int
}

func (e TextEntry) EntryOrigin() Origin       { return e.Origin }
func (e StepPromptEntry) EntryOrigin() Origin { return e.Origin }

func (TextEntry) isEntry()       {}
func (StepPromptEntry) isEntry() {}

func userText(text string) Entry      { return TextEntry{Origin: OriginUser, Text: text} }
func assistantText(text string) Entry { return TextEntry{Origin: OriginAssistant, Text: text} }

func stepPrompt(p playbook.Playbook, i int) Entry {
	return StepPromptEntry{Origin: OriginAssistant, Step: p.Step(i), StepIndex: i}
}
