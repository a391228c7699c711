package transcript

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Terminal renders views as styled chat text.
type Terminal struct {
	Width int

	user      lipgloss.Style
	assistant lipgloss.Style
	card      lipgloss.Style
	cardTitle lipgloss.Style
	muted     lipgloss.Style
	done      lipgloss.Style
	current   lipgloss.Style
}

func NewTerminal(width int) *Terminal {
	if width <= 0 {
		width = 80
	}
	bubble := width * 3 / 4
	return &Terminal{
		Width:     width,
		user:      lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("92")).Padding(0, 1).Width(bubble).Align(lipgloss.Right),
		assistant: lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Padding(0, 1).Width(bubble),
		card:      lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("99")).Padding(0, 1).Width(bubble),
		cardTitle: lipgloss.NewStyle().Bold(true),
		muted:     lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		done:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		current:   lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true),
	}
}

// RenderItem renders a single transcript item.
func (t *Terminal) RenderItem(it Item) string {
	switch it.Kind {
	case KindStep:
		return t.renderCard(it.Step)
	default:
		if it.Origin == "user" {
			return lipgloss.PlaceHorizontal(t.Width, lipgloss.Right, t.user.Render(it.Text))
		}
		return t.assistant.Render("🤖 " + it.Text)
	}
}

func (t *Terminal) renderCard(c *StepCard) string {
	if c == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(t.cardTitle.Render(fmt.Sprintf("Step %d of %d: %s", c.Number, c.Total, c.Title)))
	if c.Description != "" {
		b.WriteString("\n")
		b.WriteString(c.Description)
	}
	if c.Actionable {
		labels := make([]string, 0, len(c.Actions))
		for _, a := range c.Actions {
			key := "n"
			if a.Completed {
				key = "y"
			}
			labels = append(labels, fmt.Sprintf("[%s] %s", key, a.Label))
		}
		b.WriteString("\n")
		b.WriteString(t.muted.Render(strings.Join(labels, "   ")))
	}
	return t.card.Render(b.String())
}

// RenderPlan renders the response plan sidebar as a checklist.
func (t *Terminal) RenderPlan(v View) string {
	if len(v.Plan) == 0 {
		return t.muted.Render("Waiting for incident details to generate a response plan...")
	}
	var b strings.Builder
	b.WriteString(t.cardTitle.Render(fmt.Sprintf("Response Plan: %s", v.Category)))
	for _, p := range v.Plan {
		b.WriteString("\n")
		switch p.Status {
		case StatusDone:
			b.WriteString(t.done.Render("  ✔ " + p.Title))
		case StatusCurrent:
			b.WriteString(t.current.Render("  ▶ " + p.Title))
		default:
			b.WriteString(t.muted.Render("  ○ " + p.Title))
		}
	}
	return b.String()
}

// Render writes every item of v to w, one block per item.
func (t *Terminal) Render(w io.Writer, v View) error {
	for _, it := range v.Items {
		if _, err := fmt.Fprintln(w, t.RenderItem(it)); err != nil {
			return err
		}
	}
	if v.Analyzing {
		if _, err := fmt.Fprintln(w, t.Note("🤖 analyzing...")); err != nil {
			return err
		}
	}
	return nil
}

// Note renders secondary text such as command hints.
func (t *Terminal) Note(s string) string { return t.muted.Render(s) }

// Stream prints successive views of one session, writing only items it has
// not printed yet. A shorter transcript means the session was reset and
// printing starts over.
type Stream struct {
	t         *Terminal
	w         io.Writer
	printed   int
	analyzing bool
}

func (t *Terminal) Stream(w io.Writer) *Stream {
	return &Stream{t: t, w: w}
}

func (s *Stream) Write(v View) error {
	if len(v.Items) < s.printed {
		s.printed = 0
		if _, err := fmt.Fprintln(s.w, s.t.Note("(conversation restarted)")); err != nil {
			return err
		}
	}
	for _, it := range v.Items[s.printed:] {
		if _, err := fmt.Fprintln(s.w, s.t.RenderItem(it)); err != nil {
			return err
		}
	}
	s.printed = len(v.Items)
	if v.Analyzing && !s.analyzing {
		if _, err := fmt.Fprintln(s.w, s.t.Note("🤖 analyzing...")); err != nil {
			return err
		}
	}
	s.analyzing = v.Analyzing
	return nil
}
