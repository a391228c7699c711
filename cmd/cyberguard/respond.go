package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cyberguard/internal/incident"
	"cyberguard/internal/transcript"

	"github.com/spf13/cobra"
)

var errSessionGone = errors.New("session expired")

func newRespondCmd(opts *rootOptions) *cobra.Command {
	var width int
	cmd := &cobra.Command{
		Use:   "respond",
		Short: "Walk through an incident response playbook in the terminal",
		Long: "Describe a security incident, then confirm each response step with y or n.\n" +
			"Type 'plan' to see progress, 'export' to save the report once finished,\n" +
			"'reset' to start over and 'quit' to leave.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			chat := &chat{
				svc:  a.Incidents,
				term: transcript.NewTerminal(width),
				out:  cmd.OutOrStdout(),
				in:   bufio.NewScanner(cmd.InOrStdin()),
				export: func(ctx context.Context, id string) (string, error) {
					name, err := a.Incidents.Export(ctx, id)
					if err != nil {
						return "", err
					}
					if url, err := a.Reports.URL(ctx, name); err == nil {
						return url, nil
					}
					return name, nil
				},
			}
			return chat.run(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&width, "width", 100, "terminal width used for layout")
	return cmd
}

type chat struct {
	svc    *incident.Service
	term   *transcript.Terminal
	out    io.Writer
	in     *bufio.Scanner
	export func(ctx context.Context, id string) (string, error)

	id     string
	cur    incident.Session
	snaps  <-chan incident.Session
	stream *transcript.Stream
}

func (c *chat) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.id, _ = c.svc.Open()
	defer c.svc.Close(c.id)

	snaps, err := c.svc.Subscribe(ctx, c.id)
	if err != nil {
		return err
	}
	c.snaps = snaps
	c.stream = c.term.Stream(c.out)
	if err := c.await(ctx, func(incident.Session) bool { return true }); err != nil {
		return err
	}

	for {
		fmt.Fprintln(c.out, c.term.Note(hint(c.cur)))
		fmt.Fprint(c.out, "> ")
		if !c.in.Scan() {
			return c.in.Err()
		}
		line := strings.TrimSpace(c.in.Text())
		if line == "" {
			continue
		}
		done, err := c.handle(ctx, line)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// handle runs one command line. It reports done when the user quits.
func (c *chat) handle(ctx context.Context, line string) (bool, error) {
	switch strings.ToLower(line) {
	case "quit", "exit":
		return true, nil
	case "plan":
		fmt.Fprintln(c.out, c.term.RenderPlan(transcript.Project(c.id, c.cur)))
		return false, nil
	case "reset":
		next, err := c.svc.Reset(c.id)
		if err != nil {
			return false, err
		}
		return false, c.await(ctx, reached(next))
	case "export":
		where, err := c.export(ctx, c.id)
		if err != nil {
			c.notice(err)
			return false, nil
		}
		fmt.Fprintln(c.out, c.term.Note("Report saved: "+where))
		return false, nil
	}

	switch c.cur.State {
	case incident.AwaitingDescription:
		next, err := c.svc.Submit(c.id, line)
		if err != nil {
			c.notice(err)
			return false, nil
		}
		return false, c.await(ctx, func(s incident.Session) bool {
			return s.State != incident.Classifying && len(s.Transcript) > len(next.Transcript)
		})
	case incident.AwaitingStepConfirmation, incident.BlockedAwaitingHelp:
		completed, ok := parseAnswer(line)
		if !ok {
			fmt.Fprintln(c.out, c.term.Note("Answer y (completed) or n (need help)."))
			return false, nil
		}
		next, err := c.svc.Confirm(c.id, completed)
		if err != nil {
			c.notice(err)
			return false, nil
		}
		return false, c.await(ctx, reached(next))
	default:
		c.notice(incident.ErrSessionFinished)
		return false, nil
	}
}

// await prints snapshots as they arrive until done accepts one.
func (c *chat) await(ctx context.Context, done func(incident.Session) bool) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-c.snaps:
			if !ok {
				return errSessionGone
			}
			c.cur = s
			if err := c.stream.Write(transcript.Project(c.id, s)); err != nil {
				return err
			}
			if done(s) {
				return nil
			}
		}
	}
}

func (c *chat) notice(err error) {
	fmt.Fprintln(c.out, c.term.Note("! "+err.Error()))
}

func reached(next incident.Session) func(incident.Session) bool {
	return func(s incident.Session) bool {
		return s.State == next.State && len(s.Transcript) == len(next.Transcript)
	}
}

func parseAnswer(s string) (completed, ok bool) {
	switch strings.ToLower(s) {
	case "y", "yes", "done", "completed":
		return true, true
	case "n", "no", "help":
		return false, true
	}
	return false, false
}

func hint(s incident.Session) string {
	switch s.State {
	case incident.AwaitingDescription:
		return "Describe the incident. ('quit' to leave)"
	case incident.AwaitingStepConfirmation, incident.BlockedAwaitingHelp:
		return "[y] completed  [n] need help  (plan, reset, quit)"
	case incident.Finished:
		return "'export' saves the report. (plan, reset, quit)"
	default:
		return ""
	}
}
