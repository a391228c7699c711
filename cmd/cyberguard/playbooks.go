package main

import (
	"fmt"
	"os"

	"cyberguard/internal/playbook"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

func newPlaybooksCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "playbooks",
		Short: "List the incident response playbooks",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := playbook.LoadFile(file)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			heading := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
			for _, pb := range catalog.All() {
				fmt.Fprintln(out, heading.Render(pb.Category))
				for i, s := range pb.Steps {
					fmt.Fprintf(out, "  %d. %s\n", i+1, s.Title)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", os.Getenv("PLAYBOOK_FILE"), "YAML catalog to list instead of the built-in one")
	return cmd
}
