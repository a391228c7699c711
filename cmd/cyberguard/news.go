package main

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

func newNewsCmd(opts *rootOptions) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "news",
		Short: "Show recent cybersecurity news",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			articles, err := a.News.Fetch(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				data, err := json.MarshalIndent(articles, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal articles to JSON: %w", err)
				}
				fmt.Fprintln(out, string(data))
				return nil
			}
			if len(articles) == 0 {
				fmt.Fprintln(out, "No news articles found.")
				return nil
			}
			title := lipgloss.NewStyle().Bold(true)
			muted := lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
			for _, art := range articles {
				fmt.Fprintln(out, title.Render(art.Title))
				fmt.Fprintln(out, muted.Render(fmt.Sprintf("%s · %s", art.Source, art.PublishedDate)))
				fmt.Fprintln(out, art.Summary)
				if art.ArticleURL != "" {
					fmt.Fprintln(out, muted.Render(art.ArticleURL))
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print articles as JSON")
	return cmd
}
