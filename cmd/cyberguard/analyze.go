package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"cyberguard/internal/detector"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var riskStyles = map[detector.RiskLevel]lipgloss.Style{
	detector.RiskLow:     lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
	detector.RiskMedium:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
	detector.RiskHigh:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	detector.RiskUnknown: lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Bold(true),
}

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	var (
		text       string
		imagePath  string
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Check a message or screenshot for scam tactics",
		RunE: func(cmd *cobra.Command, args []string) error {
			var img *detector.Image
			if imagePath != "" {
				data, err := os.ReadFile(imagePath)
				if err != nil {
					return fmt.Errorf("failed to read image: %w", err)
				}
				img = &detector.Image{MIMEType: http.DetectContentType(data), Data: data}
			}

			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Detector.Analyze(cmd.Context(), text, img)
			if err != nil {
				return err
			}
			if jsonOutput {
				data, err := json.MarshalIndent(res, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal report to JSON: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			printAnalysis(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "message text to analyze")
	cmd.Flags().StringVar(&imagePath, "image", "", "path to a screenshot to analyze")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the report as JSON")
	return cmd
}

func printAnalysis(w io.Writer, res detector.Result) {
	r := res.Report
	style, ok := riskStyles[r.RiskLevel]
	if !ok {
		style = riskStyles[detector.RiskUnknown]
	}
	fmt.Fprintf(w, "%s  %d/100\n", style.Render(strings.ToUpper(string(r.RiskLevel))+" RISK"), r.RiskScore)
	fmt.Fprintln(w, r.Summary)
	for _, p := range r.AnalysisPoints {
		fmt.Fprintf(w, "\n• %s\n  %s\n", p.Tactic, p.Explanation)
		if p.Quote != "" {
			fmt.Fprintf(w, "  %q\n", p.Quote)
		}
	}
	if res.Badge != nil {
		fmt.Fprintf(w, "\n🏅 Badge earned: %s. %s\n", res.Badge.Title, res.Badge.Description)
	}
}
