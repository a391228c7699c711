package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newReportsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reports",
		Short: "List exported incident reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			names, err := a.Reports.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list reports: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(names) == 0 {
				fmt.Fprintln(out, "No reports exported yet.")
				return nil
			}
			for _, name := range names {
				url, err := a.Reports.URL(cmd.Context(), name)
				if err != nil {
					url = name
				}
				fmt.Fprintln(out, url)
			}
			return nil
		},
	}
}
