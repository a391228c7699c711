package main

import (
	"context"
	"os"

	"cyberguard/internal/app"
	"cyberguard/internal/config"
	"cyberguard/internal/logging"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	offline bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "cyberguard",
		Short:         "Guided incident response, scam checks and security learning",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().BoolVar(&opts.offline, "offline", false, "use the built-in offline model instead of Gemini")

	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newRespondCmd(opts))
	rootCmd.AddCommand(newAnalyzeCmd(opts))
	rootCmd.AddCommand(newNewsCmd(opts))
	rootCmd.AddCommand(newPlaybooksCmd())
	rootCmd.AddCommand(newReportsCmd(opts))

	return rootCmd
}

func loadConfig(opts *rootOptions) (*config.Config, error) {
	if opts.offline {
		if err := os.Setenv("LLM_FAKE", "true"); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Configure(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	return cfg, nil
}

func openApp(ctx context.Context, opts *rootOptions) (*app.App, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg)
}
