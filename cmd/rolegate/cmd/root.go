// Package cmd implements the rolegate CLI commands.
package cmd

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rolegate/rolegate/internal/pkg/config"
	"github.com/rolegate/rolegate/pkg/logger"
)

var (
	// Version is set at build time
	Version = "0.1.0"

	// Loaded once in PersistentPreRunE for every subcommand.
	cfg *config.Config
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "rolegate",
	Short: "Exam portal approvals and license management service",
	Long: `rolegate serves two HTTP APIs from one binary:

  /api/...     the exam portal: role-hierarchy registration, approval and login
  /licenses    license management for ADMIN, MANAGER and USER accounts

Configuration is read from the environment (see internal/pkg/config).`,
	Version:      Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		var err error
		cfg, err = config.Load(cmd.Context())
		if err != nil {
			return err
		}
		log = logger.Init(logger.Options{
			Level:     cfg.LogLevel,
			Pretty:    cfg.IsDevelopment(),
			Component: "rolegate",
			Caller:    !cfg.IsDevelopment(),
		})
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
