package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/c360studio/semflow/config"
	"github.com/c360studio/semflow/workflow"
)

func newValidateConfigCommand() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "validate-config [path]",
		Short: "Validate a semflow configuration file",
		Long: `Validate checks a configuration file for errors: unknown phases,
missing models, invalid limits, and a broken step graph if one is
referenced. Without a path, the layered user and project configuration
is validated.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(logLevel)

			var cfg *config.Config
			var err error
			if len(args) == 1 {
				cfg, err = config.LoadFromFile(args[0])
				if err != nil {
					return err
				}
				if err := cfg.Validate(); err != nil {
					return fmt.Errorf("invalid configuration: %w", err)
				}
			} else {
				cfg, err = config.NewLoader(logger).Load()
				if err != nil {
					return err
				}
			}

			if cfg.Workflow.GraphFile != "" {
				if _, err := workflow.LoadGraphFile(cfg.Workflow.GraphFile); err != nil {
					return fmt.Errorf("invalid step graph: %w", err)
				}
			}

			// Referenced models without endpoints walk their fallback chain at
			// runtime; surface them here instead.
			for phase, pm := range cfg.Models.Phases {
				for _, model := range append([]string{pm.Model}, pm.Fallbacks...) {
					if _, ok := cfg.Endpoints[model]; !ok {
						fmt.Fprintf(cmd.OutOrStdout(), "warning: phase %s references model %q with no endpoint\n", phase, model)
					}
				}
			}
			if _, ok := cfg.Endpoints[cfg.Models.GlobalFallback]; !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "warning: global fallback %q has no endpoint\n", cfg.Models.GlobalFallback)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Configuration valid")
			return nil
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	return cmd
}
