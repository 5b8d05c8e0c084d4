package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/c360studio/semflow/session"
)

func newStatusCommand() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "status <module>",
		Short: "Show the last checkpoint for a module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(logLevel)
			cfg, err := loadConfig(configPath, logger)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			if cfg.NATS.URL == "" {
				return errors.New("status requires a NATS checkpoint store (set nats.url)")
			}

			store, closeStore, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			module := args[0]
			cp, err := store.Load(cmd.Context(), module)
			if err != nil {
				if errors.Is(err, session.ErrNotFound) {
					fmt.Fprintf(cmd.OutOrStdout(), "No checkpoint for module %s\n", module)
					return nil
				}
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Module:  %s\n", cp.Module)
			fmt.Fprintf(out, "Phase:   %s\n", cp.Phase)
			fmt.Fprintf(out, "Step:    %s\n", cp.Step)
			if cp.TaskID != "" {
				fmt.Fprintf(out, "Task:    %s\n", cp.TaskID)
			}
			if cp.CommitRef != "" {
				fmt.Fprintf(out, "Commit:  %s\n", cp.CommitRef)
			}
			fmt.Fprintf(out, "Event:   %s\n", cp.Event)
			fmt.Fprintf(out, "At:      %s\n", cp.At.Format("2006-01-02 15:04:05 MST"))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	return cmd
}
