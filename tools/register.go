package tools

import (
	"fmt"
	"log/slog"

	"github.com/c360studio/semflow/agentic"
	"github.com/c360studio/semflow/metric"
	"github.com/c360studio/semflow/tools/command"
	"github.com/c360studio/semflow/tools/file"
	workflowtools "github.com/c360studio/semflow/tools/workflow"
	"github.com/c360studio/semflow/verify"
)

// RegisterAll registers the standard executors: file operations and shell
// commands rooted at repoRoot, and the verification/completion workflow
// tools. metrics may be nil.
func RegisterAll(reg *agentic.Registry, repoRoot string, oracle verify.Oracle, tracker *verify.Tracker, metrics *metric.Metrics, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	if err := reg.Register(file.NewExecutor(repoRoot)); err != nil {
		return fmt.Errorf("register file tools: %w", err)
	}
	if err := reg.Register(command.NewExecutor(repoRoot)); err != nil {
		return fmt.Errorf("register command tools: %w", err)
	}
	if err := reg.Register(workflowtools.NewExecutor(oracle, tracker,
		workflowtools.WithLogger(logger),
		workflowtools.WithMetrics(metrics))); err != nil {
		return fmt.Errorf("register workflow tools: %w", err)
	}

	logger.Debug("tool executors registered", "repo_root", repoRoot)
	return nil
}
