package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/c360studio/semflow/agentic"
	"github.com/c360studio/semflow/config"
	"github.com/c360studio/semflow/guardrail"
	"github.com/c360studio/semflow/llm"
	"github.com/c360studio/semflow/loop"
	"github.com/c360studio/semflow/metric"
	"github.com/c360studio/semflow/prompt"
	"github.com/c360studio/semflow/session"
	"github.com/c360studio/semflow/tools"
	"github.com/c360studio/semflow/verify"
	"github.com/c360studio/semflow/workflow"
)

func newRunCommand() *cobra.Command {
	var (
		configPath  string
		logLevel    string
		instruction string
		resume      bool
	)

	cmd := &cobra.Command{
		Use:   "run <module>",
		Short: "Run the development workflow for a module",
		Long: `Run drives a module through the workflow step graph: each step invokes
the configured model with the phase's tools until the model goes idle,
then advances the engine. Progress is checkpointed so an interrupted
run can be resumed with --resume.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(logLevel)
			cfg, err := loadConfig(configPath, logger)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return runWorkflow(cmd.Context(), cfg, logger, args[0], instruction, resume)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&instruction, "instruction", "", "Opening instruction for the model")
	cmd.Flags().BoolVar(&resume, "resume", false, "Resume from the last checkpoint")

	return cmd
}

func runWorkflow(ctx context.Context, cfg *config.Config, logger *slog.Logger, module, instruction string, resume bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	graph := workflow.DefaultGraph()
	if cfg.Workflow.GraphFile != "" {
		var err error
		graph, err = workflow.LoadGraphFile(cfg.Workflow.GraphFile)
		if err != nil {
			return fmt.Errorf("load step graph: %w", err)
		}
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	engine := workflow.NewEngine(graph)
	if resume {
		cp, err := store.Load(ctx, module)
		if err != nil {
			return fmt.Errorf("resume %s: %w", module, err)
		}
		if err := engine.Restore(module, workflow.Step(cp.Step)); err != nil {
			return fmt.Errorf("restore checkpoint: %w", err)
		}
		logger.Info("resuming from checkpoint", "module", module, "step", cp.Step)
	} else {
		if err := engine.Initialize(module); err != nil {
			return fmt.Errorf("initialize workflow: %w", err)
		}
	}

	selector := llm.NewSelector(cfg.SelectorPhases(), cfg.Models.GlobalFallback)
	transportOpts := []llm.TransportOption{llm.WithTransportLogger(logger)}
	if cfg.Models.Timeout > 0 {
		transportOpts = append(transportOpts, llm.WithHTTPClient(&http.Client{Timeout: cfg.Models.Timeout}))
	}
	transport := llm.NewFallbackTransport(
		llm.NewHTTPTransport(cfg.Endpoints, transportOpts...),
		selector,
		logger,
	)

	var oracle verify.Oracle = verify.NewAutoPassOracle(logger)
	if cfg.Models.Oracle != "" {
		oracle = verify.NewLLMOracle(transport, cfg.Models.Oracle, logger)
	}

	metrics := metric.New(prometheus.DefaultRegisterer)
	tracker := verify.NewTracker()
	registry := agentic.NewRegistry()
	if err := tools.RegisterAll(registry, cfg.Repo.Path, oracle, tracker, metrics, logger); err != nil {
		return fmt.Errorf("register tools: %w", err)
	}

	pipeline := guardrail.NewPipeline([]guardrail.Guardrail{
		&guardrail.IterationLimit{MaxIterations: cfg.Guardrails.MaxIterations},
		guardrail.NewToolDiscipline(
			cfg.Guardrails.ToolCallThreshold,
			cfg.Guardrails.MaxFileReads,
			cfg.Guardrails.MaxCommandRetries,
		),
	}, guardrail.WithLogger(logger))

	temperature := cfg.Models.Temperature
	runner, err := loop.NewRunner(loop.Deps{
		Engine:        engine,
		Selector:      selector,
		Transport:     transport,
		Registry:      registry,
		Tracker:       tracker,
		Pipeline:      pipeline,
		Store:         store,
		Metrics:       metrics,
		Budget:        cfg.Prompt.TokenBudget,
		Temperature:   &temperature,
		MaxTokens:     cfg.Models.MaxTokens,
		InvokeTimeout: cfg.Models.Timeout,
	}, loop.WithLogger(logger))
	if err != nil {
		return err
	}

	if instruction == "" {
		instruction = fmt.Sprintf("Develop the %s module through the current workflow step.", module)
	}

	for !engine.IsComplete() {
		if err := ctx.Err(); err != nil {
			return err
		}

		step := engine.CurrentStep()
		result, err := runner.RunPhase(ctx, loop.RunInput{
			Instruction: instruction,
			Sections: []prompt.Section{
				{Title: "Module", Content: module},
			},
			CompletionTrigger: chooseTrigger(engine),
		})
		if err != nil {
			var blocked *loop.BlockedError
			if errors.As(err, &blocked) {
				return fmt.Errorf("workflow interrupted at step %s: %w", step, err)
			}
			return fmt.Errorf("step %s: %w", step, err)
		}

		if !result.Fired {
			return fmt.Errorf("workflow stalled at step %s after %d iterations", step, result.Iterations)
		}
		logger.Info("step finished",
			"step", step,
			"next", result.Step,
			"iterations", result.Iterations)
	}

	logger.Info("workflow complete", "module", module)
	return nil
}

// chooseTrigger picks the trigger to fire when the model goes idle: the
// step's only option when unambiguous, otherwise the completing one.
func chooseTrigger(engine *workflow.Engine) workflow.Trigger {
	triggers := engine.PermittedTriggers()
	if len(triggers) == 0 {
		return ""
	}
	for _, t := range triggers {
		if t == workflow.TriggerComplete {
			return t
		}
	}
	return triggers[0]
}

// openStore selects the checkpoint backend: JetStream KV when a NATS URL is
// configured, otherwise in-memory.
func openStore(ctx context.Context, cfg *config.Config) (session.Store, func(), error) {
	if cfg.NATS.URL == "" {
		return session.NewMemoryStore(), func() {}, nil
	}

	nc, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to NATS %s: %w", cfg.NATS.URL, err)
	}

	store, err := session.NewNATSStore(ctx, nc, cfg.NATS.Bucket)
	if err != nil {
		nc.Close()
		return nil, nil, err
	}
	return store, nc.Close, nil
}
