// Package config provides configuration loading and management for semflow.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/semflow/llm"
	"github.com/c360studio/semflow/workflow"
)

// Config represents the complete semflow configuration.
type Config struct {
	Models     ModelsConfig                  `yaml:"models"`
	Endpoints  map[string]llm.EndpointConfig `yaml:"endpoints"`
	Guardrails GuardrailsConfig              `yaml:"guardrails"`
	Prompt     PromptConfig                  `yaml:"prompt"`
	Workflow   WorkflowConfig                `yaml:"workflow"`
	Repo       RepoConfig                    `yaml:"repo"`
	NATS       NATSConfig                    `yaml:"nats"`
}

// PhaseModelsConfig names the primary model and its fallbacks for one phase.
type PhaseModelsConfig struct {
	Model     string   `yaml:"model"`
	Fallbacks []string `yaml:"fallbacks,omitempty"`
}

// ModelsConfig configures model selection.
type ModelsConfig struct {
	// Phases maps phase names to their model configuration.
	Phases map[string]PhaseModelsConfig `yaml:"phases"`

	// GlobalFallback serves phases with no configured model and terminates
	// every fallback chain.
	GlobalFallback string `yaml:"global_fallback"`

	// Oracle is the model verification judgments run on. Empty disables the
	// LLM oracle; verifications auto-pass.
	Oracle string `yaml:"oracle,omitempty"`

	// Temperature controls randomness (0.0-1.0).
	Temperature float64 `yaml:"temperature"`

	// MaxTokens caps response length per invocation. 0 uses the provider
	// default.
	MaxTokens int `yaml:"max_tokens,omitempty"`

	// Timeout is the maximum time to wait for model responses.
	Timeout time.Duration `yaml:"timeout"`
}

// GuardrailsConfig holds the back-pressure limits.
type GuardrailsConfig struct {
	MaxIterations     int `yaml:"max_iterations"`
	ToolCallThreshold int `yaml:"tool_call_threshold"`
	MaxFileReads      int `yaml:"max_file_reads"`
	MaxCommandRetries int `yaml:"max_command_retries"`
}

// PromptConfig holds context assembly settings.
type PromptConfig struct {
	// TokenBudget is the allowance for context sections per prompt.
	TokenBudget int `yaml:"token_budget"`
}

// WorkflowConfig holds step-graph settings.
type WorkflowConfig struct {
	// GraphFile is an optional YAML step graph; empty uses the built-in one.
	GraphFile string `yaml:"graph_file,omitempty"`
}

// RepoConfig configures the repository under development.
type RepoConfig struct {
	// Path is the repository root path (auto-detected from git if empty).
	Path string `yaml:"path"`
}

// NATSConfig configures checkpoint persistence.
type NATSConfig struct {
	// URL is the NATS server URL (empty = in-memory checkpoints only).
	URL string `yaml:"url"`

	// Bucket is the JetStream KV bucket for checkpoints.
	Bucket string `yaml:"bucket"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Models: ModelsConfig{
			Phases: map[string]PhaseModelsConfig{
				string(workflow.PhaseRequirementGathering): {Model: "claude-sonnet"},
				string(workflow.PhasePlanning):             {Model: "claude-opus", Fallbacks: []string{"claude-sonnet"}},
				string(workflow.PhaseBuilding):             {Model: "claude-sonnet", Fallbacks: []string{"qwen2.5-coder:32b"}},
				string(workflow.PhaseResearch):             {Model: "claude-haiku"},
			},
			GlobalFallback: "qwen2.5-coder:32b",
			Temperature:    0.2,
			Timeout:        5 * time.Minute,
		},
		Endpoints: map[string]llm.EndpointConfig{
			"claude-opus":       {Provider: "anthropic", Model: "claude-opus-4-1"},
			"claude-sonnet":     {Provider: "anthropic", Model: "claude-sonnet-4-5"},
			"claude-haiku":      {Provider: "anthropic", Model: "claude-haiku-4-5"},
			"qwen2.5-coder:32b": {Provider: "ollama", URL: "http://localhost:11434/v1", Model: "qwen2.5-coder:32b"},
		},
		Guardrails: GuardrailsConfig{
			MaxIterations:     50,
			ToolCallThreshold: 50,
			MaxFileReads:      5,
			MaxCommandRetries: 3,
		},
		Prompt: PromptConfig{
			TokenBudget: 8000,
		},
		Repo: RepoConfig{
			Path: "", // Auto-detect
		},
		NATS: NATSConfig{
			URL:    "",
			Bucket: "SEMFLOW_CHECKPOINTS",
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Models.GlobalFallback == "" {
		return fmt.Errorf("models.global_fallback is required")
	}
	if c.Models.Temperature < 0 || c.Models.Temperature > 1 {
		return fmt.Errorf("models.temperature must be between 0 and 1")
	}
	if c.Models.MaxTokens < 0 {
		return fmt.Errorf("models.max_tokens must not be negative")
	}
	for phase, pm := range c.Models.Phases {
		if !workflow.Phase(phase).IsValid() {
			return fmt.Errorf("models.phases: unknown phase %q", phase)
		}
		if pm.Model == "" {
			return fmt.Errorf("models.phases.%s: model is required", phase)
		}
	}
	if c.Guardrails.MaxIterations <= 0 {
		return fmt.Errorf("guardrails.max_iterations must be positive")
	}
	if c.Prompt.TokenBudget <= 0 {
		return fmt.Errorf("prompt.token_budget must be positive")
	}
	for name, ep := range c.Endpoints {
		if ep.Provider == "" {
			return fmt.Errorf("endpoints.%s: provider is required", name)
		}
		if ep.Model == "" {
			return fmt.Errorf("endpoints.%s: model is required", name)
		}
	}
	return nil
}

// SelectorPhases converts the model configuration into the selector's typed
// phase map.
func (c *Config) SelectorPhases() map[workflow.Phase]llm.PhaseModels {
	phases := make(map[workflow.Phase]llm.PhaseModels, len(c.Models.Phases))
	for name, pm := range c.Models.Phases {
		phases[workflow.Phase(name)] = llm.PhaseModels{
			Model:     pm.Model,
			Fallbacks: pm.Fallbacks,
		}
	}
	return phases
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for
// non-zero values).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Models
	for phase, pm := range other.Models.Phases {
		if c.Models.Phases == nil {
			c.Models.Phases = make(map[string]PhaseModelsConfig)
		}
		c.Models.Phases[phase] = pm
	}
	if other.Models.GlobalFallback != "" {
		c.Models.GlobalFallback = other.Models.GlobalFallback
	}
	if other.Models.Oracle != "" {
		c.Models.Oracle = other.Models.Oracle
	}
	if other.Models.Temperature != 0 {
		c.Models.Temperature = other.Models.Temperature
	}
	if other.Models.MaxTokens != 0 {
		c.Models.MaxTokens = other.Models.MaxTokens
	}
	if other.Models.Timeout != 0 {
		c.Models.Timeout = other.Models.Timeout
	}

	// Endpoints
	for name, ep := range other.Endpoints {
		if c.Endpoints == nil {
			c.Endpoints = make(map[string]llm.EndpointConfig)
		}
		c.Endpoints[name] = ep
	}

	// Guardrails
	if other.Guardrails.MaxIterations != 0 {
		c.Guardrails.MaxIterations = other.Guardrails.MaxIterations
	}
	if other.Guardrails.ToolCallThreshold != 0 {
		c.Guardrails.ToolCallThreshold = other.Guardrails.ToolCallThreshold
	}
	if other.Guardrails.MaxFileReads != 0 {
		c.Guardrails.MaxFileReads = other.Guardrails.MaxFileReads
	}
	if other.Guardrails.MaxCommandRetries != 0 {
		c.Guardrails.MaxCommandRetries = other.Guardrails.MaxCommandRetries
	}

	// Prompt
	if other.Prompt.TokenBudget != 0 {
		c.Prompt.TokenBudget = other.Prompt.TokenBudget
	}

	// Workflow
	if other.Workflow.GraphFile != "" {
		c.Workflow.GraphFile = other.Workflow.GraphFile
	}

	// Repo
	if other.Repo.Path != "" {
		c.Repo.Path = other.Repo.Path
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.Bucket != "" {
		c.NATS.Bucket = other.NATS.Bucket
	}
}
