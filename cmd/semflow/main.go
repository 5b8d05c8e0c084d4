// Package main provides the semflow binary entry point.
// Semflow orchestrates LLM-driven development through a phased workflow:
// requirement gathering, planning, and building, with verification gates
// and guardrails around every model invocation.
package main

import (
	"fmt"
	"os"
	"runtime"

	// Register LLM providers via init()
	_ "github.com/c360studio/semflow/llm/providers"

	"github.com/spf13/cobra"

	"github.com/c360studio/semflow/commands"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "semflow"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "semflow",
		Short: "LLM-driven development workflow orchestrator",
		Long: `Semflow drives a software module through a phased development
workflow. Each phase invokes a configured model with phase-scoped
tools; completion claims pass a verification gate, guardrails apply
back-pressure, and progress is checkpointed for resumption.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	commands.Register(cmd)
	return cmd
}
