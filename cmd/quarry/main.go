// Package main provides the CLI entry point for the Quarry extraction
// service.
//
// Quarry extracts caller-specified named attributes from documents (plain
// text, PDF, raster images) by orchestrating Bedrock-hosted LLMs behind a
// compose, invoke, parse, merge pipeline with per-document error isolation.
//
// # Basic Usage
//
// Start the HTTP server:
//
//	quarry serve --config quarry.yaml
//
// Run one extraction from the command line:
//
//	quarry extract --request batch.json
//
// # Environment Variables
//
//   - QUARRY_CONFIG: Path to configuration file (default: quarry.yaml)
//   - ANTHROPIC_API_KEY: API key for the direct Anthropic backend
//   - AWS_REGION and the usual AWS credential chain for Bedrock, S3 and
//     DynamoDB
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information - populated by ldflags during build.
//
// Example build command:
//
//	go build -ldflags "-X main.version=v1.0.0 -X main.commit=$(git rev-parse HEAD) -X main.date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version = "dev"     // Semantic version (e.g., "v1.0.0")
	commit  = "none"    // Git commit SHA
	date    = "unknown" // Build timestamp
)

func main() {
	// Default logger until serve installs the configured one.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// Separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "quarry",
		Short: "Quarry - LLM document attribute extraction",
		Long: `Quarry extracts named attributes from documents with an LLM.

Parsing modes: TEXT_LLM, IMAGE_LLM, OCR_THEN_TEXT_LLM, MANAGED_IDP
Backends: AWS Bedrock (Converse), direct Anthropic API
Storage: S3 or a local directory`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		// SilenceUsage prevents printing usage on every error.
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildExtractCmd(),
		buildModelsCmd(),
		buildGrantCmd(),
		buildConfigCmd(),
	)

	return rootCmd
}
