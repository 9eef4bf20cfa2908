// commands.go contains the cobra command definitions and their flag
// configurations. Each builder wires a command to its handler in the
// handlers_*.go files.
package main

import (
	"github.com/spf13/cobra"
)

// =============================================================================
// Serve Command
// =============================================================================

// buildServeCmd creates the "serve" command that starts the HTTP gateway.
func buildServeCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Quarry extraction server",
		Long: `Start the HTTP gateway with the full extraction pipeline.

The server exposes:
  POST /extract     run a batch extraction
  POST /url         issue a browser upload grant
  GET  /few_shots   list stored few-shot examples
  GET  /runs/{id}/events   per-run timeline
  GET  /healthz, GET /metrics

Graceful shutdown is handled on SIGINT/SIGTERM.`,
		Example: `  # Start with default config
  quarry serve

  # Start with custom config
  quarry serve --config /etc/quarry/production.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "",
		"Path to YAML configuration file (default: quarry.yaml or QUARRY_CONFIG)")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false,
		"Enable debug logging (verbose output)")

	return cmd
}

// =============================================================================
// Extract Command
// =============================================================================

// buildExtractCmd creates the "extract" command that runs one batch from
// the command line without a server.
func buildExtractCmd() *cobra.Command {
	var (
		configPath  string
		requestPath string
		opts        extractFlags
	)

	cmd := &cobra.Command{
		Use:   "extract [documents...]",
		Short: "Run one extraction batch and print the result",
		Long: `Run one extraction batch directly, without the HTTP server.

The request comes either from a JSON file (--request, same shape as the
POST /extract body) or from flags. Documents named on the command line
may be local file paths; they are uploaded to the artifact store before
processing. The BatchResult is printed as JSON.`,
		Example: `  # Request file, same JSON shape the server accepts
  quarry extract --request batch.json

  # Flags only: one attribute, one local document
  quarry extract invoice.pdf --mode IMAGE_LLM \
    --attribute total:"the invoice total amount":number`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd.Context(), configPath, requestPath, args, opts)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().StringVarP(&requestPath, "request", "r", "", "Path to an ExtractionRequest JSON file")
	cmd.Flags().StringVar(&opts.mode, "mode", "", "Parsing mode: TEXT_LLM, IMAGE_LLM, OCR_THEN_TEXT_LLM, MANAGED_IDP")
	cmd.Flags().StringArrayVar(&opts.attributes, "attribute", nil,
		`Attribute to extract as name:description[:type] (repeatable)`)
	cmd.Flags().StringVar(&opts.instructions, "instructions", "", "Document-level instructions")
	cmd.Flags().StringVar(&opts.model, "model", "", "Model identifier (default from config)")
	cmd.Flags().IntVar(&opts.chunkSize, "chunk-size", 0, "Pages per image chunk (default 10)")
	cmd.Flags().BoolVar(&opts.sequential, "sequential", false, "Process image chunks sequentially")

	return cmd
}

// =============================================================================
// Models Command
// =============================================================================

// buildModelsCmd creates the "models" command that lists available
// foundation models.
func buildModelsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List available foundation models",
		Long: `List the foundation models visible to the configured AWS account,
with the context window Quarry budgets for each family.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModels(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")

	return cmd
}

// =============================================================================
// Grant Command
// =============================================================================

// buildGrantCmd creates the "grant" command that issues an upload grant,
// mainly for debugging the browser upload flow.
func buildGrantCmd() *cobra.Command {
	var (
		configPath string
		ttl        string
	)

	cmd := &cobra.Command{
		Use:   "grant <file-name>",
		Short: "Issue a browser upload grant for a file name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGrant(cmd.Context(), configPath, args[0], ttl)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().StringVar(&ttl, "ttl", "", "Grant lifetime, e.g. 15m (default from config)")

	return cmd
}

// =============================================================================
// Config Command
// =============================================================================

// buildConfigCmd creates the "config" command group for validating and
// documenting the configuration file.
func buildConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	var validatePath string
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate a configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigValidate(validatePath)
		},
	}
	validateCmd.Flags().StringVarP(&validatePath, "config", "c", "", "Path to YAML configuration file")

	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the configuration JSON schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSchema(cmd)
		},
	}

	cmd.AddCommand(validateCmd, schemaCmd)
	return cmd
}
