// handlers_models.go implements the models command: the Bedrock foundation
// model catalog annotated with the context window Quarry budgets against.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/aws/aws-sdk-go-v2/service/bedrock"

	"github.com/haasonsaas/quarry/internal/config"
	"github.com/haasonsaas/quarry/internal/tokens"
)

// catalogAPI is the slice of the Bedrock control-plane API the command
// uses, kept narrow for tests.
type catalogAPI interface {
	ListFoundationModels(ctx context.Context, params *bedrock.ListFoundationModelsInput, optFns ...func(*bedrock.Options)) (*bedrock.ListFoundationModelsOutput, error)
}

func runModels(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath, false)
	if err != nil {
		return err
	}
	awsCfg, err := config.LoadAWS(ctx, cfg)
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}
	return printModels(ctx, bedrock.NewFromConfig(awsCfg), os.Stdout)
}

func printModels(ctx context.Context, client catalogAPI, out io.Writer) error {
	resp, err := client.ListFoundationModels(ctx, &bedrock.ListFoundationModelsInput{})
	if err != nil {
		return fmt.Errorf("list foundation models: %w", err)
	}

	type row struct {
		id, provider, status string
		contextTokens        int
	}
	rows := make([]row, 0, len(resp.ModelSummaries))
	for _, m := range resp.ModelSummaries {
		if m.ModelId == nil {
			continue
		}
		r := row{id: *m.ModelId, contextTokens: tokens.MaxInputTokens(*m.ModelId)}
		if m.ProviderName != nil {
			r.provider = *m.ProviderName
		}
		if m.ModelLifecycle != nil {
			r.status = string(m.ModelLifecycle.Status)
		}
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].id < rows[j].id })

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tPROVIDER\tCONTEXT TOKENS\tSTATUS")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", r.id, r.provider, r.contextTokens, r.status)
	}
	return w.Flush()
}
