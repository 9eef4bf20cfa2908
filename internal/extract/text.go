package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/haasonsaas/quarry/internal/llm"
	"github.com/haasonsaas/quarry/internal/observability"
	"github.com/haasonsaas/quarry/internal/parse"
	"github.com/haasonsaas/quarry/internal/prompt"
	"github.com/haasonsaas/quarry/internal/store"
	"github.com/haasonsaas/quarry/internal/tokens"
	"github.com/haasonsaas/quarry/pkg/models"
)

// promptBudgetRatio is the fraction of the model's input window the filled
// prompt may occupy. The rest absorbs tokenizer drift between the local
// count and the provider's.
const promptBudgetRatio = 0.75

// TextExtractor runs the single-prompt flow for plain-text documents. The
// document is inlined into the user prompt, truncated from the middle when
// it would overflow the model's input window.
type TextExtractor struct {
	store   store.Gateway
	llm     llm.Invoker
	prompts *prompt.Registry
	counter tokens.Counter

	logger  *observability.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer
}

// NewTextExtractor wires a text extractor. counter may be nil, in which case
// the default tokenizer is used.
func NewTextExtractor(gw store.Gateway, invoker llm.Invoker, prompts *prompt.Registry, counter tokens.Counter, opts Options) *TextExtractor {
	if counter == nil {
		counter = tokens.NewCounter()
	}
	return &TextExtractor{
		store:   gw,
		llm:     invoker,
		prompts: prompts,
		counter: counter,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		tracer:  opts.Tracer,
	}
}

// Extract loads the document text, composes the prompt, invokes the model
// once, and persists the parsed answer. A reply that cannot be parsed keeps
// its raw text and an empty answer rather than failing the document.
func (x *TextExtractor) Extract(ctx context.Context, task Task) (*models.DocumentResult, error) {
	document := task.InlineText
	if document == "" {
		data, err := readArtifact(ctx, x.store, task.FileKey)
		if err != nil {
			return nil, err
		}
		document = string(data)
	}

	shots, err := renderTextualShots(task.FewShots)
	if err != nil {
		return nil, err
	}

	template, err := prompt.Build(x.prompts.User(), len(shots), task.Instructions)
	if err != nil {
		return nil, models.Errorf(models.ErrParsingStageFailed, "assemble prompt: %v", err)
	}

	vars := map[string]string{
		"attributes": prompt.RenderAttributes(task.Attributes),
		"document":   document,
	}
	if strings.TrimSpace(task.Instructions) != "" {
		vars["instructions"] = task.Instructions
	}
	for i, shot := range shots {
		vars[fmt.Sprintf("few_shot_input_%d", i)] = shot.input
		vars[fmt.Sprintf("few_shot_output_%d", i)] = shot.output
	}
	filled := prompt.Fill(template, vars)

	// The overhead is everything in the filled prompt that is not the
	// document itself.
	overhead := x.counter.Count(filled) - x.counter.Count(document)
	budget := int(float64(tokens.MaxInputTokens(task.Params.ModelID)) * promptBudgetRatio)
	truncated := tokens.TruncateMiddle(x.counter, document, overhead, budget)
	if truncated != document {
		if x.metrics != nil {
			x.metrics.RecordTruncation(task.Params.ModelID)
		}
		if x.logger != nil {
			x.logger.Info(ctx, "document truncated to fit model input window",
				"file_key", task.FileKey, "model", task.Params.ModelID, "budget", budget)
		}
		vars["document"] = truncated
		filled = prompt.Fill(template, vars)
	}

	resp, err := x.llm.Converse(ctx, llm.Request{
		ModelID:  task.Params.ModelID,
		System:   x.prompts.System(),
		Messages: []llm.Message{llm.UserMessage(llm.TextBlock(filled))},
		Params:   task.Params,
	})
	if err != nil {
		return nil, err
	}

	answer, perr := parse.Object(resp.Text)
	if perr != nil && x.logger != nil {
		x.logger.Debug(ctx, "response not parseable, keeping raw text",
			"file_key", task.FileKey, "error", perr)
	}

	result := &models.DocumentResult{
		FileKey:          task.FileKey,
		OriginalFileName: task.OriginalFileName,
		Answer:           answer,
		RawAnswer:        resp.Text,
	}
	if err := persistResult(ctx, x.store, result); err != nil {
		return nil, err
	}
	return result, nil
}
