package extract

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/haasonsaas/quarry/internal/llm"
	"github.com/haasonsaas/quarry/internal/observability"
	"github.com/haasonsaas/quarry/internal/parse"
	"github.com/haasonsaas/quarry/internal/prompt"
	"github.com/haasonsaas/quarry/internal/store"
	"github.com/haasonsaas/quarry/pkg/models"
)

// defaultMaxChunkWorkers bounds the chunk fan-out when no limit is
// configured.
const defaultMaxChunkWorkers = 10

// ImageExtractor runs the multimodal flow. The document is rasterized into
// page images, split into chunks, and each chunk is sent to the model as its
// own conversation. Chunk failures are confined to their slot so one bad
// chunk cannot sink the document.
type ImageExtractor struct {
	store      store.Gateway
	llm        llm.Invoker
	prompts    *prompt.Registry
	raster     Rasterizer
	maxWorkers int

	logger  *observability.Logger
	metrics *observability.Metrics
	events  *observability.EventRecorder
	tracer  *observability.Tracer
}

// NewImageExtractor wires an image extractor. maxWorkers bounds concurrent
// chunk invocations; zero or negative selects the default.
func NewImageExtractor(gw store.Gateway, invoker llm.Invoker, prompts *prompt.Registry, raster Rasterizer, maxWorkers int, opts Options) *ImageExtractor {
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxChunkWorkers
	}
	if raster == nil {
		raster = NewFitzRasterizer()
	}
	return &ImageExtractor{
		store:      gw,
		llm:        invoker,
		prompts:    prompts,
		raster:     raster,
		maxWorkers: maxWorkers,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		events:     opts.Events,
		tracer:     opts.Tracer,
	}
}

// Extract rasterizes the document, fans the chunks out to the model, and
// persists the merged answer. Multimodal few-shot examples are prepended to
// every chunk conversation as a user/assistant turn pair.
func (x *ImageExtractor) Extract(ctx context.Context, task Task) (*models.DocumentResult, error) {
	data, err := readArtifact(ctx, x.store, task.FileKey)
	if err != nil {
		return nil, err
	}
	pages, err := x.raster.Pages(ctx, task.FileKey, data)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, errNoImages()
	}

	promptText, err := x.promptText(task)
	if err != nil {
		return nil, err
	}

	var base []llm.Message
	for _, example := range task.FewShots {
		if example.Shape() != models.ShapeMultimodal {
			continue
		}
		pair, err := exampleMessages(ctx, x.store, x.raster, example, promptText)
		if err != nil {
			return nil, err
		}
		base = append(base, pair...)
	}

	chunks := chunkPages(pages, task.ChunkSize)
	multi := len(chunks) > 1
	if x.logger != nil {
		x.logger.Info(ctx, "processing document pages",
			"file_key", task.FileKey, "pages", len(pages), "chunks", len(chunks), "parallel", task.Parallel && multi)
	}

	conversations := make([][]llm.Message, len(chunks))
	pageCounts := make([]int, len(chunks))
	startPage := 0
	for i, chunk := range chunks {
		messages := make([]llm.Message, 0, len(base)+1)
		messages = append(messages, base...)
		messages = append(messages, chunkMessage(chunk, promptText, startPage, multi))
		conversations[i] = messages
		pageCounts[i] = len(chunk)
		startPage += len(chunk)
	}

	answers, raws := x.processChunks(ctx, task, conversations, pageCounts)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &models.DocumentResult{
		FileKey:          task.FileKey,
		OriginalFileName: task.OriginalFileName,
		ChunksProcessed:  len(answers),
	}
	if multi {
		result.Answer = combineAnswers(answers)
		result.RawAnswer = joinRaw(raws)
	} else {
		result.Answer = answers[0]
		result.RawAnswer = raws[0]
	}

	if err := persistResult(ctx, x.store, result); err != nil {
		return nil, err
	}
	return result, nil
}

// promptText fills the user template for image mode. The document variable
// stays empty: the pages themselves carry the content.
func (x *ImageExtractor) promptText(task Task) (string, error) {
	template, err := prompt.Build(x.prompts.User(), 0, task.Instructions)
	if err != nil {
		return "", models.Errorf(models.ErrParsingStageFailed, "assemble prompt: %v", err)
	}
	vars := map[string]string{
		"attributes": prompt.RenderAttributes(task.Attributes),
		"document":   "",
	}
	if strings.TrimSpace(task.Instructions) != "" {
		vars["instructions"] = task.Instructions
	}
	return prompt.Fill(template, vars), nil
}

// processChunks runs every chunk conversation and returns the per-chunk
// answers and raw texts in page order, regardless of completion order.
func (x *ImageExtractor) processChunks(ctx context.Context, task Task, conversations [][]llm.Message, pageCounts []int) ([]map[string]any, []string) {
	answers := make([]map[string]any, len(conversations))
	raws := make([]string, len(conversations))

	if task.Parallel && len(conversations) > 1 {
		var g errgroup.Group
		g.SetLimit(min(x.maxWorkers, len(conversations)))
		for i := range conversations {
			g.Go(func() error {
				answers[i], raws[i] = x.processChunk(ctx, task, i, pageCounts[i], conversations[i])
				return nil
			})
		}
		_ = g.Wait()
		return answers, raws
	}

	for i := range conversations {
		answers[i], raws[i] = x.processChunk(ctx, task, i, pageCounts[i], conversations[i])
	}
	return answers, raws
}

// processChunk invokes the model on one chunk conversation. Failures stay in
// the chunk's slot: the answer is empty and the raw text carries the error,
// so sibling chunks still contribute to the merged result.
func (x *ImageExtractor) processChunk(ctx context.Context, task Task, index, pageCount int, messages []llm.Message) (map[string]any, string) {
	start := time.Now()
	var span trace.Span
	if x.tracer != nil {
		ctx, span = x.tracer.TraceChunk(ctx, index, pageCount)
		defer span.End()
	}
	if x.events != nil {
		_ = x.events.RecordChunkStart(ctx, index, pageCount)
	}

	resp, err := x.llm.Converse(ctx, llm.Request{
		ModelID:  task.Params.ModelID,
		System:   x.prompts.System(),
		Messages: messages,
		Params:   task.Params,
	})
	if err != nil {
		if x.logger != nil {
			x.logger.Warn(ctx, "chunk failed", "file_key", task.FileKey, "chunk", index+1, "error", err)
		}
		if x.metrics != nil {
			x.metrics.RecordChunk("error", time.Since(start).Seconds())
		}
		if x.events != nil {
			_ = x.events.RecordChunkEnd(ctx, index, time.Since(start), err)
		}
		if x.tracer != nil {
			x.tracer.RecordError(span, err)
		}
		return map[string]any{}, "Error: " + err.Error()
	}

	answer, perr := parse.Object(resp.Text)
	if perr != nil && x.logger != nil {
		x.logger.Debug(ctx, "chunk response not parseable, keeping raw text",
			"file_key", task.FileKey, "chunk", index+1, "error", perr)
	}
	if x.metrics != nil {
		x.metrics.RecordChunk("success", time.Since(start).Seconds())
	}
	if x.events != nil {
		_ = x.events.RecordChunkEnd(ctx, index, time.Since(start), nil)
	}
	return answer, resp.Text
}
