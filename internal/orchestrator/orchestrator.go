// Package orchestrator fans a batch extraction request out over its
// documents and routes each one through the pipeline its parsing mode
// selects. Failures are isolated per document: a bad input produces an
// error entry in its result slot while the rest of the batch proceeds.
//
// Only two things fail a batch outright: a request that does not validate
// (including an unresolvable few-shot reference) and a cancelled caller
// context. Everything else, per-document deadlines included, is folded
// into the returned BatchResult.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/haasonsaas/quarry/internal/automation"
	"github.com/haasonsaas/quarry/internal/config"
	"github.com/haasonsaas/quarry/internal/extract"
	"github.com/haasonsaas/quarry/internal/fewshot"
	"github.com/haasonsaas/quarry/internal/llm"
	"github.com/haasonsaas/quarry/internal/observability"
	"github.com/haasonsaas/quarry/internal/ocr"
	"github.com/haasonsaas/quarry/internal/store"
	"github.com/haasonsaas/quarry/pkg/models"
)

// DocumentExtractor runs one extraction flow over a staged document.
// *extract.TextExtractor and *extract.ImageExtractor both satisfy it.
type DocumentExtractor interface {
	Extract(ctx context.Context, task extract.Task) (*models.DocumentResult, error)
}

// ManagedRunner delegates a document to the managed automation service.
// *automation.Runner satisfies it.
type ManagedRunner interface {
	Run(ctx context.Context, task automation.Task) (*models.DocumentResult, error)
}

// Deps are the collaborators an orchestrator composes. Store, Resolver,
// Text and Image are required; the others may be nil when the matching
// feature is not served.
type Deps struct {
	Store    store.Gateway
	Resolver *store.Resolver

	// Text serves TEXT_LLM and OCR_THEN_TEXT_LLM documents.
	Text DocumentExtractor

	// Image serves IMAGE_LLM documents.
	Image DocumentExtractor

	// Automation serves MANAGED_IDP documents. When nil those documents
	// fail with ParsingStageFailed.
	Automation ManagedRunner

	// Registry resolves name-only few-shot references. When nil such
	// references are rejected as malformed.
	Registry fewshot.Registry

	// OCR is the external pre-stage for OCR_THEN_TEXT_LLM. Nil falls
	// back to ocr.Unavailable.
	OCR ocr.TextParser

	// Runner bounds document fan-out. Nil gets an errgroup-backed
	// runner sized by the extraction config.
	Runner Runner
}

// Options carries the optional observability hooks.
type Options struct {
	Logger  *observability.Logger
	Metrics *observability.Metrics
	Events  *observability.EventRecorder
	Tracer  *observability.Tracer
}

// Orchestrator turns an ExtractionRequest into a BatchResult.
type Orchestrator struct {
	deps Deps
	cfg  config.ExtractionConfig

	logger  *observability.Logger
	metrics *observability.Metrics
	events  *observability.EventRecorder
	tracer  *observability.Tracer
}

// New wires an orchestrator. Absent optional deps get inert defaults.
func New(deps Deps, cfg config.ExtractionConfig, opts Options) *Orchestrator {
	if deps.OCR == nil {
		deps.OCR = ocr.Unavailable{}
	}
	if deps.Runner == nil {
		deps.Runner = NewGroupRunner(cfg.Workers)
	}
	return &Orchestrator{
		deps:    deps,
		cfg:     cfg,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		events:  opts.Events,
		tracer:  opts.Tracer,
	}
}

// docSpec is the work order shared by every document of one batch.
type docSpec struct {
	mode         models.ParsingMode
	attributes   []models.AttributeSpec
	instructions string
	fewShots     []models.FewShotExample
	params       models.ModelParams
	chunkSize    int
	parallel     bool
}

// Run validates the request, resolves registry few-shots, and fans the
// documents out under the configured worker bound. The result keeps the
// request's document order.
func (o *Orchestrator) Run(ctx context.Context, req models.ExtractionRequest) (*models.BatchResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	spec, err := o.buildSpec(ctx, req)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	ctx = observability.AddRunID(ctx, runID)
	start := time.Now()
	if o.events != nil {
		o.events.RecordRunStart(ctx, runID, map[string]interface{}{
			"documents":    len(req.Documents),
			"parsing_mode": string(spec.mode),
		})
	}
	if o.logger != nil {
		o.logger.Info(ctx, "batch started",
			"documents", len(req.Documents), "parsing_mode", string(spec.mode))
	}

	results := make([]models.DocumentResult, len(req.Documents))
	o.deps.Runner.Each(ctx, len(req.Documents), func(ctx context.Context, i int) {
		results[i] = o.processDocument(ctx, req.Documents[i], spec)
	})

	if err := ctx.Err(); err != nil {
		if o.events != nil {
			o.events.RecordRunEnd(ctx, time.Since(start), err)
		}
		return nil, err
	}

	failed := 0
	for _, r := range results {
		if !r.Succeeded() {
			failed++
		}
	}
	if o.events != nil {
		o.events.RecordRunEnd(ctx, time.Since(start), nil)
	}
	if o.logger != nil {
		o.logger.Info(ctx, "batch finished",
			"documents", len(results), "failed", failed, "duration", time.Since(start))
	}
	return &models.BatchResult{RunID: runID, Documents: results}, nil
}

// buildSpec snapshots the effective settings, applying request over config
// over built-in defaults, and resolves registry few-shot references up
// front so a bad reference rejects the whole batch before fan-out.
func (o *Orchestrator) buildSpec(ctx context.Context, req models.ExtractionRequest) (docSpec, error) {
	spec := docSpec{
		mode:         req.ParsingMode,
		attributes:   req.Attributes,
		instructions: req.Instructions,
		params:       req.ModelParams,
		chunkSize:    req.ChunkSize,
		parallel:     o.cfg.ChunksInParallel(),
	}
	if spec.mode == "" {
		spec.mode = models.ParsingModeTextLLM
	}
	if spec.chunkSize == 0 {
		spec.chunkSize = o.cfg.ChunkSize
	}
	if spec.chunkSize == 0 {
		spec.chunkSize = models.DefaultChunkSize
	}
	if req.ParallelChunks != nil {
		spec.parallel = *req.ParallelChunks
	}

	shots, err := o.resolveFewShots(ctx, req.FewShots)
	if err != nil {
		return docSpec{}, err
	}
	spec.fewShots = shots
	return spec, nil
}

// resolveFewShots replaces name-only references with their stored
// examples. Inline examples pass through unchanged.
func (o *Orchestrator) resolveFewShots(ctx context.Context, shots []models.FewShotExample) ([]models.FewShotExample, error) {
	if len(shots) == 0 {
		return nil, nil
	}
	resolved := make([]models.FewShotExample, len(shots))
	for i, shot := range shots {
		if shot.Shape() != models.ShapeReference {
			resolved[i] = shot
			continue
		}
		if o.deps.Registry == nil {
			return nil, models.Errorf(models.ErrMalformedRequest, "few-shot example %q: no registry configured", shot.Name)
		}
		example, err := o.deps.Registry.Get(ctx, shot.Name)
		if errors.Is(err, fewshot.ErrNotFound) {
			return nil, models.Errorf(models.ErrMalformedRequest, "few-shot example %q not found", shot.Name)
		}
		if err != nil {
			return nil, fmt.Errorf("look up few-shot example %q: %w", shot.Name, err)
		}
		resolved[i] = example.FewShot()
	}
	return resolved, nil
}

// processDocument runs one document end to end inside its own deadline
// and observability scope, converting any failure into an error result.
func (o *Orchestrator) processDocument(ctx context.Context, ref string, spec docSpec) models.DocumentResult {
	docCtx := observability.AddDocument(ctx, ref)
	if o.cfg.DocumentTimeout > 0 {
		var cancel context.CancelFunc
		docCtx, cancel = context.WithTimeout(docCtx, o.cfg.DocumentTimeout)
		defer cancel()
	}

	var span trace.Span
	if o.tracer != nil {
		docCtx, span = o.tracer.TraceDocumentProcessing(docCtx, ref, string(spec.mode))
		defer span.End()
	}
	if o.metrics != nil {
		o.metrics.DocumentStarted(string(spec.mode))
	}
	if o.events != nil {
		o.events.RecordDocStart(docCtx, ref, string(spec.mode))
	}

	start := time.Now()
	result := o.runDocument(docCtx, ref, spec)
	elapsed := time.Since(start)

	status := "success"
	var docErr error
	if result.Error != nil {
		status = "error"
		docErr = result.Error
		if o.tracer != nil {
			o.tracer.RecordError(span, result.Error)
		}
		if o.metrics != nil {
			o.metrics.RecordError("orchestrator", string(result.Error.Kind))
		}
		if o.logger != nil {
			o.logger.Warn(docCtx, "document failed",
				"file_key", result.FileKey, "kind", string(result.Error.Kind), "error", result.Error.Message)
		}
	} else if o.logger != nil {
		o.logger.Info(docCtx, "document finished",
			"file_key", result.FileKey, "duration", elapsed)
	}
	if o.metrics != nil {
		o.metrics.DocumentEnded(string(spec.mode), status, elapsed.Seconds())
	}
	if o.events != nil {
		o.events.RecordDocEnd(docCtx, ref, elapsed, docErr)
	}
	return result
}

// runDocument resolves the reference and dispatches on the parsing mode.
// FileKey reflects how far the document got: the raw reference when
// resolution failed, the resolved key afterwards, and whatever the flow
// staged (such as a processed text key) on success.
func (o *Orchestrator) runDocument(ctx context.Context, ref string, spec docSpec) models.DocumentResult {
	key, err := o.deps.Resolver.Resolve(ctx, ref)
	if err != nil {
		return models.ErrorResult(ref, ref, o.errorInfo(ctx, err))
	}

	result, err := o.dispatch(ctx, key, ref, spec)
	if err != nil {
		return models.ErrorResult(key, ref, o.errorInfo(ctx, err))
	}
	return *result
}

// dispatch routes the resolved document through the pipeline its mode
// names.
func (o *Orchestrator) dispatch(ctx context.Context, key, ref string, spec docSpec) (*models.DocumentResult, error) {
	switch spec.mode {
	case models.ParsingModeTextLLM:
		return o.runText(ctx, key, ref, spec)
	case models.ParsingModeOCRThenTextLLM:
		processed, err := o.deps.OCR.ParseToText(ctx, key)
		if err != nil {
			return nil, err
		}
		return o.deps.Text.Extract(ctx, o.task(processed, ref, spec))
	case models.ParsingModeImageLLM:
		return o.deps.Image.Extract(ctx, o.task(key, ref, spec))
	case models.ParsingModeManagedIDP:
		if o.deps.Automation == nil {
			return nil, models.Errorf(models.ErrParsingStageFailed, "managed automation is not configured")
		}
		return o.deps.Automation.Run(ctx, automation.Task{
			FileKey:          key,
			OriginalFileName: ref,
			Attributes:       spec.attributes,
		})
	}
	return nil, models.Errorf(models.ErrMalformedRequest, "parsing_mode %q unknown", spec.mode)
}

// runText stages non-text inputs through a local text parser first so the
// model always sees plain text.
func (o *Orchestrator) runText(ctx context.Context, key, ref string, spec docSpec) (*models.DocumentResult, error) {
	textKey := key
	if !strings.EqualFold(path.Ext(key), ".txt") {
		parser, err := ocr.ForDocument(o.deps.Store, key)
		if err != nil {
			return nil, err
		}
		textKey, err = parser.ParseToText(ctx, key)
		if err != nil {
			return nil, err
		}
	}
	return o.deps.Text.Extract(ctx, o.task(textKey, ref, spec))
}

// task builds the extraction work order for a staged document.
func (o *Orchestrator) task(key, ref string, spec docSpec) extract.Task {
	return extract.Task{
		FileKey:          key,
		OriginalFileName: ref,
		Attributes:       spec.attributes,
		Instructions:     spec.instructions,
		FewShots:         spec.fewShots,
		Params:           spec.params,
		ChunkSize:        spec.chunkSize,
		Parallel:         spec.parallel,
	}
}

// errorInfo maps a failure onto the per-document error envelope. The
// document deadline wins: a stage failure caused by the deadline firing
// mid-flight still reports as a timeout.
func (o *Orchestrator) errorInfo(ctx context.Context, err error) *models.ErrorInfo {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return models.Errorf(models.ErrInternalTimeout, "document processing exceeded %s", o.cfg.DocumentTimeout)
	}
	var info *models.ErrorInfo
	if errors.As(err, &info) {
		return info
	}
	var invokeErr *llm.InvokeError
	if errors.As(err, &invokeErr) {
		return invokeErr.Info()
	}
	return models.Errorf(models.ErrParsingStageFailed, "%v", err)
}
