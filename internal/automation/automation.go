// Package automation delegates extraction to the managed document
// automation service. The request's attributes become a document
// blueprint, the document is submitted as an async job, and the job's
// segment output is adapted into the standard result envelope.
package automation

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	bda "github.com/aws/aws-sdk-go-v2/service/bedrockdataautomation"
	bdart "github.com/aws/aws-sdk-go-v2/service/bedrockdataautomationruntime"
	"go.opentelemetry.io/otel/trace"

	"github.com/haasonsaas/quarry/internal/config"
	"github.com/haasonsaas/quarry/internal/observability"
	"github.com/haasonsaas/quarry/internal/store"
	"github.com/haasonsaas/quarry/pkg/models"
)

// BlueprintAPI is the subset of *bedrockdataautomation.Client the runner
// needs. Tests substitute a scripted fake.
type BlueprintAPI interface {
	ListBlueprints(ctx context.Context, params *bda.ListBlueprintsInput, optFns ...func(*bda.Options)) (*bda.ListBlueprintsOutput, error)
	CreateBlueprint(ctx context.Context, params *bda.CreateBlueprintInput, optFns ...func(*bda.Options)) (*bda.CreateBlueprintOutput, error)
	UpdateBlueprint(ctx context.Context, params *bda.UpdateBlueprintInput, optFns ...func(*bda.Options)) (*bda.UpdateBlueprintOutput, error)
}

// RuntimeAPI is the subset of *bedrockdataautomationruntime.Client the
// runner needs.
type RuntimeAPI interface {
	InvokeDataAutomationAsync(ctx context.Context, params *bdart.InvokeDataAutomationAsyncInput, optFns ...func(*bdart.Options)) (*bdart.InvokeDataAutomationAsyncOutput, error)
	GetDataAutomationStatus(ctx context.Context, params *bdart.GetDataAutomationStatusInput, optFns ...func(*bdart.Options)) (*bdart.GetDataAutomationStatusOutput, error)
}

// Task is one document to run through managed extraction.
type Task struct {
	FileKey          string
	OriginalFileName string
	Attributes       []models.AttributeSpec
}

// Options carries the optional observability hooks.
type Options struct {
	Logger  *observability.Logger
	Metrics *observability.Metrics
	Tracer  *observability.Tracer
}

// Runner drives a document through blueprint sync, async invocation,
// status polling, and result adaptation.
type Runner struct {
	blueprints BlueprintAPI
	runtime    RuntimeAPI
	store      store.Gateway
	cfg        config.AutomationConfig

	logger  *observability.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer

	now func() time.Time
}

// NewRunner builds a runner on live AWS clients.
func NewRunner(awsCfg aws.Config, gw store.Gateway, cfg config.AutomationConfig, opts Options) *Runner {
	return NewRunnerWith(bda.NewFromConfig(awsCfg), bdart.NewFromConfig(awsCfg), gw, cfg, opts)
}

// NewRunnerWith wires explicit service clients.
func NewRunnerWith(blueprints BlueprintAPI, runtime RuntimeAPI, gw store.Gateway, cfg config.AutomationConfig, opts Options) *Runner {
	return &Runner{
		blueprints: blueprints,
		runtime:    runtime,
		store:      gw,
		cfg:        cfg,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		tracer:     opts.Tracer,
		now:        time.Now,
	}
}

// Run executes managed extraction for one document and persists the
// adapted result. Context cancellation is returned unchanged so callers
// can distinguish deadlines from job failures.
func (r *Runner) Run(ctx context.Context, task Task) (*models.DocumentResult, error) {
	var span trace.Span
	if r.tracer != nil {
		ctx, span = r.tracer.Start(ctx, "automation.run")
		defer span.End()
	}

	result, err := r.run(ctx, task)
	if err != nil {
		if r.tracer != nil {
			r.tracer.RecordError(span, err)
		}
		if r.metrics != nil {
			var info *models.ErrorInfo
			if errors.As(err, &info) {
				r.metrics.RecordError("automation", string(info.Kind))
			}
		}
	}
	return result, err
}

func (r *Runner) run(ctx context.Context, task Task) (*models.DocumentResult, error) {
	bucket := r.store.Bucket()
	if bucket == "" {
		return nil, models.Errorf(models.ErrParsingStageFailed, "managed automation requires an S3-backed artifact store")
	}
	if r.cfg.ProfileARN == "" {
		return nil, models.Errorf(models.ErrParsingStageFailed, "automation profile is not configured")
	}

	properties, err := blueprintProperties(task.Attributes)
	if err != nil {
		return nil, models.Errorf(models.ErrParsingStageFailed, "encode blueprint properties: %v", err)
	}
	name := blueprintName(properties)
	schema, err := blueprintSchema(r.blueprintDescription(), properties)
	if err != nil {
		return nil, models.Errorf(models.ErrParsingStageFailed, "encode blueprint schema: %v", err)
	}
	blueprintARN, err := r.syncBlueprint(ctx, name, schema)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, models.Errorf(models.ErrParsingStageFailed, "sync blueprint: %v", err)
	}

	invocationARN, err := r.invoke(ctx, bucket, task.FileKey, blueprintARN)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, models.Errorf(models.ErrParsingStageFailed, "start automation job: %v", err)
	}

	status, err := r.awaitInvocation(ctx, invocationARN)
	if err != nil {
		return nil, err
	}

	answer, err := r.collectOutput(ctx, status, task.FileKey)
	if err != nil {
		return nil, err
	}
	raw, err := syntheticRawAnswer(answer)
	if err != nil {
		return nil, models.Errorf(models.ErrParsingStageFailed, "encode raw answer for %s: %v", task.FileKey, err)
	}

	result := &models.DocumentResult{
		FileKey:          task.FileKey,
		OriginalFileName: task.OriginalFileName,
		Answer:           answer,
		RawAnswer:        raw,
	}
	if err := r.persistResult(ctx, result); err != nil {
		return nil, err
	}
	if r.logger != nil {
		r.logger.Info(ctx, "automation extraction complete", "file_key", task.FileKey, "attributes", len(answer))
	}
	return result, nil
}
