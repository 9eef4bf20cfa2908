// app.go wires the extraction pipeline from configuration. serve and the
// one-shot commands share the same construction path so both surfaces run
// the identical pipeline.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/haasonsaas/quarry/internal/automation"
	"github.com/haasonsaas/quarry/internal/config"
	"github.com/haasonsaas/quarry/internal/extract"
	"github.com/haasonsaas/quarry/internal/fewshot"
	"github.com/haasonsaas/quarry/internal/llm"
	"github.com/haasonsaas/quarry/internal/observability"
	"github.com/haasonsaas/quarry/internal/orchestrator"
	"github.com/haasonsaas/quarry/internal/prompt"
	"github.com/haasonsaas/quarry/internal/store"
	"github.com/haasonsaas/quarry/internal/tokens"
)

// app bundles the wired pipeline and its observability plumbing.
type app struct {
	cfg     *config.Config
	logger  *observability.Logger
	metrics *observability.Metrics
	events  *observability.MemoryEventStore
	tracer  *observability.Tracer

	store    store.Gateway
	resolver *store.Resolver
	registry fewshot.Registry
	prompts  *prompt.Registry
	orch     *orchestrator.Orchestrator
	cleaner  *store.Cleaner

	// stopTracer flushes pending spans on shutdown.
	stopTracer func(context.Context) error
}

// appOptions tweak construction per command.
type appOptions struct {
	// localPaths lets the resolver accept local filesystem paths, for
	// the one-shot extract command.
	localPaths bool

	// metrics enables the Prometheus registry. Only serve wants it;
	// one-shot commands have nowhere to scrape from.
	metrics bool
}

// loadConfig resolves and loads the configuration, falling back to
// defaults when no file exists anywhere on the search path.
func loadConfig(explicit string, debug bool) (*config.Config, error) {
	path := config.ResolvePath(explicit)
	var cfg *config.Config
	if path == "" {
		cfg = config.Default()
	} else {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		cfg = loaded
	}
	if debug {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// buildApp constructs the full pipeline. Collaborators that need AWS are
// only wired when the configuration calls for them, so a local-store
// setup runs without credentials.
func buildApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	a := &app{cfg: cfg}

	a.logger = observability.NewLogger(observability.LogConfig{
		Level:          cfg.Logging.Level,
		Format:         cfg.Logging.Format,
		Output:         os.Stderr,
		AddSource:      cfg.Logging.AddSource,
		RedactPatterns: cfg.Logging.RedactPatterns,
	})
	if opts.metrics {
		a.metrics = observability.NewMetrics()
	}
	a.events = observability.NewMemoryEventStore(0)
	recorder := observability.NewEventRecorder(a.events, a.logger)

	tracing := cfg.Observability.Tracing
	a.tracer, a.stopTracer = observability.NewTracer(observability.TraceConfig{
		ServiceName:    tracing.ServiceName,
		ServiceVersion: version,
		Environment:    tracing.Environment,
		Endpoint:       tracing.Endpoint,
		SamplingRate:   tracing.SamplingRate,
		EnableInsecure: tracing.Insecure,
		Attributes:     tracing.Attributes,
	})

	var awsCfg aws.Config
	if needsAWS(cfg) {
		loaded, err := config.LoadAWS(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		awsCfg = loaded
	}

	if cfg.Store.Backend == config.StoreBackendS3 {
		gw, err := store.NewS3Gateway(awsCfg, store.S3Options{
			Bucket:       cfg.Store.Bucket,
			Region:       cfg.Store.Region,
			Endpoint:     cfg.Store.Endpoint,
			UsePathStyle: cfg.Store.Endpoint != "",
		})
		if err != nil {
			return nil, fmt.Errorf("wire s3 store: %w", err)
		}
		a.store = gw
	} else {
		gw, err := store.NewLocalGateway(cfg.Store.LocalDir)
		if err != nil {
			return nil, fmt.Errorf("wire local store: %w", err)
		}
		a.store = gw
	}

	resolverOpts := []store.ResolverOption{store.WithDownloadTimeout(cfg.Store.DownloadTimeout)}
	if opts.localPaths {
		resolverOpts = append(resolverOpts, store.WithLocalPaths())
	}
	a.resolver = store.NewResolver(a.store, a.logger, resolverOpts...)

	prompts, err := prompt.NewRegistry(cfg.Prompts.OverrideDir, nil)
	if err != nil {
		return nil, fmt.Errorf("load prompt templates: %w", err)
	}
	a.prompts = prompts

	invoker, err := llm.NewClient(awsCfg, cfg.LLM, llm.ClientOptions{
		Logger:  a.logger,
		Metrics: a.metrics,
		Events:  recorder,
		Tracer:  a.tracer,
	})
	if err != nil {
		return nil, fmt.Errorf("wire llm client: %w", err)
	}

	extractOpts := extract.Options{
		Logger:  a.logger,
		Metrics: a.metrics,
		Events:  recorder,
		Tracer:  a.tracer,
	}
	text := extract.NewTextExtractor(a.store, invoker, prompts, tokens.NewCounter(), extractOpts)
	image := extract.NewImageExtractor(a.store, invoker, prompts, extract.NewFitzRasterizer(),
		cfg.Extraction.MaxChunkWorkers, extractOpts)

	if cfg.FewShots.Table != "" {
		a.registry = fewshot.NewDynamoRegistry(awsCfg, cfg.FewShots, a.logger)
	} else {
		a.registry = fewshot.NewMemoryRegistry()
	}

	deps := orchestrator.Deps{
		Store:    a.store,
		Resolver: a.resolver,
		Text:     text,
		Image:    image,
		Registry: a.registry,
	}
	if cfg.Automation.ProfileARN != "" {
		deps.Automation = automation.NewRunner(awsCfg, a.store, cfg.Automation, automation.Options{
			Logger:  a.logger,
			Metrics: a.metrics,
			Tracer:  a.tracer,
		})
	}
	a.orch = orchestrator.New(deps, cfg.Extraction, orchestrator.Options{
		Logger:  a.logger,
		Metrics: a.metrics,
		Events:  recorder,
		Tracer:  a.tracer,
	})

	if cfg.Store.Retention.Enabled {
		a.cleaner = store.NewCleaner(a.store, cfg.Store.Retention.Prefixes,
			cfg.Store.Retention.MaxAge, a.logger, a.metrics)
	}

	return a, nil
}

// needsAWS reports whether any configured collaborator talks to AWS.
func needsAWS(cfg *config.Config) bool {
	return cfg.Store.Backend == config.StoreBackendS3 ||
		cfg.LLM.Provider == config.ProviderBedrock ||
		cfg.FewShots.Table != "" ||
		cfg.Automation.ProfileARN != ""
}

// close flushes the tracer. Safe to call on a partially built app.
func (a *app) close(ctx context.Context) {
	if a.cleaner != nil {
		a.cleaner.Stop()
	}
	if a.stopTracer != nil {
		if err := a.stopTracer(ctx); err != nil {
			a.logger.Warn(ctx, "tracer shutdown failed", "error", err)
		}
	}
}
