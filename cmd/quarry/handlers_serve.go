// handlers_serve.go implements the serve command: the long-running HTTP
// gateway in front of the extraction pipeline.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/haasonsaas/quarry/internal/gateway"
)

// shutdownGrace bounds the final drain when the configured shutdown
// timeout is missing.
const shutdownGrace = 30 * time.Second

func runServe(ctx context.Context, configPath string, debug bool) error {
	cfg, err := loadConfig(configPath, debug)
	if err != nil {
		return err
	}

	a, err := buildApp(ctx, cfg, appOptions{metrics: true})
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	if cfg.Prompts.OverrideDir != "" && cfg.Prompts.WatchPrompts() {
		if err := a.prompts.StartWatching(ctx); err != nil {
			return fmt.Errorf("watch prompt templates: %w", err)
		}
		defer func() { _ = a.prompts.Close() }()
	}

	if a.cleaner != nil {
		if err := a.cleaner.Start(ctx, cfg.Store.Retention.Schedule); err != nil {
			return fmt.Errorf("start retention cleanup: %w", err)
		}
	}

	server := gateway.New(cfg, a.store, a.orch, gateway.Options{
		Registry: a.registry,
		Events:   a.events,
		Logger:   a.logger,
		Metrics:  a.metrics,
	})
	if err := server.Start(); err != nil {
		return err
	}

	a.logger.Info(ctx, "quarry started",
		"version", version,
		"addr", cfg.Server.Addr(),
		"store", cfg.Store.Backend,
		"llm_provider", cfg.LLM.Provider,
	)

	// Block until a termination signal arrives, then drain.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		a.logger.Info(ctx, "shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
