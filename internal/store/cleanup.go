package store

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/haasonsaas/quarry/internal/observability"
)

// Cleaner prunes aged objects under transient prefixes on a cron
// schedule. Result and source prefixes are only touched when listed
// explicitly in the configuration.
type Cleaner struct {
	gateway  Gateway
	prefixes []string
	maxAge   time.Duration
	logger   *observability.Logger
	metrics  *observability.Metrics
	cron     *cron.Cron
}

// NewCleaner builds a cleaner over the given prefixes.
func NewCleaner(gateway Gateway, prefixes []string, maxAge time.Duration, logger *observability.Logger, metrics *observability.Metrics) *Cleaner {
	return &Cleaner{
		gateway:  gateway,
		prefixes: prefixes,
		maxAge:   maxAge,
		logger:   logger,
		metrics:  metrics,
	}
}

// Start schedules the cleanup job. The schedule uses the standard
// five-field cron format.
func (c *Cleaner) Start(ctx context.Context, schedule string) error {
	runner := cron.New()
	if _, err := runner.AddFunc(schedule, func() {
		if _, err := c.Run(ctx); err != nil {
			c.logger.Error(ctx, "retention cleanup failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}
	runner.Start()
	c.cron = runner
	c.logger.Info(ctx, "retention cleanup scheduled", "schedule", schedule, "max_age", c.maxAge.String(), "prefixes", fmt.Sprintf("%v", c.prefixes))
	return nil
}

// Stop halts the schedule and waits for a running job to finish.
func (c *Cleaner) Stop() {
	if c.cron != nil {
		<-c.cron.Stop().Done()
	}
}

// Run removes objects older than the retention age under every
// configured prefix and returns how many were deleted.
func (c *Cleaner) Run(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-c.maxAge)
	removed := 0
	for _, prefix := range c.prefixes {
		objects, err := c.gateway.List(ctx, prefix)
		if err != nil {
			return removed, fmt.Errorf("list %s: %w", prefix, err)
		}
		for _, obj := range objects {
			if obj.LastModified.IsZero() || !obj.LastModified.Before(cutoff) {
				continue
			}
			start := time.Now()
			if err := c.gateway.Delete(ctx, obj.Key); err != nil {
				c.logger.Warn(ctx, "retention delete failed", "key", obj.Key, "error", err)
				if c.metrics != nil {
					c.metrics.RecordStorageOperation("delete", "error", time.Since(start).Seconds())
				}
				continue
			}
			if c.metrics != nil {
				c.metrics.RecordStorageOperation("delete", "success", time.Since(start).Seconds())
			}
			removed++
		}
	}
	if removed > 0 {
		c.logger.Info(ctx, "retention cleanup removed objects", "count", removed)
	}
	return removed, nil
}
