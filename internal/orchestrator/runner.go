package orchestrator

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// defaultDocumentWorkers bounds batch fan-out when the config leaves the
// worker count unset.
const defaultDocumentWorkers = 4

// Runner executes n indexed units of work, possibly concurrently. Each
// returns only after every unit has run; units are expected to capture
// their own outcome rather than returning one.
type Runner interface {
	Each(ctx context.Context, n int, fn func(ctx context.Context, index int))
}

// groupRunner is the errgroup-backed default with a fixed worker bound.
type groupRunner struct {
	workers int
}

// NewGroupRunner builds a runner that keeps at most workers units in
// flight. Non-positive workers get the default bound.
func NewGroupRunner(workers int) Runner {
	if workers <= 0 {
		workers = defaultDocumentWorkers
	}
	return &groupRunner{workers: workers}
}

func (r *groupRunner) Each(ctx context.Context, n int, fn func(context.Context, int)) {
	if n <= 0 {
		return
	}
	var g errgroup.Group
	g.SetLimit(min(r.workers, n))
	for i := 0; i < n; i++ {
		g.Go(func() error {
			fn(ctx, i)
			return nil
		})
	}
	_ = g.Wait()
}
