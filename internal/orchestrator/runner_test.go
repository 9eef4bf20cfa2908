package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGroupRunnerBoundsConcurrency(t *testing.T) {
	runner := NewGroupRunner(2)
	var active, peak, total int32
	runner.Each(context.Background(), 8, func(ctx context.Context, i int) {
		cur := atomic.AddInt32(&active, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		atomic.AddInt32(&total, 1)
	})
	if got := atomic.LoadInt32(&total); got != 8 {
		t.Errorf("units run = %d, want 8", got)
	}
	if got := atomic.LoadInt32(&peak); got > 2 {
		t.Errorf("peak concurrency = %d, want at most 2", got)
	}
}

func TestGroupRunnerDefaultsWorkerBound(t *testing.T) {
	runner := NewGroupRunner(0)
	var mu sync.Mutex
	seen := make(map[int]bool)
	runner.Each(context.Background(), 5, func(ctx context.Context, i int) {
		mu.Lock()
		seen[i] = true
		mu.Unlock()
	})
	if len(seen) != 5 {
		t.Errorf("indices seen = %d, want 5", len(seen))
	}
	for i := 0; i < 5; i++ {
		if !seen[i] {
			t.Errorf("index %d never ran", i)
		}
	}
}

func TestGroupRunnerEmptyInput(t *testing.T) {
	NewGroupRunner(3).Each(context.Background(), 0, func(ctx context.Context, i int) {
		t.Error("unit ran for empty input")
	})
}
