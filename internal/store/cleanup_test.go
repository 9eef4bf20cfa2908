package store

import (
	"context"
	"testing"
	"time"
)

func TestCleanerRun(t *testing.T) {
	gw := newFakeGateway("quarry-docs")
	ctx := context.Background()

	gw.objects["uploaded/old.pdf"] = []byte("old")
	gw.modTimes["uploaded/old.pdf"] = time.Now().Add(-48 * time.Hour)
	gw.objects["uploaded/new.pdf"] = []byte("new")
	gw.modTimes["uploaded/new.pdf"] = time.Now()
	gw.objects["bda-outputs/old.json"] = []byte("{}")
	gw.modTimes["bda-outputs/old.json"] = time.Now().Add(-72 * time.Hour)
	gw.objects["originals/old.pdf"] = []byte("source")
	gw.modTimes["originals/old.pdf"] = time.Now().Add(-96 * time.Hour)

	cleaner := NewCleaner(gw, []string{"uploaded/", "bda-outputs/"}, 24*time.Hour, testLogger(), nil)
	removed, err := cleaner.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}

	if _, ok := gw.objects["uploaded/old.pdf"]; ok {
		t.Error("uploaded/old.pdf should have been removed")
	}
	if _, ok := gw.objects["bda-outputs/old.json"]; ok {
		t.Error("bda-outputs/old.json should have been removed")
	}
	if _, ok := gw.objects["uploaded/new.pdf"]; !ok {
		t.Error("uploaded/new.pdf should survive")
	}
	if _, ok := gw.objects["originals/old.pdf"]; !ok {
		t.Error("originals/ must never be pruned")
	}
}

func TestCleanerRejectsBadSchedule(t *testing.T) {
	cleaner := NewCleaner(newFakeGateway("quarry-docs"), []string{"uploaded/"}, time.Hour, testLogger(), nil)
	if err := cleaner.Start(context.Background(), "not a cron expr"); err == nil {
		t.Fatalf("expected error for invalid schedule")
	}
}

func TestCleanerSkipsZeroModTime(t *testing.T) {
	gw := newFakeGateway("quarry-docs")
	gw.objects["uploaded/unknown-age.pdf"] = []byte("x")
	gw.modTimes["uploaded/unknown-age.pdf"] = time.Time{}

	cleaner := NewCleaner(gw, []string{"uploaded/"}, time.Hour, testLogger(), nil)
	removed, err := cleaner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if removed != 0 {
		t.Fatalf("removed = %d, want 0 for unknown mod time", removed)
	}
}
