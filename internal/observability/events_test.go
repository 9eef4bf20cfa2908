package observability

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestMemoryEventStore(t *testing.T) {
	store := NewMemoryEventStore(100)

	t.Run("record and get", func(t *testing.T) {
		event := &Event{
			Type:    EventTypeRunStart,
			RunID:   "run-1",
			FileKey: "originals/a.pdf",
			Name:    "test_event",
		}

		err := store.Record(event)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if event.ID == "" {
			t.Error("expected ID to be generated")
		}
		if event.Timestamp.IsZero() {
			t.Error("expected timestamp to be set")
		}

		got, err := store.Get(event.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Name != "test_event" {
			t.Errorf("expected 'test_event', got %s", got.Name)
		}
	})

	t.Run("get by run ID", func(t *testing.T) {
		// Record multiple events for same run
		for i := 0; i < 5; i++ {
			store.Record(&Event{
				Type:  EventTypeDocStart,
				RunID: "run-query-test",
				Name:  "event",
			})
		}

		events, err := store.GetByRunID("run-query-test")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(events) != 5 {
			t.Errorf("expected 5 events, got %d", len(events))
		}
	})

	t.Run("get by file key", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			store.Record(&Event{
				Type:    EventTypeChunkEnd,
				FileKey: "originals/query-test.pdf",
				Name:    "chunk",
			})
		}

		events, err := store.GetByFileKey("originals/query-test.pdf")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(events) != 3 {
			t.Errorf("expected 3 events, got %d", len(events))
		}
	})

	t.Run("get by type", func(t *testing.T) {
		for i := 0; i < 4; i++ {
			store.Record(&Event{
				Type: EventTypeLLMRequest,
				Name: "llm",
			})
		}

		events, err := store.GetByType(EventTypeLLMRequest, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(events) != 2 {
			t.Errorf("expected 2 events (limited), got %d", len(events))
		}
	})

	t.Run("get by time range", func(t *testing.T) {
		start := time.Now()
		time.Sleep(10 * time.Millisecond)

		store.Record(&Event{
			Type: EventTypeCustom,
			Name: "in_range",
		})

		time.Sleep(10 * time.Millisecond)
		end := time.Now()

		events, err := store.GetByTimeRange(start, end)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		found := false
		for _, e := range events {
			if e.Name == "in_range" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected to find 'in_range' event")
		}
	})

	t.Run("delete old events", func(t *testing.T) {
		deleteStore := NewMemoryEventStore(100)

		// Record old event
		oldEvent := &Event{
			Type:      EventTypeRunEnd,
			Timestamp: time.Now().Add(-2 * time.Hour),
			Name:      "old_event",
		}
		deleteStore.Record(oldEvent)

		// Record new event
		newEvent := &Event{
			Type: EventTypeRunStart,
			Name: "new_event",
		}
		deleteStore.Record(newEvent)

		deleted, err := deleteStore.Delete(time.Hour)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if deleted != 1 {
			t.Errorf("expected 1 deleted, got %d", deleted)
		}

		// Old event should be gone
		_, err = deleteStore.Get(oldEvent.ID)
		if err == nil {
			t.Error("expected old event to be deleted")
		}

		// New event should still exist
		_, err = deleteStore.Get(newEvent.ID)
		if err != nil {
			t.Error("expected new event to still exist")
		}
	})

	t.Run("max size eviction", func(t *testing.T) {
		smallStore := NewMemoryEventStore(10)

		for i := 0; i < 15; i++ {
			smallStore.Record(&Event{
				Type: EventTypeCustom,
				Name: "overflow",
			})
		}

		// Should have evicted some events
		if len(smallStore.events) > 10 {
			t.Errorf("expected max 10 events, got %d", len(smallStore.events))
		}
	})

	t.Run("nil event error", func(t *testing.T) {
		err := store.Record(nil)
		if err == nil {
			t.Error("expected error for nil event")
		}
	})

	t.Run("not found error", func(t *testing.T) {
		_, err := store.Get("nonexistent")
		if err == nil {
			t.Error("expected error for nonexistent event")
		}
	})
}

func TestEventRecorder(t *testing.T) {
	store := NewMemoryEventStore(100)
	recorder := NewEventRecorder(store, nil)

	t.Run("record with context", func(t *testing.T) {
		ctx := context.Background()
		ctx = AddRunID(ctx, "run-recorder")
		ctx = AddDocument(ctx, "originals/recorder.pdf")

		err := recorder.Record(ctx, EventTypeCustom, "test_event", map[string]interface{}{
			"key": "value",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		events, _ := store.GetByRunID("run-recorder")
		if len(events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(events))
		}

		e := events[0]
		if e.RunID != "run-recorder" {
			t.Errorf("expected run ID 'run-recorder', got %s", e.RunID)
		}
		if e.FileKey != "originals/recorder.pdf" {
			t.Errorf("expected file key 'originals/recorder.pdf', got %s", e.FileKey)
		}
	})

	t.Run("record error", func(t *testing.T) {
		ctx := AddRunID(context.Background(), "run-error")
		testErr := errors.New("something went wrong")

		err := recorder.RecordError(ctx, EventTypeRunError, "error_event", testErr, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		events, _ := store.GetByRunID("run-error")
		if len(events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(events))
		}

		e := events[0]
		if e.Error != "something went wrong" {
			t.Errorf("expected error message, got %s", e.Error)
		}
	})

	t.Run("record doc start and end", func(t *testing.T) {
		ctx := AddRunID(context.Background(), "run-doc")

		if err := recorder.RecordDocStart(ctx, "originals/doc.pdf", "TEXT_LLM"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := recorder.RecordDocEnd(ctx, "originals/doc.pdf", 250*time.Millisecond, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		events, _ := store.GetByFileKey("originals/doc.pdf")
		if len(events) != 2 {
			t.Fatalf("expected 2 events, got %d", len(events))
		}
		if events[0].Type != EventTypeDocStart {
			t.Errorf("expected doc.start type, got %s", events[0].Type)
		}
		if events[0].Data["parsing_mode"] != "TEXT_LLM" {
			t.Errorf("expected parsing mode in data, got %v", events[0].Data)
		}
		if events[1].Type != EventTypeDocEnd {
			t.Errorf("expected doc.end type, got %s", events[1].Type)
		}
	})

	t.Run("record doc error", func(t *testing.T) {
		ctx := AddRunID(context.Background(), "run-doc-error")

		err := recorder.RecordDocEnd(ctx, "originals/bad.pdf", 50*time.Millisecond, errors.New("parsing failed"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		events, _ := store.GetByFileKey("originals/bad.pdf")
		e := events[0]
		if e.Type != EventTypeDocError {
			t.Errorf("expected doc.error type, got %s", e.Type)
		}
		if e.Error != "parsing failed" {
			t.Errorf("expected error 'parsing failed', got %s", e.Error)
		}
	})

	t.Run("record chunk lifecycle", func(t *testing.T) {
		ctx := AddRunID(context.Background(), "run-chunk")
		ctx = AddDocument(ctx, "originals/chunked.pdf")

		if err := recorder.RecordChunkStart(ctx, 2, 10); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := recorder.RecordChunkEnd(ctx, 2, 80*time.Millisecond, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := recorder.RecordChunkEnd(ctx, 3, 20*time.Millisecond, errors.New("boom")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		events, _ := store.GetByRunID("run-chunk")
		if len(events) != 3 {
			t.Fatalf("expected 3 events, got %d", len(events))
		}

		start := events[0]
		if start.Type != EventTypeChunkStart {
			t.Errorf("expected chunk.start, got %s", start.Type)
		}
		if start.ChunkIndex == nil || *start.ChunkIndex != 2 {
			t.Errorf("expected chunk index 2, got %v", start.ChunkIndex)
		}

		failed := events[2]
		if failed.Type != EventTypeChunkError {
			t.Errorf("expected chunk.error, got %s", failed.Type)
		}
		if failed.Error != "boom" {
			t.Errorf("expected error 'boom', got %s", failed.Error)
		}
	})

	t.Run("record llm lifecycle", func(t *testing.T) {
		ctx := AddRunID(context.Background(), "run-llm")

		if err := recorder.RecordLLMRequest(ctx, "bedrock", "anthropic.claude-3"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := recorder.RecordLLMRetry(ctx, "bedrock", "anthropic.claude-3", 1, 2*time.Second); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := recorder.RecordLLMResponse(ctx, "bedrock", "anthropic.claude-3", time.Second, 100, 500, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		events, _ := store.GetByRunID("run-llm")
		if len(events) != 3 {
			t.Fatalf("expected 3 events, got %d", len(events))
		}

		retry := events[1]
		if retry.Type != EventTypeLLMRetry {
			t.Errorf("expected llm.retry, got %s", retry.Type)
		}
		if retry.Data["attempt"] != 1 {
			t.Errorf("expected attempt 1 in data, got %v", retry.Data["attempt"])
		}
		if retry.Data["delay_ms"] != int64(2000) {
			t.Errorf("expected delay_ms 2000 in data, got %v", retry.Data["delay_ms"])
		}

		resp := events[2]
		if resp.Type != EventTypeLLMResponse {
			t.Errorf("expected llm.response, got %s", resp.Type)
		}
		if resp.Data["input_tokens"] != 100 {
			t.Errorf("expected input_tokens 100, got %v", resp.Data["input_tokens"])
		}
	})

	t.Run("record run start/end", func(t *testing.T) {
		ctx := context.Background()

		err := recorder.RecordRunStart(ctx, "run-lifecycle", map[string]interface{}{
			"documents": 3,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		ctx = AddRunID(ctx, "run-lifecycle")
		err = recorder.RecordRunEnd(ctx, 500*time.Millisecond, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		events, _ := store.GetByRunID("run-lifecycle")
		if len(events) != 2 {
			t.Fatalf("expected 2 events, got %d", len(events))
		}
	})
}

func TestTimeline(t *testing.T) {
	t.Run("build timeline", func(t *testing.T) {
		events := []*Event{
			{
				ID:        "1",
				Type:      EventTypeRunStart,
				Timestamp: time.Now().Add(-100 * time.Millisecond),
				RunID:     "run-timeline",
			},
			{
				ID:        "2",
				Type:      EventTypeDocStart,
				Timestamp: time.Now().Add(-80 * time.Millisecond),
				RunID:     "run-timeline",
			},
			{
				ID:        "3",
				Type:      EventTypeChunkStart,
				Timestamp: time.Now().Add(-60 * time.Millisecond),
				RunID:     "run-timeline",
			},
			{
				ID:        "4",
				Type:      EventTypeLLMRequest,
				Timestamp: time.Now().Add(-50 * time.Millisecond),
				RunID:     "run-timeline",
			},
			{
				ID:        "5",
				Type:      EventTypeLLMRetry,
				Timestamp: time.Now().Add(-40 * time.Millisecond),
				RunID:     "run-timeline",
			},
			{
				ID:        "6",
				Type:      EventTypeLLMError,
				Timestamp: time.Now().Add(-30 * time.Millisecond),
				RunID:     "run-timeline",
				Error:     "rate limited",
			},
			{
				ID:        "7",
				Type:      EventTypeRunEnd,
				Timestamp: time.Now(),
				RunID:     "run-timeline",
			},
		}

		timeline := BuildTimeline(events)

		if timeline.RunID != "run-timeline" {
			t.Errorf("expected run ID 'run-timeline', got %s", timeline.RunID)
		}
		if timeline.Summary.TotalEvents != 7 {
			t.Errorf("expected 7 total events, got %d", timeline.Summary.TotalEvents)
		}
		if timeline.Summary.ErrorCount != 1 {
			t.Errorf("expected 1 error, got %d", timeline.Summary.ErrorCount)
		}
		if timeline.Summary.Documents != 1 {
			t.Errorf("expected 1 document, got %d", timeline.Summary.Documents)
		}
		if timeline.Summary.Chunks != 1 {
			t.Errorf("expected 1 chunk, got %d", timeline.Summary.Chunks)
		}
		if timeline.Summary.LLMCalls != 1 {
			t.Errorf("expected 1 LLM call, got %d", timeline.Summary.LLMCalls)
		}
		if timeline.Summary.LLMRetries != 1 {
			t.Errorf("expected 1 LLM retry, got %d", timeline.Summary.LLMRetries)
		}
	})

	t.Run("empty timeline", func(t *testing.T) {
		timeline := BuildTimeline([]*Event{})
		if timeline.Summary == nil {
			t.Error("expected summary to be non-nil")
		}
		if timeline.Summary.TotalEvents != 0 {
			t.Errorf("expected 0 events, got %d", timeline.Summary.TotalEvents)
		}
	})

	t.Run("format timeline", func(t *testing.T) {
		events := []*Event{
			{
				ID:        "1",
				Type:      EventTypeRunStart,
				Timestamp: time.Now().Add(-100 * time.Millisecond),
				RunID:     "run-format",
				Name:      "run_start",
			},
			{
				ID:        "2",
				Type:      EventTypeDocStart,
				Timestamp: time.Now().Add(-50 * time.Millisecond),
				RunID:     "run-format",
				Name:      "originals/invoice.pdf",
				FileKey:   "originals/invoice.pdf",
			},
			{
				ID:        "3",
				Type:      EventTypeDocError,
				Timestamp: time.Now(),
				RunID:     "run-format",
				Name:      "originals/invoice.pdf",
				Error:     "timeout",
				Duration:  50 * time.Millisecond,
			},
		}

		timeline := BuildTimeline(events)
		output := FormatTimeline(timeline)

		if !strings.Contains(output, "run-format") {
			t.Error("expected output to contain run ID")
		}
		if !strings.Contains(output, "originals/invoice.pdf") {
			t.Error("expected output to contain file key")
		}
		if !strings.Contains(output, "timeout") {
			t.Error("expected output to contain error")
		}
		if !strings.Contains(output, "❌") {
			t.Error("expected output to contain error marker")
		}
	})

	t.Run("format nil timeline", func(t *testing.T) {
		output := FormatTimeline(nil)
		if output != "No events found" {
			t.Errorf("expected 'No events found', got %s", output)
		}
	})
}

func TestEventTypes(t *testing.T) {
	// Verify event type constants
	types := []EventType{
		EventTypeRunStart,
		EventTypeRunEnd,
		EventTypeRunError,
		EventTypeDocStart,
		EventTypeDocEnd,
		EventTypeDocError,
		EventTypeChunkStart,
		EventTypeChunkEnd,
		EventTypeChunkError,
		EventTypeLLMRequest,
		EventTypeLLMRetry,
		EventTypeLLMResponse,
		EventTypeLLMError,
		EventTypeStoreUpload,
		EventTypeStoreDownload,
		EventTypeCustom,
	}

	for _, et := range types {
		if string(et) == "" {
			t.Errorf("event type %v has empty string value", et)
		}
	}
}
