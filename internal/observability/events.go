// Package observability provides logging, tracing, and event timeline capabilities.
// This file implements the event timeline for debugging and replaying extraction runs.
package observability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// EventType categorizes events for filtering and display.
type EventType string

const (
	EventTypeRunStart      EventType = "run.start"
	EventTypeRunEnd        EventType = "run.end"
	EventTypeRunError      EventType = "run.error"
	EventTypeDocStart      EventType = "doc.start"
	EventTypeDocEnd        EventType = "doc.end"
	EventTypeDocError      EventType = "doc.error"
	EventTypeChunkStart    EventType = "chunk.start"
	EventTypeChunkEnd      EventType = "chunk.end"
	EventTypeChunkError    EventType = "chunk.error"
	EventTypeLLMRequest    EventType = "llm.request"
	EventTypeLLMRetry      EventType = "llm.retry"
	EventTypeLLMResponse   EventType = "llm.response"
	EventTypeLLMError      EventType = "llm.error"
	EventTypeStoreUpload   EventType = "store.upload"
	EventTypeStoreDownload EventType = "store.download"
	EventTypeCustom        EventType = "custom"
)

// Event represents a single event in the timeline.
type Event struct {
	ID          string                 `json:"id"`
	Type        EventType              `json:"type"`
	Timestamp   time.Time              `json:"timestamp"`
	RunID       string                 `json:"run_id,omitempty"`
	FileKey     string                 `json:"file_key,omitempty"`
	ChunkIndex  *int                   `json:"chunk_index,omitempty"`
	Name        string                 `json:"name,omitempty"`
	Description string                 `json:"description,omitempty"`
	Data        map[string]interface{} `json:"data,omitempty"`
	Duration    time.Duration          `json:"duration_ns,omitempty"`
	Error       string                 `json:"error,omitempty"`
	TraceID     string                 `json:"trace_id,omitempty"`
}

// EventStore stores and retrieves events for debugging.
type EventStore interface {
	// Record stores an event.
	Record(event *Event) error

	// GetByRunID returns all events for a run, sorted by timestamp.
	GetByRunID(runID string) ([]*Event, error)

	// GetByFileKey returns all events for a document, sorted by timestamp.
	GetByFileKey(fileKey string) ([]*Event, error)

	// GetByTimeRange returns events within a time range.
	GetByTimeRange(start, end time.Time) ([]*Event, error)

	// GetByType returns events of a specific type.
	GetByType(eventType EventType, limit int) ([]*Event, error)

	// Get returns a single event by ID.
	Get(id string) (*Event, error)

	// Delete removes events older than the given duration.
	Delete(olderThan time.Duration) (int, error)
}

// MemoryEventStore is an in-memory implementation of EventStore.
type MemoryEventStore struct {
	mu        sync.RWMutex
	events    map[string]*Event
	byRunID   map[string][]string // runID -> eventIDs
	byFileKey map[string][]string // fileKey -> eventIDs
	maxSize   int
}

// NewMemoryEventStore creates a new in-memory event store.
func NewMemoryEventStore(maxSize int) *MemoryEventStore {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &MemoryEventStore{
		events:    make(map[string]*Event),
		byRunID:   make(map[string][]string),
		byFileKey: make(map[string][]string),
		maxSize:   maxSize,
	}
}

func (s *MemoryEventStore) Record(event *Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}
	if event.ID == "" {
		event.ID = generateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Enforce max size
	if len(s.events) >= s.maxSize {
		s.evictOldest()
	}

	s.events[event.ID] = event

	if event.RunID != "" {
		s.byRunID[event.RunID] = append(s.byRunID[event.RunID], event.ID)
	}
	if event.FileKey != "" {
		s.byFileKey[event.FileKey] = append(s.byFileKey[event.FileKey], event.ID)
	}

	return nil
}

func (s *MemoryEventStore) GetByRunID(runID string) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byRunID[runID]
	events := make([]*Event, 0, len(ids))
	for _, id := range ids {
		if e, ok := s.events[id]; ok {
			events = append(events, e)
		}
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})

	return events, nil
}

func (s *MemoryEventStore) GetByFileKey(fileKey string) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byFileKey[fileKey]
	events := make([]*Event, 0, len(ids))
	for _, id := range ids {
		if e, ok := s.events[id]; ok {
			events = append(events, e)
		}
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})

	return events, nil
}

func (s *MemoryEventStore) GetByTimeRange(start, end time.Time) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []*Event
	for _, e := range s.events {
		if (e.Timestamp.Equal(start) || e.Timestamp.After(start)) &&
			(e.Timestamp.Equal(end) || e.Timestamp.Before(end)) {
			events = append(events, e)
		}
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})

	return events, nil
}

func (s *MemoryEventStore) GetByType(eventType EventType, limit int) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []*Event
	for _, e := range s.events {
		if e.Type == eventType {
			events = append(events, e)
		}
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp) // Most recent first
	})

	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}

	return events, nil
}

func (s *MemoryEventStore) Get(id string) (*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("event not found: %s", id)
	}
	return e, nil
}

func (s *MemoryEventStore) Delete(olderThan time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	deleted := 0

	for id, e := range s.events {
		if e.Timestamp.Before(cutoff) {
			delete(s.events, id)
			deleted++
		}
	}

	// Clean up indices
	for runID, ids := range s.byRunID {
		var remaining []string
		for _, id := range ids {
			if _, ok := s.events[id]; ok {
				remaining = append(remaining, id)
			}
		}
		if len(remaining) == 0 {
			delete(s.byRunID, runID)
		} else {
			s.byRunID[runID] = remaining
		}
	}

	for fileKey, ids := range s.byFileKey {
		var remaining []string
		for _, id := range ids {
			if _, ok := s.events[id]; ok {
				remaining = append(remaining, id)
			}
		}
		if len(remaining) == 0 {
			delete(s.byFileKey, fileKey)
		} else {
			s.byFileKey[fileKey] = remaining
		}
	}

	return deleted, nil
}

func (s *MemoryEventStore) evictOldest() {
	// Find and remove oldest 10% of events
	toRemove := s.maxSize / 10
	if toRemove < 1 {
		toRemove = 1
	}

	var events []*Event
	for _, e := range s.events {
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})

	for i := 0; i < toRemove && i < len(events); i++ {
		delete(s.events, events[i].ID)
	}
}

// EventRecorder provides a convenient API for recording events.
type EventRecorder struct {
	store  EventStore
	logger *Logger
}

// NewEventRecorder creates a new event recorder.
func NewEventRecorder(store EventStore, logger *Logger) *EventRecorder {
	return &EventRecorder{
		store:  store,
		logger: logger,
	}
}

// Record records an event, extracting correlation IDs from context.
func (r *EventRecorder) Record(ctx context.Context, eventType EventType, name string, data map[string]interface{}) error {
	event := &Event{
		ID:        generateEventID(),
		Type:      eventType,
		Timestamp: time.Now(),
		RunID:     GetRunID(ctx),
		FileKey:   GetDocument(ctx),
		Name:      name,
		Data:      data,
		TraceID:   GetTraceID(ctx),
	}

	if r.logger != nil {
		r.logger.Debug(ctx, "event recorded",
			"event_type", string(eventType),
			"event_name", name,
			"event_id", event.ID,
		)
	}

	return r.store.Record(event)
}

// RecordError records an error event.
func (r *EventRecorder) RecordError(ctx context.Context, eventType EventType, name string, err error, data map[string]interface{}) error {
	if data == nil {
		data = make(map[string]interface{})
	}
	data["error"] = err.Error()

	event := &Event{
		ID:        generateEventID(),
		Type:      eventType,
		Timestamp: time.Now(),
		RunID:     GetRunID(ctx),
		FileKey:   GetDocument(ctx),
		Name:      name,
		Data:      data,
		Error:     err.Error(),
		TraceID:   GetTraceID(ctx),
	}

	if r.logger != nil {
		r.logger.Error(ctx, "error event recorded",
			"event_type", string(eventType),
			"event_name", name,
			"event_id", event.ID,
			"error", err,
		)
	}

	return r.store.Record(event)
}

// RecordRunStart records a batch run start event.
func (r *EventRecorder) RecordRunStart(ctx context.Context, runID string, data map[string]interface{}) error {
	ctx = AddRunID(ctx, runID)
	return r.Record(ctx, EventTypeRunStart, "run_start", data)
}

// RecordRunEnd records a batch run end event.
func (r *EventRecorder) RecordRunEnd(ctx context.Context, duration time.Duration, err error) error {
	data := map[string]interface{}{
		"duration_ms": duration.Milliseconds(),
	}
	if err != nil {
		return r.RecordError(ctx, EventTypeRunError, "run_error", err, data)
	}
	return r.Record(ctx, EventTypeRunEnd, "run_end", data)
}

// RecordDocStart records the start of one document's pipeline run.
func (r *EventRecorder) RecordDocStart(ctx context.Context, fileKey, parsingMode string) error {
	ctx = AddDocument(ctx, fileKey)
	return r.Record(ctx, EventTypeDocStart, fileKey, map[string]interface{}{
		"parsing_mode": parsingMode,
	})
}

// RecordDocEnd records the end of one document's pipeline run.
func (r *EventRecorder) RecordDocEnd(ctx context.Context, fileKey string, duration time.Duration, err error) error {
	ctx = AddDocument(ctx, fileKey)
	data := map[string]interface{}{
		"duration_ms": duration.Milliseconds(),
	}
	if err != nil {
		return r.RecordError(ctx, EventTypeDocError, fileKey, err, data)
	}
	return r.Record(ctx, EventTypeDocEnd, fileKey, data)
}

// RecordChunkStart records the start of an image chunk invocation.
func (r *EventRecorder) RecordChunkStart(ctx context.Context, index, pageCount int) error {
	event := &Event{
		ID:         generateEventID(),
		Type:       EventTypeChunkStart,
		Timestamp:  time.Now(),
		RunID:      GetRunID(ctx),
		FileKey:    GetDocument(ctx),
		ChunkIndex: &index,
		Name:       fmt.Sprintf("chunk_%d", index),
		Data:       map[string]interface{}{"pages": pageCount},
		TraceID:    GetTraceID(ctx),
	}
	return r.store.Record(event)
}

// RecordChunkEnd records the end of an image chunk invocation.
func (r *EventRecorder) RecordChunkEnd(ctx context.Context, index int, duration time.Duration, err error) error {
	event := &Event{
		ID:         generateEventID(),
		Type:       EventTypeChunkEnd,
		Timestamp:  time.Now(),
		RunID:      GetRunID(ctx),
		FileKey:    GetDocument(ctx),
		ChunkIndex: &index,
		Name:       fmt.Sprintf("chunk_%d", index),
		Data:       map[string]interface{}{"duration_ms": duration.Milliseconds()},
		Duration:   duration,
		TraceID:    GetTraceID(ctx),
	}
	if err != nil {
		event.Type = EventTypeChunkError
		event.Error = err.Error()
		event.Data["error"] = err.Error()
	}
	return r.store.Record(event)
}

// RecordLLMRequest records an outbound LLM request.
func (r *EventRecorder) RecordLLMRequest(ctx context.Context, provider, model string) error {
	return r.Record(ctx, EventTypeLLMRequest, model, map[string]interface{}{
		"provider": provider,
		"model":    model,
	})
}

// RecordLLMRetry records one throttling retry with its backoff delay.
func (r *EventRecorder) RecordLLMRetry(ctx context.Context, provider, model string, attempt int, delay time.Duration) error {
	return r.Record(ctx, EventTypeLLMRetry, model, map[string]interface{}{
		"provider": provider,
		"model":    model,
		"attempt":  attempt,
		"delay_ms": delay.Milliseconds(),
	})
}

// RecordLLMResponse records an LLM response, or an llm.error event when err is non-nil.
func (r *EventRecorder) RecordLLMResponse(ctx context.Context, provider, model string, duration time.Duration, inputTokens, outputTokens int, err error) error {
	data := map[string]interface{}{
		"provider":      provider,
		"model":         model,
		"duration_ms":   duration.Milliseconds(),
		"input_tokens":  inputTokens,
		"output_tokens": outputTokens,
	}
	if err != nil {
		return r.RecordError(ctx, EventTypeLLMError, model, err, data)
	}
	return r.Record(ctx, EventTypeLLMResponse, model, data)
}

// Timeline represents a sequence of events for display.
type Timeline struct {
	RunID     string           `json:"run_id"`
	StartTime time.Time        `json:"start_time"`
	EndTime   time.Time        `json:"end_time"`
	Duration  time.Duration    `json:"duration"`
	Events    []*Event         `json:"events"`
	Summary   *TimelineSummary `json:"summary"`
}

// TimelineSummary provides aggregate statistics for a timeline.
type TimelineSummary struct {
	TotalEvents   int           `json:"total_events"`
	ErrorCount    int           `json:"error_count"`
	Documents     int           `json:"documents"`
	Chunks        int           `json:"chunks"`
	LLMCalls      int           `json:"llm_calls"`
	LLMRetries    int           `json:"llm_retries"`
	TotalDuration time.Duration `json:"total_duration"`
}

// BuildTimeline creates a timeline from events.
func BuildTimeline(events []*Event) *Timeline {
	if len(events) == 0 {
		return &Timeline{Summary: &TimelineSummary{}}
	}

	// Sort by timestamp
	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})

	timeline := &Timeline{
		Events:    events,
		StartTime: events[0].Timestamp,
		EndTime:   events[len(events)-1].Timestamp,
		Duration:  events[len(events)-1].Timestamp.Sub(events[0].Timestamp),
		Summary:   &TimelineSummary{TotalEvents: len(events)},
	}

	// Extract run ID from first event that carries one
	for _, e := range events {
		if e.RunID != "" {
			timeline.RunID = e.RunID
			break
		}
	}

	// Compute summary
	for _, e := range events {
		if e.Error != "" {
			timeline.Summary.ErrorCount++
		}
		switch e.Type {
		case EventTypeDocStart:
			timeline.Summary.Documents++
		case EventTypeChunkStart:
			timeline.Summary.Chunks++
		case EventTypeLLMRequest:
			timeline.Summary.LLMCalls++
		case EventTypeLLMRetry:
			timeline.Summary.LLMRetries++
		}
		timeline.Summary.TotalDuration += e.Duration
	}

	return timeline
}

// FormatTimeline formats a timeline for display.
func FormatTimeline(timeline *Timeline) string {
	if timeline == nil || len(timeline.Events) == 0 {
		return "No events found"
	}

	var result string
	result += fmt.Sprintf("=== Timeline for Run: %s ===\n", timeline.RunID)
	result += fmt.Sprintf("Duration: %v\n", timeline.Duration)
	result += fmt.Sprintf("Events: %d (Errors: %d)\n", timeline.Summary.TotalEvents, timeline.Summary.ErrorCount)
	result += fmt.Sprintf("Documents: %d, Chunks: %d, LLM calls: %d, Retries: %d\n\n",
		timeline.Summary.Documents, timeline.Summary.Chunks, timeline.Summary.LLMCalls, timeline.Summary.LLMRetries)

	for i, e := range timeline.Events {
		prefix := "├─"
		if i == len(timeline.Events)-1 {
			prefix = "└─"
		}

		timestamp := e.Timestamp.Format("15:04:05.000")
		errorMark := ""
		if e.Error != "" {
			errorMark = " ❌"
		}

		result += fmt.Sprintf("%s [%s] %s: %s%s\n", prefix, timestamp, e.Type, e.Name, errorMark)

		if e.Duration > 0 {
			result += fmt.Sprintf("   Duration: %v\n", e.Duration)
		}
		if e.FileKey != "" {
			result += fmt.Sprintf("   File: %s\n", e.FileKey)
		}
		if e.Error != "" {
			result += fmt.Sprintf("   Error: %s\n", e.Error)
		}
	}

	return result
}

var eventIDCounter int64
var eventIDMu sync.Mutex

func generateEventID() string {
	eventIDMu.Lock()
	defer eventIDMu.Unlock()
	eventIDCounter++
	return fmt.Sprintf("evt_%d_%d", time.Now().UnixNano(), eventIDCounter)
}
