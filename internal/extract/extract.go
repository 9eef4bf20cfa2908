// Package extract runs the attribute extraction flows. Text documents go to
// the model as a single prompt with the document inlined; image documents go
// as multimodal conversations, chunked page-wise so arbitrarily long files
// fit the provider's per-request limits.
//
// Both flows persist their result under the attributes/ prefix of the
// artifact store and return it, so a caller gets the same payload whether it
// reads the response or the stored object.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/haasonsaas/quarry/internal/observability"
	"github.com/haasonsaas/quarry/internal/store"
	"github.com/haasonsaas/quarry/pkg/models"
)

// Task is the unit of work for one document. The orchestrator builds one
// Task per entry in the batch request; by this point Name-only few-shot
// references have been resolved to full examples.
type Task struct {
	// FileKey locates the document in the artifact store.
	FileKey string

	// OriginalFileName is the caller-facing name carried into the result.
	OriginalFileName string

	// InlineText bypasses the artifact store for the text flow. Tasks
	// without a FileKey are not persisted.
	InlineText string

	Attributes   []models.AttributeSpec
	Instructions string
	FewShots     []models.FewShotExample
	Params       models.ModelParams

	// ChunkSize is the page count per image chunk. Zero means
	// models.DefaultChunkSize.
	ChunkSize int

	// Parallel lets image chunks run concurrently.
	Parallel bool
}

// Options carries the observability plumbing shared by both extractors.
// Every field may be nil.
type Options struct {
	Logger  *observability.Logger
	Metrics *observability.Metrics
	Events  *observability.EventRecorder
	Tracer  *observability.Tracer
}

// readArtifact loads an object into memory, mapping a missing key to
// ArtifactUnavailable.
func readArtifact(ctx context.Context, gw store.Gateway, key string) ([]byte, error) {
	rc, err := gw.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, models.Errorf(models.ErrArtifactUnavailable, "document %s not found", key)
		}
		return nil, models.Errorf(models.ErrArtifactUnavailable, "document %s: %v", key, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, models.Errorf(models.ErrArtifactUnavailable, "read document %s: %v", key, err)
	}
	return data, nil
}

// persistResult stores the result JSON under the attributes/ prefix. Tasks
// without a file key have nowhere to persist to and are skipped.
func persistResult(ctx context.Context, gw store.Gateway, result *models.DocumentResult) error {
	if result.FileKey == "" {
		return nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return models.Errorf(models.ErrParsingStageFailed, "encode result for %s: %v", result.FileKey, err)
	}
	if err := gw.Put(ctx, store.ResultKey(result.FileKey), bytes.NewReader(data), "application/json"); err != nil {
		return models.Errorf(models.ErrArtifactUnavailable, "persist result for %s: %v", result.FileKey, err)
	}
	return nil
}
