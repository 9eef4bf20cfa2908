package config

import (
	"fmt"
	"time"
)

// ExtractionConfig tunes document fan-out and page chunking.
type ExtractionConfig struct {
	// Workers is how many documents of a batch run concurrently.
	Workers int `yaml:"workers"`

	// DocumentTimeout bounds a single document end to end, including
	// retries. A document that exceeds it fails without touching the
	// rest of the batch.
	DocumentTimeout time.Duration `yaml:"document_timeout"`

	// ChunkSize is the default number of pages per model call for
	// image-based parsing. Requests may override it.
	ChunkSize int `yaml:"chunk_size"`

	// ParallelChunks processes a document's chunks concurrently.
	// Explicit false forces sequential chunk processing.
	ParallelChunks *bool `yaml:"parallel_chunks"`

	// MaxChunkWorkers caps concurrent chunks per document.
	MaxChunkWorkers int `yaml:"max_chunk_workers"`
}

func applyExtractionDefaults(cfg *ExtractionConfig) {
	if cfg.Workers == 0 {
		cfg.Workers = 4
	}
	if cfg.DocumentTimeout == 0 {
		cfg.DocumentTimeout = 15 * time.Minute
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = 10
	}
	if cfg.ParallelChunks == nil {
		parallel := true
		cfg.ParallelChunks = &parallel
	}
	if cfg.MaxChunkWorkers == 0 {
		cfg.MaxChunkWorkers = 10
	}
}

func (c *ExtractionConfig) validate() []string {
	var issues []string
	if c.Workers < 1 {
		issues = append(issues, fmt.Sprintf("extraction.workers must be at least 1 (got %d)", c.Workers))
	}
	if c.DocumentTimeout <= 0 {
		issues = append(issues, fmt.Sprintf("extraction.document_timeout must be positive (got %s)", c.DocumentTimeout))
	}
	if c.ChunkSize < 1 {
		issues = append(issues, fmt.Sprintf("extraction.chunk_size must be at least 1 (got %d)", c.ChunkSize))
	}
	if c.MaxChunkWorkers < 1 {
		issues = append(issues, fmt.Sprintf("extraction.max_chunk_workers must be at least 1 (got %d)", c.MaxChunkWorkers))
	}
	return issues
}

// ChunksInParallel reports whether chunk fan-out is enabled.
func (c *ExtractionConfig) ChunksInParallel() bool {
	return c.ParallelChunks == nil || *c.ParallelChunks
}
