// handlers_extract.go implements the one-shot extract command. It runs the
// same orchestrator the server uses, with local filesystem paths accepted
// as document references.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/haasonsaas/quarry/pkg/models"
)

// extractFlags are the request fields settable without a request file.
type extractFlags struct {
	mode         string
	attributes   []string
	instructions string
	model        string
	chunkSize    int
	sequential   bool
}

func runExtract(ctx context.Context, configPath, requestPath string, docs []string, flags extractFlags) error {
	cfg, err := loadConfig(configPath, false)
	if err != nil {
		return err
	}

	req, err := buildRequest(requestPath, docs, flags)
	if err != nil {
		return err
	}

	a, err := buildApp(ctx, cfg, appOptions{localPaths: true})
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	result, err := a.orch.Run(ctx, req)
	if err != nil {
		return err
	}

	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")
	return out.Encode(result)
}

// buildRequest merges the request file, positional documents, and flags.
// Positional documents and flags override the file's fields.
func buildRequest(requestPath string, docs []string, flags extractFlags) (models.ExtractionRequest, error) {
	var req models.ExtractionRequest

	if requestPath != "" {
		data, err := os.ReadFile(requestPath)
		if err != nil {
			return req, fmt.Errorf("read request file: %w", err)
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return req, fmt.Errorf("parse request file %s: %w", requestPath, err)
		}
	}

	if len(docs) > 0 {
		req.Documents = docs
	}
	if flags.mode != "" {
		req.ParsingMode = models.ParsingMode(flags.mode)
	}
	if flags.instructions != "" {
		req.Instructions = flags.instructions
	}
	if flags.model != "" {
		req.ModelParams.ModelID = flags.model
	}
	if flags.chunkSize > 0 {
		req.ChunkSize = flags.chunkSize
	}
	if flags.sequential {
		parallel := false
		req.ParallelChunks = &parallel
	}

	for _, spec := range flags.attributes {
		attr, err := parseAttributeFlag(spec)
		if err != nil {
			return req, err
		}
		req.Attributes = append(req.Attributes, attr)
	}

	return req, nil
}

// parseAttributeFlag parses name:description[:type]. The description may
// itself contain colons when quoted by the shell; the type is only split
// off when the final segment is a known type name.
func parseAttributeFlag(spec string) (models.AttributeSpec, error) {
	name, rest, ok := strings.Cut(spec, ":")
	if !ok || strings.TrimSpace(name) == "" || strings.TrimSpace(rest) == "" {
		return models.AttributeSpec{}, fmt.Errorf("attribute %q must be name:description[:type]", spec)
	}

	attr := models.AttributeSpec{Name: strings.TrimSpace(name)}
	if i := strings.LastIndex(rest, ":"); i >= 0 {
		if t := models.AttributeType(strings.TrimSpace(rest[i+1:])); t.IsValid() && t != "" {
			attr.Type = t
			rest = rest[:i]
		}
	}
	attr.Description = strings.TrimSpace(rest)
	return attr, nil
}
