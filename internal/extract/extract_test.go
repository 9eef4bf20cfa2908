package extract

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/haasonsaas/quarry/internal/llm"
	"github.com/haasonsaas/quarry/internal/prompt"
	"github.com/haasonsaas/quarry/internal/store"
	"github.com/haasonsaas/quarry/pkg/models"
)

// funcInvoker routes Converse through fn and records every request. Safe for
// concurrent chunk fan-out.
type funcInvoker struct {
	fn func(llm.Request) (llm.Response, error)

	mu   sync.Mutex
	reqs []llm.Request
}

func (f *funcInvoker) Converse(_ context.Context, req llm.Request) (llm.Response, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	return f.fn(req)
}

func (f *funcInvoker) requests() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.Request(nil), f.reqs...)
}

// fixedInvoker always answers with the given text.
func fixedInvoker(text string) *funcInvoker {
	return &funcInvoker{fn: func(llm.Request) (llm.Response, error) {
		return llm.Response{Text: text, Usage: llm.Usage{InputTokens: 10, OutputTokens: 5}, StopReason: "end_turn"}, nil
	}}
}

// wordCounter makes token math deterministic in tests.
type wordCounter struct{}

func (wordCounter) Count(s string) int { return len(strings.Fields(s)) }

// stubRasterizer serves canned pages keyed by file name.
type stubRasterizer struct {
	pagesByName map[string][]Page
	err         error
}

func (s stubRasterizer) Pages(_ context.Context, fileName string, _ []byte) ([]Page, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.pagesByName[fileName], nil
}

func newGateway(t *testing.T) *store.LocalGateway {
	t.Helper()
	gw, err := store.NewLocalGateway(t.TempDir())
	if err != nil {
		t.Fatalf("local gateway: %v", err)
	}
	return gw
}

func putObject(t *testing.T, gw store.Gateway, key, body string) {
	t.Helper()
	if err := gw.Put(context.Background(), key, strings.NewReader(body), store.ContentTypeFor(key)); err != nil {
		t.Fatalf("put %s: %v", key, err)
	}
}

// readStoredResult decodes the persisted result JSON for a document key.
func readStoredResult(t *testing.T, gw store.Gateway, fileKey string) map[string]any {
	t.Helper()
	rc, err := gw.Get(context.Background(), store.ResultKey(fileKey))
	if err != nil {
		t.Fatalf("get result for %s: %v", fileKey, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read result: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	return decoded
}

func testRegistry(t *testing.T) *prompt.Registry {
	t.Helper()
	reg, err := prompt.NewRegistry("", nil)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return reg
}

func invoiceAttributes() []models.AttributeSpec {
	return []models.AttributeSpec{
		{Name: "vendor", Description: "the issuing company"},
		{Name: "total", Description: "the invoice total", Type: models.AttributeNumber},
	}
}
