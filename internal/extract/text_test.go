package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/haasonsaas/quarry/internal/store"
	"github.com/haasonsaas/quarry/internal/tokens"
	"github.com/haasonsaas/quarry/pkg/models"
)

func newTextExtractor(t *testing.T, gw store.Gateway, invoker *funcInvoker) *TextExtractor {
	t.Helper()
	return NewTextExtractor(gw, invoker, testRegistry(t), wordCounter{}, Options{})
}

func TestTextExtract(t *testing.T) {
	gw := newGateway(t)
	putObject(t, gw, "originals/notes.txt", "Invoice from ACME for a total of 42.")
	invoker := fixedInvoker("<thinking>found both</thinking>\n<json>\n{\"vendor\": \"ACME\", \"total\": 42}\n</json>")

	x := newTextExtractor(t, gw, invoker)
	result, err := x.Extract(context.Background(), Task{
		FileKey:          "originals/notes.txt",
		OriginalFileName: "notes.txt",
		Attributes:       invoiceAttributes(),
		Params:           models.ModelParams{ModelID: "anthropic.claude-3-5-sonnet-20240620-v1:0"},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if result.Answer["vendor"] != "ACME" || result.Answer["total"] != 42.0 {
		t.Errorf("answer = %#v", result.Answer)
	}
	if !strings.Contains(result.RawAnswer, "<thinking>") {
		t.Errorf("raw answer = %q, want the untouched model reply", result.RawAnswer)
	}
	if result.ChunksProcessed != 0 {
		t.Errorf("chunks processed = %d, want 0 for the text flow", result.ChunksProcessed)
	}

	reqs := invoker.requests()
	if len(reqs) != 1 {
		t.Fatalf("got %d model calls, want 1", len(reqs))
	}
	req := reqs[0]
	if req.System == "" {
		t.Error("system prompt missing")
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" || len(req.Messages[0].Content) != 1 {
		t.Fatalf("unexpected message shape: %#v", req.Messages)
	}
	sent := req.Messages[0].Content[0].Text
	if !strings.Contains(sent, "Invoice from ACME for a total of 42.") {
		t.Error("prompt does not inline the document")
	}
	if !strings.Contains(sent, "1. vendor: the issuing company") {
		t.Error("prompt does not render the attribute list")
	}
	if !strings.Contains(sent, "2. total: the invoice total (must be number).") {
		t.Error("prompt does not render the type constraint")
	}
	if strings.Contains(sent, "{document}") || strings.Contains(sent, "{attributes}") {
		t.Error("prompt still contains unfilled variables")
	}

	stored := readStoredResult(t, gw, "originals/notes.txt")
	if stored["file_key"] != "originals/notes.txt" || stored["original_file_name"] != "notes.txt" {
		t.Errorf("stored identity = %v / %v", stored["file_key"], stored["original_file_name"])
	}
	answer, ok := stored["answer"].(map[string]any)
	if !ok || answer["vendor"] != "ACME" {
		t.Errorf("stored answer = %#v", stored["answer"])
	}
	if _, present := stored["chunks_processed"]; present {
		t.Error("text flow result carries chunks_processed")
	}
}

func TestTextExtractInstructions(t *testing.T) {
	gw := newGateway(t)
	putObject(t, gw, "originals/notes.txt", "body")
	invoker := fixedInvoker("<json>{}</json>")

	x := newTextExtractor(t, gw, invoker)
	_, err := x.Extract(context.Background(), Task{
		FileKey:      "originals/notes.txt",
		Attributes:   invoiceAttributes(),
		Instructions: "Use ISO dates.",
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	sent := invoker.requests()[0].Messages[0].Content[0].Text
	if !strings.Contains(sent, "You must follow these additional instructions:\n<instructions>\nUse ISO dates.\n</instructions>") {
		t.Errorf("prompt lacks the instructions block:\n%s", sent)
	}
}

func TestTextExtractNoInstructions(t *testing.T) {
	gw := newGateway(t)
	putObject(t, gw, "originals/notes.txt", "body")
	invoker := fixedInvoker("<json>{}</json>")

	x := newTextExtractor(t, gw, invoker)
	if _, err := x.Extract(context.Background(), Task{
		FileKey:    "originals/notes.txt",
		Attributes: invoiceAttributes(),
	}); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	sent := invoker.requests()[0].Messages[0].Content[0].Text
	if strings.Contains(sent, "document_level_instructions_placeholder") {
		t.Error("placeholder line survived an empty instructions value")
	}
	if strings.Contains(sent, "You must follow these additional instructions") {
		t.Error("instructions block present without instructions")
	}
}

func TestTextExtractFewShots(t *testing.T) {
	gw := newGateway(t)
	putObject(t, gw, "originals/notes.txt", "body")
	invoker := fixedInvoker("<json>{}</json>")

	x := newTextExtractor(t, gw, invoker)
	_, err := x.Extract(context.Background(), Task{
		FileKey:    "originals/notes.txt",
		Attributes: invoiceAttributes(),
		FewShots: []models.FewShotExample{
			{
				Input:  map[string]any{"text": "Bill from Initech"},
				Output: map[string]any{"vendor": "Initech"},
			},
		},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	sent := invoker.requests()[0].Messages[0].Content[0].Text
	if got := strings.Count(sent, "<example>"); got != 1 {
		t.Errorf("prompt has %d example blocks, want 1", got)
	}
	if !strings.Contains(sent, "\"text\": \"Bill from Initech\"") {
		t.Error("prompt lacks the rendered few-shot input")
	}
	if !strings.Contains(sent, "\"vendor\": \"Initech\"") {
		t.Error("prompt lacks the rendered few-shot output")
	}
	if strings.Contains(sent, "{few_shot_input_0}") {
		t.Error("few-shot variable left unfilled")
	}
}

func TestTextExtractTruncatesLongDocument(t *testing.T) {
	gw := newGateway(t)
	longDoc := strings.TrimSpace(strings.Repeat("word ", 40_000))
	putObject(t, gw, "originals/big.txt", longDoc)
	invoker := fixedInvoker("<json>{}</json>")

	x := newTextExtractor(t, gw, invoker)
	// amazon.titan has a 32k window, so the budget is 24k tokens.
	_, err := x.Extract(context.Background(), Task{
		FileKey:    "originals/big.txt",
		Attributes: invoiceAttributes(),
		Params:     models.ModelParams{ModelID: "amazon.titan-text-express-v1"},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	sent := invoker.requests()[0].Messages[0].Content[0].Text
	if !strings.Contains(sent, tokens.TruncationMarker) {
		t.Fatal("prompt lacks the truncation marker")
	}
	budget := int(float64(tokens.MaxInputTokens("amazon.titan-text-express-v1")) * promptBudgetRatio)
	if got := (wordCounter{}).Count(sent); got >= budget {
		t.Errorf("sent prompt counts %d tokens, want under %d", got, budget)
	}
}

func TestTextExtractShortDocumentUntouched(t *testing.T) {
	gw := newGateway(t)
	putObject(t, gw, "originals/small.txt", "just a few words here")
	invoker := fixedInvoker("<json>{}</json>")

	x := newTextExtractor(t, gw, invoker)
	if _, err := x.Extract(context.Background(), Task{
		FileKey:    "originals/small.txt",
		Attributes: invoiceAttributes(),
	}); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	sent := invoker.requests()[0].Messages[0].Content[0].Text
	if strings.Contains(sent, tokens.TruncationMarker) {
		t.Error("short document was truncated")
	}
}

func TestTextExtractInlineDocument(t *testing.T) {
	gw := newGateway(t)
	invoker := fixedInvoker("<json>{\"vendor\": \"ACME\"}</json>")

	x := newTextExtractor(t, gw, invoker)
	result, err := x.Extract(context.Background(), Task{
		InlineText: "Invoice from ACME",
		Attributes: invoiceAttributes(),
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.Answer["vendor"] != "ACME" {
		t.Errorf("answer = %#v", result.Answer)
	}

	// Without a file key there is nothing to persist under.
	stored, err := gw.List(context.Background(), store.PrefixResults)
	if err != nil {
		t.Fatalf("list results: %v", err)
	}
	if len(stored) != 0 {
		t.Errorf("inline task persisted %d objects", len(stored))
	}
}

func TestTextExtractParseFailureKeepsRaw(t *testing.T) {
	gw := newGateway(t)
	putObject(t, gw, "originals/notes.txt", "body")
	invoker := fixedInvoker("I could not find any of the requested attributes in the provided text.")

	x := newTextExtractor(t, gw, invoker)
	result, err := x.Extract(context.Background(), Task{
		FileKey:    "originals/notes.txt",
		Attributes: invoiceAttributes(),
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if len(result.Answer) != 0 || result.Answer == nil {
		t.Errorf("answer = %#v, want empty non-nil map", result.Answer)
	}
	if !strings.Contains(result.RawAnswer, "could not find") {
		t.Errorf("raw answer = %q", result.RawAnswer)
	}

	stored := readStoredResult(t, gw, "originals/notes.txt")
	answer, present := stored["answer"]
	if !present {
		t.Fatal("stored result lacks the answer key")
	}
	if m, ok := answer.(map[string]any); !ok || len(m) != 0 {
		t.Errorf("stored answer = %#v, want empty object", answer)
	}
}

func TestTextExtractMissingDocument(t *testing.T) {
	gw := newGateway(t)
	invoker := fixedInvoker("<json>{}</json>")

	x := newTextExtractor(t, gw, invoker)
	_, err := x.Extract(context.Background(), Task{
		FileKey:    "originals/absent.txt",
		Attributes: invoiceAttributes(),
	})
	info := wantKind(t, err, models.ErrArtifactUnavailable)
	if !strings.Contains(info.Message, "not found") {
		t.Errorf("message = %q", info.Message)
	}
	if len(invoker.requests()) != 0 {
		t.Error("model invoked for a missing document")
	}
}
