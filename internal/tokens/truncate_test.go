package tokens

import (
	"strings"
	"testing"
)

func TestTruncateMiddle_UnderBudgetUnchanged(t *testing.T) {
	c := NewHeuristicCounter()
	doc := "alpha beta gamma delta"
	got := TruncateMiddle(c, doc, 10, 100)
	if got != doc {
		t.Errorf("TruncateMiddle() = %q, want unchanged input", got)
	}
	if strings.Contains(got, TruncationMarker) {
		t.Error("document under budget must not contain the truncation marker")
	}
}

func TestTruncateMiddle_ExactBudgetUnchanged(t *testing.T) {
	c := NewHeuristicCounter()
	doc := strings.Repeat("word ", 80) // 400 bytes, 100 tokens
	got := TruncateMiddle(c, doc, 20, 120)
	if got != doc {
		t.Error("document exactly at budget must be unchanged")
	}
}

func TestTruncateMiddle_CutsMiddleKeepsEnds(t *testing.T) {
	c := NewHeuristicCounter()
	doc := "START " + strings.Repeat("word ", 4000) + "END"
	overhead, budget := 100, 4000

	got := TruncateMiddle(c, doc, overhead, budget)

	if !strings.Contains(got, TruncationMarker) {
		t.Fatal("truncated document must contain the marker")
	}
	if !strings.HasPrefix(got, "START") {
		t.Errorf("head of document lost: %q", got[:20])
	}
	if !strings.HasSuffix(got, "END") {
		t.Errorf("tail of document lost: %q", got[len(got)-20:])
	}
	if len(got) >= len(doc) {
		t.Errorf("truncated length %d, want < %d", len(got), len(doc))
	}
	if total := c.Count(got) + overhead; total > budget {
		t.Errorf("count(result)+overhead = %d, want <= %d", total, budget)
	}
}

func TestTruncateMiddle_Idempotent(t *testing.T) {
	c := NewHeuristicCounter()
	doc := strings.Repeat("word ", 4000)
	overhead, budget := 100, 4000

	once := TruncateMiddle(c, doc, overhead, budget)
	twice := TruncateMiddle(c, once, overhead, budget)
	if once != twice {
		t.Error("truncating an already-fitting document must be a no-op")
	}
	if strings.Count(twice, TruncationMarker) != 1 {
		t.Errorf("marker count = %d, want 1", strings.Count(twice, TruncationMarker))
	}
}

func TestTruncateMiddle_OverheadExceedsBudget(t *testing.T) {
	// No candidate can satisfy the budget; the widest cut is returned
	// rather than looping forever or panicking.
	c := NewHeuristicCounter()
	got := TruncateMiddle(c, "a b c d e f", 50, 10)
	if got != TruncationMarker {
		t.Errorf("TruncateMiddle() = %q, want bare marker", got)
	}
}

func TestTruncateMiddle_GrowsCutUntilFit(t *testing.T) {
	// A tight budget needs more than the initial multiplier, so the loop
	// must keep widening the cut.
	c := NewHeuristicCounter()
	doc := strings.Repeat("word ", 2000)
	overhead, budget := 0, 300

	got := TruncateMiddle(c, doc, overhead, budget)
	if got == doc {
		t.Fatal("document over budget must be truncated")
	}
	if c.Count(got) >= c.Count(doc) {
		t.Error("truncation did not reduce token count")
	}
}
