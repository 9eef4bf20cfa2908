package extract

import (
	"strings"
	"testing"
)

func makePages(n int) []Page {
	pages := make([]Page, n)
	for i := range pages {
		pages[i] = Page{Format: "jpeg", Data: []byte{byte(i)}}
	}
	return pages
}

func TestChunkPages(t *testing.T) {
	tests := []struct {
		name     string
		pages    int
		size     int
		wantLens []int
	}{
		{"single partial chunk", 5, 10, []int{5}},
		{"exact multiple", 20, 10, []int{10, 10}},
		{"trailing partial chunk", 25, 10, []int{10, 10, 5}},
		{"size one", 3, 1, []int{1, 1, 1}},
		{"zero size falls back to default", 15, 0, []int{10, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := chunkPages(makePages(tt.pages), tt.size)
			if len(chunks) != len(tt.wantLens) {
				t.Fatalf("got %d chunks, want %d", len(chunks), len(tt.wantLens))
			}
			next := byte(0)
			for i, chunk := range chunks {
				if len(chunk) != tt.wantLens[i] {
					t.Errorf("chunk %d has %d pages, want %d", i, len(chunk), tt.wantLens[i])
				}
				for _, p := range chunk {
					if p.Data[0] != next {
						t.Fatalf("chunk %d out of order: got page %d, want %d", i, p.Data[0], next)
					}
					next++
				}
			}
		})
	}
}

func TestChunkPagesEmpty(t *testing.T) {
	if chunks := chunkPages(nil, 10); len(chunks) != 0 {
		t.Errorf("got %d chunks for no pages, want 0", len(chunks))
	}
}

func TestChunkMessage(t *testing.T) {
	pages := makePages(3)

	t.Run("single chunk keeps text bare", func(t *testing.T) {
		msg := chunkMessage(pages, "Extract the attributes.", 0, false)
		if len(msg.Content) != 4 {
			t.Fatalf("got %d blocks, want 4", len(msg.Content))
		}
		for i := 0; i < 3; i++ {
			if msg.Content[i].Image == nil {
				t.Errorf("block %d is not an image", i)
			}
		}
		if got := msg.Content[3].Text; got != "Extract the attributes." {
			t.Errorf("text block = %q, want bare prompt", got)
		}
	})

	t.Run("multi chunk adds page range prefix", func(t *testing.T) {
		msg := chunkMessage(pages, "Extract the attributes.", 10, true)
		want := "Processing pages 11:13. Extract the attributes."
		if got := msg.Content[3].Text; got != want {
			t.Errorf("text block = %q, want %q", got, want)
		}
	})

	t.Run("text comes after all images", func(t *testing.T) {
		msg := chunkMessage(pages, "prompt", 0, true)
		if !strings.HasPrefix(msg.Content[len(msg.Content)-1].Text, "Processing pages 1:3. ") {
			t.Errorf("last block text = %q, want page range prefix", msg.Content[len(msg.Content)-1].Text)
		}
	})
}

func TestChunkMessagePrefixSequence(t *testing.T) {
	pages := makePages(25)
	chunks := chunkPages(pages, 10)

	var got []string
	start := 0
	for _, chunk := range chunks {
		msg := chunkMessage(chunk, "p", start, len(chunks) > 1)
		got = append(got, msg.Content[len(msg.Content)-1].Text)
		start += len(chunk)
	}

	want := []string{
		"Processing pages 1:10. p",
		"Processing pages 11:20. p",
		"Processing pages 21:25. p",
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d text = %q, want %q", i, got[i], want[i])
		}
	}
}
