package extract

import (
	"fmt"

	"github.com/haasonsaas/quarry/internal/llm"
	"github.com/haasonsaas/quarry/pkg/models"
)

// chunkPages splits pages into contiguous runs of at most size pages,
// preserving page order.
func chunkPages(pages []Page, size int) [][]Page {
	if size <= 0 {
		size = models.DefaultChunkSize
	}
	chunks := make([][]Page, 0, (len(pages)+size-1)/size)
	for start := 0; start < len(pages); start += size {
		end := min(start+size, len(pages))
		chunks = append(chunks, pages[start:end])
	}
	return chunks
}

// chunkMessage builds the user turn for one chunk: the page images followed
// by the prompt text. When the document spans multiple chunks the text gains
// a 1-based inclusive page-range prefix so the model knows which slice of
// the document it is seeing.
func chunkMessage(chunk []Page, text string, startPage int, multiChunk bool) llm.Message {
	blocks := make([]llm.Block, 0, len(chunk)+1)
	for _, p := range chunk {
		blocks = append(blocks, llm.ImageBlock(p.Format, p.Data))
	}
	if multiChunk {
		text = fmt.Sprintf("Processing pages %d:%d. %s", startPage+1, startPage+len(chunk), text)
	}
	blocks = append(blocks, llm.TextBlock(text))
	return llm.UserMessage(blocks...)
}
