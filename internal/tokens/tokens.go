// Package tokens provides token counting, model context-window lookup, and
// budget-preserving document truncation.
package tokens

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Counter reports how many tokens a text occupies.
type Counter interface {
	Count(text string) int
}

// encodingName approximates all supported model families well enough for
// budget decisions.
const encodingName = "cl100k_base"

var (
	// Cache encodings to avoid repeated initialization
	encodingCache = make(map[string]*tiktoken.Tiktoken)
	cacheMu       sync.Mutex
)

func cachedEncoding(name string) (*tiktoken.Tiktoken, error) {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if enc, ok := encodingCache[name]; ok {
		return enc, nil
	}
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, err
	}
	encodingCache[name] = enc
	return enc, nil
}

// TiktokenCounter counts with the BPE encoding, initialized lazily. When the
// encoding cannot be loaded (for example no network access for the BPE data)
// it degrades to the byte heuristic for the life of the process.
type TiktokenCounter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewCounter returns the default counter.
func NewCounter() *TiktokenCounter {
	return &TiktokenCounter{}
}

// Count returns the token count for text.
func (c *TiktokenCounter) Count(text string) int {
	c.once.Do(func() {
		if enc, err := cachedEncoding(encodingName); err == nil {
			c.enc = enc
		}
	})
	if c.enc == nil {
		return estimate(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}

// HeuristicCounter estimates roughly 4 bytes per token. It is deterministic
// and needs no encoding data, which also makes it the counter of choice in
// tests.
type HeuristicCounter struct{}

// NewHeuristicCounter returns a byte-heuristic counter.
func NewHeuristicCounter() HeuristicCounter {
	return HeuristicCounter{}
}

// Count returns the estimated token count for text.
func (HeuristicCounter) Count(text string) int {
	return estimate(text)
}

// Rough estimation: 4 characters per token
func estimate(text string) int {
	return len(text) / 4
}
