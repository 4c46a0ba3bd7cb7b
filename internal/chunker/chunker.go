// Package chunker splits extracted document text into overlapping word windows.
package chunker

import "strings"

const (
	DefaultSize    = 300
	DefaultOverlap = 50
)

// Chunk splits text into windows of up to size words. Consecutive windows
// start stride = max(1, size-overlap) words apart, so every window after the
// first repeats the trailing overlap words of its predecessor.
func Chunk(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = 0
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	stride := size - overlap
	if stride < 1 {
		stride = 1
	}

	chunks := make([]string, 0, len(words)/stride+1)
	for start := 0; start < len(words); start += stride {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		c := strings.TrimSpace(strings.Join(words[start:end], " "))
		if c == "" {
			continue
		}
		chunks = append(chunks, c)
	}
	return chunks
}
