// Package chunking splits extracted page text into overlapping
// windows sized for the embedding model.
package chunking

import "strings"

type Splitter struct {
	chunkSize int
	overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 900
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}
}

// Split cuts text into rune windows of chunkSize with overlap runes
// shared between neighbors. Cuts prefer the last space inside the
// window so words stay whole.
func (s *Splitter) Split(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	step := s.chunkSize - s.overlap
	if step <= 0 {
		step = s.chunkSize
	}

	out := make([]string, 0, len(runes)/step+1)
	start := 0
	for start < len(runes) {
		end := start + s.chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = breakAtSpace(runes, start, end)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}
		next := end - s.overlap
		if next <= start {
			next = start + step
		}
		start = next
	}
	return out
}

// breakAtSpace moves end back to the last space in the window, unless
// that would shrink the chunk below half size.
func breakAtSpace(runes []rune, start, end int) int {
	for i := end; i > start+(end-start)/2; i-- {
		if runes[i-1] == ' ' {
			return i
		}
	}
	return end
}
