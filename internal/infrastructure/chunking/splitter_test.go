package chunking

import (
	"strings"
	"testing"
)

func TestSplitEmptyTextReturnsNil(t *testing.T) {
	splitter := NewSplitter(100, 20)
	if chunks := splitter.Split("   \n "); chunks != nil {
		t.Fatalf("Split() = %v, want nil", chunks)
	}
}

func TestSplitShortTextIsSingleChunk(t *testing.T) {
	splitter := NewSplitter(100, 20)
	chunks := splitter.Split("KKUC tilbyder behandling.")
	if len(chunks) != 1 || chunks[0] != "KKUC tilbyder behandling." {
		t.Fatalf("Split() = %v", chunks)
	}
}

func TestSplitPrefersWordBoundaries(t *testing.T) {
	text := strings.Repeat("behandling og ", 40)
	splitter := NewSplitter(100, 20)

	chunks := splitter.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("len(chunks) = %d, want several", len(chunks))
	}
	for i, chunk := range chunks {
		if strings.HasSuffix(chunk, "behandli") || strings.HasSuffix(chunk, "o") {
			t.Fatalf("chunk %d ends mid-word: %q", i, chunk)
		}
		if len([]rune(chunk)) > 100 {
			t.Fatalf("chunk %d longer than window: %d runes", i, len([]rune(chunk)))
		}
	}
}

func TestSplitNeighborsOverlap(t *testing.T) {
	text := strings.Repeat("a b c d e f g h i j ", 30)
	splitter := NewSplitter(80, 20)

	chunks := splitter.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("len(chunks) = %d, want several", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		tail := chunks[i-1][len(chunks[i-1])-5:]
		if !strings.Contains(chunks[i], tail[:1]) {
			t.Fatalf("chunks %d and %d share no text", i-1, i)
		}
	}
}

func TestNewSplitterClampsBadConfig(t *testing.T) {
	splitter := NewSplitter(-1, 5000)
	if splitter.chunkSize != 900 {
		t.Fatalf("chunkSize = %d, want default 900", splitter.chunkSize)
	}
	if splitter.overlap >= splitter.chunkSize {
		t.Fatalf("overlap %d not clamped below chunk size", splitter.overlap)
	}
}
