package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/kkucdk/assistant-backend/internal/core/domain"
	"github.com/kkucdk/assistant-backend/internal/core/ports"
)

// BM25 parameters matching the Okapi defaults of the index the corpus was
// originally ranked with.
const (
	bm25K1      = 1.5
	bm25B       = 0.75
	bm25Epsilon = 0.25
)

// LexicalEngine ranks the full passage corpus with BM25. The index is built
// lazily from the vector store's bulk read on first search and reused for
// the process lifetime; ingestion restarts the process, so there is no
// incremental update path.
type LexicalEngine struct {
	store      ports.VectorStore
	fetchLimit int

	mu    sync.Mutex
	index *bm25Index
}

func NewLexicalEngine(store ports.VectorStore, fetchLimit int) *LexicalEngine {
	if fetchLimit <= 0 {
		fetchLimit = 1000
	}
	return &LexicalEngine{
		store:      store,
		fetchLimit: fetchLimit,
	}
}

// Search returns up to limit passages with strictly positive BM25 score,
// descending. Index-build or store errors degrade to an empty result.
func (e *LexicalEngine) Search(ctx context.Context, query string, limit int) []domain.SearchResult {
	index, err := e.ensureIndex(ctx)
	if err != nil {
		slog.Warn("lexical_index_unavailable", "error", err)
		return nil
	}

	tokens := tokenize(query)
	if len(tokens) == 0 {
		return nil
	}

	type scored struct {
		idx   int
		score float64
	}
	hits := make([]scored, 0, limit)
	for i := range index.passages {
		s := index.score(tokens, i)
		if s > 0 {
			hits = append(hits, scored{idx: i, score: s})
		}
	}

	sort.SliceStable(hits, func(a, b int) bool { return hits[a].score > hits[b].score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]domain.SearchResult, 0, len(hits))
	for _, h := range hits {
		p := index.passages[h.idx]
		out = append(out, domain.SearchResult{
			Content:   p.Text,
			SourceURL: p.SourceURL,
			PageTitle: p.PageTitle,
			Score:     domain.Score{Source: domain.ScoreLexical, Value: h.score},
		})
	}
	return out
}

// ensureIndex builds the corpus index at most once under concurrent first
// access. A failed build leaves the guard open so a later request retries.
func (e *LexicalEngine) ensureIndex(ctx context.Context) (*bm25Index, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.index != nil {
		return e.index, nil
	}

	passages, err := e.store.FetchAll(ctx, e.fetchLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch corpus: %w", err)
	}

	e.index = buildBM25Index(passages)
	slog.Info("lexical_index_built", "passages", len(passages))
	return e.index, nil
}

type bm25Index struct {
	passages []domain.Passage
	termFreq []map[string]int
	docLen   []int
	avgLen   float64
	idf      map[string]float64
}

func buildBM25Index(passages []domain.Passage) *bm25Index {
	index := &bm25Index{
		passages: passages,
		termFreq: make([]map[string]int, len(passages)),
		docLen:   make([]int, len(passages)),
		idf:      make(map[string]float64),
	}

	docFreq := make(map[string]int)
	totalLen := 0
	for i, p := range passages {
		tokens := tokenize(p.Text)
		tf := make(map[string]int, len(tokens))
		for _, t := range tokens {
			tf[t]++
		}
		for t := range tf {
			docFreq[t]++
		}
		index.termFreq[i] = tf
		index.docLen[i] = len(tokens)
		totalLen += len(tokens)
	}
	if len(passages) > 0 {
		index.avgLen = float64(totalLen) / float64(len(passages))
	}
	// An all-empty corpus would otherwise divide by zero in score.
	if index.avgLen == 0 {
		index.avgLen = 1
	}

	// Okapi idf can go negative for terms in most documents; floor those at
	// a fraction of the average idf instead of discarding the term.
	n := float64(len(passages))
	idfSum := 0.0
	var negative []string
	for term, df := range docFreq {
		idf := math.Log((n - float64(df) + 0.5) / (float64(df) + 0.5))
		index.idf[term] = idf
		idfSum += idf
		if idf < 0 {
			negative = append(negative, term)
		}
	}
	if len(docFreq) > 0 {
		floor := bm25Epsilon * idfSum / float64(len(docFreq))
		for _, term := range negative {
			index.idf[term] = floor
		}
	}

	return index
}

func (x *bm25Index) score(queryTokens []string, doc int) float64 {
	tf := x.termFreq[doc]
	dl := float64(x.docLen[doc])
	norm := bm25K1 * (1 - bm25B + bm25B*dl/x.avgLen)

	score := 0.0
	for _, t := range queryTokens {
		freq := float64(tf[t])
		if freq == 0 {
			continue
		}
		score += x.idf[t] * freq * (bm25K1 + 1) / (freq + norm)
	}
	return score
}

// tokenize is deliberately simple: lowercase, whitespace split. Score must
// stay monotone in term-overlap count, so anything fancier has to preserve
// that.
func tokenize(s string) []string {
	return strings.Fields(strings.ToLower(s))
}
