package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/siherrmann/dharmarag/core/glossary"
	"github.com/siherrmann/dharmarag/helper"
	"github.com/siherrmann/dharmarag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedStore answers searches from fixed results keyed by anchor term.
type scriptedStore struct {
	mu       sync.Mutex
	base     []scored
	anchored map[string][]scored
	failing  map[string]bool
	baseErr  error
	requests []*model.SearchFilter
	baseK    int
}

type scored struct {
	id         string
	content    string
	similarity float64
}

func (s *scriptedStore) Search(ctx context.Context, query string, k int, filter *model.SearchFilter) ([]*model.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, filter)

	source := s.base
	if filter != nil && filter.AnchorTerm != "" {
		if s.failing[filter.AnchorTerm] {
			return nil, errors.New("lookup unavailable")
		}
		source = s.anchored[filter.AnchorTerm]
	} else {
		s.baseK = k
		if s.baseErr != nil {
			return nil, s.baseErr
		}
	}

	results := []*model.SearchResult{}
	for i, item := range source {
		if i >= k {
			break
		}
		results = append(results, &model.SearchResult{
			Chunk:           model.NewTextChunk(item.id, item.content, 1, "sutta.pdf", model.SectionParagraph),
			Similarity:      item.similarity,
			Rank:            i + 1,
			RetrievalMethod: model.RetrievalMethodVector,
		})
	}
	return results, nil
}

func (s *scriptedStore) GetByIDs(ctx context.Context, ids []string) ([]*model.TextChunk, error) {
	return nil, nil
}

func (s *scriptedStore) Upsert(ctx context.Context, chunks []*model.TextChunk) (*model.UpsertResult, error) {
	return &model.UpsertResult{}, nil
}

func (s *scriptedStore) DeleteByIDs(ctx context.Context, ids []string) (int, error) {
	return 0, nil
}

func (s *scriptedStore) ListBySource(ctx context.Context, sourceDocument string) ([]*model.TextChunk, error) {
	return nil, nil
}

func (s *scriptedStore) Statistics(ctx context.Context) (*model.CollectionStats, error) {
	return &model.CollectionStats{}, nil
}

func newTestRanker(s *scriptedStore, opts ...RankerOption) *Ranker {
	return NewRanker(s, nil, helper.NewLogger(slog.LevelError), opts...)
}

func TestBoostScore(t *testing.T) {
	t.Run("No boost terms", func(t *testing.T) {
		assert.Equal(t, 0.82, BoostScore(0.82, "A quiet grove near the river."))
	})

	t.Run("One boost term", func(t *testing.T) {
		assert.InDelta(t, 0.88, BoostScore(0.80, "Meditation on the breath."), 1e-9)
	})

	t.Run("Distinct terms count once each", func(t *testing.T) {
		assert.InDelta(t, 1.2, BoostScore(1.0, "Wisdom and compassion, compassion and wisdom."), 1e-9)
	})
}

func TestRankerDetectTerms(t *testing.T) {
	r := newTestRanker(&scriptedStore{})

	t.Run("Indicator words in question order", func(t *testing.T) {
		assert.Equal(t, []string{"metta", "dukkha"}, r.DetectTerms("How does Metta relate to dukkha?"))
	})

	t.Run("At most two terms", func(t *testing.T) {
		assert.Len(t, r.DetectTerms("karma, samsara and nirvana"), 2)
	})

	t.Run("Repeated words count once", func(t *testing.T) {
		assert.Equal(t, []string{"sati"}, r.DetectTerms("sati sati sati"))
	})

	t.Run("No terms", func(t *testing.T) {
		assert.Empty(t, r.DetectTerms("What is the weather?"))
	})

	t.Run("Glossary terms are detected", func(t *testing.T) {
		store := glossary.NewStore()
		g := model.NewGlossary()
		g.Set(&model.GlossaryEntry{Term: "Ajahn Chah", Definition: "a Thai forest teacher", Confidence: 0.9, Source: model.SourceGlossarySection})
		store.AddDocument("forest.pdf", g)
		r := NewRanker(&scriptedStore{}, store, helper.NewLogger(slog.LevelError))

		assert.Equal(t, []string{"metta", "Ajahn Chah"}, r.DetectTerms("What did ajahn chah teach about metta?"))
	})
}

func TestRankerRank(t *testing.T) {
	t.Run("Boost reorders base results", func(t *testing.T) {
		s := &scriptedStore{base: []scored{
			{id: "b", content: "A quiet grove near the river.", similarity: 0.82},
			{id: "a", content: "Meditation on the breath.", similarity: 0.80},
		}}

		results, err := newTestRanker(s).Rank(context.Background(), "How should I sit?", 2, nil)

		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "a", results[0].Chunk.ID)
		assert.InDelta(t, 0.88, results[0].Similarity, 1e-9)
		assert.Equal(t, "b", results[1].Chunk.ID)
		assert.Equal(t, 1, results[0].Rank)
		assert.Equal(t, 2, results[1].Rank)
		assert.Equal(t, 4, s.baseK)
	})

	t.Run("Glossary terms do not change the boost", func(t *testing.T) {
		store := glossary.NewStore()
		g := model.NewGlossary()
		g.Set(&model.GlossaryEntry{Term: "Ajahn Chah", Definition: "a Thai forest teacher", Confidence: 0.9, Source: model.SourceGlossarySection})
		store.AddDocument("forest.pdf", g)

		base := []scored{
			{id: "b", content: "A quiet grove near the river.", similarity: 0.82},
			{id: "a", content: "Meditation on the breath.", similarity: 0.80},
		}

		s := &scriptedStore{base: base}
		r := NewRanker(s, store, helper.NewLogger(slog.LevelError))
		results, err := r.Rank(context.Background(), "How should I sit?", 2, nil)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "a", results[0].Chunk.ID)
		assert.InDelta(t, 0.88, results[0].Similarity, 1e-9)
		assert.InDelta(t, 0.82, results[1].Similarity, 1e-9)
		assert.Len(t, s.requests, 1, "Expected no anchor lookups")

		s = &scriptedStore{
			base:     base,
			anchored: map[string][]scored{"Ajahn Chah": {{id: "c", content: "Ajahn Chah taught in the forest.", similarity: 0.7}}},
		}
		r = NewRanker(s, store, helper.NewLogger(slog.LevelError))
		results, err = r.Rank(context.Background(), "How did ajahn chah sit?", 3, nil)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, "a", results[0].Chunk.ID)
		assert.InDelta(t, 0.88, results[0].Similarity, 1e-9)
		assert.Equal(t, "c", results[1].Chunk.ID)
		assert.InDelta(t, 0.84, results[1].Similarity, 1e-9)
		assert.Equal(t, model.RetrievalMethodAnchor, results[1].RetrievalMethod)
		assert.Equal(t, "b", results[2].Chunk.ID)
		assert.InDelta(t, 0.82, results[2].Similarity, 1e-9)
	})

	t.Run("Supplemental anchor results are added once", func(t *testing.T) {
		s := &scriptedStore{
			base: []scored{
				{id: "a", content: "A quiet grove.", similarity: 0.5},
			},
			anchored: map[string][]scored{
				"metta": {
					{id: "a", content: "A quiet grove.", similarity: 0.5},
					{id: "m", content: "Radiating goodwill.", similarity: 0.6},
				},
			},
		}

		results, err := newTestRanker(s).Rank(context.Background(), "What is metta?", 5, nil)

		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "m", results[0].Chunk.ID)
		assert.InDelta(t, 0.72, results[0].Similarity, 1e-9)
		assert.Equal(t, model.RetrievalMethodAnchor, results[0].RetrievalMethod)
		assert.Equal(t, "a", results[1].Chunk.ID)
		assert.InDelta(t, 0.5, results[1].Similarity, 1e-9)
	})

	t.Run("Source filter is kept for anchor lookups", func(t *testing.T) {
		s := &scriptedStore{}

		_, err := newTestRanker(s).Rank(context.Background(), "What is metta?", 3, &model.SearchFilter{SourceDocument: "sutta.pdf"})

		require.NoError(t, err)
		require.Len(t, s.requests, 2)
		for _, filter := range s.requests {
			require.NotNil(t, filter)
			assert.Equal(t, "sutta.pdf", filter.SourceDocument)
		}
	})

	t.Run("Failed anchor lookup is skipped", func(t *testing.T) {
		s := &scriptedStore{
			base:    []scored{{id: "a", content: "A quiet grove.", similarity: 0.5}},
			failing: map[string]bool{"metta": true},
			anchored: map[string][]scored{
				"dukkha": {{id: "d", content: "Unsatisfactoriness.", similarity: 0.3}},
			},
		}
		counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_lookup_failures_total"})

		results, err := newTestRanker(s, WithFailureCounter(counter)).Rank(context.Background(), "metta and dukkha", 5, nil)

		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "a", results[0].Chunk.ID)
		assert.Equal(t, "d", results[1].Chunk.ID)
		assert.Equal(t, 1.0, testutil.ToFloat64(counter))
	})

	t.Run("Failed base search is returned", func(t *testing.T) {
		baseErr := errors.New("store unreachable")
		s := &scriptedStore{baseErr: baseErr}

		_, err := newTestRanker(s).Rank(context.Background(), "What is metta?", 3, nil)

		require.Error(t, err)
		assert.ErrorIs(t, err, baseErr)
	})

	t.Run("Results are truncated to k", func(t *testing.T) {
		s := &scriptedStore{base: []scored{
			{id: "a", content: "one", similarity: 0.9},
			{id: "b", content: "two", similarity: 0.8},
			{id: "c", content: "three", similarity: 0.7},
		}}

		results, err := newTestRanker(s).Rank(context.Background(), "plain question", 2, nil)

		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, []string{"a", "b"}, []string{results[0].Chunk.ID, results[1].Chunk.ID})
	})

	t.Run("Zero k", func(t *testing.T) {
		results, err := newTestRanker(&scriptedStore{}).Rank(context.Background(), "metta", 0, nil)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}
