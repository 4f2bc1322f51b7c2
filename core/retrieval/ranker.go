package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"unicode"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/siherrmann/dharmarag/core/glossary"
	"github.com/siherrmann/dharmarag/core/store"
	"github.com/siherrmann/dharmarag/helper"
	"github.com/siherrmann/dharmarag/model"
	"golang.org/x/sync/errgroup"
)

const (
	maxDetectedTerms    = 2
	supplementalResults = 2
	supplementalFactor  = 1.2
	boostPerTerm        = 0.1
	maxConcurrentLookup = 2
)

// boostTerms raise the score of chunks mentioning them.
var boostTerms = []string{
	"dharma", "dhamma", "buddha", "meditation", "mindfulness",
	"compassion", "wisdom", "suffering", "impermanence",
	"interdependence", "awakening", "enlightenment",
}

// indicatorTerms are question words that trigger an anchor lookup.
var indicatorTerms = map[string]bool{
	"dharma": true, "dhamma": true, "buddha": true, "sangha": true,
	"karma": true, "kamma": true, "nirvana": true, "nibbana": true,
	"dukkha": true, "anicca": true, "anatta": true, "samsara": true,
	"metta": true, "karuna": true, "mudita": true, "upekkha": true,
	"sati": true, "samadhi": true, "panna": true, "prajna": true, "sila": true,
	"jhana": true, "vipassana": true, "samatha": true, "bodhicitta": true,
	"bodhisattva": true, "arahant": true, "sunyata": true, "emptiness": true,
	"meditation": true, "mindfulness": true, "compassion": true, "wisdom": true,
	"suffering": true, "impermanence": true, "enlightenment": true, "awakening": true,
}

// Ranker combines vector similarity with anchor evidence.
type Ranker struct {
	store    store.VectorStore
	glossary *glossary.Store
	log      *slog.Logger
	failures prometheus.Counter
}

type RankerOption func(*Ranker)

// WithFailureCounter counts supplemental lookups that failed.
func WithFailureCounter(counter prometheus.Counter) RankerOption {
	return func(r *Ranker) {
		r.failures = counter
	}
}

// NewRanker creates a ranker over vectorStore. The glossary may be nil, in
// which case only the fixed indicator words are detected.
func NewRanker(vectorStore store.VectorStore, glossaryStore *glossary.Store, logger *slog.Logger, opts ...RankerOption) *Ranker {
	r := &Ranker{
		store:    vectorStore,
		glossary: glossaryStore,
		log:      logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank returns at most k results for question, best first with ranks 1..n.
func (r *Ranker) Rank(ctx context.Context, question string, k int, filter *model.SearchFilter) ([]*model.SearchResult, error) {
	if k <= 0 {
		return []*model.SearchResult{}, nil
	}

	base, err := r.store.Search(ctx, question, 2*k, filter)
	if err != nil {
		return nil, helper.NewError("base search", err)
	}

	seen := map[string]bool{}
	results := make([]*model.SearchResult, 0, len(base))
	for _, result := range base {
		if seen[result.Chunk.ID] {
			continue
		}
		seen[result.Chunk.ID] = true
		result.Similarity = BoostScore(result.Similarity, result.Chunk.Content)
		results = append(results, result)
	}

	for _, supplemental := range r.supplemental(ctx, question, filter) {
		for _, result := range supplemental {
			if seen[result.Chunk.ID] {
				continue
			}
			seen[result.Chunk.ID] = true
			result.Similarity *= supplementalFactor
			result.RetrievalMethod = model.RetrievalMethodAnchor
			results = append(results, result)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > k {
		results = results[:k]
	}
	for i, result := range results {
		result.Rank = i + 1
	}

	return results, nil
}

// supplemental runs the anchor restricted lookups. Results are returned in
// detected term order; failed lookups leave an empty slot.
func (r *Ranker) supplemental(ctx context.Context, question string, filter *model.SearchFilter) [][]*model.SearchResult {
	terms := r.DetectTerms(question)
	lookups := make([][]*model.SearchResult, len(terms))
	if len(terms) == 0 {
		return lookups
	}

	source := ""
	if filter != nil {
		source = filter.SourceDocument
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookup)
	for i, term := range terms {
		g.Go(func() error {
			results, err := r.store.Search(gctx, question, supplementalResults, &model.SearchFilter{
				SourceDocument: source,
				AnchorTerm:     term,
			})
			if err != nil {
				r.log.Warn("Anchor lookup failed", "term", term, "error", err)
				if r.failures != nil {
					r.failures.Inc()
				}
				return nil
			}
			lookups[i] = results
			return nil
		})
	}
	_ = g.Wait()

	return lookups
}

// DetectTerms returns up to two terms from question that warrant an anchor
// lookup: fixed indicator words in question order, then glossary terms.
func (r *Ranker) DetectTerms(question string) []string {
	terms := []string{}
	seen := map[string]bool{}
	add := func(term string) bool {
		key := strings.ToLower(term)
		if !seen[key] {
			seen[key] = true
			terms = append(terms, term)
		}
		return len(terms) >= maxDetectedTerms
	}

	words := strings.FieldsFunc(strings.ToLower(question), func(c rune) bool {
		return !unicode.IsLetter(c)
	})
	for _, word := range words {
		if indicatorTerms[word] && add(word) {
			return terms
		}
	}

	if r.glossary == nil {
		return terms
	}
	for _, term := range r.glossary.Terms() {
		if len(term.Find(question)) > 0 && add(term.Entry.Term) {
			return terms
		}
	}

	return terms
}

// BoostScore multiplies similarity by 1 + 0.1 per boost term contained in content.
func BoostScore(similarity float64, content string) float64 {
	lower := strings.ToLower(content)
	count := 0
	for _, term := range boostTerms {
		if strings.Contains(lower, term) {
			count++
		}
	}
	return similarity * (1 + boostPerTerm*float64(count))
}
