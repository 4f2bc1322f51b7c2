package glossary

import (
	"regexp"
	"strings"
	"sync"

	"github.com/siherrmann/dharmarag/helper"
	"github.com/siherrmann/dharmarag/model"
)

const (
	maxRelatedTerms     = 5
	minSharedWords      = 2
	minSignificantRunes = 5
	highConfidence      = 0.8
)

// Term is a unified glossary entry prepared for matching.
type Term struct {
	Entry    *model.GlossaryEntry
	Category model.Category
	Related  []string
	pattern  *regexp.Regexp
}

// Find returns the byte offsets of whole word, case-insensitive occurrences in text.
func (t *Term) Find(text string) [][]int {
	return helper.FindWholeWord(text, t.pattern)
}

// Store owns the per-document glossaries and the unified view derived from them.
// Writes are expected from a single ingestion at a time; reads may run concurrently.
type Store struct {
	mu        sync.RWMutex
	documents map[string]*model.Glossary
	order     []string
	terms     []*Term
	index     map[string]*Term
}

func NewStore() *Store {
	return &Store{
		documents: map[string]*model.Glossary{},
		index:     map[string]*Term{},
	}
}

// AddDocument stores the glossary of a document, replacing an earlier one,
// and recomputes the unified glossary and its cross references.
func (s *Store) AddDocument(documentID string, glossary *model.Glossary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[documentID]; !ok {
		s.order = append(s.order, documentID)
	}
	s.documents[documentID] = glossary
	s.recompute()
}

// RemoveDocument drops the glossary of a document. Terms only that document
// contributed disappear from the unified glossary.
func (s *Store) RemoveDocument(documentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[documentID]; !ok {
		return false
	}
	delete(s.documents, documentID)
	for i, id := range s.order {
		if id == documentID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.recompute()
	return true
}

// Terms returns the unified glossary in insertion order. The slice must not be modified.
func (s *Store) Terms() []*Term {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.terms
}

// Lookup returns a copy of the unified entry for term.
func (s *Store) Lookup(term string) (*model.GlossaryEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.index[term]
	if !ok {
		return nil, false
	}
	return t.Entry.Copy(), true
}

func (s *Store) Definition(term string) (string, bool) {
	entry, ok := s.Lookup(term)
	if !ok {
		return "", false
	}
	return entry.Definition, true
}

func (s *Store) RelatedTerms(term string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.index[term]; ok {
		return append([]string(nil), t.Related...)
	}
	return nil
}

// CrossReferences maps every unified term to its related terms.
func (s *Store) CrossReferences() map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	refs := make(map[string][]string, len(s.terms))
	for _, t := range s.terms {
		refs[t.Entry.Term] = append([]string(nil), t.Related...)
	}
	return refs
}

// Unified returns copies of all unified entries in insertion order.
func (s *Store) Unified() []*model.GlossaryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]*model.GlossaryEntry, 0, len(s.terms))
	for _, t := range s.terms {
		entries = append(entries, t.Entry.Copy())
	}
	return entries
}

func (s *Store) TermsByCategory(category model.Category) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var terms []string
	for _, t := range s.terms {
		if t.Category == category {
			terms = append(terms, t.Entry.Term)
		}
	}
	return terms
}

// Documents returns the document ids in the order they were added.
func (s *Store) Documents() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// DocumentGlossary returns the glossary extracted from one document.
func (s *Store) DocumentGlossary(documentID string) (*model.Glossary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.documents[documentID]
	return g, ok
}

func (s *Store) Summary() model.GlossarySummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := model.GlossarySummary{
		TotalTerms:         len(s.terms),
		DocumentsProcessed: len(s.documents),
	}
	for _, t := range s.terms {
		if t.Entry.Confidence > highConfidence {
			summary.HighConfidenceTerms++
		}
	}
	return summary
}

// recompute rebuilds the unified glossary. Callers hold the write lock.
func (s *Store) recompute() {
	unified := model.NewGlossary()
	for _, documentID := range s.order {
		for _, entry := range s.documents[documentID].Entries() {
			existing, ok := unified.Get(entry.Term)
			switch {
			case !ok || entry.Outranks(existing):
				c := entry.Copy()
				c.SourceDocuments = []string{documentID}
				unified.Set(c)
			case entry.Ties(existing):
				existing.SourceDocuments = append(existing.SourceDocuments, documentID)
			}
		}
	}

	entries := unified.Entries()
	words := make([]map[string]bool, len(entries))
	for i, entry := range entries {
		words[i] = significantWords(entry.Definition)
	}

	terms := make([]*Term, 0, len(entries))
	index := make(map[string]*Term, len(entries))
	for i, entry := range entries {
		var related []string
		for j, other := range entries {
			if i == j {
				continue
			}
			if sharedCount(words[i], words[j]) >= minSharedWords {
				related = append(related, other.Term)
				if len(related) == maxRelatedTerms {
					break
				}
			}
		}

		t := &Term{
			Entry:    entry,
			Category: Categorize(entry.Term, entry.Definition),
			Related:  related,
			pattern:  helper.TermPattern(entry.Term),
		}
		terms = append(terms, t)
		index[entry.Term] = t
	}

	s.terms = terms
	s.index = index
}

func significantWords(definition string) map[string]bool {
	words := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(definition)) {
		if len([]rune(w)) >= minSignificantRunes {
			words[w] = true
		}
	}
	return words
}

func sharedCount(a map[string]bool, b map[string]bool) int {
	n := 0
	for w := range a {
		if b[w] {
			n++
		}
	}
	return n
}
