package pipeline

import (
	"sort"
	"strings"
	"sync"

	"github.com/siherrmann/dharmarag/model"
)

// AnchorIndex keeps the confident anchors of every ingested document, one per
// term and document. It backs cross links and cross reference lookups.
type AnchorIndex struct {
	mu        sync.RWMutex
	documents map[string][]*model.Anchor
}

func NewAnchorIndex() *AnchorIndex {
	return &AnchorIndex{documents: map[string][]*model.Anchor{}}
}

// Set replaces the anchors of a document. Anchors at or below the cross link
// confidence are dropped.
func (x *AnchorIndex) Set(documentID string, anchors []*model.Anchor) {
	best := map[string]*model.Anchor{}
	var terms []string
	for _, a := range anchors {
		if a.Confidence <= crossLinkConfidence {
			continue
		}
		existing, ok := best[a.Term]
		if !ok {
			terms = append(terms, a.Term)
		}
		if !ok || a.Confidence > existing.Confidence {
			best[a.Term] = a
		}
	}

	kept := make([]*model.Anchor, 0, len(terms))
	for _, term := range terms {
		kept = append(kept, best[term])
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.documents[documentID] = kept
}

// Get returns the indexed anchors of a document.
func (x *AnchorIndex) Get(documentID string) ([]*model.Anchor, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	anchors, ok := x.documents[documentID]
	return append([]*model.Anchor(nil), anchors...), ok
}

func (x *AnchorIndex) Remove(documentID string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.documents, documentID)
}

// Snapshot returns a copy of the index keyed by document.
func (x *AnchorIndex) Snapshot() map[string][]*model.Anchor {
	x.mu.RLock()
	defer x.mu.RUnlock()

	snapshot := make(map[string][]*model.Anchor, len(x.documents))
	for documentID, anchors := range x.documents {
		snapshot[documentID] = append([]*model.Anchor(nil), anchors...)
	}
	return snapshot
}

// Lookup returns the indexed anchors of term across documents, sorted by document.
func (x *AnchorIndex) Lookup(term string) []model.CrossReference {
	x.mu.RLock()
	defer x.mu.RUnlock()

	var refs []model.CrossReference
	for documentID, anchors := range x.documents {
		for _, a := range anchors {
			if strings.EqualFold(a.Term, term) {
				refs = append(refs, model.CrossReference{
					Term:     a.Term,
					Document: documentID,
					ChunkID:  a.ChunkID,
					Anchor:   a,
				})
			}
		}
	}

	sort.Slice(refs, func(i, j int) bool {
		return refs[i].Document < refs[j].Document
	})
	return refs
}
