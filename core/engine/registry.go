package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/dharmarag/database"
	"github.com/siherrmann/dharmarag/helper"
	"github.com/siherrmann/dharmarag/model"
)

var _ database.DocumentsDBHandlerFunctions = (*MemoryDocuments)(nil)

// MemoryDocuments is a document registry held in memory. It is used when no
// database is configured.
type MemoryDocuments struct {
	mu        sync.RWMutex
	nextID    int64
	order     []string
	documents map[string]*model.Document
}

func NewMemoryDocuments() *MemoryDocuments {
	return &MemoryDocuments{documents: map[string]*model.Document{}}
}

func (r *MemoryDocuments) UpsertDocument(ctx context.Context, doc *model.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if doc.RID == uuid.Nil {
		doc.RID = uuid.New()
	}
	if doc.Metadata == nil {
		doc.Metadata = model.Metadata{}
	}

	now := time.Now()
	existing, ok := r.documents[doc.Filename]
	if ok {
		doc.ID = existing.ID
		doc.RID = existing.RID
		doc.CreatedAt = existing.CreatedAt
	} else {
		r.nextID++
		doc.ID = r.nextID
		doc.CreatedAt = now
		r.order = append(r.order, doc.Filename)
	}
	doc.UpdatedAt = now

	stored := *doc
	r.documents[doc.Filename] = &stored
	return nil
}

func (r *MemoryDocuments) SelectDocument(ctx context.Context, filename string) (*model.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.documents[filename]
	if !ok {
		return nil, helper.NewError("select document", database.ErrDocumentNotFound)
	}
	stored := *doc
	return &stored, nil
}

func (r *MemoryDocuments) SelectAllDocuments(ctx context.Context) ([]*model.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	documents := make([]*model.Document, 0, len(r.order))
	for _, filename := range r.order {
		stored := *r.documents[filename]
		documents = append(documents, &stored)
	}
	return documents, nil
}

func (r *MemoryDocuments) DeleteDocument(ctx context.Context, filename string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.documents[filename]; !ok {
		return false, nil
	}
	delete(r.documents, filename)
	for i, name := range r.order {
		if name == filename {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (r *MemoryDocuments) SelectTraditionCounts(ctx context.Context) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := map[string]int{}
	for _, doc := range r.documents {
		counts[string(doc.Tradition)]++
	}
	return counts, nil
}
