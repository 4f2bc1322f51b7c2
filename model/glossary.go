package model

type GlossarySource string

const (
	SourceGlossarySection  GlossarySource = "glossary_section"
	SourceInlineDefinition GlossarySource = "inline_definition"
	SourceStructural       GlossarySource = "structural_extraction"
)

// Tier orders sources by precedence. Structural guesses rank below curated definitions.
func (s GlossarySource) Tier() int {
	if s == SourceStructural {
		return 0
	}
	return 1
}

// GlossaryEntry is the record of one canonical term.
type GlossaryEntry struct {
	Term            string         `json:"term"`
	Definition      string         `json:"definition"`
	Confidence      float64        `json:"confidence"`
	Source          GlossarySource `json:"source"`
	SourceDocuments []string       `json:"source_documents,omitempty"`
}

func (e *GlossaryEntry) Copy() *GlossaryEntry {
	c := *e
	c.SourceDocuments = append([]string(nil), e.SourceDocuments...)
	return &c
}

// Outranks reports whether e takes precedence over other.
func (e *GlossaryEntry) Outranks(other *GlossaryEntry) bool {
	if e.Source.Tier() != other.Source.Tier() {
		return e.Source.Tier() > other.Source.Tier()
	}
	return e.Confidence > other.Confidence
}

// Ties reports whether neither entry outranks the other.
func (e *GlossaryEntry) Ties(other *GlossaryEntry) bool {
	return e.Source.Tier() == other.Source.Tier() && e.Confidence == other.Confidence
}

// Glossary maps terms to entries and keeps the order terms were first added.
type Glossary struct {
	terms   []string
	entries map[string]*GlossaryEntry
}

func NewGlossary() *Glossary {
	return &Glossary{entries: map[string]*GlossaryEntry{}}
}

// Set adds or replaces the entry for entry.Term. A replaced term keeps its position.
func (g *Glossary) Set(entry *GlossaryEntry) {
	if _, ok := g.entries[entry.Term]; !ok {
		g.terms = append(g.terms, entry.Term)
	}
	g.entries[entry.Term] = entry
}

func (g *Glossary) Get(term string) (*GlossaryEntry, bool) {
	entry, ok := g.entries[term]
	return entry, ok
}

// Terms returns the terms in insertion order.
func (g *Glossary) Terms() []string {
	return append([]string(nil), g.terms...)
}

// Entries returns the entries in insertion order.
func (g *Glossary) Entries() []*GlossaryEntry {
	entries := make([]*GlossaryEntry, 0, len(g.terms))
	for _, term := range g.terms {
		entries = append(entries, g.entries[term])
	}
	return entries
}

func (g *Glossary) Len() int {
	return len(g.terms)
}
