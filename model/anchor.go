package model

type Category string

const (
	CategoryMeditationPractice   Category = "meditation_practice"
	CategoryCoreDoctrine         Category = "core_doctrine"
	CategoryPhilosophicalConcept Category = "philosophical_concept"
	CategoryBeingOrPerson        Category = "being_or_person"
	CategoryScriptureOrText      Category = "scripture_or_text"
	CategoryPracticeOrVirtue     Category = "practice_or_virtue"
	CategoryPlaceOrRealm         Category = "place_or_realm"
	CategoryGlossaryTerm         Category = "glossary_term"
)

// Categories lists every anchor category, the default last.
var Categories = []Category{
	CategoryMeditationPractice,
	CategoryCoreDoctrine,
	CategoryPhilosophicalConcept,
	CategoryBeingOrPerson,
	CategoryScriptureOrText,
	CategoryPracticeOrVirtue,
	CategoryPlaceOrRealm,
	CategoryGlossaryTerm,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Anchor is one scored occurrence of a glossary term inside a chunk.
type Anchor struct {
	Term         string   `json:"term"`
	Category     Category `json:"category"`
	Confidence   float64  `json:"confidence"`
	Context      string   `json:"context"`
	ChunkID      string   `json:"chunk_id"`
	RelatedTerms []string `json:"related_terms"`
}
